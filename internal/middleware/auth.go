package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/giordana79/TaskManager-API/internal/models"
	"github.com/giordana79/TaskManager-API/internal/services"
	"github.com/giordana79/TaskManager-API/internal/utils"
)

const userLocalKey = "user"

// JWTAuth validates the Bearer access token and loads the authenticated user
// into the request locals.
func JWTAuth(jwtManager *utils.JWTManager, authSvc services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authentication token"})
		}
		token := strings.TrimPrefix(auth, "Bearer ")

		claims, err := jwtManager.VerifyAccess(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		oid, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		user, err := authSvc.GetUserByID(c.Context(), oid)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "user not found"})
		}

		c.Locals(userLocalKey, user)
		return c.Next()
	}
}

// RequireAdmin rejects requests whose authenticated user is not an admin.
// Must run after JWTAuth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil || user.Role != models.RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
		}
		return c.Next()
	}
}

// CurrentUser returns the user loaded by JWTAuth, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userLocalKey).(*models.User)
	return user
}
