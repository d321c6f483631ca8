package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/giordana79/TaskManager-API/internal/middleware"
	"github.com/giordana79/TaskManager-API/internal/services"
	"github.com/giordana79/TaskManager-API/internal/utils"
)

// resetRequestMessage is deliberately identical whether or not the email is
// registered.
const resetRequestMessage = "If the email exists, you will receive reset instructions"

type AuthHandler struct {
	svc    services.AuthService
	logger *zap.SugaredLogger
}

func NewAuthHandler(svc services.AuthService, logger *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates the account and logs the new user straight in.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if err := utils.ValidateName(req.Name); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := utils.ValidateEmail(req.Email); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	user, err := h.svc.Register(c.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return jsonError(c, err)
	}
	h.logger.Infof("new user registered: %s", user.Email)

	// auto-login after registration
	result, err := h.svc.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return jsonError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":      true,
		"user":         result.User,
		"accessToken":  result.AccessToken,
		"refreshToken": result.RefreshToken,
	})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email and password required")
	}

	result, err := h.svc.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return jsonError(c, err)
	}
	h.logger.Infof("user logged in: %s", result.User.Email)

	return c.JSON(fiber.Map{
		"success":      true,
		"user":         result.User,
		"accessToken":  result.AccessToken,
		"refreshToken": result.RefreshToken,
	})
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req refreshReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if req.RefreshToken == "" {
		return fiber.NewError(fiber.StatusBadRequest, "refresh token required")
	}

	accessToken, err := h.svc.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"accessToken": accessToken,
	})
}

type logoutReq struct {
	RefreshToken string `json:"refreshToken"`
}

// Logout revokes the supplied refresh token for the authenticated user.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req logoutReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	user := middleware.CurrentUser(c)
	if user == nil {
		return fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
	}

	if err := h.svc.Logout(c.Context(), user.ID.Hex(), req.RefreshToken); err != nil {
		return jsonError(c, err)
	}
	h.logger.Infof("user logged out: %s", user.ID.Hex())

	return c.JSON(fiber.Map{"success": true, "message": "logged out"})
}

type requestResetReq struct {
	Email string `json:"email"`
}

func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req requestResetReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if err := utils.ValidateEmail(req.Email); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := h.svc.RequestPasswordReset(c.Context(), req.Email); err != nil {
		return jsonError(c, err)
	}
	h.logger.Infof("password reset requested for: %s", req.Email)

	return c.JSON(fiber.Map{"success": true, "message": resetRequestMessage})
}

type resetPasswordReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if req.Token == "" {
		return fiber.NewError(fiber.StatusBadRequest, "token required")
	}
	if err := utils.ValidatePassword(req.NewPassword); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := h.svc.ResetPassword(c.Context(), req.Token, req.NewPassword); err != nil {
		return jsonError(c, err)
	}
	h.logger.Info("password reset completed")

	return c.JSON(fiber.Map{"success": true, "message": "password updated successfully"})
}
