package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/giordana79/TaskManager-API/internal/services"
)

// statusForError maps service sentinels to HTTP statuses. Anything unmapped
// is an internal error.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrEmailAlreadyRegistered):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrTokenRevoked):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrResetTokenInvalid),
		errors.Is(err, services.ErrInvalidFile):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrNoAttachment):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrEmailDelivery):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func jsonError(c *fiber.Ctx, err error) error {
	status := statusForError(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		msg = services.ErrInternal.Error()
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
