package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/giordana79/TaskManager-API/internal/models"
	"github.com/giordana79/TaskManager-API/internal/services"
)

// AdminHandler is the administrative override surface: list everything,
// modify or remove any record regardless of ownership.
type AdminHandler struct {
	authSvc services.AuthService
	taskSvc services.TaskService
	logger  *zap.SugaredLogger
}

func NewAdminHandler(authSvc services.AuthService, taskSvc services.TaskService, logger *zap.SugaredLogger) *AdminHandler {
	return &AdminHandler{authSvc: authSvc, taskSvc: taskSvc, logger: logger}
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.authSvc.ListUsers(c.Context())
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(users)
}

func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := parseObjectID(c)
	if err != nil {
		return err
	}
	if err := h.authSvc.DeleteUser(c.Context(), id); err != nil {
		return jsonError(c, err)
	}
	h.logger.Infof("admin deleted user %s", id.Hex())
	return c.JSON(fiber.Map{"success": true, "message": "user deleted"})
}

func (h *AdminHandler) ListTasks(c *fiber.Ctx) error {
	tasks, err := h.taskSvc.ListAll(c.Context())
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(tasks)
}

func (h *AdminHandler) UpdateTask(c *fiber.Ctx) error {
	id, err := parseObjectID(c)
	if err != nil {
		return err
	}

	var patch models.TaskPatch
	if err := c.BodyParser(&patch); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	task, err := h.taskSvc.AdminUpdate(c.Context(), id, patch)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(task)
}

func (h *AdminHandler) DeleteTask(c *fiber.Ctx) error {
	id, err := parseObjectID(c)
	if err != nil {
		return err
	}
	if err := h.taskSvc.AdminDelete(c.Context(), id); err != nil {
		return jsonError(c, err)
	}
	h.logger.Infof("admin deleted task %s", id.Hex())
	return c.JSON(fiber.Map{"success": true, "message": "task deleted"})
}

func (h *AdminHandler) UploadTaskFile(c *fiber.Ctx) error {
	id, err := parseObjectID(c)
	if err != nil {
		return err
	}

	filename, contentType, data, err := readUpload(c)
	if err != nil {
		return err
	}

	task, err := h.taskSvc.AdminAttachFile(c.Context(), id, filename, contentType, data)
	if err != nil {
		return jsonError(c, err)
	}
	h.logger.Infof("admin uploaded attachment for task %s", id.Hex())
	return c.JSON(task)
}
