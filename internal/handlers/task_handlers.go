package handlers

import (
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/giordana79/TaskManager-API/internal/middleware"
	"github.com/giordana79/TaskManager-API/internal/models"
	"github.com/giordana79/TaskManager-API/internal/services"
	"github.com/giordana79/TaskManager-API/internal/utils"
)

type TaskHandler struct {
	svc    services.TaskService
	logger *zap.SugaredLogger
}

func NewTaskHandler(svc services.TaskService, logger *zap.SugaredLogger) *TaskHandler {
	return &TaskHandler{svc: svc, logger: logger}
}

type createTaskReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *TaskHandler) Create(c *fiber.Ctx) error {
	var req createTaskReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if err := utils.ValidateTitle(req.Title); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	user := middleware.CurrentUser(c)
	task, err := h.svc.Create(c.Context(), user.ID, req.Title, req.Description)
	if err != nil {
		return jsonError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

func (h *TaskHandler) List(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	tasks, err := h.svc.ListByOwner(c.Context(), user.ID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(tasks)
}

func (h *TaskHandler) Update(c *fiber.Ctx) error {
	id, err := parseObjectID(c)
	if err != nil {
		return err
	}

	var patch models.TaskPatch
	if err := c.BodyParser(&patch); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if patch.Title != nil {
		if err := utils.ValidateTitle(*patch.Title); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}

	user := middleware.CurrentUser(c)
	task, err := h.svc.Update(c.Context(), user.ID, id, patch)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(task)
}

func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	id, err := parseObjectID(c)
	if err != nil {
		return err
	}

	user := middleware.CurrentUser(c)
	if err := h.svc.Delete(c.Context(), user.ID, id); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "task deleted"})
}

// Upload attaches a file to an owned task (multipart field "file").
func (h *TaskHandler) Upload(c *fiber.Ctx) error {
	id, err := parseObjectID(c)
	if err != nil {
		return err
	}

	filename, contentType, data, err := readUpload(c)
	if err != nil {
		return err
	}

	user := middleware.CurrentUser(c)
	task, err := h.svc.AttachFile(c.Context(), user.ID, id, filename, contentType, data)
	if err != nil {
		return jsonError(c, err)
	}
	h.logger.Infof("attachment uploaded for task %s", id.Hex())
	return c.JSON(task)
}

// AttachmentURL returns a short-lived download URL for an owned task's file.
func (h *TaskHandler) AttachmentURL(c *fiber.Ctx) error {
	id, err := parseObjectID(c)
	if err != nil {
		return err
	}

	user := middleware.CurrentUser(c)
	url, err := h.svc.AttachmentURL(c.Context(), user.ID, id)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(fiber.Map{"url": url})
}

func parseObjectID(c *fiber.Ctx) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return primitive.NilObjectID, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func readUpload(c *fiber.Ctx) (filename, contentType string, data []byte, err error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return "", "", nil, fiber.NewError(fiber.StatusBadRequest, "file missing")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return "", "", nil, fiber.NewError(fiber.StatusInternalServerError, "cannot open file")
	}
	defer f.Close()

	data = make([]byte, fileHeader.Size)
	if _, err := io.ReadFull(f, data); err != nil {
		return "", "", nil, fiber.NewError(fiber.StatusInternalServerError, "cannot read file")
	}

	contentType = fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return fileHeader.Filename, contentType, data, nil
}
