package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/giordana79/TaskManager-API/internal/models"
	"github.com/giordana79/TaskManager-API/internal/repository"
	"github.com/giordana79/TaskManager-API/internal/storage"
)

const (
	maxAttachmentSize = 50 * 1024 * 1024
	presignTTL        = 10 * time.Minute
)

type taskService struct {
	taskRepo repository.TaskRepository
	store    storage.FileStore
	logger   *zap.SugaredLogger
}

// NewTaskService wires the task CRUD service with its attachment store.
func NewTaskService(taskRepo repository.TaskRepository, store storage.FileStore, logger *zap.SugaredLogger) TaskService {
	return &taskService{taskRepo: taskRepo, store: store, logger: logger}
}

func (s *taskService) Create(ctx context.Context, owner primitive.ObjectID, title, description string) (*models.Task, error) {
	task := &models.Task{
		Title:       title,
		Description: description,
		Completed:   false,
		Owner:       owner,
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		s.logger.Errorf("task insert failed: %v", err)
		return nil, fmt.Errorf("failed to create task: %w", ErrInternal)
	}
	return task, nil
}

func (s *taskService) ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Task, error) {
	tasks, err := s.taskRepo.FindByOwner(ctx, owner)
	if err != nil {
		s.logger.Errorf("task list failed: %v", err)
		return nil, fmt.Errorf("failed to list tasks: %w", ErrInternal)
	}
	return tasks, nil
}

func (s *taskService) Update(ctx context.Context, owner, id primitive.ObjectID, patch models.TaskPatch) (*models.Task, error) {
	task, err := s.taskRepo.UpdateOwned(ctx, owner, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		s.logger.Errorf("task update failed: %v", err)
		return nil, fmt.Errorf("failed to update task: %w", ErrInternal)
	}
	return task, nil
}

func (s *taskService) Delete(ctx context.Context, owner, id primitive.ObjectID) error {
	task, err := s.taskRepo.DeleteOwned(ctx, owner, id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return ErrTaskNotFound
		}
		s.logger.Errorf("task delete failed: %v", err)
		return fmt.Errorf("failed to delete task: %w", ErrInternal)
	}
	s.removeAttachment(ctx, task)
	return nil
}

func (s *taskService) AttachFile(ctx context.Context, owner, id primitive.ObjectID, filename, contentType string, data []byte) (*models.Task, error) {
	task, err := s.taskRepo.FindOwned(ctx, owner, id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		s.logger.Errorf("task lookup failed: %v", err)
		return nil, fmt.Errorf("failed to find task: %w", ErrInternal)
	}
	return s.attach(ctx, task, filename, contentType, data, func(key string) (*models.Task, error) {
		return s.taskRepo.SetFileKeyOwned(ctx, owner, id, key)
	})
}

func (s *taskService) AttachmentURL(ctx context.Context, owner, id primitive.ObjectID) (string, error) {
	task, err := s.taskRepo.FindOwned(ctx, owner, id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return "", ErrTaskNotFound
		}
		s.logger.Errorf("task lookup failed: %v", err)
		return "", fmt.Errorf("failed to find task: %w", ErrInternal)
	}
	if task.FileKey == "" {
		return "", ErrNoAttachment
	}
	url, err := s.store.PresignURL(ctx, task.FileKey, presignTTL)
	if err != nil {
		s.logger.Errorf("attachment presign failed for %s: %v", task.FileKey, err)
		return "", fmt.Errorf("failed to presign attachment URL: %w", ErrInternal)
	}
	return url, nil
}

func (s *taskService) ListAll(ctx context.Context) ([]models.Task, error) {
	tasks, err := s.taskRepo.FindAll(ctx)
	if err != nil {
		s.logger.Errorf("task list failed: %v", err)
		return nil, fmt.Errorf("failed to list tasks: %w", ErrInternal)
	}
	return tasks, nil
}

func (s *taskService) AdminUpdate(ctx context.Context, id primitive.ObjectID, patch models.TaskPatch) (*models.Task, error) {
	task, err := s.taskRepo.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		s.logger.Errorf("task update failed: %v", err)
		return nil, fmt.Errorf("failed to update task: %w", ErrInternal)
	}
	return task, nil
}

func (s *taskService) AdminDelete(ctx context.Context, id primitive.ObjectID) error {
	task, err := s.taskRepo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return ErrTaskNotFound
		}
		s.logger.Errorf("task delete failed: %v", err)
		return fmt.Errorf("failed to delete task: %w", ErrInternal)
	}
	s.removeAttachment(ctx, task)
	return nil
}

func (s *taskService) AdminAttachFile(ctx context.Context, id primitive.ObjectID, filename, contentType string, data []byte) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		s.logger.Errorf("task lookup failed: %v", err)
		return nil, fmt.Errorf("failed to find task: %w", ErrInternal)
	}
	return s.attach(ctx, task, filename, contentType, data, func(key string) (*models.Task, error) {
		return s.taskRepo.SetFileKey(ctx, id, key)
	})
}

func (s *taskService) attach(ctx context.Context, task *models.Task, filename, contentType string, data []byte, persist func(key string) (*models.Task, error)) (*models.Task, error) {
	if err := validateAttachment(contentType, int64(len(data))); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("tasks/%s/%d-%s", task.ID.Hex(), time.Now().UnixNano(), sanitizeFilename(filename))
	if err := s.store.Upload(ctx, key, contentType, data); err != nil {
		s.logger.Errorf("attachment upload failed for %s: %v", key, err)
		return nil, fmt.Errorf("failed to upload attachment: %w", ErrInternal)
	}

	updated, err := persist(key)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			// the task vanished mid-upload, drop the orphan object
			if delErr := s.store.Delete(ctx, key); delErr != nil {
				s.logger.Warnf("failed to remove orphan attachment %s: %v", key, delErr)
			}
			return nil, ErrTaskNotFound
		}
		s.logger.Errorf("attachment record failed for %s: %v", key, err)
		return nil, fmt.Errorf("failed to record attachment: %w", ErrInternal)
	}

	if task.FileKey != "" && task.FileKey != key {
		if delErr := s.store.Delete(ctx, task.FileKey); delErr != nil {
			s.logger.Warnf("failed to remove replaced attachment %s: %v", task.FileKey, delErr)
		}
	}
	return updated, nil
}

func (s *taskService) removeAttachment(ctx context.Context, task *models.Task) {
	if task == nil || task.FileKey == "" {
		return
	}
	if err := s.store.Delete(ctx, task.FileKey); err != nil {
		s.logger.Warnf("failed to remove attachment %s: %v", task.FileKey, err)
	}
}

func validateAttachment(contentType string, size int64) error {
	if size == 0 || size > maxAttachmentSize {
		return ErrInvalidFile
	}
	if !strings.HasPrefix(contentType, "image/") {
		return ErrInvalidFile
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	if base == "." || base == "" {
		return "file"
	}
	return base
}
