package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/giordana79/TaskManager-API/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrTaskNotFound = errors.New("task not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

// UserRepository persists user records. Ledger and reset-state mutations are
// single conditional updates so concurrent requests for the same user cannot
// lose writes.
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindAll(ctx context.Context) ([]models.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error

	// AppendRefreshToken drops expired ledger entries and appends rt in one
	// atomic update.
	AppendRefreshToken(ctx context.Context, id primitive.ObjectID, rt models.RefreshToken, now time.Time) error
	// PullRefreshToken removes every ledger entry matching token.
	PullRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error

	// SetResetToken stores the hashed reset credential and its expiry,
	// overwriting any previous one.
	SetResetToken(ctx context.Context, id primitive.ObjectID, hash string, expiry time.Time) error
	// ClearResetTokenIfMatch rolls back a stored credential, but only while it
	// is still the one identified by hash.
	ClearResetTokenIfMatch(ctx context.Context, id primitive.ObjectID, hash string) error
	// ConsumeResetToken finds the user holding an unexpired credential with
	// the given hash, swaps in the new password hash and clears the reset
	// state, all in one update. ErrUserNotFound when no such user exists.
	ConsumeResetToken(ctx context.Context, hash string, now time.Time, newPasswordHash string) (*models.User, error)
}

// TaskRepository persists task records.
type TaskRepository interface {
	Create(ctx context.Context, t *models.Task) error
	FindByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Task, error)
	FindOwned(ctx context.Context, owner, id primitive.ObjectID) (*models.Task, error)
	FindAll(ctx context.Context) ([]models.Task, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error)

	// UpdateOwned patches a task only when owner matches; ErrTaskNotFound
	// covers both a missing and a foreign task.
	UpdateOwned(ctx context.Context, owner, id primitive.ObjectID, patch models.TaskPatch) (*models.Task, error)
	Update(ctx context.Context, id primitive.ObjectID, patch models.TaskPatch) (*models.Task, error)

	// DeleteOwned removes an owned task, returning it so the caller can clean
	// up its attachment.
	DeleteOwned(ctx context.Context, owner, id primitive.ObjectID) (*models.Task, error)
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Task, error)

	SetFileKey(ctx context.Context, id primitive.ObjectID, key string) (*models.Task, error)
	SetFileKeyOwned(ctx context.Context, owner, id primitive.ObjectID, key string) (*models.Task, error)
}
