package services

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/giordana79/TaskManager-API/internal/models"
)

var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	// ErrInvalidCredentials is returned for both an unknown email and a wrong
	// password so login failures carry no enumeration signal.
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTokenRevoked       = errors.New("refresh token revoked")
	ErrResetTokenInvalid  = errors.New("reset token invalid or expired")
	ErrEmailDelivery      = errors.New("failed to send email, try again later")
	ErrUserNotFound       = errors.New("user not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrInvalidFile        = errors.New("invalid file")
	ErrNoAttachment       = errors.New("task has no attachment")
	ErrInternal           = errors.New("internal server error")
)

// LoginResult is what a successful login hands back to the HTTP layer.
type LoginResult struct {
	User         *models.PublicUser `json:"user"`
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
}

// AuthService is the single entry point for the authentication lifecycle.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*models.PublicUser, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, userID, refreshToken string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, credential, newPassword string) error

	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.PublicUser, error)
	DeleteUser(ctx context.Context, id primitive.ObjectID) error
}

// TaskService covers per-user task CRUD plus the admin override surface.
type TaskService interface {
	Create(ctx context.Context, owner primitive.ObjectID, title, description string) (*models.Task, error)
	ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Task, error)
	Update(ctx context.Context, owner, id primitive.ObjectID, patch models.TaskPatch) (*models.Task, error)
	Delete(ctx context.Context, owner, id primitive.ObjectID) error
	AttachFile(ctx context.Context, owner, id primitive.ObjectID, filename, contentType string, data []byte) (*models.Task, error)
	AttachmentURL(ctx context.Context, owner, id primitive.ObjectID) (string, error)

	ListAll(ctx context.Context) ([]models.Task, error)
	AdminUpdate(ctx context.Context, id primitive.ObjectID, patch models.TaskPatch) (*models.Task, error)
	AdminDelete(ctx context.Context, id primitive.ObjectID) error
	AdminAttachFile(ctx context.Context, id primitive.ObjectID, filename, contentType string, data []byte) (*models.Task, error)
}
