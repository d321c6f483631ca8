package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/giordana79/TaskManager-API/internal/mailer"
	"github.com/giordana79/TaskManager-API/internal/models"
	"github.com/giordana79/TaskManager-API/internal/repository"
	"github.com/giordana79/TaskManager-API/internal/utils"
)

type authService struct {
	userRepo    repository.UserRepository
	mail        mailer.Sender
	jwt         *utils.JWTManager
	hashCost    int
	resetTTL    time.Duration
	frontendURL string
	logger      *zap.SugaredLogger
}

// NewAuthService wires the auth orchestrator. All collaborators are injected;
// there are no package-level singletons.
func NewAuthService(
	userRepo repository.UserRepository,
	mail mailer.Sender,
	jwtManager *utils.JWTManager,
	hashCost int,
	resetTTL time.Duration,
	frontendURL string,
	logger *zap.SugaredLogger,
) AuthService {
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}
	return &authService{
		userRepo:    userRepo,
		mail:        mail,
		jwt:         jwtManager,
		hashCost:    hashCost,
		resetTTL:    resetTTL,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// Register creates a new account with the default role. The welcome email is
// fired in the background; its failure never fails registration.
func (s *authService) Register(ctx context.Context, name, email, password string) (*models.PublicUser, error) {
	email = utils.NormalizeEmail(email)

	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailAlreadyRegistered
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		s.logger.Errorf("register: user lookup failed: %v", err)
		return nil, fmt.Errorf("failed to check existing user: %w", ErrInternal)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		s.logger.Errorf("register: password hashing failed: %v", err)
		return nil, fmt.Errorf("failed to hash password: %w", ErrInternal)
	}

	user := &models.User{
		Name:          name,
		Email:         email,
		PasswordHash:  string(hashed),
		Role:          models.RoleUser,
		RefreshTokens: []models.RefreshToken{},
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// the unique index catches the race the pre-check cannot
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrEmailAlreadyRegistered
		}
		s.logger.Errorf("register: user insert failed: %v", err)
		return nil, fmt.Errorf("failed to create user: %w", ErrInternal)
	}

	go func() {
		mailCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if sendErr := s.mail.SendWelcomeEmail(mailCtx, email, name); sendErr != nil {
			s.logger.Warnf("failed to send welcome email to %s: %v", email, sendErr)
		}
	}()

	return user.Public(), nil
}

// Login verifies credentials and issues a fresh access/refresh token pair. The
// new refresh token is appended to the ledger in the same update that purges
// expired entries.
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = utils.NormalizeEmail(email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Errorf("login: user lookup failed: %v", err)
		return nil, fmt.Errorf("failed to find user during login: %w", ErrInternal)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	user.PurgeExpiredRefreshTokens(now)

	accessToken, _, err := s.jwt.GenerateAccessToken(user.ID.Hex(), user.Email)
	if err != nil {
		s.logger.Errorf("login: access token signing failed: %v", err)
		return nil, fmt.Errorf("failed to generate access token: %w", ErrInternal)
	}
	refreshToken, refreshExp, err := s.jwt.GenerateRefreshToken(user.ID.Hex())
	if err != nil {
		s.logger.Errorf("login: refresh token signing failed: %v", err)
		return nil, fmt.Errorf("failed to generate refresh token: %w", ErrInternal)
	}

	rt := models.RefreshToken{Token: refreshToken, CreatedAt: now, ExpiresAt: refreshExp}
	if err := s.userRepo.AppendRefreshToken(ctx, user.ID, rt, now); err != nil {
		s.logger.Errorf("login: refresh token persist failed: %v", err)
		return nil, fmt.Errorf("failed to persist refresh token: %w", ErrInternal)
	}

	return &LoginResult{
		User:         user.Public(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh mints a new access token from a valid, still-ledgered refresh token.
// The refresh token itself is not rotated; it stays valid until logout or
// natural expiry.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwt.VerifyRefresh(refreshToken)
	if err != nil {
		return "", ErrInvalidToken
	}

	oid, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return "", ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		s.logger.Errorf("refresh: user lookup failed: %v", err)
		return "", fmt.Errorf("failed to find user during refresh: %w", ErrInternal)
	}

	if !user.HasRefreshToken(refreshToken, time.Now().UTC()) {
		return "", ErrTokenRevoked
	}

	accessToken, _, err := s.jwt.GenerateAccessToken(user.ID.Hex(), user.Email)
	if err != nil {
		s.logger.Errorf("refresh: access token signing failed: %v", err)
		return "", fmt.Errorf("failed to generate access token: %w", ErrInternal)
	}
	return accessToken, nil
}

// Logout revokes one refresh token. Best effort: an unknown user means the
// session is already gone.
func (s *authService) Logout(ctx context.Context, userID, refreshToken string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}
	err = s.userRepo.PullRefreshToken(ctx, oid, refreshToken)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		s.logger.Errorf("logout: refresh token revocation failed: %v", err)
		return fmt.Errorf("failed to revoke refresh token: %w", ErrInternal)
	}
	return nil
}

// RequestPasswordReset stores a hashed single-use credential and mails the
// plaintext to the user. An unknown email returns success all the same, so the
// endpoint cannot be used to probe for accounts.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		s.logger.Errorf("reset request: user lookup failed: %v", err)
		return fmt.Errorf("failed to find user for password reset: %w", ErrInternal)
	}

	credential, err := utils.GenerateResetCredential()
	if err != nil {
		s.logger.Errorf("reset request: credential generation failed: %v", err)
		return fmt.Errorf("failed to generate reset credential: %w", ErrInternal)
	}
	hash := utils.HashResetCredential(credential)
	expiry := time.Now().UTC().Add(s.resetTTL)

	if err := s.userRepo.SetResetToken(ctx, user.ID, hash, expiry); err != nil {
		s.logger.Errorf("reset request: credential store failed: %v", err)
		return fmt.Errorf("failed to store reset credential: %w", ErrInternal)
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, credential)
	if err := s.mail.SendPasswordResetEmail(ctx, email, resetURL); err != nil {
		s.logger.Errorf("failed to send reset email to %s: %v", email, err)
		// roll back only if our credential is still the stored one
		if clearErr := s.userRepo.ClearResetTokenIfMatch(ctx, user.ID, hash); clearErr != nil {
			s.logger.Errorf("failed to roll back reset credential for %s: %v", email, clearErr)
		}
		return ErrEmailDelivery
	}
	return nil
}

// ResetPassword consumes a reset credential exactly once: lookup, password
// swap and credential clearing happen in a single conditional update.
func (s *authService) ResetPassword(ctx context.Context, credential, newPassword string) error {
	hash := utils.HashResetCredential(credential)

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		s.logger.Errorf("reset: password hashing failed: %v", err)
		return fmt.Errorf("failed to hash new password: %w", ErrInternal)
	}

	_, err = s.userRepo.ConsumeResetToken(ctx, hash, time.Now().UTC(), string(newHash))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrResetTokenInvalid
		}
		s.logger.Errorf("reset: credential consume failed: %v", err)
		return fmt.Errorf("failed to consume reset credential: %w", ErrInternal)
	}
	return nil
}

// GetUserByID loads a full user record, used by the auth middleware.
func (s *authService) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Errorf("user lookup failed: %v", err)
		return nil, fmt.Errorf("failed to find user: %w", ErrInternal)
	}
	return user, nil
}

// ListUsers returns every account, secrets stripped. Admin only.
func (s *authService) ListUsers(ctx context.Context) ([]models.PublicUser, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		s.logger.Errorf("user list failed: %v", err)
		return nil, fmt.Errorf("failed to list users: %w", ErrInternal)
	}
	out := make([]models.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, *users[i].Public())
	}
	return out, nil
}

// DeleteUser removes an account. Admin only.
func (s *authService) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	err := s.userRepo.Delete(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		s.logger.Errorf("user delete failed: %v", err)
		return fmt.Errorf("failed to delete user: %w", ErrInternal)
	}
	return nil
}
