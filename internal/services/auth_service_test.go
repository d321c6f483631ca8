package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/giordana79/TaskManager-API/internal/models"
	"github.com/giordana79/TaskManager-API/internal/repository"
	"github.com/giordana79/TaskManager-API/internal/utils"
)

// -------- test fakes --------

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.RefreshTokens = append([]models.RefreshToken(nil), u.RefreshTokens...)
	if u.ResetTokenHash != nil {
		h := *u.ResetTokenHash
		c.ResetTokenHash = &h
	}
	if u.ResetTokenExpiry != nil {
		e := *u.ResetTokenExpiry
		c.ResetTokenExpiry = &e
	}
	return &c
}

func (r *fakeUserRepo) Create(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicateKey
		}
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	r.users[u.ID] = cloneUser(u)
	return nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *fakeUserRepo) FindAll(ctx context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *cloneUser(u))
	}
	return out, nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) AppendRefreshToken(ctx context.Context, id primitive.ObjectID, rt models.RefreshToken, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PurgeExpiredRefreshTokens(now)
	u.RefreshTokens = append(u.RefreshTokens, rt)
	return nil
}

func (r *fakeUserRepo) PullRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.RevokeRefreshToken(token)
	return nil
}

func (r *fakeUserRepo) SetResetToken(ctx context.Context, id primitive.ObjectID, hash string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.ResetTokenHash = &hash
	u.ResetTokenExpiry = &expiry
	return nil
}

func (r *fakeUserRepo) ClearResetTokenIfMatch(ctx context.Context, id primitive.ObjectID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil
	}
	if u.ResetTokenHash != nil && *u.ResetTokenHash == hash {
		u.ResetTokenHash = nil
		u.ResetTokenExpiry = nil
	}
	return nil
}

func (r *fakeUserRepo) ConsumeResetToken(ctx context.Context, hash string, now time.Time, newPasswordHash string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ResetTokenHash != nil && *u.ResetTokenHash == hash &&
			u.ResetTokenExpiry != nil && u.ResetTokenExpiry.After(now) {
			u.PasswordHash = newPasswordHash
			u.ResetTokenHash = nil
			u.ResetTokenExpiry = nil
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// raw returns the stored record for test manipulation.
func (r *fakeUserRepo) raw(email string) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

// failingUserRepo forces an infrastructure-style error from FindByEmail.
type failingUserRepo struct {
	*fakeUserRepo
	findByEmailErr error
}

func (r *failingUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if r.findByEmailErr != nil {
		return nil, r.findByEmailErr
	}
	return r.fakeUserRepo.FindByEmail(ctx, email)
}

type fakeMailer struct {
	mu        sync.Mutex
	failSend  bool
	resetURLs []string
	welcomes  []string
}

func (m *fakeMailer) SendPasswordResetEmail(ctx context.Context, toEmail, resetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSend {
		return assert.AnError
	}
	m.resetURLs = append(m.resetURLs, resetURL)
	return nil
}

func (m *fakeMailer) SendWelcomeEmail(ctx context.Context, toEmail, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSend {
		return assert.AnError
	}
	m.welcomes = append(m.welcomes, toEmail)
	return nil
}

func (m *fakeMailer) IsConfigured() bool { return true }

func (m *fakeMailer) lastResetCredential(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.resetURLs)
	url := m.resetURLs[len(m.resetURLs)-1]
	i := strings.Index(url, "token=")
	require.GreaterOrEqual(t, i, 0)
	return url[i+len("token="):]
}

// -------- helpers --------

func newTestAuthService(t *testing.T) (AuthService, *fakeUserRepo, *fakeMailer) {
	t.Helper()
	jwtManager, err := utils.NewJWTManager("test-access-secret", "test-refresh-secret", 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)

	repo := newFakeUserRepo()
	mail := &fakeMailer{}
	svc := NewAuthService(repo, mail, jwtManager, bcrypt.MinCost, time.Hour, "http://localhost:5173", zap.NewNop().Sugar())
	return svc, repo, mail
}

func registerAlice(t *testing.T, svc AuthService) *models.PublicUser {
	t.Helper()
	user, err := svc.Register(context.Background(), "Alice", "alice@example.com", "secret1")
	require.NoError(t, err)
	return user
}

// -------- tests --------

func TestRegister(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	user := registerAlice(t, svc)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.False(t, user.ID.IsZero())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	registerAlice(t, svc)

	_, err := svc.Register(context.Background(), "Alice Again", "alice@example.com", "other-pass")
	assert.ErrorIs(t, err, ErrEmailAlreadyRegistered)

	// email matching is case-insensitive
	_, err = svc.Register(context.Background(), "Alice Again", "ALICE@Example.COM", "other-pass")
	assert.ErrorIs(t, err, ErrEmailAlreadyRegistered)
}

func TestRegister_WelcomeEmailFailureDoesNotFailRegistration(t *testing.T) {
	svc, _, mail := newTestAuthService(t)
	mail.failSend = true

	_, err := svc.Register(context.Background(), "Alice", "alice@example.com", "secret1")
	assert.NoError(t, err)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	registerAlice(t, svc)

	result, err := svc.Login(context.Background(), "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "alice@example.com", result.User.Email)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	registerAlice(t, svc)

	_, errWrongPassword := svc.Login(context.Background(), "alice@example.com", "wrong")
	_, errUnknownEmail := svc.Login(context.Background(), "nobody@example.com", "secret1")

	assert.ErrorIs(t, errWrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, errUnknownEmail, ErrInvalidCredentials)
	assert.Equal(t, errWrongPassword.Error(), errUnknownEmail.Error())
}

func TestRefresh(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	registerAlice(t, svc)

	result, err := svc.Login(context.Background(), "alice@example.com", "secret1")
	require.NoError(t, err)

	access, err := svc.Refresh(context.Background(), result.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, access)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	registerAlice(t, svc)

	result, err := svc.Login(context.Background(), "alice@example.com", "secret1")
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), result.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh_MalformedToken(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	_, err := svc.Refresh(context.Background(), "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh_UserDeleted(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	user := registerAlice(t, svc)

	result, err := svc.Login(context.Background(), "alice@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(context.Background(), user.ID))

	_, err = svc.Refresh(context.Background(), result.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	user := registerAlice(t, svc)

	result, err := svc.Login(context.Background(), "alice@example.com", "secret1")
	require.NoError(t, err)

	// works before logout
	_, err = svc.Refresh(context.Background(), result.RefreshToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), user.ID.Hex(), result.RefreshToken))

	_, err = svc.Refresh(context.Background(), result.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestLogout_UnknownUserIsNoOp(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	assert.NoError(t, svc.Logout(context.Background(), primitive.NewObjectID().Hex(), "some-token"))
	assert.NoError(t, svc.Logout(context.Background(), "garbage-id", "some-token"))
}

func TestLogout_OnlyRevokesGivenToken(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	user := registerAlice(t, svc)

	first, err := svc.Login(context.Background(), "alice@example.com", "secret1")
	require.NoError(t, err)
	second, err := svc.Login(context.Background(), "alice@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), user.ID.Hex(), first.RefreshToken))

	_, err = svc.Refresh(context.Background(), first.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	_, err = svc.Refresh(context.Background(), second.RefreshToken)
	assert.NoError(t, err)
}

func TestRequestPasswordReset_UnknownEmailLooksLikeSuccess(t *testing.T) {
	svc, _, mail := newTestAuthService(t)
	registerAlice(t, svc)

	errKnown := svc.RequestPasswordReset(context.Background(), "alice@example.com")
	errUnknown := svc.RequestPasswordReset(context.Background(), "unknown@example.com")

	assert.NoError(t, errKnown)
	assert.NoError(t, errUnknown)
	// only one email actually went out
	assert.Len(t, mail.resetURLs, 1)
}

func TestResetPassword_SingleUse(t *testing.T) {
	svc, _, mail := newTestAuthService(t)
	registerAlice(t, svc)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "alice@example.com"))
	credential := mail.lastResetCredential(t)

	require.NoError(t, svc.ResetPassword(context.Background(), credential, "newpass1"))

	// old password no longer works, new one does
	_, err := svc.Login(context.Background(), "alice@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), "alice@example.com", "newpass1")
	assert.NoError(t, err)

	// the credential is consumed
	err = svc.ResetPassword(context.Background(), credential, "newpass2")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestResetPassword_ExpiredCredential(t *testing.T) {
	svc, repo, mail := newTestAuthService(t)
	registerAlice(t, svc)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "alice@example.com"))
	credential := mail.lastResetCredential(t)

	// age the stored credential past its 1 hour window
	stored := repo.raw("alice@example.com")
	require.NotNil(t, stored.ResetTokenExpiry)
	past := time.Now().Add(-time.Minute)
	stored.ResetTokenExpiry = &past

	err := svc.ResetPassword(context.Background(), credential, "newpass1")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestResetPassword_SecondRequestInvalidatesFirst(t *testing.T) {
	svc, _, mail := newTestAuthService(t)
	registerAlice(t, svc)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "alice@example.com"))
	first := mail.lastResetCredential(t)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "alice@example.com"))
	second := mail.lastResetCredential(t)
	require.NotEqual(t, first, second)

	err := svc.ResetPassword(context.Background(), first, "newpass1")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)

	assert.NoError(t, svc.ResetPassword(context.Background(), second, "newpass1"))
}

func TestResetPassword_GarbageCredential(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	registerAlice(t, svc)

	err := svc.ResetPassword(context.Background(), "completely-wrong", "newpass1")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestRequestPasswordReset_DeliveryFailureRollsBack(t *testing.T) {
	svc, repo, mail := newTestAuthService(t)
	registerAlice(t, svc)

	mail.failSend = true
	err := svc.RequestPasswordReset(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, ErrEmailDelivery)

	stored := repo.raw("alice@example.com")
	assert.Nil(t, stored.ResetTokenHash)
	assert.Nil(t, stored.ResetTokenExpiry)
}

func TestLogin_RepositoryFailureIsLoggedAndSanitized(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	jwtManager, err := utils.NewJWTManager("test-access-secret", "", 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)

	repo := &failingUserRepo{
		fakeUserRepo:   newFakeUserRepo(),
		findByEmailErr: errors.New("connection reset by peer"),
	}
	svc := NewAuthService(repo, &fakeMailer{}, jwtManager, bcrypt.MinCost, time.Hour, "http://localhost:5173", zap.New(core).Sugar())

	_, err = svc.Login(context.Background(), "alice@example.com", "secret1")
	require.ErrorIs(t, err, ErrInternal)
	// the caller gets the sanitized error, the log gets the cause
	assert.NotContains(t, err.Error(), "connection reset")
	entries := logs.All()
	require.NotEmpty(t, entries)
	assert.Contains(t, entries[0].Message, "connection reset by peer")
}

// Full lifecycle: register, login, refresh, logout, refresh again.
func TestAuthLifecycle(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	user, err := svc.Register(context.Background(), "Alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	result, err := svc.Login(context.Background(), "alice@example.com", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)

	access, err := svc.Refresh(context.Background(), result.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	// a new token every time, even within the same second as login
	require.NotEqual(t, result.AccessToken, access)

	require.NoError(t, svc.Logout(context.Background(), user.ID.Hex(), result.RefreshToken))

	_, err = svc.Refresh(context.Background(), result.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}
