package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// RefreshToken is one entry of a user's refresh-token ledger. A refresh token
// is only trusted while a matching, unexpired entry exists here.
type RefreshToken struct {
	Token     string    `bson:"token" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
}

// User represents an account in the task manager.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name,omitempty" json:"name,omitempty"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         string             `bson:"role" json:"role"`

	// Outstanding password-reset credential, stored hashed. Both fields are
	// set together or both nil.
	ResetTokenHash   *string    `bson:"reset_token_hash,omitempty" json:"-"`
	ResetTokenExpiry *time.Time `bson:"reset_token_expiry,omitempty" json:"-"`

	RefreshTokens []RefreshToken `bson:"refresh_tokens" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// PurgeExpiredRefreshTokens drops ledger entries whose expiry has passed.
// Must run before any trust decision on the ledger.
func (u *User) PurgeExpiredRefreshTokens(now time.Time) {
	kept := u.RefreshTokens[:0]
	for _, rt := range u.RefreshTokens {
		if rt.ExpiresAt.After(now) {
			kept = append(kept, rt)
		}
	}
	u.RefreshTokens = kept
}

// AddRefreshToken appends a new ledger entry valid for ttl from now.
func (u *User) AddRefreshToken(token string, now time.Time, ttl time.Duration) {
	u.RefreshTokens = append(u.RefreshTokens, RefreshToken{
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	})
}

// HasRefreshToken reports whether token has an unexpired ledger entry.
func (u *User) HasRefreshToken(token string, now time.Time) bool {
	for _, rt := range u.RefreshTokens {
		if rt.Token == token && rt.ExpiresAt.After(now) {
			return true
		}
	}
	return false
}

// RevokeRefreshToken removes every ledger entry matching token.
func (u *User) RevokeRefreshToken(token string) {
	kept := u.RefreshTokens[:0]
	for _, rt := range u.RefreshTokens {
		if rt.Token != token {
			kept = append(kept, rt)
		}
	}
	u.RefreshTokens = kept
}

// PublicUser is the wire representation of a user, secrets stripped.
type PublicUser struct {
	ID        primitive.ObjectID `json:"id"`
	Name      string             `json:"name,omitempty"`
	Email     string             `json:"email"`
	Role      string             `json:"role"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Public strips password hash, reset state and refresh tokens.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
