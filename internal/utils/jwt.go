package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("jwt signing secret not configured")
)

// CustomClaims are the claims carried by both access and refresh tokens.
// TokenType discriminates the two so one can never stand in for the other.
type CustomClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies access and refresh tokens with distinct
// secrets, so a compromise of one secret does not forge the other kind.
type JWTManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewJWTManager builds a manager. refreshSecret falls back to accessSecret
// when empty. An empty accessSecret is a configuration error.
func NewJWTManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*JWTManager, error) {
	if accessSecret == "" {
		return nil, ErrNoSecret
	}
	if refreshSecret == "" {
		refreshSecret = accessSecret
	}
	return &JWTManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// AccessTTL returns the configured access token lifetime.
func (j *JWTManager) AccessTTL() time.Duration { return j.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (j *JWTManager) RefreshTTL() time.Duration { return j.refreshTTL }

// GenerateAccessToken signs a short-lived access token for userID/email.
func (j *JWTManager) GenerateAccessToken(userID, email string) (string, time.Time, error) {
	return j.generate(userID, email, TokenTypeAccess, j.accessSecret, j.accessTTL)
}

// GenerateRefreshToken signs a long-lived refresh token for userID.
func (j *JWTManager) GenerateRefreshToken(userID string) (string, time.Time, error) {
	return j.generate(userID, "", TokenTypeRefresh, j.refreshSecret, j.refreshTTL)
}

func (j *JWTManager) generate(userID, email, tokenType string, secret []byte, ttl time.Duration) (string, time.Time, error) {
	// random jti: iat has second precision, so without it two tokens issued
	// within the same second would be byte-identical
	jti := make([]byte, 16)
	if _, err := rand.Read(jti); err != nil {
		return "", time.Time{}, err
	}

	now := time.Now()
	exp := now.Add(ttl)
	claims := &CustomClaims{
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        hex.EncodeToString(jti),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	return signed, exp, err
}

// VerifyAccess validates an access token and returns its claims.
func (j *JWTManager) VerifyAccess(tokenStr string) (*CustomClaims, error) {
	return j.verify(tokenStr, TokenTypeAccess, j.accessSecret)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (j *JWTManager) VerifyRefresh(tokenStr string) (*CustomClaims, error) {
	return j.verify(tokenStr, TokenTypeRefresh, j.refreshSecret)
}

func (j *JWTManager) verify(tokenStr, wantType string, secret []byte) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != wantType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
