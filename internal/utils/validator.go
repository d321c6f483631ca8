package utils

import (
	"errors"
	"net/mail"
	"strings"
)

const (
	MinNameLen     = 2
	MinPasswordLen = 6
	MinTitleLen    = 3
)

var (
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrNameTooShort     = errors.New("name too short")
	ErrPasswordTooShort = errors.New("password too short")
	ErrTitleTooShort    = errors.New("title too short")
)

// NormalizeEmail lowercases and trims an email; the login key is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the address is syntactically valid.
func ValidateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateName enforces the registration name constraint.
func ValidateName(name string) error {
	if len(strings.TrimSpace(name)) < MinNameLen {
		return ErrNameTooShort
	}
	return nil
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLen {
		return ErrPasswordTooShort
	}
	return nil
}

// ValidateTitle enforces the minimum task title length.
func ValidateTitle(title string) error {
	if len(strings.TrimSpace(title)) < MinTitleLen {
		return ErrTitleTooShort
	}
	return nil
}
