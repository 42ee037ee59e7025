package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"sysfinance/internal/core"
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 6

var ErrPasswordTooShort = fmt.Errorf("%w: password must be at least %d characters", core.ErrInvalidInput, MinPasswordLen)

// HashPassword hashes a plain text password using bcrypt
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLen {
		return "", ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password too long", core.ErrInvalidInput)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks if a plain text password matches the hashed password
func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
