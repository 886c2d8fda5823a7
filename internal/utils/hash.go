package utils

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/example/barmen/internal/apperrors"
)

// Password length bounds for accounts. bcrypt only looks at the first 72
// bytes, so longer passwords are rejected rather than silently truncated.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// ValidatePassword checks password against the length bounds.
func ValidatePassword(password string) error {
	switch {
	case len(password) < MinPasswordLength:
		return apperrors.NewValidationError("password", "must be at least %d characters", MinPasswordLength)
	case len(password) > MaxPasswordLength:
		return apperrors.NewValidationError("password", "must be at most %d bytes", MaxPasswordLength)
	}
	return nil
}

// HashPassword validates password and returns its bcrypt hash.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a bcrypt hash with a candidate password. An empty
// hash never matches.
func CheckPassword(hashedPassword, password string) bool {
	if hashedPassword == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}
