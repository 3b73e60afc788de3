package services

import (
	"errors"
	"fmt"

	"github.com/prudhvinik1/guildchat/internal/repositories"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already registered")
	ErrUserNumberTaken    = errors.New("user number already taken")
	ErrInvalidToken       = errors.New("invalid token")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// notFound translates a repository miss into ErrNotFound naming what was missing
// and wraps any other failure.
func notFound(err error, what string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}
