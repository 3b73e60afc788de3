package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	UserNumber   string    `json:"user_number"`
	PasswordHash string    `json:"-"`
	Avatar       *string   `json:"avatar"`
	Status       string    `json:"status"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Author is the denormalized snapshot of a user embedded in message payloads.
// UserNumber is left empty for direct messages.
type Author struct {
	Username   string  `json:"username"`
	Avatar     *string `json:"avatar"`
	UserNumber string  `json:"user_number,omitempty"`
}

func (u *User) Author() Author {
	return Author{
		Username:   u.Username,
		Avatar:     u.Avatar,
		UserNumber: u.UserNumber,
	}
}
