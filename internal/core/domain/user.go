package domain

import (
	"errors"
	"time"
)

const (
	RoleAdmin   = "admin"
	RoleClient  = "client"
	RolePartner = "partner"
	RoleSystem  = "system"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
)

// User models an authenticated actor in the system.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session identifies the caller of a business operation. It is built by the
// transport layer and passed explicitly; the zero value is unauthenticated.
type Session struct {
	UserID string
	Role   string
}

func (s Session) Authenticated() bool {
	return s.UserID != ""
}

func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}
