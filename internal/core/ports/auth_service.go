package ports

import (
	"context"

	"github.com/aurelia/concierge-system/internal/core/domain"
)

type AuthService interface {
	// Register is public sign-up and always yields a client account.
	Register(ctx context.Context, username, password, email string) (*domain.User, error)
	// CreateUser provisions an account of any role on an admin's behalf.
	CreateUser(ctx context.Context, username, password, email, role string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
}
