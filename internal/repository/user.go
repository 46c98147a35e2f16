package repository

import (
	"context"

	"github.com/ErlanBelekov/warranty-register/internal/domain"
)

type UserRepository interface {
	// FindByEmail returns domain.ErrUserNotFound when no account matches.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create returns domain.ErrEmailTaken on a unique violation.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	AdminExists(ctx context.Context) (bool, error)
}
