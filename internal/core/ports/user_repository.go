package ports

import (
	"context"

	"github.com/coursehub/registration-api/internal/core/domain"
)

// ListUsersFilter carries the admin user list query.
type ListUsersFilter struct {
	Search string // optional: matches username, email, phone or organization
	Page   int
	Limit  int
}

// UserRepository defines the interface for account persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindBySocial(ctx context.Context, provider, subject string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	List(ctx context.Context, filter ListUsersFilter) ([]*domain.User, int64, error)
}
