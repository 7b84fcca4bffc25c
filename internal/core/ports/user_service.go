package ports

import (
	"context"

	"github.com/coursehub/registration-api/internal/core/domain"
)

// ProfileInput carries the self-service profile fields.
type ProfileInput struct {
	Username     string
	Phone        string
	Organization string
	Address      string
}

// ListUsersResult is one page of accounts.
type ListUsersResult struct {
	Items   []*domain.User
	Total   int64
	Page    int
	Limit   int
	HasMore bool
}

// UserService defines profile and account listing operations.
type UserService interface {
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, input ProfileInput) (*domain.User, error)
	ListUsers(ctx context.Context, filter ListUsersFilter) (*ListUsersResult, error)
}
