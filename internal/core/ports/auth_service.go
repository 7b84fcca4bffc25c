package ports

import (
	"context"

	"github.com/coursehub/registration-api/internal/core/domain"
)

// CreateUserInput carries an admin-created account.
type CreateUserInput struct {
	Username     string
	Email        string
	Password     string
	Phone        string
	Organization string
	Role         string
}

// AuthService issues tokens for password and social logins.
type AuthService interface {
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error)
	SocialAuthURL(state string) (string, error)
	SocialLogin(ctx context.Context, code string) (string, *domain.User, error)
	EnsureAdmin(ctx context.Context, email, password string) error
}
