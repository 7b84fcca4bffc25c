package ports

import (
	"context"

	"github.com/coursehub/registration-api/internal/core/domain"
)

// IdentityProvider is a third-party login provider speaking the OAuth2
// authorization code flow.
type IdentityProvider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*domain.SocialProfile, error)
}
