package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/coursehub/registration-api/internal/core/domain"
	"github.com/coursehub/registration-api/internal/core/ports"
)

// AuthService implements password login, admin account creation and social login.
type AuthService struct {
	repo      ports.UserRepository
	provider  ports.IdentityProvider // nil when social login is not configured
	jwtSecret string
	tokenTTL  time.Duration
	log       zerolog.Logger
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(repo ports.UserRepository, provider ports.IdentityProvider, jwtSecret string, tokenTTL time.Duration, log zerolog.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{repo: repo, provider: provider, jwtSecret: jwtSecret, tokenTTL: tokenTTL, log: log}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if user.PasswordHash == "" {
		return "", nil, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// CreateUser registers an account on behalf of an administrator.
func (s *AuthService) CreateUser(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" || strings.TrimSpace(in.Username) == "" {
		return nil, domain.ErrInvalidCredentials
	}
	role := in.Role
	if role == "" {
		role = domain.RoleStudent
	}
	if role != domain.RoleAdmin && role != domain.RoleStudent {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(in.Username),
		Email:        email,
		PasswordHash: string(hash),
		Phone:        in.Phone,
		Organization: in.Organization,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", created.ID).Str("role", created.Role).Msg("user created")
	return created, nil
}

// SocialAuthURL returns the provider consent URL carrying state.
func (s *AuthService) SocialAuthURL(state string) (string, error) {
	if s.provider == nil {
		return "", domain.ErrSocialLoginDisabled
	}
	return s.provider.AuthCodeURL(state), nil
}

// SocialLogin exchanges an authorization code, creating the account on first use.
func (s *AuthService) SocialLogin(ctx context.Context, code string) (string, *domain.User, error) {
	if s.provider == nil {
		return "", nil, domain.ErrSocialLoginDisabled
	}
	if strings.TrimSpace(code) == "" {
		return "", nil, domain.ErrSocialLoginFailed
	}

	profile, err := s.provider.Exchange(ctx, code)
	if err != nil {
		s.log.Warn().Err(err).Str("provider", s.provider.Name()).Msg("social code exchange failed")
		return "", nil, fmt.Errorf("%w: %v", domain.ErrSocialLoginFailed, err)
	}

	user, err := s.repo.FindBySocial(ctx, profile.Provider, profile.Subject)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUserNotFound):
		user, err = s.createSocialUser(ctx, profile)
		if err != nil {
			return "", nil, err
		}
	default:
		return "", nil, err
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// EnsureAdmin seeds an administrator account when none exists for email.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	_, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("ensure admin: %w", err)
	}

	_, err = s.CreateUser(ctx, ports.CreateUserInput{
		Username: "admin",
		Email:    email,
		Password: password,
		Role:     domain.RoleAdmin,
	})
	if err != nil && !errors.Is(err, domain.ErrUserExists) {
		return fmt.Errorf("ensure admin: %w", err)
	}
	return nil
}

func (s *AuthService) createSocialUser(ctx context.Context, p *domain.SocialProfile) (*domain.User, error) {
	now := time.Now().UTC()
	username := p.Nickname
	if username == "" {
		username = p.Provider + "_" + shortID(p.Subject)
	}
	user := &domain.User{
		ID:             uuid.NewString(),
		Username:       username,
		Phone:          p.Phone,
		Role:           domain.RoleStudent,
		SocialProvider: p.Provider,
		SocialSubject:  p.Subject,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	created, err := s.repo.Create(ctx, user)
	if errors.Is(err, domain.ErrUserExists) {
		// lost a race with a concurrent first login
		return s.repo.FindBySocial(ctx, p.Provider, p.Subject)
	}
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", created.ID).Str("provider", p.Provider).Msg("social user created")
	return created, nil
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"role":     user.Role,
		"exp":      time.Now().Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func shortID(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
