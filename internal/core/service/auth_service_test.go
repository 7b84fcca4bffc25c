package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/coursehub/registration-api/internal/core/domain"
	"github.com/coursehub/registration-api/internal/core/ports"
)

type stubUserRepo struct {
	users map[string]*domain.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	for _, u := range r.users {
		if user.Email != "" && u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
		if user.SocialSubject != "" && u.SocialProvider == user.SocialProvider && u.SocialSubject == user.SocialSubject {
			return nil, domain.ErrUserExists
		}
	}
	r.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := r.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindBySocial(_ context.Context, provider, subject string) (*domain.User, error) {
	for _, u := range r.users {
		if u.SocialProvider == provider && u.SocialSubject == subject {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *stubUserRepo) List(_ context.Context, filter ports.ListUsersFilter) ([]*domain.User, int64, error) {
	var out []*domain.User
	for _, u := range r.users {
		if filter.Search == "" || strings.Contains(u.Username, filter.Search) {
			out = append(out, cloneUser(u))
		}
	}
	return out, int64(len(out)), nil
}

type stubProvider struct {
	profile *domain.SocialProfile
	err     error
}

func (p *stubProvider) Name() string { return "wechat" }

func (p *stubProvider) AuthCodeURL(state string) string {
	return "https://idp.example.com/authorize?state=" + state
}

func (p *stubProvider) Exchange(context.Context, string) (*domain.SocialProfile, error) {
	return p.profile, p.err
}

func parseClaims(t *testing.T, token, secret string) jwt.MapClaims {
	t.Helper()
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	return claims
}

func TestAuthService_CreateUserAndLogin(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewAuthService(repo, nil, "secret", time.Hour, zerolog.Nop())

	user, err := svc.CreateUser(context.Background(), ports.CreateUserInput{
		Username: "alice",
		Email:    "Alice@Example.com ",
		Password: "pass123",
	})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if user.Email != "alice@example.com" || user.Role != domain.RoleStudent {
		t.Fatalf("unexpected user: %+v", user)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pass123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}

	token, got, err := svc.Login(context.Background(), "ALICE@example.com", "pass123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("logged in as %s, want %s", got.ID, user.ID)
	}
	claims := parseClaims(t, token, "secret")
	if claims["sub"] != user.ID || claims["role"] != domain.RoleStudent || claims["username"] != "alice" {
		t.Fatalf("unexpected claims: %v", claims)
	}
}

func TestAuthService_CreateUser_Rejects(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewAuthService(repo, nil, "secret", time.Hour, zerolog.Nop())
	ctx := context.Background()

	valid := ports.CreateUserInput{Username: "bob", Email: "bob@example.com", Password: "pass123"}
	if _, err := svc.CreateUser(ctx, valid); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := svc.CreateUser(ctx, valid); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("duplicate: got %v", err)
	}

	badRole := valid
	badRole.Email = "other@example.com"
	badRole.Role = "root"
	if _, err := svc.CreateUser(ctx, badRole); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("bad role: got %v", err)
	}
	if _, err := svc.CreateUser(ctx, ports.CreateUserInput{Email: "x@example.com", Password: "p"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("missing username: got %v", err)
	}
}

func TestAuthService_Login_Failures(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewAuthService(repo, nil, "secret", time.Hour, zerolog.Nop())
	ctx := context.Background()
	if _, err := svc.CreateUser(ctx, ports.CreateUserInput{Username: "carol", Email: "carol@example.com", Password: "right"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if _, _, err := svc.Login(ctx, "carol@example.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("bad password: got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "right"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("unknown email: got %v", err)
	}
	if _, _, err := svc.Login(ctx, "", ""); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("empty input: got %v", err)
	}
}

func TestAuthService_SocialLogin_CreatesThenReuses(t *testing.T) {
	repo := newStubUserRepo()
	provider := &stubProvider{profile: &domain.SocialProfile{Provider: "wechat", Subject: "openid-123456789"}}
	svc := NewAuthService(repo, provider, "secret", time.Hour, zerolog.Nop())
	ctx := context.Background()

	_, first, err := svc.SocialLogin(ctx, "code-1")
	if err != nil {
		t.Fatalf("first SocialLogin: %v", err)
	}
	if first.Username != "wechat_openid-1" || first.Role != domain.RoleStudent || !first.IsSocial() {
		t.Fatalf("unexpected social user: %+v", first)
	}

	token, second, err := svc.SocialLogin(ctx, "code-2")
	if err != nil {
		t.Fatalf("second SocialLogin: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second login created a new account: %s != %s", second.ID, first.ID)
	}
	if len(repo.users) != 1 {
		t.Fatalf("users = %d, want 1", len(repo.users))
	}
	if parseClaims(t, token, "secret")["sub"] != first.ID {
		t.Fatal("token subject mismatch")
	}
}

func TestAuthService_SocialLogin_Failures(t *testing.T) {
	ctx := context.Background()

	disabled := NewAuthService(newStubUserRepo(), nil, "secret", time.Hour, zerolog.Nop())
	if _, _, err := disabled.SocialLogin(ctx, "code"); !errors.Is(err, domain.ErrSocialLoginDisabled) {
		t.Fatalf("disabled: got %v", err)
	}
	if _, err := disabled.SocialAuthURL("state"); !errors.Is(err, domain.ErrSocialLoginDisabled) {
		t.Fatalf("disabled url: got %v", err)
	}

	failing := NewAuthService(newStubUserRepo(), &stubProvider{err: errors.New("invalid code")}, "secret", time.Hour, zerolog.Nop())
	if _, _, err := failing.SocialLogin(ctx, "code"); !errors.Is(err, domain.ErrSocialLoginFailed) {
		t.Fatalf("exchange failure: got %v", err)
	}
	if _, _, err := failing.SocialLogin(ctx, "  "); !errors.Is(err, domain.ErrSocialLoginFailed) {
		t.Fatalf("empty code: got %v", err)
	}

	url, err := NewAuthService(newStubUserRepo(), &stubProvider{}, "s", time.Hour, zerolog.Nop()).SocialAuthURL("abc")
	if err != nil || !strings.HasSuffix(url, "state=abc") {
		t.Fatalf("auth url = %q, %v", url, err)
	}
}

func TestAuthService_EnsureAdmin_Idempotent(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewAuthService(repo, nil, "secret", time.Hour, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := svc.EnsureAdmin(ctx, "admin@example.com", "adminpass"); err != nil {
			t.Fatalf("EnsureAdmin #%d: %v", i, err)
		}
	}
	if len(repo.users) != 1 {
		t.Fatalf("users = %d, want 1", len(repo.users))
	}
	_, admin, err := svc.Login(ctx, "admin@example.com", "adminpass")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	if !admin.IsAdmin() {
		t.Fatalf("role = %s", admin.Role)
	}

	if err := svc.EnsureAdmin(ctx, "", ""); err != nil {
		t.Fatalf("empty credentials should be a no-op: %v", err)
	}
}
