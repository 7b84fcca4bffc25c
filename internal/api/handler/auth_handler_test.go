package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/coursehub/registration-api/internal/core/domain"
	"github.com/coursehub/registration-api/internal/core/ports"
)

type stubAuthService struct {
	loginFn       func(ctx context.Context, email, password string) (string, *domain.User, error)
	createUserFn  func(ctx context.Context, in ports.CreateUserInput) (*domain.User, error)
	authURLFn     func(state string) (string, error)
	socialLoginFn func(ctx context.Context, code string) (string, *domain.User, error)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) CreateUser(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	return s.createUserFn(ctx, in)
}

func (s *stubAuthService) SocialAuthURL(state string) (string, error) {
	return s.authURLFn(state)
}

func (s *stubAuthService) SocialLogin(ctx context.Context, code string) (string, *domain.User, error) {
	return s.socialLoginFn(ctx, code)
}

func (s *stubAuthService) EnsureAdmin(context.Context, string, string) error { return nil }

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (string, *domain.User, error) {
			if email != "alice@example.com" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return "token123", &domain.User{ID: "u1", Username: "alice", Role: domain.RoleAdmin}, nil
		},
	}
	handler := NewAuthHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/login", `{"email":"alice@example.com","password":"secret"}`), rec)

	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "token123" {
		t.Fatalf("expected token, got %v", resp["token"])
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["username"] != "alice" || user["role"] != "admin" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Fatalf("password hash serialized")
	}
}

func TestAuthHandler_Login_ServiceErrorPropagates(t *testing.T) {
	for _, want := range []error{domain.ErrInvalidCredentials, domain.ErrUserNotFound} {
		e := newEcho()
		handler := NewAuthHandler(&stubAuthService{
			loginFn: func(context.Context, string, string) (string, *domain.User, error) {
				return "", nil, want
			},
		})
		c := e.NewContext(jsonRequest(http.MethodPost, "/api/login", `{"email":"a@example.com","password":"x"}`), httptest.NewRecorder())

		if err := handler.Login(c); !errors.Is(err, want) {
			t.Fatalf("expected %v, got %v", want, err)
		}
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	e := newEcho()
	handler := NewAuthHandler(&stubAuthService{
		loginFn: func(context.Context, string, string) (string, *domain.User, error) {
			t.Fatalf("should not be called")
			return "", nil, nil
		},
	})

	for _, body := range []string{"{", `{"email":"not-an-email","password":"x"}`, `{"email":"a@example.com"}`} {
		c := e.NewContext(jsonRequest(http.MethodPost, "/api/login", body), httptest.NewRecorder())
		if code := statusOf(t, handler.Login(c)); code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, code)
		}
	}
}

func TestAuthHandler_CreateUser(t *testing.T) {
	e := newEcho()
	handler := NewAuthHandler(&stubAuthService{
		createUserFn: func(_ context.Context, in ports.CreateUserInput) (*domain.User, error) {
			if in.Email != "bob@example.com" || in.Role != domain.RoleStudent {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.User{ID: "u2", Username: in.Username, Email: in.Email, Role: in.Role}, nil
		},
	})

	rec := httptest.NewRecorder()
	body := `{"username":"bob","email":"bob@example.com","password":"secret1","role":"student"}`
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/admin/users", body), rec)

	if err := handler.CreateUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	bad := `{"username":"bob","email":"bob@example.com","password":"secret1","role":"root"}`
	c = e.NewContext(jsonRequest(http.MethodPost, "/api/admin/users", bad), httptest.NewRecorder())
	if code := statusOf(t, handler.CreateUser(c)); code != http.StatusBadRequest {
		t.Fatalf("invalid role: expected 400, got %d", code)
	}
}

func TestAuthHandler_SocialAuth_RedirectsWithState(t *testing.T) {
	e := newEcho()
	var issued string
	handler := NewAuthHandler(&stubAuthService{
		authURLFn: func(state string) (string, error) {
			issued = state
			return "https://provider.example/authorize?state=" + state, nil
		},
	})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/social/auth", nil), rec)
	if err := handler.SocialAuth(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if !strings.HasSuffix(rec.Header().Get("Location"), issued) || issued == "" {
		t.Fatalf("location %q does not carry state %q", rec.Header().Get("Location"), issued)
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), stateCookie+"="+issued) {
		t.Fatalf("state cookie not set: %q", rec.Header().Get("Set-Cookie"))
	}
}

func TestAuthHandler_SocialAuth_Disabled(t *testing.T) {
	handler := NewAuthHandler(&stubAuthService{
		authURLFn: func(string) (string, error) { return "", domain.ErrSocialLoginDisabled },
	})
	c := newEcho().NewContext(httptest.NewRequest(http.MethodGet, "/api/social/auth", nil), httptest.NewRecorder())
	if err := handler.SocialAuth(c); !errors.Is(err, domain.ErrSocialLoginDisabled) {
		t.Fatalf("expected disabled, got %v", err)
	}
}

func TestAuthHandler_SocialLogin(t *testing.T) {
	e := newEcho()
	handler := NewAuthHandler(&stubAuthService{
		socialLoginFn: func(_ context.Context, code string) (string, *domain.User, error) {
			if code != "abc" {
				t.Fatalf("unexpected code %q", code)
			}
			return "tok", &domain.User{ID: "u3"}, nil
		},
	})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/social/login?code=abc", nil), rec)
	if err := handler.SocialLogin(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/social/login?code=abc&state=s1", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "s1"})
	rec = httptest.NewRecorder()
	if err := handler.SocialLogin(e.NewContext(req, rec)); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("matching state: err=%v code=%d", err, rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/social/login?code=abc&state=s1", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "other"})
	if code := statusOf(t, handler.SocialLogin(e.NewContext(req, httptest.NewRecorder()))); code != http.StatusBadRequest {
		t.Fatalf("state mismatch: expected 400, got %d", code)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/api/social/login", nil), httptest.NewRecorder())
	if code := statusOf(t, handler.SocialLogin(c)); code != http.StatusBadRequest {
		t.Fatalf("missing code: expected 400, got %d", code)
	}
}
