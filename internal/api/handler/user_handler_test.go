package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coursehub/registration-api/internal/api/middleware"
	"github.com/coursehub/registration-api/internal/core/domain"
	"github.com/coursehub/registration-api/internal/core/ports"
)

type stubUserService struct {
	getFn    func(ctx context.Context, userID string) (*domain.User, error)
	updateFn func(ctx context.Context, userID string, in ports.ProfileInput) (*domain.User, error)
	listFn   func(ctx context.Context, f ports.ListUsersFilter) (*ports.ListUsersResult, error)
}

func (s *stubUserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	return s.getFn(ctx, userID)
}

func (s *stubUserService) UpdateProfile(ctx context.Context, userID string, in ports.ProfileInput) (*domain.User, error) {
	return s.updateFn(ctx, userID, in)
}

func (s *stubUserService) ListUsers(ctx context.Context, f ports.ListUsersFilter) (*ports.ListUsersResult, error) {
	return s.listFn(ctx, f)
}

func TestUserHandler_Profile(t *testing.T) {
	e := newEcho()
	handler := NewUserHandler(&stubUserService{
		getFn: func(_ context.Context, userID string) (*domain.User, error) {
			return &domain.User{ID: userID, Username: "alice"}, nil
		},
	})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/user-profile", nil), rec)
	c.Set(middleware.KeyUserID, "u1")
	if err := handler.Profile(c); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("err=%v code=%d", err, rec.Code)
	}
}

func TestUserHandler_UpdateProfile(t *testing.T) {
	e := newEcho()
	handler := NewUserHandler(&stubUserService{
		updateFn: func(_ context.Context, userID string, in ports.ProfileInput) (*domain.User, error) {
			if userID != "u1" || in.Organization != "ACME" {
				t.Fatalf("unexpected args: %s %+v", userID, in)
			}
			return &domain.User{ID: userID, Username: in.Username, Organization: in.Organization}, nil
		},
	})

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPut, "/api/user-profile", `{"username":"alice","organization":"ACME"}`), rec)
	c.Set(middleware.KeyUserID, "u1")
	if err := handler.UpdateProfile(c); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("err=%v code=%d", err, rec.Code)
	}

	c = e.NewContext(jsonRequest(http.MethodPut, "/api/user-profile", `{"organization":"ACME"}`), httptest.NewRecorder())
	c.Set(middleware.KeyUserID, "u1")
	if code := statusOf(t, handler.UpdateProfile(c)); code != http.StatusBadRequest {
		t.Fatalf("missing username: expected 400, got %d", code)
	}
}

func TestUserHandler_List(t *testing.T) {
	e := newEcho()
	handler := NewUserHandler(&stubUserService{
		listFn: func(_ context.Context, f ports.ListUsersFilter) (*ports.ListUsersResult, error) {
			if f.Search != "acme" || f.Limit != 20 {
				t.Fatalf("unexpected filter: %+v", f)
			}
			return &ports.ListUsersResult{Page: 1, Limit: 20}, nil
		},
	})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/admin/users?search=acme&per_page=20", nil), rec)
	if err := handler.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if items, ok := resp["items"].([]any); !ok || len(items) != 0 {
		t.Fatalf("expected empty items array, got %v", resp["items"])
	}
}
