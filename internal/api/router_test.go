package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/coursehub/registration-api/internal/core/domain"
	"github.com/coursehub/registration-api/internal/core/ports"
)

const testSecret = "router-secret"

type fakeLedger struct {
	calls int
}

func (f *fakeLedger) Register(_ context.Context, courseID, userID string) (*ports.Receipt, error) {
	f.calls++
	return &ports.Receipt{
		Registration: domain.Registration{ID: "r1", CourseID: courseID, UserID: userID},
		Registered:   1,
		Capacity:     10,
	}, nil
}

func (f *fakeLedger) Unregister(context.Context, string, string) (*ports.Receipt, error) {
	return nil, domain.ErrNotRegistered
}

func (f *fakeLedger) ListRegistrationsForUser(context.Context, string) ([]domain.CourseSummary, error) {
	return nil, nil
}

func (f *fakeLedger) Reconcile(_ context.Context, courseID string) (*ports.ReconcileResult, error) {
	return &ports.ReconcileResult{CourseID: courseID, Before: 1, After: 1}, nil
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      userID,
		"username": userID,
		"role":     role,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + signed
}

func newTestRouter(ledger ports.RegistrationService, rateLimit float64) http.Handler {
	return NewRouter(Services{Registrations: ledger}, Options{
		JWTSecret:  testSecret,
		RateLimit:  rateLimit,
		Registerer: prometheus.NewRegistry(),
		Logger:     zerolog.Nop(),
	})
}

func do(h http.Handler, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	h := newTestRouter(&fakeLedger{}, 0)
	if rec := do(h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("liveness: %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/health/ready", ""); rec.Code != http.StatusOK {
		t.Fatalf("readiness: %d", rec.Code)
	}
}

func TestRouter_AuthAndRoles(t *testing.T) {
	ledger := &fakeLedger{}
	h := newTestRouter(ledger, 0)

	if rec := do(h, http.MethodPost, "/api/courses/c1/register", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous register: %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/courses/c1/register", token(t, "u1", domain.RoleStudent)); rec.Code != http.StatusCreated {
		t.Fatalf("student register: %d %s", rec.Code, rec.Body.String())
	}
	if ledger.calls != 1 {
		t.Fatalf("ledger calls = %d", ledger.calls)
	}

	if rec := do(h, http.MethodPost, "/api/admin/courses/c1/reconcile", token(t, "u1", domain.RoleStudent)); rec.Code != http.StatusForbidden {
		t.Fatalf("student reconcile: %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/admin/courses/c1/reconcile", token(t, "root", domain.RoleAdmin)); rec.Code != http.StatusOK {
		t.Fatalf("admin reconcile: %d", rec.Code)
	}
}

func TestRouter_DomainErrorUsesEnvelope(t *testing.T) {
	h := newTestRouter(&fakeLedger{}, 0)
	rec := do(h, http.MethodDelete, "/api/courses/c1/unregister", token(t, "u1", domain.RoleStudent))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":"not_registered"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestRouter_RateLimitsRegistration(t *testing.T) {
	h := newTestRouter(&fakeLedger{}, 1)
	auth := token(t, "u1", domain.RoleStudent)

	limited := false
	for i := 0; i < 5; i++ {
		if rec := do(h, http.MethodPost, "/api/courses/c1/register", auth); rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatal("expected a 429 within a burst of 5 requests at 1 rps")
	}
}

func TestRouter_SwaggerServed(t *testing.T) {
	h := newTestRouter(&fakeLedger{}, 0)
	rec := do(h, http.MethodGet, "/swagger/doc.json", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/api/courses/{id}/register") {
		t.Fatalf("swagger: %d", rec.Code)
	}
}
