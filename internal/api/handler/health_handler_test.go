package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler_Liveness(t *testing.T) {
	rec := httptest.NewRecorder()
	c := newEcho().NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)
	if err := NewHealthHandler(nil).Liveness(c); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("err=%v code=%d", err, rec.Code)
	}
}

func TestHealthHandler_Readiness(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name   string
		deps   map[string]Pinger
		status int
		body   string
	}{
		{"no deps", nil, http.StatusOK, "ok"},
		{"all up", map[string]Pinger{"store": ok, "redis": ok}, http.StatusOK, "ok"},
		{"one down", map[string]Pinger{"store": ok, "mongodb": down}, http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := newEcho().NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)
			if err := NewHealthHandler(tt.deps).Readiness(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			var resp readinessResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if resp.Status != tt.body || len(resp.Dependencies) != len(tt.deps) {
				t.Fatalf("unexpected body: %+v", resp)
			}
		})
	}
}
