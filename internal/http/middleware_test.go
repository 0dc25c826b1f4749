package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/staff-dashboard/internal/api"
	"github.com/example/staff-dashboard/internal/application"
)

type stubValidator struct {
	principal application.Principal
	err       error
	seen      string
}

func (s *stubValidator) ValidateSession(_ context.Context, token string) (application.Principal, error) {
	s.seen = token
	return s.principal, s.err
}

func TestRequireSession(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		header     string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "missing credentials", wantStatus: http.StatusUnauthorized, wantCode: api.CodeUnauthenticated},
		{name: "non bearer scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantCode: api.CodeUnauthenticated},
		{name: "expired", header: "Bearer tok", err: application.ErrSessionExpired, wantStatus: http.StatusUnauthorized, wantCode: api.CodeSessionExpired},
		{name: "invalid", header: "Bearer tok", err: application.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized, wantCode: api.CodeUnauthenticated},
		{name: "disabled", header: "Bearer tok", err: application.ErrAccountDisabled, wantStatus: http.StatusUnauthorized, wantCode: api.CodeAccountDisabled},
		{name: "backend failure", header: "Bearer tok", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			validator := &stubValidator{err: tc.err}
			called := false
			handler := RequireSession(validator, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if called {
				t.Fatalf("expected request to be rejected")
			}
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			var body api.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.ErrorCode != tc.wantCode || body.Error == "" {
				t.Fatalf("unexpected body %+v", body)
			}
		})
	}
}

func TestRequireSessionStoresPrincipal(t *testing.T) {
	t.Parallel()

	validator := &stubValidator{principal: application.Principal{Email: "a@x.com", Name: "Alice", IsManager: true}}
	var got application.Principal
	handler := RequireSession(validator, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.Header.Set("Authorization", "bearer  tok1 ")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if validator.seen != "tok1" {
		t.Fatalf("expected trimmed token, got %q", validator.seen)
	}
	if got.Email != "a@x.com" || !got.IsManager {
		t.Fatalf("unexpected principal %+v", got)
	}
}

func TestRateLimiter(t *testing.T) {
	t.Parallel()

	current := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(1, 2, time.Minute, nil)
	limiter.now = func() time.Time { return current }
	handler := limiter.Limit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/config", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do("10.0.0.1:1000"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}
	rec := do("10.0.0.1:2000")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", rec.Code)
	}
	if rec := do("10.0.0.2:1000"); rec.Code != http.StatusOK {
		t.Fatalf("expected other clients to be unaffected, got %d", rec.Code)
	}

	current = current.Add(time.Second)
	if rec := do("10.0.0.1:1000"); rec.Code != http.StatusOK {
		t.Fatalf("expected token refill after a second, got %d", rec.Code)
	}

	current = current.Add(2 * time.Minute)
	do("10.0.0.3:1000")
	limiter.mu.Lock()
	remaining := len(limiter.visitors)
	limiter.mu.Unlock()
	if remaining != 1 {
		t.Fatalf("expected idle visitors to be evicted, %d remain", remaining)
	}
}

func TestRoutePattern(t *testing.T) {
	t.Parallel()

	var pattern string
	r := chi.NewRouter()
	r.Get("/api/shifts/{shiftID}", func(_ http.ResponseWriter, req *http.Request) {
		pattern = routePattern(req)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/shifts/abc", nil))
	if pattern != "/api/shifts/{shiftID}" {
		t.Fatalf("routePattern = %q", pattern)
	}

	if got := routePattern(httptest.NewRequest(http.MethodGet, "/nowhere", nil)); got != "unmatched" {
		t.Fatalf("expected unmatched, got %q", got)
	}
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	t.Parallel()

	handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if LoggerFromContext(r.Context()) == nil {
			t.Errorf("expected request logger in context")
		}
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "x")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}

	inner := newStatusRecorder(rec)
	if newStatusRecorder(inner) != inner {
		t.Fatalf("expected recorder to be reused")
	}
}
