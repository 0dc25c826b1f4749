package testfixtures

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/staff-dashboard/internal/application"
	"github.com/example/staff-dashboard/internal/channels"
	apihttp "github.com/example/staff-dashboard/internal/http"
	"github.com/example/staff-dashboard/internal/identity"
	"github.com/example/staff-dashboard/internal/persistence"
	"github.com/example/staff-dashboard/internal/persistence/memory"
)

// Backend is an in-process dashboard backend wired the way cmd/dashboard
// wires it, with a controllable clock and deterministic identifiers.
type Backend struct {
	Clock     *Clock
	IDs       *IDGenerator
	Store     persistence.DocumentStore
	Repo      *application.DocumentRepository
	Directory *application.Directory
	Tokens    *identity.TokenIssuer
	Verifier  Verifier

	Auth    *application.AuthService
	People  *application.PeopleService
	Shifts  *application.ShiftService
	TimeOff *application.TimeOffService
	Reports *application.ReportService
	Locks   *application.LockService

	Handler http.Handler
}

// BackendOption customises NewBackend.
type BackendOption func(*backendConfig)

type backendConfig struct {
	store       persistence.DocumentStore
	lockStore   application.LockStore
	lockTTL     time.Duration
	logger      *slog.Logger
	signInLimit *apihttp.RateLimiter
}

// WithStore backs the services with store instead of an in-memory store.
func WithStore(store persistence.DocumentStore) BackendOption {
	return func(c *backendConfig) { c.store = store }
}

// WithLockStore overrides where edit locks live.
func WithLockStore(store application.LockStore) BackendOption {
	return func(c *backendConfig) { c.lockStore = store }
}

// WithLockTTL overrides the edit lock TTL.
func WithLockTTL(ttl time.Duration) BackendOption {
	return func(c *backendConfig) { c.lockTTL = ttl }
}

// WithLogger routes backend logs to logger instead of discarding them.
func WithLogger(logger *slog.Logger) BackendOption {
	return func(c *backendConfig) { c.logger = logger }
}

// WithSignInLimiter throttles POST /config.
func WithSignInLimiter(limiter *apihttp.RateLimiter) BackendOption {
	return func(c *backendConfig) { c.signInLimit = limiter }
}

// NewBackend builds a backend seeded with Roster.
func NewBackend(tb testing.TB, opts ...BackendOption) *Backend {
	tb.Helper()

	cfg := backendConfig{lockTTL: 2 * time.Minute}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.store == nil {
		store := memory.New()
		tb.Cleanup(func() { _ = store.Close() })
		cfg.store = store
	}

	b := &Backend{
		Clock:    NewClock(time.Time{}),
		IDs:      NewIDGenerator("id"),
		Store:    cfg.store,
		Verifier: Verifier(Credentials()),
	}
	b.Repo = application.NewDocumentRepository(cfg.store, cfg.logger)
	if cfg.lockStore == nil {
		cfg.lockStore = b.Repo
	}
	b.Directory = application.NewDirectory(b.Repo, 64, time.Minute)

	tokens, err := identity.NewTokenIssuer("fixture-secret", "staff-dashboard", 8*time.Hour, b.Clock.Now)
	if err != nil {
		tb.Fatalf("NewTokenIssuer: %v", err)
	}
	b.Tokens = tokens

	registry := channels.Default()
	now := b.Clock.NowFunc()
	b.Auth = application.NewAuthService(b.Verifier, tokens, b.Directory, cfg.logger)
	b.People = application.NewPeopleService(b.Repo, b.Directory, registry, now, cfg.logger)
	b.Shifts = application.NewShiftService(b.Repo, b.Repo, b.Directory, registry, b.IDs.NextFunc(), now, cfg.logger)
	b.TimeOff = application.NewTimeOffService(b.Repo, b.Directory, b.IDs.NextFunc(), now, cfg.logger)
	b.Reports = application.NewReportService(b.Repo, b.Repo, b.Directory, registry, time.UTC)
	b.Locks = application.NewLockService(cfg.lockStore, cfg.lockTTL, now, cfg.logger)

	b.Handler = apihttp.NewRouter(apihttp.RouterConfig{
		Auth:           apihttp.NewAuthHandler(b.Auth, cfg.logger),
		People:         apihttp.NewPeopleHandler(b.People, cfg.logger),
		Shifts:         apihttp.NewShiftHandler(b.Shifts, cfg.logger),
		TimeOff:        apihttp.NewTimeOffHandler(b.TimeOff, cfg.logger),
		Reports:        apihttp.NewReportHandler(b.Reports, registry, now, cfg.logger),
		Locks:          apihttp.NewLockHandler(b.Locks, cfg.logger),
		Sessions:       b.Auth,
		SignInLimiter:  cfg.signInLimit,
		Middleware:     []func(http.Handler) http.Handler{apihttp.RequestLogger(cfg.logger)},
		MetricsHandler: promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{}),
	})

	SeedRoster(tb, b.Repo, 0)
	return b
}

// Server starts an httptest server for the backend.
func (b *Backend) Server(tb testing.TB) *httptest.Server {
	tb.Helper()
	srv := httptest.NewServer(b.Handler)
	tb.Cleanup(srv.Close)
	return srv
}

// Token issues a session token for a roster member.
func (b *Backend) Token(tb testing.TB, person application.Person) string {
	tb.Helper()
	token, _, err := b.Tokens.Issue(person.Email, person.Name, person.IsManager)
	if err != nil {
		tb.Fatalf("issue token: %v", err)
	}
	return token
}
