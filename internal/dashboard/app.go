// Package dashboard drives one signed-in dashboard session: sign-in and
// resume through the session cache, cached reads with a stale fallback,
// editors guarded by advisory edit locks, and conversion of every failure
// into a Notification.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/staff-dashboard/internal/api"
	"github.com/example/staff-dashboard/internal/client"
	"github.com/example/staff-dashboard/internal/datacache"
	"github.com/example/staff-dashboard/internal/editlock"
	"github.com/example/staff-dashboard/internal/logging"
	"github.com/example/staff-dashboard/internal/session"
)

// Cached views.
const (
	ViewSchedule = "schedule"
	ViewCoverage = "coverage"
	ViewMetrics  = "metrics"
	ViewPeople   = "people"
	ViewTimeOff  = "timeoff"
	ViewChannels = "channels"
)

// Backend is the remote API used by the dashboard.
type Backend interface {
	editlock.Backend
	SignIn(ctx context.Context, credential string) (api.SignInResponse, error)
	SetToken(token string)
	Fetch(ctx context.Context, path string, query url.Values) ([]byte, error)
	SaveShift(ctx context.Context, id string, req api.ShiftRequest) (api.ShiftResponse, error)
	DeleteShift(ctx context.Context, id string) error
	SubmitTimeOff(ctx context.Context, req api.TimeOffRequest) (api.TimeOff, error)
	DecideTimeOff(ctx context.Context, id, status string) (api.TimeOff, error)
}

// App is not safe for concurrent use apart from lock-loss notifications,
// which arrive on the renewal goroutine.
type App struct {
	backend  Backend
	sessions *session.Cache
	cache    *datacache.Cache
	notifier Notifier
	now      func() time.Time
	logger   *slog.Logger
	lockOpts []editlock.Option
}

// Option configures an App.
type Option func(*App)

// WithNotifier sets where notifications go. The default logs them.
func WithNotifier(n Notifier) Option {
	return func(a *App) {
		if n != nil {
			a.notifier = n
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the fallback logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithLockOptions passes options to every edit lock client.
func WithLockOptions(opts ...editlock.Option) Option {
	return func(a *App) { a.lockOpts = append(a.lockOpts, opts...) }
}

// New wires an App. A nil cache disables caching.
func New(backend Backend, sessions *session.Cache, cache *datacache.Cache, opts ...Option) *App {
	a := &App{
		backend:  backend,
		sessions: sessions,
		cache:    cache,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.notifier == nil {
		a.notifier = LogNotifier{Logger: a.logger}
	}
	return a
}

func (a *App) log(ctx context.Context, operation string) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = a.logger
	}
	return logger.With("component", "dashboard", "operation", operation)
}

// report converts err into a notification and returns it unchanged.
func (a *App) report(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	kind := Classify(err)
	a.notify(ctx, Notification{Kind: kind, Message: messageFor(kind, err), Err: err})
	return err
}

func (a *App) notify(ctx context.Context, n Notification) {
	if n.At.IsZero() {
		n.At = a.now()
	}
	notificationsTotal.WithLabelValues(string(n.Kind)).Inc()
	a.notifier.Notify(ctx, n)
}

// SignIn exchanges credential for a session and persists it. A failure to
// persist is reported but the returned session is still usable. A response
// without email or name is rejected as an auth failure.
func (a *App) SignIn(ctx context.Context, credential string) (*SessionContext, error) {
	resp, err := a.backend.SignIn(ctx, credential)
	if err != nil {
		return nil, a.report(ctx, err)
	}

	identity := session.Identity{
		Email:     resp.UserEmail,
		Name:      resp.MatchedPerson,
		IsManager: resp.IsManager,
		Token:     resp.Token,
	}
	rec, err := a.sessions.Save(ctx, identity)
	switch {
	case errors.Is(err, session.ErrIncompleteIdentity):
		return nil, a.report(ctx, err)
	case err != nil:
		a.report(ctx, err)
	}

	a.cache.Clear()
	a.backend.SetToken(rec.Token)
	a.log(ctx, "SignIn").InfoContext(ctx, "signed in", "email", rec.Email, "is_manager", rec.IsManager)
	return fromRecord(rec), nil
}

// Resume restores the persisted session when it is still fresh, sliding its
// activity window.
func (a *App) Resume(ctx context.Context) (*SessionContext, bool) {
	rec, ok := a.sessions.Touch(ctx)
	if !ok {
		return nil, false
	}
	a.backend.SetToken(rec.Token)
	return fromRecord(rec), true
}

// SignOut forgets the session and every cached payload.
func (a *App) SignOut(ctx context.Context) error {
	a.cache.Clear()
	a.backend.SetToken("")
	if err := a.sessions.Clear(ctx); err != nil {
		return a.report(ctx, err)
	}
	return nil
}

func (a *App) touch(ctx context.Context, sess *SessionContext) {
	if sess == nil {
		return
	}
	if rec, ok := a.sessions.Touch(ctx); ok {
		sess.LastActivity = rec.LastActivity
	}
}

// fail reports err. A 401 means the backend no longer honours the session,
// so the local copy is dropped too.
func (a *App) fail(ctx context.Context, err error) error {
	var authErr *client.AuthError
	if errors.As(err, &authErr) && authErr.Status == http.StatusUnauthorized {
		if clearErr := a.sessions.Clear(ctx); clearErr != nil {
			a.log(ctx, "fail").WarnContext(ctx, "failed to drop rejected session", "error", clearErr)
		}
		a.cache.Clear()
	}
	return a.report(ctx, err)
}

func (a *App) requireSession(ctx context.Context, sess *SessionContext) error {
	if sess == nil || sess.Token == "" {
		return a.report(ctx, &client.AuthError{Status: http.StatusUnauthorized, Code: api.CodeUnauthenticated, Message: "サインインしてください。"})
	}
	return nil
}

// fetch serves key from the cache, or from the backend on a miss. On a
// network failure a stale payload is served when one is available.
func (a *App) fetch(ctx context.Context, sess *SessionContext, key datacache.Key, path string, query url.Values, out any) error {
	if err := a.requireSession(ctx, sess); err != nil {
		return err
	}
	cacheKey := key.String()
	if payload, ok := a.cache.Get(cacheKey); ok {
		return decodePayload(payload, out)
	}

	payload, err := a.backend.Fetch(ctx, path, query)
	if err != nil {
		if Classify(err) == KindNetwork {
			if stale, fetchedAt, ok := a.cache.Stale(cacheKey); ok {
				a.notify(ctx, Notification{
					Kind:    KindNetwork,
					Message: fmt.Sprintf("サーバーに接続できないため、%s 時点のデータを表示しています。", fetchedAt.Format("15:04")),
					Err:     err,
				})
				return decodePayload(stale, out)
			}
		}
		return a.fail(ctx, err)
	}

	a.cache.Put(cacheKey, payload)
	a.touch(ctx, sess)
	return decodePayload(payload, out)
}

func decodePayload(payload []byte, out any) error {
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("dashboard: decode payload: %w", err)
	}
	return nil
}

func dayValues(from, to time.Time, filters map[string]string) url.Values {
	v := url.Values{}
	if !from.IsZero() {
		v.Set("from", from.Format(datacache.DateLayout))
	}
	if !to.IsZero() {
		v.Set("to", to.Format(datacache.DateLayout))
	}
	for name, value := range filters {
		if value != "" {
			v.Set(name, value)
		}
	}
	return v
}

// Schedule returns shifts over the inclusive days from..to, optionally for
// one agent.
func (a *App) Schedule(ctx context.Context, sess *SessionContext, from, to time.Time, agent string) ([]api.Shift, error) {
	filters := map[string]string{"agent": strings.ToLower(strings.TrimSpace(agent))}
	var out api.ShiftList
	key := datacache.NewKey(ViewSchedule, from, to, filters)
	if err := a.fetch(ctx, sess, key, "/api/shifts", dayValues(from, to, filters), &out); err != nil {
		return nil, err
	}
	return out.Shifts, nil
}

// Coverage returns staffing for one day.
func (a *App) Coverage(ctx context.Context, sess *SessionContext, day time.Time) (api.Coverage, error) {
	var out api.Coverage
	key := datacache.NewKey(ViewCoverage, day, day, nil)
	err := a.fetch(ctx, sess, key, "/api/coverage", client.CoverageQuery(day), &out)
	return out, err
}

// AgentMetrics returns per-agent totals over the inclusive days from..to.
func (a *App) AgentMetrics(ctx context.Context, sess *SessionContext, from, to time.Time) (api.AgentMetricsList, error) {
	var out api.AgentMetricsList
	key := datacache.NewKey(ViewMetrics, from, to, nil)
	err := a.fetch(ctx, sess, key, "/api/reports/agents", dayValues(from, to, nil), &out)
	return out, err
}

// People returns the roster.
func (a *App) People(ctx context.Context, sess *SessionContext) ([]api.Person, error) {
	var out []api.Person
	err := a.fetch(ctx, sess, datacache.Key{View: ViewPeople}, "/api/people", nil, &out)
	return out, err
}

// Channels returns the backend channel table.
func (a *App) Channels(ctx context.Context, sess *SessionContext) ([]api.Channel, error) {
	var out []api.Channel
	err := a.fetch(ctx, sess, datacache.Key{View: ViewChannels}, "/api/channels", nil, &out)
	return out, err
}

// TimeOff returns the time-off requests visible to the caller.
func (a *App) TimeOff(ctx context.Context, sess *SessionContext, from, to time.Time) ([]api.TimeOff, error) {
	var out api.TimeOffList
	key := datacache.NewKey(ViewTimeOff, from, to, nil)
	if err := a.fetch(ctx, sess, key, "/api/timeoff", dayValues(from, to, nil), &out); err != nil {
		return nil, err
	}
	return out.Requests, nil
}

// SubmitTimeOff files a request and drops cached time-off views.
func (a *App) SubmitTimeOff(ctx context.Context, sess *SessionContext, req api.TimeOffRequest) (api.TimeOff, error) {
	if err := a.requireSession(ctx, sess); err != nil {
		return api.TimeOff{}, err
	}
	out, err := a.backend.SubmitTimeOff(ctx, req)
	if err != nil {
		return api.TimeOff{}, a.fail(ctx, err)
	}
	a.cache.InvalidatePrefix(datacache.Prefix(ViewTimeOff))
	a.touch(ctx, sess)
	return out, nil
}

// DecideTimeOff approves or denies a request. An approval changes coverage
// over the request's span, so those views are dropped as well.
func (a *App) DecideTimeOff(ctx context.Context, sess *SessionContext, id, status string) (api.TimeOff, error) {
	if err := a.requireSession(ctx, sess); err != nil {
		return api.TimeOff{}, err
	}
	out, err := a.backend.DecideTimeOff(ctx, id, status)
	if err != nil {
		return api.TimeOff{}, a.fail(ctx, err)
	}
	a.cache.InvalidatePrefix(datacache.Prefix(ViewTimeOff))
	a.invalidateSpan(out.Start, out.End)
	a.touch(ctx, sess)
	return out, nil
}

// invalidateSpan drops schedule, coverage and metrics views whose range
// overlaps from..to.
func (a *App) invalidateSpan(from, to time.Time) int {
	if !to.After(from) {
		to = from
	} else {
		// The end instant is exclusive; a shift ending at midnight does not
		// touch the next day.
		to = to.Add(-time.Nanosecond)
	}
	return a.cache.InvalidateWhere(func(raw string) bool {
		key, err := datacache.ParseKey(raw)
		if err != nil {
			return false
		}
		switch key.View {
		case ViewSchedule, ViewCoverage, ViewMetrics:
			return key.Overlaps(from, to)
		}
		return false
	})
}

func (a *App) invalidateViews(views ...string) {
	for _, view := range views {
		a.cache.InvalidatePrefix(datacache.Prefix(view))
	}
}
