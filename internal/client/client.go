// Package client talks to the dashboard backend over HTTP. Failures are
// reported through the error taxonomy in errors.go so callers never have to
// inspect status codes.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/example/staff-dashboard/internal/api"
	"github.com/example/staff-dashboard/internal/logging"
)

// DefaultTimeout bounds every request unless WithHTTPClient overrides it.
const DefaultTimeout = 15 * time.Second

const dateLayout = "2006-01-02"

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the fallback logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithToken starts the client with an existing session token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New returns a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("client: invalid base url %q", baseURL)
	}
	c := &Client{
		baseURL:    strings.TrimRight(parsed.String(), "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetToken replaces the session token sent with API calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current session token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) log(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger.With("component", "api_client")
	}
	return c.logger.With("component", "api_client")
}

// Fetch performs an authenticated GET and returns the raw JSON body.
func (c *Client) Fetch(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, true)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, authenticated bool) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("client: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("client: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		token := c.Token()
		if token == "" {
			return nil, &AuthError{Status: http.StatusUnauthorized, Code: api.CodeUnauthenticated, Message: "no session"}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log(ctx).WarnContext(ctx, "request failed", "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s: %w", ErrNetwork, method, path, err)
	}
	c.log(ctx).DebugContext(ctx, "request completed", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return payload, nil
	}
	return nil, decodeError(resp.StatusCode, payload)
}

func decodeError(status int, payload []byte) error {
	var body api.ErrorResponse
	if len(payload) > 0 {
		_ = json.Unmarshal(payload, &body)
	}
	if body.Error == "" {
		body.Error = http.StatusText(status)
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Status: status, Code: body.ErrorCode, Message: body.Error}
	}
	apiErr := &APIError{Status: status, Code: body.ErrorCode, Message: body.Error, Fields: body.Errors}
	if status == http.StatusConflict && body.ErrorCode == api.CodeLockConflict {
		var conflict api.LockConflictResponse
		if err := json.Unmarshal(payload, &conflict); err == nil && conflict.Holder != "" {
			apiErr.conflict = &conflict
		}
	}
	return apiErr
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	payload, err := c.do(ctx, method, path, query, body, true)
	if err != nil {
		return err
	}
	return decodeInto(payload, out)
}

func decodeInto(payload []byte, out any) error {
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrNetwork, err)
	}
	return nil
}

// SignIn exchanges an identity-provider credential for a session. The
// returned token is kept for later calls.
func (c *Client) SignIn(ctx context.Context, credential string) (api.SignInResponse, error) {
	payload, err := c.do(ctx, http.MethodPost, "/config", nil, api.SignInRequest{Credential: credential}, false)
	if err != nil {
		return api.SignInResponse{}, err
	}
	var out api.SignInResponse
	if err := decodeInto(payload, &out); err != nil {
		return api.SignInResponse{}, err
	}
	c.SetToken(out.Token)
	return out, nil
}

// Session returns the identity behind the current token.
func (c *Client) Session(ctx context.Context) (api.SessionResponse, error) {
	var out api.SessionResponse
	err := c.call(ctx, http.MethodGet, "/api/session", nil, nil, &out)
	return out, err
}

// Channels returns the backend channel table.
func (c *Client) Channels(ctx context.Context) ([]api.Channel, error) {
	var out []api.Channel
	err := c.call(ctx, http.MethodGet, "/api/channels", nil, nil, &out)
	return out, err
}

// People returns the roster.
func (c *Client) People(ctx context.Context) ([]api.Person, error) {
	var out []api.Person
	err := c.call(ctx, http.MethodGet, "/api/people", nil, nil, &out)
	return out, err
}

// PutPerson creates or replaces a roster entry.
func (c *Client) PutPerson(ctx context.Context, email string, req api.PersonRequest) (api.Person, error) {
	var out api.Person
	err := c.call(ctx, http.MethodPut, "/api/people/"+url.PathEscape(email), nil, req, &out)
	return out, err
}

// DeletePerson removes a roster entry.
func (c *Client) DeletePerson(ctx context.Context, email string) error {
	return c.call(ctx, http.MethodDelete, "/api/people/"+url.PathEscape(email), nil, nil, nil)
}

// ShiftQuery filters Shifts. Dates are inclusive days.
type ShiftQuery struct {
	From  time.Time
	To    time.Time
	Agent string
}

// Values renders the query string.
func (q ShiftQuery) Values() url.Values {
	v := url.Values{}
	if !q.From.IsZero() {
		v.Set("from", q.From.Format(dateLayout))
	}
	if !q.To.IsZero() {
		v.Set("to", q.To.Format(dateLayout))
	}
	if q.Agent != "" {
		v.Set("agent", q.Agent)
	}
	return v
}

// Shifts lists shifts.
func (c *Client) Shifts(ctx context.Context, q ShiftQuery) ([]api.Shift, error) {
	var out api.ShiftList
	err := c.call(ctx, http.MethodGet, "/api/shifts", q.Values(), nil, &out)
	return out.Shifts, err
}

// SaveShift creates the shift when id is empty and replaces it otherwise.
func (c *Client) SaveShift(ctx context.Context, id string, req api.ShiftRequest) (api.ShiftResponse, error) {
	method, path := http.MethodPost, "/api/shifts"
	if id != "" {
		method, path = http.MethodPut, "/api/shifts/"+url.PathEscape(id)
	}
	var out api.ShiftResponse
	err := c.call(ctx, method, path, nil, req, &out)
	return out, err
}

// DeleteShift removes a shift.
func (c *Client) DeleteShift(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/shifts/"+url.PathEscape(id), nil, nil, nil)
}

// TimeOff lists time-off requests visible to the caller.
func (c *Client) TimeOff(ctx context.Context, q ShiftQuery) ([]api.TimeOff, error) {
	var out api.TimeOffList
	err := c.call(ctx, http.MethodGet, "/api/timeoff", q.Values(), nil, &out)
	return out.Requests, err
}

// SubmitTimeOff files a new request.
func (c *Client) SubmitTimeOff(ctx context.Context, req api.TimeOffRequest) (api.TimeOff, error) {
	var out api.TimeOff
	err := c.call(ctx, http.MethodPost, "/api/timeoff", nil, req, &out)
	return out, err
}

// DecideTimeOff approves or denies a request.
func (c *Client) DecideTimeOff(ctx context.Context, id, status string) (api.TimeOff, error) {
	var out api.TimeOff
	err := c.call(ctx, http.MethodPut, "/api/timeoff/"+url.PathEscape(id)+"/decision", nil, api.DecisionRequest{Status: status}, &out)
	return out, err
}

// DeleteTimeOff withdraws a request.
func (c *Client) DeleteTimeOff(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/timeoff/"+url.PathEscape(id), nil, nil, nil)
}

// CoverageQuery returns the query for one day of coverage.
func CoverageQuery(day time.Time) url.Values {
	return url.Values{"date": {day.Format(dateLayout)}}
}

// Coverage returns hourly staffing for day.
func (c *Client) Coverage(ctx context.Context, day time.Time) (api.Coverage, error) {
	var out api.Coverage
	err := c.call(ctx, http.MethodGet, "/api/coverage", CoverageQuery(day), nil, &out)
	return out, err
}

// AgentMetrics returns per-agent totals over the inclusive days from..to.
func (c *Client) AgentMetrics(ctx context.Context, from, to time.Time) (api.AgentMetricsList, error) {
	var out api.AgentMetricsList
	err := c.call(ctx, http.MethodGet, "/api/reports/agents", ShiftQuery{From: from, To: to}.Values(), nil, &out)
	return out, err
}
