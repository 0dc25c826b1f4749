// Package api defines the JSON payloads exchanged between the dashboard
// backend and its clients. Timestamps are RFC 3339 strings in UTC.
package api

import "time"

// SignInRequest is the body of POST /config.
type SignInRequest struct {
	Credential string `json:"credential"`
}

// SignInResponse is returned by POST /config on success.
type SignInResponse struct {
	UserEmail     string    `json:"userEmail"`
	MatchedPerson string    `json:"matchedPerson"`
	IsManager     bool      `json:"isManager"`
	Token         string    `json:"token"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string            `json:"error"`
	ErrorCode string            `json:"error_code,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// LockConflictResponse is the 409 body of a denied lock acquisition.
type LockConflictResponse struct {
	Error      string    `json:"error"`
	ErrorCode  string    `json:"error_code,omitempty"`
	RecordID   string    `json:"recordId"`
	Holder     string    `json:"holder"`
	HolderName string    `json:"holderName,omitempty"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Error codes carried in ErrorResponse.ErrorCode.
const (
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeUnknownPerson      = "AUTH_UNKNOWN_PERSON"
	CodeAccountDisabled    = "AUTH_ACCOUNT_DISABLED"
	CodeSessionExpired     = "AUTH_SESSION_EXPIRED"
	CodeUnauthenticated    = "AUTH_REQUIRED"
	CodeForbidden          = "AUTH_FORBIDDEN"
	CodeLockConflict       = "LOCK_CONFLICT"
	CodeLockNotHeld        = "LOCK_NOT_HELD"
	CodeRateLimited        = "RATE_LIMITED"
)

// SessionResponse describes the caller of GET /api/session.
type SessionResponse struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	IsManager bool   `json:"isManager"`
}

// Colors is the display palette of a channel.
type Colors struct {
	Background string `json:"background"`
	Border     string `json:"border"`
	Text       string `json:"text"`
}

// Channel is one entry of GET /api/channels.
type Channel struct {
	Name           string `json:"name"`
	Abbreviation   string `json:"abbreviation"`
	Colors         Colors `json:"colors"`
	StartHour      int    `json:"startHour"`
	EndHour        int    `json:"endHour"`
	MinStaff       int    `json:"minStaff"`
	StatusInterval int    `json:"statusInterval,omitempty"`
	IsBreak        bool   `json:"isBreak,omitempty"`
}

// Person is a roster entry.
type Person struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsManager bool      `json:"isManager"`
	Active    bool      `json:"active"`
	Channels  []string  `json:"channels,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// PersonRequest is the body of PUT /api/people/{email}.
type PersonRequest struct {
	Name      string   `json:"name"`
	IsManager bool     `json:"isManager"`
	Active    *bool    `json:"active,omitempty"`
	Channels  []string `json:"channels,omitempty"`
}

// Shift is a scheduled block on one channel.
type Shift struct {
	ID         string    `json:"id"`
	AgentEmail string    `json:"agentEmail"`
	Channel    string    `json:"channel"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Notes      string    `json:"notes,omitempty"`
	UpdatedBy  string    `json:"updatedBy,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}

// ShiftRequest is the body of POST /api/shifts and PUT /api/shifts/{id}.
type ShiftRequest struct {
	AgentEmail string `json:"agentEmail"`
	Channel    string `json:"channel"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Notes      string `json:"notes,omitempty"`
}

// ConflictWarning flags an overlap that did not block a save.
type ConflictWarning struct {
	WithID     string `json:"withId"`
	Type       string `json:"type"`
	AgentEmail string `json:"agentEmail"`
	Channel    string `json:"channel,omitempty"`
}

// ShiftResponse is returned by shift writes.
type ShiftResponse struct {
	Shift    Shift             `json:"shift"`
	Warnings []ConflictWarning `json:"warnings,omitempty"`
}

// ShiftList is returned by GET /api/shifts.
type ShiftList struct {
	Shifts []Shift `json:"shifts"`
}

// TimeOff is an absence request.
type TimeOff struct {
	ID         string     `json:"id"`
	AgentEmail string     `json:"agentEmail"`
	Start      time.Time  `json:"start"`
	End        time.Time  `json:"end"`
	Reason     string     `json:"reason,omitempty"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	DecidedBy  string     `json:"decidedBy,omitempty"`
	DecidedAt  *time.Time `json:"decidedAt,omitempty"`
}

// TimeOffRequest is the body of POST /api/timeoff.
type TimeOffRequest struct {
	AgentEmail string `json:"agentEmail,omitempty"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Reason     string `json:"reason,omitempty"`
}

// DecisionRequest is the body of PUT /api/timeoff/{id}/decision.
type DecisionRequest struct {
	Status string `json:"status"`
}

// TimeOffList is returned by GET /api/timeoff.
type TimeOffList struct {
	Requests []TimeOff `json:"requests"`
}

// HourCoverage is the staffing of one channel for one hour.
type HourCoverage struct {
	Hour     int      `json:"hour"`
	Staffed  int      `json:"staffed"`
	Required int      `json:"required"`
	Short    bool     `json:"short"`
	Agents   []string `json:"agents"`
}

// ChannelCoverage is the hourly staffing of one channel.
type ChannelCoverage struct {
	Channel  string         `json:"channel"`
	MinStaff int            `json:"minStaff"`
	Hours    []HourCoverage `json:"hours"`
}

// Coverage is returned by GET /api/coverage.
type Coverage struct {
	Date       string            `json:"date"`
	Channels   []ChannelCoverage `json:"channels"`
	Shortfalls int               `json:"shortfalls"`
}

// AgentMetrics totals one agent's scheduled hours.
type AgentMetrics struct {
	AgentEmail       string             `json:"agentEmail"`
	Name             string             `json:"name,omitempty"`
	ChannelHours     map[string]float64 `json:"channelHours"`
	TotalHours       float64            `json:"totalHours"`
	BreakHours       float64            `json:"breakHours"`
	StatusUpdatesDue int                `json:"statusUpdatesDue"`
}

// AgentMetricsList is returned by GET /api/reports/agents.
type AgentMetricsList struct {
	From   time.Time      `json:"from"`
	To     time.Time      `json:"to"`
	Agents []AgentMetrics `json:"agents"`
}

// Lock is the state of an advisory edit lock.
type Lock struct {
	RecordID   string    `json:"recordId"`
	Holder     string    `json:"holder"`
	HolderName string    `json:"holderName,omitempty"`
	AcquiredAt time.Time `json:"acquiredAt"`
	RenewedAt  time.Time `json:"renewedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	TTLSeconds int64     `json:"ttlSeconds"`
}

// LockStatus is returned by GET /api/locks/{recordID}.
type LockStatus struct {
	RecordID string `json:"recordId"`
	Locked   bool   `json:"locked"`
	Lock     *Lock  `json:"lock,omitempty"`
}

// ParseTime accepts RFC 3339 timestamps with or without fractional seconds.
// An empty or malformed value yields the zero time.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

// FormatTime renders t as RFC 3339 in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
