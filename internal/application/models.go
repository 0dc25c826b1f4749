package application

import "time"

// Principal represents the signed-in person invoking a service method.
type Principal struct {
	Email     string
	Name      string
	IsManager bool
}

// Person is a roster entry. Email is the identity key and is stored lowercased.
type Person struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsManager bool      `json:"isManager"`
	Active    bool      `json:"active"`
	Channels  []string  `json:"channels,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PersonInput captures caller provided roster fields.
type PersonInput struct {
	Email     string
	Name      string
	IsManager bool
	Active    bool
	Channels  []string
}

// Shift is one block of an agent's day on a single channel.
type Shift struct {
	ID         string    `json:"id"`
	AgentEmail string    `json:"agentEmail"`
	Channel    string    `json:"channel"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Notes      string    `json:"notes,omitempty"`
	UpdatedBy  string    `json:"updatedBy"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ShiftInput captures caller provided shift fields. An empty ID creates a shift.
type ShiftInput struct {
	ID         string
	AgentEmail string
	Channel    string
	Start      time.Time
	End        time.Time
	Notes      string
}

// ShiftFilter narrows shift listings. Zero bounds are open.
type ShiftFilter struct {
	From       time.Time
	To         time.Time
	AgentEmail string
}

// ConflictWarning describes an overlap surfaced alongside a saved shift.
type ConflictWarning struct {
	WithID     string `json:"withId"`
	Type       string `json:"type"`
	AgentEmail string `json:"agentEmail"`
	Channel    string `json:"channel,omitempty"`
}

// SaveShiftResult is the outcome of ShiftService.SaveShift.
type SaveShiftResult struct {
	Shift    Shift
	Created  bool
	Warnings []ConflictWarning
}

// TimeOffStatus is the review state of a time-off request.
type TimeOffStatus string

const (
	TimeOffPending  TimeOffStatus = "pending"
	TimeOffApproved TimeOffStatus = "approved"
	TimeOffDenied   TimeOffStatus = "denied"
)

// TimeOff is a request for absence.
type TimeOff struct {
	ID         string        `json:"id"`
	AgentEmail string        `json:"agentEmail"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	Reason     string        `json:"reason,omitempty"`
	Status     TimeOffStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	DecidedBy  string        `json:"decidedBy,omitempty"`
	DecidedAt  *time.Time    `json:"decidedAt,omitempty"`
}

// TimeOffInput captures caller provided time-off fields. An empty
// AgentEmail means the caller's own request.
type TimeOffInput struct {
	AgentEmail string
	Start      time.Time
	End        time.Time
	Reason     string
}

// TimeOffFilter narrows time-off listings.
type TimeOffFilter struct {
	From       time.Time
	To         time.Time
	AgentEmail string
	Status     TimeOffStatus
}

// EditLock is the server-side record of an advisory edit lock.
type EditLock struct {
	RecordID   string    `json:"recordId"`
	Holder     string    `json:"holder"`
	HolderName string    `json:"holderName"`
	AcquiredAt time.Time `json:"acquiredAt"`
	RenewedAt  time.Time `json:"renewedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Expired reports whether the lock has lapsed at now.
func (l EditLock) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// SignInResult is returned by AuthService.SignIn.
type SignInResult struct {
	UserEmail     string
	MatchedPerson string
	IsManager     bool
	Token         string
	ExpiresAt     time.Time
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

// CoverageReport is the per-channel staffing of one day.
type CoverageReport struct {
	Date       string            `json:"date"`
	Channels   []ChannelCoverage `json:"channels"`
	Shortfalls int               `json:"shortfalls"`
}

// AgentMetrics totals one agent's scheduled hours in a range.
type AgentMetrics struct {
	AgentEmail       string             `json:"agentEmail"`
	Name             string             `json:"name,omitempty"`
	ChannelHours     map[string]float64 `json:"channelHours"`
	TotalHours       float64            `json:"totalHours"`
	BreakHours       float64            `json:"breakHours"`
	StatusUpdatesDue int                `json:"statusUpdatesDue"`
}
