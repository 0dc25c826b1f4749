package dashboard

import (
	"time"

	"github.com/example/staff-dashboard/internal/session"
)

// SessionContext is the signed-in identity passed explicitly to every call.
type SessionContext struct {
	Email        string
	Name         string
	IsManager    bool
	Token        string
	IssuedAt     time.Time
	LastActivity time.Time
}

func fromRecord(rec session.Record) *SessionContext {
	return &SessionContext{
		Email:        rec.Email,
		Name:         rec.Name,
		IsManager:    rec.IsManager,
		Token:        rec.Token,
		IssuedAt:     rec.IssuedAt,
		LastActivity: rec.LastActivity,
	}
}
