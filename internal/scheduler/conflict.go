// Package scheduler detects overlaps between an agent's shifts and absences.
package scheduler

import (
	"sort"
	"strings"
	"time"
)

// Shift is the minimal view of a scheduled shift needed for overlap checks.
type Shift struct {
	ID         string
	AgentEmail string
	Channel    string
	// Break marks lunch and break blocks, which may sit inside a working shift.
	Break bool
	Start time.Time
	End   time.Time
}

// Absence is approved time off for an agent.
type Absence struct {
	ID         string
	AgentEmail string
	Start      time.Time
	End        time.Time
}

// ConflictType describes the kind of overlap detected.
type ConflictType string

const (
	// ConflictTypeDoubleBooked indicates the agent already works another shift.
	ConflictTypeDoubleBooked ConflictType = "double_booked"
	// ConflictTypeTimeOff indicates the shift falls within approved time off.
	ConflictTypeTimeOff ConflictType = "time_off"
)

// Conflict details an overlap that callers can present as a warning.
type Conflict struct {
	WithID     string
	Type       ConflictType
	AgentEmail string
	Channel    string
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// DetectConflicts returns the overlaps between candidate and the agent's other
// shifts and absences. Break blocks never conflict with working shifts, and a
// shift never conflicts with itself. Results are ordered by start time.
func DetectConflicts(existing []Shift, absences []Absence, candidate Shift) []Conflict {
	agent := strings.ToLower(candidate.AgentEmail)

	type found struct {
		conflict Conflict
		start    time.Time
	}
	var hits []found

	for _, other := range existing {
		if other.ID != "" && other.ID == candidate.ID {
			continue
		}
		if strings.ToLower(other.AgentEmail) != agent {
			continue
		}
		if other.Break != candidate.Break {
			continue
		}
		if !Overlaps(candidate.Start, candidate.End, other.Start, other.End) {
			continue
		}
		hits = append(hits, found{
			conflict: Conflict{WithID: other.ID, Type: ConflictTypeDoubleBooked, AgentEmail: other.AgentEmail, Channel: other.Channel},
			start:    other.Start,
		})
	}

	if !candidate.Break {
		for _, absence := range absences {
			if strings.ToLower(absence.AgentEmail) != agent {
				continue
			}
			if !Overlaps(candidate.Start, candidate.End, absence.Start, absence.End) {
				continue
			}
			hits = append(hits, found{
				conflict: Conflict{WithID: absence.ID, Type: ConflictTypeTimeOff, AgentEmail: absence.AgentEmail},
				start:    absence.Start,
			})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].start.Before(hits[j].start) })

	out := make([]Conflict, 0, len(hits))
	for _, hit := range hits {
		out = append(out, hit.conflict)
	}
	return out
}
