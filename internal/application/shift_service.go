package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/staff-dashboard/internal/channels"
	"github.com/example/staff-dashboard/internal/scheduler"
)

// MaxShiftLength bounds a single shift.
const MaxShiftLength = 16 * time.Hour

// ShiftService orchestrates validation and persistence for shifts.
type ShiftService struct {
	shifts      ShiftRepository
	timeOff     TimeOffRepository
	directory   *Directory
	registry    *channels.Registry
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewShiftService wires dependencies for shift operations. A nil
// idGenerator issues random UUIDs.
func NewShiftService(shifts ShiftRepository, timeOff TimeOffRepository, directory *Directory, registry *channels.Registry, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ShiftService {
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	if registry == nil {
		registry = channels.Default()
	}
	return &ShiftService{
		shifts:      shifts,
		timeOff:     timeOff,
		directory:   directory,
		registry:    registry,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// ListShifts returns shifts overlapping the filter range ordered by start
// then agent.
func (s *ShiftService) ListShifts(ctx context.Context, _ Principal, filter ShiftFilter) ([]Shift, error) {
	if s == nil || s.shifts == nil {
		return nil, fmt.Errorf("shift repository not configured")
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && !filter.To.After(filter.From) {
		vErr := &ValidationError{}
		vErr.add("to", "to must be after from")
		return nil, vErr
	}

	all, err := s.shifts.ListShifts(ctx)
	if err != nil {
		return nil, err
	}

	agent := strings.ToLower(strings.TrimSpace(filter.AgentEmail))
	out := make([]Shift, 0, len(all))
	for _, shift := range all {
		if agent != "" && strings.ToLower(shift.AgentEmail) != agent {
			continue
		}
		if !inRange(shift.Start, shift.End, filter.From, filter.To) {
			continue
		}
		out = append(out, shift)
	}
	sortShifts(out)
	return out, nil
}

// GetShift returns one shift.
func (s *ShiftService) GetShift(ctx context.Context, _ Principal, id string) (Shift, error) {
	if s == nil || s.shifts == nil {
		return Shift{}, fmt.Errorf("shift repository not configured")
	}
	return s.shifts.GetShift(ctx, id)
}

// SaveShift creates or updates a shift. Overlaps with the agent's other
// shifts or approved time off are returned as warnings and do not block the
// save.
func (s *ShiftService) SaveShift(ctx context.Context, principal Principal, input ShiftInput) (result SaveShiftResult, err error) {
	if s == nil || s.shifts == nil {
		return SaveShiftResult{}, fmt.Errorf("shift repository not configured")
	}

	logger := serviceLogger(ctx, s.logger, "ShiftService", "SaveShift", "actor", principal.Email, "shift_id", input.ID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "shift save failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "shift saved",
			"shift_id", result.Shift.ID, "created", result.Created, "warnings", len(result.Warnings))
	}()

	if !principal.IsManager {
		err = ErrUnauthorized
		return
	}

	var spec channels.Spec
	spec, err = s.validateShiftInput(ctx, &input)
	if err != nil {
		return
	}

	created := input.ID == ""
	if !created {
		if _, err = s.shifts.GetShift(ctx, input.ID); err != nil {
			if errors.Is(err, ErrNotFound) {
				err = ErrNotFound
			}
			return
		}
	} else {
		input.ID = s.idGenerator()
	}

	shift := Shift{
		ID:         input.ID,
		AgentEmail: input.AgentEmail,
		Channel:    spec.Name,
		Start:      input.Start.UTC(),
		End:        input.End.UTC(),
		Notes:      strings.TrimSpace(input.Notes),
		UpdatedBy:  strings.ToLower(principal.Email),
		UpdatedAt:  s.now(),
	}

	var warnings []ConflictWarning
	warnings, err = s.detectConflicts(ctx, shift, spec)
	if err != nil {
		return
	}

	if err = s.shifts.PutShift(ctx, shift); err != nil {
		return
	}
	result = SaveShiftResult{Shift: shift, Created: created, Warnings: warnings}
	return
}

// DeleteShift removes a shift.
func (s *ShiftService) DeleteShift(ctx context.Context, principal Principal, id string) error {
	if s == nil || s.shifts == nil {
		return fmt.Errorf("shift repository not configured")
	}
	if !principal.IsManager {
		return ErrUnauthorized
	}
	if err := s.shifts.DeleteShift(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	serviceLogger(ctx, s.logger, "ShiftService", "DeleteShift", "actor", principal.Email).
		InfoContext(ctx, "shift deleted", "shift_id", id)
	return nil
}

func (s *ShiftService) validateShiftInput(ctx context.Context, input *ShiftInput) (channels.Spec, error) {
	vErr := &ValidationError{}

	input.AgentEmail = strings.ToLower(strings.TrimSpace(input.AgentEmail))
	if input.AgentEmail == "" {
		vErr.add("agentEmail", "agent is required")
	} else if s.directory != nil {
		if _, err := s.directory.Lookup(ctx, input.AgentEmail); err != nil {
			if !errors.Is(err, ErrNotFound) {
				return channels.Spec{}, err
			}
			vErr.add("agentEmail", "agent is not on the roster")
		}
	}

	spec, ok := s.registry.Lookup(input.Channel)
	if !ok {
		vErr.add("channel", fmt.Sprintf("unknown channel %q", input.Channel))
	}

	switch {
	case input.Start.IsZero():
		vErr.add("start", "start is required")
	case input.End.IsZero():
		vErr.add("end", "end is required")
	case !input.End.After(input.Start):
		vErr.add("end", "end must be after start")
	case input.End.Sub(input.Start) > MaxShiftLength:
		vErr.add("end", fmt.Sprintf("shift must not exceed %s", MaxShiftLength))
	}

	if vErr.HasErrors() {
		return channels.Spec{}, vErr
	}
	return spec, nil
}

func (s *ShiftService) detectConflicts(ctx context.Context, shift Shift, spec channels.Spec) ([]ConflictWarning, error) {
	existing, err := s.shifts.ListShifts(ctx)
	if err != nil {
		return nil, err
	}
	candidates := make([]scheduler.Shift, 0, len(existing))
	for _, other := range existing {
		candidates = append(candidates, s.toSchedulerShift(other))
	}

	var absences []scheduler.Absence
	if s.timeOff != nil {
		requests, err := s.timeOff.ListTimeOff(ctx)
		if err != nil {
			return nil, err
		}
		for _, req := range requests {
			if req.Status != TimeOffApproved {
				continue
			}
			absences = append(absences, scheduler.Absence{ID: req.ID, AgentEmail: req.AgentEmail, Start: req.Start, End: req.End})
		}
	}

	candidate := s.toSchedulerShift(shift)
	candidate.Break = spec.IsBreak

	conflicts := scheduler.DetectConflicts(candidates, absences, candidate)
	if len(conflicts) == 0 {
		return nil, nil
	}
	warnings := make([]ConflictWarning, 0, len(conflicts))
	for _, c := range conflicts {
		warnings = append(warnings, ConflictWarning{
			WithID:     c.WithID,
			Type:       string(c.Type),
			AgentEmail: c.AgentEmail,
			Channel:    c.Channel,
		})
	}
	return warnings, nil
}

func (s *ShiftService) toSchedulerShift(shift Shift) scheduler.Shift {
	return scheduler.Shift{
		ID:         shift.ID,
		AgentEmail: shift.AgentEmail,
		Channel:    shift.Channel,
		Break:      s.registry.Resolve(shift.Channel).IsBreak,
		Start:      shift.Start,
		End:        shift.End,
	}
}

// inRange reports whether [start, end) intersects [from, to); zero bounds
// are open.
func inRange(start, end, from, to time.Time) bool {
	if !from.IsZero() && !end.After(from) {
		return false
	}
	if !to.IsZero() && !start.Before(to) {
		return false
	}
	return true
}

func sortShifts(shifts []Shift) {
	sort.Slice(shifts, func(i, j int) bool {
		if !shifts[i].Start.Equal(shifts[j].Start) {
			return shifts[i].Start.Before(shifts[j].Start)
		}
		if shifts[i].AgentEmail != shifts[j].AgentEmail {
			return shifts[i].AgentEmail < shifts[j].AgentEmail
		}
		return shifts[i].ID < shifts[j].ID
	})
}
