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
)

// TimeOffService handles absence requests. Agents manage their own requests;
// managers see and decide everyone's.
type TimeOffService struct {
	requests    TimeOffRepository
	directory   *Directory
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewTimeOffService wires dependencies for time-off operations.
func NewTimeOffService(requests TimeOffRepository, directory *Directory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *TimeOffService {
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	return &TimeOffService{requests: requests, directory: directory, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

// Submit files a pending request for the caller, or for anyone when the
// caller is a manager.
func (s *TimeOffService) Submit(ctx context.Context, principal Principal, input TimeOffInput) (request TimeOff, err error) {
	if s == nil || s.requests == nil {
		return TimeOff{}, fmt.Errorf("time-off repository not configured")
	}

	logger := serviceLogger(ctx, s.logger, "TimeOffService", "Submit", "actor", principal.Email)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "time-off submission failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "time-off submitted", "request_id", request.ID, "agent", request.AgentEmail)
	}()

	agent := strings.ToLower(strings.TrimSpace(input.AgentEmail))
	self := strings.ToLower(principal.Email)
	if agent == "" {
		agent = self
	}
	if agent != self && !principal.IsManager {
		err = ErrUnauthorized
		return
	}

	vErr := &ValidationError{}
	if s.directory != nil {
		if _, lookupErr := s.directory.Lookup(ctx, agent); lookupErr != nil {
			if !errors.Is(lookupErr, ErrNotFound) {
				err = lookupErr
				return
			}
			vErr.add("agentEmail", "agent is not on the roster")
		}
	}
	switch {
	case input.Start.IsZero():
		vErr.add("start", "start is required")
	case input.End.IsZero():
		vErr.add("end", "end is required")
	case !input.End.After(input.Start):
		vErr.add("end", "end must be after start")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	request = TimeOff{
		ID:         s.idGenerator(),
		AgentEmail: agent,
		Start:      input.Start.UTC(),
		End:        input.End.UTC(),
		Reason:     strings.TrimSpace(input.Reason),
		Status:     TimeOffPending,
		CreatedAt:  s.now(),
	}
	if err = s.requests.PutTimeOff(ctx, request); err != nil {
		return TimeOff{}, err
	}
	return request, nil
}

// List returns requests matching filter ordered by start. Non-managers only
// see their own requests regardless of filter.AgentEmail.
func (s *TimeOffService) List(ctx context.Context, principal Principal, filter TimeOffFilter) ([]TimeOff, error) {
	if s == nil || s.requests == nil {
		return nil, fmt.Errorf("time-off repository not configured")
	}
	all, err := s.requests.ListTimeOff(ctx)
	if err != nil {
		return nil, err
	}

	agent := strings.ToLower(strings.TrimSpace(filter.AgentEmail))
	if !principal.IsManager {
		agent = strings.ToLower(principal.Email)
	}

	out := make([]TimeOff, 0, len(all))
	for _, req := range all {
		if agent != "" && req.AgentEmail != agent {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if !inRange(req.Start, req.End, filter.From, filter.To) {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Decide approves or denies a request. Decisions may be revised.
func (s *TimeOffService) Decide(ctx context.Context, principal Principal, id string, status TimeOffStatus) (TimeOff, error) {
	if s == nil || s.requests == nil {
		return TimeOff{}, fmt.Errorf("time-off repository not configured")
	}
	if !principal.IsManager {
		return TimeOff{}, ErrUnauthorized
	}
	if status != TimeOffApproved && status != TimeOffDenied {
		vErr := &ValidationError{}
		vErr.add("status", "status must be approved or denied")
		return TimeOff{}, vErr
	}

	request, err := s.requests.GetTimeOff(ctx, id)
	if err != nil {
		return TimeOff{}, err
	}
	decidedAt := s.now()
	request.Status = status
	request.DecidedBy = strings.ToLower(principal.Email)
	request.DecidedAt = &decidedAt
	if err := s.requests.PutTimeOff(ctx, request); err != nil {
		return TimeOff{}, err
	}

	serviceLogger(ctx, s.logger, "TimeOffService", "Decide", "actor", principal.Email).
		InfoContext(ctx, "time-off decided", "request_id", id, "status", status)
	return request, nil
}

// Delete withdraws a request. Owners and managers may delete.
func (s *TimeOffService) Delete(ctx context.Context, principal Principal, id string) error {
	if s == nil || s.requests == nil {
		return fmt.Errorf("time-off repository not configured")
	}
	request, err := s.requests.GetTimeOff(ctx, id)
	if err != nil {
		return err
	}
	if !principal.IsManager && request.AgentEmail != strings.ToLower(principal.Email) {
		return ErrUnauthorized
	}
	return s.requests.DeleteTimeOff(ctx, id)
}
