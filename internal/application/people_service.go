package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/staff-dashboard/internal/channels"
)

// PeopleService maintains the roster. Reads are open to every signed-in
// person; writes require a manager.
type PeopleService struct {
	people    PersonRepository
	directory *Directory
	registry  *channels.Registry
	now       func() time.Time
	logger    *slog.Logger
}

// NewPeopleService wires dependencies for roster operations.
func NewPeopleService(people PersonRepository, directory *Directory, registry *channels.Registry, now func() time.Time, logger *slog.Logger) *PeopleService {
	if now == nil {
		now = time.Now
	}
	if registry == nil {
		registry = channels.Default()
	}
	return &PeopleService{people: people, directory: directory, registry: registry, now: now, logger: defaultLogger(logger)}
}

// ListPeople returns the roster ordered by email.
func (s *PeopleService) ListPeople(ctx context.Context, _ Principal) ([]Person, error) {
	if s == nil || s.people == nil {
		return nil, fmt.Errorf("people repository not configured")
	}
	return s.people.ListPeople(ctx)
}

// GetPerson returns one roster entry.
func (s *PeopleService) GetPerson(ctx context.Context, _ Principal, email string) (Person, error) {
	if s == nil || s.people == nil {
		return Person{}, fmt.Errorf("people repository not configured")
	}
	return s.people.GetPerson(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// PutPerson creates or replaces a roster entry. Managers cannot revoke their
// own manager flag or deactivate themselves.
func (s *PeopleService) PutPerson(ctx context.Context, principal Principal, input PersonInput) (person Person, err error) {
	if s == nil || s.people == nil {
		return Person{}, fmt.Errorf("people repository not configured")
	}

	logger := serviceLogger(ctx, s.logger, "PeopleService", "PutPerson", "actor", principal.Email)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "roster update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "roster entry saved", "email", person.Email)
	}()

	if !principal.IsManager {
		err = ErrUnauthorized
		return
	}

	normalized, vErr := s.normalizePersonInput(input)
	if strings.EqualFold(normalized.Email, principal.Email) && (!normalized.IsManager || !normalized.Active) {
		vErr.add("isManager", "managers cannot revoke their own access")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	person = Person{
		Email:     normalized.Email,
		Name:      normalized.Name,
		IsManager: normalized.IsManager,
		Active:    normalized.Active,
		Channels:  normalized.Channels,
		UpdatedAt: s.now(),
	}
	if err = s.people.PutPerson(ctx, person); err != nil {
		return Person{}, err
	}
	if s.directory != nil {
		s.directory.Invalidate(person.Email)
	}
	return person, nil
}

// DeletePerson removes a roster entry.
func (s *PeopleService) DeletePerson(ctx context.Context, principal Principal, email string) error {
	if s == nil || s.people == nil {
		return fmt.Errorf("people repository not configured")
	}
	if !principal.IsManager {
		return ErrUnauthorized
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == strings.ToLower(principal.Email) {
		vErr := &ValidationError{}
		vErr.add("email", "managers cannot remove themselves")
		return vErr
	}

	if err := s.people.DeletePerson(ctx, email); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if s.directory != nil {
		s.directory.Invalidate(email)
	}
	serviceLogger(ctx, s.logger, "PeopleService", "DeletePerson", "actor", principal.Email).
		InfoContext(ctx, "roster entry removed", "email", email)
	return nil
}

func (s *PeopleService) normalizePersonInput(input PersonInput) (PersonInput, *ValidationError) {
	vErr := &ValidationError{}
	out := PersonInput{
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		Name:      strings.TrimSpace(input.Name),
		IsManager: input.IsManager,
		Active:    input.Active,
	}

	if out.Email == "" {
		vErr.add("email", "email is required")
	} else if addr, err := mail.ParseAddress(out.Email); err != nil || addr.Address != out.Email {
		vErr.add("email", "email is invalid")
	}
	if out.Name == "" {
		vErr.add("name", "name is required")
	}

	seen := make(map[string]struct{}, len(input.Channels))
	for _, name := range input.Channels {
		spec, ok := s.registry.Lookup(name)
		if !ok {
			vErr.add("channels", fmt.Sprintf("unknown channel %q", name))
			continue
		}
		if _, dup := seen[spec.Name]; dup {
			continue
		}
		seen[spec.Name] = struct{}{}
		out.Channels = append(out.Channels, spec.Name)
	}
	return out, vErr
}
