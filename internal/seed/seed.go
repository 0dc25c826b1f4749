// Package seed generates plausible roster, shift and time-off data for demos
// and tests.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/example/staff-dashboard/internal/application"
	"github.com/example/staff-dashboard/internal/channels"
)

// Writer stores generated records.
type Writer interface {
	PutPerson(ctx context.Context, person application.Person) error
	PutShift(ctx context.Context, shift application.Shift) error
	PutTimeOff(ctx context.Context, request application.TimeOff) error
}

// Options sizes a generated dataset.
type Options struct {
	People   int
	Managers int
	// From is the first scheduled day; it is truncated to midnight UTC.
	From    time.Time
	Days    int
	TimeOff int
	Domain  string
}

// Dataset is one generated batch.
type Dataset struct {
	People  []application.Person
	Shifts  []application.Shift
	TimeOff []application.TimeOff
}

// Generator produces deterministic data for a given seed.
type Generator struct {
	faker    *gofakeit.Faker
	registry *channels.Registry
	now      time.Time
}

// New returns a generator. A nil registry uses the built-in channel table.
func New(seed int64, registry *channels.Registry, now time.Time) *Generator {
	if registry == nil {
		registry = channels.Default()
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return &Generator{faker: gofakeit.New(seed), registry: registry, now: now}
}

// workChannels lists the non-break channels agents can be rostered on.
func (g *Generator) workChannels() []string {
	var out []string
	for _, spec := range g.registry.All() {
		if spec.IsBreak || spec.MinStaff == 0 {
			continue
		}
		out = append(out, spec.Name)
	}
	return out
}

func (g *Generator) breakChannel() string {
	for _, spec := range g.registry.All() {
		if spec.IsBreak {
			return spec.Name
		}
	}
	return channels.OtherName
}

// People returns n active people, the first managers of whom are managers.
func (g *Generator) People(n, managers int, domain string) []application.Person {
	if domain == "" {
		domain = "example.com"
	}
	work := g.workChannels()
	seen := make(map[string]bool, n)
	out := make([]application.Person, 0, n)
	for len(out) < n {
		first, last := g.faker.FirstName(), g.faker.LastName()
		email := strings.ToLower(fmt.Sprintf("%s.%s@%s", first, last, domain))
		if seen[email] {
			continue
		}
		seen[email] = true

		primary := work[g.faker.IntRange(0, len(work)-1)]
		person := application.Person{
			Email:     email,
			Name:      first + " " + last,
			IsManager: len(out) < managers,
			Active:    true,
			Channels:  []string{primary},
			UpdatedAt: g.now,
		}
		if secondary := work[g.faker.IntRange(0, len(work)-1)]; secondary != primary {
			person.Channels = append(person.Channels, secondary)
		}
		out = append(out, person)
	}
	return out
}

// Shifts rosters every active non-manager on weekdays: a morning block on
// their primary channel, a one hour break and an afternoon block.
func (g *Generator) Shifts(people []application.Person, from time.Time, days int) []application.Shift {
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	lunch := g.breakChannel()

	var out []application.Shift
	for d := 0; d < days; d++ {
		day := from.AddDate(0, 0, d)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		for _, person := range people {
			if person.IsManager || !person.Active || len(person.Channels) == 0 {
				continue
			}
			start := day.Add(time.Duration(8+g.faker.IntRange(0, 3)) * time.Hour)
			afternoon := person.Channels[len(person.Channels)-1]

			blocks := []struct {
				channel string
				hours   int
			}{
				{person.Channels[0], 4},
				{lunch, 1},
				{afternoon, 4},
			}
			cursor := start
			for _, block := range blocks {
				end := cursor.Add(time.Duration(block.hours) * time.Hour)
				out = append(out, application.Shift{
					ID:         g.faker.UUID(),
					AgentEmail: person.Email,
					Channel:    block.channel,
					Start:      cursor,
					End:        end,
					UpdatedBy:  "seed",
					UpdatedAt:  g.now,
				})
				cursor = end
			}
		}
	}
	return out
}

// TimeOff returns n requests spread across the window, roughly half approved.
func (g *Generator) TimeOff(people []application.Person, from time.Time, days, n int) []application.TimeOff {
	if len(people) == 0 || days <= 0 {
		return nil
	}
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	statuses := []application.TimeOffStatus{application.TimeOffPending, application.TimeOffApproved, application.TimeOffApproved, application.TimeOffDenied}

	out := make([]application.TimeOff, 0, n)
	for i := 0; i < n; i++ {
		person := people[g.faker.IntRange(0, len(people)-1)]
		start := from.AddDate(0, 0, g.faker.IntRange(0, days-1))
		req := application.TimeOff{
			ID:         g.faker.UUID(),
			AgentEmail: person.Email,
			Start:      start,
			End:        start.AddDate(0, 0, g.faker.IntRange(1, 2)),
			Reason:     g.faker.Sentence(4),
			Status:     statuses[g.faker.IntRange(0, len(statuses)-1)],
			CreatedAt:  g.now,
		}
		if req.Status != application.TimeOffPending {
			decided := g.now
			req.DecidedBy = "seed"
			req.DecidedAt = &decided
		}
		out = append(out, req)
	}
	return out
}

// Dataset generates a full batch.
func (g *Generator) Dataset(opts Options) Dataset {
	if opts.Days <= 0 {
		opts.Days = 7
	}
	if opts.From.IsZero() {
		opts.From = g.now
	}
	people := g.People(opts.People, opts.Managers, opts.Domain)
	return Dataset{
		People:  people,
		Shifts:  g.Shifts(people, opts.From, opts.Days),
		TimeOff: g.TimeOff(people, opts.From, opts.Days, opts.TimeOff),
	}
}

// Load writes the dataset through w.
func Load(ctx context.Context, w Writer, data Dataset) error {
	for _, person := range data.People {
		if err := w.PutPerson(ctx, person); err != nil {
			return fmt.Errorf("seed person %s: %w", person.Email, err)
		}
	}
	for _, shift := range data.Shifts {
		if err := w.PutShift(ctx, shift); err != nil {
			return fmt.Errorf("seed shift %s: %w", shift.ID, err)
		}
	}
	for _, request := range data.TimeOff {
		if err := w.PutTimeOff(ctx, request); err != nil {
			return fmt.Errorf("seed time off %s: %w", request.ID, err)
		}
	}
	return nil
}
