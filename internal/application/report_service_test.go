package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestReportService_Coverage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	for _, shift := range []Shift{
		{ID: "s1", AgentEmail: "a@x.com", Channel: "Phone", Start: at(2, 8), End: at(2, 10)},
		{ID: "s2", AgentEmail: "bob@x.com", Channel: "Calls", Start: at(2, 9), End: at(2, 11)},
		{ID: "s3", AgentEmail: "bob@x.com", Channel: "Lunch", Start: at(2, 11), End: at(2, 12)},
		{ID: "s4", AgentEmail: "carol@x.com", Channel: "Phone", Start: at(2, 8), End: at(2, 20)},
		{ID: "s5", AgentEmail: "a@x.com", Channel: "Phone", Start: at(3, 8), End: at(3, 20)},
	} {
		if err := env.repo.PutShift(ctx, shift); err != nil {
			t.Fatalf("seed shift: %v", err)
		}
	}
	if err := env.repo.PutTimeOff(ctx, TimeOff{ID: "off", AgentEmail: "carol@x.com", Start: at(2, 9), End: at(2, 20), Status: TimeOffApproved}); err != nil {
		t.Fatalf("seed time off: %v", err)
	}

	svc := NewReportService(env.repo, env.repo, env.directory, nil, nil)
	report, err := svc.Coverage(ctx, at(2, 15))
	if err != nil {
		t.Fatalf("Coverage failed: %v", err)
	}
	if report.Date != "2024-01-02" {
		t.Fatalf("unexpected date %q", report.Date)
	}

	var phone *ChannelCoverage
	for i := range report.Channels {
		if report.Channels[i].Channel == "Lunch" || report.Channels[i].Channel == "Break" {
			t.Fatalf("break channels must not be reported")
		}
		if report.Channels[i].Channel == "Phone" {
			phone = &report.Channels[i]
		}
	}
	if phone == nil {
		t.Fatalf("expected Phone coverage")
	}
	if len(phone.Hours) != 12 || phone.Hours[0].Hour != 8 {
		t.Fatalf("expected Phone operating hours 8..19, got %d starting %d", len(phone.Hours), phone.Hours[0].Hour)
	}

	byHour := map[int]HourCoverage{}
	for _, h := range phone.Hours {
		byHour[h.Hour] = h
	}
	if got := byHour[8]; got.Staffed != 2 || !got.Short || got.Required != 3 {
		t.Fatalf("hour 8: expected alice and carol, got %+v", got)
	}
	if got := byHour[9]; got.Staffed != 2 || got.Agents[0] != "a@x.com" || got.Agents[1] != "bob@x.com" {
		t.Fatalf("hour 9: expected carol excluded by time off, got %+v", got)
	}
	if got := byHour[12]; got.Staffed != 0 {
		t.Fatalf("hour 12: expected no staff, got %+v", got)
	}
	if report.Shortfalls == 0 {
		t.Fatalf("expected shortfalls to be counted")
	}
}

func TestReportService_AgentMetrics(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	for _, shift := range []Shift{
		{ID: "s1", AgentEmail: "bob@x.com", Channel: "Phone", Start: at(2, 8), End: at(2, 13)},
		{ID: "s2", AgentEmail: "bob@x.com", Channel: "Lunch", Start: at(2, 13), End: at(2, 14)},
		{ID: "s3", AgentEmail: "bob@x.com", Channel: "Email", Start: at(2, 14), End: at(2, 18)},
		{ID: "s4", AgentEmail: "a@x.com", Channel: "Chat", Start: at(1, 22), End: at(2, 2)},
		{ID: "s5", AgentEmail: "a@x.com", Channel: "Chat", Start: at(5, 8), End: at(5, 12)},
	} {
		if err := env.repo.PutShift(ctx, shift); err != nil {
			t.Fatalf("seed shift: %v", err)
		}
	}

	svc := NewReportService(env.repo, env.repo, env.directory, nil, nil)
	metrics, err := svc.AgentMetrics(ctx, at(2, 0), at(3, 0))
	if err != nil {
		t.Fatalf("AgentMetrics failed: %v", err)
	}
	if len(metrics) != 2 || metrics[0].AgentEmail != "a@x.com" || metrics[1].AgentEmail != "bob@x.com" {
		t.Fatalf("unexpected metrics %+v", metrics)
	}

	a := metrics[0]
	if a.TotalHours != 2 || a.ChannelHours["Chat"] != 2 || a.Name != "Alice" {
		t.Fatalf("expected clipped overnight shift, got %+v", a)
	}
	if a.StatusUpdatesDue != 1 {
		t.Fatalf("expected one chat status update, got %d", a.StatusUpdatesDue)
	}

	b := metrics[1]
	if b.TotalHours != 9 || b.BreakHours != 1 || b.ChannelHours["Phone"] != 5 || b.ChannelHours["Email"] != 4 {
		t.Fatalf("unexpected bob metrics %+v", b)
	}
	if b.StatusUpdatesDue != 3 {
		t.Fatalf("expected 2 phone + 1 email status updates, got %d", b.StatusUpdatesDue)
	}

	var vErr *ValidationError
	if _, err := svc.AgentMetrics(ctx, at(3, 0), at(2, 0)); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error for inverted range, got %v", err)
	}
}

func TestReportService_NestedBreak(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	for _, shift := range []Shift{
		{ID: "s1", AgentEmail: "a@x.com", Channel: "Phone", Start: at(2, 8), End: at(2, 17)},
		{ID: "s2", AgentEmail: "a@x.com", Channel: "Lunch", Start: at(2, 12), End: at(2, 13)},
		{ID: "s3", AgentEmail: "a@x.com", Channel: "Break", Start: at(2, 12), End: at(2, 12).Add(30 * time.Minute)},
	} {
		if err := env.repo.PutShift(ctx, shift); err != nil {
			t.Fatalf("seed shift: %v", err)
		}
	}

	svc := NewReportService(env.repo, env.repo, env.directory, nil, nil)
	report, err := svc.Coverage(ctx, at(2, 9))
	if err != nil {
		t.Fatalf("Coverage failed: %v", err)
	}
	byHour := map[int]HourCoverage{}
	for _, c := range report.Channels {
		if c.Channel != "Phone" {
			continue
		}
		for _, h := range c.Hours {
			byHour[h.Hour] = h
		}
	}
	if got := byHour[11]; got.Staffed != 1 {
		t.Fatalf("hour 11: expected alice on the phone, got %+v", got)
	}
	if got := byHour[12]; got.Staffed != 0 {
		t.Fatalf("hour 12: expected alice at lunch, got %+v", got)
	}
	if got := byHour[13]; got.Staffed != 1 {
		t.Fatalf("hour 13: expected alice back, got %+v", got)
	}

	metrics, err := svc.AgentMetrics(ctx, at(2, 0), at(3, 0))
	if err != nil {
		t.Fatalf("AgentMetrics failed: %v", err)
	}
	if len(metrics) != 1 {
		t.Fatalf("unexpected metrics %+v", metrics)
	}
	m := metrics[0]
	if m.TotalHours != 8 || m.ChannelHours["Phone"] != 8 || m.BreakHours != 1 {
		t.Fatalf("expected lunch subtracted from phone hours, got %+v", m)
	}
}
