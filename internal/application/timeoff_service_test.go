package application

import (
	"context"
	"errors"
	"testing"
)

func newTestTimeOffService(env *testEnv) *TimeOffService {
	return NewTimeOffService(env.repo, env.directory, sequentialIDs("off"), env.clock.Now, discardLogger())
}

func TestTimeOffService_Submit(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	svc := newTestTimeOffService(env)
	ctx := context.Background()

	own, err := svc.Submit(ctx, bob, TimeOffInput{Start: at(5, 0), End: at(6, 0), Reason: " dentist "})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if own.AgentEmail != "bob@x.com" || own.Status != TimeOffPending || own.Reason != "dentist" || !own.CreatedAt.Equal(env.clock.Now()) {
		t.Fatalf("unexpected request %+v", own)
	}

	if _, err := svc.Submit(ctx, bob, TimeOffInput{AgentEmail: "a@x.com", Start: at(5, 0), End: at(6, 0)}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected agents not to file for others, got %v", err)
	}
	if _, err := svc.Submit(ctx, alice, TimeOffInput{AgentEmail: "bob@x.com", Start: at(7, 0), End: at(8, 0)}); err != nil {
		t.Fatalf("expected manager to file for others, got %v", err)
	}

	var vErr *ValidationError
	if _, err := svc.Submit(ctx, bob, TimeOffInput{Start: at(6, 0), End: at(5, 0)}); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Submit(ctx, alice, TimeOffInput{AgentEmail: "ghost@x.com", Start: at(5, 0), End: at(6, 0)}); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error for unknown agent, got %v", err)
	}
}

func TestTimeOffService_ListDecideDelete(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	svc := newTestTimeOffService(env)
	ctx := context.Background()

	bobs, err := svc.Submit(ctx, bob, TimeOffInput{Start: at(5, 0), End: at(6, 0)})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	alices, err := svc.Submit(ctx, alice, TimeOffInput{Start: at(4, 0), End: at(5, 0)})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	all, err := svc.List(ctx, alice, TimeOffFilter{})
	if err != nil || len(all) != 2 || all[0].ID != alices.ID {
		t.Fatalf("expected manager to see both ordered by start, got %+v %v", all, err)
	}
	mine, err := svc.List(ctx, bob, TimeOffFilter{AgentEmail: "a@x.com"})
	if err != nil || len(mine) != 1 || mine[0].ID != bobs.ID {
		t.Fatalf("expected agent to see only own requests, got %+v %v", mine, err)
	}

	if _, err := svc.Decide(ctx, bob, bobs.ID, TimeOffApproved); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	var vErr *ValidationError
	if _, err := svc.Decide(ctx, alice, bobs.ID, "maybe"); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	decided, err := svc.Decide(ctx, alice, bobs.ID, TimeOffApproved)
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if decided.Status != TimeOffApproved || decided.DecidedBy != "a@x.com" || decided.DecidedAt == nil {
		t.Fatalf("unexpected decision %+v", decided)
	}

	approved, err := svc.List(ctx, alice, TimeOffFilter{Status: TimeOffApproved})
	if err != nil || len(approved) != 1 {
		t.Fatalf("expected one approved request, got %+v %v", approved, err)
	}

	if err := svc.Delete(ctx, bob, alices.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected agents not to delete others' requests, got %v", err)
	}
	if err := svc.Delete(ctx, bob, bobs.ID); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if err := svc.Delete(ctx, alice, bobs.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
