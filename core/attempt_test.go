package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memoryAttemptRecorder struct {
	mu     sync.Mutex
	events []AttemptEvent
	err    error
}

func (r *memoryAttemptRecorder) Record(_ context.Context, event AttemptEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *memoryAttemptRecorder) snapshot() []AttemptEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AttemptEvent(nil), r.events...)
}

func TestAttemptStateTransitions(t *testing.T) {
	allowed := []struct{ from, to AttemptState }{
		{AttemptStateIdle, AttemptStateOrderCreated},
		{AttemptStateOrderCreated, AttemptStateAuthorized},
		{AttemptStateAuthorized, AttemptStateApproved},
		{AttemptStateAuthorized, AttemptStateScopeUpgraded},
		{AttemptStateScopeUpgraded, AttemptStateApproved},
		{AttemptStateApproved, AttemptStateRestarting},
		{AttemptStateFailed, AttemptStateRestarting},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	rejected := []struct{ from, to AttemptState }{
		{AttemptStateIdle, AttemptStateAuthorized},
		{AttemptStateOrderCreated, AttemptStateApproved},
		{AttemptStateScopeUpgraded, AttemptStateAuthorized},
		{AttemptStateFailed, AttemptStateApproved},
		{AttemptStateRestarting, AttemptStateIdle},
	}
	for _, tc := range rejected {
		if tc.from.CanTransitionTo(tc.to) {
			t.Fatalf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}

	if !AttemptStateRestarting.Terminal() || AttemptStateFailed.Terminal() || AttemptStateApproved.Terminal() {
		t.Fatalf("unexpected terminal states")
	}
}

func TestAttemptRecordsEveryTransition(t *testing.T) {
	recorder := &memoryAttemptRecorder{}
	attempt := NewAttempt(" nonce ", recorder, nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	attempt.now = func() time.Time { return fixed }

	if attempt.ID == "" || attempt.Flow != "nonce" || attempt.State != AttemptStateIdle {
		t.Fatalf("unexpected new attempt: %+v", attempt)
	}

	ctx := context.Background()
	if err := attempt.Transition(ctx, AttemptStateOrderCreated); err != nil {
		t.Fatalf("order created: %v", err)
	}
	attempt.OrderID = "O1"
	if err := attempt.Transition(ctx, AttemptStateAuthorized); err != nil {
		t.Fatalf("authorized: %v", err)
	}
	attempt.PayerID = "P1"
	if err := attempt.Transition(ctx, AttemptStateApproved); err != nil {
		t.Fatalf("approved: %v", err)
	}

	events := recorder.snapshot()
	if len(events) != 3 {
		t.Fatalf("expected three events, got %d", len(events))
	}
	last := events[2]
	if last.From != AttemptStateAuthorized || last.To != AttemptStateApproved || last.OrderID != "O1" || last.PayerID != "P1" {
		t.Fatalf("unexpected last event: %+v", last)
	}
	if !last.OccurredAt.Equal(fixed) || last.AttemptID != attempt.ID {
		t.Fatalf("expected event stamped with attempt id and clock, got %+v", last)
	}
}

func TestAttemptRejectsInvalidTransition(t *testing.T) {
	recorder := &memoryAttemptRecorder{}
	attempt := NewAttempt("nonce", recorder, nil)

	err := attempt.Transition(context.Background(), AttemptStateApproved)
	if !HasTextCode(err, CheckoutErrorInvalidTransition) {
		t.Fatalf("expected invalid transition error, got %v", err)
	}
	if attempt.State != AttemptStateIdle || len(recorder.snapshot()) != 0 {
		t.Fatalf("expected state and ledger to stay untouched")
	}

	var nilAttempt *Attempt
	if err := nilAttempt.Transition(context.Background(), AttemptStateOrderCreated); !HasTextCode(err, CheckoutErrorInternal) {
		t.Fatalf("expected internal error for nil attempt, got %v", err)
	}
}

func TestAttemptFailReturnsCauseUnchanged(t *testing.T) {
	recorder := &memoryAttemptRecorder{}
	attempt := NewAttempt("nonce", recorder, nil)
	_ = attempt.Transition(context.Background(), AttemptStateOrderCreated)

	cause := NewPayWithDifferentCardError(errors.New("declined"), nil)
	if err := attempt.Fail(context.Background(), cause); err != cause {
		t.Fatalf("expected cause returned unchanged, got %v", err)
	}
	if attempt.State != AttemptStateFailed || attempt.FailureCode != ErrorPayWithDifferentCard {
		t.Fatalf("unexpected failed attempt: %+v", attempt)
	}
	events := recorder.snapshot()
	failed := events[len(events)-1]
	if failed.To != AttemptStateFailed || failed.FailureCode != ErrorPayWithDifferentCard || failed.Error == "" {
		t.Fatalf("unexpected failure event: %+v", failed)
	}

	// A second failure is not recorded.
	if err := attempt.Fail(context.Background(), cause); err != cause {
		t.Fatalf("expected cause on repeated failure")
	}
	if len(recorder.snapshot()) != len(events) {
		t.Fatalf("expected no additional ledger entry")
	}
	if attempt.Fail(context.Background(), nil) != nil {
		t.Fatalf("expected nil cause to pass through")
	}
}

func TestAttemptRecorderFailureIsLoggedOnly(t *testing.T) {
	logger := newCaptureLogger()
	recorder := &memoryAttemptRecorder{err: errors.New("ledger down")}
	attempt := NewAttempt("checkout", recorder, NewObserver(logger, nil, nil))

	if err := attempt.Transition(context.Background(), AttemptStateOrderCreated); err != nil {
		t.Fatalf("expected ledger failure to be swallowed, got %v", err)
	}
	records := logger.snapshot()
	if len(records) != 1 || records[0].msg != "attempt_record_failed" || records[0].fields["error"] != "ledger down" {
		t.Fatalf("expected ledger failure log, got %+v", records)
	}
}
