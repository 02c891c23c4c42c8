package core

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type AttemptState string

const (
	AttemptStateIdle          AttemptState = "idle"
	AttemptStateOrderCreated  AttemptState = "order_created"
	AttemptStateAuthorized    AttemptState = "authorized"
	AttemptStateScopeUpgraded AttemptState = "scope_upgraded"
	AttemptStateApproved      AttemptState = "approved"
	AttemptStateFailed        AttemptState = "failed"
	AttemptStateRestarting    AttemptState = "restarting"
)

// Authorized may advance straight to Approved when no scope upgrade is
// configured. Restarting is reachable from Failed and from the approval
// callback.
var attemptTransitions = map[AttemptState][]AttemptState{
	AttemptStateIdle:          {AttemptStateOrderCreated, AttemptStateFailed},
	AttemptStateOrderCreated:  {AttemptStateAuthorized, AttemptStateFailed},
	AttemptStateAuthorized:    {AttemptStateScopeUpgraded, AttemptStateApproved, AttemptStateFailed},
	AttemptStateScopeUpgraded: {AttemptStateApproved, AttemptStateFailed},
	AttemptStateApproved:      {AttemptStateRestarting, AttemptStateFailed},
	AttemptStateFailed:        {AttemptStateRestarting},
}

func (s AttemptState) CanTransitionTo(next AttemptState) bool {
	for _, candidate := range attemptTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

func (s AttemptState) Terminal() bool {
	return len(attemptTransitions[s]) == 0
}

type AttemptEvent struct {
	AttemptID   string       `json:"attempt_id"`
	Flow        string       `json:"flow"`
	From        AttemptState `json:"from"`
	To          AttemptState `json:"to"`
	OrderID     string       `json:"order_id,omitempty"`
	PayerID     string       `json:"payer_id,omitempty"`
	FailureCode string       `json:"failure_code,omitempty"`
	Error       string       `json:"error,omitempty"`
	OccurredAt  time.Time    `json:"occurred_at"`
}

type AttemptRecorder interface {
	Record(ctx context.Context, event AttemptEvent) error
}

// AttemptEventFilter narrows a ledger listing. Zero values match everything.
type AttemptEventFilter struct {
	AttemptID string
	Flow      string
	OrderID   string
	Since     time.Time
	Page      int
	PerPage   int
}

type AttemptEventPage struct {
	Events  []AttemptEvent `json:"events"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
}

type AttemptEventReader interface {
	ListAttemptEvents(ctx context.Context, filter AttemptEventFilter) (AttemptEventPage, error)
}

type NopAttemptRecorder struct{}

func (NopAttemptRecorder) Record(context.Context, AttemptEvent) error { return nil }

// Attempt is the order context of a single Start invocation. It is owned by
// that invocation and is never shared.
type Attempt struct {
	ID          string
	Flow        string
	OrderID     string
	PayerID     string
	State       AttemptState
	FailureCode string
	StartedAt   time.Time

	recorder AttemptRecorder
	observer *Observer
	now      func() time.Time
}

func NewAttempt(flow string, recorder AttemptRecorder, observer *Observer) *Attempt {
	if recorder == nil {
		recorder = NopAttemptRecorder{}
	}
	now := func() time.Time { return time.Now().UTC() }
	return &Attempt{
		ID:        uuid.NewString(),
		Flow:      strings.TrimSpace(flow),
		State:     AttemptStateIdle,
		StartedAt: now(),
		recorder:  recorder,
		observer:  observer,
		now:       now,
	}
}

// Transition advances the attempt. Ledger failures are logged and do not
// interrupt the flow.
func (a *Attempt) Transition(ctx context.Context, next AttemptState) error {
	if a == nil {
		return NewInternalError("checkout: attempt is nil", nil)
	}
	if !a.State.CanTransitionTo(next) {
		return newInvalidTransitionError(a.State, next, map[string]any{
			"attempt_id": a.ID,
			"flow":       a.Flow,
			"from":       string(a.State),
			"to":         string(next),
		})
	}
	event := AttemptEvent{
		AttemptID:   a.ID,
		Flow:        a.Flow,
		From:        a.State,
		To:          next,
		OrderID:     a.OrderID,
		PayerID:     a.PayerID,
		FailureCode: a.FailureCode,
		OccurredAt:  a.now(),
	}
	a.State = next
	a.record(ctx, event)
	return nil
}

// Fail moves the attempt to Failed and returns cause unchanged.
func (a *Attempt) Fail(ctx context.Context, cause error) error {
	if a == nil || cause == nil {
		return cause
	}
	if !a.State.CanTransitionTo(AttemptStateFailed) {
		return cause
	}
	a.FailureCode = TextCode(cause)
	event := AttemptEvent{
		AttemptID:   a.ID,
		Flow:        a.Flow,
		From:        a.State,
		To:          AttemptStateFailed,
		OrderID:     a.OrderID,
		PayerID:     a.PayerID,
		FailureCode: a.FailureCode,
		Error:       cause.Error(),
		OccurredAt:  a.now(),
	}
	a.State = AttemptStateFailed
	a.record(ctx, event)
	return cause
}

func (a *Attempt) record(ctx context.Context, event AttemptEvent) {
	if a.recorder == nil {
		return
	}
	if err := a.recorder.Record(ctx, event); err != nil {
		a.observer.Error(ctx, "attempt_record_failed", map[string]any{
			"attempt_id": event.AttemptID,
			"flow":       event.Flow,
			"to":         string(event.To),
			"error":      err.Error(),
		})
	}
}
