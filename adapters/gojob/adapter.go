// Package gojob runs queued checkout commands on go-job queues.
package gojob

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	checkoutcommand "github.com/goliatone/go-checkout/command"
	"github.com/goliatone/go-checkout/core"

	"github.com/goliatone/go-job/queue"
	sqlqueue "github.com/goliatone/go-job/queue/adapters/postgres"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	"github.com/goliatone/go-job/queue/worker"
)

const (
	TableJobs      = "checkout_jobs"
	TableJobsDLQ   = "checkout_jobs_dlq"
	TableJobStatus = "checkout_job_status"

	paramOlderThan = "older_than"
)

// OpenSQLQueue creates the go-job queue tables next to the attempt ledger
// and returns a queue that both enqueues and dequeues. driver is the
// database/sql driver name of db.
func OpenSQLQueue(ctx context.Context, db *sql.DB, driver string) (*sqlqueue.Adapter, error) {
	if db == nil {
		return nil, fmt.Errorf("gojob: database is required")
	}
	opts := []sqlqueue.Option{
		sqlqueue.WithTableName(TableJobs),
		sqlqueue.WithDLQTableName(TableJobsDLQ),
		sqlqueue.WithStatusTableName(TableJobStatus),
	}
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres":
		opts = append(opts, sqlqueue.WithDialect(sqlqueue.DialectPostgres))
	case "sqlite3":
		opts = append(opts, sqlqueue.WithDialect(sqlqueue.DialectSQLite), sqlqueue.WithUseSkipLocked(false))
	default:
		return nil, fmt.Errorf("gojob: unsupported queue driver %q", driver)
	}
	storage := sqlqueue.NewStorage(db, opts...)
	if err := storage.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("gojob: migrate queue: %w", err)
	}
	return sqlqueue.NewAdapter(storage), nil
}

// EnqueuePrune queues one ledger prune run. registry must hold the prune
// command, see gocommand.RegisterQueuedCommands. The window travels as
// nanoseconds so it survives the JSON payload.
func EnqueuePrune(
	ctx context.Context,
	enqueuer queue.Enqueuer,
	registry *jobqueuecommand.Registry,
	olderThan time.Duration,
) (queue.EnqueueReceipt, error) {
	if enqueuer == nil {
		return queue.EnqueueReceipt{}, fmt.Errorf("gojob: enqueuer is not configured")
	}
	msg := checkoutcommand.PruneAttemptEventsMessage{OlderThan: olderThan}
	if err := msg.Validate(); err != nil {
		return queue.EnqueueReceipt{}, err
	}
	return jobqueuecommand.Enqueue(ctx, enqueuer, registry, msg.Type(), map[string]any{
		paramOlderThan: olderThan.Nanoseconds(),
	})
}

// RetryPolicy bounds redelivery of failed jobs.
type RetryPolicy struct {
	MaxAttempts     int
	Delay           time.Duration
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		Delay:           time.Minute,
		MaxDelay:        15 * time.Minute,
		DeadLetterOnMax: true,
	}
}

// NackFor picks the nack options for a failed attempt. Attempts below
// MaxAttempts retry after Delay; the last one is dead lettered or failed.
// A zero MaxAttempts retries forever.
func (p RetryPolicy) NackFor(attempt int, cause error) queue.NackOptions {
	opts := queue.NackOptions{
		Disposition: queue.NackDispositionRetry,
		Delay:       p.Delay,
	}
	if cause != nil {
		opts.Reason = strings.TrimSpace(cause.Error())
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	if p.MaxDelay > 0 && opts.Delay > p.MaxDelay {
		opts.Delay = p.MaxDelay
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		opts.Delay = 0
		opts.Disposition = queue.NackDispositionFailed
		if p.DeadLetterOnMax {
			opts.Disposition = queue.NackDispositionDeadLetter
		}
	}
	return opts
}

type Outcome int

const (
	OutcomeEmpty Outcome = iota
	OutcomeSucceeded
	OutcomeRetried
	OutcomeFailed
)

type DrainReport struct {
	Succeeded int
	Retried   int
	Failed    int
}

func (r DrainReport) Processed() int {
	return r.Succeeded + r.Retried + r.Failed
}

type Option func(*Worker)

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(w *Worker) {
		w.retry = policy
	}
}

func WithHooks(hooks ...worker.Hook) Option {
	return func(w *Worker) {
		for _, hook := range hooks {
			if hook != nil {
				w.hooks = append(w.hooks, hook)
			}
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

// Worker runs deliveries through the handlers of a go-job queue registry.
type Worker struct {
	dequeuer queue.Dequeuer
	registry *jobqueuecommand.Registry
	retry    RetryPolicy
	hooks    []worker.Hook
	now      func() time.Time
}

func NewWorker(dequeuer queue.Dequeuer, registry *jobqueuecommand.Registry, opts ...Option) (*Worker, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("gojob: queue registry is required")
	}
	w := &Worker{
		dequeuer: dequeuer,
		registry: registry,
		retry:    DefaultRetryPolicy(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// ProcessNext runs one delivery. Jobs without a registered handler are dead
// lettered, handler failures are nacked under the retry policy. The returned
// error only reports queue failures.
func (w *Worker) ProcessNext(ctx context.Context) (Outcome, error) {
	delivery, err := w.dequeuer.Dequeue(ctx)
	if err != nil {
		return OutcomeEmpty, err
	}
	if delivery == nil {
		return OutcomeEmpty, nil
	}

	msg := delivery.Message()
	event := worker.Event{
		Delivery:  delivery,
		Message:   msg,
		Attempt:   attemptOf(delivery),
		StartedAt: w.now(),
	}
	w.emit(func(h worker.Hook) { h.OnStart(ctx, event) })

	jobID := ""
	if msg != nil {
		jobID = strings.TrimSpace(msg.JobID)
	}
	entry, ok := w.registry.Get(jobID)
	if !ok || entry.Handler == nil {
		event.Err = fmt.Errorf("gojob: no queued command for %q", jobID)
		event.Duration = w.now().Sub(event.StartedAt)
		w.emit(func(h worker.Hook) { h.OnFailure(ctx, event) })
		return OutcomeFailed, delivery.Nack(ctx, queue.NackOptions{
			Disposition: queue.NackDispositionDeadLetter,
			Reason:      event.Err.Error(),
		})
	}

	runErr := entry.Handler(ctx, msg.Parameters)
	event.Duration = w.now().Sub(event.StartedAt)
	if runErr == nil {
		w.emit(func(h worker.Hook) { h.OnSuccess(ctx, event) })
		return OutcomeSucceeded, delivery.Ack(ctx)
	}

	event.Err = runErr
	opts := w.retry.NackFor(event.Attempt, runErr)
	if opts.Disposition == queue.NackDispositionRetry {
		event.Delay = opts.Delay
		w.emit(func(h worker.Hook) { h.OnRetry(ctx, event) })
		return OutcomeRetried, delivery.Nack(ctx, opts)
	}
	w.emit(func(h worker.Hook) { h.OnFailure(ctx, event) })
	return OutcomeFailed, delivery.Nack(ctx, opts)
}

// Drain processes deliveries until the queue has nothing available.
func (w *Worker) Drain(ctx context.Context) (DrainReport, error) {
	var report DrainReport
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		outcome, err := w.ProcessNext(ctx)
		if err != nil {
			return report, err
		}
		switch outcome {
		case OutcomeEmpty:
			return report, nil
		case OutcomeSucceeded:
			report.Succeeded++
		case OutcomeRetried:
			report.Retried++
		case OutcomeFailed:
			report.Failed++
		}
	}
}

func (w *Worker) emit(fn func(worker.Hook)) {
	for _, hook := range w.hooks {
		fn(hook)
	}
}

// attemptOf reads the delivery count when the queue tracks one.
func attemptOf(delivery queue.Delivery) int {
	if counted, ok := delivery.(interface{ Attempts() int }); ok && counted.Attempts() > 0 {
		return counted.Attempts()
	}
	return 1
}

// ObserverHook reports worker lifecycle events through the checkout
// observer.
type ObserverHook struct {
	observer *core.Observer
}

func NewObserverHook(observer *core.Observer) *ObserverHook {
	return &ObserverHook{observer: observer}
}

func (h *ObserverHook) OnStart(ctx context.Context, event worker.Event) {
	h.observer.Info(ctx, "checkout_job_started", eventFields(event))
}

func (h *ObserverHook) OnSuccess(ctx context.Context, event worker.Event) {
	h.observer.Info(ctx, "checkout_job_succeeded", eventFields(event))
}

func (h *ObserverHook) OnFailure(ctx context.Context, event worker.Event) {
	h.observer.Error(ctx, "checkout_job_failed", eventFields(event))
}

func (h *ObserverHook) OnRetry(ctx context.Context, event worker.Event) {
	h.observer.Info(ctx, "checkout_job_retry", eventFields(event))
}

func eventFields(event worker.Event) map[string]any {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	fields := map[string]any{
		"attempt":     event.Attempt,
		"delay":       event.Delay.String(),
		"duration_ms": event.Duration.Milliseconds(),
	}
	if message != nil {
		fields["job_id"] = strings.TrimSpace(message.JobID)
		if key := strings.TrimSpace(message.IdempotencyKey); key != "" {
			fields["idempotency_key"] = key
		}
	}
	if event.Err != nil {
		fields["error"] = event.Err.Error()
	}
	return fields
}

var _ worker.Hook = (*ObserverHook)(nil)
