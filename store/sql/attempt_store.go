package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-checkout/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

const defaultAttemptEventsPerPage = 25

// AttemptStore is the durable attempt ledger. It records every state
// transition a checkout attempt goes through.
type AttemptStore struct {
	db   *bun.DB
	repo repository.Repository[*attemptEventRecord]
	now  func() time.Time
}

func NewAttemptStore(db *bun.DB) (*AttemptStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*attemptEventRecord](db, attemptEventHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid attempt event repository wiring: %w", err)
		}
	}
	return &AttemptStore{
		db:   db,
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *AttemptStore) Record(ctx context.Context, event core.AttemptEvent) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: attempt store is not configured")
	}
	record := attemptEventToRecord(event)
	if record.AttemptID == "" {
		return fmt.Errorf("sqlstore: attempt event requires attempt_id")
	}
	if record.Flow == "" || record.ToState == "" {
		return fmt.Errorf("sqlstore: attempt event requires flow and to_state")
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = s.now()
	}
	record.CreatedAt = s.now()
	_, err := s.repo.Create(ctx, record)
	return err
}

func (s *AttemptStore) ListAttemptEvents(ctx context.Context, filter core.AttemptEventFilter) (core.AttemptEventPage, error) {
	if s == nil || s.repo == nil {
		return core.AttemptEventPage{}, fmt.Errorf("sqlstore: attempt store is not configured")
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = defaultAttemptEventsPerPage
	}
	offset := (page - 1) * perPage

	selectors := []repository.SelectCriteria{
		repository.OrderBy("occurred_at ASC"),
		repository.SelectPaginate(perPage, offset),
	}
	if attemptID := strings.TrimSpace(filter.AttemptID); attemptID != "" {
		selectors = append(selectors, repository.SelectBy("attempt_id", "=", attemptID))
	}
	if flow := strings.TrimSpace(filter.Flow); flow != "" {
		selectors = append(selectors, repository.SelectBy("flow", "=", flow))
	}
	if orderID := strings.TrimSpace(filter.OrderID); orderID != "" {
		selectors = append(selectors, repository.SelectBy("order_id", "=", orderID))
	}
	if !filter.Since.IsZero() {
		selectors = append(selectors, repository.SelectByTimetz("occurred_at", ">=", filter.Since.UTC()))
	}

	records, total, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return core.AttemptEventPage{}, err
	}
	events := make([]core.AttemptEvent, 0, len(records))
	for _, record := range records {
		events = append(events, attemptRecordToDomain(record))
	}
	return core.AttemptEventPage{
		Events:  events,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}, nil
}

// Prune deletes events that occurred before now minus ttl.
func (s *AttemptStore) Prune(ctx context.Context, ttl time.Duration) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: attempt store is not configured")
	}
	if ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-ttl)
	res, err := s.db.NewDelete().
		Model((*attemptEventRecord)(nil)).
		Where("occurred_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}
