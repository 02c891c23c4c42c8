package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type attemptEventRecord struct {
	bun.BaseModel `bun:"table:checkout_attempt_events,alias:cae"`

	ID           string    `bun:"id,pk"`
	AttemptID    string    `bun:"attempt_id,notnull"`
	Flow         string    `bun:"flow,notnull"`
	FromState    string    `bun:"from_state,notnull"`
	ToState      string    `bun:"to_state,notnull"`
	OrderID      string    `bun:"order_id,notnull"`
	PayerID      string    `bun:"payer_id,notnull"`
	FailureCode  string    `bun:"failure_code,notnull"`
	ErrorMessage string    `bun:"error_message,notnull"`
	OccurredAt   time.Time `bun:"occurred_at,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
