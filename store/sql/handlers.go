package sqlstore

import (
	"strings"

	"github.com/goliatone/go-checkout/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func attemptEventHandlers() repository.ModelHandlers[*attemptEventRecord] {
	return repository.ModelHandlers[*attemptEventRecord]{
		NewRecord: func() *attemptEventRecord {
			return &attemptEventRecord{}
		},
		GetID: func(record *attemptEventRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *attemptEventRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *attemptEventRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func attemptEventToRecord(event core.AttemptEvent) *attemptEventRecord {
	return &attemptEventRecord{
		ID:           uuid.NewString(),
		AttemptID:    strings.TrimSpace(event.AttemptID),
		Flow:         strings.TrimSpace(event.Flow),
		FromState:    string(event.From),
		ToState:      string(event.To),
		OrderID:      strings.TrimSpace(event.OrderID),
		PayerID:      strings.TrimSpace(event.PayerID),
		FailureCode:  strings.TrimSpace(event.FailureCode),
		ErrorMessage: event.Error,
		OccurredAt:   event.OccurredAt.UTC(),
	}
}

func attemptRecordToDomain(record *attemptEventRecord) core.AttemptEvent {
	if record == nil {
		return core.AttemptEvent{}
	}
	return core.AttemptEvent{
		AttemptID:   record.AttemptID,
		Flow:        record.Flow,
		From:        core.AttemptState(record.FromState),
		To:          core.AttemptState(record.ToState),
		OrderID:     record.OrderID,
		PayerID:     record.PayerID,
		FailureCode: record.FailureCode,
		Error:       record.ErrorMessage,
		OccurredAt:  record.OccurredAt.UTC(),
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
