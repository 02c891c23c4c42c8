package query

import (
	"context"

	"github.com/goliatone/go-checkout/core"
)

type FlowReader interface {
	EvaluateFlows(fc core.FlowContext, selection core.PaymentSelection) []core.FlowVerdict
	SelectFlow(ctx context.Context, fc core.FlowContext, selection core.PaymentSelection) (core.Flow, error)
}

type ConnectURLReader interface {
	ConnectURL(ctx context.Context, in core.ConnectURLInput) (string, error)
}

type AttemptEventReader interface {
	AttemptEvents(ctx context.Context, filter core.AttemptEventFilter) (core.AttemptEventPage, error)
}

type EvaluateFlowsQuery struct {
	reader FlowReader
}

func NewEvaluateFlowsQuery(reader FlowReader) *EvaluateFlowsQuery {
	return &EvaluateFlowsQuery{reader: reader}
}

func (q *EvaluateFlowsQuery) Query(_ context.Context, msg EvaluateFlowsMessage) ([]core.FlowVerdict, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: flow reader is required")
	}
	return q.reader.EvaluateFlows(msg.Context, msg.Selection), nil
}

// SelectedFlow describes the flow the selector would run.
type SelectedFlow struct {
	Name   string `json:"name"`
	Inline bool   `json:"inline"`
}

type SelectFlowQuery struct {
	reader FlowReader
}

func NewSelectFlowQuery(reader FlowReader) *SelectFlowQuery {
	return &SelectFlowQuery{reader: reader}
}

func (q *SelectFlowQuery) Query(ctx context.Context, msg SelectFlowMessage) (SelectedFlow, error) {
	if q == nil || q.reader == nil {
		return SelectedFlow{}, queryDependencyError("query: flow reader is required")
	}
	flow, err := q.reader.SelectFlow(ctx, msg.Context, msg.Selection)
	if err != nil {
		return SelectedFlow{}, err
	}
	return SelectedFlow{Name: flow.Name(), Inline: flow.Inline()}, nil
}

type ConnectURLQuery struct {
	reader ConnectURLReader
}

func NewConnectURLQuery(reader ConnectURLReader) *ConnectURLQuery {
	return &ConnectURLQuery{reader: reader}
}

func (q *ConnectURLQuery) Query(ctx context.Context, msg ConnectURLMessage) (string, error) {
	if q == nil || q.reader == nil {
		return "", queryDependencyError("query: connect url reader is required")
	}
	return q.reader.ConnectURL(ctx, msg.Input)
}

type ListAttemptEventsQuery struct {
	reader AttemptEventReader
}

func NewListAttemptEventsQuery(reader AttemptEventReader) *ListAttemptEventsQuery {
	return &ListAttemptEventsQuery{reader: reader}
}

func (q *ListAttemptEventsQuery) Query(
	ctx context.Context,
	msg ListAttemptEventsMessage,
) (core.AttemptEventPage, error) {
	if q == nil || q.reader == nil {
		return core.AttemptEventPage{}, queryDependencyError("query: attempt event reader is required")
	}
	return q.reader.AttemptEvents(ctx, msg.Filter)
}
