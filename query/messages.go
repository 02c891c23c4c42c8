package query

import (
	"strings"

	"github.com/goliatone/go-checkout/core"
)

const (
	TypeEvaluateFlows     = "checkout.query.flows.evaluate"
	TypeSelectFlow        = "checkout.query.flows.select"
	TypeConnectURL        = "checkout.query.connect_url"
	TypeListAttemptEvents = "checkout.query.attempt_events.list"
)

type EvaluateFlowsMessage struct {
	Context   core.FlowContext
	Selection core.PaymentSelection
}

func (EvaluateFlowsMessage) Type() string { return TypeEvaluateFlows }

func (m EvaluateFlowsMessage) Validate() error {
	if strings.TrimSpace(string(m.Selection.FundingSource)) == "" {
		return queryValidationError("funding_source", "funding source is required")
	}
	return nil
}

type SelectFlowMessage struct {
	Context   core.FlowContext
	Selection core.PaymentSelection
}

func (SelectFlowMessage) Type() string { return TypeSelectFlow }

func (m SelectFlowMessage) Validate() error {
	if strings.TrimSpace(string(m.Selection.FundingSource)) == "" {
		return queryValidationError("funding_source", "funding source is required")
	}
	return nil
}

type ConnectURLMessage struct {
	Input core.ConnectURLInput
}

func (ConnectURLMessage) Type() string { return TypeConnectURL }

func (m ConnectURLMessage) Validate() error {
	if strings.TrimSpace(m.Input.ClientID) == "" {
		return queryValidationError("client_id", "client id is required")
	}
	if len(m.Input.Scopes) == 0 {
		return queryValidationError("scopes", "at least one scope is required")
	}
	return nil
}

type ListAttemptEventsMessage struct {
	Filter core.AttemptEventFilter
}

func (ListAttemptEventsMessage) Type() string { return TypeListAttemptEvents }

func (m ListAttemptEventsMessage) Validate() error {
	if m.Filter.Page < 0 {
		return queryValidationError("page", "page must be >= 0")
	}
	if m.Filter.PerPage < 0 {
		return queryValidationError("per_page", "per_page must be >= 0")
	}
	return nil
}
