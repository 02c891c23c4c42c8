package command

import (
	"strings"
	"time"

	"github.com/goliatone/go-checkout/core"
)

const (
	TypeCheckout             = "checkout.command.checkout"
	TypeCreateAccessToken    = "checkout.command.access_token.create"
	TypeExchangeSessionToken = "checkout.command.session_token.exchange"
	TypeExchangeAuthCode     = "checkout.command.auth_code.exchange"
	TypePruneAttemptEvents   = "checkout.command.attempt_events.prune"
)

type CheckoutMessage struct {
	Request core.CheckoutRequest
}

func (CheckoutMessage) Type() string { return TypeCheckout }

func (m CheckoutMessage) Validate() error {
	merchant := m.Request.Context.Merchant
	if strings.TrimSpace(merchant.ClientID) == "" {
		return commandValidationError("client_id", "client id is required")
	}
	if merchant.CreateOrder == nil {
		return commandValidationError("create_order", "create order callback is required")
	}
	if merchant.OnApprove == nil {
		return commandValidationError("on_approve", "approve callback is required")
	}
	if strings.TrimSpace(string(m.Request.Selection.FundingSource)) == "" {
		return commandValidationError("funding_source", "funding source is required")
	}
	return nil
}

type CreateAccessTokenMessage struct {
	ClientID string
}

func (CreateAccessTokenMessage) Type() string { return TypeCreateAccessToken }

func (m CreateAccessTokenMessage) Validate() error {
	if strings.TrimSpace(m.ClientID) == "" {
		return commandValidationError("client_id", "client id is required")
	}
	return nil
}

type ExchangeSessionTokenMessage struct {
	SessionUID string
}

func (ExchangeSessionTokenMessage) Type() string { return TypeExchangeSessionToken }

func (m ExchangeSessionTokenMessage) Validate() error {
	if strings.TrimSpace(m.SessionUID) == "" {
		return commandValidationError("session_uid", "session uid is required")
	}
	return nil
}

type ExchangeAuthCodeMessage struct{}

func (ExchangeAuthCodeMessage) Type() string { return TypeExchangeAuthCode }

func (ExchangeAuthCodeMessage) Validate() error { return nil }

type PruneAttemptEventsMessage struct {
	OlderThan time.Duration `json:"older_than"`
}

func (PruneAttemptEventsMessage) Type() string { return TypePruneAttemptEvents }

func (m PruneAttemptEventsMessage) Validate() error {
	if m.OlderThan <= 0 {
		return commandValidationError("older_than", "retention window must be positive")
	}
	return nil
}
