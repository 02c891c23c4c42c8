package command

import (
	"context"
	"time"

	"github.com/goliatone/go-checkout/core"
	gocmd "github.com/goliatone/go-command"
)

// CheckoutService is the mutating surface of core.Service.
type CheckoutService interface {
	Checkout(ctx context.Context, req core.CheckoutRequest) (core.CheckoutResult, error)
	AccessToken(ctx context.Context, clientID string) (string, error)
	SessionToken(ctx context.Context, sessionUID string) (string, error)
	AuthCode(ctx context.Context) (string, error)
}

type CheckoutCommand struct {
	service CheckoutService
}

func NewCheckoutCommand(service CheckoutService) *CheckoutCommand {
	return &CheckoutCommand{service: service}
}

// Execute stores the selected flow result even when the attempt fails, so
// callers can tell which flow produced the error.
func (c *CheckoutCommand) Execute(ctx context.Context, msg CheckoutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: checkout service is required")
	}
	out, err := c.service.Checkout(ctx, msg.Request)
	if out.Flow != "" {
		storeResult(ctx, out)
	}
	return err
}

type CreateAccessTokenCommand struct {
	service CheckoutService
}

func NewCreateAccessTokenCommand(service CheckoutService) *CreateAccessTokenCommand {
	return &CreateAccessTokenCommand{service: service}
}

func (c *CreateAccessTokenCommand) Execute(ctx context.Context, msg CreateAccessTokenMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: access token service is required")
	}
	token, err := c.service.AccessToken(ctx, msg.ClientID)
	if err != nil {
		return err
	}
	storeResult(ctx, token)
	return nil
}

type ExchangeSessionTokenCommand struct {
	service CheckoutService
}

func NewExchangeSessionTokenCommand(service CheckoutService) *ExchangeSessionTokenCommand {
	return &ExchangeSessionTokenCommand{service: service}
}

func (c *ExchangeSessionTokenCommand) Execute(ctx context.Context, msg ExchangeSessionTokenMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: session token service is required")
	}
	token, err := c.service.SessionToken(ctx, msg.SessionUID)
	if err != nil {
		return err
	}
	storeResult(ctx, token)
	return nil
}

type ExchangeAuthCodeCommand struct {
	service CheckoutService
}

func NewExchangeAuthCodeCommand(service CheckoutService) *ExchangeAuthCodeCommand {
	return &ExchangeAuthCodeCommand{service: service}
}

func (c *ExchangeAuthCodeCommand) Execute(ctx context.Context, _ ExchangeAuthCodeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: auth code service is required")
	}
	code, err := c.service.AuthCode(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, code)
	return nil
}

// AttemptPruner deletes ledger entries older than the retention window.
type AttemptPruner interface {
	Prune(ctx context.Context, olderThan time.Duration) (int, error)
}

type PruneAttemptEventsCommand struct {
	pruner AttemptPruner
}

func NewPruneAttemptEventsCommand(pruner AttemptPruner) *PruneAttemptEventsCommand {
	return &PruneAttemptEventsCommand{pruner: pruner}
}

func (c *PruneAttemptEventsCommand) Execute(ctx context.Context, msg PruneAttemptEventsMessage) error {
	if c == nil || c.pruner == nil {
		return commandDependencyError("command: attempt pruner is required")
	}
	deleted, err := c.pruner.Prune(ctx, msg.OlderThan)
	if err != nil {
		return err
	}
	storeResult(ctx, deleted)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
