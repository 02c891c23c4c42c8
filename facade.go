package checkout

import (
	"fmt"

	checkoutcommand "github.com/goliatone/go-checkout/command"
	checkoutquery "github.com/goliatone/go-checkout/query"
)

type CommandQueryService interface {
	checkoutcommand.CheckoutService
	checkoutquery.FlowReader
	checkoutquery.ConnectURLReader
}

type Commands struct {
	Checkout             *checkoutcommand.CheckoutCommand
	CreateAccessToken    *checkoutcommand.CreateAccessTokenCommand
	ExchangeSessionToken *checkoutcommand.ExchangeSessionTokenCommand
	ExchangeAuthCode     *checkoutcommand.ExchangeAuthCodeCommand
	PruneAttemptEvents   *checkoutcommand.PruneAttemptEventsCommand
}

type Queries struct {
	EvaluateFlows     *checkoutquery.EvaluateFlowsQuery
	SelectFlow        *checkoutquery.SelectFlowQuery
	ConnectURL        *checkoutquery.ConnectURLQuery
	ListAttemptEvents *checkoutquery.ListAttemptEventsQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	attemptReader checkoutquery.AttemptEventReader
	pruner        checkoutcommand.AttemptPruner
}

func WithAttemptEventReader(reader checkoutquery.AttemptEventReader) FacadeOption {
	return func(options *facadeOptions) {
		options.attemptReader = reader
	}
}

func WithAttemptPruner(pruner checkoutcommand.AttemptPruner) FacadeOption {
	return func(options *facadeOptions) {
		options.pruner = pruner
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("checkout: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.attemptReader
	if reader == nil {
		if candidate, ok := service.(checkoutquery.AttemptEventReader); ok {
			reader = candidate
		}
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		Checkout:             checkoutcommand.NewCheckoutCommand(service),
		CreateAccessToken:    checkoutcommand.NewCreateAccessTokenCommand(service),
		ExchangeSessionToken: checkoutcommand.NewExchangeSessionTokenCommand(service),
		ExchangeAuthCode:     checkoutcommand.NewExchangeAuthCodeCommand(service),
	}
	if cfg.pruner != nil {
		facade.commands.PruneAttemptEvents = checkoutcommand.NewPruneAttemptEventsCommand(cfg.pruner)
	}
	facade.queries = Queries{
		EvaluateFlows: checkoutquery.NewEvaluateFlowsQuery(service),
		SelectFlow:    checkoutquery.NewSelectFlowQuery(service),
		ConnectURL:    checkoutquery.NewConnectURLQuery(service),
	}
	if reader != nil {
		facade.queries.ListAttemptEvents = checkoutquery.NewListAttemptEventsQuery(reader)
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
