package gocommand

import (
	"context"
	"fmt"
	"strings"

	checkoutcommand "github.com/goliatone/go-checkout/command"
	"github.com/goliatone/go-checkout/core"
	checkoutquery "github.com/goliatone/go-checkout/query"
	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
)

// QueueResolverKey names the resolver that mirrors commands into a go-job
// queue registry.
const QueueResolverKey = "queue"

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) RegisterQuery(qry any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(qry)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func SubscribeCommand[T any](cmd command.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func SubscribeQuery[T any, R any](qry command.Querier[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	subscription := SubscribeQuery(qry, runnerOpts...)
	if err := adapter.RegisterQuery(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// CheckoutService is everything the checkout command and query handlers
// delegate to. core.Service satisfies it.
type CheckoutService interface {
	checkoutcommand.CheckoutService
	checkoutquery.FlowReader
	checkoutquery.ConnectURLReader
	checkoutquery.AttemptEventReader
}

// RegisterCheckoutHandlers registers and subscribes every checkout command
// and query. The prune command is only wired when pruner is set. On error the
// subscriptions created so far are released.
func RegisterCheckoutHandlers(
	adapter *RegistryAdapter,
	service CheckoutService,
	pruner checkoutcommand.AttemptPruner,
	runnerOpts ...runner.Option,
) ([]commanddispatcher.Subscription, error) {
	if service == nil {
		return nil, fmt.Errorf("gocommand: checkout service is required")
	}
	subscriptions := make([]commanddispatcher.Subscription, 0, 10)
	release := func() {
		for _, subscription := range subscriptions {
			if subscription != nil {
				subscription.Unsubscribe()
			}
		}
	}
	keep := func(subscription commanddispatcher.Subscription, err error) error {
		if err != nil {
			release()
			return err
		}
		subscriptions = append(subscriptions, subscription)
		return nil
	}

	if err := keep(RegisterAndSubscribe[checkoutcommand.CheckoutMessage](adapter, checkoutcommand.NewCheckoutCommand(service), runnerOpts...)); err != nil {
		return nil, err
	}
	if err := keep(RegisterAndSubscribe[checkoutcommand.CreateAccessTokenMessage](adapter, checkoutcommand.NewCreateAccessTokenCommand(service), runnerOpts...)); err != nil {
		return nil, err
	}
	if err := keep(RegisterAndSubscribe[checkoutcommand.ExchangeSessionTokenMessage](adapter, checkoutcommand.NewExchangeSessionTokenCommand(service), runnerOpts...)); err != nil {
		return nil, err
	}
	if err := keep(RegisterAndSubscribe[checkoutcommand.ExchangeAuthCodeMessage](adapter, checkoutcommand.NewExchangeAuthCodeCommand(service), runnerOpts...)); err != nil {
		return nil, err
	}
	if pruner != nil {
		if err := keep(RegisterAndSubscribe[checkoutcommand.PruneAttemptEventsMessage](adapter, checkoutcommand.NewPruneAttemptEventsCommand(pruner), runnerOpts...)); err != nil {
			return nil, err
		}
	}

	if err := keep(RegisterAndSubscribeQuery[checkoutquery.EvaluateFlowsMessage, []core.FlowVerdict](adapter, checkoutquery.NewEvaluateFlowsQuery(service), runnerOpts...)); err != nil {
		return nil, err
	}
	if err := keep(RegisterAndSubscribeQuery[checkoutquery.SelectFlowMessage, checkoutquery.SelectedFlow](adapter, checkoutquery.NewSelectFlowQuery(service), runnerOpts...)); err != nil {
		return nil, err
	}
	if err := keep(RegisterAndSubscribeQuery[checkoutquery.ConnectURLMessage, string](adapter, checkoutquery.NewConnectURLQuery(service), runnerOpts...)); err != nil {
		return nil, err
	}
	if err := keep(RegisterAndSubscribeQuery[checkoutquery.ListAttemptEventsMessage, core.AttemptEventPage](adapter, checkoutquery.NewListAttemptEventsQuery(service), runnerOpts...)); err != nil {
		return nil, err
	}
	return subscriptions, nil
}

// RegisterQueuedCommands mirrors the checkout commands that can run in the
// background into queueRegistry. Queries stay out of this registry because
// the queue resolver only accepts handlers with Execute.
func RegisterQueuedCommands(
	adapter *RegistryAdapter,
	queueRegistry *jobqueuecommand.Registry,
	pruner checkoutcommand.AttemptPruner,
) error {
	if pruner == nil {
		return fmt.Errorf("gocommand: attempt pruner is required")
	}
	if err := adapter.AddQueueResolver(QueueResolverKey, queueRegistry); err != nil {
		return err
	}
	if err := adapter.RegisterCommand(checkoutcommand.NewPruneAttemptEventsCommand(pruner)); err != nil {
		return err
	}
	return adapter.Initialize()
}
