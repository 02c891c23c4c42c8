package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goliatone/go-checkout"
	"github.com/goliatone/go-checkout/adapters/gocommand"
	"github.com/goliatone/go-checkout/adapters/gojob"
	"github.com/goliatone/go-checkout/adapters/gologger"
	"github.com/goliatone/go-checkout/auth"
	checkoutcommand "github.com/goliatone/go-checkout/command"
	"github.com/goliatone/go-checkout/config"
	"github.com/goliatone/go-checkout/core"
	sqlstore "github.com/goliatone/go-checkout/store/sql"
	gocmd "github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-job/queue"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

type runtime struct {
	logs          *gologger.ZerologProvider
	service       *checkout.Service
	client        *persistence.Client
	subscriptions []commanddispatcher.Subscription

	jobQueue interface {
		queue.Enqueuer
		queue.Dequeuer
	}
	jobs *jobqueuecommand.Registry
}

// jobs implies ledger: the job queue lives in the ledger database.
type runtimeOptions struct {
	ledger bool
	jobs   bool
}

func newRuntime(c *cli.Context, options runtimeOptions) (*runtime, error) {
	loader := config.NewLoader(c.String("config"))
	logging, err := loader.Logging()
	if err != nil {
		return nil, err
	}
	if level := strings.TrimSpace(c.String("log-level")); level != "" {
		logging.Level = level
	}
	var out io.Writer = os.Stderr
	if strings.EqualFold(logging.Format, "console") {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	logs := gologger.NewZerologProvider(out, logging.Level)

	buyerTokens := auth.NewBuyerTokenStore()
	if token := c.String("buyer-token"); token != "" {
		buyerTokens.Set(token)
	}
	opts := []checkout.Option{
		checkout.WithLoggerProvider(logs),
		checkout.WithConfigProvider(core.NewCfgxConfigProvider(loader)),
		checkout.WithBackendFactory(checkout.NewBackendFactory(checkout.BackendOptions{BuyerTokens: buyerTokens})),
	}

	rt := &runtime{logs: logs}
	var store *sqlstore.AttemptStore
	if options.ledger || options.jobs {
		persistenceConfig, err := loader.Persistence()
		if err != nil {
			return nil, err
		}
		client, err := sqlstore.Open(c.Context, persistenceConfig)
		if err != nil {
			return nil, err
		}
		factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		rt.client = client
		store = factory.AttemptStore()
		opts = append(opts, checkout.WithAttemptRecorder(store))

		if options.jobs {
			jobQueue, err := gojob.OpenSQLQueue(c.Context, client.DB().DB, persistenceConfig.Driver)
			if err != nil {
				rt.Close()
				return nil, err
			}
			jobs := jobqueuecommand.NewRegistry()
			if err := gocommand.RegisterQueuedCommands(gocommand.NewRegistryAdapter(gocmd.NewRegistry()), jobs, store); err != nil {
				rt.Close()
				return nil, err
			}
			rt.jobQueue = jobQueue
			rt.jobs = jobs
		}
	}

	service, err := checkout.Setup(checkout.Config{}, opts...)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.service = service

	var pruner checkoutcommand.AttemptPruner
	if store != nil {
		pruner = store
	}
	subscriptions, err := gocommand.RegisterCheckoutHandlers(gocommand.NewRegistryAdapter(gocmd.NewRegistry()), service, pruner)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.subscriptions = subscriptions
	return rt, nil
}

// jobWorker drains the ledger job queue and reports through the job logger.
func (r *runtime) jobWorker() (*gojob.Worker, error) {
	if r.jobQueue == nil || r.jobs == nil {
		return nil, fmt.Errorf("flowctl: job queue is not configured")
	}
	observer := core.NewObserver(r.logs.GetLogger("flowctl.jobs"), nil, nil)
	return gojob.NewWorker(r.jobQueue, r.jobs, gojob.WithHooks(gojob.NewObserverHook(observer)))
}

func (r *runtime) Close() {
	if r == nil {
		return
	}
	for _, subscription := range r.subscriptions {
		subscription.Unsubscribe()
	}
	r.subscriptions = nil
	if r.client != nil {
		_ = r.client.Close()
	}
	if r.logs != nil {
		_ = r.logs.Flush()
	}
}

// dispatchResult runs a command and returns the value its handler stored.
func dispatchResult[T any, R any](ctx context.Context, msg T) (R, error) {
	collector := gocmd.NewResult[R]()
	if err := gocommand.Dispatch(gocmd.ContextWithResult(ctx, collector), msg); err != nil {
		var zero R
		return zero, err
	}
	value, ok := collector.Load()
	if !ok {
		var zero R
		return zero, fmt.Errorf("flowctl: command produced no result")
	}
	return value, nil
}

func printJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
