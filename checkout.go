// Package checkout wires the flow registry, the credential gateway and the
// GraphQL client into a ready checkout service.
package checkout

import (
	"fmt"

	"github.com/goliatone/go-checkout/auth"
	"github.com/goliatone/go-checkout/core"
	"github.com/goliatone/go-checkout/flows"
	"github.com/goliatone/go-checkout/graphql"
	"github.com/goliatone/go-checkout/transport"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

type Config = core.Config

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type CheckoutRequest = core.CheckoutRequest
type CheckoutResult = core.CheckoutResult
type FlowContext = core.FlowContext
type PaymentSelection = core.PaymentSelection
type MerchantConfig = core.MerchantConfig
type SessionConfig = core.SessionConfig
type ServiceData = core.ServiceData
type ApproveData = core.ApproveData
type AttemptEventFilter = core.AttemptEventFilter
type AttemptEventPage = core.AttemptEventPage

var (
	WithLogger              = core.WithLogger
	WithLoggerProvider      = core.WithLoggerProvider
	WithMetricsRecorder     = core.WithMetricsRecorder
	WithTracerProvider      = core.WithTracerProvider
	WithErrorMapper         = core.WithErrorMapper
	WithConfigProvider      = core.WithConfigProvider
	WithOptionsResolver     = core.WithOptionsResolver
	WithCredentialGateway   = core.WithCredentialGateway
	WithGraphQLFacade       = core.WithGraphQLFacade
	WithFraudnetLoader      = core.WithFraudnetLoader
	WithWebCheckoutLauncher = core.WithWebCheckoutLauncher
	WithAttemptRecorder     = core.WithAttemptRecorder
	WithFlowSelector        = core.WithFlowSelector
	WithFlowSelectorFactory = core.WithFlowSelectorFactory
	WithBackendFactory      = core.WithBackendFactory
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// BackendOptions customizes the collaborators built by NewBackendFactory.
// Zero values fall back to a default HTTP client, an in-memory token cache
// keyed by the configured TTL and a fresh buyer token store.
type BackendOptions struct {
	HTTPClient  transport.HTTPDoer
	TokenCache  repositorycache.CacheService
	BuyerTokens *auth.BuyerTokenStore
}

func NewBackendFactory(options BackendOptions) core.BackendFactory {
	return func(cfg core.Config, observer *core.Observer) (core.CredentialGateway, core.GraphQLFacade, error) {
		cacheService := options.TokenCache
		if cacheService == nil {
			cacheConfig := repositorycache.DefaultConfig()
			if cfg.TokenCacheTTL > 0 {
				cacheConfig.TTL = cfg.TokenCacheTTL
			}
			created, err := repositorycache.NewCacheService(cacheConfig)
			if err != nil {
				return nil, nil, fmt.Errorf("checkout: token cache: %w", err)
			}
			cacheService = created
		}

		exchanger, err := auth.NewClientCredentialsExchanger(
			auth.ClientCredentialsConfig{TokenURL: cfg.AuthAPIURL, RequestTimeout: cfg.RequestTimeout},
			transport.NewRESTAdapter(options.HTTPClient),
			cacheService,
			observer,
		)
		if err != nil {
			return nil, nil, err
		}
		client, err := graphql.NewClient(
			transport.NewGraphQLAdapter(cfg.GraphQLURL, options.HTTPClient),
			cfg.RequestTimeout,
			observer,
		)
		if err != nil {
			return nil, nil, err
		}

		buyerTokens := options.BuyerTokens
		if buyerTokens == nil {
			buyerTokens = auth.NewBuyerTokenStore()
		}
		gateway, err := auth.NewGateway(exchanger, buyerTokens, client)
		if err != nil {
			return nil, nil, err
		}
		return gateway, client, nil
	}
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

// Setup builds a service with the default backend and flow registry. Caller
// options are applied last and override the defaults.
func Setup(cfg Config, opts ...Option) (*Service, error) {
	defaults := []Option{
		core.WithBackendFactory(NewBackendFactory(BackendOptions{})),
		core.WithWebCheckoutLauncher(core.UnconfiguredWebCheckoutLauncher{}),
		core.WithFlowSelectorFactory(flows.SelectorFactory),
	}
	return core.Setup(cfg, append(defaults, opts...)...)
}
