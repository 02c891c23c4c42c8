package core

import (
	"context"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
)

type Service struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	observer        *Observer
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	credentials     CredentialGateway
	graphQL         GraphQLFacade
	fraudnet        FraudnetLoader
	webCheckout     WebCheckoutLauncher
	attemptRecorder AttemptRecorder
	flows           FlowSelector
}

type ServiceDependencies struct {
	Config          Config
	Logger          Logger
	LoggerProvider  LoggerProvider
	Observer        *Observer
	ErrorMapper     ErrorMapper
	ConfigProvider  ConfigProvider
	OptionsResolver OptionsResolver
	Credentials     CredentialGateway
	GraphQL         GraphQLFacade
	Fraudnet        FraudnetLoader
	WebCheckout     WebCheckoutLauncher
	AttemptRecorder AttemptRecorder
	FlowSelector    FlowSelector
}

type CheckoutRequest struct {
	Context   FlowContext
	Selection PaymentSelection
}

type CheckoutResult struct {
	Flow   string
	Inline bool
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("checkout", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("checkout"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.fraudnet == nil {
		builder.fraudnet = NopFraudnetLoader{}
	}
	if builder.attemptRecorder == nil {
		builder.attemptRecorder = NopAttemptRecorder{}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	service := &Service{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		observer:        NewObserver(logger, builder.metricsRecorder, builder.tracerProvider),
		errorMapper:     builder.errorMapper,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		credentials:     builder.credentials,
		graphQL:         builder.graphQL,
		fraudnet:        builder.fraudnet,
		webCheckout:     builder.webCheckout,
		attemptRecorder: builder.attemptRecorder,
		flows:           builder.flowSelector,
	}

	if builder.backendFactory != nil && (service.credentials == nil || service.graphQL == nil) {
		credentials, graphQL, buildErr := builder.backendFactory(service.config, service.observer)
		if buildErr != nil {
			return nil, mapBuildError(builder.errorMapper, buildErr)
		}
		if service.credentials == nil {
			service.credentials = credentials
		}
		if service.graphQL == nil {
			service.graphQL = graphQL
		}
	}

	if service.flows == nil && builder.flowSelectorFactory != nil {
		selector, buildErr := builder.flowSelectorFactory(service.Dependencies(), service.observer)
		if buildErr != nil {
			return nil, mapBuildError(builder.errorMapper, buildErr)
		}
		service.flows = selector
	}
	return service, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Observer() *Observer {
	if s == nil {
		return nil
	}
	return s.observer
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Config:          s.config,
		Logger:          s.logger,
		LoggerProvider:  s.loggerProvider,
		Observer:        s.observer,
		ErrorMapper:     s.errorMapper,
		ConfigProvider:  s.configProvider,
		OptionsResolver: s.optionsResolver,
		Credentials:     s.credentials,
		GraphQL:         s.graphQL,
		Fraudnet:        s.fraudnet,
		WebCheckout:     s.webCheckout,
		AttemptRecorder: s.attemptRecorder,
		FlowSelector:    s.flows,
	}
}

// EvaluateFlows reports eligibility of every registered flow without side
// effects.
func (s *Service) EvaluateFlows(fc FlowContext, selection PaymentSelection) []FlowVerdict {
	if s == nil || s.flows == nil {
		return []FlowVerdict{}
	}
	return s.flows.Evaluate(fc, selection)
}

func (s *Service) SelectFlow(ctx context.Context, fc FlowContext, selection PaymentSelection) (Flow, error) {
	if s == nil || s.flows == nil {
		return nil, NewInternalError("core: flow selector is not configured", nil)
	}
	return s.flows.Select(ctx, fc, selection)
}

// Checkout selects a flow, sets it up and runs one attempt. Errors from the
// flow are returned unchanged so discriminants survive.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	if err := validateCheckoutRequest(req); err != nil {
		return CheckoutResult{}, err
	}
	flow, err := s.SelectFlow(ctx, req.Context, req.Selection)
	if err != nil {
		return CheckoutResult{}, err
	}
	result := CheckoutResult{Flow: flow.Name(), Inline: flow.Inline()}

	if err := flow.Setup(ctx, req.Context); err != nil {
		return result, err
	}
	instance, err := flow.Init(ctx, req.Context, req.Selection)
	if err != nil {
		return result, err
	}
	startErr := instance.Start(ctx)
	if closeErr := instance.Close(ctx); closeErr != nil && startErr == nil {
		return result, closeErr
	}
	return result, startErr
}

func (s *Service) AccessToken(ctx context.Context, clientID string) (string, error) {
	if s == nil || s.credentials == nil {
		return "", NewInternalError("core: credential gateway is not configured", nil)
	}
	if strings.TrimSpace(clientID) == "" {
		return "", NewBadInputError("core: client id is required", nil)
	}
	return s.credentials.CreateAccessToken(ctx, strings.TrimSpace(clientID))
}

func (s *Service) ConnectURL(ctx context.Context, in ConnectURLInput) (string, error) {
	if s == nil || s.graphQL == nil {
		return "", NewInternalError("core: graphql facade is not configured", nil)
	}
	if strings.TrimSpace(in.ClientID) == "" {
		return "", NewBadInputError("core: client id is required", nil)
	}
	if len(in.Scopes) == 0 {
		return "", NewBadInputError("core: connect scopes are required", nil)
	}
	return s.graphQL.GetConnectURL(ctx, in)
}

func (s *Service) SessionToken(ctx context.Context, sessionUID string) (string, error) {
	if s == nil || s.graphQL == nil {
		return "", NewInternalError("core: graphql facade is not configured", nil)
	}
	if strings.TrimSpace(sessionUID) == "" {
		return "", NewBadInputError("core: session uid is required", nil)
	}
	return s.graphQL.ExchangeSessionToken(ctx, strings.TrimSpace(sessionUID))
}

func (s *Service) AuthCode(ctx context.Context) (string, error) {
	if s == nil || s.graphQL == nil || s.credentials == nil {
		return "", NewInternalError("core: auth code exchange is not configured", nil)
	}
	buyerToken, ok := s.credentials.BuyerAccessToken(ctx)
	if !ok {
		return "", NewBuyerTokenNotFoundError()
	}
	return s.graphQL.ExchangeAccessTokenForAuthCode(ctx, buyerToken)
}

func validateCheckoutRequest(req CheckoutRequest) error {
	merchant := req.Context.Merchant
	if strings.TrimSpace(merchant.ClientID) == "" {
		return NewBadInputError("core: client id is required", nil)
	}
	if merchant.CreateOrder == nil {
		return NewBadInputError("core: create order callback is required", nil)
	}
	if merchant.OnApprove == nil {
		return NewBadInputError("core: approve callback is required", nil)
	}
	if strings.TrimSpace(string(req.Selection.FundingSource)) == "" {
		return NewBadInputError("core: funding source is required", nil)
	}
	return nil
}

// AttemptEvents lists ledger entries when the configured recorder can read
// them back.
func (s *Service) AttemptEvents(ctx context.Context, filter AttemptEventFilter) (AttemptEventPage, error) {
	if s == nil {
		return AttemptEventPage{}, NewInternalError("core: service is nil", nil)
	}
	reader, ok := s.attemptRecorder.(AttemptEventReader)
	if !ok {
		return AttemptEventPage{}, NewInternalError("core: attempt recorder does not support listing", nil)
	}
	if filter.PerPage < 0 || filter.Page < 0 {
		return AttemptEventPage{}, NewBadInputError("core: page and per_page must not be negative", nil)
	}
	return reader.ListAttemptEvents(ctx, filter)
}
