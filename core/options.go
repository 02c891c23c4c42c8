package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
	"go.opentelemetry.io/otel/trace"
)

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// FlowSelectorFactory builds the flow selector once the service has resolved
// its collaborators and observer.
type FlowSelectorFactory func(deps ServiceDependencies, observer *Observer) (FlowSelector, error)

// BackendFactory builds the credential gateway and GraphQL facade from the
// resolved configuration.
type BackendFactory func(cfg Config, observer *Observer) (CredentialGateway, GraphQLFacade, error)

type serviceBuilder struct {
	runtimeConfig       Config
	logger              Logger
	loggerProvider      LoggerProvider
	metricsRecorder     MetricsRecorder
	tracerProvider      trace.TracerProvider
	errorMapper         ErrorMapper
	configProvider      ConfigProvider
	optionsResolver     OptionsResolver
	credentials         CredentialGateway
	graphQL             GraphQLFacade
	fraudnet            FraudnetLoader
	webCheckout         WebCheckoutLauncher
	attemptRecorder     AttemptRecorder
	flowSelector        FlowSelector
	flowSelectorFactory FlowSelectorFactory
	backendFactory      BackendFactory
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(b *serviceBuilder) {
		b.tracerProvider = provider
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithCredentialGateway(gateway CredentialGateway) Option {
	return func(b *serviceBuilder) {
		b.credentials = gateway
	}
}

func WithGraphQLFacade(facade GraphQLFacade) Option {
	return func(b *serviceBuilder) {
		b.graphQL = facade
	}
}

func WithFraudnetLoader(loader FraudnetLoader) Option {
	return func(b *serviceBuilder) {
		b.fraudnet = loader
	}
}

func WithWebCheckoutLauncher(launcher WebCheckoutLauncher) Option {
	return func(b *serviceBuilder) {
		b.webCheckout = launcher
	}
}

func WithAttemptRecorder(recorder AttemptRecorder) Option {
	return func(b *serviceBuilder) {
		b.attemptRecorder = recorder
	}
}

func WithFlowSelector(selector FlowSelector) Option {
	return func(b *serviceBuilder) {
		b.flowSelector = selector
	}
}

func WithFlowSelectorFactory(factory FlowSelectorFactory) Option {
	return func(b *serviceBuilder) {
		b.flowSelectorFactory = factory
	}
}

func WithBackendFactory(factory BackendFactory) Option {
	return func(b *serviceBuilder) {
		b.backendFactory = factory
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("checkout", nil, nil)
	return serviceBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		fraudnet:        NopFraudnetLoader{},
		attemptRecorder: NopAttemptRecorder{},
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return checkoutErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	raw, err = normalizeDurations(raw, "request_timeout", "token_cache_ttl")
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	for key, value := range map[string]string{
		"service_name": cfg.ServiceName,
		"env":          cfg.Env,
		"auth_api_url": cfg.AuthAPIURL,
		"graphql_url":  cfg.GraphQLURL,
	} {
		if includeZero || strings.TrimSpace(value) != "" {
			layer[key] = strings.TrimSpace(value)
		}
	}
	if includeZero || cfg.RequestTimeout > 0 {
		layer["request_timeout"] = cfg.RequestTimeout
	}
	if includeZero || cfg.TokenCacheTTL > 0 {
		layer["token_cache_ttl"] = cfg.TokenCacheTTL
	}
	return layer
}

// normalizeDurations accepts "30s" style strings and integer seconds for the
// given keys.
func normalizeDurations(raw map[string]any, keys ...string) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(raw))
	for key, value := range raw {
		out[key] = value
	}
	for _, key := range keys {
		value, ok := out[key]
		if !ok || value == nil {
			continue
		}
		switch typed := value.(type) {
		case time.Duration:
		case string:
			parsed, err := time.ParseDuration(strings.TrimSpace(typed))
			if err != nil {
				return nil, fmt.Errorf("core: %s %q is invalid: %w", key, typed, err)
			}
			out[key] = parsed
		case int:
			out[key] = time.Duration(typed) * time.Second
		case int64:
			out[key] = time.Duration(typed) * time.Second
		case float64:
			out[key] = time.Duration(typed * float64(time.Second))
		default:
			return nil, fmt.Errorf("core: %s has unsupported type %T", key, value)
		}
	}
	return out, nil
}
