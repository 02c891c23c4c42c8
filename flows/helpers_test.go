package flows

import (
	"context"
	"sync"

	"github.com/goliatone/go-checkout/core"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
	flushes  *int
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	flushes := 0
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}, flushes: &flushes}
}

func (l *captureLogger) WithFields(fields map[string]any) core.Logger {
	merged := cloneFieldMap(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged, flushes: l.flushes}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) core.Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFieldMap(l.defaults), flushes: l.flushes}
}

func (l *captureLogger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.flushes++
	return nil
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFieldMap(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]capturedLog, len(*l.records))
	copy(out, *l.records)
	return out
}

func (l *captureLogger) find(msg string) (capturedLog, bool) {
	for _, entry := range l.snapshot() {
		if entry.msg == msg {
			return entry, true
		}
	}
	return capturedLog{}, false
}

func cloneFieldMap(input map[string]any) map[string]any {
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}
	return output
}

type stubAuthorizer struct {
	calls  []core.AuthorizeInstrumentInput
	result core.AuthorizeInstrumentResult
	err    error
}

func (s *stubAuthorizer) AuthorizeInstrumentPayment(_ context.Context, in core.AuthorizeInstrumentInput) (core.AuthorizeInstrumentResult, error) {
	s.calls = append(s.calls, in)
	return s.result, s.err
}

type stubBuyerTokens struct {
	token string
	ok    bool
}

func (s stubBuyerTokens) BuyerAccessToken(context.Context) (string, bool) {
	return s.token, s.ok
}

type stubUpgrader struct {
	calls []upgradeCall
	err   error
}

type upgradeCall struct {
	facilitatorToken string
	input            core.UpgradeScopeInput
}

func (s *stubUpgrader) UpgradeAccessTokenScope(_ context.Context, facilitatorToken string, in core.UpgradeScopeInput) error {
	s.calls = append(s.calls, upgradeCall{facilitatorToken: facilitatorToken, input: in})
	return s.err
}

type stubFraudnet struct {
	calls []core.FraudnetInput
	err   error
}

func (s *stubFraudnet) LoadFraudnet(_ context.Context, in core.FraudnetInput) error {
	s.calls = append(s.calls, in)
	return s.err
}

type stubLauncher struct {
	calls  []core.WebCheckoutRequest
	result core.WebCheckoutResult
	err    error
}

func (s *stubLauncher) LaunchWebCheckout(_ context.Context, req core.WebCheckoutRequest) (core.WebCheckoutResult, error) {
	s.calls = append(s.calls, req)
	return s.result, s.err
}

type memoryRecorder struct {
	mu     sync.Mutex
	events []core.AttemptEvent
}

func (r *memoryRecorder) Record(_ context.Context, event core.AttemptEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *memoryRecorder) states(flow string) []core.AttemptState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []core.AttemptState{}
	for _, event := range r.events {
		if event.Flow == flow {
			out = append(out, event.To)
		}
	}
	return out
}

// countingFlow wraps a flow and counts Init and Start calls.
type countingFlow struct {
	core.Flow
	inits  int
	starts int
}

func (f *countingFlow) Init(ctx context.Context, fc core.FlowContext, selection core.PaymentSelection) (core.FlowInstance, error) {
	f.inits++
	instance, err := f.Flow.Init(ctx, fc, selection)
	if err != nil {
		return nil, err
	}
	return &countingInstance{FlowInstance: instance, flow: f}, nil
}

type countingInstance struct {
	core.FlowInstance
	flow *countingFlow
}

func (i *countingInstance) Start(ctx context.Context) error {
	i.flow.starts++
	return i.FlowInstance.Start(ctx)
}

type fixture struct {
	logger     *captureLogger
	exporter   *tracetest.InMemoryExporter
	observer   *core.Observer
	authorizer *stubAuthorizer
	upgrader   *stubUpgrader
	fraudnet   *stubFraudnet
	launcher   *stubLauncher
	recorder   *memoryRecorder
	fallback   *countingFlow
	flow       *BrandedVaultCardFlow
}

func newFixture(buyerTokens core.BuyerTokenReader) *fixture {
	logger := newCaptureLogger()
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	observer := core.NewObserver(logger, nil, provider)

	f := &fixture{
		logger:     logger,
		exporter:   exporter,
		observer:   observer,
		authorizer: &stubAuthorizer{result: core.AuthorizeInstrumentResult{PayerID: "P1"}},
		upgrader:   &stubUpgrader{},
		fraudnet:   &stubFraudnet{},
		launcher:   &stubLauncher{result: core.WebCheckoutResult{PayerID: "P2"}},
		recorder:   &memoryRecorder{},
	}
	webCheckout, err := NewWebCheckoutFlow(WebCheckoutDependencies{
		Launcher: f.launcher,
		Recorder: f.recorder,
		Observer: observer,
	})
	if err != nil {
		panic(err)
	}
	f.fallback = &countingFlow{Flow: webCheckout}
	flow, err := NewBrandedVaultCardFlow(BrandedVaultCardDependencies{
		Authorizer:    f.authorizer,
		BuyerTokens:   buyerTokens,
		ScopeUpgrader: f.upgrader,
		Fraudnet:      f.fraudnet,
		Fallback:      f.fallback,
		Recorder:      f.recorder,
		Observer:      observer,
	})
	if err != nil {
		panic(err)
	}
	f.flow = flow
	return f
}

func brandedWallet(instruments ...core.Instrument) *core.Wallet {
	return &core.Wallet{Card: &core.InstrumentCollection{Instruments: instruments}}
}

func brandedContext(wallet *core.Wallet) core.FlowContext {
	return core.FlowContext{
		Merchant: core.MerchantConfig{
			ClientID:           "client-1",
			Env:                "sandbox",
			Branded:            true,
			ButtonSessionID:    "btn-1",
			SessionID:          "sess-1",
			PaymentMethodToken: "T1",
		},
		ServiceData: core.ServiceData{Wallet: wallet},
	}
}

func brandedSelection() core.PaymentSelection {
	return core.PaymentSelection{FundingSource: core.FundingCard, PaymentMethodID: "T1"}
}

type approveCall struct {
	data    core.ApproveData
	actions core.ApproveActions
}

// approveRecorder returns an OnApprove callback that records each call and
// then runs then, when set.
func approveRecorder(calls *[]approveCall, then func(ctx context.Context, actions core.ApproveActions) error) core.OnApproveFunc {
	return func(ctx context.Context, data core.ApproveData, actions core.ApproveActions) error {
		*calls = append(*calls, approveCall{data: data, actions: actions})
		if then != nil {
			return then(ctx, actions)
		}
		return nil
	}
}
