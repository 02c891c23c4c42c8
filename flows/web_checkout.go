package flows

import (
	"context"
	"fmt"

	"github.com/goliatone/go-checkout/core"
)

const WebCheckoutFlowName = "checkout"

type WebCheckoutDependencies struct {
	Launcher core.WebCheckoutLauncher
	Recorder core.AttemptRecorder
	Observer *core.Observer
}

// WebCheckoutFlow is the generic hosted checkout. It is always eligible and
// runs every attempt from scratch.
type WebCheckoutFlow struct {
	deps WebCheckoutDependencies
}

func NewWebCheckoutFlow(deps WebCheckoutDependencies) (*WebCheckoutFlow, error) {
	if deps.Launcher == nil {
		return nil, fmt.Errorf("flows: web checkout launcher is required")
	}
	if deps.Recorder == nil {
		deps.Recorder = core.NopAttemptRecorder{}
	}
	return &WebCheckoutFlow{deps: deps}, nil
}

func (*WebCheckoutFlow) Name() string { return WebCheckoutFlowName }

func (*WebCheckoutFlow) Inline() bool { return false }

func (*WebCheckoutFlow) Setup(context.Context, core.FlowContext) error { return nil }

func (*WebCheckoutFlow) IsEligible(core.FlowContext) bool { return true }

func (*WebCheckoutFlow) IsPaymentEligible(core.FlowContext, core.PaymentSelection) bool { return true }

func (f *WebCheckoutFlow) Init(_ context.Context, fc core.FlowContext, selection core.PaymentSelection) (core.FlowInstance, error) {
	return &webCheckoutInstance{flow: f, fc: fc, selection: selection}, nil
}

type webCheckoutInstance struct {
	flow      *WebCheckoutFlow
	fc        core.FlowContext
	selection core.PaymentSelection
}

func (i *webCheckoutInstance) Start(ctx context.Context) error {
	deps := i.flow.deps
	attempt := core.NewAttempt(WebCheckoutFlowName, deps.Recorder, deps.Observer)

	ctx, finish := deps.Observer.StartStage(ctx, "web_checkout.start", map[string]any{
		"flow":       WebCheckoutFlowName,
		"attempt_id": attempt.ID,
	})
	err := i.run(ctx, attempt)
	finish(err)
	return err
}

func (*webCheckoutInstance) Close(context.Context) error {
	return nil
}

func (i *webCheckoutInstance) run(ctx context.Context, attempt *core.Attempt) error {
	deps := i.flow.deps
	merchant := i.fc.Merchant

	orderID, err := createOrder(ctx, merchant, deps.Observer, WebCheckoutFlowName)
	if err != nil {
		return attempt.Fail(ctx, err)
	}
	attempt.OrderID = orderID
	if err := attempt.Transition(ctx, core.AttemptStateOrderCreated); err != nil {
		return err
	}

	fields := map[string]any{
		"flow":           WebCheckoutFlowName,
		"order_id":       orderID,
		"funding_source": i.selection.FundingSource.String(),
	}
	deps.Observer.Info(ctx, core.EventWebCheckoutPaymentInited, fields)

	stageCtx, finish := deps.Observer.StartStage(ctx, "launch_web_checkout", fields)
	result, err := deps.Launcher.LaunchWebCheckout(stageCtx, core.WebCheckoutRequest{
		OrderID:          orderID,
		ClientID:         merchant.ClientID,
		FundingSource:    i.selection.FundingSource,
		ButtonSessionID:  merchant.ButtonSessionID,
		ClientMetadataID: merchant.ResolveClientMetadataID(),
	})
	finish(err)
	if err != nil {
		return attempt.Fail(ctx, err)
	}
	attempt.PayerID = result.PayerID
	if err := attempt.Transition(ctx, core.AttemptStateAuthorized); err != nil {
		return err
	}
	if err := attempt.Transition(ctx, core.AttemptStateApproved); err != nil {
		return err
	}

	actions := &fallbackRestart{
		fallback:  i.flow,
		fc:        i.fc,
		selection: i.selection,
		attempt:   attempt,
		observer:  deps.Observer,
	}
	return approve(ctx, merchant, core.ApproveData{OrderID: orderID, PayerID: result.PayerID}, actions, deps.Observer, attempt)
}

var (
	_ core.Flow         = (*WebCheckoutFlow)(nil)
	_ core.FlowInstance = (*webCheckoutInstance)(nil)
)
