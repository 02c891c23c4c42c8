package flows

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-checkout/core"
)

const BrandedVaultCardFlowName = "nonce"

type BrandedVaultCardDependencies struct {
	Authorizer    core.PaymentAuthorizer
	BuyerTokens   core.BuyerTokenReader
	ScopeUpgrader core.ScopeUpgrader
	Fraudnet      core.FraudnetLoader
	Fallback      core.Flow
	Recorder      core.AttemptRecorder
	Observer      *core.Observer
}

// BrandedVaultCardFlow pays with a branded card already stored in the buyer
// wallet: create order, authorize the instrument, optionally upgrade the
// merchant credential scope, then hand over to the merchant approval callback.
type BrandedVaultCardFlow struct {
	deps BrandedVaultCardDependencies
}

func NewBrandedVaultCardFlow(deps BrandedVaultCardDependencies) (*BrandedVaultCardFlow, error) {
	if deps.Authorizer == nil {
		return nil, fmt.Errorf("flows: branded vault card authorizer is required")
	}
	if deps.Fallback == nil {
		return nil, fmt.Errorf("flows: branded vault card fallback flow is required")
	}
	if deps.Fraudnet == nil {
		deps.Fraudnet = core.NopFraudnetLoader{}
	}
	if deps.Recorder == nil {
		deps.Recorder = core.NopAttemptRecorder{}
	}
	return &BrandedVaultCardFlow{deps: deps}, nil
}

func (*BrandedVaultCardFlow) Name() string { return BrandedVaultCardFlowName }

func (*BrandedVaultCardFlow) Inline() bool { return true }

// Setup starts risk telemetry for the session. Loader failures are ignored.
func (f *BrandedVaultCardFlow) Setup(ctx context.Context, fc core.FlowContext) error {
	_ = f.deps.Fraudnet.LoadFraudnet(ctx, core.FraudnetInput{
		Env:              fc.Merchant.Env,
		ClientMetadataID: fc.Merchant.ResolveClientMetadataID(),
		CSPNonce:         fc.Session.CSPNonce,
	})
	return nil
}

func (*BrandedVaultCardFlow) IsEligible(fc core.FlowContext) bool {
	return IsBrandedVaultCardEligible(fc)
}

func (*BrandedVaultCardFlow) IsPaymentEligible(fc core.FlowContext, selection core.PaymentSelection) bool {
	return IsBrandedVaultCardPaymentEligible(fc, selection)
}

func (f *BrandedVaultCardFlow) Init(ctx context.Context, fc core.FlowContext, selection core.PaymentSelection) (core.FlowInstance, error) {
	instrument, _ := fc.Wallet().FindCard(selection.PaymentMethodID)
	if instrument.TokenID == "" {
		f.deps.Observer.Info(ctx, core.EventBrandedPaymentFailed, map[string]any{
			"reason":            "instrument_not_found",
			"payment_method_id": selection.PaymentMethodID,
		})
		return nil, core.NewPayWithDifferentCardError(nil, map[string]any{
			"payment_method_id": selection.PaymentMethodID,
		})
	}
	return &brandedVaultCardInstance{
		flow:               f,
		fc:                 fc,
		selection:          selection,
		paymentMethodToken: instrument.TokenID,
	}, nil
}

type brandedVaultCardInstance struct {
	flow               *BrandedVaultCardFlow
	fc                 core.FlowContext
	selection          core.PaymentSelection
	paymentMethodToken string
	attempt            *core.Attempt
}

// Start runs one attempt. It is not re-entrant.
func (i *brandedVaultCardInstance) Start(ctx context.Context) error {
	deps := i.flow.deps
	attempt := core.NewAttempt(BrandedVaultCardFlowName, deps.Recorder, deps.Observer)
	i.attempt = attempt

	ctx, finish := deps.Observer.StartStage(ctx, "branded_vault_card.start", map[string]any{
		"flow":       BrandedVaultCardFlowName,
		"attempt_id": attempt.ID,
	})
	err := i.run(ctx, attempt)
	finish(err)
	return err
}

func (*brandedVaultCardInstance) Close(context.Context) error {
	return nil
}

// Restart abandons the current attempt and hands off to the fallback flow.
func (i *brandedVaultCardInstance) Restart(ctx context.Context) error {
	restarter := &fallbackRestart{
		fallback:  i.flow.deps.Fallback,
		fc:        i.fc,
		selection: i.selection,
		attempt:   i.attempt,
		observer:  i.flow.deps.Observer,
	}
	i.attempt = nil
	return restarter.Restart(ctx)
}

func (i *brandedVaultCardInstance) run(ctx context.Context, attempt *core.Attempt) error {
	merchant := i.fc.Merchant

	orderID, err := createOrder(ctx, merchant, i.flow.deps.Observer, BrandedVaultCardFlowName)
	if err != nil {
		return attempt.Fail(ctx, err)
	}
	attempt.OrderID = orderID
	if err := attempt.Transition(ctx, core.AttemptStateOrderCreated); err != nil {
		return err
	}

	result, err := i.approveOrder(ctx, orderID)
	if err != nil {
		return attempt.Fail(ctx, err)
	}
	attempt.PayerID = result.PayerID
	if err := attempt.Transition(ctx, core.AttemptStateAuthorized); err != nil {
		return err
	}

	if token := strings.TrimSpace(merchant.MerchantAccessToken); token != "" {
		if err := i.upgradeScope(ctx, token, orderID); err != nil {
			return attempt.Fail(ctx, err)
		}
		if err := attempt.Transition(ctx, core.AttemptStateScopeUpgraded); err != nil {
			return err
		}
	}

	if err := attempt.Transition(ctx, core.AttemptStateApproved); err != nil {
		return err
	}
	actions := &fallbackRestart{
		fallback:  i.flow.deps.Fallback,
		fc:        i.fc,
		selection: i.selection,
		attempt:   attempt,
		observer:  i.flow.deps.Observer,
	}
	return approve(ctx, merchant, core.ApproveData{OrderID: orderID, PayerID: result.PayerID}, actions, i.flow.deps.Observer, attempt)
}

func (i *brandedVaultCardInstance) approveOrder(ctx context.Context, orderID string) (core.AuthorizeInstrumentResult, error) {
	deps := i.flow.deps
	merchant := i.fc.Merchant
	fields := map[string]any{
		"flow":     BrandedVaultCardFlowName,
		"order_id": orderID,
	}
	deps.Observer.Info(ctx, core.EventBrandedPaymentInitiated, fields)

	if !merchant.Branded {
		return core.AuthorizeInstrumentResult{}, core.NewBadInputError("flows: expected payment to be branded", fields)
	}

	ctx, finish := deps.Observer.StartStage(ctx, "authorize_instrument", fields)
	result, err := deps.Authorizer.AuthorizeInstrumentPayment(ctx, core.AuthorizeInstrumentInput{
		OrderID:            orderID,
		PaymentMethodToken: i.paymentMethodToken,
		ClientID:           merchant.ClientID,
		Branded:            merchant.Branded,
		ButtonSessionID:    merchant.ButtonSessionID,
		ClientMetadataID:   merchant.ResolveClientMetadataID(),
	})
	if err != nil {
		deps.Observer.Info(ctx, core.EventBrandedPaymentFailed, fields)
		err = core.NewPayWithDifferentCardError(err, fields)
	}
	finish(err)
	return result, err
}

// upgradeScope binds the merchant access token to the buyer token and the
// order. A missing buyer token ends the attempt.
func (i *brandedVaultCardInstance) upgradeScope(ctx context.Context, merchantAccessToken string, orderID string) error {
	deps := i.flow.deps
	fields := map[string]any{
		"flow":     BrandedVaultCardFlowName,
		"order_id": orderID,
	}
	if deps.BuyerTokens == nil || deps.ScopeUpgrader == nil {
		return core.NewInternalError("flows: credential scope upgrade is not configured", fields)
	}

	ctx, finish := deps.Observer.StartStage(ctx, "upgrade_scope", fields)
	buyerToken, ok := deps.BuyerTokens.BuyerAccessToken(ctx)
	if !ok || strings.TrimSpace(buyerToken) == "" {
		deps.Observer.Error(ctx, core.EventScopeUpgradeError, map[string]any{
			"err":      "buyer access token not found",
			"order_id": orderID,
		})
		err := core.NewBuyerTokenNotFoundError()
		finish(err)
		return err
	}

	err := deps.ScopeUpgrader.UpgradeAccessTokenScope(ctx, merchantAccessToken, core.UpgradeScopeInput{
		BuyerAccessToken: buyerToken,
		OrderID:          orderID,
	})
	finish(err)
	if err != nil {
		return err
	}
	deps.Observer.Info(ctx, core.EventScopeUpgradeComplete, fields)
	return nil
}

// fallbackRestart owns the context of the attempt it abandons.
type fallbackRestart struct {
	fallback  core.Flow
	fc        core.FlowContext
	selection core.PaymentSelection
	attempt   *core.Attempt
	observer  *core.Observer
}

func (r *fallbackRestart) Restart(ctx context.Context) error {
	fromFlow := ""
	if r.attempt != nil {
		fromFlow = r.attempt.Flow
		if r.attempt.State.CanTransitionTo(core.AttemptStateRestarting) {
			if err := r.attempt.Transition(ctx, core.AttemptStateRestarting); err != nil {
				return err
			}
		}
		r.attempt = nil
	}

	r.observer.Info(ctx, core.EventWebCheckoutFallback, map[string]any{
		"from_flow": fromFlow,
		"to_flow":   r.fallback.Name(),
	})
	r.observer.Flush()

	instance, err := r.fallback.Init(ctx, r.fc, r.selection)
	if err != nil {
		return err
	}
	return instance.Start(ctx)
}

func createOrder(ctx context.Context, merchant core.MerchantConfig, observer *core.Observer, flow string) (string, error) {
	if merchant.CreateOrder == nil {
		return "", core.NewBadInputError("flows: create order callback is required", map[string]any{"flow": flow})
	}
	ctx, finish := observer.StartStage(ctx, "create_order", map[string]any{"flow": flow})
	orderID, err := merchant.CreateOrder(ctx)
	if err == nil && strings.TrimSpace(orderID) == "" {
		err = core.NewBadInputError("flows: create order returned an empty order id", map[string]any{"flow": flow})
	}
	finish(err)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(orderID), nil
}

func approve(
	ctx context.Context,
	merchant core.MerchantConfig,
	data core.ApproveData,
	actions core.ApproveActions,
	observer *core.Observer,
	attempt *core.Attempt,
) error {
	if merchant.OnApprove == nil {
		return attempt.Fail(ctx, core.NewBadInputError("flows: approve callback is required", map[string]any{"flow": attempt.Flow}))
	}
	ctx, finish := observer.StartStage(ctx, "approve", map[string]any{
		"flow":     attempt.Flow,
		"order_id": data.OrderID,
	})
	err := merchant.OnApprove(ctx, data, actions)
	finish(err)
	if err != nil {
		return attempt.Fail(ctx, err)
	}
	return nil
}

var (
	_ core.Flow           = (*BrandedVaultCardFlow)(nil)
	_ core.FlowInstance   = (*brandedVaultCardInstance)(nil)
	_ core.ApproveActions = (*brandedVaultCardInstance)(nil)
	_ core.ApproveActions = (*fallbackRestart)(nil)
)
