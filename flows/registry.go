package flows

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-checkout/core"
)

// Registry holds flows in priority order. Select returns the first flow that
// is eligible for both the session and the payment selection.
type Registry struct {
	mu       sync.RWMutex
	flows    []core.Flow
	byName   map[string]core.Flow
	observer *core.Observer
}

func NewRegistry(observer *core.Observer, flows ...core.Flow) (*Registry, error) {
	registry := &Registry{
		byName:   map[string]core.Flow{},
		observer: observer,
	}
	for _, flow := range flows {
		if err := registry.Register(flow); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func (r *Registry) Register(flow core.Flow) error {
	if flow == nil {
		return fmt.Errorf("flows: flow is required")
	}
	name := strings.TrimSpace(flow.Name())
	if name == "" {
		return fmt.Errorf("flows: flow name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("flows: flow %q already registered", name)
	}
	r.byName[name] = flow
	r.flows = append(r.flows, flow)
	return nil
}

func (r *Registry) Get(name string) (core.Flow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	flow, ok := r.byName[strings.TrimSpace(name)]
	return flow, ok
}

func (r *Registry) Flows() []core.Flow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Flow, len(r.flows))
	copy(out, r.flows)
	return out
}

func (r *Registry) Select(ctx context.Context, fc core.FlowContext, selection core.PaymentSelection) (core.Flow, error) {
	for _, flow := range r.Flows() {
		if !flow.IsEligible(fc) || !flow.IsPaymentEligible(fc, selection) {
			continue
		}
		r.observer.Info(ctx, core.EventFlowSelected, map[string]any{
			"flow":           flow.Name(),
			"inline":         flow.Inline(),
			"funding_source": selection.FundingSource.String(),
		})
		return flow, nil
	}
	return nil, core.NewNoEligibleFlowError(map[string]any{
		"funding_source":    selection.FundingSource.String(),
		"payment_method_id": selection.PaymentMethodID,
	})
}

func (r *Registry) Evaluate(fc core.FlowContext, selection core.PaymentSelection) []core.FlowVerdict {
	flows := r.Flows()
	verdicts := make([]core.FlowVerdict, 0, len(flows))
	for _, flow := range flows {
		eligible := flow.IsEligible(fc)
		verdicts = append(verdicts, core.FlowVerdict{
			Flow:            flow.Name(),
			Eligible:        eligible,
			PaymentEligible: eligible && flow.IsPaymentEligible(fc, selection),
		})
	}
	return verdicts
}

type Dependencies struct {
	Authorizer    core.PaymentAuthorizer
	BuyerTokens   core.BuyerTokenReader
	ScopeUpgrader core.ScopeUpgrader
	Fraudnet      core.FraudnetLoader
	WebCheckout   core.WebCheckoutLauncher
	Recorder      core.AttemptRecorder
	Observer      *core.Observer
}

// NewDefaultRegistry registers the branded vault card flow ahead of the web
// checkout fallback.
func NewDefaultRegistry(deps Dependencies) (*Registry, error) {
	webCheckout, err := NewWebCheckoutFlow(WebCheckoutDependencies{
		Launcher: deps.WebCheckout,
		Recorder: deps.Recorder,
		Observer: deps.Observer,
	})
	if err != nil {
		return nil, err
	}
	branded, err := NewBrandedVaultCardFlow(BrandedVaultCardDependencies{
		Authorizer:    deps.Authorizer,
		BuyerTokens:   deps.BuyerTokens,
		ScopeUpgrader: deps.ScopeUpgrader,
		Fraudnet:      deps.Fraudnet,
		Fallback:      webCheckout,
		Recorder:      deps.Recorder,
		Observer:      deps.Observer,
	})
	if err != nil {
		return nil, err
	}
	return NewRegistry(deps.Observer, branded, webCheckout)
}

// SelectorFactory adapts NewDefaultRegistry to core.FlowSelectorFactory.
func SelectorFactory(deps core.ServiceDependencies, observer *core.Observer) (core.FlowSelector, error) {
	registryDeps := Dependencies{
		Fraudnet:    deps.Fraudnet,
		WebCheckout: deps.WebCheckout,
		Recorder:    deps.AttemptRecorder,
		Observer:    observer,
	}
	if deps.GraphQL != nil {
		registryDeps.Authorizer = deps.GraphQL
		registryDeps.ScopeUpgrader = deps.GraphQL
	}
	if deps.Credentials != nil {
		registryDeps.BuyerTokens = deps.Credentials
		registryDeps.ScopeUpgrader = deps.Credentials
	}
	return NewDefaultRegistry(registryDeps)
}

var _ core.FlowSelector = (*Registry)(nil)
