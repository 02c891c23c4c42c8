package command

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/goliatone/go-checkout/core"
	gocmd "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
)

type stubCheckoutService struct {
	checkoutFn     func(context.Context, core.CheckoutRequest) (core.CheckoutResult, error)
	accessTokenFn  func(context.Context, string) (string, error)
	sessionTokenFn func(context.Context, string) (string, error)
	authCodeFn     func(context.Context) (string, error)
}

func (s stubCheckoutService) Checkout(ctx context.Context, req core.CheckoutRequest) (core.CheckoutResult, error) {
	if s.checkoutFn == nil {
		return core.CheckoutResult{}, fmt.Errorf("unexpected checkout call")
	}
	return s.checkoutFn(ctx, req)
}

func (s stubCheckoutService) AccessToken(ctx context.Context, clientID string) (string, error) {
	if s.accessTokenFn == nil {
		return "", fmt.Errorf("unexpected access token call")
	}
	return s.accessTokenFn(ctx, clientID)
}

func (s stubCheckoutService) SessionToken(ctx context.Context, sessionUID string) (string, error) {
	if s.sessionTokenFn == nil {
		return "", fmt.Errorf("unexpected session token call")
	}
	return s.sessionTokenFn(ctx, sessionUID)
}

func (s stubCheckoutService) AuthCode(ctx context.Context) (string, error) {
	if s.authCodeFn == nil {
		return "", fmt.Errorf("unexpected auth code call")
	}
	return s.authCodeFn(ctx)
}

func validCheckoutRequest() core.CheckoutRequest {
	return core.CheckoutRequest{
		Context: core.FlowContext{Merchant: core.MerchantConfig{
			ClientID:    "client-1",
			CreateOrder: func(context.Context) (string, error) { return "O1", nil },
			OnApprove:   func(context.Context, core.ApproveData, core.ApproveActions) error { return nil },
		}},
		Selection: core.PaymentSelection{FundingSource: core.FundingCard},
	}
}

func TestCheckoutCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	called := false
	svc := stubCheckoutService{
		checkoutFn: func(_ context.Context, req core.CheckoutRequest) (core.CheckoutResult, error) {
			called = true
			if req.Context.Merchant.ClientID != "client-1" {
				t.Fatalf("unexpected client id %q", req.Context.Merchant.ClientID)
			}
			return core.CheckoutResult{Flow: "nonce", Inline: true}, nil
		},
	}

	collector := gocmd.NewResult[core.CheckoutResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := NewCheckoutCommand(svc).Execute(ctx, CheckoutMessage{Request: validCheckoutRequest()}); err != nil {
		t.Fatalf("execute checkout: %v", err)
	}
	if !called {
		t.Fatalf("expected checkout invocation")
	}
	result, ok := collector.Load()
	if !ok || result.Flow != "nonce" || !result.Inline {
		t.Fatalf("unexpected stored result: %#v ok=%v", result, ok)
	}
}

func TestCheckoutCommand_StoresFlowOnFailure(t *testing.T) {
	declined := core.NewPayWithDifferentCardError(nil, nil)
	svc := stubCheckoutService{
		checkoutFn: func(context.Context, core.CheckoutRequest) (core.CheckoutResult, error) {
			return core.CheckoutResult{Flow: "nonce", Inline: true}, declined
		},
	}

	collector := gocmd.NewResult[core.CheckoutResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	err := NewCheckoutCommand(svc).Execute(ctx, CheckoutMessage{Request: validCheckoutRequest()})
	if !errors.Is(err, declined) || !core.IsPayWithDifferentCard(err) {
		t.Fatalf("expected discriminated error unchanged, got %v", err)
	}
	if result, ok := collector.Load(); !ok || result.Flow != "nonce" {
		t.Fatalf("expected flow stored on failure, got %#v ok=%v", result, ok)
	}
}

func TestTokenCommands_DelegateToService(t *testing.T) {
	svc := stubCheckoutService{
		accessTokenFn: func(_ context.Context, clientID string) (string, error) {
			if clientID != "client-1" {
				t.Fatalf("unexpected client id %q", clientID)
			}
			return "A21AA", nil
		},
		sessionTokenFn: func(_ context.Context, uid string) (string, error) {
			return "fb-" + uid, nil
		},
		authCodeFn: func(context.Context) (string, error) {
			return "code-1", nil
		},
	}

	t.Run("access token", func(t *testing.T) {
		collector := gocmd.NewResult[string]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		if err := NewCreateAccessTokenCommand(svc).Execute(ctx, CreateAccessTokenMessage{ClientID: "client-1"}); err != nil {
			t.Fatalf("execute: %v", err)
		}
		if token, _ := collector.Load(); token != "A21AA" {
			t.Fatalf("unexpected token %q", token)
		}
	})

	t.Run("session token", func(t *testing.T) {
		collector := gocmd.NewResult[string]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		if err := NewExchangeSessionTokenCommand(svc).Execute(ctx, ExchangeSessionTokenMessage{SessionUID: "uid"}); err != nil {
			t.Fatalf("execute: %v", err)
		}
		if token, _ := collector.Load(); token != "fb-uid" {
			t.Fatalf("unexpected session token %q", token)
		}
	})

	t.Run("auth code", func(t *testing.T) {
		collector := gocmd.NewResult[string]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		if err := NewExchangeAuthCodeCommand(svc).Execute(ctx, ExchangeAuthCodeMessage{}); err != nil {
			t.Fatalf("execute: %v", err)
		}
		if code, _ := collector.Load(); code != "code-1" {
			t.Fatalf("unexpected auth code %q", code)
		}
	})
}

func TestCheckoutMessage_ValidateReturnsRichError(t *testing.T) {
	req := validCheckoutRequest()
	req.Context.Merchant.OnApprove = nil
	err := (CheckoutMessage{Request: req}).Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryValidation {
		t.Fatalf("expected validation category, got %q", rich.Category)
	}
	if rich.TextCode != core.CheckoutErrorBadInput || rich.Code != http.StatusBadRequest {
		t.Fatalf("unexpected envelope: %q %d", rich.TextCode, rich.Code)
	}
	validation := rich.AllValidationErrors()
	if len(validation) == 0 || validation[0].Field != "on_approve" {
		t.Fatalf("expected on_approve validation field, got %#v", validation)
	}

	if err := (CheckoutMessage{Request: validCheckoutRequest()}).Validate(); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
	if err := (CreateAccessTokenMessage{ClientID: " "}).Validate(); err == nil {
		t.Fatalf("expected client id validation error")
	}
	if err := (ExchangeSessionTokenMessage{}).Validate(); err == nil {
		t.Fatalf("expected session uid validation error")
	}
}

func TestCheckoutCommand_NilServiceReturnsRichError(t *testing.T) {
	var cmd *CheckoutCommand
	err := cmd.Execute(context.Background(), CheckoutMessage{})
	if err == nil {
		t.Fatalf("expected command dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal || rich.TextCode != core.CheckoutErrorInternal {
		t.Fatalf("unexpected envelope: %q %q", rich.Category, rich.TextCode)
	}
}

type stubPruner struct {
	olderThan time.Duration
}

func (s *stubPruner) Prune(_ context.Context, olderThan time.Duration) (int, error) {
	s.olderThan = olderThan
	return 3, nil
}

func TestPruneAttemptEventsCommand(t *testing.T) {
	pruner := &stubPruner{}
	collector := gocmd.NewResult[int]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := NewPruneAttemptEventsCommand(pruner).Execute(ctx, PruneAttemptEventsMessage{OlderThan: time.Hour}); err != nil {
		t.Fatalf("execute prune: %v", err)
	}
	if pruner.olderThan != time.Hour {
		t.Fatalf("unexpected retention window %s", pruner.olderThan)
	}
	if deleted, ok := collector.Load(); !ok || deleted != 3 {
		t.Fatalf("expected deleted count stored, got %d ok=%v", deleted, ok)
	}
	if err := (PruneAttemptEventsMessage{}).Validate(); err == nil {
		t.Fatalf("expected validation error without retention window")
	}
}
