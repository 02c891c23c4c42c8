// Package graphql implements the typed checkout backend operations on top of
// the GraphQL transport adapter.
package graphql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-checkout/core"
	"github.com/goliatone/go-checkout/transport"
)

const (
	HeaderAccessToken   = "x-paypal-internal-euat"
	HeaderClientContext = "paypal-client-context"
)

// Executor runs one GraphQL operation and decodes its data member.
type Executor interface {
	Execute(ctx context.Context, op transport.GraphQLOperation, out any) error
}

type Client struct {
	executor Executor
	timeout  time.Duration
	observer *core.Observer
}

func NewClient(executor Executor, timeout time.Duration, observer *core.Observer) (*Client, error) {
	if executor == nil {
		return nil, fmt.Errorf("graphql: executor is required")
	}
	return &Client{executor: executor, timeout: timeout, observer: observer}, nil
}

func (c *Client) ExchangeSessionToken(ctx context.Context, sessionUID string) (string, error) {
	var out struct {
		Firebase struct {
			Auth struct {
				SessionToken string `json:"sessionToken"`
			} `json:"auth"`
		} `json:"firebase"`
	}
	err := c.execute(ctx, transport.GraphQLOperation{
		Name:      "GetFireBaseSessionToken",
		Query:     getFireBaseSessionTokenQuery,
		Variables: map[string]any{"sessionUID": sessionUID},
	}, &out)
	if err != nil {
		return "", err
	}
	return requireField("GetFireBaseSessionToken", "firebase.auth.sessionToken", out.Firebase.Auth.SessionToken)
}

// UpgradeAccessTokenScope binds the facilitator token to the buyer and the
// order so it can act on the buyer's behalf.
func (c *Client) UpgradeAccessTokenScope(ctx context.Context, facilitatorToken string, in core.UpgradeScopeInput) error {
	return c.execute(ctx, transport.GraphQLOperation{
		Name:  "UpgradeFacilitatorAccessToken",
		Query: upgradeFacilitatorAccessTokenMutation,
		Variables: map[string]any{
			"facilitatorAccessToken": facilitatorToken,
			"buyerAccessToken":       in.BuyerAccessToken,
			"orderID":                in.OrderID,
		},
		Headers: map[string]string{
			HeaderAccessToken:   in.BuyerAccessToken,
			HeaderClientContext: in.OrderID,
		},
	}, nil)
}

func (c *Client) ExchangeAccessTokenForAuthCode(ctx context.Context, buyerToken string) (string, error) {
	var out struct {
		Auth struct {
			AuthCode string `json:"authCode"`
		} `json:"auth"`
	}
	err := c.execute(ctx, transport.GraphQLOperation{
		Name:      "ExchangeAuthCode",
		Query:     exchangeAuthCodeQuery,
		Variables: map[string]any{"buyerAccessToken": buyerToken},
	}, &out)
	if err != nil {
		return "", err
	}
	return requireField("ExchangeAuthCode", "auth.authCode", out.Auth.AuthCode)
}

func (c *Client) GetConnectURL(ctx context.Context, in core.ConnectURLInput) (string, error) {
	var out struct {
		Auth struct {
			ConnectURL struct {
				Href string `json:"href"`
			} `json:"connectUrl"`
		} `json:"auth"`
	}
	scopes := in.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	err := c.execute(ctx, transport.GraphQLOperation{
		Name:  "GetConnectURL",
		Query: getConnectURLQuery,
		Variables: map[string]any{
			"clientID":      in.ClientID,
			"scopes":        scopes,
			"responseType":  in.ResponseType,
			"billingType":   in.BillingType,
			"fundingSource": in.FundingSource.String(),
		},
	}, &out)
	if err != nil {
		return "", err
	}
	return requireField("GetConnectURL", "auth.connectUrl.href", out.Auth.ConnectURL.Href)
}

func (c *Client) AuthorizeInstrumentPayment(ctx context.Context, in core.AuthorizeInstrumentInput) (core.AuthorizeInstrumentResult, error) {
	var out struct {
		ApprovePayment struct {
			Buyer struct {
				UserID string `json:"userId"`
			} `json:"buyer"`
		} `json:"approvePaymentWithNonce"`
	}
	variables := map[string]any{
		"orderID":            in.OrderID,
		"paymentMethodToken": in.PaymentMethodToken,
		"clientID":           in.ClientID,
		"branded":            in.Branded,
	}
	if in.ButtonSessionID != "" {
		variables["buttonSessionID"] = in.ButtonSessionID
	}
	if in.ClientMetadataID != "" {
		variables["clientMetadataID"] = in.ClientMetadataID
	}
	err := c.execute(ctx, transport.GraphQLOperation{
		Name:      "PayWithPaymentMethodToken",
		Query:     payWithPaymentMethodTokenMutation,
		Variables: variables,
	}, &out)
	if err != nil {
		return core.AuthorizeInstrumentResult{}, err
	}
	payerID, err := requireField("PayWithPaymentMethodToken", "approvePaymentWithNonce.buyer.userId", out.ApprovePayment.Buyer.UserID)
	if err != nil {
		return core.AuthorizeInstrumentResult{}, err
	}
	return core.AuthorizeInstrumentResult{PayerID: payerID}, nil
}

func (c *Client) execute(ctx context.Context, op transport.GraphQLOperation, out any) error {
	if c == nil || c.executor == nil {
		return core.NewInternalError("graphql: client is not configured", nil)
	}
	if op.Timeout <= 0 {
		op.Timeout = c.timeout
	}
	ctx, finish := c.observer.StartStage(ctx, "graphql."+strings.ToLower(op.Name), map[string]any{"operation": op.Name})
	err := c.executor.Execute(ctx, op, out)
	finish(err)
	return err
}

func requireField(operation string, path string, value string) (string, error) {
	if value = strings.TrimSpace(value); value != "" {
		return value, nil
	}
	return "", missingFieldError(operation, path)
}

var _ core.GraphQLFacade = (*Client)(nil)
