package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	Metadata             map[string]any
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

type UpgradeScopeInput struct {
	BuyerAccessToken string
	OrderID          string
}

type AuthorizeInstrumentInput struct {
	OrderID            string
	PaymentMethodToken string
	ClientID           string
	Branded            bool
	ButtonSessionID    string
	ClientMetadataID   string
}

type AuthorizeInstrumentResult struct {
	PayerID string
}

type ConnectURLInput struct {
	ClientID      string
	FundingSource FundingSource
	Scopes        []string
	ResponseType  string
	BillingType   string
}

// AccessTokenIssuer exchanges client credentials for a service access token.
type AccessTokenIssuer interface {
	CreateAccessToken(ctx context.Context, clientID string) (string, error)
}

// BuyerTokenReader reads the buyer access token cached for this session.
type BuyerTokenReader interface {
	BuyerAccessToken(ctx context.Context) (string, bool)
}

type ScopeUpgrader interface {
	UpgradeAccessTokenScope(ctx context.Context, facilitatorToken string, in UpgradeScopeInput) error
}

// CredentialGateway is the full credential surface consumed by flows.
type CredentialGateway interface {
	AccessTokenIssuer
	BuyerTokenReader
	ScopeUpgrader
}

type PaymentAuthorizer interface {
	AuthorizeInstrumentPayment(ctx context.Context, in AuthorizeInstrumentInput) (AuthorizeInstrumentResult, error)
}

type SessionTokenExchanger interface {
	ExchangeSessionToken(ctx context.Context, sessionUID string) (string, error)
}

type AuthCodeExchanger interface {
	ExchangeAccessTokenForAuthCode(ctx context.Context, buyerToken string) (string, error)
}

type ConnectURLResolver interface {
	GetConnectURL(ctx context.Context, in ConnectURLInput) (string, error)
}

// GraphQLFacade groups the typed backend operations.
type GraphQLFacade interface {
	SessionTokenExchanger
	AuthCodeExchanger
	ConnectURLResolver
	ScopeUpgrader
	PaymentAuthorizer
}

type FraudnetInput struct {
	Env              string
	ClientMetadataID string
	CSPNonce         string
}

// FraudnetLoader loads session risk telemetry. Failures are never fatal.
type FraudnetLoader interface {
	LoadFraudnet(ctx context.Context, in FraudnetInput) error
}

type NopFraudnetLoader struct{}

func (NopFraudnetLoader) LoadFraudnet(context.Context, FraudnetInput) error { return nil }

type WebCheckoutRequest struct {
	OrderID          string
	ClientID         string
	FundingSource    FundingSource
	ButtonSessionID  string
	ClientMetadataID string
}

type WebCheckoutResult struct {
	PayerID string
}

// WebCheckoutLauncher runs the hosted checkout experience for an order and
// returns once the buyer approved it.
type WebCheckoutLauncher interface {
	LaunchWebCheckout(ctx context.Context, req WebCheckoutRequest) (WebCheckoutResult, error)
}

// UnconfiguredWebCheckoutLauncher fails every launch. Hosts without a
// hosted checkout surface can still evaluate and run inline flows.
type UnconfiguredWebCheckoutLauncher struct{}

func (UnconfiguredWebCheckoutLauncher) LaunchWebCheckout(context.Context, WebCheckoutRequest) (WebCheckoutResult, error) {
	return WebCheckoutResult{}, NewInternalError("core: web checkout launcher is not configured", nil)
}

type FlowInstance interface {
	Start(ctx context.Context) error
	Close(ctx context.Context) error
}

// Flow is a selectable checkout execution strategy.
type Flow interface {
	Name() string
	Inline() bool
	Setup(ctx context.Context, fc FlowContext) error
	IsEligible(fc FlowContext) bool
	IsPaymentEligible(fc FlowContext, selection PaymentSelection) bool
	Init(ctx context.Context, fc FlowContext, selection PaymentSelection) (FlowInstance, error)
}

type FlowVerdict struct {
	Flow            string `json:"flow"`
	Eligible        bool   `json:"eligible"`
	PaymentEligible bool   `json:"payment_eligible"`
}

type FlowSelector interface {
	Select(ctx context.Context, fc FlowContext, selection PaymentSelection) (Flow, error)
	Evaluate(fc FlowContext, selection PaymentSelection) []FlowVerdict
}
