package core

import (
	"context"
	"strings"
)

type FundingSource string

const (
	FundingPayPal     FundingSource = "paypal"
	FundingCard       FundingSource = "card"
	FundingCredit     FundingSource = "credit"
	FundingPayLater   FundingSource = "paylater"
	FundingVenmo      FundingSource = "venmo"
	FundingDebit      FundingSource = "debit"
	FundingApplePay   FundingSource = "applepay"
	FundingItau       FundingSource = "itau"
	FundingSEPA       FundingSource = "sepa"
	FundingIdeal      FundingSource = "ideal"
	FundingBancontact FundingSource = "bancontact"
)

// BrandedCardFunding is the only funding source accepted by branded vault
// card payments. Other card-like sources (debit, credit) do not qualify.
const BrandedCardFunding = FundingCard

func (f FundingSource) String() string {
	return string(f)
}

func NormalizeFundingSource(value string) FundingSource {
	return FundingSource(strings.TrimSpace(strings.ToLower(value)))
}

type Instrument struct {
	TokenID  string         `json:"tokenID"`
	Branded  bool           `json:"branded"`
	Label    string         `json:"label,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type InstrumentCollection struct {
	Instruments []Instrument `json:"instruments"`
}

// Find returns the first instrument whose token matches tokenID.
func (c *InstrumentCollection) Find(tokenID string) (Instrument, bool) {
	if c == nil {
		return Instrument{}, false
	}
	for _, instrument := range c.Instruments {
		if instrument.TokenID == tokenID {
			return instrument, true
		}
	}
	return Instrument{}, false
}

func (c *InstrumentCollection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Instruments)
}

// AnyBranded reports whether at least one instrument carries a token and the
// branded flag.
func (c *InstrumentCollection) AnyBranded() bool {
	if c == nil {
		return false
	}
	for _, instrument := range c.Instruments {
		if instrument.TokenID != "" && instrument.Branded {
			return true
		}
	}
	return false
}

type Wallet struct {
	Card   *InstrumentCollection `json:"card,omitempty"`
	PayPal *InstrumentCollection `json:"paypal,omitempty"`
	Credit *InstrumentCollection `json:"credit,omitempty"`
	Venmo  *InstrumentCollection `json:"venmo,omitempty"`
}

// Cards returns the card collection, or false when the wallet or the
// collection is absent.
func (w *Wallet) Cards() (*InstrumentCollection, bool) {
	if w == nil || w.Card == nil {
		return nil, false
	}
	return w.Card, true
}

// FindCard looks up a card instrument by token without failing on missing
// wallet segments.
func (w *Wallet) FindCard(tokenID string) (Instrument, bool) {
	cards, ok := w.Cards()
	if !ok {
		return Instrument{}, false
	}
	return cards.Find(tokenID)
}

type ServiceData struct {
	Wallet *Wallet `json:"wallet,omitempty"`
}

type PaymentSelection struct {
	FundingSource   FundingSource `json:"fundingSource"`
	PaymentMethodID string        `json:"paymentMethodID,omitempty"`
}

type ApproveData struct {
	OrderID string `json:"orderID"`
	PayerID string `json:"payerID"`
}

// ApproveActions is handed to the merchant approval callback.
type ApproveActions interface {
	Restart(ctx context.Context) error
}

type CreateOrderFunc func(ctx context.Context) (string, error)

type OnApproveFunc func(ctx context.Context, data ApproveData, actions ApproveActions) error

// MerchantConfig is the read-only per-session merchant configuration. A
// non-empty MerchantAccessToken enables the credential scope upgrade step.
type MerchantConfig struct {
	ClientID            string
	Env                 string
	Branded             bool
	ButtonSessionID     string
	MerchantAccessToken string
	ClientMetadataID    string
	SessionID           string
	PaymentMethodToken  string
	CreateOrder         CreateOrderFunc
	OnApprove           OnApproveFunc
}

// ResolveClientMetadataID prefers the explicit client metadata id and falls
// back to the session id.
func (c MerchantConfig) ResolveClientMetadataID() string {
	if id := strings.TrimSpace(c.ClientMetadataID); id != "" {
		return id
	}
	return strings.TrimSpace(c.SessionID)
}

type SessionConfig struct {
	CSPNonce string
}

// FlowContext is the explicit session context handed to flows. Instances own
// a copy for their whole lifetime.
type FlowContext struct {
	Merchant    MerchantConfig
	ServiceData ServiceData
	Session     SessionConfig
}

func (fc FlowContext) Wallet() *Wallet {
	return fc.ServiceData.Wallet
}
