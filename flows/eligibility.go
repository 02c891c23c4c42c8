package flows

import "github.com/goliatone/go-checkout/core"

// IsBrandedVaultCardEligible reports whether the merchant session can render
// the branded vault card flow. Missing wallet data means not eligible.
func IsBrandedVaultCardEligible(fc core.FlowContext) bool {
	token := fc.Merchant.PaymentMethodToken
	if token == "" {
		return false
	}
	wallet := fc.Wallet()
	if wallet == nil {
		return false
	}
	if _, ok := wallet.FindCard(token); !ok {
		return false
	}
	if !fc.Merchant.Branded {
		return false
	}
	cards, ok := wallet.Cards()
	if !ok || cards.Len() == 0 || !cards.AnyBranded() {
		return false
	}
	return true
}

// IsBrandedVaultCardPaymentEligible reports whether the buyer's current
// selection can be paid through the branded vault card flow.
func IsBrandedVaultCardPaymentEligible(fc core.FlowContext, selection core.PaymentSelection) bool {
	instrument, ok := fc.Wallet().FindCard(selection.PaymentMethodID)
	if !ok {
		return false
	}
	if selection.FundingSource != core.BrandedCardFunding {
		return false
	}
	if !fc.Merchant.Branded || !instrument.Branded {
		return false
	}
	if instrument.TokenID == "" {
		return false
	}
	return true
}
