package graphql

import (
	"fmt"
	"net/http"

	"github.com/goliatone/go-checkout/core"
	goerrors "github.com/goliatone/go-errors"
)

const getFireBaseSessionTokenQuery = `
query GetFireBaseSessionToken($sessionUID: String!) {
    firebase {
        auth(sessionUID: $sessionUID) {
            sessionToken
        }
    }
}`

const upgradeFacilitatorAccessTokenMutation = `
mutation UpgradeFacilitatorAccessToken(
    $orderID: String!
    $buyerAccessToken: String!
    $facilitatorAccessToken: String!
) {
    upgradeLowScopeAccessToken(
        token: $orderID
        buyerAccessToken: $buyerAccessToken
        merchantLSAT: $facilitatorAccessToken
    )
}`

const exchangeAuthCodeQuery = `
query ExchangeAuthCode($buyerAccessToken: String!) {
    auth(accessToken: $buyerAccessToken) {
        authCode
    }
}`

const getConnectURLQuery = `
query GetConnectURL(
    $clientID: String!
    $scopes: [String]!
    $billingType: String
    $fundingSource: String
) {
    auth(clientId: $clientID) {
        connectUrl(
            scopes: $scopes
            billingType: $billingType
            fundingSource: $fundingSource
        ) {
            href
        }
    }
}`

const payWithPaymentMethodTokenMutation = `
mutation PayWithPaymentMethodToken(
    $orderID: String!
    $paymentMethodToken: String!
    $clientID: String!
    $branded: Boolean!
    $buttonSessionID: String
    $clientMetadataID: String
) {
    approvePaymentWithNonce(
        token: $orderID
        nonce: $paymentMethodToken
        clientID: $clientID
        branded: $branded
        buttonSessionID: $buttonSessionID
        clientMetadataID: $clientMetadataID
    ) {
        buyer {
            userId
        }
    }
}`

func missingFieldError(operation string, path string) error {
	return goerrors.New(fmt.Sprintf("graphql: %s response is missing %s", operation, path), goerrors.CategoryExternal).
		WithCode(http.StatusBadGateway).
		WithTextCode(core.ErrorGraphQL).
		WithMetadata(map[string]any{"operation": operation, "field": path})
}
