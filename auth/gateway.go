package auth

import (
	"context"
	"fmt"

	"github.com/goliatone/go-checkout/core"
)

// Gateway joins the token issuer, the buyer token cache and the scope
// upgrader into a core.CredentialGateway.
type Gateway struct {
	issuer   core.AccessTokenIssuer
	buyer    core.BuyerTokenReader
	upgrader core.ScopeUpgrader
}

func NewGateway(issuer core.AccessTokenIssuer, buyer core.BuyerTokenReader, upgrader core.ScopeUpgrader) (*Gateway, error) {
	if issuer == nil {
		return nil, fmt.Errorf("auth: access token issuer is required")
	}
	if buyer == nil {
		return nil, fmt.Errorf("auth: buyer token reader is required")
	}
	if upgrader == nil {
		return nil, fmt.Errorf("auth: scope upgrader is required")
	}
	return &Gateway{issuer: issuer, buyer: buyer, upgrader: upgrader}, nil
}

func (g *Gateway) CreateAccessToken(ctx context.Context, clientID string) (string, error) {
	return g.issuer.CreateAccessToken(ctx, clientID)
}

func (g *Gateway) BuyerAccessToken(ctx context.Context) (string, bool) {
	return g.buyer.BuyerAccessToken(ctx)
}

func (g *Gateway) UpgradeAccessTokenScope(ctx context.Context, facilitatorToken string, in core.UpgradeScopeInput) error {
	return g.upgrader.UpgradeAccessTokenScope(ctx, facilitatorToken, in)
}

var _ core.CredentialGateway = (*Gateway)(nil)
