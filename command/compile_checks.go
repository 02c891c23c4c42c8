package command

import (
	"github.com/goliatone/go-checkout/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Commander[CheckoutMessage]             = (*CheckoutCommand)(nil)
	_ gocmd.Commander[CreateAccessTokenMessage]    = (*CreateAccessTokenCommand)(nil)
	_ gocmd.Commander[ExchangeSessionTokenMessage] = (*ExchangeSessionTokenCommand)(nil)
	_ gocmd.Commander[ExchangeAuthCodeMessage]     = (*ExchangeAuthCodeCommand)(nil)
	_ gocmd.Commander[PruneAttemptEventsMessage]   = (*PruneAttemptEventsCommand)(nil)
	_ CheckoutService                              = (*core.Service)(nil)
)
