package sqlstore

import "github.com/goliatone/go-checkout/core"

var (
	_ core.AttemptRecorder    = (*AttemptStore)(nil)
	_ core.AttemptEventReader = (*AttemptStore)(nil)
)
