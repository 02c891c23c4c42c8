package query

import (
	"github.com/goliatone/go-checkout/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Querier[EvaluateFlowsMessage, []core.FlowVerdict]        = (*EvaluateFlowsQuery)(nil)
	_ gocmd.Querier[SelectFlowMessage, SelectedFlow]                 = (*SelectFlowQuery)(nil)
	_ gocmd.Querier[ConnectURLMessage, string]                       = (*ConnectURLQuery)(nil)
	_ gocmd.Querier[ListAttemptEventsMessage, core.AttemptEventPage] = (*ListAttemptEventsQuery)(nil)
	_ FlowReader                                                     = (*core.Service)(nil)
	_ ConnectURLReader                                               = (*core.Service)(nil)
	_ AttemptEventReader                                             = (*core.Service)(nil)
)
