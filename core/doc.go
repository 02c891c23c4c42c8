// Package core contains the checkout domain model, collaborator contracts, the
// attempt state machine, and the service that selects and drives payment
// flows. Flow implementations and adapters depend on this package; core must
// not depend on transport-specific or flow-specific packages.
package core
