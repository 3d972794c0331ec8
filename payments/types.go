// Package payments implements per-(provider, user) payment streams: rate
// accrual, treasury-cut deduction on charge, and the WithoutFunds
// insolvency flag with its cooldown window. It deliberately knows nothing
// about capacity, proofs, or storage requests — it is fed a rate and an
// externally-computed system utilisation figure, the same way the registry
// is fed a capacity without knowing how it was chosen.
package payments

import (
	"github.com/storagehub/core/config"
	"github.com/storagehub/core/providers"
)

// StreamId identifies a payment stream by the (provider, user) pair it runs
// between. A user may pay several providers; a provider is paid by several
// users; a single (provider, user) pair has at most one active stream.
type StreamId struct {
	Provider providers.ProviderId
	User     providers.AccountId
}

// Stream is the per-(provider, user) accrual record (spec §4.C).
type Stream struct {
	ID              StreamId
	RatePerTick     uint64
	LastChargedTick config.Tick
	Deposit         uint64
}

// withoutFundsRecord tracks how long a user has been flagged insolvent.
type withoutFundsRecord struct {
	FlaggedAtTick config.Tick
}
