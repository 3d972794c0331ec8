package blockchainservice

import (
	"context"
	"time"

	"github.com/storagehub/core/async"
	"github.com/storagehub/core/proofs"
)

// CatchUpCheckInterval is the wall-clock period Run drives
// processPendingWorkLocked on, independent of block-import cadence, so a
// granted write permit that frees up between blocks (or a submit set
// populated by emitCatchUpChallenges) doesn't sit idle until the next
// block arrives. It intentionally doesn't derive from
// CheckForPendingProofsPeriod, which is measured in ticks, not wall time.
const CatchUpCheckInterval = 6 * time.Second

// lockRegistryCleanInterval bounds how long a provider or bucket that's
// no longer being read or written keeps its entry in async's global named
// lock registry (locks.go's per-forest Multilocks).
const lockRegistryCleanInterval = 5 * time.Minute

// Run starts the actor's two background drivers: a periodic retry of any
// pending work per spec §4.F's "Forest-root write permit" paragraph (the
// one blocked solely on permit availability, not on a new block landing),
// and a subscription to the proof engine's SlashableProvider feed so this
// node notices, without waiting for its own next block-import tick, when
// it has been pushed past a challenge deadline. It returns once ctx is
// canceled.
func (s *Service) Run(ctx context.Context) {
	events := make(chan proofs.SlashableProviderEvent, 16)
	sub := s.engine.Events.Subscribe(events)
	defer sub.Unsubscribe()

	async.RunEvery(ctx, CatchUpCheckInterval, func() {
		s.mu.Lock()
		s.processPendingWorkLocked()
		s.mu.Unlock()
	})
	async.RunEvery(ctx, lockRegistryCleanInterval, func() {
		async.Clean()
	})

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			if err != nil {
				log.WithError(err).Warn("slashable-provider subscription ended with error")
			}
			return
		case ev := <-events:
			if ev.Provider != s.self {
				continue
			}
			log.WithField("next_deadline", ev.NextChallengeDeadline).Error("this provider was swept as slashable; check submit_proof delivery")
		}
	}
}
