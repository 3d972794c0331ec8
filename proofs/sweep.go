package proofs

import "github.com/storagehub/core/providers"

// sweep advances next_tick_to_check, accruing failures for providers whose
// deadline has passed without a matching submit_proof, bounded by
// MaxSlashableProvidersPerTick per call (spec §4.D step 3).
func (e *Engine) sweep() {
	budget := e.params.MaxSlashableProvidersPerTick

	for e.nextTickToCheck <= e.tick && budget > 0 {
		ids, ok := e.deadlines[e.nextTickToCheck]
		if !ok || len(ids) == 0 {
			delete(e.deadlines, e.nextTickToCheck)
			e.nextTickToCheck++
			continue
		}

		for budget > 0 && len(ids) > 0 {
			id := ids[0]
			ids = ids[1:]
			e.sweepOne(id)
			budget--
		}

		if len(ids) == 0 {
			delete(e.deadlines, e.nextTickToCheck)
			e.nextTickToCheck++
		} else {
			e.deadlines[e.nextTickToCheck] = ids
		}
	}
}

// sweepOne accrues one missed-proof penalty for a single provider and
// re-indexes it under its next deadline. A provider found in the deadline
// index with no matching record is the anomaly spec §9's Open Question
// describes: rather than silently forgiving it, this surfaces a metric and
// moves on, since the provider is already gone from the registry (signed
// off or deleted) by construction of RemoveProofCycle's index cleanup, and
// a hit here means that cleanup was bypassed somewhere upstream.
func (e *Engine) sweepOne(id providers.ProviderId) {
	rec, ok := e.records[id]
	if !ok {
		anomalousMissingRecord.Inc()
		log.WithField("provider", id).Warn("slashable sweep: provider in deadline index with no challenge record")
		return
	}

	checkpointCount := 0
	if rec.LastTickProven < e.lastCheckpointTick && e.lastCheckpointTick <= rec.NextTickToSubmitProofFor {
		checkpointCount = len(e.checkpointChallenges[e.lastCheckpointTick])
	}
	rec.AccruedFailures += uint64(e.params.RandomChallengesPerBlock) + uint64(checkpointCount)

	newNext := e.nextTickToCheck + period(rec.Stake, e.params)
	newDeadline := newNext + e.params.ChallengeTicksTolerance

	rec.NextTickToSubmitProofFor = newNext
	rec.Deadline = newDeadline
	e.deadlines[newDeadline] = append(e.deadlines[newDeadline], id)

	log.WithFields(map[string]interface{}{"provider": id, "accrued": rec.AccruedFailures}).Warn("provider slashable")
	e.Events.Send(SlashableProviderEvent{Provider: id, NextChallengeDeadline: newDeadline})
}
