package proofs

// Tick runs the per-tick hook (spec §4.D). blockNotFull classifies whether
// this block had enough unused weight headroom in both dimensions;
// randomness is the block's randomness-beacon contribution mixed into this
// tick's challenge seed. It must be called exactly once per block.
func (e *Engine) Tick(blockNotFull bool, randomness [32]byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.fullness.record(blockNotFull)
	e.paused = e.fullness.shouldPause(e.params)
	if e.paused {
		spamPauseGauge.Set(1)
		return
	}
	spamPauseGauge.Set(0)

	e.tick++
	seed := deriveSeed(randomness, e.tick)
	e.seeds[e.tick] = seed
	if e.tick > e.params.ChallengeHistoryLength {
		delete(e.seeds, e.tick-e.params.ChallengeHistoryLength)
	}

	if e.tick == e.lastCheckpointTick+e.params.CheckpointChallengePeriod {
		drained := e.drainCheckpointQueues(e.params.MaxCustomChallengesPerBlock)
		e.checkpointChallenges[e.tick] = drained
		delete(e.checkpointChallenges, e.lastCheckpointTick)
		e.lastCheckpointTick = e.tick
	}

	e.sweep()
}
