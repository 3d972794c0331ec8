package proofs

import "github.com/storagehub/core/config"

// EnqueuePriorityChallenge appends a checkpoint challenge with should_remove_key set,
// for use by the file-system pallet when a deletion has been proven.
func (e *Engine) EnqueuePriorityChallenge(key []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.priorityQueue = append(e.priorityQueue, CheckpointChallenge{Key: key, ShouldRemoveKey: true})
}

// EnqueueOrdinaryChallenge appends a plain (non-removing) checkpoint
// challenge, e.g. to spot-check a provider outside the random set.
func (e *Engine) EnqueueOrdinaryChallenge(key []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ordinaryQueue = append(e.ordinaryQueue, CheckpointChallenge{Key: key, ShouldRemoveKey: false})
}

// drainCheckpointQueues drains up to max entries, priority queue first,
// per spec §4.D step 2.
func (e *Engine) drainCheckpointQueues(max int) []CheckpointChallenge {
	drained := make([]CheckpointChallenge, 0, max)

	take := max
	if take > len(e.priorityQueue) {
		take = len(e.priorityQueue)
	}
	drained = append(drained, e.priorityQueue[:take]...)
	e.priorityQueue = e.priorityQueue[take:]

	remaining := max - len(drained)
	if remaining > 0 {
		take = remaining
		if take > len(e.ordinaryQueue) {
			take = len(e.ordinaryQueue)
		}
		drained = append(drained, e.ordinaryQueue[:take]...)
		e.ordinaryQueue = e.ordinaryQueue[take:]
	}
	return drained
}

// CheckpointChallengesAt returns the checkpoint challenges persisted for a
// given tick, if any.
func (e *Engine) CheckpointChallengesAt(t config.Tick) ([]CheckpointChallenge, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.checkpointChallenges[t]
	return c, ok
}
