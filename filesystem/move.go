package filesystem

import (
	"github.com/storagehub/core/config"
	"github.com/storagehub/core/providers"
)

// RequestMoveBucket starts a move_bucket: the bucket owner asks newMsp to
// take over serving bucketId under newValueProp, with newMsp required to
// accept or reject before BucketMoveTtl elapses.
func (m *Manager) RequestMoveBucket(bucketId providers.BucketId, newMsp providers.ProviderId, newValueProp providers.ValuePropId, currentTick config.Tick) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.directory.GetBucket(bucketId); !ok {
		return ErrFileNotFound
	}
	if _, ok := m.directory.GetValueProposition(newValueProp); !ok {
		return ErrFileNotFound
	}

	m.bucketMoves[bucketId] = &BucketMoveRequest{
		BucketId:     bucketId,
		NewMspId:     newMsp,
		NewValueProp: newValueProp,
		RequestedAt:  currentTick,
		ExpiresAt:    currentTick + m.params.BucketMoveTtl,
	}
	log.WithFields(map[string]interface{}{"bucket": bucketId, "new_msp": newMsp}).Info("bucket move requested")
	return nil
}

// MspRespondMoveBucket lets the proposed MSP accept or reject the move.
// BSPs already storing files in the bucket are notified via a priority
// checkpoint challenge on the bucket's current root so they pick up the
// ownership change on their next proof.
func (m *Manager) MspRespondMoveBucket(msp providers.ProviderId, bucketId providers.BucketId, accept bool, currentTick config.Tick) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	move, ok := m.bucketMoves[bucketId]
	if !ok {
		return ErrNoPendingBucketMove
	}
	if move.NewMspId != msp {
		return providers.ErrUnknownProvider
	}
	if currentTick > move.ExpiresAt {
		delete(m.bucketMoves, bucketId)
		return ErrBucketMoveExpired
	}

	delete(m.bucketMoves, bucketId)
	if !accept {
		log.WithField("bucket", bucketId).Info("bucket move rejected")
		return nil
	}

	bucket, ok := m.directory.GetBucket(bucketId)
	if !ok {
		return ErrFileNotFound
	}
	if err := m.directory.ReassignBucketMsp(bucketId, move.NewMspId, move.NewValueProp); err != nil {
		return err
	}
	m.challenges.EnqueuePriorityChallenge(bucket.Root[:])
	log.WithFields(map[string]interface{}{"bucket": bucketId, "new_msp": msp}).Info("bucket move accepted")
	return nil
}

// GetBucketMove returns a pending move's state for inspection.
func (m *Manager) GetBucketMove(bucketId providers.BucketId) (*BucketMoveRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mv, ok := m.bucketMoves[bucketId]
	return mv, ok
}
