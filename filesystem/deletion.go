package filesystem

import (
	"github.com/pkg/errors"

	"github.com/storagehub/core/config"
	"github.com/storagehub/core/providers"
	"github.com/storagehub/core/trie"
)

// RequestFileDeletion records a user's intent to delete key, to be
// actioned by the MSP serving its bucket (spec §4.E, File deletion).
func (m *Manager) RequestFileDeletion(owner providers.AccountId, key FileKey, bucketId providers.BucketId, fingerprint [32]byte, size uint64, currentTick config.Tick) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.pendingDeletions[key]; exists {
		return nil
	}
	m.pendingDeletions[key] = &PendingDeletion{
		FileKey:     key,
		BucketId:    bucketId,
		Owner:       owner,
		Fingerprint: fingerprint,
		Size:        size,
		RequestedAt: currentTick,
	}
	log.WithField("file_key", key).Info("file deletion requested")
	return nil
}

// MspRespondFileDeletion lets the MSP serving the bucket prove inclusion
// of key and apply a Remove mutation to the bucket's forest root. The
// resulting checkpoint challenge compels BSPs storing the file to remove
// it from their own forests on their next proof.
func (m *Manager) MspRespondFileDeletion(msp providers.ProviderId, key FileKey, inclusionProof *trie.CompactProof) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pending, ok := m.pendingDeletions[key]
	if !ok {
		return ErrNoPendingDeletion
	}

	bucket, ok := m.directory.GetBucket(pending.BucketId)
	if !ok {
		return ErrFileNotFound
	}
	if bucket.MspId != msp {
		return providers.ErrUnknownProvider
	}

	witnesses, err := trie.VerifyForestProof(bucket.Root, inclusionProof, [][]byte{key[:]})
	if err != nil {
		return errors.Wrap(ErrProofGenerationFailed, err.Error())
	}
	if len(witnesses) != 1 || !witnesses[0].Present {
		return ErrProofGenerationFailed
	}

	delta, err := trie.ApplyForestDelta(bucket.Root, []trie.Mutation{{Key: key[:], Remove: true}}, inclusionProof)
	if err != nil {
		return errors.Wrap(ErrProofGenerationFailed, err.Error())
	}

	if err := m.directory.SetBucketRoot(pending.BucketId, delta.NewRoot); err != nil {
		return err
	}
	if err := m.directory.DecreaseBucketSize(pending.BucketId, pending.Size); err != nil {
		return err
	}

	m.challenges.EnqueuePriorityChallenge(key[:])
	delete(m.pendingDeletions, key)

	if req, ok := m.requests[key]; ok {
		req.Closed = true
	}

	log.WithFields(map[string]interface{}{"msp": msp, "file_key": key}).Info("msp responded to file deletion")
	return nil
}

// GetPendingDeletion returns a pending deletion's state for inspection.
func (m *Manager) GetPendingDeletion(key FileKey) (*PendingDeletion, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.pendingDeletions[key]
	return d, ok
}
