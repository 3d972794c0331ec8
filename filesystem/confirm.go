package filesystem

import (
	"github.com/pkg/errors"

	"github.com/storagehub/core/providers"
	"github.com/storagehub/core/trie"
)

// BspConfirmStoring commits bsp's forest-root delta adding key, after
// proving the key is not yet present in its forest (spec §4.E step 3).
// fileRootCommitment is the file's chunk-trie root, stored as the forest
// leaf's value (the same convention the proof engine reads back in
// submit_proof's per-file key-proof step).
func (m *Manager) BspConfirmStoring(bsp providers.ProviderId, key FileKey, nonInclusionForestProof *trie.CompactProof, fileRootCommitment []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[key]
	if !ok {
		return ErrStorageRequestNotFound
	}
	if req.Closed {
		return ErrStorageRequestClosed
	}
	if req.ConfirmedBsps[bsp] {
		return ErrAlreadyVolunteered
	}
	if !req.Volunteers[bsp] {
		return ErrBspNotVolunteered
	}

	capacity, ok := m.directory.Capacity(bsp)
	if !ok {
		return providers.ErrUnknownProvider
	}
	provider, _ := m.directory.GetProvider(bsp)
	if capacity-provider.UsedCapacity < req.Size {
		return ErrInsufficientCapacity
	}

	root, ok := m.directory.Root(bsp)
	if !ok {
		return providers.ErrUnknownProvider
	}

	witnesses, err := trie.VerifyForestProof(root, nonInclusionForestProof, [][]byte{key[:]})
	if err != nil {
		return errors.Wrap(ErrProofGenerationFailed, err.Error())
	}
	if len(witnesses) != 1 || witnesses[0].Present {
		return ErrProofGenerationFailed
	}

	delta, err := trie.ApplyForestDelta(root, []trie.Mutation{{Key: key[:], Value: fileRootCommitment}}, nonInclusionForestProof)
	if err != nil {
		return errors.Wrap(ErrProofGenerationFailed, err.Error())
	}

	if err := m.directory.SetRoot(bsp, delta.NewRoot); err != nil {
		return err
	}
	if err := m.directory.IncreaseUsedCapacity(bsp, req.Size); err != nil {
		return err
	}

	req.ConfirmedBsps[bsp] = true
	log.WithFields(map[string]interface{}{"provider": bsp, "file_key": key}).Info("bsp confirmed storing")

	if uint32(len(req.ConfirmedBsps)) >= req.ReplicationTarget {
		req.Closed = true
		if err := m.deposits.Release(req.Owner, req.Deposit); err != nil {
			return err
		}
		log.WithField("file_key", key).Info("storage request fully replicated, closed")
	}
	return nil
}
