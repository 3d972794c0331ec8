package proofs

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/storagehub/core/async"
	"github.com/storagehub/core/config"
	"github.com/storagehub/core/providers"
	"github.com/storagehub/core/trie"
)

// SubmitProofResult reports what submit_proof actually did, for the
// caller to relay used-capacity changes back to the registry and for
// tests to assert against S5-style scenarios.
type SubmitProofResult struct {
	NewRoot        trie.Root
	RemovedKeys    [][]byte
	DetachedFromCycle bool
}

// SubmitProof verifies a provider's challenge-cycle proof submission
// (spec §4.D "Proof submission verification"), steps 1-8.
func (e *Engine) SubmitProof(id providers.ProviderId, currentTick config.Tick, input SubmitProofInput) (*SubmitProofResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.records[id]
	if !ok {
		return nil, ErrNotProvider
	}
	if rec.Stake == 0 {
		return nil, ErrZeroStake
	}
	root, ok := e.directory.Root(id)
	if !ok {
		return nil, ErrProviderRootNotFound
	}
	if root == (trie.Root{}) || root == trie.EmptyRoot[trie.SHA256Hasher]() {
		return nil, ErrZeroRoot
	}

	challengeTick := rec.NextTickToSubmitProofFor
	if !(challengeTick < currentTick) {
		return nil, ErrChallengesTickNotReached
	}
	if !(challengeTick+e.params.ChallengeTicksTolerance > currentTick) {
		return nil, ErrChallengesTickTooLate
	}
	if currentTick >= e.params.ChallengeHistoryLength && !(challengeTick > currentTick-e.params.ChallengeHistoryLength) {
		return nil, ErrChallengesTickTooOld
	}

	seed, ok := e.seeds[challengeTick]
	if !ok {
		return nil, ErrSeedNotFound
	}

	challenges := make([][]byte, 0, e.params.RandomChallengesPerBlock)
	for i := 0; i < e.params.RandomChallengesPerBlock; i++ {
		challenges = append(challenges, deriveChallenge(seed, id, i))
	}

	var checkpointEntries []CheckpointChallenge
	usesCheckpoint := rec.LastTickProven < e.lastCheckpointTick && e.lastCheckpointTick <= challengeTick
	if usesCheckpoint {
		checkpointEntries = e.checkpointChallenges[e.lastCheckpointTick]
		for _, c := range checkpointEntries {
			challenges = append(challenges, c.Key)
		}
	}

	witnesses, err := trie.VerifyForestProof(root, input.ForestProof, challenges)
	if err != nil {
		return nil, errors.Wrap(ErrForestProofVerificationFailed, err.Error())
	}

	provenKeys := make(map[string][]byte) // string(key) -> value, present keys only
	for _, w := range witnesses {
		if w.Present {
			provenKeys[string(w.Key)] = w.Value
		}
	}

	var removeMutations []trie.Mutation
	removed := make(map[string]bool)
	for _, c := range checkpointEntries {
		if !c.ShouldRemoveKey {
			continue
		}
		if _, present := provenKeys[string(c.Key)]; present {
			removeMutations = append(removeMutations, trie.Mutation{Key: c.Key, Remove: true})
			removed[string(c.Key)] = true
		}
	}

	newRoot := root
	var removedKeys [][]byte
	detached := false
	if len(removeMutations) > 0 {
		delta, err := trie.ApplyForestDelta(root, removeMutations, input.ForestProof)
		if err != nil {
			return nil, errors.Wrap(ErrFailedToApplyDelta, err.Error())
		}
		for _, ch := range delta.Changes {
			if !ch.Removed {
				return nil, ErrUnexpectedNumberOfRemoveMutations
			}
			if ch.HadOld {
				if err := e.directory.DecreaseUsedCapacity(id, uint64(len(ch.OldValue))); err != nil {
					return nil, err
				}
			}
			removedKeys = append(removedKeys, ch.Key)
		}
		newRoot = delta.NewRoot
		if err := e.directory.SetRoot(id, newRoot); err != nil {
			return nil, err
		}
		if newRoot == trie.EmptyRoot[trie.SHA256Hasher]() {
			detached = true
		}
	}

	type provenFileKey struct {
		key   string
		value []byte
	}
	toVerify := make([]provenFileKey, 0, len(provenKeys))
	for k, v := range provenKeys {
		if removed[k] {
			continue
		}
		toVerify = append(toVerify, provenFileKey{key: k, value: v})
	}
	if len(input.KeyProofs) != len(toVerify) {
		return nil, ErrIncorrectNumberOfKeyProofs
	}

	// Each file key's proof verifies independently against its own
	// chunk-trie root, so this fans out across GOMAXPROCS via async.Scatter
	// rather than walking them one at a time on the caller's goroutine.
	if len(toVerify) > 0 {
		_, err := async.Scatter(len(toVerify), func(offset, entries int, _ *sync.RWMutex) (interface{}, error) {
			for i := offset; i < offset+entries; i++ {
				pk := toVerify[i]
				kp, ok := input.KeyProofs[pk.key]
				if !ok {
					return nil, ErrKeyProofNotFound
				}
				// The forest leaf's value is the file's chunk-trie root
				// commitment; the file-key proof is verified against that,
				// not the forest root.
				fileRoot, err := fileRootFromValue(pk.value)
				if err != nil {
					return nil, errors.Wrap(ErrKeyProofVerificationFailed, err.Error())
				}
				subChallenges := make([][]byte, 0, e.params.RandomChallengesPerBlock)
				for j := 0; j < e.params.RandomChallengesPerBlock; j++ {
					subChallenges = append(subChallenges, deriveChallenge(seed, id, j))
				}
				if _, err := trie.VerifyKeyProof(fileRoot, kp.Proof, subChallenges); err != nil {
					return nil, errors.Wrap(ErrKeyProofVerificationFailed, err.Error())
				}
			}
			return nil, nil
		})
		if err != nil {
			return nil, err
		}
	}

	rec.LastTickProven = challengeTick
	newNext := challengeTick + period(rec.Stake, e.params)
	rec.NextTickToSubmitProofFor = newNext
	e.reindexDeadline(id, rec, newNext+e.params.ChallengeTicksTolerance)

	if e.validSubmitters[currentTick] == nil {
		e.validSubmitters[currentTick] = make(map[providers.ProviderId]bool)
	}
	e.validSubmitters[currentTick][id] = true

	if detached {
		e.removeProofCycleLocked(id)
	}

	return &SubmitProofResult{NewRoot: newRoot, RemovedKeys: removedKeys, DetachedFromCycle: detached}, nil
}

// fileRootFromValue interprets a forest leaf's value as the 32-byte root
// commitment of that file's chunk trie.
func fileRootFromValue(value []byte) (trie.Root, error) {
	if len(value) != 32 {
		return trie.Root{}, errors.Errorf("forest leaf value is %d bytes, want 32 for a file root commitment", len(value))
	}
	var r trie.Root
	copy(r[:], value)
	return r, nil
}

func (e *Engine) reindexDeadline(id providers.ProviderId, rec *ChallengeRecord, newDeadline config.Tick) {
	old := e.deadlines[rec.Deadline]
	for i, pid := range old {
		if pid == id {
			old = append(old[:i], old[i+1:]...)
			break
		}
	}
	if len(old) == 0 {
		delete(e.deadlines, rec.Deadline)
	} else {
		e.deadlines[rec.Deadline] = old
	}
	rec.Deadline = newDeadline
	e.deadlines[newDeadline] = append(e.deadlines[newDeadline], id)
}
