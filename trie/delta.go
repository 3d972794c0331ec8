package trie

import "github.com/pkg/errors"

// Mutation is one key's worth of a delta applied atomically by
// ApplyForestDelta or ApplyKeyDelta.
type Mutation struct {
	Key    []byte
	Value  []byte // ignored when Remove is set
	Remove bool
}

// KVChange reports what happened to one mutated key, including its prior
// value where that matters for rollback bookkeeping upstream (a provider
// reverting a rejected delta needs the old value, not just the new root).
type KVChange struct {
	Key      []byte
	OldValue []byte
	HadOld   bool
	NewValue []byte
	Removed  bool
}

// DeltaResult is the outcome of successfully applying a batch of mutations.
type DeltaResult struct {
	NewRoot Root
	Changes []KVChange
}

// applyDelta is the shared implementation behind ApplyForestDelta and
// ApplyKeyDelta. The supplied proof must cover every node along the path
// to every mutated key; applyDelta never fetches data out-of-band.
func applyDelta[H Hasher](root Root, mutations []Mutation, proof *CompactProof) (*DeltaResult, error) {
	idx, err := buildIndex[H](proof)
	if err != nil {
		return nil, err
	}
	cur, ok := idx[root]
	if !ok {
		return nil, errors.Wrap(ErrMutationIncomplete, "root node not present in proof")
	}

	changes := make([]KVChange, 0, len(mutations))
	for _, m := range mutations {
		if m.Remove {
			newNode, old, existed, err := remove(idx, cur, m.Key)
			if err != nil {
				return nil, errors.Wrapf(ErrMutationIncomplete, "removing key %x: %v", m.Key, err)
			}
			if !existed {
				return nil, errors.Wrapf(ErrRevertMissingValue, "key %x", m.Key)
			}
			if newNode == nil {
				newNode = branchNode()
			}
			cur = newNode
			changes = append(changes, KVChange{Key: m.Key, OldValue: old, HadOld: true, Removed: true})
			continue
		}

		newNode, old, had, err := insert(idx, cur, m.Key, m.Value)
		if err != nil {
			return nil, errors.Wrapf(ErrMutationIncomplete, "inserting key %x: %v", m.Key, err)
		}
		cur = newNode
		changes = append(changes, KVChange{Key: m.Key, OldValue: old, HadOld: had, NewValue: append([]byte(nil), m.Value...)})
	}

	newRoot := hashNode[H](cur)
	return &DeltaResult{NewRoot: newRoot, Changes: changes}, nil
}

// ApplyForestDelta applies mutations to a provider forest root, returning
// the new root and the prior value of every mutated key.
func ApplyForestDelta(root Root, mutations []Mutation, proof *CompactProof) (*DeltaResult, error) {
	return applyDelta[SHA256Hasher](root, mutations, proof)
}

// ApplyKeyDelta is ApplyForestDelta's counterpart for a file's chunk trie.
func ApplyKeyDelta(root Root, mutations []Mutation, proof *CompactProof) (*DeltaResult, error) {
	return applyDelta[DoubleSHA256Hasher](root, mutations, proof)
}
