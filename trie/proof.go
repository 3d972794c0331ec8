package trie

import "github.com/pkg/errors"

// Witness is the verified outcome of checking one challenged key against a
// proof: either the key is present (with its value), or its absence is
// attested by the immediate predecessor/successor leaves that bracket it.
type Witness struct {
	Key     []byte
	Present bool
	Value   []byte // only meaningful when Present

	// Only meaningful when !Present. One side is nil when the key falls
	// outside the trie's min/max range.
	PredecessorKey []byte
	SuccessorKey   []byte
}

// verifyProof is the shared implementation behind VerifyForestProof and
// VerifyKeyProof: it differs only in which Hasher the concrete Trie
// instantiation was built with.
func verifyProof[H Hasher](root Root, proof *CompactProof, challenges [][]byte) ([]Witness, error) {
	idx, err := buildIndex[H](proof)
	if err != nil {
		return nil, err
	}
	if _, ok := idx[root]; !ok {
		return nil, ErrRootMismatch
	}

	witnesses := make([]Witness, 0, len(challenges))
	for _, key := range challenges {
		path, res, err := lookup(idx, root, key)
		if err != nil {
			return nil, errors.Wrapf(ErrChallengeUnseekable, "key %x: %v", key, err)
		}
		if res.found {
			witnesses = append(witnesses, Witness{Key: key, Present: true, Value: res.value})
			continue
		}

		pred, succ, err := bracket(idx, path, res, key)
		if err != nil {
			return nil, errors.Wrapf(ErrChallengeUnseekable, "key %x: %v", key, err)
		}
		w := Witness{Key: key}
		if pred != nil {
			w.PredecessorKey = pred.key
		}
		if succ != nil {
			w.SuccessorKey = succ.key
		}
		witnesses = append(witnesses, w)
	}
	return witnesses, nil
}

// VerifyForestProof checks a CompactProof against the provider forest root
// (one leaf per file key stored by a provider) and returns, for each
// challenged key, whether it is included and if not what brackets it.
func VerifyForestProof(root Root, proof *CompactProof, challenges [][]byte) ([]Witness, error) {
	return verifyProof[SHA256Hasher](root, proof, challenges)
}

// VerifyKeyProof is VerifyForestProof's counterpart for a single file's
// chunk trie, addressed with a distinct hasher so the two proof universes
// can never be confused.
func VerifyKeyProof(root Root, proof *CompactProof, challenges [][]byte) ([]Witness, error) {
	return verifyProof[DoubleSHA256Hasher](root, proof, challenges)
}
