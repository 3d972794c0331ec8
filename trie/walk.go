package trie

import (
	"bytes"

	"github.com/pkg/errors"
)

// pathEntry records one branch hop taken while walking toward a key, so a
// failed lookup can backtrack to find the nearest existing neighbor.
type pathEntry struct {
	branch *node
	taken  byte
}

// lookupResult is the outcome of walking a key through a reconstructed
// sub-DAG: either an exact hit, or enough context to locate the key's
// immediate neighbors.
type lookupResult struct {
	found bool
	value []byte

	// Populated when the walk ran off a leaf whose suffix doesn't match
	// the remaining key.
	divergedAtLeaf *node
	divergeDepth   int

	// Populated when the walk ran off a branch missing the next byte, or
	// ran out of key bytes partway through a branch.
	atBranch     *node
	atByteAbsent *byte // nil when the key was exhausted rather than a specific byte missing
}

// errMissingNode signals that a walk needed a node the proof didn't
// include. Callers translate it into the sentinel appropriate to their
// operation (ErrChallengeUnseekable for reads, ErrMutationIncomplete for
// ApplyForestDelta/ApplyKeyDelta).
var errMissingNode = errors.New("trie: node referenced by hash is not present in proof")

// lookup walks key through the sub-DAG rooted at root, resolving children
// against idx. It returns the path of branch hops taken (for neighbor
// backtracking) and the outcome.
func lookup(idx index, root Root, key []byte) ([]pathEntry, lookupResult, error) {
	cur, ok := idx[root]
	if !ok {
		return nil, lookupResult{}, errMissingNode
	}

	var path []pathEntry
	depth := 0
	for {
		switch cur.kind {
		case kindLeaf:
			rem := key[depth:]
			if bytes.Equal(cur.suffix, rem) {
				return path, lookupResult{found: true, value: cur.value}, nil
			}
			return path, lookupResult{divergedAtLeaf: cur, divergeDepth: depth}, nil

		case kindBranch:
			if depth == len(key) {
				if cur.hasValue {
					return path, lookupResult{found: true, value: cur.value}, nil
				}
				return path, lookupResult{atBranch: cur, divergeDepth: depth}, nil
			}
			b := key[depth]
			child := cur.children[b]
			if child == nil {
				return path, lookupResult{atBranch: cur, atByteAbsent: &b, divergeDepth: depth}, nil
			}
			next, ok := idx[child.hash]
			if !ok {
				return nil, lookupResult{}, errMissingNode
			}
			path = append(path, pathEntry{branch: cur, taken: b})
			cur = next
			depth++
		}
	}
}

// neighbor is one endpoint of a non-membership bracket: the full key and
// value of the nearest existing leaf on one side of a challenged key.
type neighbor struct {
	key   []byte
	value []byte
}

// findExtreme descends a subtree always taking the largest (wantMax) or
// smallest (!wantMax) available child, returning the key/value of the leaf
// it bottoms out at. prefix is the key bytes already consumed to reach n.
func findExtreme(idx index, n *node, prefix []byte, wantMax bool) (*neighbor, error) {
	for {
		switch n.kind {
		case kindLeaf:
			full := append(append([]byte(nil), prefix...), n.suffix...)
			return &neighbor{key: full, value: n.value}, nil
		case kindBranch:
			if !wantMax && n.hasValue {
				return &neighbor{key: append([]byte(nil), prefix...), value: n.value}, nil
			}
			var chosen byte
			found := false
			if wantMax {
				for b := 255; b >= 0; b-- {
					if n.children[b] != nil {
						chosen = byte(b)
						found = true
						break
					}
				}
			} else {
				for b := 0; b < 256; b++ {
					if n.children[b] != nil {
						chosen = byte(b)
						found = true
						break
					}
				}
			}
			if !found {
				if wantMax && n.hasValue {
					return &neighbor{key: append([]byte(nil), prefix...), value: n.value}, nil
				}
				return nil, ErrProofDecode
			}
			child := n.children[chosen]
			next, ok := idx[child.hash]
			if !ok {
				return nil, errMissingNode
			}
			n = next
			prefix = append(append([]byte(nil), prefix...), chosen)
		}
	}
}

// bracket locates the tightest existing predecessor/successor pair around a
// key that lookup already determined is absent. Either side may be nil,
// meaning key is below the trie's minimum or above its maximum key.
func bracket(idx index, path []pathEntry, res lookupResult, key []byte) (pred, succ *neighbor, err error) {
	prefix := key[:res.divergeDepth]

	if res.divergedAtLeaf != nil {
		rem := key[res.divergeDepth:]
		if bytes.Compare(res.divergedAtLeaf.suffix, rem) < 0 {
			pred = &neighbor{key: append(append([]byte(nil), prefix...), res.divergedAtLeaf.suffix...), value: res.divergedAtLeaf.value}
		} else {
			succ = &neighbor{key: append(append([]byte(nil), prefix...), res.divergedAtLeaf.suffix...), value: res.divergedAtLeaf.value}
		}
	} else if res.atBranch != nil {
		if res.atByteAbsent != nil {
			ab := *res.atByteAbsent
			for b := int(ab) - 1; b >= 0; b-- {
				if c := res.atBranch.children[b]; c != nil {
					n, ok := idx[c.hash]
					if !ok {
						return nil, nil, errMissingNode
					}
					pred, err = findExtreme(idx, n, append(append([]byte(nil), prefix...), byte(b)), true)
					if err != nil {
						return nil, nil, err
					}
					break
				}
			}
			if pred == nil && res.atBranch.hasValue {
				pred = &neighbor{key: append([]byte(nil), prefix...), value: res.atBranch.value}
			}
			for b := int(ab) + 1; b < 256; b++ {
				if c := res.atBranch.children[b]; c != nil {
					n, ok := idx[c.hash]
					if !ok {
						return nil, nil, errMissingNode
					}
					succ, err = findExtreme(idx, n, append(append([]byte(nil), prefix...), byte(b)), false)
					if err != nil {
						return nil, nil, err
					}
					break
				}
			}
		} else {
			// Key exhausted mid-branch: every descendant is greater.
			if res.atBranch.hasValue {
				pred = &neighbor{key: append([]byte(nil), prefix...), value: res.atBranch.value}
			}
			succ, err = findExtreme(idx, res.atBranch, append([]byte(nil), prefix...), false)
			if err != nil {
				return nil, nil, err
			}
		}
	}

	// Walk up for whichever side is still unresolved.
	for i := len(path) - 1; i >= 0; i-- {
		if pred != nil && succ != nil {
			break
		}
		entry := path[i]
		parentPrefix := key[:i]
		if pred == nil {
			for b := int(entry.taken) - 1; b >= 0; b-- {
				if c := entry.branch.children[b]; c != nil {
					n, ok := idx[c.hash]
					if !ok {
						return nil, nil, errMissingNode
					}
					pred, err = findExtreme(idx, n, append(append([]byte(nil), parentPrefix...), byte(b)), true)
					if err != nil {
						return nil, nil, err
					}
					break
				}
			}
			if pred == nil && entry.branch.hasValue {
				pred = &neighbor{key: append([]byte(nil), parentPrefix...), value: entry.branch.value}
			}
		}
		if succ == nil {
			for b := int(entry.taken) + 1; b < 256; b++ {
				if c := entry.branch.children[b]; c != nil {
					n, ok := idx[c.hash]
					if !ok {
						return nil, nil, errMissingNode
					}
					succ, err = findExtreme(idx, n, append(append([]byte(nil), parentPrefix...), byte(b)), false)
					if err != nil {
						return nil, nil, err
					}
					break
				}
			}
		}
	}

	return pred, succ, nil
}
