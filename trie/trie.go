// Package trie implements the compact, content-addressed radix trie that
// backs both the provider forest (one leaf per stored file key) and the
// per-file chunk trie used to answer individual key challenges. The actual
// cryptographic accumulator is treated as a black box by the rest of this
// module (see the provider-proof-engine design notes); this package only
// has to make every operation and invariant in that contract true, not
// match any particular production MPT byte-for-byte.
//
// A trie is a radix-256 tree over raw key bytes: each branch node consumes
// one byte of the key per level and every node is addressed by the SHA-256
// (or, for the file-key variant, double SHA-256) of its own encoding. That
// makes proofs a flat list of encoded nodes in any order - a verifier
// rebuilds exactly the sub-DAG it was handed and can detect a missing
// sibling as cleanly as a wrong root.
package trie

import "fmt"

// Root is the 32-byte content hash of a trie's top node.
type Root [32]byte

func (r Root) String() string {
	return fmt.Sprintf("%x", r[:])
}

// IsZero reports whether r is the zero value, used as a sentinel for "no
// trie yet" rather than a real empty-trie root (see EmptyRoot).
func (r Root) IsZero() bool {
	return r == Root{}
}

// Hasher selects the hash function a Trie instantiation uses to address its
// nodes. The forest trie and the file-chunk trie are the same data
// structure parameterized by two distinct concrete implementers, chosen at
// compile time rather than through a runtime vtable, so the compiler can
// inline the hot path and callers can never mix roots computed under
// different hash functions.
type Hasher interface {
	Hash(data []byte) Root
}

// nodeKind discriminates the two shapes a node can take.
type nodeKind uint8

const (
	kindLeaf nodeKind = iota
	kindBranch
)

// node is the in-memory, mutable representation of one trie node. Only one
// of the leaf/branch field groups is meaningful, selected by kind.
type node struct {
	kind nodeKind

	// Leaf: suffix is the remainder of the key from this node downward.
	suffix []byte
	value  []byte

	// Branch: children is sparse (absent bytes are nil), and a branch may
	// additionally hold a value when some key is a strict prefix of
	// another (not exercised by fixed-width keys, but not disallowed).
	children [256]*childRef
	hasValue bool
}

// childRef is a lazily-resolved pointer to a child node: either the live
// in-memory node (while mutating) or just its hash (when the subtree below
// it hasn't been touched and doesn't need to be).
type childRef struct {
	hash Root
	node *node // nil until resolved from a proof or freshly created
}

func leafNode(suffix, value []byte) *node {
	return &node{kind: kindLeaf, suffix: append([]byte(nil), suffix...), value: append([]byte(nil), value...)}
}

func branchNode() *node {
	return &node{kind: kindBranch}
}
