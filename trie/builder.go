package trie

// Trie is the prover-side, fully-materialized counterpart to the
// proof-verification functions above: the provider forest itself, or a
// file's chunk trie, is built and mutated directly with a Trie rather than
// via proofs (those only come into play when a third party has to check a
// claim without holding the whole structure).
type Trie[H Hasher] struct {
	root *node
}

// New returns an empty trie.
func New[H Hasher]() *Trie[H] {
	return &Trie[H]{root: branchNode()}
}

// Root returns the current root hash.
func (t *Trie[H]) Root() Root {
	return hashNode[H](t.root)
}

// Insert upserts key, returning the value it previously held, if any.
func (t *Trie[H]) Insert(key, value []byte) (old []byte, had bool) {
	newRoot, old, had, _ := insert(nil, t.root, key, value)
	t.root = newRoot
	return old, had
}

// Remove deletes key, returning the value it held.
func (t *Trie[H]) Remove(key []byte) (old []byte, existed bool) {
	newRoot, old, existed, _ := remove(nil, t.root, key)
	if newRoot == nil {
		newRoot = branchNode()
	}
	t.root = newRoot
	return old, existed
}

// Get returns the value stored at key, if any.
func (t *Trie[H]) Get(key []byte) ([]byte, bool) {
	n := t.root
	depth := 0
	for {
		switch n.kind {
		case kindLeaf:
			if string(n.suffix) == string(key[depth:]) {
				return n.value, true
			}
			return nil, false
		case kindBranch:
			if depth == len(key) {
				if n.hasValue {
					return n.value, true
				}
				return nil, false
			}
			ref := n.children[key[depth]]
			if ref == nil || ref.node == nil {
				return nil, false
			}
			n = ref.node
			depth++
		}
	}
}

// Proof returns a CompactProof covering the whole trie. Minimizing a proof
// down to only the nodes a given challenge set needs is an optimization
// this black-boxed primitive doesn't bother with; correctness of the
// verification contract doesn't depend on proof size.
func (t *Trie[H]) Proof() *CompactProof {
	var nodes [][]byte
	collectAll[H](t.root, &nodes)
	return &CompactProof{Nodes: nodes}
}

func collectAll[H Hasher](n *node, out *[][]byte) Root {
	var h H
	if n.kind == kindBranch {
		for _, c := range n.children {
			if c != nil && c.node != nil {
				c.hash = collectAll[H](c.node, out)
			}
		}
	}
	enc := encodeNode(n)
	*out = append(*out, enc)
	return h.Hash(enc)
}
