package trie

import "bytes"

// insert applies a single upsert to the subtree rooted at n (n is nil only
// when inserting into a previously-absent child slot) and returns the new
// subtree root along with the value that was there before, if any.
func insert(idx index, n *node, key, value []byte) (*node, []byte, bool, error) {
	if n == nil {
		return leafNode(key, value), nil, false, nil
	}

	switch n.kind {
	case kindLeaf:
		if bytes.Equal(n.suffix, key) {
			old := n.value
			n.value = append([]byte(nil), value...)
			return n, old, true, nil
		}
		return splitLeaf(n, key, value), nil, false, nil

	case kindBranch:
		if len(key) == 0 {
			old, had := n.value, n.hasValue
			n.hasValue = true
			n.value = append([]byte(nil), value...)
			return n, old, had, nil
		}
		b, rest := key[0], key[1:]
		child, err := resolveChild(idx, n, b)
		if err != nil {
			return nil, nil, false, err
		}
		newChild, old, had, err := insert(idx, child, rest, value)
		if err != nil {
			return nil, nil, false, err
		}
		n.children[b] = &childRef{node: newChild}
		return n, old, had, nil
	}
	panic("trie: unreachable")
}

// splitLeaf replaces a leaf whose suffix doesn't match key with a branch
// holding both the old and new entries (or one as the branch's own value,
// if one suffix is a strict prefix of the other).
func splitLeaf(n *node, key, value []byte) *node {
	common := commonPrefixLen(n.suffix, key)
	b := branchNode()

	switch {
	case common == len(n.suffix):
		b.hasValue = true
		b.value = n.value
		rem := key[common:]
		b.children[rem[0]] = &childRef{node: leafNode(rem[1:], value)}
	case common == len(key):
		b.hasValue = true
		b.value = append([]byte(nil), value...)
		rem := n.suffix[common:]
		b.children[rem[0]] = &childRef{node: leafNode(rem[1:], n.value)}
	default:
		remOld := n.suffix[common:]
		remNew := key[common:]
		b.children[remOld[0]] = &childRef{node: leafNode(remOld[1:], n.value)}
		b.children[remNew[0]] = &childRef{node: leafNode(remNew[1:], value)}
	}
	return b
}

// remove deletes key from the subtree rooted at n, returning the new
// subtree root (nil if n itself was a leaf that got removed), the removed
// value, and whether the key was present at all.
func remove(idx index, n *node, key []byte) (*node, []byte, bool, error) {
	switch n.kind {
	case kindLeaf:
		if bytes.Equal(n.suffix, key) {
			return nil, n.value, true, nil
		}
		return n, nil, false, nil

	case kindBranch:
		if len(key) == 0 {
			if !n.hasValue {
				return n, nil, false, nil
			}
			old := n.value
			n.hasValue = false
			n.value = nil
			return collapse(n), old, true, nil
		}
		b, rest := key[0], key[1:]
		if n.children[b] == nil {
			return n, nil, false, nil
		}
		child, err := resolveChild(idx, n, b)
		if err != nil {
			return nil, nil, false, err
		}
		newChild, old, existed, err := remove(idx, child, rest)
		if err != nil {
			return nil, nil, false, err
		}
		if !existed {
			return n, nil, false, nil
		}
		if newChild == nil {
			n.children[b] = nil
		} else {
			n.children[b] = &childRef{node: newChild}
		}
		return collapse(n), old, true, nil
	}
	panic("trie: unreachable")
}

// collapse merges a valueless branch with exactly one resolved child back
// into a single leaf, keeping the trie from accumulating dead single-child
// branches after deletions. It's a best-effort pass: a branch whose sole
// remaining child hasn't been resolved in memory, or whose child is itself
// a branch, is left alone rather than forcing a resolution it doesn't need.
func collapse(n *node) *node {
	if n.hasValue {
		return n
	}
	onlyByte := -1
	count := 0
	for b, c := range n.children {
		if c != nil {
			count++
			onlyByte = b
			if count > 1 {
				return n
			}
		}
	}
	if count != 1 {
		return n
	}
	child := n.children[onlyByte].node
	if child == nil || child.kind != kindLeaf {
		return n
	}
	merged := make([]byte, 0, 1+len(child.suffix))
	merged = append(merged, byte(onlyByte))
	merged = append(merged, child.suffix...)
	return leafNode(merged, child.value)
}

// resolveChild fetches branch's child at byte b as a live node, pulling it
// from idx on first touch.
func resolveChild(idx index, branch *node, b byte) (*node, error) {
	ref := branch.children[b]
	if ref == nil {
		return nil, nil
	}
	if ref.node == nil {
		resolved, ok := idx[ref.hash]
		if !ok {
			return nil, errMissingNode
		}
		ref.node = resolved
	}
	return ref.node, nil
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
