package trie

import (
	"crypto/sha256"
	"encoding/binary"
)

// SHA256Hasher addresses nodes with a single SHA-256 pass. Used by the
// provider forest trie.
type SHA256Hasher struct{}

func (SHA256Hasher) Hash(data []byte) Root {
	return sha256.Sum256(data)
}

// DoubleSHA256Hasher addresses nodes with SHA-256 applied twice. Used by the
// per-file chunk trie, so that a forest leaf's hash and a chunk-trie node's
// hash are never accidentally interchangeable even if their encodings
// happened to collide byte-for-byte.
type DoubleSHA256Hasher struct{}

func (DoubleSHA256Hasher) Hash(data []byte) Root {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}

// emptyBranchEncoding is the canonical encoding of a branch node with no
// children and no value, used to compute EmptyRoot.
var emptyBranchEncoding = encodeNode(branchNode())

// EmptyRoot returns the root of a trie with no entries, under hasher H.
func EmptyRoot[H Hasher]() Root {
	var h H
	return h.Hash(emptyBranchEncoding)
}

// encodeNode deterministically serializes n so that two nodes with the same
// content always produce the same bytes, and therefore the same hash.
func encodeNode(n *node) []byte {
	switch n.kind {
	case kindLeaf:
		return encodeLeaf(n)
	case kindBranch:
		return encodeBranch(n)
	default:
		panic("trie: unknown node kind")
	}
}

func encodeLeaf(n *node) []byte {
	buf := make([]byte, 0, 1+2+len(n.suffix)+4+len(n.value))
	buf = append(buf, byte(kindLeaf))
	buf = appendUint16(buf, uint16(len(n.suffix)))
	buf = append(buf, n.suffix...)
	buf = appendUint32(buf, uint32(len(n.value)))
	buf = append(buf, n.value...)
	return buf
}

func encodeBranch(n *node) []byte {
	buf := []byte{byte(kindBranch)}
	if n.hasValue {
		buf = append(buf, 1)
		buf = appendUint32(buf, uint32(len(n.value)))
		buf = append(buf, n.value...)
	} else {
		buf = append(buf, 0)
	}

	count := 0
	for _, c := range n.children {
		if c != nil {
			count++
		}
	}
	buf = appendUint16(buf, uint16(count))
	for b := 0; b < 256; b++ {
		c := n.children[b]
		if c == nil {
			continue
		}
		buf = append(buf, byte(b))
		buf = append(buf, c.hash[:]...)
	}
	return buf
}

func appendUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

// hashNode computes and caches the hash of a freshly built or mutated
// subtree, resolving every child's hash bottom-up first.
func hashNode[H Hasher](n *node) Root {
	var h H
	if n.kind == kindBranch {
		for _, c := range n.children {
			if c != nil && c.node != nil {
				c.hash = hashNode[H](c.node)
			}
		}
	}
	return h.Hash(encodeNode(n))
}
