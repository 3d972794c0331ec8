package trie

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// CompactProof is the wire form of a sub-DAG of trie nodes: just their
// encodings, in no particular order beyond "every node an accompanying
// walk needs is present". A verifier re-derives each node's hash from its
// own bytes, so the proof carries no redundant addressing information.
type CompactProof struct {
	Nodes [][]byte
}

// decodeNode parses one encoded node. Children are recorded by hash only;
// resolving them to sibling entries happens later, against the full index.
func decodeNode(data []byte) (*node, error) {
	if len(data) < 1 {
		return nil, errors.Wrap(ErrProofDecode, "empty node encoding")
	}
	switch nodeKind(data[0]) {
	case kindLeaf:
		return decodeLeaf(data)
	case kindBranch:
		return decodeBranch(data)
	default:
		return nil, errors.Wrap(ErrProofDecode, "unknown node kind tag")
	}
}

func decodeLeaf(data []byte) (*node, error) {
	pos := 1
	if len(data) < pos+2 {
		return nil, errors.Wrap(ErrProofDecode, "truncated leaf suffix length")
	}
	suffixLen := int(binary.BigEndian.Uint16(data[pos:]))
	pos += 2
	if len(data) < pos+suffixLen+4 {
		return nil, errors.Wrap(ErrProofDecode, "truncated leaf suffix/value length")
	}
	suffix := data[pos : pos+suffixLen]
	pos += suffixLen
	valueLen := int(binary.BigEndian.Uint32(data[pos:]))
	pos += 4
	if len(data) < pos+valueLen {
		return nil, errors.Wrap(ErrProofDecode, "truncated leaf value")
	}
	value := data[pos : pos+valueLen]
	return leafNode(suffix, value), nil
}

func decodeBranch(data []byte) (*node, error) {
	n := branchNode()
	pos := 1
	if len(data) < pos+1 {
		return nil, errors.Wrap(ErrProofDecode, "truncated branch value flag")
	}
	hasValue := data[pos] == 1
	pos++
	if hasValue {
		if len(data) < pos+4 {
			return nil, errors.Wrap(ErrProofDecode, "truncated branch value length")
		}
		valueLen := int(binary.BigEndian.Uint32(data[pos:]))
		pos += 4
		if len(data) < pos+valueLen {
			return nil, errors.Wrap(ErrProofDecode, "truncated branch value")
		}
		n.hasValue = true
		n.value = append([]byte(nil), data[pos:pos+valueLen]...)
		pos += valueLen
	}
	if len(data) < pos+2 {
		return nil, errors.Wrap(ErrProofDecode, "truncated branch child count")
	}
	count := int(binary.BigEndian.Uint16(data[pos:]))
	pos += 2
	for i := 0; i < count; i++ {
		if len(data) < pos+1+32 {
			return nil, errors.Wrap(ErrProofDecode, "truncated branch child entry")
		}
		b := data[pos]
		pos++
		var h Root
		copy(h[:], data[pos:pos+32])
		pos += 32
		n.children[b] = &childRef{hash: h}
	}
	return n, nil
}

// index is a content-addressed lookup table built from a CompactProof: the
// reconstructed sub-DAG, keyed by each node's own hash.
type index map[Root]*node

// buildIndex decodes every node in proof and keys it by the hash of its own
// encoding, returning a lookup table a walk can use to resolve children on
// demand. It does not require the nodes to form a single connected tree;
// unreachable nodes are simply never looked up.
func buildIndex[H Hasher](proof *CompactProof) (index, error) {
	idx := make(index, len(proof.Nodes))
	var h H
	for _, raw := range proof.Nodes {
		n, err := decodeNode(raw)
		if err != nil {
			return nil, err
		}
		idx[h.Hash(raw)] = n
	}
	return idx, nil
}
