package trie_test

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storagehub/core/trie"
)

func key(s string) []byte {
	h := sha256.Sum256([]byte(s))
	return h[:]
}

func TestEmptyRootIsStable(t *testing.T) {
	require.Equal(t, trie.EmptyRoot[trie.SHA256Hasher](), trie.New[trie.SHA256Hasher]().Root())
}

func TestForestAndKeyRootsDiffer(t *testing.T) {
	f := trie.New[trie.SHA256Hasher]()
	f.Insert(key("a"), []byte("v"))
	k := trie.New[trie.DoubleSHA256Hasher]()
	k.Insert(key("a"), []byte("v"))
	assert.NotEqual(t, f.Root(), k.Root(), "same content under different hashers must not collide")
}

func TestInsertGetRoundTrip(t *testing.T) {
	tr := trie.New[trie.SHA256Hasher]()
	tr.Insert(key("alice"), []byte("1"))
	tr.Insert(key("bob"), []byte("2"))
	tr.Insert(key("carol"), []byte("3"))

	v, ok := tr.Get(key("bob"))
	require.True(t, ok)
	assert.Equal(t, []byte("2"), v)

	_, ok = tr.Get(key("dave"))
	assert.False(t, ok)
}

func TestVerifyForestProofInclusion(t *testing.T) {
	tr := trie.New[trie.SHA256Hasher]()
	tr.Insert(key("alice"), []byte("1"))
	tr.Insert(key("bob"), []byte("2"))
	tr.Insert(key("carol"), []byte("3"))
	root := tr.Root()
	proof := tr.Proof()

	witnesses, err := trie.VerifyForestProof(root, proof, [][]byte{key("bob")})
	require.NoError(t, err)
	require.Len(t, witnesses, 1)
	assert.True(t, witnesses[0].Present)
	assert.Equal(t, []byte("2"), witnesses[0].Value)
}

func TestVerifyForestProofNonInclusionBracket(t *testing.T) {
	tr := trie.New[trie.SHA256Hasher]()
	keys := [][]byte{key("alice"), key("bob"), key("carol"), key("dave"), key("erin")}
	for i, k := range keys {
		tr.Insert(k, []byte{byte(i)})
	}
	root := tr.Root()
	proof := tr.Proof()

	absent := key("not-a-real-key")
	witnesses, err := trie.VerifyForestProof(root, proof, [][]byte{absent})
	require.NoError(t, err)
	require.Len(t, witnesses, 1)
	w := witnesses[0]
	assert.False(t, w.Present)
	// At least one bound must exist since the trie is non-empty, and any
	// present bound must genuinely bracket the challenge.
	require.True(t, w.PredecessorKey != nil || w.SuccessorKey != nil)
	if w.PredecessorKey != nil {
		assert.Equal(t, -1, compareBytes(w.PredecessorKey, absent))
	}
	if w.SuccessorKey != nil {
		assert.Equal(t, 1, compareBytes(w.SuccessorKey, absent))
	}
}

func TestVerifyForestProofRootMismatch(t *testing.T) {
	tr := trie.New[trie.SHA256Hasher]()
	tr.Insert(key("alice"), []byte("1"))
	proof := tr.Proof()

	var wrongRoot trie.Root
	_, err := trie.VerifyForestProof(wrongRoot, proof, [][]byte{key("alice")})
	assert.ErrorIs(t, err, trie.ErrRootMismatch)
}

func TestApplyForestDeltaMatchesDirectMutation(t *testing.T) {
	tr := trie.New[trie.SHA256Hasher]()
	tr.Insert(key("alice"), []byte("1"))
	tr.Insert(key("bob"), []byte("2"))
	rootBefore := tr.Root()
	proof := tr.Proof()

	result, err := trie.ApplyForestDelta(rootBefore, []trie.Mutation{
		{Key: key("carol"), Value: []byte("3")},
	}, proof)
	require.NoError(t, err)

	tr.Insert(key("carol"), []byte("3"))
	assert.Equal(t, tr.Root(), result.NewRoot)
	require.Len(t, result.Changes, 1)
	assert.False(t, result.Changes[0].HadOld)
}

func TestApplyForestDeltaRemove(t *testing.T) {
	tr := trie.New[trie.SHA256Hasher]()
	tr.Insert(key("alice"), []byte("1"))
	tr.Insert(key("bob"), []byte("2"))
	rootBefore := tr.Root()
	proof := tr.Proof()

	result, err := trie.ApplyForestDelta(rootBefore, []trie.Mutation{
		{Key: key("alice"), Remove: true},
	}, proof)
	require.NoError(t, err)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, []byte("1"), result.Changes[0].OldValue)

	tr.Remove(key("alice"))
	assert.Equal(t, tr.Root(), result.NewRoot)
}

func TestApplyForestDeltaRemoveMissingIsRevertError(t *testing.T) {
	tr := trie.New[trie.SHA256Hasher]()
	tr.Insert(key("alice"), []byte("1"))
	proof := tr.Proof()

	_, err := trie.ApplyForestDelta(tr.Root(), []trie.Mutation{
		{Key: key("nobody"), Remove: true},
	}, proof)
	assert.ErrorIs(t, err, trie.ErrRevertMissingValue)
}

func TestApplyForestDeltaIncompleteProof(t *testing.T) {
	tr := trie.New[trie.SHA256Hasher]()
	tr.Insert(key("alice"), []byte("1"))
	tr.Insert(key("bob"), []byte("2"))
	tr.Insert(key("carol"), []byte("3"))
	root := tr.Root()

	truncated := &trie.CompactProof{Nodes: nil}
	_, err := trie.ApplyForestDelta(root, []trie.Mutation{
		{Key: key("dave"), Value: []byte("4")},
	}, truncated)
	assert.ErrorIs(t, err, trie.ErrMutationIncomplete)
}

func TestApplyDeltaIsDeterministic(t *testing.T) {
	tr := trie.New[trie.SHA256Hasher]()
	tr.Insert(key("alice"), []byte("1"))
	root := tr.Root()
	proof := tr.Proof()

	r1, err := trie.ApplyForestDelta(root, []trie.Mutation{
		{Key: key("bob"), Value: []byte("2")},
		{Key: key("carol"), Value: []byte("3")},
	}, proof)
	require.NoError(t, err)

	r2, err := trie.ApplyForestDelta(root, []trie.Mutation{
		{Key: key("bob"), Value: []byte("2")},
		{Key: key("carol"), Value: []byte("3")},
	}, proof)
	require.NoError(t, err)
	assert.Equal(t, r1.NewRoot, r2.NewRoot, "applying the same delta to the same base must be deterministic")
}

func compareBytes(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
