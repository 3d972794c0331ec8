package blockchainservice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storagehub/core/providers"
	"github.com/storagehub/core/trie"
)

func rootAfterInsert(key, value []byte) trie.Root {
	t := trie.New[trie.SHA256Hasher]()
	t.Insert(key, value)
	return t.Root()
}

// TestReorgReplayMatchesS3 implements spec §8 scenario S3: a retracted
// Add(K1,V1) followed by an enacted Add(K2,V2) from the same common
// ancestor must leave the forest containing K2 but not K1, with the local
// root equal to the new best block's on-chain root.
func TestReorgReplayMatchesS3(t *testing.T) {
	local := newLocalTries()
	p := providers.ProviderId{1}

	genesis := BlockHeader{Hash: BlockHash{0}, Number: 0}
	b1 := BlockHeader{Hash: BlockHash{1}, ParentHash: genesis.Hash, Number: 1}
	b1prime := BlockHeader{Hash: BlockHash{2}, ParentHash: genesis.Hash, Number: 1}

	k1, v1 := []byte("k1"), []byte("v1")
	k2, v2 := []byte("k2"), []byte("v2")
	r0 := trie.EmptyRoot[trie.SHA256Hasher]()
	r1 := rootAfterInsert(k1, v1)
	r1prime := rootAfterInsert(k2, v2)

	originalRoute := TreeRoute{Common: genesis, Enacted: []BlockHeader{b1}}
	originalEvents := map[BlockHash][]ForestMutationEvent{
		b1.Hash: {{ProviderId: p, Mutations: []ForestMutation{{Key: k1, Value: v1, Kind: MutationAdd}}, OldRoot: r0, NewRoot: r1}},
	}
	require.NoError(t, local.ApplyTreeRoute(originalRoute, originalEvents))
	assert.Equal(t, r1, local.ProviderRoot(p))

	reorgRoute := TreeRoute{Retracted: []BlockHeader{b1}, Common: genesis, Enacted: []BlockHeader{b1prime}}
	reorgEvents := map[BlockHash][]ForestMutationEvent{
		b1.Hash:      originalEvents[b1.Hash],
		b1prime.Hash: {{ProviderId: p, Mutations: []ForestMutation{{Key: k2, Value: v2, Kind: MutationAdd}}, OldRoot: r0, NewRoot: r1prime}},
	}
	require.NoError(t, local.ApplyTreeRoute(reorgRoute, reorgEvents))

	assert.Equal(t, r1prime, local.ProviderRoot(p))

	ft := local.get(forestKey{Provider: p})
	_, hasK1 := ft.Get(k1)
	assert.False(t, hasK1, "retracted key must be gone after reorg replay")
	_, hasK2 := ft.Get(k2)
	assert.True(t, hasK2, "enacted key must be present after reorg replay")
}

func TestApplyTreeRouteDetectsRootMismatch(t *testing.T) {
	local := newLocalTries()
	p := providers.ProviderId{1}
	b1 := BlockHeader{Hash: BlockHash{1}, Number: 1}

	var bogusRoot trie.Root
	bogusRoot[0] = 0xff

	route := TreeRoute{Enacted: []BlockHeader{b1}}
	events := map[BlockHash][]ForestMutationEvent{
		b1.Hash: {{ProviderId: p, Mutations: []ForestMutation{{Key: []byte("k"), Value: []byte("v"), Kind: MutationAdd}}, NewRoot: bogusRoot}},
	}
	err := local.ApplyTreeRoute(route, events)
	assert.ErrorIs(t, err, ErrRootMismatch)
}
