package blockchainservice

import (
	"encoding/hex"

	"github.com/storagehub/core/async"
	"github.com/storagehub/core/providers"
	"github.com/storagehub/core/trie"
)

// providerLockKey and bucketLockKey name the per-forest lock resources
// guarding the actor's local forest replica (spec §5(b)). Each is taken as
// an exclusive Multilock, so two readers of the same forest wait for each
// other as well as for a writer. A single global lock would serialize an
// unrelated provider's root read against every block-import write; keying
// by forest identity keeps the locks of disjoint forests independent.
func providerLockKey(id providers.ProviderId) string { return "provider:" + hex.EncodeToString(id[:]) }
func bucketLockKey(id providers.BucketId) string     { return "bucket:" + hex.EncodeToString(id[:]) }

// ProviderRoot reads a BSP's locally-replicated forest root, serialized
// only against a concurrent write touching that same provider's forest —
// not against the actor's full per-block write loop.
func (s *Service) ProviderRoot(id providers.ProviderId) trie.Root {
	lock := async.NewMultilock(providerLockKey(id))
	lock.Lock()
	defer lock.Unlock()
	return s.local.ProviderRoot(id)
}

// BucketRoot is ProviderRoot's MSP-bucket counterpart.
func (s *Service) BucketRoot(id providers.BucketId) trie.Root {
	lock := async.NewMultilock(bucketLockKey(id))
	lock.Lock()
	defer lock.Unlock()
	return s.local.BucketRoot(id)
}

// routeLockKeys collects the lock key for every forest a tree route's
// events touch, deduplicated, so the writer side can take a single
// Multilock covering every forest it is about to mutate in one
// ApplyTreeRoute call.
func routeLockKeys(route TreeRoute, eventsByBlock map[BlockHash][]ForestMutationEvent) []string {
	seen := make(map[string]bool)
	var keys []string
	add := func(k string) {
		if seen[k] {
			return
		}
		seen[k] = true
		keys = append(keys, k)
	}
	visit := func(blocks []BlockHeader) {
		for _, blk := range blocks {
			for _, ev := range eventsByBlock[blk.Hash] {
				if ev.ProviderId != (providers.ProviderId{}) {
					add(providerLockKey(ev.ProviderId))
				} else {
					add(bucketLockKey(ev.BucketId))
				}
			}
		}
	}
	visit(route.Retracted)
	visit(route.Enacted)
	return keys
}
