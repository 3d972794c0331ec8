package blockchainservice

import (
	"github.com/pkg/errors"

	"github.com/storagehub/core/providers"
	"github.com/storagehub/core/trie"
)

// forestKey distinguishes which local trie a mutation event targets: a
// BSP's own forest, or an MSP bucket's forest. Exactly one of the two
// fields is non-zero, mirroring ForestMutationEvent.
type forestKey struct {
	Provider providers.ProviderId
	Bucket   providers.BucketId
}

func keyOf(ev ForestMutationEvent) forestKey {
	if ev.ProviderId != (providers.ProviderId{}) {
		return forestKey{Provider: ev.ProviderId}
	}
	return forestKey{Bucket: ev.BucketId}
}

// localTries holds the actor's own materialized replica of every forest it
// is responsible for tracking — separate from the registry's root-only
// bookkeeping, since the actor must be able to rebuild and verify roots
// from raw mutation events during reorg replay (spec §4.F step 2).
type localTries struct {
	tries map[forestKey]*trie.Trie[trie.SHA256Hasher]
}

func newLocalTries() *localTries {
	return &localTries{tries: make(map[forestKey]*trie.Trie[trie.SHA256Hasher])}
}

func (l *localTries) get(k forestKey) *trie.Trie[trie.SHA256Hasher] {
	t, ok := l.tries[k]
	if !ok {
		t = trie.New[trie.SHA256Hasher]()
		l.tries[k] = t
	}
	return t
}

// applyEvent applies ev's mutations to the relevant local trie, inverting
// Add/Remove when invert is true (retraction), then checks the resulting
// root against the expected root for that direction.
func (l *localTries) applyEvent(ev ForestMutationEvent, invert bool) error {
	t := l.get(keyOf(ev))
	for _, mut := range ev.Mutations {
		add := mut.Kind == MutationAdd
		if invert {
			add = !add
		}
		if add {
			t.Insert(mut.Key, mut.Value)
		} else {
			t.Remove(mut.Key)
		}
	}
	want := ev.NewRoot
	if invert {
		want = ev.OldRoot
	}
	if t.Root() != want {
		rootMismatchTotal.Inc()
		return errors.Wrapf(ErrRootMismatch, "forest %+v: got %x want %x", keyOf(ev), t.Root(), want)
	}
	return nil
}

// ApplyTreeRoute replays a tree route per spec §4.F step 2: retracted
// blocks first (mutations inverted, newest-retracted first), then enacted
// blocks (mutations applied forward, oldest-enacted first). eventsByBlock
// supplies every ForestMutationEvent observed in each block of the route.
// Any root mismatch is a hard, unrecoverable error: the actor must stop
// processing forest events rather than silently drift (spec §7).
func (l *localTries) ApplyTreeRoute(route TreeRoute, eventsByBlock map[BlockHash][]ForestMutationEvent) error {
	for _, blk := range route.Retracted {
		for _, ev := range eventsByBlock[blk.Hash] {
			if err := l.applyEvent(ev, true); err != nil {
				return err
			}
		}
	}
	for _, blk := range route.Enacted {
		for _, ev := range eventsByBlock[blk.Hash] {
			if err := l.applyEvent(ev, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProviderRoot returns the actor's current local root for a BSP's forest.
func (l *localTries) ProviderRoot(id providers.ProviderId) trie.Root {
	return l.get(forestKey{Provider: id}).Root()
}

// BucketRoot returns the actor's current local root for an MSP bucket's
// forest.
func (l *localTries) BucketRoot(id providers.BucketId) trie.Root {
	return l.get(forestKey{Bucket: id}).Root()
}
