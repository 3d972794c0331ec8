package blockchainservice

import (
	"sort"
	"sync"

	"github.com/storagehub/core/config"
)

// waiterRegistry implements spec §9's uniform coroutine-control-flow note:
// "register a one-shot sender under a key in an ordered map from key to
// waiter list; on advance, drain all entries whose key ≤ the new value and
// fulfill them." Used identically for wait-for-block and wait-for-tick.
type waiterRegistry struct {
	mu      sync.Mutex
	waiters map[uint64][]chan struct{}
	keys    []uint64 // kept sorted
	high    uint64
}

func newWaiterRegistry() *waiterRegistry {
	return &waiterRegistry{waiters: make(map[uint64][]chan struct{})}
}

// Wait returns a channel that closes once Advance is called with a value
// ≥ at. If the registry has already advanced past at, the channel is
// returned already closed.
func (r *waiterRegistry) Wait(at uint64) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan struct{})
	if at <= r.high {
		close(ch)
		return ch
	}
	if _, exists := r.waiters[at]; !exists {
		i := sort.Search(len(r.keys), func(i int) bool { return r.keys[i] >= at })
		r.keys = append(r.keys, 0)
		copy(r.keys[i+1:], r.keys[i:])
		r.keys[i] = at
	}
	r.waiters[at] = append(r.waiters[at], ch)
	return ch
}

// Advance fulfils and removes every waiter registered at a key ≤ value.
func (r *waiterRegistry) Advance(value uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if value > r.high {
		r.high = value
	}
	i := 0
	for ; i < len(r.keys) && r.keys[i] <= value; i++ {
		for _, ch := range r.waiters[r.keys[i]] {
			close(ch)
		}
		delete(r.waiters, r.keys[i])
	}
	r.keys = r.keys[i:]
}

// waiters bundles the block-number and tick registries the actor exposes
// to callers of WaitForBlock / WaitForTick.
type waiters struct {
	blocks *waiterRegistry
	ticks  *waiterRegistry
}

func newWaiters() *waiters {
	return &waiters{blocks: newWaiterRegistry(), ticks: newWaiterRegistry()}
}

// WaitForBlock returns a channel that closes once a block numbered ≥ n has
// been processed (spec §4.F step 5).
func (w *waiters) WaitForBlock(n uint64) <-chan struct{} { return w.blocks.Wait(n) }

// WaitForTick returns a channel that closes once the proof engine's tick
// has reached ≥ t.
func (w *waiters) WaitForTick(t config.Tick) <-chan struct{} { return w.ticks.Wait(uint64(t)) }

func (w *waiters) notify(blockNumber uint64, tick config.Tick) {
	w.blocks.Advance(blockNumber)
	w.ticks.Advance(uint64(tick))
}
