package blockchainservice

import (
	"encoding/binary"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/storagehub/core/config"
	"github.com/storagehub/core/proofs"
)

// ProofGenerator builds the forest and per-file key proofs needed to
// answer a challenge tick, reading back a provider's own stored chunk
// data. That storage layer is the P2P file-transfer / chunk-storage
// collaborator spec §1 keeps out of this module's scope, so ProofGenerator
// is this package's narrow boundary onto it — the submit_proof analogue of
// ExtrinsicSubmitter's signing boundary.
type ProofGenerator interface {
	GenerateProof(tick config.Tick) (proofs.SubmitProofInput, error)
}

// submitProofEntry is one pending challenge tick awaiting a submit_proof
// extrinsic, with its own retry count (spec §9's MaxQueueItemRetries
// applies here too, even though the set isn't persisted).
type submitProofEntry struct {
	Tick     config.Tick
	TryCount int
}

// submitProofSet is the in-memory ordered set of pending SubmitProofRequests
// spec §4.F/§6 call for: not persisted, because next_tick_to_submit_proof_for
// is dynamic and there is nothing durable to replay it from on restart —
// emitCatchUpChallenges rebuilds it from the proof engine's own record
// every time it runs. Ordering and locking mirror waiters.go's
// waiterRegistry: a sorted key slice plus a self-contained mutex so it can
// be touched from both the locked actor loop and Enqueue's external
// callers without relying on the caller to hold Service.mu.
type submitProofSet struct {
	mu      sync.Mutex
	entries map[config.Tick]*submitProofEntry
	order   []config.Tick // kept sorted ascending
}

func newSubmitProofSet() *submitProofSet {
	return &submitProofSet{entries: make(map[config.Tick]*submitProofEntry)}
}

func (s *submitProofSet) insertLocked(e *submitProofEntry) {
	s.entries[e.Tick] = e
	i := sort.Search(len(s.order), func(i int) bool { return s.order[i] >= e.Tick })
	s.order = append(s.order, 0)
	copy(s.order[i+1:], s.order[i:])
	s.order[i] = e.Tick
}

// Add inserts tick if it isn't already pending; a set, not a multiset, so
// repeated catch-up emission across restarts is naturally idempotent.
func (s *submitProofSet) Add(tick config.Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[tick]; exists {
		return
	}
	s.insertLocked(&submitProofEntry{Tick: tick})
}

// Requeue re-inserts entry (with its already-incremented TryCount),
// keeping the set ordered by tick. A no-op if the tick somehow got
// re-added while the entry was in flight.
func (s *submitProofSet) Requeue(entry submitProofEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[entry.Tick]; exists {
		return
	}
	e := entry
	s.insertLocked(&e)
}

// PopEarliest removes and returns the lowest pending tick, giving BSP
// SubmitProofRequest its top-priority, earliest-first processing order.
func (s *submitProofSet) PopEarliest() (submitProofEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return submitProofEntry{}, false
	}
	tick := s.order[0]
	s.order = s.order[1:]
	e := *s.entries[tick]
	delete(s.entries, tick)
	return e, true
}

// Len reports how many challenge ticks are currently pending submission.
func (s *submitProofSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// decodeTickPayload is encodeTickPayload's inverse, used by Enqueue to
// recover the challenge tick an externally-constructed QueuedRequest
// carries for KindSubmitProof.
func decodeTickPayload(buf []byte) config.Tick {
	var t uint64
	for i := 0; i < 8 && i < len(buf); i++ {
		t = t<<8 | uint64(buf[i])
	}
	return config.Tick(t)
}

// encodeSubmitProofPayload flattens a submit_proof extrinsic's forest and
// key proofs into the opaque, length-prefixed format ExtrinsicSubmitter.Submit
// expects, the same "wire encoding left to the runtime" convention
// queue.go's encodeRequest uses for persisted payloads.
func encodeSubmitProofPayload(tick config.Tick, input proofs.SubmitProofInput) []byte {
	buf := encodeTickPayload(tick)
	buf = appendNodes(buf, input.ForestProof.Nodes)

	keys := make([]string, 0, len(input.KeyProofs))
	for k := range input.KeyProofs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf = appendUint32(buf, uint32(len(keys)))
	for _, k := range keys {
		buf = appendUint32(buf, uint32(len(k)))
		buf = append(buf, k...)
		buf = appendNodes(buf, input.KeyProofs[k].Proof.Nodes)
	}
	return buf
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendNodes(buf []byte, nodes [][]byte) []byte {
	buf = appendUint32(buf, uint32(len(nodes)))
	for _, n := range nodes {
		buf = appendUint32(buf, uint32(len(n)))
		buf = append(buf, n...)
	}
	return buf
}

// processSubmitProof runs one spawned submit_proof attempt: generate the
// proof for entry.Tick, submit it, and release the permit. It mirrors
// process's retry/drop semantics, but draws from the in-memory submit set
// rather than a persisted queue and also classifies a proof-generation
// failure as retryable, since it most often means the chunk-storage
// collaborator hasn't caught up yet rather than a permanent fault.
func (s *Service) processSubmitProof(entry submitProofEntry, nonce uint64, release chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.permit.Release() // also closes release, the channel TryAcquire handed back
		s.processPendingWorkLocked()
		s.mu.Unlock()
	}()

	input, err := s.proofGen.GenerateProof(entry.Tick)
	if err != nil {
		log.WithError(err).WithField("tick", entry.Tick).Warn("failed to generate submit_proof input, will retry")
		s.requeueOrDropSubmitProof(entry)
		return
	}

	payload := encodeSubmitProofPayload(entry.Tick, input)
	if err := s.submitter.Submit(KindSubmitProof, nonce, payload); err != nil {
		if IsRetryable(err) {
			s.requeueOrDropSubmitProof(entry)
			return
		}
		log.WithError(err).WithField("tick", entry.Tick).Error("submit_proof extrinsic submission failed (non-retryable)")
		return
	}
}

func (s *Service) requeueOrDropSubmitProof(entry submitProofEntry) {
	entry.TryCount++
	if entry.TryCount > s.params.MaxQueueItemRetries {
		itemsDroppedTotal.WithLabelValues(KindSubmitProof.String()).Inc()
		log.WithFields(logrus.Fields{"tick": entry.Tick, "tries": entry.TryCount}).Error("submit_proof exceeded retry bound, dropping")
		return
	}
	s.submitProofs.Requeue(entry)
	queueDepth.WithLabelValues(KindSubmitProof.String()).Set(float64(s.submitProofs.Len()))
}
