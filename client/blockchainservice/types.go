// Package blockchainservice is the off-chain single-threaded actor
// described in spec §4.F: it watches block-import and finality streams,
// serializes forest-root-mutating transactions behind a single write
// permit, replays reorgs by tree route, catches up missed proofs, and
// queues outbound extrinsics with nonce discipline and a persistent
// key-value store.
package blockchainservice

import (
	"github.com/storagehub/core/config"
	"github.com/storagehub/core/providers"
	"github.com/storagehub/core/trie"
)

// BlockHash identifies a block the way the provider client observes it from
// chain notifications.
type BlockHash [32]byte

// BlockHeader is the minimal block metadata the actor needs to track chain
// shape and drive the proof-engine tick.
type BlockHeader struct {
	Hash       BlockHash
	ParentHash BlockHash
	Number     uint64
	Tick       config.Tick
}

// ImportKind classifies a block-import notification per spec §4.F step 1.
type ImportKind int

const (
	NewNonBestBlock ImportKind = iota
	NewBestBlock
	Reorg
)

// TreeRoute is the retracted-then-enacted sequence of blocks between two
// chain tips, per the GLOSSARY's "tree route" entry. Retracted is ordered
// old-tip-first, walking back to the common ancestor; Enacted is ordered
// common-ancestor-first, walking forward to the new tip.
type TreeRoute struct {
	Retracted []BlockHeader
	Common    BlockHeader
	Enacted   []BlockHeader
}

// ForestMutationKind distinguishes an Add from a Remove in a
// MutationsAppliedForProvider / MutationsApplied event.
type ForestMutationKind int

const (
	MutationAdd ForestMutationKind = iota
	MutationRemove
)

// ForestMutationEvent is the on-chain record of one forest-root-changing
// transaction's effects, whether scoped to a BSP's own forest
// (MutationsAppliedForProvider) or to an MSP bucket's forest
// (MutationsApplied).
type ForestMutationEvent struct {
	Block     BlockHash
	ProviderId providers.ProviderId // zero for a bucket-scoped event
	BucketId   providers.BucketId   // zero for a provider-scoped event
	Mutations  []ForestMutation
	OldRoot    trie.Root
	NewRoot    trie.Root
}

// ForestMutation is a single key mutation as reported by the chain.
type ForestMutation struct {
	Key   []byte
	Value []byte // the value written (Add) or that was removed (Remove), needed to invert on retraction
	Kind  ForestMutationKind
}

// NewChallengeSeedEvent reports a freshly-generated seed for a challenge
// tick.
type NewChallengeSeedEvent struct {
	Block BlockHash
	Tick  config.Tick
	Seed  [32]byte
}

// BlockImportEvent is one item from the block-import notification stream.
type BlockImportEvent struct {
	Kind   ImportKind
	Block  BlockHeader
	Route  *TreeRoute // non-nil only for Reorg; reconstructed from ParentHash walk otherwise
}

// FinalityEvent is one item from the finality notification stream,
// carrying the forest mutations and deletion-related events to finalize
// (spec §4.F "Finality handling").
type FinalityEvent struct {
	Block     BlockHeader
	Mutations []ForestMutationEvent
}

// RequestKind names the four persisted deque column-families plus the
// in-memory SubmitProofRequest ordered set, per spec §6's persistent local
// state layout.
type RequestKind int

const (
	KindSubmitProof RequestKind = iota
	KindConfirmStoring
	KindMspRespondStorageRequest
	KindStopStoringForInsolventUser
	KindFileDeletionRequest
)

func (k RequestKind) String() string {
	switch k {
	case KindSubmitProof:
		return "submit_proof"
	case KindConfirmStoring:
		return "pending_confirm_storing_request"
	case KindMspRespondStorageRequest:
		return "pending_msp_respond_storage_request"
	case KindStopStoringForInsolventUser:
		return "pending_stop_storing_for_insolvent_user_request"
	case KindFileDeletionRequest:
		return "pending_file_deletion_request"
	default:
		return "unknown"
	}
}

// QueuedRequest is one persisted unit of pending off-chain work.
type QueuedRequest struct {
	Kind     RequestKind
	Payload  []byte // opaque extrinsic-specific payload, caller-encoded
	TryCount int
}
