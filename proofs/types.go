// Package proofs implements the provider proof engine: challenge-seed
// generation, checkpoint challenge queueing, the slashable-provider sweep,
// spam-detection pausing, and submit_proof verification. It treats the
// provider registry purely through the narrow ProviderDirectory interface
// so it can both read a provider's capacity/root and be the thing the
// registry calls back into via providers.EngineHooks, without the two
// packages importing each other's full surface.
package proofs

import (
	"github.com/storagehub/core/config"
	"github.com/storagehub/core/providers"
	"github.com/storagehub/core/trie"
)

// ProviderDirectory is the subset of *providers.Registry the engine needs:
// capacity (used as the provider's "stake" for challenge-period purposes,
// since the spec names a stake without ever defining it independently of
// capacity — a recorded design decision, see DESIGN.md), root read/write,
// and used-capacity adjustment after a checkpoint-driven removal.
type ProviderDirectory interface {
	Capacity(id providers.ProviderId) (uint64, bool)
	Root(id providers.ProviderId) (trie.Root, bool)
	SetRoot(id providers.ProviderId, root trie.Root) error
	DecreaseUsedCapacity(id providers.ProviderId, amount uint64) error
}

// ChallengeRecord is the engine's per-provider cycle state.
type ChallengeRecord struct {
	Provider                 providers.ProviderId
	Stake                    uint64
	LastTickProven           config.Tick
	NextTickToSubmitProofFor config.Tick
	Deadline                 config.Tick
	AccruedFailures          uint64
}

// CheckpointChallenge is a single entry in the priority or ordinary
// checkpoint-challenge queue.
type CheckpointChallenge struct {
	Key             []byte
	ShouldRemoveKey bool
}

// SlashableProviderEvent is sent on Engine.Events whenever the sweep moves a
// provider past its deadline without a matching submit_proof.
type SlashableProviderEvent struct {
	Provider             providers.ProviderId
	NextChallengeDeadline config.Tick
}

// KeyProof is a single file-key's internal (chunk-level) proof, verified
// against the DoubleSHA256Hasher key-trie.
type KeyProof struct {
	Proof *trie.CompactProof
}

// SubmitProofInput bundles everything submit_proof needs beyond the
// provider's own record.
type SubmitProofInput struct {
	ForestProof *trie.CompactProof
	KeyProofs   map[string]KeyProof // keyed by string(key) since []byte isn't comparable
}
