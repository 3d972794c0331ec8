// Package providers implements the provider registry: the account →
// provider-id mapping, capacity/deposit/reputation bookkeeping, bucket and
// value-proposition tables, and the sign-up → active → top-up/insolvent →
// deleted lifecycle. It is deliberately narrow about the balances pallet it
// would sit on top of in a full chain runtime — see Ledger — since
// general-purpose balances accounting is an external collaborator by the
// same logic that NFT bucket metadata is out of scope.
package providers

import (
	"crypto/sha256"

	"github.com/storagehub/core/config"
	"github.com/storagehub/core/trie"
)

// AccountId is an opaque chain account reference.
type AccountId [32]byte

// ProviderId is derived deterministically from owner account + randomness
// at sign-up confirmation, never chosen by the caller.
type ProviderId [32]byte

func deriveProviderId(account AccountId, randomness [32]byte) ProviderId {
	h := sha256.New()
	h.Write(account[:])
	h.Write(randomness[:])
	var id ProviderId
	copy(id[:], h.Sum(nil))
	return id
}

// BucketId and ValuePropId are opaque handles assigned at creation time.
type BucketId [32]byte
type ValuePropId [32]byte

// Kind distinguishes the two provider roles the spec defines.
type Kind uint8

const (
	// KindMSP manages buckets on behalf of users.
	KindMSP Kind = iota
	// KindBSP provides randomized replicated backup storage.
	KindBSP
)

func (k Kind) String() string {
	if k == KindMSP {
		return "msp"
	}
	return "bsp"
}

// Status tracks a confirmed provider's lifecycle position once it has left
// SignUpRequested (which is tracked separately, in Registry.pending, since a
// ProviderId doesn't exist yet at that stage).
type Status uint8

const (
	StatusActive Status = iota
	StatusAwaitingTopUp
	StatusInsolvent
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusAwaitingTopUp:
		return "awaiting_top_up"
	case StatusInsolvent:
		return "insolvent"
	default:
		return "unknown"
	}
}

// Provider is the registry's confirmed-provider record (spec §3).
type Provider struct {
	ID             ProviderId
	Kind           Kind
	OwnerAccount   AccountId
	PaymentAccount AccountId

	Capacity     uint64
	UsedCapacity uint64

	Multiaddresses [][]byte

	Root trie.Root

	LastCapacityChangeTick config.Tick
	SignUpTick             config.Tick

	ReputationWeight uint64 // BSP only
	BucketCount      uint64 // MSP only
	ValuePropCount   uint64 // MSP only

	Status Status
}

// HasStoredData reports Invariant I3: root = default-root iff the provider
// stores nothing and is out of the challenge cycle.
func (p *Provider) HasStoredData() bool {
	return p.Root != trie.EmptyRoot[trie.SHA256Hasher]()
}

// pendingSignUp is a request that hasn't yet matured into a Provider.
type pendingSignUp struct {
	Account         AccountId
	Kind            Kind
	Capacity        uint64
	Multiaddresses  [][]byte
	ValuePropId     *ValuePropId
	RequestedAtTick config.Tick
	HeldDeposit     uint64
}

// TopUpMetadata tracks a provider given a grace period to restore its
// deposit/capacity relationship after a slash.
type TopUpMetadata struct {
	StartedAtTick      config.Tick
	EndTickGracePeriod config.Tick
}

// ValueProposition is append-only: deactivating one never removes it, since
// buckets and storage requests may still reference it historically.
type ValueProposition struct {
	ID                      ValuePropId
	Owner                   ProviderId
	PricePerGigaUnitPerTick uint64
	MaxDataPerBucket        uint64
	Commitment              []byte
	Available               bool
}

// Bucket is an MSP-owned container of files with its own forest root.
type Bucket struct {
	ID                     BucketId
	Owner                  AccountId
	MspId                  ProviderId
	Root                   trie.Root
	Size                   uint64
	ValuePropId            ValuePropId
	ReadAccessCollectionId *uint64
}
