// Package filesystem implements the storage-request lifecycle: issuance,
// BSP volunteering under a randomized time-gated threshold, confirm-storing,
// expiry reaping, file deletion, bucket moves, and stopping storage for
// insolvent users. It sits above providers, payments, and proofs, and
// never gets imported back by any of them.
package filesystem

import (
	"github.com/storagehub/core/config"
	"github.com/storagehub/core/providers"
)

// FileKey identifies a file as H(owner, bucket_id, location, size,
// fingerprint), per spec §4.E step 1.
type FileKey [32]byte

// StorageRequest is a pending or in-flight request for BSP replication of
// a file already accepted into an MSP-served bucket.
type StorageRequest struct {
	FileKey           FileKey
	Owner             providers.AccountId
	BucketId          providers.BucketId
	Location          []byte
	Fingerprint       [32]byte
	Size              uint64
	ReplicationTarget uint32
	PeerIds           [][]byte

	Deposit     uint64
	RequestedAt config.Tick
	ExpiresAt   config.Tick

	Volunteers    map[providers.ProviderId]bool
	ConfirmedBsps map[providers.ProviderId]bool
	Closed        bool
}

// PendingDeletion tracks a user's request_file_deletion awaiting the
// serving MSP's response.
type PendingDeletion struct {
	FileKey   FileKey
	BucketId  providers.BucketId
	Owner     providers.AccountId
	Fingerprint [32]byte
	Size      uint64
	RequestedAt config.Tick
}

// BucketMoveRequest tracks a pending move_bucket awaiting the target MSP's
// accept/reject within its TTL.
type BucketMoveRequest struct {
	BucketId    providers.BucketId
	NewMspId    providers.ProviderId
	NewValueProp providers.ValuePropId
	RequestedAt config.Tick
	ExpiresAt   config.Tick
}

// StopStoringRequest tracks a provider's intent to stop storing for a user
// flagged WithoutFunds, gated by MinWaitForStopStoring.
type StopStoringRequest struct {
	Provider    providers.ProviderId
	FileKey     FileKey
	User        providers.AccountId
	RequestedAt config.Tick
}
