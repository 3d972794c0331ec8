package filesystem

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/storagehub/core/config"
	"github.com/storagehub/core/proofs"
	"github.com/storagehub/core/providers"
	"github.com/storagehub/core/trie"
)

var log = logrus.WithField("prefix", "filesystem")

// Directory is the narrow registry surface this package needs: provider
// lookup/capacity/root read-write, used-capacity adjustment, and bucket /
// value-proposition lookup. Satisfied by *providers.Registry.
type Directory interface {
	GetProvider(id providers.ProviderId) (*providers.Provider, bool)
	Capacity(id providers.ProviderId) (uint64, bool)
	Root(id providers.ProviderId) (trie.Root, bool)
	SetRoot(id providers.ProviderId, root trie.Root) error
	IncreaseUsedCapacity(id providers.ProviderId, amount uint64) error
	DecreaseUsedCapacity(id providers.ProviderId, amount uint64) error
	GetBucket(id providers.BucketId) (*providers.Bucket, bool)
	GetValueProposition(id providers.ValuePropId) (*providers.ValueProposition, bool)
	SetBucketRoot(id providers.BucketId, root trie.Root) error
	DecreaseBucketSize(id providers.BucketId, amount uint64) error
	IncreaseBucketSize(id providers.BucketId, amount uint64) error
	ReassignBucketMsp(id providers.BucketId, newMsp providers.ProviderId, newValueProp providers.ValuePropId) error
}

// ChallengeQueue is the narrow proofs.Engine surface needed to compel BSPs
// to remove a deleted file on their next proof.
type ChallengeQueue interface {
	EnqueuePriorityChallenge(key []byte)
}

// WithoutFundsChecker is the narrow payments.Manager surface needed for
// stop-storing-for-insolvent-user.
type WithoutFundsChecker interface {
	IsWithoutFunds(user providers.AccountId, currentTick config.Tick) bool
}

// Manager owns storage-request, deletion, bucket-move, and stop-storing
// lifecycle state.
type Manager struct {
	mu sync.Mutex

	params    *config.Params
	deposits  *providers.Ledger
	directory Directory
	challenges ChallengeQueue
	funds     WithoutFundsChecker

	requests        map[FileKey]*StorageRequest
	pendingDeletions map[FileKey]*PendingDeletion
	bucketMoves     map[providers.BucketId]*BucketMoveRequest
	stopStoring     map[FileKey]*StopStoringRequest
}

// NewManager wires a filesystem manager to its collaborators.
func NewManager(deposits *providers.Ledger, directory Directory, challenges ChallengeQueue, funds WithoutFundsChecker, params *config.Params) *Manager {
	if params == nil {
		params = config.Current()
	}
	return &Manager{
		params:           params,
		deposits:         deposits,
		directory:        directory,
		challenges:       challenges,
		funds:            funds,
		requests:         make(map[FileKey]*StorageRequest),
		pendingDeletions: make(map[FileKey]*PendingDeletion),
		bucketMoves:      make(map[providers.BucketId]*BucketMoveRequest),
		stopStoring:      make(map[FileKey]*StopStoringRequest),
	}
}

// deriveFileKey computes H(owner, bucket_id, location, size, fingerprint).
func deriveFileKey(owner providers.AccountId, bucket providers.BucketId, location []byte, size uint64, fingerprint [32]byte) FileKey {
	h := sha256.New()
	h.Write(owner[:])
	h.Write(bucket[:])
	h.Write(location)
	var sb [8]byte
	binary.BigEndian.PutUint64(sb[:], size)
	h.Write(sb[:])
	h.Write(fingerprint[:])
	var k FileKey
	copy(k[:], h.Sum(nil))
	return k
}

// storageDeposit computes base + size×price×UpfrontTicksToPay, with price
// taken from the bucket's value proposition (price per BytesPerPricingUnit
// per tick).
func (m *Manager) storageDeposit(size uint64, vp *providers.ValueProposition) uint64 {
	pricePerUnit := vp.PricePerGigaUnitPerTick
	units := size / m.params.BytesPerPricingUnit
	if size%m.params.BytesPerPricingUnit != 0 {
		units++
	}
	return m.params.StorageRequestBaseDeposit + units*pricePerUnit*m.params.UpfrontTicksToPay
}

// IssueStorageRequest creates a new StorageRequest and holds its deposit
// from the owner's available balance (spec §4.E step 1).
func (m *Manager) IssueStorageRequest(owner providers.AccountId, bucketId providers.BucketId, location []byte, fingerprint [32]byte, size uint64, replicationTarget uint32, peerIds [][]byte, currentTick config.Tick) (FileKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.directory.GetBucket(bucketId)
	if !ok {
		return FileKey{}, ErrFileNotFound
	}
	vp, ok := m.directory.GetValueProposition(bucket.ValuePropId)
	if !ok {
		return FileKey{}, ErrFileNotFound
	}
	if vp.MaxDataPerBucket != 0 && bucket.Size+size > vp.MaxDataPerBucket {
		return FileKey{}, ErrBucketSizeExceedsLimit
	}

	key := deriveFileKey(owner, bucketId, location, size, fingerprint)
	if _, exists := m.requests[key]; exists {
		return key, nil
	}

	deposit := m.storageDeposit(size, vp)
	if err := m.deposits.Hold(owner, deposit); err != nil {
		return FileKey{}, err
	}
	if err := m.directory.IncreaseBucketSize(bucketId, size); err != nil {
		return FileKey{}, err
	}

	m.requests[key] = &StorageRequest{
		FileKey:           key,
		Owner:             owner,
		BucketId:          bucketId,
		Location:          location,
		Fingerprint:       fingerprint,
		Size:              size,
		ReplicationTarget: replicationTarget,
		PeerIds:           peerIds,
		Deposit:           deposit,
		RequestedAt:       currentTick,
		ExpiresAt:         currentTick + m.params.StorageRequestTtl,
		Volunteers:        make(map[providers.ProviderId]bool),
		ConfirmedBsps:     make(map[providers.ProviderId]bool),
	}
	log.WithFields(logrus.Fields{"file_key": key, "size": size, "target": replicationTarget}).Info("storage request issued")
	return key, nil
}

// earliestVolunteerTick computes the tick at which bsp may first volunteer
// for key, per spec §4.E step 2.
func earliestVolunteerTick(bsp providers.ProviderId, key FileKey, requestTick config.Tick, p *config.Params) config.Tick {
	t := proofs.Threshold32(bsp[:], key[:])
	// ceil(TickRangeToMaximumThreshold * T / MaxThreshold)
	num := p.TickRangeToMaximumThreshold * uint64(t)
	delta := num / config.MaxThreshold
	if num%config.MaxThreshold != 0 {
		delta++
	}
	return requestTick + config.Tick(delta)
}

// BspVolunteer records bsp's volunteering for key once its randomized
// earliest-volunteer tick has passed. Until this is recorded,
// BspConfirmStoring refuses the BSP (spec §4.E step 2, scenario S4).
func (m *Manager) BspVolunteer(bsp providers.ProviderId, key FileKey, currentTick config.Tick) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[key]
	if !ok {
		return ErrStorageRequestNotFound
	}
	if req.Closed {
		return ErrStorageRequestClosed
	}
	if req.Volunteers[bsp] {
		return ErrAlreadyVolunteered
	}

	earliest := earliestVolunteerTick(bsp, key, req.RequestedAt, m.params)
	if currentTick < earliest {
		return ErrVolunteerTickNotReached
	}

	req.Volunteers[bsp] = true
	log.WithFields(logrus.Fields{"bsp": bsp, "file_key": key}).Info("bsp volunteered")
	return nil
}
