package providers

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/storagehub/core/config"
	"github.com/storagehub/core/trie"
)

var log = logrus.WithField("prefix", "providers")

// EngineHooks is the narrow callback surface the proof engine implements so
// the registry can initialize/remove a provider's challenge-cycle record
// and query/clear its accrued-failure count at slash time, without this
// package importing the engine (which itself imports providers for stake
// and root access). Wired together by whatever constructs both.
type EngineHooks interface {
	InitProofCycle(id ProviderId, currentTick config.Tick)
	RemoveProofCycle(id ProviderId)
	AccruedFailures(id ProviderId) uint64
	ClearAccruedFailures(id ProviderId)
}

// Registry is the provider table plus the sign-up request queue, bucket
// table, and value-proposition table.
type Registry struct {
	mu sync.RWMutex

	params *config.Params
	deposits *Ledger
	hooks    EngineHooks

	providers map[ProviderId]*Provider
	byAccount map[AccountId]ProviderId
	pending   map[AccountId]*pendingSignUp
	topUps    map[ProviderId]*TopUpMetadata

	buckets    map[BucketId]*Bucket
	valueProps map[ValuePropId]*ValueProposition

	globalBSPCapacity uint64
}

// NewRegistry returns a registry backed by ledger and parameterized by
// params (config.Current() if nil).
func NewRegistry(ledger *Ledger, params *config.Params) *Registry {
	if params == nil {
		params = config.Current()
	}
	return &Registry{
		params:     params,
		deposits:   ledger,
		providers:  make(map[ProviderId]*Provider),
		byAccount:  make(map[AccountId]ProviderId),
		pending:    make(map[AccountId]*pendingSignUp),
		topUps:     make(map[ProviderId]*TopUpMetadata),
		buckets:    make(map[BucketId]*Bucket),
		valueProps: make(map[ValuePropId]*ValueProposition),
	}
}

// SetEngineHooks wires the proof engine's callback surface in. Must be
// called before ConfirmSignUp/Slash/SignOff/DeleteProvider are exercised.
func (r *Registry) SetEngineHooks(h EngineHooks) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = h
}

// depositFor returns the deposit a provider must hold to back capacity
// units, per Invariant I2.
func depositFor(capacity uint64, p *config.Params) uint64 {
	if capacity <= p.MinCapacity {
		return p.MinDeposit
	}
	return p.MinDeposit + p.DepositPerUnitCapacity*(capacity-p.MinCapacity)
}

// maxCapacityForDeposit inverts depositFor: the largest capacity a held
// deposit can back.
func maxCapacityForDeposit(held uint64, p *config.Params) uint64 {
	if held < p.MinDeposit {
		return 0
	}
	if p.DepositPerUnitCapacity == 0 {
		return p.MinCapacity
	}
	return p.MinCapacity + (held-p.MinDeposit)/p.DepositPerUnitCapacity
}

// RequestSignUp records a pending sign-up request and holds the capacity's
// deposit from the account's available balance.
func (r *Registry) RequestSignUp(account AccountId, kind Kind, capacity uint64, multiaddrs [][]byte, valueProp *ValuePropId, currentTick config.Tick) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byAccount[account]; ok {
		return ErrAlreadyRegistered
	}
	if _, ok := r.pending[account]; ok {
		return ErrSignUpRequestPending
	}
	if capacity < r.params.MinCapacity {
		return ErrStorageTooLow
	}

	deposit := depositFor(capacity, r.params)
	if err := r.deposits.Hold(account, deposit); err != nil {
		return err
	}

	r.pending[account] = &pendingSignUp{
		Account:         account,
		Kind:            kind,
		Capacity:        capacity,
		Multiaddresses:  multiaddrs,
		ValuePropId:     valueProp,
		RequestedAtTick: currentTick,
		HeldDeposit:     deposit,
	}
	log.WithFields(logrus.Fields{"account": account, "kind": kind, "capacity": capacity}).Info("sign-up requested")
	return nil
}

// CancelSignUp releases a pending request's held deposit.
func (r *Registry) CancelSignUp(account AccountId) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.pending[account]
	if !ok {
		return ErrNoPendingSignUpRequest
	}
	if err := r.deposits.Release(account, req.HeldDeposit); err != nil {
		return err
	}
	delete(r.pending, account)
	return nil
}

// ConfirmSignUp matures a pending request into an active Provider, deriving
// its ProviderId from (account, randomness). randomnessTick must fall
// within [requested+MinBlocksForRandomness, requested+MaxBlocksForRandomness].
func (r *Registry) ConfirmSignUp(account AccountId, randomnessTick config.Tick, randomness [32]byte, currentTick config.Tick) (ProviderId, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.pending[account]
	if !ok {
		return ProviderId{}, ErrNoPendingSignUpRequest
	}
	if randomnessTick < req.RequestedAtTick+config.Tick(r.params.MinBlocksForRandomness) {
		return ProviderId{}, ErrRandomnessNotValidYet
	}
	if randomnessTick > req.RequestedAtTick+config.Tick(r.params.MaxBlocksForRandomness) {
		return ProviderId{}, ErrSignUpRequestExpired
	}

	id := deriveProviderId(account, randomness)
	p := &Provider{
		ID:                     id,
		Kind:                   req.Kind,
		OwnerAccount:           account,
		PaymentAccount:         account,
		Capacity:               req.Capacity,
		Multiaddresses:         req.Multiaddresses,
		Root:                   trie.EmptyRoot[trie.SHA256Hasher](),
		LastCapacityChangeTick: currentTick,
		SignUpTick:             currentTick,
		Status:                 StatusActive,
	}
	if req.Kind == KindBSP {
		r.globalBSPCapacity += req.Capacity
	}

	r.providers[id] = p
	r.byAccount[account] = id
	delete(r.pending, account)

	if r.hooks != nil {
		r.hooks.InitProofCycle(id, currentTick)
	}
	log.WithFields(logrus.Fields{"provider": id, "kind": p.Kind}).Info("sign-up confirmed")
	return id, nil
}

// ChangeCapacity adjusts a provider's capacity (and held deposit) once at
// least MinBlocksBetweenCapacityChanges ticks have passed since the last
// change.
func (r *Registry) ChangeCapacity(id ProviderId, newCapacity uint64, currentTick config.Tick) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[id]
	if !ok {
		return ErrUnknownProvider
	}
	if currentTick-p.LastCapacityChangeTick < config.Tick(r.params.MinBlocksBetweenCapacityChanges) {
		return ErrNotEnoughTimePassed
	}
	if newCapacity < p.UsedCapacity {
		return ErrNewCapacityLessThanUsedStorage
	}
	if newCapacity < r.params.MinCapacity {
		return ErrStorageTooLow
	}

	oldDeposit := depositFor(p.Capacity, r.params)
	newDeposit := depositFor(newCapacity, r.params)
	switch {
	case newDeposit > oldDeposit:
		if err := r.deposits.Hold(p.OwnerAccount, newDeposit-oldDeposit); err != nil {
			return err
		}
	case newDeposit < oldDeposit:
		if err := r.deposits.Release(p.OwnerAccount, oldDeposit-newDeposit); err != nil {
			return err
		}
	}

	if p.Kind == KindBSP {
		r.globalBSPCapacity += newCapacity - p.Capacity
	}
	p.Capacity = newCapacity
	p.LastCapacityChangeTick = currentTick
	return nil
}

// SignOff removes a provider that has wound down to zero used capacity.
func (r *Registry) SignOff(id ProviderId, currentTick config.Tick) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[id]
	if !ok {
		return ErrUnknownProvider
	}
	if p.UsedCapacity != 0 {
		return ErrProviderStillInUse
	}
	if p.Kind == KindBSP && currentTick-p.SignUpTick < config.Tick(r.params.BspSignUpLockPeriod) {
		return ErrNotEnoughTimePassed
	}

	if err := r.deposits.Release(p.OwnerAccount, depositFor(p.Capacity, r.params)); err != nil {
		return err
	}
	if p.Kind == KindBSP {
		r.globalBSPCapacity -= p.Capacity
	}
	delete(r.providers, id)
	delete(r.byAccount, p.OwnerAccount)
	delete(r.topUps, id)
	if r.hooks != nil {
		r.hooks.RemoveProofCycle(id)
	}
	log.WithField("provider", id).Info("signed off")
	return nil
}

// Slash burns the provider's accrued-failure penalty from its held
// deposit and, if the remaining deposit can no longer back its used
// capacity, moves it into AwaitingTopUp.
func (r *Registry) Slash(id ProviderId, currentTick config.Tick) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[id]
	if !ok {
		return ErrUnknownProvider
	}
	if r.hooks == nil {
		return nil
	}

	n := r.hooks.AccruedFailures(id)
	if n == 0 {
		return nil
	}

	amount := n * r.params.SlashAmountPerMaxFileSize
	burned := r.deposits.Burn(p.OwnerAccount, amount)
	r.hooks.ClearAccruedFailures(id)

	held := r.deposits.Held(p.OwnerAccount)
	resultingCapacity := maxCapacityForDeposit(held, r.params)
	if resultingCapacity < p.UsedCapacity {
		p.Capacity = resultingCapacity
		p.Status = StatusAwaitingTopUp
		r.topUps[id] = &TopUpMetadata{
			StartedAtTick:      currentTick,
			EndTickGracePeriod: currentTick + config.Tick(r.params.ProviderTopUpTtl),
		}
	}
	log.WithFields(logrus.Fields{"provider": id, "accrued": n, "burned": burned}).Warn("provider slashed")
	return nil
}

// TopUpDeposit restores a provider's capacity-backing deposit, clearing the
// AwaitingTopUp state if the top-up is sufficient.
func (r *Registry) TopUpDeposit(id ProviderId, amount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[id]
	if !ok {
		return ErrUnknownProvider
	}
	if _, awaiting := r.topUps[id]; !awaiting {
		return ErrNotAwaitingTopUp
	}
	if err := r.deposits.Hold(p.OwnerAccount, amount); err != nil {
		return err
	}

	held := r.deposits.Held(p.OwnerAccount)
	newCapacity := maxCapacityForDeposit(held, r.params)
	if newCapacity < p.UsedCapacity {
		return ErrDepositTooLow
	}
	p.Capacity = newCapacity
	p.Status = StatusActive
	delete(r.topUps, id)
	return nil
}

// DeleteProvider removes an insolvent provider with no remaining active
// payment streams. hasActiveStreams is supplied by the caller, which is in
// a position to consult the payments ledger directly.
func (r *Registry) DeleteProvider(id ProviderId, hasActiveStreams bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[id]
	if !ok {
		return ErrUnknownProvider
	}
	if p.Status != StatusInsolvent {
		return ErrProviderNotInsolvent
	}
	if hasActiveStreams {
		return ErrActivePaymentStreamsRemain
	}

	if p.Kind == KindBSP {
		r.globalBSPCapacity -= p.Capacity
	}
	delete(r.providers, id)
	delete(r.byAccount, p.OwnerAccount)
	delete(r.topUps, id)
	if r.hooks != nil {
		r.hooks.RemoveProofCycle(id)
	}
	return nil
}

// MarkInsolvent transitions a provider to Insolvent, ahead of an eventual
// DeleteProvider call. Called by whatever tracks the provider's payment
// stream obligations (out of this package's scope to detect on its own).
func (r *Registry) MarkInsolvent(id ProviderId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return ErrUnknownProvider
	}
	p.Status = StatusInsolvent
	return nil
}

// GetProvider returns a copy-free pointer to the provider record.
// Mutating fields through it outside this package is a misuse; callers in
// other packages should prefer the narrow accessor methods below.
func (r *Registry) GetProvider(id ProviderId) (*Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// Capacity implements proofs.ProviderDirectory.
func (r *Registry) Capacity(id ProviderId) (uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	if !ok {
		return 0, false
	}
	return p.Capacity, true
}

// Root implements proofs.ProviderDirectory.
func (r *Registry) Root(id ProviderId) (trie.Root, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	if !ok {
		return trie.Root{}, false
	}
	return p.Root, true
}

// SetRoot implements proofs.ProviderDirectory.
func (r *Registry) SetRoot(id ProviderId, root trie.Root) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return ErrUnknownProvider
	}
	p.Root = root
	return nil
}

// DecreaseUsedCapacity implements proofs.ProviderDirectory, applied after a
// checkpoint-driven Remove mutation frees space.
func (r *Registry) DecreaseUsedCapacity(id ProviderId, amount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return ErrUnknownProvider
	}
	if amount > p.UsedCapacity {
		p.UsedCapacity = 0
		return nil
	}
	p.UsedCapacity -= amount
	return nil
}

// IncreaseUsedCapacity is the counterpart called by the file-system pallet
// when a BSP confirms storing a new file, or an MSP bucket grows.
func (r *Registry) IncreaseUsedCapacity(id ProviderId, amount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return ErrUnknownProvider
	}
	p.UsedCapacity += amount
	return nil
}

// RegisterValueProposition adds an append-only value proposition owned by
// an MSP.
func (r *Registry) RegisterValueProposition(vp *ValueProposition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.providers[vp.Owner]
	if !ok {
		return ErrUnknownProvider
	}
	r.valueProps[vp.ID] = vp
	owner.ValuePropCount++
	return nil
}

// DeactivateValueProposition flips Available false without removing the
// record, per spec §3.
func (r *Registry) DeactivateValueProposition(id ValuePropId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if vp, ok := r.valueProps[id]; ok {
		vp.Available = false
	}
}

func (r *Registry) GetValueProposition(id ValuePropId) (*ValueProposition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	vp, ok := r.valueProps[id]
	return vp, ok
}

// CreateBucket registers a new, empty bucket for msp.
func (r *Registry) CreateBucket(b *Bucket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msp, ok := r.providers[b.MspId]
	if !ok {
		return ErrUnknownProvider
	}
	if b.Root == (trie.Root{}) {
		b.Root = trie.EmptyRoot[trie.SHA256Hasher]()
	}
	r.buckets[b.ID] = b
	msp.BucketCount++
	return nil
}

func (r *Registry) GetBucket(id BucketId) (*Bucket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.buckets[id]
	return b, ok
}

// SetBucketRoot updates a bucket's forest root after a file add or remove
// mutation has been applied (e.g. msp_respond_file_deletion).
func (r *Registry) SetBucketRoot(id BucketId, root trie.Root) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buckets[id]
	if !ok {
		return ErrUnknownProvider
	}
	b.Root = root
	return nil
}

// DecreaseBucketSize shrinks a bucket's recorded size, clamping at zero.
func (r *Registry) DecreaseBucketSize(id BucketId, amount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buckets[id]
	if !ok {
		return ErrUnknownProvider
	}
	if amount > b.Size {
		b.Size = 0
		return nil
	}
	b.Size -= amount
	return nil
}

// IncreaseBucketSize grows a bucket's recorded size, used when a file is
// accepted into it ahead of BSP replication.
func (r *Registry) IncreaseBucketSize(id BucketId, amount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buckets[id]
	if !ok {
		return ErrUnknownProvider
	}
	b.Size += amount
	return nil
}

// ReassignBucketMsp transfers a bucket to a new MSP and value proposition
// once move_bucket has been accepted, adjusting both MSPs' bucket counts.
func (r *Registry) ReassignBucketMsp(id BucketId, newMsp ProviderId, newValueProp ValuePropId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buckets[id]
	if !ok {
		return ErrUnknownProvider
	}
	if _, ok := r.providers[newMsp]; !ok {
		return ErrUnknownProvider
	}
	if old, ok := r.providers[b.MspId]; ok {
		old.BucketCount--
	}
	r.providers[newMsp].BucketCount++
	b.MspId = newMsp
	b.ValuePropId = newValueProp
	return nil
}

// DeleteBucket removes a bucket, which must be empty first.
func (r *Registry) DeleteBucket(id BucketId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buckets[id]
	if !ok {
		return nil
	}
	if b.Size != 0 {
		return ErrProviderStillInUse // bucket-not-empty shares the "still in use" shape; filesystem defines its own ErrBucketNotEmpty for callers to prefer
	}
	if msp, ok := r.providers[b.MspId]; ok {
		msp.BucketCount--
	}
	delete(r.buckets, id)
	return nil
}

// GlobalBSPCapacity returns the sum of capacity across all registered BSPs,
// used by payments to derive system utilisation.
func (r *Registry) GlobalBSPCapacity() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.globalBSPCapacity
}
