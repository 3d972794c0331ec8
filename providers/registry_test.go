package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storagehub/core/config"
)

type fakeHooks struct {
	inited   map[ProviderId]bool
	removed  map[ProviderId]bool
	accrued  map[ProviderId]uint64
}

func newFakeHooks() *fakeHooks {
	return &fakeHooks{
		inited:  make(map[ProviderId]bool),
		removed: make(map[ProviderId]bool),
		accrued: make(map[ProviderId]uint64),
	}
}

func (f *fakeHooks) InitProofCycle(id ProviderId, currentTick config.Tick) { f.inited[id] = true }
func (f *fakeHooks) RemoveProofCycle(id ProviderId)                       { f.removed[id] = true }
func (f *fakeHooks) AccruedFailures(id ProviderId) uint64                 { return f.accrued[id] }
func (f *fakeHooks) ClearAccruedFailures(id ProviderId)                   { f.accrued[id] = 0 }

func testParams() *config.Params {
	p := *config.Default()
	return &p
}

func account(b byte) AccountId {
	var a AccountId
	a[0] = b
	return a
}

func randomness(b byte) [32]byte {
	var r [32]byte
	r[0] = b
	return r
}

func signUpAndConfirm(t *testing.T, r *Registry, acc AccountId, kind Kind, capacity uint64) ProviderId {
	t.Helper()
	require.NoError(t, r.RequestSignUp(acc, kind, capacity, nil, nil, 0))
	id, err := r.ConfirmSignUp(acc, 5, randomness(acc[0]), 5)
	require.NoError(t, err)
	return id
}

func TestRequestSignUpHoldsDeposit(t *testing.T) {
	params := testParams()
	ledger := NewLedger()
	acc := account(1)
	ledger.Credit(acc, 1000)

	r := NewRegistry(ledger, params)
	require.NoError(t, r.RequestSignUp(acc, KindBSP, 10, nil, nil, 0))

	wantDeposit := depositFor(10, params)
	assert.Equal(t, wantDeposit, ledger.Held(acc))
	assert.Equal(t, 1000-wantDeposit, ledger.Available(acc))

	err := r.RequestSignUp(acc, KindBSP, 10, nil, nil, 0)
	assert.ErrorIs(t, err, ErrSignUpRequestPending)
}

func TestRequestSignUpStorageTooLow(t *testing.T) {
	r := NewRegistry(NewLedger(), testParams())
	err := r.RequestSignUp(account(1), KindBSP, 0, nil, nil, 0)
	assert.ErrorIs(t, err, ErrStorageTooLow)
}

func TestCancelSignUpReleasesDeposit(t *testing.T) {
	params := testParams()
	ledger := NewLedger()
	acc := account(1)
	ledger.Credit(acc, 1000)
	r := NewRegistry(ledger, params)

	require.NoError(t, r.RequestSignUp(acc, KindBSP, 10, nil, nil, 0))
	require.NoError(t, r.CancelSignUp(acc))
	assert.Equal(t, uint64(0), ledger.Held(acc))
	assert.Equal(t, uint64(1000), ledger.Available(acc))

	assert.ErrorIs(t, r.CancelSignUp(acc), ErrNoPendingSignUpRequest)
}

func TestConfirmSignUpRandomnessWindow(t *testing.T) {
	params := testParams()
	ledger := NewLedger()
	acc := account(1)
	ledger.Credit(acc, 1000)
	r := NewRegistry(ledger, params)

	require.NoError(t, r.RequestSignUp(acc, KindBSP, 10, nil, nil, 100))

	_, err := r.ConfirmSignUp(acc, 100+config.Tick(params.MinBlocksForRandomness)-1, randomness(1), 100)
	assert.ErrorIs(t, err, ErrRandomnessNotValidYet)

	_, err = r.ConfirmSignUp(acc, 100+config.Tick(params.MaxBlocksForRandomness)+1, randomness(1), 100)
	assert.ErrorIs(t, err, ErrSignUpRequestExpired)

	id, err := r.ConfirmSignUp(acc, 100+config.Tick(params.MinBlocksForRandomness), randomness(1), 100)
	require.NoError(t, err)
	p, ok := r.GetProvider(id)
	require.True(t, ok)
	assert.Equal(t, StatusActive, p.Status)
	assert.False(t, p.HasStoredData())
}

func TestConfirmSignUpWiresHooks(t *testing.T) {
	params := testParams()
	ledger := NewLedger()
	acc := account(1)
	ledger.Credit(acc, 1000)
	r := NewRegistry(ledger, params)
	hooks := newFakeHooks()
	r.SetEngineHooks(hooks)

	id := signUpAndConfirm(t, r, acc, KindBSP, 10)
	assert.True(t, hooks.inited[id])

	require.NoError(t, r.SignOff(id, 1000))
	assert.True(t, hooks.removed[id])
}

func TestChangeCapacityAdjustsDeposit(t *testing.T) {
	params := testParams()
	ledger := NewLedger()
	acc := account(1)
	ledger.Credit(acc, 10000)
	r := NewRegistry(ledger, params)
	id := signUpAndConfirm(t, r, acc, KindBSP, 10)

	before := ledger.Held(acc)
	require.NoError(t, r.ChangeCapacity(id, 20, 5+config.Tick(params.MinBlocksBetweenCapacityChanges)))
	after := ledger.Held(acc)
	assert.Greater(t, after, before)

	p, _ := r.GetProvider(id)
	assert.Equal(t, uint64(20), p.Capacity)
}

func TestChangeCapacityTooSoon(t *testing.T) {
	params := testParams()
	ledger := NewLedger()
	acc := account(1)
	ledger.Credit(acc, 10000)
	r := NewRegistry(ledger, params)
	id := signUpAndConfirm(t, r, acc, KindBSP, 10)

	err := r.ChangeCapacity(id, 20, 6)
	assert.ErrorIs(t, err, ErrNotEnoughTimePassed)
}

func TestChangeCapacityBelowUsed(t *testing.T) {
	params := testParams()
	ledger := NewLedger()
	acc := account(1)
	ledger.Credit(acc, 10000)
	r := NewRegistry(ledger, params)
	id := signUpAndConfirm(t, r, acc, KindBSP, 10)
	require.NoError(t, r.IncreaseUsedCapacity(id, 8))

	err := r.ChangeCapacity(id, 5, 5+config.Tick(params.MinBlocksBetweenCapacityChanges))
	assert.ErrorIs(t, err, ErrNewCapacityLessThanUsedStorage)
}

func TestSignOffRequiresZeroUsedCapacity(t *testing.T) {
	params := testParams()
	ledger := NewLedger()
	acc := account(1)
	ledger.Credit(acc, 10000)
	r := NewRegistry(ledger, params)
	id := signUpAndConfirm(t, r, acc, KindMSP, 10)
	require.NoError(t, r.IncreaseUsedCapacity(id, 1))

	assert.ErrorIs(t, r.SignOff(id, 1000), ErrProviderStillInUse)

	require.NoError(t, r.DecreaseUsedCapacity(id, 1))
	require.NoError(t, r.SignOff(id, 1000))

	_, ok := r.GetProvider(id)
	assert.False(t, ok)
	assert.Equal(t, uint64(10000), ledger.Available(acc))
}

func TestSignOffBspLockPeriod(t *testing.T) {
	params := testParams()
	ledger := NewLedger()
	acc := account(1)
	ledger.Credit(acc, 10000)
	r := NewRegistry(ledger, params)
	id := signUpAndConfirm(t, r, acc, KindBSP, 10)

	err := r.SignOff(id, 5+config.Tick(params.BspSignUpLockPeriod)-1)
	assert.ErrorIs(t, err, ErrNotEnoughTimePassed)

	require.NoError(t, r.SignOff(id, 5+config.Tick(params.BspSignUpLockPeriod)))
}

func TestSlashBurnsDepositAndMayAwaitTopUp(t *testing.T) {
	params := testParams()
	ledger := NewLedger()
	acc := account(1)
	ledger.Credit(acc, 10000)
	r := NewRegistry(ledger, params)
	hooks := newFakeHooks()
	r.SetEngineHooks(hooks)
	id := signUpAndConfirm(t, r, acc, KindBSP, 10)
	require.NoError(t, r.IncreaseUsedCapacity(id, 10))

	hooks.accrued[id] = 50 // burns 50 * SlashAmountPerMaxFileSize, draining well past backing the capacity

	require.NoError(t, r.Slash(id, 1000))
	assert.Equal(t, uint64(0), hooks.accrued[id])

	p, _ := r.GetProvider(id)
	assert.Equal(t, StatusAwaitingTopUp, p.Status)
	assert.Less(t, p.Capacity, uint64(10))

	assert.ErrorIs(t, r.TopUpDeposit(id, 1), ErrDepositTooLow)
	require.NoError(t, r.TopUpDeposit(id, depositFor(10, params)))
	p, _ = r.GetProvider(id)
	assert.Equal(t, StatusActive, p.Status)
	assert.GreaterOrEqual(t, p.Capacity, uint64(10))
}

func TestSlashNoAccruedFailuresIsNoop(t *testing.T) {
	params := testParams()
	ledger := NewLedger()
	acc := account(1)
	ledger.Credit(acc, 10000)
	r := NewRegistry(ledger, params)
	r.SetEngineHooks(newFakeHooks())
	id := signUpAndConfirm(t, r, acc, KindBSP, 10)

	require.NoError(t, r.Slash(id, 1000))
	p, _ := r.GetProvider(id)
	assert.Equal(t, StatusActive, p.Status)
}

func TestDeleteProviderRequiresInsolvent(t *testing.T) {
	params := testParams()
	ledger := NewLedger()
	acc := account(1)
	ledger.Credit(acc, 10000)
	r := NewRegistry(ledger, params)
	id := signUpAndConfirm(t, r, acc, KindMSP, 10)

	assert.ErrorIs(t, r.DeleteProvider(id, false), ErrProviderNotInsolvent)

	require.NoError(t, r.MarkInsolvent(id))
	assert.ErrorIs(t, r.DeleteProvider(id, true), ErrActivePaymentStreamsRemain)
	require.NoError(t, r.DeleteProvider(id, false))

	_, ok := r.GetProvider(id)
	assert.False(t, ok)
}

func TestBucketLifecycle(t *testing.T) {
	params := testParams()
	ledger := NewLedger()
	acc := account(1)
	ledger.Credit(acc, 10000)
	r := NewRegistry(ledger, params)
	mspId := signUpAndConfirm(t, r, acc, KindMSP, 10)

	bucketId := BucketId{1}
	require.NoError(t, r.CreateBucket(&Bucket{ID: bucketId, Owner: acc, MspId: mspId}))
	msp, _ := r.GetProvider(mspId)
	assert.Equal(t, uint64(1), msp.BucketCount)

	b, ok := r.GetBucket(bucketId)
	require.True(t, ok)
	assert.False(t, b.Root.IsZero())

	require.NoError(t, r.DeleteBucket(bucketId))
	msp, _ = r.GetProvider(mspId)
	assert.Equal(t, uint64(0), msp.BucketCount)
	_, ok = r.GetBucket(bucketId)
	assert.False(t, ok)
}

func TestValuePropositionLifecycle(t *testing.T) {
	params := testParams()
	ledger := NewLedger()
	acc := account(1)
	ledger.Credit(acc, 10000)
	r := NewRegistry(ledger, params)
	mspId := signUpAndConfirm(t, r, acc, KindMSP, 10)

	vpId := ValuePropId{9}
	require.NoError(t, r.RegisterValueProposition(&ValueProposition{ID: vpId, Owner: mspId, Available: true}))
	msp, _ := r.GetProvider(mspId)
	assert.Equal(t, uint64(1), msp.ValuePropCount)

	r.DeactivateValueProposition(vpId)
	vp, ok := r.GetValueProposition(vpId)
	require.True(t, ok)
	assert.False(t, vp.Available)
}

func TestGlobalBSPCapacityTracksSignUpsAndChanges(t *testing.T) {
	params := testParams()
	ledger := NewLedger()
	acc := account(1)
	ledger.Credit(acc, 10000)
	r := NewRegistry(ledger, params)
	id := signUpAndConfirm(t, r, acc, KindBSP, 10)
	assert.Equal(t, uint64(10), r.GlobalBSPCapacity())

	require.NoError(t, r.ChangeCapacity(id, 20, 5+config.Tick(params.MinBlocksBetweenCapacityChanges)))
	assert.Equal(t, uint64(20), r.GlobalBSPCapacity())

	require.NoError(t, r.SignOff(id, 5+config.Tick(params.BspSignUpLockPeriod)))
	assert.Equal(t, uint64(0), r.GlobalBSPCapacity())
}
