package payments

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storagehub/core/config"
	"github.com/storagehub/core/providers"
)

type fakeDirectory struct {
	m map[providers.ProviderId]*providers.Provider
}

func (f *fakeDirectory) GetProvider(id providers.ProviderId) (*providers.Provider, bool) {
	p, ok := f.m[id]
	return p, ok
}

func newFakeDirectory(id providers.ProviderId, paymentAccount providers.AccountId) *fakeDirectory {
	return &fakeDirectory{m: map[providers.ProviderId]*providers.Provider{
		id: {ID: id, PaymentAccount: paymentAccount},
	}}
}

func acct(b byte) providers.AccountId {
	var a providers.AccountId
	a[0] = b
	return a
}

func provID(b byte) providers.ProviderId {
	var p providers.ProviderId
	p[0] = b
	return p
}

func TestLinearThenPowerOfTwoTreasuryCutMonotone(t *testing.T) {
	p := config.Default()
	prev := -1.0
	for u := 0.0; u <= 1.2; u += 0.05 {
		cut := LinearThenPowerOfTwoTreasuryCut(u, p)
		assert.GreaterOrEqual(t, cut, prev)
		assert.GreaterOrEqual(t, cut, 0.0)
		assert.Less(t, cut, 1.0)
		prev = cut
	}
}

func TestLinearThenPowerOfTwoTreasuryCutAtIdeal(t *testing.T) {
	p := config.Default()
	cut := LinearThenPowerOfTwoTreasuryCut(p.IdealUtilisationRate, p)
	assert.True(t, math.Abs(cut-p.TreasuryCutBase) < 1e-9)
}

func TestChargeTransfersNetAmount(t *testing.T) {
	params := config.Default()
	ledger := providers.NewLedger()
	user := acct(1)
	pid := provID(2)
	paymentAcc := acct(3)
	ledger.Credit(user, 10_000)

	dir := newFakeDirectory(pid, paymentAcc)
	m := NewManager(ledger, dir, params, acct(9))

	id := StreamId{Provider: pid, User: user}
	require.NoError(t, m.CreateStream(id, 10, 0))

	res, err := m.Charge(id, 5, SystemUtilisation{UsedCapacity: 0, TotalCapacity: 100})
	require.NoError(t, err)
	assert.False(t, res.FlaggedInsolvent)
	assert.Equal(t, uint64(50), res.GrossAmount)
	assert.Equal(t, res.TreasuryCut+res.NetToProvider, res.GrossAmount)
	assert.Equal(t, res.NetToProvider, ledger.Available(paymentAcc))
	assert.Equal(t, res.TreasuryCut, ledger.Available(acct(9)))
	assert.Equal(t, uint64(10_000-50), ledger.Available(user))
}

func TestChargeFlagsWithoutFunds(t *testing.T) {
	params := config.Default()
	ledger := providers.NewLedger()
	user := acct(1)
	pid := provID(2)
	dir := newFakeDirectory(pid, acct(3))
	m := NewManager(ledger, dir, params, acct(9))

	id := StreamId{Provider: pid, User: user}
	require.NoError(t, m.CreateStream(id, 1000, 0))

	res, err := m.Charge(id, 5, SystemUtilisation{})
	require.NoError(t, err)
	assert.True(t, res.FlaggedInsolvent)
	assert.True(t, m.IsWithoutFunds(user, 5))
	assert.True(t, m.IsWithoutFunds(user, 5+config.Tick(params.UserWithoutFundsCooldown)-1))
	assert.False(t, m.IsWithoutFunds(user, 5+config.Tick(params.UserWithoutFundsCooldown)))

	s, ok := m.GetStream(id)
	require.True(t, ok)
	assert.Equal(t, config.Tick(0), s.LastChargedTick)
}

func TestChargeClearsWithoutFundsOnSuccess(t *testing.T) {
	params := config.Default()
	ledger := providers.NewLedger()
	user := acct(1)
	pid := provID(2)
	dir := newFakeDirectory(pid, acct(3))
	m := NewManager(ledger, dir, params, acct(9))

	id := StreamId{Provider: pid, User: user}
	require.NoError(t, m.CreateStream(id, 1000, 0))
	_, err := m.Charge(id, 5, SystemUtilisation{})
	require.NoError(t, err)
	assert.True(t, m.IsWithoutFunds(user, 5))

	ledger.Credit(user, 10_000)
	_, err = m.Charge(id, 6, SystemUtilisation{})
	require.NoError(t, err)
	assert.False(t, m.IsWithoutFunds(user, 6))
}

func TestChargeNothingToChargeIsError(t *testing.T) {
	params := config.Default()
	ledger := providers.NewLedger()
	pid := provID(2)
	dir := newFakeDirectory(pid, acct(3))
	m := NewManager(ledger, dir, params, acct(9))
	id := StreamId{Provider: pid, User: acct(1)}
	require.NoError(t, m.CreateStream(id, 10, 5))

	_, err := m.Charge(id, 5, SystemUtilisation{})
	assert.ErrorIs(t, err, ErrNothingToCharge)
}

func TestCreateStreamRejectsZeroRateAndDuplicates(t *testing.T) {
	m := NewManager(providers.NewLedger(), newFakeDirectory(provID(2), acct(3)), config.Default(), acct(9))
	id := StreamId{Provider: provID(2), User: acct(1)}
	assert.ErrorIs(t, m.CreateStream(id, 0, 0), ErrRateZero)
	require.NoError(t, m.CreateStream(id, 1, 0))
	assert.ErrorIs(t, m.CreateStream(id, 1, 0), ErrStreamAlreadyExists)
}
