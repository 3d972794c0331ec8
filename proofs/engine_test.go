package proofs

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storagehub/core/config"
	"github.com/storagehub/core/providers"
	"github.com/storagehub/core/trie"
)

type fakeDirectory struct {
	capacity map[providers.ProviderId]uint64
	roots    map[providers.ProviderId]trie.Root
	used     map[providers.ProviderId]uint64
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		capacity: make(map[providers.ProviderId]uint64),
		roots:    make(map[providers.ProviderId]trie.Root),
		used:     make(map[providers.ProviderId]uint64),
	}
}

func (f *fakeDirectory) Capacity(id providers.ProviderId) (uint64, bool) {
	c, ok := f.capacity[id]
	return c, ok
}
func (f *fakeDirectory) Root(id providers.ProviderId) (trie.Root, bool) {
	r, ok := f.roots[id]
	return r, ok
}
func (f *fakeDirectory) SetRoot(id providers.ProviderId, root trie.Root) error {
	f.roots[id] = root
	return nil
}
func (f *fakeDirectory) DecreaseUsedCapacity(id providers.ProviderId, amount uint64) error {
	if amount > f.used[id] {
		f.used[id] = 0
		return nil
	}
	f.used[id] -= amount
	return nil
}

func testParams() *config.Params {
	p := *config.Default()
	p.MinChallengePeriod = 30
	p.StakeToChallengePeriod = 1_000_000
	p.ChallengeTicksTolerance = 50
	p.CheckpointChallengePeriod = 30
	p.RandomChallengesPerBlock = 10
	p.MaxCustomChallengesPerBlock = 10
	p.ChallengeHistoryLength = 300
	return &p
}

func bspID(b byte) providers.ProviderId {
	var id providers.ProviderId
	id[0] = b
	return id
}

func seedAndCapacityForPeriod30(params *config.Params) uint64 {
	// period(s) = StakeToChallengePeriod / s = 30 => s = StakeToChallengePeriod/30
	return params.StakeToChallengePeriod / 30
}

func TestPeriodMonotoneAndSaturating(t *testing.T) {
	p := testParams()
	assert.Equal(t, p.MinChallengePeriod, period(0, p))
	assert.Equal(t, p.MinChallengePeriod, period(^uint64(0), p))
	assert.Greater(t, period(1, p), period(1_000_000, p))
}

func TestS1HappyPathProof(t *testing.T) {
	params := testParams()
	dir := newFakeDirectory()
	id := bspID(1)
	stake := seedAndCapacityForPeriod30(params)
	dir.capacity[id] = stake
	dir.roots[id] = trie.EmptyRoot[trie.SHA256Hasher]()

	tr := trie.New[trie.SHA256Hasher]()
	var fileRoot trie.Root
	fileRoot[0] = 0xAB
	tr.Insert([]byte("file-key-1"), fileRoot[:])
	dir.roots[id] = tr.Root()

	e := NewEngine(dir, params)
	e.InitProofCycle(id, 0)

	rec, ok := e.Record(id)
	require.True(t, ok)
	assert.Equal(t, config.Tick(30), rec.NextTickToSubmitProofFor)

	var randomness [32]byte
	for tick := config.Tick(1); tick <= 31; tick++ {
		e.Tick(true, randomness)
	}
	assert.Equal(t, config.Tick(31), e.CurrentTick())

	seed, ok := e.seeds[30]
	require.True(t, ok)

	challenges := make([][]byte, 0, params.RandomChallengesPerBlock)
	for i := 0; i < params.RandomChallengesPerBlock; i++ {
		challenges = append(challenges, deriveChallenge(seed, id, i))
	}

	forestProof := tr.Proof()

	witnesses, err := trie.VerifyForestProof(tr.Root(), forestProof, challenges)
	require.NoError(t, err)
	_ = witnesses

	res, err := e.SubmitProof(id, 31, SubmitProofInput{
		ForestProof: forestProof,
		KeyProofs:   map[string]KeyProof{},
	})
	require.NoError(t, err)
	assert.Equal(t, tr.Root(), res.NewRoot)

	rec, _ = e.Record(id)
	assert.Equal(t, config.Tick(30), rec.LastTickProven)
	assert.Equal(t, config.Tick(60), rec.NextTickToSubmitProofFor)
	assert.Equal(t, uint64(0), rec.AccruedFailures)
}

func TestS2BspMissesAccruesFailures(t *testing.T) {
	params := testParams()
	dir := newFakeDirectory()
	id := bspID(1)
	stake := seedAndCapacityForPeriod30(params)
	dir.capacity[id] = stake
	dir.roots[id] = trie.EmptyRoot[trie.SHA256Hasher]()

	e := NewEngine(dir, params)
	e.InitProofCycle(id, 0)

	var randomness [32]byte
	for tick := config.Tick(1); tick <= 80; tick++ {
		e.Tick(true, randomness)
	}

	rec, ok := e.Record(id)
	require.True(t, ok)
	assert.Equal(t, uint64(params.RandomChallengesPerBlock), rec.AccruedFailures)
	assert.Equal(t, config.Tick(110), rec.NextTickToSubmitProofFor)
	assert.Equal(t, config.Tick(160), rec.Deadline)
}

func TestS6SpamPauseStopsTicker(t *testing.T) {
	params := testParams()
	params.BlockFullnessPeriod = 50
	params.MinNotFullBlocksRatio = 0.5
	params.BlockFullnessHeadroom = 10

	dir := newFakeDirectory()
	e := NewEngine(dir, params)

	var randomness [32]byte
	for i := 0; i < 50; i++ {
		e.Tick(true, randomness) // not-full, builds up history
	}
	require.False(t, e.Paused())
	tickBefore := e.CurrentTick()

	for i := 0; i < 30; i++ {
		e.Tick(false, randomness) // full blocks now
	}
	assert.True(t, e.Paused())
	// threshold is 0.5*50=25 not-full blocks; the 50-block history starts
	// all not-full, so the 26th full push is the first to drop the
	// not-full count below threshold and pause the ticker — the remaining
	// pushes in this batch never advance the tick.
	assert.Equal(t, tickBefore+25, e.CurrentTick())
}

func TestInitAndRemoveProofCycle(t *testing.T) {
	params := testParams()
	dir := newFakeDirectory()
	id := bspID(1)
	dir.capacity[id] = seedAndCapacityForPeriod30(params)
	e := NewEngine(dir, params)

	e.InitProofCycle(id, 0)
	_, ok := e.Record(id)
	assert.True(t, ok)

	e.RemoveProofCycle(id)
	_, ok = e.Record(id)
	assert.False(t, ok)

	var randomness [32]byte
	for tick := config.Tick(1); tick <= 200; tick++ {
		e.Tick(true, randomness)
	}
	assert.Equal(t, uint64(0), testutilAnomalousCount())
}

// testutilAnomalousCount reads the anomalous_missing_record_total counter,
// so the test above confirms the removal didn't leave a stale deadline
// entry for sweep() to trip over.
func testutilAnomalousCount() uint64 { return uint64(testutil.ToFloat64(anomalousMissingRecord)) }
