package proofs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/storagehub/core/async/event"
	"github.com/storagehub/core/config"
	"github.com/storagehub/core/providers"
)

var log = logrus.WithField("prefix", "proofs")

var anomalousMissingRecord = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "storagehub",
	Subsystem: "proofs",
	Name:      "anomalous_missing_record_total",
	Help:      "Providers found in the slashable-sweep deadline index with no challenge record, per spec §9's open question.",
})

var spamPauseGauge = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "storagehub",
	Subsystem: "proofs",
	Name:      "challenges_ticker_paused",
	Help:      "1 while the challenge ticker is paused for spam detection, 0 otherwise.",
})

func init() {
	prometheus.MustRegister(anomalousMissingRecord, spamPauseGauge)
}

// Engine is the provider proof engine: challenge-seed generation,
// checkpoint queueing, the slashable sweep, spam-detection pausing, and
// submit_proof verification. It implements providers.EngineHooks so a
// Registry can be wired to call back into it without importing this
// package.
type Engine struct {
	mu sync.Mutex

	params    *config.Params
	directory ProviderDirectory

	tick                config.Tick
	paused              bool
	fullness            *fullnessTracker

	seeds map[config.Tick][32]byte

	lastCheckpointTick   config.Tick
	checkpointChallenges map[config.Tick][]CheckpointChallenge
	priorityQueue        []CheckpointChallenge
	ordinaryQueue        []CheckpointChallenge

	records   map[providers.ProviderId]*ChallengeRecord
	deadlines map[config.Tick][]providers.ProviderId
	nextTickToCheck config.Tick

	validSubmitters map[config.Tick]map[providers.ProviderId]bool

	Events event.Feed
}

// NewEngine returns an idle engine bound to directory.
func NewEngine(directory ProviderDirectory, params *config.Params) *Engine {
	if params == nil {
		params = config.Current()
	}
	return &Engine{
		params:               params,
		directory:            directory,
		fullness:             newFullnessTracker(params.BlockFullnessPeriod),
		seeds:                make(map[config.Tick][32]byte),
		checkpointChallenges: make(map[config.Tick][]CheckpointChallenge),
		records:              make(map[providers.ProviderId]*ChallengeRecord),
		deadlines:            make(map[config.Tick][]providers.ProviderId),
		validSubmitters:      make(map[config.Tick]map[providers.ProviderId]bool),
	}
}

// --- providers.EngineHooks ---

// InitProofCycle starts a provider's challenge cycle. currentTick is the
// engine's own tick, not the caller's block number.
func (e *Engine) InitProofCycle(id providers.ProviderId, currentTick config.Tick) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stake, _ := e.directory.Capacity(id)
	p := period(stake, e.params)
	deadline := currentTick + p + e.params.ChallengeTicksTolerance

	rec := &ChallengeRecord{
		Provider:                 id,
		Stake:                    stake,
		LastTickProven:           currentTick,
		NextTickToSubmitProofFor: currentTick + p,
		Deadline:                 deadline,
	}
	e.records[id] = rec
	e.deadlines[deadline] = append(e.deadlines[deadline], id)
}

// RemoveProofCycle detaches a provider from the challenge cycle, e.g. on
// sign-off or once its root returns to default after a full deletion.
func (e *Engine) RemoveProofCycle(id providers.ProviderId) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removeProofCycleLocked(id)
}

func (e *Engine) removeProofCycleLocked(id providers.ProviderId) {
	rec, ok := e.records[id]
	if !ok {
		return
	}
	bucket := e.deadlines[rec.Deadline]
	for i, pid := range bucket {
		if pid == id {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(e.deadlines, rec.Deadline)
	} else {
		e.deadlines[rec.Deadline] = bucket
	}
	delete(e.records, id)
}

// AccruedFailures returns a provider's current failure counter.
func (e *Engine) AccruedFailures(id providers.ProviderId) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.records[id]
	if !ok {
		return 0
	}
	return rec.AccruedFailures
}

// ClearAccruedFailures zeroes a provider's failure counter, called by the
// registry after slashing.
func (e *Engine) ClearAccruedFailures(id providers.ProviderId) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if rec, ok := e.records[id]; ok {
		rec.AccruedFailures = 0
	}
}

// Record returns a copy-free pointer to a provider's challenge record, for
// inspection by tests and the blockchain service.
func (e *Engine) Record(id providers.ProviderId) (*ChallengeRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.records[id]
	return r, ok
}

// Paused reports whether the challenge ticker is currently paused for
// spam detection.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// CurrentTick returns the engine's own challenges_ticker value.
func (e *Engine) CurrentTick() config.Tick {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}
