// Package config holds the protocol constants that the proof engine,
// provider registry, and file-system pallet are parameterized by. It
// mirrors the shape of a typical chain-config package: a single struct of
// named fields with a package-level default instance that tests can
// override via Override, which returns a function restoring the previous
// value.
package config

import "sync"

// Tick is the proof engine's monotonically-increasing logical clock. It
// advances once per block while the challenge ticker is unpaused (see
// spec §4.D step 4), so it is not interchangeable with a block number.
type Tick uint64

// Params collects every tunable constant the core subsystems rely on.
type Params struct {
	// Proof engine.
	MinChallengePeriod         Tick
	StakeToChallengePeriod     uint64
	ChallengeHistoryLength     Tick
	ChallengeTicksTolerance    Tick
	CheckpointChallengePeriod  Tick
	MaxCustomChallengesPerBlock int
	RandomChallengesPerBlock   int
	MaxSlashableProvidersPerTick int
	BlockFullnessPeriod        int
	MinNotFullBlocksRatio      float64
	BlockFullnessHeadroom      uint64

	// Provider registry.
	MinBlocksForRandomness        uint64
	MaxBlocksForRandomness        uint64
	MinBlocksBetweenCapacityChanges uint64
	BspSignUpLockPeriod           Tick
	SlashAmountPerMaxFileSize     uint64
	ProviderTopUpTtl              Tick
	MinCapacity                   uint64
	MinDeposit                    uint64
	DepositPerUnitCapacity        uint64

	// Payment streams.
	UserWithoutFundsCooldown Tick
	IdealUtilisationRate     float64
	TreasuryCutBase          float64

	// File-system pallet.
	StorageRequestTtl          Tick
	UpfrontTicksToPay          uint64
	TickRangeToMaximumThreshold uint64
	MinWaitForStopStoring      Tick
	MaxMultiAddressSize        int
	MaxMultiAddressAmount      int
	StorageRequestBaseDeposit  uint64
	BytesPerPricingUnit        uint64
	BucketMoveTtl              Tick

	// Provider blockchain service.
	CheckForPendingProofsPeriod  Tick
	MaxBlocksBehindToCatchUpRootChanges uint64
	ExtrinsicRetryTimeoutSeconds uint64
	MaxQueueItemRetries          int
}

// MaxThreshold is the modulus volunteer thresholds are computed against; the
// spec's H(bsp||file_key) is interpreted as an unsigned 32-bit big-endian
// integer, so the threshold space is always 2^32 regardless of Params.
const MaxThreshold uint64 = 1 << 32

// Default returns a Params instance using the literal constants the spec's
// end-to-end scenarios (§8, S1-S6) are defined against.
func Default() *Params {
	return &Params{
		MinChallengePeriod:           30,
		StakeToChallengePeriod:       1_000_000,
		ChallengeHistoryLength:       300,
		ChallengeTicksTolerance:      50,
		CheckpointChallengePeriod:    30,
		MaxCustomChallengesPerBlock:  10,
		RandomChallengesPerBlock:     10,
		MaxSlashableProvidersPerTick: 100,
		BlockFullnessPeriod:          50,
		MinNotFullBlocksRatio:        0.5,
		BlockFullnessHeadroom:        10,

		MinBlocksForRandomness:          3,
		MaxBlocksForRandomness:          300,
		MinBlocksBetweenCapacityChanges: 10,
		BspSignUpLockPeriod:             100,
		SlashAmountPerMaxFileSize:       1_000,
		ProviderTopUpTtl:                100,
		MinCapacity:                     1,
		MinDeposit:                      100,
		DepositPerUnitCapacity:          1,

		UserWithoutFundsCooldown: 100,
		IdealUtilisationRate:     0.85,
		TreasuryCutBase:          0.1,

		StorageRequestTtl:           100,
		UpfrontTicksToPay:           10,
		TickRangeToMaximumThreshold: 40,
		MinWaitForStopStoring:       10,
		MaxMultiAddressSize:         100,
		MaxMultiAddressAmount:       5,
		StorageRequestBaseDeposit:   10,
		BytesPerPricingUnit:         1_000_000_000,
		BucketMoveTtl:               50,

		CheckForPendingProofsPeriod:         10,
		MaxBlocksBehindToCatchUpRootChanges: 256,
		ExtrinsicRetryTimeoutSeconds:        60,
		MaxQueueItemRetries:                 3,
	}
}

var (
	mu      sync.RWMutex
	current = Default()
)

// Current returns the process-wide active Params.
func Current() *Params {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Override replaces the process-wide Params and returns a function that
// restores the previous value, in the style of prysm's
// config/features.InitWithReset, for use in table-driven tests that need
// non-default constants.
func Override(p *Params) func() {
	mu.Lock()
	prev := current
	current = p
	mu.Unlock()
	return func() {
		mu.Lock()
		current = prev
		mu.Unlock()
	}
}
