package proofs

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/storagehub/core/config"
	"github.com/storagehub/core/providers"
)

// deriveSeed computes the tick's challenge seed as
// H(randomness ‖ tick_be64), per spec §4.D step 1.
func deriveSeed(randomness [32]byte, tick config.Tick) [32]byte {
	h := sha256.New()
	h.Write(randomness[:])
	var tb [8]byte
	binary.BigEndian.PutUint64(tb[:], uint64(tick))
	h.Write(tb[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// deriveChallenge computes H(seed ‖ provider_id ‖ i), the i-th random
// challenge key for a provider at a given seed (spec §4.D step 3).
func deriveChallenge(seed [32]byte, provider providers.ProviderId, i int) []byte {
	h := sha256.New()
	h.Write(seed[:])
	h.Write(provider[:])
	var ib [4]byte
	binary.BigEndian.PutUint32(ib[:], uint32(i))
	h.Write(ib[:])
	return h.Sum(nil)
}

// Threshold32 computes H(a ‖ b) interpreted as a big-endian uint32, the
// same construction the challenge engine itself uses for deriving
// per-provider-per-index challenges, shared here so the file-system
// pallet's BSP volunteer-threshold gate (spec §4.E step 2) uses an
// identical hashing idiom instead of inventing its own.
func Threshold32(a, b []byte) uint32 {
	h := sha256.New()
	h.Write(a)
	h.Write(b)
	sum := h.Sum(nil)
	return binary.BigEndian.Uint32(sum[:4])
}

// period returns the number of ticks between consecutive required proofs
// for a given stake: max(MinChallengePeriod, StakeToChallengePeriod/stake),
// saturating to MinChallengePeriod both when stake is zero and when
// integer division underflows to zero for very large stakes.
func period(stake uint64, p *config.Params) config.Tick {
	if stake == 0 {
		return p.MinChallengePeriod
	}
	computed := config.Tick(p.StakeToChallengePeriod / stake)
	if computed < p.MinChallengePeriod {
		return p.MinChallengePeriod
	}
	return computed
}

// Period is period's exported counterpart, used by callers outside the
// package (the blockchain-service actor's catch-up emission) that need a
// provider's challenge period without reaching into engine internals.
func Period(stake uint64, p *config.Params) config.Tick {
	return period(stake, p)
}
