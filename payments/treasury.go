package payments

import (
	"math"

	"github.com/storagehub/core/config"
)

// LinearThenPowerOfTwoTreasuryCut returns the fraction (in [0, 1)) of a
// charge diverted to the treasury for a given system utilisation (used
// capacity / total capacity, in [0, 1]).
//
// Below IdealUtilisationRate the cut scales linearly from 0 up to
// TreasuryCutBase; past it, the cut is TreasuryCutBase ×
// 2^((utilisation − ideal)/(1 − ideal)), so it grows exponentially and
// reaches twice TreasuryCutBase at 100% utilisation, capped just below 1.
// The spec names the function and the direction of its growth
// ("super-linear past the ideal rate") without giving the exact curve, so
// this power-of-two shape is this module's own interpretation, recorded in
// DESIGN.md.
func LinearThenPowerOfTwoTreasuryCut(utilisation float64, p *config.Params) float64 {
	if p == nil {
		p = config.Current()
	}
	if utilisation <= 0 {
		return 0
	}
	ideal := p.IdealUtilisationRate
	base := p.TreasuryCutBase

	if utilisation <= ideal {
		return base * (utilisation / ideal)
	}

	headroom := 1 - ideal
	if headroom <= 0 {
		return base
	}
	exponent := (utilisation - ideal) / headroom
	cut := base * math.Pow(2, exponent)
	if cut >= 1 {
		cut = 0.999999
	}
	return cut
}

// SystemUtilisation is a small accumulator fed the registry's
// used/total-capacity figures, decoupling the treasury-cut formula from
// knowing how utilisation is actually measured.
type SystemUtilisation struct {
	UsedCapacity  uint64
	TotalCapacity uint64
}

// Ratio returns UsedCapacity/TotalCapacity, or 0 if there is no capacity at
// all registered yet.
func (s SystemUtilisation) Ratio() float64 {
	if s.TotalCapacity == 0 {
		return 0
	}
	return float64(s.UsedCapacity) / float64(s.TotalCapacity)
}
