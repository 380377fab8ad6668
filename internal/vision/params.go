package vision

import (
	"math"
	"time"
)

const (
	// ReferenceSize is the edge length every mask is resampled to.
	ReferenceSize = 512

	// LuminanceThreshold is the mean-channel brightness above which a wall or
	// foliage pixel counts as present.
	LuminanceThreshold = 128

	// ZoneThreshold treats any non-black zone-mask pixel as revealed.
	ZoneThreshold = 0

	// FogAlpha is the opacity of unlit pixels in the fog overlay.
	FogAlpha = 217
)

// Params holds the engine tunables. All ranges are in normalized map units.
type Params struct {
	RayCount  int // rays per source, evenly spaced over [0, 2π)
	StepCount int // march steps per ray

	UnitRange        float64
	StandardRange    float64
	SuppressorRange  float64
	LongRangeInitial float64
	LongRangeReduced float64
	TierRanges       [4]float64 // indexed by StructureTier

	// DisableRadius overrides the suppressor's own range when > 0.
	DisableRadius float64

	// SameFoliageRadius caps the foliage co-location reveal distance when > 0.
	SameFoliageRadius float64

	DecayDelay        time.Duration
	DecayPollInterval time.Duration

	// Workers bounds concurrent raycasts within one recomputation.
	Workers int
}

// DefaultParams returns the standard tuning.
func DefaultParams() Params {
	return Params{
		RayCount:          180,
		StepCount:         150,
		UnitRange:         0.08,
		StandardRange:     0.07,
		SuppressorRange:   0.07,
		LongRangeInitial:  0.10,
		LongRangeReduced:  0.04,
		TierRanges:        [4]float64{0.084375, 0.11, 0.11, 0.11},
		SameFoliageRadius: 0.05,
		DecayDelay:        2000 * time.Millisecond,
		DecayPollInterval: 100 * time.Millisecond,
		Workers:           4,
	}
}

// TierRange returns the default range for a structure tier.
func (p Params) TierRange(t StructureTier) float64 {
	if t < 0 || int(t) >= len(p.TierRanges) {
		return p.TierRanges[TierOuter]
	}
	return p.TierRanges[t]
}

// SensorRange returns the initial range for a freshly placed sensor of kind k.
func (p Params) SensorRange(k SensorKind) float64 {
	switch k {
	case SensorSuppressor:
		return p.SuppressorRange
	case SensorLongRange:
		return p.LongRangeInitial
	default:
		return p.StandardRange
	}
}

func distance(ax, ay, bx, by float64) float64 {
	return math.Hypot(ax-bx, ay-by)
}
