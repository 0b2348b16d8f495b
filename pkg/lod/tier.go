// Package lod implements the level-of-detail tier calculator.
//
// The calculator maps camera scale to one of three discrete tiers. Naive
// threshold comparison against a continuously varying scale flips tiers back
// and forth during a single pinch gesture, so two defenses are combined:
// the scale is quantized to discrete steps before comparison, and each
// threshold carries a hysteresis margin that must be crossed in the
// direction of travel before a transition fires. The calculator is therefore
// stateful: the next tier depends on the current one, not on scale alone.
package lod

import (
	"fmt"
	"math"

	"github.com/vanderheijden86/kinview/pkg/config"
	"github.com/vanderheijden86/kinview/pkg/debug"
	"github.com/vanderheijden86/kinview/pkg/metrics"
)

// Tier is a discrete rendering-detail level, ordered by decreasing zoom.
type Tier int

const (
	// TierFull renders complete nodes: photo, name, decorations.
	TierFull Tier = iota
	// TierReduced renders name-only nodes with larger hit targets.
	TierReduced
	// TierMinimal renders a dot or abbreviation per node.
	TierMinimal
)

func (t Tier) String() string {
	switch t {
	case TierFull:
		return "T0"
	case TierReduced:
		return "T1"
	case TierMinimal:
		return "T2"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// Change is the discrete event emitted when the tier actually moves. Tier
// changes are reported as events for optional crossfade animation, never as
// per-frame deltas.
type Change struct {
	Old Tier
	New Tier
}

// Calculator is the per-view tier state machine. It is owned by exactly one
// engine instance and must be threaded through calls explicitly; it is not
// safe for concurrent use.
type Calculator struct {
	enabled bool
	quantum float64
	margin  float64 // fraction of a threshold, e.g. 0.25 for ±25%
	t0t1    float64 // full/reduced boundary (higher scale)
	t1t2    float64 // reduced/minimal boundary (lower scale)

	tier     Tier
	lastStep float64
}

// NewCalculator builds a Calculator from validated configuration. When LOD
// is disabled the tier is pinned to TierFull and Update becomes a no-op.
func NewCalculator(cfg config.LODConfig) (*Calculator, error) {
	if cfg.Enabled {
		if cfg.ScaleQuantum <= 0 {
			return nil, fmt.Errorf("lod: scale quantum must be positive, got %g", cfg.ScaleQuantum)
		}
		if cfg.Thresholds.T0T1 <= cfg.Thresholds.T1T2 {
			return nil, fmt.Errorf("lod: t0_t1 threshold %g must exceed t1_t2 %g",
				cfg.Thresholds.T0T1, cfg.Thresholds.T1T2)
		}
	}
	return &Calculator{
		enabled: cfg.Enabled,
		quantum: cfg.ScaleQuantum,
		margin:  cfg.HysteresisMargin,
		t0t1:    cfg.Thresholds.T0T1,
		t1t2:    cfg.Thresholds.T1T2,
		tier:    TierFull,
	}, nil
}

// Tier returns the current tier without updating state.
func (c *Calculator) Tier() Tier {
	return c.tier
}

// Update feeds a camera scale sample into the state machine and returns the
// resulting tier plus a Change event when a boundary was crossed beyond its
// hysteresis band. Scale oscillating strictly within a band never produces
// a change.
func (c *Calculator) Update(scale float64) (Tier, *Change) {
	if !c.enabled {
		return TierFull, nil
	}
	defer metrics.Timer(metrics.TierCalc)()

	step := c.quantize(scale)
	if step == c.lastStep && c.lastStep != 0 {
		return c.tier, nil
	}
	c.lastStep = step

	next := c.next(step)
	if next == c.tier {
		return c.tier, nil
	}

	change := &Change{Old: c.tier, New: next}
	debug.Log("lod: tier %s -> %s at step %.3f", change.Old, change.New, step)
	c.tier = next
	return next, change
}

// next applies the direction-of-travel hysteresis rules from the current
// tier. Zooming out must drop below threshold*(1-margin); zooming in must
// rise above threshold*(1+margin).
func (c *Calculator) next(step float64) Tier {
	lowerOut := func(threshold float64) float64 { return threshold * (1 - c.margin) }
	upperIn := func(threshold float64) float64 { return threshold * (1 + c.margin) }

	switch c.tier {
	case TierFull:
		if step < lowerOut(c.t1t2) {
			return TierMinimal
		}
		if step < lowerOut(c.t0t1) {
			return TierReduced
		}
	case TierReduced:
		if step > upperIn(c.t0t1) {
			return TierFull
		}
		if step < lowerOut(c.t1t2) {
			return TierMinimal
		}
	case TierMinimal:
		if step > upperIn(c.t0t1) {
			return TierFull
		}
		if step > upperIn(c.t1t2) {
			return TierReduced
		}
	}
	return c.tier
}

// quantize snaps a scale to the nearest multiple of the quantum.
func (c *Calculator) quantize(scale float64) float64 {
	if c.quantum <= 0 {
		return scale
	}
	return math.Round(scale/c.quantum) * c.quantum
}
