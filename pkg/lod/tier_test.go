package lod

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/kinview/pkg/config"
)

func newTestCalc(t *testing.T, cfg config.LODConfig) *Calculator {
	t.Helper()
	c, err := NewCalculator(cfg)
	if err != nil {
		t.Fatalf("NewCalculator: %v", err)
	}
	return c
}

func defaultLOD() config.LODConfig {
	return config.DefaultConfig().LOD
}

func TestTierString(t *testing.T) {
	if TierFull.String() != "T0" || TierReduced.String() != "T1" || TierMinimal.String() != "T2" {
		t.Errorf("tier names wrong: %s %s %s", TierFull, TierReduced, TierMinimal)
	}
}

func TestDisabledPinsFullTier(t *testing.T) {
	cfg := defaultLOD()
	cfg.Enabled = false
	c := newTestCalc(t, cfg)

	for _, scale := range []float64{4.0, 1.0, 0.5, 0.1} {
		tier, change := c.Update(scale)
		if tier != TierFull {
			t.Errorf("Update(%g) = %s, want T0 when disabled", scale, tier)
		}
		if change != nil {
			t.Errorf("Update(%g) emitted change %+v when disabled", scale, change)
		}
	}
}

// Straddling a threshold inside the hysteresis band never changes tier: with
// the boundary at 0.95 and a ±25% margin the band is [0.7125, 1.1875], so
// the sequence 1.0, 0.9, 1.0, 0.9 stays put.
func TestOscillationWithinBandIsStable(t *testing.T) {
	cfg := defaultLOD()
	cfg.Thresholds = config.TierThresholds{T0T1: 0.95, T1T2: 0.4}
	c := newTestCalc(t, cfg)

	for i, scale := range []float64{1.0, 0.9, 1.0, 0.9} {
		tier, change := c.Update(scale)
		if tier != TierFull {
			t.Fatalf("step %d: tier = %s, want T0", i, tier)
		}
		if change != nil {
			t.Fatalf("step %d: unexpected change %+v", i, change)
		}
	}
}

func TestZoomOutTransitionsThroughTiers(t *testing.T) {
	c := newTestCalc(t, defaultLOD()) // thresholds 0.8/0.4, margin 0.25

	// T0 -> T1 requires dropping below 0.8*0.75 = 0.6.
	if tier, _ := c.Update(0.65); tier != TierFull {
		t.Fatalf("at 0.65: tier = %s, want T0", tier)
	}
	tier, change := c.Update(0.55)
	if tier != TierReduced {
		t.Fatalf("at 0.55: tier = %s, want T1", tier)
	}
	if change == nil || change.Old != TierFull || change.New != TierReduced {
		t.Fatalf("at 0.55: change = %+v, want T0->T1", change)
	}

	// T1 -> T2 requires dropping below 0.4*0.75 = 0.3.
	if tier, _ := c.Update(0.35); tier != TierReduced {
		t.Fatalf("at 0.35: tier = %s, want T1", tier)
	}
	tier, change = c.Update(0.25)
	if tier != TierMinimal {
		t.Fatalf("at 0.25: tier = %s, want T2", tier)
	}
	if change == nil || change.Old != TierReduced || change.New != TierMinimal {
		t.Fatalf("at 0.25: change = %+v, want T1->T2", change)
	}
}

func TestZoomInRequiresUpperCrossing(t *testing.T) {
	c := newTestCalc(t, defaultLOD())

	c.Update(0.25) // T2
	if c.Tier() != TierMinimal {
		t.Fatalf("setup: tier = %s, want T2", c.Tier())
	}

	// T2 -> T1 requires rising above 0.4*1.25 = 0.5; 0.45 is not enough.
	if tier, _ := c.Update(0.45); tier != TierMinimal {
		t.Fatalf("at 0.45: tier = %s, want T2", tier)
	}
	if tier, _ := c.Update(0.55); tier != TierReduced {
		t.Fatalf("at 0.55: tier = %s, want T1", tier)
	}

	// T1 -> T0 requires rising above 0.8*1.25 = 1.0.
	if tier, _ := c.Update(0.95); tier != TierReduced {
		t.Fatalf("at 0.95: tier = %s, want T1", tier)
	}
	if tier, _ := c.Update(1.1); tier != TierFull {
		t.Fatalf("at 1.1: tier = %s, want T0", tier)
	}
}

// A deep zoom-out can skip the middle tier in one step.
func TestDirectFullToMinimal(t *testing.T) {
	c := newTestCalc(t, defaultLOD())
	tier, change := c.Update(0.15)
	if tier != TierMinimal {
		t.Fatalf("tier = %s, want T2", tier)
	}
	if change == nil || change.Old != TierFull || change.New != TierMinimal {
		t.Fatalf("change = %+v, want T0->T2", change)
	}
}

func TestRepeatedScaleEmitsNoChange(t *testing.T) {
	c := newTestCalc(t, defaultLOD())
	c.Update(0.55)
	for i := 0; i < 5; i++ {
		if _, change := c.Update(0.55); change != nil {
			t.Fatalf("repeat %d: unexpected change %+v", i, change)
		}
	}
}

// Monotonically decreasing scale crosses each boundary exactly once; the
// tier never moves back up.
func TestMonotonicDescentCrossesOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c, err := NewCalculator(defaultLOD())
		if err != nil {
			t.Fatalf("NewCalculator: %v", err)
		}

		scale := rapid.Float64Range(1.5, 4.0).Draw(t, "start")
		steps := rapid.IntRange(10, 60).Draw(t, "steps")
		decay := rapid.Float64Range(0.01, 0.2).Draw(t, "decay")

		changes := 0
		prev := c.Tier()
		for i := 0; i < steps; i++ {
			scale -= decay
			if scale < 0.05 {
				scale = 0.05
			}
			tier, change := c.Update(scale)
			if tier < prev {
				t.Fatalf("tier moved up (%s -> %s) while zooming out", prev, tier)
			}
			if change != nil {
				changes++
			}
			prev = tier
		}
		if changes > 2 {
			t.Fatalf("%d changes over a monotonic descent, max is 2", changes)
		}
	})
}

// Scale oscillating strictly inside one hysteresis band never changes tier.
func TestOscillationPropertyNeverFlips(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := defaultLOD()
		c, err := NewCalculator(cfg)
		if err != nil {
			t.Fatalf("NewCalculator: %v", err)
		}

		// The T0 band around t0t1=0.8 is [0.6, 1.0]; keep samples strictly
		// inside, away from the quantization edges.
		samples := rapid.SliceOfN(rapid.Float64Range(0.65, 0.95), 1, 50).Draw(t, "samples")
		for _, s := range samples {
			tier, change := c.Update(s)
			if tier != TierFull || change != nil {
				t.Fatalf("scale %g inside band flipped tier to %s", s, tier)
			}
		}
	})
}

func TestNewCalculatorRejectsBadThresholds(t *testing.T) {
	cfg := defaultLOD()
	cfg.Thresholds = config.TierThresholds{T0T1: 0.4, T1T2: 0.8}
	if _, err := NewCalculator(cfg); err == nil {
		t.Error("expected error for inverted thresholds")
	}

	cfg = defaultLOD()
	cfg.ScaleQuantum = 0
	if _, err := NewCalculator(cfg); err == nil {
		t.Error("expected error for zero quantum")
	}
}
