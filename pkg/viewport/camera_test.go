package viewport

import (
	"math"
	"testing"

	"github.com/vanderheijden86/kinview/pkg/geom"
)

func TestCameraValidate(t *testing.T) {
	cases := []struct {
		name string
		cam  Camera
		ok   bool
	}{
		{"identity", Camera{Scale: 1}, true},
		{"translated", Camera{X: -500, Y: 250, Scale: 0.5}, true},
		{"zero scale", Camera{Scale: 0}, false},
		{"negative scale", Camera{Scale: -1}, false},
		{"nan scale", Camera{Scale: math.NaN()}, false},
		{"inf scale", Camera{Scale: math.Inf(1)}, false},
		{"nan translation", Camera{X: math.NaN(), Scale: 1}, false},
		{"inf translation", Camera{Y: math.Inf(-1), Scale: 1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cam.Validate()
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestCameraClamped(t *testing.T) {
	if got := (Camera{Scale: 10}).Clamped().Scale; got != MaxZoom {
		t.Errorf("scale 10 clamped to %g, want %g", got, MaxZoom)
	}
	if got := (Camera{Scale: 0.01}).Clamped().Scale; got != MinZoom {
		t.Errorf("scale 0.01 clamped to %g, want %g", got, MinZoom)
	}
	if got := (Camera{Scale: 1}).Clamped().Scale; got != 1 {
		t.Errorf("scale 1 clamped to %g, want unchanged", got)
	}
}

func TestWorldRect(t *testing.T) {
	// Identity camera: world rect equals the screen rect.
	cam := Camera{Scale: 1}
	got := cam.WorldRect(800, 600)
	want := geom.Rect{MinX: 0, MinY: 0, MaxX: 800, MaxY: 600}
	if got != want {
		t.Errorf("identity world rect = %+v, want %+v", got, want)
	}

	// Zoomed out 2x with translation: the visible world region doubles and
	// shifts against the translation.
	cam = Camera{X: 100, Y: -50, Scale: 0.5}
	got = cam.WorldRect(800, 600)
	want = geom.Rect{MinX: -200, MinY: 100, MaxX: 1400, MaxY: 1300}
	if got != want {
		t.Errorf("world rect = %+v, want %+v", got, want)
	}
}

func TestToScreenRoundTrip(t *testing.T) {
	cam := Camera{X: 42, Y: -13, Scale: 1.6}
	world := geom.Point{X: 310, Y: 95}
	screen := cam.ToScreen(world)

	wantX := 310*1.6 + 42
	wantY := 95*1.6 - 13
	if screen.X != wantX || screen.Y != wantY {
		t.Errorf("ToScreen = %+v, want (%g, %g)", screen, wantX, wantY)
	}

	// A point mapped to screen must land inside the world rect of a screen
	// rectangle containing it.
	rect := cam.WorldRect(screen.X+10, screen.Y+10)
	if !rect.Contains(world) {
		t.Errorf("world point %+v outside world rect %+v", world, rect)
	}
}
