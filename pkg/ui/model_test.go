package ui_test

import (
	"context"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/kinview/internal/datasource"
	"github.com/vanderheijden86/kinview/pkg/config"
	"github.com/vanderheijden86/kinview/pkg/engine"
	"github.com/vanderheijden86/kinview/pkg/testutil"
	"github.com/vanderheijden86/kinview/pkg/ui"
)

func keyMsg(key string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func newTestModel(t *testing.T) *ui.Model {
	t.Helper()
	people, marriages := testutil.GenerateForest(testutil.TreeSpec{
		Seed: 4, Roots: 1, Generations: 3, MaxChildren: 2, MarriageRate: 0.3,
	})
	cfg := config.DefaultConfig()
	cfg.Loader.ProgressiveEnabled = false

	eng, err := engine.New(cfg, datasource.NewStatic(people, marriages, nil))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(eng.Stop)

	m := ui.NewModel(eng)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(*ui.Model)
}

func TestViewRendersStatusLine(t *testing.T) {
	m := newTestModel(t)
	view := m.View()

	if !strings.Contains(view, "T0") {
		t.Error("status line missing tier")
	}
	if !strings.Contains(view, "scale 1.00") {
		t.Error("status line missing scale")
	}
	if !strings.Contains(view, "loaded") {
		t.Error("status line missing materialized count")
	}
}

func TestViewBeforeResize(t *testing.T) {
	people, _ := testutil.GenerateForest(testutil.DefaultTreeSpec())
	cfg := config.DefaultConfig()
	cfg.Loader.ProgressiveEnabled = false
	eng, err := engine.New(cfg, datasource.NewStatic(people, nil, nil))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer eng.Stop()

	m := ui.NewModel(eng)
	if view := m.View(); !strings.Contains(view, "loading") {
		t.Errorf("pre-resize view = %q, want loading placeholder", view)
	}
}

func TestZoomKeysChangeScale(t *testing.T) {
	m := newTestModel(t)

	next, _ := m.Update(keyMsg("+"))
	m = next.(*ui.Model)
	view := m.View()
	if !strings.Contains(view, "scale 1.15") {
		t.Errorf("after zoom in, view scale line not updated:\n%s", lastLine(view))
	}

	next, _ = m.Update(keyMsg("0"))
	m = next.(*ui.Model)
	if !strings.Contains(m.View(), "scale 1.00") {
		t.Error("reset key did not restore identity camera")
	}

	next, _ = m.Update(keyMsg("-"))
	m = next.(*ui.Model)
	if !strings.Contains(m.View(), "scale 0.87") {
		t.Errorf("after zoom out, view scale line not updated:\n%s", lastLine(m.View()))
	}
}

// Zooming keeps the world point under the screen center fixed.
func TestZoomKeepsScreenCenterFixed(t *testing.T) {
	people, marriages := testutil.GenerateForest(testutil.DefaultTreeSpec())
	cfg := config.DefaultConfig()
	cfg.Loader.ProgressiveEnabled = false
	eng, err := engine.New(cfg, datasource.NewStatic(people, marriages, nil))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer eng.Stop()

	m := ui.NewModel(eng)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(*ui.Model)

	const cx, cy = 120 * 10.0 / 2, 39 * 22.0 / 2
	before := eng.Camera()
	wx := (cx - before.X) / before.Scale
	wy := (cy - before.Y) / before.Scale

	next, _ = m.Update(keyMsg("+"))
	next.(*ui.Model).Update(keyMsg("+"))

	after := eng.Camera()
	if got := (cx - after.X) / after.Scale; math.Abs(got-wx) > 1e-9 {
		t.Errorf("center world x drifted: %g -> %g", wx, got)
	}
	if got := (cy - after.Y) / after.Scale; math.Abs(got-wy) > 1e-9 {
		t.Errorf("center world y drifted: %g -> %g", wy, got)
	}
}

// A reload message invalidates and re-materializes on the update path; the
// watcher goroutine never touches the engine directly.
func TestReloadMsgReloadsDataset(t *testing.T) {
	people, marriages := testutil.GenerateForest(testutil.DefaultTreeSpec())
	cfg := config.DefaultConfig()
	cfg.Loader.ProgressiveEnabled = false
	eng, err := engine.New(cfg, datasource.NewStatic(people, marriages, nil))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer eng.Stop()

	m := ui.NewModel(eng)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(*ui.Model)

	version := eng.LayoutVersion()
	next, _ = m.Update(ui.ReloadMsg{})
	m = next.(*ui.Model)

	if eng.LayoutVersion() <= version {
		t.Error("reload did not rebuild the layout")
	}
	if eng.MaterializedCount() == 0 {
		t.Error("reload left the materialized set empty")
	}
	if !strings.Contains(m.View(), "loaded") {
		t.Error("view broken after reload")
	}
}

func TestQuitKey(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("quit key returned no command")
	}
	if msg := cmd(); msg != (tea.QuitMsg{}) {
		t.Errorf("quit command produced %T, want tea.QuitMsg", msg)
	}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	return lines[len(lines)-1]
}
