// Package ui is a terminal previewer for the tree-view engine. It adapts
// key presses into camera transforms, pumps loader completions through the
// bubbletea event loop, and renders the culled set at the active detail
// tier. It exists for inspection and demos; the engine itself is
// renderer-agnostic.
package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/kinview/pkg/engine"
	"github.com/vanderheijden86/kinview/pkg/geom"
	"github.com/vanderheijden86/kinview/pkg/loader"
	"github.com/vanderheijden86/kinview/pkg/lod"
	"github.com/vanderheijden86/kinview/pkg/viewport"
)

// Terminal cells are not square; one cell stands for this many world-scale
// screen pixels.
const (
	cellPxW = 10.0
	cellPxH = 22.0
)

const (
	panStepPx  = 40.0
	zoomFactor = 1.15
)

type completionMsg struct{ c loader.Completion }

// ReloadMsg asks the model to invalidate and reload the dataset, e.g. after
// the backing file changed. The invalidation runs inside Update so engine
// state is only ever touched on the bubbletea event path.
type ReloadMsg struct{}

// Model is the bubbletea model wrapping one engine instance.
type Model struct {
	eng *engine.Engine

	width  int
	height int

	rs       engine.RenderSet
	lastTier string
	lastErr  string
	ready    bool
	quitting bool
}

// NewModel wraps an engine that has already been started.
func NewModel(eng *engine.Engine) *Model {
	m := &Model{eng: eng}
	eng.SetHandlers(engine.Handlers{
		TierChanged: func(c lod.Change) {
			m.lastTier = fmt.Sprintf("%s→%s", c.Old, c.New)
		},
		LoadError: func(le engine.LoadError) {
			m.lastErr = le.Reason
		},
	})
	return m
}

// Init starts pumping loader completions into the event loop.
func (m *Model) Init() tea.Cmd {
	return m.waitForCompletion()
}

func (m *Model) waitForCompletion() tea.Cmd {
	return func() tea.Msg {
		c, ok := <-m.eng.Completions()
		if !ok {
			return nil
		}
		return completionMsg{c: c}
	}
}

// Update handles key, resize, and completion events.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.eng.Resize(float64(msg.Width)*cellPxW, float64(msg.Height-1)*cellPxH)
		m.recull(m.eng.Camera())
		m.ready = true
		return m, nil

	case completionMsg:
		if m.eng.Apply(msg.c) {
			if rs, err := m.eng.RenderSet(); err == nil {
				m.rs = rs
			}
		}
		return m, m.waitForCompletion()

	case ReloadMsg:
		if err := m.eng.Invalidate(context.Background()); err != nil {
			m.lastErr = err.Error()
		}
		m.recull(m.eng.Camera())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cam := m.eng.Camera()
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.eng.Stop()
		return m, tea.Quit
	case "left", "h":
		cam.X += panStepPx
	case "right", "l":
		cam.X -= panStepPx
	case "up", "k":
		cam.Y += panStepPx
	case "down", "j":
		cam.Y -= panStepPx
	case "+", "=":
		cx, cy := m.centerPx()
		cam = zoomAbout(cam, cx, cy, cam.Scale*zoomFactor)
	case "-", "_":
		cx, cy := m.centerPx()
		cam = zoomAbout(cam, cx, cy, cam.Scale/zoomFactor)
	case "0":
		cam = viewport.Camera{Scale: 1}
	default:
		return m, nil
	}
	m.recull(cam)
	return m, nil
}

func (m *Model) centerPx() (float64, float64) {
	return float64(m.width) * cellPxW / 2, float64(m.height-1) * cellPxH / 2
}

// zoomAbout rescales while keeping the given screen point fixed in world
// space, the keyboard analogue of pinch-to-zoom about the cursor.
func zoomAbout(cam viewport.Camera, cx, cy, scale float64) viewport.Camera {
	next := viewport.Camera{X: cam.X, Y: cam.Y, Scale: scale}
	next = next.Clamped()
	ratio := next.Scale / cam.Scale
	next.X = cx - (cx-cam.X)*ratio
	next.Y = cy - (cy-cam.Y)*ratio
	return next
}

func (m *Model) recull(cam viewport.Camera) {
	rs, err := m.eng.SetCamera(cam)
	if err != nil {
		m.lastErr = err.Error()
		return
	}
	m.rs = rs
}

// View renders the culled set onto a character canvas plus a status line.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready || m.width < 10 || m.height < 3 {
		return "loading..."
	}

	rows := m.height - 1
	canvas := make([][]string, rows)
	for i := range canvas {
		canvas[i] = make([]string, m.width)
		for j := range canvas[i] {
			canvas[i][j] = " "
		}
	}

	cam := m.eng.Camera()
	for _, c := range m.rs.Connections {
		a := cam.ToScreen(geom.Point{X: c.X1, Y: c.Y1})
		b := cam.ToScreen(geom.Point{X: c.X2, Y: c.Y2})
		drawLine(canvas, int(a.X/cellPxW), int(a.Y/cellPxH), int(b.X/cellPxW), int(b.Y/cellPxH))
	}

	for _, n := range m.rs.Nodes {
		p := cam.ToScreen(geom.Point{X: n.Layout.X, Y: n.Layout.Y})
		col := int(p.X / cellPxW)
		row := int(p.Y / cellPxH)
		if row < 0 || row >= rows {
			continue
		}
		label := m.nodeLabel(n)
		placeLabel(canvas, row, col, label, genderStyle(n.Person.Gender))
	}

	var b strings.Builder
	for i := range canvas {
		b.WriteString(strings.Join(canvas[i], ""))
		b.WriteString("\n")
	}
	b.WriteString(m.statusLine())
	return b.String()
}

// nodeLabel picks the representation for the active tier: full name and
// marker at T0, given name at T1, a bare glyph at T2.
func (m *Model) nodeLabel(n engine.RenderNode) string {
	name := n.Person.Name
	if name == "" {
		name = string(n.Person.ID)
	}
	switch m.rs.Tier {
	case lod.TierFull:
		if n.Person.Deceased {
			name += " †"
		}
		return "[" + runewidth.Truncate(name, 18, "…") + "]"
	case lod.TierReduced:
		first, _, _ := strings.Cut(name, " ")
		return runewidth.Truncate(first, 10, "…")
	default:
		return "•"
	}
}

func (m *Model) statusLine() string {
	parts := []string{
		statusAccent.Render(m.rs.Tier.String()),
		fmt.Sprintf("scale %.2f", m.eng.Camera().Scale),
		fmt.Sprintf("%d loaded", m.eng.MaterializedCount()),
		fmt.Sprintf("%d visible", len(m.rs.Nodes)),
	}
	if m.rs.FetchPending {
		parts = append(parts, statusWarn.Render("fetching…"))
	}
	if m.lastTier != "" {
		parts = append(parts, "tier "+m.lastTier)
	}
	if m.lastErr != "" {
		parts = append(parts, statusWarn.Render(runewidth.Truncate(m.lastErr, 40, "…")))
	}
	line := statusStyle.Render(strings.Join(parts, "  │  "))
	return runewidth.Truncate(line, m.width, "")
}

// placeLabel writes a styled label centered on col, clipped to the canvas.
func placeLabel(canvas [][]string, row, col int, label string, style lipgloss.Style) {
	cells := []rune(label)
	start := col - len(cells)/2
	for i, r := range cells {
		c := start + i
		if c < 0 || c >= len(canvas[row]) {
			continue
		}
		canvas[row][c] = style.Render(string(r))
	}
}

// drawLine plots a coarse segment between two cells.
func drawLine(canvas [][]string, x1, y1, x2, y2 int) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	steps := dx
	if dy > steps {
		steps = dy
	}
	if steps == 0 {
		steps = 1
	}
	for i := 0; i <= steps; i++ {
		x := x1 + (x2-x1)*i/steps
		y := y1 + (y2-y1)*i/steps
		if y < 0 || y >= len(canvas) || x < 0 || x >= len(canvas[y]) {
			continue
		}
		if canvas[y][x] == " " {
			canvas[y][x] = edgeStyle.Render("·")
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
