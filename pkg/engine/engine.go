// Package engine wires the layout engine, LOD calculator, spatial index,
// viewport culler, and progressive loader into one tree-view instance.
//
// The engine follows a single-threaded, event-driven model: camera changes
// are processed synchronously in arrival order on the caller's goroutine,
// and the only suspending operation is the loader's viewport fetch, which
// runs in its own goroutine and reports back through Completions. While a
// fetch is pending the culler keeps rendering from the existing
// materialized set. Apply must be called from the same event path as
// SetCamera; the engine carries no internal locking.
package engine

import (
	"context"
	"errors"

	"github.com/vanderheijden86/kinview/pkg/config"
	"github.com/vanderheijden86/kinview/pkg/debug"
	"github.com/vanderheijden86/kinview/pkg/geom"
	"github.com/vanderheijden86/kinview/pkg/layout"
	"github.com/vanderheijden86/kinview/pkg/loader"
	"github.com/vanderheijden86/kinview/pkg/lod"
	"github.com/vanderheijden86/kinview/pkg/model"
	"github.com/vanderheijden86/kinview/pkg/spatial"
	"github.com/vanderheijden86/kinview/pkg/viewport"
)

// LoadError is the asynchronous fetch-failure event. It is delivered via
// the LoadError handler, never thrown into the synchronous render path; the
// last-good render stays valid while the caller decides whether to retry.
type LoadError struct {
	Reason    string
	Retryable bool
	Err       error
}

// Handlers receive the engine's discrete events. Nil handlers are skipped.
type Handlers struct {
	TierChanged func(lod.Change)
	LayoutReady func(version uint64)
	LoadError   func(LoadError)
}

// RenderNode pairs a positioned layout node with its person record.
type RenderNode struct {
	Layout layout.Node
	Person model.Person
}

// RenderSet is the renderable output of one culling pass.
type RenderSet struct {
	Tier        lod.Tier
	Nodes       []RenderNode
	Connections []layout.Connection
	Visible     geom.Rect
	Expanded    geom.Rect

	// FetchPending is true when the pass found uncovered viewport and
	// scheduled a (debounced) fetch.
	FetchPending bool
}

// Engine is one tree-view instance. It exclusively owns its materialized
// set, spatial index, and tier state.
type Engine struct {
	cfg config.Config

	layoutEngine *layout.Engine
	tiers        *lod.Calculator
	grid         *spatial.Grid
	culler       *viewport.Culler
	ldr          *loader.Loader

	handlers Handlers

	cam     viewport.Camera
	screenW float64
	screenH float64

	current       *layout.Result
	connsByEntry  map[string]layout.Connection
	layoutVersion uint64
	lastVisible   geom.Rect
}

// New builds an engine from validated configuration over the given data
// source.
func New(cfg config.Config, src loader.Source) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tiers, err := lod.NewCalculator(cfg.LOD)
	if err != nil {
		return nil, err
	}

	sizing := layout.SizingFromConfig(cfg.Layout)
	grid := spatial.NewGrid(sizing.NodeWidth*4, sizing.GenerationGap)

	return &Engine{
		cfg:          cfg,
		layoutEngine: layout.New(sizing),
		tiers:        tiers,
		grid:         grid,
		culler:       viewport.NewCuller(grid, cfg.Viewport.X, cfg.Viewport.Y),
		ldr:          loader.NewLoader(src, loader.NewCache(cfg.Loader.CacheCapacity), cfg.Loader),
		cam:          viewport.Camera{Scale: 1},
		current:      &layout.Result{Nodes: map[model.PersonID]layout.Node{}},
		connsByEntry: map[string]layout.Connection{},
	}, nil
}

// Start performs initial materialization. With progressive loading disabled
// the entire dataset is loaded once, synchronously; otherwise the first
// SetCamera triggers a viewport fetch and Start only records readiness.
func (e *Engine) Start(ctx context.Context) error {
	if e.cfg.Loader.ProgressiveEnabled {
		return nil
	}
	if err := e.ldr.LoadEverything(ctx); err != nil {
		return err
	}
	e.relayout()
	return nil
}

// Stop cancels pending debounced fetches.
func (e *Engine) Stop() { e.ldr.Stop() }

// SetHandlers registers event handlers. Call before the first SetCamera.
func (e *Engine) SetHandlers(h Handlers) { e.handlers = h }

// Resize updates the screen dimensions used for viewport computation.
func (e *Engine) Resize(w, h float64) {
	e.screenW = w
	e.screenH = h
}

// Camera returns the current camera transform.
func (e *Engine) Camera() viewport.Camera { return e.cam }

// Tier returns the current detail tier.
func (e *Engine) Tier() lod.Tier { return e.tiers.Tier() }

// LayoutVersion identifies the last completed layout pass.
func (e *Engine) LayoutVersion() uint64 { return e.layoutVersion }

// Diagnostics returns the excluded-node diagnostics of the current layout.
func (e *Engine) Diagnostics() []layout.Diagnostic { return e.current.Diagnostics }

// Layout returns the current layout result. Callers must treat it as
// read-only; it is replaced wholesale on the next relayout.
func (e *Engine) Layout() *layout.Result { return e.current }

// People returns the materialized records sorted by id.
func (e *Engine) People() []model.Person { return e.ldr.Cache().People() }

// MaterializedCount returns the current materialized-set size.
func (e *Engine) MaterializedCount() int { return e.ldr.Cache().Len() }

// Completions exposes the loader's completion channel so hosts can pump it
// into their own event loop (a bubbletea Cmd, a select loop, a test).
func (e *Engine) Completions() <-chan loader.Completion { return e.ldr.Completions() }

// SetCamera is the one entry point of the render path. It validates and
// clamps the transform, advances the tier state machine, culls against the
// spatial index, and, when the padded viewport escapes materialized
// coverage, schedules a debounced fetch. Errors are synchronous and mean
// the whole pass was rejected; the previous render set stays valid.
func (e *Engine) SetCamera(cam viewport.Camera) (RenderSet, error) {
	if err := cam.Validate(); err != nil {
		return RenderSet{}, err
	}
	e.cam = cam.Clamped()

	_, change := e.tiers.Update(e.cam.Scale)
	if change != nil && e.handlers.TierChanged != nil {
		e.handlers.TierChanged(*change)
	}

	return e.cull()
}

// RenderSet re-culls with the current camera, e.g. after Apply produced a
// new layout.
func (e *Engine) RenderSet() (RenderSet, error) {
	return e.cull()
}

// Apply merges a fetch completion on the event path. Stale completions are
// dropped silently; failures emit the load-error event and preserve the
// materialized set; successful merges recompute layout synchronously before
// the next culling pass can observe them, then emit layout-ready.
func (e *Engine) Apply(c loader.Completion) bool {
	applied, err := e.ldr.Apply(c)
	if err != nil {
		var fe *loader.FetchError
		retryable := errors.As(err, &fe) && fe.Retryable()
		e.emitLoadError(LoadError{Reason: err.Error(), Retryable: retryable, Err: err})
		return false
	}
	if !applied {
		return false
	}

	// Layout before eviction: the visible predicate must see the just-merged
	// nodes at their real positions, or a cold start over cap would evict
	// on-screen records. If eviction removed anything, the layout is
	// recomputed to match the shrunken set.
	e.relayout()
	if e.ldr.EnforceCap(e.visiblePred(), c.Query.Effective()) > 0 {
		e.relayout()
	}
	if e.handlers.LayoutReady != nil {
		e.handlers.LayoutReady(e.layoutVersion)
	}
	return true
}

// Invalidate drops the materialized set after a backend version change and
// refetches wholesale according to the loading mode.
func (e *Engine) Invalidate(ctx context.Context) error {
	e.ldr.Invalidate()
	e.relayout()

	if !e.cfg.Loader.ProgressiveEnabled {
		if err := e.ldr.LoadEverything(ctx); err != nil {
			return err
		}
		e.relayout()
		if e.handlers.LayoutReady != nil {
			e.handlers.LayoutReady(e.layoutVersion)
		}
		return nil
	}

	e.ldr.RequestViewport(e.lastVisible, e.cfg.Viewport.X, e.cfg.Viewport.Y)
	return nil
}

func (e *Engine) cull() (RenderSet, error) {
	cr, err := e.culler.Cull(e.cam, e.screenW, e.screenH, e.ldr.Covered())
	if err != nil {
		return RenderSet{}, err
	}
	e.lastVisible = cr.Visible

	rs := RenderSet{
		Tier:     e.tiers.Tier(),
		Visible:  cr.Visible,
		Expanded: cr.Expanded,
	}

	cache := e.ldr.Cache()
	for _, entry := range cr.Nodes {
		id := model.PersonID(entry.ID)
		ln, ok := e.current.Nodes[id]
		if !ok {
			continue
		}
		person, ok := cache.Get(id)
		if !ok {
			continue
		}
		rs.Nodes = append(rs.Nodes, RenderNode{Layout: ln, Person: person})
	}
	for _, entry := range cr.Connections {
		if conn, ok := e.connsByEntry[entry.ID]; ok {
			rs.Connections = append(rs.Connections, conn)
		}
	}

	if cr.Uncovered != nil && e.cfg.Loader.ProgressiveEnabled {
		e.ldr.RequestViewport(cr.Visible, e.cfg.Viewport.X, e.cfg.Viewport.Y)
		rs.FetchPending = true
	}
	return rs, nil
}

// relayout recomputes layout from the materialized set and reconciles the
// spatial index. The result replaces the previous one wholesale.
func (e *Engine) relayout() {
	cache := e.ldr.Cache()
	res := e.layoutEngine.Compute(cache.People(), cache.Marriages())

	entries := make([]spatial.Entry, 0, len(res.Order)+len(res.Connections))
	for _, id := range res.Order {
		n := res.Nodes[id]
		entries = append(entries, spatial.Entry{ID: string(id), Kind: spatial.KindNode, Bounds: n.Bounds})
	}
	conns := make(map[string]layout.Connection, len(res.Connections))
	for _, c := range res.Connections {
		eid := layout.ConnectionEntryID(c)
		conns[eid] = c
		entries = append(entries, spatial.Entry{ID: eid, Kind: spatial.KindConnection, Bounds: c.Bounds})
	}
	e.grid.Sync(entries)

	e.current = res
	e.connsByEntry = conns
	e.layoutVersion++
	debug.Log("engine: layout v%d (%d nodes, %d connections)",
		e.layoutVersion, len(res.Nodes), len(res.Connections))
}

// visiblePred pins nodes intersecting the unexpanded visible rectangle
// against eviction.
func (e *Engine) visiblePred() func(model.PersonID) bool {
	visible := e.lastVisible
	current := e.current
	return func(id model.PersonID) bool {
		n, ok := current.Nodes[id]
		if !ok {
			return false
		}
		return n.Bounds.Intersects(visible)
	}
}

func (e *Engine) emitLoadError(le LoadError) {
	debug.Log("engine: load error: %s (retryable=%v)", le.Reason, le.Retryable)
	if e.handlers.LoadError != nil {
		e.handlers.LoadError(le)
	}
}
