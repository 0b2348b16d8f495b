package loader

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/kinview/pkg/config"
	"github.com/vanderheijden86/kinview/pkg/debug"
	"github.com/vanderheijden86/kinview/pkg/geom"
	"github.com/vanderheijden86/kinview/pkg/metrics"
	"github.com/vanderheijden86/kinview/pkg/model"
)

// Completion is the outcome of one viewport fetch, delivered back to the
// engine's event-processing path. The generation tag implements
// cancellation: responses superseded by a newer query are discarded at
// Apply time instead of relying on network-level cancellation.
type Completion struct {
	Generation uint64
	Query      Query
	Result     QueryResult
	Err        error
}

// fullLoadConcurrency bounds parallel per-generation batches during a full
// dataset load.
const fullLoadConcurrency = 4

// Loader drives the progressive-loading protocol: camera-change events are
// debounced, the surviving event fires a generation-tagged asynchronous
// query, and completions are handed back for synchronous application.
//
// RequestViewport may be called from the event path at any rate; the fetch
// goroutine is the only part of the engine that suspends.
type Loader struct {
	src        Source
	cache      *Cache
	debouncer  *Debouncer
	timeout    time.Duration
	maxResults int

	generation  atomic.Uint64
	completions chan Completion

	mu      sync.Mutex
	covered geom.Rect
}

// NewLoader creates a loader over src using the given cache and tuning.
func NewLoader(src Source, cache *Cache, cfg config.LoaderConfig) *Loader {
	return &Loader{
		src:         src,
		cache:       cache,
		debouncer:   NewDebouncer(cfg.DebounceWindow()),
		timeout:     cfg.QueryTimeout(),
		maxResults:  cfg.MaxResults,
		completions: make(chan Completion, 16),
	}
}

// Cache exposes the materialized set the loader maintains.
func (l *Loader) Cache() *Cache { return l.cache }

// Completions returns the channel completions are delivered on. The engine
// drains it on its event path.
func (l *Loader) Completions() <-chan Completion { return l.completions }

// Generation returns the current query generation.
func (l *Loader) Generation() uint64 { return l.generation.Load() }

// Covered returns the union of regions successfully materialized so far.
func (l *Loader) Covered() geom.Rect {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.covered
}

// RequestViewport schedules a debounced fetch for the given visible
// rectangle and margins. Rapid calls within the window coalesce; only the
// last rectangle is queried. The generation counter advances when the fetch
// actually fires, so every in-flight older query becomes stale.
func (l *Loader) RequestViewport(visible geom.Rect, marginX, marginY float64) {
	q := Query{Rect: visible, MarginX: marginX, MarginY: marginY, MaxResults: l.maxResults}
	l.debouncer.Trigger(func() {
		gen := l.generation.Add(1)
		go l.fetch(gen, q)
	})
}

// fetch runs one bounded viewport query and delivers its completion. A
// query with no response within the timeout fails rather than staying
// pending forever.
func (l *Loader) fetch(gen uint64, q Query) {
	defer metrics.Timer(metrics.ViewportFetch)()

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	res, err := l.src.ViewportQuery(ctx, q)
	if err != nil {
		err = &FetchError{Query: q, Cause: err}
	}

	c := Completion{Generation: gen, Query: q, Result: res, Err: err}
	select {
	case l.completions <- c:
	default:
		// The consumer is far behind; this completion would be stale by the
		// time it drained anyway.
		debug.Log("loader: dropped completion gen=%d (channel full)", gen)
	}
}

// Apply merges a completion into the materialized set. Stale completions
// (superseded by a newer query) are discarded and report applied=false with
// no error. Failed fetches preserve the existing set untouched and return
// the retryable FetchError for the load-error event.
//
// Apply does not enforce the capacity cap; the caller recomputes layout
// first and then calls EnforceCap, so the eviction predicate can pin the
// just-merged nodes by their actual positions.
func (l *Loader) Apply(c Completion) (applied bool, err error) {
	if c.Generation != l.generation.Load() {
		debug.Log("loader: discarding stale completion gen=%d (current %d)", c.Generation, l.generation.Load())
		return false, nil
	}
	if c.Err != nil {
		return false, c.Err
	}

	l.cache.Merge(c.Result)

	l.mu.Lock()
	l.covered = l.covered.Union(c.Query.Effective())
	l.mu.Unlock()
	return true, nil
}

// EnforceCap applies the soft capacity cap, skipping entries the visible
// predicate pins. When eviction removes anything, coverage collapses to the
// retained rectangle: evicted regions must read as uncovered again so a
// viewport revisiting them triggers a refetch instead of rendering nothing.
// Returns the eviction count.
func (l *Loader) EnforceCap(visible func(model.PersonID) bool, retained geom.Rect) int {
	evicted := l.cache.EnforceCap(visible)
	if evicted > 0 {
		l.mu.Lock()
		l.covered = retained
		l.mu.Unlock()
	}
	return evicted
}

// LoadEverything materializes the entire dataset at once, used when
// progressive loading is disabled. Generations load in parallel batches;
// the capacity cap intentionally does not apply to a full preload.
func (l *Loader) LoadEverything(ctx context.Context) error {
	minGen, maxGen, err := l.src.GenerationSpan(ctx)
	if err != nil {
		return &FetchError{Cause: err}
	}

	results := make([]QueryResult, maxGen-minGen+1)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fullLoadConcurrency)
	for gen := minGen; gen <= maxGen; gen++ {
		g.Go(func() error {
			res, err := l.src.LoadGeneration(ctx, gen)
			if err != nil {
				return err
			}
			results[gen-minGen] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return &FetchError{Cause: err}
	}

	for _, res := range results {
		l.cache.Merge(res)
	}
	// Everything is materialized; coverage is effectively unbounded.
	l.mu.Lock()
	l.covered = geom.Rect{MinX: -1e12, MinY: -1e12, MaxX: 1e12, MaxY: 1e12}
	l.mu.Unlock()

	debug.Log("loader: full load complete, %d people", l.cache.Len())
	return nil
}

// Invalidate clears the materialized set and coverage, and advances the
// generation so in-flight responses for the old dataset are discarded.
func (l *Loader) Invalidate() {
	l.generation.Add(1)
	l.cache.Invalidate()
	l.mu.Lock()
	l.covered = geom.Rect{}
	l.mu.Unlock()
}

// Stop cancels any pending debounced fetch.
func (l *Loader) Stop() {
	l.debouncer.Cancel()
}
