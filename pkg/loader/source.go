// Package loader owns the materialized set of person records: it issues
// debounced viewport queries against an external data source, merges the
// results, and evicts least-recently-used entries under a soft memory cap.
package loader

import (
	"context"
	"fmt"

	"github.com/vanderheijden86/kinview/pkg/geom"
	"github.com/vanderheijden86/kinview/pkg/model"
)

// Query is a viewport query against the external data source. The effective
// rectangle is Rect expanded by the margins.
type Query struct {
	Rect       geom.Rect
	MarginX    float64
	MarginY    float64
	MaxResults int
}

// Effective returns the query rectangle with margins applied.
func (q Query) Effective() geom.Rect {
	return q.Rect.Expand(q.MarginX, q.MarginY)
}

// QueryResult is the typed response of a viewport query. Empty results are
// valid: a rectangle outside all node positions matches nothing without
// error.
type QueryResult struct {
	People    []model.Person
	Marriages []model.Marriage

	// TotalAvailable is the number of records the source holds for the
	// rectangle, which may exceed len(People) when MaxResults truncated.
	TotalAvailable int
}

// Source is the consumed data capability. Implementations live outside the
// engine core (see internal/datasource); the engine never learns how the
// records are durably stored.
type Source interface {
	// ViewportQuery returns the people whose layout position falls within
	// the queried rectangle, ordered by (generation, sibling order, id),
	// plus the marriages among them.
	ViewportQuery(ctx context.Context, q Query) (QueryResult, error)

	// GenerationSpan reports the inclusive generation range of the dataset,
	// used to partition a full load.
	GenerationSpan(ctx context.Context) (min, max int, err error)

	// LoadGeneration returns every record of one generation.
	LoadGeneration(ctx context.Context, generation int) (QueryResult, error)
}

// FetchError is a failed or timed-out viewport query. It is always
// retryable from the engine's perspective: the existing materialized set is
// preserved untouched and the caller may simply re-pan.
type FetchError struct {
	Query Query
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("viewport fetch failed for [%.0f,%.0f]-[%.0f,%.0f]: %v",
		e.Query.Rect.MinX, e.Query.Rect.MinY, e.Query.Rect.MaxX, e.Query.Rect.MaxY, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// Retryable reports whether the caller may retry the fetch. Kept as a
// method so the load-error event can carry it without inspecting the cause.
func (e *FetchError) Retryable() bool { return true }
