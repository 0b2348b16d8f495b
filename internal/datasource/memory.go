package datasource

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vanderheijden86/kinview/pkg/geom"
	"github.com/vanderheijden86/kinview/pkg/loader"
	"github.com/vanderheijden86/kinview/pkg/model"
)

// StaticSource serves viewport queries from records held in memory. It backs
// tests, benchmarks, and the demo mode, and supports failure/latency
// injection for exercising the loader's error paths.
type StaticSource struct {
	mu        sync.Mutex
	people    []model.Person
	marriages []model.Marriage
	positions map[model.PersonID]geom.Point

	failWith error
	latency  time.Duration
	queries  int
}

// NewStatic creates a static source. positions supplies the world-space
// layout hint per person; people without one never match a viewport query.
func NewStatic(people []model.Person, marriages []model.Marriage, positions map[model.PersonID]geom.Point) *StaticSource {
	return &StaticSource{
		people:    append([]model.Person(nil), people...),
		marriages: append([]model.Marriage(nil), marriages...),
		positions: positions,
	}
}

// FailWith makes every subsequent query return err. Pass nil to heal.
func (s *StaticSource) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// SetLatency delays every query, for exercising timeouts.
func (s *StaticSource) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// Queries returns how many viewport queries have been served.
func (s *StaticSource) Queries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries
}

func (s *StaticSource) gate(ctx context.Context) error {
	s.mu.Lock()
	err := s.failWith
	latency := s.latency
	s.queries++
	s.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

// ViewportQuery implements loader.Source.
func (s *StaticSource) ViewportQuery(ctx context.Context, q loader.Query) (loader.QueryResult, error) {
	if err := s.gate(ctx); err != nil {
		return loader.QueryResult{}, err
	}

	rect := q.Effective()
	var matched []model.Person
	for _, p := range s.people {
		pos, ok := s.positions[p.ID]
		if !ok {
			continue
		}
		if rect.Contains(pos) {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.Generation != b.Generation {
			return a.Generation < b.Generation
		}
		if a.SiblingOrder != b.SiblingOrder {
			return a.SiblingOrder < b.SiblingOrder
		}
		return a.ID < b.ID
	})

	res := loader.QueryResult{TotalAvailable: len(matched)}
	if q.MaxResults > 0 && len(matched) > q.MaxResults {
		matched = matched[:q.MaxResults]
	}
	res.People = matched
	res.Marriages = s.marriagesWithin(matched)
	return res, nil
}

// GenerationSpan implements loader.Source.
func (s *StaticSource) GenerationSpan(ctx context.Context) (int, int, error) {
	if err := s.gate(ctx); err != nil {
		return 0, 0, err
	}
	if len(s.people) == 0 {
		return 0, 0, ErrEmptyDataset
	}
	minGen, maxGen := s.people[0].Generation, s.people[0].Generation
	for _, p := range s.people[1:] {
		if p.Generation < minGen {
			minGen = p.Generation
		}
		if p.Generation > maxGen {
			maxGen = p.Generation
		}
	}
	return minGen, maxGen, nil
}

// LoadGeneration implements loader.Source.
func (s *StaticSource) LoadGeneration(ctx context.Context, generation int) (loader.QueryResult, error) {
	if err := s.gate(ctx); err != nil {
		return loader.QueryResult{}, err
	}

	var matched []model.Person
	for _, p := range s.people {
		if p.Generation == generation {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].SiblingOrder != matched[j].SiblingOrder {
			return matched[i].SiblingOrder < matched[j].SiblingOrder
		}
		return matched[i].ID < matched[j].ID
	})
	return loader.QueryResult{
		People:         matched,
		Marriages:      s.marriagesWithin(matched),
		TotalAvailable: len(matched),
	}, nil
}

func (s *StaticSource) marriagesWithin(people []model.Person) []model.Marriage {
	ids := make(map[model.PersonID]bool, len(people))
	for _, p := range people {
		ids[p.ID] = true
	}
	var out []model.Marriage
	for _, m := range s.marriages {
		if ids[m.A] && ids[m.B] {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
