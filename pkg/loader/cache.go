package loader

import (
	"sort"
	"time"

	"github.com/vanderheijden86/kinview/pkg/debug"
	"github.com/vanderheijden86/kinview/pkg/metrics"
	"github.com/vanderheijden86/kinview/pkg/model"
)

type cacheEntry struct {
	person     model.Person
	lastAccess time.Time
}

// Cache is the materialized set: the bounded in-memory mapping from person
// id to record. Capacity is a soft limit: nodes intersecting the visible
// rectangle are never evicted even when that leaves the set over cap.
//
// The cache is owned by one engine instance and mutated only on the single
// event-processing path, so it carries no locking.
type Cache struct {
	capacity  int
	people    map[model.PersonID]*cacheEntry
	marriages map[string]model.Marriage

	// now is injectable for deterministic eviction-order tests.
	now func() time.Time
	// seq breaks timestamp ties on coarse clocks so LRU order stays total.
	seq uint64
	ord map[model.PersonID]uint64
}

// NewCache creates a cache with the given soft capacity.
func NewCache(capacity int) *Cache {
	return &Cache{
		capacity:  capacity,
		people:    make(map[model.PersonID]*cacheEntry),
		marriages: make(map[string]model.Marriage),
		now:       time.Now,
		ord:       make(map[model.PersonID]uint64),
	}
}

// SetClock overrides the access-stamp clock. Tests only.
func (c *Cache) SetClock(now func() time.Time) { c.now = now }

// Len returns the number of materialized people.
func (c *Cache) Len() int { return len(c.people) }

// Capacity returns the soft cap.
func (c *Cache) Capacity() int { return c.capacity }

// Contains reports whether id is materialized without touching its access
// stamp.
func (c *Cache) Contains(id model.PersonID) bool {
	_, ok := c.people[id]
	return ok
}

// Get returns a materialized person and refreshes its access stamp.
func (c *Cache) Get(id model.PersonID) (model.Person, bool) {
	e, ok := c.people[id]
	if !ok {
		return model.Person{}, false
	}
	c.touch(id, e)
	return e.person, true
}

// Merge inserts new records stamped with the current time; records already
// present get their access stamp refreshed rather than being duplicated.
// Returns the number of newly materialized people.
func (c *Cache) Merge(res QueryResult) int {
	defer metrics.Timer(metrics.CacheMerge)()

	added := 0
	for _, p := range res.People {
		if e, ok := c.people[p.ID]; ok {
			c.touch(p.ID, e)
			continue
		}
		e := &cacheEntry{person: p}
		c.people[p.ID] = e
		c.touch(p.ID, e)
		added++
	}
	for _, m := range res.Marriages {
		c.marriages[m.Key()] = m
	}
	debug.Log("cache: merged %d people (%d new), %d marriages; size %d/%d",
		len(res.People), added, len(res.Marriages), len(c.people), c.capacity)
	return added
}

// People returns the materialized records sorted by id.
func (c *Cache) People() []model.Person {
	out := make([]model.Person, 0, len(c.people))
	for _, e := range c.people {
		out = append(out, e.person)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Marriages returns the materialized marriages sorted by key.
func (c *Cache) Marriages() []model.Marriage {
	out := make([]model.Marriage, 0, len(c.marriages))
	for _, m := range c.marriages {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// EnforceCap evicts least-recently-accessed entries until the set fits the
// capacity, skipping entries the visible predicate pins. Visible correctness
// beats the cap: when every entry over the limit is visible, nothing is evicted.
// Marriages lose entries whose endpoints were evicted. Returns the eviction
// count.
func (c *Cache) EnforceCap(visible func(model.PersonID) bool) int {
	if len(c.people) <= c.capacity {
		return 0
	}
	defer metrics.Timer(metrics.CacheEvict)()

	type candidate struct {
		id    model.PersonID
		stamp time.Time
		ord   uint64
	}
	candidates := make([]candidate, 0, len(c.people))
	for id, e := range c.people {
		if visible != nil && visible(id) {
			continue
		}
		candidates = append(candidates, candidate{id: id, stamp: e.lastAccess, ord: c.ord[id]})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].stamp.Equal(candidates[j].stamp) {
			return candidates[i].stamp.Before(candidates[j].stamp)
		}
		return candidates[i].ord < candidates[j].ord
	})

	evicted := 0
	for _, cand := range candidates {
		if len(c.people) <= c.capacity {
			break
		}
		delete(c.people, cand.id)
		delete(c.ord, cand.id)
		evicted++
	}
	if evicted > 0 {
		c.dropDanglingMarriages()
		debug.Log("cache: evicted %d entries; size %d/%d", evicted, len(c.people), c.capacity)
	}
	return evicted
}

// Invalidate clears the whole set. Used when the backend version changes
// and records must be re-fetched wholesale.
func (c *Cache) Invalidate() {
	c.people = make(map[model.PersonID]*cacheEntry)
	c.marriages = make(map[string]model.Marriage)
	c.ord = make(map[model.PersonID]uint64)
}

func (c *Cache) touch(id model.PersonID, e *cacheEntry) {
	e.lastAccess = c.now()
	c.seq++
	c.ord[id] = c.seq
}

func (c *Cache) dropDanglingMarriages() {
	for key, m := range c.marriages {
		if _, ok := c.people[m.A]; !ok {
			delete(c.marriages, key)
			continue
		}
		if _, ok := c.people[m.B]; !ok {
			delete(c.marriages, key)
		}
	}
}
