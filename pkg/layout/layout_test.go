package layout_test

import (
	"math/rand"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/kinview/pkg/config"
	"github.com/vanderheijden86/kinview/pkg/layout"
	"github.com/vanderheijden86/kinview/pkg/model"
	"github.com/vanderheijden86/kinview/pkg/testutil"
)

func defaultEngine() *layout.Engine {
	return layout.New(layout.SizingFromConfig(config.DefaultConfig().Layout))
}

func person(id, parent model.PersonID, gen, order int) model.Person {
	return model.Person{
		ID:           id,
		ParentID:     parent,
		Generation:   gen,
		Gender:       model.GenderUnknown,
		SiblingOrder: order,
	}
}

// Root with two children, four grandchildren, default gaps: the root sits at
// the midpoint of the full span, each child over its own subtree, and
// grandchildren centers are one node width plus one sibling gap apart.
func TestThreeGenerationPlacement(t *testing.T) {
	people := []model.Person{
		person("r", "", 0, 0),
		person("c1", "r", 1, 0),
		person("c2", "r", 1, 1),
		person("g1", "c1", 2, 0),
		person("g2", "c1", 2, 1),
		person("g3", "c2", 2, 0),
		person("g4", "c2", 2, 1),
	}
	res := defaultEngine().Compute(people, nil)

	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", res.Diagnostics)
	}

	// Leaf width 120, sibling gap 40: child subtree 280, full span 600.
	testutil.AssertNodeAt(t, res, "r", 300, 0)
	testutil.AssertNodeAt(t, res, "c1", 140, 140)
	testutil.AssertNodeAt(t, res, "c2", 460, 140)
	testutil.AssertNodeAt(t, res, "g1", 60, 280)
	testutil.AssertNodeAt(t, res, "g2", 220, 280)
	testutil.AssertNodeAt(t, res, "g3", 380, 280)
	testutil.AssertNodeAt(t, res, "g4", 540, 280)

	testutil.AssertNoOverlap(t, res)

	// 6 parent/child drops, no spouse links.
	if len(res.Connections) != 6 {
		t.Fatalf("got %d connections, want 6", len(res.Connections))
	}
	for _, c := range res.Connections {
		if c.Kind != layout.ConnParentChild {
			t.Errorf("connection %s has kind %v, want parent/child", c.ID, c.Kind)
		}
	}
}

func TestSiblingOrderWithIDTieBreak(t *testing.T) {
	people := []model.Person{
		person("r", "", 0, 0),
		person("b", "r", 1, 5),
		person("a", "r", 1, 5),
		person("z", "r", 1, 1),
	}
	res := defaultEngine().Compute(people, nil)

	// z has the lowest order; a and b tie and fall back to id order.
	zx := res.Nodes["z"].X
	ax := res.Nodes["a"].X
	bx := res.Nodes["b"].X
	if !(zx < ax && ax < bx) {
		t.Errorf("sibling x order = z:%g a:%g b:%g, want z < a < b", zx, ax, bx)
	}
}

// A child whose parent is not materialized becomes a synthetic root instead
// of disappearing, so partial trees render during progressive loading.
func TestAbsentParentBecomesRoot(t *testing.T) {
	people := []model.Person{
		person("orphan", "not-loaded", 3, 0),
		person("kid", "orphan", 4, 0),
	}
	res := defaultEngine().Compute(people, nil)

	if len(res.Nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(res.Nodes))
	}
	if res.Nodes["orphan"].Y != 3*140 {
		t.Errorf("orphan y = %g, want generation row %g", res.Nodes["orphan"].Y, 3.0*140)
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("absent parent should not be diagnosed: %+v", res.Diagnostics)
	}
}

func TestSelfParentExcluded(t *testing.T) {
	people := []model.Person{
		person("ok", "", 0, 0),
		person("loop", "loop", 0, 0),
	}
	res := defaultEngine().Compute(people, nil)

	if _, ok := res.Nodes["loop"]; ok {
		t.Error("self-parented node was laid out")
	}
	if _, ok := res.Nodes["ok"]; !ok {
		t.Error("valid node missing; one bad record must not abort the pass")
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Code != "self_parent" {
		t.Errorf("diagnostics = %+v, want one self_parent", res.Diagnostics)
	}
}

func TestParentCycleExcluded(t *testing.T) {
	people := []model.Person{
		person("ok", "", 0, 0),
		person("a", "c", 1, 0),
		person("b", "a", 1, 0),
		person("c", "b", 1, 0),
	}
	res := defaultEngine().Compute(people, nil)

	if len(res.Nodes) != 1 {
		t.Fatalf("got %d nodes, want only the acyclic one", len(res.Nodes))
	}
	if len(res.Diagnostics) != 3 {
		t.Fatalf("diagnostics = %+v, want all 3 cycle members", res.Diagnostics)
	}
	for _, d := range res.Diagnostics {
		if d.Code != "cycle" {
			t.Errorf("diagnostic %s code = %q, want cycle", d.ID, d.Code)
		}
	}
}

func TestDuplicateIDExcluded(t *testing.T) {
	people := []model.Person{
		person("a", "", 0, 0),
		person("a", "", 0, 1),
	}
	res := defaultEngine().Compute(people, nil)
	if len(res.Nodes) != 1 {
		t.Fatalf("got %d nodes, want 1", len(res.Nodes))
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Code != "invalid" {
		t.Errorf("diagnostics = %+v, want one invalid", res.Diagnostics)
	}
}

// A parentless, childless person currently married to a tree member sits
// directly beside the partner on the same row instead of opening a new root
// span.
func TestSpousePlacedAdjacent(t *testing.T) {
	people := []model.Person{
		person("r", "", 0, 0),
		person("c", "r", 1, 0),
		person("s", "", 1, 0),
	}
	marriages := []model.Marriage{
		{A: "c", B: "s", Status: model.MarriageCurrent},
	}
	res := defaultEngine().Compute(people, marriages)

	c := res.Nodes["c"]
	s := res.Nodes["s"]
	if !s.SpousePlaced {
		t.Fatal("spouse was not marked spouse-placed")
	}
	if s.Y != c.Y {
		t.Errorf("spouse y = %g, want partner row %g", s.Y, c.Y)
	}
	// One slot to the right: node width 120 + spouse gap 24.
	testutil.AssertNear(t, "spouse x", s.X, c.X+144)

	var spouseConns int
	for _, conn := range res.Connections {
		if conn.Kind == layout.ConnSpouse {
			spouseConns++
		}
	}
	if spouseConns != 1 {
		t.Errorf("got %d spouse connections, want 1", spouseConns)
	}
}

func TestConcurrentSpousesOrdered(t *testing.T) {
	people := []model.Person{
		person("r", "", 0, 0),
		person("c", "r", 1, 0),
		person("s1", "", 1, 0),
		person("s2", "", 1, 0),
	}
	marriages := []model.Marriage{
		{A: "c", B: "s2", Status: model.MarriageCurrent, SpouseOrder: 0},
		{A: "c", B: "s1", Status: model.MarriageCurrent, SpouseOrder: 1},
	}
	res := defaultEngine().Compute(people, marriages)

	// s2 has the lower explicit order, so it takes the nearer slot.
	if !(res.Nodes["s2"].X < res.Nodes["s1"].X) {
		t.Errorf("spouse order ignored: s2 at %g, s1 at %g", res.Nodes["s2"].X, res.Nodes["s1"].X)
	}
}

func TestPastMarriageProducesNoAdjacency(t *testing.T) {
	people := []model.Person{
		person("r", "", 0, 0),
		person("c", "r", 1, 0),
		person("ex", "", 1, 0),
	}
	marriages := []model.Marriage{
		{A: "c", B: "ex", Status: model.MarriagePast},
	}
	res := defaultEngine().Compute(people, marriages)

	if res.Nodes["ex"].SpousePlaced {
		t.Error("past marriage produced spouse placement")
	}
	for _, conn := range res.Connections {
		if conn.Kind == layout.ConnSpouse {
			t.Errorf("past marriage produced spouse connection %s", conn.ID)
		}
	}
}

func TestEmptyInput(t *testing.T) {
	res := defaultEngine().Compute(nil, nil)
	if len(res.Nodes) != 0 || len(res.Connections) != 0 || len(res.Diagnostics) != 0 {
		t.Errorf("empty input produced non-empty result: %+v", res)
	}
	if !res.Bounds.Empty() {
		t.Errorf("empty input bounds = %+v, want empty", res.Bounds)
	}
}

func TestSingleNode(t *testing.T) {
	res := defaultEngine().Compute([]model.Person{person("solo", "", 0, 0)}, nil)
	testutil.AssertNodeAt(t, res, "solo", 60, 0)
	if w := res.Nodes["solo"].SubtreeWidth; w != 120 {
		t.Errorf("leaf subtree width = %g, want node width", w)
	}
}

func TestGeneratedForestInvariants(t *testing.T) {
	people, marriages := testutil.GenerateForest(testutil.TreeSpec{
		Seed: 7, Roots: 2, Generations: 5, MaxChildren: 3, MarriageRate: 0.4,
	})
	res := defaultEngine().Compute(people, marriages)

	if len(res.Diagnostics) != 0 {
		t.Fatalf("generated forest produced diagnostics: %+v", res.Diagnostics)
	}
	if len(res.Nodes) != len(people) {
		t.Fatalf("laid out %d of %d people", len(res.Nodes), len(people))
	}
	testutil.AssertNoOverlap(t, res)

	for _, id := range res.Order {
		n := res.Nodes[id]
		if !res.Bounds.ContainsRect(n.Bounds) {
			t.Errorf("node %s bounds %+v escape result bounds %+v", id, n.Bounds, res.Bounds)
		}
	}
}

// Identical topology and ordering yield bit-identical coordinates no matter
// how the input slices are permuted.
func TestDeterminismUnderPermutation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		spec := testutil.TreeSpec{
			Seed:         rapid.Int64Range(1, 1000).Draw(t, "seed"),
			Roots:        rapid.IntRange(1, 3).Draw(t, "roots"),
			Generations:  rapid.IntRange(2, 5).Draw(t, "generations"),
			MaxChildren:  rapid.IntRange(1, 3).Draw(t, "fanout"),
			MarriageRate: 0.3,
		}
		people, marriages := testutil.GenerateForest(spec)

		eng := defaultEngine()
		base := eng.Compute(people, marriages)

		shuffled := append([]model.Person(nil), people...)
		shuffleSeed := rapid.Int64().Draw(t, "shuffle")
		rand.New(rand.NewSource(shuffleSeed)).Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		again := eng.Compute(shuffled, marriages)

		if len(base.Order) != len(again.Order) {
			t.Fatalf("node counts differ: %d vs %d", len(base.Order), len(again.Order))
		}
		for i, id := range base.Order {
			if again.Order[i] != id {
				t.Fatalf("order[%d] differs: %s vs %s", i, id, again.Order[i])
			}
			if base.Nodes[id] != again.Nodes[id] {
				t.Fatalf("node %s differs under permutation:\n%+v\n%+v", id, base.Nodes[id], again.Nodes[id])
			}
		}
		for i := range base.Connections {
			if base.Connections[i] != again.Connections[i] {
				t.Fatalf("connection %d differs under permutation", i)
			}
		}
	})
}

func BenchmarkComputeWideForest(b *testing.B) {
	people, marriages := testutil.GenerateForest(testutil.TreeSpec{
		Seed: 3, Roots: 5, Generations: 6, MaxChildren: 3, MarriageRate: 0.3,
	})
	eng := defaultEngine()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		eng.Compute(people, marriages)
	}
}
