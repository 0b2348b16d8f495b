package testutil

import (
	"math"
	"testing"

	"github.com/vanderheijden86/kinview/pkg/geom"
	"github.com/vanderheijden86/kinview/pkg/layout"
	"github.com/vanderheijden86/kinview/pkg/model"
)

// Epsilon is the coordinate comparison tolerance. Layout arithmetic is pure
// float64 addition, so anything beyond rounding noise is a real bug.
const Epsilon = 1e-9

// AssertNear fails unless got is within Epsilon of want.
func AssertNear(t *testing.T, label string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > Epsilon {
		t.Errorf("%s = %v, want %v", label, got, want)
	}
}

// AssertNodeAt fails unless the node exists at the given center coordinates.
func AssertNodeAt(t *testing.T, res *layout.Result, id model.PersonID, x, y float64) {
	t.Helper()
	n, ok := res.Nodes[id]
	if !ok {
		t.Fatalf("node %s missing from layout", id)
	}
	AssertNear(t, string(id)+".X", n.X, x)
	AssertNear(t, string(id)+".Y", n.Y, y)
}

// AssertNoOverlap fails when any two distinct nodes of the same generation
// have overlapping bounds. Spouse-placed nodes are skipped; the spacing
// contract allows them to intrude into an adjacent subtree.
func AssertNoOverlap(t *testing.T, res *layout.Result) {
	t.Helper()
	byGen := map[int][]layout.Node{}
	for _, id := range res.Order {
		n := res.Nodes[id]
		if n.SpousePlaced {
			continue
		}
		byGen[n.Generation] = append(byGen[n.Generation], n)
	}
	for gen, nodes := range byGen {
		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				a, b := nodes[i].Bounds, nodes[j].Bounds
				if strictOverlap(a, b) {
					t.Errorf("generation %d: nodes %s and %s overlap (%v vs %v)",
						gen, nodes[i].ID, nodes[j].ID, a, b)
				}
			}
		}
	}
}

// AssertSameLayout fails unless two layout results are identical node for
// node and connection for connection.
func AssertSameLayout(t *testing.T, a, b *layout.Result) {
	t.Helper()
	if len(a.Order) != len(b.Order) {
		t.Fatalf("node count differs: %d vs %d", len(a.Order), len(b.Order))
	}
	for i, id := range a.Order {
		if b.Order[i] != id {
			t.Fatalf("order[%d] differs: %s vs %s", i, id, b.Order[i])
		}
		na, nb := a.Nodes[id], b.Nodes[id]
		if na != nb {
			t.Errorf("node %s differs: %+v vs %+v", id, na, nb)
		}
	}
	if len(a.Connections) != len(b.Connections) {
		t.Fatalf("connection count differs: %d vs %d", len(a.Connections), len(b.Connections))
	}
	for i := range a.Connections {
		if a.Connections[i] != b.Connections[i] {
			t.Errorf("connection %d differs: %+v vs %+v", i, a.Connections[i], b.Connections[i])
		}
	}
}

// strictOverlap reports interior overlap; shared edges are fine.
func strictOverlap(a, b geom.Rect) bool {
	return a.MinX < b.MaxX && b.MinX < a.MaxX && a.MinY < b.MaxY && b.MinY < a.MaxY
}
