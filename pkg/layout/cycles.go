package layout

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/kinview/pkg/model"
)

// excludeCycles finds parent-link cycles among the materialized people and
// returns one diagnostic per cycle member. Self-parents are rejected during
// record validation, so only multi-node cycles reach this point. Descendants
// of excluded nodes are untouched; with their parent gone they become
// synthetic roots.
func excludeCycles(byID map[model.PersonID]model.Person) []Diagnostic {
	ids := make([]model.PersonID, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	g := simple.NewDirectedGraph()
	toNode := make(map[model.PersonID]int64, len(ids))
	fromNode := make(map[int64]model.PersonID, len(ids))
	for i, id := range ids {
		nid := int64(i)
		toNode[id] = nid
		fromNode[nid] = id
		g.AddNode(simple.Node(nid))
	}
	for _, id := range ids {
		p := byID[id]
		if p.ParentID == "" {
			continue
		}
		parent, ok := toNode[p.ParentID]
		if !ok {
			continue
		}
		g.SetEdge(simple.Edge{F: simple.Node(parent), T: simple.Node(toNode[id])})
	}

	var diags []Diagnostic
	for _, cycle := range topo.DirectedCyclesIn(g) {
		members := make([]string, 0, len(cycle))
		for _, n := range cycle {
			members = append(members, string(fromNode[n.ID()]))
		}
		sort.Strings(members)
		members = dedupe(members)
		detail := fmt.Sprintf("parent cycle: %s", strings.Join(members, " -> "))
		for _, member := range members {
			diags = append(diags, Diagnostic{ID: model.PersonID(member), Code: "cycle", Detail: detail})
		}
	}

	// A node can sit on several elementary cycles; report it once.
	seen := make(map[model.PersonID]bool, len(diags))
	out := diags[:0]
	for _, d := range diags {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	return out
}

// dedupe removes adjacent duplicates from a sorted slice. Cycle paths from
// gonum repeat the first node at the end.
func dedupe(sorted []string) []string {
	out := sorted[:0:len(sorted)]
	for i, s := range sorted {
		if i > 0 && s == sorted[i-1] {
			continue
		}
		out = append(out, s)
	}
	return out
}
