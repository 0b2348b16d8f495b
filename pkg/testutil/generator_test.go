package testutil

import (
	"testing"

	"github.com/vanderheijden86/kinview/pkg/model"
)

func TestGenerateForestDeterministic(t *testing.T) {
	spec := DefaultTreeSpec()
	p1, m1 := GenerateForest(spec)
	p2, m2 := GenerateForest(spec)

	if len(p1) != len(p2) || len(m1) != len(m2) {
		t.Fatalf("sizes differ: %d/%d vs %d/%d", len(p1), len(m1), len(p2), len(m2))
	}
	for i := range p1 {
		if p1[i] != p2[i] {
			t.Fatalf("person %d differs: %+v vs %+v", i, p1[i], p2[i])
		}
	}
	for i := range m1 {
		if m1[i] != m2[i] {
			t.Fatalf("marriage %d differs: %+v vs %+v", i, m1[i], m2[i])
		}
	}
}

func TestGenerateForestSeedsDiffer(t *testing.T) {
	a := DefaultTreeSpec()
	b := DefaultTreeSpec()
	b.Seed = 2

	p1, _ := GenerateForest(a)
	p2, _ := GenerateForest(b)
	if len(p1) == len(p2) {
		same := true
		for i := range p1 {
			if p1[i] != p2[i] {
				same = false
				break
			}
		}
		if same {
			t.Error("different seeds produced identical forests")
		}
	}
}

func TestGenerateForestWellFormed(t *testing.T) {
	people, marriages := GenerateForest(TreeSpec{
		Seed: 9, Roots: 3, Generations: 5, MaxChildren: 3, MarriageRate: 0.5,
	})

	byID := make(map[model.PersonID]model.Person, len(people))
	for _, p := range people {
		if err := p.Validate(); err != nil {
			t.Fatalf("generated invalid person: %v", err)
		}
		if _, dup := byID[p.ID]; dup {
			t.Fatalf("duplicate id %s", p.ID)
		}
		byID[p.ID] = p
	}

	for _, p := range people {
		if p.ParentID == "" {
			continue
		}
		parent, ok := byID[p.ParentID]
		if !ok {
			t.Fatalf("%s references missing parent %s", p.ID, p.ParentID)
		}
		if parent.Generation != p.Generation-1 {
			t.Errorf("%s generation %d but parent at %d", p.ID, p.Generation, parent.Generation)
		}
	}

	for _, m := range marriages {
		if err := m.Validate(); err != nil {
			t.Fatalf("generated invalid marriage: %v", err)
		}
		if _, ok := byID[m.A]; !ok {
			t.Errorf("marriage endpoint %s missing", m.A)
		}
		if _, ok := byID[m.B]; !ok {
			t.Errorf("marriage endpoint %s missing", m.B)
		}
	}
}
