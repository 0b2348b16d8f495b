// Package testutil provides deterministic synthetic family forests and
// assertion helpers shared across the engine's tests and benchmarks.
package testutil

import (
	"fmt"
	"math/rand"

	"github.com/vanderheijden86/kinview/pkg/model"
)

// TreeSpec parameterizes synthetic forest generation.
type TreeSpec struct {
	Seed         int64
	Roots        int
	Generations  int     // total depth including the root generation
	MaxChildren  int     // fanout per person, uniform in [0, MaxChildren]
	MarriageRate float64 // probability a non-root person gets a spouse
}

// DefaultTreeSpec is a small forest useful for most tests.
func DefaultTreeSpec() TreeSpec {
	return TreeSpec{
		Seed:         1,
		Roots:        1,
		Generations:  4,
		MaxChildren:  3,
		MarriageRate: 0.3,
	}
}

// GenerateForest builds a deterministic forest from a TreeSpec. Identical
// specs yield identical output; ids encode root, generation, and ordinal so
// they are stable and readable in failures.
func GenerateForest(spec TreeSpec) ([]model.Person, []model.Marriage) {
	rng := rand.New(rand.NewSource(spec.Seed))

	var people []model.Person
	var marriages []model.Marriage

	for r := 0; r < spec.Roots; r++ {
		rootID := model.PersonID(fmt.Sprintf("p%d-g0-0", r))
		people = append(people, model.Person{
			ID:         rootID,
			Generation: 0,
			Gender:     pickGender(rng),
			Name:       fmt.Sprintf("Root %d", r),
		})

		parents := []model.PersonID{rootID}
		for g := 1; g < spec.Generations; g++ {
			var next []model.PersonID
			ordinal := 0
			for _, parent := range parents {
				kids := rng.Intn(spec.MaxChildren + 1)
				for k := 0; k < kids; k++ {
					id := model.PersonID(fmt.Sprintf("p%d-g%d-%d", r, g, ordinal))
					people = append(people, model.Person{
						ID:           id,
						ParentID:     parent,
						Generation:   g,
						Gender:       pickGender(rng),
						Name:         fmt.Sprintf("Person %d/%d/%d", r, g, ordinal),
						SiblingOrder: k,
						Deceased:     rng.Float64() < 0.1,
					})
					next = append(next, id)

					if rng.Float64() < spec.MarriageRate {
						spouseID := model.PersonID(fmt.Sprintf("s%d-g%d-%d", r, g, ordinal))
						people = append(people, model.Person{
							ID:         spouseID,
							Generation: g,
							Gender:     pickGender(rng),
							Name:       fmt.Sprintf("Spouse %d/%d/%d", r, g, ordinal),
						})
						marriages = append(marriages, model.Marriage{
							A:      id,
							B:      spouseID,
							Status: model.MarriageCurrent,
						})
					}
					ordinal++
				}
			}
			parents = next
			if len(parents) == 0 {
				break
			}
		}
	}
	return people, marriages
}

func pickGender(rng *rand.Rand) model.Gender {
	if rng.Intn(2) == 0 {
		return model.GenderFemale
	}
	return model.GenderMale
}
