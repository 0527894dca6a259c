// Package roster names and staffs the simulated crew.
package roster

import (
	"fmt"
	"math/rand"
	"slices"
	"strings"
)

// Member is one simulated agent's fixed identity
type Member struct {
	ID         string
	Name       string
	Role       string
	Department string
}

var crewNames = []string{
	"vinnie",
	"sal",
	"tony",
	"paulie",
	"carmine",
	"rocco",
	"enzo",
	"vito",
	"sonny",
	"nicky",
	"angelo",
	"bruno",
	"dante",
	"aldo",
	"lucia",
	"gianna",
}

// Roles in the order they are handed out; the first member runs the crew.
var Roles = []string{"capo", "consigliere", "soldato", "soldato", "associate"}

// Departments are assigned round-robin
var Departments = []string{"engineering", "research", "operations", "review"}

// Names returns the base name list
func Names() []string {
	return slices.Clone(crewNames)
}

// UniqueName returns the first base name not in used. Once every base name
// is taken it appends a numeric suffix.
func UniqueName(used []string) string {
	for _, name := range crewNames {
		if !slices.Contains(used, name) {
			return name
		}
	}
	for suffix := 2; ; suffix++ {
		for _, name := range crewNames {
			candidate := fmt.Sprintf("%s-%d", name, suffix)
			if !slices.Contains(used, candidate) {
				return candidate
			}
		}
	}
}

// Build staffs a crew of n members. With a non-nil rng the name order is
// shuffled; the same seed always yields the same crew.
func Build(n int, rng *rand.Rand) []Member {
	if n <= 0 {
		return nil
	}
	names := Names()
	if rng != nil {
		rng.Shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })
	}

	used := make([]string, 0, n)
	crew := make([]Member, 0, n)
	for i := 0; i < n; i++ {
		var name string
		if i < len(names) && !slices.Contains(used, names[i]) {
			name = names[i]
		} else {
			name = UniqueName(used)
		}
		used = append(used, name)

		role := Roles[len(Roles)-1]
		if i < len(Roles) {
			role = Roles[i]
		}
		crew = append(crew, Member{
			ID:         name,
			Name:       displayName(name),
			Role:       role,
			Department: Departments[i%len(Departments)],
		})
	}
	return crew
}

func displayName(id string) string {
	if id == "" {
		return id
	}
	return strings.ToUpper(id[:1]) + id[1:]
}
