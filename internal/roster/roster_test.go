package roster

import (
	"math/rand"
	"testing"
)

func TestUniqueName(t *testing.T) {
	name := UniqueName(nil)
	if name != "vinnie" {
		t.Errorf("expected first name vinnie, got %s", name)
	}

	used := Names()
	name = UniqueName(used)
	if name != "vinnie-2" {
		t.Errorf("expected vinnie-2 once all names are taken, got %s", name)
	}

	used = append(used, "vinnie-2")
	if name := UniqueName(used); name != "sal-2" {
		t.Errorf("expected sal-2, got %s", name)
	}
}

func TestBuild(t *testing.T) {
	crew := Build(20, rand.New(rand.NewSource(1)))
	if len(crew) != 20 {
		t.Fatalf("expected 20 members, got %d", len(crew))
	}

	seen := make(map[string]bool)
	for i, m := range crew {
		if seen[m.ID] {
			t.Errorf("duplicate id %s", m.ID)
		}
		seen[m.ID] = true
		if m.Name == "" || m.Role == "" || m.Department == "" {
			t.Errorf("incomplete member %+v", m)
		}
		if m.Department != Departments[i%len(Departments)] {
			t.Errorf("member %d: expected department %s, got %s", i, Departments[i%len(Departments)], m.Department)
		}
	}
	if crew[0].Role != "capo" {
		t.Errorf("expected first member to be capo, got %s", crew[0].Role)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	a := Build(5, rand.New(rand.NewSource(42)))
	b := Build(5, rand.New(rand.NewSource(42)))
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("member %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestBuildWithoutRNG(t *testing.T) {
	crew := Build(2, nil)
	if crew[0].ID != "vinnie" || crew[0].Name != "Vinnie" {
		t.Errorf("unexpected first member %+v", crew[0])
	}
	if Build(0, nil) != nil {
		t.Error("expected nil crew for n=0")
	}
}
