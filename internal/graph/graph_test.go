package graph

import (
	"errors"
	"testing"

	"github.com/rumpbot/rumpbot/pkg/models"
)

func taskIDs(tasks []models.WorkerTask) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

func TestBuild_UnknownDependency(t *testing.T) {
	g := New()
	err := g.Build([]models.WorkerTask{
		{ID: "a", Prompt: "p"},
		{ID: "b", Prompt: "p", DependsOn: []string{"missing"}},
	})
	if err == nil {
		t.Fatal("expected error for unknown dependency")
	}
}

func TestBuild_CycleDetected(t *testing.T) {
	g := New()
	err := g.Build([]models.WorkerTask{
		{ID: "a", Prompt: "p", DependsOn: []string{"b"}},
		{ID: "b", Prompt: "p", DependsOn: []string{"a"}},
	})
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}
}

func TestReady_DependencyRounds(t *testing.T) {
	// Diamond: a; b and c depend on a; d depends on b and c.
	g := New()
	err := g.Build([]models.WorkerTask{
		{ID: "a", Prompt: "p"},
		{ID: "b", Prompt: "p", DependsOn: []string{"a"}},
		{ID: "c", Prompt: "p", DependsOn: []string{"a"}},
		{ID: "d", Prompt: "p", DependsOn: []string{"b", "c"}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	round1 := taskIDs(g.Ready())
	if len(round1) != 1 || round1[0] != "a" {
		t.Fatalf("round 1 = %v, want [a]", round1)
	}

	g.MarkComplete("a")
	round2 := taskIDs(g.Ready())
	if len(round2) != 2 || round2[0] != "b" || round2[1] != "c" {
		t.Fatalf("round 2 = %v, want [b c]", round2)
	}

	g.MarkComplete("b")
	g.MarkComplete("c")
	round3 := taskIDs(g.Ready())
	if len(round3) != 1 || round3[0] != "d" {
		t.Fatalf("round 3 = %v, want [d]", round3)
	}

	g.MarkComplete("d")
	if got := g.Ready(); len(got) != 0 {
		t.Fatalf("after all complete, ready = %v, want empty", got)
	}
	if g.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", g.Remaining())
	}
}

func TestReady_PreservesPlanOrder(t *testing.T) {
	g := New()
	g.Build([]models.WorkerTask{
		{ID: "z", Prompt: "p"},
		{ID: "m", Prompt: "p"},
		{ID: "a", Prompt: "p"},
	})

	got := taskIDs(g.Ready())
	want := []string{"z", "m", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Ready() = %v, want %v", got, want)
		}
	}
}

func TestTransitiveDependents(t *testing.T) {
	g := New()
	g.Build([]models.WorkerTask{
		{ID: "a", Prompt: "p"},
		{ID: "b", Prompt: "p", DependsOn: []string{"a"}},
		{ID: "c", Prompt: "p", DependsOn: []string{"b"}},
		{ID: "d", Prompt: "p"},
	})

	deps := g.TransitiveDependents("a")
	want := map[string]bool{"b": true, "c": true}
	if len(deps) != len(want) {
		t.Fatalf("TransitiveDependents(a) = %v, want b and c", deps)
	}
	for _, id := range deps {
		if !want[id] {
			t.Errorf("unexpected dependent %q", id)
		}
	}

	if got := g.TransitiveDependents("d"); len(got) != 0 {
		t.Errorf("TransitiveDependents(d) = %v, want empty", got)
	}
}

func TestDependencies(t *testing.T) {
	g := New()
	g.Build([]models.WorkerTask{
		{ID: "a", Prompt: "p"},
		{ID: "b", Prompt: "p"},
		{ID: "c", Prompt: "p", DependsOn: []string{"a", "b"}},
	})

	deps := g.Dependencies("c")
	if len(deps) != 2 || deps[0] != "a" || deps[1] != "b" {
		t.Errorf("Dependencies(c) = %v, want [a b]", deps)
	}
}
