// Package graph provides the dependency graph used to schedule plan
// workers. Workers are nodes; edges point at the workers they depend on.
package graph

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rumpbot/rumpbot/pkg/models"
)

// ErrCycleDetected indicates a circular dependency in the plan.
var ErrCycleDetected = errors.New("circular dependency detected")

// DependencyGraph is a directed acyclic graph of worker dependencies.
type DependencyGraph struct {
	mu sync.RWMutex
	// nodes maps worker ID to the task itself.
	nodes map[string]models.WorkerTask
	// order preserves the plan's worker order for deterministic Ready sets.
	order []string
	// edges maps worker ID to the IDs it depends on.
	edges map[string][]string
	// completed tracks workers whose results are available.
	completed map[string]bool
}

// New creates an empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes:     make(map[string]models.WorkerTask),
		edges:     make(map[string][]string),
		completed: make(map[string]bool),
	}
}

// Build constructs the graph from a plan's worker list. Returns an
// error when a dependency references an unknown or later-unseen worker
// id, or when the dependencies form a cycle.
func (g *DependencyGraph) Build(tasks []models.WorkerTask) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, task := range tasks {
		g.nodes[task.ID] = task
		g.order = append(g.order, task.ID)
		g.edges[task.ID] = nil
	}

	for _, task := range tasks {
		for _, depID := range task.DependsOn {
			if _, exists := g.nodes[depID]; !exists {
				return fmt.Errorf("worker %s depends on unknown worker %s", task.ID, depID)
			}
			g.edges[task.ID] = append(g.edges[task.ID], depID)
		}
	}

	if g.hasCycleLocked() {
		return ErrCycleDetected
	}
	return nil
}

// hasCycleLocked detects back edges with DFS coloring. Caller holds the lock.
func (g *DependencyGraph) hasCycleLocked() bool {
	// 0 = unvisited, 1 = in progress, 2 = done.
	colors := make(map[string]int, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1
		for _, depID := range g.edges[id] {
			switch colors[depID] {
			case 1:
				return true
			case 0:
				if visit(depID) {
					return true
				}
			}
		}
		colors[id] = 2
		return false
	}

	for _, id := range g.order {
		if colors[id] == 0 && visit(id) {
			return true
		}
	}
	return false
}

// Ready returns, in plan order, the incomplete workers whose
// dependencies are all complete.
func (g *DependencyGraph) Ready() []models.WorkerTask {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []models.WorkerTask
	for _, id := range g.order {
		if g.completed[id] {
			continue
		}
		satisfied := true
		for _, depID := range g.edges[id] {
			if !g.completed[depID] {
				satisfied = false
				break
			}
		}
		if satisfied {
			ready = append(ready, g.nodes[id])
		}
	}
	return ready
}

// MarkComplete records a worker's completion, unblocking its dependents.
func (g *DependencyGraph) MarkComplete(workerID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completed[workerID] = true
}

// Remaining returns the number of workers not yet marked complete.
func (g *DependencyGraph) Remaining() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	remaining := 0
	for _, id := range g.order {
		if !g.completed[id] {
			remaining++
		}
	}
	return remaining
}

// Dependencies returns the IDs a worker depends on, in declaration order.
func (g *DependencyGraph) Dependencies(workerID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.edges[workerID]...)
}

// TransitiveDependents returns every worker that depends on the given
// worker directly or through a chain, found by breadth-first search
// over reversed edges.
func (g *DependencyGraph) TransitiveDependents(workerID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	reverse := make(map[string][]string, len(g.nodes))
	for id, deps := range g.edges {
		for _, depID := range deps {
			reverse[depID] = append(reverse[depID], id)
		}
	}

	seen := map[string]bool{workerID: true}
	queue := []string{workerID}
	var dependents []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range reverse[current] {
			if seen[next] {
				continue
			}
			seen[next] = true
			dependents = append(dependents, next)
			queue = append(queue, next)
		}
	}
	return dependents
}

// Size returns the number of workers in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}
