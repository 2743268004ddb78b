// Package graph models bean dependency relationships: static cycle detection over
// definitions and the dependency-aware ordering used for teardown.
package graph

import (
	"sort"
	"sync"
)

// DependencyGraph is a directed graph from a bean to the beans it needs.
// Node identifiers are opaque strings chosen by the caller.
type DependencyGraph struct {
	mu     sync.RWMutex
	labels map[string]string
	edges  map[string][]string
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		labels: make(map[string]string),
		edges:  make(map[string][]string),
	}
}

// AddNode adds or replaces a node with its outgoing dependency edges.
// Dependencies that are not yet nodes are created implicitly.
func (g *DependencyGraph) AddNode(id, label string, dependsOn ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.labels[id] = label
	deps := make([]string, 0, len(dependsOn))
	for _, dep := range dependsOn {
		if _, ok := g.labels[dep]; !ok {
			g.labels[dep] = dep
		}
		deps = append(deps, dep)
	}

	g.edges[id] = deps
}

// DetectCycles returns a CircularDependencyError describing the first cycle found.
func (g *DependencyGraph) DetectCycles() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.detectCycle()
}

// detectCycle runs a colored DFS. Callers must hold the lock.
func (g *DependencyGraph) detectCycle() error {
	const (
		white = iota
		grey
		black
	)

	color := make(map[string]int, len(g.labels))
	var stack []string

	ids := make([]string, 0, len(g.labels))
	for id := range g.labels {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = grey
		stack = append(stack, id)

		for _, dep := range g.edges[id] {
			switch color[dep] {
			case grey:
				for i, s := range stack {
					if s == dep {
						return append([]string(nil), stack[i:]...)
					}
				}
			case white:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for _, id := range ids {
		if color[id] != white {
			continue
		}
		if cycle := visit(id); cycle != nil {
			path := make([]string, len(cycle))
			for i, c := range cycle {
				path[i] = g.labels[c]
			}
			return &CircularDependencyError{Path: path}
		}
	}

	return nil
}
