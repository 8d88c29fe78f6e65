// SPDX-License-Identifier: MPL-2.0

// Package dag orders bundles so that every bundle comes after the bundles it
// loads, and reports dependency cycles between bundles.
package dag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrCycle is the sentinel every CycleError unwraps to.
var ErrCycle = errors.New("bundle dependency cycle")

type (
	// CycleError indicates that the graph contains a cycle. Cycle lists the nodes left
	// unordered, which contain at least one cycle.
	CycleError struct {
		Cycle []string
	}

	// Graph is a directed graph keyed by bundle name. An edge from A to B means A
	// must be loaded before B.
	Graph struct {
		adjacency map[string][]string
		// nodes keeps insertion order so the output is deterministic.
		nodes   []string
		nodeSet map[string]bool
	}

	// Dependencies is anything that lists bundles with their dependency bundles,
	// such as a manifest.
	Dependencies interface {
		BundleNames() []string
		DependencyNames(bundle string) []string
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("bundle dependency cycle: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrCycle.
func (e *CycleError) Unwrap() error { return ErrCycle }

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

// FromDependencies builds the load-order graph of deps: each bundle gets an edge
// from every bundle it depends on.
func FromDependencies(deps Dependencies) *Graph {
	g := New()
	for _, name := range deps.BundleNames() {
		g.AddNode(name)
		for _, dep := range deps.DependencyNames(name) {
			g.AddEdge(dep, name)
		}
	}
	return g
}

// AddNode adds a node. Existing nodes are left alone.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge adds an edge from -> to, adding both nodes when missing. Repeated edges
// are stored once.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	if !slices.Contains(g.adjacency[from], to) {
		g.adjacency[from] = append(g.adjacency[from], to)
	}
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// TopologicalSort returns a load order using Kahn's algorithm, leaves first.
// Nodes at the same level keep insertion order. A cycle yields a *CycleError.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = 0
	}
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	queue := make([]string, 0, len(g.nodes))
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var cycleNodes []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycleNodes = append(cycleNodes, node)
			}
		}
		return result, &CycleError{Cycle: cycleNodes}
	}
	return result, nil
}
