// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

type depMap struct {
	names []string
	deps  map[string][]string
}

func (d depMap) BundleNames() []string                  { return d.names }
func (d depMap) DependencyNames(bundle string) []string { return d.deps[bundle] }

func TestTopologicalSort_EmptyGraph(t *testing.T) {
	t.Parallel()
	order, err := New().TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Errorf("expected nil, got %v", order)
	}
}

func TestTopologicalSort_LinearChain(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("share.bundle", "ui.bundle")
	g.AddEdge("ui.bundle", "scene.bundle")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"share.bundle", "ui.bundle", "scene.bundle"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_RepeatedEdges(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("a", "b")
	g.AddEdge("a", "b")
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"a", "b"}) {
		t.Errorf("got %v", order)
	}
}

func TestFromDependencies(t *testing.T) {
	t.Parallel()
	deps := depMap{
		names: []string{"a.bundle", "b.bundle", "share.bundle", "shaders.bundle"},
		deps: map[string][]string{
			"a.bundle":     {"share.bundle", "shaders.bundle"},
			"b.bundle":     {"share.bundle"},
			"share.bundle": {"shaders.bundle"},
		},
	}
	g := FromDependencies(deps)
	if g.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", g.Len())
	}
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"shaders.bundle", "share.bundle", "a.bundle", "b.bundle"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_Cycle(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("leaf")
	g.AddEdge("a", "b")
	g.AddEdge("b", "a")

	order, err := g.TopologicalSort()
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) || !errors.Is(err, ErrCycle) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if !slices.Equal(cycleErr.Cycle, []string{"a", "b"}) {
		t.Errorf("cycle = %v", cycleErr.Cycle)
	}
	if !slices.Equal(order, []string{"leaf"}) {
		t.Errorf("partial order = %v, want the acyclic part", order)
	}
}
