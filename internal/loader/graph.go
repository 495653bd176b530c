package loader

import (
	"errors"
	"fmt"
	"slices"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/errs"
	"github.com/dominikbraun/graph"
)

// Graph holds the library dependency relation
type Graph struct {
	g graph.Graph[string, Library]
}

func libraryHash(l Library) string {
	return l.Name
}

// NewGraph creates an empty dependency graph
func NewGraph() *Graph {
	return &Graph{g: graph.New(libraryHash, graph.Directed(), graph.PreventCycles())}
}

// BuildGraph adds every library and its declared dependencies
func BuildGraph(libs []Library) (*Graph, error) {
	g := NewGraph()
	for _, lib := range libs {
		if err := g.AddLibrary(lib); err != nil {
			return nil, err
		}
	}
	for _, lib := range libs {
		for _, dep := range lib.DependsOn {
			if err := g.AddDependency(lib.Name, dep); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// AddLibrary adds a node; adding the same name twice is an error
func (g *Graph) AddLibrary(lib Library) error {
	if err := g.g.AddVertex(lib); err != nil {
		if errors.Is(err, graph.ErrVertexAlreadyExists) {
			return fmt.Errorf("library %s added twice", lib.Name)
		}
		return err
	}
	return nil
}

// AddDependency records that lib needs dep opened first
func (g *Graph) AddDependency(lib, dep string) error {
	if lib == dep {
		return &errs.CycleError{Cycle: []string{lib, lib}}
	}

	err := g.g.AddEdge(dep, lib)
	switch {
	case err == nil, errors.Is(err, graph.ErrEdgeAlreadyExists):
		return nil
	case errors.Is(err, graph.ErrEdgeCreatesCycle):
		return &errs.CycleError{Cycle: g.cycleThrough(lib, dep)}
	case errors.Is(err, graph.ErrVertexNotFound):
		return fmt.Errorf("dependency %s -> %s references an unknown library", lib, dep)
	default:
		return err
	}
}

// cycleThrough reports the requires-chain that adding lib -> dep would close,
// starting and ending at dep
func (g *Graph) cycleThrough(lib, dep string) []string {
	// an existing path lib ~> dep in edge direction means dep transitively requires lib
	path, err := graph.ShortestPath(g.g, lib, dep)
	if err != nil || len(path) == 0 {
		return []string{lib, dep, lib}
	}
	cycle := slices.Clone(path)
	slices.Reverse(cycle)
	return append(cycle, dep)
}

// Order returns libraries so that each comes after everything it depends on
func (g *Graph) Order() ([]Library, error) {
	names, err := graph.StableTopologicalSort(g.g, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, fmt.Errorf("failed to order libraries: %w", err)
	}

	out := make([]Library, 0, len(names))
	for _, name := range names {
		lib, err := g.g.Vertex(name)
		if err != nil {
			return nil, err
		}
		out = append(out, lib)
	}
	return out, nil
}

// Len returns the number of libraries in the graph
func (g *Graph) Len() int {
	n, _ := g.g.Order()
	return n
}
