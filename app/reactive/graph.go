// Package reactive implements a small explicit dependency graph over named
// state cells. Input cells hold externally-set values; derived cells declare
// the cells they read and recompute when any of them changes. Propagation is
// synchronous: a Set call returns only after every transitively dependent
// cell has settled.
package reactive

import (
	"fmt"
)

// maxPasses caps the number of settle sweeps in one propagation wave.
// Secondary writes made during a recompute re-enter the wave; a declared
// graph that is genuinely acyclic settles in a handful of passes, so hitting
// the cap means a write cycle slipped into the compute functions.
const maxPasses = 100

// CellID names a cell in the graph.
type CellID string

// EqualFunc is a cell's change-detection rule: Set and recompute results
// equal to the current value under this rule do not propagate.
type EqualFunc func(old, new any) bool

// ComputeFunc recomputes a derived cell from its (already settled)
// dependencies. It may read any cell via the Graph and may Set input cells;
// such secondary writes re-enter the current propagation wave. A returned
// error marks the cell unavailable without aborting the wave.
type ComputeFunc func(g *Graph) (any, error)

type cell struct {
	id         CellID
	reads      []CellID
	dependents []CellID
	compute    ComputeFunc // nil for input cells
	equal      EqualFunc

	value       any
	err         error
	unavailable bool
	dirty       bool
	recomputes  int
}

// Graph is the cell graph. It is not safe for concurrent use; the session
// layer serializes all access behind a single owner.
type Graph struct {
	cells map[CellID]*cell
	order []CellID // derived cells in topological order
	built bool

	propagating bool
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{cells: make(map[CellID]*cell)}
}

// Input declares an input cell with its initial value. Inputs have no
// compute function; they change only through Set.
func (g *Graph) Input(id CellID, initial any, equal EqualFunc) {
	g.mustBeNew(id)
	g.cells[id] = &cell{id: id, equal: equal, value: initial}
	g.built = false
}

// Derived declares a derived cell with its read-set and compute function.
func (g *Graph) Derived(id CellID, reads []CellID, equal EqualFunc, compute ComputeFunc) {
	g.mustBeNew(id)
	g.cells[id] = &cell{id: id, reads: append([]CellID(nil), reads...), equal: equal, compute: compute}
	g.built = false
}

func (g *Graph) mustBeNew(id CellID) {
	if _, ok := g.cells[id]; ok {
		panic(fmt.Sprintf("reactive: cell %q declared twice", id))
	}
}

// Build resolves read-sets into forward edges and fixes the topological
// recompute order. It fails on unknown reads and on cycles in the declared
// edges. Build must be called once before the first Set.
func (g *Graph) Build() error {
	for _, c := range g.cells {
		c.dependents = c.dependents[:0]
	}
	for id, c := range g.cells {
		for _, r := range c.reads {
			dep, ok := g.cells[r]
			if !ok {
				return fmt.Errorf("reactive: cell %q reads undeclared cell %q", id, r)
			}
			dep.dependents = append(dep.dependents, id)
		}
	}

	// Kahn's algorithm over derived cells only; inputs have no incoming
	// edges by construction.
	indeg := make(map[CellID]int, len(g.cells))
	var queue []CellID
	for id, c := range g.cells {
		if c.compute == nil {
			continue
		}
		n := 0
		for _, r := range c.reads {
			if g.cells[r].compute != nil {
				n++
			}
		}
		indeg[id] = n
		if n == 0 {
			queue = append(queue, id)
		}
	}
	sortIDs(queue)

	g.order = g.order[:0]
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		g.order = append(g.order, id)
		var next []CellID
		for _, d := range g.cells[id].dependents {
			if g.cells[d].compute == nil {
				continue
			}
			indeg[d]--
			if indeg[d] == 0 {
				next = append(next, d)
			}
		}
		sortIDs(next)
		queue = append(queue, next...)
	}

	derived := 0
	for _, c := range g.cells {
		if c.compute != nil {
			derived++
		}
	}
	if len(g.order) != derived {
		return fmt.Errorf("reactive: dependency cycle among declared cells")
	}
	g.built = true
	return nil
}

// Set assigns a value to a cell. Values equal under the cell's rule are a
// no-op. A real change marks every transitively dependent cell dirty and,
// unless a propagation wave is already running, settles the graph before
// returning.
func (g *Graph) Set(id CellID, value any) error {
	c := g.cell(id)
	if !g.built {
		return fmt.Errorf("reactive: Set before Build")
	}
	if !c.unavailable && c.equal != nil && c.equal(c.value, value) {
		return nil
	}
	c.value = value
	c.err = nil
	c.unavailable = false
	g.markDependentsDirty(c)

	if g.propagating {
		// A secondary write from a compute function; the running wave picks
		// up the new dirty set.
		return nil
	}
	return g.propagate()
}

// Invalidate marks a cell and its dependents dirty without changing the
// cell's value, forcing recompute on the next wave it participates in. Used
// for "reload from store" stimuli where the inputs are unchanged but the
// outside world moved.
func (g *Graph) Invalidate(id CellID) error {
	c := g.cell(id)
	if !g.built {
		return fmt.Errorf("reactive: Invalidate before Build")
	}
	if c.compute != nil {
		c.dirty = true
	}
	g.markDependentsDirty(c)
	if g.propagating {
		return nil
	}
	return g.propagate()
}

// markDependentsDirty marks a changed cell's direct dependents. Transitive
// dependents are reached through the sweep itself: they sort after their
// dependencies, so a recompute that really changes a value marks the next
// ring in the same pass. A recompute that settles on an equal value stops
// the cascade, which is what keeps redundant downstream work out.
func (g *Graph) markDependentsDirty(c *cell) {
	for _, d := range c.dependents {
		g.cells[d].dirty = true
	}
}

// propagate runs settle sweeps in topological order until no cell is dirty.
// Each sweep recomputes every currently dirty derived cell exactly once,
// seeing already-updated dependency values. Secondary writes can dirty
// cells that sort earlier; those are handled by the next sweep.
func (g *Graph) propagate() error {
	g.propagating = true
	defer func() { g.propagating = false }()

	for pass := 0; pass < maxPasses; pass++ {
		ran := false
		for _, id := range g.order {
			c := g.cells[id]
			if !c.dirty {
				continue
			}
			c.dirty = false
			ran = true
			g.recompute(c)
		}
		if !ran {
			return nil
		}
	}
	return fmt.Errorf("reactive: propagation did not settle after %d passes", maxPasses)
}

// recompute runs one derived cell. Errors stay inside the cell: the value
// becomes unavailable and dependents still run, seeing the unavailability.
func (g *Graph) recompute(c *cell) {
	c.recomputes++
	value, err := c.compute(g)
	if err != nil {
		changed := !c.unavailable
		c.value = nil
		c.err = err
		c.unavailable = true
		if changed {
			g.markDependentsDirty(c)
		}
		return
	}
	if !c.unavailable && c.equal != nil && c.equal(c.value, value) {
		return
	}
	c.value = value
	c.err = nil
	c.unavailable = false
	g.markDependentsDirty(c)
}

// Value returns a cell's current value. ok is false while the cell is in
// the unavailable state.
func (g *Graph) Value(id CellID) (value any, ok bool) {
	c := g.cell(id)
	if c.unavailable {
		return nil, false
	}
	return c.value, true
}

// Err returns the error that made a cell unavailable, or nil.
func (g *Graph) Err(id CellID) error {
	return g.cell(id).err
}

// Recomputes returns how many times a derived cell has run. Tests use this
// to assert that equal writes do not propagate and that settled waves run
// each cell once.
func (g *Graph) Recomputes(id CellID) int {
	return g.cell(id).recomputes
}

func (g *Graph) cell(id CellID) *cell {
	c, ok := g.cells[id]
	if !ok {
		panic(fmt.Sprintf("reactive: unknown cell %q", id))
	}
	return c
}

func sortIDs(ids []CellID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}
