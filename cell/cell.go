/*
Copyright © 2025 the FungiSim authors.
This file is part of FungiSim.

FungiSim is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

FungiSim is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with FungiSim.  If not, see <http://www.gnu.org/licenses/>.
*/

/*Package cell manages populations of discrete motile agents indexed by
the voxel containing them.*/
package cell

import (
	"github.com/fungisim/fungisim/grid"
)

// Status is an agent's discrete life-cycle state. Transitions form an
// explicit finite-state machine per agent type; Dead and Left are
// terminal.
type Status uint8

// The common phagocyte life cycle. Agent types that need their own
// vocabulary (e.g. fungal growth stages) define separate constants of
// type Status; Dead and Left keep their terminal meaning everywhere.
const (
	Resting Status = iota
	Active
	Interacting
	Secreting
	Synergic
	Apoptotic
	Necrotic
	Dead
	Left
)

// Terminal reports whether s admits no outgoing transitions.
func (s Status) Terminal() bool { return s == Dead || s == Left }

// Data is the record every agent carries: a continuous position, the
// life-cycle status, and an internal iron pool. Agent types embed Data
// and add their own fields.
type Data struct {
	Point    grid.Point
	Status   Status
	IronPool float64

	// Iteration counts ticks spent in the current status, for
	// transitions bounded by a maximum dwell time.
	Iteration int
}

// Agent is implemented by the pointer type of every concrete agent.
type Agent interface {
	CellData() *Data
}

// List is a growable population of agents of one type, indexed by
// voxel for neighborhood queries. Agents are never removed: Dead and
// Left records stay in place so indices remain stable within a run.
//
// The voxel index is denormalized state derived from each agent's
// position. Relocate folds the re-indexing into the move itself, so
// the index can never be observed stale.
type List[A Agent] struct {
	g       *grid.Grid
	agents  []A
	voxels  []int         // flat voxel index per agent
	byVoxel map[int][]int // flat voxel index → agent indices
}

// NewList returns an empty population on grid g.
func NewList[A Agent](g *grid.Grid) *List[A] {
	return &List[A]{g: g, byVoxel: make(map[int][]int)}
}

// Grid returns the grid this population is indexed against.
func (l *List[A]) Grid() *grid.Grid { return l.g }

// Len is the total number of agent records, dead or alive.
func (l *List[A]) Len() int { return len(l.agents) }

// At returns the agent at index i.
func (l *List[A]) At(i int) A { return l.agents[i] }

// Append adds a new agent to the population, computing its voxel index
// from its position, and returns its index.
func (l *List[A]) Append(a A) int {
	i := len(l.agents)
	l.agents = append(l.agents, a)
	vi := l.g.FlatIndex(l.g.VoxelOf(a.CellData().Point))
	l.voxels = append(l.voxels, vi)
	l.byVoxel[vi] = append(l.byVoxel[vi], i)
	return i
}

// Alive returns the indices of agents whose status is not terminal, in
// ascending order. The result is re-evaluated on every call so that
// mid-tick status changes are visible; iteration over it is the
// documented deterministic agent order.
func (l *List[A]) Alive() []int {
	var out []int
	for i, a := range l.agents {
		if !a.CellData().Status.Terminal() {
			out = append(out, i)
		}
	}
	return out
}

// InVoxel returns the indices of all agents currently indexed to v,
// including any relocated there earlier in the same tick.
func (l *List[A]) InVoxel(v grid.Voxel) []int {
	if !l.g.IsValid(v) {
		return nil
	}
	return l.byVoxel[l.g.FlatIndex(v)]
}

// VoxelOf returns the voxel the agent at index i is indexed to.
func (l *List[A]) VoxelOf(i int) grid.Voxel {
	return l.g.VoxelAt(l.voxels[i])
}

// Relocate moves the agent at index i to point p and refreshes its
// voxel index immediately, so subsequent neighborhood queries in the
// same tick see the move.
func (l *List[A]) Relocate(i int, p grid.Point) {
	l.agents[i].CellData().Point = p
	vi := l.g.FlatIndex(l.g.VoxelOf(p))
	if vi == l.voxels[i] {
		return
	}
	l.removeFromVoxel(i, l.voxels[i])
	l.voxels[i] = vi
	l.byVoxel[vi] = append(l.byVoxel[vi], i)
}

func (l *List[A]) removeFromVoxel(i, vi int) {
	bucket := l.byVoxel[vi]
	for k, idx := range bucket {
		if idx == i {
			l.byVoxel[vi] = append(bucket[:k], bucket[k+1:]...)
			return
		}
	}
}

// Reindex rebuilds the whole voxel index from agent positions. It is
// only needed after mutating positions directly through CellData
// instead of Relocate.
func (l *List[A]) Reindex() {
	l.byVoxel = make(map[int][]int)
	for i, a := range l.agents {
		vi := l.g.FlatIndex(l.g.VoxelOf(a.CellData().Point))
		l.voxels[i] = vi
		l.byVoxel[vi] = append(l.byVoxel[vi], i)
	}
}
