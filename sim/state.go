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

/*Package sim composes per-field and per-population modules into a fixed
per-tick simulation pipeline over a shared tissue volume.*/
package sim

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/fungisim/fungisim/grid"
	"github.com/fungisim/fungisim/mesh"
)

// State is the shared simulation substrate handed to every module on
// every tick. Field arrays and agent tables live inside the modules
// that own them; State carries only the geometry, the clock, and the
// random stream.
type State struct {
	Grid *grid.Grid
	Geo  *Geometry

	// Mesh is the unstructured variant of the domain; nil for
	// grid-only runs.
	Mesh *mesh.TetMesh

	// Time is the current simulation time in minutes; Step is the
	// tick length.
	Time float64
	Step float64

	// RNG is the single process-wide random stream. Every stochastic
	// decision in a run draws from it, so the fixed ascending-index
	// agent iteration order makes runs replayable under a fixed seed.
	RNG *rand.Rand

	// Src is the source backing RNG, shared with gonum distributions
	// so that Poisson draws consume the same stream.
	Src rand.Source
}

// NewState returns a State over the given geometry with the given tick
// length (minutes), seeded deterministically.
func NewState(g *grid.Grid, geo *Geometry, step float64, seed uint64) (*State, error) {
	if step <= 0 {
		return nil, fmt.Errorf("sim: time step must be positive, got %g", step)
	}
	if len(geo.Tissue) != g.Len() {
		return nil, fmt.Errorf("sim: tissue classification has %d entries for %d voxels", len(geo.Tissue), g.Len())
	}
	src := rand.NewSource(seed)
	return &State{
		Grid: g,
		Geo:  geo,
		Step: step,
		RNG:  rand.New(src),
		Src:  src,
	}, nil
}
