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

package modules

import (
	"github.com/ctessum/sparse"
	jbsparse "github.com/james-bowman/sparse"

	"github.com/fungisim/fungisim/sim"
)

// IronParams configures the free-iron field.
type IronParams struct {
	Diffusivity float64 // µm²/min
	InitAmount  float64 // atto-mol seeded per epithelial voxel
}

// IronModule is the free elemental iron field. Iron is not degraded;
// it only moves: surface diffusion on the epithelial mask here, and
// exchange with carriers, cells, and fungus in the modules that own
// those reactions.
type IronModule struct {
	Grid *sparse.DenseArray

	params   IronParams
	shared   Shared
	diffuser *Diffuser
	lap      *jbsparse.CSR
}

// NewIron returns an iron module diffusing on the Laplacian l
// (typically built from the epithelial mask).
func NewIron(params IronParams, shared Shared, l *jbsparse.CSR) *IronModule {
	return &IronModule{params: params, shared: shared, lap: l}
}

// Name implements sim.Module.
func (m *IronModule) Name() string { return "iron" }

// Initialize allocates the field, seeds epithelial voxels, and
// assembles the Crank–Nicolson operators for the run's step size.
func (m *IronModule) Initialize(s *sim.State) error {
	m.Grid = newField(s.Grid)
	for i, t := range s.Geo.Tissue {
		if t == sim.Epithelium {
			m.Grid.Elements[i] = m.params.InitAmount
		}
	}
	m.diffuser = NewDiffuser(m.lap, m.params.Diffusivity, s.Step, m.shared.Tolerance)
	return nil
}

// Advance applies one diffusion step.
func (m *IronModule) Advance(s *sim.State, previousTime float64) error {
	m.diffuser.Step(m.Grid.Elements)
	return nil
}

// MarshalBinary implements sim.Module.
func (m *IronModule) MarshalBinary() ([]byte, error) {
	return encodeFields(map[string]*sparse.DenseArray{"iron": m.Grid})
}

// UnmarshalBinary implements sim.Module.
func (m *IronModule) UnmarshalBinary(data []byte) error {
	return decodeFields(data, map[string]*sparse.DenseArray{"iron": m.Grid})
}
