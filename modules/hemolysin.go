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

// HemolysinParams configures the hemolysin field.
type HemolysinParams struct {
	Diffusivity float64 // µm²/min

	// SecretionRate is the amount secreted per hypha per tick.
	SecretionRate float64
}

// HemolysinModule tracks the pore-forming toxin secreted by hyphae; it
// drives erythrocyte lysis.
type HemolysinModule struct {
	Grid *sparse.DenseArray

	params   HemolysinParams
	shared   Shared
	diffuser *Diffuser
	lap      *jbsparse.CSR
	fungus   *FungusModule
}

// NewHemolysin wires the module to the fungal population secreting it.
func NewHemolysin(params HemolysinParams, shared Shared, l *jbsparse.CSR, fungus *FungusModule) *HemolysinModule {
	return &HemolysinModule{params: params, shared: shared, lap: l, fungus: fungus}
}

// Name implements sim.Module.
func (m *HemolysinModule) Name() string { return "hemolysin" }

// Initialize allocates the field and assembles diffusion operators.
func (m *HemolysinModule) Initialize(s *sim.State) error {
	m.Grid = newField(s.Grid)
	m.diffuser = NewDiffuser(m.lap, m.params.Diffusivity, s.Step, m.shared.Tolerance)
	return nil
}

// Advance collects hyphal secretion, decays, and diffuses.
func (m *HemolysinModule) Advance(s *sim.State, previousTime float64) error {
	for _, i := range m.fungus.Cells.Alive() {
		fc := m.fungus.Cells.At(i)
		if fc.Stage != Hyphae {
			continue
		}
		vi := s.Grid.FlatIndex(m.fungus.Cells.VoxelOf(i))
		m.Grid.Elements[vi] += m.params.SecretionRate
	}
	scaleField(m.Grid, m.shared.DecayFactor())
	m.diffuser.Step(m.Grid.Elements)
	return nil
}

// MarshalBinary implements sim.Module.
func (m *HemolysinModule) MarshalBinary() ([]byte, error) {
	return encodeFields(map[string]*sparse.DenseArray{"hemolysin": m.Grid})
}

// UnmarshalBinary implements sim.Module.
func (m *HemolysinModule) UnmarshalBinary(data []byte) error {
	return decodeFields(data, map[string]*sparse.DenseArray{"hemolysin": m.Grid})
}
