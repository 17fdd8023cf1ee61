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

// ironsPerHemoglobin is the number of heme irons released when one
// hemoglobin is degraded.
const ironsPerHemoglobin = 4

// HemoglobinParams configures the free-hemoglobin field.
type HemoglobinParams struct {
	Diffusivity float64 // µm²/min

	// DegradeFraction of the local hemoglobin breaks down per tick,
	// releasing heme iron into the free iron field.
	DegradeFraction float64
}

// HemoglobinModule tracks hemoglobin leaked from lysed erythrocytes.
// Erythrocyte lysis is its only source; breakdown feeds the iron
// field.
type HemoglobinModule struct {
	Grid *sparse.DenseArray

	params   HemoglobinParams
	shared   Shared
	diffuser *Diffuser
	lap      *jbsparse.CSR
	iron     *IronModule
}

// NewHemoglobin wires the module to the iron field it replenishes.
func NewHemoglobin(params HemoglobinParams, shared Shared, l *jbsparse.CSR, iron *IronModule) *HemoglobinModule {
	return &HemoglobinModule{params: params, shared: shared, lap: l, iron: iron}
}

// Name implements sim.Module.
func (m *HemoglobinModule) Name() string { return "hemoglobin" }

// Initialize allocates the field and assembles diffusion operators.
func (m *HemoglobinModule) Initialize(s *sim.State) error {
	m.Grid = newField(s.Grid)
	m.diffuser = NewDiffuser(m.lap, m.params.Diffusivity, s.Step, m.shared.Tolerance)
	return nil
}

// Advance degrades hemoglobin into free iron, applies systemic
// turnover, and diffuses.
func (m *HemoglobinModule) Advance(s *sim.State, previousTime float64) error {
	for i, hb := range m.Grid.Elements {
		q := hb * m.params.DegradeFraction
		m.Grid.Elements[i] -= q
		m.iron.Grid.Elements[i] += ironsPerHemoglobin * q
	}
	scaleField(m.Grid, m.shared.DecayFactor())
	m.diffuser.Step(m.Grid.Elements)
	return nil
}

// MarshalBinary implements sim.Module.
func (m *HemoglobinModule) MarshalBinary() ([]byte, error) {
	return encodeFields(map[string]*sparse.DenseArray{"hemoglobin": m.Grid})
}

// UnmarshalBinary implements sim.Module.
func (m *HemoglobinModule) UnmarshalBinary(data []byte) error {
	return decodeFields(data, map[string]*sparse.DenseArray{"hemoglobin": m.Grid})
}
