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

	"github.com/fungisim/fungisim/cell"
	"github.com/fungisim/fungisim/kinetics"
	"github.com/fungisim/fungisim/sim"
)

// TGFBParams configures the TGF-β cytokine field.
type TGFBParams struct {
	Diffusivity float64 // µm²/min
	HalfLife    float64 // min

	// SecretionRate is the amount secreted per resting macrophage per
	// tick.
	SecretionRate float64

	// Kd is the dissociation constant (aM) of the activation gate.
	Kd float64
}

// TGFBModule tracks the anti-inflammatory cytokine TGF-β: resting
// macrophages secrete it, and local concentration gates macrophage
// deactivation through Bernoulli draws.
type TGFBModule struct {
	Grid *sparse.DenseArray

	params     TGFBParams
	shared     Shared
	hlMult     float64
	diffuser   *Diffuser
	lap        *jbsparse.CSR
	macrophage *MacrophageModule
}

// NewTGFB wires the module to the macrophage population it modulates.
func NewTGFB(params TGFBParams, shared Shared, l *jbsparse.CSR, macrophage *MacrophageModule) *TGFBModule {
	return &TGFBModule{params: params, shared: shared, lap: l, macrophage: macrophage}
}

// Name implements sim.Module.
func (m *TGFBModule) Name() string { return "tgfb" }

// Initialize allocates the field and precomputes the half-life decay.
func (m *TGFBModule) Initialize(s *sim.State) error {
	m.Grid = newField(s.Grid)
	m.hlMult = halfLifeMultiplier(m.params.HalfLife, s.Step)
	m.diffuser = NewDiffuser(m.lap, m.params.Diffusivity, s.Step, m.shared.Tolerance)
	return nil
}

// Advance runs secretion and activation gating over the macrophage
// population, then decay and diffusion.
func (m *TGFBModule) Advance(s *sim.State, previousTime float64) error {
	h := s.Step / 60
	volume := s.Geo.VoxelVolume

	for _, i := range m.macrophage.Cells.Alive() {
		mc := m.macrophage.Cells.At(i)
		vi := s.Grid.FlatIndex(m.macrophage.Cells.VoxelOf(i))

		switch mc.Status {
		case cell.Resting:
			m.Grid.Elements[vi] += m.params.SecretionRate
			if kinetics.ActivationProbability(m.Grid.Elements[vi], m.params.Kd, h, volume, 1) > s.RNG.Float64() {
				mc.Iteration = 0
			}
		case cell.Apoptotic, cell.Necrotic:
			// no response once the cell is dying
		default:
			if kinetics.ActivationProbability(m.Grid.Elements[vi], m.params.Kd, h, volume, 1) > s.RNG.Float64() {
				mc.Status = cell.Resting
				mc.Iteration = 0
			}
		}
	}

	scaleField(m.Grid, m.hlMult)
	scaleField(m.Grid, m.shared.DecayFactor())
	m.diffuser.Step(m.Grid.Elements)
	return nil
}

// MarshalBinary implements sim.Module.
func (m *TGFBModule) MarshalBinary() ([]byte, error) {
	return encodeFields(map[string]*sparse.DenseArray{"tgfb": m.Grid})
}

// UnmarshalBinary implements sim.Module.
func (m *TGFBModule) UnmarshalBinary(data []byte) error {
	return decodeFields(data, map[string]*sparse.DenseArray{"tgfb": m.Grid})
}
