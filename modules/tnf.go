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
	"math"

	"github.com/ctessum/sparse"
	jbsparse "github.com/james-bowman/sparse"

	"github.com/fungisim/fungisim/cell"
	"github.com/fungisim/fungisim/kinetics"
	"github.com/fungisim/fungisim/sim"
)

// TNFParams configures the TNF-α field and its neutralizing antibody.
type TNFParams struct {
	Diffusivity float64 // µm²/min
	HalfLife    float64 // min

	// SecretionRate is the amount secreted per active macrophage per
	// tick.
	SecretionRate float64

	// Kd is the dissociation constant (aM) of the activation gate.
	Kd float64

	// AntiTNFa neutralization kinetics.
	ReactionKm   float64
	ReactionKCat float64

	// SystemAntiTNFa is the body-wide antibody concentration the local
	// field relaxes toward. SystemHalfLife decays both toward zero on
	// the systemic time scale.
	SystemAntiTNFa float64
	SystemHalfLife float64 // min
}

// TNFModule tracks TNF-α, the pro-inflammatory cytokine secreted by
// activated macrophages, together with an optional anti-TNF-α antibody
// field that neutralizes it.
type TNFModule struct {
	TNFa     *sparse.DenseArray
	AntiTNFa *sparse.DenseArray

	params     TNFParams
	shared     Shared
	hlMult     float64
	sysMult    float64
	diffuser   *Diffuser
	lap        *jbsparse.CSR
	macrophage *MacrophageModule
}

// NewTNF wires the module to the macrophage population.
func NewTNF(params TNFParams, shared Shared, l *jbsparse.CSR, macrophage *MacrophageModule) *TNFModule {
	return &TNFModule{params: params, shared: shared, lap: l, macrophage: macrophage}
}

// Name implements sim.Module.
func (m *TNFModule) Name() string { return "tnfa" }

// Initialize allocates the fields and seeds the systemic antibody
// level.
func (m *TNFModule) Initialize(s *sim.State) error {
	m.TNFa = newField(s.Grid)
	m.AntiTNFa = newField(s.Grid)
	fillField(m.AntiTNFa, m.params.SystemAntiTNFa)
	m.hlMult = halfLifeMultiplier(m.params.HalfLife, s.Step)
	m.sysMult = halfLifeMultiplier(m.params.SystemHalfLife, s.Step)
	m.diffuser = NewDiffuser(m.lap, m.params.Diffusivity, s.Step, m.shared.Tolerance)
	return nil
}

// Advance runs secretion, activation gating, antibody neutralization,
// decay and diffusion.
func (m *TNFModule) Advance(s *sim.State, previousTime float64) error {
	h := s.Step / 60
	volume := s.Geo.VoxelVolume

	for _, i := range m.macrophage.Cells.Alive() {
		mc := m.macrophage.Cells.At(i)
		vi := s.Grid.FlatIndex(m.macrophage.Cells.VoxelOf(i))

		switch mc.Status {
		case cell.Active, cell.Secreting:
			m.TNFa.Elements[vi] += m.params.SecretionRate
		}
		switch mc.Status {
		case cell.Apoptotic, cell.Necrotic:
		default:
			if kinetics.ActivationProbability(m.TNFa.Elements[vi], m.params.Kd, h, volume, 1) > s.RNG.Float64() {
				if mc.Status == cell.Resting {
					mc.Status = cell.Active
				}
				mc.Iteration = 0
			}
		}
	}

	// Antibody neutralization. Both reactants are consumed one to one,
	// so the reacted amount cannot exceed either side.
	for vi := range m.TNFa.Elements {
		tnfa := m.TNFa.Elements[vi]
		anti := m.AntiTNFa.Elements[vi]
		if tnfa <= 0 || anti <= 0 {
			continue
		}
		reacted := kinetics.SaturableRate(tnfa, anti, m.params.ReactionKm, h, volume, m.params.ReactionKCat)
		reacted = math.Min(reacted, math.Min(tnfa, anti))
		m.TNFa.Elements[vi] -= reacted
		m.AntiTNFa.Elements[vi] -= reacted
	}

	scaleField(m.TNFa, m.hlMult)
	scaleField(m.TNFa, m.shared.DecayFactor())
	scaleField(m.AntiTNFa, m.sysMult)
	m.diffuser.Step(m.TNFa.Elements)
	m.diffuser.Step(m.AntiTNFa.Elements)
	return nil
}

func (m *TNFModule) fields() map[string]*sparse.DenseArray {
	return map[string]*sparse.DenseArray{"TNFa": m.TNFa, "AntiTNFa": m.AntiTNFa}
}

// MarshalBinary implements sim.Module.
func (m *TNFModule) MarshalBinary() ([]byte, error) { return encodeFields(m.fields()) }

// UnmarshalBinary implements sim.Module.
func (m *TNFModule) UnmarshalBinary(data []byte) error { return decodeFields(data, m.fields()) }
