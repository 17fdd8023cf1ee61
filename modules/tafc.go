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

	"github.com/fungisim/fungisim/kinetics"
	"github.com/fungisim/fungisim/sim"
)

// TAFCParams configures the fungal siderophore fields.
type TAFCParams struct {
	Diffusivity float64 // µm²/min

	// KmTfTAFC is the half-saturation constant (aM) for iron transfer
	// from loaded transferrin to TAFC.
	KmTfTAFC float64

	// UptakeFraction of local ferrated siderophore is taken up per
	// fungal cell per tick.
	UptakeFraction float64

	// SecretionRate is the amount secreted per secreting fungal cell
	// per tick.
	SecretionRate float64
}

// TAFCModule tracks triacetylfusarinine C in its apo (TAFC) and
// ferrated (TAFCBI) forms. It strips iron from loaded transferrin,
// captures free iron, and exchanges with the fungal population.
type TAFCModule struct {
	TAFC   *sparse.DenseArray
	TAFCBI *sparse.DenseArray

	params      TAFCParams
	shared      Shared
	diffuser    *Diffuser
	lap         *jbsparse.CSR
	iron        *IronModule
	transferrin *TransferrinModule
	fungus      *FungusModule
}

// NewTAFC wires the module to the iron and transferrin fields it
// strips and the fungal population it serves.
func NewTAFC(params TAFCParams, shared Shared, l *jbsparse.CSR,
	iron *IronModule, transferrin *TransferrinModule, fungus *FungusModule) *TAFCModule {
	return &TAFCModule{
		params: params, shared: shared, lap: l,
		iron: iron, transferrin: transferrin, fungus: fungus,
	}
}

// Name implements sim.Module.
func (m *TAFCModule) Name() string { return "tafc" }

// Initialize allocates the fields and assembles diffusion operators.
func (m *TAFCModule) Initialize(s *sim.State) error {
	m.TAFC = newField(s.Grid)
	m.TAFCBI = newField(s.Grid)
	m.diffuser = NewDiffuser(m.lap, m.params.Diffusivity, s.Step, m.shared.Tolerance)
	return nil
}

// Advance runs the transferrin exchange, free-iron capture, fungal
// exchange, decay, and diffusion.
func (m *TAFCModule) Advance(s *sim.State, previousTime float64) error {
	volume := s.Geo.VoxelVolume
	h := s.Step / 60
	tf := m.transferrin

	// Iron transfer from loaded transferrin to TAFC, Michaelis–Menten
	// in the siderophore.
	for i := range m.TAFC.Elements {
		dfe2 := kinetics.SaturableRate(tf.TfFe2.Elements[i], m.TAFC.Elements[i],
			m.params.KmTfTAFC, h, volume, 1)
		dfe := kinetics.SaturableRate(tf.TfFe.Elements[i], m.TAFC.Elements[i],
			m.params.KmTfTAFC, h, volume, 1)

		// The transfer cannot consume more apo TAFC than exists, so
		// both rates scale down together when their sum exceeds it.
		total := dfe2 + dfe
		if total > 0 {
			rel := m.TAFC.Elements[i] / total
			if rel > 1 {
				rel = 1
			}
			dfe2 *= rel
			dfe *= rel
		}

		// TfFe2 loses an iron and becomes TfFe; TfFe becomes Tf.
		tf.TfFe2.Elements[i] -= dfe2
		tf.TfFe.Elements[i] += dfe2 - dfe
		tf.Tf.Elements[i] += dfe

		// The transferred iron ferrates the siderophore.
		m.TAFC.Elements[i] -= dfe2 + dfe
		m.TAFCBI.Elements[i] += dfe2 + dfe
	}

	// All free iron available to apo TAFC is bound immediately.
	for i := range m.TAFC.Elements {
		q := m.iron.Grid.Elements[i]
		if m.TAFC.Elements[i] < q {
			q = m.TAFC.Elements[i]
		}
		m.TAFC.Elements[i] -= q
		m.TAFCBI.Elements[i] += q
		m.iron.Grid.Elements[i] -= q
	}

	// Fungal exchange: uptake of ferrated siderophore through
	// MirB/EstB, and secretion by synthesizing growth stages.
	for _, i := range m.fungus.Cells.Alive() {
		fc := m.fungus.Cells.At(i)
		if fc.Internalized {
			continue
		}
		vi := s.Grid.FlatIndex(m.fungus.Cells.VoxelOf(i))

		if fc.Network[NetMirB] && fc.Network[NetEstB] {
			q := m.TAFCBI.Elements[vi] * m.params.UptakeFraction
			m.TAFCBI.Elements[vi] -= q
			fc.IronPool += q
		}
		if fc.Network[NetSidA] && fc.Network[NetTAFC] {
			switch fc.Stage {
			case SwellingConidia, GermTube, Hyphae:
				m.TAFC.Elements[vi] += m.params.SecretionRate
			}
		}
	}

	decay := m.shared.DecayFactor()
	scaleField(m.TAFC, decay)
	scaleField(m.TAFCBI, decay)

	m.diffuser.Step(m.TAFC.Elements)
	m.diffuser.Step(m.TAFCBI.Elements)
	return nil
}

// MarshalBinary implements sim.Module.
func (m *TAFCModule) MarshalBinary() ([]byte, error) {
	return encodeFields(m.fields())
}

// UnmarshalBinary implements sim.Module.
func (m *TAFCModule) UnmarshalBinary(data []byte) error {
	return decodeFields(data, m.fields())
}

func (m *TAFCModule) fields() map[string]*sparse.DenseArray {
	return map[string]*sparse.DenseArray{
		"TAFC":   m.TAFC,
		"TAFCBI": m.TAFCBI,
	}
}
