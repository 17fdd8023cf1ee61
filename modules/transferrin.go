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

// TransferrinParams configures the transferrin carrier fields.
type TransferrinParams struct {
	Diffusivity float64 // µm²/min

	// P1, P2, P3 are the cubic coefficients of the equilibrium
	// bound-iron fraction.
	P1, P2, P3 float64

	// SystemTf and SystemTfFe are the systemic amounts per voxel that
	// turnover pulls toward.
	SystemTf   float64
	SystemTfFe float64
}

// TransferrinModule tracks the iron carrier in three forms: apo
// transferrin (Tf), singly loaded (TfFe), and doubly loaded (TfFe2).
// Free iron is captured according to the competitive-binding
// equilibrium approximation.
type TransferrinModule struct {
	Tf    *sparse.DenseArray
	TfFe  *sparse.DenseArray
	TfFe2 *sparse.DenseArray

	params   TransferrinParams
	shared   Shared
	diffuser *Diffuser
	lap      *jbsparse.CSR
	iron     *IronModule
}

// NewTransferrin wires the module to the free iron field it scavenges.
func NewTransferrin(params TransferrinParams, shared Shared, l *jbsparse.CSR, iron *IronModule) *TransferrinModule {
	return &TransferrinModule{params: params, shared: shared, lap: l, iron: iron}
}

// Name implements sim.Module.
func (m *TransferrinModule) Name() string { return "transferrin" }

// Initialize allocates the three fields at their systemic levels and
// assembles diffusion operators.
func (m *TransferrinModule) Initialize(s *sim.State) error {
	m.Tf = newField(s.Grid)
	m.TfFe = newField(s.Grid)
	m.TfFe2 = newField(s.Grid)
	fillField(m.Tf, m.params.SystemTf)
	fillField(m.TfFe, m.params.SystemTfFe)
	m.diffuser = NewDiffuser(m.lap, m.params.Diffusivity, s.Step, m.shared.Tolerance)
	return nil
}

// Advance captures free iron onto carriers, applies turnover toward
// systemic levels, and diffuses each form.
func (m *TransferrinModule) Advance(s *sim.State, previousTime float64) error {
	iron := m.iron.Grid

	for i := range m.Tf.Elements {
		fe := iron.Elements[i]
		if fe <= 0 {
			continue
		}
		frac := kinetics.BindingFraction(fe, m.Tf.Elements[i], m.TfFe.Elements[i],
			m.params.P1, m.params.P2, m.params.P3)
		q := frac * fe
		// Capture is limited by available apo carrier.
		if q > m.Tf.Elements[i] {
			q = m.Tf.Elements[i]
		}
		m.Tf.Elements[i] -= q
		m.TfFe.Elements[i] += q
		iron.Elements[i] -= q
	}

	for i := range m.Tf.Elements {
		m.Tf.Elements[i] *= kinetics.TurnoverRate(m.Tf.Elements[i], m.params.SystemTf,
			m.shared.TurnoverRate, m.shared.RelCytBindUnitT)
		m.TfFe.Elements[i] *= kinetics.TurnoverRate(m.TfFe.Elements[i], m.params.SystemTfFe,
			m.shared.TurnoverRate, m.shared.RelCytBindUnitT)
		m.TfFe2.Elements[i] *= m.shared.DecayFactor()
	}

	m.diffuser.Step(m.Tf.Elements)
	m.diffuser.Step(m.TfFe.Elements)
	m.diffuser.Step(m.TfFe2.Elements)
	return nil
}

// MarshalBinary implements sim.Module.
func (m *TransferrinModule) MarshalBinary() ([]byte, error) {
	return encodeFields(m.fields())
}

// UnmarshalBinary implements sim.Module.
func (m *TransferrinModule) UnmarshalBinary(data []byte) error {
	return decodeFields(data, m.fields())
}

func (m *TransferrinModule) fields() map[string]*sparse.DenseArray {
	return map[string]*sparse.DenseArray{
		"Tf":    m.Tf,
		"TfFe":  m.TfFe,
		"TfFe2": m.TfFe2,
	}
}
