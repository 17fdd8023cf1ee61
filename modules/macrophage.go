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
	"bytes"
	"encoding/gob"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/fungisim/fungisim/cell"
	"github.com/fungisim/fungisim/sim"
)

// Regulatory bits carried by each macrophage: iron export (FPN) and
// transferrin enhancement.
const (
	netFPN = iota
	netTF
	macNetworkLen
)

// Macrophage is one alveolar macrophage.
type Macrophage struct {
	cell.Data
	Network [macNetworkLen]bool
}

// CellData implements cell.Agent.
func (m *Macrophage) CellData() *cell.Data { return &m.Data }

// MacrophageParams configures the macrophage population.
type MacrophageParams struct {
	InitNum int

	// UptakeFraction is the fraction of local free iron taken up per
	// gated uptake event.
	UptakeFraction float64

	// TFEnhance scales iron export when the transferrin bit is set.
	TFEnhance float64

	// KmIron is the half-saturation iron amount for the uptake gate.
	KmIron float64

	// DriftScale and DriftBias shape the chemotactic weight function.
	DriftScale float64
	DriftBias  float64

	// RecruitRate is the expected number of macrophages recruited per
	// tick while any fungal cell is alive.
	RecruitRate float64

	// PrPhag is the per-encounter probability of phagocytosing a
	// fungal conidium sharing the macrophage's voxel.
	PrPhag float64

	// MaxDwell bounds the ticks an activated macrophage persists
	// before apoptosis.
	MaxDwell int

	// PrEgress is the per-tick probability that a resting macrophage
	// leaves the tissue once the infection is cleared.
	PrEgress float64
}

// MacrophageModule manages the macrophage population: iron handling,
// phagocytosis, recruitment, the activation state machine, and
// chemotaxis along the iron field.
type MacrophageModule struct {
	Cells  *cell.List[*Macrophage]
	params MacrophageParams

	iron   *IronModule
	fungus *FungusModule
}

// NewMacrophage wires the module to the iron field it chemotaxes on
// and the fungal population it hunts.
func NewMacrophage(params MacrophageParams, iron *IronModule, fungus *FungusModule) *MacrophageModule {
	return &MacrophageModule{params: params, iron: iron, fungus: fungus}
}

// Name implements sim.Module.
func (m *MacrophageModule) Name() string { return "macrophage" }

// Initialize seeds InitNum resting macrophages at shuffled surfactant
// voxels.
func (m *MacrophageModule) Initialize(s *sim.State) error {
	m.Cells = cell.NewList[*Macrophage](s.Grid)

	var open []int
	for i, t := range s.Geo.Tissue {
		if t == sim.Surfactant || t == sim.Epithelium {
			open = append(open, i)
		}
	}
	if len(open) == 0 {
		return nil
	}
	s.RNG.Shuffle(len(open), func(i, j int) { open[i], open[j] = open[j], open[i] })
	for n := 0; n < m.params.InitNum; n++ {
		vi := open[n%len(open)]
		m.Cells.Append(&Macrophage{
			Data: cell.Data{
				Point:  randomPointIn(s, s.Grid.VoxelAt(vi)),
				Status: cell.Resting,
			},
			Network: [macNetworkLen]bool{netFPN: true},
		})
	}
	return nil
}

// Advance runs interaction, the status machine, recruitment, and
// chemotaxis, in that order.
func (m *MacrophageModule) Advance(s *sim.State, previousTime float64) error {
	m.interact(s)
	m.updateStatus(s)
	m.recruit(s)

	open := s.Geo.Open(s.Grid, sim.Surfactant, sim.Blood, sim.Epithelium, sim.Pore)
	m.Cells.Chemotaxis(m.iron.Grid.Elements, m.params.DriftScale, m.params.DriftBias,
		open, func(mc *Macrophage) bool { return mc.Status == cell.Resting }, s.RNG)
	return nil
}

// hillProbability is the uptake gate: a² / (a² + km²).
func hillProbability(amount, km float64) float64 {
	return amount * amount / (amount*amount + km*km)
}

func (m *MacrophageModule) interact(s *sim.State) {
	iron := m.iron.Grid
	for _, i := range m.Cells.Alive() {
		mc := m.Cells.At(i)
		vi := s.Grid.FlatIndex(m.Cells.VoxelOf(i))

		// Gated iron uptake from the local voxel.
		amount := iron.Elements[vi]
		if hillProbability(amount, m.params.KmIron) > s.RNG.Float64() {
			q := m.params.UptakeFraction * amount
			iron.Elements[vi] -= q
			mc.IronPool += q
		}

		// Iron export through ferroportin, enhanced by transferrin.
		if mc.Network[netFPN] {
			rate := m.params.UptakeFraction
			if mc.Network[netTF] {
				rate *= m.params.TFEnhance
			}
			if rate > 1 {
				rate = 1
			}
			q := mc.IronPool * rate
			iron.Elements[vi] += q
			mc.IronPool -= q
		}

		// Phagocytose conidia sharing the voxel, absorbing their iron
		// pools. Hyphae are too large to engulf.
		for _, fi := range m.fungus.Cells.InVoxel(m.Cells.VoxelOf(i)) {
			fc := m.fungus.Cells.At(fi)
			if fc.Status.Terminal() || fc.Internalized || fc.Stage == Hyphae {
				continue
			}
			if m.params.PrPhag > s.RNG.Float64() {
				fc.Internalized = true
				fc.Status = cell.Dead
				mc.IronPool += fc.IronPool
				fc.IronPool = 0
				if mc.Status == cell.Resting {
					mc.Status = cell.Active
					mc.Iteration = 0
				}
			}
		}
	}
}

func (m *MacrophageModule) updateStatus(s *sim.State) {
	infection := len(m.fungus.Cells.Alive()) > 0
	for _, i := range m.Cells.Alive() {
		mc := m.Cells.At(i)
		mc.Iteration++
		switch mc.Status {
		case cell.Resting:
			if !infection && m.params.PrEgress > s.RNG.Float64() {
				mc.Status = cell.Left
			}
		case cell.Active, cell.Secreting, cell.Interacting:
			if mc.Iteration >= m.params.MaxDwell {
				mc.Status = cell.Apoptotic
				mc.Iteration = 0
			}
		case cell.Apoptotic:
			// Apoptotic cells release their iron where they die.
			vi := s.Grid.FlatIndex(m.Cells.VoxelOf(i))
			m.iron.Grid.Elements[vi] += mc.IronPool
			mc.IronPool = 0
			mc.Status = cell.Dead
		}
	}
}

// recruit draws a Poisson number of new resting macrophages while the
// infection persists, placing them at random open voxels.
func (m *MacrophageModule) recruit(s *sim.State) {
	if m.params.RecruitRate <= 0 || len(m.fungus.Cells.Alive()) == 0 {
		return
	}
	n := int(distuv.Poisson{Lambda: m.params.RecruitRate, Src: s.Src}.Rand())
	if n <= 0 {
		return
	}
	var open []int
	for i, t := range s.Geo.Tissue {
		if t == sim.Blood || t == sim.Surfactant {
			open = append(open, i)
		}
	}
	if len(open) == 0 {
		return
	}
	for k := 0; k < n; k++ {
		vi := open[s.RNG.Intn(len(open))]
		m.Cells.Append(&Macrophage{
			Data: cell.Data{
				Point:  randomPointIn(s, s.Grid.VoxelAt(vi)),
				Status: cell.Resting,
			},
			Network: [macNetworkLen]bool{netFPN: true},
		})
	}
}

// macrophageGob is the serialized macrophage population.
type macrophageGob struct {
	Agents []*Macrophage
}

// MarshalBinary implements sim.Module.
func (m *MacrophageModule) MarshalBinary() ([]byte, error) {
	b := bytes.NewBuffer(nil)
	agents := make([]*Macrophage, m.Cells.Len())
	for i := range agents {
		agents[i] = m.Cells.At(i)
	}
	if err := gob.NewEncoder(b).Encode(macrophageGob{Agents: agents}); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// UnmarshalBinary implements sim.Module.
func (m *MacrophageModule) UnmarshalBinary(data []byte) error {
	var g macrophageGob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return err
	}
	replaceAgents(m.Cells, g.Agents)
	return nil
}
