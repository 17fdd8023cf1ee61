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
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/fungisim/fungisim/kinetics"
	"github.com/fungisim/fungisim/sim"
)

// ErythrocyteParams configures the red blood cell population. The
// population is tracked as per-voxel counts rather than individual
// agents because erythrocytes do not move on their own.
type ErythrocyteParams struct {
	// InitCount is the starting count per blood voxel and the
	// saturation level replenishment relaxes toward.
	InitCount float64

	// ReplenishRate scales the Poisson arrival of fresh cells from
	// circulation.
	ReplenishRate float64

	// HemoglobinPerCell is released when a cell lyses.
	HemoglobinPerCell float64

	// KdHemolysin gates lysis probability on local hemolysin.
	KdHemolysin float64

	// PrPhagocytosis is the chance a macrophage sharing a voxel clears
	// one hemorrhaged cell per tick.
	PrPhagocytosis float64
}

// ErythrocyteModule tracks red blood cells in blood voxels. Fungal
// hemolysin lyses them, releasing hemoglobin; invading hyphae mark a
// voxel as hemorrhaged, after which macrophages clear the cells and
// recover their iron.
type ErythrocyteModule struct {
	Count      *sparse.DenseArray
	Hemorrhage *sparse.DenseArray // nonzero marks a bleeding voxel

	params     ErythrocyteParams
	shared     Shared
	hemoglobin *HemoglobinModule
	hemolysin  *HemolysinModule
	fungus     *FungusModule
	macrophage *MacrophageModule
}

// NewErythrocyte wires the module to the fields and populations it
// exchanges mass with.
func NewErythrocyte(params ErythrocyteParams, shared Shared, hemoglobin *HemoglobinModule, hemolysin *HemolysinModule, fungus *FungusModule, macrophage *MacrophageModule) *ErythrocyteModule {
	return &ErythrocyteModule{
		params:     params,
		shared:     shared,
		hemoglobin: hemoglobin,
		hemolysin:  hemolysin,
		fungus:     fungus,
		macrophage: macrophage,
	}
}

// Name implements sim.Module.
func (m *ErythrocyteModule) Name() string { return "erythrocyte" }

// Initialize fills blood voxels to the saturation count.
func (m *ErythrocyteModule) Initialize(s *sim.State) error {
	m.Count = newField(s.Grid)
	m.Hemorrhage = newField(s.Grid)
	for vi, t := range s.Geo.Tissue {
		if t == sim.Blood {
			m.Count.Elements[vi] = m.params.InitCount
		}
	}
	return nil
}

// Advance runs lysis, hemorrhage marking, macrophage clearance and
// replenishment.
func (m *ErythrocyteModule) Advance(s *sim.State, previousTime float64) error {
	h := s.Step / 60
	volume := s.Geo.VoxelVolume

	// Hyphae breaching a blood voxel cause a hemorrhage that persists.
	for _, i := range m.fungus.Cells.Alive() {
		fc := m.fungus.Cells.At(i)
		if fc.Stage != Hyphae {
			continue
		}
		vi := s.Grid.FlatIndex(m.fungus.Cells.VoxelOf(i))
		if s.Geo.Tissue[vi] == sim.Blood {
			m.Hemorrhage.Elements[vi] = 1
		}
	}

	// Macrophages clear hemorrhaged cells, recovering their iron as
	// hemoglobin-bound pools.
	for _, i := range m.macrophage.Cells.Alive() {
		mc := m.macrophage.Cells.At(i)
		vi := s.Grid.FlatIndex(m.macrophage.Cells.VoxelOf(i))
		if m.Hemorrhage.Elements[vi] == 0 || m.Count.Elements[vi] < 1 {
			continue
		}
		if s.RNG.Float64() < m.params.PrPhagocytosis {
			m.Count.Elements[vi]--
			mc.IronPool += ironsPerHemoglobin * m.params.HemoglobinPerCell
		}
	}

	for vi, t := range s.Geo.Tissue {
		if t != sim.Blood {
			continue
		}
		count := m.Count.Elements[vi]

		// Hemolysin-driven lysis: the lysed count is a Poisson draw
		// around the expected fraction, bounded by the cells present.
		if count > 0 {
			pr := kinetics.ActivationProbability(m.hemolysin.Grid.Elements[vi], m.params.KdHemolysin, h, volume, 1)
			if avg := count * pr; avg > 0 {
				lysed := math.Min(count, distuv.Poisson{Lambda: avg, Src: s.Src}.Rand())
				m.Count.Elements[vi] -= lysed
				m.hemoglobin.Grid.Elements[vi] += lysed * m.params.HemoglobinPerCell
			}
		}

		// Replenishment from circulation slows as the voxel refills and
		// stops entirely while it is hemorrhaging.
		if m.Hemorrhage.Elements[vi] != 0 {
			continue
		}
		deficit := 1 - m.Count.Elements[vi]/m.params.InitCount
		if deficit <= 0 {
			continue
		}
		avg := m.params.ReplenishRate * deficit
		if avg > 0 {
			m.Count.Elements[vi] += distuv.Poisson{Lambda: avg, Src: s.Src}.Rand()
		}
	}
	return nil
}

func (m *ErythrocyteModule) fields() map[string]*sparse.DenseArray {
	return map[string]*sparse.DenseArray{"Count": m.Count, "Hemorrhage": m.Hemorrhage}
}

// MarshalBinary implements sim.Module.
func (m *ErythrocyteModule) MarshalBinary() ([]byte, error) { return encodeFields(m.fields()) }

// UnmarshalBinary implements sim.Module.
func (m *ErythrocyteModule) UnmarshalBinary(data []byte) error { return decodeFields(data, m.fields()) }
