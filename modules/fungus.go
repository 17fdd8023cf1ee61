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

	"github.com/fungisim/fungisim/cell"
	"github.com/fungisim/fungisim/grid"
	"github.com/fungisim/fungisim/sim"
)

// FungalStage is the growth stage of one fungal cell. It is separate
// from the life-cycle Status: the status says whether the cell is
// alive, the stage what it has grown into.
type FungalStage uint8

const (
	RestingConidia FungalStage = iota
	SwellingConidia
	GermTube
	Hyphae
	Dying
)

// Boolean regulatory network bits carried by each fungal cell.
const (
	NetMirB = iota // siderophore transporter
	NetEstB        // siderophore esterase
	NetSidA        // siderophore biosynthesis pathway
	NetTAFC        // siderophore synthesis switch
	networkLen
)

// Fungus is one Aspergillus fumigatus cell.
type Fungus struct {
	cell.Data
	Stage   FungalStage
	Network [networkLen]bool

	// Internalized is set when a phagocyte has engulfed this cell;
	// internalized conidia neither secrete nor take up siderophore.
	Internalized bool
}

// CellData implements cell.Agent.
func (f *Fungus) CellData() *cell.Data { return &f.Data }

// FungusParams configures the fungal population.
type FungusParams struct {
	InitNum int

	// PrSwell is the per-tick probability that a resting conidium
	// begins swelling.
	PrSwell float64

	// SwellDwell and GermDwell are the ticks spent swelling and as a
	// germ tube before progressing.
	SwellDwell int
	GermDwell  int

	// IronThreshold is the iron pool a hypha needs per tick to stay
	// healthy; starving hyphae start dying.
	IronThreshold float64

	// IronUse is the iron consumed from the pool per tick of hyphal
	// growth.
	IronUse float64
}

// FungusModule manages the fungal population: conidial germination,
// hyphal growth, iron starvation, and death.
type FungusModule struct {
	Cells  *cell.List[*Fungus]
	params FungusParams
}

// NewFungus returns an unpopulated fungal module.
func NewFungus(params FungusParams) *FungusModule {
	return &FungusModule{params: params}
}

// Name implements sim.Module.
func (f *FungusModule) Name() string { return "afumigatus" }

// Initialize seeds InitNum resting conidia at uniformly random
// positions within epithelial voxels.
func (f *FungusModule) Initialize(s *sim.State) error {
	f.Cells = cell.NewList[*Fungus](s.Grid)

	epithelium := make([]int, 0)
	for i, t := range s.Geo.Tissue {
		if t == sim.Epithelium {
			epithelium = append(epithelium, i)
		}
	}
	if len(epithelium) == 0 {
		return nil
	}
	for n := 0; n < f.params.InitNum; n++ {
		vi := epithelium[s.RNG.Intn(len(epithelium))]
		f.Cells.Append(&Fungus{
			Data: cell.Data{
				Point:  randomPointIn(s, s.Grid.VoxelAt(vi)),
				Status: cell.Resting,
			},
			Stage:   RestingConidia,
			Network: [networkLen]bool{NetMirB: true, NetEstB: true, NetSidA: true, NetTAFC: true},
		})
	}
	return nil
}

// randomPointIn returns a uniform random point inside voxel v.
func randomPointIn(s *sim.State, v grid.Voxel) grid.Point {
	c := s.Grid.Center(v)
	return grid.Point{
		X: c.X + (s.RNG.Float64()-0.5)*s.Grid.Delta(grid.X, v),
		Y: c.Y + (s.RNG.Float64()-0.5)*s.Grid.Delta(grid.Y, v),
		Z: c.Z + (s.RNG.Float64()-0.5)*s.Grid.Delta(grid.Z, v),
	}
}

// Advance steps every living fungal cell through the growth machine in
// ascending index order.
func (f *FungusModule) Advance(s *sim.State, previousTime float64) error {
	for _, i := range f.Cells.Alive() {
		fc := f.Cells.At(i)
		fc.Iteration++

		switch fc.Stage {
		case RestingConidia:
			if !fc.Internalized && f.params.PrSwell > s.RNG.Float64() {
				fc.Stage = SwellingConidia
				fc.Iteration = 0
			}
		case SwellingConidia:
			if fc.Iteration >= f.params.SwellDwell {
				fc.Stage = GermTube
				fc.Iteration = 0
			}
		case GermTube:
			if fc.Iteration >= f.params.GermDwell {
				fc.Stage = Hyphae
				fc.Iteration = 0
				fc.Status = cell.Active
			}
		case Hyphae:
			// Hyphal maintenance burns iron; starvation kills.
			if fc.IronPool >= f.params.IronUse {
				fc.IronPool -= f.params.IronUse
			}
			if fc.IronPool < f.params.IronThreshold {
				fc.Stage = Dying
				fc.Iteration = 0
			}
		case Dying:
			fc.Status = cell.Dead
		}
	}
	return nil
}

// fungusGob is the serialized fungal population.
type fungusGob struct {
	Agents []*Fungus
}

// MarshalBinary implements sim.Module.
func (f *FungusModule) MarshalBinary() ([]byte, error) {
	b := bytes.NewBuffer(nil)
	agents := make([]*Fungus, f.Cells.Len())
	for i := range agents {
		agents[i] = f.Cells.At(i)
	}
	if err := gob.NewEncoder(b).Encode(fungusGob{Agents: agents}); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// UnmarshalBinary implements sim.Module.
func (f *FungusModule) UnmarshalBinary(data []byte) error {
	var g fungusGob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return err
	}
	replaceAgents(f.Cells, g.Agents)
	return nil
}

// replaceAgents swaps a population's contents for the given agents and
// rebuilds the voxel index.
func replaceAgents[A cell.Agent](l *cell.List[A], agents []A) {
	*l = *cell.NewList[A](l.Grid())
	for _, a := range agents {
		l.Append(a)
	}
}
