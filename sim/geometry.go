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

package sim

import (
	"fmt"

	"github.com/fungisim/fungisim/grid"
)

// TissueType classifies each voxel of the lung volume.
type TissueType uint8

const (
	Air TissueType = iota
	Blood
	Other
	Epithelium
	Surfactant
	Pore
)

var tissueNames = map[TissueType]string{
	Air: "air", Blood: "blood", Other: "other",
	Epithelium: "epithelium", Surfactant: "surfactant", Pore: "pore",
}

func (t TissueType) String() string {
	if n, ok := tissueNames[t]; ok {
		return n
	}
	return fmt.Sprintf("tissue(%d)", uint8(t))
}

// ParseTissue converts a configuration name into a TissueType.
func ParseTissue(name string) (TissueType, error) {
	for t, n := range tissueNames {
		if n == name {
			return t, nil
		}
	}
	return Air, fmt.Errorf("sim: unknown tissue type %q", name)
}

// Geometry is the immutable tissue description produced by an external
// geometry generator: a tissue type per voxel and the common voxel
// volume.
type Geometry struct {
	// Tissue is flat and co-indexed with the grid.
	Tissue []TissueType

	// VoxelVolume is the volume of one voxel in liters.
	VoxelVolume float64
}

// NewGeometry validates the classification against g and returns the
// geometry.
func NewGeometry(g *grid.Grid, tissue []TissueType, voxelVolume float64) (*Geometry, error) {
	if len(tissue) != g.Len() {
		return nil, fmt.Errorf("sim: %d tissue entries for %d voxels", len(tissue), g.Len())
	}
	if voxelVolume <= 0 {
		return nil, fmt.Errorf("sim: voxel volume must be positive, got %g", voxelVolume)
	}
	for i, t := range tissue {
		if t > Pore {
			return nil, fmt.Errorf("sim: invalid tissue type %d at voxel %d", t, i)
		}
	}
	return &Geometry{Tissue: tissue, VoxelVolume: voxelVolume}, nil
}

// Mask returns the boolean selection of voxels with the given tissue
// type, suitable for building a restricted diffusion operator.
func (geo *Geometry) Mask(t TissueType) []bool {
	m := make([]bool, len(geo.Tissue))
	for i, tt := range geo.Tissue {
		m[i] = tt == t
	}
	return m
}

// MaskNot returns the boolean selection of voxels whose tissue type is
// none of the given types.
func (geo *Geometry) MaskNot(types ...TissueType) []bool {
	m := make([]bool, len(geo.Tissue))
	for i, tt := range geo.Tissue {
		m[i] = true
		for _, t := range types {
			if tt == t {
				m[i] = false
				break
			}
		}
	}
	return m
}

// Open returns a voxel predicate that is true for voxels whose tissue
// type permits occupancy by motile cells.
func (geo *Geometry) Open(g *grid.Grid, types ...TissueType) func(grid.Voxel) bool {
	allowed := make(map[TissueType]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	return func(v grid.Voxel) bool {
		return allowed[geo.Tissue[g.FlatIndex(v)]]
	}
}
