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

/*Package diffusion evolves concentration fields on a masked voxel grid
or mesh with an implicit Crank–Nicolson scheme solved by conjugate
gradients.*/
package diffusion

import (
	"fmt"
	"sort"

	"github.com/james-bowman/sparse"

	"github.com/fungisim/fungisim/grid"
)

// rowEntry is one column of an operator row under assembly.
type rowEntry struct {
	col int
	val float64
}

// appendRow emits one row's entries onto a CSR triple in ascending
// column order, summing duplicate columns. A fixed storage order keeps
// the floating-point summation order of every matrix-vector product
// identical between builds, so equally seeded runs replay exactly.
func appendRow(ja *[]int, data *[]float64, entries []rowEntry) {
	sort.Slice(entries, func(a, b int) bool { return entries[a].col < entries[b].col })
	for k := 0; k < len(entries); {
		col, val := entries[k].col, entries[k].val
		for k++; k < len(entries) && entries[k].col == col; k++ {
			val += entries[k].val
		}
		*ja = append(*ja, col)
		*data = append(*data, val)
	}
}

// Laplacian returns a discrete Laplacian operator for the given
// restricted grid.
//
// This computes a standard graph Laplacian as a sparse matrix, except it
// is restricted to a voxel mask. The use case is surface diffusion on a
// gridded variable: the mask is generated from a category of the tissue
// classification, e.g. the epithelial surface. Neighbors outside the
// mask are skipped, giving absorbing boundaries at the mask edge.
//
// The edge weight between masked face-adjacent voxels is the inverse of
// the squared physical displacement, with the per-axis deltas
// accumulated before inversion (units: 1/µm²). Rows of unmasked voxels
// are left empty. Each diagonal entry is the negative sum of its row's
// off-diagonal weights, so every active row sums to zero.
func Laplacian(g *grid.Grid, mask []bool) (*sparse.CSR, error) {
	if len(mask) != g.Len() {
		return nil, fmt.Errorf("diffusion: mask length %d does not match grid size %d", len(mask), g.Len())
	}
	n := g.Len()
	ia := make([]int, 1, n+1)
	ja := make([]int, 0, 7*n)
	data := make([]float64, 0, 7*n)
	entries := make([]rowEntry, 0, 7)

	for i := 0; i < n; i++ {
		if mask[i] {
			entries = entries[:0]
			diag := 0.0
			v := g.VoxelAt(i)
			for _, nb := range g.Neighbors(v, grid.Faces) {
				j := g.FlatIndex(nb)
				if !mask[j] {
					continue
				}
				dx := g.Delta(grid.X, v) * float64(v.X-nb.X)
				dy := g.Delta(grid.Y, v) * float64(v.Y-nb.Y)
				dz := g.Delta(grid.Z, v) * float64(v.Z-nb.Z)
				w := 1 / (dx*dx + dy*dy + dz*dz)

				diag -= w
				entries = append(entries, rowEntry{col: j, val: w})
			}
			entries = append(entries, rowEntry{col: i, val: diag})
			appendRow(&ja, &data, entries)
		}
		ia = append(ia, len(ja))
	}
	return sparse.NewCSR(n, n, ia, ja, data), nil
}

// periodicOffsets are the six face-neighbor displacements used by the
// periodic builder, in fixed (±x, ±y, ±z) order.
var periodicOffsets = [6][3]int{
	{-1, 0, 0}, {1, 0, 0},
	{0, -1, 0}, {0, 1, 0},
	{0, 0, -1}, {0, 0, 1},
}

// PeriodicLaplacian returns a masked discrete Laplacian with periodic
// boundary conditions: neighbor coordinates wrap modulo each axis
// extent. Wrapped neighbors outside the mask are still skipped.
func PeriodicLaplacian(g *grid.Grid, mask []bool) (*sparse.CSR, error) {
	if len(mask) != g.Len() {
		return nil, fmt.Errorf("diffusion: mask length %d does not match grid size %d", len(mask), g.Len())
	}
	n := g.Len()
	ia := make([]int, 1, n+1)
	ja := make([]int, 0, 7*n)
	data := make([]float64, 0, 7*n)
	entries := make([]rowEntry, 0, 7)

	for i := 0; i < n; i++ {
		if mask[i] {
			entries = entries[:0]
			diag := 0.0
			v := g.VoxelAt(i)
			for _, off := range periodicOffsets {
				nb := g.Wrap(grid.Voxel{X: v.X + off[0], Y: v.Y + off[1], Z: v.Z + off[2]})
				j := g.FlatIndex(nb)
				if !mask[j] {
					continue
				}
				// Displacements use the local spacing and the unwrapped
				// offset, so a wrapped edge has the same weight as an
				// interior edge.
				dx := g.Delta(grid.X, v) * float64(off[0])
				dy := g.Delta(grid.Y, v) * float64(off[1])
				dz := g.Delta(grid.Z, v) * float64(off[2])
				w := 1 / (dx*dx + dy*dy + dz*dz)

				diag -= w
				entries = append(entries, rowEntry{col: j, val: w})
			}
			entries = append(entries, rowEntry{col: i, val: diag})
			appendRow(&ja, &data, entries)
		}
		ia = append(ia, len(ja))
	}
	return sparse.NewCSR(n, n, ia, ja, data), nil
}
