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

package cell

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/fungisim/fungisim/grid"
)

// Logistic is the saturating attractant weight
//
//	1 − bias·exp(−(x/scale)²)
//
// used to bias movement toward higher field values. With bias in (0,1]
// the weight rises from 1−bias at x = 0 toward 1 as x grows.
func Logistic(x, scale, bias float64) float64 {
	return 1 - bias*math.Exp(-(x/scale)*(x/scale))
}

// chemotaxisOffsets is the fixed iteration order over the 27-voxel
// neighborhood (including the agent's own voxel, which comes first).
// Tie-breaking in the cumulative selection below is positional in this
// order, not random, beyond the single uniform draw per agent.
var chemotaxisOffsets = buildChemotaxisOffsets()

func buildChemotaxisOffsets() [27][3]int {
	var out [27][3]int
	i := 0
	for _, dx := range []int{0, 1, -1} {
		for _, dy := range []int{0, 1, -1} {
			for _, dz := range []int{0, 1, -1} {
				out[i] = [3]int{dx, dy, dz}
				i++
			}
		}
	}
	return out
}

// Chemotaxis samples one gradient-biased move for every living,
// eligible agent, in ascending index order.
//
// attractant is a flat field co-indexed with the grid. Each in-bounds
// candidate voxel for which open returns true is weighted by
// Logistic(attractant, scale, bias); out-of-bounds or closed voxels
// get zero weight. Weights are normalized to a distribution and one
// uniform draw selects the candidate whose cumulative probability
// first reaches it. If every weight is zero the agent stays put.
// A selected agent moves to the chosen voxel's center coordinate and
// its voxel index is refreshed immediately.
func (l *List[A]) Chemotaxis(attractant []float64, scale, bias float64,
	open func(grid.Voxel) bool, eligible func(A) bool, rng *rand.Rand) {

	var weights [27]float64
	for _, i := range l.Alive() {
		a := l.agents[i]
		if eligible != nil && !eligible(a) {
			continue
		}
		draw := rng.Float64()
		vox := l.VoxelOf(i)

		var total float64
		for k, off := range chemotaxisOffsets {
			weights[k] = 0
			nb := grid.Voxel{X: vox.X + off[0], Y: vox.Y + off[1], Z: vox.Z + off[2]}
			if !l.g.IsValid(nb) {
				continue
			}
			if open != nil && !open(nb) {
				continue
			}
			w := Logistic(attractant[l.g.FlatIndex(nb)], scale, bias)
			weights[k] = w
			total += w
		}
		if total <= 0 {
			continue
		}

		var cum float64
		for k, off := range chemotaxisOffsets {
			cum += weights[k] / total
			if draw <= cum {
				nb := grid.Voxel{X: vox.X + off[0], Y: vox.Y + off[1], Z: vox.Z + off[2]}
				l.Relocate(i, l.g.Center(nb))
				break
			}
		}
	}
}

// ChooseVoxel picks one of voxels from a non-normalized weight
// distribution using a single uniform draw. If the weights are
// uniformly zero (e.g. every neighbor is air) it returns def.
func ChooseVoxel(voxels []grid.Voxel, def grid.Voxel, weights []float64, rng *rand.Rand) grid.Voxel {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return def
	}
	draw := rng.Float64()
	var cum float64
	for i, w := range weights {
		cum += w / total
		if draw <= cum {
			return voxels[i]
		}
	}
	// Roundoff can leave cum fractionally below 1.
	return voxels[len(voxels)-1]
}
