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

/*Package grid defines a rectangular voxel grid over a 3D tissue volume.*/
package grid

import (
	"fmt"
	"math"
)

// Axis identifies one of the three spatial axes.
type Axis int

// The three spatial axes. Z is the slowest-varying axis in the
// flattened index, X the fastest, matching a (z,y,x)-shaped array.
const (
	Z Axis = iota
	Y
	X
)

// Connectivity selects which voxels count as adjacent in neighbor queries.
type Connectivity int

const (
	// Faces is 6-connectivity: voxels sharing a face.
	Faces Connectivity = iota
	// Edges is 18-connectivity: voxels sharing a face or an edge.
	Edges
	// Corners is 26-connectivity: voxels sharing a face, edge, or corner.
	Corners
)

// Voxel is a single grid cell identified by integer coordinates.
type Voxel struct {
	X, Y, Z int
}

// Point is a location in continuous space, in the same physical units
// as the grid spacing (µm).
type Point struct {
	X, Y, Z float64
}

// Add returns the sum of two points.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y, Z: p.Z + q.Z}
}

// Grid is a rectangular grid of voxels with per-axis spacing.
// Spacing may be non-uniform: each axis carries one physical width
// per voxel along that axis.
type Grid struct {
	// Nx, Ny, Nz are the voxel extents along each axis.
	Nx, Ny, Nz int

	// DX, DY, DZ hold the physical width of each voxel along the
	// corresponding axis, indexed by the voxel coordinate on that axis.
	DX, DY, DZ []float64

	// xc, yc, zc are voxel center coordinates, derived from the spacing.
	xc, yc, zc []float64
}

// NewUniform returns a grid of nx×ny×nz voxels with constant spacing
// dx, dy, dz along each axis.
func NewUniform(nx, ny, nz int, dx, dy, dz float64) (*Grid, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("grid: extents must be positive, got (%d,%d,%d)", nx, ny, nz)
	}
	if dx <= 0 || dy <= 0 || dz <= 0 {
		return nil, fmt.Errorf("grid: spacing must be positive, got (%g,%g,%g)", dx, dy, dz)
	}
	g := &Grid{
		Nx: nx, Ny: ny, Nz: nz,
		DX: constSlice(nx, dx),
		DY: constSlice(ny, dy),
		DZ: constSlice(nz, dz),
	}
	g.buildCenters()
	return g, nil
}

// New returns a grid with the given per-axis voxel widths. The extents
// are taken from the lengths of the spacing slices.
func New(dx, dy, dz []float64) (*Grid, error) {
	if len(dx) == 0 || len(dy) == 0 || len(dz) == 0 {
		return nil, fmt.Errorf("grid: empty spacing on at least one axis")
	}
	for _, s := range [][]float64{dx, dy, dz} {
		for _, d := range s {
			if d <= 0 {
				return nil, fmt.Errorf("grid: non-positive spacing %g", d)
			}
		}
	}
	g := &Grid{
		Nx: len(dx), Ny: len(dy), Nz: len(dz),
		DX: dx, DY: dy, DZ: dz,
	}
	g.buildCenters()
	return g, nil
}

func constSlice(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func (g *Grid) buildCenters() {
	g.xc = centers(g.DX)
	g.yc = centers(g.DY)
	g.zc = centers(g.DZ)
}

// centers accumulates voxel widths into center coordinates.
func centers(d []float64) []float64 {
	c := make([]float64, len(d))
	var edge float64
	for i, w := range d {
		c[i] = edge + w/2
		edge += w
	}
	return c
}

// Len is the total number of voxels in the grid.
func (g *Grid) Len() int { return g.Nx * g.Ny * g.Nz }

// Shape returns the grid extents in (z, y, x) order.
func (g *Grid) Shape() (nz, ny, nx int) { return g.Nz, g.Ny, g.Nx }

// IsValid reports whether v is within the grid bounds.
func (g *Grid) IsValid(v Voxel) bool {
	return v.X >= 0 && v.X < g.Nx &&
		v.Y >= 0 && v.Y < g.Ny &&
		v.Z >= 0 && v.Z < g.Nz
}

// FlatIndex returns the flattened scalar index of v. It is the
// two-sided inverse of VoxelAt over the full voxel range.
func (g *Grid) FlatIndex(v Voxel) int {
	return (v.Z*g.Ny+v.Y)*g.Nx + v.X
}

// VoxelAt returns the voxel with flattened index i.
func (g *Grid) VoxelAt(i int) Voxel {
	x := i % g.Nx
	y := (i / g.Nx) % g.Ny
	z := i / (g.Nx * g.Ny)
	return Voxel{X: x, Y: y, Z: z}
}

// Delta returns the local physical spacing along the given axis at v.
func (g *Grid) Delta(a Axis, v Voxel) float64 {
	switch a {
	case X:
		return g.DX[v.X]
	case Y:
		return g.DY[v.Y]
	case Z:
		return g.DZ[v.Z]
	}
	panic(fmt.Sprintf("grid: unknown axis %d", a))
}

// Center returns the physical coordinates of the center of v.
func (g *Grid) Center(v Voxel) Point {
	return Point{X: g.xc[v.X], Y: g.yc[v.Y], Z: g.zc[v.Z]}
}

// VoxelOf returns the voxel containing the point p. The result may be
// out of bounds if p lies outside the grid; check with IsValid.
func (g *Grid) VoxelOf(p Point) Voxel {
	return Voxel{
		X: locate(g.xc, g.DX, p.X),
		Y: locate(g.yc, g.DY, p.Y),
		Z: locate(g.zc, g.DZ, p.Z),
	}
}

// locate finds the voxel index on one axis containing coordinate c.
func locate(centers, widths []float64, c float64) int {
	if c < 0 {
		return int(math.Floor(c / widths[0]))
	}
	var edge float64
	for i, w := range widths {
		edge += w
		if c < edge {
			return i
		}
	}
	// Beyond the last edge: extrapolate with the last width so callers
	// can distinguish how far out of bounds the point is.
	last := widths[len(widths)-1]
	return len(widths) + int(math.Floor((c-edge)/last))
}

// neighborOffsets enumerates the 26 neighbor offsets in a fixed order:
// face-adjacent first, then edge-adjacent, then corner-adjacent.
var neighborOffsets = buildOffsets()

func buildOffsets() [][3]int {
	var faces, edges, corners [][3]int
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				n := abs(dx) + abs(dy) + abs(dz)
				switch n {
				case 1:
					faces = append(faces, [3]int{dx, dy, dz})
				case 2:
					edges = append(edges, [3]int{dx, dy, dz})
				case 3:
					corners = append(corners, [3]int{dx, dy, dz})
				}
			}
		}
	}
	return append(append(faces, edges...), corners...)
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

// Neighbors returns the voxels adjacent to v that lie within the grid
// bounds, using the requested connectivity. The result order is fixed:
// face neighbors, then edge neighbors, then corner neighbors.
func (g *Grid) Neighbors(v Voxel, c Connectivity) []Voxel {
	n := 6
	switch c {
	case Edges:
		n = 18
	case Corners:
		n = 26
	}
	out := make([]Voxel, 0, n)
	for _, off := range neighborOffsets[:n] {
		nb := Voxel{X: v.X + off[0], Y: v.Y + off[1], Z: v.Z + off[2]}
		if g.IsValid(nb) {
			out = append(out, nb)
		}
	}
	return out
}

// Wrap returns the voxel v with each coordinate wrapped modulo the
// grid extent on its axis, for periodic boundary handling.
func (g *Grid) Wrap(v Voxel) Voxel {
	return Voxel{
		X: mod(v.X, g.Nx),
		Y: mod(v.Y, g.Ny),
		Z: mod(v.Z, g.Nz),
	}
}

func mod(i, n int) int {
	m := i % n
	if m < 0 {
		m += n
	}
	return m
}
