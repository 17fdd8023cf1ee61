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

/*Package mesh defines an unstructured tetrahedral mesh for point-located
concentration fields, with barycentric interpolation and gradients.*/
package mesh

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/fungisim/fungisim/grid"
)

// ErrDegenerate is returned when a geometric query hits a tetrahedron
// whose vertices are (numerically) coplanar, so the 3×3 basis system
// is singular.
var ErrDegenerate = errors.New("mesh: degenerate tetrahedron")

// ErrNotFound is returned when a point lies outside every element.
var ErrNotFound = errors.New("mesh: point not contained in any element")

// Element is a tetrahedron owning exactly four point indices.
type Element [4]int

// TetMesh is an immutable tetrahedral mesh. Concentration fields on the
// mesh are dense arrays co-indexed with Points; DualVolumes holds the
// effective control volume of each point for amount↔concentration
// accounting.
type TetMesh struct {
	// Points are the mesh point coordinates.
	Points []grid.Point

	// Elements maps each tetrahedron to its four point indices.
	Elements []Element

	// DualVolumes holds, per point, the control volume (L) used when
	// converting secreted/taken-up amounts to concentrations.
	DualVolumes []float64

	// bounds[i] is the axis-aligned bounding box of element i,
	// used to reject elements cheaply during point location.
	bounds []box
}

type box struct {
	min, max grid.Point
}

func (b box) contains(p grid.Point) bool {
	return p.X >= b.min.X && p.X <= b.max.X &&
		p.Y >= b.min.Y && p.Y <= b.max.Y &&
		p.Z >= b.min.Z && p.Z <= b.max.Z
}

// New builds a mesh from point coordinates, element→point tables, and
// per-point dual volumes, all typically precomputed by an external
// geometry generator.
func New(points []grid.Point, elements []Element, dualVolumes []float64) (*TetMesh, error) {
	if len(dualVolumes) != len(points) {
		return nil, fmt.Errorf("mesh: %d dual volumes for %d points", len(dualVolumes), len(points))
	}
	for ei, e := range elements {
		for _, pi := range e {
			if pi < 0 || pi >= len(points) {
				return nil, fmt.Errorf("mesh: element %d references point %d of %d", ei, pi, len(points))
			}
		}
	}
	m := &TetMesh{Points: points, Elements: elements, DualVolumes: dualVolumes}
	m.build()
	return m, nil
}

func (m *TetMesh) build() {
	m.bounds = make([]box, len(m.Elements))
	for i, e := range m.Elements {
		b := box{
			min: grid.Point{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
			max: grid.Point{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
		}
		for _, pi := range e {
			p := m.Points[pi]
			b.min.X = math.Min(b.min.X, p.X)
			b.min.Y = math.Min(b.min.Y, p.Y)
			b.min.Z = math.Min(b.min.Z, p.Z)
			b.max.X = math.Max(b.max.X, p.X)
			b.max.Y = math.Max(b.max.Y, p.Y)
			b.max.Z = math.Max(b.max.Z, p.Z)
		}
		m.bounds[i] = b
	}
}

// Len is the number of points in the mesh; fields on the mesh have
// this many entries.
func (m *TetMesh) Len() int { return len(m.Points) }

// barycentricTol absorbs roundoff when testing containment.
const barycentricTol = 1e-12

// Locate returns the index of an element containing p, or ErrNotFound.
// Points on shared faces resolve to the lowest-indexed element.
func (m *TetMesh) Locate(p grid.Point) (int, error) {
	for i := range m.Elements {
		if !m.bounds[i].contains(p) {
			continue
		}
		w, err := m.Barycentric(i, p)
		if err != nil {
			continue // skip degenerate elements during location
		}
		if w[0] >= -barycentricTol && w[1] >= -barycentricTol &&
			w[2] >= -barycentricTol && w[3] >= -barycentricTol {
			return i, nil
		}
	}
	return -1, ErrNotFound
}

// Barycentric returns the tetrahedral proportions of p within element
// ei. For points inside the element the weights are non-negative; they
// always sum to 1. Degenerate elements return ErrDegenerate.
func (m *TetMesh) Barycentric(ei int, p grid.Point) ([4]float64, error) {
	e := m.Elements[ei]
	p0 := m.Points[e[0]]
	a := basisMatrix(p0, m.Points[e[1]], m.Points[e[2]], m.Points[e[3]])
	b := mat.NewVecDense(3, []float64{p.X - p0.X, p.Y - p0.Y, p.Z - p0.Z})

	var w mat.VecDense
	if err := w.SolveVec(a.T(), b); err != nil {
		return [4]float64{}, fmt.Errorf("%w: element %d", ErrDegenerate, ei)
	}
	w1, w2, w3 := w.AtVec(0), w.AtVec(1), w.AtVec(2)
	return [4]float64{1 - w1 - w2 - w3, w1, w2, w3}, nil
}

// Gradient returns the spatial gradient of a linear field given its
// values at the four vertices of element ei. Degenerate elements
// return ErrDegenerate.
func (m *TetMesh) Gradient(ei int, field [4]float64) ([3]float64, error) {
	e := m.Elements[ei]
	p0 := m.Points[e[0]]
	a := basisMatrix(p0, m.Points[e[1]], m.Points[e[2]], m.Points[e[3]])
	b := mat.NewVecDense(3, []float64{
		field[1] - field[0],
		field[2] - field[0],
		field[3] - field[0],
	})

	var df mat.VecDense
	if err := df.SolveVec(a, b); err != nil {
		return [3]float64{}, fmt.Errorf("%w: element %d", ErrDegenerate, ei)
	}
	return [3]float64{df.AtVec(0), df.AtVec(1), df.AtVec(2)}, nil
}

// basisMatrix returns the matrix whose rows are the basis vectors of a
// tetrahedron measured from its first vertex.
func basisMatrix(p0, p1, p2, p3 grid.Point) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		p1.X - p0.X, p1.Y - p0.Y, p1.Z - p0.Z,
		p2.X - p0.X, p2.Y - p0.Y, p2.Z - p0.Z,
		p3.X - p0.X, p3.Y - p0.Y, p3.Z - p0.Z,
	})
}

// Secrete deposits amount (atto-mol) at point p inside element ei,
// distributing it over the element's points by barycentric proportion
// and converting to concentration through each point's dual volume.
func (m *TetMesh) Secrete(field []float64, ei int, p grid.Point, amount float64) error {
	w, err := m.Barycentric(ei, p)
	if err != nil {
		return err
	}
	for k, pi := range m.Elements[ei] {
		field[pi] += w[k] * amount / m.DualVolumes[pi]
	}
	return nil
}

// Uptake removes amount from the points of element ei, weighted by the
// amount currently present at each point so no point is driven
// negative ahead of the others. A zero-valued element is a no-op.
func (m *TetMesh) Uptake(field []float64, ei int, amount float64) {
	e := m.Elements[ei]
	var total float64
	for _, pi := range e {
		total += field[pi]
	}
	if total <= 0 {
		return
	}
	for _, pi := range e {
		field[pi] -= (field[pi] / total) * amount / m.DualVolumes[pi]
		if field[pi] < 0 {
			field[pi] = 0
		}
	}
}

// Interpolate evaluates a point field at p inside element ei by
// barycentric interpolation.
func (m *TetMesh) Interpolate(field []float64, ei int, p grid.Point) (float64, error) {
	w, err := m.Barycentric(ei, p)
	if err != nil {
		return 0, err
	}
	var v float64
	for k, pi := range m.Elements[ei] {
		v += w[k] * field[pi]
	}
	return v, nil
}

// meshGob is the serialized form of a TetMesh.
type meshGob struct {
	Points      []grid.Point
	Elements    []Element
	DualVolumes []float64
}

// MarshalBinary serializes this mesh into a byte array.
func (m *TetMesh) MarshalBinary() ([]byte, error) {
	b := bytes.NewBuffer(nil)
	err := gob.NewEncoder(b).Encode(meshGob{
		Points:      m.Points,
		Elements:    m.Elements,
		DualVolumes: m.DualVolumes,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling mesh: %w", err)
	}
	return b.Bytes(), nil
}

// UnmarshalBinary initializes this mesh from a byte array.
func (m *TetMesh) UnmarshalBinary(data []byte) error {
	var g meshGob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return fmt.Errorf("unmarshalling mesh: %w", err)
	}
	m.Points = g.Points
	m.Elements = g.Elements
	m.DualVolumes = g.DualVolumes
	m.build()
	return nil
}
