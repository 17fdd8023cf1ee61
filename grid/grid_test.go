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

package grid

import (
	"fmt"
	"reflect"
	"testing"
)

func TestFlatIndexRoundTrip(t *testing.T) {
	g, err := NewUniform(3, 4, 5, 1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < g.Len(); i++ {
		v := g.VoxelAt(i)
		if !g.IsValid(v) {
			t.Fatalf("voxel %v from index %d is out of bounds", v, i)
		}
		if j := g.FlatIndex(v); j != i {
			t.Errorf("FlatIndex(VoxelAt(%d)) = %d", i, j)
		}
	}
}

func TestFlatIndexOrder(t *testing.T) {
	// x varies fastest, z slowest, matching a (z, y, x) array layout.
	g, err := NewUniform(3, 4, 5, 1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		v    Voxel
		want int
	}{
		{Voxel{0, 0, 0}, 0},
		{Voxel{1, 0, 0}, 1},
		{Voxel{0, 1, 0}, 3},
		{Voxel{0, 0, 1}, 12},
		{Voxel{2, 3, 4}, 59},
	}
	for _, test := range tests {
		if got := g.FlatIndex(test.v); got != test.want {
			t.Errorf("FlatIndex(%v) = %d; want %d", test.v, got, test.want)
		}
	}
}

func TestNeighbors(t *testing.T) {
	g, err := NewUniform(3, 3, 3, 1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		v    Voxel
		c    Connectivity
		want int
	}{
		{Voxel{1, 1, 1}, Faces, 6},
		{Voxel{1, 1, 1}, Edges, 18},
		{Voxel{1, 1, 1}, Corners, 26},
		{Voxel{0, 0, 0}, Faces, 3},
		{Voxel{0, 0, 0}, Corners, 7},
		{Voxel{0, 1, 1}, Faces, 5},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%v-%d", test.v, test.c), func(t *testing.T) {
			nbs := g.Neighbors(test.v, test.c)
			if len(nbs) != test.want {
				t.Errorf("got %d neighbors; want %d", len(nbs), test.want)
			}
			for _, nb := range nbs {
				if !g.IsValid(nb) {
					t.Errorf("neighbor %v out of bounds", nb)
				}
				if nb == test.v {
					t.Errorf("voxel %v is its own neighbor", nb)
				}
			}
		})
	}
}

func TestCenter(t *testing.T) {
	g, err := NewUniform(2, 2, 2, 10, 20, 30)
	if err != nil {
		t.Fatal(err)
	}
	want := Point{X: 5, Y: 10, Z: 15}
	if got := g.Center(Voxel{0, 0, 0}); got != want {
		t.Errorf("Center = %v; want %v", got, want)
	}
	want = Point{X: 15, Y: 30, Z: 45}
	if got := g.Center(Voxel{1, 1, 1}); got != want {
		t.Errorf("Center = %v; want %v", got, want)
	}
}

func TestVoxelOf(t *testing.T) {
	g, err := NewUniform(3, 3, 3, 10, 10, 10)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		p    Point
		want Voxel
	}{
		{Point{5, 5, 5}, Voxel{0, 0, 0}},
		{Point{15, 25, 5}, Voxel{1, 2, 0}},
		{Point{29.9, 29.9, 29.9}, Voxel{2, 2, 2}},
		// Out-of-range positions extrapolate past the boundary.
		{Point{-5, 5, 5}, Voxel{-1, 0, 0}},
		{Point{35, 5, 5}, Voxel{3, 0, 0}},
	}
	for _, test := range tests {
		if got := g.VoxelOf(test.p); got != test.want {
			t.Errorf("VoxelOf(%v) = %v; want %v", test.p, got, test.want)
		}
	}
	for i := 0; i < g.Len(); i++ {
		v := g.VoxelAt(i)
		if got := g.VoxelOf(g.Center(v)); got != v {
			t.Errorf("VoxelOf(Center(%v)) = %v", v, got)
		}
	}
}

func TestWrap(t *testing.T) {
	g, err := NewUniform(3, 4, 5, 1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		v, want Voxel
	}{
		{Voxel{-1, 0, 0}, Voxel{2, 0, 0}},
		{Voxel{3, 0, 0}, Voxel{0, 0, 0}},
		{Voxel{0, -1, 5}, Voxel{0, 3, 0}},
		{Voxel{1, 2, 3}, Voxel{1, 2, 3}},
	}
	for _, test := range tests {
		if got := g.Wrap(test.v); got != test.want {
			t.Errorf("Wrap(%v) = %v; want %v", test.v, got, test.want)
		}
	}
}

func TestNonuniformDelta(t *testing.T) {
	g, err := New(
		[]float64{1, 2, 4},
		[]float64{3, 3},
		[]float64{5},
	)
	if err != nil {
		t.Fatal(err)
	}
	if got := g.Delta(X, Voxel{1, 0, 0}); got != 2 {
		t.Errorf("Delta(X) = %g; want 2", got)
	}
	if got := g.Delta(Y, Voxel{0, 1, 0}); got != 3 {
		t.Errorf("Delta(Y) = %g; want 3", got)
	}
	if got := g.Delta(Z, Voxel{2, 1, 0}); got != 5 {
		t.Errorf("Delta(Z) = %g; want 5", got)
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := NewUniform(0, 3, 3, 1, 1, 1); err == nil {
		t.Error("want error for zero dimension")
	}
	if _, err := NewUniform(3, 3, 3, -1, 1, 1); err == nil {
		t.Error("want error for negative spacing")
	}
	if _, err := New([]float64{1, 0}, []float64{1}, []float64{1}); err == nil {
		t.Error("want error for zero width")
	}
}

func TestNeighborsDoNotAlias(t *testing.T) {
	g, err := NewUniform(3, 3, 3, 1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	a := g.Neighbors(Voxel{1, 1, 1}, Faces)
	b := g.Neighbors(Voxel{1, 1, 1}, Faces)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("neighbor order not stable: %v != %v", a, b)
	}
}
