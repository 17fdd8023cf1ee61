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
	"reflect"
	"testing"

	"github.com/fungisim/fungisim/grid"
)

type testAgent struct {
	Data
}

func (a *testAgent) CellData() *Data { return &a.Data }

func newTestGrid(t *testing.T) *grid.Grid {
	t.Helper()
	g, err := grid.NewUniform(3, 3, 3, 10, 10, 10)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestListIndexing(t *testing.T) {
	g := newTestGrid(t)
	l := NewList[*testAgent](g)

	a := &testAgent{Data{Point: g.Center(grid.Voxel{X: 0, Y: 0, Z: 0})}}
	b := &testAgent{Data{Point: g.Center(grid.Voxel{X: 1, Y: 1, Z: 1})}}
	c := &testAgent{Data{Point: g.Center(grid.Voxel{X: 1, Y: 1, Z: 1})}}

	ia, ib, ic := l.Append(a), l.Append(b), l.Append(c)
	if l.Len() != 3 {
		t.Fatalf("Len = %d; want 3", l.Len())
	}
	if got := l.InVoxel(grid.Voxel{X: 1, Y: 1, Z: 1}); !reflect.DeepEqual(got, []int{ib, ic}) {
		t.Errorf("InVoxel = %v; want [%d %d]", got, ib, ic)
	}
	if got := l.VoxelOf(ia); got != (grid.Voxel{X: 0, Y: 0, Z: 0}) {
		t.Errorf("VoxelOf(%d) = %v", ia, got)
	}
	if got := l.InVoxel(grid.Voxel{X: -1, Y: 0, Z: 0}); got != nil {
		t.Errorf("InVoxel out of bounds = %v; want nil", got)
	}
}

func TestAliveSkipsTerminal(t *testing.T) {
	g := newTestGrid(t)
	l := NewList[*testAgent](g)
	for i := 0; i < 4; i++ {
		l.Append(&testAgent{Data{Point: g.Center(grid.Voxel{X: 0, Y: 0, Z: 0})}})
	}
	l.At(1).Status = Dead
	l.At(3).Status = Left
	if got := l.Alive(); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("Alive = %v; want [0 2]", got)
	}
	// Dead records keep their index so earlier indices stay valid.
	l.At(2).Status = Apoptotic
	if got := l.Alive(); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("Alive = %v; want [0 2]", got)
	}
}

func TestRelocateReindexesImmediately(t *testing.T) {
	g := newTestGrid(t)
	l := NewList[*testAgent](g)
	from := grid.Voxel{X: 0, Y: 0, Z: 0}
	to := grid.Voxel{X: 2, Y: 1, Z: 0}
	i := l.Append(&testAgent{Data{Point: g.Center(from)}})

	l.Relocate(i, g.Center(to))

	if got := l.VoxelOf(i); got != to {
		t.Errorf("VoxelOf = %v; want %v", got, to)
	}
	if got := l.InVoxel(from); len(got) != 0 {
		t.Errorf("old voxel still lists agent: %v", got)
	}
	if got := l.InVoxel(to); !reflect.DeepEqual(got, []int{i}) {
		t.Errorf("new voxel = %v; want [%d]", got, i)
	}
	if got := l.At(i).Point; got != g.Center(to) {
		t.Errorf("position = %v; want %v", got, g.Center(to))
	}
}

func TestReindexAfterDirectMutation(t *testing.T) {
	g := newTestGrid(t)
	l := NewList[*testAgent](g)
	i := l.Append(&testAgent{Data{Point: g.Center(grid.Voxel{X: 0, Y: 0, Z: 0})}})

	to := grid.Voxel{X: 1, Y: 2, Z: 2}
	l.At(i).Point = g.Center(to)
	l.Reindex()

	if got := l.VoxelOf(i); got != to {
		t.Errorf("VoxelOf = %v; want %v", got, to)
	}
}

func TestLogistic(t *testing.T) {
	// At zero signal the weight is the floor 1 - bias.
	if got := Logistic(0, 1, 0.75); got != 0.25 {
		t.Errorf("Logistic(0) = %g; want 0.25", got)
	}
	// The weight rises monotonically toward 1.
	prev := 0.0
	for x := 0.0; x < 10; x++ {
		w := Logistic(x, 2, 0.9)
		if w <= prev && x > 0 {
			t.Fatalf("weight not increasing at x = %g", x)
		}
		if w < 0 || w > 1 {
			t.Fatalf("weight %g outside [0, 1]", w)
		}
		prev = w
	}
}
