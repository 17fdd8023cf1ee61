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

/*Package modules implements the molecule and cell modules of the
host-pathogen simulation on top of the diffusion, kinetics, and cell
engines. Molecule modules are data-driven: each is configured from a
small parameter set over the shared kinetics primitives rather than
carrying bespoke rate laws.*/
package modules

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"

	"github.com/ctessum/sparse"
	jbsparse "github.com/james-bowman/sparse"

	"github.com/fungisim/fungisim/diffusion"
	"github.com/fungisim/fungisim/grid"
	"github.com/fungisim/fungisim/kinetics"
)

// Shared carries the molecule parameters common to every species:
// the baseline turnover toward system levels and the relative
// cytokine-binding time unit, plus the solver tolerance.
type Shared struct {
	TurnoverRate    float64 // 1/min
	RelCytBindUnitT float64 // min
	Tolerance       float64
}

// DecayFactor is the per-tick multiplicative decay of a species with
// no systemic supply.
func (sh Shared) DecayFactor() float64 {
	return kinetics.TurnoverRate(1, 0, sh.TurnoverRate, sh.RelCytBindUnitT)
}

// newField allocates a zero concentration field co-indexed with g,
// shaped (z,y,x).
func newField(g *grid.Grid) *sparse.DenseArray {
	nz, ny, nx := g.Shape()
	return sparse.ZerosDense(nz, ny, nx)
}

// scaleField multiplies every entry of a in place.
func scaleField(a *sparse.DenseArray, f float64) {
	for i, v := range a.Elements {
		a.Elements[i] = v * f
	}
}

// fillField sets every entry of a to v.
func fillField(a *sparse.DenseArray, v float64) {
	for i := range a.Elements {
		a.Elements[i] = v
	}
}

// halfLifeMultiplier converts a species half-life into the per-tick
// multiplicative decay used by the molecule modules.
func halfLifeMultiplier(halfLife, step float64) float64 {
	if halfLife <= 0 {
		return 1
	}
	return 1 + math.Log(0.5)/(halfLife/step)
}

// Diffuser owns the precomputed Crank–Nicolson operator pair for one
// species on one mask, reused across every tick.
type Diffuser struct {
	ops *diffusion.Operators
	tol float64
}

// NewDiffuser assembles operators for the given Laplacian, diffusivity
// (µm²/min), and tick length dt (min).
func NewDiffuser(l *jbsparse.CSR, diffusivity, dt, tolerance float64) *Diffuser {
	if tolerance <= 0 {
		tolerance = diffusion.DefaultTolerance
	}
	return &Diffuser{ops: diffusion.Assemble(l, diffusivity, dt), tol: tolerance}
}

// Step advances the field by one tick and returns the solver stats.
func (d *Diffuser) Step(field []float64) diffusion.Stats {
	return d.ops.Step(field, d.tol)
}

// fieldGob is the serialized form of one concentration field.
type fieldGob struct {
	Shape    []int
	Elements []float64
}

func encodeFields(fields map[string]*sparse.DenseArray) ([]byte, error) {
	out := make(map[string]fieldGob, len(fields))
	for name, a := range fields {
		out[name] = fieldGob{Shape: a.Shape, Elements: a.Elements}
	}
	b := bytes.NewBuffer(nil)
	if err := gob.NewEncoder(b).Encode(out); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func decodeFields(data []byte, fields map[string]*sparse.DenseArray) error {
	var in map[string]fieldGob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&in); err != nil {
		return err
	}
	for name, a := range fields {
		fg, ok := in[name]
		if !ok {
			return fmt.Errorf("modules: field %q missing from snapshot", name)
		}
		if len(fg.Elements) != len(a.Elements) {
			return fmt.Errorf("modules: field %q has %d entries, want %d", name, len(fg.Elements), len(a.Elements))
		}
		copy(a.Elements, fg.Elements)
	}
	return nil
}
