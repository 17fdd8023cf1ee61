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

package diffusion

import (
	"sort"

	"github.com/james-bowman/sparse"
	log "github.com/sirupsen/logrus"
)

// Stats reports what happened during one diffusion step. The step
// always produces a usable field; Stats makes solver trouble and
// clipping corrections observable to callers instead of only logging
// them.
type Stats struct {
	SolveInfo

	// ClippedMass is the total magnitude of negative entries that were
	// clipped to zero after the solve.
	ClippedMass float64
}

// Operators is a precomputed Crank–Nicolson operator pair for a fixed
// Laplacian, diffusivity, and time step, reusable across many ticks.
// It advances a field by solving A·xₙ₊₁ = B·xₙ.
type Operators struct {
	A, B *sparse.CSR
	n    int
}

// Assemble builds the Crank–Nicolson pair
//
//	A = I − (D·dt/2)·L
//	B = I + (D·dt/2)·L
//
// for Laplacian l, diffusivity (µm²/min) and time step dt (min).
// Rebuild only when the mask, diffusivity, or step size changes.
func Assemble(l *sparse.CSR, diffusivity, dt float64) *Operators {
	n, _ := l.Dims()
	c := diffusivity * dt / 2

	// A and B share L's sparsity plus a full diagonal, emitted row by
	// row in ascending column order so repeated assemblies store
	// identical layouts and matrix-vector products sum in the same
	// order every run.
	ia := make([]int, 1, n+1)
	ja := make([]int, 0, l.NNZ()+n)
	aData := make([]float64, 0, l.NNZ()+n)
	bData := make([]float64, 0, l.NNZ()+n)
	entries := make([]rowEntry, 0, 8)

	for i := 0; i < n; i++ {
		entries = entries[:0]
		hasDiag := false
		l.DoRowNonZero(i, func(_, j int, v float64) {
			entries = append(entries, rowEntry{col: j, val: v})
			if j == i {
				hasDiag = true
			}
		})
		if !hasDiag {
			entries = append(entries, rowEntry{col: i})
		}
		sort.Slice(entries, func(a, b int) bool { return entries[a].col < entries[b].col })
		for _, e := range entries {
			av, bv := -c*e.val, c*e.val
			if e.col == i {
				av++
				bv++
			}
			ja = append(ja, e.col)
			aData = append(aData, av)
			bData = append(bData, bv)
		}
		ia = append(ia, len(ja))
	}
	ia2 := append([]int(nil), ia...)
	ja2 := append([]int(nil), ja...)
	return &Operators{
		A: sparse.NewCSR(n, n, ia, ja, aData),
		B: sparse.NewCSR(n, n, ia2, ja2, bData),
		n: n,
	}
}

// Step advances field in place by one time step, solving the implicit
// system by conjugate gradients starting from the current field.
//
// Solver failure is recoverable here: non-convergence or breakdown is
// logged and the best-effort result is still applied, with the outcome
// reported in Stats for the caller to judge. Negative entries are
// clipped to zero and the clipped total is reported.
func (o *Operators) Step(field []float64, tolerance float64) Stats {
	rhs := make([]float64, o.n)
	sparse.MulMatRawVec(o.B, field, rhs)

	x, info := conjGrad(o.A, rhs, field, tolerance, 10*o.n)
	switch {
	case info.Breakdown:
		log.WithField("iterations", info.Iterations).
			Error("cg solver: illegal input or breakdown")
	case !info.Converged:
		log.WithField("iterations", info.Iterations).
			Warn("cg solver: convergence to tolerance not achieved")
	}

	stats := Stats{SolveInfo: info}
	for i, v := range x {
		if v < 0 {
			stats.ClippedMass += -v
			x[i] = 0
		}
	}
	if stats.ClippedMass > 0 {
		log.WithField("clipped", stats.ClippedMass).
			Warn("diffusion produced negative values, clipping")
	}
	copy(field, x)
	return stats
}

// Apply advances field in place by one Crank–Nicolson step of length
// dt with the given Laplacian and diffusivity. It is the one-shot form
// of Assemble followed by Step; prefer the precomputed form when the
// same operators are reused across ticks.
func Apply(field []float64, l *sparse.CSR, diffusivity, dt, tolerance float64) Stats {
	return Assemble(l, diffusivity, dt).Step(field, tolerance)
}
