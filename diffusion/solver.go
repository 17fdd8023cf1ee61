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
	"math"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/floats"
)

// DefaultTolerance is the default absolute residual bound for the
// conjugate-gradient solve.
const DefaultTolerance = 1e-10

// SolveInfo reports the outcome of a conjugate-gradient solve.
// Both failure modes are recoverable by design: the best-effort
// solution is still returned and used, and callers validate downstream.
type SolveInfo struct {
	// Iterations is the number of iterations performed.
	Iterations int

	// Converged is true when the residual norm reached the tolerance
	// within the iteration cap.
	Converged bool

	// Breakdown is true when the iteration hit an illegal value
	// (zero or non-finite curvature), indicating bad solver input.
	Breakdown bool
}

// conjGrad solves a x = b for symmetric positive-definite a, starting
// from x0, stopping when the 2-norm of the residual drops below tol or
// after maxIter iterations. It returns the best-effort solution even
// when it did not converge.
func conjGrad(a *sparse.CSR, b, x0 []float64, tol float64, maxIter int) ([]float64, SolveInfo) {
	n := len(b)
	x := make([]float64, n)
	copy(x, x0)

	r := make([]float64, n)  // residual b - a·x
	p := make([]float64, n)  // search direction
	ap := make([]float64, n) // a·p

	sparse.MulMatRawVec(a, x, r)
	floats.Scale(-1, r)
	floats.Add(r, b)
	copy(p, r)

	rs := floats.Dot(r, r)
	if math.Sqrt(rs) < tol {
		return x, SolveInfo{Converged: true}
	}

	var info SolveInfo
	for k := 0; k < maxIter; k++ {
		info.Iterations = k + 1

		// MulMatRawVec accumulates into its output, so ap must be
		// zeroed before each product.
		for i := range ap {
			ap[i] = 0
		}
		sparse.MulMatRawVec(a, p, ap)
		den := floats.Dot(p, ap)
		if den == 0 || math.IsNaN(den) || math.IsInf(den, 0) {
			info.Breakdown = true
			return x, info
		}
		alpha := rs / den
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, ap)

		rsNext := floats.Dot(r, r)
		if math.IsNaN(rsNext) {
			info.Breakdown = true
			return x, info
		}
		if math.Sqrt(rsNext) < tol {
			info.Converged = true
			return x, info
		}

		beta := rsNext / rs
		for i := range p {
			p[i] = r[i] + beta*p[i]
		}
		rs = rsNext
	}
	return x, info
}
