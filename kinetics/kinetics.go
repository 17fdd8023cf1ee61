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

/*Package kinetics provides the stateless reaction-rate primitives shared
by all molecule modules.

Quantities are absolute amounts (atto-mol) rather than concentrations;
the voxel volume (L) appears explicitly where a dissociation or
half-saturation constant is a concentration. All primitives guard
division by zero and never return negative values.*/
package kinetics

import "math"

// SaturableRate computes a Michaelis–Menten reaction rate in absolute
// amounts:
//
//	h·kCat·enzyme·substrate / (substrate + kM·volume)
//
// substrate and enzyme are amounts (atto-mol), kM is a concentration
// (aM), h is the reaction time per step, kCat the catalytic constant
// (1/s), and volume the voxel volume (L). A zero denominator yields
// zero rather than NaN.
func SaturableRate(substrate, enzyme, kM, h, volume, kCat float64) float64 {
	den := substrate + kM*volume
	if den == 0 {
		return 0
	}
	return h * kCat * enzyme * substrate / den
}

// TurnoverRate returns the multiplicative decay factor, in [0,1], that
// blends an amount x toward the system level xSystem by exponential
// decay with the given base rate over relBindTime. The result is a
// factor to multiply x by, not the decayed value itself.
//
// When xSystem is zero this is a pure exponential decay factor for any
// positive x. An amount of zero always maps to a factor of zero.
func TurnoverRate(x, xSystem, baseRate, relBindTime float64) float64 {
	if x == 0 {
		return 0
	}
	decay := math.Exp(-baseRate * relBindTime)
	if xSystem == 0 {
		return decay
	}
	f := ((x-xSystem)*decay + xSystem) / x
	return clamp01(f)
}

// ActivationProbability returns a probability-like quantity in [0, h]
// used for Bernoulli draws gating discrete agent-state transitions:
//
//	h·(1 − baseline·exp(−x/(kD·volume)))
//
// x is an amount (atto-mol), kD a dissociation constant (aM), and
// volume the voxel volume (L). A zero kD·volume denominator saturates
// the exponent, giving h·(1 − 0) = h for positive x and 0 for x == 0.
func ActivationProbability(x, kD, h, volume, baseline float64) float64 {
	den := kD * volume
	if den == 0 {
		if x == 0 {
			return math.Max(0, h*(1-baseline))
		}
		return h
	}
	p := h * (1 - baseline*math.Exp(-x/den))
	if p < 0 {
		return 0
	}
	return p
}

// BindingFraction approximates, by a cubic polynomial in the relative
// iron saturation, the equilibrium fraction of newly available iron
// that ends up carrier-bound. iron, unbound, and bound may be in any
// consistent unit. Each carrier contributes two binding sites; bound
// carriers count one iron each. The result is clamped to [0,1] and is
// zero when there are no binding sites or no iron.
func BindingFraction(iron, unbound, bound, p1, p2, p3 float64) float64 {
	totalSites := 2 * (unbound + bound)
	if totalSites == 0 {
		return 0
	}
	totalIron := iron + bound
	if totalIron == 0 {
		return 0
	}
	rel := clamp01(totalIron / totalSites)

	// One root of the cubic sits near 0.99897 and the polynomial goes
	// negative past it, hence the floor at zero.
	f := ((p1*rel+p2)*rel + p3) * rel
	return clamp01(f)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
