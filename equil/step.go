// SPDX-License-Identifier: MIT

package equil

import (
	"math"

	"github.com/katalvlaran/equilib/chem"
)

// Growth limits for one descent step. The exponential target is exact only
// for an isolated ideal species, so large predicted moves are clipped and
// re-approached on the next outer iteration.
const (
	maxGrowFactor   = 1.0  // dn may at most double a mole number
	maxShrinkFactor = 0.8  // dn may remove at most 80% of a mole number
	componentMargin = 0.9999
)

// DescentStepper is the default Stepper: damped successive substitution on
// each formation reaction. A non-component species at mole number n with
// reaction Gibbs energy dg is pulled toward n·exp(−dg), the ideal-solution
// fixed point; component moles follow through the stoichiometry. Steps are
// damped so no component crosses zero.
type DescentStepper struct{}

// Step applies one damped substitution pass over every formation reaction.
// The returned step norm is the largest |dn|/max(n, |dn|) over the species
// it moved, so a species still doubling its way up from a seed counts as
// full-scale motion no matter how small its absolute moles are.
func (DescentStepper) Step(ctx *StepContext) (float64, error) {
	nc := ctx.NumComponents
	maxRel := 0.0

	for k := nc; k < len(ctx.MoleNumbers); k++ {
		irxn := k - nc
		if ctx.Unknown[k] == chem.UnknownVoltage {
			// The slot holds a potential in volts, not moles.
			continue
		}
		switch ctx.Status[k] {
		case chem.StatusZeroedSS:
			// Only the stability machinery may revive these.
			continue
		}

		dg := ctx.DeltaG[irxn]
		if dg > 50.0 {
			dg = 50.0
		} else if dg < -50.0 {
			dg = -50.0
		}

		n := ctx.MoleNumbers[k]
		var dn float64
		switch {
		case n > 0:
			dn = n * (math.Exp(-dg) - 1.0)
			if dn > maxGrowFactor*n {
				dn = maxGrowFactor * n
			} else if dn < -maxShrinkFactor*n {
				dn = -maxShrinkFactor * n
			}
		case dg < 0 && ctx.PhaseMoles[ctx.PhaseOf[k]] > 0:
			// Dead species inside a live phase: seed it at the same
			// level the phase-birth machinery uses.
			dn = 10.0 * ctx.TotalMoles * chem.PhaseCutoff
		default:
			continue
		}

		// Damp so no component goes negative.
		factor := 1.0
		for j := 0; j < nc; j++ {
			sc := ctx.Stoich(irxn, j)
			if sc == 0 {
				continue
			}
			drop := -sc * dn
			if drop <= 0 {
				continue
			}
			nj := ctx.MoleNumbers[j]
			if drop*factor > nj {
				if nj <= 0 {
					factor = 0
					break
				}
				factor = componentMargin * nj / drop
			}
		}
		if factor == 0 {
			continue
		}
		dn *= factor
		if dn == 0 {
			continue
		}

		ctx.MoleNumbers[k] = n + dn
		if ctx.MoleNumbers[k] < 0 {
			ctx.MoleNumbers[k] = 0
		}
		for j := 0; j < nc; j++ {
			if sc := ctx.Stoich(irxn, j); sc != 0 {
				ctx.MoleNumbers[j] += sc * dn
				if ctx.MoleNumbers[j] < 0 {
					ctx.MoleNumbers[j] = 0
				}
			}
		}

		if rel := math.Abs(dn) / math.Max(n, math.Abs(dn)); rel > maxRel {
			maxRel = rel
		}
	}

	return maxRel, nil
}
