// SPDX-License-Identifier: MIT

package equil

import (
	"fmt"
	"math"

	"github.com/katalvlaran/equilib/chem"
)

// Solve computes the equilibrium composition of p at its fixed temperature
// and pressure.
//
// Configuration errors (bad shapes, ill-posed goals, rank-deficient
// formula matrices) are returned as errors. Numerical non-convergence is
// not an error: the Result comes back with Status FailedConvergence (the
// iteration cap was hit) or RangeSpaceError (a constraint outside the
// component basis's range space cannot be met), and the best state reached
// so far.
func Solve(p *Problem, opts ...Option) (*Result, error) {
	o := gatherOptions(opts...)
	s, err := newSolver(p, o)
	if err != nil {
		return nil, err
	}
	if err := s.prepOneTime(p); err != nil {
		return nil, err
	}
	if err := s.prep(); err != nil {
		return nil, err
	}

	status, err := s.run()
	if err != nil {
		return nil, err
	}

	return s.transcribe(p, status)
}

// run is the outer solve loop. Each iteration takes one descent step,
// removes element-balance drift, and gives absent phases a chance to
// appear. Convergence requires all three to go quiet at once.
func (s *solver) run() (Status, error) {
	ctx := &StepContext{
		MoleNumbers:        s.molOld,
		DeltaG:             s.dgOld,
		Stoich:             s.stoich,
		NumComponents:      s.nc,
		Status:             s.status,
		Unknown:            s.unknown,
		SingleSpeciesPhase: s.ssPhase,
		PhaseOf:            s.phaseOf,
		PhaseMoles:         s.tPhase,
	}

	for it := 0; it < s.opts.maxIters; it++ {
		s.stats.Iterations++

		if err := s.syncPhases(); err != nil {
			return FailedConvergence, err
		}
		if err := s.updateChemPotentials(); err != nil {
			return FailedConvergence, err
		}
		s.updateDeltaG()
		s.classifySpecies()

		ctx.TotalMoles = s.totalMole
		stepNorm, err := s.opts.stepper.Step(ctx)
		if err != nil {
			return FailedConvergence, fmt.Errorf("equil: stepper: %w", err)
		}
		s.tmoles()
		if err := s.syncPhases(); err != nil {
			return FailedConvergence, err
		}

		outcome, err := s.correctElementBalance()
		if err != nil {
			return FailedConvergence, err
		}
		if err := s.syncPhases(); err != nil {
			return FailedConvergence, err
		}

		// Stability pass needs fresh potentials after the correction.
		if err := s.updateChemPotentials(); err != nil {
			return FailedConvergence, err
		}
		s.updateDeltaG()

		iphPop, err := s.selectPopPhase()
		if err != nil {
			return FailedConvergence, err
		}
		popped := false
		if iphPop >= 0 {
			if s.opts.debugW != nil && s.opts.debugLevel >= 2 {
				s.debugf(2, "pop groups: %v", s.popProblemGroups())
			}
			ok, err := s.popPhaseStepSizes(iphPop)
			if err != nil {
				return FailedConvergence, err
			}
			if ok {
				if err := s.activatePhase(iphPop); err != nil {
					return FailedConvergence, err
				}
				popped = true
			}
		}

		s.debugf(1, "iter %3d: step %.3e correction %v pop %d",
			it, stepNorm, outcome, iphPop)

		balanced := outcome == CorrectionUnchanged || outcome == CorrectionGood
		if !popped && balanced && stepNorm < s.opts.tolMajor {
			s.updateAbundances()
			if !s.elementAbundancesOK(true) {
				if s.elementAbundancesOK(false) {
					return RangeSpaceError, nil
				}
				continue
			}
			s.debugf(0, "converged after %d iterations", it+1)
			return Converged, nil
		}
	}

	s.updateAbundances()
	if s.elementAbundancesOK(false) && !s.elementAbundancesOK(true) {
		return RangeSpaceError, nil
	}

	return FailedConvergence, nil
}

// transcribe maps the internal (permuted) state back to the caller's
// species and phase ordering.
func (s *solver) transcribe(p *Problem, status Status) (*Result, error) {
	res := &Result{
		Status:         status,
		MoleNumbers:    make([]float64, s.ns),
		PhaseMoles:     make([]float64, s.np),
		MoleFractions:  make([][]float64, s.np),
		ChemPotentials: make([]float64, s.ns),
		Stats:          s.stats,
	}
	for k := 0; k < s.ns; k++ {
		res.MoleNumbers[s.spPerm[k]] = s.molOld[k]
		res.ChemPotentials[s.spPerm[k]] = s.feOld[k]
	}
	copy(res.PhaseMoles, s.tPhase)
	for _, ph := range s.phases {
		res.Stats.ConsistencyRepairs += ph.Repairs()
	}

	// Per-phase fractions over members in ascending caller species order.
	memberMoles := make([]float64, s.np)
	for k, sp := range p.Species {
		if sp.Unknown == chem.UnknownVoltage {
			continue
		}
		memberMoles[sp.Phase] += math.Max(0, res.MoleNumbers[k])
	}
	for iph := range p.Phases {
		var xs []float64
		for k, sp := range p.Species {
			if sp.Phase != iph {
				continue
			}
			x := 0.0
			if sp.Unknown != chem.UnknownVoltage && memberMoles[iph] > 0 {
				x = math.Max(0, res.MoleNumbers[k]) / memberMoles[iph]
			}
			xs = append(xs, x)
		}
		res.MoleFractions[iph] = xs

		// Cross-check the phase totals against the member sums.
		want := memberMoles[iph] + s.inert[iph]
		if diff := math.Abs(want - res.PhaseMoles[iph]); diff > 1.0e-10*(1.0+want) {
			if s.opts.debug {
				panic(fmt.Sprintf("equil: phase %d total %g disagrees with member sum %g",
					iph, res.PhaseMoles[iph], want))
			}
			res.PhaseMoles[iph] = want
			res.Stats.ConsistencyRepairs++
		}
	}

	return res, nil
}
