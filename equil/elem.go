// SPDX-License-Identifier: MIT

package equil

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/equilib/chem"
)

// updateAbundances recomputes elemAb from the current molOld.
func (s *solver) updateAbundances() {
	// The buffers always satisfy the FormulaMatrix length contract, so the
	// error return cannot fire here.
	_ = s.fm.Abundances(s.molOld, s.unknown, s.elemAb)
}

// elementAbundancesOK checks constraint compliance. With full set, every
// constraint row is checked; otherwise only the rows the component basis
// spans (the solver cannot fix violations outside its range space, it can
// only report them).
//
// Tolerances by constraint type: nonzero goals demand 12 digits of relative
// accuracy. Zero-goal rows with mixed-sign coefficients tolerate round-off
// relative to the largest contributing term; single-signed zero-goal rows
// demand everything below the minor-species cutoff.
func (s *solver) elementAbundancesOK(full bool) bool {
	top := s.nc
	if full {
		top = s.ne
	}
	for e := 0; e < top; e++ {
		if !s.elems[e].Active {
			continue
		}
		diff := math.Abs(s.elemAb[e] - s.goals[e])
		if diff <= math.Abs(s.goals[e])*chem.GoalRelTol {
			continue
		}
		if s.goals[e] == 0.0 || s.elems[e].Type == chem.ElemElectronCharge {
			scale := chem.MinorCutoff
			multisign := false
			for k := 0; k < s.ns; k++ {
				if s.unknown[k] == chem.UnknownVoltage {
					continue
				}
				a := s.fm.At(e, k)
				if a < 0 {
					multisign = true
				}
				if a != 0 {
					scale = math.Max(scale, math.Abs(a*s.molOld[k]))
				}
			}
			if multisign {
				if diff > chem.ZeroGoalScaleTol*scale {
					return false
				}
			} else if diff > chem.MinorCutoff {
				return false
			}
			continue
		}

		return false
	}

	return true
}

// correctElementBalance removes element-abundance drift from molOld.
//
// Steps, each short-circuiting to cleanup once compliance is reached:
//  1. Closed-form fixes for constraints carried by a single species, or by
//     a single component plus known non-components.
//  2. Bounds clipping: no species may exceed goal/coefficient on any
//     ordinary-positive constraint; clipped species that land below the
//     minor cutoff are zeroed and retagged.
//  3. The general linear correction: solve C·delta = (goal − current) over
//     the component basis and apply it damped so components stay positive.
//  4. Ad-hoc single-direction repair: nudge any species whose formula
//     moves every violated constraint the same way.
//  5. Sign-directed repairs for zero-goal rows (charge neutrality) and
//     electron-charge rows.
//
// Phase totals are rebuilt before returning. The pre-check makes the
// operation idempotent: a compliant state returns CorrectionUnchanged with
// the buffers untouched, bit for bit.
func (s *solver) correctElementBalance() (CorrectionOutcome, error) {
	s.stats.CorrectionCalls++
	s.updateAbundances()
	if s.elementAbundancesOK(true) {
		return CorrectionUnchanged, nil
	}

	retn := CorrectionUnchanged
	componentZeroed := false

	finish := func(out CorrectionOutcome) (CorrectionOutcome, error) {
		s.tmoles()
		if out == CorrectionStillBad && componentZeroed {
			out = CorrectionZeroedComponent
		}
		return out, nil
	}

	// 1. Single-species / single-component constraints.
	changed := false
	for e := 0; e < s.ne; e++ {
		nonZero, multisign := s.fm.RowSigns(e, s.unknown)
		if multisign {
			continue
		}
		if nonZero < 2 {
			for k := 0; k < s.ns; k++ {
				if s.unknown[k] == chem.UnknownVoltage {
					continue
				}
				if a := s.fm.At(e, k); a > 0 {
					s.molOld[k] = s.goals[e] / a
					changed = true
				}
			}
			continue
		}
		// Exactly one component carries this element: its mole number is
		// determined by the goal minus the non-component contributions.
		compID, numComp := -1, 0
		for k := 0; k < s.nc; k++ {
			if s.unknown[k] == chem.UnknownVoltage {
				continue
			}
			if s.fm.At(e, k) > 0 {
				compID = k
				numComp++
			}
		}
		if numComp != 1 {
			continue
		}
		diff := s.goals[e]
		for k := s.nc; k < s.ns; k++ {
			if s.unknown[k] == chem.UnknownVoltage {
				continue
			}
			diff -= s.fm.At(e, k) * s.molOld[k]
		}
		s.molOld[compID] = math.Max(0.0, diff/s.fm.At(e, compID))
		changed = true
	}
	if changed {
		s.updateAbundances()
	}

	// 2. Max-bounds clipping on ordinary-positive constraints.
	changed = false
	for e := 0; e < s.ne; e++ {
		if s.elems[e].Type != chem.ElemOrdinaryPositive {
			continue
		}
		for k := 0; k < s.ns; k++ {
			if s.unknown[k] == chem.UnknownVoltage {
				continue
			}
			a := s.fm.At(e, k)
			if a <= 0 {
				continue
			}
			maxPermissible := s.goals[e] / a
			if s.molOld[k] <= maxPermissible {
				continue
			}
			s.molOld[k] = maxPermissible
			changed = true
			if s.molOld[k] < chem.MinorCutoff {
				s.molOld[k] = 0.0
				if s.ssPhase[k] {
					s.status[k] = chem.StatusZeroedSS
				} else {
					s.status[k] = chem.StatusActiveButZero
				}
				if k < s.nc {
					componentZeroed = true
				}
			}
		}
	}
	if changed {
		s.updateAbundances()
	}

	// 3. General linear correction over the component basis.
	x := make([]float64, s.nc)
	for i := 0; i < s.nc; i++ {
		x[i] = s.goals[i] - s.elemAb[i]
		if math.Abs(x[i]) > 1.0e-13 {
			retn = CorrectionGood
		}
	}
	c := mat.NewDense(s.nc, s.nc, nil)
	for e := 0; e < s.nc; e++ {
		for j := 0; j < s.nc; j++ {
			c.Set(e, j, s.fm.At(e, j))
		}
	}
	var lu mat.LU
	lu.Factorize(c)
	delta := mat.NewVecDense(s.nc, nil)
	if err := lu.SolveVecTo(delta, false, mat.NewVecDense(s.nc, x)); err != nil {
		return CorrectionStillBad, ErrSingularCorrection
	}

	// Damp the step so no component overshoots zero by more than the
	// margin rule allows: par is the largest fractional removal demanded,
	// capped at 100×, and the applied fraction is its reciprocal shaved
	// by 0.9999.
	par := 0.5
	for i := 0; i < s.nc; i++ {
		if s.molOld[i] > 0 {
			if xx := -delta.AtVec(i) / s.molOld[i]; xx > par {
				par = xx
			}
		}
	}
	if par > 100.0 {
		par = 100.0
	}
	par = 1.0 / par
	if par < 1.0 && par > 0.0 {
		retn = CorrectionStillBad
		par *= 0.9999
	} else {
		par = 1.0
	}
	for i := 0; i < s.nc; i++ {
		tmp := s.molOld[i] + par*delta.AtVec(i)
		if tmp > 0 {
			s.molOld[i] = tmp
			continue
		}
		if s.ssPhase[i] {
			if s.molOld[i] > 0 {
				componentZeroed = true
			}
			s.molOld[i] = 0.0
		} else {
			s.molOld[i] *= 1.0e-4
		}
	}
	s.updateAbundances()
	s.tmoles()

	// 4. Ad-hoc single-direction repair, only worth trying when the linear
	// step could not reach compliance on its own.
	if retn >= CorrectionStillBad {
		for k := 0; k < s.ns; k++ {
			if s.unknown[k] == chem.UnknownVoltage {
				continue
			}
			saveDir := 0.0
			goodSpec := true
			for i := 0; i < s.nc; i++ {
				dir := s.fm.At(i, k) * (s.goals[i] - s.elemAb[i])
				if math.Abs(dir) > 1.0e-10 {
					if dir > 0 && saveDir < 0 || dir < 0 && saveDir > 0 {
						goodSpec = false
						break
					}
					saveDir = dir
				} else if s.fm.At(i, k) != 0 {
					goodSpec = false
					break
				}
			}
			if !goodSpec {
				continue
			}
			xx, its := 0.0, 0
			for i := 0; i < s.nc; i++ {
				if a := s.fm.At(i, k); a != 0 {
					xx += (s.goals[i] - s.elemAb[i]) / a
					its++
				}
			}
			if its > 0 {
				xx /= float64(its)
			}
			s.molOld[k] = math.Max(s.molOld[k]+xx, 1.0e-10)
			s.updateAbundances()
		}
	}
	if s.elementAbundancesOK(false) {
		return finish(CorrectionGood)
	}

	// 5a. Sign-directed repair for charge-neutrality and zero-goal
	// ordinary rows.
	for e := 0; e < s.ne; e++ {
		t := s.elems[e].Type
		if t != chem.ElemChargeNeutrality &&
			!(t == chem.ElemOrdinaryPositive && s.goals[e] == 0.0) {
			continue
		}
		for k := 0; k < s.ns; k++ {
			a := s.fm.At(e, k)
			if s.elemAb[e] > 0 && a < 0 || s.elemAb[e] < 0 && a > 0 {
				s.molOld[k] -= s.elemAb[e] / a
				if s.molOld[k] < 0 {
					s.molOld[k] = 0
				}
				s.updateAbundances()
				break
			}
		}
	}
	if s.elementAbundancesOK(true) {
		return finish(CorrectionGood)
	}

	// 5b. Electron-charge repair: prefer species that are already present;
	// fall back to zeroed ones only when nothing live can move the charge
	// the right way.
	for e := 0; e < s.ne; e++ {
		if s.elems[e].Type != chem.ElemElectronCharge {
			continue
		}
		dev := s.goals[e] - s.elemAb[e]
		if math.Abs(dev) <= 1.0e-300 {
			continue
		}
		useZeroed := true
		for k := 0; k < s.ns; k++ {
			a := s.fm.At(e, k)
			if (dev < 0 && a < 0 || dev > 0 && a > 0) && s.molOld[k] > 0 {
				useZeroed = false
			}
		}
		for k := 0; k < s.ns; k++ {
			if s.molOld[k] <= 0 && !useZeroed {
				continue
			}
			a := s.fm.At(e, k)
			if dev < 0 && a < 0 || dev > 0 && a > 0 {
				s.molOld[k] += dev / a
				if s.molOld[k] < 0 {
					s.molOld[k] = 0
				}
				s.updateAbundances()
				break
			}
		}
	}
	if s.elementAbundancesOK(true) {
		return finish(CorrectionGood)
	}

	return finish(CorrectionStillBad)
}
