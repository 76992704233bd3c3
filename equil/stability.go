// SPDX-License-Identifier: MIT

package equil

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/katalvlaran/equilib/chem"
	"github.com/katalvlaran/equilib/phase"
)

// Constants of the stability iteration, all from the damped
// successive-substitution scheme.
const (
	stabilityMaxIters  = 200
	stabilityConvTol   = 1.0e-5
	stabilitySeedFloor = 1.0e-13
	stabilityDampFloor = 1.0e-6
	deltaGClamp        = 50.0
	birthSizeFactor    = 10.0
)

// clampDG limits a reaction Gibbs energy to ±50 before exponentiation.
func clampDG(dg float64) float64 {
	if dg > deltaGClamp {
		return deltaGClamp
	}
	if dg < -deltaGClamp {
		return -deltaGClamp
	}
	return dg
}

// popPhasePossible reports whether the absent phase iph could be driven
// into existence: at least one member species must have a formation
// reaction whose consumed components are all present in more than trace
// amounts. Member species that are themselves components are handled by
// scanning the regular reactions for one that can produce them.
func (s *solver) popPhasePossible(iph int) bool {
	ph := s.phases[iph]
	for m := 0; m < ph.NumSpecies(); m++ {
		kspec := ph.GlobalIndex(m)
		irxn := kspec - s.nc
		if irxn >= 0 {
			possible := true
			for j := 0; j < s.nc; j++ {
				if s.elems[j].Type != chem.ElemOrdinaryPositive {
					continue
				}
				sc := s.sc[irxn][j]
				if sc != 0 && -sc > 0 &&
					s.molOld[j] <= chem.ElementAbsCutoff*0.5 {
					possible = false
					break
				}
			}
			if possible {
				return true
			}
			continue
		}

		// The member is a zeroed component: look for a regular reaction
		// that produces it without draining an empty component.
		for jrxn := 0; jrxn < s.ns-s.nc; jrxn++ {
			sc := s.sc[jrxn][kspec]
			switch {
			case sc > 0:
				ok := true
				for kc := 0; kc < s.nc; kc++ {
					if s.sc[jrxn][kc] < 0 &&
						s.molOld[kc] <= chem.ElementAbsCutoff*0.5 {
						ok = false
						break
					}
				}
				if ok {
					return true
				}
			case sc < 0:
				if s.molOld[s.nc+jrxn] <= chem.ElementAbsCutoff*0.5 {
					continue
				}
				ok := true
				for kc := 0; kc < s.nc; kc++ {
					if s.sc[jrxn][kc] > 0 &&
						s.molOld[kc] <= chem.ElementAbsCutoff*0.5 {
						ok = false
						break
					}
				}
				if ok {
					return true
				}
			}
		}
	}

	return false
}

// popProblemGroups links each absent phase to the other absent phases it is
// coupled with through zeroed components: popping one requires (or enables)
// popping the others. Group g[0] is the seed phase; the rest are the phases
// whose species could supply its zeroed components.
func (s *solver) popProblemGroups() [][]int {
	// Per zeroed component: the absent phases holding a species that
	// produces the component.
	compPops := make([][]int, s.nc)
	for j := 0; j < s.nc; j++ {
		if s.elems[j].Type != chem.ElemOrdinaryPositive || s.molOld[j] > 0 {
			continue
		}
		list := []int{s.phaseOf[j]}
		for irxn := 0; irxn < s.ns-s.nc; irxn++ {
			kspec := s.nc + irxn
			iph := s.phaseOf[kspec]
			if s.phases[iph].Existence().Exists() {
				continue
			}
			if s.sc[irxn][j] > 0 && !inIntList(list, iph) {
				list = append(list, iph)
			}
		}
		compPops[j] = list
	}

	// Per absent phase: the zeroed components one of its members consumes
	// with no in-phase producer.
	var groups [][]int
	for iph, ph := range s.phases {
		if ph.Existence().Exists() {
			continue
		}
		var linked []int
		for m := 0; m < ph.NumSpecies(); m++ {
			kspec := ph.GlobalIndex(m)
			irxn := kspec - s.nc
			if irxn < 0 {
				continue
			}
			for j := 0; j < s.nc; j++ {
				if s.elems[j].Type != chem.ElemOrdinaryPositive ||
					s.molOld[j] > 0 || s.sc[irxn][j] >= 0 {
					continue
				}
				foundPos := false
				for mm := 0; mm < ph.NumSpecies(); mm++ {
					iirxn := ph.GlobalIndex(mm) - s.nc
					if iirxn >= 0 && s.sc[iirxn][j] > 0 {
						foundPos = true
						break
					}
				}
				if !foundPos && !inIntList(linked, j) {
					linked = append(linked, j)
				}
			}
		}

		group := []int{iph}
		for _, j := range linked {
			for _, jph := range compPops[j] {
				if !inIntList(group, jph) {
					group = append(group, jph)
				}
			}
		}
		groups = append(groups, group)
	}

	return groups
}

func inIntList(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// selectPopPhase scans the absent phases and returns the index of the one
// most favored to appear, or −1. Single-species phases use the closed form
// F = exp(−dG) − 1 on the formation reaction; multi-species phases run the
// full stability iteration. The largest positive F wins, so the selection
// is deterministic for a given state.
func (s *solver) selectPopPhase() (int, error) {
	iphasePop := -1
	feMax := math.Inf(-1)
	for iph, ph := range s.phases {
		if ph.Existence().Exists() {
			continue
		}
		if ph.SingleSpecies() {
			kspec := ph.GlobalIndex(0)
			irxn := kspec - s.nc
			if irxn < 0 {
				continue
			}
			fe := math.Exp(-s.dgOld[irxn]) - 1.0
			if fe > 0 && fe > feMax {
				iphasePop = iph
				feMax = fe
			}
			continue
		}
		if !s.popPhasePossible(iph) {
			continue
		}
		fe, err := s.phaseStabilityTest(iph)
		if err != nil {
			return -1, err
		}
		if fe > 0 && fe > feMax {
			iphasePop = iph
			feMax = fe
		}
	}

	return iphasePop, nil
}

// phaseStabilityTest runs the damped successive-substitution iteration on
// the absent multi-species phase iph and returns the stability function
//
//	F = sum(x_components) − 1 + sum(E_phi)
//
// F > 0 means the phase lowers the total Gibbs energy and should appear.
// On convergence the trial composition is pushed into the phase model and
// the mole-number deltas are saved as the next creation estimate.
func (s *solver) phaseStabilityTest(iph int) (float64, error) {
	s.stats.StabilityTests++
	ph := s.phases[iph]
	nsp := ph.NumSpecies()

	xEst := make([]float64, nsp)
	delFrac := make([]float64, nsp)
	ePhi := make([]float64, nsp)
	fracNew := make([]float64, nsp)
	fracOld := make([]float64, nsp)
	fracRaw := make([]float64, nsp)
	ac := make([]float64, nsp)

	// Member indices that are components need a back-solve each sweep.
	var componentList []int
	for m := 0; m < nsp; m++ {
		if ph.GlobalIndex(m) < s.nc {
			componentList = append(componentList, m)
		}
	}

	copy(s.feDefic, s.feOld)
	if err := ph.CreationComposition(fracNew); err != nil {
		return 0, err
	}
	for m := range fracNew {
		if fracNew[m] < stabilitySeedFloor {
			fracNew[m] = stabilitySeedFloor
		}
	}

	damp := 1.0e-2
	normUpdate := 0.1 * floats.Norm(fracNew, 2)
	dirProd := 0.0
	funcStability := 0.0
	converged := false

	for its := 0; its < stabilityMaxIters && !converged; its++ {
		dampOld := damp
		normUpdateOld := normUpdate
		dirProdOld := dirProd
		copy(fracOld, fracNew)

		// Back-solve the member components from the non-component deltas.
		for _, mc := range componentList {
			kcSpec := ph.GlobalIndex(mc)
			fracOld[mc] = 0
			for m := 0; m < nsp; m++ {
				irxn := ph.GlobalIndex(m) - s.nc
				if irxn >= 0 {
					fracOld[mc] += s.sc[irxn][kcSpec] * fracOld[m]
				}
			}
		}

		// Trial mole fractions.
		sumFrac := 0.0
		for m := 0; m < nsp; m++ {
			sumFrac += fracOld[m]
		}
		sumXComp := 0.0
		for m := 0; m < nsp; m++ {
			xEst[m] = fracOld[m] / sumFrac
			if ph.GlobalIndex(m) < s.nc {
				sumXComp += xEst[m]
			}
		}

		if err := ph.SetMoleFractionsState(phase.StateStability, xEst); err != nil {
			return 0, err
		}
		if err := ph.ActivityCoefficients(ac); err != nil {
			return 0, err
		}

		// Deficient potentials for the member components.
		for _, mc := range componentList {
			kcSpec := ph.GlobalIndex(mc)
			x := xEst[mc]
			if x <= chem.MinorCutoff {
				x = chem.MinorCutoff
			}
			s.feDefic[kcSpec] = s.feOld[kcSpec] + math.Log(ac[mc]*x)
		}

		// Deficient reaction Gibbs energies for the member reactions.
		for m := 0; m < nsp; m++ {
			irxn := ph.GlobalIndex(m) - s.nc
			if irxn < 0 {
				continue
			}
			s.dgDefic[irxn] = s.dgOld[irxn]
			for _, mc := range componentList {
				kcSpec := ph.GlobalIndex(mc)
				if c := s.sc[irxn][kcSpec]; c != 0 {
					s.dgDefic[irxn] += c * (s.feDefic[kcSpec] - s.feOld[kcSpec])
				}
			}
		}

		// E_phi terms and the stability function.
		sum := 0.0
		funcStability = sumXComp - 1.0
		for m := 0; m < nsp; m++ {
			irxn := ph.GlobalIndex(m) - s.nc
			if irxn >= 0 {
				ePhi[m] = math.Exp(-clampDG(s.dgDefic[irxn])) / ac[m]
				sum += ePhi[m]
				funcStability += ePhi[m]
			} else {
				ePhi[m] = 0
			}
		}

		// Raw update: simplex-renormalized E_phi share of the
		// non-component mass, with the component back-solve.
		for m := 0; m < nsp; m++ {
			if ph.GlobalIndex(m)-s.nc >= 0 {
				fracRaw[m] = ePhi[m] / sum * (1.0 - sumXComp)
			}
		}
		for _, mc := range componentList {
			kcSpec := ph.GlobalIndex(mc)
			fracRaw[mc] = 0
			for m := 0; m < nsp; m++ {
				irxn := ph.GlobalIndex(m) - s.nc
				if irxn >= 0 {
					fracRaw[mc] += s.sc[irxn][kcSpec] * fracRaw[m]
				}
			}
		}

		// Damping.
		for m := 0; m < nsp; m++ {
			delFrac[m] = fracRaw[m] - fracOld[m]
		}
		normUpdate = floats.Norm(delFrac, 2)
		dirProd = floats.Dot(fracOld, delFrac)
		crossedSign := dirProd*dirProdOld < 0

		damp = 0.5
		if dampOld < 0.25 {
			damp = 2.0 * dampOld
		}
		if crossedSign {
			if normUpdate*1.5 > normUpdateOld {
				damp = 0.5 * dampOld
			} else if normUpdate*2.0 > normUpdateOld {
				damp = 0.8 * dampOld
			}
		} else {
			if normUpdate > normUpdateOld*2.0 {
				damp = 0.6 * dampOld
			} else if normUpdate > normUpdateOld*1.2 {
				damp = 0.9 * dampOld
			}
		}
		for m := 0; m < nsp; m++ {
			if math.Abs(damp*delFrac[m]) > 0.3*math.Abs(fracOld[m]) {
				damp = math.Max(0.3*math.Abs(fracOld[m])/math.Abs(delFrac[m]),
					1.0e-8/math.Abs(delFrac[m]))
			}
			if delFrac[m] < 0 && 2.0*damp*(-delFrac[m]) > fracOld[m] {
				damp = fracOld[m] / (2.0 * -delFrac[m])
			}
			if delFrac[m] > 0 && 2.0*damp*delFrac[m] > fracOld[m] {
				damp = fracOld[m] / (2.0 * delFrac[m])
			}
		}
		if damp < stabilityDampFloor {
			damp = stabilityDampFloor
		}

		for m := 0; m < nsp; m++ {
			fracNew[m] = fracOld[m] + damp*delFrac[m]
		}

		if normUpdate < stabilityConvTol {
			converged = true
		}
	}

	if converged {
		if err := ph.SetMoleFractionsState(phase.StateStability, xEst); err != nil {
			return 0, err
		}
		if err := ph.SetCreationComposition(fracNew); err != nil {
			return 0, err
		}
	}

	return funcStability, nil
}

// popPhaseStepSizes computes the mole-number deltas that activate the
// absent phase iph, writing them into deltaMol. It reports false when the
// birth is blocked because a required component is effectively empty.
func (s *solver) popPhaseStepSizes(iph int) (bool, error) {
	ph := s.phases[iph]
	tPhaseMoles := birthSizeFactor * s.totalMole * chem.PhaseCutoff

	if ph.SingleSpecies() {
		kspec := ph.GlobalIndex(0)
		irxn := kspec - s.nc
		if irxn < 0 {
			return false, nil
		}

		// Hessian-style curvature term for the birth step size.
		ss := 0.0
		for j := 0; j < s.nc; j++ {
			if !s.ssPhase[j] && s.molOld[j] > 0 {
				ss += s.sc[irxn][j] * s.sc[irxn][j] / s.molOld[j]
			}
		}
		for jph := 0; jph < s.np; jph++ {
			if s.phases[jph].SingleSpecies() || s.tPhase[jph] <= 0 {
				continue
			}
			dn := s.phaseStoich(irxn, jph)
			ss -= dn * dn / s.tPhase[jph]
		}
		if ss != 0 {
			s.deltaMol[kspec] = -s.dgOld[irxn] / ss
		} else {
			s.deltaMol[kspec] = tPhaseMoles
		}

		// Damp so no ordinary component crosses zero; a half-step to the
		// blocking component, or nothing at all when it is already empty.
		for j := 0; j < s.nc; j++ {
			sc := s.sc[irxn][j]
			if sc == 0 || s.elems[j].Type != chem.ElemOrdinaryPositive {
				continue
			}
			negChange := -sc * s.deltaMol[kspec]
			if negChange > s.molOld[j] {
				if s.molOld[j] > 0 {
					s.deltaMol[kspec] = -0.5 * s.molOld[j] / sc
				} else {
					s.deltaMol[kspec] = 0.0
				}
			}
		}
		if -s.deltaMol[kspec] > s.molOld[kspec] {
			s.deltaMol[kspec] = -s.molOld[kspec]
		}

		return true, nil
	}

	// Multi-species birth: distribute the phase seed over the creation
	// composition and project the component drain.
	nsp := ph.NumSpecies()
	xEst := make([]float64, nsp)
	if err := ph.CreationComposition(xEst); err != nil {
		return false, err
	}

	molTmp := append([]float64(nil), s.molOld...)
	for m := 0; m < nsp; m++ {
		kspec := ph.GlobalIndex(m)
		irxn := kspec - s.nc
		if irxn < 0 {
			continue
		}
		delmol := tPhaseMoles * xEst[m]
		for j := 0; j < s.nc; j++ {
			if s.elems[j].Type != chem.ElemOrdinaryPositive {
				continue
			}
			if sc := s.sc[irxn][j]; sc != 0 {
				molTmp[j] += sc * delmol
			}
		}
	}

	damp := 1.0
	ratioComp := 0.0
	for j := 0; j < s.nc; j++ {
		deltaJ := s.molOld[j] - molTmp[j]
		if molTmp[j] < 0 {
			ratioComp = 1.0
			if deltaJ > 0 {
				if dampj := s.molOld[j] / deltaJ * 0.9; dampj < damp {
					damp = dampj
				}
			}
		} else if s.elems[j].Type == chem.ElemOrdinaryPositive {
			if jph := s.phaseOf[j]; jph != iph && !s.ssPhase[j] && s.molOld[j] > 0 {
				ratioComp = math.Max(ratioComp, math.Abs(deltaJ)/s.molOld[j])
			}
		}
	}
	// The seed may be far too small to register against the existing
	// phases; scale it up so some component moves by a part in a thousand.
	if ratioComp > 1.0e-30 && ratioComp < 0.001 {
		damp = 0.001 / ratioComp
	}
	if damp <= 1.0e-6 {
		return false, nil
	}

	for m := 0; m < nsp; m++ {
		kspec := ph.GlobalIndex(m)
		if kspec < s.nc {
			s.status[kspec] = chem.StatusComponent
			continue
		}
		s.deltaMol[kspec] = tPhaseMoles * xEst[m] * damp
		if xEst[m] > 1.0e-3 {
			s.status[kspec] = chem.StatusMajor
		} else {
			s.status[kspec] = chem.StatusMinor
		}
	}

	return true, nil
}

// phaseStoich returns the net change of phase jph's moles per unit of
// formation reaction irxn.
func (s *solver) phaseStoich(irxn, jph int) float64 {
	dn := 0.0
	if s.phaseOf[s.nc+irxn] == jph {
		dn += 1.0
	}
	for j := 0; j < s.nc; j++ {
		if s.phaseOf[j] == jph {
			dn += s.sc[irxn][j]
		}
	}
	return dn
}

// activatePhase applies the deltas from popPhaseStepSizes to the accepted
// mole numbers, carrying the component adjustments through the
// stoichiometry, and clears the zeroed flag on the phase.
func (s *solver) activatePhase(iph int) error {
	ph := s.phases[iph]
	for m := 0; m < ph.NumSpecies(); m++ {
		kspec := ph.GlobalIndex(m)
		irxn := kspec - s.nc
		if irxn < 0 {
			continue
		}
		dn := s.deltaMol[kspec]
		if dn == 0 {
			continue
		}
		s.molOld[kspec] += dn
		if s.molOld[kspec] < 0 {
			s.molOld[kspec] = 0
		}
		for j := 0; j < s.nc; j++ {
			if sc := s.sc[irxn][j]; sc != 0 {
				s.molOld[j] += sc * dn
				if s.molOld[j] < 0 {
					s.molOld[j] = 0
				}
			}
		}
		s.deltaMol[kspec] = 0
		if s.status[kspec] == chem.StatusZeroedSS {
			s.status[kspec] = chem.StatusMinor
		}
	}
	s.tmoles()
	if err := s.syncPhases(); err != nil {
		return err
	}
	s.stats.PhasePops++

	return nil
}
