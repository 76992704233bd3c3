// SPDX-License-Identifier: MIT

package equil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/equilib/chem"
)

// liquidProblem has a two-species gas plus an absent two-species condensed
// phase; g0 sets whether condensation is favorable.
func liquidProblem(g0 float64) *Problem {
	return &Problem{
		Elements: []chem.Element{element("A", 2), element("B", 2)},
		Species: []SpeciesSpec{
			{Name: "A2", Formula: []float64{2, 0}, Phase: 0, Thermo: constThermo(0)},
			{Name: "B2", Formula: []float64{0, 2}, Phase: 0, Thermo: constThermo(0)},
			{Name: "A(l)", Formula: []float64{1, 0}, Phase: 1, Thermo: constThermo(g0)},
			{Name: "B(l)", Formula: []float64{0, 1}, Phase: 1, Thermo: constThermo(g0)},
		},
		Phases:       []PhaseSpec{{Name: "gas", Gas: true}, {Name: "liquid"}},
		InitialMoles: []float64{1, 1, 0, 0},
		Temperature:  300,
		Pressure:     101325,
	}
}

// ---------------------------------------------------------------------------
// single-species phase pops (closed form)
// ---------------------------------------------------------------------------

func TestPopSingleSpeciesFavorable(t *testing.T) {
	// dG for vapor -> ice is (g0Ice − g0Vapor)/T = −1, so
	// F = exp(1) − 1 > 0 and the solid must be chosen.
	s := buildSolver(t, iceProblem(0, -260))
	refreshPotentials(t, s)

	require.InDelta(t, -1.0, s.dgOld[0], 1e-12)
	iph, err := s.selectPopPhase()
	require.NoError(t, err)
	assert.Equal(t, 1, iph)
}

func TestPopSingleSpeciesUnfavorable(t *testing.T) {
	// dG = +1: F = exp(−1) − 1 < 0, the solid stays dead.
	s := buildSolver(t, iceProblem(0, 260))
	refreshPotentials(t, s)

	iph, err := s.selectPopPhase()
	require.NoError(t, err)
	assert.Equal(t, -1, iph)
}

func TestPopStepSizeSeedsBirthLevel(t *testing.T) {
	s := buildSolver(t, iceProblem(0, -260))
	refreshPotentials(t, s)

	ok, err := s.popPhaseStepSizes(1)
	require.NoError(t, err)
	require.True(t, ok)

	// Both phases are single-species, so the curvature term vanishes and
	// the seed is 10 × total × phase cutoff.
	ice := s.phases[1].GlobalIndex(0)
	assert.InDelta(t, 10.0*1.0*chem.PhaseCutoff, s.deltaMol[ice], 1e-25)
}

func TestActivatePhaseConservesElements(t *testing.T) {
	s := buildSolver(t, iceProblem(0, -260))
	refreshPotentials(t, s)

	ok, err := s.popPhaseStepSizes(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.activatePhase(1))

	assert.Equal(t, 1, s.stats.PhasePops)
	assert.True(t, s.phases[1].Existence().Exists())

	s.updateAbundances()
	assert.True(t, s.elementAbundancesOK(true),
		"a pop moves matter through the stoichiometry, never creates it")
}

// ---------------------------------------------------------------------------
// multi-species stability iteration
// ---------------------------------------------------------------------------

func TestStabilityFunctionSign(t *testing.T) {
	// Favorable condensation: F > 0.
	s := buildSolver(t, liquidProblem(-600))
	refreshPotentials(t, s)
	require.True(t, s.popPhasePossible(1))

	f, err := s.phaseStabilityTest(1)
	require.NoError(t, err)
	assert.Positive(t, f)

	// Unfavorable: F < 0 and the phase is not selected.
	s2 := buildSolver(t, liquidProblem(600))
	refreshPotentials(t, s2)
	f2, err := s2.phaseStabilityTest(1)
	require.NoError(t, err)
	assert.Negative(t, f2)

	iph, err := s2.selectPopPhase()
	require.NoError(t, err)
	assert.Equal(t, -1, iph)
}

func TestStabilityDeterministic(t *testing.T) {
	// Identical states must produce bit-identical stability functions:
	// the pop decision may not depend on anything but the state.
	sa := buildSolver(t, liquidProblem(-600))
	refreshPotentials(t, sa)
	fa, err := sa.phaseStabilityTest(1)
	require.NoError(t, err)

	sb := buildSolver(t, liquidProblem(-600))
	refreshPotentials(t, sb)
	fb, err := sb.phaseStabilityTest(1)
	require.NoError(t, err)

	assert.Equal(t, fa, fb)
	assert.Equal(t, 2, sa.stats.StabilityTests+sb.stats.StabilityTests)
}

func TestStabilityRestartsFromCreationEstimate(t *testing.T) {
	// A second evaluation resumes from the stored composition and lands on
	// the same fixed point.
	s := buildSolver(t, liquidProblem(-600))
	refreshPotentials(t, s)

	f1, err := s.phaseStabilityTest(1)
	require.NoError(t, err)
	f2, err := s.phaseStabilityTest(1)
	require.NoError(t, err)
	assert.InDelta(t, f1, f2, 1e-2*math.Abs(f1))
}

func TestPopBlockedByEmptyComponents(t *testing.T) {
	// With no matter in the gas, even a strongly favorable liquid cannot
	// be popped: every formation reaction drains an empty component.
	p := liquidProblem(-600)
	p.InitialMoles = []float64{0, 0, 0, 0}
	s, err := newSolver(p, gatherOptions())
	require.NoError(t, err)
	require.NoError(t, s.prepOneTime(p))
	require.NoError(t, s.prep())
	refreshPotentials(t, s)

	assert.False(t, s.popPhasePossible(1))
	iph, err := s.selectPopPhase()
	require.NoError(t, err)
	assert.Equal(t, -1, iph)
}

func TestPopStepSizesMultiSpecies(t *testing.T) {
	s := buildSolver(t, liquidProblem(-600))
	refreshPotentials(t, s)

	ok, err := s.popPhaseStepSizes(1)
	require.NoError(t, err)
	require.True(t, ok)

	ph := s.phases[1]
	for m := 0; m < ph.NumSpecies(); m++ {
		k := ph.GlobalIndex(m)
		if k < s.nc {
			continue
		}
		assert.Positive(t, s.deltaMol[k], "member %d", m)
		assert.Contains(t,
			[]chem.SpeciesStatus{chem.StatusMajor, chem.StatusMinor},
			s.status[k])
	}
}

func TestPopProblemGroups(t *testing.T) {
	// Every absent phase gets a group seeded with itself.
	s := buildSolver(t, liquidProblem(-600))
	groups := s.popProblemGroups()
	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0][0])
}
