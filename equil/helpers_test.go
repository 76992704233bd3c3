// SPDX-License-Identifier: MIT

package equil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/equilib/chem"
	"github.com/katalvlaran/equilib/thermo"
)

// ---------------------------------------------------------------------------
// shared fixtures
// ---------------------------------------------------------------------------

// constThermo is a pressure-independent standard state with G0/R = g0 kelvin,
// which keeps hand-computed reaction Gibbs energies trivial: mu0/RT = g0/T.
func constThermo(g0 float64) *thermo.SpeciesThermo {
	return &thermo.SpeciesThermo{
		G0Model:   thermo.Gibbs0Constant,
		G0Ref:     g0,
		StarModel: thermo.GStarConstant,
		VolModel:  thermo.VolConstant,
		Vol0:      0.02,
	}
}

func element(name string, goal float64) chem.Element {
	return chem.Element{Name: name, Type: chem.ElemOrdinaryPositive, Active: true, Goal: goal}
}

// peroxideProblem needs the general linear correction: both elements are
// carried by two components each, so none of the closed-form shortcuts
// apply.
//
//	Elements H, O. Species H2O [2,1], H2O2 [2,2], H2 [2,0], one gas phase.
//	Goals H=6, O=4 (2 H2O + 1 H2O2).
func peroxideProblem(initH2O, initH2O2, initH2 float64) *Problem {
	return &Problem{
		Elements: []chem.Element{element("H", 6), element("O", 4)},
		Species: []SpeciesSpec{
			{Name: "H2O", Formula: []float64{2, 1}, Phase: 0, Thermo: constThermo(-3000)},
			{Name: "H2O2", Formula: []float64{2, 2}, Phase: 0, Thermo: constThermo(-2000)},
			{Name: "H2", Formula: []float64{2, 0}, Phase: 0, Thermo: constThermo(0)},
		},
		Phases:       []PhaseSpec{{Name: "gas", Gas: true}},
		InitialMoles: []float64{initH2O, initH2O2, initH2},
		Temperature:  1000,
		Pressure:     101325,
	}
}

// iceProblem has one element and two single-species phases linked by a
// 1:1 formation reaction; dG of the condensed species is set through g0Ice.
func iceProblem(g0Vapor, g0Ice float64) *Problem {
	return &Problem{
		Elements: []chem.Element{element("W", 1)},
		Species: []SpeciesSpec{
			{Name: "vapor", Formula: []float64{1}, Phase: 0, Thermo: constThermo(g0Vapor)},
			{Name: "ice", Formula: []float64{1}, Phase: 1, Thermo: constThermo(g0Ice)},
		},
		Phases:       []PhaseSpec{{Name: "gas", Gas: true}, {Name: "solid"}},
		InitialMoles: []float64{1, 0},
		Temperature:  260,
		Pressure:     101325,
	}
}

// saltProblem carries a charge-neutrality row with a zero goal.
func saltProblem(na, cl float64) *Problem {
	return &Problem{
		Elements: []chem.Element{
			element("Na", 1),
			element("Cl", 1),
			{Name: "charge", Type: chem.ElemChargeNeutrality, Active: true, Goal: 0},
		},
		Species: []SpeciesSpec{
			{Name: "Na+", Formula: []float64{1, 0, 1}, Charge: 1, Phase: 0, Thermo: constThermo(-1000)},
			{Name: "Cl-", Formula: []float64{0, 1, -1}, Charge: -1, Phase: 0, Thermo: constThermo(-1000)},
		},
		Phases:       []PhaseSpec{{Name: "brine"}},
		InitialMoles: []float64{na, cl},
		Temperature:  300,
		Pressure:     101325,
	}
}

// buildSolver runs the full setup pipeline and hands back the internal
// state for white-box tests.
func buildSolver(t *testing.T, p *Problem, opts ...Option) *solver {
	t.Helper()
	s, err := newSolver(p, gatherOptions(opts...))
	require.NoError(t, err)
	require.NoError(t, s.prepOneTime(p))
	require.NoError(t, s.prep())

	return s
}

// refreshPotentials recomputes potentials and reaction Gibbs energies from
// the current accepted state.
func refreshPotentials(t *testing.T, s *solver) {
	t.Helper()
	require.NoError(t, s.syncPhases())
	require.NoError(t, s.updateChemPotentials())
	s.updateDeltaG()
}
