// SPDX-License-Identifier: MIT

package equil_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/equilib/chem"
	"github.com/katalvlaran/equilib/equil"
	"github.com/katalvlaran/equilib/thermo"
)

func constThermo(g0 float64) *thermo.SpeciesThermo {
	return &thermo.SpeciesThermo{
		G0Model:   thermo.Gibbs0Constant,
		G0Ref:     g0,
		StarModel: thermo.GStarConstant,
		VolModel:  thermo.VolConstant,
		Vol0:      0.02,
	}
}

func ordinary(name string, goal float64) chem.Element {
	return chem.Element{Name: name, Type: chem.ElemOrdinaryPositive, Active: true, Goal: goal}
}

// ---------------------------------------------------------------------------
// validation
// ---------------------------------------------------------------------------

func TestSolveValidation(t *testing.T) {
	_, err := equil.Solve(nil)
	require.ErrorIs(t, err, equil.ErrNilProblem)

	_, err = equil.Solve(&equil.Problem{})
	require.ErrorIs(t, err, equil.ErrBadCounts)

	// Formula row length disagrees with the element count.
	p := &equil.Problem{
		Elements: []chem.Element{ordinary("N", 2)},
		Species: []equil.SpeciesSpec{
			{Name: "N2", Formula: []float64{2, 0}, Phase: 0, Thermo: constThermo(0)},
		},
		Phases:      []equil.PhaseSpec{{Name: "gas"}},
		Temperature: 300,
		Pressure:    101325,
	}
	_, err = equil.Solve(p)
	require.ErrorIs(t, err, equil.ErrMismatchedSizes)

	// Phase index out of range.
	p.Species[0].Formula = []float64{2}
	p.Species[0].Phase = 3
	_, err = equil.Solve(p)
	require.ErrorIs(t, err, equil.ErrBadSpecies)

	// Zero goals everywhere: nothing to equilibrate.
	p.Species[0].Phase = 0
	p.Elements[0].Goal = 0
	_, err = equil.Solve(p)
	require.ErrorIs(t, err, equil.ErrIllPosed)
}

func TestOptionValidationPanics(t *testing.T) {
	assert.Panics(t, func() { equil.WithMaxIterations(0) })
	assert.Panics(t, func() { equil.WithTolerances(0, 1e-6) })
	assert.Panics(t, func() { equil.WithTolerances(1e-8, math.Inf(1)) })
	assert.Panics(t, func() { equil.WithStepper(nil) })
	assert.Panics(t, func() { equil.WithDebugLogging(nil, 1) })
}

// ---------------------------------------------------------------------------
// full solves
// ---------------------------------------------------------------------------

func TestSolveSingleSpeciesExact(t *testing.T) {
	// One species, one element, already at the goal: the solve must
	// converge immediately without the corrector touching anything.
	p := &equil.Problem{
		Elements: []chem.Element{ordinary("N", 2)},
		Species: []equil.SpeciesSpec{
			{Name: "N2", Formula: []float64{2}, Phase: 0, Thermo: constThermo(0)},
		},
		Phases:       []equil.PhaseSpec{{Name: "gas", Gas: true}},
		InitialMoles: []float64{1},
		Temperature:  300,
		Pressure:     101325,
	}
	res, err := equil.Solve(p)
	require.NoError(t, err)

	assert.Equal(t, equil.Converged, res.Status)
	assert.Equal(t, 1, res.Stats.Iterations)
	assert.Equal(t, 1.0, res.MoleNumbers[0])
	assert.Equal(t, 1.0, res.PhaseMoles[0])
	assert.Equal(t, []float64{1.0}, res.MoleFractions[0])
	assert.Zero(t, res.Stats.PhasePops)
	assert.Zero(t, res.Stats.ConsistencyRepairs)
}

func TestSolveFromZeroInitialState(t *testing.T) {
	// No initial guess at all: the corrector must materialize the goals.
	p := &equil.Problem{
		Elements: []chem.Element{ordinary("N", 2)},
		Species: []equil.SpeciesSpec{
			{Name: "N2", Formula: []float64{2}, Phase: 0, Thermo: constThermo(0)},
		},
		Phases:      []equil.PhaseSpec{{Name: "gas", Gas: true}},
		Temperature: 300,
		Pressure:    101325,
	}
	res, err := equil.Solve(p)
	require.NoError(t, err)

	assert.Equal(t, equil.Converged, res.Status)
	assert.Equal(t, 1.0, res.MoleNumbers[0])
}

func TestSolvePhaseTransition(t *testing.T) {
	// Vapor with a strongly favorable condensed phase: essentially all
	// matter must end up as ice, born through a phase pop.
	p := &equil.Problem{
		Elements: []chem.Element{ordinary("W", 1)},
		Species: []equil.SpeciesSpec{
			{Name: "vapor", Formula: []float64{1}, Phase: 0, Thermo: constThermo(0)},
			{Name: "ice", Formula: []float64{1}, Phase: 1, Thermo: constThermo(-2600)},
		},
		Phases:       []equil.PhaseSpec{{Name: "gas", Gas: true}, {Name: "solid"}},
		InitialMoles: []float64{1, 0},
		Temperature:  260,
		Pressure:     101325,
	}
	res, err := equil.Solve(p)
	require.NoError(t, err)

	assert.Equal(t, equil.Converged, res.Status)
	assert.Equal(t, 1, res.Stats.PhasePops)
	assert.Greater(t, res.MoleNumbers[1], 0.999, "ice captures the mass")
	assert.Less(t, res.MoleNumbers[0], 1e-3)

	// Conservation across the transition.
	total := res.MoleNumbers[0] + res.MoleNumbers[1]
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestSolveUnfavorablePhaseStaysOut(t *testing.T) {
	p := &equil.Problem{
		Elements: []chem.Element{ordinary("W", 1)},
		Species: []equil.SpeciesSpec{
			{Name: "vapor", Formula: []float64{1}, Phase: 0, Thermo: constThermo(0)},
			{Name: "ice", Formula: []float64{1}, Phase: 1, Thermo: constThermo(2600)},
		},
		Phases:       []equil.PhaseSpec{{Name: "gas", Gas: true}, {Name: "solid"}},
		InitialMoles: []float64{1, 0},
		Temperature:  260,
		Pressure:     101325,
	}
	res, err := equil.Solve(p)
	require.NoError(t, err)

	assert.Equal(t, equil.Converged, res.Status)
	assert.Zero(t, res.Stats.PhasePops)
	assert.Zero(t, res.MoleNumbers[1])
	assert.Equal(t, 1.0, res.MoleNumbers[0])
	assert.Zero(t, res.PhaseMoles[1])
}

func TestSolveGasEquilibrium(t *testing.T) {
	// Water/peroxide/hydrogen gas mixture: conservation and
	// non-negativity hold at the solution, and every species is present.
	p := &equil.Problem{
		Elements: []chem.Element{ordinary("H", 6), ordinary("O", 4)},
		Species: []equil.SpeciesSpec{
			{Name: "H2O", Formula: []float64{2, 1}, Phase: 0, Thermo: constThermo(-3000)},
			{Name: "H2O2", Formula: []float64{2, 2}, Phase: 0, Thermo: constThermo(-2000)},
			{Name: "H2", Formula: []float64{2, 0}, Phase: 0, Thermo: constThermo(0)},
		},
		Phases:       []equil.PhaseSpec{{Name: "gas", Gas: true}},
		InitialMoles: []float64{3, 1.5, 0},
		Temperature:  1000,
		Pressure:     101325,
	}
	res, err := equil.Solve(p)
	require.NoError(t, err)

	require.Equal(t, equil.Converged, res.Status)
	for k, n := range res.MoleNumbers {
		assert.GreaterOrEqual(t, n, 0.0, "species %d", k)
	}
	// Element totals at the solution.
	h := 2*res.MoleNumbers[0] + 2*res.MoleNumbers[1] + 2*res.MoleNumbers[2]
	o := res.MoleNumbers[0] + 2*res.MoleNumbers[1]
	assert.InDelta(t, 6.0, h, 6e-9)
	assert.InDelta(t, 4.0, o, 4e-9)

	// Fractions per phase sum to one.
	sum := 0.0
	for _, x := range res.MoleFractions[0] {
		sum += x
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestSolveChargeNeutralBrine(t *testing.T) {
	p := &equil.Problem{
		Elements: []chem.Element{
			ordinary("Na", 1),
			ordinary("Cl", 1),
			{Name: "charge", Type: chem.ElemChargeNeutrality, Active: true, Goal: 0},
		},
		Species: []equil.SpeciesSpec{
			{Name: "Na+", Formula: []float64{1, 0, 1}, Charge: 1, Phase: 0, Thermo: constThermo(-1000)},
			{Name: "Cl-", Formula: []float64{0, 1, -1}, Charge: -1, Phase: 0, Thermo: constThermo(-1000)},
		},
		Phases:       []equil.PhaseSpec{{Name: "brine"}},
		InitialMoles: []float64{1.5, 1},
		Temperature:  300,
		Pressure:     101325,
	}
	res, err := equil.Solve(p)
	require.NoError(t, err)

	require.Equal(t, equil.Converged, res.Status)
	assert.InDelta(t, 1.0, res.MoleNumbers[0], 1e-12)
	assert.InDelta(t, 1.0, res.MoleNumbers[1], 1e-12)
	// Net charge at the solution.
	assert.InDelta(t, 0.0, res.MoleNumbers[0]-res.MoleNumbers[1], 1e-11)
}

func TestSolveHonorsIterationCap(t *testing.T) {
	// A deliberately tiny cap on a problem that needs a phase pop plus
	// growth: the solver must stop and report, not error.
	p := &equil.Problem{
		Elements: []chem.Element{ordinary("W", 1)},
		Species: []equil.SpeciesSpec{
			{Name: "vapor", Formula: []float64{1}, Phase: 0, Thermo: constThermo(0)},
			{Name: "ice", Formula: []float64{1}, Phase: 1, Thermo: constThermo(-2600)},
		},
		Phases:       []equil.PhaseSpec{{Name: "gas", Gas: true}, {Name: "solid"}},
		InitialMoles: []float64{1, 0},
		Temperature:  260,
		Pressure:     101325,
	}
	res, err := equil.Solve(p, equil.WithMaxIterations(3))
	require.NoError(t, err)
	assert.Equal(t, equil.FailedConvergence, res.Status)
	assert.Equal(t, 3, res.Stats.Iterations)
}

func TestSolvePreservesElectrodePotential(t *testing.T) {
	// A metal electrode with an interfacial-voltage pseudo-species: the
	// voltage slot holds volts, not moles, so the solve must leave it at
	// the supplied potential while the charged species' chemical
	// potential picks up the charge·F·phi/RT term.
	const phi = 0.5
	p := &equil.Problem{
		Elements: []chem.Element{ordinary("M", 1)},
		Species: []equil.SpeciesSpec{
			{Name: "M(s)", Formula: []float64{1}, Phase: 0, Thermo: constThermo(0)},
			{
				Name:    "e-(interface)",
				Formula: []float64{0},
				Charge:  -1,
				Phase:   0,
				Unknown: chem.UnknownVoltage,
				Thermo:  constThermo(0),
			},
		},
		Phases:       []equil.PhaseSpec{{Name: "metal"}},
		InitialMoles: []float64{1, phi},
		Temperature:  300,
		Pressure:     101325,
	}
	res, err := equil.Solve(p)
	require.NoError(t, err)

	require.Equal(t, equil.Converged, res.Status)
	assert.Equal(t, 1, res.Stats.Iterations)
	assert.Equal(t, phi, res.MoleNumbers[1], "the potential is not a mole number")
	assert.Equal(t, 1.0, res.MoleNumbers[0])

	// mu/RT of the pseudo-species is ssfe + charge·F·phi/RT.
	const faraday = 1.602e-19 * 6.022136736e26
	fdim := faraday / (thermo.GasConstant * 300)
	assert.InDelta(t, -fdim*phi, res.ChemPotentials[1], 1e-10)

	// The voltage slot contributes no matter to its phase.
	assert.Equal(t, 1.0, res.PhaseMoles[0])
	assert.Equal(t, []float64{1.0, 0.0}, res.MoleFractions[0])
}

func TestStepperSkipsVoltageSlots(t *testing.T) {
	// Even a strongly favorable reaction Gibbs energy may not move a
	// voltage slot: mole arithmetic on a potential compounds it without
	// bound.
	ctx := &equil.StepContext{
		MoleNumbers:        []float64{1.0, 0.5},
		DeltaG:             []float64{-30.0},
		Stoich:             func(irxn, comp int) float64 { return 0 },
		NumComponents:      1,
		Status:             []chem.SpeciesStatus{chem.StatusComponent, chem.StatusMinor},
		Unknown:            []chem.UnknownType{chem.UnknownMoleNumber, chem.UnknownVoltage},
		SingleSpeciesPhase: []bool{false, false},
		PhaseOf:            []int{0, 0},
		PhaseMoles:         []float64{1.0},
		TotalMoles:         1.0,
	}
	norm, err := equil.DescentStepper{}.Step(ctx)
	require.NoError(t, err)
	assert.Zero(t, norm)
	assert.Equal(t, 0.5, ctx.MoleNumbers[1])
}

func TestSolveInertDiluentKeepsPhaseAlive(t *testing.T) {
	p := &equil.Problem{
		Elements: []chem.Element{ordinary("N", 2)},
		Species: []equil.SpeciesSpec{
			{Name: "N2", Formula: []float64{2}, Phase: 0, Thermo: constThermo(0)},
		},
		Phases:       []equil.PhaseSpec{{Name: "gas", Gas: true, InertMoles: 0.5}},
		InitialMoles: []float64{1},
		Temperature:  300,
		Pressure:     101325,
	}
	res, err := equil.Solve(p)
	require.NoError(t, err)

	require.Equal(t, equil.Converged, res.Status)
	assert.InDelta(t, 1.5, res.PhaseMoles[0], 1e-12, "diluent counts toward the phase total")
	assert.Equal(t, 1.0, res.MoleNumbers[0])
}
