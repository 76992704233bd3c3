// SPDX-License-Identifier: MIT

package equil

import (
	"github.com/katalvlaran/equilib/chem"
	"github.com/katalvlaran/equilib/thermo"
)

// Status classifies the outcome of a solve.
type Status int

const (
	// Converged: the stepper stalled, element balances comply, and no
	// absent phase wants to appear.
	Converged Status = iota

	// RangeSpaceError: the balances spanned by the component basis comply,
	// but a constraint outside the basis range space cannot be satisfied.
	// The problem specification, not the solver, has to change.
	RangeSpaceError

	// FailedConvergence: the iteration cap was reached first.
	FailedConvergence
)

// String returns the status name for diagnostics.
func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case RangeSpaceError:
		return "range-space-error"
	case FailedConvergence:
		return "failed-convergence"
	default:
		return "unknown"
	}
}

// CorrectionOutcome is the return classification of the element-balance
// corrector.
type CorrectionOutcome int

const (
	// CorrectionUnchanged: abundances complied on entry; nothing was
	// touched.
	CorrectionUnchanged CorrectionOutcome = iota

	// CorrectionGood: mole numbers changed and the abundances now comply.
	CorrectionGood

	// CorrectionStillBad: mole numbers changed but a constraint is still
	// violated.
	CorrectionStillBad

	// CorrectionZeroedComponent: like CorrectionStillBad, and a component
	// species was driven to zero on the way.
	CorrectionZeroedComponent
)

// String returns the outcome name for diagnostics.
func (c CorrectionOutcome) String() string {
	switch c {
	case CorrectionUnchanged:
		return "unchanged"
	case CorrectionGood:
		return "corrected"
	case CorrectionStillBad:
		return "still-violated"
	case CorrectionZeroedComponent:
		return "component-zeroed"
	default:
		return "unknown"
	}
}

// SpeciesSpec describes one species of a Problem.
type SpeciesSpec struct {
	Name string

	// Formula holds the species' coefficient for every element constraint,
	// in Problem.Elements order (charge rows included).
	Formula []float64

	// Charge is the species electric charge in units of |e|.
	Charge float64

	// MolecularWeight in kg/kmol. Informational; conservation runs on the
	// formula matrix.
	MolecularWeight float64

	// Phase indexes into Problem.Phases.
	Phase int

	// Unknown distinguishes mole-number species from interfacial-voltage
	// pseudo-species.
	Unknown chem.UnknownType

	// Thermo provides the standard-state properties.
	Thermo *thermo.SpeciesThermo
}

// PhaseSpec describes one candidate phase of a Problem. Phase membership is
// derived from SpeciesSpec.Phase.
type PhaseSpec struct {
	Name string

	// InertMoles is an unreactive diluent; a positive value keeps the
	// phase in existence regardless of the solved species.
	InertMoles float64

	// Activity is the phase's activity-coefficient model. Nil means ideal.
	Activity thermo.ActivityModel

	// Gas marks the (at most one) ideal-gas phase. Informational.
	Gas bool
}

// Problem is a complete fixed-(T, P) equilibrium problem statement.
type Problem struct {
	Elements []chem.Element
	Species  []SpeciesSpec
	Phases   []PhaseSpec

	// InitialMoles optionally seeds the species mole numbers, in Species
	// order. Empty means start from zero everywhere (the element goals
	// alone then determine the solution).
	InitialMoles []float64

	// Temperature in K and Pressure in Pa.
	Temperature float64
	Pressure    float64
}

// SolverStats counts the work a solve performed.
type SolverStats struct {
	Iterations         int
	BasisOptimizations int
	CorrectionCalls    int
	StabilityTests     int
	PhasePops          int
	ConsistencyRepairs int
}

// Result reports a finished solve. All slices use the caller's original
// species and phase ordering.
type Result struct {
	Status Status

	// MoleNumbers per species (kmol); voltage pseudo-species carry their
	// potential (V) instead.
	MoleNumbers []float64

	// PhaseMoles per phase, inert diluent included.
	PhaseMoles []float64

	// MoleFractions per phase, over that phase's member species in
	// ascending Problem.Species order.
	MoleFractions [][]float64

	// ChemPotentials per species, as the dimensionless mu/RT.
	ChemPotentials []float64

	Stats SolverStats
}

// StepContext is the view of the solver state a Stepper works on. The
// stepper mutates MoleNumbers in place; everything else is read-only.
// Species are ordered components-first, so species nc+i is the i'th
// formation reaction.
type StepContext struct {
	// MoleNumbers holds the current accepted mole numbers.
	MoleNumbers []float64

	// DeltaG holds the dimensionless Gibbs energy of each formation
	// reaction.
	DeltaG []float64

	// Stoich returns the change of component comp per unit of formation
	// reaction irxn.
	Stoich func(irxn, comp int) float64

	// NumComponents is the size of the component basis.
	NumComponents int

	// Status tags each species' current role.
	Status []chem.SpeciesStatus

	// Unknown distinguishes mole-number slots from interfacial-voltage
	// slots. A voltage slot holds a potential in volts, not moles; steppers
	// must never apply mole arithmetic to it.
	Unknown []chem.UnknownType

	// SingleSpeciesPhase marks species that are alone in their phase.
	SingleSpeciesPhase []bool

	// PhaseOf maps each species to its phase index.
	PhaseOf []int

	// PhaseMoles holds the current total moles of each phase.
	PhaseMoles []float64

	// TotalMoles is the mole sum over all phases.
	TotalMoles float64
}

// Stepper advances the mole numbers one descent step along the formation-
// reaction Gibbs energies. It returns the largest relative mole-number
// change it applied, which the driver compares against the major tolerance.
type Stepper interface {
	Step(ctx *StepContext) (float64, error)
}
