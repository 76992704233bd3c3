// SPDX-License-Identifier: MIT

package chem

// ElementType classifies a conservation constraint row.
type ElementType int

const (
	// ElemOrdinaryPositive is a normal element: every species carries a
	// non-negative count of it, and its goal abundance is positive.
	// Compliance is demanded to 1e-12 relative to the goal.
	ElemOrdinaryPositive ElementType = iota

	// ElemChargeNeutrality is a phase charge-neutrality condition. Its goal
	// is always exactly zero and its formula-matrix row is multi-signed, so
	// compliance is judged against the magnitude of the contributing terms.
	ElemChargeNeutrality

	// ElemElectronCharge tracks the electron balance for charged species.
	// Like charge neutrality, the goal is zero and round-off is tolerated
	// relative to the contributing terms.
	ElemElectronCharge
)

// String returns the constraint-type name for diagnostics.
func (t ElementType) String() string {
	switch t {
	case ElemOrdinaryPositive:
		return "ordinary-positive"
	case ElemChargeNeutrality:
		return "charge-neutrality"
	case ElemElectronCharge:
		return "electron-charge"
	default:
		return "unknown"
	}
}

// ZeroGoal reports whether the constraint's target abundance is pinned to
// exactly zero by its type.
func (t ElementType) ZeroGoal() bool {
	return t == ElemChargeNeutrality || t == ElemElectronCharge
}

// Element describes one conservation constraint: its name, type, whether it
// participates in the solve, and the target abundance the solution must hit.
type Element struct {
	Name   string
	Type   ElementType
	Active bool
	Goal   float64
}

// SpeciesStatus tags a species' current role in the solve.
type SpeciesStatus int

const (
	// StatusComponent marks a species chosen into the linearly independent
	// basis. Its mole number is an independent unknown.
	StatusComponent SpeciesStatus = iota

	// StatusMajor marks a non-component species with a significant mole
	// number, treated with the full update machinery.
	StatusMajor

	// StatusMinor marks a non-component species with a small mole number,
	// eligible for cheaper update formulas.
	StatusMinor

	// StatusZeroedSS marks the single species of a single-species phase
	// whose phase has been driven to zero moles.
	StatusZeroedSS

	// StatusActiveButZero marks a species in a multi-species phase whose
	// mole number has been driven to zero while its phase persists.
	StatusActiveButZero
)

// String returns the status name for diagnostics.
func (st SpeciesStatus) String() string {
	switch st {
	case StatusComponent:
		return "component"
	case StatusMajor:
		return "major"
	case StatusMinor:
		return "minor"
	case StatusZeroedSS:
		return "zeroed-ss-phase"
	case StatusActiveButZero:
		return "active-but-zero"
	default:
		return "unknown"
	}
}

// UnknownType distinguishes what a species' solution unknown means.
type UnknownType int

const (
	// UnknownMoleNumber is the ordinary case: the unknown is the species'
	// mole number in kmol.
	UnknownMoleNumber UnknownType = iota

	// UnknownVoltage marks an interfacial-voltage pseudo-species: its
	// "mole number" slot actually holds an electric potential in volts, and
	// it is excluded from all element-abundance and phase-total sums.
	UnknownVoltage
)

// Numeric cutoffs shared across the solver. The values are deliberate:
// changing any of them changes which species get zeroed and when phases are
// considered for deletion or birth.
const (
	// MinorCutoff is the mole-number level below which a species is deleted
	// from the active set (and below which zero-goal constraint residuals
	// are considered compliant for single-signed rows).
	MinorCutoff = 1.0e-32

	// ElementAbsCutoff is the element-abundance floor used by the phase
	// stability pre-check: a component at or below half this value cannot
	// supply a popping phase.
	ElementAbsCutoff = 1.0e-45

	// PhaseCutoff is the relative total-moles level at which a phase is
	// treated as gone; phase births are seeded at ten times this level.
	PhaseCutoff = 1.0e-13

	// GoalRelTol is the relative compliance tolerance for constraints with
	// a nonzero goal.
	GoalRelTol = 1.0e-12

	// ZeroGoalScaleTol is the compliance tolerance for multi-signed
	// zero-goal constraints, applied to the largest contributing term.
	ZeroGoalScaleTol = 1.0e-11
)
