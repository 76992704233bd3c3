// SPDX-License-Identifier: MIT

package phase

// Existence is the phase-existence state machine value.
type Existence int

const (
	// ExistZeroedSS marks a single-species phase explicitly zeroed by the
	// solver. It is distinct from ExistNo so the solver can tell "never
	// been here" from "driven out".
	ExistZeroedSS Existence = -1

	// ExistNo: the phase has zero moles and is absent.
	ExistNo Existence = 0

	// ExistYes: the phase has positive moles.
	ExistYes Existence = 1

	// ExistAlways: the phase carries inert diluent moles and exists even
	// when every solved species in it is zero.
	ExistAlways Existence = 2
)

// Exists reports whether the phase is currently present.
func (e Existence) Exists() bool { return e > 0 }

// String returns the state name for diagnostics.
func (e Existence) String() string {
	switch e {
	case ExistZeroedSS:
		return "zeroed-single-species"
	case ExistNo:
		return "absent"
	case ExistYes:
		return "present"
	case ExistAlways:
		return "always-present"
	default:
		return "unknown"
	}
}

// StateTag names which solver buffer a gathered composition came from.
type StateTag int

const (
	// StateOld is the accepted state buffer.
	StateOld StateTag = iota
	// StateNew is the trial state buffer.
	StateNew
	// StateTmp marks a scratch composition pushed by a caller.
	StateTmp
	// StateStability marks a trial composition pushed by the phase
	// stability iteration for an absent phase.
	StateStability
)

// String returns the tag name for diagnostics.
func (t StateTag) String() string {
	switch t {
	case StateOld:
		return "old"
	case StateNew:
		return "new"
	case StateTmp:
		return "tmp"
	case StateStability:
		return "stability"
	default:
		return "unknown"
	}
}
