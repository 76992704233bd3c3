// SPDX-License-Identifier: MIT
// Package phase: sentinel error set.

package phase

import "errors"

var (
	// ErrBadConfig is returned by New for an empty member list, mismatched
	// per-member slices, or negative inert moles.
	ErrBadConfig = errors.New("phase: invalid phase configuration")

	// ErrDimensionMismatch indicates a composition or destination slice
	// whose length disagrees with the phase's species count.
	ErrDimensionMismatch = errors.New("phase: dimension mismatch")

	// ErrZeroComposition is returned when a trusted mole-fraction state is
	// pushed with an all-zero fraction vector; there is nothing to
	// normalize against. Programmer error at the call site.
	ErrZeroComposition = errors.New("phase: mole fractions sum to zero")

	// ErrBadStateTag is returned when a gather or trusted set is invoked
	// with a state tag the operation does not accept.
	ErrBadStateTag = errors.New("phase: inappropriate state tag")

	// ErrInconsistent reports a phase whose existence flag contradicts its
	// total moles. In debug mode the phase panics instead; in release mode
	// the state is repaired, the Repairs counter incremented, and this
	// error is NOT returned — it is reserved for operations that cannot
	// repair (trusted sets on zeroed phases).
	ErrInconsistent = errors.New("phase: existence flag inconsistent with moles")
)
