// SPDX-License-Identifier: MIT
// Package equil: sentinel error set.

package equil

import "errors"

var (
	// ErrNilProblem is returned by Solve for a nil problem.
	ErrNilProblem = errors.New("equil: nil problem")

	// ErrBadCounts is returned when a problem has no elements, no species,
	// or no phases.
	ErrBadCounts = errors.New("equil: element, species, and phase counts must be positive")

	// ErrMismatchedSizes is returned when per-species or per-element slices
	// disagree with the declared problem shape.
	ErrMismatchedSizes = errors.New("equil: mismatched problem dimensions")

	// ErrBadSpecies is returned for a species with an out-of-range phase
	// index, a missing thermo provider, or non-finite data.
	ErrBadSpecies = errors.New("equil: invalid species specification")

	// ErrIllPosed is returned when the summed element goals vanish: the
	// problem as stated contains no matter to equilibrate.
	ErrIllPosed = errors.New("equil: element abundance goals sum to zero")

	// ErrRankDeficient is returned when no linearly independent component
	// basis can be extracted from the formula matrix.
	ErrRankDeficient = errors.New("equil: formula matrix is rank deficient")

	// ErrSingularCorrection is returned when the component submatrix of the
	// element-balance correction system cannot be factorized.
	ErrSingularCorrection = errors.New("equil: singular element correction system")
)
