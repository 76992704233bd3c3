// SPDX-License-Identifier: MIT
// Package chem: sentinel error set.
// All constructors and mutators MUST return these sentinels and tests MUST
// check them via errors.Is. Panics are reserved for programmer errors in
// private helpers.

package chem

import "errors"

var (
	// ErrBadCounts is returned when a species, element, or phase count is
	// non-positive. Creating any globally sized structure with such a count
	// is a configuration error, fatal per the solver's error taxonomy.
	ErrBadCounts = errors.New("chem: non-positive species/element/phase count")

	// ErrOutOfRange indicates an element or species index outside the
	// matrix bounds. Public indexers return this, they do not panic.
	ErrOutOfRange = errors.New("chem: index out of range")

	// ErrNaNInf signals a NaN or ±Inf stoichiometric coefficient. The
	// formula matrix must stay finite; ingestion rejects such values.
	ErrNaNInf = errors.New("chem: NaN or Inf coefficient")

	// ErrDimensionMismatch indicates a mole-number or destination slice
	// whose length does not match the matrix dimensions.
	ErrDimensionMismatch = errors.New("chem: dimension mismatch")
)
