// SPDX-License-Identifier: MIT
// Package thermo: sentinel error set.

package thermo

import "errors"

var (
	// ErrUnknownModel is returned when a SpeciesThermo carries a model tag
	// outside the closed variant set. This is a configuration error: there
	// is no fallback evaluation for an unrecognized model.
	ErrUnknownModel = errors.New("thermo: unknown standard-state model")

	// ErrBadState is returned for non-physical evaluation states
	// (non-positive temperature or pressure).
	ErrBadState = errors.New("thermo: non-positive temperature or pressure")

	// ErrDimensionMismatch indicates an activity-coefficient destination
	// slice whose length differs from the composition slice.
	ErrDimensionMismatch = errors.New("thermo: dimension mismatch")
)
