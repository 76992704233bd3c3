// SPDX-License-Identifier: MIT

// Package phase implements the per-phase state holder used by the
// equilibrium solver: species membership, mole fractions, total moles
// (including any inert diluent), existence status, electric potential, and
// the lazily cached thermodynamic properties.
//
// Caching contract (cooperative, NOT concurrency-safe):
//
//	Each cached quantity — activity coefficients, reference Gibbs energies,
//	standard-state Gibbs energies, standard and partial molar volumes — is
//	guarded by its own "up to date" boolean. Any state change that could
//	affect a quantity clears its flag; the next read recomputes it from a
//	pure function of (temperature, pressure, composition). The only ordering
//	guarantee required is single-thread sequencing: invalidation
//	happens-before the next read because both happen on the same goroutine.
//
// Ownership: a Phase belongs to exactly one solver instance. There is no
// back-pointer to the owner; gathering the phase's species from the owner's
// global mole-number buffers is an explicit operation
// (SetMolesFromGlobal) that takes the buffer at the call site.
//
// Existence is a small state machine:
//
//	ExistNo ↔ ExistYes, with two absorbing refinements —
//	ExistAlways for phases carrying inert diluent moles (they exist even at
//	zero free moles), and ExistZeroedSS for single-species phases explicitly
//	zeroed by the solver.
//
// The phase also carries a "creation composition": the best current estimate
// of its mole-fraction distribution if it were to come into existence. The
// estimate is refreshed from every accepted positive-moles state and consumed
// by the solver's phase-stability iteration so repeated pop attempts do not
// restart from scratch.
package phase
