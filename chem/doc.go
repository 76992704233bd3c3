// SPDX-License-Identifier: MIT

// Package chem provides the element/species bookkeeping primitives shared by
// the equilibrium solver: element constraint descriptions, species status and
// unknown-type tags, and the global formula matrix (element × species
// stoichiometry).
//
// What lives here:
//   - Element      — one conservation constraint: a chemical element, a
//     charge-neutrality condition, or an electron-charge condition, together
//     with its target abundance (the "goal").
//   - ElementType  — constraint classification. Ordinary element constraints
//     demand strict relative compliance; zero-goal constraints
//     (charge neutrality, electron charge) tolerate round-off relative to the
//     magnitude of the contributing terms, never relative to the zero goal.
//   - SpeciesStatus / UnknownType — per-species solver tags.
//   - FormulaMatrix — the element × species coefficient matrix with the
//     abundance products the solver's invariants are written against:
//     FormulaMatrix · moleNumbers ≈ goals.
//
// The numeric cutoffs used throughout the solver (minor-species deletion,
// element-abundance floor, phase deletion) are declared here as well, so every
// package agrees on one set of values.
//
// All types in this package are plain data: no goroutines, no locks, no
// hidden globals. A FormulaMatrix is owned by exactly one solver instance.
package chem
