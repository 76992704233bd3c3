// SPDX-License-Identifier: MIT

// Package thermo supplies the standard-state property models and the
// activity-coefficient provider boundary consumed by the phase model and the
// equilibrium solver.
//
// Standard-state evaluation is a closed set of tagged variants dispatched by
// a switch, not an open virtual hierarchy:
//
//   - Gibbs0Model:  Gibbs0Constant | Gibbs0ConstantCp
//   - GStarModel:   GStarConstant  | GStarIdealGas (T·ln(P/Pref) correction)
//   - VolumeModel:  VolConstant    | VolIdealGas   (R·T/P)
//
// SpeciesThermo bundles one variant of each per species and implements
// PropertyProvider, the interface the solver actually depends on, so callers
// with richer property databases can substitute their own implementation.
//
// All Gibbs energies here are dimensionless (divided by R·T's R, i.e. in
// Kelvin units divided by T at the point of use), matching the solver's
// internal convention.
//
// ActivityModel is the per-phase activity-coefficient provider; IdealSolution
// is the trivial implementation returning unity for every species.
package thermo
