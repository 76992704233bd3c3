// Package equilib computes multiphase chemical equilibrium by direct
// Gibbs free-energy minimization over species mole numbers.
//
// 🚀 What is equilib?
//
//	A library that brings together everything a closed-system
//	equilibrium calculation needs:
//		• Element accounting: ordinary, electron and lattice constraints,
//		  charge neutrality, phantom rows
//		• Standard-state thermodynamics: pluggable Gibbs, enthalpy and
//		  volume models per species
//		• Phase objects: lazy property caches, existence tracking,
//		  voltage unknowns for electrode phases
//		• The solver: component basis selection, damped descent steps,
//		  element-balance correction and phase birth/death handling
//
// ✨ Why choose equilib?
//
//   - Deterministic – identical inputs give bit-identical trajectories
//   - Conservative – every accepted state satisfies the element goals
//     to round-off, checked each iteration
//   - Extensible – swap in your own Stepper or activity model
//
// Under the hood, everything is organized under four subpackages:
//
//	chem/   — elements, species status, formula-matrix bookkeeping
//	thermo/ — standard-state property models & activity conventions
//	phase/  — per-phase state, caches and existence
//	equil/  — the minimization solver and its public Solve entry point
//
// Quick sketch of a solve:
//
//	problem ──▶ basis ──▶ descend ──▶ correct ──▶ pop phases ──▶ result
//
// Dive into equil's package documentation for the full algorithm notes
// and into examples/ for runnable programs.
//
//	go get github.com/katalvlaran/equilib
package equilib
