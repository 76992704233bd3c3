// SPDX-License-Identifier: MIT

// Package equil computes multiphase chemical equilibrium at fixed
// temperature and pressure by direct Gibbs-energy minimization over species
// mole numbers.
//
// The algorithm follows the Villars-Cruise-Smith (VCS) family:
//
//  1. Component selection. A linearly independent basis of "component"
//     species is chosen by priority-ordered Gaussian elimination over the
//     element×species formula matrix; every other species is assigned a
//     formation reaction from the components via a stoichiometric matrix.
//  2. Descent. A Stepper (pluggable, see WithStepper) moves non-component
//     mole numbers downhill along their formation-reaction Gibbs energies,
//     adjusting component moles through the stoichiometry.
//  3. Element-balance correction. Accumulated drift from the linear
//     conservation constraints A·n = b is removed by a staged corrector:
//     closed-form single-species fixes, bounds clipping, an nc×nc linear
//     solve, and a set of ad-hoc repairs for zero-goal constraints.
//  4. Phase stability. Absent phases are tested for reappearance: a
//     closed-form criterion for single-species phases and a damped
//     successive-substitution iteration for multi-species phases. At most
//     one phase is activated per outer iteration.
//
// The outer loop repeats until the stepper reports no significant motion,
// the corrector reports compliance, and no absent phase wants to appear.
//
// Solvers hold no global state and are not safe for concurrent use; run one
// Solve per goroutine. The only cancellation mechanism is the iteration cap.
package equil
