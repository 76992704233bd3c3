// SPDX-License-Identifier: MIT

package thermo

// ActivityModel computes per-species activity coefficients for one phase at
// its current composition. Implementations must be pure functions of the
// composition (plus whatever T, P state they were constructed with): the
// phase model caches their output and re-invokes them only after a
// composition, temperature, pressure, or potential change.
type ActivityModel interface {
	// ActivityCoefficients fills dst with the activity coefficient of each
	// species given mole fractions x. len(dst) must equal len(x).
	ActivityCoefficients(x []float64, dst []float64) error
}

// IdealSolution is the trivial ActivityModel: every coefficient is unity.
// Single-species phases and ideal-gas phases use it.
type IdealSolution struct{}

// ActivityCoefficients sets every entry of dst to 1.
func (IdealSolution) ActivityCoefficients(x []float64, dst []float64) error {
	if len(dst) != len(x) {
		return ErrDimensionMismatch
	}
	for k := range dst {
		dst[k] = 1.0
	}

	return nil
}
