// SPDX-License-Identifier: MIT

package thermo

import "math"

// GasConstant is the universal gas constant in J/(kmol·K), 2006 CODATA value.
// Kept at this precision so ideal-gas standard volumes reproduce the
// reference implementation bit for bit.
const GasConstant = 8314.47215

// Gibbs0Model selects the reference-state Gibbs energy correlation.
type Gibbs0Model int

const (
	// Gibbs0Constant: the reference Gibbs energy is a fixed value,
	// independent of temperature.
	Gibbs0Constant Gibbs0Model = iota

	// Gibbs0ConstantCp: constant heat capacity extrapolation from (T0, H0, S0):
	//   H(T) = H0 + (T−T0)·Cp0
	//   S(T) = S0 + Cp0·ln(T/T0)
	//   G(T) = H(T) − T·S(T)
	Gibbs0ConstantCp
)

// GStarModel selects the pressure correction from reference to standard state.
type GStarModel int

const (
	// GStarConstant: no pressure dependence.
	GStarConstant GStarModel = iota

	// GStarIdealGas: adds T·ln(P/Pref) to the reference-state value.
	GStarIdealGas
)

// VolumeModel selects the standard-state molar volume correlation.
type VolumeModel int

const (
	// VolConstant: fixed molar volume Vol0 (condensed phases).
	VolConstant VolumeModel = iota

	// VolIdealGas: R·T/P.
	VolIdealGas
)

// PropertyProvider is the boundary the solver depends on for per-species
// standard-state properties. Gibbs energies are in Kelvin (G/R); divide by T
// to obtain the dimensionless chemical potential used by the solver.
type PropertyProvider interface {
	// Gibbs0R returns the reference-state Gibbs energy G0/R at temperature T.
	Gibbs0R(T float64) (float64, error)
	// GStarR returns the standard-state Gibbs energy G*/R at (T, P).
	GStarR(T, P float64) (float64, error)
	// StandardVolume returns the standard-state molar volume in m³/kmol.
	StandardVolume(T, P float64) (float64, error)
}

// SpeciesThermo is the concrete PropertyProvider: one tagged variant of each
// model family plus the reference data they consume.
//
// The (T, value) memo mirrors the reference behavior: equilibrium solves
// evaluate G0 for every species at a single fixed temperature many times, so
// repeated same-T evaluations short-circuit.
type SpeciesThermo struct {
	G0Model   Gibbs0Model
	StarModel GStarModel
	VolModel  VolumeModel

	// G0Ref is the reference Gibbs energy G0/R (Kelvin) at T0 for
	// Gibbs0Constant, and the H/S anchor is used instead for Gibbs0ConstantCp.
	G0Ref float64
	H0    float64 // reference enthalpy H0/R at T0 (Kelvin)
	S0    float64 // reference entropy S0/R at T0 (dimensionless)
	Cp0   float64 // heat capacity Cp0/R (dimensionless)
	T0    float64 // anchor temperature (Kelvin)

	PRef float64 // reference pressure for the ideal-gas correction (Pa)
	Vol0 float64 // constant molar volume (m³/kmol)

	tSave   float64
	g0Save  float64
	hasMemo bool
}

// Gibbs0R evaluates the reference-state Gibbs energy G0/R at T.
func (st *SpeciesThermo) Gibbs0R(T float64) (float64, error) {
	if T <= 0.0 {
		return 0.0, ErrBadState
	}
	if st.G0Model == Gibbs0Constant {
		return st.G0Ref, nil
	}
	if st.hasMemo && T == st.tSave {
		return st.g0Save, nil
	}

	var g float64
	switch st.G0Model {
	case Gibbs0ConstantCp:
		h := st.H0 + (T-st.T0)*st.Cp0
		s := st.S0 + st.Cp0*math.Log(T/st.T0)
		g = h - T*s
	default:
		return 0.0, ErrUnknownModel
	}

	st.tSave = T
	st.g0Save = g
	st.hasMemo = true

	return g, nil
}

// GStarR evaluates the standard-state Gibbs energy G*/R at (T, P).
func (st *SpeciesThermo) GStarR(T, P float64) (float64, error) {
	if T <= 0.0 || P <= 0.0 {
		return 0.0, ErrBadState
	}
	fe, err := st.Gibbs0R(T)
	if err != nil {
		return 0.0, err
	}
	switch st.StarModel {
	case GStarConstant:
		// no pressure dependence
	case GStarIdealGas:
		pref := st.PRef
		if pref <= 0.0 {
			pref = 101325.0
		}
		fe += T * math.Log(P/pref)
	default:
		return 0.0, ErrUnknownModel
	}

	return fe, nil
}

// StandardVolume evaluates the standard-state molar volume at (T, P).
func (st *SpeciesThermo) StandardVolume(T, P float64) (float64, error) {
	if T <= 0.0 || P <= 0.0 {
		return 0.0, ErrBadState
	}
	switch st.VolModel {
	case VolConstant:
		return st.Vol0, nil
	case VolIdealGas:
		return GasConstant * T / P, nil
	default:
		return 0.0, ErrUnknownModel
	}
}
