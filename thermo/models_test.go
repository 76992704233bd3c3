// SPDX-License-Identifier: MIT

package thermo_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/equilib/thermo"
)

func TestGibbs0Constant(t *testing.T) {
	st := &thermo.SpeciesThermo{G0Model: thermo.Gibbs0Constant, G0Ref: -120.5}
	g, err := st.Gibbs0R(298.15)
	require.NoError(t, err)
	assert.Equal(t, -120.5, g)

	// Temperature independent.
	g2, err := st.Gibbs0R(1500.0)
	require.NoError(t, err)
	assert.Equal(t, g, g2)
}

func TestGibbs0ConstantCp(t *testing.T) {
	st := &thermo.SpeciesThermo{
		G0Model: thermo.Gibbs0ConstantCp,
		H0:      1000.0, S0: 10.0, Cp0: 3.5, T0: 300.0,
	}
	T := 600.0
	h := 1000.0 + (T-300.0)*3.5
	s := 10.0 + 3.5*math.Log(T/300.0)
	want := h - T*s

	g, err := st.Gibbs0R(T)
	require.NoError(t, err)
	assert.InDelta(t, want, g, 1e-12)

	// Memoized second evaluation at the same T.
	g2, err := st.Gibbs0R(T)
	require.NoError(t, err)
	assert.Equal(t, g, g2)
}

func TestGStarIdealGasPressureCorrection(t *testing.T) {
	st := &thermo.SpeciesThermo{
		G0Model:   thermo.Gibbs0Constant,
		G0Ref:     -50.0,
		StarModel: thermo.GStarIdealGas,
		PRef:      101325.0,
	}
	T, P := 400.0, 2.0*101325.0
	g, err := st.GStarR(T, P)
	require.NoError(t, err)
	assert.InDelta(t, -50.0+T*math.Log(2.0), g, 1e-12)
}

func TestStandardVolume(t *testing.T) {
	constV := &thermo.SpeciesThermo{VolModel: thermo.VolConstant, Vol0: 0.018}
	v, err := constV.StandardVolume(298.15, 1e5)
	require.NoError(t, err)
	assert.Equal(t, 0.018, v)

	gas := &thermo.SpeciesThermo{VolModel: thermo.VolIdealGas}
	v, err = gas.StandardVolume(300.0, 1e5)
	require.NoError(t, err)
	assert.InDelta(t, thermo.GasConstant*300.0/1e5, v, 1e-12)
}

func TestBadStateAndUnknownModel(t *testing.T) {
	st := &thermo.SpeciesThermo{G0Model: thermo.Gibbs0Model(99)}
	_, err := st.Gibbs0R(-1.0)
	require.True(t, errors.Is(err, thermo.ErrBadState))

	_, err = st.Gibbs0R(300.0)
	require.True(t, errors.Is(err, thermo.ErrUnknownModel))

	st2 := &thermo.SpeciesThermo{StarModel: thermo.GStarModel(99)}
	_, err = st2.GStarR(300.0, 1e5)
	require.True(t, errors.Is(err, thermo.ErrUnknownModel))

	st3 := &thermo.SpeciesThermo{VolModel: thermo.VolumeModel(99)}
	_, err = st3.StandardVolume(300.0, 1e5)
	require.True(t, errors.Is(err, thermo.ErrUnknownModel))
}

func TestIdealSolutionActivity(t *testing.T) {
	x := []float64{0.2, 0.3, 0.5}
	dst := make([]float64, 3)
	require.NoError(t, thermo.IdealSolution{}.ActivityCoefficients(x, dst))
	assert.Equal(t, []float64{1, 1, 1}, dst)

	short := make([]float64, 2)
	err := thermo.IdealSolution{}.ActivityCoefficients(x, short)
	require.True(t, errors.Is(err, thermo.ErrDimensionMismatch))
}
