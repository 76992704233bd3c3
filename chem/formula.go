// SPDX-License-Identifier: MIT

package chem

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// FormulaMatrix holds the element × species stoichiometric coefficients for
// one equilibrium problem. Row e, column k is the number of "element e" units
// carried by one molecule of species k (for charge rows: the species charge).
//
// The matrix is sized once per problem shape and mutated only by the solver's
// basis optimizer, which swaps whole species columns and element rows while
// reordering the problem. All abundance products skip interfacial-voltage
// pseudo-species, which carry no mass.
type FormulaMatrix struct {
	ne, ns int
	a      *mat.Dense
}

// NewFormulaMatrix allocates a zeroed ne × ns formula matrix.
// Returns ErrBadCounts when either dimension is non-positive.
func NewFormulaMatrix(numElements, numSpecies int) (*FormulaMatrix, error) {
	if numElements <= 0 || numSpecies <= 0 {
		return nil, ErrBadCounts
	}
	return &FormulaMatrix{
		ne: numElements,
		ns: numSpecies,
		a:  mat.NewDense(numElements, numSpecies, nil),
	}, nil
}

// NumElements returns the number of constraint rows.
func (f *FormulaMatrix) NumElements() int { return f.ne }

// NumSpecies returns the number of species columns.
func (f *FormulaMatrix) NumSpecies() int { return f.ns }

// At returns the coefficient of element e in species k.
// Out-of-range indices panic; the solver always iterates within bounds.
func (f *FormulaMatrix) At(e, k int) float64 { return f.a.At(e, k) }

// Set assigns the coefficient of element e in species k.
// Returns ErrOutOfRange for bad indices and ErrNaNInf for non-finite values.
func (f *FormulaMatrix) Set(e, k int, v float64) error {
	if e < 0 || e >= f.ne || k < 0 || k >= f.ns {
		return ErrOutOfRange
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrNaNInf
	}
	f.a.Set(e, k, v)

	return nil
}

// Dense exposes the backing matrix for read-only linear algebra
// (basis elimination, component-system solves). Callers must not mutate it.
func (f *FormulaMatrix) Dense() *mat.Dense { return f.a }

// Abundances computes dst[e] = Σ_k a[e][k]·moles[k] over all species whose
// unknown is a mole number, for every constraint row. This is the left-hand
// side of the solver's conservation invariant.
// Returns ErrDimensionMismatch when slice lengths disagree with the matrix.
func (f *FormulaMatrix) Abundances(moles []float64, unknown []UnknownType, dst []float64) error {
	if len(moles) < f.ns || len(unknown) < f.ns || len(dst) < f.ne {
		return ErrDimensionMismatch
	}
	for e := 0; e < f.ne; e++ {
		sum := 0.0
		for k := 0; k < f.ns; k++ {
			if unknown[k] != UnknownVoltage {
				sum += f.a.At(e, k) * moles[k]
			}
		}
		dst[e] = sum
	}

	return nil
}

// PhaseAbundances computes the element totals contributed by a single phase:
// dst[e] = Σ_{k: phaseOf[k]==iph} a[e][k]·moles[k], voltage unknowns skipped.
func (f *FormulaMatrix) PhaseAbundances(moles []float64, unknown []UnknownType, phaseOf []int, iph int, dst []float64) error {
	if len(moles) < f.ns || len(unknown) < f.ns || len(phaseOf) < f.ns || len(dst) < f.ne {
		return ErrDimensionMismatch
	}
	for e := 0; e < f.ne; e++ {
		sum := 0.0
		for k := 0; k < f.ns; k++ {
			if phaseOf[k] == iph && unknown[k] != UnknownVoltage {
				sum += f.a.At(e, k) * moles[k]
			}
		}
		dst[e] = sum
	}

	return nil
}

// SpeciesSize returns Σ_e |a[e][k]|, a per-species stoichiometric weight used
// as a damping scale. Species with an all-zero column report 1.
func (f *FormulaMatrix) SpeciesSize(k int) float64 {
	sz := 0.0
	for e := 0; e < f.ne; e++ {
		sz += math.Abs(f.a.At(e, k))
	}
	if sz == 0.0 {
		sz = 1.0
	}

	return sz
}

// RowSigns reports, for constraint row e, how many species columns are
// nonzero and whether any coefficient is negative (a "multi-signed" row).
// Voltage pseudo-species are excluded from the scan.
func (f *FormulaMatrix) RowSigns(e int, unknown []UnknownType) (nonZero int, multiSign bool) {
	for k := 0; k < f.ns; k++ {
		if unknown[k] == UnknownVoltage {
			continue
		}
		v := f.a.At(e, k)
		if v < 0.0 {
			multiSign = true
		}
		if v != 0.0 {
			nonZero++
		}
	}

	return nonZero, multiSign
}

// SwapSpecies exchanges species columns i and j in place. Used by the basis
// optimizer while reordering species so components come first.
func (f *FormulaMatrix) SwapSpecies(i, j int) {
	if i == j {
		return
	}
	for e := 0; e < f.ne; e++ {
		vi, vj := f.a.At(e, i), f.a.At(e, j)
		f.a.Set(e, i, vj)
		f.a.Set(e, j, vi)
	}
}

// SwapElements exchanges constraint rows i and j in place. Used by the
// element rearrangement step when phantom elements are present.
func (f *FormulaMatrix) SwapElements(i, j int) {
	if i == j {
		return
	}
	for k := 0; k < f.ns; k++ {
		vi, vj := f.a.At(i, k), f.a.At(j, k)
		f.a.Set(i, k, vj)
		f.a.Set(j, k, vi)
	}
}
