// SPDX-License-Identifier: MIT

package equil

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/equilib/chem"
)

// basisIndepTol is the relative residual below which a candidate formula
// column counts as linearly dependent on the basis chosen so far.
const basisIndepTol = 1.0e-10

// optimizeBasis chooses the component species and builds the
// stoichiometric matrix of the formation reactions.
//
// Steps:
//  1. Order the candidate species by descending priority (mole numbers, or
//     the caller's estimate), voltage pseudo-species last.
//  2. Modified Gram-Schmidt over the formula columns in that order; a
//     candidate whose residual after projection onto the accepted basis
//     falls below basisIndepTol of its own norm is linearly dependent and
//     skipped. Accepted species are swapped to the front, so after the
//     scan species [0, nc) are the components.
//  3. Rearrange element rows so the leading nc×nc component submatrix is
//     nonsingular (phantom elements sink to the bottom).
//  4. Back-solve the component submatrix for every non-component column:
//     sc = −C⁻¹·a_k, so creating one unit of species k moves component j
//     by sc[j].
func (s *solver) optimizeBasis(priority []float64) error {
	if len(priority) != s.ns {
		return ErrMismatchedSizes
	}
	s.stats.BasisOptimizations++

	// 1. Candidate order.
	order := make([]int, s.ns)
	for k := range order {
		order[k] = k
	}
	sort.SliceStable(order, func(a, b int) bool {
		ka, kb := order[a], order[b]
		va, vb := priority[ka], priority[kb]
		if s.unknown[ka] == chem.UnknownVoltage {
			va = math.Inf(-1)
		}
		if s.unknown[kb] == chem.UnknownVoltage {
			vb = math.Inf(-1)
		}
		return va > vb
	})

	// 2. Gram-Schmidt selection with swap-to-front. The orthonormalized
	// basis lives in q; the species themselves are permuted in place, so
	// order[] entries must be remapped as swaps happen.
	pos := make([]int, s.ns)
	for k := range pos {
		pos[k] = k
	}
	q := make([][]float64, 0, s.ne)
	col := make([]float64, s.ne)
	jr := 0
	for _, cand := range order {
		if jr >= s.ne {
			break
		}
		k := pos[cand]
		for e := 0; e < s.ne; e++ {
			col[e] = s.fm.At(e, k)
		}
		orig := floats.Norm(col, 2)
		if orig == 0 {
			continue
		}
		// Project out the accepted directions (twice, for re-orthogonality).
		for pass := 0; pass < 2; pass++ {
			for _, qi := range q {
				d := floats.Dot(qi, col)
				floats.AddScaled(col, -d, qi)
			}
		}
		res := floats.Norm(col, 2)
		if res <= basisIndepTol*orig {
			continue
		}
		qi := make([]float64, s.ne)
		for e := range qi {
			qi[e] = col[e] / res
		}
		q = append(q, qi)

		// Swap the accepted species into slot jr, keeping pos coherent.
		old := k
		s.swapSpecies(jr, old)
		for c := range pos {
			if pos[c] == jr {
				pos[c] = old
			} else if pos[c] == old {
				pos[c] = jr
			}
		}
		jr++
	}
	if jr == 0 {
		return ErrRankDeficient
	}
	s.nc = jr

	if err := s.rearrangeElements(); err != nil {
		return err
	}

	return s.buildStoich()
}

// rearrangeElements permutes the constraint rows so the top-left nc×nc
// submatrix over the components is nonsingular. Rows that turn out to be
// linear combinations of the ones above them (phantom elements, e.g. a
// charge row in a neutral-species problem) end up below row nc and are
// excluded from the correction solves, though they are still checked for
// compliance.
func (s *solver) rearrangeElements() error {
	// Gaussian elimination with row pivoting on a scratch copy of the
	// component columns.
	w := mat.NewDense(s.ne, s.nc, nil)
	for e := 0; e < s.ne; e++ {
		for j := 0; j < s.nc; j++ {
			w.Set(e, j, s.fm.At(e, j))
		}
	}
	for j := 0; j < s.nc; j++ {
		// Pick the largest remaining pivot in column j.
		best, bestAbs := -1, 0.0
		for e := j; e < s.ne; e++ {
			if a := math.Abs(w.At(e, j)); a > bestAbs {
				best, bestAbs = e, a
			}
		}
		if best < 0 || bestAbs == 0 {
			return ErrRankDeficient
		}
		if best != j {
			s.swapElements(j, best)
			r1 := mat.Row(nil, j, w)
			r2 := mat.Row(nil, best, w)
			w.SetRow(j, r2)
			w.SetRow(best, r1)
		}
		piv := w.At(j, j)
		for e := j + 1; e < s.ne; e++ {
			f := w.At(e, j) / piv
			if f == 0 {
				continue
			}
			for c := j; c < s.nc; c++ {
				w.Set(e, c, w.At(e, c)-f*w.At(j, c))
			}
		}
	}

	return nil
}

// buildStoich solves C·x = a_k for every non-component species k and
// stores sc = −x.
func (s *solver) buildStoich() error {
	nrxn := s.ns - s.nc
	s.sc = make([][]float64, nrxn)
	for i := range s.sc {
		s.sc[i] = make([]float64, s.nc)
	}
	if nrxn == 0 {
		return nil
	}

	c := mat.NewDense(s.nc, s.nc, nil)
	for e := 0; e < s.nc; e++ {
		for j := 0; j < s.nc; j++ {
			c.Set(e, j, s.fm.At(e, j))
		}
	}
	var lu mat.LU
	lu.Factorize(c)

	rhs := mat.NewDense(s.nc, nrxn, nil)
	for e := 0; e < s.nc; e++ {
		for i := 0; i < nrxn; i++ {
			rhs.Set(e, i, s.fm.At(e, s.nc+i))
		}
	}
	var x mat.Dense
	if err := lu.SolveTo(&x, false, rhs); err != nil {
		return ErrRankDeficient
	}
	for i := 0; i < nrxn; i++ {
		for j := 0; j < s.nc; j++ {
			s.sc[i][j] = -x.At(j, i)
		}
	}

	return nil
}

// stoich returns the change of component j per unit of formation reaction
// irxn; the accessor form is what StepContext exposes.
func (s *solver) stoich(irxn, j int) float64 { return s.sc[irxn][j] }
