// SPDX-License-Identifier: MIT

package equil

import (
	"fmt"
	"math"

	"github.com/katalvlaran/equilib/chem"
	"github.com/katalvlaran/equilib/phase"
	"github.com/katalvlaran/equilib/thermo"
)

// faradayDim converts charge·potential to a dimensionless chemical-potential
// contribution: F/(R·T) with F in C/kmol.
func faradayDim(T float64) float64 {
	const faraday = 1.602e-19 * 6.022136736e26
	return faraday / (thermo.GasConstant * T)
}

// wellPosedFloor is the minimum summed magnitude of the element goals; a
// problem below it contains no matter to distribute.
const wellPosedFloor = 1.0e-20

// solver holds the full working state of one solve. Species are stored in an
// internal order (components first after basis optimization); spPerm and
// elemPerm map internal indices back to the caller's ordering.
type solver struct {
	ne, ns, np int
	nc         int

	fm       *chem.FormulaMatrix
	elems    []chem.Element
	goals    []float64
	elemAb   []float64
	elemPerm []int
	spPerm   []int

	// Per-species state, internal order.
	molOld   []float64
	deltaMol []float64
	ssfe     []float64
	feOld    []float64
	feDefic  []float64
	dgOld    []float64 // per formation reaction
	dgDefic  []float64
	actCoeff []float64
	status   []chem.SpeciesStatus
	unknown  []chem.UnknownType
	charge   []float64
	wt       []float64
	spSize   []float64
	props    []*thermo.SpeciesThermo
	phaseOf  []int
	ssPhase  []bool

	// Stoichiometry of the formation reactions: sc[irxn][j] is the change
	// of component j per unit of species nc+irxn. Built once per basis.
	sc [][]float64

	phases    []*phase.Phase
	inert     []float64
	tPhase    []float64
	totalMole float64
	phScratch []float64

	T, P float64

	opts  Options
	stats SolverStats
}

// newSolver validates the problem, sizes every buffer, and loads the
// initial state. No basis has been chosen yet.
func newSolver(p *Problem, opts Options) (*solver, error) {
	if p == nil {
		return nil, ErrNilProblem
	}
	ne, ns, np := len(p.Elements), len(p.Species), len(p.Phases)
	if ne <= 0 || ns <= 0 || np <= 0 {
		return nil, ErrBadCounts
	}
	if len(p.InitialMoles) != 0 && len(p.InitialMoles) != ns {
		return nil, ErrMismatchedSizes
	}
	if !(p.Temperature > 0) || !(p.Pressure > 0) {
		return nil, fmt.Errorf("%w: temperature and pressure must be positive", ErrBadSpecies)
	}

	fm, err := chem.NewFormulaMatrix(ne, ns)
	if err != nil {
		return nil, err
	}

	s := &solver{
		ne: ne, ns: ns, np: np,
		fm:       fm,
		elems:    append([]chem.Element(nil), p.Elements...),
		goals:    make([]float64, ne),
		elemAb:   make([]float64, ne),
		elemPerm: make([]int, ne),
		spPerm:   make([]int, ns),
		molOld:   make([]float64, ns),
		deltaMol: make([]float64, ns),
		ssfe:     make([]float64, ns),
		feOld:    make([]float64, ns),
		feDefic:  make([]float64, ns),
		dgOld:    make([]float64, ns),
		dgDefic:  make([]float64, ns),
		actCoeff: make([]float64, ns),
		status:   make([]chem.SpeciesStatus, ns),
		unknown:  make([]chem.UnknownType, ns),
		charge:   make([]float64, ns),
		wt:       make([]float64, ns),
		spSize:   make([]float64, ns),
		props:    make([]*thermo.SpeciesThermo, ns),
		phaseOf:  make([]int, ns),
		ssPhase:  make([]bool, ns),
		inert:    make([]float64, np),
		tPhase:   make([]float64, np),
		T:        p.Temperature,
		P:        p.Pressure,
		opts:     opts,
	}

	for e := range p.Elements {
		s.goals[e] = p.Elements[e].Goal
		s.elemPerm[e] = e
	}

	members := make([]int, np)
	for k, sp := range p.Species {
		if len(sp.Formula) != ne {
			return nil, fmt.Errorf("%w: species %q formula has %d rows, want %d",
				ErrMismatchedSizes, sp.Name, len(sp.Formula), ne)
		}
		if sp.Phase < 0 || sp.Phase >= np {
			return nil, fmt.Errorf("%w: species %q phase index %d", ErrBadSpecies, sp.Name, sp.Phase)
		}
		if sp.Thermo == nil {
			return nil, fmt.Errorf("%w: species %q has no thermo provider", ErrBadSpecies, sp.Name)
		}
		for e, v := range sp.Formula {
			if err := fm.Set(e, k, v); err != nil {
				return nil, fmt.Errorf("species %q element %d: %w", sp.Name, e, err)
			}
		}
		s.spPerm[k] = k
		s.unknown[k] = sp.Unknown
		s.charge[k] = sp.Charge
		s.wt[k] = sp.MolecularWeight
		s.props[k] = sp.Thermo
		s.phaseOf[k] = sp.Phase
		s.spSize[k] = fm.SpeciesSize(k)
		members[sp.Phase]++
	}
	maxMembers := 0
	for iph, n := range members {
		if n == 0 {
			return nil, fmt.Errorf("%w: phase %q has no member species", ErrBadCounts, p.Phases[iph].Name)
		}
		if p.Phases[iph].InertMoles < 0 {
			return nil, fmt.Errorf("%w: phase %q inert moles negative", ErrBadSpecies, p.Phases[iph].Name)
		}
		s.inert[iph] = p.Phases[iph].InertMoles
		if n > maxMembers {
			maxMembers = n
		}
	}
	s.phScratch = make([]float64, maxMembers)
	for k := range s.ssPhase {
		s.ssPhase[k] = members[s.phaseOf[k]] == 1
	}

	if len(p.InitialMoles) == ns {
		for k, n := range p.InitialMoles {
			if math.IsNaN(n) || math.IsInf(n, 0) ||
				(n < 0 && s.unknown[k] != chem.UnknownVoltage) {
				return nil, fmt.Errorf("%w: initial moles of species %q", ErrBadSpecies, p.Species[k].Name)
			}
			s.molOld[k] = n
		}
	}

	return s, nil
}

// wellPosed checks that the active ordinary-element goals carry matter.
func (s *solver) wellPosed() error {
	sum := 0.0
	for e, el := range s.elems {
		if el.Active && !el.Type.ZeroGoal() {
			sum += math.Abs(s.goals[e])
		}
	}
	if sum < wellPosedFloor {
		return ErrIllPosed
	}

	return nil
}

// prepOneTime runs the shape-dependent setup: standard-state potentials,
// basis selection, and phase-model construction (with internal species
// indices, so it must run after the basis permutation settles).
func (s *solver) prepOneTime(p *Problem) error {
	if err := s.wellPosed(); err != nil {
		return err
	}

	for k := range s.props {
		g, err := s.props[k].GStarR(s.T, s.P)
		if err != nil {
			return fmt.Errorf("species %d standard state: %w", s.spPerm[k], err)
		}
		s.ssfe[k] = g / s.T
	}

	// Basis priority: current moles, or a synthesized uniform loading when
	// the caller gave none (zeroed back afterwards by not touching molOld).
	priority := make([]float64, s.ns)
	any := false
	for k, n := range s.molOld {
		if s.unknown[k] == chem.UnknownVoltage {
			continue
		}
		priority[k] = n
		if n > 0 {
			any = true
		}
	}
	if !any {
		// No estimate at all: rank the candidates by ascending standard-state
		// chemical potential, so the thermodynamically favored species anchor
		// the basis. The synthesized values only order the scan; they are
		// never written back to the state.
		for k := range priority {
			if s.unknown[k] != chem.UnknownVoltage {
				priority[k] = -s.ssfe[k]
			}
		}
	}
	if err := s.optimizeBasis(priority); err != nil {
		return err
	}

	return s.buildPhases(p)
}

// buildPhases constructs the per-phase models over the internal species
// ordering.
func (s *solver) buildPhases(p *Problem) error {
	s.phases = make([]*phase.Phase, s.np)
	for iph := range p.Phases {
		var globals []int
		var th []*thermo.SpeciesThermo
		var volt []bool
		for k := 0; k < s.ns; k++ {
			if s.phaseOf[k] != iph {
				continue
			}
			globals = append(globals, k)
			th = append(th, s.props[k])
			volt = append(volt, s.unknown[k] == chem.UnknownVoltage)
		}
		ph, err := phase.New(phase.Config{
			Name:          p.Phases[iph].Name,
			GlobalIndices: globals,
			Thermo:        th,
			Voltage:       volt,
			Activity:      p.Phases[iph].Activity,
			InertMoles:    p.Phases[iph].InertMoles,
			Debug:         s.opts.debug,
		})
		if err != nil {
			return fmt.Errorf("phase %q: %w", p.Phases[iph].Name, err)
		}
		if err := ph.SetStateTP(s.T, s.P); err != nil {
			return fmt.Errorf("phase %q: %w", p.Phases[iph].Name, err)
		}
		s.phases[iph] = ph
	}

	return nil
}

// prep re-zeros the per-solve work arrays, recomputes phase totals, and
// classifies species statuses from the current mole numbers.
func (s *solver) prep() error {
	for k := range s.deltaMol {
		s.deltaMol[k] = 0
	}
	s.tmoles()
	if err := s.syncPhases(); err != nil {
		return err
	}
	s.classifySpecies()

	return nil
}

// tmoles rebuilds the per-phase totals and the grand total from molOld.
func (s *solver) tmoles() {
	copy(s.tPhase, s.inert)
	for k := 0; k < s.ns; k++ {
		if s.unknown[k] == chem.UnknownVoltage {
			continue
		}
		if s.molOld[k] > 0 {
			s.tPhase[s.phaseOf[k]] += s.molOld[k]
		}
	}
	s.totalMole = 0
	for _, t := range s.tPhase {
		s.totalMole += t
	}
}

// syncPhases pushes molOld into every phase model as the accepted state.
func (s *solver) syncPhases() error {
	for iph, ph := range s.phases {
		if err := ph.SetMolesFromGlobal(phase.StateOld, s.molOld); err != nil {
			return fmt.Errorf("phase %q: %w", ph.Name(), err)
		}
		s.tPhase[iph] = ph.TotalMoles()
	}
	s.totalMole = 0
	for _, t := range s.tPhase {
		s.totalMole += t
	}

	return nil
}

// classifySpecies assigns the per-species role tags from the current state.
func (s *solver) classifySpecies() {
	for k := 0; k < s.ns; k++ {
		if k < s.nc {
			s.status[k] = chem.StatusComponent
			continue
		}
		if s.unknown[k] == chem.UnknownVoltage {
			s.status[k] = chem.StatusMinor
			continue
		}
		n := s.molOld[k]
		t := s.tPhase[s.phaseOf[k]]
		switch {
		case n <= 0 && s.ssPhase[k]:
			s.status[k] = chem.StatusZeroedSS
		case n <= 0:
			s.status[k] = chem.StatusActiveButZero
		case t > 0 && n < s.opts.tolMinor*t:
			s.status[k] = chem.StatusMinor
		default:
			s.status[k] = chem.StatusMajor
		}
	}
}

// updateChemPotentials rebuilds feOld from the standard-state values, the
// activity coefficients, and the current composition:
//
//	fe_k = ssfe_k + ln(gamma_k · n_k / t_phase)
//
// with n_k floored at the minor cutoff so zeroed species keep a finite,
// strongly favorable potential. Single-species phases use fe = ssfe, and
// voltage pseudo-species add charge·F·phi/RT instead of a mixing term.
func (s *solver) updateChemPotentials() error {
	fdim := faradayDim(s.T)
	for iph, ph := range s.phases {
		nsp := ph.NumSpecies()
		buf := s.phScratch[:nsp]
		if err := ph.ActivityCoefficients(buf); err != nil {
			return fmt.Errorf("phase %q: %w", ph.Name(), err)
		}
		for m := 0; m < nsp; m++ {
			k := ph.GlobalIndex(m)
			s.actCoeff[k] = buf[m]
			switch {
			case s.unknown[k] == chem.UnknownVoltage:
				s.feOld[k] = s.ssfe[k] + s.charge[k]*fdim*ph.ElectricPotential()
			case s.ssPhase[k]:
				s.feOld[k] = s.ssfe[k]
			case s.tPhase[iph] <= 0:
				// Absent phase: unit-activity baseline, so the stability
				// machinery sees the formation energy at x = 1.
				s.feOld[k] = s.ssfe[k]
			default:
				t := s.tPhase[iph]
				n := s.molOld[k]
				if n <= chem.MinorCutoff {
					n = chem.MinorCutoff
				}
				s.feOld[k] = s.ssfe[k] + math.Log(s.actCoeff[k]*n/t)
			}
		}
	}

	return nil
}

// updateDeltaG rebuilds the formation-reaction Gibbs energies:
//
//	dg_irxn = fe_k + sum_j sc[irxn][j]·fe_j,  k = nc + irxn.
func (s *solver) updateDeltaG() {
	for irxn := 0; irxn < s.ns-s.nc; irxn++ {
		k := s.nc + irxn
		dg := s.feOld[k]
		for j := 0; j < s.nc; j++ {
			if c := s.sc[irxn][j]; c != 0 {
				dg += c * s.feOld[j]
			}
		}
		s.dgOld[irxn] = dg
	}
}

// swapSpecies exchanges internal species slots i and j across every
// per-species buffer and the formula matrix.
func (s *solver) swapSpecies(i, j int) {
	if i == j {
		return
	}
	s.fm.SwapSpecies(i, j)
	s.molOld[i], s.molOld[j] = s.molOld[j], s.molOld[i]
	s.deltaMol[i], s.deltaMol[j] = s.deltaMol[j], s.deltaMol[i]
	s.ssfe[i], s.ssfe[j] = s.ssfe[j], s.ssfe[i]
	s.feOld[i], s.feOld[j] = s.feOld[j], s.feOld[i]
	s.feDefic[i], s.feDefic[j] = s.feDefic[j], s.feDefic[i]
	s.actCoeff[i], s.actCoeff[j] = s.actCoeff[j], s.actCoeff[i]
	s.status[i], s.status[j] = s.status[j], s.status[i]
	s.unknown[i], s.unknown[j] = s.unknown[j], s.unknown[i]
	s.charge[i], s.charge[j] = s.charge[j], s.charge[i]
	s.wt[i], s.wt[j] = s.wt[j], s.wt[i]
	s.spSize[i], s.spSize[j] = s.spSize[j], s.spSize[i]
	s.props[i], s.props[j] = s.props[j], s.props[i]
	s.phaseOf[i], s.phaseOf[j] = s.phaseOf[j], s.phaseOf[i]
	s.ssPhase[i], s.ssPhase[j] = s.ssPhase[j], s.ssPhase[i]
	s.spPerm[i], s.spPerm[j] = s.spPerm[j], s.spPerm[i]
}

// swapElements exchanges element rows i and j across the element buffers
// and the formula matrix.
func (s *solver) swapElements(i, j int) {
	if i == j {
		return
	}
	s.fm.SwapElements(i, j)
	s.elems[i], s.elems[j] = s.elems[j], s.elems[i]
	s.goals[i], s.goals[j] = s.goals[j], s.goals[i]
	s.elemAb[i], s.elemAb[j] = s.elemAb[j], s.elemAb[i]
	s.elemPerm[i], s.elemPerm[j] = s.elemPerm[j], s.elemPerm[i]
}

// debugf prints gated progress lines.
func (s *solver) debugf(level int, format string, args ...any) {
	if s.opts.debugW != nil && s.opts.debugLevel >= level {
		fmt.Fprintf(s.opts.debugW, format+"\n", args...)
	}
}
