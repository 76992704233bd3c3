// SPDX-License-Identifier: MIT

package phase

import (
	"math"

	"github.com/katalvlaran/equilib/thermo"
)

// renormTol is the tolerance on |Σx − 1| above which a pushed mole-fraction
// vector is renormalized before being stored.
const renormTol = 1e-13

// Config describes one phase to New. All per-member slices must have the same
// length as GlobalIndices.
type Config struct {
	// Name is a free-form label used in diagnostics.
	Name string

	// GlobalIndices maps each member species to its index in the solver's
	// global mole-number buffers.
	GlobalIndices []int

	// Thermo holds the standard-state property provider for each member.
	Thermo []*thermo.SpeciesThermo

	// Voltage marks members whose unknown is an electric potential rather
	// than a mole number (electron species in a metal electrode).
	Voltage []bool

	// Activity computes the phase's activity coefficients. Nil means ideal.
	Activity thermo.ActivityModel

	// InertMoles is the mole count of an unreactive diluent. A positive
	// value pins the phase's existence at ExistAlways.
	InertMoles float64

	// Debug makes internal consistency violations panic instead of being
	// silently repaired.
	Debug bool
}

// Phase holds the state of one candidate phase: membership, composition,
// total moles, existence, electric potential, and five lazily recomputed
// property caches.
type Phase struct {
	name    string
	globals []int
	voltage []bool
	props   []*thermo.SpeciesThermo
	act     thermo.ActivityModel

	temperature float64
	pressure    float64
	potential   float64

	fractions  []float64
	creation   []float64
	totalMoles float64
	inertMoles float64
	existence  Existence
	state      StateTag

	// Property caches, each with its own validity flag.
	ac      []float64
	g0      []float64
	gStar   []float64
	volStar []float64
	volPM   []float64
	acOK      bool
	g0OK      bool
	gStarOK   bool
	volStarOK bool
	volPMOK   bool

	totalVol float64

	debug   bool
	repairs int
}

// New validates cfg and builds a Phase in the absent state (or ExistAlways
// when inert moles are present) with a uniform creation composition.
func New(cfg Config) (*Phase, error) {
	n := len(cfg.GlobalIndices)
	if n == 0 {
		return nil, ErrBadConfig
	}
	if len(cfg.Thermo) != n {
		return nil, ErrBadConfig
	}
	if cfg.Voltage != nil && len(cfg.Voltage) != n {
		return nil, ErrBadConfig
	}
	if cfg.InertMoles < 0 || math.IsNaN(cfg.InertMoles) || math.IsInf(cfg.InertMoles, 0) {
		return nil, ErrBadConfig
	}
	for _, st := range cfg.Thermo {
		if st == nil {
			return nil, ErrBadConfig
		}
	}

	p := &Phase{
		name:       cfg.Name,
		globals:    append([]int(nil), cfg.GlobalIndices...),
		props:      append([]*thermo.SpeciesThermo(nil), cfg.Thermo...),
		act:        cfg.Activity,
		fractions:  make([]float64, n),
		creation:   make([]float64, n),
		inertMoles: cfg.InertMoles,
		totalMoles: cfg.InertMoles,
		ac:         make([]float64, n),
		g0:         make([]float64, n),
		gStar:      make([]float64, n),
		volStar:    make([]float64, n),
		volPM:      make([]float64, n),
		debug:      cfg.Debug,
	}
	if cfg.Voltage != nil {
		p.voltage = append([]bool(nil), cfg.Voltage...)
	} else {
		p.voltage = make([]bool, n)
	}
	if p.act == nil {
		p.act = thermo.IdealSolution{}
	}
	if cfg.InertMoles > 0 {
		p.existence = ExistAlways
	}

	// Until a real composition arrives, assume the phase would appear with
	// its species equally distributed.
	for k := range p.creation {
		p.creation[k] = 1.0 / float64(n)
		p.fractions[k] = 1.0 / float64(n)
	}

	return p, nil
}

// Name returns the phase label.
func (p *Phase) Name() string { return p.name }

// NumSpecies returns the member count.
func (p *Phase) NumSpecies() int { return len(p.globals) }

// SingleSpecies reports whether the phase holds exactly one species.
func (p *Phase) SingleSpecies() bool { return len(p.globals) == 1 }

// GlobalIndex returns the solver-global index of member k.
func (p *Phase) GlobalIndex(k int) int { return p.globals[k] }

// Temperature returns the current temperature.
func (p *Phase) Temperature() float64 { return p.temperature }

// Pressure returns the current pressure.
func (p *Phase) Pressure() float64 { return p.pressure }

// TotalMoles returns the phase's total moles including any inert diluent.
func (p *Phase) TotalMoles() float64 { return p.totalMoles }

// Existence returns the current existence state.
func (p *Phase) Existence() Existence { return p.existence }

// State returns the tag of the solver buffer the composition came from.
func (p *Phase) State() StateTag { return p.state }

// Repairs returns how many silent consistency repairs have been applied.
// A nonzero count in production is worth investigating.
func (p *Phase) Repairs() int { return p.repairs }

// SetStateTP sets temperature and pressure, invalidating every property
// cache. T must be positive and P must be positive and finite.
func (p *Phase) SetStateTP(T, P float64) error {
	if !(T > 0) || !(P > 0) || math.IsInf(T, 0) || math.IsInf(P, 0) {
		return ErrBadConfig
	}
	if T == p.temperature && P == p.pressure {
		return nil
	}
	p.temperature = T
	p.pressure = P
	p.acOK = false
	p.g0OK = false
	p.gStarOK = false
	p.volStarOK = false
	p.volPMOK = false

	return nil
}

// ElectricPotential returns the phase's Galvani potential.
func (p *Phase) ElectricPotential() float64 { return p.potential }

// SetElectricPotential sets the Galvani potential. Everything except the
// reference Gibbs energies depends on it, so g0 stays valid and the other
// four caches are cleared.
func (p *Phase) SetElectricPotential(phi float64) {
	p.potential = phi
	p.acOK = false
	p.gStarOK = false
	p.volStarOK = false
	p.volPMOK = false
}

// SetMoleFractions stores a composition, renormalizing when the sum strays
// from unity by more than 1e-13. Total moles are untouched. Composition-
// dependent caches (activity coefficients, partial molar volumes) are
// cleared.
func (p *Phase) SetMoleFractions(x []float64) error {
	if len(x) != len(p.fractions) {
		return ErrDimensionMismatch
	}
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	if sum == 0 {
		return ErrZeroComposition
	}
	if math.Abs(sum-1.0) > renormTol {
		for k := range p.fractions {
			p.fractions[k] = x[k] / sum
		}
	} else {
		copy(p.fractions, x)
	}
	p.state = StateTmp
	p.acOK = false
	p.volPMOK = false

	return nil
}

// SetMoleFractionsState is the trusted variant of SetMoleFractions used by
// the solver: it additionally records which buffer the composition belongs
// to. Pushing a non-stability composition onto an explicitly zeroed
// single-species phase is a contract violation and returns ErrInconsistent.
func (p *Phase) SetMoleFractionsState(tag StateTag, x []float64) error {
	if p.existence == ExistZeroedSS && tag != StateStability {
		return ErrInconsistent
	}
	if err := p.SetMoleFractions(x); err != nil {
		return err
	}
	p.state = tag

	return nil
}

// MoleFraction returns the stored fraction of member k.
func (p *Phase) MoleFraction(k int) float64 { return p.fractions[k] }

// MoleFractions copies the stored composition into dst.
func (p *Phase) MoleFractions(dst []float64) error {
	if len(dst) != len(p.fractions) {
		return ErrDimensionMismatch
	}
	copy(dst, p.fractions)

	return nil
}

// SetMolesFromGlobal gathers the phase's members out of a solver-global
// mole-number buffer and rebuilds composition, total moles, and existence.
// Only the accepted (StateOld) and trial (StateNew) buffers are legal
// sources.
//
// Steps:
//  1. Accumulate total moles: inert diluent plus max(0, n) over every
//     mole-number member. Voltage members contribute nothing; their buffer
//     slot holds the phase potential instead.
//  2. Derive fractions from the gathered moles, or fall back to the creation
//     composition when the phase is empty.
//  3. Update existence from the new total (inert moles pin ExistAlways).
//  4. When gathering an accepted positive state, snapshot the fractions as
//     the new creation composition.
//  5. Clear the composition-dependent caches.
func (p *Phase) SetMolesFromGlobal(tag StateTag, global []float64) error {
	if tag != StateOld && tag != StateNew {
		return ErrBadStateTag
	}

	// 1. Gather.
	total := p.inertMoles
	for k, g := range p.globals {
		if g < 0 || g >= len(global) {
			return ErrDimensionMismatch
		}
		if p.voltage[k] {
			continue
		}
		total += math.Max(0, global[g])
	}

	// 2. Fractions.
	if total > 0 {
		for k, g := range p.globals {
			if p.voltage[k] {
				p.fractions[k] = 0
				p.potential = global[g]
				continue
			}
			p.fractions[k] = math.Max(0, global[g]) / total
		}
	} else {
		// Empty phase: keep a usable composition around so property
		// evaluations stay finite.
		copy(p.fractions, p.creation)
		for k, g := range p.globals {
			if p.voltage[k] {
				p.fractions[k] = 0
				p.potential = global[g]
			}
		}
	}
	if p.SingleSpecies() && p.voltage[0] {
		p.fractions[0] = 1.0
	}
	p.totalMoles = total
	p.state = tag

	// 3. Existence.
	switch {
	case p.inertMoles > 0:
		p.existence = ExistAlways
	case total > 0:
		p.existence = ExistYes
	case p.existence != ExistZeroedSS:
		p.existence = ExistNo
	}

	// 4. Creation snapshot.
	if tag == StateOld && total > 0 {
		copy(p.creation, p.fractions)
	}

	// 5. Invalidate.
	p.acOK = false
	p.volPMOK = false

	return nil
}

// SetTotalMoles overwrites the phase's total moles without touching the
// composition, keeping the existence flag consistent. Driving an
// explicitly zeroed phase positive without going through the stability
// machinery is flagged as an inconsistency: panic in debug mode, repaired
// (and counted) in release mode.
func (p *Phase) SetTotalMoles(t float64) error {
	if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return ErrBadConfig
	}
	if t > 0 && p.existence == ExistZeroedSS {
		p.inconsistency("positive total moles on a zeroed single-species phase")
	}
	p.totalMoles = t
	switch {
	case p.inertMoles > 0:
		p.existence = ExistAlways
	case t > 0:
		p.existence = ExistYes
	case p.existence != ExistZeroedSS:
		p.existence = ExistNo
	}
	p.volPMOK = false

	return nil
}

// SetExistence forces the existence flag, checking it against the stored
// moles. A contradiction panics in debug mode and is repaired in release
// mode.
func (p *Phase) SetExistence(e Existence) {
	if e.Exists() && p.totalMoles == 0 && e != ExistAlways {
		p.inconsistency("existence asserted with zero moles")
		e = ExistNo
	}
	if !e.Exists() && p.totalMoles > 0 {
		p.inconsistency("nonexistence asserted with positive moles")
		e = ExistYes
	}
	if p.inertMoles > 0 {
		e = ExistAlways
	}
	p.existence = e
}

// CreationComposition copies the best current estimate of the composition
// the phase would have if it popped into existence.
func (p *Phase) CreationComposition(dst []float64) error {
	if len(dst) != len(p.creation) {
		return ErrDimensionMismatch
	}
	copy(dst, p.creation)

	return nil
}

// SetCreationComposition overwrites the creation estimate, normalizing the
// supplied fractions. The phase stability iteration stores its converged
// composition here so the next evaluation of the same phase resumes from it.
func (p *Phase) SetCreationComposition(x []float64) error {
	if len(x) != len(p.creation) {
		return ErrDimensionMismatch
	}
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	if sum == 0 {
		return ErrZeroComposition
	}
	for k := range p.creation {
		p.creation[k] = x[k] / sum
	}

	return nil
}

// ScatterMoles writes the phase's member moles (fraction × total, excluding
// inert diluent from the per-species split) into a solver-global buffer.
// Voltage members write the phase potential into their slot.
func (p *Phase) ScatterMoles(global []float64) error {
	free := p.totalMoles - p.inertMoles
	for k, g := range p.globals {
		if g < 0 || g >= len(global) {
			return ErrDimensionMismatch
		}
		if p.voltage[k] {
			global[g] = p.potential
			continue
		}
		global[g] = p.fractions[k] * free
	}

	return nil
}

// ActivityCoefficients copies the (lazily recomputed) activity coefficients
// into dst.
func (p *Phase) ActivityCoefficients(dst []float64) error {
	if len(dst) != len(p.ac) {
		return ErrDimensionMismatch
	}
	if !p.acOK {
		if err := p.act.ActivityCoefficients(p.fractions, p.ac); err != nil {
			return err
		}
		p.acOK = true
	}
	copy(dst, p.ac)

	return nil
}

// Gibbs0RT copies the nondimensional reference-state Gibbs energies,
// recomputing them after a temperature change.
func (p *Phase) Gibbs0RT(dst []float64) error {
	if len(dst) != len(p.g0) {
		return ErrDimensionMismatch
	}
	if !p.g0OK {
		for k, st := range p.props {
			g, err := st.Gibbs0R(p.temperature)
			if err != nil {
				return err
			}
			p.g0[k] = g
		}
		p.g0OK = true
	}
	copy(dst, p.g0)

	return nil
}

// GStarRT copies the nondimensional standard-state Gibbs energies at the
// phase pressure, recomputing after a T or P change.
func (p *Phase) GStarRT(dst []float64) error {
	if len(dst) != len(p.gStar) {
		return ErrDimensionMismatch
	}
	if !p.gStarOK {
		for k, st := range p.props {
			g, err := st.GStarR(p.temperature, p.pressure)
			if err != nil {
				return err
			}
			p.gStar[k] = g
		}
		p.gStarOK = true
	}
	copy(dst, p.gStar)

	return nil
}

// StandardVolumes copies the standard-state molar volumes.
func (p *Phase) StandardVolumes(dst []float64) error {
	if len(dst) != len(p.volStar) {
		return ErrDimensionMismatch
	}
	if !p.volStarOK {
		for k, st := range p.props {
			v, err := st.StandardVolume(p.temperature, p.pressure)
			if err != nil {
				return err
			}
			p.volStar[k] = v
		}
		p.volStarOK = true
	}
	copy(dst, p.volStar)

	return nil
}

// PartialMolarVolumes copies the partial molar volumes and refreshes the
// phase's total volume. Every supported mixture model is volume-ideal, so
// the partial molar volume equals the standard-state volume.
func (p *Phase) PartialMolarVolumes(dst []float64) error {
	if len(dst) != len(p.volPM) {
		return ErrDimensionMismatch
	}
	if !p.volPMOK {
		if err := p.StandardVolumes(p.volPM); err != nil {
			return err
		}
		vbar := 0.0
		for k := range p.volPM {
			vbar += p.fractions[k] * p.volPM[k]
		}
		p.totalVol = vbar * p.totalMoles
		p.volPMOK = true
	}
	copy(dst, p.volPM)

	return nil
}

// TotalVolume returns the phase volume implied by the last partial-molar-
// volume evaluation.
func (p *Phase) TotalVolume() (float64, error) {
	if !p.volPMOK {
		scratch := make([]float64, len(p.volPM))
		if err := p.PartialMolarVolumes(scratch); err != nil {
			return 0, err
		}
	}

	return p.totalVol, nil
}

// inconsistency either panics (debug) or records a silent repair (release).
func (p *Phase) inconsistency(msg string) {
	if p.debug {
		panic("phase " + p.name + ": " + msg)
	}
	p.repairs++
}
