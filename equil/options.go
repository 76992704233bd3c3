// SPDX-License-Identifier: MIT

// Package equil: functional configuration for Solve. This file defines:
//   - Option / Options (functional options with internal state),
//   - documented defaults (constants),
//   - WithX constructors with strong validation (panic on nonsensical values),
//   - gatherOptions helper (internal) that enforces invariants.
package equil

import (
	"io"
	"math"
)

// ---------- Defaults (single source of truth) ----------

const (
	// DefaultMaxIterations caps the outer solve loop.
	DefaultMaxIterations = 500

	// DefaultMajorTolerance is the relative convergence tolerance on major
	// species motion per outer iteration.
	DefaultMajorTolerance = 1.0e-8

	// DefaultMinorTolerance is the relative mole-number level below which a
	// non-component species is classified as minor.
	DefaultMinorTolerance = 1.0e-6
)

// ---------- Internal panic messages (no magic strings) ----------

const (
	panicMaxItersInvalid  = "equil: WithMaxIterations: n must be positive"
	panicToleranceInvalid = "equil: WithTolerances: tolerances must be finite and positive"
	panicStepperNil       = "equil: WithStepper: stepper must be non-nil"
	panicDebugWriterNil   = "equil: WithDebugLogging: writer must be non-nil"
	panicDebugLevelBad    = "equil: WithDebugLogging: level must be non-negative"
)

// Option mutates internal options. Safe to apply repeatedly (idempotent).
// Constructors MUST panic only on nonsensical values (programmer error).
type Option func(*Options)

// Options carries the solver configuration. Fields are unexported; public
// APIs consume ...Option.
type Options struct {
	maxIters   int
	tolMajor   float64
	tolMinor   float64
	stepper    Stepper
	debugW     io.Writer
	debugLevel int
	debug      bool
}

// WithMaxIterations caps the outer loop at n iterations.
// Panics when n <= 0.
func WithMaxIterations(n int) Option {
	if n <= 0 {
		panic(panicMaxItersInvalid)
	}
	return func(o *Options) { o.maxIters = n }
}

// WithTolerances sets the major and minor relative tolerances.
// Panics when either is non-positive or non-finite.
func WithTolerances(major, minor float64) Option {
	if !(major > 0) || !(minor > 0) ||
		math.IsInf(major, 0) || math.IsInf(minor, 0) {
		panic(panicToleranceInvalid)
	}
	return func(o *Options) {
		o.tolMajor = major
		o.tolMinor = minor
	}
}

// WithStepper replaces the default descent stepper.
// Panics on a nil stepper.
func WithStepper(s Stepper) Option {
	if s == nil {
		panic(panicStepperNil)
	}
	return func(o *Options) { o.stepper = s }
}

// WithDebugLogging enables progress prints to w at the given verbosity
// (0 = headline per solve, 1 = per iteration, 2+ = per sub-stage).
// Panics on a nil writer or negative level.
func WithDebugLogging(w io.Writer, level int) Option {
	if w == nil {
		panic(panicDebugWriterNil)
	}
	if level < 0 {
		panic(panicDebugLevelBad)
	}
	return func(o *Options) {
		o.debugW = w
		o.debugLevel = level
	}
}

// WithDebugChecks turns internal consistency violations into panics instead
// of silent counted repairs.
func WithDebugChecks() Option {
	return func(o *Options) { o.debug = true }
}

// gatherOptions applies opts over the documented defaults.
func gatherOptions(opts ...Option) Options {
	o := Options{
		maxIters: DefaultMaxIterations,
		tolMajor: DefaultMajorTolerance,
		tolMinor: DefaultMinorTolerance,
		stepper:  DescentStepper{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}
