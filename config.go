// Copyright 2026 The r3malloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package r3malloc

// apfConfig holds the tunables original_source/src/apf.rs compiles in via
// option_env!. Functional options are the idiomatic Go equivalent of that
// compile-time configuration.
type apfConfig struct {
	windowLength         int
	targetAPF            int
	reuseComputeInterval int
	numFreeIntervals     int
	boostLength          int
	allWindowsMode       bool
}

// Config is a Thread's full set of tunables.
type Config struct {
	apf     apfConfig
	logging bool
}

// Option configures a Thread at construction time.
type Option func(*Config)

// DefaultConfig returns the tunables every Thread uses unless overridden,
// matching the defaults in original_source/src/apf.rs (WINDOW_LENGTH=2,
// TARGET_APF=1000, REUSE_COMPUTE_INTERVAL=10, NUM_FREE_INTERVALS=250,
// BOOST_LENGTH=20000).
func DefaultConfig() *Config {
	return &Config{
		apf: apfConfig{
			windowLength:         2,
			targetAPF:            1000,
			reuseComputeInterval: 10,
			numFreeIntervals:     250,
			boostLength:          20000,
		},
	}
}

func buildConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithWindowLength overrides the APF predictor's default window length.
func WithWindowLength(n int) Option {
	return func(c *Config) { c.apf.windowLength = n }
}

// WithTargetAPF overrides the footprint target the predictor converges
// toward.
func WithTargetAPF(n int) Option {
	return func(c *Config) { c.apf.targetAPF = n }
}

// WithReuseComputeInterval overrides how far compute_fast walks back
// before falling back to a full recompute.
func WithReuseComputeInterval(n int) Option {
	return func(c *Config) { c.apf.reuseComputeInterval = n }
}

// WithNumFreeIntervals overrides the size of the reuse-interval ring
// buffer.
func WithNumFreeIntervals(n int) Option {
	return func(c *Config) { c.apf.numFreeIntervals = n }
}

// WithAllWindowsMode makes APFStats report a demand vector across every
// window length 1..windowLength instead of a single value.
func WithAllWindowsMode(b bool) Option {
	return func(c *Config) { c.apf.allWindowsMode = b }
}

// WithLogging enables the trace-gated debug log, in the style of
// cznic/memory's trace flag.
func WithLogging(b bool) Option {
	return func(c *Config) { c.logging = b }
}
