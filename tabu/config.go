// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tabu

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/mregidorgarcia/rc4tabu/rc4"
)

// MinComparisonWindow is the smallest keystream prefix a candidate may be
// scored against. Shorter windows make the objective too flat to guide
// the search.
const MinComparisonWindow = 8

// AttackConfig configures one state-recovery run.
//
// Thread Safety: safe to read concurrently. Not safe to modify after the
// engine is constructed.
type AttackConfig struct {
	// N is the S-box size under attack. One of 64, 128, 256.
	N int `json:"n" yaml:"n"`

	// KeystreamLength is how many keystream bytes each candidate is
	// compared against. Must be >= MinComparisonWindow.
	KeystreamLength int `json:"keystream_length" yaml:"keystream_length"`

	// TabuTenure is how many iterations a reversed move stays forbidden.
	// Zero derives the Z2 default: half of all C(N,2) transpositions.
	TabuTenure int `json:"tabu_tenure" yaml:"tabu_tenure"`

	// MaxIterations bounds the search. The run terminates Exhausted when
	// it is reached without an exact recovery.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// Rule selects the neighborhood structure: "random_half" samples a
	// fraction of all transpositions each iteration, "fixed_offset"
	// considers only pairs a fixed distance apart.
	Rule string `json:"rule" yaml:"rule"`

	// SampleFraction is the share of all transpositions the random_half
	// rule draws per iteration, in (0, 1].
	SampleFraction float64 `json:"sample_fraction" yaml:"sample_fraction"`

	// Offset is the pair distance for the fixed_offset rule, in [1, N-1].
	Offset int `json:"offset" yaml:"offset"`

	// Seed fixes the random source for reproducible runs. Zero picks a
	// time-derived seed at engine construction; the chosen value is
	// logged so a run can be replayed.
	Seed int64 `json:"seed" yaml:"seed"`

	// Workers is the number of goroutines scoring neighborhood moves.
	// One disables parallel scoring. Results are identical either way.
	Workers int `json:"workers" yaml:"workers"`

	// Weighted switches the objective from a plain mismatch count to a
	// position-weighted one that penalizes early mismatches more.
	Weighted bool `json:"weighted" yaml:"weighted"`

	// SnapshotEvery attaches a copy of the best permutation to every
	// Nth progress event. Zero disables snapshots.
	SnapshotEvery int `json:"snapshot_every" yaml:"snapshot_every"`

	// Observability contains tracing and metrics settings.
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`
}

// ObservabilityConfig contains tracing and metrics settings.
type ObservabilityConfig struct {
	// TracingEnabled turns on OpenTelemetry spans for the run and for
	// sampled iterations.
	TracingEnabled bool `json:"tracing_enabled" yaml:"tracing_enabled"`

	// MetricsEnabled turns on Prometheus counters.
	MetricsEnabled bool `json:"metrics_enabled" yaml:"metrics_enabled"`

	// SampleEvery is the iteration-span sampling interval.
	SampleEvery int `json:"sample_every" yaml:"sample_every"`
}

// DefaultAttackConfig returns the Z2 configuration from the referenced
// experiment set: full-size S-box, random half-neighborhood, tenure
// derived from the sample size.
func DefaultAttackConfig() AttackConfig {
	return AttackConfig{
		N:               256,
		KeystreamLength: 32,
		TabuTenure:      0, // derived
		MaxIterations:   1000,
		Rule:            "random_half",
		SampleFraction:  0.5,
		Offset:          1,
		Seed:            0,
		Workers:         1,
		Weighted:        false,
		SnapshotEvery:   0,
		Observability: ObservabilityConfig{
			TracingEnabled: false,
			MetricsEnabled: false,
			SampleEvery:    100,
		},
	}
}

// LoadAttackConfig loads configuration with priority: env > file > defaults.
//
// Inputs:
//   - configPath: Path to a YAML/JSON config file (optional, can be empty).
//
// Outputs:
//   - AttackConfig: Merged configuration.
//   - error: Non-nil if the file exists but is invalid, or validation fails.
func LoadAttackConfig(configPath string) (AttackConfig, error) {
	config := DefaultAttackConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, &config); err != nil {
			return config, fmt.Errorf("load config file: %w", err)
		}
	}

	loadConfigFromEnv(&config)

	if err := config.Validate(); err != nil {
		return config, err
	}

	return config, nil
}

func loadConfigFile(path string, config *AttackConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, use defaults
		}
		return err
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, config); err != nil {
		if jsonErr := json.Unmarshal(data, config); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}

	return nil
}

func loadConfigFromEnv(config *AttackConfig) {
	if v := os.Getenv("RC4TABU_N"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.N = i
		}
	}
	if v := os.Getenv("RC4TABU_KEYSTREAM_LENGTH"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.KeystreamLength = i
		}
	}
	if v := os.Getenv("RC4TABU_TABU_TENURE"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.TabuTenure = i
		}
	}
	if v := os.Getenv("RC4TABU_MAX_ITERATIONS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.MaxIterations = i
		}
	}
	if v := os.Getenv("RC4TABU_RULE"); v != "" {
		config.Rule = v
	}
	if v := os.Getenv("RC4TABU_SAMPLE_FRACTION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.SampleFraction = f
		}
	}
	if v := os.Getenv("RC4TABU_SEED"); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Seed = i
		}
	}
	if v := os.Getenv("RC4TABU_WORKERS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Workers = i
		}
	}
}

// Validate checks the configuration before any work begins. The engine
// never substitutes defaults for invalid values.
func (c *AttackConfig) Validate() error {
	switch c.N {
	case 64, 128, 256:
	default:
		return fmt.Errorf("%w: N must be 64, 128, or 256, got %d", rc4.ErrInvalidConfiguration, c.N)
	}
	if c.KeystreamLength < MinComparisonWindow {
		return fmt.Errorf("%w: keystream_length %d below minimum window %d", rc4.ErrInvalidConfiguration, c.KeystreamLength, MinComparisonWindow)
	}
	if c.TabuTenure < 0 {
		return fmt.Errorf("%w: tabu_tenure must be >= 0, got %d", rc4.ErrInvalidConfiguration, c.TabuTenure)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: max_iterations must be >= 1, got %d", rc4.ErrInvalidConfiguration, c.MaxIterations)
	}
	rule, err := ParseRule(c.Rule)
	if err != nil {
		return err
	}
	if rule == RuleRandomHalf && (c.SampleFraction <= 0 || c.SampleFraction > 1) {
		return fmt.Errorf("%w: sample_fraction must be in (0,1], got %g", rc4.ErrInvalidConfiguration, c.SampleFraction)
	}
	if rule == RuleFixedOffset && (c.Offset < 1 || c.Offset >= c.N) {
		return fmt.Errorf("%w: offset must be in [1,%d), got %d", rc4.ErrInvalidConfiguration, c.N, c.Offset)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1, got %d", rc4.ErrInvalidConfiguration, c.Workers)
	}
	if c.SnapshotEvery < 0 {
		return fmt.Errorf("%w: snapshot_every must be >= 0, got %d", rc4.ErrInvalidConfiguration, c.SnapshotEvery)
	}
	return nil
}

// EffectiveTenure resolves the tenure window: an explicit value wins,
// zero derives the Z2 default of half of all C(N,2) transpositions.
func (c *AttackConfig) EffectiveTenure() int {
	if c.TabuTenure > 0 {
		return c.TabuTenure
	}
	return c.N * (c.N - 1) / 4
}
