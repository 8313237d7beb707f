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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mregidorgarcia/rc4tabu/rc4"
)

func TestDefaultAttackConfig(t *testing.T) {
	config := DefaultAttackConfig()

	if config.N != 256 {
		t.Errorf("N = %d, want 256", config.N)
	}
	if config.Rule != "random_half" {
		t.Errorf("Rule = %q, want random_half", config.Rule)
	}
	if config.SampleFraction != 0.5 {
		t.Errorf("SampleFraction = %g, want 0.5", config.SampleFraction)
	}
	if config.Workers != 1 {
		t.Errorf("Workers = %d, want 1", config.Workers)
	}
	if err := config.Validate(); err != nil {
		t.Fatalf("default config does not validate: %v", err)
	}
}

func TestAttackConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*AttackConfig)
		wantError bool
	}{
		{
			name:   "valid default config",
			modify: func(_ *AttackConfig) {},
		},
		{
			name: "unsupported N",
			modify: func(c *AttackConfig) {
				c.N = 100
			},
			wantError: true,
		},
		{
			name: "keystream below minimum window",
			modify: func(c *AttackConfig) {
				c.KeystreamLength = MinComparisonWindow - 1
			},
			wantError: true,
		},
		{
			name: "negative tenure",
			modify: func(c *AttackConfig) {
				c.TabuTenure = -1
			},
			wantError: true,
		},
		{
			name: "zero max_iterations",
			modify: func(c *AttackConfig) {
				c.MaxIterations = 0
			},
			wantError: true,
		},
		{
			name: "unknown rule",
			modify: func(c *AttackConfig) {
				c.Rule = "simulated_annealing"
			},
			wantError: true,
		},
		{
			name: "sample_fraction zero",
			modify: func(c *AttackConfig) {
				c.SampleFraction = 0
			},
			wantError: true,
		},
		{
			name: "sample_fraction above one",
			modify: func(c *AttackConfig) {
				c.SampleFraction = 1.5
			},
			wantError: true,
		},
		{
			name: "fixed_offset with bad offset",
			modify: func(c *AttackConfig) {
				c.Rule = "fixed_offset"
				c.Offset = 0
			},
			wantError: true,
		},
		{
			name: "fixed_offset ignores fraction",
			modify: func(c *AttackConfig) {
				c.Rule = "fixed_offset"
				c.Offset = 3
				c.SampleFraction = 0
			},
		},
		{
			name: "zero workers",
			modify: func(c *AttackConfig) {
				c.Workers = 0
			},
			wantError: true,
		},
		{
			name: "negative snapshot_every",
			modify: func(c *AttackConfig) {
				c.SnapshotEvery = -1
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultAttackConfig()
			tt.modify(&config)

			err := config.Validate()
			if tt.wantError {
				if !errors.Is(err, rc4.ErrInvalidConfiguration) {
					t.Fatalf("error = %v, want ErrInvalidConfiguration", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestAttackConfig_EffectiveTenure(t *testing.T) {
	config := DefaultAttackConfig()

	// Z2 default: half of C(256,2) = 16320.
	if got := config.EffectiveTenure(); got != 16320 {
		t.Errorf("derived tenure = %d, want 16320", got)
	}

	config.TabuTenure = 50
	if got := config.EffectiveTenure(); got != 50 {
		t.Errorf("explicit tenure = %d, want 50", got)
	}

	config.TabuTenure = 0
	config.N = 64
	if got := config.EffectiveTenure(); got != 1008 {
		t.Errorf("derived tenure for N=64 = %d, want 1008", got)
	}
}

func TestLoadAttackConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "attack.yaml")

	yaml := `
n: 128
keystream_length: 16
max_iterations: 250
rule: fixed_offset
offset: 5
seed: 99
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	config, err := LoadAttackConfig(path)
	if err != nil {
		t.Fatalf("LoadAttackConfig: %v", err)
	}

	if config.N != 128 {
		t.Errorf("N = %d, want 128", config.N)
	}
	if config.Rule != "fixed_offset" || config.Offset != 5 {
		t.Errorf("rule/offset = %q/%d, want fixed_offset/5", config.Rule, config.Offset)
	}
	if config.Seed != 99 {
		t.Errorf("Seed = %d, want 99", config.Seed)
	}
	// Untouched fields keep their defaults.
	if config.SampleFraction != 0.5 {
		t.Errorf("SampleFraction = %g, want default 0.5", config.SampleFraction)
	}
}

func TestLoadAttackConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "attack.yaml")
	if err := os.WriteFile(path, []byte("max_iterations: 10\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("RC4TABU_MAX_ITERATIONS", "77")
	t.Setenv("RC4TABU_WORKERS", "3")

	config, err := LoadAttackConfig(path)
	if err != nil {
		t.Fatalf("LoadAttackConfig: %v", err)
	}
	if config.MaxIterations != 77 {
		t.Errorf("MaxIterations = %d, want env override 77", config.MaxIterations)
	}
	if config.Workers != 3 {
		t.Errorf("Workers = %d, want env override 3", config.Workers)
	}
}

func TestLoadAttackConfig_MissingFileUsesDefaults(t *testing.T) {
	config, err := LoadAttackConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadAttackConfig: %v", err)
	}
	if config.N != 256 {
		t.Errorf("N = %d, want default 256", config.N)
	}
}

func TestLoadAttackConfig_InvalidValuesRejected(t *testing.T) {
	t.Setenv("RC4TABU_N", "100")

	_, err := LoadAttackConfig("")
	if !errors.Is(err, rc4.ErrInvalidConfiguration) {
		t.Fatalf("error = %v, want ErrInvalidConfiguration", err)
	}
}
