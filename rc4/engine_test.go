// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rc4

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVariant(t *testing.T) {
	tests := []struct {
		in      string
		want    Variant
		wantErr bool
	}{
		{in: "rc4", want: VariantClassic},
		{in: "classic", want: VariantClassic},
		{in: "RC4+", want: VariantPlus},
		{in: "rc4plus", want: VariantPlus},
		{in: " plus ", want: VariantPlus},
		{in: "des", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVariant(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfiguration) {
					t.Fatalf("error = %v, want ErrInvalidConfiguration", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseVariant(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewEngine_Validation(t *testing.T) {
	tests := []struct {
		name    string
		variant Variant
		n       int
		wantErr bool
	}{
		{name: "classic 256", variant: VariantClassic, n: 256},
		{name: "classic small", variant: VariantClassic, n: 8},
		{name: "plus 256", variant: VariantPlus, n: 256},
		{name: "plus 128 rejected", variant: VariantPlus, n: 128, wantErr: true},
		{name: "plus 64 rejected", variant: VariantPlus, n: 64, wantErr: true},
		{name: "n too small", variant: VariantClassic, n: 1, wantErr: true},
		{name: "n too large", variant: VariantClassic, n: 512, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(tt.variant, tt.n)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfiguration) {
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

func TestKSA_Deterministic(t *testing.T) {
	for _, n := range []int{8, 64, 256} {
		engine, err := NewEngine(VariantClassic, n)
		require.NoError(t, err)

		a, err := engine.KSA([]byte("SecretKey"))
		require.NoError(t, err)
		b, err := engine.KSA([]byte("SecretKey"))
		require.NoError(t, err)

		assert.Equal(t, a.S, b.S, "KSA not deterministic for N=%d", n)
		assert.Zero(t, a.I)
		assert.Zero(t, a.J)
		assert.True(t, a.IsPermutation(), "KSA broke the permutation for N=%d", n)
	}
}

func TestKSA_EmptyKey(t *testing.T) {
	engine, err := NewEngine(VariantClassic, 256)
	require.NoError(t, err)

	_, err = engine.KSA(nil)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestKSA_KeyChangesState(t *testing.T) {
	engine, _ := NewEngine(VariantClassic, 256)
	a, _ := engine.KSA([]byte("Key"))
	b, _ := engine.KSA([]byte("Kez"))

	if assert.ObjectsAreEqual(a.S, b.S) {
		t.Error("different keys produced identical states")
	}
}

// Classic RC4 with key "Key" is the standard published vector: the first
// keystream bytes are EB 9F 77 81 B7 34 CA 72 A7 19.
func TestClassicKnownKeystream(t *testing.T) {
	engine, err := NewEngine(VariantClassic, 256)
	require.NoError(t, err)
	st, err := engine.KSA([]byte("Key"))
	require.NoError(t, err)

	got := engine.Keystream(st, 10)
	want, _ := hex.DecodeString("eb9f7781b734ca72a719")
	assert.Equal(t, want, got)
}

func TestPRGAStep_PermutationInvariant(t *testing.T) {
	for _, variant := range []Variant{VariantClassic, VariantPlus} {
		engine, err := NewEngine(variant, 256)
		require.NoError(t, err)
		st, err := engine.KSA([]byte("invariant"))
		require.NoError(t, err)

		for step := 0; step < 512; step++ {
			engine.PRGAStep(st)
			if !st.IsPermutation() {
				t.Fatalf("%s: permutation broken after step %d", variant, step+1)
			}
		}
	}
}

func TestKeystream_Deterministic(t *testing.T) {
	engine, _ := NewEngine(VariantPlus, 256)

	a, _ := engine.KSA([]byte("Key"))
	b, _ := engine.KSA([]byte("Key"))

	assert.Equal(t, engine.Keystream(a, 64), engine.Keystream(b, 64))
}

func TestRecoveryEngine_Validation(t *testing.T) {
	for _, n := range []int{64, 128, 256} {
		if _, err := NewRecoveryEngine(n); err != nil {
			t.Errorf("NewRecoveryEngine(%d) = %v, want nil", n, err)
		}
	}
	for _, n := range []int{0, 16, 100, 512} {
		_, err := NewRecoveryEngine(n)
		if !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("NewRecoveryEngine(%d) error = %v, want ErrInvalidConfiguration", n, err)
		}
	}
}

func TestRecoveryEngine_Keystream(t *testing.T) {
	for _, n := range []int{64, 128, 256} {
		engine, err := NewRecoveryEngine(n)
		require.NoError(t, err)

		rng := rand.New(rand.NewSource(42))
		state := NewRandomState(n, rng)

		a := engine.Keystream(state, 32)
		b := engine.Keystream(state, 32)
		assert.Equal(t, a, b, "N=%d: simulation from the same state diverged", n)
		assert.Len(t, a, 32)

		// Keystream must not touch the source state.
		assert.Zero(t, state.I)
		assert.Zero(t, state.J)
		assert.True(t, state.IsPermutation())
	}
}

func TestRecoveryEngine_KeystreamInto_SourceUntouched(t *testing.T) {
	engine, err := NewRecoveryEngine(64)
	require.NoError(t, err)

	src := NewRandomState(64, rand.New(rand.NewSource(3)))
	before := src.Clone()

	dst := make([]byte, 16)
	scratch := NewIdentityState(64)
	engine.KeystreamInto(dst, scratch, src)

	assert.Equal(t, before.S, src.S, "KeystreamInto mutated the source state")
	if bytes.Equal(dst, make([]byte, 16)) {
		t.Error("keystream is all zeros; simulation did not run")
	}
}

func TestRecoveryEngine_DistinctStatesDistinctStreams(t *testing.T) {
	engine, _ := NewRecoveryEngine(256)

	a := NewRandomState(256, rand.New(rand.NewSource(1)))
	b := NewRandomState(256, rand.New(rand.NewSource(2)))

	ka := engine.Keystream(a, 32)
	kb := engine.Keystream(b, 32)
	if bytes.Equal(ka, kb) {
		t.Error("independent random states produced identical keystreams")
	}
}
