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
	"fmt"
	"math/bits"
	"strings"
)

// Variant selects the PRGA output derivation. KSA and the swap step are
// shared; only the output byte differs between variants.
type Variant int

const (
	// VariantClassic is the original RC4 PRGA.
	VariantClassic Variant = iota

	// VariantPlus is the RC4+ PRGA (Polak & Boryczka 2019, Algorithm 1).
	// It requires N = 256.
	VariantPlus
)

// String returns the variant name ("rc4" or "rc4plus").
func (v Variant) String() string {
	switch v {
	case VariantClassic:
		return "rc4"
	case VariantPlus:
		return "rc4plus"
	default:
		return "unknown"
	}
}

// ParseVariant parses a variant name. Accepted values: "rc4", "classic",
// "rc4plus", "plus".
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rc4", "classic":
		return VariantClassic, nil
	case "rc4plus", "rc4+", "plus":
		return VariantPlus, nil
	default:
		return 0, fmt.Errorf("%w: unknown variant %q", ErrInvalidConfiguration, s)
	}
}

// plusStateSize is the only state size RC4+ Algorithm 1 is defined for.
const plusStateSize = 256

// Engine is the stateless cipher logic for one (variant, N) pair. It
// operates on caller-owned State values and holds no hidden state of its
// own, so a single Engine is safe to use concurrently on disjoint states.
type Engine struct {
	// Variant selects the PRGA output derivation.
	Variant Variant

	// N is the state size. Values are byte-range, so 2 <= N <= 256.
	N int
}

// NewEngine validates the variant/size combination.
//
// Inputs:
//   - v: Cipher variant.
//   - n: State size, 2 <= n <= 256. VariantPlus forces n = 256.
//
// Outputs:
//   - *Engine: Ready to use engine.
//   - error: ErrInvalidConfiguration on a bad combination.
func NewEngine(v Variant, n int) (*Engine, error) {
	if n < 2 || n > 256 {
		return nil, fmt.Errorf("%w: state size N=%d out of range [2,256]", ErrInvalidConfiguration, n)
	}
	if v == VariantPlus && n != plusStateSize {
		return nil, fmt.Errorf("%w: %s requires N=%d, got %d", ErrInvalidConfiguration, v, plusStateSize, n)
	}
	return &Engine{Variant: v, N: n}, nil
}

// KSA runs the Key Scheduling Algorithm and returns a freshly mixed state.
//
// The state starts as the identity permutation; N mixing rounds fold the
// key in, swapping position k with an accumulator-selected partner. Both
// scan indices are reset to zero afterwards so the state is ready for the
// PRGA. Deterministic: identical key and N always yield identical state.
//
// Inputs:
//   - key: Non-empty key bytes. Length is independent of N.
//
// Outputs:
//   - *State: The initialized cipher state.
//   - error: ErrInvalidConfiguration for an empty key.
func (e *Engine) KSA(key []byte) (*State, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidConfiguration)
	}

	st := NewIdentityState(e.N)
	j := 0
	for k := 0; k < e.N; k++ {
		j = (j + st.S[k] + int(key[k%len(key)])) % e.N
		st.Swap(k, j)
	}

	// reset_prga
	st.I = 0
	st.J = 0
	return st, nil
}

// PRGAStep advances st by one step and returns the output byte.
//
// Both variants advance i, recompute j, and swap S[i] and S[j]; the swap
// mutates st irreversibly, which is why search candidates are always
// cloned before simulation.
func (e *Engine) PRGAStep(st *State) byte {
	n := e.N
	st.I = (st.I + 1) % n
	st.J = (st.J + st.S[st.I]) % n
	st.Swap(st.I, st.J)

	t := (st.S[st.I] + st.S[st.J]) % n
	if e.Variant == VariantClassic {
		return byte(st.S[t])
	}

	// RC4+ Algorithm 1 index mixing. Fixed 8-bit shifts, N is 256 here.
	idx1 := ((st.I >> 3) ^ ((st.J << 5) & 0xFF)) & 0xFF
	idx2 := (((st.I << 5) & 0xFF) ^ (st.J >> 3)) & 0xFF
	tPrime := ((st.S[idx1] + st.S[idx2]) & 0xFF) ^ 0xAA
	tDouble := (st.J + st.S[st.J]) & 0xFF

	return byte(((st.S[t] + st.S[tPrime]) & 0xFF) ^ st.S[tDouble])
}

// Keystream runs the PRGA length times against st, collecting the output
// bytes in order. st is advanced as a side effect; re-run KSA to restart
// the stream.
func (e *Engine) Keystream(st *State, length int) []byte {
	out := make([]byte, length)
	for k := range out {
		out[k] = e.PRGAStep(st)
	}
	return out
}

// RecoveryEngine is the RC4+ simulation primitive the state-recovery
// attack scores candidates with. It generalizes the Algorithm 1 index
// mixing to smaller state sizes by deriving the shift amounts and the XOR
// constant from the state width, and scales sub-256 outputs back to the
// 8-bit range.
//
// The generalized N=256 form is not bit-identical to VariantPlus (the
// derived shifts differ from the fixed ones), so the attack always uses
// this engine for both the challenge keystream and candidate scoring.
//
// Thread Safety: stateless; safe to share across scoring workers that own
// their scratch states.
type RecoveryEngine struct {
	n          int
	shiftRight int
	shiftLeft  int
	xorConst   int
	scale      int
}

// recoveryStateSizes are the S-box sizes the attack supports.
var recoveryStateSizes = []int{64, 128, 256}

// NewRecoveryEngine creates a generalized RC4+ engine for state size n.
//
// Inputs:
//   - n: State size, one of 64, 128, 256.
//
// Outputs:
//   - *RecoveryEngine: Ready to use engine.
//   - error: ErrInvalidConfiguration for unsupported sizes.
func NewRecoveryEngine(n int) (*RecoveryEngine, error) {
	supported := false
	for _, s := range recoveryStateSizes {
		if n == s {
			supported = true
			break
		}
	}
	if !supported {
		return nil, fmt.Errorf("%w: recovery state size must be one of %v, got %d", ErrInvalidConfiguration, recoveryStateSizes, n)
	}

	nBits := bits.Len(uint(n - 1)) // ceil(log2 n) for powers of two
	sr := nBits / 3
	if sr < 1 {
		sr = 1
	}
	sl := nBits - sr
	if sl < 1 {
		sl = 1
	}

	return &RecoveryEngine{
		n:          n,
		shiftRight: sr,
		shiftLeft:  sl,
		xorConst:   0xAA * n / 256,
		scale:      256 / n,
	}, nil
}

// N returns the state size the engine simulates.
func (e *RecoveryEngine) N() int { return e.n }

// step advances st and returns one generalized RC4+ output byte.
func (e *RecoveryEngine) step(st *State) byte {
	n := e.n
	st.I = (st.I + 1) % n
	st.J = (st.J + st.S[st.I]) % n
	st.Swap(st.I, st.J)

	t := (st.S[st.I] + st.S[st.J]) % n
	idx1 := ((st.I >> e.shiftRight) ^ (st.J << e.shiftLeft)) % n
	idx2 := ((st.I << e.shiftLeft) ^ (st.J >> e.shiftRight)) % n
	tPrime := ((st.S[idx1]+st.S[idx2])%n ^ e.xorConst) % n
	tDouble := (st.J + st.S[st.J]) % n

	// Sub-256 states output scaled values so the keystream stays 8-bit.
	v1 := (st.S[t]*e.scale + st.S[tPrime]*e.scale) & 0xFF
	return byte(v1 ^ ((st.S[tDouble] * e.scale) & 0xFF))
}

// KeystreamInto simulates len(dst) PRGA steps starting from src, writing
// the output into dst. src is never mutated: the run happens on scratch,
// which is overwritten with a copy of src first. scratch must have the
// engine's state size.
//
// This is the arena-style entry point: scoring workers allocate one
// scratch state each and reuse it across iterations.
func (e *RecoveryEngine) KeystreamInto(dst []byte, scratch, src *State) {
	scratch.CopyFrom(src)
	for k := range dst {
		dst[k] = e.step(scratch)
	}
}

// Keystream is the allocating convenience form of KeystreamInto.
func (e *RecoveryEngine) Keystream(src *State, length int) []byte {
	dst := make([]byte, length)
	e.KeystreamInto(dst, NewIdentityState(e.n), src)
	return dst
}
