// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rc4 implements the RC4 and RC4+ stream ciphers with an exposed
// internal state.
//
// Unlike crypto/rc4 in the standard library, this package makes the S-box
// permutation and the scan indices first-class values. The state-recovery
// attack in the tabu package seeds candidate permutations directly and
// re-simulates keystream output from them, which requires reading and
// cloning state the standard library keeps hidden.
//
// Thread Safety: engines are stateless; all mutable data lives in State
// values owned by the caller. Concurrent use is safe on disjoint states.
package rc4

import "math/rand"

// State is the full internal state of an RC4-family cipher: a permutation
// S of {0..N-1} plus the two scan indices the PRGA advances.
//
// A State is mutated in place by every PRGA step. Callers that need to
// evaluate many hypotheses against one base state must Clone first.
type State struct {
	// S is the permutation. Invariant: a bijection on {0..N-1}.
	S []int

	// I and J are the scan indices, each in [0, N-1].
	I int
	J int
}

// NewIdentityState returns the identity permutation [0, 1, ..., n-1] with
// both scan indices at zero.
func NewIdentityState(n int) *State {
	s := make([]int, n)
	for k := range s {
		s[k] = k
	}
	return &State{S: s}
}

// NewRandomState returns a uniformly random permutation of size n drawn
// from rng, with both scan indices at zero.
//
// The caller controls rng seeding; a fixed seed yields a fixed state.
func NewRandomState(n int, rng *rand.Rand) *State {
	st := NewIdentityState(n)
	rng.Shuffle(n, func(a, b int) {
		st.S[a], st.S[b] = st.S[b], st.S[a]
	})
	return st
}

// N returns the state size.
func (st *State) N() int { return len(st.S) }

// Clone returns an independent deep copy. Mutating the clone never
// touches the receiver.
func (st *State) Clone() *State {
	s := make([]int, len(st.S))
	copy(s, st.S)
	return &State{S: s, I: st.I, J: st.J}
}

// CopyFrom overwrites the receiver with src without allocating.
// Both states must have the same size.
func (st *State) CopyFrom(src *State) {
	copy(st.S, src.S)
	st.I = src.I
	st.J = src.J
}

// Swap exchanges positions p and q of the permutation.
func (st *State) Swap(p, q int) {
	st.S[p], st.S[q] = st.S[q], st.S[p]
}

// IsPermutation reports whether S is still a bijection on {0..N-1}.
//
// Every KSA run and every PRGA step must preserve this; the cipher tests
// assert it after each mutation.
func (st *State) IsPermutation() bool {
	n := len(st.S)
	seen := make([]bool, n)
	for _, v := range st.S {
		if v < 0 || v >= n || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}
