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
	"github.com/mregidorgarcia/rc4tabu/rc4"
)

// Objective scores a candidate state against the observed target
// keystream prefix. Lower is better; zero means the candidate reproduces
// the whole prefix exactly.
//
// Scoring never mutates the caller's candidate: the simulation runs on an
// internal scratch state, since the PRGA destructively advances whatever
// state it is given.
//
// Thread Safety: not safe for concurrent use (scratch buffers). Parallel
// scoring workers each hold their own copy from Clone.
type Objective struct {
	engine   *rc4.RecoveryEngine
	target   []byte
	weighted bool

	scratch *rc4.State
	buf     []byte
}

// NewObjective binds the simulation engine and the target prefix.
//
// Inputs:
//   - engine: Generalized RC4+ engine of the candidate's state size.
//   - target: Observed keystream prefix, the comparison window.
//   - weighted: Position-weighted scoring instead of a plain count.
//
// Outputs:
//   - *Objective: Ready to use scorer.
func NewObjective(engine *rc4.RecoveryEngine, target []byte, weighted bool) *Objective {
	return &Objective{
		engine:   engine,
		target:   target,
		weighted: weighted,
		scratch:  rc4.NewIdentityState(engine.N()),
		buf:      make([]byte, len(target)),
	}
}

// Clone returns an independent scorer sharing the engine and target but
// owning fresh scratch buffers, for use on another goroutine.
func (o *Objective) Clone() *Objective {
	return NewObjective(o.engine, o.target, o.weighted)
}

// Perfect is the score of an exact state match: always zero, for either
// scoring mode.
func (o *Objective) Perfect() int { return 0 }

// Worst is the highest score a candidate can receive.
func (o *Objective) Worst() int {
	l := len(o.target)
	if !o.weighted {
		return l
	}
	// Sum of weights L, L-1, ..., 1.
	return l * (l + 1) / 2
}

// Score simulates the PRGA from candidate's permutation and scan indices
// and compares the output to the target window byte by byte.
//
// Plain mode counts mismatches. Weighted mode charges a mismatch at
// position k a weight of L-k, so early divergence costs more; both modes
// are zero exactly when every byte matches. Deterministic: the same
// candidate and target always score the same.
func (o *Objective) Score(candidate *rc4.State) int {
	o.engine.KeystreamInto(o.buf, o.scratch, candidate)

	score := 0
	for k := range o.buf {
		if o.buf[k] != o.target[k] {
			if o.weighted {
				score += len(o.target) - k
			} else {
				score++
			}
		}
	}
	return score
}
