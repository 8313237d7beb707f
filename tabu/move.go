// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tabu implements a Tabu Search attack that recovers the hidden
// internal permutation of an RC4+ instance from observed keystream bytes
// (Polak & Boryczka 2019, Z2 configuration).
//
// The engine walks the space of S-box permutations one transposition at a
// time, scoring each candidate by re-simulating the cipher and counting
// keystream mismatches. Recently reversed moves are held on a tabu list
// for a tenure window so the walk cannot immediately cycle; a tabu move
// is still admissible when it would beat the best score found so far.
//
// Thread Safety: one Engine serves one run and has a single writer, the
// search loop. Neighborhood scoring may fan out over workers, each with
// its own scratch state; the reduction is deterministic so results do not
// depend on scheduling.
package tabu

import "fmt"

// Move is a proposed transposition of positions P and Q of the candidate
// permutation, held in canonical order P < Q so that a move and its
// inverse compare equal.
type Move struct {
	P int
	Q int
}

// NewMove returns the canonical form of the transposition (p, q).
func NewMove(p, q int) Move {
	if p > q {
		p, q = q, p
	}
	return Move{P: p, Q: q}
}

// Reverse returns the move that undoes this one. A transposition is its
// own inverse; the method exists so the engine's bookkeeping reads the
// way the algorithm is described.
func (m Move) Reverse() Move { return m }

// Sum is the tie-break key: when two candidate moves score equally, the
// one with the lower position sum wins, then the lower P.
func (m Move) Sum() int { return m.P + m.Q }

// Less orders moves by (Sum, P) for the deterministic reduction.
func (m Move) Less(o Move) bool {
	if m.Sum() != o.Sum() {
		return m.Sum() < o.Sum()
	}
	return m.P < o.P
}

// String returns "swap(p,q)".
func (m Move) String() string {
	return fmt.Sprintf("swap(%d,%d)", m.P, m.Q)
}
