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
	"fmt"
	"math/rand"
	"strings"

	"github.com/mregidorgarcia/rc4tabu/rc4"
)

// Rule selects the neighborhood structure: which transpositions count as
// neighbors of the current candidate. The rule is configuration, not a
// hidden constant.
type Rule int

const (
	// RuleRandomHalf draws a random fraction of all C(N,2)
	// transpositions each iteration. This is the Z2 neighborhood from
	// the referenced experiment set.
	RuleRandomHalf Rule = iota

	// RuleFixedOffset considers only pairs a fixed distance apart
	// (p, (p+offset) mod N). Deterministic and much narrower.
	RuleFixedOffset
)

// String returns the rule's config-file name.
func (r Rule) String() string {
	switch r {
	case RuleRandomHalf:
		return "random_half"
	case RuleFixedOffset:
		return "fixed_offset"
	default:
		return "unknown"
	}
}

// ParseRule parses a neighborhood rule name.
func ParseRule(s string) (Rule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "random_half", "z2":
		return RuleRandomHalf, nil
	case "fixed_offset":
		return RuleFixedOffset, nil
	default:
		return 0, fmt.Errorf("%w: unknown neighborhood rule %q", rc4.ErrInvalidConfiguration, s)
	}
}

// Generator enumerates candidate moves for each iteration under the
// configured rule.
//
// Thread Safety: not safe for concurrent use; the engine calls Moves once
// per iteration from the search loop.
type Generator struct {
	n        int
	rule     Rule
	fraction float64
	rng      *rand.Rand

	// all holds every canonical transposition; random_half samples from
	// it, fixed_offset precomputes its fixed subset into fixed.
	all   []Move
	fixed []Move

	// scratch buffers reused across iterations.
	indices []int
	out     []Move
}

// NewGenerator builds a move generator for permutations of size n.
//
// Inputs:
//   - n: Permutation size.
//   - rule: Neighborhood rule.
//   - fraction: Sample share for RuleRandomHalf, in (0, 1].
//   - offset: Pair distance for RuleFixedOffset.
//   - rng: Seeded source; fixing the seed fixes the sampled neighborhoods.
//
// Outputs:
//   - *Generator: Ready to use generator.
func NewGenerator(n int, rule Rule, fraction float64, offset int, rng *rand.Rand) *Generator {
	g := &Generator{
		n:        n,
		rule:     rule,
		fraction: fraction,
		rng:      rng,
	}

	switch rule {
	case RuleFixedOffset:
		seen := make(map[Move]bool, n)
		for p := 0; p < n; p++ {
			m := NewMove(p, (p+offset)%n)
			if !seen[m] {
				seen[m] = true
				g.fixed = append(g.fixed, m)
			}
		}
	default:
		g.all = make([]Move, 0, n*(n-1)/2)
		for p := 0; p < n; p++ {
			for q := p + 1; q < n; q++ {
				g.all = append(g.all, Move{P: p, Q: q})
			}
		}
		g.indices = make([]int, len(g.all))
		for k := range g.indices {
			g.indices[k] = k
		}
	}

	return g
}

// SampleSize is how many moves Moves returns per iteration.
func (g *Generator) SampleSize() int {
	if g.rule == RuleFixedOffset {
		return len(g.fixed)
	}
	k := int(g.fraction * float64(len(g.all)))
	if k < 1 {
		k = 1
	}
	return k
}

// Moves returns the neighborhood of the current iteration. The returned
// slice is reused by the next call; the engine consumes it before asking
// again. Tabu filtering happens at selection time, where scores are known
// and the aspiration override can be decided.
func (g *Generator) Moves() []Move {
	if g.rule == RuleFixedOffset {
		return g.fixed
	}

	// Partial Fisher-Yates: the first k entries of indices become a
	// uniform sample without replacement.
	k := g.SampleSize()
	for a := 0; a < k; a++ {
		b := a + g.rng.Intn(len(g.indices)-a)
		g.indices[a], g.indices[b] = g.indices[b], g.indices[a]
	}

	g.out = g.out[:0]
	for _, idx := range g.indices[:k] {
		g.out = append(g.out, g.all[idx])
	}
	return g.out
}
