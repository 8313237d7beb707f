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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mregidorgarcia/rc4tabu/rc4"
)

func newTestChallenge(t *testing.T, n, length int, seed int64) (*rc4.RecoveryEngine, *rc4.State, []byte) {
	t.Helper()
	engine, err := rc4.NewRecoveryEngine(n)
	require.NoError(t, err)
	secret, keystream, err := rc4.GenerateChallenge(n, length, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return engine, secret, keystream
}

func TestObjective_ExactMatchScoresZero(t *testing.T) {
	for _, weighted := range []bool{false, true} {
		engine, secret, keystream := newTestChallenge(t, 64, 32, 5)

		obj := NewObjective(engine, keystream, weighted)
		assert.Equal(t, obj.Perfect(), obj.Score(secret),
			"weighted=%v: the generating state must score zero", weighted)
	}
}

func TestObjective_Deterministic(t *testing.T) {
	engine, _, keystream := newTestChallenge(t, 64, 32, 5)
	candidate := rc4.NewRandomState(64, rand.New(rand.NewSource(9)))

	obj := NewObjective(engine, keystream, false)
	first := obj.Score(candidate)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, obj.Score(candidate))
	}
}

func TestObjective_DoesNotMutateCandidate(t *testing.T) {
	engine, _, keystream := newTestChallenge(t, 64, 32, 5)
	candidate := rc4.NewRandomState(64, rand.New(rand.NewSource(9)))
	before := candidate.Clone()

	obj := NewObjective(engine, keystream, false)
	obj.Score(candidate)

	assert.Equal(t, before.S, candidate.S, "Score mutated the candidate permutation")
	assert.Equal(t, before.I, candidate.I)
	assert.Equal(t, before.J, candidate.J)
}

func TestObjective_ScoreBounds(t *testing.T) {
	engine, _, keystream := newTestChallenge(t, 64, 16, 5)

	for _, weighted := range []bool{false, true} {
		obj := NewObjective(engine, keystream, weighted)
		for seed := int64(0); seed < 20; seed++ {
			candidate := rc4.NewRandomState(64, rand.New(rand.NewSource(seed)))
			score := obj.Score(candidate)
			if score < 0 || score > obj.Worst() {
				t.Fatalf("weighted=%v: score %d outside [0, %d]", weighted, score, obj.Worst())
			}
		}
	}
}

func TestObjective_WeightedPenalizesEarlyMismatch(t *testing.T) {
	// Two synthetic targets that differ from the simulated stream in a
	// controlled position: flip the first byte vs the last byte.
	engine, secret, keystream := newTestChallenge(t, 64, 16, 5)

	early := append([]byte(nil), keystream...)
	early[0] ^= 0xFF
	late := append([]byte(nil), keystream...)
	late[len(late)-1] ^= 0xFF

	earlyScore := NewObjective(engine, early, true).Score(secret)
	lateScore := NewObjective(engine, late, true).Score(secret)

	assert.Equal(t, len(keystream), earlyScore, "early mismatch weight")
	assert.Equal(t, 1, lateScore, "late mismatch weight")
	assert.Greater(t, earlyScore, lateScore)
}

func TestObjective_CloneIsIndependent(t *testing.T) {
	engine, secret, keystream := newTestChallenge(t, 64, 16, 5)

	obj := NewObjective(engine, keystream, false)
	clone := obj.Clone()

	// Both score identically and zero for the generating state.
	assert.Equal(t, obj.Score(secret), clone.Score(secret))

	candidate := rc4.NewRandomState(64, rand.New(rand.NewSource(2)))
	assert.Equal(t, obj.Score(candidate), clone.Score(candidate))
}
