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
	"golang.org/x/sync/errgroup"
)

// scoredMove is one worker's best admissible candidate.
type scoredMove struct {
	move  Move
	score int
	ok    bool
}

// better reports whether (s, m) beats the current pick under the
// deterministic order: lower score first, then the move tie-break.
func (sm scoredMove) better(score int, m Move) bool {
	if !sm.ok {
		return true
	}
	if score != sm.score {
		return score < sm.score
	}
	return m.Less(sm.move)
}

// evaluateBest scores every sampled move against the current candidate
// and returns the best admissible one.
//
// A move is admissible when it is not on the tabu list, or when its score
// strictly beats the best score found so far (aspiration). Scoring is
// embarrassingly parallel: workers read cur, the tabu list, and the best
// score, and write only their own arena and result slot. The reduction
// walks worker results in index order, so the outcome is independent of
// goroutine scheduling and identical to a serial run.
func (e *Engine) evaluateBest(moves []Move, iter int) (Move, int, bool) {
	workers := e.cfg.Workers
	if workers > len(moves) {
		workers = len(moves)
	}
	if workers <= 1 {
		best := e.evaluateChunk(0, moves, iter)
		return best.move, best.score, best.ok
	}

	results := make([]scoredMove, workers)
	chunk := (len(moves) + workers - 1) / workers

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(moves) {
			hi = len(moves)
		}
		w := w
		g.Go(func() error {
			results[w] = e.evaluateChunk(w, moves[lo:hi], iter)
			return nil
		})
	}
	// Workers cannot fail; Wait is a join.
	_ = g.Wait()

	var best scoredMove
	for _, r := range results {
		if r.ok && best.better(r.score, r.move) {
			best = r
		}
	}
	return best.move, best.score, best.ok
}

// evaluateChunk scores one slice of moves on the worker's own objective
// and arena state.
func (e *Engine) evaluateChunk(worker int, moves []Move, iter int) scoredMove {
	objective := e.scorers[worker]
	candidate := e.arenas[worker]

	var best scoredMove
	for _, m := range moves {
		candidate.CopyFrom(e.cur)
		candidate.Swap(m.P, m.Q)
		score := objective.Score(candidate)

		if e.tabu.Forbidden(m, iter) && score >= e.bestScore {
			continue
		}
		if best.better(score, m) {
			best = scoredMove{move: m, score: score, ok: true}
		}
	}
	return best
}
