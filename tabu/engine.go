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
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mregidorgarcia/rc4tabu/rc4"
)

// Phase is the engine's lifecycle state.
type Phase int

const (
	// PhaseIdle means no configuration has been accepted.
	PhaseIdle Phase = iota

	// PhaseInitialized means configuration was validated and the engine
	// is ready to Run.
	PhaseInitialized

	// PhaseSearching means the iteration loop is live.
	PhaseSearching

	// PhaseConverged means the best score reached zero: exact recovery.
	PhaseConverged

	// PhaseExhausted means the iteration budget ran out.
	PhaseExhausted

	// PhaseCancelled means an external cancellation was observed at an
	// iteration boundary.
	PhaseCancelled
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInitialized:
		return "initialized"
	case PhaseSearching:
		return "searching"
	case PhaseConverged:
		return "converged"
	case PhaseExhausted:
		return "exhausted"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result classification of a run. Cancellation is
// an outcome, not a failure: it carries the best-found-so-far state.
type Outcome int

const (
	// OutcomeConverged means the hidden state was recovered exactly.
	OutcomeConverged Outcome = iota

	// OutcomeExhausted means the iteration budget was spent; the result
	// carries the best approximation found.
	OutcomeExhausted

	// OutcomeCancelled means the caller cancelled between iterations.
	OutcomeCancelled
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeConverged:
		return "converged"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result is the terminal report of a run.
type Result struct {
	// Outcome classifies how the run ended.
	Outcome Outcome

	// RecoveredState is the best candidate found. On OutcomeConverged it
	// reproduces the full target prefix exactly.
	RecoveredState *rc4.State

	// BestScore is the recovered state's score (zero on convergence).
	BestScore int

	// IterationsUsed is how many iterations committed before the
	// terminal state.
	IterationsUsed int

	// Elapsed is wall time from Run entry to the terminal state.
	Elapsed time.Duration
}

// Engine runs the Tabu Search state-recovery attack.
//
// Lifecycle: NewEngine validates configuration (Idle to Initialized);
// Run seeds the candidate and iterates (Searching) until Converged,
// Exhausted, or Cancelled. Configuration errors surface before searching
// starts; the loop itself cannot fail.
//
// Thread Safety: the search loop is the only writer of search state.
// Phase and the emitter are safe to read concurrently with a running
// loop. One Engine serves one run.
type Engine struct {
	cfg    AttackConfig
	target []byte

	simulator *rc4.RecoveryEngine
	generator *Generator
	tabu      *tabuList
	rng       *rand.Rand

	// Per-worker scorers and candidate arenas, index-aligned. Workers
	// only read cur and the tabu list while scoring.
	scorers []*Objective
	arenas  []*rc4.State

	cur       *rc4.State
	curScore  int
	best      *rc4.State
	bestScore int

	initial []int // optional seed permutation

	runID   string
	emitter *Emitter
	tracer  *Tracer
	logger  *slog.Logger

	mu    sync.RWMutex
	phase Phase
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTracer sets the tracer for observability.
func WithTracer(tracer *Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithInitialState seeds the search from a specific permutation instead
// of a random one. The slice must be a permutation of size N.
func WithInitialState(s []int) Option {
	return func(e *Engine) {
		e.initial = s
	}
}

// NewEngine validates the configuration against the target keystream and
// returns an engine in the Initialized phase.
//
// Inputs:
//   - cfg: Attack configuration. A zero Seed is replaced by a
//     time-derived one and logged.
//   - target: Observed keystream prefix; length must equal
//     cfg.KeystreamLength.
//   - opts: Optional configuration functions.
//
// Outputs:
//   - *Engine: Engine ready to Run.
//   - error: Wraps rc4.ErrInvalidConfiguration on any rejected input.
func NewEngine(cfg AttackConfig, target []byte, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(target) != cfg.KeystreamLength {
		return nil, fmt.Errorf("%w: target keystream is %d bytes, config says %d",
			rc4.ErrInvalidConfiguration, len(target), cfg.KeystreamLength)
	}

	simulator, err := rc4.NewRecoveryEngine(cfg.N)
	if err != nil {
		return nil, err
	}

	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	e := &Engine{
		cfg:       cfg,
		target:    append([]byte(nil), target...),
		simulator: simulator,
		tabu:      newTabuList(),
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		runID:     uuid.New().String(),
		emitter:   NewEmitter(),
		logger:    slog.Default(),
		phase:     PhaseIdle,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.initial != nil {
		st := &rc4.State{S: e.initial}
		if len(e.initial) != cfg.N || !st.IsPermutation() {
			return nil, fmt.Errorf("%w: initial state is not a permutation of size %d",
				rc4.ErrInvalidConfiguration, cfg.N)
		}
	}

	rule, _ := ParseRule(cfg.Rule) // validated above
	e.generator = NewGenerator(cfg.N, rule, cfg.SampleFraction, cfg.Offset, e.rng)

	if e.tracer == nil {
		e.tracer = NewTracer(e.logger, cfg.Observability)
	}

	e.scorers = make([]*Objective, cfg.Workers)
	e.arenas = make([]*rc4.State, cfg.Workers)
	for i := range e.scorers {
		e.scorers[i] = NewObjective(simulator, e.target, cfg.Weighted)
		e.arenas[i] = rc4.NewIdentityState(cfg.N)
	}

	e.phase = PhaseInitialized
	return e, nil
}

// Phase returns the engine's current lifecycle state.
func (e *Engine) Phase() Phase {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.phase
}

func (e *Engine) setPhase(p Phase) {
	e.mu.Lock()
	e.phase = p
	e.mu.Unlock()
}

// RunID identifies this run on progress events and spans.
func (e *Engine) RunID() string { return e.runID }

// Events returns the progress emitter. Subscribe before calling Run;
// events are delivered synchronously at iteration boundaries.
func (e *Engine) Events() *Emitter { return e.emitter }

// Seed returns the seed actually in use, after zero-replacement.
func (e *Engine) Seed() int64 { return e.cfg.Seed }

// Run executes the search until a terminal state.
//
// Each iteration samples the neighborhood, scores every candidate move
// against the target keystream, applies the best admissible one, records
// its reverse on the tabu list, and emits a progress event. Cancellation
// is cooperative: the context is checked once per iteration boundary, so
// a cancelled run always reports a consistent, previously committed best
// state.
//
// Inputs:
//   - ctx: Context for cancellation.
//
// Outputs:
//   - *Result: Terminal report; non-nil for every terminal outcome
//     including cancellation.
//   - error: Non-nil only when Run is called outside the Initialized
//     phase.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if e.Phase() != PhaseInitialized {
		return nil, fmt.Errorf("%w: Run called in phase %s", rc4.ErrInvalidConfiguration, e.Phase())
	}

	start := time.Now()
	e.setPhase(PhaseSearching)
	defer e.emitter.Close()

	ctx, span := e.tracer.StartRun(ctx, e.cfg, e.runID)

	// Seed the candidate and take it as the initial best.
	if e.initial != nil {
		e.cur = &rc4.State{S: append([]int(nil), e.initial...)}
	} else {
		e.cur = rc4.NewRandomState(e.cfg.N, e.rng)
	}
	e.curScore = e.scorers[0].Score(e.cur)
	e.best = e.cur.Clone()
	e.bestScore = e.curScore

	e.logger.Info("tabu search started",
		slog.String("run_id", e.runID),
		slog.Int("n", e.cfg.N),
		slog.Int("keystream_length", len(e.target)),
		slog.Int("max_iterations", e.cfg.MaxIterations),
		slog.Int("tenure", e.cfg.EffectiveTenure()),
		slog.Int64("seed", e.cfg.Seed),
		slog.Int("initial_score", e.curScore))

	outcome := OutcomeExhausted
	iterations := 0
	tenure := e.cfg.EffectiveTenure()

	if e.bestScore == 0 {
		outcome = OutcomeConverged
	} else {
		for iter := 1; iter <= e.cfg.MaxIterations; iter++ {
			if ctx.Err() != nil {
				outcome = OutcomeCancelled
				break
			}

			e.tabu.Purge(iter)

			moves := e.generator.Moves()
			chosen, score, ok := e.evaluateBest(moves, iter)
			if !ok {
				// Every sampled move was tabu and none aspired. The
				// iteration commits with no move; the sample changes
				// next time.
				iterations = iter
				e.emitProgress(ctx, iter, Move{}, false, false)
				continue
			}

			aspired := e.tabu.Forbidden(chosen, iter)
			e.cur.Swap(chosen.P, chosen.Q)
			e.curScore = score
			e.tabu.Add(chosen.Reverse(), iter+tenure)

			improved := score < e.bestScore
			if improved {
				e.best.CopyFrom(e.cur)
				e.bestScore = score
				e.logger.Debug("new best score",
					slog.Int("iteration", iter),
					slog.Int("best_score", score))
			}

			iterations = iter
			e.emitProgress(ctx, iter, chosen, aspired, improved)

			if e.bestScore == 0 {
				outcome = OutcomeConverged
				break
			}
		}
		if outcome == OutcomeExhausted && ctx.Err() != nil {
			outcome = OutcomeCancelled
		}
	}

	result := &Result{
		Outcome:        outcome,
		RecoveredState: e.best.Clone(),
		BestScore:      e.bestScore,
		IterationsUsed: iterations,
		Elapsed:        time.Since(start),
	}

	switch outcome {
	case OutcomeConverged:
		e.setPhase(PhaseConverged)
	case OutcomeExhausted:
		e.setPhase(PhaseExhausted)
	case OutcomeCancelled:
		e.setPhase(PhaseCancelled)
	}

	e.tracer.EndRun(span, result, nil)
	e.logger.Info("tabu search finished",
		slog.String("run_id", e.runID),
		slog.String("outcome", outcome.String()),
		slog.Int("best_score", e.bestScore),
		slog.Int("iterations", iterations),
		slog.Duration("elapsed", result.Elapsed))

	return result, nil
}

func (e *Engine) emitProgress(ctx context.Context, iter int, applied Move, aspired, improved bool) {
	p := Progress{
		RunID:        e.runID,
		Iteration:    iter,
		CurrentScore: e.curScore,
		BestScore:    e.bestScore,
		TabuSize:     e.tabu.Len(),
		Applied:      applied,
		Aspired:      aspired,
		Timestamp:    time.Now(),
	}
	if e.cfg.SnapshotEvery > 0 && iter%e.cfg.SnapshotEvery == 0 {
		p.BestState = append([]int(nil), e.best.S...)
	}
	e.tracer.ObserveIteration(ctx, p, improved)
	e.emitter.Emit(p)
}
