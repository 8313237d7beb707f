// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mregidorgarcia/rc4tabu/rc4"
	"github.com/mregidorgarcia/rc4tabu/tabu"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	attackConfigPath    string  // YAML/JSON config file
	attackN             int     // S-box size
	attackKeystreamLen  int     // Comparison window length
	attackMaxIterations int     // Iteration budget
	attackTenure        int     // Tabu tenure (0 = derived default)
	attackRule          string  // Neighborhood rule
	attackFraction      float64 // Sample fraction for random_half
	attackOffset        int     // Pair distance for fixed_offset
	attackSeed          int64   // RNG seed (0 = time-derived)
	attackWorkers       int     // Scoring goroutines
	attackWeighted      bool    // Position-weighted objective
	attackKeystreamHex  string  // Target keystream (hex); empty = self-generated challenge
	attackProgressEvery int     // Progress log interval in iterations
	attackJSONOutput    bool    // Machine-readable result on stdout
	attackTracing       bool    // OpenTelemetry iteration spans
	attackMetrics       bool    // Prometheus counters
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// attackCmd runs the Tabu Search state-recovery attack.
//
// # Description
//
// With --keystream the given hex bytes are the attack target. Without
// it, the command generates a random hidden permutation, derives its
// keystream, attacks that, and reports whether the hidden permutation
// was recovered.
//
// # Examples
//
//	rc4tabu attack --n 64 --keystream-length 16 --max-iterations 5000
//	rc4tabu attack --config attack.yaml --seed 42 --workers 4
//	rc4tabu attack --keystream eb9f7781b734ca72 --n 256
//
// # Limitations
//
//   - Exits with code 2 when the budget is exhausted without an exact
//     recovery, so scripts can tell the outcomes apart.
var attackCmd = &cobra.Command{
	Use:   "attack",
	Short: "Recover a cipher's internal permutation from keystream",
	Long: `Runs a Tabu Search over S-box permutations, swapping pairs of entries
and scoring each candidate by how many of its keystream bytes disagree
with the target. A score of zero means the candidate reproduces the
observed keystream exactly.

Interrupting the run (Ctrl-C) stops it at the next iteration boundary
and reports the best candidate found so far.`,
	Run: runAttackCommand,
}

func init() {
	attackCmd.Flags().StringVarP(&attackConfigPath, "config", "c", "",
		"Attack configuration file (YAML or JSON)")
	attackCmd.Flags().IntVarP(&attackN, "n", "n", 0,
		"S-box size: 64, 128, or 256")
	attackCmd.Flags().IntVarP(&attackKeystreamLen, "keystream-length", "l", 0,
		"Keystream bytes each candidate is compared against")
	attackCmd.Flags().IntVarP(&attackMaxIterations, "max-iterations", "m", 0,
		"Iteration budget")
	attackCmd.Flags().IntVar(&attackTenure, "tenure", 0,
		"Tabu tenure in iterations (0 derives the default)")
	attackCmd.Flags().StringVarP(&attackRule, "rule", "r", "",
		"Neighborhood rule: random_half or fixed_offset")
	attackCmd.Flags().Float64Var(&attackFraction, "fraction", 0,
		"Fraction of transpositions sampled per iteration (random_half)")
	attackCmd.Flags().IntVar(&attackOffset, "offset", 0,
		"Pair distance (fixed_offset)")
	attackCmd.Flags().Int64VarP(&attackSeed, "seed", "s", 0,
		"RNG seed for reproducible runs (0 = time-derived)")
	attackCmd.Flags().IntVarP(&attackWorkers, "workers", "w", 0,
		"Goroutines scoring the neighborhood")
	attackCmd.Flags().BoolVar(&attackWeighted, "weighted", false,
		"Weight early keystream mismatches more heavily")
	attackCmd.Flags().StringVar(&attackKeystreamHex, "keystream", "",
		"Target keystream as hex (default: self-generated challenge)")
	attackCmd.Flags().IntVar(&attackProgressEvery, "progress-every", 100,
		"Log progress every N iterations (0 disables)")
	attackCmd.Flags().BoolVar(&attackJSONOutput, "json", false,
		"Print the result as JSON for scripting")
	attackCmd.Flags().BoolVar(&attackTracing, "tracing", false,
		"Enable OpenTelemetry spans for the run")
	attackCmd.Flags().BoolVar(&attackMetrics, "metrics", false,
		"Enable Prometheus counters")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// attackReport is the JSON shape printed with --json.
type attackReport struct {
	RunID          string  `json:"run_id"`
	Outcome        string  `json:"outcome"`
	BestScore      int     `json:"best_score"`
	IterationsUsed int     `json:"iterations_used"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Seed           int64   `json:"seed"`
	N              int     `json:"n"`
	StateRecovered *bool   `json:"state_recovered,omitempty"`
	RecoveredState []int   `json:"recovered_state"`
}

func runAttackCommand(cmd *cobra.Command, args []string) {
	cfg, err := tabu.LoadAttackConfig(attackConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Loading configuration: %v\n", err)
		os.Exit(1)
	}
	applyAttackFlags(cmd, &cfg)

	// Fix the seed here so the challenge and the search share one
	// reproducible source of randomness.
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	target, secret, err := resolveTarget(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Preparing target: %v\n", err)
		os.Exit(1)
	}
	cfg.KeystreamLength = len(target)

	tracer := tabu.NewTracer(logger.Slog(), cfg.Observability)
	engine, err := tabu.NewEngine(cfg, target,
		tabu.WithLogger(logger.Slog()),
		tabu.WithTracer(tracer),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Engine setup failed: %v\n", err)
		os.Exit(1)
	}

	logger.Info("attack starting",
		"run_id", engine.RunID(),
		"n", cfg.N,
		"keystream_length", cfg.KeystreamLength,
		"rule", cfg.Rule,
		"max_iterations", cfg.MaxIterations,
		"tenure", cfg.EffectiveTenure(),
		"workers", cfg.Workers,
		"seed", cfg.Seed,
	)

	var wg sync.WaitGroup
	if attackProgressEvery > 0 {
		events, cancelEvents := engine.Events().Channel(64)
		defer cancelEvents()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range events {
				if p.Iteration%attackProgressEvery != 0 {
					continue
				}
				logger.Info("progress",
					"iteration", p.Iteration,
					"current_score", p.CurrentScore,
					"best_score", p.BestScore,
					"tabu_size", p.TabuSize,
				)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := engine.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Attack failed: %v\n", err)
		os.Exit(1)
	}
	wg.Wait()

	var recovered *bool
	if secret != nil {
		match := equalPermutation(result.RecoveredState, secret)
		recovered = &match
	}

	logger.Info("attack finished",
		"run_id", engine.RunID(),
		"outcome", result.Outcome.String(),
		"best_score", result.BestScore,
		"iterations", result.IterationsUsed,
		"elapsed", result.Elapsed.Round(time.Millisecond).String(),
	)

	if attackJSONOutput {
		report := attackReport{
			RunID:          engine.RunID(),
			Outcome:        result.Outcome.String(),
			BestScore:      result.BestScore,
			IterationsUsed: result.IterationsUsed,
			ElapsedSeconds: result.Elapsed.Seconds(),
			Seed:           cfg.Seed,
			N:              cfg.N,
			StateRecovered: recovered,
			RecoveredState: result.RecoveredState.S,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "Encoding result: %v\n", err)
			os.Exit(1)
		}
	} else {
		printAttackSummary(engine.RunID(), cfg, result, recovered)
	}

	if result.Outcome != tabu.OutcomeConverged {
		os.Exit(2)
	}
}

// applyAttackFlags overlays explicitly set flags on the loaded config so
// precedence is flags > environment > file > defaults.
func applyAttackFlags(cmd *cobra.Command, cfg *tabu.AttackConfig) {
	flags := cmd.Flags()
	if flags.Changed("n") {
		cfg.N = attackN
	}
	if flags.Changed("keystream-length") {
		cfg.KeystreamLength = attackKeystreamLen
	}
	if flags.Changed("max-iterations") {
		cfg.MaxIterations = attackMaxIterations
	}
	if flags.Changed("tenure") {
		cfg.TabuTenure = attackTenure
	}
	if flags.Changed("rule") {
		cfg.Rule = attackRule
	}
	if flags.Changed("fraction") {
		cfg.SampleFraction = attackFraction
	}
	if flags.Changed("offset") {
		cfg.Offset = attackOffset
	}
	if flags.Changed("seed") {
		cfg.Seed = attackSeed
	}
	if flags.Changed("workers") {
		cfg.Workers = attackWorkers
	}
	if flags.Changed("weighted") {
		cfg.Weighted = attackWeighted
	}
	if flags.Changed("tracing") {
		cfg.Observability.TracingEnabled = attackTracing
	}
	if flags.Changed("metrics") {
		cfg.Observability.MetricsEnabled = attackMetrics
	}
}

// resolveTarget returns the keystream to attack. When a keystream was
// supplied the hidden state is unknown and the second return is nil;
// otherwise a fresh challenge is generated from the configured seed.
func resolveTarget(cfg tabu.AttackConfig) ([]byte, *rc4.State, error) {
	if attackKeystreamHex != "" {
		target, err := hex.DecodeString(attackKeystreamHex)
		if err != nil {
			return nil, nil, fmt.Errorf("decoding keystream hex: %w", err)
		}
		if len(target) < tabu.MinComparisonWindow {
			return nil, nil, fmt.Errorf("keystream too short: %d bytes, need at least %d",
				len(target), tabu.MinComparisonWindow)
		}
		return target, nil, nil
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	secret, target, err := rc4.GenerateChallenge(cfg.N, cfg.KeystreamLength, rng)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("generated challenge",
		"n", cfg.N, "keystream_length", cfg.KeystreamLength, "seed", cfg.Seed)
	return target, secret, nil
}

func equalPermutation(got *rc4.State, want *rc4.State) bool {
	if got == nil || got.N() != want.N() {
		return false
	}
	for i, v := range want.S {
		if got.S[i] != v {
			return false
		}
	}
	return true
}

func printAttackSummary(runID string, cfg tabu.AttackConfig, result *tabu.Result, recovered *bool) {
	fmt.Printf("Run:        %s\n", runID)
	fmt.Printf("Outcome:    %s\n", result.Outcome)
	fmt.Printf("Best score: %d (0 = exact keystream match)\n", result.BestScore)
	fmt.Printf("Iterations: %d of %d\n", result.IterationsUsed, cfg.MaxIterations)
	fmt.Printf("Elapsed:    %s\n", result.Elapsed.Round(time.Millisecond))
	fmt.Printf("Seed:       %d\n", cfg.Seed)
	if recovered != nil {
		fmt.Printf("Hidden state recovered: %v\n", *recovered)
	}
}
