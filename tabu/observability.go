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
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "rc4tabu.attack"

var (
	metricIterations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rc4tabu_iterations_total",
		Help: "Search iterations committed across all runs.",
	})
	metricImprovements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rc4tabu_best_improvements_total",
		Help: "Iterations that improved the best score.",
	})
	metricAspirations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rc4tabu_aspiration_overrides_total",
		Help: "Tabu moves applied via the aspiration criterion.",
	})
	metricRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rc4tabu_runs_total",
		Help: "Completed runs by terminal outcome.",
	}, []string{"outcome"})
)

// Tracer provides OpenTelemetry tracing for attack runs. When tracing is
// disabled every span is a noop, so the engine calls it unconditionally.
//
// Thread Safety: safe for concurrent use.
type Tracer struct {
	tracer      trace.Tracer
	logger      *slog.Logger
	enabled     bool
	metrics     bool
	sampleEvery int
}

// NewTracer creates a tracer from the observability config.
//
// Inputs:
//   - logger: Logger for structured logging (can be nil).
//   - config: Observability configuration.
//
// Outputs:
//   - *Tracer: Tracer instance.
func NewTracer(logger *slog.Logger, config ObservabilityConfig) *Tracer {
	if logger == nil {
		logger = slog.Default()
	}
	sampleEvery := config.SampleEvery
	if sampleEvery < 1 {
		sampleEvery = 1
	}
	return &Tracer{
		tracer:      otel.Tracer(tracerName),
		logger:      logger,
		enabled:     config.TracingEnabled,
		metrics:     config.MetricsEnabled,
		sampleEvery: sampleEvery,
	}
}

// StartRun starts the span covering the whole attack run.
func (t *Tracer) StartRun(ctx context.Context, config AttackConfig, runID string) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}

	ctx, span := t.tracer.Start(ctx, "tabu.run",
		trace.WithAttributes(
			attribute.String("tabu.run_id", runID),
			attribute.Int("tabu.n", config.N),
			attribute.Int("tabu.keystream_length", config.KeystreamLength),
			attribute.Int("tabu.max_iterations", config.MaxIterations),
			attribute.Int("tabu.tenure", config.EffectiveTenure()),
			attribute.String("tabu.rule", config.Rule),
			attribute.Int64("tabu.seed", config.Seed),
			attribute.Int("tabu.workers", config.Workers),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	return ctx, span
}

// EndRun completes the run span with the terminal outcome.
func (t *Tracer) EndRun(span trace.Span, result *Result, err error) {
	if span == nil {
		return
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if result != nil {
		span.SetAttributes(
			attribute.String("tabu.result.outcome", result.Outcome.String()),
			attribute.Int("tabu.result.best_score", result.BestScore),
			attribute.Int("tabu.result.iterations", result.IterationsUsed),
			attribute.String("tabu.result.elapsed", result.Elapsed.String()),
		)
		if t.metrics {
			metricRuns.WithLabelValues(result.Outcome.String()).Inc()
		}
	}
	span.End()
}

// ObserveIteration records one committed iteration: counters always (when
// metrics are on) and a short span every sampleEvery iterations.
func (t *Tracer) ObserveIteration(ctx context.Context, p Progress, improved bool) {
	if t.metrics {
		metricIterations.Inc()
		if improved {
			metricImprovements.Inc()
		}
		if p.Aspired {
			metricAspirations.Inc()
		}
	}

	if !t.enabled || p.Iteration%t.sampleEvery != 0 {
		return
	}

	_, span := t.tracer.Start(ctx, "tabu.iteration",
		trace.WithAttributes(
			attribute.Int("tabu.iteration", p.Iteration),
			attribute.Int("tabu.current_score", p.CurrentScore),
			attribute.Int("tabu.best_score", p.BestScore),
			attribute.Int("tabu.tabu_size", p.TabuSize),
		),
	)
	span.End()
}
