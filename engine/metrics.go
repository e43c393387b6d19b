// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer for engine operations.
var tracer = otel.Tracer("traitscope.engine")

// Prometheus metrics for process supervision.
var (
	spawnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "traitscope_analyzer_spawns_total",
		Help: "Analyzer processes spawned",
	})

	spawnFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "traitscope_analyzer_spawn_failures_total",
		Help: "Analyzer spawns that failed before handshake",
	})
)

// startSpan opens a span for an engine operation on one artifact.
func startSpan(ctx context.Context, operation, identity string) (context.Context, trace.Span) {
	return tracer.Start(ctx, operation,
		trace.WithAttributes(
			attribute.String("engine.operation", operation),
			attribute.String("engine.artifact", identity),
		),
	)
}
