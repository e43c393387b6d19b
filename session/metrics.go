// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level meter for session operations.
var meter = otel.Meter("traitscope.session")

// Prometheus metrics for session traffic.
var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "traitscope_sessions_active",
		Help: "Number of live analyzer sessions",
	})

	framesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "traitscope_frames_total",
		Help: "Complete frames surfaced to the decoder",
	})

	decodeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "traitscope_decode_failures_total",
		Help: "Frames that failed typed decoding, by kind tag",
	}, []string{"kind"})

	requestsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "traitscope_requests_sent_total",
		Help: "Requests enqueued to the analyzer, by kind",
	}, []string{"kind"})

	dispatchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "traitscope_dispatch_errors_total",
		Help: "Provider handler failures during dispatch, by provider kind",
	}, []string{"provider"})
)

// Otel metrics.
var (
	dispatchDuration metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the otel instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		dispatchDuration, metricsErr = meter.Float64Histogram(
			"traitscope_dispatch_duration_seconds",
			metric.WithDescription("Time to fan one message out to all providers"),
			metric.WithUnit("s"),
		)
	})
	return metricsErr
}

// recordDispatch records one dispatch pass.
func recordDispatch(ctx context.Context, kind string, d time.Duration) {
	if dispatchDuration == nil {
		return
	}
	dispatchDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("message.kind", kind)),
	)
}
