package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("optimizer-metrics")

// OptimizerMetrics provides metrics collection for optimization requests and
// chat sessions.
type OptimizerMetrics struct {
	requestsCounter          metric.Int64Counter
	fallbacksCounter         metric.Int64Counter
	failuresCounter          metric.Int64Counter
	requestDurationHistogram metric.Float64Histogram
	sessionsActiveGauge      metric.Int64UpDownCounter
}

// NewOptimizerMetrics creates a new optimizer metrics collector
func NewOptimizerMetrics() (*OptimizerMetrics, error) {
	requestsCounter, err := meter.Int64Counter(
		"office_optimizer.requests.total",
		metric.WithDescription("Total number of optimization requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	fallbacksCounter, err := meter.Int64Counter(
		"office_optimizer.requests.fallback",
		metric.WithDescription("Requests served by the deterministic local fallback"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	failuresCounter, err := meter.Int64Counter(
		"office_optimizer.requests.failed",
		metric.WithDescription("Requests surfaced to the user as an error"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	requestDurationHistogram, err := meter.Float64Histogram(
		"office_optimizer.request.duration",
		metric.WithDescription("Duration of optimization requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	sessionsActiveGauge, err := meter.Int64UpDownCounter(
		"office_optimizer.sessions.active",
		metric.WithDescription("Number of currently connected chat sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, err
	}

	return &OptimizerMetrics{
		requestsCounter:          requestsCounter,
		fallbacksCounter:         fallbacksCounter,
		failuresCounter:          failuresCounter,
		requestDurationHistogram: requestDurationHistogram,
		sessionsActiveGauge:      sessionsActiveGauge,
	}, nil
}

// RecordRequest records a completed optimization request and its duration.
// mode is "initial" or "refine".
func (om *OptimizerMetrics) RecordRequest(ctx context.Context, mode string, duration time.Duration) {
	if om == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("mode", mode))
	om.requestsCounter.Add(ctx, 1, attrs)
	om.requestDurationHistogram.Record(ctx, duration.Seconds(), attrs)
}

// RecordFallback records a request that was served by the local fallback.
func (om *OptimizerMetrics) RecordFallback(ctx context.Context, errorKind string) {
	if om == nil {
		return
	}
	om.fallbacksCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error_kind", errorKind),
	))
}

// RecordFailure records a request surfaced to the user as an error.
func (om *OptimizerMetrics) RecordFailure(ctx context.Context, errorKind string) {
	if om == nil {
		return
	}
	om.failuresCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error_kind", errorKind),
	))
}

// SessionOpened increments the active-session gauge.
func (om *OptimizerMetrics) SessionOpened(ctx context.Context) {
	if om == nil {
		return
	}
	om.sessionsActiveGauge.Add(ctx, 1)
}

// SessionClosed decrements the active-session gauge.
func (om *OptimizerMetrics) SessionClosed(ctx context.Context) {
	if om == nil {
		return
	}
	om.sessionsActiveGauge.Add(ctx, -1)
}
