package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizerMetrics_Creation(t *testing.T) {
	t.Run("successfully create optimizer metrics", func(t *testing.T) {
		metrics, err := NewOptimizerMetrics()
		require.NoError(t, err)
		assert.NotNil(t, metrics)
		assert.NotNil(t, metrics.requestsCounter)
		assert.NotNil(t, metrics.fallbacksCounter)
		assert.NotNil(t, metrics.failuresCounter)
		assert.NotNil(t, metrics.requestDurationHistogram)
		assert.NotNil(t, metrics.sessionsActiveGauge)
	})
}

func TestOptimizerMetrics_RecordRequest(t *testing.T) {
	metrics, err := NewOptimizerMetrics()
	require.NoError(t, err)

	t.Run("record request with duration", func(t *testing.T) {
		assert.NotPanics(t, func() {
			metrics.RecordRequest(context.Background(), "initial", 250*time.Millisecond)
		})
	})

	t.Run("record refine requests", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			metrics.RecordRequest(context.Background(), "refine", time.Second)
		}
	})
}

func TestOptimizerMetrics_RecordFallbackAndFailure(t *testing.T) {
	metrics, err := NewOptimizerMetrics()
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		metrics.RecordFallback(context.Background(), "connection")
		metrics.RecordFailure(context.Background(), "server")
	})
}

func TestOptimizerMetrics_SessionGauge(t *testing.T) {
	metrics, err := NewOptimizerMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		metrics.SessionOpened(ctx)
		metrics.SessionClosed(ctx)
	})
}

func TestOptimizerMetrics_NilReceiverIsSafe(t *testing.T) {
	var metrics *OptimizerMetrics

	assert.NotPanics(t, func() {
		metrics.RecordRequest(context.Background(), "initial", time.Second)
		metrics.RecordFallback(context.Background(), "connection")
		metrics.RecordFailure(context.Background(), "unknown")
		metrics.SessionOpened(context.Background())
		metrics.SessionClosed(context.Background())
	})
}
