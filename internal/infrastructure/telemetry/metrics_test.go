package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	mp, err := NewMeterProvider(ctx, Config{ServiceName: "test-service"}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestCounterHistogramGauge(t *testing.T) {
	reader, provider := newManualMeter(t)
	meter := provider.Meter("test")
	ctx := context.Background()

	counter, err := NewCounter(meter, "things_total", "things", "{thing}")
	require.NoError(t, err)
	counter.Inc(ctx, AttrOperation.String("a"))
	counter.Add(ctx, 4, AttrOperation.String("a"))
	counter.Inc(ctx, AttrOperation.String("b"))

	hist, err := NewHistogram(meter, HistogramOpts{Name: "latency", Unit: "s", Boundaries: DBDurationBuckets})
	require.NoError(t, err)
	hist.RecordDuration(ctx, 20*time.Millisecond)
	hist.Record(ctx, 0.5)

	gauge, err := NewGauge(meter, "depth", "depth", "{job}")
	require.NoError(t, err)
	gauge.Record(ctx, 3)
	gauge.Record(ctx, 7)

	got := collect(t, reader)
	assert.Equal(t, int64(5), sumFor(t, got["things_total"], AttrOperation.String("a")))
	assert.Equal(t, int64(1), sumFor(t, got["things_total"], AttrOperation.String("b")))
	assert.Equal(t, uint64(2), histogramCount(t, got["latency"]))
	v, ok := gaugeFor(t, got["depth"])
	require.True(t, ok)
	assert.Equal(t, int64(7), v)
}

func TestBucketsAscending(t *testing.T) {
	for name, buckets := range map[string][]float64{
		"db":     DBDurationBuckets,
		"remote": RemoteDurationBuckets,
		"job":    JobDurationBuckets,
	} {
		for i := 1; i < len(buckets); i++ {
			assert.Less(t, buckets[i-1], buckets[i], name)
		}
	}
}
