package discovery

import (
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) (*MetricsCollector, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	return NewMetricsCollector(WithClock(mock), WithLogger(zerolog.Nop())), mock
}

func record(c *MetricsCollector, method string, success bool, d time.Duration, devices int) {
	id := c.StartAttempt(method)
	var err error
	if !success {
		err = errors.New("boom")
	}
	c.CompleteAttempt(id, AttemptOutcome{Success: success, Duration: d, DevicesFound: devices, Err: err})
}

func TestMetricsCollector_Aggregates(t *testing.T) {
	c, _ := newTestMetrics(t)

	record(c, MethodMDNS, true, 100*time.Millisecond, 2)
	record(c, MethodMDNS, false, 200*time.Millisecond, 0)
	record(c, MethodMDNS, true, 300*time.Millisecond, 1)

	m, ok := c.MethodMetrics(MethodMDNS)
	require.True(t, ok)
	assert.Equal(t, 3, m.AttemptCount)
	assert.Equal(t, 2, m.SuccessCount)
	assert.Equal(t, 1, m.FailureCount)
	assert.Equal(t, 200*time.Millisecond, m.AvgDuration)
	assert.Equal(t, 100*time.Millisecond, m.MinDuration)
	assert.Equal(t, 300*time.Millisecond, m.MaxDuration)
	assert.InDelta(t, 2.0/3.0, m.SuccessRate, 1e-9)
	assert.Equal(t, "boom", m.LastError)

	all := c.Metrics()
	assert.Equal(t, 3, all.TotalDiscoveries)
	assert.Equal(t, 3, all.TotalDevicesFound)
}

func TestMetricsCollector_UnknownAttempt(t *testing.T) {
	c, _ := newTestMetrics(t)

	c.CompleteAttempt("does-not-exist", AttemptOutcome{Success: true})

	_, ok := c.MethodMetrics(MethodMDNS)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Metrics().TotalDiscoveries)
}

func TestMetricsCollector_AttemptCountsOnlyOnCompletion(t *testing.T) {
	c, _ := newTestMetrics(t)

	c.StartAttempt(MethodManual)
	_, ok := c.MethodMetrics(MethodManual)
	assert.False(t, ok)
}

func TestMetricsCollector_SnapshotInterval(t *testing.T) {
	c, mock := newTestMetrics(t)

	record(c, MethodMDNS, true, time.Millisecond, 1)
	assert.Empty(t, c.Snapshots(), "no snapshot before the interval elapses")

	mock.Add(5 * time.Second)
	record(c, MethodMDNS, true, time.Millisecond, 1)
	require.Len(t, c.Snapshots(), 1)

	record(c, MethodMDNS, true, time.Millisecond, 1)
	assert.Len(t, c.Snapshots(), 1)
}

func TestMetricsCollector_SnapshotsBounded(t *testing.T) {
	c, mock := newTestMetrics(t)

	for range 105 {
		mock.Add(5 * time.Second)
		record(c, MethodMDNS, true, time.Millisecond, 1)
	}

	snaps := c.Snapshots()
	require.Len(t, snaps, maxSnapshots)
	assert.Equal(t, 6, snaps[0].Metrics.TotalDiscoveries)
	assert.Equal(t, 105, snaps[len(snaps)-1].Metrics.TotalDiscoveries)
}

func TestMetricsCollector_CacheHitRate(t *testing.T) {
	c, _ := newTestMetrics(t)
	assert.Equal(t, 0.0, c.Metrics().Cache.HitRate)

	c.RecordCacheHit()
	c.RecordCacheHit()
	c.RecordCacheHit()
	c.RecordCacheMiss()
	c.RecordCacheEviction()
	c.UpdateCacheMetrics(7, 100)

	cache := c.Metrics().Cache
	assert.Equal(t, int64(3), cache.Hits)
	assert.Equal(t, int64(1), cache.Misses)
	assert.Equal(t, int64(1), cache.Evictions)
	assert.InDelta(t, 0.75, cache.HitRate, 1e-9)
	assert.Equal(t, 7, cache.CurrentSize)
	assert.Equal(t, 100, cache.MaxSize)
}

func TestMetricsCollector_RecommendedMethod(t *testing.T) {
	c, _ := newTestMetrics(t)

	_, ok := c.RecommendedMethod()
	assert.False(t, ok)

	// Always succeeds but slowly: 0.7 + 0.3*0.1 = 0.73
	for range 10 {
		record(c, MethodNetworkScan, true, 9*time.Second, 1)
	}
	// 90% success and fast: 0.63 + 0.3*0.99 = 0.927
	for i := range 10 {
		record(c, MethodMDNS, i != 0, 100*time.Millisecond, 1)
	}

	best, ok := c.RecommendedMethod()
	require.True(t, ok)
	assert.Equal(t, MethodMDNS, best)
}

func TestMethodMetrics_ScoreSpeedFloor(t *testing.T) {
	m := MethodMetrics{SuccessRate: 1, AvgDuration: 30 * time.Second}
	assert.InDelta(t, 0.7, m.Score(), 1e-9)
}

func TestMetricsCollector_PrometheusCollector(t *testing.T) {
	c, _ := newTestMetrics(t)
	record(c, MethodMDNS, true, time.Millisecond, 1)

	// five per-method series plus six global ones
	assert.Equal(t, 11, testutil.CollectAndCount(c))
}

func TestMetricsCollector_Reset(t *testing.T) {
	c, _ := newTestMetrics(t)
	record(c, MethodMDNS, true, time.Millisecond, 1)
	c.RecordCacheHit()

	c.Reset()

	m := c.Metrics()
	assert.Empty(t, m.Methods)
	assert.Equal(t, int64(0), m.Cache.Hits)
	assert.Equal(t, 0, m.TotalDiscoveries)
}
