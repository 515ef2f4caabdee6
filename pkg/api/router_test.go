package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/lanscout/pkg/api/types"
	"github.com/urmzd/lanscout/pkg/discovery"
	"github.com/urmzd/lanscout/pkg/schema"
)

type testEnv struct {
	service *discovery.Service
	handler http.Handler
}

func newTestEnv(t *testing.T, devices ...discovery.RawDevice) *testEnv {
	t.Helper()
	opts := []discovery.Option{discovery.WithLogger(zerolog.Nop()), discovery.WithRetryDelay(time.Millisecond)}
	exec := func(ctx context.Context, method string, timeout time.Duration) ([]discovery.RawDevice, error) {
		return devices, nil
	}
	metrics := discovery.NewMetricsCollector(opts...)
	queue := discovery.NewMethodQueue(exec, metrics, discovery.QueueConfig{
		Strategy: discovery.StrategySequential,
		Methods: []discovery.Method{
			{Name: discovery.MethodMDNS, Priority: 9, Timeout: time.Second, Enabled: true},
			{Name: discovery.MethodManual, Priority: 3, Timeout: time.Second, Enabled: true},
		},
	}, opts...)
	svc := discovery.NewService(queue, discovery.NewInvalidationManager(opts...), metrics,
		discovery.ServiceConfig{Debounce: time.Millisecond}, opts...)

	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics)

	return &testEnv{
		service: svc,
		handler: NewRouter(svc, schema.NewValidator(), reg).Handler(),
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[types.HealthResponse](t, rec)
	assert.Equal(t, "healthy", resp.Status)
	assert.Nil(t, resp.LastDiscovery)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/health", "").Code)
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "probe-42")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, "probe-42", rec.Header().Get("X-Request-ID"))
}

func TestDiscover(t *testing.T) {
	env := newTestEnv(t,
		discovery.RawDevice{NetworkAddress: "10.0.0.2", HardwareAddress: "aa-bb-cc-dd-ee-01", Name: "camera"},
		discovery.RawDevice{NetworkAddress: "10.0.0.3"},
	)

	rec := env.do(t, http.MethodPost, "/api/v1/discovery", `{"strategy":"race","timeout_ms":500}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[types.DiscoverResponse](t, rec)
	assert.Equal(t, 2, resp.Count)
	assert.False(t, resp.HasErrors)
	assert.Equal(t, discovery.MethodMDNS, resp.Method)

	// empty body is accepted
	rec = env.do(t, http.MethodPost, "/api/v1/discovery", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/health", "")
	assert.NotNil(t, decode[types.HealthResponse](t, rec).LastDiscovery)
}

func TestDiscover_Validation(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{
		`{"strategy":"fastest"}`,
		`{"timeout_ms":-5}`,
		`{"unknown":true}`,
		`{"strategy":`,
	} {
		rec := env.do(t, http.MethodPost, "/api/v1/discovery", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.NotEmpty(t, decode[types.ErrorResponse](t, rec).Error)
	}
}

func TestDevices(t *testing.T) {
	env := newTestEnv(t, discovery.RawDevice{NetworkAddress: "10.0.0.2", HardwareAddress: "AA:BB:CC:DD:EE:01"})
	env.do(t, http.MethodPost, "/api/v1/discovery", "{}")

	list := decode[types.ListDevicesResponse](t, env.do(t, http.MethodGet, "/api/v1/devices?sort=recent", ""))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "AA:BB:CC:DD:EE:01", list.Devices[0].ID)

	// lookup by alternate id
	rec := env.do(t, http.MethodGet, "/api/v1/devices/10.0.0.2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	dev := decode[types.DeviceResponse](t, rec)
	assert.Equal(t, "AA:BB:CC:DD:EE:01", dev.Device.ID)
	assert.Greater(t, dev.Confidence, 0.0)
	assert.Greater(t, dev.TTLMs, int64(0))

	rec = env.do(t, http.MethodGet, "/api/v1/devices/AA:BB:CC:DD:EE:01/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[types.DeviceHistoryResponse](t, rec).Snapshots, 1)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/devices/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/devices/nope/history", "").Code)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, "/api/v1/devices", "").Code)
	list = decode[types.ListDevicesResponse](t, env.do(t, http.MethodGet, "/api/v1/devices", ""))
	assert.Zero(t, list.Count)
	assert.NotNil(t, list.Devices)
}

func TestCacheConfig(t *testing.T) {
	env := newTestEnv(t)

	cfg := decode[types.CacheConfigResponse](t, env.do(t, http.MethodGet, "/api/v1/cache/config", ""))
	assert.Equal(t, discovery.DefaultMaxCacheSize, cfg.MaxSize)
	assert.Equal(t, discovery.DefaultCacheTTL.Milliseconds(), cfg.TTLMs)

	rec := env.do(t, http.MethodPut, "/api/v1/cache/config", `{"max_size":5,"ttl_ms":1000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cfg = decode[types.CacheConfigResponse](t, rec)
	assert.Equal(t, 5, cfg.MaxSize)
	assert.Equal(t, discovery.MinCacheTTL.Milliseconds(), cfg.TTLMs)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPut, "/api/v1/cache/config", `{"max_size":0}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPut, "/api/v1/cache/config", `{}`).Code)
}

func TestQueueConfig(t *testing.T) {
	env := newTestEnv(t)

	cfg := decode[types.QueueConfigResponse](t, env.do(t, http.MethodGet, "/api/v1/queue/config", ""))
	assert.Equal(t, "sequential", cfg.Strategy)
	assert.Len(t, cfg.Methods, 2)

	rec := env.do(t, http.MethodPut, "/api/v1/queue/config",
		`{"strategy":"hybrid","learning_enabled":false,"methods":[{"name":"manual","priority":7,"timeout_ms":2000,"enabled":true}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cfg = decode[types.QueueConfigResponse](t, rec)
	assert.Equal(t, "hybrid", cfg.Strategy)
	assert.False(t, cfg.LearningEnabled)
	require.Len(t, cfg.Methods, 1)
	assert.Equal(t, 2*time.Second, cfg.Methods[0].Timeout)

	assert.Equal(t, http.StatusBadRequest,
		env.do(t, http.MethodPut, "/api/v1/queue/config", `{"methods":[{"name":"mdns","priority":0}]}`).Code)
}

func TestMethodsAndMetrics(t *testing.T) {
	env := newTestEnv(t, discovery.RawDevice{NetworkAddress: "10.0.0.2"})
	env.do(t, http.MethodPost, "/api/v1/discovery", "{}")

	stats := decode[types.MethodStatsResponse](t, env.do(t, http.MethodGet, "/api/v1/methods/stats", ""))
	require.Contains(t, stats.Methods, discovery.MethodMDNS)
	assert.Equal(t, 1, stats.Methods[discovery.MethodMDNS].AttemptCount)
	assert.Equal(t, discovery.MethodMDNS, stats.Recommended)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/methods/reset", "").Code)

	summary := decode[types.MetricsSummaryResponse](t, env.do(t, http.MethodGet, "/api/v1/metrics/summary", ""))
	assert.Equal(t, 1, summary.Metrics.TotalDevicesFound)
	assert.Equal(t, 1, summary.Invalidation.TrackedDevices)

	snaps := decode[types.SnapshotsResponse](t, env.do(t, http.MethodGet, "/api/v1/metrics/snapshots", ""))
	assert.NotNil(t, snaps.Snapshots)

	inv := decode[types.InvalidationsResponse](t, env.do(t, http.MethodGet, "/api/v1/invalidations?limit=10", ""))
	assert.Zero(t, inv.Count)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/v1/invalidations?limit=0", "").Code)
}

func TestPrometheusEndpoint(t *testing.T) {
	env := newTestEnv(t, discovery.RawDevice{NetworkAddress: "10.0.0.2"})
	env.do(t, http.MethodPost, "/api/v1/discovery", "{}")

	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lanscout_")
}

func TestEventsStream(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/discovery/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	nextEvent := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if name, ok := strings.CutPrefix(strings.TrimSpace(line), "event: "); ok {
				return name
			}
		}
	}

	assert.Equal(t, "connected", nextEvent())
	env.service.ClearCache()
	assert.Equal(t, string(discovery.EventCacheCleared), nextEvent())
}
