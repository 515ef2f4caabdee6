package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/lanscout/pkg/api/types"
	"github.com/urmzd/lanscout/pkg/discovery"
	"github.com/urmzd/lanscout/pkg/schema"
)

type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func newTestServer(t *testing.T, devices ...discovery.RawDevice) *Server {
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
			{Name: discovery.MethodNetworkScan, Priority: 5, Timeout: time.Second, Enabled: true},
		},
	}, opts...)
	svc := discovery.NewService(queue, discovery.NewInvalidationManager(opts...), metrics,
		discovery.ServiceConfig{Debounce: time.Millisecond}, opts...)
	return NewServer(svc, schema.NewValidator())
}

func call(t *testing.T, h toolHandler, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func decodeResult[T any](t *testing.T, result *mcp.CallToolResult) T {
	t.Helper()
	require.False(t, result.IsError, resultText(t, result))
	var out T
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	return out
}

func TestGetHealth(t *testing.T) {
	s := newTestServer(t)

	out := decodeResult[GetHealthOutput](t, call(t, s.handleGetHealth, "get_health", nil))
	assert.Equal(t, "healthy", out.Status)
	assert.False(t, out.InFlight)
	assert.Empty(t, out.LastMethod)
}

func TestDiscoverDevices(t *testing.T) {
	s := newTestServer(t,
		discovery.RawDevice{NetworkAddress: "10.0.0.2", HardwareAddress: "AA:BB:CC:DD:EE:01"},
		discovery.RawDevice{NetworkAddress: "10.0.0.3"},
	)

	out := decodeResult[types.DiscoverResponse](t, call(t, s.handleDiscoverDevices, "discover_devices", map[string]any{
		"strategy":          "hybrid",
		"timeout_ms":        float64(500),
		"preferred_methods": []any{"mdns"},
	}))
	assert.Equal(t, 2, out.Count)
	assert.False(t, out.HasErrors)

	health := decodeResult[GetHealthOutput](t, call(t, s.handleGetHealth, "get_health", nil))
	assert.Equal(t, 2, health.CachedDevices)
	assert.NotEmpty(t, health.LastMethod)
}

func TestDiscoverDevices_InvalidArguments(t *testing.T) {
	s := newTestServer(t)

	for _, args := range []map[string]any{
		{"strategy": "fastest"},
		{"timeout_ms": float64(-1)},
		{"preferred_methods": "mdns"},
	} {
		result := call(t, s.handleDiscoverDevices, "discover_devices", args)
		assert.True(t, result.IsError, "%v", args)
	}
}

func TestCancelDiscovery(t *testing.T) {
	s := newTestServer(t)

	out := decodeResult[StatusOutput](t, call(t, s.handleCancelDiscovery, "cancel_discovery", nil))
	assert.True(t, out.Success)
}

func TestDevicesTools(t *testing.T) {
	s := newTestServer(t, discovery.RawDevice{NetworkAddress: "10.0.0.2", HardwareAddress: "AA:BB:CC:DD:EE:01", Name: "camera"})
	call(t, s.handleDiscoverDevices, "discover_devices", nil)

	list := decodeResult[types.ListDevicesResponse](t, call(t, s.handleListDevices, "list_devices", map[string]any{"sort": "recent"}))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "camera", list.Devices[0].Name)

	assert.True(t, call(t, s.handleListDevices, "list_devices", map[string]any{"sort": "name"}).IsError)

	dev := decodeResult[GetDeviceOutput](t, call(t, s.handleGetDevice, "get_device", map[string]any{"id": "10.0.0.2"}))
	assert.Equal(t, "AA:BB:CC:DD:EE:01", dev.Device.ID)
	assert.Greater(t, dev.Confidence, 0.0)
	assert.Greater(t, dev.TTLMs, int64(0))
	assert.Len(t, dev.History, 1)

	assert.True(t, call(t, s.handleGetDevice, "get_device", map[string]any{"id": "nope"}).IsError)
	assert.True(t, call(t, s.handleGetDevice, "get_device", nil).IsError)
	assert.True(t, call(t, s.handleGetDevice, "get_device", map[string]any{"id": 42}).IsError)

	cleared := decodeResult[StatusOutput](t, call(t, s.handleClearCache, "clear_cache", nil))
	assert.Contains(t, cleared.Message, "1")
	list = decodeResult[types.ListDevicesResponse](t, call(t, s.handleListDevices, "list_devices", nil))
	assert.Zero(t, list.Count)
}

func TestMethodTools(t *testing.T) {
	s := newTestServer(t, discovery.RawDevice{NetworkAddress: "10.0.0.2"})
	call(t, s.handleDiscoverDevices, "discover_devices", nil)

	stats := decodeResult[types.MethodStatsResponse](t, call(t, s.handleGetMethodStats, "get_method_stats", nil))
	require.Contains(t, stats.Methods, discovery.MethodMDNS)
	assert.Equal(t, 1, stats.Methods[discovery.MethodMDNS].AttemptCount)

	reset := decodeResult[StatusOutput](t, call(t, s.handleResetMethodPriorities, "reset_method_priorities", nil))
	assert.True(t, reset.Success)

	summary := decodeResult[types.MetricsSummaryResponse](t, call(t, s.handleGetMetrics, "get_metrics", nil))
	assert.Equal(t, 1, summary.Metrics.TotalDevicesFound)
}

func TestQueueConfigTools(t *testing.T) {
	s := newTestServer(t)

	cfg := decodeResult[types.QueueConfigResponse](t, call(t, s.handleGetQueueConfig, "get_queue_config", nil))
	assert.Equal(t, "sequential", cfg.Strategy)

	cfg = decodeResult[types.QueueConfigResponse](t, call(t, s.handleSetQueueConfig, "set_queue_config", map[string]any{
		"strategy":           "race",
		"default_timeout_ms": float64(3000),
		"methods": []any{
			map[string]any{"name": "mdns", "priority": float64(4), "enabled": true},
		},
	}))
	assert.Equal(t, "race", cfg.Strategy)
	assert.Equal(t, int64(3000), cfg.DefaultTimeoutMs)
	require.Len(t, cfg.Methods, 1)
	assert.Equal(t, 4, cfg.Methods[0].Priority)

	result := call(t, s.handleSetQueueConfig, "set_queue_config", map[string]any{
		"methods": []any{map[string]any{"name": "mdns", "priority": float64(11)}},
	})
	assert.True(t, result.IsError)
}

func TestCacheConfigTools(t *testing.T) {
	s := newTestServer(t)

	cfg := decodeResult[types.CacheConfigResponse](t, call(t, s.handleGetCacheConfig, "get_cache_config", nil))
	assert.Equal(t, discovery.DefaultMaxCacheSize, cfg.MaxSize)

	cfg = decodeResult[types.CacheConfigResponse](t, call(t, s.handleSetCacheConfig, "set_cache_config", map[string]any{
		"max_size": float64(10),
		"ttl_ms":   float64(10 * time.Minute / time.Millisecond),
	}))
	assert.Equal(t, 10, cfg.MaxSize)
	assert.Equal(t, (10 * time.Minute).Milliseconds(), cfg.TTLMs)

	assert.True(t, call(t, s.handleSetCacheConfig, "set_cache_config", nil).IsError)
	assert.True(t, call(t, s.handleSetCacheConfig, "set_cache_config", map[string]any{"max_size": float64(0)}).IsError)
}

func TestGetInvalidations(t *testing.T) {
	s := newTestServer(t)

	out := decodeResult[types.InvalidationsResponse](t, call(t, s.handleGetInvalidations, "get_invalidations", map[string]any{"limit": float64(5)}))
	assert.Zero(t, out.Count)
	assert.NotNil(t, out.Events)

	assert.True(t, call(t, s.handleGetInvalidations, "get_invalidations", map[string]any{"limit": float64(0)}).IsError)
	assert.True(t, call(t, s.handleGetInvalidations, "get_invalidations", map[string]any{"limit": "ten"}).IsError)
}

func TestNewServerRegistersTools(t *testing.T) {
	s := newTestServer(t)
	assert.NotNil(t, s.mcpServer)
}
