// Package types holds the request and response bodies of the HTTP API. The
// MCP server decodes tool arguments into the same request types.
package types

import (
	"fmt"
	"time"

	"github.com/urmzd/lanscout/pkg/discovery"
)

// --- Request DTOs ---

// DiscoverRequest is the request body for POST /discovery
type DiscoverRequest struct {
	Strategy         string   `json:"strategy,omitempty"`
	TimeoutMs        int64    `json:"timeout_ms,omitempty"`
	PreferredMethods []string `json:"preferred_methods,omitempty"`
}

// Options converts the request into queue execution options.
func (r DiscoverRequest) Options() (discovery.ExecuteOptions, error) {
	opts := discovery.ExecuteOptions{
		Timeout:          time.Duration(r.TimeoutMs) * time.Millisecond,
		PreferredMethods: r.PreferredMethods,
	}
	if r.Strategy != "" {
		s, err := discovery.ParseStrategy(r.Strategy)
		if err != nil {
			return discovery.ExecuteOptions{}, err
		}
		opts.Strategy = &s
	}
	return opts, nil
}

// QueueConfigRequest is the request body for PUT /queue/config. Omitted
// fields are left unchanged.
type QueueConfigRequest struct {
	Strategy         *string            `json:"strategy,omitempty"`
	DefaultTimeoutMs *int64             `json:"default_timeout_ms,omitempty"`
	LearningEnabled  *bool              `json:"learning_enabled,omitempty"`
	Methods          []discovery.Method `json:"methods,omitempty"`
}

// Update converts the request into a partial queue configuration update.
func (r QueueConfigRequest) Update() (discovery.QueueConfigUpdate, error) {
	var u discovery.QueueConfigUpdate
	if r.Strategy != nil {
		s, err := discovery.ParseStrategy(*r.Strategy)
		if err != nil {
			return u, err
		}
		u.Strategy = &s
	}
	if r.DefaultTimeoutMs != nil {
		if *r.DefaultTimeoutMs <= 0 {
			return u, fmt.Errorf("default_timeout_ms must be positive")
		}
		d := time.Duration(*r.DefaultTimeoutMs) * time.Millisecond
		u.DefaultTimeout = &d
	}
	u.LearningEnabled = r.LearningEnabled
	u.Methods = r.Methods
	return u, nil
}

// CacheConfigRequest is the request body for PUT /cache/config
type CacheConfigRequest struct {
	MaxSize *int   `json:"max_size,omitempty"`
	TTLMs   *int64 `json:"ttl_ms,omitempty"`
}

// --- Response DTOs ---

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned from GET /health
type HealthResponse struct {
	Status        string     `json:"status"`
	InFlight      bool       `json:"in_flight"`
	CachedDevices int        `json:"cached_devices"`
	LastDiscovery *time.Time `json:"last_discovery,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
}

// DiscoverResponse is returned from POST /discovery
type DiscoverResponse struct {
	Devices    []discovery.NormalizedDevice `json:"devices"`
	Count      int                          `json:"count"`
	Method     string                       `json:"method"`
	DurationMs int64                        `json:"duration_ms"`
	Errors     []string                     `json:"errors,omitempty"`
	HasErrors  bool                         `json:"has_errors"`
	Cancelled  bool                         `json:"cancelled,omitempty"`
}

// NewDiscoverResponse converts a discovery result.
func NewDiscoverResponse(r discovery.Result) DiscoverResponse {
	devices := r.Devices
	if devices == nil {
		devices = []discovery.NormalizedDevice{}
	}
	return DiscoverResponse{
		Devices:    devices,
		Count:      len(devices),
		Method:     r.Method,
		DurationMs: r.Duration.Milliseconds(),
		Errors:     r.Errors,
		HasErrors:  r.HasErrors,
		Cancelled:  r.Cancelled,
	}
}

// ListDevicesResponse is returned from GET /devices
type ListDevicesResponse struct {
	Devices []discovery.NormalizedDevice `json:"devices"`
	Count   int                          `json:"count"`
}

// DeviceResponse is returned from GET /devices/:id
type DeviceResponse struct {
	Device     discovery.NormalizedDevice `json:"device"`
	Confidence float64                    `json:"confidence"`
	TTLMs      int64                      `json:"ttl_ms"`
}

// DeviceHistoryResponse is returned from GET /devices/:id/history
type DeviceHistoryResponse struct {
	DeviceID  string                          `json:"device_id"`
	Snapshots []discovery.DeviceStateSnapshot `json:"snapshots"`
}

// CacheConfigResponse is returned from GET/PUT /cache/config
type CacheConfigResponse struct {
	MaxSize     int   `json:"max_size"`
	TTLMs       int64 `json:"ttl_ms"`
	CurrentSize int   `json:"current_size"`
}

// NewCacheConfigResponse converts the service cache bounds.
func NewCacheConfigResponse(c discovery.CacheConfig) CacheConfigResponse {
	return CacheConfigResponse{MaxSize: c.MaxSize, TTLMs: c.TTL.Milliseconds(), CurrentSize: c.CurrentSize}
}

// QueueConfigResponse is returned from GET/PUT /queue/config
type QueueConfigResponse struct {
	Strategy         string             `json:"strategy"`
	DefaultTimeoutMs int64              `json:"default_timeout_ms"`
	LearningEnabled  bool               `json:"learning_enabled"`
	Methods          []discovery.Method `json:"methods"`
}

// NewQueueConfigResponse converts the queue configuration.
func NewQueueConfigResponse(c discovery.QueueConfig) QueueConfigResponse {
	return QueueConfigResponse{
		Strategy:         c.Strategy.String(),
		DefaultTimeoutMs: c.DefaultTimeout.Milliseconds(),
		LearningEnabled:  c.LearningEnabled,
		Methods:          c.Methods,
	}
}

// MethodStatsResponse is returned from GET /methods/stats
type MethodStatsResponse struct {
	Methods     map[string]discovery.MethodStats `json:"methods"`
	Recommended string                           `json:"recommended,omitempty"`
}

// MetricsSummaryResponse is returned from GET /metrics/summary
type MetricsSummaryResponse struct {
	Metrics      discovery.Metrics           `json:"metrics"`
	Invalidation discovery.InvalidationStats `json:"invalidation"`
	Recommended  string                      `json:"recommended,omitempty"`
}

// SnapshotsResponse is returned from GET /metrics/snapshots
type SnapshotsResponse struct {
	Snapshots []discovery.Snapshot `json:"snapshots"`
	Count     int                  `json:"count"`
}

// InvalidationsResponse is returned from GET /invalidations
type InvalidationsResponse struct {
	Events []discovery.InvalidationEvent `json:"events"`
	Count  int                           `json:"count"`
}

// StatusResponse acknowledges a state-changing request.
type StatusResponse struct {
	Status string `json:"status"`
}
