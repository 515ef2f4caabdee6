package mcp

import (
	"github.com/urmzd/lanscout/pkg/discovery"
)

// Tool inputs reuse the HTTP request bodies from pkg/api/types and are
// validated against the same schemas. Outputs that differ from the HTTP
// responses are declared here.

// GetHealthOutput is the output for the get_health tool
type GetHealthOutput struct {
	Status        string `json:"status" jsonschema:"description=Overall health status"`
	InFlight      bool   `json:"in_flight" jsonschema:"description=Whether a discovery operation is running"`
	CachedDevices int    `json:"cached_devices" jsonschema:"description=Number of cached devices"`
	LastMethod    string `json:"last_method,omitempty" jsonschema:"description=Method or strategy label of the last completed discovery"`
	Timestamp     string `json:"timestamp" jsonschema:"description=ISO8601 timestamp"`
}

// GetDeviceOutput is the output for the get_device tool
type GetDeviceOutput struct {
	Device     discovery.NormalizedDevice      `json:"device" jsonschema:"description=The cached device"`
	Confidence float64                         `json:"confidence" jsonschema:"description=Identity confidence between 0 and 1"`
	TTLMs      int64                           `json:"ttl_ms" jsonschema:"description=Adaptive cache lifetime in milliseconds"`
	History    []discovery.DeviceStateSnapshot `json:"history" jsonschema:"description=Recorded state snapshots, oldest first"`
}

// StatusOutput acknowledges a state-changing tool call
type StatusOutput struct {
	Success bool   `json:"success" jsonschema:"description=Whether the operation succeeded"`
	Message string `json:"message" jsonschema:"description=Human-readable result message"`
}
