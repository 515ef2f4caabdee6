package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/lanscout/pkg/api/types"
	"github.com/urmzd/lanscout/pkg/discovery"
	"github.com/urmzd/lanscout/pkg/schema"
)

const defaultInvalidationLimit = 50

// --- Health ---

func (s *Server) handleGetHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := GetHealthOutput{
		Status:        "healthy",
		InFlight:      s.service.InFlight(),
		CachedDevices: s.service.CacheConfig().CurrentSize,
		Timestamp:     time.Now().Format(time.RFC3339),
	}
	if last, ok := s.service.LastResult(); ok {
		out.LastMethod = last.Method
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

// --- Discovery ---

func (s *Server) handleDiscoverDevices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req types.DiscoverRequest
	if err := s.decodeArgs(request, schema.DiscoverRequest, &req); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	opts, err := req.Options()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res := s.service.Discover(ctx, opts)
	log.Info().
		Str("method", res.Method).
		Int("devices", len(res.Devices)).
		Bool("cancelled", res.Cancelled).
		Msg("MCP discovery finished")
	return mcp.NewToolResultText(formatJSON(types.NewDiscoverResponse(res))), nil
}

func (s *Server) handleCancelDiscovery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.service.Cancel()
	return mcp.NewToolResultText(formatJSON(StatusOutput{
		Success: true,
		Message: "Discovery cancelled",
	})), nil
}

// --- Devices ---

func (s *Server) handleListDevices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sort, _ := request.GetArguments()["sort"].(string)
	switch sort {
	case "", "id", "recent":
	default:
		return mcp.NewToolResultError(fmt.Sprintf("invalid sort %q: expected id or recent", sort)), nil
	}

	devices := s.service.CachedDevices(sort == "recent")
	return mcp.NewToolResultText(formatJSON(types.ListDevicesResponse{
		Devices: devices,
		Count:   len(devices),
	})), nil
}

func (s *Server) handleGetDevice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(request, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	d, err := s.service.Device(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("device not found: %s", id)), nil
	}

	history := s.service.DeviceHistory(d.ID)
	if history == nil {
		history = []discovery.DeviceStateSnapshot{}
	}
	return mcp.NewToolResultText(formatJSON(GetDeviceOutput{
		Device:     d,
		Confidence: s.service.DeviceConfidence(d.ID),
		TTLMs:      s.service.DeviceTTL(d.ID).Milliseconds(),
		History:    history,
	})), nil
}

func (s *Server) handleClearCache(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n := s.service.CacheConfig().CurrentSize
	s.service.ClearCache()
	return mcp.NewToolResultText(formatJSON(StatusOutput{
		Success: true,
		Message: fmt.Sprintf("Cleared %d cached devices", n),
	})), nil
}

// --- Methods ---

func (s *Server) handleGetMethodStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recommended, _ := s.service.RecommendedMethod()
	return mcp.NewToolResultText(formatJSON(types.MethodStatsResponse{
		Methods:     s.service.MethodStats(),
		Recommended: recommended,
	})), nil
}

func (s *Server) handleResetMethodPriorities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.service.ResetMethodPriorities()
	return mcp.NewToolResultText(formatJSON(StatusOutput{
		Success: true,
		Message: "Method priorities reset to defaults",
	})), nil
}

// --- Configuration ---

func (s *Server) handleGetQueueConfig(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatJSON(types.NewQueueConfigResponse(s.service.QueueConfig()))), nil
}

func (s *Server) handleSetQueueConfig(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req types.QueueConfigRequest
	if err := s.decodeArgs(request, schema.QueueConfigRequest, &req); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	update, err := req.Update()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.service.SetQueueConfig(update)
	return mcp.NewToolResultText(formatJSON(types.NewQueueConfigResponse(s.service.QueueConfig()))), nil
}

func (s *Server) handleGetCacheConfig(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatJSON(types.NewCacheConfigResponse(s.service.CacheConfig()))), nil
}

func (s *Server) handleSetCacheConfig(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req types.CacheConfigRequest
	if err := s.decodeArgs(request, schema.CacheConfigRequest, &req); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.MaxSize != nil {
		s.service.SetMaxCacheSize(*req.MaxSize)
	}
	if req.TTLMs != nil {
		s.service.SetCacheTTL(time.Duration(*req.TTLMs) * time.Millisecond)
	}
	return mcp.NewToolResultText(formatJSON(types.NewCacheConfigResponse(s.service.CacheConfig()))), nil
}

// --- Metrics ---

func (s *Server) handleGetMetrics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recommended, _ := s.service.RecommendedMethod()
	return mcp.NewToolResultText(formatJSON(types.MetricsSummaryResponse{
		Metrics:      s.service.Metrics(),
		Invalidation: s.service.InvalidationStats(),
		Recommended:  recommended,
	})), nil
}

func (s *Server) handleGetInvalidations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := defaultInvalidationLimit
	if raw, ok := request.GetArguments()["limit"]; ok {
		n, isNum := raw.(float64)
		if !isNum || n < 1 {
			return mcp.NewToolResultError("limit must be a positive number"), nil
		}
		limit = int(n)
	}

	events := s.service.InvalidationHistory(limit)
	if events == nil {
		events = []discovery.InvalidationEvent{}
	}
	return mcp.NewToolResultText(formatJSON(types.InvalidationsResponse{
		Events: events,
		Count:  len(events),
	})), nil
}

// --- Helpers ---

// decodeArgs validates the tool arguments against the named request schema
// and decodes them into dst.
func (s *Server) decodeArgs(request mcp.CallToolRequest, schemaName string, dst any) error {
	args := request.GetArguments()
	if err := s.validator.ValidateRequestArgs(schemaName, args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if len(args) == 0 {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}

func requiredString(request mcp.CallToolRequest, key string) (string, error) {
	args := request.GetArguments()
	val, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required parameter: %s", key)
	}
	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("parameter %s must be a string", key)
	}
	if str == "" {
		return "", fmt.Errorf("parameter %s must not be empty", key)
	}
	return str, nil
}

func formatJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
