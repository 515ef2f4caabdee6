package mcp

import "github.com/mark3labs/mcp-go/mcp"

// registerTools registers all MCP tools with the server
func (s *Server) registerTools() {
	// Health check
	s.mcpServer.AddTool(
		mcp.NewTool("get_health",
			mcp.WithDescription("Check the lanscout service status, cache size and whether a discovery is running"),
		),
		s.handleGetHealth,
	)

	// Discovery
	s.mcpServer.AddTool(
		mcp.NewTool("discover_devices",
			mcp.WithDescription("Scan the local network for devices. Concurrent requests are coalesced into one scan; while a scan is running the previous result is returned."),
			mcp.WithString("strategy",
				mcp.Description("How to run the discovery methods (default from queue config)"),
				mcp.Enum("sequential", "race", "hybrid"),
			),
			mcp.WithNumber("timeout_ms",
				mcp.Description("Per-method timeout in milliseconds, overriding the configured timeouts"),
				mcp.Min(0),
			),
			mcp.WithArray("preferred_methods",
				mcp.Description("Only run these methods, e.g. [\"mdns\", \"network_scan\"]"),
				mcp.Items(map[string]any{"type": "string"}),
			),
		),
		s.handleDiscoverDevices,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("cancel_discovery",
			mcp.WithDescription("Cancel pending and running discovery requests. The running scan's result is discarded."),
		),
		s.handleCancelDiscovery,
	)

	// Devices
	s.mcpServer.AddTool(
		mcp.NewTool("list_devices",
			mcp.WithDescription("List cached devices from previous discoveries"),
			mcp.WithString("sort",
				mcp.Description("Ordering: id (default) or recent"),
				mcp.Enum("id", "recent"),
			),
		),
		s.handleListDevices,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_device",
			mcp.WithDescription("Get a cached device by id, hardware address or network address, with its identity confidence and recorded history"),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Device id, MAC address or IP address"),
			),
		),
		s.handleGetDevice,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("clear_cache",
			mcp.WithDescription("Remove every cached device"),
		),
		s.handleClearCache,
	)

	// Methods
	s.mcpServer.AddTool(
		mcp.NewTool("get_method_stats",
			mcp.WithDescription("Get per-method priority, success rate, average duration and attempt count"),
		),
		s.handleGetMethodStats,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("reset_method_priorities",
			mcp.WithDescription("Restore the built-in priority of every discovery method"),
		),
		s.handleResetMethodPriorities,
	)

	// Configuration
	s.mcpServer.AddTool(
		mcp.NewTool("get_queue_config",
			mcp.WithDescription("Get the discovery strategy, default timeout, learning flag and method table"),
		),
		s.handleGetQueueConfig,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("set_queue_config",
			mcp.WithDescription("Update the discovery queue. Omitted fields are unchanged; methods replaces the whole method table."),
			mcp.WithString("strategy",
				mcp.Description("Default strategy"),
				mcp.Enum("sequential", "race", "hybrid"),
			),
			mcp.WithNumber("default_timeout_ms",
				mcp.Description("Timeout for methods without their own, in milliseconds"),
				mcp.Min(1),
			),
			mcp.WithBoolean("learning_enabled",
				mcp.Description("Adjust method priorities from observed outcomes"),
			),
			mcp.WithArray("methods",
				mcp.Description("Method table: objects with name, priority (1-10), timeout_ms, retries and enabled"),
				mcp.Items(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":       map[string]any{"type": "string"},
						"priority":   map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
						"timeout_ms": map[string]any{"type": "integer", "minimum": 0},
						"retries":    map[string]any{"type": "integer", "minimum": 0},
						"enabled":    map[string]any{"type": "boolean"},
					},
					"required": []string{"name", "priority"},
				}),
			),
		),
		s.handleSetQueueConfig,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_cache_config",
			mcp.WithDescription("Get the device cache capacity, TTL and current size"),
		),
		s.handleGetCacheConfig,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("set_cache_config",
			mcp.WithDescription("Set the cache capacity (minimum 1) and TTL (minimum one minute). Shrinking evicts the least recently seen devices."),
			mcp.WithNumber("max_size",
				mcp.Description("Maximum number of cached devices"),
				mcp.Min(1),
			),
			mcp.WithNumber("ttl_ms",
				mcp.Description("Cache entry lifetime in milliseconds"),
				mcp.Min(1),
			),
		),
		s.handleSetCacheConfig,
	)

	// Metrics
	s.mcpServer.AddTool(
		mcp.NewTool("get_metrics",
			mcp.WithDescription("Get discovery totals, per-method metrics, cache hit rate and invalidation statistics"),
		),
		s.handleGetMetrics,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_invalidations",
			mcp.WithDescription("Get recent cache invalidations (TTL expiry and detected identity changes)"),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of events (default 50)"),
				mcp.Min(1),
			),
		),
		s.handleGetInvalidations,
	)
}
