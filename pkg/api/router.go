// Package api serves the discovery service over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/urmzd/lanscout/pkg/api/handlers"
	"github.com/urmzd/lanscout/pkg/discovery"
	"github.com/urmzd/lanscout/pkg/schema"
)

// Router holds the Gin engine and dependencies
type Router struct {
	engine    *gin.Engine
	service   *discovery.Service
	validator *schema.Validator
	gatherer  prometheus.Gatherer
}

// NewRouter creates a new API router. Metrics from gatherer are exposed at
// /metrics; a nil gatherer disables the endpoint.
func NewRouter(service *discovery.Service, validator *schema.Validator, gatherer prometheus.Gatherer) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	SetupMiddleware(engine)

	router := &Router{
		engine:    engine,
		service:   service,
		validator: validator,
		gatherer:  gatherer,
	}

	router.setupRoutes()

	return router
}

// setupRoutes configures all API routes
func (r *Router) setupRoutes() {
	// Swagger UI
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	// Health check at root
	healthHandler := handlers.NewHealthHandler(r.service)
	r.engine.GET("/health", healthHandler.Health)

	// Prometheus exposition
	if r.gatherer != nil {
		r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))
	}

	// API v1 routes
	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)

		// Discovery
		discoveryHandler := handlers.NewDiscoveryHandler(r.service, r.validator)
		discover := v1.Group("/discovery")
		{
			discover.POST("", discoveryHandler.Discover)
			discover.POST("/cancel", discoveryHandler.Cancel)
			discover.GET("/events", discoveryHandler.Events)
		}

		// Devices
		devicesHandler := handlers.NewDevicesHandler(r.service)
		devices := v1.Group("/devices")
		{
			devices.GET("", devicesHandler.ListDevices)
			devices.DELETE("", devicesHandler.ClearDevices)
			devices.GET("/:id", devicesHandler.GetDevice)
			devices.GET("/:id/history", devicesHandler.GetDeviceHistory)
		}

		// Runtime configuration
		configHandler := handlers.NewConfigHandler(r.service, r.validator)
		v1.GET("/cache/config", configHandler.GetCacheConfig)
		v1.PUT("/cache/config", configHandler.SetCacheConfig)
		v1.GET("/queue/config", configHandler.GetQueueConfig)
		v1.PUT("/queue/config", configHandler.SetQueueConfig)

		// Methods and metrics
		metricsHandler := handlers.NewMetricsHandler(r.service)
		v1.GET("/methods/stats", metricsHandler.MethodStats)
		v1.POST("/methods/reset", metricsHandler.ResetMethods)
		v1.GET("/metrics/summary", metricsHandler.Summary)
		v1.GET("/metrics/snapshots", metricsHandler.Snapshots)
		v1.GET("/invalidations", metricsHandler.Invalidations)
	}
}

// Handler returns the underlying http.Handler.
func (r *Router) Handler() http.Handler {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
