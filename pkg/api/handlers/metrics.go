package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/lanscout/pkg/api/types"
	"github.com/urmzd/lanscout/pkg/discovery"
)

const defaultInvalidationLimit = 50

// MetricsHandler handles method statistics and metrics endpoints
type MetricsHandler struct {
	service *discovery.Service
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(service *discovery.Service) *MetricsHandler {
	return &MetricsHandler{service: service}
}

// MethodStats handles GET /methods/stats
// @Summary      Get method statistics
// @Description  Returns per-method configuration merged with success rate, average duration and attempt count
// @Tags         methods
// @Produce      json
// @Success      200  {object}  types.MethodStatsResponse
// @Router       /methods/stats [get]
func (h *MetricsHandler) MethodStats(c *gin.Context) {
	recommended, _ := h.service.RecommendedMethod()
	c.JSON(http.StatusOK, types.MethodStatsResponse{
		Methods:     h.service.MethodStats(),
		Recommended: recommended,
	})
}

// ResetMethods handles POST /methods/reset
// @Summary      Reset method priorities
// @Description  Restores the built-in priority of every configured method
// @Tags         methods
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /methods/reset [post]
func (h *MetricsHandler) ResetMethods(c *gin.Context) {
	h.service.ResetMethodPriorities()
	c.JSON(http.StatusOK, types.StatusResponse{Status: "reset"})
}

// Summary handles GET /metrics/summary
// @Summary      Get metrics summary
// @Tags         metrics
// @Produce      json
// @Success      200  {object}  types.MetricsSummaryResponse
// @Router       /metrics/summary [get]
func (h *MetricsHandler) Summary(c *gin.Context) {
	recommended, _ := h.service.RecommendedMethod()
	c.JSON(http.StatusOK, types.MetricsSummaryResponse{
		Metrics:      h.service.Metrics(),
		Invalidation: h.service.InvalidationStats(),
		Recommended:  recommended,
	})
}

// Snapshots handles GET /metrics/snapshots
// @Summary      Get metrics snapshots
// @Description  Returns the periodic metrics snapshots, oldest first
// @Tags         metrics
// @Produce      json
// @Success      200  {object}  types.SnapshotsResponse
// @Router       /metrics/snapshots [get]
func (h *MetricsHandler) Snapshots(c *gin.Context) {
	snapshots := h.service.MetricsSnapshots()
	if snapshots == nil {
		snapshots = []discovery.Snapshot{}
	}
	c.JSON(http.StatusOK, types.SnapshotsResponse{Snapshots: snapshots, Count: len(snapshots)})
}

// Invalidations handles GET /invalidations
// @Summary      Get invalidation log
// @Tags         metrics
// @Produce      json
// @Param        limit  query     int  false  "Maximum number of events (default 50)"
// @Success      200    {object}  types.InvalidationsResponse
// @Failure      400    {object}  types.ErrorResponse  "Invalid limit"
// @Router       /invalidations [get]
func (h *MetricsHandler) Invalidations(c *gin.Context) {
	limit := defaultInvalidationLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{
				Error:   "invalid_limit",
				Message: "limit must be a positive integer",
			})
			return
		}
		limit = n
	}
	events := h.service.InvalidationHistory(limit)
	if events == nil {
		events = []discovery.InvalidationEvent{}
	}
	c.JSON(http.StatusOK, types.InvalidationsResponse{Events: events, Count: len(events)})
}
