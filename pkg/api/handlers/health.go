package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/lanscout/pkg/api/types"
	"github.com/urmzd/lanscout/pkg/discovery"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	service *discovery.Service
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service *discovery.Service) *HealthHandler {
	return &HealthHandler{service: service}
}

// Health handles GET /health
// @Summary      Health check
// @Description  Returns service status, cache size and the time of the last completed discovery
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse  "Service is healthy"
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	resp := types.HealthResponse{
		Status:        "healthy",
		InFlight:      h.service.InFlight(),
		CachedDevices: h.service.CacheConfig().CurrentSize,
		Timestamp:     time.Now(),
	}
	if last, ok := h.service.LastResult(); ok && len(last.Devices) > 0 {
		seen := last.Devices[0].LastSeen
		for _, d := range last.Devices[1:] {
			if d.LastSeen.After(seen) {
				seen = d.LastSeen
			}
		}
		resp.LastDiscovery = &seen
	}
	c.JSON(http.StatusOK, resp)
}
