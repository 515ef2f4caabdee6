package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/lanscout/pkg/api/types"
	"github.com/urmzd/lanscout/pkg/discovery"
	"github.com/urmzd/lanscout/pkg/schema"
)

// ConfigHandler handles runtime cache and queue configuration
type ConfigHandler struct {
	service   *discovery.Service
	validator *schema.Validator
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(service *discovery.Service, validator *schema.Validator) *ConfigHandler {
	return &ConfigHandler{
		service:   service,
		validator: validator,
	}
}

// GetCacheConfig handles GET /cache/config
// @Summary      Get cache configuration
// @Tags         config
// @Produce      json
// @Success      200  {object}  types.CacheConfigResponse
// @Router       /cache/config [get]
func (h *ConfigHandler) GetCacheConfig(c *gin.Context) {
	c.JSON(http.StatusOK, types.NewCacheConfigResponse(h.service.CacheConfig()))
}

// SetCacheConfig handles PUT /cache/config
// @Summary      Update cache configuration
// @Description  Sets the cache capacity (minimum 1) and TTL (minimum one minute). Shrinking evicts the least recently seen devices immediately.
// @Tags         config
// @Accept       json
// @Produce      json
// @Param        request  body      types.CacheConfigRequest  true  "New bounds"
// @Success      200      {object}  types.CacheConfigResponse
// @Failure      400      {object}  types.ErrorResponse  "Invalid request"
// @Router       /cache/config [put]
func (h *ConfigHandler) SetCacheConfig(c *gin.Context) {
	var req types.CacheConfigRequest
	if !bindValidated(c, h.validator, schema.CacheConfigRequest, &req) {
		return
	}
	if req.MaxSize != nil {
		h.service.SetMaxCacheSize(*req.MaxSize)
	}
	if req.TTLMs != nil {
		h.service.SetCacheTTL(time.Duration(*req.TTLMs) * time.Millisecond)
	}
	c.JSON(http.StatusOK, types.NewCacheConfigResponse(h.service.CacheConfig()))
}

// GetQueueConfig handles GET /queue/config
// @Summary      Get method queue configuration
// @Tags         config
// @Produce      json
// @Success      200  {object}  types.QueueConfigResponse
// @Router       /queue/config [get]
func (h *ConfigHandler) GetQueueConfig(c *gin.Context) {
	c.JSON(http.StatusOK, types.NewQueueConfigResponse(h.service.QueueConfig()))
}

// SetQueueConfig handles PUT /queue/config
// @Summary      Update method queue configuration
// @Description  Partial update. A methods list replaces the whole method table.
// @Tags         config
// @Accept       json
// @Produce      json
// @Param        request  body      types.QueueConfigRequest  true  "Fields to change"
// @Success      200      {object}  types.QueueConfigResponse
// @Failure      400      {object}  types.ErrorResponse  "Invalid request"
// @Router       /queue/config [put]
func (h *ConfigHandler) SetQueueConfig(c *gin.Context) {
	var req types.QueueConfigRequest
	if !bindValidated(c, h.validator, schema.QueueConfigRequest, &req) {
		return
	}
	update, err := req.Update()
	if err != nil {
		abortBadRequest(c, "invalid_config", err)
		return
	}
	h.service.SetQueueConfig(update)
	c.JSON(http.StatusOK, types.NewQueueConfigResponse(h.service.QueueConfig()))
}
