package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/lanscout/pkg/api/types"
	"github.com/urmzd/lanscout/pkg/discovery"
	"github.com/urmzd/lanscout/pkg/schema"
)

const heartbeatInterval = 30 * time.Second

// DiscoveryHandler handles discovery endpoints
type DiscoveryHandler struct {
	service   *discovery.Service
	validator *schema.Validator
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(service *discovery.Service, validator *schema.Validator) *DiscoveryHandler {
	return &DiscoveryHandler{
		service:   service,
		validator: validator,
	}
}

// Discover handles POST /discovery
// @Summary      Run device discovery
// @Description  Joins the next discovery operation. Requests arriving within the debounce window share one operation. While an operation is in flight the previous result is returned.
// @Tags         discovery
// @Accept       json
// @Produce      json
// @Param        request  body      types.DiscoverRequest  false  "Strategy, timeout and method overrides"
// @Success      200      {object}  types.DiscoverResponse
// @Failure      400      {object}  types.ErrorResponse  "Invalid request"
// @Router       /discovery [post]
func (h *DiscoveryHandler) Discover(c *gin.Context) {
	var req types.DiscoverRequest
	if !bindValidated(c, h.validator, schema.DiscoverRequest, &req) {
		return
	}
	opts, err := req.Options()
	if err != nil {
		abortBadRequest(c, "invalid_strategy", err)
		return
	}

	res := h.service.Discover(c.Request.Context(), opts)
	c.JSON(http.StatusOK, types.NewDiscoverResponse(res))
}

// Cancel handles POST /discovery/cancel
// @Summary      Cancel discovery
// @Description  Resolves every waiting request with a cancelled result and discards the operation in flight
// @Tags         discovery
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /discovery/cancel [post]
func (h *DiscoveryHandler) Cancel(c *gin.Context) {
	h.service.Cancel()
	c.JSON(http.StatusOK, types.StatusResponse{Status: "cancelled"})
}

// Events handles GET /discovery/events (SSE stream)
// @Summary      Subscribe to discovery events
// @Description  Server-Sent Events stream of cache changes and discovery completions
// @Tags         discovery
// @Produce      text/event-stream
// @Success      200  {string}  string  "SSE event stream"
// @Router       /discovery/events [get]
func (h *DiscoveryHandler) Events(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	eventChan := h.service.Subscribe()
	defer h.service.Unsubscribe(eventChan)

	sendSSEEvent(c.Writer, "connected", map[string]any{
		"timestamp": time.Now(),
		"message":   "Connected to discovery event stream",
	})
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-clientGone:
			return

		case event, ok := <-eventChan:
			if !ok {
				return
			}
			sendSSEEvent(c.Writer, string(event.Type), event)
			c.Writer.Flush()

		case <-ticker.C:
			sendSSEEvent(c.Writer, "heartbeat", map[string]any{
				"timestamp": time.Now(),
			})
			c.Writer.Flush()
		}
	}
}

// sendSSEEvent writes an SSE event to the response
func sendSSEEvent(w io.Writer, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	io.WriteString(w, "event: "+eventType+"\n")
	io.WriteString(w, "data: "+string(jsonData)+"\n\n")
}
