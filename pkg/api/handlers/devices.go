package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/lanscout/pkg/api/types"
	"github.com/urmzd/lanscout/pkg/discovery"
)

// DevicesHandler handles cached device endpoints
type DevicesHandler struct {
	service *discovery.Service
}

// NewDevicesHandler creates a new devices handler
func NewDevicesHandler(service *discovery.Service) *DevicesHandler {
	return &DevicesHandler{service: service}
}

// ListDevices handles GET /devices
// @Summary      List cached devices
// @Description  Returns every cached device, ordered by id or, with sort=recent, most recently seen first
// @Tags         devices
// @Produce      json
// @Param        sort  query     string  false  "Ordering"  Enums(id, recent)
// @Success      200   {object}  types.ListDevicesResponse
// @Router       /devices [get]
func (h *DevicesHandler) ListDevices(c *gin.Context) {
	devices := h.service.CachedDevices(c.Query("sort") == "recent")
	c.JSON(http.StatusOK, types.ListDevicesResponse{
		Devices: devices,
		Count:   len(devices),
	})
}

// GetDevice handles GET /devices/:id
// @Summary      Get device
// @Description  Returns a cached device by primary or alternate id with its identity confidence
// @Tags         devices
// @Produce      json
// @Param        id   path      string  true  "Device id, hardware or network address"
// @Success      200  {object}  types.DeviceResponse
// @Failure      404  {object}  types.ErrorResponse  "Device not found"
// @Router       /devices/{id} [get]
func (h *DevicesHandler) GetDevice(c *gin.Context) {
	d, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, types.DeviceResponse{
		Device:     d,
		Confidence: h.service.DeviceConfidence(d.ID),
		TTLMs:      h.service.DeviceTTL(d.ID).Milliseconds(),
	})
}

// GetDeviceHistory handles GET /devices/:id/history
// @Summary      Get device history
// @Description  Returns the recorded state snapshots of a device, oldest first
// @Tags         devices
// @Produce      json
// @Param        id   path      string  true  "Device id"
// @Success      200  {object}  types.DeviceHistoryResponse
// @Failure      404  {object}  types.ErrorResponse  "Device not found"
// @Router       /devices/{id}/history [get]
func (h *DevicesHandler) GetDeviceHistory(c *gin.Context) {
	d, ok := h.lookup(c)
	if !ok {
		return
	}
	snapshots := h.service.DeviceHistory(d.ID)
	if snapshots == nil {
		snapshots = []discovery.DeviceStateSnapshot{}
	}
	c.JSON(http.StatusOK, types.DeviceHistoryResponse{DeviceID: d.ID, Snapshots: snapshots})
}

// ClearDevices handles DELETE /devices
// @Summary      Clear device cache
// @Tags         devices
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /devices [delete]
func (h *DevicesHandler) ClearDevices(c *gin.Context) {
	h.service.ClearCache()
	c.JSON(http.StatusOK, types.StatusResponse{Status: "cleared"})
}

func (h *DevicesHandler) lookup(c *gin.Context) (discovery.NormalizedDevice, bool) {
	id := c.Param("id")
	d, err := h.service.Device(id)
	if err != nil {
		c.JSON(http.StatusNotFound, types.ErrorResponse{
			Error:   "not_found",
			Message: "Device '" + id + "' not found",
		})
		return discovery.NormalizedDevice{}, false
	}
	return d, true
}
