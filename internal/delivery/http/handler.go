package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nutriscan/backend/internal/domain"
	"github.com/nutriscan/backend/internal/logging"
	"github.com/nutriscan/backend/internal/usecase"
	"github.com/rs/zerolog"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	scanner *usecase.ScannerController
	lookup  *usecase.LookupCache
	history domain.ScanHistory // nil when history is disabled
	hub     *EventHub
	log     zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(scanner *usecase.ScannerController, lookup *usecase.LookupCache, history domain.ScanHistory, hub *EventHub) *Handler {
	return &Handler{
		scanner: scanner,
		lookup:  lookup,
		history: history,
		hub:     hub,
		log:     logging.WithComponent("http"),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "nutriscan-backend",
		"version": "1.0.0",
	})
}

// lookupRequest is the body of a barcode lookup call
type lookupRequest struct {
	Barcode string `json:"barcode" binding:"required"`
}

// LookupBarcode resolves a barcode through the cache. The response is always
// the lookup result union; failures arrive as ok:false values, never as
// transport errors, so clients need no special error handling.
func (h *Handler) LookupBarcode(c *gin.Context) {
	var req lookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domain.LookupFail(domain.ReasonInvalid, "body must carry a barcode string", 0))
		return
	}

	result := h.lookup.Lookup(c.Request.Context(), req.Barcode)

	if result.OK && h.history != nil {
		rec := domain.ScanRecord{
			Barcode:     result.Product.Barcode,
			ProductName: result.Product.Name,
			Brand:       result.Product.Brand,
			Source:      result.Product.Source,
		}
		// History is best effort; a failed insert must not fail the lookup
		if err := h.history.Record(c.Request.Context(), rec); err != nil {
			h.log.Warn().Err(err).Str("barcode", rec.Barcode).Msg("history record failed")
		}
	}

	c.JSON(http.StatusOK, result)
}

// ScannerSnapshot returns the current scanner session view
func (h *Handler) ScannerSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.scanner.Snapshot())
}

// ScannerStart brings the scanner session up. The classified outcome is in
// the returned snapshot whether or not acquisition succeeded.
func (h *Handler) ScannerStart(c *gin.Context) {
	if err := h.scanner.Start(c.Request.Context(), nil); err != nil {
		h.log.Debug().Err(err).Msg("scanner start rejected")
	}
	snap := h.scanner.Snapshot()
	h.hub.Broadcast(StatusEvent(snap))
	c.JSON(http.StatusOK, snap)
}

// ScannerStop tears the scanner session down
func (h *Handler) ScannerStop(c *gin.Context) {
	h.scanner.Stop()
	snap := h.scanner.Snapshot()
	h.hub.Broadcast(StatusEvent(snap))
	c.JSON(http.StatusOK, snap)
}

// ScannerTorch toggles the torch on the active stream
func (h *Handler) ScannerTorch(c *gin.Context) {
	if err := h.scanner.ToggleTorch(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	snap := h.scanner.Snapshot()
	h.hub.Broadcast(StatusEvent(snap))
	c.JSON(http.StatusOK, snap)
}

// deviceRequest is the body of a camera switch call
type deviceRequest struct {
	DeviceID string `json:"deviceId" binding:"required"`
}

// ScannerDevice switches the active camera. The session stops; the client
// calls start again to resume on the new device.
func (h *Handler) ScannerDevice(c *gin.Context) {
	var req deviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must carry a deviceId string"})
		return
	}

	h.scanner.SetActiveDevice(req.DeviceID)
	snap := h.scanner.Snapshot()
	h.hub.Broadcast(StatusEvent(snap))
	c.JSON(http.StatusOK, snap)
}

// RecentScans returns the newest history entries
func (h *Handler) RecentScans(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "scan history is disabled"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	records, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("history query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read scan history"})
		return
	}
	if records == nil {
		records = []domain.ScanRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"scans": records})
}
