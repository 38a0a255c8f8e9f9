package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tixgate/internal/models"
)

// SelectSeat - PATCH /api/reservations/seats/select
func (h *Handlers) SelectSeat(c *gin.Context) {
	var req models.SelectSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Reservations.SelectSeat(c.Request.Context(), userID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// DeselectSeat - PATCH /api/reservations/seats/deselect
func (h *Handlers) DeselectSeat(c *gin.Context) {
	var req models.DeselectSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Reservations.DeselectSeat(c.Request.Context(), userID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ReserveZone - PATCH /api/reservations/zones/reserve
func (h *Handlers) ReserveZone(c *gin.Context) {
	var req models.ReserveZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Reservations.ReserveZoneQuantity(c.Request.Context(), userID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ReleaseZone - PATCH /api/reservations/zones/release
func (h *Handlers) ReleaseZone(c *gin.Context) {
	var req models.ReleaseZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Reservations.ReleaseZoneQuantity(c.Request.Context(), userID(c), req.BookingID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "released"})
}
