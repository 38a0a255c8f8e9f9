package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tixgate/internal/models"
)

func eventIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return 0, false
	}
	return id, true
}

// CreateEvent - POST /api/events
func (h *Handlers) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.services.Events.CreateEvent(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.CreateEventResponse{ID: event.ID})
}

// ListEvents - GET /api/events
func (h *Handlers) ListEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	if page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be >= 1"})
		return
	}
	if pageSize < 1 || pageSize > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pageSize must be between 1 and 100"})
		return
	}

	items, err := h.services.Events.ListApproved(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// GetEvent - GET /api/events/:id
func (h *Handlers) GetEvent(c *gin.Context) {
	id, ok := eventIDParam(c)
	if !ok {
		return
	}

	event, err := h.services.Events.GetEvent(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// SetApproval - PATCH /api/events/:id/approval
func (h *Handlers) SetApproval(c *gin.Context) {
	id, ok := eventIDParam(c)
	if !ok {
		return
	}

	var req models.SetApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Events.SetApprovalStatus(c.Request.Context(), id, req.Status); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

// CreateShowtime - POST /api/events/:id/showtimes
func (h *Handlers) CreateShowtime(c *gin.Context) {
	id, ok := eventIDParam(c)
	if !ok {
		return
	}

	var req models.CreateShowtimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "starts_at must be RFC3339"})
		return
	}

	showtime, err := h.services.Events.CreateShowtime(c.Request.Context(), id, startsAt, req.TicketQuantity)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, showtime)
}

// CreateZone - POST /api/events/:id/zones
func (h *Handlers) CreateZone(c *gin.Context) {
	id, ok := eventIDParam(c)
	if !ok {
		return
	}

	var req models.CreateZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	zone := &models.Zone{
		EventID: id,
		Name:    req.Name,
	}
	for _, s := range req.Seats {
		zone.Seats = append(zone.Seats, models.Seat{
			SeatID: s.SeatID,
			Label:  s.Label,
			Area:   s.Area,
			Price:  s.Price,
		})
	}

	if err := h.services.Events.CreateZone(c.Request.Context(), zone); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, zone)
}

// CreateZoneTicket - POST /api/events/:id/zone-tickets
func (h *Handlers) CreateZoneTicket(c *gin.Context) {
	id, ok := eventIDParam(c)
	if !ok {
		return
	}

	var req models.CreateZoneTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	zt := &models.ZoneTicket{
		ShowtimeID:       req.ShowtimeID,
		Name:             req.Name,
		TotalTicketCount: req.TotalTicketCount,
		Price:            req.Price,
	}

	if err := h.services.Events.CreateZoneTicket(c.Request.Context(), id, zt); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, zt)
}

// SeatMap - GET /api/events/:id/showtimes/:showtime_id/seat-map
func (h *Handlers) SeatMap(c *gin.Context) {
	id, ok := eventIDParam(c)
	if !ok {
		return
	}

	showtimeID, err := strconv.ParseInt(c.Param("showtime_id"), 10, 64)
	if err != nil || showtimeID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid showtime id"})
		return
	}

	data, err := h.services.Events.SeatMap(c.Request.Context(), id, showtimeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json", data)
}
