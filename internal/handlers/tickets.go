package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tixgate/internal/models"
)

// IssueTickets - POST /api/tickets/issue
// Called after the external payment for the order is confirmed.
func (h *Handlers) IssueTickets(c *gin.Context) {
	var req models.IssueTicketsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Tickets.Issue(c.Request.Context(), userID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListTickets - GET /api/tickets?order_id=...
func (h *Handlers) ListTickets(c *gin.Context) {
	orderID := c.Query("order_id")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id is required"})
		return
	}

	tickets, err := h.services.Tickets.ListByOrder(c.Request.Context(), userID(c), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tickets)
}

// RedeemTicket - PATCH /api/tickets/redeem
func (h *Handlers) RedeemTicket(c *gin.Context) {
	var req models.RedeemTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := h.services.Tickets.Redeem(c.Request.Context(), userID(c), req.TicketID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ticket_id": ticket.TicketID, "status": ticket.Status})
}
