package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tixgate/internal/models"
)

// CreateOrder - POST /api/orders
func (h *Handlers) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Orders.Create(c.Request.Context(), userID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListOrders - GET /api/orders
func (h *Handlers) ListOrders(c *gin.Context) {
	orders, err := h.services.Orders.List(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

// CancelOrder - PATCH /api/orders/cancel
func (h *Handlers) CancelOrder(c *gin.Context) {
	var req models.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Orders.CancelOwned(c.Request.Context(), userID(c), req.OrderID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}
