package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kitchen-orders-backend/internal/orders"
)

// GetMenu returns a restaurant with its categories, items and options.
func (h *Handler) GetMenu(c *gin.Context) {
	menu, err := h.orders.Menu(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, menu)
}

// PlaceOrder handles a customer checkout.
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req orders.PlaceOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}

	receipt, err := h.orders.PlaceOrder(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

// ListOrders returns the newest orders of a restaurant for the dashboard.
// A missing or malformed limit falls back to the default page size.
func (h *Handler) ListOrders(c *gin.Context) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		limit = 0
	}

	list, err := h.orders.ListOrders(c.Request.Context(), c.Param("slug"), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// UpdateOrderStatus moves an order to a new status.
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req orders.StatusUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}

	result, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Stream attaches the caller to the restaurant's live event stream.
func (h *Handler) Stream(c *gin.Context) {
	h.stream.Serve(c)
}
