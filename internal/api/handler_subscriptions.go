package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kitchen-orders-backend/internal/model"
	"kitchen-orders-backend/internal/store"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

// PutSubscription registers a kitchen device for new-order alerts, replacing
// the keys of an endpoint that is already known.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}

	ctx := c.Request.Context()
	restaurant, err := h.store.FindRestaurant(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, store.ErrRestaurantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Restaurant not found"})
			return
		}
		h.writeError(c, err)
		return
	}

	subscription := model.PushSubscription{
		Endpoint:     req.Endpoint,
		RestaurantID: restaurant.ID,
		P256DH:       req.P256DH,
		Auth:         req.Auth,
	}
	if err := h.store.SavePushSubscription(ctx, &subscription); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription removes a kitchen device.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}

	if err := h.store.DeletePushSubscription(c.Request.Context(), req.Endpoint); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
