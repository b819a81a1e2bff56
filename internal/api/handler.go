package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"kitchen-orders-backend/internal/orders"
	"kitchen-orders-backend/internal/store"
	"kitchen-orders-backend/internal/stream"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	orders  *orders.Service
	stream  *stream.Handler
	webpush *webpush.Options
	logger  *slog.Logger
}

// NewHandler creates a new API handler. A nil logger discards output.
func NewHandler(s store.Store, svc *orders.Service, streams *stream.Handler, webpushOptions *webpush.Options, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		store:   s,
		orders:  svc,
		stream:  streams,
		webpush: webpushOptions,
		logger:  logger,
	}
}

// Health reports that the process is serving.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// invalidPayload answers a request whose body failed to bind.
func invalidPayload(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload", "details": err.Error()})
}

// writeError maps domain errors onto HTTP responses.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orders.ErrInvalidItem), errors.Is(err, orders.ErrInvalidOption):
		c.JSON(http.StatusBadRequest, gin.H{"error": publicMessage(err)})
	case errors.Is(err, orders.ErrValidation):
		invalidPayload(c, err)
	case errors.Is(err, orders.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, orders.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": publicMessage(err)})
	default:
		h.logger.Error("request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
	}
}

// publicMessage strips the category prefix from a wrapped sentinel,
// "not found: Order not found" becomes "Order not found".
func publicMessage(err error) string {
	msg := err.Error()
	if _, rest, ok := strings.Cut(msg, ": "); ok {
		return rest
	}
	return msg
}
