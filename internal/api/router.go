package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"kitchen-orders-backend/config"
	"kitchen-orders-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.Server.ClientOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Idle client buckets are forgotten after ten minutes.
	rateLimiter := mw.RateLimiter(mw.NewIPRateLimiter(
		rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst, 10*time.Minute))

	menuTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	caching := mw.Cache(cache.New(menuTTL, 2*menuTTL), menuTTL)

	api := r.Group("/api")
	{
		api.GET("/menu/:slug", rateLimiter, caching, h.GetMenu)
		api.POST("/orders", rateLimiter, h.PlaceOrder)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	admin := api.Group("/admin", mw.AdminAuth(cfg.Admin.Token))
	{
		admin.GET("/:slug/orders", h.ListOrders)
		admin.GET("/:slug/stream", h.Stream)
		admin.PUT("/:slug/push-subscriptions", h.PutSubscription)
		admin.DELETE("/:slug/push-subscriptions", h.DeleteSubscription)
		admin.POST("/orders/:id/status", h.UpdateOrderStatus)
	}

	return r
}
