package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"table-status-backend/config"
	"table-status-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg config.ServerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.Logger())

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/menu", caching, h.GetMenu)
		api.GET("/tables", h.GetTables)

		api.GET("/session", h.GetSession)
		api.POST("/session/select", h.SelectTable)
		api.POST("/session/items", h.AddItem)
		api.DELETE("/session/items/:item_id", h.RemoveItem)
		api.POST("/session/save", h.SaveOrder)
		api.POST("/session/clear", h.ClearOrder)
		api.POST("/session/checkout", h.Checkout)

		api.GET("/confirmation", h.GetConfirmation)
		api.POST("/confirmation", h.AnswerConfirmation)

		api.GET("/notices", h.GetNotices)
		api.DELETE("/notices/:id", h.DismissNotice)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	// Long-lived; kept outside the rate limiter.
	r.GET("/api/events", h.Events)

	return r
}
