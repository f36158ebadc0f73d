package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"workb-agent/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(deps)

	limit := deps.Server.RateLimitPerSec
	if limit <= 0 {
		limit = 10
	}
	rateLimiter := mw.RateLimiter(rate.Limit(limit), 5)

	// Snapshot reads change at watch-interval granularity, so a short cache
	// absorbs dashboard polling.
	ttl := time.Duration(deps.Server.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	cacheStore := cache.New(ttl, time.Minute)
	caching := mw.Cache(cacheStore, ttl)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/state", caching, handler.GetState)
		api.GET("/location", caching, handler.GetLocation)
		api.POST("/location/refresh", handler.RefreshLocation)
		api.GET("/network", caching, handler.GetNetwork)

		api.GET("/attendance", handler.GetAttendance)
		api.POST("/attendance/checkin", handler.CheckIn)
		api.POST("/attendance/checkout", handler.CheckOut)

		api.GET("/leave", handler.GetLeave)
		api.POST("/leave", handler.SubmitLeave)
		api.DELETE("/leave/:id", handler.CancelLeave)

		api.GET("/notices", handler.GetNotices)
		api.POST("/notices/:id/read", handler.MarkNoticeRead)
		api.POST("/notices/read-all", handler.MarkAllNoticesRead)

		api.POST("/auth/login", handler.Login)
		api.POST("/auth/logout", handler.Logout)
		api.GET("/auth/session", handler.GetSession)

		api.POST("/presence/respond", handler.RespondPresence)

		api.GET("/push/settings", handler.GetPushSettings)
		api.PUT("/push/settings", handler.PutPushSettings)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
