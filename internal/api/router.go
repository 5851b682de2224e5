package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"aicc-ivr-backend/internal/mw"
)

// RouterOptions tunes the middleware in front of the handlers.
type RouterOptions struct {
	RateLimitPerSec float64
	RateLimitBurst  int
	CacheTTL        time.Duration
	TracerName      string
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(mw.RequestID())
	if opts.TracerName != "" {
		r.Use(mw.Tracing(opts.TracerName))
	}
	r.Use(mw.AccessLog(), gin.CustomRecovery(recovery))

	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	rateLimiter := mw.RateLimiter(rate.Limit(opts.RateLimitPerSec), opts.RateLimitBurst)
	cacheStore := cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	caching := mw.Cache(cacheStore, opts.CacheTTL)

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/business-hours", h.GetBusinessHours)
		api.POST("/business-hours", h.PostBusinessHours)
		api.GET("/holidays", caching, h.GetHolidays)
		api.POST("/responses", h.AnswerInquiry)

		if h.customers != nil {
			api.POST("/customers/lookup", h.LookupCustomer)
		}
		if h.calls != nil {
			api.POST("/calls", h.LogCall)
		}
		if h.subscriptions != nil {
			api.GET("/subscriptions", h.GetSubscription)
			api.PUT("/subscriptions", h.PutSubscription)
			api.DELETE("/subscriptions", h.DeleteSubscription)
		}
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}

func recovery(c *gin.Context, recovered any) {
	zerolog.Ctx(c.Request.Context()).Error().
		Interface("panic", recovered).
		Str("path", c.Request.URL.Path).
		Msg("recovered from panic")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error":   true,
		"message": MessageSystemError,
	})
}
