package api

import (
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"aicc-ivr-backend/internal/calllog"
	"aicc-ivr-backend/internal/customer"
	"aicc-ivr-backend/internal/hours"
	"aicc-ivr-backend/internal/metrics"
	"aicc-ivr-backend/internal/response"
	"aicc-ivr-backend/internal/store"
)

const (
	// MessageSystemError is returned with every 500 response.
	MessageSystemError = "시스템 오류가 발생했습니다. 잠시 후 다시 시도해주세요."
	MessageBadRequest  = "잘못된 요청 형식입니다."
)

// Calendar lists the active holidays.
type Calendar interface {
	Dates() []string
}

// Deps are the collaborators the handlers are built from. Calls, Customers
// and Subscriptions may be nil; their routes are then not registered. A nil
// Responses serves the built-in answers.
type Deps struct {
	Hours         *hours.Service
	BusinessHours string
	Calendar      Calendar
	Customers     *customer.Service
	Calls         *calllog.Service
	Subscriptions store.SubscriptionStore
	Responses     *response.Catalog
	Metrics       *metrics.Recorder
	WebPush       *webpush.Options
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	hours         *hours.Service
	businessHours string
	calendar      Calendar
	customers     *customer.Service
	calls         *calllog.Service
	subscriptions store.SubscriptionStore
	responses     *response.Catalog
	metrics       *metrics.Recorder
	webpush       *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	if d.Responses == nil {
		d.Responses = response.New(nil)
	}
	return &Handler{
		hours:         d.Hours,
		businessHours: d.BusinessHours,
		calendar:      d.Calendar,
		customers:     d.Customers,
		calls:         d.Calls,
		subscriptions: d.Subscriptions,
		responses:     d.Responses,
		metrics:       d.Metrics,
		webpush:       d.WebPush,
	}
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
