package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"aicc-ivr-backend/internal/hours"
)

const (
	MessageInvalidTimestamp = "잘못된 시간 형식입니다."
	MessageFailOpen         = "업무시간 확인에 실패하여 업무시간으로 처리합니다"
)

type businessHoursRequest struct {
	Timezone  string `form:"timezone" json:"timezone"`
	CheckTime string `form:"check_time" json:"check_time"`
}

type businessHoursResponse struct {
	Error           bool    `json:"error,omitempty"`
	IsBusinessHours bool    `json:"is_business_hours"`
	CurrentTime     *string `json:"current_time"`
	BusinessHours   string  `json:"business_hours"`
	NextBusinessDay *string `json:"next_business_day"`
	Message         string  `json:"message"`
}

// GetBusinessHours handles GET /api/business-hours?timezone=&check_time=.
func (h *Handler) GetBusinessHours(c *gin.Context) {
	var req businessHoursRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.businessHoursBadRequest(c, MessageBadRequest)
		return
	}
	h.decide(c, req)
}

// PostBusinessHours handles POST /api/business-hours. An empty body asks
// about now in the canonical zone.
func (h *Handler) PostBusinessHours(c *gin.Context) {
	var req businessHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.businessHoursBadRequest(c, MessageBadRequest)
		return
	}
	h.decide(c, req)
}

func (h *Handler) decide(c *gin.Context, req businessHoursRequest) {
	ctx := c.Request.Context()
	logger := zerolog.Ctx(ctx)

	d, err := h.hours.Decide(ctx, hours.Query{Timezone: req.Timezone, CheckTime: req.CheckTime})
	switch {
	case errors.Is(err, hours.ErrInvalidTimestamp):
		logger.Warn().Str("check_time", req.CheckTime).Msg("invalid check_time")
		h.metrics.BusinessHoursCheck(ctx, "invalid")
		h.businessHoursBadRequest(c, MessageInvalidTimestamp)
		return
	case err != nil:
		logger.Error().Err(err).Str("check_time", req.CheckTime).Str("timezone", req.Timezone).Msg("business hours evaluation failed, failing open")
		h.metrics.BusinessHoursCheck(ctx, "failopen")
		c.JSON(http.StatusOK, businessHoursResponse{
			Error:           true,
			IsBusinessHours: true,
			BusinessHours:   h.businessHours,
			Message:         MessageFailOpen,
		})
		return
	}

	result := "closed"
	if d.IsOpen {
		result = "open"
	}
	h.metrics.BusinessHoursCheck(ctx, result)

	current := hours.FormatTimestamp(d.EvaluatedAt)
	resp := businessHoursResponse{
		IsBusinessHours: d.IsOpen,
		CurrentTime:     &current,
		BusinessHours:   h.businessHours,
		Message:         d.Message,
	}
	if d.NextOpenAt != nil {
		next := hours.FormatTimestamp(*d.NextOpenAt)
		resp.NextBusinessDay = &next
	}
	if !d.NextOpenFound {
		logger.Warn().Str("current_time", current).Msg("no open day within search budget, using fallback")
	}
	logger.Info().Bool("is_business_hours", d.IsOpen).Str("current_time", current).Msg("business hours checked")
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) businessHoursBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, businessHoursResponse{
		Error:         true,
		BusinessHours: h.businessHours,
		Message:       message,
	})
}
