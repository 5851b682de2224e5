package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"aicc-ivr-backend/internal/calllog"
)

type callLogRequest struct {
	Action       string                `json:"action"`
	CallID       string                `json:"call_id"`
	PhoneNumber  string                `json:"phone_number"`
	CustomerInfo *calllog.CustomerInfo `json:"customer_info"`
	FlowPath     []string              `json:"flow_path"`
	Resolution   string                `json:"resolution"`
	AssignedTo   string                `json:"assigned_to"`
	CallDuration int                   `json:"call_duration"`
	Notes        string                `json:"notes"`
}

// LogCall handles POST /api/calls.
func (h *Handler) LogCall(c *gin.Context) {
	var req callLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		callError(c, http.StatusBadRequest, MessageBadRequest)
		return
	}

	res, err := h.calls.Handle(c.Request.Context(), calllog.Request{
		Action:       req.Action,
		CallID:       req.CallID,
		PhoneNumber:  req.PhoneNumber,
		CustomerInfo: req.CustomerInfo,
		FlowPath:     req.FlowPath,
		Resolution:   req.Resolution,
		AssignedTo:   req.AssignedTo,
		CallDuration: req.CallDuration,
		Notes:        req.Notes,
	})
	switch {
	case errors.Is(err, calllog.ErrInvalidAction), errors.Is(err, calllog.ErrMissingPhone):
		callError(c, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("action", req.Action).Msg("call logging failed")
		callError(c, http.StatusInternalServerError, MessageSystemError)
		return
	}

	if !res.Success {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": res.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "call_id": res.CallID, "message": res.Message})
}

func callError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"call_id": nil,
		"message": message,
		"error":   true,
	})
}
