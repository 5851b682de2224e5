package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"aicc-ivr-backend/internal/mw"
	"aicc-ivr-backend/internal/parse"
	"aicc-ivr-backend/internal/response"
)

const unknownCaller = "Unknown"

type inquiryRequest struct {
	InquiryType    string `json:"inquiry_type"`
	CustomerNumber string `json:"customer_number"`
}

type inquiryResponse struct {
	Response       string `json:"response"`
	InquiryType    string `json:"inquiry_type"`
	CustomerNumber string `json:"customer_number"`
	RequestID      string `json:"request_id,omitempty"`
	Error          bool   `json:"error,omitempty"`
}

// AnswerInquiry handles POST /api/responses. An empty body asks for the
// general answer.
func (h *Handler) AnswerInquiry(c *gin.Context) {
	var req inquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, inquiryResponse{
			Response:       response.MessageFallback,
			InquiryType:    response.KindGeneral,
			CustomerNumber: unknownCaller,
			Error:          true,
		})
		return
	}

	caller, masked := strings.TrimSpace(req.CustomerNumber), unknownCaller
	if caller == "" {
		caller = unknownCaller
	} else {
		masked = parse.MaskPhoneNumber(caller)
	}
	text, kind := h.responses.Answer(req.InquiryType)

	zerolog.Ctx(c.Request.Context()).Info().
		Str("customer_number", masked).
		Str("interaction_type", kind).
		Int("response_length", utf8.RuneCountInString(text)).
		Msg("inquiry answered")

	c.JSON(http.StatusOK, inquiryResponse{
		Response:       text,
		InquiryType:    kind,
		CustomerNumber: caller,
		RequestID:      mw.GetRequestID(c),
	})
}
