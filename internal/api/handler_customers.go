package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"aicc-ivr-backend/internal/customer"
)

type customerLookupRequest struct {
	CompanyName  string `json:"company_name"`
	AWSAccountID string `json:"aws_account_id"`
	ContactName  string `json:"contact_name"`
}

type customerLookupResponse struct {
	CustomerFound bool           `json:"customer_found"`
	CustomerType  customer.Type  `json:"customer_type"`
	CustomerInfo  *customer.Info `json:"customer_info"`
	Message       string         `json:"message"`
	Error         bool           `json:"error,omitempty"`
}

// LookupCustomer handles POST /api/customers/lookup.
func (h *Handler) LookupCustomer(c *gin.Context) {
	var req customerLookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customerError(c, http.StatusBadRequest, MessageBadRequest)
		return
	}

	res, err := h.customers.Lookup(c.Request.Context(), customer.Request{
		CompanyName:   req.CompanyName,
		AccountSuffix: req.AWSAccountID,
		ContactName:   req.ContactName,
	})
	switch {
	case errors.Is(err, customer.ErrMissingFields), errors.Is(err, customer.ErrInvalidAccountID):
		customerError(c, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("customer lookup failed")
		customerError(c, http.StatusInternalServerError, MessageSystemError)
		return
	}

	c.JSON(http.StatusOK, customerLookupResponse{
		CustomerFound: res.Found,
		CustomerType:  res.Type,
		CustomerInfo:  res.Customer,
		Message:       res.Message(),
	})
}

func customerError(c *gin.Context, status int, message string) {
	c.JSON(status, customerLookupResponse{
		CustomerFound: false,
		CustomerType:  customer.TypeUnknown,
		Message:       message,
		Error:         true,
	})
}
