package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetHolidays handles GET /api/holidays.
func (h *Handler) GetHolidays(c *gin.Context) {
	dates := h.calendar.Dates()
	if dates == nil {
		dates = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"holidays":       dates,
		"count":          len(dates),
		"business_hours": h.businessHours,
	})
}
