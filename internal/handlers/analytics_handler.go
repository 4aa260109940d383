package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "ledgerlens/internal/errors"
	"ledgerlens/internal/services"
)

// AnalyticsHandler handles spending aggregation requests.
type AnalyticsHandler struct {
	analyticsService services.AnalyticsServicer
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService services.AnalyticsServicer) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// SpendingRequest represents query parameters for the spending report.
// Month is optional; without it the report covers the whole year.
type SpendingRequest struct {
	Year      int     `form:"year" binding:"required,min=1900,max=3000"`
	Month     int     `form:"month" binding:"omitempty,min=1,max=12"`
	AccountID *string `form:"account_id" binding:"omitempty,uuid"`
}

// Spending returns the monthly spending breakdown.
// @Summary     Monthly spending report
// @Description Aggregate spending by category and day for one calendar month, or the whole year when month is omitted; only completed statements count
// @Tags        analytics
// @Produce     json
// @Param       year query int true "Year"
// @Param       month query int false "Month (1-12); omit for a year report"
// @Param       account_id query string false "Restrict to one account"
// @Success     200 {object} analytics.SpendingReport "Spending report"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /analytics/spending [get]
func (h *AnalyticsHandler) Spending(c *gin.Context) {
	var req SpendingRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	report, err := h.analyticsService.MonthlySpending(req.Year, time.Month(req.Month), req.AccountID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}
