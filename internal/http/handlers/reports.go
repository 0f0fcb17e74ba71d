package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ayofalola240/Okra-assessment/internal/domain/user"
)

type CityReporter interface {
	CityReport(ctx context.Context) ([]user.CityStat, error)
}

type ReportsHandler struct {
	reports CityReporter
	timeout time.Duration
}

func NewReportsHandler(reports CityReporter, timeout time.Duration) *ReportsHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ReportsHandler{reports: reports, timeout: timeout}
}

// CityStats is never cached server-side; the ETag only saves the transfer.
func (h *ReportsHandler) CityStats(ctx *gin.Context) {
	c, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	groups, err := h.reports.CityReport(c)

	if err != nil {
		respondServiceError(ctx, err, "Error fetching city statistics")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"message": "City statistics fetched successfully",
		"data":    groups,
	})
}
