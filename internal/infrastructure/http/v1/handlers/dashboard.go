package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"protocolo/internal/domain/dashboard"
	"protocolo/internal/infrastructure/http/v1/dto"
)

// DashboardHandler serves aggregate statistics for the admin dashboard.
type DashboardHandler struct {
	*BaseHandler
	svc *dashboard.Service
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(base *BaseHandler, svc *dashboard.Service) *DashboardHandler {
	return &DashboardHandler{BaseHandler: base, svc: svc}
}

// Stats returns totals and the most recently issued numbers.
// GET /api/v1/dashboard/stats
func (h *DashboardHandler) Stats(c *gin.Context) {
	overview, err := h.svc.Overview(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DataResponse{Data: gin.H{
		"totalSeries":    overview.TotalSeries,
		"totalNumbers":   overview.TotalNumbers,
		"numbersToday":   overview.NumbersToday,
		"pendingNumbers": overview.PendingNumbers,
		"recentNumbers":  dto.FromDocNumberList(overview.RecentNumbers),
	}})
}

// SeriesStats returns the per-series breakdown: lifecycle totals and the
// next-number preview for every active series.
// GET /api/v1/dashboard/series-stats
func (h *DashboardHandler) SeriesStats(c *gin.Context) {
	stats, err := h.svc.SeriesStats(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSeriesOverviewList(stats))
}
