package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/linkpulse/linkpulse-backend/internal/insights"
	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/services"
	"github.com/linkpulse/linkpulse-backend/internal/types"
)

type InsightHandler struct {
	log     *logger.Logger
	insight services.InsightService
}

func NewInsightHandler(log *logger.Logger, insight services.InsightService) *InsightHandler {
	return &InsightHandler{
		log:     log.With("handler", "InsightHandler"),
		insight: insight,
	}
}

func (h *InsightHandler) CreatorReport(c *gin.Context) {
	report := h.insight.CreatorReport(c.Request.Context(), c.Query("niche"), c.Query("country"))
	RespondOK(c, gin.H{"report": report})
}

func (h *InsightHandler) AggregateReport(c *gin.Context) {
	query := insights.AggregateQuery{
		Niche:    c.Query("niche"),
		Country:  c.Query("country"),
		Platform: types.Platform(c.Query("platform")),
	}
	report := h.insight.AggregateReport(c.Request.Context(), query)
	RespondOK(c, gin.H{"report": report})
}
