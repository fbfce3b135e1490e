package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/services"
)

type AttributionHandler struct {
	log         *logger.Logger
	attribution services.AttributionService
}

func NewAttributionHandler(log *logger.Logger, attribution services.AttributionService) *AttributionHandler {
	return &AttributionHandler{
		log:         log.With("handler", "AttributionHandler"),
		attribution: attribution,
	}
}

// Feedback applies a user confirm/reject to an attribution.
func (h *AttributionHandler) Feedback(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_attribution_id", err)
		return
	}
	var body struct {
		Confirmed *bool `json:"confirmed"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Confirmed == nil {
		RespondError(c, http.StatusBadRequest, "invalid_feedback_payload", err)
		return
	}
	attr, err := h.attribution.SubmitFeedback(c.Request.Context(), nil, id, *body.Confirmed)
	if err != nil {
		RespondFromErr(c, "feedback_failed", err)
		return
	}
	RespondOK(c, gin.H{"attribution": attr})
}

// Adjust is the manual override path for revenue share and notes.
func (h *AttributionHandler) Adjust(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_attribution_id", err)
		return
	}
	var body struct {
		RevenueShare float64 `json:"revenue_share"`
		Notes        string  `json:"notes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_adjust_payload", err)
		return
	}
	attr, err := h.attribution.AdjustAttribution(c.Request.Context(), nil, id, body.RevenueShare, body.Notes)
	if err != nil {
		RespondFromErr(c, "adjust_failed", err)
		return
	}
	RespondOK(c, gin.H{"attribution": attr})
}

// List returns a creator's attributions, newest first.
func (h *AttributionHandler) List(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	attrs, err := h.attribution.ListAttributions(c.Request.Context(), nil, userID, 100)
	if err != nil {
		RespondFromErr(c, "list_attributions_failed", err)
		return
	}
	RespondOK(c, gin.H{"attributions": attrs})
}

// ModelStatus exposes the learning system's internals for dashboards.
func (h *AttributionHandler) ModelStatus(c *gin.Context) {
	status, err := h.attribution.GetModelStatus(c.Request.Context())
	if err != nil {
		RespondFromErr(c, "model_status_failed", err)
		return
	}
	RespondOK(c, gin.H{"model": status})
}
