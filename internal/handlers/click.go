package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/services"
)

type ClickHandler struct {
	log         *logger.Logger
	attribution services.AttributionService
	links       services.LinkService
}

func NewClickHandler(log *logger.Logger, attribution services.AttributionService, links services.LinkService) *ClickHandler {
	return &ClickHandler{
		log:         log.With("handler", "ClickHandler"),
		attribution: attribution,
		links:       links,
	}
}

// Ingest accepts a fully-formed click payload from a tracking pixel or
// an edge worker.
func (h *ClickHandler) Ingest(c *gin.Context) {
	var in services.ClickInput
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_click_payload", err)
		return
	}
	id, err := h.attribution.IngestClick(c.Request.Context(), nil, in)
	if err != nil {
		RespondFromErr(c, "click_ingest_failed", err)
		return
	}
	RespondOK(c, gin.H{"click_id": id})
}

// Redirect resolves a tracked link slug, records the click, and sends
// the visitor on. Click recording trouble never breaks the redirect.
func (h *ClickHandler) Redirect(c *gin.Context) {
	slug := c.Param("slug")
	country := c.GetHeader("CF-IPCountry")
	link, destination, err := h.links.ResolveDestination(c.Request.Context(), nil, slug, country)
	if err != nil {
		RespondFromErr(c, "link_not_found", err)
		return
	}

	now := time.Now().UTC()
	in := services.ClickInput{
		LinkID:      link.ID,
		UserID:      link.UserID,
		IPAddress:   c.ClientIP(),
		TrackerID:   trackerFromRequest(c),
		UserAgent:   c.GetHeader("User-Agent"),
		AcceptLang:  c.GetHeader("Accept-Language"),
		Referrer:    c.GetHeader("Referer"),
		UTMSource:   c.Query("utm_source"),
		UTMMedium:   c.Query("utm_medium"),
		UTMCampaign: c.Query("utm_campaign"),
		Country:     country,
		Platform:    link.Platform,
		Niche:       link.Niche,
		ContentType: c.Query("utm_content"),
		ClickedAt:   &now,
	}
	if _, err := h.attribution.IngestClick(c.Request.Context(), nil, in); err != nil {
		h.log.Warn("click record failed during redirect", "slug", slug, "error", err)
	}

	c.Redirect(http.StatusFound, destination)
}

func trackerFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie("lp_tid"); err == nil && cookie != "" {
		return cookie
	}
	return c.Query("tid")
}
