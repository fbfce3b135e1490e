package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/services"
)

type LinkHandler struct {
	log   *logger.Logger
	links services.LinkService
}

func NewLinkHandler(log *logger.Logger, links services.LinkService) *LinkHandler {
	return &LinkHandler{
		log:   log.With("handler", "LinkHandler"),
		links: links,
	}
}

func (h *LinkHandler) Create(c *gin.Context) {
	var in services.LinkInput
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_link_payload", err)
		return
	}
	link, err := h.links.CreateLink(c.Request.Context(), nil, in)
	if err != nil {
		RespondFromErr(c, "link_create_failed", err)
		return
	}
	RespondOK(c, gin.H{"link": link})
}

func (h *LinkHandler) List(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	links, err := h.links.ListLinks(c.Request.Context(), nil, userID)
	if err != nil {
		RespondFromErr(c, "list_links_failed", err)
		return
	}
	RespondOK(c, gin.H{"links": links})
}
