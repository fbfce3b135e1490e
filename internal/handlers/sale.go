package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/services"
)

type SaleHandler struct {
	log         *logger.Logger
	attribution services.AttributionService
}

func NewSaleHandler(log *logger.Logger, attribution services.AttributionService) *SaleHandler {
	return &SaleHandler{
		log:         log.With("handler", "SaleHandler"),
		attribution: attribution,
	}
}

// Correlate ingests a settled sale and returns its attribution when one
// was found. "No attribution" is a normal 200 with attributed=false,
// distinct from a lookup error.
func (h *SaleHandler) Correlate(c *gin.Context) {
	var in services.SaleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_sale_payload", err)
		return
	}
	sale, attr, err := h.attribution.CorrelateSale(c.Request.Context(), nil, in)
	if err != nil {
		RespondFromErr(c, "sale_correlate_failed", err)
		return
	}
	body := gin.H{
		"sale_id":    sale.ID,
		"attributed": attr != nil,
	}
	if attr != nil {
		body["attribution"] = attr
	}
	RespondOK(c, body)
}
