package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	errs "github.com/linkpulse/linkpulse-backend/internal/pkg/errors"
)

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func RespondOK(c *gin.Context, body gin.H) {
	c.JSON(http.StatusOK, body)
}

func RespondError(c *gin.Context, status int, code string, err error) {
	body := gin.H{"error": code}
	if err != nil {
		body["detail"] = err.Error()
	}
	c.JSON(status, body)
}

// RespondFromErr maps the error taxonomy to status codes: invalid input
// is the caller's fault, missing rows are 404, everything else is 500.
func RespondFromErr(c *gin.Context, code string, err error) {
	switch {
	case errors.Is(err, errs.ErrInvalidArgument):
		RespondError(c, http.StatusBadRequest, code, err)
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		RespondError(c, http.StatusNotFound, code, err)
	default:
		RespondError(c, http.StatusInternalServerError, code, err)
	}
}
