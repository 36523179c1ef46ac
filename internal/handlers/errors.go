package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/models"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/services"
)

func writeError(c *gin.Context, err error) {
	var (
		invalid *services.ValidationError
		backend *services.BackendError
	)
	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: invalid.Message, Details: invalid.Details})
	case errors.As(err, &backend):
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   backend.Op,
			Details: backend.Diagnostic.Details,
			Code:    backend.Diagnostic.Code,
			Hint:    backend.Diagnostic.Hint,
		})
	case errors.Is(err, services.ErrPushNotConfigured):
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error", Details: err.Error()})
	}
}

func badJSON(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid json body", Details: err.Error()})
}
