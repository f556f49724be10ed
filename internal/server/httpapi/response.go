package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/filegilla/filegateway/internal/common"
)

// statusFromError maps the shared error kinds onto HTTP statuses. Backend
// failures keep the backend's own status when it reported one.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorConflict):
		return http.StatusConflict
	case errors.Is(err, common.ErrorInvalidCredential):
		return http.StatusForbidden
	}

	var up *common.UpstreamError
	if errors.As(err, &up) && up.Status >= http.StatusBadRequest {
		return up.Status
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFromError(err), gin.H{"success": false, "error": err.Error()})
}

// ok renders the standard success envelope.
func ok(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}
