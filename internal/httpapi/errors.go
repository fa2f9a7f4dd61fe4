package httpapi

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/aman-cerp/docretrieve/internal/errors"
)

// respondError writes err as a JSON error body with the HTTP status
// internal/errors.MapHTTPStatus derives from its category (spec §7).
func respondError(c *gin.Context, err error) {
	status := apperrors.MapHTTPStatus(err)
	body, marshalErr := apperrors.FormatJSON(err)
	if marshalErr != nil {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Data(status, "application/json; charset=utf-8", body)
}

// badRequest is a 400 Input error (spec §7), never retried.
func badRequest(c *gin.Context, message string) {
	respondError(c, apperrors.ValidationError(message, nil))
}

// backendError is a 503 Backend transient error (spec §7): the request was
// well-formed but a collaborator (embedder, hydrator, metadata store)
// failed.
func backendError(c *gin.Context, message string, cause error) {
	respondError(c, apperrors.NetworkError(message, cause))
}
