package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/streamgate/errors"
)

// RespondWithError writes the failure envelope. AppErrors keep their status;
// an oversized body is a 413; anything else is a 500 without its cause.
func RespondWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	if appErr, ok := apperrors.AsAppError(err); ok {
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
		return
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		appErr := apperrors.New(apperrors.ErrCodeInvalidInput, "Request body too large", http.StatusRequestEntityTooLarge).
			WithDetail("limit", tooLarge.Limit)
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, apperrors.Internal(err).ToResponse())
}

// RespondOK writes 200 {success:true, ...fields}.
func RespondOK(c *gin.Context, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// RespondNotFound writes a 404 envelope for resource.
func RespondNotFound(c *gin.Context, resource string) {
	RespondWithError(c, apperrors.NotFound(resource, ""))
}

// RespondMethodNotAllowed writes a 405 envelope.
func RespondMethodNotAllowed(c *gin.Context) {
	RespondWithError(c, apperrors.New(apperrors.ErrCodeInvalidInput, "Method not allowed", http.StatusMethodNotAllowed))
}
