package util

import (
	"errors"
	"net/http"

	"github.com/ZJUSCT/OITrack/internal/virtual"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Success writes data as the response body.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// OK writes the bare acknowledgement body.
func OK(c *gin.Context) {
	Success(c, gin.H{"success": true})
}

func Error(c *gin.Context, code int, err interface{}) {
	msg := ""
	switch e := err.(type) {
	case string:
		msg = e
	case error:
		msg = e.Error()
	default:
		msg = "Internal server error"
	}

	if code >= http.StatusInternalServerError {
		zap.S().Errorf("API Error: %s", msg)
		// Internal details stay in the log.
		msg = "Internal server error"
	} else {
		zap.S().Debugf("API Error %d: %s", code, msg)
	}

	c.JSON(code, gin.H{"error": msg})
}

// Fail maps err to its HTTP status and writes it.
func Fail(c *gin.Context, err error) {
	Error(c, StatusFromError(err), err)
}

// StatusFromError maps the virtual contest error taxonomy to HTTP status codes.
func StatusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, virtual.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, virtual.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, virtual.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, virtual.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, virtual.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, virtual.ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	}
	return http.StatusInternalServerError
}
