package middleware

import (
	"net/http"

	"github.com/fashalt/fashaltbackend/apperr"
	"github.com/fashalt/fashaltbackend/logger"
	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last error a handler attached with c.Error as
// {"success": false, "message": ...}. Internal causes are logged, never returned.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status := apperr.Status(err)
		ctx := c.Request.Context()
		if status >= http.StatusInternalServerError {
			logger.Error(ctx, "request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		} else {
			logger.Debug(ctx, "request rejected", "status", status, "error", err)
		}
		c.AbortWithStatusJSON(status, gin.H{"success": false, "message": apperr.Message(err)})
	}
}
