package middleware

import (
	"errors"
	"net/http"

	"todo_api/internal/apperror"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorHandlerMiddleware renders the last error a handler attached with
// c.Error. Handlers return early after attaching it and write nothing.
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err

		var appErr *apperror.Error
		if !errors.As(err, &appErr) {
			appErr = apperror.Internal("Internal server error", err)
		}

		status := appErr.StatusCode()
		if status >= http.StatusInternalServerError {
			logrus.WithError(err).WithFields(logrus.Fields{
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
			}).Error("Request failed")

			c.JSON(status, gin.H{"error": appErr.Message})
			return
		}

		body := gin.H{"error": appErr.Message}
		if len(appErr.Fields) > 0 {
			body["fields"] = appErr.Fields
		}
		c.JSON(status, body)
	}
}
