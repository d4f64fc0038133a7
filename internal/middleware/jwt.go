package middleware

import (
	"errors"
	"net/http"
	"strings"

	"todo_api/internal/auth"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the bearer token and stores the caller's user id
// on the context. Requests without a valid access token never reach the handler.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authentication credentials were not provided.")
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c, "Invalid authorization format. Use: Bearer <token>")
			return
		}

		claims, err := auth.ValidateToken(parts[1], secret)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				abortUnauthorized(c, "Token expired")
			} else {
				abortUnauthorized(c, "Invalid token")
			}
			return
		}

		if claims.Type != auth.AccessToken {
			abortUnauthorized(c, "Invalid token type")
			return
		}

		c.Set(auth.UserIDKey, claims.UserID)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}
