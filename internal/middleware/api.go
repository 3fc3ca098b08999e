package middleware

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"portfolio_service/internal/session"
)

type errorResponse struct {
	Error string `json:"error"`
}

// RequireAuth checks the accessToken cookie of an API request with the full
// token codec and answers 401 JSON on failure.
func RequireAuth(verifier ClaimsVerifier, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := session.AccessToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "Authentication required"})
			return
		}

		claims, err := verifier.AccessClaims(token)
		if err != nil {
			log.Debug("api token rejected", slog.String("path", c.Request.URL.Path), slog.Any("error", err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "Invalid or expired token"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "Authentication required"})
			return
		}

		if !slices.Contains(roles, claims.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Error: "Insufficient permissions"})
			return
		}

		c.Next()
	}
}
