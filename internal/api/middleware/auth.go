package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"social-service/internal/services"

	"github.com/gin-gonic/gin"
)

// Authenticator resolves a bearer token to a user id.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (uint, error)
}

type AuthMiddleware struct {
	auth    Authenticator
	timeout time.Duration
}

// NewAuthMiddleware bounds every authentication by timeout; zero means the
// request context alone.
func NewAuthMiddleware(auth Authenticator, timeout time.Duration) *AuthMiddleware {
	return &AuthMiddleware{
		auth:    auth,
		timeout: timeout,
	}
}

// RequireAuth rejects the request with 401 before any handler runs. The token
// is read from the Authorization header, then from the token query parameter
// since browsers cannot set headers on a websocket handshake.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if am.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, am.timeout)
			defer cancel()
		}

		userID, err := am.auth.Authenticate(ctx, BearerToken(c))
		if err != nil {
			slog.Warn("Authentication failed", "clientIP", c.ClientIP(), "path", c.Request.URL.Path, "error", err)
			c.Set("error", err.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": services.ErrUnauthorized.Error()})
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

func BearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("token")
}
