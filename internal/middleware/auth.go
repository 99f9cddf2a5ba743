package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/333Kunal/E-com/internal/auth"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
}

// Authenticate requires a bearer token and stores the caller's id and role in the context.
func Authenticate(gate Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := logrus.WithFields(logrus.Fields{"component": "auth", "path": c.FullPath()})

		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if raw == "" {
			logger.Debug("missing token")
			abort(c, http.StatusUnauthorized, "Not authorized to access this route")
			return
		}

		parts := strings.Split(raw, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			logger.Debug("invalid token format")
			abort(c, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}

		identity, err := gate.Authenticate(c.Request.Context(), parts[1])
		if errors.Is(err, auth.ErrUnauthenticated) {
			abort(c, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}
		if err != nil {
			logger.WithError(err).Error("token check failed")
			abort(c, http.StatusInternalServerError, "internal server error")
			return
		}

		c.Set(userIDKey, identity.AccountID)
		c.Set(roleKey, identity.Role)
		c.Next()
	}
}

// RequireRoles lets through callers whose role is privileged under policy. It must run
// after Authenticate.
func RequireRoles(policy auth.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := Role(c)
		if !policy.IsPrivileged(role) {
			logrus.WithFields(logrus.Fields{
				"component": "auth",
				"path":      c.FullPath(),
				"role":      role,
			}).Warn("privileged route denied")
			abort(c, http.StatusForbidden, "Access denied. Admin privileges required.")
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
