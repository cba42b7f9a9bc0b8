package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"treko/pkg/auth"
	"treko/pkg/logger"
)

const principalKey = "principal"

// Authenticate requires a valid access token in the Authorization header and
// stores the caller on the gin context. Paths in public are let through untouched.
func Authenticate(tokens *auth.TokenManager, log *zap.Logger, public ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(public))
	for _, p := range public {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.FullPath()]; ok {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "authentication credentials were not provided",
			})
			return
		}

		p, err := tokens.Parse(strings.TrimSpace(raw), auth.AccessToken)
		if err != nil {
			logger.WithContext(c.Request.Context(), log).Debug("rejected token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "token is invalid or expired",
			})
			return
		}

		SetPrincipal(c, *p)
		c.Next()
	}
}

// RequireSuperuser rejects authenticated callers that are not superusers.
func RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok || !p.Superuser {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "permission_denied",
				"message": "superuser access required",
			})
			return
		}
		c.Next()
	}
}

// SetPrincipal records the authenticated caller on c and on its request context.
func SetPrincipal(c *gin.Context, p auth.Principal) {
	c.Set(principalKey, p)
	ctx := context.WithValue(c.Request.Context(), logger.UserIDKey, p.UserID)
	c.Request = c.Request.WithContext(ctx)
}

// PrincipalFrom returns the caller stored by Authenticate.
func PrincipalFrom(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}
