package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "glasserp/internal/core/context"
)

// ClientIP copies the caller's address onto the user context so audit
// entries can record it.
//
// Must run after Auth:
//
//	protected.Use(middleware.Auth(cfg.AuthService))
//	protected.Use(middleware.ClientIP())
func ClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := appctx.GetUser(c.Request.Context()); user != nil && user.IP == "" {
			withIP := *user
			withIP.IP = c.ClientIP()
			c.Request = c.Request.WithContext(appctx.WithUser(c.Request.Context(), &withIP))
		}
		c.Next()
	}
}
