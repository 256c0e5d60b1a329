package middleware

import (
	"github.com/gin-gonic/gin"

	"glasserp/internal/core/apperror"
	appctx "glasserp/internal/core/context"
	"glasserp/internal/core/security"
)

// RequireModule allows the request through only for roles the matrix grants
// module. Services repeat the check; this one rejects early and cheaply.
func RequireModule(module security.Module) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := appctx.GetUser(c.Request.Context())
		if user == nil {
			abortUnauthorized(c, "authentication required")
			return
		}
		if !security.Can(security.Role(user.Role), module) {
			_ = c.Error(
				apperror.NewForbidden("insufficient permissions").
					WithDetail("required_roles", security.RolesFor(module)),
			)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStaff allows any staff role.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := appctx.GetUser(c.Request.Context())
		if user == nil {
			abortUnauthorized(c, "authentication required")
			return
		}
		if !security.Role(user.Role).IsStaff() {
			_ = c.Error(apperror.NewForbidden("staff access only"))
			c.Abort()
			return
		}
		c.Next()
	}
}
