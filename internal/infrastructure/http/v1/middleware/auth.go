package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"glasserp/internal/core/apperror"
	appctx "glasserp/internal/core/context"
)

// JWTValidator interface for token validation.
type JWTValidator interface {
	ValidateToken(tokenString string) (*appctx.UserContext, error)
}

// Auth middleware validates bearer tokens and populates user context.
// Every failure is a 401; anonymous access never reaches a handler.
func Auth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearer(c)
		if !ok {
			abortUnauthorized(c, "missing or malformed authorization header")
			return
		}

		user, err := validator.ValidateToken(tokenString)
		if err != nil || user == nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		attach(c, user)
		c.Next()
	}
}

// OptionalAuth validates a token if present but doesn't require it.
// A bad token is treated as no token.
func OptionalAuth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := bearer(c); ok {
			if user, err := validator.ValidateToken(tokenString); err == nil && user != nil {
				attach(c, user)
			}
		}
		c.Next()
	}
}

func bearer(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func attach(c *gin.Context, user *appctx.UserContext) {
	ctx := appctx.WithUser(c.Request.Context(), user)
	c.Request = c.Request.WithContext(ctx)

	c.Set("user_id", user.UserID)
	c.Set("role", user.Role)
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
