package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	appctx "glasserp/internal/core/context"
	"glasserp/internal/core/fiscal"
	"glasserp/internal/infrastructure/http/v1/dto"
	"glasserp/internal/infrastructure/http/v1/middleware"
)

func newEngine(t *testing.T) (*gin.Engine, *BaseHandler) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, dto.RegisterValidators())

	r := gin.New()
	r.Use(middleware.Trace(), middleware.ErrorHandler())
	return r, NewBaseHandler(fiscal.IST())
}

// asUser attaches a user to the request context the way Auth does.
func asUser(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := &appctx.UserContext{UserID: "u-1", Role: role}
		c.Request = c.Request.WithContext(appctx.WithUser(c.Request.Context(), u))
		c.Next()
	}
}

func send(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
