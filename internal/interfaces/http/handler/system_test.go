package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemHandler_Health(t *testing.T) {
	serve := func(h *SystemHandler) *httptest.ResponseRecorder {
		engine := gin.New()
		engine.GET("/health", h.Health)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		return w
	}

	t.Run("healthy without checks", func(t *testing.T) {
		w := serve(NewSystemHandler("landplots", "1.2.0"))
		require.Equal(t, http.StatusOK, w.Code)

		var resp HealthResponse
		decode(t, w, &resp)
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "landplots", resp.Name)
		assert.Equal(t, "1.2.0", resp.Version)
		assert.Equal(t, runtime.Version(), resp.GoVersion)
		assert.Empty(t, resp.Checks)
	})

	t.Run("all checks pass", func(t *testing.T) {
		h := NewSystemHandler("landplots", "dev")
		h.AddCheck("database", PingFunc(func(context.Context) error { return nil }))
		h.AddCheck("redis", PingFunc(func(context.Context) error { return nil }))

		w := serve(h)
		require.Equal(t, http.StatusOK, w.Code)
		var resp HealthResponse
		decode(t, w, &resp)
		assert.Equal(t, map[string]string{"database": "ok", "redis": "ok"}, resp.Checks)
	})

	t.Run("a failed check answers 503", func(t *testing.T) {
		h := NewSystemHandler("landplots", "dev")
		h.AddCheck("database", PingFunc(func(context.Context) error { return nil }))
		h.AddCheck("redis", PingFunc(func(context.Context) error { return errors.New("connection refused") }))

		w := serve(h)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp HealthResponse
		env := decode(t, w, &resp)
		assert.False(t, env.Success)
		assert.Equal(t, "unhealthy", resp.Status)
		assert.Equal(t, "ok", resp.Checks["database"])
		assert.Equal(t, "connection refused", resp.Checks["redis"])
	})

	t.Run("checks run with a deadline", func(t *testing.T) {
		h := NewSystemHandler("landplots", "dev")
		h.AddCheck("slow", PingFunc(func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			if !ok {
				return errors.New("no deadline")
			}
			return nil
		}))

		w := serve(h)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
