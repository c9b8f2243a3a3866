package common

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"healthhive/internal/pkg/config"
	"healthhive/internal/pkg/registry"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestBanner(t *testing.T) {
	r := gin.New()
	require.NoError(t, (&CommonModule{}).Init(&registry.ModuleContext{
		Config: &config.Config{},
		Router: r,
		Logger: zap.NewNop(),
	}))

	w := get(r, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"HealthHive API is running","status":"ok"}`, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	assert.Equal(t, http.StatusOK, get(r, "/healthz").Code)
	assert.Equal(t, http.StatusOK, get(r, "/metrics").Code)
}

func TestHealthz(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("all up", func(t *testing.T) {
		r := gin.New()
		setupRoutes(r, map[string]Check{"mongo": ok, "redis": ok}, zap.NewNop())

		w := get(r, "/healthz")
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data map[string]string `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, map[string]string{"mongo": "up", "redis": "up"}, resp.Data)
	})

	t.Run("one down", func(t *testing.T) {
		r := gin.New()
		setupRoutes(r, map[string]Check{"postgres": down, "redis": ok}, zap.NewNop())

		w := get(r, "/healthz")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"postgres":"down"`)
	})
}
