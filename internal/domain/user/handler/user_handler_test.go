package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"healthhive/internal/domain/user/repository"
	"healthhive/internal/domain/user/service"
	"healthhive/internal/pkg/config"
	"healthhive/internal/pkg/middleware"
	"healthhive/pkg/response"
	"healthhive/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	config.GlobalConfig.JWT.Secret = "0123456789abcdef0123456789abcdef"
}

func setupRouter() *gin.Engine {
	h := NewUserHandler(service.NewUserService(repository.NewMemoryUserRepository(), zap.NewNop()))

	r := gin.New()
	r.GET("/users/:id", h.GetUser)
	auth := r.Group("/users", middleware.AuthMiddleware())
	auth.POST("", h.CreateProfile)
	auth.GET("/me", h.GetMe)
	auth.PUT("/me", h.UpdateMe)
	admin := r.Group("/users", middleware.AuthMiddleware(), middleware.AdminMiddleware())
	admin.GET("", h.GetUsers)
	admin.PUT("/:id/role", h.SetRole)
	return r
}

func bearer(t *testing.T, id, role string) string {
	t.Helper()
	tok, _, err := utils.GenerateToken(id, role, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func do(t *testing.T, r *gin.Engine, method, path, auth string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp struct {
		Code int                    `json:"code"`
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	if resp.Code != response.CodeSuccess {
		return w.Code, map[string]interface{}{"code": resp.Code}
	}
	return w.Code, resp.Data
}

func TestProfileLifecycle(t *testing.T) {
	r := setupRouter()
	u1 := bearer(t, "u1", "user")

	code, data := do(t, r, http.MethodPost, "/users", u1, gin.H{
		"email":             "Asha@Example.com",
		"fullName":          "Asha Rai",
		"medicalConditions": []string{"asthma"},
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "u1", data["id"])
	assert.Equal(t, "asha@example.com", data["email"])
	assert.Equal(t, "user", data["role"])
	assert.Equal(t, "en", data["languagePreference"])

	t.Run("duplicate profile", func(t *testing.T) {
		code, body := do(t, r, http.MethodPost, "/users", u1, gin.H{"email": "other@example.com", "fullName": "Asha"})
		assert.Equal(t, http.StatusConflict, code)
		assert.EqualValues(t, response.ErrUserExists, body["code"])
	})

	t.Run("email taken by another user", func(t *testing.T) {
		code, body := do(t, r, http.MethodPost, "/users", bearer(t, "u2", "user"), gin.H{"email": "asha@example.com", "fullName": "Imposter"})
		assert.Equal(t, http.StatusConflict, code)
		assert.EqualValues(t, response.ErrUserExists, body["code"])
	})

	t.Run("me", func(t *testing.T) {
		code, data := do(t, r, http.MethodGet, "/users/me", u1, nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Asha Rai", data["fullName"])
	})

	t.Run("update me", func(t *testing.T) {
		code, data := do(t, r, http.MethodPut, "/users/me", u1, gin.H{"fullName": "Asha R.", "languagePreference": "np"})
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Asha R.", data["fullName"])
		assert.Equal(t, "np", data["languagePreference"])
		assert.Equal(t, "asha@example.com", data["email"])
	})

	t.Run("invalid gender", func(t *testing.T) {
		code, _ := do(t, r, http.MethodPut, "/users/me", u1, gin.H{"fullName": "Asha", "gender": "robot"})
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("public profile hides email", func(t *testing.T) {
		code, data := do(t, r, http.MethodGet, "/users/u1", "", nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Asha R.", data["fullName"])
		assert.NotContains(t, data, "email")
	})

	t.Run("unknown user", func(t *testing.T) {
		code, _ := do(t, r, http.MethodGet, "/users/ghost", "", nil)
		assert.Equal(t, http.StatusNotFound, code)
	})
}

func TestAdminRoutes(t *testing.T) {
	r := setupRouter()
	u1 := bearer(t, "u1", "user")
	admin := bearer(t, "root", "admin")

	code, _ := do(t, r, http.MethodPost, "/users", u1, gin.H{"email": "u1@example.com", "fullName": "Asha"})
	require.Equal(t, http.StatusCreated, code)

	t.Run("users cannot promote", func(t *testing.T) {
		code, _ := do(t, r, http.MethodPut, "/users/u1/role", u1, gin.H{"role": "admin"})
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("admin promotes to doctor", func(t *testing.T) {
		code, data := do(t, r, http.MethodPut, "/users/u1/role", admin, gin.H{"role": "doctor"})
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "doctor", data["role"])
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		code, _ := do(t, r, http.MethodPut, "/users/u1/role", admin, gin.H{"role": "nurse"})
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("lists users", func(t *testing.T) {
		code, data := do(t, r, http.MethodGet, "/users?page=1&limit=5", admin, nil)
		require.Equal(t, http.StatusOK, code)
		assert.EqualValues(t, 1, data["total"])
		assert.Len(t, data["list"], 1)
	})
}
