package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	userModel "healthhive/internal/domain/user/model"
	"healthhive/internal/pkg/config"
	"healthhive/pkg/metrics"
	"healthhive/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	config.GlobalConfig.JWT.Secret = "0123456789abcdef0123456789abcdef"
	token, _, err := utils.GenerateToken(userID, role, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func perform(r *gin.Engine, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/me", AuthMiddleware(), func(c *gin.Context) {
		id, _ := CurrentUserID(c)
		role, _ := CurrentRole(c)
		c.String(http.StatusOK, id+":"+string(role))
	})
	r.GET("/admin", AuthMiddleware(), AdminMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	t.Run("missing header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, perform(r, "GET", "/me", "").Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, perform(r, "GET", "/me", "Token abc").Code)
	})

	t.Run("bad token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, perform(r, "GET", "/me", "Bearer nope").Code)
	})

	t.Run("valid token", func(t *testing.T) {
		w := perform(r, "GET", "/me", bearer(t, "u1", "doctor"))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "u1:doctor", w.Body.String())
	})

	t.Run("unknown role falls back to user", func(t *testing.T) {
		w := perform(r, "GET", "/me", bearer(t, "u1", "wizard"))
		assert.Equal(t, "u1:user", w.Body.String())
	})

	t.Run("admin only", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, perform(r, "GET", "/admin", bearer(t, "u1", "user")).Code)
		assert.Equal(t, http.StatusNoContent, perform(r, "GET", "/admin", bearer(t, "a1", "admin")).Code)
	})
}

func TestOptionalAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/c", OptionalAuthMiddleware(), func(c *gin.Context) {
		id, ok := CurrentUserID(c)
		if !ok {
			id = "guest"
		}
		c.String(http.StatusOK, id)
	})

	assert.Equal(t, "guest", perform(r, "GET", "/c", "").Body.String())
	assert.Equal(t, "guest", perform(r, "GET", "/c", "Bearer broken").Body.String())
	assert.Equal(t, "u7", perform(r, "GET", "/c", bearer(t, "u7", "user")).Body.String())
}

func TestRequireRoles(t *testing.T) {
	r := gin.New()
	r.GET("/clinical", AuthMiddleware(), RequireRoles(userModel.RoleDoctor, userModel.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, perform(r, "GET", "/clinical", bearer(t, "d1", "doctor")).Code)
	assert.Equal(t, http.StatusForbidden, perform(r, "GET", "/clinical", bearer(t, "u1", "user")).Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(NewIPRateLimiter(rate.Limit(1), 2)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, perform(r, "GET", "/", "").Code)
	assert.Equal(t, http.StatusOK, perform(r, "GET", "/", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, perform(r, "GET", "/", "").Code)
}

func TestIPRateLimiterEvict(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 1)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	first := limiter.GetLimiter("10.0.0.1")
	limiter.GetLimiter("10.0.0.2")
	require.Equal(t, 2, limiter.Len())

	now = now.Add(5 * time.Minute)
	assert.Same(t, first, limiter.GetLimiter("10.0.0.1"), "access refreshes the entry")

	now = now.Add(6 * time.Minute)
	assert.Equal(t, 1, limiter.Evict(10*time.Minute))
	assert.Equal(t, 1, limiter.Len())
	assert.Same(t, first, limiter.GetLimiter("10.0.0.1"))

	now = now.Add(11 * time.Minute)
	assert.Equal(t, 1, limiter.Evict(10*time.Minute))
	assert.Zero(t, limiter.Len())
	assert.NotSame(t, first, limiter.GetLimiter("10.0.0.1"))
}

func TestIPRateLimiterRunEviction(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 1)
	limiter.GetLimiter("10.0.0.1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		limiter.RunEviction(ctx, 20*time.Millisecond, zap.NewNop())
		close(done)
	}()

	assert.Eventually(t, func() bool { return limiter.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("eviction loop did not stop")
	}
}

func TestTraceMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(TraceMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, TraceID(c)) })

	t.Run("keeps upstream id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Trace-ID", "gw-1234")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "gw-1234", w.Header().Get("X-Trace-ID"))
		assert.Equal(t, "gw-1234", w.Body.String())
	})

	t.Run("replaces unsafe id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Trace-ID", "a b\tinjected")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.NotEqual(t, "a b\tinjected", w.Body.String())
		assert.Len(t, w.Body.String(), 36)
	})

	t.Run("generates when missing", func(t *testing.T) {
		w := perform(r, "GET", "/", "")
		assert.Len(t, w.Header().Get("X-Trace-ID"), 36)
		assert.Equal(t, w.Header().Get("X-Trace-ID"), w.Body.String())
	})
}

type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (f *fakeCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}

func TestUserActionLimitMiddleware(t *testing.T) {
	newRouter := func(counter ActionCounter) *gin.Engine {
		r := gin.New()
		r.POST("/act", AuthMiddleware(), UserActionLimitMiddleware(counter, 2, zap.NewNop()), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return r
	}

	t.Run("limits per user", func(t *testing.T) {
		r := newRouter(&fakeCounter{counts: map[string]int64{}})
		alice := bearer(t, "alice", "user")

		assert.Equal(t, http.StatusOK, perform(r, "POST", "/act", alice).Code)
		assert.Equal(t, http.StatusOK, perform(r, "POST", "/act", alice).Code)
		assert.Equal(t, http.StatusTooManyRequests, perform(r, "POST", "/act", alice).Code)
		assert.Equal(t, http.StatusOK, perform(r, "POST", "/act", bearer(t, "bob", "user")).Code)
	})

	t.Run("fails open when counter is down", func(t *testing.T) {
		r := newRouter(&fakeCounter{err: errors.New("redis down")})
		assert.Equal(t, http.StatusOK, perform(r, "POST", "/act", bearer(t, "alice", "user")).Code)
	})
}

func TestMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := gin.New()
	r.Use(MetricsMiddleware(metrics.NewMetricsCollector(reg)))
	r.GET("/comments/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	perform(r, "GET", "/comments/a", "")
	perform(r, "GET", "/comments/b", "")
	perform(r, "GET", "/missing", "")

	n, err := testutil.GatherAndCount(reg, "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "route template and unmatched")
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(TraceMiddleware(), RecoveryMiddleware(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := perform(r, "GET", "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}
