package common

import (
	"context"
	"net/http"
	"time"

	"healthhive/internal/pkg/registry"
	"healthhive/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// CommonModule 通用功能模块：欢迎页、健康检查与指标
type CommonModule struct{}

func (m *CommonModule) Name() string {
	return "common"
}

func (m *CommonModule) Priority() int {
	return 100 // 最后初始化
}

// Check 单个依赖的存活检查
type Check func(ctx context.Context) error

func (m *CommonModule) Init(ctx *registry.ModuleContext) error {
	checks := map[string]Check{}
	if ctx.DB != nil {
		checks["postgres"] = func(c context.Context) error {
			sqlDB, err := ctx.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(c)
		}
	}
	if ctx.Mongo != nil {
		checks["mongo"] = func(c context.Context) error {
			return ctx.Mongo.Client().Ping(c, nil)
		}
	}
	if ctx.Redis != nil {
		checks["redis"] = func(c context.Context) error {
			return ctx.Redis.Ping(c).Err()
		}
	}

	setupRoutes(ctx.Router, checks, ctx.Logger)
	return nil
}

func setupRoutes(r *gin.Engine, checks map[string]Check, log *zap.Logger) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "HealthHive API is running", "status": "ok"})
	})
	r.GET("/healthz", healthHandler(checks, log))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// healthHandler 任一依赖失败即返回 503
func healthHandler(checks map[string]Check, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := make(map[string]string, len(checks))
		healthy := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				log.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
				status[name] = "down"
				healthy = false
				continue
			}
			status[name] = "up"
		}

		if !healthy {
			c.JSON(http.StatusServiceUnavailable, response.Response{
				Code:    response.ErrStoreUnavailable,
				Message: "unhealthy",
				Data:    status,
			})
			return
		}
		response.Success(c, status)
	}
}
