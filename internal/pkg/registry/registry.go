package registry

import (
	"fmt"
	"sort"

	"healthhive/internal/pkg/config"
	"healthhive/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ModuleContext 模块初始化所需的上下文
// DB 与 Mongo 按 database.driver 二选一，Redis 未配置时为 nil
type ModuleContext struct {
	Config  *config.Config
	DB      *gorm.DB
	Mongo   *mongo.Database
	Redis   *redis.Client
	Router  *gin.Engine
	Logger  *zap.Logger
	Metrics *metrics.MetricsCollector
}

// Module 模块接口
type Module interface {
	// Name 返回模块名称
	Name() string

	// Init 初始化模块（依赖注入、路由注册等）
	Init(ctx *ModuleContext) error

	// Priority 返回初始化优先级（数字越小越先初始化）
	Priority() int
}

// InitModules 按优先级初始化显式传入的模块
func InitModules(ctx *ModuleContext, modules ...Module) error {
	sorted := append([]Module(nil), modules...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})

	seen := make(map[string]bool, len(sorted))
	for _, module := range sorted {
		if seen[module.Name()] {
			return fmt.Errorf("module %s registered twice", module.Name())
		}
		seen[module.Name()] = true

		if err := module.Init(ctx); err != nil {
			return fmt.Errorf("init module %s: %w", module.Name(), err)
		}
		ctx.Logger.Info("module initialized", zap.String("module", module.Name()))
	}
	return nil
}
