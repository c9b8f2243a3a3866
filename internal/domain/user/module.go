package user

import (
	"context"
	"time"

	"healthhive/internal/domain/user/handler"
	"healthhive/internal/domain/user/repository"
	"healthhive/internal/domain/user/service"
	"healthhive/internal/pkg/middleware"
	"healthhive/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// UserModule 用户模块
type UserModule struct{}

func (m *UserModule) Name() string {
	return "user"
}

func (m *UserModule) Priority() int {
	// 用户模块优先级最高，评论模块依赖用户资料
	return 1
}

func (m *UserModule) Init(ctx *registry.ModuleContext) error {
	if ctx.Mongo != nil {
		ictx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repository.EnsureUserIndexes(ictx, ctx.Mongo); err != nil {
			return err
		}
	}

	// 1. 依赖注入
	userRepo := repository.New(ctx.DB, ctx.Mongo)
	userService := service.NewUserService(userRepo, ctx.Logger)
	userHandler := handler.NewUserHandler(userService)

	// 2. 路由注册
	setupRoutes(ctx.Router, userHandler)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.UserHandler) {
	// 公开路由
	r.GET("/users/:id", h.GetUser)

	// 受保护的路由
	userGroup := r.Group("/users")
	userGroup.Use(middleware.AuthMiddleware())
	{
		userGroup.POST("", h.CreateProfile)
		userGroup.GET("/me", h.GetMe)
		userGroup.PUT("/me", h.UpdateMe)
	}

	adminGroup := r.Group("/users")
	adminGroup.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		adminGroup.GET("", h.GetUsers)
		adminGroup.PUT("/:id/role", h.SetRole)
	}
}
