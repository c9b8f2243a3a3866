package comment

import (
	"context"
	"time"

	"healthhive/internal/domain/comment/handler"
	"healthhive/internal/domain/comment/repository"
	"healthhive/internal/domain/comment/service"
	userRepo "healthhive/internal/domain/user/repository"
	"healthhive/internal/pkg/middleware"
	"healthhive/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// CommentModule 评论模块
type CommentModule struct{}

func (m *CommentModule) Name() string {
	return "comment"
}

func (m *CommentModule) Priority() int {
	return 10
}

func (m *CommentModule) Init(ctx *registry.ModuleContext) error {
	if ctx.Mongo != nil {
		ictx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repository.EnsureCommentIndexes(ictx, ctx.Mongo); err != nil {
			return err
		}
	}

	// 1. 依赖注入
	repo := repository.WithMetrics(repository.New(ctx.DB, ctx.Mongo), ctx.Metrics)
	authors := userRepo.New(ctx.DB, ctx.Mongo)
	opts := service.Options{
		MaxPageSize:   ctx.Config.Comment.MaxPageSize,
		DedupeReports: ctx.Config.Moderation.DedupeReports,
	}

	h := handler.NewCommentHandler(
		service.NewCommentService(repo, ctx.Logger, ctx.Metrics, opts),
		service.NewQueryService(repo, authors, ctx.Logger, opts),
		service.NewModerationService(repo, authors, ctx.Logger, ctx.Metrics, opts),
	)

	// 2. 路由注册
	limit := middleware.UserActionLimit(ctx.Redis, ctx.Config.RateLimit.UserActionsPerMinute, ctx.Logger)
	setupRoutes(ctx.Router, h, limit)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.CommentHandler, limit gin.HandlerFunc) {
	posts := r.Group("/posts/:id/comments")
	{
		posts.GET("", middleware.OptionalAuthMiddleware(), h.ListComments)
		posts.POST("", middleware.AuthMiddleware(), limit, h.CreateComment)
	}

	// 公开读取，登录时可见自己的匿名评论
	public := r.Group("/comments")
	public.Use(middleware.OptionalAuthMiddleware())
	{
		public.GET("/:id", h.GetComment)
		public.GET("/:id/replies", h.ListReplies)
	}

	auth := r.Group("/comments")
	auth.Use(middleware.AuthMiddleware())
	{
		auth.PUT("/:id", h.EditComment)
		auth.DELETE("/:id", h.DeleteComment)
		auth.POST("/:id/reactions", limit, h.React)
		auth.DELETE("/:id/reactions/:kind", limit, h.Unreact)
		auth.POST("/:id/reports", limit, h.Report)
	}

	admin := r.Group("/admin/comments")
	admin.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		admin.GET("/reported", h.ListReported)
		admin.PUT("/:id/status", h.SetStatus)
		admin.DELETE("/:id/reports", h.ClearReports)
	}
}
