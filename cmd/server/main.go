package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"healthhive/internal/domain/comment"
	"healthhive/internal/domain/common"
	"healthhive/internal/domain/user"
	"healthhive/internal/pkg/config"
	"healthhive/internal/pkg/middleware"
	"healthhive/internal/pkg/registry"
	"healthhive/pkg/database"
	"healthhive/pkg/logger"
	"healthhive/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	// .env 仅用于本地开发，缺失时忽略
	_ = godotenv.Load()

	config.LoadConfig()
	cfg := config.GlobalConfig

	log, err := logger.Init(cfg.Server.Mode)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := &registry.ModuleContext{
		Config:  &cfg,
		Logger:  log,
		Metrics: metrics.GetGlobalCollector(),
	}

	var shutdown []func(context.Context) error

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := database.InitDatabase(cfg.Database, cfg.App.Debug, log)
		if err != nil {
			log.Fatal("failed to connect postgres", zap.Error(err))
		}
		ctx.DB = db
		shutdown = append(shutdown, func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
	default:
		mdb, err := database.InitMongo(context.Background(), cfg.Database.Mongo, log)
		if err != nil {
			log.Fatal("failed to connect mongo", zap.Error(err))
		}
		ctx.Mongo = mdb
		shutdown = append(shutdown, mdb.Client().Disconnect)
	}

	rdb, err := database.InitRedis(cfg.Redis, log)
	if err != nil {
		// Redis 只用于限流，不可用时降级运行
		log.Warn("redis unavailable, per-user rate limiting disabled", zap.Error(err))
	}
	if rdb != nil {
		ctx.Redis = rdb
		shutdown = append(shutdown, func(context.Context) error { return rdb.Close() })
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	ipLimiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimit.IPRPS), cfg.RateLimit.IPBurst)
	go ipLimiter.RunEviction(bgCtx, cfg.RateLimit.IPIdleTTL, log)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Trace-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Trace-ID", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(
		middleware.TraceMiddleware(),
		middleware.LoggerMiddleware(log),
		middleware.RecoveryMiddleware(log),
		middleware.MetricsMiddleware(ctx.Metrics),
		middleware.SecurityHeadersMiddleware(),
		middleware.RateLimitMiddleware(ipLimiter),
	)
	ctx.Router = router

	if err := registry.InitModules(ctx,
		&user.UserModule{},
		&comment.CommentModule{},
		&common.CommonModule{},
	); err != nil {
		log.Fatal("failed to initialize modules", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr), zap.String("driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	stopBackground()
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	for _, fn := range shutdown {
		if err := fn(sctx); err != nil {
			log.Warn("close store", zap.Error(err))
		}
	}
	log.Info("server exited")
}
