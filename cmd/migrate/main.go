package main

import (
	"errors"
	"flag"

	"healthhive/internal/pkg/config"
	"healthhive/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	down := flag.Bool("down", false, "roll back one migration")
	force := flag.Int("force", -1, "force a version after fixing a dirty database")
	flag.Parse()

	_ = godotenv.Load()
	config.LoadConfig()
	cfg := config.GlobalConfig

	log, err := logger.Init(cfg.Server.Mode)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Database.Driver != config.DriverPostgres {
		// MongoDB 索引由服务启动时创建
		log.Info("nothing to migrate", zap.String("driver", cfg.Database.Driver))
		return
	}

	m, err := migrate.New("file://migrations", cfg.Database.MigrateURL())
	if err != nil {
		log.Fatal("open migrations", zap.Error(err))
	}
	defer m.Close()

	switch {
	case *force >= 0:
		err = m.Force(*force)
	case *down:
		err = m.Steps(-1)
	default:
		err = m.Up()
	}

	var dirty migrate.ErrDirty
	switch {
	case err == nil, errors.Is(err, migrate.ErrNoChange):
	case errors.As(err, &dirty):
		log.Fatal("database is dirty, fix it and rerun with -force", zap.Int("version", dirty.Version))
	default:
		log.Fatal("migration failed", zap.Error(err))
	}

	version, isDirty, _ := m.Version()
	log.Info("migration successful", zap.Uint("version", version), zap.Bool("dirty", isDirty))
}
