package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"healthhive/internal/pkg/config"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDatabase 初始化 Postgres 连接
func InitDatabase(cfg config.DatabaseConfig, debug bool, log *zap.Logger) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}

	// 配置 GORM
	gormConfig := &gorm.Config{
		Logger:                                   logger.Default.LogMode(level),
		PrepareStmt:                              true, // 预编译 SQL 缓存
		DisableForeignKeyConstraintWhenMigrating: true, // 表结构由 golang-migrate 管理
		TranslateError:                           true, // 唯一键冲突转换为 gorm.ErrDuplicatedKey
	}

	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	// 获取底层 SQL DB 对象以配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql.DB: %w", err)
	}

	configureConnectionPool(sqlDB)
	log.Info("postgres connection pool configured", zap.String("host", cfg.Host), zap.String("db", cfg.DBName))
	return db, nil
}

// configureConnectionPool 配置数据库连接池
func configureConnectionPool(sqlDB *sql.DB) {
	// 设置连接池中的最大连接数
	sqlDB.SetMaxOpenConns(100)

	// 设置连接池中的最大空闲连接数
	sqlDB.SetMaxIdleConns(10) // 推荐 SetMaxOpenConns 的 10%

	// 设置连接的最大生命周期
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 设置连接的最大空闲时间
	sqlDB.SetConnMaxIdleTime(time.Minute * 30)
}

// invalidTextRepresentation 参数无法转换为列类型，例如非 UUID 字符串查询 uuid 列
const invalidTextRepresentation = "22P02"

// IsInvalidInput 是否为参数格式错误，这类错误重试无意义
func IsInvalidInput(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}
