package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	App        AppConfig        `mapstructure:"app"`
	Comment    CommentConfig    `mapstructure:"comment"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

type DatabaseConfig struct {
	Driver   string      `mapstructure:"driver"` // mongo, postgres
	Host     string      `mapstructure:"host"`
	User     string      `mapstructure:"user"`
	Password string      `mapstructure:"password"`
	DBName   string      `mapstructure:"dbname"`
	Port     string      `mapstructure:"port"`
	SSLMode  string      `mapstructure:"sslmode"`
	TimeZone string      `mapstructure:"timezone"`
	Mongo    MongoConfig `mapstructure:"mongo"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// PostgresDSN 拼接 gorm 使用的 DSN
func (d DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		d.Host, d.User, d.Password, d.DBName, d.Port, d.SSLMode, d.TimeZone)
}

// MigrateURL golang-migrate 使用的连接串
func (d DatabaseConfig) MigrateURL() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type AppConfig struct {
	Env   string `mapstructure:"env"`
	Debug bool   `mapstructure:"debug"`
}

type CommentConfig struct {
	MaxPageSize int `mapstructure:"max_page_size"`
}

type ModerationConfig struct {
	DedupeReports bool `mapstructure:"dedupe_reports"` // 同一用户重复举报是否拒绝
}

type RateLimitConfig struct {
	IPRPS                float64       `mapstructure:"ip_rps"`
	IPBurst              int           `mapstructure:"ip_burst"`
	IPIdleTTL            time.Duration `mapstructure:"ip_idle_ttl"`             // 超过该时长无请求的 IP 限流器会被回收
	UserActionsPerMinute int           `mapstructure:"user_actions_per_minute"` // 0 表示关闭，依赖 Redis
}

var GlobalConfig Config

// Validate 验证配置
func (c *Config) Validate() error {
	// JWT 配置验证
	if c.JWT.Secret == "" || c.JWT.Secret == "your_super_secret_key" {
		return errors.New("please set a secure JWT secret in production")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT secret should be at least 32 characters")
	}

	// 数据库配置验证
	switch c.Database.Driver {
	case DriverMongo:
		if c.Database.Mongo.URI == "" || c.Database.Mongo.Database == "" {
			return errors.New("mongo configuration is incomplete")
		}
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
			return errors.New("database configuration is incomplete")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Comment.MaxPageSize <= 0 {
		return errors.New("comment.max_page_size must be positive")
	}

	// 用户级限流需要 Redis
	if c.RateLimit.UserActionsPerMinute > 0 && c.Redis.Addr == "" {
		return errors.New("redis address is required when user rate limiting is enabled")
	}

	return nil
}

// Load 读取配置文件与环境变量，不做校验
func Load() (Config, error) {
	// 获取环境变量，默认为dev
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	// 根据环境选择配置文件
	configName := "config"
	if env != "dev" {
		configName = "config." + env
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// 设置默认值
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", DriverMongo)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "UTC")
	v.SetDefault("database.mongo.database", "healthhive")
	v.SetDefault("redis.db", 0)
	v.SetDefault("app.env", env)
	v.SetDefault("app.debug", true)
	v.SetDefault("comment.max_page_size", 100)
	v.SetDefault("moderation.dedupe_reports", false)
	v.SetDefault("ratelimit.ip_rps", 100)
	v.SetDefault("ratelimit.ip_burst", 200)
	v.SetDefault("ratelimit.ip_idle_ttl", "10m")
	v.SetDefault("ratelimit.user_actions_per_minute", 0)

	if err := v.ReadInConfig(); err != nil {
		log.Printf("Warning: Config file not found, using defaults or env vars: %v", err)
	}

	// 绑定环境变量，例如 DATABASE_MONGO_URI
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to decode config: %w", err)
	}

	// 手动覆盖，以防 viper 无法正确解析复杂结构或环境变量
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		cfg.Database.Mongo.URI = uri
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		cfg.Redis.Addr = redisAddr
	}
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		cfg.JWT.Secret = jwtSecret
	}

	return cfg, nil
}

// LoadConfig 加载并校验配置，写入 GlobalConfig
func LoadConfig() {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("Unable to decode into struct: %v", err)
	}

	// 验证配置
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	GlobalConfig = cfg
	log.Printf("Configuration loaded and validated successfully. Environment: %s", GlobalConfig.App.Env)
}
