package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log 全局日志实例，Init 之前为 Nop
var Log = zap.NewNop()

// Init 按运行模式初始化日志
// debug 模式使用彩色开发格式，其余使用 JSON 生产格式
func Init(mode string) (*zap.Logger, error) {
	var cfg zap.Config
	if mode == "debug" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	Log = l
	zap.ReplaceGlobals(l)
	return l, nil
}

// Sync 刷新缓冲
func Sync() {
	_ = Log.Sync()
}
