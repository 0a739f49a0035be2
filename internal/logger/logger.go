package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"storefront/internal/config"
)

// New builds the process logger from configuration.
func New(cfg config.LogConfig) *zap.Logger {
	if cfg.Development {
		return NewDevelopmentLogger(cfg.ServiceName)
	}
	return NewLogger(cfg.ServiceName)
}

// NewLogger creates a new structured logger
func NewLogger(serviceName string) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.InitialFields = map[string]interface{}{
		"service": serviceName,
	}

	logger, err := zapCfg.Build()
	if err != nil {
		panic(err)
	}

	return logger
}

// NewDevelopmentLogger creates a logger for development
func NewDevelopmentLogger(serviceName string) *zap.Logger {
	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	zapCfg.InitialFields = map[string]interface{}{
		"service": serviceName,
	}

	logger, err := zapCfg.Build()
	if err != nil {
		panic(err)
	}

	return logger
}
