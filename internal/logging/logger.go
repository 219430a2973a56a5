package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the level, format and destination of a logger.
type Config struct {
	// Level is a zap level name: "debug", "info", "warn", "error".
	Level string
	// Development switches to colored console output with stack traces on
	// warnings.
	Development bool
	// OutputPaths defaults to stderr; stdout carries captured child output.
	OutputPaths []string
	// Name, when set, names the root logger.
	Name string
}

// DefaultConfig logs JSON at info level to stderr.
func DefaultConfig() Config {
	return Config{Level: "info"}
}

// DevelopmentConfig logs colored console output at debug level to stderr.
func DevelopmentConfig() Config {
	return Config{Level: "debug", Development: true}
}

// New builds a logger from cfg.
func New(cfg Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	zc.EncoderConfig = productionEncoder()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = level
	zc.Sampling = nil
	zc.OutputPaths = []string{"stderr"}
	if len(cfg.OutputPaths) > 0 {
		zc.OutputPaths = cfg.OutputPaths
	}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	if cfg.Name != "" {
		logger = logger.Named(cfg.Name)
	}
	return logger, nil
}

// NewDefault builds a DefaultConfig logger named name, or a no-op logger if
// stderr cannot be opened.
func NewDefault(name string) *zap.Logger {
	cfg := DefaultConfig()
	cfg.Name = name
	logger, err := New(cfg)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func productionEncoder() zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.MessageKey = "message"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeDuration = zapcore.StringDurationEncoder
	return enc
}
