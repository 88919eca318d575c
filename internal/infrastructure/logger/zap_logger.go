package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger(level string) (*zap.Logger, error) {
	return newConfig(level).Build()
}

// NewFileLogger writes JSON logs to both stdout and path.
func NewFileLogger(path, level string) (*zap.Logger, error) {
	config := newConfig(level)
	if path != "" {
		config.OutputPaths = []string{"stdout", path}
		config.ErrorOutputPaths = []string{"stderr", path}
	}
	return config.Build()
}

func newConfig(level string) zap.Config {
	config := zap.NewProductionConfig()

	// Parse level
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		l = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(l)
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return config
}
