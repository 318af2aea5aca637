package logutil

import (
	"strings"
	"sync/atomic"

	"github.com/pingcap/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"
	// DefaultLogFormat is the default format of the log.
	DefaultLogFormat = "text"
)

var globalLogger atomic.Value

func init() {
	globalLogger.Store(zap.NewNop())
}

// BgLogger returns the process-wide logger.
func BgLogger() *zap.Logger {
	return globalLogger.Load().(*zap.Logger)
}

// SetLogger replaces the process-wide logger.
func SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	globalLogger.Store(logger)
}

// InitLogger builds a logger writing to stderr and installs it.
// Format is "text" (console encoder) or "json".
func InitLogger(level, format string) error {
	if level == "" {
		level = DefaultLogLevel
	}
	if format == "" {
		format = DefaultLogFormat
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return errors.Annotatef(err, "invalid log level %q", level)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Sampling = nil
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	switch format {
	case "text":
		cfg.Encoding = "console"
	case "json":
		cfg.Encoding = "json"
	default:
		return errors.Errorf("invalid log format %q", format)
	}
	logger, err := cfg.Build()
	if err != nil {
		return errors.Trace(err)
	}
	SetLogger(logger)
	return nil
}
