package logger

import (
	"io"
	"os"
	"strings"

	"github.com/samvad-hq/samvad-joke-harvester/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Package-level logger to be used across packages after Init.
var S *zap.SugaredLogger

// Logger is the object-logging surface handed to components.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

// Init initializes a zap SugaredLogger writing JSON to stdout using settings from config.
func Init(cfg *config.Config) (Logger, error) {
	return initWithWriter(cfg, zapcore.Lock(os.Stdout))
}

func initWithWriter(cfg *config.Config, w io.Writer) (Logger, error) {
	level := parseLevel("")
	appName := ""
	if cfg != nil {
		level = parseLevel(cfg.LogLevel)
		appName = cfg.AppName
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(w),
		level,
	)

	base := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	if appName != "" {
		base = base.With(zap.String("app", appName))
	}
	S = base.Sugar()
	return zapLogger{}, nil
}

func parseLevel(lvl string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Close flushes any buffered loggers.
func Close() error {
	if S == nil {
		return nil
	}
	return S.Sync()
}

// Minimal object logging helpers -------------------------------------------------
// These are tiny wrappers that log the given object as a structured field named
// `key` and do not attempt to parse arbitrary kv arrays.
func InfoObj(msg, key string, obj interface{}) {
	if S == nil {
		return
	}
	S.Desugar().WithOptions(zap.AddCallerSkip(1)).Info(msg, zap.Any(key, obj))
}

func DebugObj(msg, key string, obj interface{}) {
	if S == nil {
		return
	}
	S.Desugar().WithOptions(zap.AddCallerSkip(1)).Debug(msg, zap.Any(key, obj))
}

func WarnObj(msg, key string, obj interface{}) {
	if S == nil {
		return
	}
	S.Desugar().WithOptions(zap.AddCallerSkip(1)).Warn(msg, zap.Any(key, obj))
}

func ErrorObj(msg, key string, obj interface{}) {
	if S == nil {
		return
	}
	S.Desugar().WithOptions(zap.AddCallerSkip(1)).Error(msg, zap.Any(key, obj))
}

// zapLogger routes the Logger interface to the package-level helpers.
type zapLogger struct{}

func (zapLogger) InfoObj(msg, key string, obj interface{})  { InfoObj(msg, key, obj) }
func (zapLogger) DebugObj(msg, key string, obj interface{}) { DebugObj(msg, key, obj) }
func (zapLogger) WarnObj(msg, key string, obj interface{})  { WarnObj(msg, key, obj) }
func (zapLogger) ErrorObj(msg, key string, obj interface{}) { ErrorObj(msg, key, obj) }

// NopLogger discards everything.
type NopLogger struct{}

func (*NopLogger) InfoObj(string, string, interface{})  {}
func (*NopLogger) DebugObj(string, string, interface{}) {}
func (*NopLogger) WarnObj(string, string, interface{})  {}
func (*NopLogger) ErrorObj(string, string, interface{}) {}
