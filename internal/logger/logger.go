package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the process logger. It discards everything until Initialize runs.
var Log = zap.NewNop()

// Initialize builds the console logger and, when file is set, a rotated JSON log next to it.
// level is one of debug, info, warn or error and defaults to info.
func Initialize(level string, file string) error {
	lvl := parseLogLevel(level)

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(os.Stderr), lvl),
	}

	if file != "" {
		jsonCfg := zap.NewProductionEncoderConfig()
		jsonCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		rotated := zapcore.AddSync(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonCfg), rotated, lvl))
	}

	Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	Log.Debug("logger initialized", zap.String("level", lvl.String()), zap.String("file", file))
	return nil
}

// Close flushes buffered entries.
func Close() error {
	if Log == nil {
		return nil
	}
	err := Log.Sync()
	// stderr cannot be synced on most terminals
	if err != nil && strings.Contains(err.Error(), "/dev/stderr") {
		return nil
	}
	return err
}

// Named returns a child of Log, or of fallback when it is non-nil.
func Named(fallback *zap.Logger, name string) *zap.Logger {
	if fallback != nil {
		return fallback.Named(name)
	}
	return Log.Named(name)
}

func parseLogLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
