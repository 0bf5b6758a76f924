package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config maps the log.json and log.debug settings onto a zap config. Every
// entry carries the service name so api and seeder output can share a sink.
func Config(service string, json, debug bool) zap.Config {
	level := zapcore.InfoLevel
	encoding := "console"

	if json {
		encoding = "json"
	}

	if debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.Config{
		Encoding:          encoding,
		Level:             zap.NewAtomicLevelAt(level),
		DisableStacktrace: !debug,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "msg",

			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.RFC3339TimeEncoder,

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,

			StacktraceKey:  "stacktrace",
			EncodeDuration: zapcore.StringDurationEncoder,
		},
	}
	if service != "" {
		cfg.InitialFields = map[string]any{"service": service}
	}
	return cfg
}

// New builds the process logger for service. Console output unless json is set.
func New(service string, json, debug bool) (*zap.Logger, error) {
	return Config(service, json, debug).Build()
}
