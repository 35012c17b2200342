package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger settings.
type Config struct {
	Level      string // debug, info, warn, error
	Encoding   string // json or console
	OutputPath string // comma separated sinks, stdout when empty
	Service    string
	Env        string
}

// New builds a zap.Logger from the given settings. Service and Env, when
// set, are attached to every entry.
func New(cfg Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	logLevel := strings.ToLower(cfg.Level)
	if logLevel == "" {
		logLevel = "info"
	}
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		// The logger does not exist yet, so report to stderr.
		fmt.Fprintf(os.Stderr, "Invalid log level '%s', using 'info'. Error: %v\n", cfg.Level, err)
		level.SetLevel(zap.InfoLevel)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	encoding := strings.ToLower(cfg.Encoding)
	if encoding != "console" && encoding != "json" {
		encoding = "json"
	}

	outputPaths := splitOutputPaths(cfg.OutputPath)

	initialFields := make(map[string]interface{}, 2)
	if cfg.Service != "" {
		initialFields["service"] = cfg.Service
	}
	if cfg.Env != "" {
		initialFields["env"] = cfg.Env
	}

	zapConfig := zap.Config{
		Level:             level,
		Development:       false,
		DisableCaller:     true,
		DisableStacktrace: true,
		Encoding:          encoding,
		EncoderConfig:     encoderCfg,
		OutputPaths:       outputPaths,
		ErrorOutputPaths:  []string{"stderr"},
		InitialFields:     initialFields,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, nil
}

func splitOutputPaths(raw string) []string {
	var paths []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return []string{"stdout"}
	}
	return paths
}
