package commands

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fivetwenty-io/guacrest/pkg/guac"
)

// zapLogger adapts a zap logger to guac.Logger.
type zapLogger struct {
	logger *zap.Logger
}

// NewLogger returns a console logger writing to stderr. Debug messages are
// only emitted when verbose is set.
func NewLogger(verbose bool) (guac.Logger, func(), error) {
	config := zap.NewDevelopmentConfig()
	config.DisableStacktrace = true
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)

	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}

	sync := func() { _ = logger.Sync() }

	return &zapLogger{logger: logger}, sync, nil
}

func (l *zapLogger) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug(msg, zapFields(fields)...)
}

func (l *zapLogger) Info(msg string, fields map[string]interface{}) {
	l.logger.Info(msg, zapFields(fields)...)
}

func (l *zapLogger) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn(msg, zapFields(fields)...)
}

func (l *zapLogger) Error(msg string, fields map[string]interface{}) {
	l.logger.Error(msg, zapFields(fields)...)
}

// zapFields converts fields in key order so log lines are stable.
func zapFields(fields map[string]interface{}) []zap.Field {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	converted := make([]zap.Field, 0, len(keys))
	for _, key := range keys {
		converted = append(converted, zap.Any(key, fields[key]))
	}

	return converted
}
