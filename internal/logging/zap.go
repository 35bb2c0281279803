// Package logging adapts zap to contextualized logger interface.
package logging

import (
	"context"
	"fmt"

	"github.com/bool64/ctxd"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls logger.
type Config struct {
	// Level is one of debug, info, warn, error, default info.
	Level string `yaml:"level"`

	// Development enables human-friendly console output.
	Development bool `yaml:"development"`
}

// Logger implements ctxd.Logger with zap.
type Logger struct {
	z *zap.SugaredLogger
}

var _ ctxd.Logger = Logger{}

// New creates zap logger.
func New(cfg Config) (Logger, error) {
	level := zapcore.InfoLevel

	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			return Logger{}, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}

	zc.Level = zap.NewAtomicLevelAt(level)

	z, err := zc.Build()
	if err != nil {
		return Logger{}, fmt.Errorf("failed to build logger: %w", err)
	}

	return Wrap(z), nil
}

// Wrap creates logger from zap instance.
func Wrap(z *zap.Logger) Logger {
	return Logger{z: z.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// Zap returns underlying zap logger.
func (l Logger) Zap() *zap.Logger {
	return l.z.Desugar()
}

// Sync flushes buffered entries.
func (l Logger) Sync() error {
	return l.z.Sync()
}

func (l Logger) kv(ctx context.Context, keysAndValues []interface{}) []interface{} {
	fields := ctxd.Fields(ctx)
	if len(fields) == 0 {
		return keysAndValues
	}

	return append(fields, keysAndValues...)
}

// Debug logs a message.
func (l Logger) Debug(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.z.Debugw(msg, l.kv(ctx, keysAndValues)...)
}

// Info logs a message.
func (l Logger) Info(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.z.Infow(msg, l.kv(ctx, keysAndValues)...)
}

// Important logs a message at warn level to pass info filtering.
func (l Logger) Important(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.z.Warnw(msg, l.kv(ctx, keysAndValues)...)
}

// Warn logs a message.
func (l Logger) Warn(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.z.Warnw(msg, l.kv(ctx, keysAndValues)...)
}

// Error logs a message.
func (l Logger) Error(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.z.Errorw(msg, l.kv(ctx, keysAndValues)...)
}
