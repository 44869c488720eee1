// Package zaplog adapts go.uber.org/zap to the domain Logger interface.
package zaplog

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ochairo/crossverify/internal/domain/interfaces"
)

// Logger implements interfaces.Logger on top of a zap.Logger
type Logger struct {
	z *zap.Logger
}

// New builds a production zap logger writing JSON to stderr. verbose lowers
// the level to debug; quiet raises it to warn.
func New(verbose, quiet bool) (*Logger, error) {
	config := zap.NewProductionConfig()
	switch {
	case verbose:
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case quiet:
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}

	z, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return &Logger{z: z}, nil
}

// Wrap adapts an existing zap logger
func Wrap(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{z: z}
}

// Debug logs at debug level
func (l *Logger) Debug(msg string, fields ...interfaces.Field) {
	l.z.Debug(msg, convert(fields)...)
}

// Info logs at info level
func (l *Logger) Info(msg string, fields ...interfaces.Field) {
	l.z.Info(msg, convert(fields)...)
}

// Warn logs at warn level
func (l *Logger) Warn(msg string, fields ...interfaces.Field) {
	l.z.Warn(msg, convert(fields)...)
}

// Error logs at error level
func (l *Logger) Error(msg string, fields ...interfaces.Field) {
	l.z.Error(msg, convert(fields)...)
}

// With returns a child logger carrying fields
func (l *Logger) With(fields ...interfaces.Field) interfaces.Logger {
	return &Logger{z: l.z.With(convert(fields)...)}
}

// Sync flushes buffered entries
func (l *Logger) Sync() error {
	return l.z.Sync()
}

func convert(fields []interfaces.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			out = append(out, zap.NamedError(f.Key, err))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}
