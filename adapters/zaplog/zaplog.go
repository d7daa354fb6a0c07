// Package zaplog adapts a zap logger to the authsync.Logger interface so
// hosts that already run zap can route library logs through it.
package zaplog

import (
	"go.uber.org/zap"
)

// Logger wraps a zap sugared logger.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New wraps logger. The "authsync" name is appended so library entries are
// distinguishable from the host's own.
func New(logger *zap.Logger) *Logger {
	return &Logger{sugar: logger.Named("authsync").Sugar()}
}

// NewDevelopment builds a development-configured zap logger, mainly for
// examples and local runs.
func NewDevelopment() (*Logger, error) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return New(logger), nil
}

func (l *Logger) Debug(format string, args ...any) {
	l.sugar.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.sugar.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.sugar.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.sugar.Errorf(format, args...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
