// Package rlog is a minimal structured-logging facade over zap, playing the
// same project-local role as the teacher's own erigon-lib/log/v3 package:
// a thin surface the rest of the module logs through, so the backend can be
// swapped without touching call sites.
package rlog

import (
	"sync"

	"go.uber.org/zap"
)

type Logger struct {
	z *zap.Logger

	onceMu  sync.Mutex
	onceSet map[string]struct{}
}

// New wraps a zap.Logger. Pass zap.NewNop() in tests that don't care about
// log output.
func New(z *zap.Logger) *Logger {
	return &Logger{z: z, onceSet: make(map[string]struct{})}
}

func Nop() *Logger { return New(zap.NewNop()) }

func (l *Logger) Info(msg string, fields ...zap.Field)  { l.z.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.z.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.z.Error(msg, fields...) }
func (l *Logger) Debug(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }

// WarnOnce logs a warning at most once per key for the lifetime of the
// Logger. Spec §7: "All warnings are one-shot per (table, column) where
// applicable to avoid log flooding." Callers compose the key, typically
// "<table>.<column>" or "<kind>:<table>".
func (l *Logger) WarnOnce(key, msg string, fields ...zap.Field) {
	l.onceMu.Lock()
	_, seen := l.onceSet[key]
	if !seen {
		l.onceSet[key] = struct{}{}
	}
	l.onceMu.Unlock()
	if seen {
		return
	}
	l.z.Warn(msg, append(fields, zap.String("once_key", key))...)
}
