package refresh

import (
	"fmt"

	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
)

// ZapLogger adapts a zap logger to the Temporal SDK logger.
type ZapLogger struct {
	l *zap.Logger
}

var _ log.Logger = (*ZapLogger)(nil)

// NewZapLogger wraps l, or zap.L() when l is nil.
func NewZapLogger(l *zap.Logger) *ZapLogger {
	if l == nil {
		l = zap.L()
	}
	return &ZapLogger{l: l.WithOptions(zap.AddCallerSkip(1))}
}

func (z *ZapLogger) Debug(msg string, keyvals ...interface{}) { z.l.Debug(msg, fields(keyvals)...) }
func (z *ZapLogger) Info(msg string, keyvals ...interface{})  { z.l.Info(msg, fields(keyvals)...) }
func (z *ZapLogger) Warn(msg string, keyvals ...interface{})  { z.l.Warn(msg, fields(keyvals)...) }
func (z *ZapLogger) Error(msg string, keyvals ...interface{}) { z.l.Error(msg, fields(keyvals)...) }

func fields(keyvals []interface{}) []zap.Field {
	out := make([]zap.Field, 0, (len(keyvals)+1)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if i+1 == len(keyvals) {
			out = append(out, zap.Any("extra", keyvals[i]))
			break
		}
		if err, ok := keyvals[i+1].(error); ok {
			out = append(out, zap.NamedError(key, err))
			continue
		}
		out = append(out, zap.Any(key, keyvals[i+1]))
	}
	return out
}
