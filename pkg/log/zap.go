package log

import (
	"context"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type zapLogger struct {
	l *zap.SugaredLogger
}

// NewZapLogger returns a zap-backed Logger writing JSON lines to w.
func NewZapLogger(w io.Writer, level Level) Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "time"
	enc.MessageKey = "message"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), toZapLevel(level))
	return &zapLogger{l: zap.New(core).Sugar()}
}

func (z *zapLogger) Debug(msg string, fields ...any) { z.l.Debugw(msg, zapArgs(fields)...) }
func (z *zapLogger) Info(msg string, fields ...any)  { z.l.Infow(msg, zapArgs(fields)...) }
func (z *zapLogger) Warn(msg string, fields ...any)  { z.l.Warnw(msg, zapArgs(fields)...) }
func (z *zapLogger) Error(msg string, fields ...any) { z.l.Errorw(msg, zapArgs(fields)...) }

func (z *zapLogger) With(fields ...any) Logger {
	return &zapLogger{l: z.l.With(zapArgs(fields)...)}
}

func (z *zapLogger) Enabled(_ context.Context, level Level) bool {
	return z.l.Desugar().Core().Enabled(toZapLevel(level))
}

func zapArgs(fields []any) []any {
	err, rest := splitError(fields)
	if err == nil {
		return fields
	}
	return append([]any{zap.Error(err)}, rest...)
}

func toZapLevel(level Level) zapcore.Level {
	switch {
	case level <= LevelDebug:
		return zapcore.DebugLevel
	case level <= LevelInfo:
		return zapcore.InfoLevel
	case level <= LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
