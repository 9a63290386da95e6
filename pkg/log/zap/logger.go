// Package zap implements the log.Logger interface by go.uber.org/zap.
package zap

import (
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	loglib "github.com/grayfox/go-client/pkg/log"
)

// bodies are logged, limit keeps the lines readable
const logMaxBytes = 10000

type Logger struct {
	logger *zap.Logger
	fields loglib.Fields
}

// NewLogger wraps an existing zap logger.
func NewLogger(zl *zap.Logger) *Logger {
	return &Logger{logger: zl}
}

// New creates a JSON logger writing to the writer, os.Stderr if nil.
// Unknown level names fall back to "info".
func New(level string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(zapcore.AddSync(w)),
		ParseLevel(level),
	)
	return NewLogger(zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel)))
}

func ParseLevel(level string) zapcore.Level {
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

func (l *Logger) Debug(msg string, fields ...loglib.Fields) {
	l.logger.Debug(msg, l.zapFields(nil, fields)...)
}

func (l *Logger) Info(msg string, fields ...loglib.Fields) {
	l.logger.Info(msg, l.zapFields(nil, fields)...)
}

func (l *Logger) Warn(err error, msg string, fields ...loglib.Fields) {
	l.logger.Warn(msg, l.zapFields(err, fields)...)
}

func (l *Logger) Error(err error, msg string, fields ...loglib.Fields) {
	l.logger.Error(msg, l.zapFields(err, fields)...)
}

func (l *Logger) WithFields(fields loglib.Fields) loglib.Logger {
	return &Logger{
		logger: l.logger,
		fields: loglib.MergeFields(l.fields, fields),
	}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.logger.Sync()
}

func (l *Logger) zapFields(err error, fieldMaps []loglib.Fields) []zap.Field {
	all := l.fields
	for _, m := range fieldMaps {
		all = loglib.MergeFields(all, m)
	}

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys)+1)
	if err != nil {
		out = append(out, zap.Error(err))
	}
	for _, key := range keys {
		switch v := all[key].(type) {
		case string:
			if len(v) > logMaxBytes {
				v = v[:logMaxBytes]
			}
			out = append(out, zap.String(key, v))
		case []byte:
			if len(v) > logMaxBytes {
				v = v[:logMaxBytes]
			}
			out = append(out, zap.ByteString(key, v))
		default:
			out = append(out, zap.Any(key, v))
		}
	}
	return out
}
