// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package ctxlog

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level names accepted by NewLogger
const (
	LevelInfo  = "info"
	LevelDebug = "debug"
)

// NewLogger returns a new Logger instance writing human readable
// console lines to the provided writer, using zap through zapr
func NewLogger(name string, level string, out io.Writer) (logr.Logger, error) {
	var zapLevel zapcore.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", LevelInfo:
		zapLevel = zapcore.InfoLevel
	case LevelDebug:
		zapLevel = zapcore.DebugLevel
	default:
		return logr.Discard(), fmt.Errorf("unsupported log level %q, use %q or %q", level, LevelInfo, LevelDebug)
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.TimeKey = ""
	encoderConfig.CallerKey = ""
	encoderConfig.StacktraceKey = ""

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(out),
		zap.NewAtomicLevelAt(zapLevel),
	)

	return zapr.NewLogger(zap.New(core)).WithName(name), nil
}

// Error returns an ERROR level log from an specified context
func Error(ctx context.Context, err error, msg string, v ...interface{}) {
	l := ExtractLogger(ctx)
	l.Error(err, msg, v...)
}

// Debug returns an DEBUG level log from an specified context
func Debug(ctx context.Context, msg string, v ...interface{}) {
	l := ExtractLogger(ctx)
	l.V(1).Info(msg, v...)
}

// Info returns an INFO level log from an specified context
func Info(ctx context.Context, msg string, v ...interface{}) {
	l := ExtractLogger(ctx)
	l.Info(msg, v...)
}
