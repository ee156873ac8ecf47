// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package ctxlog

import (
	"context"

	"github.com/go-logr/logr"
)

type contextLogger struct{}

var (
	loggerKey = &contextLogger{}
)

// WithLogger returns a child context of the provided one that carries
// the given logger
func WithLogger(ctx context.Context, log logr.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// NewContext returns a new child context based on our logger
// key(loggerKey). This function is useful for spawning children
// context with a particular logging name, for example one per publish step
func NewContext(ctx context.Context, name string) context.Context {
	l := ExtractLogger(ctx)

	l = l.WithName(name)

	return context.WithValue(ctx, loggerKey, l)
}

// ExtractLogger returns a logger based on the loggerKey
// This function retrieves from an existing context the value,
// which in this case is an instance of our logger
func ExtractLogger(ctx context.Context) logr.Logger {
	log, ok := ctx.Value(loggerKey).(logr.Logger)
	if !ok || log.GetSink() == nil {
		if logger, err := logr.FromContext(ctx); err == nil {
			log = logger
		}
		if log.GetSink() == nil {
			log = logr.Discard()
		}
	}
	return log
}
