// Package logging provides structured, context-aware logging backed by zerolog.
//
// Output defaults to human-readable console format. JSON output is enabled by
// setting LOG_FORMAT=json (or LOG_JSON=true), or programmatically via
// SetZeroLogJsonEnabled. LOG_LEVEL controls the minimum level (default info).
package logging

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tagus/agentlab/pkg/multitenancy"
)

// Logger logs structured messages with optional field maps.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, fields map[string]interface{})

	// With returns a logger that includes the given fields on every message.
	With(fields map[string]interface{}) Logger
}

var (
	jsonMu      sync.RWMutex
	jsonEnabled bool
)

// SetZeroLogJsonEnabled forces JSON output for loggers created afterwards.
// It overrides the LOG_FORMAT and LOG_JSON environment variables.
func SetZeroLogJsonEnabled() {
	jsonMu.Lock()
	defer jsonMu.Unlock()
	jsonEnabled = true
}

func jsonOutputEnabled() bool {
	jsonMu.RLock()
	defer jsonMu.RUnlock()
	if jsonEnabled {
		return true
	}
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		return true
	}
	switch strings.ToLower(os.Getenv("LOG_JSON")) {
	case "true", "1", "yes":
		return true
	}
	return false
}

func logLevel() zerolog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type zeroLogger struct {
	logger zerolog.Logger
}

// New creates a Logger writing to stderr. Format and level follow the
// LOG_FORMAT/LOG_JSON and LOG_LEVEL environment variables.
func New() Logger {
	var zl zerolog.Logger
	if jsonOutputEnabled() {
		zl = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		zl = zerolog.New(writer).With().Timestamp().Logger()
	}
	return &zeroLogger{logger: zl.Level(logLevel())}
}

func (l *zeroLogger) log(ctx context.Context, event *zerolog.Event, msg string, fields map[string]interface{}) {
	if orgID, err := multitenancy.GetOrgID(ctx); err == nil && orgID != "" {
		event = event.Str("org_id", orgID)
	}
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

func (l *zeroLogger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(ctx, l.logger.Debug(), msg, fields)
}

func (l *zeroLogger) Info(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(ctx, l.logger.Info(), msg, fields)
}

func (l *zeroLogger) Warn(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(ctx, l.logger.Warn(), msg, fields)
}

func (l *zeroLogger) Error(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(ctx, l.logger.Error(), msg, fields)
}

func (l *zeroLogger) With(fields map[string]interface{}) Logger {
	c := l.logger.With()
	for k, v := range fields {
		c = c.Interface(k, v)
	}
	return &zeroLogger{logger: c.Logger()}
}

// NoOp returns a Logger that discards everything. Useful in tests.
func NoOp() Logger {
	return &zeroLogger{logger: zerolog.Nop()}
}
