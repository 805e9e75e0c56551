// Package observability provides structured logging, operation timing and
// Prometheus metrics for the rewards backend.
//
// This provides:
//   - A logrus JSON logger configured from config and LOG_LEVEL
//   - Request-scoped log fields (request id, user id) carried in context
//   - Operation timers that feed latency histograms
//   - Prometheus metrics for the ledger, eligibility, notifications and HTTP
package observability

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// ─── Logger ─────────────────────────────────────────────────────────────────

// LogConfig configures the process logger.
type LogConfig struct {
	Level   string // debug, info, warn, error
	Format  string // json or text
	Service string
}

// NewLogger builds a logrus logger. LOG_LEVEL overrides cfg.Level.
func NewLogger(cfg LogConfig, out io.Writer) *logrus.Logger {
	if out == nil {
		out = os.Stdout
	}
	log := logrus.New()
	log.SetOutput(out)

	if strings.EqualFold(cfg.Format, "text") {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	level := cfg.Level
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// Base returns the root entry carrying the service name.
func Base(log *logrus.Logger, service string) *logrus.Entry {
	if service == "" {
		service = "takax"
	}
	return log.WithField("service", service)
}

// ─── Context Propagation ────────────────────────────────────────────────────

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userIDKey
)

// WithRequestID stores the request id for log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithUserID stores the acting user for log correlation.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// Entry decorates base with the fields carried in ctx.
func Entry(ctx context.Context, base *logrus.Entry) *logrus.Entry {
	fields := logrus.Fields{}
	if v := RequestID(ctx); v != "" {
		fields["request_id"] = v
	}
	if v, _ := ctx.Value(userIDKey).(string); v != "" {
		fields["user_id"] = v
	}
	if len(fields) == 0 {
		return base
	}
	return base.WithFields(fields)
}
