// Package logger builds the process zerolog logger and carries it on
// request contexts.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// New returns a JSON logger writing to w. The level is applied globally
// so SetLevel can change it later; an unknown level falls back to info.
func New(w io.Writer, level, service string) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	SetLevel(level)
	return zerolog.New(w).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}

// SetLevel swaps the process-wide level and returns what was applied.
func SetLevel(level string) zerolog.Level {
	lvl := ParseLevel(level)
	zerolog.SetGlobalLevel(lvl)
	return lvl
}

func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// WithTrace attaches trace and span ids from the active span, if any.
func WithTrace(ctx context.Context, l zerolog.Logger) zerolog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
}

// Into stores l on ctx so zerolog.Ctx can find it downstream.
func Into(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}
