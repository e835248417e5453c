// Package observability provides the ambient concerns shared by the
// evaluators: structured logging (log/slog), OpenTelemetry tracing, and an
// injectable clock.
//
// This core is an in-process library with no network surface, so only the
// OpenTelemetry API is wired here; exporters are the host's concern. When no
// tracer provider is installed the spans are no-ops.
package observability

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Clock provides authority time for the evaluators. Decisions are
// time-dependent; injecting a clock keeps them reproducible under test and
// lets a host supply a kernel-managed time source.
type Clock interface {
	Now() time.Time
}

// WallClock is the default clock.
type WallClock struct{}

func (WallClock) Now() time.Time { return time.Now() }

// Tracer returns the named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// NewLogger builds a text slog.Logger at the given level writing to stderr.
// Unknown levels default to INFO.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
