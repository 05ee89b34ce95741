// Package logging builds the process-wide slog.Logger tree: a
// context-carried logger keyed by subsystem, fanning out to one or
// more outlets (stdout, file).
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/littleandi/filehorizon/internal/config"
)

type ctxKey struct{}

// Subsystem names used across the pipeline's loggers.
const (
	SubsysPoller       = "poller"
	SubsysQueue        = "queue"
	SubsysOrchestrator = "orchestrator"
	SubsysRouter       = "router"
	SubsysSink         = "sink"
	SubsysIdempotency  = "idempotency"
	SubsysHealth       = "health"
	SubsysCLI          = "cli"
)

// Build constructs a *slog.Logger writing to every configured outlet.
// An empty outlet list falls back to a single stdout outlet. Stdout
// outlets write plain slog text; Color only routes a terminal's output
// through color.Output, and no color codes are added to records.
func Build(cfg config.Logging) (*slog.Logger, error) {
	outlets := cfg.Outlets
	if len(outlets) == 0 {
		outlets = []config.LogOutlet{{Type: "stdout", Level: "info", Color: true}}
	}

	var handlers []slog.Handler
	for _, o := range outlets {
		h, err := buildHandler(o)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, h)
	}

	return slog.New(fanoutHandler{handlers: handlers}), nil
}

func buildHandler(o config.LogOutlet) (slog.Handler, error) {
	level := parseLevel(o.Level)
	opts := &slog.HandlerOptions{Level: level}

	switch o.Type {
	case "stdout":
		var w io.Writer = os.Stdout
		if o.Color && isatty.IsTerminal(os.Stdout.Fd()) {
			w = color.Output
		}
		return slog.NewTextHandler(w, opts), nil
	case "file":
		if o.Path == "" {
			return nil, fmt.Errorf("logging: file outlet requires a path")
		}
		f, err := os.OpenFile(o.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logging: open %s: %w", o.Path, err)
		}
		return slog.NewJSONHandler(f, opts), nil
	default:
		return nil, fmt.Errorf("logging: unknown outlet type %q", o.Type)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a context carrying logger, attaching attrs to whatever
// logger is already in ctx (or to a bare slog.Default() if none).
func With(ctx context.Context, args ...any) context.Context {
	l := FromContext(ctx).With(args...)
	return context.WithValue(ctx, ctxKey{}, l)
}

// WithLogger installs logger as the base for this context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger carried by ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// GetLogger returns the context's logger scoped to subsys.
func GetLogger(ctx context.Context, subsys string) *slog.Logger {
	return FromContext(ctx).With(slog.String("subsys", subsys))
}

// WithError attaches err at Error level with a message.
func WithError(l *slog.Logger, err error, msg string) {
	l.Error(msg, slog.String("error", err.Error()))
}

// fanoutHandler writes every record to each wrapped handler whose
// level enables it.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return fanoutHandler{handlers: next}
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return fanoutHandler{handlers: next}
}
