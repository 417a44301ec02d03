// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package logging configures slog for the command line tool.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/trace"
)

// Format names accepted by Setup.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Options configures Setup.
type Options struct {
	Service string
	Version string
	// Format is FormatJSON or FormatText. Empty means FormatText.
	Format string
	Level  slog.Level
	// Writer receives log records. Nil means os.Stderr.
	Writer io.Writer
}

// spanHandler adds the active span's trace and span IDs to each record.
type spanHandler struct {
	slog.Handler
}

func (h spanHandler) Handle(ctx context.Context, r slog.Record) error {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", sc.TraceID().String()))
	}
	if sc.HasSpanID() {
		r.AddAttrs(slog.String("span_id", sc.SpanID().String()))
	}
	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.Handler.Handle(ctx, r)
}

func (h spanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return spanHandler{h.Handler.WithAttrs(attrs)}
}

func (h spanHandler) WithGroup(name string) slog.Handler {
	return spanHandler{h.Handler.WithGroup(name)}
}

// Setup builds a logger tagged with service and version.
func Setup(opts Options) (*slog.Logger, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	ho := &slog.HandlerOptions{Level: opts.Level}

	var base slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", FormatText:
		base = slog.NewTextHandler(w, ho)
	case FormatJSON:
		base = slog.NewJSONHandler(w, ho)
	default:
		return nil, oops.In("logging").Code("LOG_FORMAT_INVALID").With("format", opts.Format).
			Hint("use json or text").Errorf("unknown log format %q", opts.Format)
	}

	var h slog.Handler = spanHandler{base}
	if opts.Service != "" || opts.Version != "" {
		h = h.WithAttrs([]slog.Attr{
			slog.String("service", opts.Service),
			slog.String("version", opts.Version),
		})
	}
	return slog.New(h), nil
}

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, oops.In("logging").Code("LOG_LEVEL_INVALID").With("level", s).
			Hint("use debug, info, warn or error").Wrap(err)
	}
	return l, nil
}
