// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/composer-errors/internal/luatasks"
	"github.com/holomush/composer-errors/pkg/composer"
	"github.com/holomush/composer-errors/pkg/errreport"
	"github.com/holomush/composer-errors/pkg/errutil"
)

// defaultTask runs when no pattern is given.
const defaultTask = "default"

// NewRunCmd creates the run subcommand.
func NewRunCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [patterns...]",
		Short: "Run tasks and report failures",
		Long: `Run the tasks whose names match the given glob patterns, in order,
stopping at the first failure. ':' separates name segments, so "lint:*"
matches "lint:go" but not "lint:go:vet". Without patterns the "default"
task runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, g.configFile)
			if err != nil {
				return err
			}
			return runTasks(cmd, g.logger, cfg, args)
		},
	}
	addConfigFlags(cmd.Flags())
	return cmd
}

func runTasks(cmd *cobra.Command, logger *slog.Logger, cfg *fileConfig, patterns []string) error {
	ctx := cmd.Context()
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	if logger == nil {
		logger = slog.Default()
	}

	reg := prometheus.NewRegistry()
	c := composer.New(
		composer.WithOptions(cfg.Options),
		composer.WithMetrics(composer.NewMetrics(reg)),
		composer.WithLogger(logger),
	)

	if _, err := luatasks.NewLoader(stdout).Load(ctx, cfg.Tasks, c); err != nil {
		return err
	}

	sink := stderr
	if cfg.Stdout {
		sink = stdout
	}
	opts, err := reporterOptions(cfg, sink)
	if err != nil {
		return err
	}
	errreport.NewWithDefaults(opts, errreport.Defaults{Stream: sink})(c)
	defer errreport.Detach(c)

	c.On(composer.EventStarting, func(e composer.Event) {
		fmt.Fprintf(stderr, "starting %s\n", e.Task.Name)
	})
	c.On(composer.EventFinished, func(e composer.Event) {
		fmt.Fprintf(stderr, "finished %s after %s\n", e.Task.Name, e.Run.Duration().Round(time.Millisecond))
	})

	reported := false
	c.On(composer.EventError, func(composer.Event) { reported = true })

	names, err := selectTasks(c, patterns)
	if err != nil {
		return err
	}

	runErr := c.Run(ctx, names...)
	logMetrics(ctx, logger, reg)
	if cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, reg); err != nil {
			errutil.LogError(logger, "failed to write metrics", err, "file", cfg.MetricsFile)
		}
	}
	if runErr != nil {
		logRunFailure(ctx, logger, runErr, reported, patterns)
		return errReported
	}
	return nil
}

// logRunFailure logs a failed run. Failures the reporter already printed
// are logged at debug so they show up once.
func logRunFailure(ctx context.Context, logger *slog.Logger, err error, reported bool, patterns []string) {
	level := slog.LevelError
	if reported {
		level = slog.LevelDebug
	}
	errutil.LogErrorAt(ctx, logger, level, "run failed", err, "patterns", patterns)
}

// reporterOptions turns CLI settings into explicit reporter options.
// An empty color mode leaves Colors unset so host-level options apply.
func reporterOptions(cfg *fileConfig, sink io.Writer) (errreport.Options, error) {
	opts := errreport.Options{TaskColors: cfg.TaskColors}

	switch cfg.Color {
	case "":
	case colorAlways:
		opts.Colors = errreport.Bool(true)
	case colorNever:
		opts.Colors = errreport.Bool(false)
	case colorAuto:
		opts.Colors = errreport.Bool(isTerminal(sink))
	default:
		return opts, oops.In("config").Code("COLOR_INVALID").With("color", cfg.Color).
			Hint("use auto, always or never").Errorf("unknown color mode %q", cfg.Color)
	}
	return opts, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// selectTasks expands patterns into task names, keeping pattern order and
// dropping repeats. A pattern that matches nothing is kept as a literal
// name so the run reports it as unknown.
func selectTasks(c *composer.Composer, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return []string{defaultTask}, nil
	}

	var names []string
	seen := make(map[string]bool)
	for _, p := range patterns {
		matched, err := c.Match(p)
		if err != nil {
			return nil, err
		}
		if len(matched) == 0 {
			matched = []string{p}
		}
		for _, name := range matched {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names, nil
}

// logMetrics logs the run counters and durations gathered from g.
func logMetrics(ctx context.Context, logger *slog.Logger, g prometheus.Gatherer) {
	families, err := g.Gather()
	if err != nil {
		logger.DebugContext(ctx, "failed to gather metrics", "error", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			attrs := []any{"metric", mf.GetName()}
			for _, lp := range m.GetLabel() {
				attrs = append(attrs, lp.GetName(), lp.GetValue())
			}
			if c := m.GetCounter(); c != nil {
				attrs = append(attrs, "value", c.GetValue())
			}
			if h := m.GetHistogram(); h != nil {
				attrs = append(attrs, "count", h.GetSampleCount(), "sum", h.GetSampleSum())
			}
			logger.DebugContext(ctx, "task metrics", attrs...)
		}
	}
}
