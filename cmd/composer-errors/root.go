// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/holomush/composer-errors/internal/logging"
)

const serviceName = "composer-errors"

// errReported marks failures already written to the error stream.
var errReported = errors.New("tasks failed")

// globalFlags holds flags shared by every subcommand.
type globalFlags struct {
	configFile string
	logFormat  string
	logLevel   string

	logger *slog.Logger
}

// NewRootCmd creates the root command for the composer-errors CLI.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "composer-errors",
		Short: "Run Lua tasks and report their errors",
		Long: `composer-errors runs tasks declared in a Lua file and writes one
formatted line per failed task to stderr, or to stdout with --stdout.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := logging.ParseLevel(g.logLevel)
			if err != nil {
				return err
			}
			logger, err := logging.Setup(logging.Options{
				Service: serviceName,
				Version: cmd.Root().Version,
				Format:  g.logFormat,
				Level:   level,
				Writer:  cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			g.logger = logger
			slog.SetDefault(logger)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&g.configFile, "config", "", "config file path (default $XDG_CONFIG_HOME/composer-errors/config.yaml)")
	cmd.PersistentFlags().StringVar(&g.logFormat, "log-format", logging.FormatText, "log format (json or text)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(NewRunCmd(g))
	cmd.AddCommand(NewConfigCmd(g))
	cmd.AddCommand(NewSchemaCmd())

	return cmd
}
