// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/holomush/composer-errors/internal/xdg"
)

// Flag names double as config keys.
const (
	flagTasks       = "tasks"
	flagColor       = "color"
	flagStdout      = "stdout"
	flagTaskColors  = "task-colors"
	flagMetricsFile = "metrics-file"
)

// envPrefix prefixes environment overrides, e.g. COMPOSER_ERRORS_COLOR.
const envPrefix = "COMPOSER_ERRORS_"

// Color modes.
const (
	colorAuto   = "auto"
	colorAlways = "always"
	colorNever  = "never"
)

// fileConfig is the shape of the config file.
type fileConfig struct {
	Tasks      string         `koanf:"tasks" yaml:"tasks" json:"tasks,omitempty" jsonschema:"description=Path of the Lua task file,default=tasks.lua"`
	Color      string         `koanf:"color" yaml:"color,omitempty" json:"color,omitempty" jsonschema:"description=When to color error lines; unset defers to options,enum=auto,enum=always,enum=never"`
	Stdout     bool           `koanf:"stdout" yaml:"stdout" json:"stdout,omitempty" jsonschema:"description=Report errors on stdout instead of stderr"`
	TaskColors *bool          `koanf:"task-colors" yaml:"task-colors,omitempty" json:"task-colors,omitempty" jsonschema:"description=Color the [task] label"`
	Options    map[string]any `koanf:"options" yaml:"options,omitempty" json:"options,omitempty" jsonschema:"description=Host-level plugin options keyed by plugin name"`
	// MetricsFile receives task metrics in the Prometheus text format.
	MetricsFile string `koanf:"metrics-file" yaml:"metrics-file,omitempty" json:"metrics-file,omitempty" jsonschema:"description=Write task metrics to this file in Prometheus text format"`
}

// addConfigFlags registers the flags that override config file keys.
func addConfigFlags(fs *pflag.FlagSet) {
	fs.String(flagTasks, "tasks.lua", "Lua task file")
	fs.String(flagColor, "", "color error lines: auto, always or never")
	fs.Bool(flagStdout, false, "report errors on stdout")
	fs.Bool(flagTaskColors, true, "color the [task] label")
	fs.String(flagMetricsFile, "", "write task metrics to a Prometheus textfile")
}

// loadConfig merges the config file, the environment and command line
// flags, in rising precedence. Flag defaults only fill missing keys.
func loadConfig(cmd *cobra.Command, configFile string) (*fileConfig, error) {
	path := configFile
	if path == "" {
		p, err := xdg.ExistingConfigFile()
		if err != nil {
			return nil, err
		}
		path = p
	}

	k := koanf.New(".")
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the user
		if err != nil {
			return nil, oops.In("config").Code("CONFIG_UNREADABLE").With("file", path).Wrap(err)
		}
		if err := validateConfig(data); err != nil {
			return nil, oops.In("config").Code("CONFIG_INVALID").With("file", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.In("config").Code("CONFIG_INVALID").With("file", path).Wrap(err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{Prefix: envPrefix, TransformFunc: envKey}), nil); err != nil {
		return nil, oops.In("config").Hint("failed to load environment").Wrap(err)
	}

	fs := cmd.Flags()
	if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, flagValue(fs)), nil); err != nil {
		return nil, oops.In("config").Hint("failed to load flags").Wrap(err)
	}

	var cfg fileConfig
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.In("config").Code("CONFIG_INVALID").Wrap(err)
	}
	return &cfg, nil
}

// envKey maps COMPOSER_ERRORS_TASK_COLORS to task-colors. Unknown
// variables are skipped.
func envKey(key, value string) (string, any) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, envPrefix)), "_", "-")
	switch name {
	case flagTasks, flagColor, flagStdout, flagTaskColors, flagMetricsFile:
		return name, value
	}
	return "", nil
}

// flagValue maps config flags to koanf keys. Global flags are skipped, and
// so is an untouched --task-colors so host-level options can decide.
func flagValue(fs *pflag.FlagSet) func(*pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		switch f.Name {
		case flagTasks, flagColor, flagStdout, flagMetricsFile:
		case flagTaskColors:
			if !f.Changed {
				return "", nil
			}
		default:
			return "", nil
		}
		return f.Name, posflag.FlagVal(fs, f)
	}
}

// NewConfigCmd creates the config subcommand.
func NewConfigCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration run would use after merging the config file,
COMPOSER_ERRORS_* environment variables and command line flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, g.configFile)
			if err != nil {
				return err
			}
			out, err := yamlv3.Marshal(cfg)
			if err != nil {
				return oops.In("config").Hint("failed to encode config").Wrap(err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err //nolint:wrapcheck // terminal write
		},
	}
	addConfigFlags(cmd.Flags())
	return cmd
}
