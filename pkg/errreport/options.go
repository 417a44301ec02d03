// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errreport

import (
	"io"
	"log/slog"
	"reflect"

	"dario.cat/mergo"
	"github.com/go-viper/mapstructure/v2"
)

// OptionsKey is the key under which a host stores reporter options.
const OptionsKey = "composerErrors"

// Options configures the reporter. Nil fields fall back to host-level
// options, then to defaults.
type Options struct {
	// Colors wraps the symbol, timing and ERROR tokens in ANSI colors.
	// Defaults to true.
	Colors *bool `mapstructure:"colors"`
	// TaskColors colors the [task] label when Colors is on. Defaults to true.
	TaskColors *bool `mapstructure:"taskColors"`
	// Stream receives one write per error event.
	Stream io.Writer `mapstructure:"stream"`
}

// Defaults supplies values for options left unset after merging.
type Defaults struct {
	Stream io.Writer
}

// Bool returns a pointer to b, for filling Options literals.
func Bool(b bool) *bool {
	return &b
}

// settings is the resolved, immutable configuration of an attached handler.
type settings struct {
	colors     bool
	taskColors bool
	stream     io.Writer
}

// resolve merges host-level options with explicit ones. Explicit fields
// win field by field; the merge is shallow.
func resolve(hostLevel any, explicit Options, d Defaults) settings {
	merged := hostOptions(hostLevel)
	if err := mergo.Merge(&merged, explicit, mergo.WithOverride, mergo.WithoutDereference); err != nil {
		slog.Debug("error reporter options merge failed, using explicit options", "error", err)
		merged = explicit
	}

	s := settings{
		colors:     true,
		taskColors: true,
		stream:     merged.Stream,
	}
	if merged.Colors != nil {
		s.colors = *merged.Colors
	}
	if merged.TaskColors != nil {
		s.taskColors = *merged.TaskColors
	}
	if s.stream == nil {
		s.stream = d.Stream
	}
	if s.stream == nil {
		s.stream = io.Discard
	}
	return s
}

// hostOptions converts whatever the host stored under OptionsKey into
// Options. Unknown shapes and unknown keys are ignored.
func hostOptions(v any) Options {
	switch o := v.(type) {
	case nil:
		return Options{}
	case Options:
		return o
	case *Options:
		if o == nil {
			return Options{}
		}
		return *o
	case map[string]any:
		var out Options
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &out,
			WeaklyTypedInput: true,
			DecodeHook:       dropNonWriters,
		})
		if err != nil {
			return Options{}
		}
		if err := dec.Decode(o); err != nil {
			slog.Debug("ignoring malformed host-level error reporter options", "error", err)
			return Options{}
		}
		return out
	default:
		return Options{}
	}
}

var writerType = reflect.TypeOf((*io.Writer)(nil)).Elem()

// dropNonWriters discards stream values that are not writers (a file name
// from a config file, say) instead of failing the whole decode.
func dropNonWriters(_, to reflect.Type, data any) (any, error) {
	if to != writerType {
		return data, nil
	}
	if _, ok := data.(io.Writer); !ok {
		return nil, nil
	}
	return data, nil
}
