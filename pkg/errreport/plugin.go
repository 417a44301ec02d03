// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errreport

import (
	"log/slog"
	"os"

	"github.com/holomush/composer-errors/pkg/composer"
)

// Host is the surface a reporter needs from the object it attaches to.
// Pointer hosts are tracked by identity and comparable value hosts by
// value. Other hosts are attached without deduplication.
type Host interface {
	On(event string, fn composer.Listener)
	PluginOptions(name string) any
}

// Plugin attaches an error reporter to a host.
type Plugin func(Host)

// New returns a Plugin that reports to os.Stderr unless a stream is
// configured.
//
//	errreport.New(errreport.Options{Colors: errreport.Bool(false)})(c)
func New(opts Options) Plugin {
	return NewWithDefaults(opts, Defaults{Stream: os.Stderr})
}

// NewWithDefaults returns a Plugin whose unset options fall back to d.
func NewWithDefaults(opts Options, d Defaults) Plugin {
	return func(host Host) {
		if !attached.claim(host) {
			return
		}

		s := resolve(host.PluginOptions(OptionsKey), opts, d)
		h := NewHandler(Formatter{Colors: s.colors, TaskColors: s.taskColors}, s.stream)
		host.On(composer.EventError, h.Listen)

		slog.Debug("error reporter attached", "colors", s.colors, "task_colors", s.taskColors)
	}
}

// Attached reports whether a reporter has been attached to host.
func Attached(host Host) bool {
	return attached.has(host)
}

// Detach forgets host so a later attach registers a new listener. The
// listener already on the host stays; the host owns its listeners.
func Detach(host Host) {
	attached.release(host)
}
