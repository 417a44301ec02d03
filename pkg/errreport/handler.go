// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errreport

import (
	"io"

	"github.com/holomush/composer-errors/pkg/composer"
)

// Handler writes one formatted line per error event.
type Handler struct {
	format Formatter
	stream io.Writer
}

// NewHandler creates a handler writing lines rendered by f to w.
func NewHandler(f Formatter, w io.Writer) *Handler {
	return &Handler{format: f, stream: w}
}

// HandleError formats the event and writes it with a single Write call.
// Write failures belong to the stream and are not reported.
func (h *Handler) HandleError(err error, task *composer.Task, run *composer.Run) {
	_, _ = io.WriteString(h.stream, h.format.Line(err, task, run))
}

// Listen adapts the handler to a composer.Listener.
func (h *Handler) Listen(e composer.Event) {
	h.HandleError(e.Err, e.Task, e.Run)
}
