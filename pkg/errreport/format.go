// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errreport

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/holomush/composer-errors/pkg/composer"
)

// TimeLayout is the layout of the timing label: HH:mm:ss.mmm.
const TimeLayout = "15:04:05.000"

// Symbol returns the error marker for goos. Windows consoles get a
// multiplication sign because the heavy cross is missing from their fonts.
func Symbol(goos string) string {
	if goos == "windows" {
		return "×"
	}
	return "✖"
}

type styles struct {
	red, grey, cyan lipgloss.Style
}

var palette = newStyles()

// newStyles pins the renderer to the 16-color ANSI profile so output does
// not depend on the terminal the process happens to run in. Tabs are kept
// as they are.
func newStyles() styles {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.ANSI)
	style := func(c string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color(c)).TabWidth(lipgloss.NoTabConversion)
	}
	return styles{
		red:  style("1"),
		grey: style("8"),
		cyan: style("6"),
	}
}

// paint colors text line by line. Rendering lines one at a time keeps
// lipgloss from padding them to a common width, so stripping the escapes
// gives back text unchanged.
func paint(s lipgloss.Style, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = s.Render(line)
	}
	return strings.Join(lines, "\n")
}

// Formatter renders error events as single report lines.
type Formatter struct {
	Colors     bool
	TaskColors bool
	// Symbol is the error marker; empty means Symbol(runtime.GOOS).
	Symbol string
}

// Line formats one error event. task and run may be nil.
//
// The tokens are joined with single spaces in this order: an empty token,
// the marker, an empty token, the timing label, ERROR, the task label, the
// error text and a newline.
func (f Formatter) Line(err error, task *composer.Task, run *composer.Run) string {
	symbol := f.Symbol
	if symbol == "" {
		symbol = Symbol(runtime.GOOS)
	}
	word := "ERROR"

	var name, timing string
	if task != nil && task.Name != "" {
		name = "[" + task.Name + "]"
	}
	if run != nil && !run.End.IsZero() {
		timing = run.End.Format(TimeLayout)
	}

	if f.Colors {
		symbol = paint(palette.red, symbol)
		word = paint(palette.red, word)
		if timing != "" {
			timing = paint(palette.grey, timing)
		}
		if name != "" && f.TaskColors {
			name = paint(palette.cyan, name)
		}
	}

	return strings.Join([]string{"", symbol, "", timing, word, name, fmt.Sprint(err), "\n"}, " ")
}
