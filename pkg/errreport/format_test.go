// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errreport

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/holomush/composer-errors/pkg/composer"
)

func TestFormatter_Line(t *testing.T) {
	end := time.Date(2026, time.January, 2, 3, 4, 5, 6_000_000, time.Local)
	task := &composer.Task{Name: "build"}
	run := &composer.Run{Start: end.Add(-time.Second), End: end}
	boom := errors.New("boom")

	tests := []struct {
		name   string
		format Formatter
		err    error
		task   *composer.Task
		run    *composer.Run
		want   string
	}{
		{
			name:   "plain with task and run",
			format: Formatter{Symbol: "✖"},
			err:    boom,
			task:   task,
			run:    run,
			want:   " ✖  03:04:05.006 ERROR [build] boom \n",
		},
		{
			name:   "plain without task or run",
			format: Formatter{Symbol: "✖"},
			err:    boom,
			want:   " ✖   ERROR  boom \n",
		},
		{
			name:   "plain nil error",
			format: Formatter{Symbol: "✖"},
			want:   " ✖   ERROR  <nil> \n",
		},
		{
			name:   "colored",
			format: Formatter{Colors: true, TaskColors: true, Symbol: "✖"},
			err:    boom,
			task:   task,
			run:    run,
			want:   " \x1b[31m✖\x1b[0m  \x1b[90m03:04:05.006\x1b[0m \x1b[31mERROR\x1b[0m \x1b[36m[build]\x1b[0m boom \n",
		},
		{
			name:   "colored without task colors",
			format: Formatter{Colors: true, Symbol: "✖"},
			err:    boom,
			task:   task,
			want:   " \x1b[31m✖\x1b[0m   \x1b[31mERROR\x1b[0m [build] boom \n",
		},
		{
			name:   "task colors need colors",
			format: Formatter{TaskColors: true, Symbol: "✖"},
			err:    boom,
			task:   task,
			want:   " ✖   ERROR [build] boom \n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.format.Line(tt.err, tt.task, tt.run))
		})
	}
}

func TestFormatter_DefaultSymbol(t *testing.T) {
	line := Formatter{}.Line(errors.New("boom"), nil, nil)
	assert.Contains(t, []string{" ✖   ERROR  boom \n", " ×   ERROR  boom \n"}, line)
}

func TestSymbol(t *testing.T) {
	assert.Equal(t, "×", Symbol("windows"))
	assert.Equal(t, "✖", Symbol("linux"))
	assert.Equal(t, "✖", Symbol("darwin"))
}

func TestHandler_SingleWrite(t *testing.T) {
	var w recordingWriter
	h := NewHandler(Formatter{Symbol: "✖"}, &w)

	h.HandleError(errors.New("boom"), nil, nil)
	h.Listen(composer.Event{Name: composer.EventError, Err: errors.New("bang")})

	assert.Equal(t, []string{" ✖   ERROR  boom \n", " ✖   ERROR  bang \n"}, w.writes)
}

func TestHandler_IgnoresWriteErrors(t *testing.T) {
	h := NewHandler(Formatter{}, failingWriter{})
	assert.NotPanics(t, func() {
		h.HandleError(errors.New("boom"), nil, nil)
	})
}

type recordingWriter struct {
	writes []string
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.writes = append(w.writes, string(p))
	return len(p), nil
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("closed")
}

var escapes = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func TestFormatter_ColorsDoNotChangeText(t *testing.T) {
	end := time.Date(2026, time.January, 2, 3, 4, 5, 6_000_000, time.Local)
	run := &composer.Run{Start: end, End: end}
	boom := errors.New("boom")

	for _, name := range []string{"a\tb", "two\nlines", "wide\nx", "\tlead"} {
		t.Run(name, func(t *testing.T) {
			task := &composer.Task{Name: name}
			plain := Formatter{Symbol: "x"}.Line(boom, task, run)
			colored := Formatter{Colors: true, TaskColors: true, Symbol: "x"}.Line(boom, task, run)

			assert.NotEqual(t, plain, colored)
			assert.Equal(t, plain, escapes.ReplaceAllString(colored, ""))
			assert.Contains(t, plain, "["+name+"]")
		})
	}
}
