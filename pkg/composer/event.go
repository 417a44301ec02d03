// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package composer

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Event names emitted by a Composer.
const (
	EventStarting = "starting"
	EventFinished = "finished"
	EventError    = "error"
)

// TaskFunc is the body of a task.
type TaskFunc func(ctx context.Context) error

// Task is a named unit of work registered on a Composer.
type Task struct {
	Name string
	Fn   TaskFunc
}

// Run describes a single execution of a task.
// End is zero until the task returns.
type Run struct {
	ID    ulid.ULID
	Start time.Time
	End   time.Time
}

// Duration returns how long the run took, or zero if it has not ended.
func (r *Run) Duration() time.Duration {
	if r == nil || r.End.IsZero() {
		return 0
	}
	return r.End.Sub(r.Start)
}

// Event is delivered to listeners. Task and Run are nil when the event
// is not tied to a task execution (e.g. an unknown task name).
type Event struct {
	Name string
	Err  error
	Task *Task
	Run  *Run
}

// Listener receives events from a Composer.
type Listener func(Event)
