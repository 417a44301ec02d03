// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package composer provides a small in-process task host that runs named
// tasks and emits lifecycle events to registered listeners.
package composer

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("composer-errors/composer")

// Option configures a Composer.
type Option func(*Composer)

// WithOptions sets the host-level plugin options, keyed by plugin name.
func WithOptions(opts map[string]any) Option {
	return func(c *Composer) {
		c.options = opts
	}
}

// WithMetrics records task runs on m.
func WithMetrics(m *Metrics) Option {
	return func(c *Composer) {
		c.metrics = m
	}
}

// WithLogger sets the logger used for run diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Composer) {
		c.logger = logger
	}
}

// Composer registers tasks, runs them one after another and dispatches
// starting, finished and error events.
type Composer struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
	tasks     map[string]*Task
	options   map[string]any
	metrics   *Metrics
	logger    *slog.Logger
}

// New creates a Composer.
func New(opts ...Option) *Composer {
	c := &Composer{
		listeners: make(map[string][]Listener),
		tasks:     make(map[string]*Task),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// On registers fn for the named event. Listeners are called in
// registration order.
func (c *Composer) On(event string, fn Listener) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners[event] = append(c.listeners[event], fn)
}

// ListenerCount returns the number of listeners registered for event.
func (c *Composer) ListenerCount(event string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.listeners[event])
}

// Emit delivers e synchronously to every listener of e.Name.
func (c *Composer) Emit(e Event) {
	c.mu.RLock()
	listeners := make([]Listener, len(c.listeners[e.Name]))
	copy(listeners, c.listeners[e.Name])
	c.mu.RUnlock()

	for _, fn := range listeners {
		fn(e)
	}
}

// PluginOptions returns the host-level options stored under name, or nil.
func (c *Composer) PluginOptions(name string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.options == nil {
		return nil
	}
	return c.options[name]
}

// Task registers fn under name.
func (c *Composer) Task(name string, fn TaskFunc) error {
	if name == "" {
		return oops.In("composer").Code("TASK_NAME_EMPTY").New("task name is empty")
	}
	if fn == nil {
		return oops.In("composer").Code("TASK_FN_NIL").With("task", name).New("task function is nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tasks[name]; ok {
		return oops.In("composer").Code("TASK_EXISTS").With("task", name).Errorf("task %q already registered", name)
	}
	c.tasks[name] = &Task{Name: name, Fn: fn}
	return nil
}

// Tasks returns the registered task names in sorted order.
func (c *Composer) Tasks() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tasks))
	for name := range c.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Match returns the sorted names of tasks matching a glob pattern.
// ':' separates name segments, so "lint:*" matches "lint:go" but not
// "lint:go:vet".
func (c *Composer) Match(pattern string) ([]string, error) {
	g, err := glob.Compile(pattern, ':')
	if err != nil {
		return nil, oops.In("composer").Code("PATTERN_INVALID").With("pattern", pattern).Wrap(err)
	}
	var out []string
	for _, name := range c.Tasks() {
		if g.Match(name) {
			out = append(out, name)
		}
	}
	return out, nil
}

// Run executes the named tasks in order and stops at the first failure.
// A failing task emits an error event carrying the task and its run.
// An unknown name emits an error event with neither.
func (c *Composer) Run(ctx context.Context, names ...string) error {
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return oops.In("composer").With("task", name).Wrap(err)
		}

		c.mu.RLock()
		task, ok := c.tasks[name]
		c.mu.RUnlock()

		if !ok {
			err := oops.In("composer").Code("TASK_NOT_FOUND").With("task", name).Errorf("task %q is not registered", name)
			c.Emit(Event{Name: EventError, Err: err})
			return err
		}

		if err := c.run(ctx, task); err != nil {
			return err
		}
	}
	return nil
}

func (c *Composer) run(ctx context.Context, task *Task) error {
	start := time.Now()
	run := &Run{ID: NewRunID(start), Start: start}

	c.logger.DebugContext(ctx, "task starting", "task", task.Name, "run_id", run.ID.String())
	c.Emit(Event{Name: EventStarting, Task: task, Run: run})

	spanCtx, span := tracer.Start(ctx, "composer.task",
		trace.WithAttributes(
			attribute.String("task", task.Name),
			attribute.String("run_id", run.ID.String()),
		))
	err := call(spanCtx, task)
	run.End = time.Now()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	if err != nil {
		c.metrics.record(task.Name, StatusError, run.Duration())
		c.logger.DebugContext(ctx, "task failed", "task", task.Name, "run_id", run.ID.String(), "duration", run.Duration())
		c.Emit(Event{Name: EventError, Err: err, Task: task, Run: run})
		return oops.In("composer").Code("TASK_FAILED").
			With("task", task.Name).
			With("run_id", run.ID.String()).
			Wrap(err)
	}

	c.metrics.record(task.Name, StatusSuccess, run.Duration())
	c.logger.DebugContext(ctx, "task finished", "task", task.Name, "run_id", run.ID.String(), "duration", run.Duration())
	c.Emit(Event{Name: EventFinished, Task: task, Run: run})
	return nil
}

// call runs the task body, turning a panic into an error.
func call(ctx context.Context, task *Task) error {
	var err error
	if perr := oops.In("composer").With("task", task.Name).Recoverf(func() {
		err = task.Fn(ctx)
	}, "task %q panicked", task.Name); perr != nil {
		return perr
	}
	return err
}
