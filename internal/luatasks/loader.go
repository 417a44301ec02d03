// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package luatasks loads composer tasks declared in Lua files.
//
// A task file calls task(name, fn) once per task:
//
//	task("build", function() print("building") end)
//	task("lint", function() error("lint failed") end)
//
// Every run executes the whole file again in a fresh sandboxed state and
// then calls the function registered under the task's name, so runs never
// share Lua globals.
package luatasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/composer-errors/pkg/composer"
)

// Registrar accepts tasks. *composer.Composer satisfies it.
type Registrar interface {
	Task(name string, fn composer.TaskFunc) error
}

// Loader reads task files and registers their tasks.
type Loader struct {
	out io.Writer
}

// NewLoader creates a loader whose tasks print to out.
// A nil out discards printed output.
func NewLoader(out io.Writer) *Loader {
	if out == nil {
		out = io.Discard
	}
	return &Loader{out: out}
}

// Load reads the Lua file at path and registers its tasks on reg.
func (l *Loader) Load(ctx context.Context, path string, reg Registrar) ([]string, error) {
	src, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, oops.In("luatasks").Code("TASK_FILE_UNREADABLE").With("file", path).Wrap(err)
	}
	return l.LoadString(ctx, path, string(src), reg)
}

// LoadString registers the tasks declared by src on reg and returns their
// names in declaration order. chunk names the source in errors.
func (l *Loader) LoadString(ctx context.Context, chunk, src string, reg Registrar) ([]string, error) {
	L, err := newState(ctx)
	if err != nil {
		return nil, err
	}
	defer L.Close()

	var names []string
	L.SetGlobal("task", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.CheckFunction(2)
		names = append(names, name)
		return 0
	}))
	l.installPrint(L)

	if err := doChunk(L, chunk, src); err != nil {
		return nil, oops.In("luatasks").Code("TASK_FILE_INVALID").With("file", chunk).Hint("failed to evaluate task file").Wrap(err)
	}

	for _, name := range names {
		if err := reg.Task(name, l.taskFunc(chunk, src, name)); err != nil {
			return nil, oops.In("luatasks").With("file", chunk).Wrap(err)
		}
	}
	return names, nil
}

// taskFunc returns a composer task that runs name from src.
func (l *Loader) taskFunc(chunk, src, name string) composer.TaskFunc {
	return func(ctx context.Context) error {
		L, err := newState(ctx)
		if err != nil {
			return err
		}
		defer L.Close()

		var fn *lua.LFunction
		L.SetGlobal("task", L.NewFunction(func(L *lua.LState) int {
			if L.CheckString(1) == name && fn == nil {
				fn = L.CheckFunction(2)
			}
			return 0
		}))
		l.installPrint(L)

		if err := doChunk(L, chunk, src); err != nil {
			return oops.In("luatasks").With("file", chunk).With("task", name).Hint("failed to evaluate task file").Wrap(err)
		}
		if fn == nil {
			return oops.In("luatasks").With("file", chunk).With("task", name).Errorf("task %q is no longer declared", name)
		}

		if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}); err != nil {
			return taskError(err)
		}
		return nil
	}
}

// doChunk runs src with chunk as its name, so errors point at the file.
func doChunk(L *lua.LState, chunk, src string) error {
	fn, err := L.Load(strings.NewReader(src), chunk)
	if err != nil {
		return err //nolint:wrapcheck // callers wrap with file context
	}
	L.Push(fn)
	return L.PCall(0, lua.MultRet, nil) //nolint:wrapcheck // callers wrap with file context
}

// taskError strips the Lua stack trace so reports show the raised message.
func taskError(err error) error {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil {
		return oops.In("luatasks").New(apiErr.Object.String())
	}
	return err
}

// installPrint replaces print so task output goes to the loader's writer.
func (l *Loader) installPrint(L *lua.LState) {
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.Get(i).String())
		}
		_, _ = fmt.Fprintln(l.out, strings.Join(parts, "\t"))
		return 0
	}))
}
