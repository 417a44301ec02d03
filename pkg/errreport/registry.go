// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errreport

import (
	"fmt"
	"log/slog"
	"reflect"
	"runtime"
	"sync"
	"weak"
)

// registry remembers which hosts already carry a reporter. It is shared by
// every Plugin so a host never gets two reporters, however many pipelines
// try to attach one. Entries for reference hosts hold only weak pointers
// and are dropped once the host is collected.
type registry struct {
	mu    sync.Mutex
	hosts map[hostKey]struct{}
}

var attached = &registry{hosts: make(map[hostKey]struct{})}

// hostKey identifies a host. Exactly one field is set.
type hostKey struct {
	ref weak.Pointer[byte]
	val any
}

// keyOf returns the key of h and, for reference hosts, the address whose
// collection ends the entry. ok is false when h cannot be tracked.
func keyOf(h Host) (key hostKey, addr *byte, ok bool) {
	v := reflect.ValueOf(h)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan:
		addr = (*byte)(v.UnsafePointer())
		return hostKey{ref: weak.Make(addr)}, addr, true
	}
	if !v.Comparable() {
		return hostKey{}, nil, false
	}
	return hostKey{val: h}, nil, true
}

// isNilHost reports whether h is nil or a typed nil reference.
func isNilHost(h Host) bool {
	if h == nil {
		return true
	}
	v := reflect.ValueOf(h)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// claim records h and reports whether a reporter should be attached.
func (r *registry) claim(h Host) bool {
	if isNilHost(h) {
		return false
	}
	key, addr, ok := keyOf(h)
	if !ok {
		slog.Debug("error reporter host is not comparable, attaching without deduplication",
			"host", fmt.Sprintf("%T", h))
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.hosts[key]; dup {
		return false
	}
	r.hosts[key] = struct{}{}
	if addr != nil {
		runtime.AddCleanup(addr, r.forget, key)
	}
	return true
}

func (r *registry) forget(key hostKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.hosts, key)
}

func (r *registry) release(h Host) {
	if isNilHost(h) {
		return
	}
	if key, _, ok := keyOf(h); ok {
		r.forget(key)
	}
}

func (r *registry) has(h Host) bool {
	if isNilHost(h) {
		return false
	}
	key, _, ok := keyOf(h)
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, found := r.hosts[key]
	return found
}
