// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errreport

import (
	"io"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/composer-errors/pkg/composer"
)

func registered() int {
	attached.mu.Lock()
	defer attached.mu.Unlock()
	return len(attached.hosts)
}

func collectUntil(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		runtime.GC()
		return cond()
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRegistry_DoesNotKeepHostsAlive(t *testing.T) {
	before := registered()
	collected := make(chan struct{})

	func() {
		c := composer.New()
		NewWithDefaults(Options{}, Defaults{Stream: io.Discard})(c)
		require.True(t, Attached(c))
		require.Equal(t, before+1, registered())
		runtime.AddCleanup(c, func(ch chan struct{}) { close(ch) }, collected)
	}()

	collectUntil(t, func() bool {
		select {
		case <-collected:
			return true
		default:
			return false
		}
	})
	collectUntil(t, func() bool { return registered() == before })
}

// countingHost is a value host; its methods count through a pointer.
type countingHost struct {
	listeners *int
}

func (h countingHost) On(string, composer.Listener) { *h.listeners++ }
func (h countingHost) PluginOptions(string) any { return nil }

// mapHost is a value host that cannot be used as a map key.
type mapHost struct {
	listeners map[string]int
}

func (h mapHost) On(event string, _ composer.Listener) { h.listeners[event]++ }
func (h mapHost) PluginOptions(string) any { return nil }

func TestRegistry_ValueHosts(t *testing.T) {
	t.Run("comparable values attach once", func(t *testing.T) {
		n := 0
		host := countingHost{listeners: &n}
		t.Cleanup(func() { Detach(host) })

		p := NewWithDefaults(Options{}, Defaults{Stream: io.Discard})
		p(host)
		p(host)

		assert.Equal(t, 1, n)
		assert.True(t, Attached(host))
	})

	t.Run("incomparable values attach without panicking", func(t *testing.T) {
		host := mapHost{listeners: map[string]int{}}

		assert.NotPanics(t, func() {
			NewWithDefaults(Options{}, Defaults{Stream: io.Discard})(host)
		})
		assert.Equal(t, 1, host.listeners[composer.EventError])
		assert.False(t, Attached(host))
		assert.NotPanics(t, func() { Detach(host) })
	})

	t.Run("typed nil pointer is ignored", func(t *testing.T) {
		var host *composer.Composer
		assert.NotPanics(t, func() {
			NewWithDefaults(Options{}, Defaults{Stream: io.Discard})(host)
		})
		assert.False(t, Attached(host))
	})
}
