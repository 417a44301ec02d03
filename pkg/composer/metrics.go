// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package composer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status values for the task run counter.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds the Prometheus collectors updated by a Composer.
// A nil *Metrics records nothing.
type Metrics struct {
	TaskRuns     *prometheus.CounterVec
	TaskDuration *prometheus.HistogramVec
}

// NewMetrics creates the task collectors and registers them with reg.
// Panics if registration fails (following prometheus convention).
// A nil reg leaves the collectors unregistered, which is handy in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TaskRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "composer_task_runs_total",
				Help: "Total number of task runs",
			},
			[]string{"task", "status"},
		),
		TaskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "composer_task_duration_seconds",
				Help:    "Task run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"task"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.TaskRuns, m.TaskDuration)
	}
	return m
}

func (m *Metrics) record(task, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.TaskRuns.WithLabelValues(task, status).Inc()
	m.TaskDuration.WithLabelValues(task).Observe(d.Seconds())
}
