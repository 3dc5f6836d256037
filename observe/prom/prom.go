// Package prom provides a Prometheus-backed nursery.Observer.
package prom

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/NetPo4ki/go-nursery/nursery"
)

// Metrics records scope and task lifecycle events as Prometheus metrics.
// It implements nursery.Observer and nursery.RetryObserver.
type Metrics struct {
	// tasks
	activeTasks   prometheus.Gauge
	tasksStarted  prometheus.Counter
	tasksFinished prometheus.Counter
	tasksErrored  prometheus.Counter
	tasksCanceled prometheus.Counter
	tasksPanicked prometheus.Counter
	tasksRetried  prometheus.Counter
	taskDuration  prometheus.Histogram

	// scopes
	scopesCreated prometheus.Counter
	scopesStopped *prometheus.CounterVec
	closes        *prometheus.CounterVec
	closeWait     prometheus.Histogram
}

var (
	_ nursery.Observer      = (*Metrics)(nil)
	_ nursery.RetryObserver = (*Metrics)(nil)
)

// New builds the metrics under namespace and registers them with reg.
func New(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Subsystem: "nursery", Name: name, Help: help})
	}
	m := &Metrics{
		activeTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "nursery", Name: "active_tasks",
			Help: "Tasks currently running.",
		}),
		tasksStarted:  counter("tasks_started_total", "Tasks that started running."),
		tasksFinished: counter("tasks_finished_total", "Tasks that finished, successfully or not."),
		tasksErrored:  counter("tasks_failed_total", "Tasks that returned an error."),
		tasksCanceled: counter("tasks_canceled_total", "Tasks that failed with a cancellation."),
		tasksPanicked: counter("tasks_panicked_total", "Tasks that panicked."),
		tasksRetried:  counter("task_retries_total", "Failed attempts that were retried."),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "nursery", Name: "task_duration_seconds",
			Help:    "Task run time.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		scopesCreated: counter("scopes_created_total", "Scopes created."),
		scopesStopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "nursery", Name: "scopes_stopped_total",
			Help: "Scopes stopped, by reason.",
		}, []string{"reason"}),
		closes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "nursery", Name: "scopes_closed_total",
			Help: "Scopes closed, by outcome.",
		}, []string{"outcome"}),
		closeWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "nursery", Name: "close_wait_seconds",
			Help:    "Time Close spent waiting for running tasks.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	for _, c := range []prometheus.Collector{
		m.activeTasks, m.tasksStarted, m.tasksFinished, m.tasksErrored, m.tasksCanceled,
		m.tasksPanicked, m.tasksRetried, m.taskDuration, m.scopesCreated, m.scopesStopped,
		m.closes, m.closeWait,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ScopeCreated(_ context.Context) {
	m.scopesCreated.Inc()
}

// ScopeStopped counts a stop under reason "stop", "close" or "failure".
func (m *Metrics) ScopeStopped(_ context.Context, cause error) {
	m.scopesStopped.WithLabelValues(stopReason(cause)).Inc()
}

func (m *Metrics) ScopeClosed(_ context.Context, wait time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	m.closes.WithLabelValues(outcome).Inc()
	m.closeWait.Observe(wait.Seconds())
}

func (m *Metrics) TaskStarted(_ context.Context) {
	m.activeTasks.Inc()
	m.tasksStarted.Inc()
}

func (m *Metrics) TaskFinished(_ context.Context, dur time.Duration, err error, panicked bool) {
	m.activeTasks.Dec()
	m.tasksFinished.Inc()
	if err != nil {
		m.tasksErrored.Inc()
		if errors.Is(err, context.Canceled) {
			m.tasksCanceled.Inc()
		}
	}
	if panicked {
		m.tasksPanicked.Inc()
	}
	m.taskDuration.Observe(dur.Seconds())
}

func (m *Metrics) TaskRetried(_ context.Context, _ int, _ error) {
	m.tasksRetried.Inc()
}

func stopReason(cause error) string {
	switch {
	case errors.Is(cause, nursery.ErrStopped):
		return "stop"
	case errors.Is(cause, nursery.ErrClosed):
		return "close"
	default:
		return "failure"
	}
}
