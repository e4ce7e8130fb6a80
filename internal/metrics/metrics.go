// SPDX-License-Identifier: MPL-2.0

// Package metrics records buildah invocation counts and latencies with
// Prometheus collectors and exports them in the node_exporter textfile format.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/microfaas/microfaas/internal/buildah"
)

const (
	// OutcomeSuccess labels invocations that exited zero.
	OutcomeSuccess = "success"
	// OutcomeFailure labels invocations that exited nonzero.
	OutcomeFailure = "failure"
	// OutcomeCanceled labels invocations cut short by their context.
	OutcomeCanceled = "canceled"
	// OutcomeKilled labels invocations ended by a signal.
	OutcomeKilled = "killed"
	// OutcomeNotStarted labels invocations whose process never ran.
	OutcomeNotStarted = "not_started"
)

// Recorder implements buildah.Observer on top of a Prometheus registry.
type Recorder struct {
	registry *prometheus.Registry
	commands *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ buildah.Observer = (*Recorder)(nil)

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "microfaas_buildah_commands_total",
			Help: "Number of buildah invocations by subcommand and outcome",
		}, []string{"subcommand", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "microfaas_buildah_command_duration_seconds",
			Help:    "Wall-clock duration of buildah invocations",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		}, []string{"subcommand"}),
	}

	for _, c := range []prometheus.Collector{r.commands, r.duration} {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return r, nil
}

// ObserveCommand records one finished invocation.
func (r *Recorder) ObserveCommand(subcommand string, elapsed time.Duration, err error) {
	r.commands.WithLabelValues(subcommand, Outcome(err)).Inc()
	r.duration.WithLabelValues(subcommand).Observe(elapsed.Seconds())
}

// Registry returns the registry holding the collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile atomically writes the current values to path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}

// Outcome classifies an invocation result for the outcome label.
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	var ce *buildah.CommandError
	if errors.As(err, &ce) && ce.ExitCode < 0 {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(ce.Cause, context.Canceled) || errors.Is(ce.Cause, context.DeadlineExceeded):
			return OutcomeCanceled
		case errors.As(ce.Cause, &exitErr):
			return OutcomeKilled
		default:
			return OutcomeNotStarted
		}
	}
	return OutcomeFailure
}
