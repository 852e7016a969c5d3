package serx

import (
	"errors"
	"log/slog"

	"github.com/hengadev/serx/internal/monitoring"
)

type RegistryOption func(r *Registry) error

// WithLogger sets the logger receiving registration, resolution and per-call debug records.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		r.logger = logger
		return nil
	}
}

// WithObservabilityHook adds a hook. Several hooks are called in the order they were added.
func WithObservabilityHook(hook ObservabilityHook) RegistryOption {
	return func(r *Registry) error {
		if hook == nil {
			return errors.New("observability hook cannot be nil")
		}
		r.hooks = append(r.hooks, hook)
		return nil
	}
}

// WithMetricsCollector reports serx.* metrics of every call to collector.
func WithMetricsCollector(collector MetricsCollector) RegistryOption {
	return func(r *Registry) error {
		if collector == nil {
			return errors.New("metrics collector cannot be nil")
		}
		r.hooks = append(r.hooks, monitoring.NewMetricsObservabilityHook(collector))
		return nil
	}
}
