package serx

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hengadev/serx/internal/monitoring"
)

// Operation names reported to hooks and logs.
const (
	OperationSerialize = "serialize"
	OperationSave      = "save"
	OperationUpdate    = "update"
)

// Metric names recorded by the metrics hook.
const (
	MetricProcessStarted   = monitoring.MetricProcessStarted
	MetricProcessSucceeded = monitoring.MetricProcessSucceeded
	MetricProcessFailed    = monitoring.MetricProcessFailed
	MetricProcessDuration  = monitoring.MetricProcessDuration
	MetricErrors           = monitoring.MetricErrors
	MetricRelations        = monitoring.MetricRelations
	MetricGuardSkips       = monitoring.MetricGuardSkips
)

type (
	// MetricsCollector defines the interface for collecting and reporting metrics
	MetricsCollector = monitoring.MetricsCollector
	// ObservabilityHook receives the lifecycle of serialize and deserialize calls
	ObservabilityHook = monitoring.ObservabilityHook

	NoOpMetricsCollector     = monitoring.NoOpMetricsCollector
	NoOpObservabilityHook    = monitoring.NoOpObservabilityHook
	InMemoryMetricsCollector = monitoring.InMemoryMetricsCollector
	StructuredLogger         = monitoring.StructuredLogger
	LoggerConfig             = monitoring.LoggerConfig
)

func NewInMemoryMetricsCollector() *InMemoryMetricsCollector {
	return monitoring.NewInMemoryMetricsCollector()
}

func NewMetricsObservabilityHook(collector MetricsCollector) ObservabilityHook {
	return monitoring.NewMetricsObservabilityHook(collector)
}

func NewLoggingObservabilityHook(logger *StructuredLogger) ObservabilityHook {
	return monitoring.NewLoggingObservabilityHook(logger)
}

func NewCompositeObservabilityHook(hooks ...ObservabilityHook) ObservabilityHook {
	return monitoring.NewCompositeObservabilityHook(hooks...)
}

func NewStructuredLogger(config LoggerConfig) *StructuredLogger {
	return monitoring.NewStructuredLogger(config)
}

// CallID returns the id of the serializer call running in ctx, as seen by a Store.
func CallID(ctx context.Context) (string, bool) {
	return monitoring.CallID(ctx)
}

// call tracks one top-level Serialize, Save or Update.
type call struct {
	ctx       context.Context
	operation string
	start     time.Time
	metadata  map[string]any
	hook      ObservabilityHook
	logger    *slog.Logger
}

func (r *Registry) begin(ctx context.Context, operation string, s *Serializer) *call {
	id := uuid.NewString()
	c := &call{
		ctx:       monitoring.ContextWithCallID(ctx, id),
		operation: operation,
		start:     time.Now(),
		metadata: map[string]any{
			monitoring.KeyCallID:     id,
			monitoring.KeySerializer: s.opts.name,
			monitoring.KeyModel:      s.opts.model,
		},
		hook:   r.hook,
		logger: r.logger.With(monitoring.KeyCallID, id, monitoring.KeySerializer, s.opts.name),
	}
	c.hook.OnProcessStart(c.ctx, operation, c.metadata)
	return c
}

// relation reports a relation field walk, skipped when the recursion guard omitted it.
func (c *call) relation(field string, kind RelationKind, skipped bool) {
	c.hook.OnRelation(c.ctx, c.operation, field, kind.String(), skipped, c.metadata)
	if skipped {
		c.logger.Debug("related instance already visited, omitted", "field", field, "relation", kind.String())
	}
}

func (c *call) persisted(table string, id int64) {
	c.logger.Debug("instance persisted", "table", table, "id", id)
}

func (c *call) end(err error) {
	duration := time.Since(c.start)
	if err != nil {
		c.hook.OnError(c.ctx, c.operation, err, c.metadata)
		c.logger.Debug(c.operation+" failed", "error", err, "duration", duration)
	} else {
		c.logger.Debug(c.operation+" completed", "duration", duration)
	}
	c.hook.OnProcessComplete(c.ctx, c.operation, duration, err, c.metadata)
}
