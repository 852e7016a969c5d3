package monitoring

import (
	"context"
	"fmt"
	"time"
)

// Metadata keys set by serializers on every hook call.
const (
	KeyCallID     = "call_id"
	KeySerializer = "serializer"
	KeyModel      = "model"
)

// ObservabilityHook receives the lifecycle of serialize and deserialize calls.
type ObservabilityHook interface {
	// Called before a top-level call starts
	OnProcessStart(ctx context.Context, operation string, metadata map[string]any)

	// Called after a top-level call completes (success or failure)
	OnProcessComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any)

	// Called when a call fails
	OnError(ctx context.Context, operation string, err error, metadata map[string]any)

	// Called for every relation field walked, skipped reports a recursion guard hit
	OnRelation(ctx context.Context, operation string, field string, kind string, skipped bool, metadata map[string]any)
}

// NoOpObservabilityHook is a no-op implementation of ObservabilityHook
type NoOpObservabilityHook struct{}

func (NoOpObservabilityHook) OnProcessStart(context.Context, string, map[string]any) {}
func (NoOpObservabilityHook) OnProcessComplete(context.Context, string, time.Duration, error, map[string]any) {
}
func (NoOpObservabilityHook) OnError(context.Context, string, error, map[string]any) {}
func (NoOpObservabilityHook) OnRelation(context.Context, string, string, string, bool, map[string]any) {
}

// LoggingObservabilityHook writes every event to a StructuredLogger.
type LoggingObservabilityHook struct {
	logger *StructuredLogger
}

func NewLoggingObservabilityHook(logger *StructuredLogger) *LoggingObservabilityHook {
	if logger == nil {
		logger = NewProductionLogger("serx")
	}
	return &LoggingObservabilityHook{logger: logger}
}

func (l *LoggingObservabilityHook) OnProcessStart(ctx context.Context, operation string, metadata map[string]any) {
	l.logger.WithContext(ctx).WithFields(metadata).Debug("%s started", operation)
}

func (l *LoggingObservabilityHook) OnProcessComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
	l.logger.LogProcess(ctx, operation, duration, err, metadata)
}

func (l *LoggingObservabilityHook) OnError(ctx context.Context, operation string, err error, metadata map[string]any) {
	l.logger.WithContext(ctx).WithFields(metadata).Error("%s error: %v", operation, err)
}

func (l *LoggingObservabilityHook) OnRelation(ctx context.Context, operation string, field string, kind string, skipped bool, metadata map[string]any) {
	logger := l.logger.WithContext(ctx).WithFields(metadata).WithFields(map[string]any{
		"field":    field,
		"relation": kind,
	})
	if skipped {
		logger.Debug("%s: '%s' already visited, omitted", operation, field)
		return
	}
	logger.Debug("%s: walking '%s'", operation, field)
}

// MetricsObservabilityHook collects metrics for operations
type MetricsObservabilityHook struct {
	collector MetricsCollector
}

func NewMetricsObservabilityHook(collector MetricsCollector) *MetricsObservabilityHook {
	if collector == nil {
		collector = NoOpMetricsCollector{}
	}
	return &MetricsObservabilityHook{collector: collector}
}

func (m *MetricsObservabilityHook) OnProcessStart(ctx context.Context, operation string, metadata map[string]any) {
	m.collector.IncrementCounter(MetricProcessStarted, processTags(operation, metadata))
}

func (m *MetricsObservabilityHook) OnProcessComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
	tags := processTags(operation, metadata)
	if err != nil {
		tags["status"] = "error"
		m.collector.IncrementCounter(MetricProcessFailed, tags)
	} else {
		tags["status"] = "success"
		m.collector.IncrementCounter(MetricProcessSucceeded, tags)
	}
	m.collector.RecordTiming(MetricProcessDuration, duration, tags)
}

func (m *MetricsObservabilityHook) OnError(ctx context.Context, operation string, err error, metadata map[string]any) {
	tags := processTags(operation, metadata)
	tags["error"] = fmt.Sprintf("%T", err)
	m.collector.IncrementCounter(MetricErrors, tags)
}

func (m *MetricsObservabilityHook) OnRelation(ctx context.Context, operation string, field string, kind string, skipped bool, metadata map[string]any) {
	tags := processTags(operation, metadata)
	tags["relation"] = kind
	if skipped {
		m.collector.IncrementCounter(MetricGuardSkips, tags)
		return
	}
	m.collector.IncrementCounter(MetricRelations, tags)
}

// processTags keeps the low-cardinality metadata: the call id is left out.
func processTags(operation string, metadata map[string]any) map[string]string {
	tags := map[string]string{"operation": operation}
	if s, ok := metadata[KeySerializer].(string); ok {
		tags[KeySerializer] = s
	}
	return tags
}

// CompositeObservabilityHook fans every event out to several hooks.
type CompositeObservabilityHook struct {
	hooks []ObservabilityHook
}

func NewCompositeObservabilityHook(hooks ...ObservabilityHook) *CompositeObservabilityHook {
	return &CompositeObservabilityHook{hooks: hooks}
}

func (c *CompositeObservabilityHook) OnProcessStart(ctx context.Context, operation string, metadata map[string]any) {
	for _, hook := range c.hooks {
		hook.OnProcessStart(ctx, operation, metadata)
	}
}

func (c *CompositeObservabilityHook) OnProcessComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
	for _, hook := range c.hooks {
		hook.OnProcessComplete(ctx, operation, duration, err, metadata)
	}
}

func (c *CompositeObservabilityHook) OnError(ctx context.Context, operation string, err error, metadata map[string]any) {
	for _, hook := range c.hooks {
		hook.OnError(ctx, operation, err, metadata)
	}
}

func (c *CompositeObservabilityHook) OnRelation(ctx context.Context, operation string, field string, kind string, skipped bool, metadata map[string]any) {
	for _, hook := range c.hooks {
		hook.OnRelation(ctx, operation, field, kind, skipped, metadata)
	}
}
