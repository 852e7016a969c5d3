package serx

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry), scanner.Text())
		out = append(out, entry)
	}
	return out
}

func TestLoggingObservabilityHook(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(LoggerConfig{Output: &buf, Component: "test"})
	r, _ := newTestRegistry(t, WithObservabilityHook(NewLoggingObservabilityHook(logger)))
	foo := mustSerializer(t, r, "foo")

	_, err := foo.Save(context.Background(), Data{"test_field_a": "x", "bars": []any{Data{"number": 1}}})
	require.NoError(t, err)

	entries := decodeLines(t, &buf)
	require.NotEmpty(t, entries)

	callID, _ := entries[0]["call_id"].(string)
	assert.NotEmpty(t, callID)
	var completed bool
	for _, entry := range entries {
		assert.Equal(t, callID, entry["call_id"], "%v", entry)
		assert.Equal(t, "serx", entry["service"])
		if entry["msg"] == "save completed" {
			completed = true
			assert.Equal(t, "foo", entry["serializer"])
			assert.Equal(t, "foo", entry["model"])
		}
	}
	assert.True(t, completed)
}

func TestLoggingObservabilityHook_Error(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(LoggerConfig{Output: &buf})
	r, _ := newTestRegistry(t, WithObservabilityHook(NewLoggingObservabilityHook(logger)))
	bar := mustSerializer(t, r, "bar")

	_, err := bar.Save(context.Background(), Data{"foo": "not a mapping"})
	require.Error(t, err)

	var failed bool
	for _, entry := range decodeLines(t, &buf) {
		if entry["msg"] == "save failed" {
			failed = true
			assert.Contains(t, entry["error"], "'foo' must be a mapping")
		}
	}
	assert.True(t, failed)
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r, st := newTestRegistry(t, WithLogger(logger))
	foo := mustSerializer(t, r, "foo")

	inst := &FooModel{TestFieldA: "x"}
	require.NoError(t, st.CreateOrUpdate(context.Background(), inst))
	require.NoError(t, st.SetRelated(context.Background(), inst, "bars", []*BarModel{{Number: 1}}))
	buf.Reset()

	_, err := foo.Serialize(context.Background(), inst)
	require.NoError(t, err)

	var omitted bool
	for _, entry := range decodeLines(t, &buf) {
		assert.NotEmpty(t, entry["call_id"])
		if entry["msg"] == "related instance already visited, omitted" {
			omitted = true
			assert.Equal(t, "foo", entry["field"])
		}
	}
	assert.True(t, omitted)
}

// recordingHook keeps the operations it saw.
type recordingHook struct {
	NoOpObservabilityHook
	mu       sync.Mutex
	started  []string
	finished []time.Duration
	errs     []error
}

func (h *recordingHook) OnProcessStart(_ context.Context, operation string, _ map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started = append(h.started, operation)
}

func (h *recordingHook) OnProcessComplete(_ context.Context, _ string, d time.Duration, _ error, _ map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.finished = append(h.finished, d)
}

func (h *recordingHook) OnError(_ context.Context, _ string, err error, _ map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, err)
}

func TestCompositeHooks(t *testing.T) {
	hook := &recordingHook{}
	metrics := NewInMemoryMetricsCollector()
	r, _ := newTestRegistry(t, WithObservabilityHook(hook), WithMetricsCollector(metrics))
	foo := mustSerializer(t, r, "foo")
	ctx := context.Background()

	inst, err := foo.Save(ctx, Data{"test_field_a": "a"})
	require.NoError(t, err)
	_, err = foo.Update(ctx, inst, Data{"test_field_b": "b"})
	require.NoError(t, err)
	_, err = foo.Serialize(ctx, inst)
	require.NoError(t, err)
	_, err = foo.Update(ctx, inst, Data{"bars": 1})
	require.Error(t, err)

	assert.Equal(t, []string{OperationSave, OperationUpdate, OperationSerialize, OperationUpdate}, hook.started)
	assert.Len(t, hook.finished, 4)
	require.Len(t, hook.errs, 1)
	assert.ErrorIs(t, hook.errs[0], ErrShapeMismatch)

	assert.Equal(t, int64(4), metrics.CounterTotal(MetricProcessStarted))
	assert.Equal(t, int64(1), metrics.GetCounter(MetricProcessFailed, map[string]string{
		"operation":  OperationUpdate,
		"serializer": "foo",
		"status":     "error",
	}))
	assert.Len(t, metrics.GetTimings(MetricProcessDuration, map[string]string{
		"operation":  OperationUpdate,
		"serializer": "foo",
		"status":     "success",
	}), 1)
}
