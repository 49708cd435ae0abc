package observability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestObservability_Init(t *testing.T) {
	t.Cleanup(func() { SetObserver(nil) })

	require.NoError(t, Init(Config{}))
	_, isNoop := GetObserver().(*noopObserver)
	assert.True(t, isNoop, "disabled config should keep the no-op observer")

	require.NoError(t, Init(Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		EnableTracing:  true,
		EnableMetrics:  true,
	}))
	_, isOtel := GetObserver().(*otelObserver)
	assert.True(t, isOtel)
}

func TestObservability_SetAndGetObserver(t *testing.T) {
	t.Cleanup(func() { SetObserver(nil) })

	require.NotNil(t, GetObserver())

	custom := &recordingObserver{}
	SetObserver(custom)
	assert.Same(t, custom, GetObserver())

	SetObserver(nil)
	_, isNoop := GetObserver().(*noopObserver)
	assert.True(t, isNoop)
}

func TestObservability_SpanHelpers(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	ctx, span := tp.Tracer("test").Start(context.Background(), "parent")
	AddSpanEvent(ctx, "something.happened", map[string]string{"key": "value"})
	SetSpanAttributes(ctx, map[string]string{"locale": "nl_be"})
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "something.happened", ended[0].Events()[0].Name)

	var found bool
	for _, attr := range ended[0].Attributes() {
		if string(attr.Key) == "locale" && attr.Value.AsString() == "nl_be" {
			found = true
		}
	}
	assert.True(t, found, "span attribute should be set")

	// Helpers must be safe on a context without a recording span.
	AddSpanEvent(context.Background(), "ignored", nil)
	SetSpanAttributes(context.Background(), nil)
}

func TestObservability_OtelObserverRecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	obs, err := newOtelObserver(Config{ServiceName: "test"}, tp.Tracer("test"), mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	obs.OnBundleLoad(ctx, 2, 5, 3*time.Millisecond)
	obs.OnSourceSkipped(ctx, "/bad/path", errors.New("missing"))
	obs.OnLocaleResolution(ctx, "nl_be", "nl", true)
	obs.OnSourceOperation(ctx, "list", "dir", time.Millisecond, true)
	obs.OnFsChange(ctx, "add", "/tmp/x.html")
	obs.OnTemplateReload(ctx, 3, time.Millisecond, nil)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	for _, want := range []string{
		"tmplkit.i18n.bundle.loads",
		"tmplkit.i18n.bundle.load.duration",
		"tmplkit.i18n.sources.skipped",
		"tmplkit.i18n.resolutions",
		"tmplkit.source.operation.duration",
		"tmplkit.watcher.changes",
		"tmplkit.templates.reloads",
	} {
		assert.True(t, names[want], "metric %s should be recorded", want)
	}

	require.Len(t, recorder.Ended(), 1)
	assert.Equal(t, "i18n.bundle.load", recorder.Ended()[0].Name())
}

func TestObservability_NoopObserver(t *testing.T) {
	obs := &noopObserver{}
	ctx := context.Background()

	// None of these should panic.
	obs.OnBundleLoad(ctx, 0, 0, 0)
	obs.OnSourceSkipped(ctx, "", nil)
	obs.OnLocaleResolution(ctx, "", "", false)
	obs.OnSourceOperation(ctx, "", "", 0, false)
	obs.OnFsChange(ctx, "", "")
	obs.OnTemplateReload(ctx, 0, 0, nil)
}

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingObserver) record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingObserver) OnBundleLoad(ctx context.Context, sources int, locales int, duration time.Duration) {
	r.record("bundle_load")
}

func (r *recordingObserver) OnSourceSkipped(ctx context.Context, source string, err error) {
	r.record("source_skipped")
}

func (r *recordingObserver) OnLocaleResolution(ctx context.Context, requested string, resolved string, fallbackUsed bool) {
	r.record("locale_resolution")
}

func (r *recordingObserver) OnSourceOperation(ctx context.Context, operation string, sourceType string, duration time.Duration, success bool) {
	r.record("source_operation")
}

func (r *recordingObserver) OnFsChange(ctx context.Context, op string, path string) {
	r.record("fs_change")
}

func (r *recordingObserver) OnTemplateReload(ctx context.Context, templates int, duration time.Duration, err error) {
	r.record("template_reload")
}
