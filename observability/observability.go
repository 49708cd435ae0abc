// Package observability provides OpenTelemetry integration for tmplkit packages.
//
// This package offers tracing and metrics hooks that the i18n, source, watcher
// and templates packages report to. Nothing is recorded until Init is called;
// the default observer is a no-op.
//
// Features:
//   - Distributed tracing with OpenTelemetry
//   - Counters and histograms for bundle loads, source reads and reloads
//   - Context-aware span events
//   - Zero overhead when not configured
//
// Example usage:
//
//	import "github.com/kdsmith18542/tmplkit/observability"
//
//	func main() {
//	    // Initialize observability (optional)
//	    observability.Init(observability.Config{
//	        ServiceName:    "my-app",
//	        ServiceVersion: "1.0.0",
//	        Environment:    "production",
//	        EnableTracing:  true,
//	        EnableMetrics:  true,
//	    })
//
//	    ctx, span := observability.StartSpan(context.Background(), "render_page")
//	    defer span.End()
//	}
package observability

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/kdsmith18542/tmplkit"

// Config holds the configuration for observability initialization
type Config struct {
	// ServiceName is the name of the service for tracing and metrics
	ServiceName string `toml:"service_name"`
	// ServiceVersion is the version of the service
	ServiceVersion string `toml:"service_version"`
	// Environment is the deployment environment (dev, staging, prod)
	Environment string `toml:"environment"`
	// EnableTracing enables distributed tracing
	EnableTracing bool `toml:"tracing"`
	// EnableMetrics enables metrics collection
	EnableMetrics bool `toml:"metrics"`
}

// Observer receives events from the tmplkit packages.
type Observer interface {
	// Message bundles
	OnBundleLoad(ctx context.Context, sources int, locales int, duration time.Duration)
	OnSourceSkipped(ctx context.Context, source string, err error)
	OnLocaleResolution(ctx context.Context, requested string, resolved string, fallbackUsed bool)

	// Message sources
	OnSourceOperation(ctx context.Context, operation string, sourceType string, duration time.Duration, success bool)

	// Watcher and templates
	OnFsChange(ctx context.Context, op string, path string)
	OnTemplateReload(ctx context.Context, templates int, duration time.Duration, err error)
}

var (
	mu             sync.RWMutex
	globalObserver Observer = &noopObserver{}
)

// Init initializes the observability system with the given configuration
func Init(config Config) error {
	if !config.EnableTracing && !config.EnableMetrics {
		// No observability enabled, keep the no-op observer
		return nil
	}

	if err := initOpenTelemetry(config); err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	observer, err := newOtelObserver(config, otel.Tracer(instrumentationName), otel.Meter(instrumentationName))
	if err != nil {
		return err
	}
	SetObserver(observer)

	return nil
}

// SetObserver sets a custom observer for observability events.
// Passing nil restores the no-op observer.
func SetObserver(observer Observer) {
	mu.Lock()
	defer mu.Unlock()
	if observer == nil {
		observer = &noopObserver{}
	}
	globalObserver = observer
}

// GetObserver returns the current observer instance
func GetObserver() Observer {
	mu.RLock()
	defer mu.RUnlock()
	return globalObserver
}

// StartSpan starts a new span for tracing
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// AddSpanEvent adds an event to the current span
func AddSpanEvent(ctx context.Context, name string, attributes map[string]string) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent(name, trace.WithAttributes(toAttributes(attributes)...))
	}
}

// SetSpanAttributes sets attributes on the current span
func SetSpanAttributes(ctx context.Context, attributes map[string]string) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(toAttributes(attributes)...)
	}
}

func toAttributes(attributes map[string]string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}

func durationMillis(d time.Duration) string {
	return strconv.FormatFloat(float64(d.Microseconds())/1000.0, 'f', 2, 64)
}

// noopObserver is a no-operation observer that does nothing
type noopObserver struct{}

func (n *noopObserver) OnBundleLoad(ctx context.Context, sources int, locales int, duration time.Duration) {
}
func (n *noopObserver) OnSourceSkipped(ctx context.Context, source string, err error) {}
func (n *noopObserver) OnLocaleResolution(ctx context.Context, requested string, resolved string, fallbackUsed bool) {
}
func (n *noopObserver) OnSourceOperation(ctx context.Context, operation string, sourceType string, duration time.Duration, success bool) {
}
func (n *noopObserver) OnFsChange(ctx context.Context, op string, path string) {}
func (n *noopObserver) OnTemplateReload(ctx context.Context, templates int, duration time.Duration, err error) {
}

// otelObserver implements Observer using OpenTelemetry
type otelObserver struct {
	config Config
	tracer trace.Tracer

	bundleLoads     metric.Int64Counter
	bundleLoadTime  metric.Float64Histogram
	sourcesSkipped  metric.Int64Counter
	resolutions     metric.Int64Counter
	sourceOps       metric.Float64Histogram
	fsChanges       metric.Int64Counter
	templateReloads metric.Int64Counter
}

func newOtelObserver(config Config, tracer trace.Tracer, meter metric.Meter) (*otelObserver, error) {
	o := &otelObserver{config: config, tracer: tracer}

	var err error
	if o.bundleLoads, err = meter.Int64Counter("tmplkit.i18n.bundle.loads",
		metric.WithDescription("Number of message bundle loads")); err != nil {
		return nil, err
	}
	if o.bundleLoadTime, err = meter.Float64Histogram("tmplkit.i18n.bundle.load.duration",
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if o.sourcesSkipped, err = meter.Int64Counter("tmplkit.i18n.sources.skipped"); err != nil {
		return nil, err
	}
	if o.resolutions, err = meter.Int64Counter("tmplkit.i18n.resolutions"); err != nil {
		return nil, err
	}
	if o.sourceOps, err = meter.Float64Histogram("tmplkit.source.operation.duration",
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if o.fsChanges, err = meter.Int64Counter("tmplkit.watcher.changes"); err != nil {
		return nil, err
	}
	if o.templateReloads, err = meter.Int64Counter("tmplkit.templates.reloads"); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *otelObserver) OnBundleLoad(ctx context.Context, sources int, locales int, duration time.Duration) {
	_, span := o.tracer.Start(ctx, "i18n.bundle.load", trace.WithAttributes(
		attribute.Int("sources", sources),
		attribute.Int("locales", locales),
	))
	span.End()

	o.bundleLoads.Add(ctx, 1)
	o.bundleLoadTime.Record(ctx, float64(duration.Microseconds())/1000.0)
}

func (o *otelObserver) OnSourceSkipped(ctx context.Context, source string, err error) {
	attrs := map[string]string{"source": source}
	if err != nil {
		attrs["error"] = err.Error()
	}
	AddSpanEvent(ctx, "i18n.source.skipped", attrs)
	o.sourcesSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

func (o *otelObserver) OnLocaleResolution(ctx context.Context, requested string, resolved string, fallbackUsed bool) {
	AddSpanEvent(ctx, "i18n.locale.resolved", map[string]string{
		"locale.requested": requested,
		"locale.resolved":  resolved,
		"fallback.used":    strconv.FormatBool(fallbackUsed),
	})
	o.resolutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("locale", resolved),
		attribute.Bool("fallback", fallbackUsed),
	))
}

func (o *otelObserver) OnSourceOperation(ctx context.Context, operation string, sourceType string, duration time.Duration, success bool) {
	AddSpanEvent(ctx, "source.operation", map[string]string{
		"operation":   operation,
		"source.type": sourceType,
		"success":     strconv.FormatBool(success),
		"duration.ms": durationMillis(duration),
	})
	o.sourceOps.Record(ctx, float64(duration.Microseconds())/1000.0, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("source.type", sourceType),
		attribute.Bool("success", success),
	))
}

func (o *otelObserver) OnFsChange(ctx context.Context, op string, path string) {
	AddSpanEvent(ctx, "watcher.change", map[string]string{
		"op":   op,
		"path": path,
	})
	o.fsChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func (o *otelObserver) OnTemplateReload(ctx context.Context, templates int, duration time.Duration, err error) {
	attrs := map[string]string{
		"templates":   strconv.Itoa(templates),
		"duration.ms": durationMillis(duration),
	}
	if err != nil {
		attrs["error"] = err.Error()
	}
	AddSpanEvent(ctx, "templates.reload", attrs)
	o.templateReloads.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", err == nil)))
}

// initOpenTelemetry initializes OpenTelemetry with the given configuration
func initOpenTelemetry(config Config) error {
	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
		),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	// Exporters are left to the host application; providers are registered
	// so that spans and instruments are live.
	if config.EnableTracing {
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
		)

		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	}

	if config.EnableMetrics {
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
		)

		otel.SetMeterProvider(mp)
	}

	return nil
}
