package source

import (
	"context"
	"io"
	"time"

	"github.com/kdsmith18542/tmplkit/observability"
)

// ObservableSource wraps a Source and reports every operation to the
// registered observability observer.
type ObservableSource struct {
	source     Source
	sourceType string
}

// NewObservable creates an observable wrapper. sourceType labels the
// backend ("dir", "s3", ...) in metrics.
func NewObservable(source Source, sourceType string) *ObservableSource {
	return &ObservableSource{
		source:     source,
		sourceType: sourceType,
	}
}

// Unwrap returns the wrapped source.
func (o *ObservableSource) Unwrap() Source {
	return o.source
}

// Name returns the wrapped source's name.
func (o *ObservableSource) Name() string {
	return o.source.Name()
}

// List lists the wrapped source with observability
func (o *ObservableSource) List(ctx context.Context) ([]string, error) {
	start := time.Now()

	names, err := o.source.List(ctx)

	observability.GetObserver().OnSourceOperation(ctx, "list", o.sourceType, time.Since(start), err == nil)
	return names, err
}

// Open opens an entry of the wrapped source with observability
func (o *ObservableSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	start := time.Now()

	rc, err := o.source.Open(ctx, name)

	observability.GetObserver().OnSourceOperation(ctx, "open", o.sourceType, time.Since(start), err == nil)
	return rc, err
}

// Close closes the wrapped source.
func (o *ObservableSource) Close() error {
	return o.source.Close()
}
