package i18n

import (
	"context"
	"sync"
	"time"

	"github.com/kdsmith18542/tmplkit/observability"
)

// Observer defines hooks for tracing and metrics in i18n operations
type Observer interface {
	OnBundleLoad(ctx context.Context, sources int, locales int, duration time.Duration)
	OnSourceSkipped(ctx context.Context, source string, err error)
	OnLocaleResolution(ctx context.Context, requested string, resolved string, fallbackUsed bool)
}

var (
	observerMu sync.RWMutex
	observer   Observer
)

// RegisterObserver sets the global observer for i18n events.
// Passing nil removes it.
func RegisterObserver(obs Observer) {
	observerMu.Lock()
	defer observerMu.Unlock()
	observer = obs
}

// getObserver returns the registered observer (or nil)
func getObserver() Observer {
	observerMu.RLock()
	defer observerMu.RUnlock()
	return observer
}

// i18nObserver implements Observer using the global observability system
type i18nObserver struct{}

func (i *i18nObserver) OnBundleLoad(ctx context.Context, sources int, locales int, duration time.Duration) {
	observability.GetObserver().OnBundleLoad(ctx, sources, locales, duration)
}

func (i *i18nObserver) OnSourceSkipped(ctx context.Context, source string, err error) {
	observability.GetObserver().OnSourceSkipped(ctx, source, err)
}

func (i *i18nObserver) OnLocaleResolution(ctx context.Context, requested string, resolved string, fallbackUsed bool) {
	observability.GetObserver().OnLocaleResolution(ctx, requested, resolved, fallbackUsed)
}

// EnableObservability enables observability integration for the i18n package
func EnableObservability() {
	RegisterObserver(&i18nObserver{})
}
