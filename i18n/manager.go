package i18n

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kdsmith18542/tmplkit/watcher"
)

// Manager owns the current message bundle of an application.
// It is safe for concurrent use and should be initialized once at application startup.
type Manager struct {
	sources Sources
	loader  *Loader
	logger  zerolog.Logger

	defaultLocale string

	mu       sync.RWMutex
	bundle   MessageBundle
	onReload []func(MessageBundle)
}

// Translator provides the messages for a single request.
type Translator struct {
	locale     string
	messages   MessageMap
	resolution Resolution
}

// NewManager creates a manager and loads the bundle from sources.
// Loading never fails; see Loader.Load.
//
// Example:
//
//	manager := i18n.NewManager(ctx, i18n.Dirs("./messages", "$APP_HOME/messages"),
//	    i18n.WithDefaultLocale("en_us"),
//	    i18n.WithLogger(logger),
//	)
func NewManager(ctx context.Context, sources Sources, opts ...Option) *Manager {
	loader := NewLoader(opts...)
	m := &Manager{
		sources:       sources,
		loader:        loader,
		logger:        loader.opts.logger,
		defaultLocale: loader.opts.defaultLocale,
	}
	m.Reload(ctx)
	return m
}

// NewManagerFromBundle creates a manager around an existing bundle.
// Reload on such a manager yields an empty bundle unless sources are given.
func NewManagerFromBundle(bundle MessageBundle, opts ...Option) *Manager {
	loader := NewLoader(opts...)
	return &Manager{
		loader:        loader,
		logger:        loader.opts.logger,
		defaultLocale: loader.opts.defaultLocale,
		bundle:        bundle,
	}
}

// DefaultLocale returns the manager's default locale key.
func (m *Manager) DefaultLocale() string {
	return m.defaultLocale
}

// Sources returns the sources the manager loads from.
func (m *Manager) Sources() Sources {
	return m.sources
}

// Reload loads the bundle again and swaps it in atomically.
// OnReload callbacks run after the swap.
func (m *Manager) Reload(ctx context.Context) MessageBundle {
	bundle := m.loader.Load(ctx, m.sources, m.defaultLocale)

	m.mu.Lock()
	m.bundle = bundle
	callbacks := append([]func(MessageBundle){}, m.onReload...)
	m.mu.Unlock()

	m.logger.Info().Strs("locales", bundle.Locales()).Msg("Message bundle loaded")

	for _, fn := range callbacks {
		fn(bundle)
	}
	return bundle
}

// OnReload registers fn to be called with every newly loaded bundle.
func (m *Manager) OnReload(fn func(MessageBundle)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReload = append(m.onReload, fn)
}

// Bundle returns the current bundle. It must not be modified.
func (m *Manager) Bundle() MessageBundle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bundle
}

// AvailableLocales returns all loaded locale keys, sorted.
func (m *Manager) AvailableLocales() []string {
	return m.Bundle().Locales()
}

// Messages derives the messages for a single locale.
func (m *Manager) Messages(locale string) MessageMap {
	return Derive(locale, m.Bundle(), m.defaultLocale)
}

// MessagesFromHeader derives the messages for an Accept-Language header.
func (m *Manager) MessagesFromHeader(header string) MessageMap {
	messages, _ := m.Resolve(context.Background(), header)
	return messages
}

// Resolve derives the messages for an Accept-Language header and reports
// how they were resolved.
func (m *Manager) Resolve(ctx context.Context, header string) (MessageMap, Resolution) {
	return Resolve(ctx, header, m.Bundle(), m.defaultLocale)
}

// Translator returns a translator for the current request's locale.
// The locale is taken from the "locale" query parameter, then the "locale"
// cookie, then the Accept-Language header; the first the bundle has
// messages for wins. Otherwise the default locale is used.
//
// Example:
//
//	translator := manager.Translator(r)
//	message := translator.T("welcome", nil)
func (m *Manager) Translator(r *http.Request) *Translator {
	ctx := r.Context()
	bundle := m.Bundle()

	explicit := []string{r.URL.Query().Get("locale")}
	if cookie, err := r.Cookie("locale"); err == nil {
		explicit = append(explicit, cookie.Value)
	}
	for _, candidate := range explicit {
		if candidate == "" {
			continue
		}
		if locale := matchLocale([]string{candidate}, bundle); locale != "" {
			messages, res := derive(locale, bundle, m.defaultLocale)
			if obs := getObserver(); obs != nil {
				obs.OnLocaleResolution(ctx, candidate, res.Locale, res.Fallback)
			}
			return &Translator{locale: res.Locale, messages: messages, resolution: res}
		}
	}

	messages, res := Resolve(ctx, r.Header.Get("Accept-Language"), bundle, m.defaultLocale)
	return &Translator{locale: res.Locale, messages: messages, resolution: res}
}

// Watch reloads the bundle whenever w reports a change to a message file.
// It blocks until ctx is done or the watcher is closed.
func (m *Manager) Watch(ctx context.Context, w *watcher.Watcher) {
	events := w.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if _, err := parserFor(m.loader.opts.parsers, filepath.Base(event.Path)); err != nil {
				continue
			}
			m.logger.Info().Str("op", string(event.Op)).Str("path", event.Path).Msg("Reloading message bundle")
			m.Reload(ctx)
		}
	}
}

// Locale returns the bundle key the translator's messages were resolved to.
func (t *Translator) Locale() string {
	return t.locale
}

// Messages returns the derived messages.
func (t *Translator) Messages() MessageMap {
	return t.messages
}

// Resolution reports how the translator's messages were derived.
func (t *Translator) Resolution() Resolution {
	return t.resolution
}

// T returns the message for key with %placeholders replaced from vars,
// or the key itself if no message is found.
//
// Example:
//
//	message := translator.T("welcome", map[string]any{
//	    "user": "Alex",
//	})
func (t *Translator) T(key string, vars map[string]any) string {
	message, ok := t.messages.Get(key)
	if !ok {
		return key
	}
	return Format(message, vars)
}

// Has reports whether key has a message.
func (t *Translator) Has(key string) bool {
	_, ok := t.messages.Get(strings.TrimSpace(key))
	return ok
}
