// Package editor provides a web-based interface for editing message bundles.
//
// The editor is an optional, embeddable HTTP handler. It lists every locale the
// Manager knows about, shows the flattened keys side by side and writes edits
// back as TOML files into a single writable directory, after which the Manager
// is reloaded so the change is live.
//
// Example:
//
//	h := editor.NewHandler(editor.Config{
//	    Dir:     "./locales",
//	    Manager: manager,
//	})
//
//	r := chi.NewRouter()
//	r.Mount("/editor", h)
//
//	// Access at http://localhost:8080/editor/
//
// Security Note:
// The editor should only be enabled in development environments or with proper
// authentication and authorization controls in production.
package editor

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kdsmith18542/tmplkit/i18n"
)

//go:embed editor.html
var editorHTML []byte

// ErrKeyConflict is returned when a flattened key would need to be both a
// message and a group of messages in the saved file.
var ErrKeyConflict = errors.New("editor: conflicting message keys")

// Config configures the editor.
type Config struct {
	Dir     string        // Writable directory that receives <locale>.toml files
	Manager *i18n.Manager // Manager that supplies locales and is reloaded after a save
	Logger  zerolog.Logger
}

// TranslationData is the table shown by the editor: every flattened key and
// the raw message each locale defines for it.
type TranslationData struct {
	Keys     []string                     `json:"keys"`
	Messages map[string]map[string]string `json:"messages"`
	Locales  []string                     `json:"locales"`
}

// MessagesResponse is the derived message map for one requested locale.
type MessagesResponse struct {
	Messages   i18n.MessageMap `json:"messages"`
	Resolution i18n.Resolution `json:"resolution"`
}

type handler struct {
	cfg    Config
	logger zerolog.Logger
}

// NewHandler returns an http.Handler for the editor.
//
// The returned handler serves:
//   - GET / - The editor UI
//   - GET /api/locales - Locales present in the bundle
//   - GET /api/messages?locale= - Derived messages for a locale
//   - GET /api/translations - Raw messages of every locale
//   - POST /api/save - Write messages and reload the manager
func NewHandler(cfg Config) http.Handler {
	h := &handler{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("sys", "editor").Logger(),
	}

	r := chi.NewRouter()
	r.Get("/", h.serveUI)
	r.Route("/api", func(r chi.Router) {
		r.Get("/locales", h.handleLocales)
		r.Get("/messages", h.handleMessages)
		r.Get("/translations", h.handleTranslations)
		r.Post("/save", h.handleSave)
	})
	return r
}

func (h *handler) serveUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(editorHTML); err != nil {
		h.logger.Debug().Err(err).Msg("failed to write editor page")
	}
}

func (h *handler) handleLocales(w http.ResponseWriter, r *http.Request) {
	locales := []string{}
	if h.cfg.Manager != nil {
		locales = append(locales, h.cfg.Manager.AvailableLocales()...)
	}
	h.writeJSON(w, http.StatusOK, locales)
}

func (h *handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Manager == nil {
		http.Error(w, "no message manager configured", http.StatusServiceUnavailable)
		return
	}

	// A bare locale is treated as a one-entry Accept-Language header so the
	// same fallback chain applies.
	header := strings.ReplaceAll(r.URL.Query().Get("locale"), "_", "-")
	messages, resolution := h.cfg.Manager.Resolve(r.Context(), header)
	h.writeJSON(w, http.StatusOK, MessagesResponse{Messages: messages, Resolution: resolution})
}

func (h *handler) handleTranslations(w http.ResponseWriter, r *http.Request) {
	data := TranslationData{
		Keys:     []string{},
		Messages: map[string]map[string]string{},
		Locales:  []string{},
	}
	if h.cfg.Manager == nil {
		h.writeJSON(w, http.StatusOK, data)
		return
	}

	bundle := h.cfg.Manager.Bundle()
	seen := map[string]bool{}
	for _, locale := range bundle.Locales() {
		flat := bundle[locale].Flatten()
		data.Locales = append(data.Locales, locale)
		data.Messages[locale] = flat
		for key := range flat {
			if !seen[key] {
				seen[key] = true
				data.Keys = append(data.Keys, key)
			}
		}
	}
	sort.Strings(data.Keys)

	h.writeJSON(w, http.StatusOK, data)
}

func (h *handler) handleSave(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Dir == "" {
		http.Error(w, "editor has no writable directory", http.StatusServiceUnavailable)
		return
	}

	var data TranslationData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		http.Error(w, "invalid JSON data", http.StatusBadRequest)
		return
	}

	// Validate everything before touching the filesystem.
	files := make(map[string]i18n.MessageMap, len(data.Locales))
	for _, locale := range data.Locales {
		normalized, ok := i18n.NormalizeLocale(locale)
		if !ok {
			http.Error(w, fmt.Sprintf("invalid locale %q", locale), http.StatusBadRequest)
			return
		}
		messages, exists := data.Messages[locale]
		if !exists {
			continue
		}
		nested, err := unflatten(messages)
		if err != nil {
			http.Error(w, fmt.Sprintf("%s: %v", locale, err), http.StatusBadRequest)
			return
		}
		files[normalized] = nested
	}

	saved := make([]string, 0, len(files))
	for locale, messages := range files {
		if err := h.saveLocaleFile(locale, messages); err != nil {
			h.logger.Error().Err(err).Str("locale", locale).Msg("failed to save messages")
			http.Error(w, fmt.Sprintf("failed to save %s", locale), http.StatusInternalServerError)
			return
		}
		saved = append(saved, locale)
	}
	sort.Strings(saved)

	if h.cfg.Manager != nil {
		h.cfg.Manager.Reload(r.Context())
	}

	h.logger.Info().Strs("locales", saved).Msg("saved messages")
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "saved", "locales": saved})
}

// saveLocaleFile writes a locale's messages to <dir>/<locale>.toml, replacing
// the file atomically.
func (h *handler) saveLocaleFile(locale string, messages i18n.MessageMap) error {
	if err := os.MkdirAll(h.cfg.Dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(h.cfg.Dir, "."+locale+"-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := fmt.Fprintf(tmp, "# %s messages\n\n", locale); err != nil {
		tmp.Close()
		return err
	}
	if err := toml.NewEncoder(tmp).Encode(map[string]any(messages)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(h.cfg.Dir, locale+".toml"))
}

// unflatten rebuilds a nested message map from dotted keys. Empty values are
// dropped so untranslated keys keep falling back to less specific locales.
func unflatten(flat map[string]string) (i18n.MessageMap, error) {
	keys := make([]string, 0, len(flat))
	for key := range flat {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := i18n.MessageMap{}
	for _, key := range keys {
		value := flat[key]
		if value == "" {
			continue
		}
		parts := strings.Split(key, ".")
		node := out
		for _, part := range parts[:len(parts)-1] {
			switch child := node[part].(type) {
			case nil:
				next := i18n.MessageMap{}
				node[part] = next
				node = next
			case i18n.MessageMap:
				node = child
			default:
				return nil, fmt.Errorf("%w: %s", ErrKeyConflict, key)
			}
		}
		last := parts[len(parts)-1]
		if _, exists := node[last]; exists {
			return nil, fmt.Errorf("%w: %s", ErrKeyConflict, key)
		}
		node[last] = value
	}
	return out, nil
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Debug().Err(err).Msg("failed to encode response")
	}
}
