// Package templates loads HTML templates from prioritised directories into
// a single html/template set and renders them with localised messages.
//
// Templates are named by their slash-separated path relative to their
// directory, without extension: "pages/index.html" is "pages/index".
// When two directories hold the same name the later directory wins, so an
// application can override the templates of a library it embeds.
//
// Inside a template, messages are available through the msg function:
//
//	<h1>{{msg "home.title"}}</h1>
//	<p>{{msg "welcome" "user" .User.Name}}</p>
//	<html lang="{{locale}}">
package templates

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kdsmith18542/tmplkit/i18n"
	"github.com/kdsmith18542/tmplkit/observability"
	"github.com/kdsmith18542/tmplkit/watcher"
)

// ErrTemplateNotFound is returned by Render for an unknown template name.
var ErrTemplateNotFound = errors.New("templates: template not found")

// DefaultExtensions are the file extensions loaded as templates.
var DefaultExtensions = []string{".html", ".tmpl", ".gohtml"}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithExtensions replaces the template file extensions.
func WithExtensions(exts ...string) Option {
	return func(r *Registry) {
		r.exts = make(map[string]bool, len(exts))
		for _, ext := range exts {
			r.exts[strings.ToLower(ext)] = true
		}
	}
}

// WithFuncs adds functions to every template.
func WithFuncs(funcs template.FuncMap) Option {
	return func(r *Registry) {
		for name, fn := range funcs {
			r.funcs[name] = fn
		}
	}
}

// Registry holds the current template set.
type Registry struct {
	dirs   []string
	exts   map[string]bool
	funcs  template.FuncMap
	logger zerolog.Logger

	mu    sync.RWMutex
	set   *template.Template
	files map[string]string // template name -> file path
}

// New creates a registry for dirs, lowest priority first, and loads it.
// Directories that do not exist are skipped.
func New(dirs []string, opts ...Option) (*Registry, error) {
	r := &Registry{
		logger: zerolog.Nop(),
		funcs:  template.FuncMap{},
	}
	WithExtensions(DefaultExtensions...)(r)
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With().Str("sys", "templates").Logger()

	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", dir, err)
		}
		r.dirs = append(r.dirs, abs)
	}

	if err := r.Load(); err != nil {
		return nil, err
	}
	return r, nil
}

// baseFuncs declares the per-render functions so templates using them
// parse; Render binds the real implementations.
func (r *Registry) baseFuncs() template.FuncMap {
	funcs := template.FuncMap{
		"msg":    func(key string, args ...any) string { return key },
		"locale": func() string { return "" },
	}
	for name, fn := range r.funcs {
		funcs[name] = fn
	}
	return funcs
}

// Load parses every template again and swaps in the new set. On error the
// previous set stays in place.
func (r *Registry) Load() error {
	start := time.Now()

	files, err := r.resolve()
	if err == nil {
		var set *template.Template
		if set, err = r.parse(files); err == nil {
			r.mu.Lock()
			r.set = set
			r.files = files
			r.mu.Unlock()
		}
	}

	observability.GetObserver().OnTemplateReload(context.Background(), len(files), time.Since(start), err)
	if err != nil {
		return err
	}

	r.logger.Debug().Int("templates", len(files)).Dur("took", time.Since(start)).Msg("Loaded templates")
	return nil
}

// resolve maps template names to files, later directories overriding
// earlier ones.
func (r *Registry) resolve() (map[string]string, error) {
	files := make(map[string]string)
	for _, dir := range r.dirs {
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			r.logger.Debug().Str("dir", dir).Msg("Skipping missing template directory")
			continue
		}

		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != dir && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if !r.exts[ext] {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			name := filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
			if prev, ok := files[name]; ok {
				r.logger.Trace().Str("name", name).Str("file", path).Str("overrides", prev).Msg("Template overridden")
			}
			files[name] = path
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", dir, err)
		}
	}
	return files, nil
}

func (r *Registry) parse(files map[string]string) (*template.Template, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	set := template.New("").Funcs(r.baseFuncs())
	for _, name := range names {
		content, err := os.ReadFile(files[name])
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", name, err)
		}
		if _, err := set.New(name).Parse(string(content)); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", files[name], err)
		}
	}
	return set, nil
}

// Names returns the sorted template names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.files))
	for name := range r.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// File returns the file a template was loaded from.
func (r *Registry) File(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	path, ok := r.files[name]
	return path, ok
}

// Render executes the named template with data. The msg function looks
// keys up in messages; locale returns "".
func (r *Registry) Render(w io.Writer, name string, messages i18n.MessageMap, data any) error {
	return r.render(w, name, "", messages, data)
}

// RenderTranslated executes the named template with the translator's
// messages and locale.
func (r *Registry) RenderTranslated(w io.Writer, name string, tr *i18n.Translator, data any) error {
	return r.render(w, name, tr.Locale(), tr.Messages(), data)
}

func (r *Registry) render(w io.Writer, name, locale string, messages i18n.MessageMap, data any) error {
	r.mu.RLock()
	set := r.set
	r.mu.RUnlock()

	if set == nil || set.Lookup(name) == nil {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}

	// The shared set is never executed so it can be cloned per render.
	clone, err := set.Clone()
	if err != nil {
		return err
	}
	clone.Funcs(template.FuncMap{
		"msg":    msgFunc(messages),
		"locale": func() string { return locale },
	})
	return clone.ExecuteTemplate(w, name, data)
}

// msgFunc returns the msg template function for messages. Arguments after
// the key are either a single map of variables or name/value pairs.
func msgFunc(messages i18n.MessageMap) func(key string, args ...any) string {
	return func(key string, args ...any) string {
		message, ok := messages.Get(key)
		if !ok {
			return key
		}

		var vars map[string]any
		if len(args) == 1 {
			if m, ok := args[0].(map[string]any); ok {
				vars = m
			}
		}
		if vars == nil && len(args) > 1 {
			vars = make(map[string]any, len(args)/2)
			for i := 0; i+1 < len(args); i += 2 {
				vars[fmt.Sprint(args[i])] = args[i+1]
			}
		}
		return i18n.Format(message, vars)
	}
}

// Watch reloads the templates whenever w reports a change to a template
// file. It blocks until ctx is done or the watcher is closed.
func (r *Registry) Watch(ctx context.Context, w *watcher.Watcher) {
	events := w.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if !r.exts[strings.ToLower(filepath.Ext(event.Path))] {
				continue
			}
			if err := r.Load(); err != nil {
				r.logger.Error().Err(err).Str("path", event.Path).Msg("Reloading templates failed, keeping previous set")
				continue
			}
			r.logger.Info().Str("op", string(event.Op)).Str("path", event.Path).Msg("Templates reloaded")
		}
	}
}
