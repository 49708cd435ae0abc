package main

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kdsmith18542/tmplkit/i18n"
	"github.com/kdsmith18542/tmplkit/i18n/editor"
	"github.com/kdsmith18542/tmplkit/templates"
	"github.com/kdsmith18542/tmplkit/watcher"
)

// server is the HTTP front end of the serve command.
type server struct {
	manager  *i18n.Manager
	registry *templates.Registry
	watcher  *watcher.Watcher
	router   chi.Router
	logger   zerolog.Logger
}

// pageData is passed to every rendered template.
type pageData struct {
	Path  string
	Query map[string][]string
}

func newServer(ctx context.Context, a *app, watch bool) (*server, error) {
	sources, err := a.messageSources()
	if err != nil {
		return nil, err
	}

	s := &server{
		manager: i18n.NewManager(ctx, sources, a.loaderOptions()...),
		logger:  a.logger,
	}

	if len(a.cfg.Templates) > 0 {
		s.registry, err = templates.New(a.cfg.Templates, templates.WithLogger(a.logger))
		if err != nil {
			return nil, err
		}
	}

	if watch {
		if s.watcher, err = a.newWatcher(); err != nil {
			return nil, err
		}
		go s.manager.Watch(ctx, s.watcher)
		if s.registry != nil {
			go s.registry.Watch(ctx, s.watcher)
		}
		if err := s.watcher.Start(ctx); err != nil {
			s.watcher.Close()
			return nil, err
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(a.logger))
	r.Use(i18n.LocaleDetectorWithOptions(s.manager, i18n.LocaleDetectorOptions{
		SetCookie:       true,
		ContentLanguage: true,
	}))

	r.Get("/_messages", s.handleMessages)
	if a.cfg.EditorDir != "" {
		r.Mount("/_editor", editor.NewHandler(editor.Config{
			Dir:     a.cfg.EditorDir,
			Manager: s.manager,
			Logger:  a.logger,
		}))
	}
	r.Get("/*", s.handlePage)

	s.router = r
	return s, nil
}

func (s *server) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *server) handleMessages(w http.ResponseWriter, r *http.Request) {
	tr := i18n.MustTranslatorFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if err := writeJSON(w, map[string]any{
		"resolution": tr.Resolution(),
		"messages":   tr.Messages(),
	}); err != nil {
		s.logger.Debug().Err(err).Msg("failed to write messages")
	}
}

// templateName maps a request path to a template name: "/" is "index",
// "/docs/" is "docs/index". Names whose last element starts with "_" are
// partials and are not served.
func templateName(urlPath string) (string, bool) {
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" || strings.HasSuffix(urlPath, "/") {
		name = path.Join(name, "index")
	}
	if strings.HasPrefix(path.Base(name), "_") {
		return "", false
	}
	return name, true
}

func (s *server) handlePage(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		http.NotFound(w, r)
		return
	}
	name, ok := templateName(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	var buf bytes.Buffer
	tr := i18n.MustTranslatorFromContext(r.Context())
	err := s.registry.RenderTranslated(&buf, name, tr, pageData{Path: r.URL.Path, Query: r.URL.Query()})
	if errors.Is(err, templates.ErrTemplateNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("sys", "http").Logger()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Str("locale", i18n.LocaleFromContext(r.Context())).
				Str("request_id", middleware.GetReqID(r.Context())).
				Dur("took", time.Since(start)).
				Msg("")
		})
	}
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve templates rendered with the messages for each request's locale",
		Long: `serve renders the template named by the request path ("/" is "index")
with the messages derived for the request's locale. The locale comes from
the "locale" query parameter or cookie, then the Accept-Language header.

/_messages returns the derived messages as JSON. When editor_dir is set in
the config file, the message editor is available at /_editor/.

Message and template directories are watched and reloaded on change
unless --no-watch is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if cmd.Flags().Changed("addr") {
				a.cfg.Addr = addr
			}

			s, err := newServer(ctx, a, !noWatch)
			if err != nil {
				return err
			}
			defer s.Close()

			ln, err := net.Listen("tcp", a.cfg.Addr)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Handler:           s.router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			a.logger.Info().
				Str("addr", ln.Addr().String()).
				Strs("locales", s.manager.AvailableLocales()).
				Msg("Serving")

			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, localhost:8080)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload messages and templates on change")
	return cmd
}
