package i18n

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kdsmith18542/tmplkit/source"
)

// Location is one message source in a Sources list.
type Location struct {
	// Name identifies the location in logs.
	Name string

	open  func(ctx context.Context) (src source.Source, owned bool, err error)
	local func() (string, bool)
}

// Sources is an ordered list of message locations. Later locations take
// precedence over earlier ones.
type Sources []Location

// Dirs returns Sources for the given locations, in order. Each location is
// a directory path ("~" and environment variables are expanded) or a
// remote URI understood by source.Parse (s3://, gs://, azblob://).
func Dirs(locations ...string) Sources {
	sources := make(Sources, 0, len(locations))
	for _, loc := range locations {
		loc := loc
		sources = append(sources, Location{
			Name: loc,
			open: func(ctx context.Context) (source.Source, bool, error) {
				src, err := source.Parse(ctx, loc)
				return src, true, err
			},
			local: func() (string, bool) {
				if strings.Contains(loc, "://") {
					return "", false
				}
				expanded, err := source.ExpandPath(loc)
				if err != nil {
					return "", false
				}
				abs, err := filepath.Abs(expanded)
				if err != nil {
					return "", false
				}
				return abs, true
			},
		})
	}
	return sources
}

// DirMap returns Sources for a named set of locations. Names are applied in
// sorted order, so precedence does not depend on map iteration.
func DirMap(locations map[string]string) Sources {
	names := make([]string, 0, len(locations))
	for name := range locations {
		names = append(names, name)
	}
	sort.Strings(names)

	ordered := make([]string, 0, len(names))
	for _, name := range names {
		ordered = append(ordered, locations[name])
	}
	return Dirs(ordered...)
}

// SourcesOf returns Sources for already constructed backends. The loader
// does not close them.
func SourcesOf(srcs ...source.Source) Sources {
	sources := make(Sources, 0, len(srcs))
	for _, src := range srcs {
		src := src
		sources = append(sources, Location{
			Name: src.Name(),
			open: func(context.Context) (source.Source, bool, error) {
				return src, false, nil
			},
			local: func() (string, bool) {
				return source.LocalPath(src)
			},
		})
	}
	return sources
}

// LocalDirs returns the absolute local directories among the sources, for
// attaching a file watcher. Remote sources are left out.
func (s Sources) LocalDirs() []string {
	var dirs []string
	for _, loc := range s {
		if loc.local == nil {
			continue
		}
		if dir, ok := loc.local(); ok {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// Option configures a Loader or Manager.
type Option func(*options)

type options struct {
	logger        zerolog.Logger
	parsers       map[string]Parser
	concurrency   int
	defaultLocale string
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:        zerolog.Nop(),
		parsers:       defaultParsers(),
		concurrency:   4,
		defaultLocale: DefaultLocale,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With().Str("sys", "i18n").Logger()
	return o
}

// WithLogger sets the logger used to report skipped sources and files.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithParser registers a parser for a file extension such as ".json".
func WithParser(ext string, parser Parser) Option {
	return func(o *options) {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		o.parsers[ext] = parser
	}
}

// WithConcurrency bounds how many sources are read at once.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithDefaultLocale sets the locale that locale-less files are stored under
// and that derivation falls back to.
func WithDefaultLocale(locale string) Option {
	return func(o *options) {
		if locale != "" {
			o.defaultLocale = normalizeKey(locale)
		}
	}
}

// Loader reads message bundles from Sources.
type Loader struct {
	opts *options
}

// NewLoader creates a loader.
func NewLoader(opts ...Option) *Loader {
	return &Loader{opts: newOptions(opts)}
}

// LoadMessageBundles loads and merges all sources. See Loader.Load.
func LoadMessageBundles(ctx context.Context, sources Sources, defaultLocale string, opts ...Option) MessageBundle {
	return NewLoader(opts...).Load(ctx, sources, defaultLocale)
}

// localeFile is one parsed message file.
type localeFile struct {
	locale   string
	messages MessageMap
}

// Load reads every source and deep-merges the files into a new bundle.
//
// Sources are read concurrently but merged in order, so for colliding
// keys a later source wins. Within a source, files are merged in name
// order. A file is stored under the locale in its name, or under
// defaultLocale (DefaultLocale when empty) when the name has none.
//
// Load never fails: unreadable sources and files are logged, reported to
// the observer and skipped. With no usable source the bundle is empty.
func (l *Loader) Load(ctx context.Context, sources Sources, defaultLocale string) MessageBundle {
	start := time.Now()
	if defaultLocale == "" {
		defaultLocale = DefaultLocale
	}
	defaultLocale = normalizeKey(defaultLocale)

	contributions := make([][]localeFile, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.concurrency)
	for i, loc := range sources {
		i, loc := i, loc
		g.Go(func() error {
			files, err := l.readLocation(gctx, loc, defaultLocale)
			if err != nil {
				l.skipSource(gctx, loc.Name, err)
				return nil
			}
			contributions[i] = files
			return nil
		})
	}
	_ = g.Wait()

	bundle := make(MessageBundle)
	for _, files := range contributions {
		for _, f := range files {
			bundle.merge(f.locale, f.messages)
		}
	}

	l.opts.logger.Debug().
		Int("sources", len(sources)).
		Int("locales", len(bundle)).
		Dur("took", time.Since(start)).
		Msg("Loaded message bundles")

	if obs := getObserver(); obs != nil {
		obs.OnBundleLoad(ctx, len(sources), len(bundle), time.Since(start))
	}
	return bundle
}

func (l *Loader) readLocation(ctx context.Context, loc Location, defaultLocale string) ([]localeFile, error) {
	if loc.open == nil {
		return nil, errors.New("location has no source")
	}

	src, owned, err := loc.open(ctx)
	if err != nil {
		return nil, err
	}
	if owned {
		defer src.Close()
	}

	names, err := src.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	files := make([]localeFile, 0, len(names))
	for _, name := range names {
		parse, err := parserFor(l.opts.parsers, name)
		if err != nil {
			l.opts.logger.Trace().Str("source", src.Name()).Str("file", name).Msg("Ignoring file with unknown extension")
			continue
		}

		data, err := source.ReadAll(ctx, src, name)
		if err != nil {
			l.opts.logger.Warn().Err(err).Str("source", src.Name()).Str("file", name).Msg("Skipping unreadable message file")
			continue
		}

		messages, err := parse(data)
		if err != nil {
			l.opts.logger.Warn().Err(err).Str("source", src.Name()).Str("file", name).Msg("Skipping malformed message file")
			continue
		}

		locale, ok := localeFromFilename(name)
		if !ok {
			locale = defaultLocale
		}
		files = append(files, localeFile{locale: locale, messages: messages})
	}
	return files, nil
}

func (l *Loader) skipSource(ctx context.Context, name string, err error) {
	l.opts.logger.Warn().Err(err).Str("source", name).Msg("Skipping message source")
	if obs := getObserver(); obs != nil {
		obs.OnSourceSkipped(ctx, name, err)
	}
}
