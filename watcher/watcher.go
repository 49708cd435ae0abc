// Package watcher reports files being added, changed and removed in a set
// of directories, so templates and message bundles can be reloaded while
// an application runs.
//
// Watched directories are created when missing. Only the files directly
// inside each directory are reported. A created or written file is held
// back until its size and modification time have stopped changing, so a
// large file copied into place yields a single event once it is complete.
//
// Example:
//
//	w, err := watcher.New([]string{"./templates", "./messages"},
//	    watcher.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//
//	events := w.Events()
//	w.Start(ctx)
//	for event := range events {
//	    log.Info().Str("op", string(event.Op)).Str("path", event.Path).Msg("changed")
//	}
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/kdsmith18542/tmplkit/observability"
)

// Op is the kind of change reported for a file.
type Op string

const (
	// Add reports a file that did not exist before.
	Add Op = "add"
	// Change reports new content in a known file.
	Change Op = "change"
	// Unlink reports a known file being removed or renamed away.
	Unlink Op = "unlink"
)

// Event is a single file change.
type Event struct {
	Op   Op
	Path string // absolute
}

func (e Event) String() string {
	return string(e.Op) + " " + e.Path
}

const (
	// DefaultStabilityThreshold is how long a file must stay unchanged
	// before an add or change is reported.
	DefaultStabilityThreshold = 200 * time.Millisecond
	// DefaultPollInterval is how often pending files are checked.
	DefaultPollInterval = 50 * time.Millisecond

	subscriberBuffer = 64
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("watcher: closed")

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithStabilityThreshold sets how long a written file must stay unchanged
// before it is reported.
func WithStabilityThreshold(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.stability = d
		}
	}
}

// WithPollInterval sets how often pending files are checked.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.poll = d
		}
	}
}

// WithFilter limits events to paths for which keep returns true.
func WithFilter(keep func(path string) bool) Option {
	return func(w *Watcher) {
		w.filter = keep
	}
}

// pendingFile is a created or written file waiting to settle.
type pendingFile struct {
	op      Op
	size    int64
	modTime time.Time
	since   time.Time
}

// Watcher watches a fixed set of directories.
type Watcher struct {
	dirs      []string
	fsw       *fsnotify.Watcher
	logger    zerolog.Logger
	stability time.Duration
	poll      time.Duration
	filter    func(string) bool

	mu      sync.Mutex
	known   map[string]bool
	pending map[string]*pendingFile
	events  chan Event
	subs    []chan Event
	started bool

	errs      chan error
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a watcher for dirs. Each directory is made absolute and
// created if it does not exist. Files already present are remembered, so
// writing to them later reports Change rather than Add.
func New(dirs []string, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		logger:    zerolog.Nop(),
		stability: DefaultStabilityThreshold,
		poll:      DefaultPollInterval,
		known:     make(map[string]bool),
		pending:   make(map[string]*pendingFile),
		errs:      make(chan error, 16),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With().Str("sys", "watcher").Logger()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	w.fsw = fsw

	seen := make(map[string]bool, len(dirs))
	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("resolving %q: %w", dir, err)
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true

		if err := os.MkdirAll(abs, 0o755); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("creating %s: %w", abs, err)
		}
		if err := fsw.Add(abs); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watching %s: %w", abs, err)
		}
		if err := w.snapshot(abs); err != nil {
			fsw.Close()
			return nil, err
		}
		w.dirs = append(w.dirs, abs)
	}

	w.logger.Debug().Strs("dirs", w.dirs).Int("files", len(w.known)).Msg("Watching directories")
	return w, nil
}

func (w *Watcher) snapshot(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if w.keep(path) {
			w.known[path] = true
		}
	}
	return nil
}

// Dirs returns the absolute watched directories.
func (w *Watcher) Dirs() []string {
	return append([]string(nil), w.dirs...)
}

// Events returns the watcher's primary event channel. It is created on
// first use; events that happen before are not delivered to it.
// The channel is closed by Close.
func (w *Watcher) Events() <-chan Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.events == nil {
		w.events = w.subscribeLocked()
	}
	return w.events
}

// Subscribe returns a new channel receiving every subsequent event.
// The channel is closed by Close. A subscriber that falls behind by more
// than a small buffer misses events.
func (w *Watcher) Subscribe() <-chan Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.subscribeLocked()
}

func (w *Watcher) subscribeLocked() chan Event {
	ch := make(chan Event, subscriberBuffer)
	select {
	case <-w.done:
		close(ch)
	default:
		w.subs = append(w.subs, ch)
	}
	return ch
}

// Errors returns errors reported by the underlying file system watcher.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Start launches the event loop. It returns immediately; the loop runs
// until ctx is done or Close is called. Calling Start twice is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	select {
	case <-w.done:
		return ErrClosed
	default:
	}

	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Close stops the event loop, releases the fsnotify watcher and closes all
// event channels.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()

		w.mu.Lock()
		for _, ch := range w.subs {
			close(ch)
		}
		w.subs = nil
		w.mu.Unlock()
		close(w.errs)
	})
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("Watcher error")
			select {
			case w.errs <- err:
			default:
			}
		case now := <-ticker.C:
			w.settle(ctx, now)
		}
	}
}

func (w *Watcher) keep(path string) bool {
	return w.filter == nil || w.filter(path)
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !w.keep(path) {
		return
	}

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.mu.Lock()
		delete(w.pending, path)
		wasKnown := w.known[path]
		delete(w.known, path)
		w.mu.Unlock()

		if wasKnown {
			w.emit(ctx, Event{Op: Unlink, Path: path})
		}

	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return
		}

		w.mu.Lock()
		defer w.mu.Unlock()
		if p, ok := w.pending[path]; ok {
			p.size, p.modTime, p.since = info.Size(), info.ModTime(), time.Now()
			return
		}
		op := Add
		if w.known[path] {
			op = Change
		}
		w.pending[path] = &pendingFile{
			op:      op,
			size:    info.Size(),
			modTime: info.ModTime(),
			since:   time.Now(),
		}
	}
}

// settle reports pending files whose size and modification time have not
// changed for the stability threshold.
func (w *Watcher) settle(ctx context.Context, now time.Time) {
	var ready []Event

	w.mu.Lock()
	for path, p := range w.pending {
		info, err := os.Stat(path)
		if err != nil {
			// Removed before it settled; the remove event handles known files.
			delete(w.pending, path)
			continue
		}
		if info.Size() != p.size || !info.ModTime().Equal(p.modTime) {
			p.size, p.modTime, p.since = info.Size(), info.ModTime(), now
			continue
		}
		if now.Sub(p.since) < w.stability {
			continue
		}
		delete(w.pending, path)
		w.known[path] = true
		ready = append(ready, Event{Op: p.op, Path: path})
	}
	w.mu.Unlock()

	for _, ev := range ready {
		w.emit(ctx, ev)
	}
}

func (w *Watcher) emit(ctx context.Context, ev Event) {
	w.logger.Debug().Str("op", string(ev.Op)).Str("path", ev.Path).Msg("File changed")
	observability.GetObserver().OnFsChange(ctx, string(ev.Op), ev.Path)

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.subs {
		select {
		case ch <- ev:
		default:
			w.logger.Warn().Str("path", ev.Path).Msg("Dropping event for slow subscriber")
		}
	}
}
