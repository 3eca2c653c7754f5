package reload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"pkt.systems/pslog"

	"github.com/mark3labs/docsets/internal/config"
	"github.com/mark3labs/docsets/internal/docset"
)

// DefaultDebounce coalesces bursts of file events from editors that write a
// file in several steps.
const DefaultDebounce = 250 * time.Millisecond

// LoadFunc produces a fresh configuration tree.
type LoadFunc func(ctx context.Context) (*config.Tree, error)

// Watcher reloads configuration and swaps the published snapshot. A failed
// reload leaves the previous snapshot in place.
type Watcher struct {
	holder   *Holder
	load     LoadFunc
	source   string
	path     string
	interval time.Duration
	debounce time.Duration
	logger   pslog.Logger
	metrics  *Metrics
	onReload func(*Snapshot)

	mu sync.Mutex
}

// Option configures a Watcher.
type Option func(*Watcher)

func WithLogger(l pslog.Logger) Option { return func(w *Watcher) { w.logger = l } }

func WithMetrics(m *Metrics) Option { return func(w *Watcher) { w.metrics = m } }

// WithFile watches path for changes. The containing directory is watched so
// rename-and-replace saves are seen.
func WithFile(path string) Option { return func(w *Watcher) { w.path = path } }

// WithInterval reloads on a fixed period, for sources without change events.
func WithInterval(d time.Duration) Option { return func(w *Watcher) { w.interval = d } }

func WithDebounce(d time.Duration) Option { return func(w *Watcher) { w.debounce = d } }

// WithOnReload is called after every successful swap.
func WithOnReload(fn func(*Snapshot)) Option { return func(w *Watcher) { w.onReload = fn } }

// NewWatcher returns a watcher publishing into holder. source names the
// configuration in logs and snapshots.
func NewWatcher(holder *Holder, source string, load LoadFunc, opts ...Option) *Watcher {
	w := &Watcher{
		holder:   holder,
		load:     load,
		source:   source,
		debounce: DefaultDebounce,
		logger:   pslog.NoopLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Reload loads, assembles and publishes. Calls are serialized.
func (w *Watcher) Reload(ctx context.Context) (*Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	tree, err := w.load(ctx)
	if err != nil {
		return nil, w.fail("load", err)
	}
	if !tree.Enabled {
		snap := w.holder.Store(nil, w.source)
		w.metrics.succeeded(0, float64(snap.LoadedAt.Unix()))
		w.logger.Info("reload.disabled", "source", w.source, "revision", snap.Revision)
		w.notify(snap)
		return snap, nil
	}
	_, reg, err := docset.Assemble(tree)
	if err != nil {
		return nil, w.fail("assemble", err)
	}
	snap := w.holder.Store(reg, w.source)
	w.metrics.succeeded(reg.Len(), float64(snap.LoadedAt.Unix()))
	w.logger.Info("reload.applied",
		"source", w.source,
		"revision", snap.Revision,
		"descriptors", reg.Len(),
	)
	w.notify(snap)
	return snap, nil
}

func (w *Watcher) fail(stage string, err error) error {
	w.metrics.failed()
	w.logger.Warn("reload.failed", "source", w.source, "stage", stage, "error", err)
	return fmt.Errorf("reload %s: %w", stage, err)
}

func (w *Watcher) notify(snap *Snapshot) {
	if w.onReload != nil {
		w.onReload(snap)
	}
}

// Run reloads on file changes and on the configured interval until ctx is
// done. It does not perform an initial load.
func (w *Watcher) Run(ctx context.Context) error {
	if w.path == "" && w.interval <= 0 {
		return errors.New("reload: nothing to watch (set a file or an interval)")
	}

	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	if w.path != "" {
		fw, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("reload: create watcher: %w", err)
		}
		defer fw.Close()
		dir := filepath.Dir(w.path)
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("reload: watch %q: %w", dir, err)
		}
		events, watchErrs = fw.Events, fw.Errors
		w.logger.Info("watch.started", "path", w.path)
	}

	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
		w.logger.Info("watch.polling", "interval", w.interval.String())
	}

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	target := filepath.Clean(w.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			w.logger.Debug("watch.event", "path", ev.Name, "op", ev.Op.String())
			debounce.Reset(w.debounce)
		case err, ok := <-watchErrs:
			if !ok {
				return nil
			}
			w.logger.Warn("watch.error", "error", err)
		case <-debounce.C:
			_, _ = w.Reload(ctx)
		case <-tick:
			_, _ = w.Reload(ctx)
		}
	}
}
