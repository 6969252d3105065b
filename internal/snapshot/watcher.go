package snapshot

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yungbote/neurobridge-risk/internal/platform/logger"
)

const defaultDebounce = 2 * time.Second

// Reloader is what the watcher triggers; *Loader implements it.
type Reloader interface {
	Reload(ctx context.Context) (*Snapshot, error)
}

// Watcher reloads when a watched file changes (debounced) and, optionally, on a
// fixed refresh interval.
type Watcher struct {
	log      *logger.Logger
	reloader Reloader
	debounce time.Duration
	interval time.Duration

	fsw     *fsnotify.Watcher
	targets map[string]struct{}

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op
}

// NewWatcher watches the parent directories of paths so files replaced by rename
// are still seen. A zero interval disables periodic refresh.
func NewWatcher(log *logger.Logger, reloader Reloader, paths []string, debounce, interval time.Duration) (*Watcher, error) {
	if log == nil {
		log = logger.Nop()
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		log:      log.With("service", "SnapshotWatcher"),
		reloader: reloader,
		debounce: debounce,
		interval: interval,
		fsw:      fsw,
		targets:  map[string]struct{}{},
		pending:  map[string]fsnotify.Op{},
	}
	dirs := map[string]struct{}{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		w.targets[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			w.log.Warn("Failed to watch directory", "path", dir, "error", err)
		}
	}
	return w, nil
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	flush := time.NewTicker(w.debounce)
	defer flush.Stop()

	var refresh <-chan time.Time
	if w.interval > 0 {
		t := time.NewTicker(w.interval)
		defer t.Stop()
		refresh = t.C
	}

	w.log.Info("snapshot watcher started", "files", len(w.targets), "debounce", w.debounce.String(), "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("Watcher error", "error", err)
		case <-flush.C:
			if changed := w.drain(); len(changed) > 0 {
				w.log.Info("watched files changed, reloading", "files", changed)
				w.reload(ctx, "watch")
			}
		case <-refresh:
			w.reload(ctx, "interval")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	if _, ok := w.targets[abs]; !ok {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}
	w.pendingMu.Lock()
	w.pending[abs] |= event.Op
	w.pendingMu.Unlock()
}

func (w *Watcher) drain() []string {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if len(w.pending) == 0 {
		return nil
	}
	out := make([]string, 0, len(w.pending))
	for p := range w.pending {
		out = append(out, p)
	}
	w.pending = map[string]fsnotify.Op{}
	return out
}

func (w *Watcher) reload(ctx context.Context, trigger string) {
	if _, err := w.reloader.Reload(ctx); err != nil {
		w.log.Warn("triggered reload failed", "trigger", trigger, "error", err)
	}
}
