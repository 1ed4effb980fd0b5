package registry

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	applogger "LinkSight/pkg/logger"
)

// Watcher triggers a reload when model files change on disk. Bursts of
// filesystem events (a pair being copied in) collapse into one reload via a
// debounce timer. The reload callback is the application reload path, not the
// bare registry scan, so state keyed to a snapshot (the response cache) is
// invalidated together with the swap.
type Watcher struct {
	dir      string
	reload   func(context.Context) error
	l        *applogger.Logger
	debounce time.Duration
	fw       *fsnotify.Watcher
	done     chan struct{}
}

func NewWatcher(dir string, reload func(context.Context) error, l *applogger.Logger, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{dir: dir, reload: reload, l: l, debounce: debounce, fw: fw, done: make(chan struct{})}, nil
}

// Start begins watching the models directory tree. Returns immediately; the
// watch loop runs until Stop or ctx cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.dir); err != nil {
		return err
	}

	go func() {
		timer := time.NewTimer(w.debounce)
		if !timer.Stop() {
			<-timer.C
		}
		for {
			select {
			case ev, ok := <-w.fw.Events:
				if !ok {
					return
				}
				if !w.relevant(ev) {
					continue
				}
				// New subdirectories must be watched too.
				if ev.Op.Has(fsnotify.Create) {
					if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
						_ = w.fw.Add(ev.Name)
					}
				}
				timer.Reset(w.debounce)
			case err, ok := <-w.fw.Errors:
				if !ok {
					return
				}
				w.l.Warn("model watcher error", applogger.Error(err))
			case <-timer.C:
				w.l.Info("model files changed, reloading registry")
				if err := w.reload(ctx); err != nil {
					w.l.Error("watcher reload failed", applogger.Error(err))
				}
			case <-ctx.Done():
				return
			case <-w.done:
				return
			}
		}
	}()
	return nil
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op.Has(fsnotify.Create) {
		if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
			return true
		}
	}
	ext := strings.ToLower(filepath.Ext(ev.Name))
	return ext == metadataExt || ext == weightsExt
}

func (w *Watcher) addTree(root string) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		w.l.Warn("model watcher: directory does not exist, not watching", applogger.String("dir", root))
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fw.Add(path)
		}
		return nil
	})
}

// Stop ends the watch loop and releases the inotify handle.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fw.Close()
}
