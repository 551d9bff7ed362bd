package importer

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 500 * time.Millisecond

// Watcher observes a drop directory for CSV exports and ingests each
// file once it stops changing. Writes are debounced so a file copied
// in chunks imports only after the last write.
type Watcher struct {
	importer  *Importer
	channelID string
	source    string
	dir       string

	fs     *fsnotify.Watcher
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu       sync.Mutex
	debounce map[string]*time.Timer
}

// NewWatcher creates a watcher over dir. Start must be called before
// any imports happen.
func NewWatcher(imp *Importer, channelID, source, dir string) *Watcher {
	return &Watcher{
		importer:  imp,
		channelID: channelID,
		source:    source,
		dir:       dir,
		stopCh:    make(chan struct{}),
		debounce:  make(map[string]*time.Timer),
	}
}

// Start begins watching the drop directory.
func (w *Watcher) Start(ctx context.Context) error {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fs.Add(w.dir); err != nil {
		_ = fs.Close()
		return err
	}
	w.fs = fs

	w.wg.Add(1)
	go w.watchLoop(ctx)
	return nil
}

// Close stops the watcher and waits for the loop to exit.
func (w *Watcher) Close() error {
	close(w.stopCh)
	var err error
	if w.fs != nil {
		err = w.fs.Close()
	}
	w.wg.Wait()

	w.mu.Lock()
	for _, timer := range w.debounce {
		timer.Stop()
	}
	w.debounce = nil
	w.mu.Unlock()
	return err
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.importer.log.Debug("drop watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}
	if !isExportFile(event.Name) {
		return
	}
	w.scheduleIngest(ctx, event.Name)
}

func (w *Watcher) scheduleIngest(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce == nil {
		return
	}

	if timer := w.debounce[path]; timer != nil {
		timer.Stop()
	}
	w.debounce[path] = time.AfterFunc(debounceDelay, func() {
		select {
		case <-w.stopCh:
			return
		default:
		}
		if _, err := w.importer.IngestFile(ctx, w.channelID, w.source, path); err != nil {
			w.importer.log.Debug("drop import failed", "path", path, "error", err)
		}
	})
}

func isExportFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}
