// Package watch implements directory ingestion: notice new video files
// under a directory, wait for them to stop growing, and hand each one off
// exactly once, remembering what has already been handed off across
// restarts.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yowidin/ocrsuite/internal/servicelog"
)

// ErrNotDirectory is returned when the watched path is not a directory.
var ErrNotDirectory = errors.New("watch: path is not a directory")

// videoExtensions is the set of file extensions considered ingestible.
var videoExtensions = map[string]struct{}{
	".mp4": {}, ".mkv": {}, ".mov": {}, ".avi": {}, ".webm": {}, ".mpg": {}, ".ts": {},
}

// ReadyFunc is invoked once per file that has settled (stopped growing for
// settleDelay) and has not previously been marked seen. A nil error return
// marks the file seen in the history; a non-nil error leaves it unmarked, so
// it is considered again on its next create/write event or on the startup
// scan of a later Run.
type ReadyFunc func(path string) error

// Watcher watches a single directory for new or growing video files.
type Watcher struct {
	logger      servicelog.Logger
	history     *History
	folder      string
	settleDelay time.Duration
	onReady     ReadyFunc

	mu      sync.Mutex
	pending map[string]*pendingFile
}

type pendingFile struct {
	timer     *time.Timer
	lastSize  int64
}

// New builds a Watcher over folder, using history to skip files already
// ingested and to remember newly ingested ones.
func New(logger servicelog.Logger, history *History, folder string, settleDelay time.Duration, onReady ReadyFunc) *Watcher {
	return &Watcher{
		logger:      logger,
		history:     history,
		folder:      folder,
		settleDelay: settleDelay,
		onReady:     onReady,
		pending:     make(map[string]*pendingFile),
	}
}

// Run watches until ctx is cancelled, scanning the folder once at startup so
// files already present before the watcher started are picked up too.
func (w *Watcher) Run(ctx context.Context) error {
	absPath, err := filepath.Abs(w.folder)
	if err != nil {
		return err
	}
	stat, err := os.Stat(absPath)
	if err != nil {
		return err
	}
	if !stat.IsDir() {
		return ErrNotDirectory
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(absPath); err != nil {
		return err
	}

	w.scan(absPath)

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed")
			}
			w.handleEvent(event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed")
			}
			w.logger.Error("watcher error", servicelog.String("folder", absPath), servicelog.Error(err))
		}
	}
}

func (w *Watcher) scan(absPath string) {
	entries, err := os.ReadDir(absPath)
	if err != nil {
		w.logger.Error("failed to scan folder", servicelog.String("folder", absPath), servicelog.Error(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.considerFile(filepath.Join(absPath, entry.Name()))
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	stat, err := os.Stat(event.Name)
	if err != nil || stat.IsDir() {
		return
	}
	w.considerFile(event.Name)
}

func (w *Watcher) considerFile(path string) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := videoExtensions[ext]; !ok {
		return
	}
	if w.history.Seen(path) {
		return
	}

	stat, err := os.Stat(path)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if existing, ok := w.pending[path]; ok {
		existing.lastSize = stat.Size()
		existing.timer.Reset(w.settleDelay)
		return
	}

	pf := &pendingFile{lastSize: stat.Size()}
	pf.timer = time.AfterFunc(w.settleDelay, func() { w.checkSettled(path) })
	w.pending[path] = pf
}

// checkSettled fires settleDelay after the most recent write event for
// path. If the file hasn't grown since then, it's considered complete.
func (w *Watcher) checkSettled(path string) {
	w.mu.Lock()
	pf, ok := w.pending[path]
	if !ok {
		w.mu.Unlock()
		return
	}
	stat, err := os.Stat(path)
	if err != nil {
		delete(w.pending, path)
		w.mu.Unlock()
		return
	}
	if stat.Size() != pf.lastSize {
		pf.lastSize = stat.Size()
		pf.timer.Reset(w.settleDelay)
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	w.mu.Unlock()

	w.logger.Info("file settled", servicelog.String("file", path))
	if err := w.onReady(path); err != nil {
		w.logger.Error("ingestion failed, will retry on next scan", servicelog.String("file", path), servicelog.Error(err))
		return
	}
	if err := w.history.MarkSeen(path, time.Now()); err != nil {
		w.logger.Error("failed to record ingestion history", servicelog.String("file", path), servicelog.Error(err))
	}
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, pf := range w.pending {
		pf.timer.Stop()
		delete(w.pending, path)
	}
}
