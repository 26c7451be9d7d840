package am

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/teranos/facts/errors"
	"github.com/teranos/facts/logger"
)

// DefaultDebounce collapses the burst of events editors emit on save.
const DefaultDebounce = 500 * time.Millisecond

// ChangeCallback is called with the path of a changed file.
type ChangeCallback func(path string) error

// FileWatcher calls back when one file is written or replaced. It watches
// the parent directory so editors that save by rename are still seen.
type FileWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu        sync.Mutex
	callbacks []ChangeCallback
	timer     *time.Timer
	done      chan struct{}
}

// NewFileWatcher watches path. The file need not exist yet, its directory
// must.
func NewFileWatcher(path string, debounce time.Duration) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", path)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", filepath.Dir(abs))
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &FileWatcher{
		path:     abs,
		watcher:  w,
		debounce: debounce,
		done:     make(chan struct{}),
	}, nil
}

// OnChange registers a callback.
func (fw *FileWatcher) OnChange(cb ChangeCallback) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.callbacks = append(fw.callbacks, cb)
}

// Start begins watching in the background.
func (fw *FileWatcher) Start() {
	go fw.loop()
}

// Stop ends watching. Pending debounced callbacks are dropped.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.mu.Unlock()
	close(fw.done)
	return fw.watcher.Close()
}

func (fw *FileWatcher) loop() {
	for {
		select {
		case <-fw.done:
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debugw("watched file changed", logger.FieldPath, fw.path, "op", event.Op.String())
			fw.schedule()
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("file watcher error", logger.FieldPath, fw.path, logger.FieldError, err)
		}
	}
}

func (fw *FileWatcher) schedule() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.debounce, fw.fire)
}

func (fw *FileWatcher) fire() {
	fw.mu.Lock()
	callbacks := make([]ChangeCallback, len(fw.callbacks))
	copy(callbacks, fw.callbacks)
	fw.mu.Unlock()

	for _, cb := range callbacks {
		if err := cb(fw.path); err != nil {
			// keep calling the rest
			logger.Warnw("file change callback failed", logger.FieldPath, fw.path, logger.FieldError, err)
		}
	}
}
