package configkernel

import (
	"crypto/md5"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeKind distinguishes which watched file produced an event.
type ChangeKind string

const (
	ChangeKindConfig       ChangeKind = "config"
	ChangeKindCustomRouter ChangeKind = "custom-router"
)

// ChangeEvent is emitted at most once per debounce window per watched path,
// and only when the file's content actually changed (spec.md §4.2).
type ChangeEvent struct {
	Kind      ChangeKind
	Path      string
	Content   []byte
	Checksum  [16]byte
	Timestamp time.Time
	Err       error
}

// Watcher watches the config path and, if set, the custom-router path for
// content-changing writes. It is grounded on the teacher's
// pkg/policy/manager/watcher.go FileWatcher/Debouncer pair, generalized to
// watch two independent paths and to gate on MD5 content equality rather
// than raw fsnotify op type.
type Watcher struct {
	fs     *fsnotify.Watcher
	logger *slog.Logger

	debounceInterval  time.Duration
	writeSettleWindow time.Duration

	mu        sync.Mutex
	lastHash  map[string][16]byte
	pending   map[string]*time.Timer
	onChange  func(ChangeEvent)
	stopCh    chan struct{}
	closeOnce sync.Once
}

// NewWatcher creates a Watcher. debounceInterval and writeSettleWindow fall
// back to spec.md defaults (500ms / 100ms) when zero.
func NewWatcher(logger *slog.Logger, debounceInterval, writeSettleWindow time.Duration) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounceInterval <= 0 {
		debounceInterval = 500 * time.Millisecond
	}
	if writeSettleWindow <= 0 {
		writeSettleWindow = 100 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fs:                fsw,
		logger:            logger,
		debounceInterval:  debounceInterval,
		writeSettleWindow: writeSettleWindow,
		lastHash:          make(map[string][16]byte),
		pending:           make(map[string]*time.Timer),
		stopCh:            make(chan struct{}),
	}, nil
}

// Watch begins watching the given paths (empty entries are skipped) and
// invokes onChange for each debounced, content-changed event. It runs until
// Close is called.
func (w *Watcher) Watch(paths map[ChangeKind]string, onChange func(ChangeEvent)) error {
	w.onChange = onChange

	pathToKind := make(map[string]ChangeKind, len(paths))
	for kind, path := range paths {
		if path == "" {
			continue
		}
		if err := w.fs.Add(path); err != nil {
			return err
		}
		if content, err := os.ReadFile(path); err == nil {
			w.mu.Lock()
			w.lastHash[path] = md5.Sum(content)
			w.mu.Unlock()
		}
		pathToKind[path] = kind
	}

	go w.loop(pathToKind)
	return nil
}

func (w *Watcher) loop(pathToKind map[string]ChangeKind) {
	for {
		select {
		case <-w.stopCh:
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}
			kind, known := pathToKind[ev.Name]
			if !known {
				continue
			}
			w.scheduleDebounced(ev.Name, kind)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

// scheduleDebounced resets a per-path timer so bursts of writes within the
// debounce window collapse into a single emission using the latest content.
func (w *Watcher) scheduleDebounced(path string, kind ChangeKind) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}

	w.pending[path] = time.AfterFunc(w.debounceInterval, func() {
		w.emit(path, kind)
	})
}

// emit hashes the settled file content and, if it differs from the last
// emitted hash for this path, delivers a ChangeEvent.
func (w *Watcher) emit(path string, kind ChangeKind) {
	time.Sleep(w.writeSettleWindow)

	content, err := os.ReadFile(path)
	if err != nil {
		w.onChange(ChangeEvent{Kind: kind, Path: path, Timestamp: time.Now(), Err: err})
		return
	}

	sum := md5.Sum(content)

	w.mu.Lock()
	prev, seen := w.lastHash[path]
	unchanged := seen && prev == sum
	w.lastHash[path] = sum
	w.mu.Unlock()

	if unchanged {
		return
	}

	w.onChange(ChangeEvent{
		Kind:      kind,
		Path:      path,
		Content:   content,
		Checksum:  sum,
		Timestamp: time.Now(),
	})
}

// Close stops the watcher and releases its fsnotify handle.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.stopCh)
		w.mu.Lock()
		for _, t := range w.pending {
			t.Stop()
		}
		w.mu.Unlock()
	})
	return w.fs.Close()
}
