package assets

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/anima-rig/engine/core"
)

// DefaultDebounce is how long a file has to stay quiet before a change is
// reported. Exporters usually write an avatar in several bursts.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reports avatar files that changed on disk so the viewer can reload
// them. Bursts of writes to the same file are coalesced into one change.
type Watcher struct {
	fsnotify *fsnotify.Watcher
	debounce time.Duration

	mutex     sync.RWMutex
	files     map[string]struct{}
	recursive map[string]struct{}
	pending   map[string]time.Time
	isClosed  bool

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	changes   chan string
	errors    chan error
}

func NewWatcher(debounce time.Duration) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		fsnotify:  fsWatch,
		debounce:  debounce,
		files:     make(map[string]struct{}),
		recursive: make(map[string]struct{}),
		pending:   make(map[string]time.Time),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		changes:   make(chan string, 16),
		errors:    make(chan error, 4),
	}
	go w.start()
	return w, nil
}

// Changes delivers the paths of avatar files that were written.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Errors delivers watcher failures. Errors are dropped when nobody reads them.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Add watches an avatar file, or a directory and all its sub-directories.
func (w *Watcher) Add(name string) error {
	w.mutex.Lock()
	closed := w.isClosed
	w.mutex.Unlock()
	if closed {
		return core.ErrManagerClosed
	}

	name = filepath.Clean(name)
	fi, err := os.Stat(name)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return w.watchRecursive(name, false)
	}
	if err := w.fsnotify.Add(filepath.Dir(name)); err != nil {
		return err
	}
	w.mutex.Lock()
	w.files[name] = struct{}{}
	w.mutex.Unlock()
	return nil
}

// Remove stops watching a file or directory tree added before.
func (w *Watcher) Remove(name string) error {
	name = filepath.Clean(name)
	w.mutex.Lock()
	_, isFile := w.files[name]
	delete(w.files, name)
	w.mutex.Unlock()
	if isFile {
		return nil
	}
	return w.watchRecursive(name, true)
}

// Close stops the watcher and closes both channels. It is safe to call
// more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.mutex.Lock()
		w.isClosed = true
		w.mutex.Unlock()
		close(w.done)
		<-w.stopped
		err = w.fsnotify.Close()
		close(w.changes)
		close(w.errors)
	})
	return err
}

func (w *Watcher) start() {
	defer close(w.stopped)
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			w.handleEvent(e)

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)
			select {
			case w.errors <- err:
			default:
			}

		case now := <-ticker.C:
			for _, path := range w.due(now) {
				select {
				case w.changes <- path:
				case <-w.done:
					return
				}
			}

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleEvent(e fsnotify.Event) {
	name := filepath.Clean(e.Name)
	if e.Op&fsnotify.Create != 0 {
		if s, err := os.Stat(name); err == nil && s.IsDir() && w.isRecursive(filepath.Dir(name)) {
			if err := w.watchRecursive(name, false); err != nil {
				core.LogWarn("asset watcher: cannot watch %s: %s", name, err)
			}
			return
		}
	}
	if !isAvatarFile(name) || !w.tracked(name) {
		return
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()
	switch {
	case e.Op&(fsnotify.Create|fsnotify.Write) != 0:
		w.pending[name] = time.Now()
	case e.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		delete(w.pending, name)
	}
}

// due removes and returns the pending changes that have been quiet for the
// debounce interval.
func (w *Watcher) due(now time.Time) []string {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	var out []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			out = append(out, path)
			delete(w.pending, path)
		}
	}
	return out
}

func (w *Watcher) tracked(name string) bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	if _, ok := w.files[name]; ok {
		return true
	}
	_, ok := w.recursive[filepath.Dir(name)]
	return ok
}

func (w *Watcher) isRecursive(dir string) bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	_, ok := w.recursive[dir]
	return ok
}

// watchRecursive adds or removes every directory under path.
func (w *Watcher) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			return nil
		}
		walkPath = filepath.Clean(walkPath)
		w.mutex.Lock()
		if unWatch {
			delete(w.recursive, walkPath)
		} else {
			w.recursive[walkPath] = struct{}{}
		}
		w.mutex.Unlock()
		if unWatch {
			return w.fsnotify.Remove(walkPath)
		}
		return w.fsnotify.Add(walkPath)
	})
}

func isAvatarFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vrm", ".glb", ".gltf":
		return true
	default:
		return false
	}
}
