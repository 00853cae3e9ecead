// Package watch turns filesystem notifications into debounced rebuild
// requests for a persistent build.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/Iron-Ham/packstream/internal/logging"
)

// DefaultAggregateTimeout is used when Options.AggregateTimeout is zero.
const DefaultAggregateTimeout = 200 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// AggregateTimeout is how long the watcher waits after the last event
	// before reporting. Editors often emit several events for one save.
	AggregateTimeout time.Duration
	// Ignored holds glob patterns matched against slash-separated absolute
	// paths, e.g. "**/node_modules/**".
	Ignored []string
	// Logger receives watcher errors. Defaults to a no-op logger.
	Logger *logging.Logger
}

// Watcher watches source files and directory trees and reports batches of
// changed paths.
type Watcher struct {
	watcher   *fsnotify.Watcher
	ignored   []glob.Glob
	aggregate time.Duration
	onChange  func(changed []string)
	logger    *logging.Logger

	mu    sync.RWMutex
	dirs  map[string]bool // directories registered with fsnotify
	files map[string]bool // individual files of interest
	trees []string        // roots watched recursively

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a watcher that calls onChange with the sorted, de-duplicated
// paths changed since the last call. onChange runs on the watcher's own
// goroutine.
func New(opts Options, onChange func(changed []string)) (*Watcher, error) {
	ignored := make([]glob.Glob, 0, len(opts.Ignored))
	for _, pattern := range opts.Ignored {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		ignored = append(ignored, g)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	aggregate := opts.AggregateTimeout
	if aggregate <= 0 {
		aggregate = DefaultAggregateTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}

	return &Watcher{
		watcher:   watcher,
		ignored:   ignored,
		aggregate: aggregate,
		onChange:  onChange,
		logger:    logger,
		dirs:      make(map[string]bool),
		files:     make(map[string]bool),
		stopCh:    make(chan struct{}),
	}, nil
}

// IsIgnored reports whether path matches an ignore pattern.
func (w *Watcher) IsIgnored(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, g := range w.ignored {
		if g.Match(slashed) {
			return true
		}
	}
	return false
}

// AddTree watches root and every directory below it that is not ignored.
func (w *Watcher) AddTree(root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("watch path does not exist: %s", root)
		}
		return fmt.Errorf("failed to stat watch path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch path is not a directory: %s", root)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !slices.Contains(w.trees, root) {
		w.trees = append(w.trees, root)
	}
	return w.watchDirRecursive(root)
}

// watchDirRecursive adds all subdirectories to the watcher. Callers hold mu.
func (w *Watcher) watchDirRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && w.IsIgnored(path+"/") {
			return filepath.SkipDir
		}
		return w.addDir(path)
	})
}

// addDir registers dir with fsnotify once. Callers hold mu.
func (w *Watcher) addDir(dir string) error {
	if w.dirs[dir] {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.dirs[dir] = true
	return nil
}

// SetFiles replaces the set of individual files of interest. Their parent
// directories are watched; directories no longer needed by a file or a
// tree are released.
func (w *Watcher) SetFiles(files []string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := make(map[string]bool, len(files))
	needed := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil || w.IsIgnored(abs) {
			continue
		}
		next[abs] = true
		needed[filepath.Dir(abs)] = true
	}
	w.files = next

	for dir := range needed {
		if err := w.addDir(dir); err != nil {
			w.logger.Debug("cannot watch directory", "dir", dir, "error", err)
		}
	}
	for dir := range w.dirs {
		if needed[dir] || w.inTree(dir) {
			continue
		}
		_ = w.watcher.Remove(dir)
		delete(w.dirs, dir)
	}
}

// Dirs returns the watched directories, sorted.
func (w *Watcher) Dirs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	dirs := make([]string, 0, len(w.dirs))
	for d := range w.dirs {
		dirs = append(dirs, d)
	}
	slices.Sort(dirs)
	return dirs
}

// inTree reports whether path lies inside a recursively watched root.
// Callers hold mu.
func (w *Watcher) inTree(path string) bool {
	for _, root := range w.trees {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// relevant reports whether an event for path should trigger a rebuild.
func (w *Watcher) relevant(path string) bool {
	if w.IsIgnored(path) {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.files[path] || w.inTree(path)
}

// Start begins watching for file changes.
func (w *Watcher) Start() {
	go w.watchLoop()
}

// Stop stops the watcher and releases its resources. It is safe to call
// more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
	})
}

func (w *Watcher) watchLoop() {
	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C // drain initial timer

	pending := make(map[string]struct{})

	for {
		select {
		case <-w.stopCh:
			debounceTimer.Stop()
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				w.trackNewDir(ev.Name)
			}
			if !w.relevant(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			debounceTimer.Reset(w.aggregate)

		case <-debounceTimer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			slices.Sort(changed)
			pending = make(map[string]struct{})

			select {
			case <-w.stopCh:
				return
			default:
			}
			w.onChange(changed)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// trackNewDir starts watching directories created inside a watched tree.
func (w *Watcher) trackNewDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inTree(path) && !w.IsIgnored(path+"/") {
		_ = w.watchDirRecursive(path)
	}
}
