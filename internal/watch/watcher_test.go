package watch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestWatcher(t *testing.T, ignored ...string) (*Watcher, <-chan []string) {
	t.Helper()
	changes := make(chan []string, 16)
	w, err := New(Options{AggregateTimeout: 20 * time.Millisecond, Ignored: ignored}, func(changed []string) {
		changes <- changed
	})
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	t.Cleanup(w.Stop)
	return w, changes
}

func waitForChange(t *testing.T, changes <-chan []string) []string {
	t.Helper()
	select {
	case c := <-changes:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change notification")
		return nil
	}
}

func expectNoChange(t *testing.T, changes <-chan []string) {
	t.Helper()
	select {
	case c := <-changes:
		t.Fatalf("unexpected change notification: %v", c)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, _ := newTestWatcher(t)
	w.Start()
	time.Sleep(10 * time.Millisecond)

	// Calling Stop() multiple times should not panic
	w.Stop()
	w.Stop()
}

func TestWatcher_InvalidIgnorePattern(t *testing.T) {
	_, err := New(Options{Ignored: []string{"[unclosed"}}, func([]string) {})
	if err == nil {
		t.Fatal("Expected error for invalid ignore pattern")
	}
}

func TestWatcher_AddTree_NonExistentPath(t *testing.T) {
	w, _ := newTestWatcher(t)

	err := w.AddTree(filepath.Join(t.TempDir(), "missing"))
	if err == nil || !strings.Contains(err.Error(), "watch path does not exist") {
		t.Errorf("AddTree() error = %v, want does-not-exist error", err)
	}
}

func TestWatcher_AddTree_PathIsFile(t *testing.T) {
	w, _ := newTestWatcher(t)

	file := filepath.Join(t.TempDir(), "file.js")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := w.AddTree(file)
	if err == nil || !strings.Contains(err.Error(), "watch path is not a directory") {
		t.Errorf("AddTree() error = %v, want not-a-directory error", err)
	}
}

func TestWatcher_AddTreeSkipsIgnoredDirs(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"src", "src/lib", "node_modules/pkg"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	w, _ := newTestWatcher(t, "**/node_modules/**")
	if err := w.AddTree(root); err != nil {
		t.Fatalf("AddTree() error = %v", err)
	}

	for _, d := range w.Dirs() {
		if strings.Contains(d, "node_modules") {
			t.Errorf("ignored directory watched: %s", d)
		}
	}
	if len(w.Dirs()) != 3 {
		t.Errorf("Dirs() = %v, want root, src and src/lib", w.Dirs())
	}
}

func TestWatcher_ReportsTrackedFileChanges(t *testing.T) {
	dir := t.TempDir()
	tracked := filepath.Join(dir, "entry.js")
	untracked := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(tracked, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, changes := newTestWatcher(t)
	w.SetFiles([]string{tracked})
	w.Start()

	if err := os.WriteFile(untracked, []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	expectNoChange(t, changes)

	// Several writes inside the aggregate window collapse into one batch.
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(tracked, []byte{byte('b' + i)}, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got := waitForChange(t, changes)
	if len(got) != 1 || got[0] != tracked {
		t.Errorf("changed = %v, want [%s]", got, tracked)
	}
}

func TestWatcher_TreeReportsNewFilesButNotIgnored(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "node_modules"), 0o755); err != nil {
		t.Fatal(err)
	}

	w, changes := newTestWatcher(t, "**/node_modules/**")
	if err := w.AddTree(root); err != nil {
		t.Fatal(err)
	}
	w.Start()

	if err := os.WriteFile(filepath.Join(root, "node_modules", "dep.js"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	expectNoChange(t, changes)

	created := filepath.Join(root, "added.js")
	if err := os.WriteFile(created, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	got := waitForChange(t, changes)
	if len(got) != 1 || got[0] != created {
		t.Errorf("changed = %v, want [%s]", got, created)
	}
}

func TestWatcher_SetFilesReleasesDirectories(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()

	w, _ := newTestWatcher(t)
	w.SetFiles([]string{filepath.Join(a, "x.js"), filepath.Join(b, "y.js")})
	if len(w.Dirs()) != 2 {
		t.Fatalf("Dirs() = %v, want 2 entries", w.Dirs())
	}

	w.SetFiles([]string{filepath.Join(b, "y.js")})
	dirs := w.Dirs()
	if len(dirs) != 1 || dirs[0] != b {
		t.Errorf("Dirs() = %v, want [%s]", dirs, b)
	}
}

func TestWatcher_IsIgnored(t *testing.T) {
	w, _ := newTestWatcher(t, "**/node_modules/**", "**/*.tmp")

	tests := []struct {
		path string
		want bool
	}{
		{"/work/node_modules/react/index.js", true},
		{"/work/src/index.js", false},
		{"/work/src/scratch.tmp", true},
	}
	for _, tt := range tests {
		if got := w.IsIgnored(tt.path); got != tt.want {
			t.Errorf("IsIgnored(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
