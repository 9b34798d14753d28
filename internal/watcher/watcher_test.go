package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestEventTypeFromOp(t *testing.T) {
	assert.Equal(t, EventTypeCreated, eventType(fsnotify.Create|fsnotify.Write))
	assert.Equal(t, EventTypeModified, eventType(fsnotify.Write))
	assert.Equal(t, EventTypeDeleted, eventType(fsnotify.Remove))
	assert.Equal(t, EventTypeRenamed, eventType(fsnotify.Rename))
	assert.Equal(t, EventTypeModified, eventType(fsnotify.Chmod))
}

func TestFilters(t *testing.T) {
	assert.True(t, MarkdownFilter("docs/intro.md"))
	assert.True(t, MarkdownFilter("docs/INTRO.MD"))
	assert.True(t, MarkdownFilter("a.markdown"))
	assert.False(t, MarkdownFilter("docs/structure.yaml"))

	assert.True(t, NoHiddenFilter("./docs/intro.md"))
	assert.True(t, NoHiddenFilter("../docs/intro.md"))
	assert.False(t, NoHiddenFilter("docs/.draft.md"))
	assert.False(t, NoHiddenFilter(".git/notes.md"))

	assert.True(t, NoVendorFilter("docs/intro.md"))
	assert.False(t, NoVendorFilter("node_modules/pkg/README.md"))
	assert.False(t, NoVendorFilter("a/vendor/b/README.md"))
}

func TestDebouncerCoalescesByPath(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	d.Add(ChangeEvent{Type: EventTypeCreated, Path: "b.md"})
	d.Add(ChangeEvent{Type: EventTypeModified, Path: "a.md"})
	d.Add(ChangeEvent{Type: EventTypeModified, Path: "b.md"})

	select {
	case events := <-d.Output():
		assert.Equal(t, []ChangeEvent{
			{Type: EventTypeModified, Path: "a.md"},
			{Type: EventTypeModified, Path: "b.md"},
		}, events)
	case <-time.After(2 * time.Second):
		t.Fatal("no batch emitted")
	}

	select {
	case events := <-d.Output():
		t.Fatalf("unexpected second batch: %v", events)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestDebouncerStop(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	d.Add(ChangeEvent{Path: "a.md"})
	d.stop()

	select {
	case <-d.Output():
		t.Fatal("stopped debouncer emitted a batch")
	case <-time.After(80 * time.Millisecond):
	}
}

func TestFileWatcherAddPath(t *testing.T) {
	fw, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()

	assert.NoError(t, fw.AddPath(t.TempDir()))
	assert.Error(t, fw.AddPath(filepath.Join(t.TempDir(), "missing")))
}

func TestFileWatcherAddRecursiveSkipsHidden(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "guides", "install"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "objects"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "pkg"), 0o755))

	fw, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()

	require.NoError(t, fw.AddRecursive(root))
	assert.ElementsMatch(t, []string{
		root,
		filepath.Join(root, "guides"),
		filepath.Join(root, "guides", "install"),
	}, fw.watcher.WatchList())
}

func TestFileWatcherDeliversMarkdownChanges(t *testing.T) {
	dir := t.TempDir()

	fw, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()

	fw.AddFilter(MarkdownFilter)
	require.NoError(t, fw.AddPath(dir))

	var (
		mu     sync.Mutex
		seen   []string
		called = make(chan struct{}, 10)
	)
	fw.AddHandler(func(ctx context.Context, events []ChangeEvent) error {
		mu.Lock()
		for _, e := range events {
			seen = append(seen, filepath.Base(e.Path))
		}
		mu.Unlock()
		called <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "intro.md"), []byte("# Intro\n"), 0o644))

	select {
	case <-called:
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not called")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen, "intro.md")
	assert.NotContains(t, seen, "notes.txt")
}
