package hooks

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"homedrive/internal/queue"
	"homedrive/internal/thumbs"
)

type fakeScheduler struct {
	mu    sync.Mutex
	tasks []queue.Task
}

func (f *fakeScheduler) Submit(task queue.Task) queue.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return queue.Queued
}

func (f *fakeScheduler) submitted() []queue.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]queue.Task(nil), f.tasks...)
}

type fakeProps struct {
	mu    sync.Mutex
	store map[string]string
}

func newFakeProps() *fakeProps {
	return &fakeProps{store: make(map[string]string)}
}

func (f *fakeProps) GetProperty(path, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.store[path+"\x00"+name]; ok {
		return v, nil
	}
	return "", os.ErrNotExist
}

func (f *fakeProps) SetProperty(path, name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[path+"\x00"+name] = value
	return nil
}

func (f *fakeProps) DeleteProperties(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.store {
		if strings.HasPrefix(k, path+"\x00") {
			delete(f.store, k)
		}
	}
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	return path
}

func TestAfterWriteSchedulesPregeneration(t *testing.T) {
	sched := &fakeScheduler{}
	props := newFakeProps()
	cache := thumbs.NewStore(t.TempDir())
	h := New(sched, cache, props, nil)

	path := writeFile(t, t.TempDir(), "photo.jpg", "image bytes")
	h.AfterWrite(path)

	tasks := sched.submitted()
	if len(tasks) != len(DefaultPregenSizes) {
		t.Fatalf("Scheduled %d tasks, want %d", len(tasks), len(DefaultPregenSizes))
	}
	for i, task := range tasks {
		if task.Request.FullFilename != path {
			t.Errorf("Task %d for %s, want %s", i, task.Request.FullFilename, path)
		}
		if task.Request.ResizeFit != string(thumbs.FitCover) {
			t.Errorf("Task %d fit = %s, want cover", i, task.Request.ResizeFit)
		}
	}

	// Content hash was persisted under the file path.
	hash, err := props.GetProperty(path, thumbs.HashProperty)
	if err != nil {
		t.Fatalf("Hash property not stored: %v", err)
	}
	if len(hash) != 32 {
		t.Errorf("Stored hash %q is not an md5 hex digest", hash)
	}
}

func TestAfterWriteRefreshesStaleHash(t *testing.T) {
	props := newFakeProps()
	h := New(&fakeScheduler{}, thumbs.NewStore(t.TempDir()), props, nil)

	path := writeFile(t, t.TempDir(), "photo.jpg", "new bytes")
	// A hash for the old bytes is already stored.
	props.SetProperty(path, thumbs.HashProperty, "00000000000000000000000000000000")

	h.AfterWrite(path)

	want, err := thumbs.ContentHash(path)
	if err != nil {
		t.Fatalf("ContentHash failed: %v", err)
	}
	got, err := props.GetProperty(path, thumbs.HashProperty)
	if err != nil {
		t.Fatalf("Hash property not stored: %v", err)
	}
	if got != want {
		t.Errorf("Stored hash %s, want recomputed %s", got, want)
	}
}

func TestAfterWriteCustomSizes(t *testing.T) {
	sched := &fakeScheduler{}
	h := New(sched, thumbs.NewStore(t.TempDir()), newFakeProps(), []PregenSize{{Width: 320, Height: 240}})

	path := writeFile(t, t.TempDir(), "photo.jpg", "x")
	h.AfterWrite(path)

	tasks := sched.submitted()
	if len(tasks) != 1 {
		t.Fatalf("Scheduled %d tasks, want 1", len(tasks))
	}
	if tasks[0].Request.Width != 320 || tasks[0].Request.Height != 240 {
		t.Errorf("Task shape %dx%d, want 320x240", tasks[0].Request.Width, tasks[0].Request.Height)
	}
}

func TestAfterWriteIgnoresUnsupported(t *testing.T) {
	sched := &fakeScheduler{}
	props := newFakeProps()
	h := New(sched, thumbs.NewStore(t.TempDir()), props, nil)

	path := writeFile(t, t.TempDir(), "notes.txt", "plain text")
	h.AfterWrite(path)

	if len(sched.submitted()) != 0 {
		t.Error("Unsupported file should not schedule generation")
	}
	if _, err := props.GetProperty(path, thumbs.HashProperty); err == nil {
		t.Error("Unsupported file should not get a hash property")
	}
}

func TestBeforeDeleteInvalidatesByStoredHash(t *testing.T) {
	props := newFakeProps()
	cacheDir := t.TempDir()
	cache := thumbs.NewStore(cacheDir)
	h := New(&fakeScheduler{}, cache, props, nil)

	path := writeFile(t, t.TempDir(), "photo.jpg", "image bytes")
	hash, err := thumbs.ContentHash(path)
	if err != nil {
		t.Fatalf("ContentHash failed: %v", err)
	}
	props.SetProperty(path, thumbs.HashProperty, hash)

	// Seed cache entries for this content and one unrelated entry.
	for _, name := range []string{
		hash + "_200x200-cover",
		hash + "_60x60-cover",
		hash + "_fullxfull-none",
		"ffffffffffffffffffffffffffffffff_200x200-cover",
	} {
		if _, err := cache.Write(name, strings.NewReader("x")); err != nil {
			t.Fatalf("Failed to seed cache: %v", err)
		}
	}

	h.BeforeDelete(path)

	if _, ok := cache.LookupName(hash + "_200x200-cover"); ok {
		t.Error("Expected content entries to be invalidated")
	}
	if _, ok := cache.LookupName("ffffffffffffffffffffffffffffffff_200x200-cover"); !ok {
		t.Error("Unrelated cache entry was removed")
	}
	if _, err := props.GetProperty(path, thumbs.HashProperty); err == nil {
		t.Error("Expected properties to be deleted")
	}
}

func TestBeforeDeleteRecomputesMissingHash(t *testing.T) {
	props := newFakeProps()
	cache := thumbs.NewStore(t.TempDir())
	h := New(&fakeScheduler{}, cache, props, nil)

	path := writeFile(t, t.TempDir(), "photo.jpg", "image bytes")
	hash, _ := thumbs.ContentHash(path)
	if _, err := cache.Write(hash+"_200x200-cover", strings.NewReader("x")); err != nil {
		t.Fatalf("Failed to seed cache: %v", err)
	}

	// No stored hash property: the hook falls back to hashing the bytes.
	h.BeforeDelete(path)

	if _, ok := cache.LookupName(hash + "_200x200-cover"); ok {
		t.Error("Expected entry invalidated via recomputed hash")
	}
}

func TestBeforeDeleteIgnoresUnsupported(t *testing.T) {
	cache := thumbs.NewStore(t.TempDir())
	h := New(&fakeScheduler{}, cache, newFakeProps(), nil)

	path := writeFile(t, t.TempDir(), "notes.txt", "plain text")
	// Must not panic or touch anything.
	h.BeforeDelete(path)
}
