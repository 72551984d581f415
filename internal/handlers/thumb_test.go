package handlers

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"homedrive/internal/queue"
	"homedrive/internal/quota"
)

func writeTestJPEG(t *testing.T, path string, width, height int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 100, 255})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create image file: %v", err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("Failed to encode image: %v", err)
	}
}

func thumbRequest(t *testing.T, env *testEnv, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := env.asUser(t, httptest.NewRequest("POST", "/thumb", strings.NewReader(body)), "alice")
	w := httptest.NewRecorder()
	env.h.ThumbHandler(w, r)
	return w
}

func thumbBody(path string, width, height int, fit string) string {
	return fmt.Sprintf(`{"fullFilename":%q,"width":%d,"height":%d,"resizeFit":%q}`, path, width, height, fit)
}

func TestThumbHandlerMissThenHit(t *testing.T) {
	env := newTestEnv(t, quota.Unlimited)

	src := filepath.Join(env.mediaDir, "alice", "photo.jpg")
	writeTestJPEG(t, src, 400, 300)

	// First request misses and schedules generation.
	w := thumbRequest(t, env, thumbBody(src, 100, 100, "cover"))
	if w.Code != http.StatusAccepted {
		t.Fatalf("Miss status = %d, want 202", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header on 202")
	}
	if !contains(w.Body.String(), "generating") {
		t.Errorf("Body = %s, want generating sentinel", w.Body.String())
	}

	env.waitForQueue(t)

	// Retry hits the cache and streams the JPEG.
	w = thumbRequest(t, env, thumbBody(src, 100, 100, "cover"))
	if w.Code != http.StatusOK {
		t.Fatalf("Hit status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %s, want image/jpeg", ct)
	}

	img, err := jpeg.Decode(w.Body)
	if err != nil {
		t.Fatalf("Response is not a valid JPEG: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 100 {
		t.Errorf("Thumbnail is %dx%d, want 100x100", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestThumbHandlerRepeatedMissesCoalesce(t *testing.T) {
	env := newTestEnv(t, quota.Unlimited)

	src := filepath.Join(env.mediaDir, "alice", "photo.jpg")
	writeTestJPEG(t, src, 400, 300)

	for i := 0; i < 5; i++ {
		w := thumbRequest(t, env, thumbBody(src, 100, 100, "cover"))
		if w.Code != http.StatusAccepted && w.Code != http.StatusOK {
			t.Fatalf("Request %d status = %d", i, w.Code)
		}
	}
	env.waitForQueue(t)
}

func TestThumbHandlerErrors(t *testing.T) {
	env := newTestEnv(t, quota.Unlimited)

	src := filepath.Join(env.mediaDir, "alice", "photo.jpg")
	writeTestJPEG(t, src, 100, 100)
	unsupported := filepath.Join(env.mediaDir, "alice", "doc.pdf")
	if err := os.WriteFile(unsupported, []byte("pdf"), 0o644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"malformed json", "{not json", http.StatusBadRequest},
		{"invalid fit", thumbBody(src, 100, 100, "stretch"), http.StatusBadRequest},
		{"zero dimensions", thumbBody(src, 0, 100, "cover"), http.StatusBadRequest},
		{"missing source", thumbBody(filepath.Join(env.mediaDir, "gone.jpg"), 100, 100, "cover"), http.StatusNotFound},
		{"unsupported format", thumbBody(unsupported, 100, 100, "cover"), http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := thumbRequest(t, env, tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

type failingScheduler struct{}

func (failingScheduler) Submit(task queue.Task) queue.Outcome { return queue.Failed }

func TestThumbHandlerSchedulerFailure(t *testing.T) {
	env := newTestEnv(t, quota.Unlimited)
	h := New(env.db, env.gen, failingScheduler{}, env.accounts, nil, env.mediaDir, true)

	src := filepath.Join(env.mediaDir, "alice", "photo.jpg")
	writeTestJPEG(t, src, 100, 100)

	// A miss whose hand-off fails must not promise generation with a 202.
	r := env.asUser(t, httptest.NewRequest("POST", "/thumb", strings.NewReader(thumbBody(src, 100, 100, "cover"))), "alice")
	w := httptest.NewRecorder()
	h.ThumbHandler(w, r)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", w.Code)
	}
}

func TestThumbHandlerDisabled(t *testing.T) {
	env := newTestEnv(t, quota.Unlimited)
	disabled := New(env.db, nil, nil, env.accounts, nil, env.mediaDir, false)

	r := env.asUser(t, httptest.NewRequest("POST", "/thumb", strings.NewReader("{}")), "alice")
	w := httptest.NewRecorder()
	disabled.ThumbHandler(w, r)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", w.Code)
	}
}
