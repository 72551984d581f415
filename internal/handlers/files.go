package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"homedrive/internal/logging"
)

// resolvePath maps the request path onto the authenticated user's storage
// root, rejecting traversal outside it.
func (h *Handlers) resolvePath(username, requestPath string) (string, error) {
	cleaned := path.Clean("/" + requestPath)

	root := filepath.Join(h.mediaDir, username)
	physical := filepath.Join(root, filepath.FromSlash(cleaned))
	if physical != root && !strings.HasPrefix(physical, root+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes storage root: %s", requestPath)
	}
	return physical, nil
}

// GetFileHandler serves GET /files/{path}.
func (h *Handlers) GetFileHandler(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	physical, err := h.resolvePath(user.Username, mux.Vars(r)["path"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}

	info, err := os.Stat(physical)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	http.ServeFile(w, r, physical)
}

// PutFileHandler serves PUT /files/{path}. The write is admitted against the
// user's quota before any bytes land on disk; a rejected reservation answers
// 413 without touching storage.
func (h *Handlers) PutFileHandler(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	physical, err := h.resolvePath(user.Username, mux.Vars(r)["path"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}

	if r.ContentLength < 0 {
		writeError(w, http.StatusLengthRequired, "content length required")
		return
	}

	// Overwrites are charged for the size delta only.
	var oldSize int64
	if info, err := os.Stat(physical); err == nil {
		if info.IsDir() {
			writeError(w, http.StatusConflict, "path is a directory")
			return
		}
		oldSize = info.Size()
	}
	delta := r.ContentLength - oldSize

	if !h.accounts.Reserve(user.Username, delta) {
		writeError(w, http.StatusRequestEntityTooLarge, "quota exceeded")
		return
	}

	written, err := h.writeAtomic(physical, r.Body)
	if err != nil {
		// Roll the reservation back so a failed write never leaks usage.
		h.accounts.Reserve(user.Username, -delta)
		logging.Error("Failed to write %s: %v", physical, err)
		writeError(w, http.StatusInternalServerError, "write failed")
		return
	}
	if written != r.ContentLength {
		// Body was shorter than declared; settle the difference.
		h.accounts.Reserve(user.Username, written-r.ContentLength)
	}

	h.hooks.AfterWrite(physical)

	status := http.StatusCreated
	if oldSize > 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
}

// DeleteFileHandler serves DELETE /files/{path}.
func (h *Handlers) DeleteFileHandler(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	physical, err := h.resolvePath(user.Username, mux.Vars(r)["path"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}

	info, err := os.Stat(physical)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	// Cache invalidation needs the bytes, so hooks run before the remove.
	h.hooks.BeforeDelete(physical)

	if err := os.Remove(physical); err != nil {
		logging.Error("Failed to delete %s: %v", physical, err)
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}

	h.accounts.Reserve(user.Username, -info.Size())
	w.WriteHeader(http.StatusNoContent)
}

// writeAtomic streams body into a temp file next to dst and renames it into
// place, so readers never observe a partial file.
func (h *Handlers) writeAtomic(dst string, body io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return 0, err
	}

	written, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return written, err
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return written, err
	}
	return written, nil
}
