package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"homedrive/internal/logging"
	"homedrive/internal/metrics"
	"homedrive/internal/queue"
	"homedrive/internal/thumbs"
)

// ThumbHandler serves POST /thumb. A cache hit streams the JPEG directly;
// a miss schedules generation and answers 202 so the client can retry.
func (h *Handlers) ThumbHandler(w http.ResponseWriter, r *http.Request) {
	if !h.thumbnailsEnabled {
		writeError(w, http.StatusServiceUnavailable, "thumbnails are disabled")
		return
	}

	var req thumbs.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	path, ok, err := h.gen.CachedPath(req)
	if err != nil {
		status, msg := thumbErrorStatus(err)
		if status == http.StatusInternalServerError {
			logging.Error("Thumb request for %s failed: %v", req.FullFilename, err)
		}
		writeError(w, status, msg)
		return
	}

	if ok {
		metrics.ThumbCacheHits.Inc()
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "private, max-age=86400")
		http.ServeFile(w, r, path)
		return
	}

	metrics.ThumbCacheMisses.Inc()
	start := time.Now()
	outcome := h.sched.Submit(queue.Task{ID: req.TaskID(), Request: req})
	if outcome == queue.Failed {
		logging.Error("Thumb request for %s could not be scheduled", req.FullFilename)
		writeError(w, http.StatusInternalServerError, "thumbnail generation failed")
		return
	}
	logging.Debug("Thumb miss for %s, scheduled (%v) in %v", req.FullFilename, outcome, time.Since(start))

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "2")
	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte(`{"status":"generating"}`))
}

// thumbErrorStatus maps pipeline errors to HTTP statuses.
func thumbErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, thumbs.ErrInvalidFit):
		return http.StatusBadRequest, "invalid thumbnail parameters"
	case errors.Is(err, thumbs.ErrNotFound):
		return http.StatusNotFound, "source file not found"
	case errors.Is(err, thumbs.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "unsupported source format"
	default:
		return http.StatusInternalServerError, "thumbnail generation failed"
	}
}
