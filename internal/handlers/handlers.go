// Package handlers implements the HTTP API: thumbnail requests, per-user
// file storage with quota enforcement, quota reporting, and health probes.
package handlers

import (
	"encoding/json"
	"net/http"

	"homedrive/internal/database"
	"homedrive/internal/hooks"
	"homedrive/internal/logging"
	"homedrive/internal/queue"
	"homedrive/internal/quota"
	"homedrive/internal/thumbs"
)

// Handlers holds the dependencies shared by all HTTP handlers.
type Handlers struct {
	db       *database.Database
	gen      *thumbs.Generator
	sched    queue.Scheduler
	accounts *quota.Accountant
	hooks    *hooks.Hooks
	mediaDir string

	thumbnailsEnabled bool
}

// New creates the handler set. gen and sched may be nil when thumbnails are
// disabled.
func New(db *database.Database, gen *thumbs.Generator, sched queue.Scheduler,
	accounts *quota.Accountant, hk *hooks.Hooks, mediaDir string, thumbnailsEnabled bool) *Handlers {
	return &Handlers{
		db:                db,
		gen:               gen,
		sched:             sched,
		accounts:          accounts,
		hooks:             hk,
		mediaDir:          mediaDir,
		thumbnailsEnabled: thumbnailsEnabled,
	}
}

// writeJSON marshals v to the response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Failed to encode JSON response: %v", err)
	}
}

// writeError sends a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
