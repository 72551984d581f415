package handlers

import (
	"net/http"

	"homedrive/internal/startup"
)

// HealthHandler serves liveness probes.
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// VersionHandler reports build information.
func (h *Handlers) VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version":   startup.Version,
		"commit":    startup.Commit,
		"buildTime": startup.BuildTime,
		"goVersion": startup.GoVersion,
	})
}
