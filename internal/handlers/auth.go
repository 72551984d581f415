package handlers

import (
	"context"
	"errors"
	"net/http"

	"homedrive/internal/database"
	"homedrive/internal/logging"
)

type contextKey string

const userContextKey contextKey = "user"

// RequireAuth wraps a handler with HTTP Basic authentication against the
// user store. The authenticated user is placed on the request context.
func (h *Handlers) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="homedrive"`)
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		user, err := h.db.ValidatePassword(username, password)
		if err != nil {
			if !errors.Is(err, database.ErrInvalidCredentials) && !errors.Is(err, database.ErrNotFound) {
				logging.Error("Password validation failed for %s: %v", username, err)
			}
			w.Header().Set("WWW-Authenticate", `Basic realm="homedrive"`)
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

// userFrom returns the authenticated user stored on the request context.
func userFrom(r *http.Request) *database.User {
	user, _ := r.Context().Value(userContextKey).(*database.User)
	return user
}
