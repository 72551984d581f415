package handlers

import (
	"net/http"

	"homedrive/internal/quota"
)

type quotaResponse struct {
	Username  string `json:"username"`
	Used      int64  `json:"used"`
	Limit     int64  `json:"limit"`
	Available int64  `json:"available"`
	Unlimited bool   `json:"unlimited"`
}

// QuotaHandler serves GET /api/quota for the authenticated user.
func (h *Handlers) QuotaHandler(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	limit := h.accounts.GetUserLimit(user.Username)
	resp := quotaResponse{
		Username:  user.Username,
		Used:      h.accounts.GetUserReserved(user.Username),
		Limit:     limit,
		Available: h.accounts.Available(user.Username),
		Unlimited: limit == quota.Unlimited,
	}
	writeJSON(w, http.StatusOK, resp)
}
