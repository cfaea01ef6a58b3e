package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"cardroom/internal/rewards"
)

type RewardHandlers struct {
	svc *rewards.Service
	now func() time.Time
}

func NewRewardHandlers(svc *rewards.Service) *RewardHandlers {
	return &RewardHandlers{svc: svc, now: time.Now}
}

func (h *RewardHandlers) Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			WriteHTTPError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		st, err := h.svc.StatusFor(r.Context(), id.UserID, h.now())
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, st)
	}
}

func (h *RewardHandlers) Claim() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricRewardClaimTotal.Add(1)
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			WriteHTTPError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		st, err := h.svc.Claim(r.Context(), id.UserID, h.now())
		if err != nil {
			if errors.Is(err, rewards.ErrAlreadyClaimed) {
				// The window is spent; tell the client when to come back.
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusConflict)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error":        "already_claimed",
					"nextEligible": st.NextEligible,
				})
				return
			}
			metricRewardClaimErrors.Add(1)
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, st)
	}
}
