package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"cardroom/internal/store"
)

type WalletHandlers struct {
	st *store.Store
}

func NewWalletHandlers(st *store.Store) *WalletHandlers {
	return &WalletHandlers{st: st}
}

type balanceResponse struct {
	UserID  string `json:"userId"`
	Balance int64  `json:"balance"`
}

func (h *WalletHandlers) Balance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricWalletQueryTotal.Add(1)
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			WriteHTTPError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		bal, err := h.st.GetBalance(r.Context(), id.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// No wallet yet means no money has moved.
				WriteJSON(w, balanceResponse{UserID: id.UserID, Balance: 0})
				return
			}
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, balanceResponse{UserID: id.UserID, Balance: bal})
	}
}

type ledgerEntry struct {
	ID             string          `json:"id"`
	IdempotencyKey string          `json:"idempotencyKey"`
	Amount         int64           `json:"amount"`
	Kind           string          `json:"kind"`
	MatchID        string          `json:"matchId,omitempty"`
	GameKey        string          `json:"gameKey,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func (h *WalletHandlers) Ledger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricLedgerQueryTotal.Add(1)
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			WriteHTTPError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		limit, offset := ParsePagination(r)
		rows, err := h.st.ListLedgerTransactions(r.Context(), store.LedgerFilter{
			UserID:  id.UserID,
			MatchID: r.URL.Query().Get("match_id"),
			Kind:    r.URL.Query().Get("kind"),
		}, limit, offset)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		entries := make([]ledgerEntry, 0, len(rows))
		for _, tx := range rows {
			entries = append(entries, ledgerEntry{
				ID:             tx.ID,
				IdempotencyKey: tx.IdempotencyKey,
				Amount:         tx.Amount,
				Kind:           tx.Kind,
				MatchID:        tx.MatchID,
				GameKey:        tx.GameKey,
				Metadata:       tx.Metadata,
				CreatedAt:      tx.CreatedAt,
			})
		}
		WriteJSON(w, map[string]any{"entries": entries})
	}
}
