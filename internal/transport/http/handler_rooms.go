package httptransport

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"cardroom/internal/room"
	"cardroom/internal/store"
)

type RoomHandlers struct {
	reg *room.Registry
	st  *store.Store
}

func NewRoomHandlers(reg *room.Registry, st *store.Store) *RoomHandlers {
	return &RoomHandlers{reg: reg, st: st}
}

// List returns every live room, lobby and in-play alike, so clients can
// browse before joining by code.
func (h *RoomHandlers) List() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		rooms := h.reg.List()
		snaps := make([]room.Snapshot, 0, len(rooms))
		for _, r := range rooms {
			snaps = append(snaps, r.Snapshot())
		}
		sort.Slice(snaps, func(i, j int) bool { return snaps[i].Code < snaps[j].Code })
		WriteJSON(w, map[string]any{"rooms": snaps})
	}
}

type matchReplayResponse struct {
	Match   matchInfo          `json:"match"`
	Players []matchPlayerInfo  `json:"players"`
	Events  []matchReplayEvent `json:"events"`
}

type matchInfo struct {
	ID        string     `json:"id"`
	RoomCode  string     `json:"roomCode"`
	GameKey   string     `json:"gameKey"`
	Stake     int64      `json:"stake"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

type matchPlayerInfo struct {
	UserID  string `json:"userId"`
	Seat    int    `json:"seat"`
	IsBot   bool   `json:"isBot"`
	Outcome string `json:"outcome,omitempty"`
	Net     int64  `json:"net"`
}

type matchReplayEvent struct {
	Seq       int64     `json:"seq"`
	Actor     string    `json:"actor,omitempty"`
	Name      string    `json:"name"`
	Payload   any       `json:"payload,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// MatchReplay streams the persisted event log of a finished or running
// match, optionally resuming after a known sequence number.
func (h *RoomHandlers) MatchReplay() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricReplayQueryTotal.Add(1)
		matchID := chi.URLParam(r, "match_id")
		afterSeq := int64(0)
		if v := r.URL.Query().Get("after_seq"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				metricReplayQueryErrors.Add(1)
				WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
				return
			}
			afterSeq = n
		}

		ctx := r.Context()
		m, err := h.st.GetMatch(ctx, matchID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				WriteHTTPError(w, http.StatusNotFound, "match_not_found")
				return
			}
			metricReplayQueryErrors.Add(1)
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		players, err := h.st.ListMatchPlayers(ctx, matchID)
		if err != nil {
			metricReplayQueryErrors.Add(1)
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		events, err := h.st.ListMatchEvents(ctx, matchID, afterSeq)
		if err != nil {
			metricReplayQueryErrors.Add(1)
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}

		resp := matchReplayResponse{
			Match: matchInfo{
				ID:        m.ID,
				RoomCode:  m.RoomCode,
				GameKey:   m.GameKey,
				Stake:     m.Stake,
				Status:    m.Status,
				CreatedAt: m.CreatedAt,
				EndedAt:   m.EndedAt,
			},
			Players: make([]matchPlayerInfo, 0, len(players)),
			Events:  make([]matchReplayEvent, 0, len(events)),
		}
		for _, p := range players {
			resp.Players = append(resp.Players, matchPlayerInfo{
				UserID:  p.UserID,
				Seat:    p.Seat,
				IsBot:   p.IsBot,
				Outcome: p.Outcome,
				Net:     p.Net,
			})
		}
		for _, ev := range events {
			resp.Events = append(resp.Events, matchReplayEvent{
				Seq:       ev.Seq,
				Actor:     ev.Actor,
				Name:      ev.Name,
				Payload:   parseMaybeJSON(ev.Payload),
				CreatedAt: ev.CreatedAt,
			})
		}
		WriteJSON(w, resp)
	}
}
