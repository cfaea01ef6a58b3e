package room

import "cardroom/internal/game"

// MatchSummary is pushed to clients when a match settles or aborts.
type MatchSummary struct {
	MatchID  string            `json:"matchId"`
	RoomID   string            `json:"roomId"`
	GameKey  string            `json:"gameKey"`
	Stake    int64             `json:"stake"`
	Status   string            `json:"status"`
	Outcomes map[string]string `json:"outcomes"` // by user id
	Net      map[string]int64  `json:"net"`      // payout minus stake, by user id
}

// Notifier delivers server pushes. The websocket hub implements it; tests
// substitute a recorder.
type Notifier interface {
	RoomUpdate(snap Snapshot)
	// GameState carries per-user redacted views plus the engine events the
	// last action produced.
	GameState(roomID string, views map[string]any, events []game.Event)
	MatchEnded(summary MatchSummary)
}

// MultiNotifier fans out to every member.
type MultiNotifier []Notifier

func (m MultiNotifier) RoomUpdate(snap Snapshot) {
	for _, n := range m {
		n.RoomUpdate(snap)
	}
}

func (m MultiNotifier) GameState(roomID string, views map[string]any, events []game.Event) {
	for _, n := range m {
		n.GameState(roomID, views, events)
	}
}

func (m MultiNotifier) MatchEnded(summary MatchSummary) {
	for _, n := range m {
		n.MatchEnded(summary)
	}
}

// NopNotifier drops everything.
type NopNotifier struct{}

func (NopNotifier) RoomUpdate(Snapshot)                           {}
func (NopNotifier) GameState(string, map[string]any, []game.Event) {}
func (NopNotifier) MatchEnded(MatchSummary)                       {}
