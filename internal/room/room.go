package room

import (
	"sync"
	"time"

	"cardroom/internal/game"
)

type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
)

type Seat struct {
	UserID         string
	DisplayName    string
	IsBot          bool
	Ready          bool
	Connected      bool
	Abandoned      bool
	DisconnectedAt time.Time
}

// ActiveMatch is the in-flight game inside a room.
type ActiveMatch struct {
	ID            string
	State         game.State
	Seed          int64
	Ordinal       int
	Participants  []string // human user ids whose stakes are locked
	TurnStartedAt time.Time

	// SettleAttempts counts failed settlements of a finished game so the
	// janitor can stop retrying and refund instead.
	SettleAttempts int
}

// Room is one table. All mutation goes through the orchestrator while
// holding mu, so a tick and a player action never interleave.
type Room struct {
	mu sync.Mutex

	ID       string
	Code     string
	GameKey  game.Key
	Stake    int64
	MaxSeats int
	Seed     int64

	Status       Status
	Seats        []Seat
	Match        *ActiveMatch
	MatchesRun   int
	LastActivity time.Time
}

func (r *Room) lock()   { r.mu.Lock() }
func (r *Room) unlock() { r.mu.Unlock() }

func (r *Room) seatOf(userID string) int {
	for i, s := range r.Seats {
		if s.UserID == userID {
			return i
		}
	}
	return -1
}

func (r *Room) humans() []string {
	var out []string
	for _, s := range r.Seats {
		if !s.IsBot {
			out = append(out, s.UserID)
		}
	}
	return out
}

func (r *Room) full() bool { return len(r.Seats) >= r.MaxSeats }

// SeatInfo is the outward view of a seat.
type SeatInfo struct {
	Seat        int    `json:"seat"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	IsBot       bool   `json:"isBot"`
	Ready       bool   `json:"ready"`
	Connected   bool   `json:"connected"`
}

type Snapshot struct {
	ID       string     `json:"id"`
	Code     string     `json:"code"`
	GameKey  string     `json:"gameKey"`
	Stake    int64      `json:"stake"`
	MaxSeats int        `json:"maxSeats"`
	Status   Status     `json:"status"`
	Seats    []SeatInfo `json:"seats"`
	MatchID  string     `json:"matchId,omitempty"`
	Ordinal  int        `json:"matchOrdinal,omitempty"`
}

// snapshot must be called with r.mu held.
func (r *Room) snapshot() Snapshot {
	snap := Snapshot{
		ID:       r.ID,
		Code:     r.Code,
		GameKey:  string(r.GameKey),
		Stake:    r.Stake,
		MaxSeats: r.MaxSeats,
		Status:   r.Status,
	}
	for i, s := range r.Seats {
		snap.Seats = append(snap.Seats, SeatInfo{
			Seat:        i,
			UserID:      s.UserID,
			DisplayName: s.DisplayName,
			IsBot:       s.IsBot,
			Ready:       s.Ready,
			Connected:   s.Connected || s.IsBot,
		})
	}
	if r.Match != nil {
		snap.MatchID = r.Match.ID
		snap.Ordinal = r.Match.Ordinal
	}
	return snap
}

// Snapshot returns a consistent copy for transports.
func (r *Room) Snapshot() Snapshot {
	r.lock()
	defer r.unlock()
	return r.snapshot()
}
