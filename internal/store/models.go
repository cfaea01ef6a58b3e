package store

import (
	"encoding/json"
	"time"
)

type Wallet struct {
	UserID    string
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LedgerTransaction is one applied balance movement. Rows are append-only;
// the idempotency key makes replays observable as no-ops.
type LedgerTransaction struct {
	ID             string
	IdempotencyKey string
	UserID         string
	Amount         int64
	Kind           string
	MatchID        string
	GameKey        string
	Metadata       json.RawMessage
	CreatedAt      time.Time
}

type Match struct {
	ID        string
	RoomCode  string
	GameKey   string
	Stake     int64
	Status    string
	Seed      int64
	CreatedAt time.Time
	EndedAt   *time.Time
}

type MatchPlayer struct {
	MatchID string
	UserID  string
	Seat    int
	IsBot   bool
	Outcome string
	Net     int64
}

type MatchEvent struct {
	MatchID   string
	Seq       int64
	Actor     string
	Name      string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// Match statuses.
const (
	MatchStatusActive    = "active"
	MatchStatusSettled   = "settled"
	MatchStatusAborted   = "aborted"
	MatchStatusCancelled = "cancelled"
)

// Ledger transaction kinds.
const (
	TxKindStakeLock = "stake_lock"
	TxKindRefund    = "refund"
	TxKindPayout    = "payout"
	TxKindReward    = "reward"
	TxKindFee       = "fee"
)
