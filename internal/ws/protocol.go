package ws

import (
	"encoding/json"

	"cardroom/internal/game"
	"cardroom/internal/room"
)

const ProtocolVersion = "1.0"

// ClientMessage is the single envelope for everything a client sends.
// Type selects which fields matter.
type ClientMessage struct {
	Type    string          `json:"type"`
	Token   string          `json:"token,omitempty"`
	GameKey string          `json:"gameKey,omitempty"`
	Stake   int64           `json:"stake,omitempty"`
	Seats   int             `json:"seats,omitempty"`
	Code    string          `json:"code,omitempty"`
	RoomID  string          `json:"roomId,omitempty"`
	Ready   bool            `json:"ready,omitempty"`
	Action  json.RawMessage `json:"action,omitempty"`
}

// Client message types.
const (
	MsgAuth       = "auth"
	MsgRoomCreate = "room:create"
	MsgRoomJoin   = "room:join"
	MsgRoomAuto   = "room:autojoin"
	MsgRoomLeave  = "room:leave"
	MsgRoomReady  = "room:ready"
	MsgRematch    = "room:rematch"
	MsgGameAction = "game:action"
	MsgBalance    = "wallet:balance"
)

type AuthResult struct {
	Type            string `json:"type"` // auth:ok
	ProtocolVersion string `json:"protocol_version"`
	UserID          string `json:"userId"`
	DisplayName     string `json:"displayName"`
}

type ErrorEvent struct {
	Type            string `json:"type"` // error
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

type BalanceEvent struct {
	Type            string `json:"type"` // wallet:balance
	ProtocolVersion string `json:"protocol_version"`
	Balance         int64  `json:"balance"`
}

type RoomJoinedEvent struct {
	Type            string        `json:"type"` // room:joined
	ProtocolVersion string        `json:"protocol_version"`
	Room            room.Snapshot `json:"room"`
	Seat            int           `json:"seat"`
}

type RoomLeftEvent struct {
	Type            string `json:"type"` // room:left
	ProtocolVersion string `json:"protocol_version"`
	RoomID          string `json:"roomId"`
}

type RoomUpdateEvent struct {
	Type            string        `json:"type"` // room:update
	ProtocolVersion string        `json:"protocol_version"`
	Room            room.Snapshot `json:"room"`
}

type GameStateEvent struct {
	Type            string       `json:"type"` // game:state
	ProtocolVersion string       `json:"protocol_version"`
	RoomID          string       `json:"roomId"`
	View            any          `json:"view"`
	Events          []game.Event `json:"events,omitempty"`
}

type MatchEndedEvent struct {
	Type            string            `json:"type"` // game:ended
	ProtocolVersion string            `json:"protocol_version"`
	Summary         room.MatchSummary `json:"summary"`
}
