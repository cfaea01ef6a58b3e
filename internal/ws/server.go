package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"cardroom/internal/auth"
	"cardroom/internal/game"
	"cardroom/internal/ledger"
	"cardroom/internal/room"
)

// BalanceReader is the read side of the wallet the hub exposes.
type BalanceReader interface {
	Balance(ctx context.Context, userID string) (int64, error)
}

type Client struct {
	connID string
	userID string
	name   string
	conn   *websocket.Conn
	send   chan []byte
}

// Server upgrades connections, authenticates them and routes intents to
// the orchestrator. It also implements room.Notifier: one live connection
// per user, pushes fan out through buffered send channels so a slow client
// never stalls a settlement.
type Server struct {
	orch     *room.Orchestrator
	verifier auth.Verifier
	wallet   BalanceReader
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	byUser map[string]*Client
}

func NewServer(orch *room.Orchestrator, verifier auth.Verifier, wallet BalanceReader, log zerolog.Logger) *Server {
	return &Server{
		orch:     orch,
		verifier: verifier,
		wallet:   wallet,
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		byUser:   map[string]*Client{},
	}
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &Client{connID: uuid.NewString(), conn: conn, send: make(chan []byte, 32)}
	s.log.Debug().Str("conn", c.connID).Str("remote", r.RemoteAddr).Msg("connection opened")
	go s.writeLoop(c)
	s.readLoop(c)
}

func (s *Server) writeLoop(c *Client) {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (s *Server) readLoop(c *Client) {
	defer func() {
		s.unregister(c)
		_ = c.conn.Close()
	}()
	ctx := context.Background()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendError(c, "bad_message", "malformed message")
			continue
		}
		if msg.Type == MsgAuth {
			s.handleAuth(c, msg)
			continue
		}
		if c.userID == "" {
			s.sendError(c, "unauthenticated", "authenticate first")
			continue
		}
		s.handleIntent(ctx, c, msg)
	}
}

func (s *Server) handleAuth(c *Client, msg ClientMessage) {
	id, err := s.verifier.Verify(msg.Token)
	if err != nil {
		s.sendError(c, "invalid_token", "token rejected")
		return
	}
	c.userID = id.UserID
	c.name = id.DisplayName

	s.mu.Lock()
	if old := s.byUser[c.userID]; old != nil && old != c {
		close(old.send)
		_ = old.conn.Close()
	}
	s.byUser[c.userID] = c
	s.mu.Unlock()

	s.orch.Reconnect(c.userID)
	s.sendJSON(c, AuthResult{Type: "auth:ok", ProtocolVersion: ProtocolVersion, UserID: id.UserID, DisplayName: id.DisplayName})
	s.pushBalance(context.Background(), c)
}

func (s *Server) handleIntent(ctx context.Context, c *Client, msg ClientMessage) {
	var err error
	switch msg.Type {
	case MsgRoomCreate:
		var snap room.Snapshot
		snap, err = s.orch.CreateRoom(ctx, c.userID, c.name, game.Key(msg.GameKey), msg.Stake, msg.Seats)
		if err == nil {
			s.sendJoined(c, snap)
		}
	case MsgRoomJoin:
		var snap room.Snapshot
		snap, err = s.orch.JoinByCode(ctx, c.userID, c.name, msg.Code)
		if err == nil {
			s.sendJoined(c, snap)
		}
	case MsgRoomAuto:
		var snap room.Snapshot
		snap, err = s.orch.AutoJoin(ctx, c.userID, c.name, game.Key(msg.GameKey), msg.Stake)
		if err == nil {
			s.sendJoined(c, snap)
		}
	case MsgRoomLeave:
		err = s.orch.Leave(ctx, c.userID, msg.RoomID)
		if err == nil {
			s.sendJSON(c, RoomLeftEvent{Type: "room:left", ProtocolVersion: ProtocolVersion, RoomID: msg.RoomID})
		}
	case MsgRoomReady:
		err = s.orch.SetReady(ctx, c.userID, msg.RoomID, msg.Ready)
	case MsgRematch:
		err = s.orch.Rematch(ctx, c.userID, msg.RoomID)
	case MsgGameAction:
		err = s.orch.SubmitAction(ctx, c.userID, msg.RoomID, msg.Action)
	case MsgBalance:
		s.pushBalance(ctx, c)
		return
	default:
		s.sendError(c, "unknown_type", "unknown message type "+msg.Type)
		return
	}
	if err != nil {
		s.sendError(c, errorCode(err), err.Error())
		return
	}
	// Stakes move on start and settle; keep the client's number fresh.
	switch msg.Type {
	case MsgRoomReady, MsgRematch:
		s.pushBalance(ctx, c)
	}
}

func (s *Server) unregister(c *Client) {
	if c.userID == "" {
		return
	}
	s.mu.Lock()
	current := s.byUser[c.userID] == c
	if current {
		delete(s.byUser, c.userID)
	}
	s.mu.Unlock()
	safeClose(c.send)
	if current {
		s.orch.Disconnect(c.userID)
	}
}

func safeClose(ch chan []byte) {
	defer func() { _ = recover() }()
	close(ch)
}

func (s *Server) sendJSON(c *Client, v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal push")
		return
	}
	defer func() { _ = recover() }()
	select {
	case c.send <- msg:
	default:
		s.log.Warn().Str("user", c.userID).Msg("send buffer full, dropping push")
	}
}

func (s *Server) sendError(c *Client, code, message string) {
	s.sendJSON(c, ErrorEvent{Type: "error", ProtocolVersion: ProtocolVersion, Code: code, Message: message})
}

func (s *Server) pushBalance(ctx context.Context, c *Client) {
	bal, err := s.wallet.Balance(ctx, c.userID)
	if err != nil {
		return
	}
	s.sendJSON(c, BalanceEvent{Type: "wallet:balance", ProtocolVersion: ProtocolVersion, Balance: bal})
}

func (s *Server) sendJoined(c *Client, snap room.Snapshot) {
	seat := -1
	for _, si := range snap.Seats {
		if si.UserID == c.userID {
			seat = si.Seat
		}
	}
	s.sendJSON(c, RoomJoinedEvent{Type: "room:joined", ProtocolVersion: ProtocolVersion, Room: snap, Seat: seat})
}

func (s *Server) sendToUser(userID string, v any) {
	s.mu.Lock()
	c := s.byUser[userID]
	s.mu.Unlock()
	if c != nil {
		s.sendJSON(c, v)
	}
}

// RoomUpdate implements room.Notifier.
func (s *Server) RoomUpdate(snap room.Snapshot) {
	ev := RoomUpdateEvent{Type: "room:update", ProtocolVersion: ProtocolVersion, Room: snap}
	for _, seat := range snap.Seats {
		if !seat.IsBot {
			s.sendToUser(seat.UserID, ev)
		}
	}
}

// GameState implements room.Notifier: each user gets only their own view.
func (s *Server) GameState(roomID string, views map[string]any, events []game.Event) {
	for uid, view := range views {
		s.sendToUser(uid, GameStateEvent{
			Type: "game:state", ProtocolVersion: ProtocolVersion,
			RoomID: roomID, View: view, Events: events,
		})
	}
}

// MatchEnded implements room.Notifier.
func (s *Server) MatchEnded(summary room.MatchSummary) {
	ev := MatchEndedEvent{Type: "game:ended", ProtocolVersion: ProtocolVersion, Summary: summary}
	for uid := range summary.Outcomes {
		s.sendToUser(uid, ev)
		// Settlement just moved money.
		s.mu.Lock()
		c := s.byUser[uid]
		s.mu.Unlock()
		if c != nil {
			s.pushBalance(context.Background(), c)
		}
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, room.ErrRoomFull):
		return "room_full"
	case errors.Is(err, room.ErrUnknownGame):
		return "unknown_game"
	case errors.Is(err, room.ErrBadStake):
		return "bad_stake"
	case errors.Is(err, room.ErrBadSeatCount):
		return "bad_seat_count"
	case errors.Is(err, room.ErrAlreadySeated):
		return "already_seated"
	case errors.Is(err, room.ErrNotSeated):
		return "not_seated"
	case errors.Is(err, room.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, room.ErrIllegalAction):
		return "illegal_action"
	case errors.Is(err, room.ErrRoomNotWaiting):
		return "room_not_waiting"
	case errors.Is(err, room.ErrNoMatch):
		return "no_match"
	case errors.Is(err, room.ErrNothingToRematch):
		return "nothing_to_rematch"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "insufficient_funds"
	default:
		return "internal_error"
	}
}
