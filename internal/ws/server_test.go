package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"cardroom/internal/auth"
	"cardroom/internal/game"
	"cardroom/internal/game/blackjack"
	"cardroom/internal/game/holdem"
	"cardroom/internal/game/spades"
	"cardroom/internal/ledger"
	"cardroom/internal/room"
	"cardroom/internal/store"
)

// memLedger stands in for the real ledger: wallets only exist once
// EnsureWallet has run, mirroring the database-backed behaviour.
type memLedger struct {
	mu       sync.Mutex
	balances map[string]int64
}

func newMemLedger() *memLedger {
	return &memLedger{balances: map[string]int64{}}
}

func (l *memLedger) EnsureWallet(_ context.Context, userID string, starting int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.balances[userID]; !ok {
		l.balances[userID] = starting
	}
	return nil
}

func (l *memLedger) LockStake(_ context.Context, _, _ string, stake int64, userIDs []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range userIDs {
		if l.balances[id] < stake {
			return ledger.ErrInsufficientFunds
		}
	}
	for _, id := range userIDs {
		l.balances[id] -= stake
	}
	return nil
}

func (l *memLedger) RefundStake(_ context.Context, _, _ string, stake int64, userIDs []string, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range userIDs {
		l.balances[id] += stake
	}
	return nil
}

func (l *memLedger) SettleWinnerTakeAll(_ context.Context, _, _ string, stake int64, participants []string, winner string, pushes []string, _ bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	pot := int64(0)
	for _, p := range participants {
		pushed := false
		for _, q := range pushes {
			if q == p {
				pushed = true
			}
		}
		if pushed {
			l.balances[p] += stake
		} else {
			pot += stake
		}
	}
	if winner != "" {
		l.balances[winner] += pot
	}
	return nil
}

func (l *memLedger) SettleSplitPot(_ context.Context, _, _ string, stake int64, participants, winners []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	pot := stake * int64(len(participants))
	share := pot / int64(len(winners))
	for _, w := range winners {
		l.balances[w] += share
	}
	return nil
}

func (l *memLedger) Balance(_ context.Context, userID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal, ok := l.balances[userID]
	if !ok {
		return 0, errors.New("no wallet")
	}
	return bal, nil
}

type memMatches struct{}

func (memMatches) CreateMatch(context.Context, store.Match, []store.MatchPlayer) error { return nil }
func (memMatches) AppendMatchEvent(context.Context, string, string, string, any) (int64, error) {
	return 1, nil
}
func (memMatches) UpdateMatchPlayerResult(context.Context, string, string, string, int64) error {
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *auth.HS256Verifier, *memLedger) {
	t.Helper()
	verifier := auth.NewHS256("test-secret")
	led := newMemLedger()
	plugins := map[game.Key]game.Plugin{
		game.KeyBlackjack: blackjack.New(),
		game.KeySpades:    spades.New(),
		game.KeyHoldem:    holdem.New(),
	}
	orch := room.NewOrchestrator(room.NewRegistry(), plugins, led, memMatches{}, nil, zerolog.Nop(), room.Settings{
		TurnTimeout:     20 * time.Second,
		ReconnectGrace:  30 * time.Second,
		RoomIdleAfter:   10 * time.Minute,
		StartingBalance: 1000,
	})
	srv := NewServer(orch, verifier, led, zerolog.Nop())
	orch.Notify = srv

	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWS))
	t.Cleanup(ts.Close)
	return ts, verifier, led
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readEvent reads server pushes until one of the wanted type arrives.
func readEvent(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var ev map[string]any
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if ev["type"] == want {
			return ev
		}
	}
}

func authenticate(t *testing.T, conn *websocket.Conn, verifier *auth.HS256Verifier, userID, name string) {
	t.Helper()
	token, err := verifier.Sign(auth.Identity{UserID: userID, DisplayName: name}, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := conn.WriteJSON(ClientMessage{Type: MsgAuth, Token: token}); err != nil {
		t.Fatalf("write auth: %v", err)
	}
	ev := readEvent(t, conn, "auth:ok")
	if ev["userId"] != userID {
		t.Fatalf("expected userId %s, got %v", userID, ev["userId"])
	}
}

func TestIntentBeforeAuthRejected(t *testing.T) {
	ts, _, _ := newTestServer(t)
	conn := dial(t, ts)

	if err := conn.WriteJSON(ClientMessage{Type: MsgRoomCreate, GameKey: "spades", Stake: 100, Seats: 4}); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev := readEvent(t, conn, "error")
	if ev["code"] != "unauthenticated" {
		t.Fatalf("expected unauthenticated, got %v", ev["code"])
	}
}

func TestAuthRejectsBadToken(t *testing.T) {
	ts, _, _ := newTestServer(t)
	conn := dial(t, ts)

	if err := conn.WriteJSON(ClientMessage{Type: MsgAuth, Token: "not-a-token"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev := readEvent(t, conn, "error")
	if ev["code"] != "invalid_token" {
		t.Fatalf("expected invalid_token, got %v", ev["code"])
	}
}

func TestCreateRoomPushesSnapshotAndBalance(t *testing.T) {
	ts, verifier, _ := newTestServer(t)
	conn := dial(t, ts)
	authenticate(t, conn, verifier, "u1", "Alice")

	if err := conn.WriteJSON(ClientMessage{Type: MsgRoomCreate, GameKey: "spades", Stake: 100, Seats: 4}); err != nil {
		t.Fatalf("write create: %v", err)
	}
	joined := readEvent(t, conn, "room:joined")
	if joined["seat"] != float64(0) {
		t.Fatalf("expected seat 0, got %v", joined["seat"])
	}
	snap, ok := joined["room"].(map[string]any)
	if !ok {
		t.Fatalf("missing room snapshot: %v", joined)
	}
	if snap["gameKey"] != "spades" {
		t.Fatalf("expected spades, got %v", snap["gameKey"])
	}
	code, _ := snap["code"].(string)
	if len(code) != 5 {
		t.Fatalf("expected 5-char join code, got %q", code)
	}
	seats, _ := snap["seats"].([]any)
	if len(seats) != 1 {
		t.Fatalf("expected creator seated alone, got %d seats", len(seats))
	}

	// Joining created the wallet, so the balance is now readable.
	if err := conn.WriteJSON(ClientMessage{Type: MsgBalance}); err != nil {
		t.Fatalf("write balance: %v", err)
	}
	bal := readEvent(t, conn, "wallet:balance")
	if bal["balance"] != float64(1000) {
		t.Fatalf("expected balance 1000, got %v", bal["balance"])
	}
}

func TestJoinByCodeFansOutToBothSeats(t *testing.T) {
	ts, verifier, _ := newTestServer(t)

	c1 := dial(t, ts)
	authenticate(t, c1, verifier, "u1", "Alice")
	if err := c1.WriteJSON(ClientMessage{Type: MsgRoomCreate, GameKey: "holdem", Stake: 100, Seats: 4}); err != nil {
		t.Fatalf("write create: %v", err)
	}
	ev := readEvent(t, c1, "room:update")
	snap := ev["room"].(map[string]any)
	code := snap["code"].(string)

	c2 := dial(t, ts)
	authenticate(t, c2, verifier, "u2", "Bob")
	if err := c2.WriteJSON(ClientMessage{Type: MsgRoomJoin, Code: code}); err != nil {
		t.Fatalf("write join: %v", err)
	}
	for _, conn := range []*websocket.Conn{c1, c2} {
		ev := readEvent(t, conn, "room:update")
		snap := ev["room"].(map[string]any)
		seats := snap["seats"].([]any)
		if len(seats) != 2 {
			t.Fatalf("expected 2 seats, got %d", len(seats))
		}
	}
}

func TestLeaveConfirmsWithRoomLeft(t *testing.T) {
	ts, verifier, _ := newTestServer(t)
	conn := dial(t, ts)
	authenticate(t, conn, verifier, "u1", "Alice")

	if err := conn.WriteJSON(ClientMessage{Type: MsgRoomCreate, GameKey: "spades", Stake: 100, Seats: 4}); err != nil {
		t.Fatalf("write create: %v", err)
	}
	joined := readEvent(t, conn, "room:joined")
	roomID := joined["room"].(map[string]any)["id"].(string)

	if err := conn.WriteJSON(ClientMessage{Type: MsgRoomLeave, RoomID: roomID}); err != nil {
		t.Fatalf("write leave: %v", err)
	}
	left := readEvent(t, conn, "room:left")
	if left["roomId"] != roomID {
		t.Fatalf("expected roomId %s, got %v", roomID, left["roomId"])
	}
}

func TestIntentErrorsCarryWireCodes(t *testing.T) {
	ts, verifier, _ := newTestServer(t)
	conn := dial(t, ts)
	authenticate(t, conn, verifier, "u1", "Alice")

	if err := conn.WriteJSON(ClientMessage{Type: MsgRoomJoin, Code: "ZZZZZ"}); err != nil {
		t.Fatalf("write join: %v", err)
	}
	ev := readEvent(t, conn, "error")
	if ev["code"] != "room_not_found" {
		t.Fatalf("expected room_not_found, got %v", ev["code"])
	}

	if err := conn.WriteJSON(ClientMessage{Type: "bogus"}); err != nil {
		t.Fatalf("write bogus: %v", err)
	}
	ev = readEvent(t, conn, "error")
	if ev["code"] != "unknown_type" {
		t.Fatalf("expected unknown_type, got %v", ev["code"])
	}
}

func TestErrorCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{room.ErrRoomFull, "room_full"},
		{fmt.Errorf("start match: %w", ledger.ErrInsufficientFunds), "insufficient_funds"},
		{room.ErrNotYourTurn, "not_your_turn"},
		{errors.New("boom"), "internal_error"},
	}
	for _, tc := range cases {
		if got := errorCode(tc.err); got != tc.code {
			t.Fatalf("errorCode(%v) = %s, want %s", tc.err, got, tc.code)
		}
	}
}
