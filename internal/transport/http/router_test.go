package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cardroom/internal/auth"
	"cardroom/internal/ledger"
	"cardroom/internal/rewards"
	"cardroom/internal/room"
	"cardroom/internal/store"
	"cardroom/internal/testutil"
)

func newTestAPI(t *testing.T) (*httptest.Server, *store.Store, *auth.HS256Verifier) {
	t.Helper()
	st, cleanup := testutil.OpenTestStore(t)
	t.Cleanup(cleanup)

	led := ledger.New(st)
	rewardsSvc := rewards.New(led, 500, 24*time.Hour, 1000)
	verifier := auth.NewHS256("test-secret")
	router := NewRouter(st, room.NewRegistry(), rewardsSvc, verifier, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotImplemented)
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts, st, verifier
}

func apiGet(t *testing.T, ts *httptest.Server, path, token string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, body
}

func apiPost(t *testing.T, ts *httptest.Server, path, token string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, body
}

func TestHealthz(t *testing.T) {
	ts, _, _ := newTestAPI(t)
	status, _ := apiGet(t, ts, "/healthz", "")
	if status != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", status)
	}
}

func TestWalletEndpointsRequireAuth(t *testing.T) {
	ts, _, _ := newTestAPI(t)
	for _, path := range []string{"/api/wallet", "/api/wallet/ledger", "/api/rewards/daily"} {
		status, _ := apiGet(t, ts, path, "")
		if status != http.StatusUnauthorized {
			t.Fatalf("%s status = %d, want 401", path, status)
		}
	}
}

func TestWalletBalanceAndRewardFlow(t *testing.T) {
	ts, st, verifier := newTestAPI(t)
	ctx := context.Background()
	token, err := verifier.Sign(auth.Identity{UserID: "u1", DisplayName: "Alice"}, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	// No wallet yet reads as zero.
	status, body := apiGet(t, ts, "/api/wallet", token)
	if status != http.StatusOK {
		t.Fatalf("wallet status = %d, want 200: %s", status, body)
	}
	var bal balanceResponse
	if err := json.Unmarshal(body, &bal); err != nil {
		t.Fatalf("unmarshal balance: %v", err)
	}
	if bal.Balance != 0 {
		t.Fatalf("fresh balance = %d, want 0", bal.Balance)
	}

	if err := st.EnsureWallet(ctx, "u1", 1000); err != nil {
		t.Fatalf("ensure wallet: %v", err)
	}

	status, body = apiPost(t, ts, "/api/rewards/daily/claim", token)
	if status != http.StatusOK {
		t.Fatalf("claim status = %d, want 200: %s", status, body)
	}
	status, _ = apiPost(t, ts, "/api/rewards/daily/claim", token)
	if status != http.StatusConflict {
		t.Fatalf("second claim status = %d, want 409", status)
	}

	status, body = apiGet(t, ts, "/api/wallet", token)
	if status != http.StatusOK {
		t.Fatalf("wallet status = %d, want 200", status)
	}
	if err := json.Unmarshal(body, &bal); err != nil {
		t.Fatalf("unmarshal balance: %v", err)
	}
	if bal.Balance != 1500 {
		t.Fatalf("balance after claim = %d, want 1500", bal.Balance)
	}

	status, body = apiGet(t, ts, "/api/wallet/ledger?kind=reward", token)
	if status != http.StatusOK {
		t.Fatalf("ledger status = %d, want 200", status)
	}
	var ledgerResp struct {
		Entries []ledgerEntry `json:"entries"`
	}
	if err := json.Unmarshal(body, &ledgerResp); err != nil {
		t.Fatalf("unmarshal ledger: %v", err)
	}
	if len(ledgerResp.Entries) != 1 || ledgerResp.Entries[0].Amount != 500 {
		t.Fatalf("unexpected ledger entries: %+v", ledgerResp.Entries)
	}
}

func TestMatchReplayEndpoint(t *testing.T) {
	ts, st, _ := newTestAPI(t)
	ctx := context.Background()

	status, _ := apiGet(t, ts, "/api/matches/missing/replay", "")
	if status != http.StatusNotFound {
		t.Fatalf("missing match status = %d, want 404", status)
	}

	matchID := store.NewID()
	err := st.CreateMatch(ctx, store.Match{
		ID: matchID, RoomCode: "AB23C", GameKey: "spades", Stake: 100, Status: store.MatchStatusActive, Seed: 7,
	}, []store.MatchPlayer{
		{MatchID: matchID, UserID: "u1", Seat: 0},
		{MatchID: matchID, UserID: "cpu:r1:1", Seat: 1, IsBot: true},
	})
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	if _, err := st.AppendMatchEvent(ctx, matchID, "", "match:start", map[string]any{"ordinal": 1}); err != nil {
		t.Fatalf("append event: %v", err)
	}
	if _, err := st.AppendMatchEvent(ctx, matchID, "u1", "turn:timeout", map[string]any{"player": "P1"}); err != nil {
		t.Fatalf("append event: %v", err)
	}

	status, body := apiGet(t, ts, "/api/matches/"+matchID+"/replay", "")
	if status != http.StatusOK {
		t.Fatalf("replay status = %d, want 200: %s", status, body)
	}
	var resp matchReplayResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal replay: %v", err)
	}
	if resp.Match.ID != matchID || resp.Match.GameKey != "spades" {
		t.Fatalf("unexpected match: %+v", resp.Match)
	}
	if len(resp.Players) != 2 || len(resp.Events) != 2 {
		t.Fatalf("players=%d events=%d, want 2 and 2", len(resp.Players), len(resp.Events))
	}
	if resp.Events[0].Name != "match:start" || resp.Events[0].Seq != 1 {
		t.Fatalf("unexpected first event: %+v", resp.Events[0])
	}

	status, body = apiGet(t, ts, "/api/matches/"+matchID+"/replay?after_seq=1", "")
	if status != http.StatusOK {
		t.Fatalf("replay resume status = %d, want 200", status)
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal replay: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].Seq != 2 {
		t.Fatalf("unexpected resumed events: %+v", resp.Events)
	}
	if resp.Events[0].Actor != "u1" {
		t.Fatalf("actor missing from replay: %+v", resp.Events[0])
	}
}
