package ledger_test

import (
	"context"
	"testing"

	"cardroom/internal/ledger"
	"cardroom/internal/store"
	"cardroom/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*ledger.Ledger, *store.Store, context.Context) {
	st, cleanup := testutil.OpenTestStore(t)
	t.Cleanup(cleanup)
	return ledger.New(st), st, context.Background()
}

func newMatch(t *testing.T, st *store.Store, ctx context.Context, id string, stake int64) {
	t.Helper()
	err := st.CreateMatch(ctx, store.Match{
		ID: id, RoomCode: "ABCDE", GameKey: "holdem", Stake: stake,
		Status: store.MatchStatusActive, Seed: 7,
	}, nil)
	require.NoError(t, err)
}

func TestLockStakeDebitsEveryone(t *testing.T) {
	l, st, ctx := setup(t)
	require.NoError(t, l.EnsureWallet(ctx, "u1", 1000))
	require.NoError(t, l.EnsureWallet(ctx, "u2", 1000))
	newMatch(t, st, ctx, "m1", 100)

	require.NoError(t, l.LockStake(ctx, "m1", "holdem", 100, []string{"u1", "u2"}))

	b1, err := l.Balance(ctx, "u1")
	require.NoError(t, err)
	b2, err := l.Balance(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(900), b1)
	assert.Equal(t, int64(900), b2)
}

func TestLockStakeAllOrNothing(t *testing.T) {
	l, st, ctx := setup(t)
	require.NoError(t, l.EnsureWallet(ctx, "rich", 1000))
	require.NoError(t, l.EnsureWallet(ctx, "poor", 50))
	newMatch(t, st, ctx, "m1", 100)

	err := l.LockStake(ctx, "m1", "holdem", 100, []string{"rich", "poor"})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	b, err := l.Balance(ctx, "rich")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), b, "no partial debit on failure")

	txs, err := st.ListLedgerTransactions(ctx, store.LedgerFilter{UserID: "rich"}, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestLockStakeReplayIsNoop(t *testing.T) {
	l, st, ctx := setup(t)
	require.NoError(t, l.EnsureWallet(ctx, "u1", 1000))
	newMatch(t, st, ctx, "m1", 100)

	require.NoError(t, l.LockStake(ctx, "m1", "holdem", 100, []string{"u1"}))
	require.NoError(t, l.LockStake(ctx, "m1", "holdem", 100, []string{"u1"}))

	b, err := l.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(900), b, "stake locked exactly once")

	txs, err := st.ListLedgerTransactions(ctx, store.LedgerFilter{UserID: "u1"}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
	assert.Equal(t, "holdem", txs[0].GameKey, "ledger rows record the game")
}

func TestRefundStakeRestoresAndCancels(t *testing.T) {
	l, st, ctx := setup(t)
	require.NoError(t, l.EnsureWallet(ctx, "u1", 1000))
	newMatch(t, st, ctx, "m1", 100)
	require.NoError(t, l.LockStake(ctx, "m1", "holdem", 100, []string{"u1"}))

	require.NoError(t, l.RefundStake(ctx, "m1", "holdem", 100, []string{"u1"}, store.MatchStatusCancelled))

	b, err := l.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), b)

	m, err := st.GetMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, store.MatchStatusCancelled, m.Status)

	txs, err := st.ListLedgerTransactions(ctx, store.LedgerFilter{UserID: "u1", Kind: store.TxKindRefund}, 10, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "holdem", txs[0].GameKey)
	assert.JSONEq(t, `{"reason":"cancelled"}`, string(txs[0].Metadata), "refund records why")

	// A second refund must fail on the status flip and apply nothing.
	err = l.RefundStake(ctx, "m1", "holdem", 100, []string{"u1"}, store.MatchStatusCancelled)
	require.Error(t, err)
	b, err = l.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), b)
}

func TestSettleWinnerTakeAllPot(t *testing.T) {
	l, st, ctx := setup(t)
	users := []string{"u1", "u2", "u3"}
	for _, u := range users {
		require.NoError(t, l.EnsureWallet(ctx, u, 1000))
	}
	newMatch(t, st, ctx, "m1", 100)
	require.NoError(t, l.LockStake(ctx, "m1", "holdem", 100, users))

	require.NoError(t, l.SettleWinnerTakeAll(ctx, "m1", "holdem", 100, users, "u2", nil, true))

	b1, _ := l.Balance(ctx, "u1")
	b2, _ := l.Balance(ctx, "u2")
	b3, _ := l.Balance(ctx, "u3")
	assert.Equal(t, int64(900), b1)
	assert.Equal(t, int64(1200), b2, "winner takes the whole pot")
	assert.Equal(t, int64(900), b3)

	m, err := st.GetMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, store.MatchStatusSettled, m.Status)
}

func TestSettleVersusHouseWinPaysDouble(t *testing.T) {
	l, st, ctx := setup(t)
	require.NoError(t, l.EnsureWallet(ctx, "u1", 1000))
	newMatch(t, st, ctx, "m1", 100)
	require.NoError(t, l.LockStake(ctx, "m1", "holdem", 100, []string{"u1"}))

	require.NoError(t, l.SettleWinnerTakeAll(ctx, "m1", "holdem", 100, []string{"u1"}, "u1", nil, true))

	b, err := l.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1100), b, "house matches the stake")
}

func TestSettleVersusHousePushRefunds(t *testing.T) {
	l, st, ctx := setup(t)
	require.NoError(t, l.EnsureWallet(ctx, "u1", 1000))
	newMatch(t, st, ctx, "m1", 100)
	require.NoError(t, l.LockStake(ctx, "m1", "holdem", 100, []string{"u1"}))

	require.NoError(t, l.SettleWinnerTakeAll(ctx, "m1", "holdem", 100, []string{"u1"}, "", []string{"u1"}, true))

	b, err := l.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), b)
}

func TestSettleSplitPotRemainderOrder(t *testing.T) {
	l, st, ctx := setup(t)
	users := []string{"u1", "u2", "u3"}
	for _, u := range users {
		require.NoError(t, l.EnsureWallet(ctx, u, 1000))
	}
	newMatch(t, st, ctx, "m1", 33)
	require.NoError(t, l.LockStake(ctx, "m1", "holdem", 33, users))

	// Pot 99 split between two winners: 50 to the first, 49 to the second.
	require.NoError(t, l.SettleSplitPot(ctx, "m1", "holdem", 33, users, []string{"u1", "u2"}))

	b1, _ := l.Balance(ctx, "u1")
	b2, _ := l.Balance(ctx, "u2")
	b3, _ := l.Balance(ctx, "u3")
	assert.Equal(t, int64(1000-33+50), b1)
	assert.Equal(t, int64(1000-33+49), b2)
	assert.Equal(t, int64(1000-33), b3)
	assert.Equal(t, int64(3000), b1+b2+b3, "settlement conserves money")
}

func TestSettleReplayIsNoop(t *testing.T) {
	l, st, ctx := setup(t)
	require.NoError(t, l.EnsureWallet(ctx, "u1", 1000))
	require.NoError(t, l.EnsureWallet(ctx, "u2", 1000))
	newMatch(t, st, ctx, "m1", 100)
	require.NoError(t, l.LockStake(ctx, "m1", "holdem", 100, []string{"u1", "u2"}))
	require.NoError(t, l.SettleWinnerTakeAll(ctx, "m1", "holdem", 100, []string{"u1", "u2"}, "u1", nil, true))

	// The retry fails on the already-ended match and pays nothing twice.
	err := l.SettleWinnerTakeAll(ctx, "m1", "holdem", 100, []string{"u1", "u2"}, "u1", nil, true)
	require.Error(t, err)

	b, err := l.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1100), b)
}

func TestGrantRewardIdempotent(t *testing.T) {
	l, _, ctx := setup(t)
	require.NoError(t, l.EnsureWallet(ctx, "u1", 0))

	applied, err := l.GrantReward(ctx, "u1", 500, "reward:daily:u1:20001")
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = l.GrantReward(ctx, "u1", 500, "reward:daily:u1:20001")
	require.NoError(t, err)
	assert.False(t, applied)

	b, err := l.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(500), b)
}
