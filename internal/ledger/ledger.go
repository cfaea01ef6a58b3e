package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"cardroom/internal/store"

	"github.com/jackc/pgx/v5"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

// Ledger moves wallet balances through append-only, idempotency-keyed
// transactions. Every mutation runs inside one database transaction with
// the affected wallet rows locked, so a settlement either applies in full
// or not at all, and replaying a call with the same keys applies nothing.
type Ledger struct {
	Store *store.Store
}

func New(s *store.Store) *Ledger {
	return &Ledger{Store: s}
}

func (l *Ledger) EnsureWallet(ctx context.Context, userID string, startingBalance int64) error {
	return l.Store.EnsureWallet(ctx, userID, startingBalance)
}

func (l *Ledger) Balance(ctx context.Context, userID string) (int64, error) {
	return l.Store.GetBalance(ctx, userID)
}

func lockKey(matchID, userID string) string   { return fmt.Sprintf("lock:%s:%s", matchID, userID) }
func refundKey(matchID, userID string) string { return fmt.Sprintf("refund:%s:%s", matchID, userID) }
func payoutKey(matchID, userID string) string { return fmt.Sprintf("payout:%s:%s", matchID, userID) }

// Wallet rows are always locked in sorted user order so two settlements
// touching the same users cannot deadlock.
func lockAll(ctx context.Context, tx pgx.Tx, userIDs []string) (map[string]int64, error) {
	sorted := append([]string(nil), userIDs...)
	sort.Strings(sorted)
	balances := make(map[string]int64, len(sorted))
	for _, uid := range sorted {
		bal, err := store.LockWalletTx(ctx, tx, uid)
		if err != nil {
			return nil, fmt.Errorf("lock wallet %s: %w", uid, err)
		}
		balances[uid] = bal
	}
	return balances, nil
}

// LockStake debits every participant's stake. If any participant cannot
// cover the stake nothing is debited. Replays are harmless: a user whose
// lock row already exists is skipped without a second debit.
func (l *Ledger) LockStake(ctx context.Context, matchID, gameKey string, stake int64, userIDs []string) error {
	if stake <= 0 || len(userIDs) == 0 {
		return nil
	}
	return l.Store.WithTx(ctx, func(tx pgx.Tx) error {
		balances, err := lockAll(ctx, tx, userIDs)
		if err != nil {
			return err
		}
		for _, uid := range userIDs {
			applied, err := store.InsertTransactionTx(ctx, tx, store.LedgerTransaction{
				ID:             store.NewID(),
				IdempotencyKey: lockKey(matchID, uid),
				UserID:         uid,
				Amount:         -stake,
				Kind:           store.TxKindStakeLock,
				MatchID:        matchID,
				GameKey:        gameKey,
			})
			if err != nil {
				return err
			}
			if !applied {
				// Replay of a lock that already landed.
				continue
			}
			if balances[uid] < stake {
				return fmt.Errorf("user %s: %w", uid, ErrInsufficientFunds)
			}
			if err := store.MoveBalanceTx(ctx, tx, uid, -stake); err != nil {
				return err
			}
		}
		return nil
	})
}

// RefundStake returns every participant's stake and moves the match to the
// given terminal status, all in one transaction.
func (l *Ledger) RefundStake(ctx context.Context, matchID, gameKey string, stake int64, userIDs []string, status string) error {
	meta, _ := json.Marshal(map[string]string{"reason": status})
	return l.Store.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockAll(ctx, tx, userIDs); err != nil {
			return err
		}
		for _, uid := range userIDs {
			_, err := store.ApplyTransactionTx(ctx, tx, store.LedgerTransaction{
				ID:             store.NewID(),
				IdempotencyKey: refundKey(matchID, uid),
				UserID:         uid,
				Amount:         stake,
				Kind:           store.TxKindRefund,
				MatchID:        matchID,
				GameKey:        gameKey,
				Metadata:       meta,
			})
			if err != nil {
				return err
			}
		}
		return store.MarkMatchEndedTx(ctx, tx, matchID, status)
	})
}

// SettleWinnerTakeAll pays the whole pot to a single winner. Participants
// are the users whose stakes were locked; pushes get their stake back
// instead of contesting the pot. A single participant plays against the
// house, which matches the stake: a win pays double, a push refunds.
//
// markEnded controls whether the match row flips to settled here. Per-seat
// games settle each seat with its own call and flip the status on the last
// one.
func (l *Ledger) SettleWinnerTakeAll(ctx context.Context, matchID, gameKey string, stake int64, participants []string, winner string, pushes []string, markEnded bool) error {
	pushed := make(map[string]bool, len(pushes))
	for _, uid := range pushes {
		pushed[uid] = true
	}
	pot := int64(0)
	for _, uid := range participants {
		if !pushed[uid] {
			pot += stake
		}
	}
	if len(participants) == 1 {
		// Versus the house.
		if winner != "" {
			pot = 2 * stake
		}
	}
	return l.Store.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockAll(ctx, tx, participants); err != nil {
			return err
		}
		for _, uid := range pushes {
			_, err := store.ApplyTransactionTx(ctx, tx, store.LedgerTransaction{
				ID:             store.NewID(),
				IdempotencyKey: refundKey(matchID, uid),
				UserID:         uid,
				Amount:         stake,
				Kind:           store.TxKindRefund,
				MatchID:        matchID,
				GameKey:        gameKey,
			})
			if err != nil {
				return err
			}
		}
		if winner != "" && pot > 0 {
			_, err := store.ApplyTransactionTx(ctx, tx, store.LedgerTransaction{
				ID:             store.NewID(),
				IdempotencyKey: payoutKey(matchID, winner),
				UserID:         winner,
				Amount:         pot,
				Kind:           store.TxKindPayout,
				MatchID:        matchID,
				GameKey:        gameKey,
			})
			if err != nil {
				return err
			}
		}
		if markEnded {
			return store.MarkMatchEndedTx(ctx, tx, matchID, store.MatchStatusSettled)
		}
		return nil
	})
}

// SettleSplitPot divides the pot evenly among winners. The remainder after
// integer division goes out one unit at a time following winner order, so
// the split is deterministic. Winners must be a subset of participants;
// with a single participant the house matches the stake.
func (l *Ledger) SettleSplitPot(ctx context.Context, matchID, gameKey string, stake int64, participants, winners []string) error {
	pot := stake * int64(len(participants))
	if len(participants) == 1 && len(winners) == 1 {
		pot = 2 * stake
	}
	return l.Store.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockAll(ctx, tx, participants); err != nil {
			return err
		}
		if len(winners) > 0 && pot > 0 {
			share := pot / int64(len(winners))
			rem := pot % int64(len(winners))
			for i, uid := range winners {
				amount := share
				if int64(i) < rem {
					amount++
				}
				_, err := store.ApplyTransactionTx(ctx, tx, store.LedgerTransaction{
					ID:             store.NewID(),
					IdempotencyKey: payoutKey(matchID, uid),
					UserID:         uid,
					Amount:         amount,
					Kind:           store.TxKindPayout,
					MatchID:        matchID,
					GameKey:        gameKey,
				})
				if err != nil {
					return err
				}
			}
		}
		return store.MarkMatchEndedTx(ctx, tx, matchID, store.MatchStatusSettled)
	})
}

// GrantReward credits amount under the caller's idempotency key. Returns
// false when the key was already used.
func (l *Ledger) GrantReward(ctx context.Context, userID string, amount int64, idempotencyKey string) (bool, error) {
	var applied bool
	err := l.Store.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := store.LockWalletTx(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		applied, err = store.ApplyTransactionTx(ctx, tx, store.LedgerTransaction{
			ID:             store.NewID(),
			IdempotencyKey: idempotencyKey,
			UserID:         userID,
			Amount:         amount,
			Kind:           store.TxKindReward,
		})
		return err
	})
	return applied, err
}
