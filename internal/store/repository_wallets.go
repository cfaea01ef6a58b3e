package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// EnsureWallet creates the wallet row if missing, seeding it with the
// starting balance. Existing wallets are left untouched.
func (s *Store) EnsureWallet(ctx context.Context, userID string, startingBalance int64) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO wallets (user_id, balance) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, startingBalance)
	return err
}

func (s *Store) GetWallet(ctx context.Context, userID string) (*Wallet, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT user_id, balance, created_at, updated_at FROM wallets WHERE user_id = $1`,
		userID)
	var w Wallet
	if err := row.Scan(&w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (s *Store) GetBalance(ctx context.Context, userID string) (int64, error) {
	w, err := s.GetWallet(ctx, userID)
	if err != nil {
		return 0, err
	}
	return w.Balance, nil
}

// LockWalletTx reads a wallet balance under FOR UPDATE inside tx. The row
// stays locked until the transaction ends.
func LockWalletTx(ctx context.Context, tx pgx.Tx, userID string) (int64, error) {
	var bal int64
	err := tx.QueryRow(ctx,
		`SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE`,
		userID).Scan(&bal)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return bal, err
}

// InsertTransactionTx records a ledger row without touching the wallet.
// A duplicate idempotency key inserts nothing and returns applied=false.
func InsertTransactionTx(ctx context.Context, tx pgx.Tx, t LedgerTransaction) (applied bool, err error) {
	tag, err := tx.Exec(ctx,
		`INSERT INTO ledger_transactions (id, idempotency_key, user_id, amount, kind, match_id, game_key, metadata)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)
		 ON CONFLICT (idempotency_key) DO NOTHING`,
		t.ID, t.IdempotencyKey, t.UserID, t.Amount, t.Kind, t.MatchID, t.GameKey, t.Metadata)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MoveBalanceTx shifts a wallet balance by amount.
func MoveBalanceTx(ctx context.Context, tx pgx.Tx, userID string, amount int64) error {
	_, err := tx.Exec(ctx,
		`UPDATE wallets SET balance = balance + $1, updated_at = now() WHERE user_id = $2`,
		amount, userID)
	return err
}

// ApplyTransactionTx inserts a ledger row and moves the wallet balance in
// one step. A duplicate idempotency key applies nothing and returns
// applied=false.
func ApplyTransactionTx(ctx context.Context, tx pgx.Tx, t LedgerTransaction) (bool, error) {
	applied, err := InsertTransactionTx(ctx, tx, t)
	if err != nil || !applied {
		return false, err
	}
	if err := MoveBalanceTx(ctx, tx, t.UserID, t.Amount); err != nil {
		return false, err
	}
	return true, nil
}

// HasLedgerTransaction reports whether a row with the idempotency key
// already exists.
func (s *Store) HasLedgerTransaction(ctx context.Context, idempotencyKey string) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM ledger_transactions WHERE idempotency_key = $1)`,
		idempotencyKey).Scan(&exists)
	return exists, err
}

type LedgerFilter struct {
	UserID  string
	MatchID string
	Kind    string
}

func (s *Store) ListLedgerTransactions(ctx context.Context, f LedgerFilter, limit, offset int) ([]LedgerTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT id, idempotency_key, user_id, amount, kind, COALESCE(match_id, ''),
		        COALESCE(game_key, ''), metadata, created_at
		 FROM ledger_transactions
		 WHERE user_id = $1
		   AND ($2 = '' OR match_id = $2)
		   AND ($3 = '' OR kind = $3)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $4 OFFSET $5`,
		f.UserID, f.MatchID, f.Kind, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]LedgerTransaction, 0, limit)
	for rows.Next() {
		var t LedgerTransaction
		if err := rows.Scan(&t.ID, &t.IdempotencyKey, &t.UserID, &t.Amount, &t.Kind, &t.MatchID, &t.GameKey, &t.Metadata, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
