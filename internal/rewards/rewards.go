package rewards

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cardroom/internal/ledger"
)

var ErrAlreadyClaimed = errors.New("reward already claimed")

// Service hands out the periodic free-chip reward. Claims are keyed by
// the window index so a user can collect once per window no matter how
// many times the request is retried.
type Service struct {
	Ledger *ledger.Ledger
	Amount int64
	Every  time.Duration

	// StartingBalance seeds wallets for users whose first money movement
	// is a reward claim rather than a match.
	StartingBalance int64

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

func New(l *ledger.Ledger, amount int64, every time.Duration, startingBalance int64) *Service {
	return &Service{
		Ledger:          l,
		Amount:          amount,
		Every:           every,
		StartingBalance: startingBalance,
		users:           map[string]*sync.Mutex{},
	}
}

func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.users[userID]
	if !ok {
		m = &sync.Mutex{}
		s.users[userID] = m
	}
	return m
}

func (s *Service) window(now time.Time) int64 {
	return now.Unix() / int64(s.Every.Seconds())
}

// NextEligible reports when the user can claim again assuming the current
// window is spent.
func (s *Service) NextEligible(now time.Time) time.Time {
	next := (s.window(now) + 1) * int64(s.Every.Seconds())
	return time.Unix(next, 0).UTC()
}

type Status struct {
	Amount       int64     `json:"amount"`
	Claimable    bool      `json:"claimable"`
	NextEligible time.Time `json:"nextEligible"`
}

func (s *Service) StatusFor(ctx context.Context, userID string, now time.Time) (Status, error) {
	key := s.claimKey(userID, now)
	claimed, err := s.alreadyClaimed(ctx, userID, key)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Amount:       s.Amount,
		Claimable:    !claimed,
		NextEligible: s.NextEligible(now),
	}, nil
}

// Claim grants the reward for the current window. A repeat claim in the
// same window returns ErrAlreadyClaimed and the balance stays put.
func (s *Service) Claim(ctx context.Context, userID string, now time.Time) (Status, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.Ledger.EnsureWallet(ctx, userID, s.StartingBalance); err != nil {
		return Status{}, err
	}
	applied, err := s.Ledger.GrantReward(ctx, userID, s.Amount, s.claimKey(userID, now))
	if err != nil {
		return Status{}, err
	}
	st := Status{Amount: s.Amount, Claimable: false, NextEligible: s.NextEligible(now)}
	if !applied {
		return st, ErrAlreadyClaimed
	}
	return st, nil
}

func (s *Service) claimKey(userID string, now time.Time) string {
	return fmt.Sprintf("reward:daily:%s:%d", userID, s.window(now))
}

func (s *Service) alreadyClaimed(ctx context.Context, _ string, key string) (bool, error) {
	return s.Ledger.Store.HasLedgerTransaction(ctx, key)
}
