package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateMatch(ctx context.Context, m Match, players []MatchPlayer) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO matches (id, room_code, game_key, stake, status, seed)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			m.ID, m.RoomCode, m.GameKey, m.Stake, m.Status, m.Seed)
		if err != nil {
			return err
		}
		for _, p := range players {
			_, err := tx.Exec(ctx,
				`INSERT INTO match_players (match_id, user_id, seat, is_bot)
				 VALUES ($1, $2, $3, $4)`,
				m.ID, p.UserID, p.Seat, p.IsBot)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetMatch(ctx context.Context, id string) (*Match, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT id, room_code, game_key, stake, status, seed, created_at, ended_at
		 FROM matches WHERE id = $1`, id)
	var m Match
	if err := row.Scan(&m.ID, &m.RoomCode, &m.GameKey, &m.Stake, &m.Status, &m.Seed, &m.CreatedAt, &m.EndedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// MarkMatchEndedTx moves a match to a terminal status inside tx so the
// status flip commits atomically with the settlement that caused it.
func MarkMatchEndedTx(ctx context.Context, tx pgx.Tx, matchID, status string) error {
	tag, err := tx.Exec(ctx,
		`UPDATE matches SET status = $2, ended_at = now()
		 WHERE id = $1 AND status = $3`,
		matchID, status, MatchStatusActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) UpdateMatchPlayerResult(ctx context.Context, matchID, userID, outcome string, net int64) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE match_players SET outcome = $3, net = $4
		 WHERE match_id = $1 AND user_id = $2`,
		matchID, userID, outcome, net)
	return err
}

// AppendMatchEvent assigns the next sequence number for the match and
// inserts the event. The actor is the user id behind the event, empty for
// server-originated events. Sequence numbers are dense and start at 1.
func (s *Store) AppendMatchEvent(ctx context.Context, matchID, actor, name string, payload any) (int64, error) {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return 0, err
		}
	}
	var seq int64
	err := s.Pool.QueryRow(ctx,
		`INSERT INTO match_events (match_id, seq, actor, name, payload)
		 SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3, $4
		 FROM match_events WHERE match_id = $1
		 RETURNING seq`,
		matchID, actor, name, data).Scan(&seq)
	return seq, err
}

func (s *Store) ListMatchEvents(ctx context.Context, matchID string, afterSeq int64) ([]MatchEvent, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT match_id, seq, actor, name, COALESCE(payload, 'null'::jsonb), created_at
		 FROM match_events
		 WHERE match_id = $1 AND seq > $2
		 ORDER BY seq`,
		matchID, afterSeq)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MatchEvent
	for rows.Next() {
		var e MatchEvent
		if err := rows.Scan(&e.MatchID, &e.Seq, &e.Actor, &e.Name, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ListMatchPlayers(ctx context.Context, matchID string) ([]MatchPlayer, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT match_id, user_id, seat, is_bot, outcome, net
		 FROM match_players WHERE match_id = $1 ORDER BY seat`,
		matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MatchPlayer
	for rows.Next() {
		var p MatchPlayer
		if err := rows.Scan(&p.MatchID, &p.UserID, &p.Seat, &p.IsBot, &p.Outcome, &p.Net); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
