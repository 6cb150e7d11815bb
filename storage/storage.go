package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS game_history (
	id            TEXT PRIMARY KEY,
	played_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	recall_caller TEXT,
	end_reason    TEXT
);
CREATE TABLE IF NOT EXISTS game_history_player (
	game_id   TEXT NOT NULL REFERENCES game_history(id),
	player_id TEXT NOT NULL,
	name      TEXT NOT NULL,
	type      TEXT NOT NULL DEFAULT 'human',
	points    INT  NOT NULL,
	winner    BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_game_history_player_game ON game_history_player(game_id);
CREATE INDEX IF NOT EXISTS idx_game_history_player_player ON game_history_player(player_id);
`

// Store persists and retrieves finished games.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to Postgres and ensures the history tables exist. If
// databaseURL is empty, NewStore returns (nil, nil) and no persistence
// occurs; callers must treat a nil store as a no-op.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("connected to Postgres", "tag", "storage")
	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// InsertGameResult records a finished game and all seat results in one
// transaction.
func (s *Store) InsertGameResult(ctx context.Context, gameID, recallCaller, endReason string, players []PlayerResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO game_history (id, recall_caller, end_reason) VALUES ($1, NULLIF($2, ''), $3)
		 ON CONFLICT (id) DO NOTHING`,
		gameID, recallCaller, endReason)
	if err != nil {
		return err
	}
	for _, p := range players {
		_, err = tx.Exec(ctx,
			`INSERT INTO game_history_player (game_id, player_id, name, type, points, winner)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			gameID, p.PlayerID, p.Name, p.Type, p.Points, p.Winner)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListByPlayerID returns the finished games a player took part in, newest
// first.
func (s *Store) ListByPlayerID(ctx context.Context, playerID string) ([]GameRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT gh.id, gh.played_at, COALESCE(gh.recall_caller, ''), COALESCE(gh.end_reason, '')
		 FROM game_history gh
		 JOIN game_history_player ghp ON ghp.game_id = gh.id
		 WHERE ghp.player_id = $1
		 ORDER BY gh.played_at DESC
		 LIMIT 50`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []GameRecord
	for rows.Next() {
		var rec GameRecord
		var playedAt time.Time
		if err := rows.Scan(&rec.GameID, &playedAt, &rec.RecallCaller, &rec.EndReason); err != nil {
			return nil, err
		}
		rec.PlayedAt = playedAt.Format(time.RFC3339)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range records {
		players, err := s.listGamePlayers(ctx, records[i].GameID)
		if err != nil {
			return nil, err
		}
		records[i].Players = players
	}
	return records, nil
}

func (s *Store) listGamePlayers(ctx context.Context, gameID string) ([]PlayerResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT player_id, name, type, points, winner
		 FROM game_history_player WHERE game_id = $1`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []PlayerResult
	for rows.Next() {
		var p PlayerResult
		if err := rows.Scan(&p.PlayerID, &p.Name, &p.Type, &p.Points, &p.Winner); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// ListLeaderboard aggregates per-player results across human seats. Ordered
// by wins, then by average final hand score ascending (lower is better).
func (s *Store) ListLeaderboard(ctx context.Context, limit, offset int) ([]LeaderboardEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT player_id, MAX(name), COUNT(*), COUNT(*) FILTER (WHERE winner), AVG(points)
		 FROM game_history_player
		 WHERE type = 'human'
		 GROUP BY player_id
		 ORDER BY COUNT(*) FILTER (WHERE winner) DESC, AVG(points) ASC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.PlayerID, &e.Name, &e.Games, &e.Wins, &e.AvgPoints); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
