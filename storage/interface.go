package storage

import "context"

// PlayerResult is one seat's final result in a finished game.
type PlayerResult struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Points   int    `json:"points"`
	Winner   bool   `json:"winner"`
}

// GameRecord is one finished game as returned to history queries.
type GameRecord struct {
	GameID       string         `json:"gameId"`
	PlayedAt     string         `json:"playedAt"`
	RecallCaller string         `json:"recallCaller,omitempty"`
	EndReason    string         `json:"endReason,omitempty"`
	Players      []PlayerResult `json:"players"`
}

// LeaderboardEntry is one row of the global leaderboard.
type LeaderboardEntry struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Games    int    `json:"games"`
	Wins     int    `json:"wins"`
	// AvgPoints is the mean final hand score; lower is better in Recall.
	AvgPoints float64 `json:"avgPoints"`
}

// HistoryStore abstracts persistence for finished games and the
// leaderboard. Implementations can be swapped for testing or different
// backends.
type HistoryStore interface {
	InsertGameResult(ctx context.Context, gameID, recallCaller, endReason string, players []PlayerResult) error
	ListByPlayerID(ctx context.Context, playerID string) ([]GameRecord, error)
	ListLeaderboard(ctx context.Context, limit, offset int) ([]LeaderboardEntry, error)
	Close()
}

// Ensure *Store implements HistoryStore at compile time.
var _ HistoryStore = (*Store)(nil)
