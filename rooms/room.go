package rooms

import (
	"sync"
	"time"

	"recall-server/ai"
	"recall-server/game"
)

// Room binds one game actor to its members and bots. All fields besides
// Game are guarded by the owning registry's mutex.
type Room struct {
	ID         string
	CreatorID  string
	Permission game.Permission
	Game       *game.Game

	fanout    *fanout
	members   map[string]string // playerID -> display name
	bots      []*ai.Bot
	started   bool
	closed    bool
	createdAt time.Time
}

// Submit forwards an action into the room's game loop.
func (r *Room) Submit(action game.Action) {
	r.Game.Submit(action)
}

// RoomSummary is the lobby-facing description of a room.
type RoomSummary struct {
	ID         string `json:"id"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Started    bool   `json:"started"`
	CreatedAt  int64  `json:"createdAt"` // unix seconds
}

// fanout relays engine notifications to the transport layer and to every
// bot seated in the room. Bots receive exactly the views a human would.
type fanout struct {
	mu        sync.RWMutex
	transport game.Notifier
	bots      []*ai.Bot
}

func (f *fanout) addBot(b *ai.Bot) {
	f.mu.Lock()
	f.bots = append(f.bots, b)
	f.mu.Unlock()
}

func (f *fanout) each(fn func(n game.Notifier)) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.transport != nil {
		fn(f.transport)
	}
	for _, b := range f.bots {
		fn(b)
	}
}

func (f *fanout) GameStateUpdated(gameID string, views map[string]game.StateView) {
	f.each(func(n game.Notifier) { n.GameStateUpdated(gameID, views) })
}

func (f *fanout) TurnStarted(gameID, playerID string) {
	f.each(func(n game.Notifier) { n.TurnStarted(gameID, playerID) })
}

func (f *fanout) RoundCompleted(gameID string, summary game.FinalScores) {
	f.each(func(n game.Notifier) { n.RoundCompleted(gameID, summary) })
}

func (f *fanout) ActionResult(gameID, playerID string, result game.ActionResult) {
	f.each(func(n game.Notifier) { n.ActionResult(gameID, playerID, result) })
}
