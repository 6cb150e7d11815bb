package rooms

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"recall-server/ai"
	"recall-server/config"
	"recall-server/game"
	"recall-server/gameerrors"
	"recall-server/storage"
)

const persistTimeout = 5 * time.Second

// Registry owns every live room. It is the only place rooms are created,
// joined and torn down; the per-game state itself is only ever touched by
// the game's own goroutine.
type Registry struct {
	mu        sync.Mutex
	cfg       *config.Config
	store     storage.HistoryStore
	transport game.Notifier
	rooms     map[string]*Room
	byPlayer  map[string]string // playerID -> roomID
}

// NewRegistry creates an empty registry. store may be nil (no persistence).
func NewRegistry(cfg *config.Config, store storage.HistoryStore) *Registry {
	return &Registry{
		cfg:      cfg,
		store:    store,
		rooms:    make(map[string]*Room),
		byPlayer: make(map[string]string),
	}
}

// SetTransport wires the session-layer notifier. Must be called before any
// room is created; kept separate from the constructor because the transport
// needs the registry too.
func (reg *Registry) SetTransport(n game.Notifier) {
	reg.mu.Lock()
	reg.transport = n
	reg.mu.Unlock()
}

// CreateRoom creates a room with the creator already seated and starts its
// game loop.
func (reg *Registry) CreateRoom(creatorID, creatorName string, permission game.Permission) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, in := reg.byPlayer[creatorID]; in {
		return nil, gameerrors.ErrRoomExists
	}

	roomID := uuid.NewString()
	state := game.NewGameState(roomID, reg.cfg.MinPlayers, reg.cfg.MaxPlayers, permission, reg.cfg.IncludeJokers)
	fo := &fanout{transport: reg.transport}
	g := game.NewGame(state, reg.cfg, fo)

	room := &Room{
		ID:         roomID,
		CreatorID:  creatorID,
		Permission: permission,
		Game:       g,
		fanout:     fo,
		members:    map[string]string{creatorID: creatorName},
		createdAt:  time.Now(),
	}
	g.OnGameEnd = reg.gameEndHook(roomID)

	reg.rooms[roomID] = room
	reg.byPlayer[creatorID] = roomID

	go g.Run()
	g.Submit(game.Action{Type: game.ActionPlayerJoined, PlayerID: creatorID, PlayerName: creatorName, PlayerType: game.Human})

	slog.Info("room created", "tag", "rooms", "room", roomID, "creator", creatorID, "permission", string(permission))
	return room, nil
}

// JoinRoom seats a player in an existing room.
func (reg *Registry) JoinRoom(roomID, playerID, name string) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[roomID]
	if !ok {
		return nil, gameerrors.ErrRoomNotFound
	}
	if _, in := reg.byPlayer[playerID]; in {
		return nil, gameerrors.ErrRoomExists
	}
	if room.started {
		return nil, gameerrors.ErrAlreadyStarted
	}
	if len(room.members)+len(room.bots) >= reg.cfg.MaxPlayers {
		return nil, gameerrors.ErrRoomFull
	}

	room.members[playerID] = name
	reg.byPlayer[playerID] = roomID
	room.Submit(game.Action{Type: game.ActionPlayerJoined, PlayerID: playerID, PlayerName: name, PlayerType: game.Human})

	slog.Info("player joined room", "tag", "rooms", "room", roomID, "player", playerID)
	return room, nil
}

// AddComputer seats a bot. Only the room creator may add bots, and only
// before the match starts. Profiles rotate through the configured list.
func (reg *Registry) AddComputer(roomID, requesterID string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[roomID]
	if !ok {
		return gameerrors.ErrRoomNotFound
	}
	if room.CreatorID != requesterID {
		return gameerrors.ErrNotInRoom
	}
	if room.started {
		return gameerrors.ErrAlreadyStarted
	}
	if len(room.members)+len(room.bots) >= reg.cfg.MaxPlayers {
		return gameerrors.ErrRoomFull
	}
	if len(reg.cfg.AIProfiles) == 0 {
		return gameerrors.ErrInsufficientPlayers
	}

	params := reg.cfg.AIProfiles[len(room.bots)%len(reg.cfg.AIProfiles)]
	bot := ai.NewBot("bot-"+uuid.NewString(), params, room.Game)
	room.bots = append(room.bots, bot)
	room.fanout.addBot(bot)
	go bot.Run()

	room.Submit(game.Action{Type: game.ActionPlayerJoined, PlayerID: bot.ID, PlayerName: bot.Name, PlayerType: game.Computer})

	slog.Info("computer added", "tag", "rooms", "room", roomID, "bot", bot.ID, "profile", params.Name)
	return nil
}

// StartMatch deals the room's game. Only the creator may start.
func (reg *Registry) StartMatch(roomID, requesterID string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[roomID]
	if !ok {
		return gameerrors.ErrRoomNotFound
	}
	if _, in := room.members[requesterID]; !in {
		return gameerrors.ErrNotInRoom
	}
	if room.CreatorID != requesterID {
		return gameerrors.ErrNotInRoom
	}
	if room.started {
		return gameerrors.ErrAlreadyStarted
	}
	if len(room.members)+len(room.bots) < reg.cfg.MinPlayers {
		return gameerrors.ErrInsufficientPlayers
	}

	room.started = true
	room.Submit(game.Action{Type: game.ActionStartMatch, PlayerID: requesterID})
	return nil
}

// LeaveRoom removes the player from whatever room they occupy. An empty
// room (no humans left) is torn down.
func (reg *Registry) LeaveRoom(playerID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	roomID, in := reg.byPlayer[playerID]
	if !in {
		return
	}
	room := reg.rooms[roomID]
	delete(reg.byPlayer, playerID)
	delete(room.members, playerID)

	room.Submit(game.Action{Type: game.ActionPlayerLeft, PlayerID: playerID})

	if len(room.members) == 0 {
		reg.closeRoomLocked(roomID)
	}
}

// Get returns a room by ID.
func (reg *Registry) Get(roomID string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[roomID]
	return room, ok
}

// RoomForPlayer returns the room the player is currently seated in.
func (reg *Registry) RoomForPlayer(playerID string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	roomID, in := reg.byPlayer[playerID]
	if !in {
		return nil, false
	}
	room, ok := reg.rooms[roomID]
	return room, ok
}

// MemberIDs returns the IDs of the human players seated in a room.
func (reg *Registry) MemberIDs(roomID string) []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(room.members))
	for id := range room.members {
		out = append(out, id)
	}
	return out
}

// ListPublic returns summaries of joinable public rooms.
func (reg *Registry) ListPublic() []RoomSummary {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	out := []RoomSummary{}
	for _, room := range reg.rooms {
		if room.Permission != game.PermissionPublic || room.started {
			continue
		}
		out = append(out, RoomSummary{
			ID:         room.ID,
			Players:    len(room.members) + len(room.bots),
			MaxPlayers: reg.cfg.MaxPlayers,
			Started:    room.started,
			CreatedAt:  room.createdAt.Unix(),
		})
	}
	return out
}

// CloseRoom tears a room down regardless of game state.
func (reg *Registry) CloseRoom(roomID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.closeRoomLocked(roomID)
}

func (reg *Registry) closeRoomLocked(roomID string) {
	room, ok := reg.rooms[roomID]
	if !ok || room.closed {
		return
	}
	room.closed = true

	for _, b := range room.bots {
		b.Stop()
	}
	room.Submit(game.Action{Type: game.ActionGameClosed})

	for playerID, rid := range reg.byPlayer {
		if rid == roomID {
			delete(reg.byPlayer, playerID)
		}
	}
	delete(reg.rooms, roomID)
	slog.Info("room closed", "tag", "rooms", "room", roomID)
}

// Shutdown closes every room.
func (reg *Registry) Shutdown() {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for id := range reg.rooms {
		reg.closeRoomLocked(id)
	}
}

// gameEndHook persists the final result and removes the room. The work
// runs off the game goroutine so the loop can exit; once a game is
// finished nothing mutates its aggregate, so reading it here is safe.
func (reg *Registry) gameEndHook(roomID string) func(game.FinalScores) {
	return func(summary game.FinalScores) {
		go func() {
			if reg.store != nil {
				reg.persistResult(roomID, summary)
			}
			reg.CloseRoom(roomID)
		}()
	}
}

func (reg *Registry) persistResult(roomID string, summary game.FinalScores) {
	room, ok := reg.Get(roomID)
	if !ok {
		return
	}

	winners := make(map[string]struct{}, len(summary.Winners))
	for _, id := range summary.Winners {
		winners[id] = struct{}{}
	}

	endReason := "lowest_score"
	players := make([]storage.PlayerResult, 0, len(room.Game.State.Players))
	for _, p := range room.Game.State.Players {
		_, won := winners[p.ID]
		if won && p.HasEmptyHand() {
			endReason = "empty_hand"
		}
		players = append(players, storage.PlayerResult{
			PlayerID: p.ID,
			Name:     p.Name,
			Type:     p.Type.String(),
			Points:   summary.Scores[p.ID],
			Winner:   won,
		})
	}
	if endReason != "empty_hand" && summary.RecallCaller != "" {
		endReason = "recall"
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := reg.store.InsertGameResult(ctx, roomID, summary.RecallCaller, endReason, players); err != nil {
		slog.Error("failed to persist game result", "tag", "rooms", "room", roomID, "err", err)
	}
}
