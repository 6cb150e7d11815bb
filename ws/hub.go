package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"recall-server/config"
	"recall-server/game"
	"recall-server/rooms"
	"recall-server/wsutil"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for development; restrict in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RoomService is what the hub needs from the room registry.
type RoomService interface {
	CreateRoom(creatorID, creatorName string, permission game.Permission) (*rooms.Room, error)
	JoinRoom(roomID, playerID, name string) (*rooms.Room, error)
	LeaveRoom(playerID string)
	AddComputer(roomID, requesterID string) error
	StartMatch(roomID, requesterID string) error
	RoomForPlayer(playerID string) (*rooms.Room, bool)
	ListPublic() []rooms.RoomSummary
	MemberIDs(roomID string) []string
}

// Hub maintains the set of connected clients and maps player IDs to live
// sessions. It implements game.Notifier: the engine addresses players, the
// hub finds their sockets.
type Hub struct {
	Clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	Rooms      RoomService
	Config     *config.Config

	mu       sync.RWMutex
	sessions map[string]*Client // playerID -> authed client
}

// NewHub creates a new Hub.
func NewHub(cfg *config.Config, rs RoomService) *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Rooms:      rs,
		Config:     cfg,
		sessions:   make(map[string]*Client),
	}
}

// Run is the hub's main loop. Should be run as a goroutine; it returns when
// ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("hub shutting down", "tag", "ws")
			return
		case client := <-h.Register:
			h.Clients[client] = true
			slog.Info("client connected", "tag", "ws", "total", len(h.Clients))

		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; !ok {
				continue
			}
			delete(h.Clients, client)
			close(client.Send)
			slog.Info("client disconnected", "tag", "ws", "player", client.PlayerID, "total", len(h.Clients))

			if client.PlayerID != "" {
				h.mu.Lock()
				if h.sessions[client.PlayerID] == client {
					delete(h.sessions, client.PlayerID)
					h.mu.Unlock()
					h.Rooms.LeaveRoom(client.PlayerID)
				} else {
					h.mu.Unlock()
				}
			}
		}
	}
}

// bind records an authenticated client as the live session for its player.
// A newer connection supersedes an older one.
func (h *Hub) bind(c *Client) {
	h.mu.Lock()
	h.sessions[c.PlayerID] = c
	h.mu.Unlock()
}

// ServeWS handles WebSocket upgrade requests and creates a new Client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "tag", "ws", "err", err)
		return
	}

	client := &Client{
		Hub:  h,
		Conn: conn,
		Send: make(chan []byte, 256),
	}

	h.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

// sendTo marshals v and delivers it to one player's session, if connected.
func (h *Hub) sendTo(playerID string, v any) {
	h.mu.RLock()
	client, ok := h.sessions[playerID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshal outbound message", "tag", "ws", "err", err)
		return
	}
	wsutil.SafeSend(client.Send, data)
}

// --- game.Notifier ---

// GameStateUpdated delivers each player their own obfuscated view.
func (h *Hub) GameStateUpdated(gameID string, views map[string]game.StateView) {
	for playerID, view := range views {
		h.sendTo(playerID, view)
	}
}

// TurnStarted announces the new turn to everyone in the room.
func (h *Hub) TurnStarted(gameID, playerID string) {
	msg := TurnStartedMsg{Type: "turn_started", GameID: gameID, PlayerID: playerID}
	for _, id := range h.Rooms.MemberIDs(gameID) {
		h.sendTo(id, msg)
	}
}

// RoundCompleted delivers the final summary to everyone in the room.
func (h *Hub) RoundCompleted(gameID string, summary game.FinalScores) {
	msg := RoundCompletedMsg{
		Type:         "round_completed",
		GameID:       gameID,
		Scores:       summary.Scores,
		Winners:      summary.Winners,
		RecallCaller: summary.RecallCaller,
	}
	for _, id := range h.Rooms.MemberIDs(gameID) {
		h.sendTo(id, msg)
	}
}

// ActionResult goes to the acting player only.
func (h *Hub) ActionResult(gameID, playerID string, result game.ActionResult) {
	h.sendTo(playerID, result)
}
