package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"recall-server/auth"
	"recall-server/game"
	"recall-server/wsutil"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	PlayerID string
	Name     string
}

// ReadPump pumps messages from the websocket connection to the hub.
// It runs in its own goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read error", "tag", "ws", "err", err)
			}
			break
		}
		c.handleMessage(message)
	}
}

// WritePump pumps messages from the send channel to the websocket
// connection. It runs in its own goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var envelope InboundEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.sendError("Invalid message format.")
		return
	}

	if c.PlayerID == "" {
		if envelope.Type != "auth" {
			c.sendError("Authenticate first.")
			return
		}
		c.handleAuth(envelope.Raw)
		return
	}

	switch envelope.Type {
	case "auth":
		// Already authed; ignore.
	case "create_room":
		c.handleCreateRoom(envelope.Raw)
	case "join_room":
		c.handleJoinRoom(envelope.Raw)
	case "leave_room":
		c.Hub.Rooms.LeaveRoom(c.PlayerID)
	case "list_rooms":
		c.sendJSON(RoomListMsg{Type: "room_list", Rooms: c.Hub.Rooms.ListPublic()})
	case "add_computer":
		c.handleAddComputer()
	case "start_match":
		c.handleStartMatch()
	case "initial_peek":
		var msg InitialPeekMsg
		if err := json.Unmarshal(envelope.Raw, &msg); err != nil {
			c.sendError("Invalid initial_peek message.")
			return
		}
		c.submit(game.Action{Type: game.ActionInitialPeek, Indices: msg.Indices})
	case "draw_from_deck":
		c.submit(game.Action{Type: game.ActionDrawFromDeck})
	case "take_from_discard":
		c.submit(game.Action{Type: game.ActionTakeFromDiscard})
	case "place_drawn_card_replace":
		var msg PlaceDrawnReplaceMsg
		if err := json.Unmarshal(envelope.Raw, &msg); err != nil {
			c.sendError("Invalid place_drawn_card_replace message.")
			return
		}
		c.submit(game.Action{Type: game.ActionPlaceDrawnReplace, TargetCardID: msg.TargetCardID})
	case "place_drawn_card_play":
		c.submit(game.Action{Type: game.ActionPlaceDrawnPlay})
	case "play_card":
		var msg PlayCardMsg
		if err := json.Unmarshal(envelope.Raw, &msg); err != nil {
			c.sendError("Invalid play_card message.")
			return
		}
		c.submit(game.Action{Type: game.ActionPlayCard, CardID: msg.CardID})
	case "play_out_of_turn":
		var msg PlayCardMsg
		if err := json.Unmarshal(envelope.Raw, &msg); err != nil {
			c.sendError("Invalid play_out_of_turn message.")
			return
		}
		c.submit(game.Action{Type: game.ActionPlayOutOfTurn, CardID: msg.CardID})
	case "call_recall":
		c.submit(game.Action{Type: game.ActionCallRecall})
	case "queen_peek":
		var msg QueenPeekMsg
		if err := json.Unmarshal(envelope.Raw, &msg); err != nil {
			c.sendError("Invalid queen_peek message.")
			return
		}
		c.submit(game.Action{Type: game.ActionQueenPeek, TargetPlayerID: msg.TargetPlayerID, TargetIndex: msg.TargetIndex})
	case "jack_swap":
		var msg JackSwapMsg
		if err := json.Unmarshal(envelope.Raw, &msg); err != nil {
			c.sendError("Invalid jack_swap message.")
			return
		}
		c.submit(game.Action{
			Type:           game.ActionJackSwap,
			FirstPlayerID:  msg.FirstPlayerID,
			FirstIndex:     msg.FirstIndex,
			SecondPlayerID: msg.SecondPlayerID,
			SecondIndex:    msg.SecondIndex,
		})
	default:
		c.sendError("Unknown message type: " + envelope.Type)
	}
}

func (c *Client) handleAuth(raw json.RawMessage) {
	var msg AuthMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid auth message.")
		return
	}
	if c.Hub.Config.AuthBaseURL == "" {
		c.sendError("Server auth not configured.")
		return
	}

	claims, err := auth.ValidateToken(c.Hub.Config.AuthBaseURL, msg.Token)
	if err != nil {
		slog.Warn("token validation failed", "tag", "ws", "err", err)
		c.sendError("Authentication failed.")
		return
	}
	userID := auth.UserIDFromClaims(claims)
	if userID == "" {
		c.sendError("Authentication failed.")
		return
	}

	c.PlayerID = userID
	c.Name = auth.NameFromClaims(claims)
	c.Hub.bind(c)
	c.sendJSON(AuthedMsg{Type: "authed", PlayerID: c.PlayerID, Name: c.Name})
}

func (c *Client) handleCreateRoom(raw json.RawMessage) {
	var msg CreateRoomMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid create_room message.")
		return
	}
	name, ok := c.resolveName(msg.Name)
	if !ok {
		return
	}

	permission := game.PermissionPrivate
	if msg.Permission == string(game.PermissionPublic) {
		permission = game.PermissionPublic
	}

	room, err := c.Hub.Rooms.CreateRoom(c.PlayerID, name, permission)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.sendJSON(RoomCreatedMsg{Type: "room_created", RoomID: room.ID, Permission: string(room.Permission)})
}

func (c *Client) handleJoinRoom(raw json.RawMessage) {
	var msg JoinRoomMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid join_room message.")
		return
	}
	name, ok := c.resolveName(msg.Name)
	if !ok {
		return
	}

	room, err := c.Hub.Rooms.JoinRoom(msg.RoomID, c.PlayerID, name)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.sendJSON(RoomJoinedMsg{Type: "room_joined", RoomID: room.ID})
}

func (c *Client) handleAddComputer() {
	room, ok := c.Hub.Rooms.RoomForPlayer(c.PlayerID)
	if !ok {
		c.sendError("You are not in a room.")
		return
	}
	if err := c.Hub.Rooms.AddComputer(room.ID, c.PlayerID); err != nil {
		c.sendError(err.Error())
	}
}

func (c *Client) handleStartMatch() {
	room, ok := c.Hub.Rooms.RoomForPlayer(c.PlayerID)
	if !ok {
		c.sendError("You are not in a room.")
		return
	}
	if err := c.Hub.Rooms.StartMatch(room.ID, c.PlayerID); err != nil {
		c.sendError(err.Error())
	}
}

// resolveName applies the override if given, falling back to the token
// name, and enforces the configured length limit.
func (c *Client) resolveName(override string) (string, bool) {
	name := c.Name
	if override != "" {
		name = override
	}
	if len(name) < 1 || len(name) > c.Hub.Config.MaxNameLength {
		c.sendError(fmt.Sprintf("Name must be between 1 and %d characters.", c.Hub.Config.MaxNameLength))
		return "", false
	}
	return name, true
}

// submit routes a game action to the player's current room.
func (c *Client) submit(action game.Action) {
	room, ok := c.Hub.Rooms.RoomForPlayer(c.PlayerID)
	if !ok {
		c.sendError("You are not in a room.")
		return
	}
	action.PlayerID = c.PlayerID
	room.Submit(action)
}

func (c *Client) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshal outbound message", "tag", "ws", "err", err)
		return
	}
	wsutil.SafeSend(c.Send, data)
}

func (c *Client) sendError(message string) {
	c.sendJSON(ErrorMsg{Type: "error", Message: message})
}
