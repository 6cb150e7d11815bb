package ws

import "encoding/json"

// InboundEnvelope is the generic envelope for all client-to-server messages.
// Type routes the message; Raw keeps the full payload for a second decode.
type InboundEnvelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON captures the raw payload alongside the routing type.
func (e *InboundEnvelope) UnmarshalJSON(data []byte) error {
	type typeOnly struct {
		Type string `json:"type"`
	}
	var t typeOnly
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	e.Type = t.Type
	e.Raw = json.RawMessage(data)
	return nil
}

// --- Client-to-server payloads ---

// AuthMsg must be the first message on a new connection.
type AuthMsg struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// CreateRoomMsg opens a new room. Name overrides the token's display name.
type CreateRoomMsg struct {
	Type       string `json:"type"`
	Permission string `json:"permission"`
	Name       string `json:"name,omitempty"`
}

// JoinRoomMsg seats the player in an existing room.
type JoinRoomMsg struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	Name   string `json:"name,omitempty"`
}

// InitialPeekMsg spends initial peeks on the given own-hand indices.
type InitialPeekMsg struct {
	Type    string `json:"type"`
	Indices []int  `json:"indices"`
}

// PlaceDrawnReplaceMsg swaps the pending draw into the slot holding the
// target card.
type PlaceDrawnReplaceMsg struct {
	Type         string `json:"type"`
	TargetCardID string `json:"targetCardId"`
}

// PlayCardMsg plays a hand card, in turn or out of turn.
type PlayCardMsg struct {
	Type   string `json:"type"`
	CardID string `json:"cardId"`
}

// QueenPeekMsg resolves a Queen window against any player's slot.
type QueenPeekMsg struct {
	Type           string `json:"type"`
	TargetPlayerID string `json:"targetPlayerId"`
	TargetIndex    int    `json:"targetIndex"`
}

// JackSwapMsg resolves a Jack window by swapping two occupied slots.
type JackSwapMsg struct {
	Type           string `json:"type"`
	FirstPlayerID  string `json:"firstPlayerId"`
	FirstIndex     int    `json:"firstIndex"`
	SecondPlayerID string `json:"secondPlayerId"`
	SecondIndex    int    `json:"secondIndex"`
}

// --- Server-to-client messages ---

// ErrorMsg is sent when a client message cannot be processed.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AuthedMsg confirms authentication.
type AuthedMsg struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

// RoomCreatedMsg confirms room creation to the creator.
type RoomCreatedMsg struct {
	Type       string `json:"type"`
	RoomID     string `json:"roomId"`
	Permission string `json:"permission"`
}

// RoomJoinedMsg confirms a join to the joining player.
type RoomJoinedMsg struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

// RoomListMsg answers a lobby listing request.
type RoomListMsg struct {
	Type  string `json:"type"`
	Rooms any    `json:"rooms"`
}

// TurnStartedMsg announces whose turn begins.
type TurnStartedMsg struct {
	Type     string `json:"type"`
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
}

// RoundCompletedMsg carries the final summary of a finished game.
type RoundCompletedMsg struct {
	Type         string         `json:"type"`
	GameID       string         `json:"gameId"`
	Scores       map[string]int `json:"scores"`
	Winners      []string       `json:"winners"`
	RecallCaller string         `json:"recallCaller,omitempty"`
}
