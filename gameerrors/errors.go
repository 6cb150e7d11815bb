package gameerrors

import "errors"

// Action-level sentinel errors. Used by the game, rooms and ws packages to
// avoid circular imports. All are recoverable and relayed only to the acting
// player; none of them terminate a game.
var (
	ErrNotYourTurn          = errors.New("not your turn")
	ErrInvalidCardReference = errors.New("card not found in the expected location")
	ErrWindowClosed         = errors.New("the play window has closed")
	ErrRankMismatch         = errors.New("card rank does not match the last played card")
	ErrNoCardToMatch        = errors.New("no card has been played to match")
	ErrEmptyPile            = errors.New("pile is empty")
	ErrAlreadyCalledRecall  = errors.New("recall has already been called")
	ErrInsufficientPlayers  = errors.New("not enough players to start the match")
	ErrNoPendingDraw        = errors.New("no drawn card pending placement")
	ErrPendingDraw          = errors.New("the drawn card must be placed first")
	ErrNoPeeksRemaining     = errors.New("no initial peeks remaining")
	ErrGameNotRunning       = errors.New("game is not running")
	ErrGameErrored          = errors.New("game is in an errored state")
)

// Room-level sentinel errors.
var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room is full")
	ErrRoomExists     = errors.New("room already exists")
	ErrAlreadyStarted = errors.New("match has already started")
	ErrNotInRoom      = errors.New("player is not in this room")
)
