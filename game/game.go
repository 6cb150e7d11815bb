package game

import (
	"log/slog"
	"time"

	"recall-server/config"
	"recall-server/gameerrors"
)

// ActionType enumerates the kinds of actions a game can process.
type ActionType int

const (
	ActionStartMatch ActionType = iota
	ActionInitialPeek
	ActionDrawFromDeck
	ActionTakeFromDiscard
	ActionPlaceDrawnReplace
	ActionPlaceDrawnPlay
	ActionPlayCard
	ActionPlayOutOfTurn
	ActionCallRecall
	ActionQueenPeek
	ActionJackSwap
	ActionPlayerJoined
	ActionPlayerLeft
	ActionPregameTimeout  // internal: dealing/peek window expired
	ActionSameRankTimeout // internal: same-rank interrupt window expired
	ActionSpecialTimeout  // internal: special-power window expired
	ActionGameClosed      // internal: room torn down
)

var actionNames = []string{
	"start_match", "initial_peek", "draw_from_deck", "take_from_discard",
	"place_drawn_card_replace", "place_drawn_card_play", "play_card",
	"play_out_of_turn", "call_recall", "queen_peek", "jack_swap",
	"player_joined", "player_left",
	"pregame_timeout", "same_rank_timeout", "special_timeout", "game_closed",
}

// String returns the protocol string for an ActionType.
func (at ActionType) String() string {
	if at < 0 || int(at) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[at]
}

// Action is one player command (or internal timer event) sent into the
// game's action channel. Fields beyond Type/PlayerID are action-specific.
type Action struct {
	Type     ActionType
	PlayerID string

	CardID       string // play_card, play_out_of_turn
	TargetCardID string // place_drawn_card_replace
	Indices      []int  // initial_peek

	PlayerName string     // player_joined
	PlayerType PlayerType // player_joined

	TargetPlayerID string // queen_peek
	TargetIndex    int    // queen_peek

	// jack_swap picks two slots across any hands.
	FirstPlayerID  string
	FirstIndex     int
	SecondPlayerID string
	SecondIndex    int
}

// Notifier is the outbound boundary to the session/transport layer. The
// engine never touches connections; the adapter maps player IDs to sessions.
type Notifier interface {
	// GameStateUpdated carries one obfuscated view per player.
	GameStateUpdated(gameID string, views map[string]StateView)
	TurnStarted(gameID, playerID string)
	RoundCompleted(gameID string, summary FinalScores)
	// ActionResult is relayed to the acting player only.
	ActionResult(gameID, playerID string, result ActionResult)
}

// ActionResult is the structured outcome of one action, relayed to the
// acting player. Cards carries privately revealed cards (draws, peeks).
type ActionResult struct {
	Type   string       `json:"type"`
	Action string       `json:"action"`
	OK     bool         `json:"ok"`
	Error  string       `json:"error,omitempty"`
	Cards  []CardDetail `json:"cards,omitempty"`
}

// specialPlay is one queued special-power window. The queue is strictly FIFO
// in the order the special cards were played.
type specialPlay struct {
	PlayerID string
	Power    SpecialPower
	CardID   string
}

// Game owns one GameState and processes all actions against it serially.
// Timer windows are goroutines with cancel channels that feed timeout
// actions back into the channel, so a waiting game never blocks another.
type Game struct {
	State    *GameState
	Config   *config.Config
	Notifier Notifier

	Actions chan Action
	Done    chan struct{}

	Finished bool
	Errored  bool

	specialQueue  []specialPlay
	activeSpecial *specialPlay

	pregameCancel  chan struct{}
	sameRankCancel chan struct{}
	specialCancel  chan struct{}

	// OnGameEnd is called once with the final summary (normal end or forfeit).
	OnGameEnd func(summary FinalScores)
}

// NewGame wraps a dealt-or-waiting GameState in an actor.
func NewGame(state *GameState, cfg *config.Config, notifier Notifier) *Game {
	return &Game{
		State:    state,
		Config:   cfg,
		Notifier: notifier,
		Actions:  make(chan Action, 16),
		Done:     make(chan struct{}),
	}
}

// Submit delivers an action to the game loop without blocking forever on a
// finished game.
func (g *Game) Submit(action Action) {
	select {
	case g.Actions <- action:
	case <-g.Done:
	}
}

// Run is the main game loop. It processes actions sequentially and verifies
// the card-conservation invariant after each one. It should be run as a
// goroutine; it exits when the game ends or the channel closes.
func (g *Game) Run() {
	defer close(g.Done)

	for {
		action, ok := <-g.Actions
		if !ok || g.Finished {
			return
		}
		if g.Errored && action.Type != ActionGameClosed {
			g.rejectAction(action, gameerrors.ErrGameErrored.Error())
			continue
		}

		g.dispatch(action)

		if err := g.State.CheckConservation(); err != nil {
			// Corrupted aggregate: stop this game, leave others untouched.
			slog.Error("invariant violation, freezing game", "tag", "game", "game", g.State.GameID, "err", err)
			g.Errored = true
			g.State.Phase = PhaseGameErrored
			g.cancelAllTimers()
			g.broadcastState()
		}
		if g.Finished {
			return
		}
	}
}

func (g *Game) dispatch(action Action) {
	switch action.Type {
	case ActionStartMatch:
		g.handleStartMatch(action.PlayerID)
	case ActionInitialPeek:
		g.handleInitialPeek(action.PlayerID, action.Indices)
	case ActionDrawFromDeck:
		g.handleDrawFromDeck(action.PlayerID)
	case ActionTakeFromDiscard:
		g.handleTakeFromDiscard(action.PlayerID)
	case ActionPlaceDrawnReplace:
		g.handlePlaceDrawnReplace(action.PlayerID, action.TargetCardID)
	case ActionPlaceDrawnPlay:
		g.handlePlaceDrawnPlay(action.PlayerID)
	case ActionPlayCard:
		g.handlePlayCard(action.PlayerID, action.CardID)
	case ActionPlayOutOfTurn:
		g.handlePlayOutOfTurn(action.PlayerID, action.CardID)
	case ActionCallRecall:
		g.handleCallRecall(action.PlayerID)
	case ActionQueenPeek:
		g.handleQueenPeek(action)
	case ActionJackSwap:
		g.handleJackSwap(action)
	case ActionPlayerJoined:
		g.handlePlayerJoined(action.PlayerID, action.PlayerName, action.PlayerType)
	case ActionPlayerLeft:
		g.handlePlayerLeft(action.PlayerID)
	case ActionPregameTimeout:
		g.handlePregameTimeout()
	case ActionSameRankTimeout:
		g.handleSameRankTimeout()
	case ActionSpecialTimeout:
		g.handleSpecialTimeout()
	case ActionGameClosed:
		g.cancelAllTimers()
		g.Finished = true
	default:
		slog.Warn("unknown action type", "tag", "game", "game", g.State.GameID, "action", int(action.Type))
	}
}

func (g *Game) rejectAction(action Action, message string) {
	if action.PlayerID == "" {
		return
	}
	g.sendResult(action.PlayerID, ActionResult{
		Type:   "action_result",
		Action: action.Type.String(),
		OK:     false,
		Error:  message,
	})
}

// --- timers ---
//
// Each window is a goroutine racing a cancel channel. Cancelling an already
// fired or already cancelled timer is a no-op.

func (g *Game) startTimer(cancelSlot *chan struct{}, d time.Duration, timeout ActionType) {
	g.cancelTimer(cancelSlot)
	ch := make(chan struct{})
	*cancelSlot = ch
	go func() {
		select {
		case <-time.After(d):
			select {
			case g.Actions <- Action{Type: timeout}:
			case <-g.Done:
			}
		case <-ch:
		}
	}()
}

func (g *Game) cancelTimer(cancelSlot *chan struct{}) {
	if *cancelSlot != nil {
		close(*cancelSlot)
		*cancelSlot = nil
	}
}

func (g *Game) cancelAllTimers() {
	g.cancelTimer(&g.pregameCancel)
	g.cancelTimer(&g.sameRankCancel)
	g.cancelTimer(&g.specialCancel)
}

func (g *Game) sameRankWindow() time.Duration {
	return time.Duration(g.Config.SameRankWindowSec) * time.Second
}

// --- notifications ---

func (g *Game) broadcastState() {
	if g.Notifier == nil {
		return
	}
	views := make(map[string]StateView, len(g.State.Players))
	for _, p := range g.State.Players {
		views[p.ID] = BuildStateView(g.State, p.ID, g.activeSpecial)
	}
	g.Notifier.GameStateUpdated(g.State.GameID, views)
}

func (g *Game) sendResult(playerID string, result ActionResult) {
	if g.Notifier != nil {
		g.Notifier.ActionResult(g.State.GameID, playerID, result)
	}
}

func (g *Game) sendOK(playerID string, action ActionType, cards ...CardDetail) {
	g.sendResult(playerID, ActionResult{
		Type:   "action_result",
		Action: action.String(),
		OK:     true,
		Cards:  cards,
	})
}

func (g *Game) sendErr(playerID string, action ActionType, err error) {
	g.sendResult(playerID, ActionResult{
		Type:   "action_result",
		Action: action.String(),
		OK:     false,
		Error:  err.Error(),
	})
}
