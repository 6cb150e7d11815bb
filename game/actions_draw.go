package game

import (
	"log/slog"
	"time"
)

// handlePlayerJoined seats a new player. Only possible before the deal.
func (g *Game) handlePlayerJoined(playerID, name string, ptype PlayerType) {
	p := NewPlayer(playerID, name, ptype)
	if err := g.State.AddPlayer(p); err != nil {
		g.sendErr(playerID, ActionPlayerJoined, err)
		return
	}
	slog.Info("player joined", "tag", "game", "game", g.State.GameID, "player", playerID, "type", ptype.String())
	g.broadcastState()
}

// handleStartMatch deals the opening hands and opens the initial-peek
// window. Room-level authorization (who may start) is the rooms package's
// concern; the engine only validates game state.
func (g *Game) handleStartMatch(playerID string) {
	if err := g.State.Deal(); err != nil {
		g.sendErr(playerID, ActionStartMatch, err)
		return
	}

	slog.Info("match started", "tag", "game", "game", g.State.GameID, "players", len(g.State.Players))
	g.sendOK(playerID, ActionStartMatch)
	g.broadcastState()

	g.startTimer(&g.pregameCancel, time.Duration(g.Config.PregameSec)*time.Second, ActionPregameTimeout)
}

// handlePregameTimeout closes the initial-peek window and starts the first
// turn.
func (g *Game) handlePregameTimeout() {
	if g.State.Phase != PhaseDealingCards {
		return
	}
	g.cancelTimer(&g.pregameCancel)
	g.State.Phase = PhasePlayerTurn
	g.beginTurn()
}

// handleInitialPeek reveals the requested own-hand cards, consuming from the
// player's two-peek budget. The revealed cards go back privately.
func (g *Game) handleInitialPeek(playerID string, indices []int) {
	revealed, err := g.State.InitialPeek(playerID, indices)
	if err != nil {
		g.sendErr(playerID, ActionInitialPeek, err)
		return
	}
	g.sendOK(playerID, ActionInitialPeek, cardDetails(revealed)...)
	g.broadcastState()
}

func (g *Game) handleDrawFromDeck(playerID string) {
	card, err := g.State.DrawFromDeck(playerID)
	if err != nil {
		g.sendErr(playerID, ActionDrawFromDeck, err)
		return
	}
	g.sendOK(playerID, ActionDrawFromDeck, cardDetail(card))
	g.broadcastState()
}

func (g *Game) handleTakeFromDiscard(playerID string) {
	card, err := g.State.TakeFromDiscard(playerID)
	if err != nil {
		g.sendErr(playerID, ActionTakeFromDiscard, err)
		return
	}
	g.sendOK(playerID, ActionTakeFromDiscard, cardDetail(card))
	g.broadcastState()
}

// handlePlaceDrawnReplace swaps the pending card into the hand. The turn
// does not advance and no interrupt window opens; the player still has to
// play a card to end the turn.
func (g *Game) handlePlaceDrawnReplace(playerID, targetCardID string) {
	placed, discarded, err := g.State.PlaceDrawnCardReplace(playerID, targetCardID)
	if err != nil {
		g.sendErr(playerID, ActionPlaceDrawnReplace, err)
		return
	}
	g.sendOK(playerID, ActionPlaceDrawnReplace, cardDetail(placed), cardDetail(discarded))
	g.broadcastState()
}

// handlePlaceDrawnPlay discards the pending card and runs the post-play
// pipeline: interrupt window, special-power check, advance or end.
func (g *Game) handlePlaceDrawnPlay(playerID string) {
	card, err := g.State.PlaceDrawnCardPlay(playerID)
	if err != nil {
		g.sendErr(playerID, ActionPlaceDrawnPlay, err)
		return
	}
	g.sendOK(playerID, ActionPlaceDrawnPlay, cardDetail(card))
	g.afterPlay(playerID, card)
}
