package game

import (
	"log/slog"
	"time"

	"recall-server/gameerrors"
)

// startNextSpecial opens the window for the next queued special play.
// Queued players are processed strictly in the order their cards were
// played, one at a time.
func (g *Game) startNextSpecial() {
	sp := g.specialQueue[0]
	g.specialQueue = g.specialQueue[1:]
	g.activeSpecial = &sp

	g.State.Phase = PhaseSpecialPlayWindow
	if p, ok := g.State.FindPlayer(sp.PlayerID); ok && p.IsActive() {
		switch sp.Power {
		case PeekAtCard:
			p.SetStatus(StatusQueenPeek)
		case SwitchCards:
			p.SetStatus(StatusJackSwap)
		}
	} else {
		// Player left before their window opened; move on.
		g.finishSpecial()
		return
	}

	g.startTimer(&g.specialCancel, time.Duration(g.Config.SpecialWindowSec)*time.Second, ActionSpecialTimeout)
	g.broadcastState()
}

// finishSpecial closes the active window and opens the next queued one, or
// ends the round when the queue is drained.
func (g *Game) finishSpecial() {
	g.cancelTimer(&g.specialCancel)
	if g.activeSpecial != nil {
		if p, ok := g.State.FindPlayer(g.activeSpecial.PlayerID); ok && p.IsActive() {
			p.SetStatus(StatusWaiting)
		}
		g.activeSpecial = nil
	}

	if len(g.specialQueue) > 0 {
		g.startNextSpecial()
		return
	}
	g.endRound()
}

// handleSpecialTimeout forfeits the active special window.
func (g *Game) handleSpecialTimeout() {
	if g.State.Phase != PhaseSpecialPlayWindow || g.activeSpecial == nil {
		return
	}
	slog.Info("special window expired", "tag", "game", "game", g.State.GameID, "player", g.activeSpecial.PlayerID)
	g.finishSpecial()
}

// requireActiveSpecial validates that the player owns the currently open
// special window for the given power.
func (g *Game) requireActiveSpecial(playerID string, power SpecialPower) error {
	if g.State.Phase != PhaseSpecialPlayWindow || g.activeSpecial == nil {
		return gameerrors.ErrWindowClosed
	}
	if g.activeSpecial.PlayerID != playerID || g.activeSpecial.Power != power {
		return gameerrors.ErrNotYourTurn
	}
	return nil
}

// handleQueenPeek resolves a Queen power: look at one card in any hand. The
// revealed card goes back privately to the peeker only.
func (g *Game) handleQueenPeek(action Action) {
	if err := g.requireActiveSpecial(action.PlayerID, PeekAtCard); err != nil {
		g.sendErr(action.PlayerID, ActionQueenPeek, err)
		return
	}

	target, ok := g.State.FindPlayer(action.TargetPlayerID)
	if !ok {
		g.sendErr(action.PlayerID, ActionQueenPeek, gameerrors.ErrNotInRoom)
		return
	}
	card := target.CardAt(action.TargetIndex)
	if card == nil {
		g.sendErr(action.PlayerID, ActionQueenPeek, gameerrors.ErrInvalidCardReference)
		return
	}

	peeker, _ := g.State.FindPlayer(action.PlayerID)
	if target.ID == peeker.ID {
		peeker.LookAtCardByIndex(action.TargetIndex)
	} else {
		peeker.RememberForeignCard(card.ID, target.ID)
	}

	g.sendOK(action.PlayerID, ActionQueenPeek, cardDetail(card))
	g.finishSpecial()
}

// handleJackSwap resolves a Jack power: swap two cards between any hands,
// including the player's own. Blank slots cannot be swapped. Every player's
// stale knowledge of the moved cards is dropped.
func (g *Game) handleJackSwap(action Action) {
	if err := g.requireActiveSpecial(action.PlayerID, SwitchCards); err != nil {
		g.sendErr(action.PlayerID, ActionJackSwap, err)
		return
	}

	first, ok := g.State.FindPlayer(action.FirstPlayerID)
	if !ok {
		g.sendErr(action.PlayerID, ActionJackSwap, gameerrors.ErrNotInRoom)
		return
	}
	second, ok := g.State.FindPlayer(action.SecondPlayerID)
	if !ok {
		g.sendErr(action.PlayerID, ActionJackSwap, gameerrors.ErrNotInRoom)
		return
	}

	cardA := first.CardAt(action.FirstIndex)
	cardB := second.CardAt(action.SecondIndex)
	if cardA == nil || cardB == nil {
		g.sendErr(action.PlayerID, ActionJackSwap, gameerrors.ErrInvalidCardReference)
		return
	}

	first.Hand[action.FirstIndex], second.Hand[action.SecondIndex] = cardB, cardA
	for _, p := range g.State.Players {
		p.ForgetCard(cardA.ID)
		p.ForgetCard(cardB.ID)
	}

	slog.Info("jack swap", "tag", "game", "game", g.State.GameID,
		"player", action.PlayerID, "from", first.ID, "to", second.ID)
	g.sendOK(action.PlayerID, ActionJackSwap)
	g.finishSpecial()
}

// handlePlayerLeft marks the player inactive mid-game (the game stays alive)
// or removes them outright pre-deal. A game left with fewer than two active
// players ends immediately.
func (g *Game) handlePlayerLeft(playerID string) {
	wasCurrent := g.State.CurrentPlayerID == playerID
	g.State.RemovePlayer(playerID)

	if g.State.Phase == PhaseWaitingForPlayers {
		g.broadcastState()
		return
	}

	active := 0
	for _, p := range g.State.Players {
		if p.IsActive() {
			active++
		}
	}
	if active < 2 {
		g.endGame()
		return
	}

	// The final lap has no destination once its caller is gone.
	if playerID == g.State.RecallCalledBy {
		g.endGame()
		return
	}

	// Drop any queued special windows the leaver owned.
	kept := g.specialQueue[:0]
	for _, sp := range g.specialQueue {
		if sp.PlayerID != playerID {
			kept = append(kept, sp)
		}
	}
	g.specialQueue = kept

	if g.activeSpecial != nil && g.activeSpecial.PlayerID == playerID {
		g.finishSpecial()
		return
	}

	if wasCurrent && (g.State.Phase == PhasePlayerTurn || g.State.Phase == PhaseRecallCalled) {
		g.endRound()
		return
	}
	g.broadcastState()
}
