package game

import (
	"log/slog"
	"time"
)

// beginTurn puts the game into the current player's draw phase. The phase
// stays recall_called once Recall has been called so every player can see
// the final lap is running.
func (g *Game) beginTurn() {
	// The turn pointer can reference a player who left before this turn
	// started (a pregame leave, for instance); hand the turn to the next
	// active player instead of stranding it.
	if cur, ok := g.State.FindPlayer(g.State.CurrentPlayerID); !ok || !cur.IsActive() {
		next := g.State.NextActivePlayerID(g.State.CurrentPlayerID)
		if next == "" {
			g.endGame()
			return
		}
		g.State.CurrentPlayerID = next
	}

	if g.State.RecallCalledBy != "" {
		g.State.Phase = PhaseRecallCalled
	} else {
		g.State.Phase = PhasePlayerTurn
	}

	for _, p := range g.State.Players {
		if !p.IsActive() {
			continue
		}
		if p.ID == g.State.CurrentPlayerID {
			p.SetStatus(StatusDrawingCard)
		} else {
			p.SetStatus(StatusReady)
		}
	}

	if g.Notifier != nil {
		g.Notifier.TurnStarted(g.State.GameID, g.State.CurrentPlayerID)
	}
	g.broadcastState()
}

// handlePlayCard discards a named hand card and runs the post-play pipeline.
func (g *Game) handlePlayCard(playerID, cardID string) {
	card, err := g.State.PlayCard(playerID, cardID)
	if err != nil {
		g.sendErr(playerID, ActionPlayCard, err)
		return
	}
	g.sendOK(playerID, ActionPlayCard, cardDetail(card))
	g.afterPlay(playerID, card)
}

// afterPlay is the shared continuation for every in-turn play: queue special
// powers, end immediately on an emptied hand, otherwise open the same-rank
// interrupt window. The turn itself advances only once the windows resolve.
func (g *Game) afterPlay(playerID string, card *Card) {
	if card.Power != NoPower {
		g.specialQueue = append(g.specialQueue, specialPlay{
			PlayerID: playerID,
			Power:    card.Power,
			CardID:   card.ID,
		})
	}

	if p, ok := g.State.FindPlayer(playerID); ok && p.HasEmptyHand() {
		g.endGame()
		return
	}

	g.openSameRankWindow()
}

// openSameRankWindow flips every active player into the interrupt state for
// the configured window.
func (g *Game) openSameRankWindow() {
	g.State.Phase = PhaseSameRankWindow
	g.State.OutOfTurnDeadline = time.Now().Add(g.sameRankWindow())
	for _, p := range g.State.Players {
		if p.IsActive() {
			p.SetStatus(StatusSameRankWindow)
		}
	}
	g.startTimer(&g.sameRankCancel, g.sameRankWindow(), ActionSameRankTimeout)
	g.broadcastState()
}

// handlePlayOutOfTurn processes a same-rank interject. A successful play
// re-extends the deadline so further players can chain; failures are
// relayed only to the caller and mutate nothing.
func (g *Game) handlePlayOutOfTurn(playerID, cardID string) {
	card, err := g.State.PlayOutOfTurn(playerID, cardID, time.Now(), g.sameRankWindow())
	if err != nil {
		g.sendErr(playerID, ActionPlayOutOfTurn, err)
		return
	}
	g.sendOK(playerID, ActionPlayOutOfTurn, cardDetail(card))
	slog.Info("out-of-turn play", "tag", "game", "game", g.State.GameID, "player", playerID, "card", card.String())

	if card.Power != NoPower {
		g.specialQueue = append(g.specialQueue, specialPlay{
			PlayerID: playerID,
			Power:    card.Power,
			CardID:   card.ID,
		})
	}

	if p, ok := g.State.FindPlayer(playerID); ok && p.HasEmptyHand() {
		g.endGame()
		return
	}

	// Restart the window timer against the extended deadline.
	g.startTimer(&g.sameRankCancel, g.sameRankWindow(), ActionSameRankTimeout)
	g.broadcastState()
}

// handleSameRankTimeout closes the interrupt window. A timer that fired
// before an extension cancelled it is stale and ignored.
func (g *Game) handleSameRankTimeout() {
	if g.State.Phase != PhaseSameRankWindow {
		return
	}
	if time.Now().Before(g.State.OutOfTurnDeadline) {
		return
	}
	g.cancelTimer(&g.sameRankCancel)
	g.State.OutOfTurnDeadline = time.Time{}
	for _, p := range g.State.Players {
		if p.IsActive() {
			p.SetStatus(StatusWaiting)
		}
	}

	if len(g.specialQueue) > 0 {
		g.startNextSpecial()
		return
	}
	g.endRound()
}

// handleCallRecall marks the caller; the game ends when the turn order
// returns to them.
func (g *Game) handleCallRecall(playerID string) {
	if err := g.State.CallRecall(playerID); err != nil {
		g.sendErr(playerID, ActionCallRecall, err)
		return
	}
	slog.Info("recall called", "tag", "game", "game", g.State.GameID, "player", playerID)
	g.sendOK(playerID, ActionCallRecall)
	g.broadcastState()
}

// endRound closes out the turn+window cycle: either the end condition has
// been reached or the next player's turn starts.
func (g *Game) endRound() {
	g.State.Phase = PhaseEndingRound

	next := g.State.NextActivePlayerID(g.State.CurrentPlayerID)
	if next == "" {
		g.endGame()
		return
	}
	if g.State.RecallCalledBy != "" && next == g.State.RecallCalledBy {
		// The lap is complete: the turn has come back around to the caller.
		g.endGame()
		return
	}

	g.State.CurrentPlayerID = next
	g.beginTurn()
}

// endGame finalizes scores, cancels any outstanding window timers and
// reports the summary. Safe to reach from any phase.
func (g *Game) endGame() {
	g.cancelAllTimers()
	summary := g.State.EndGame()
	g.Finished = true

	slog.Info("game ended", "tag", "game", "game", g.State.GameID,
		"winners", summary.Winners, "recallCaller", summary.RecallCaller)

	g.broadcastState()
	if g.Notifier != nil {
		g.Notifier.RoundCompleted(g.State.GameID, summary)
	}
	if g.OnGameEnd != nil {
		g.OnGameEnd(summary)
	}
}
