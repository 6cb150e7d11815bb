package ai

import (
	"log/slog"
	"math/rand"
	"time"

	"recall-server/config"
	"recall-server/game"
)

// event is one notification delivered to the bot's inbox. Only the latest
// state matters; the inbox is buffered and sends never block the game loop.
type event struct {
	view *game.StateView
	over bool
}

// Bot is a computer opponent. It implements game.Notifier so a room fanout
// can feed it the same obfuscated views a human client receives; it never
// reads the aggregate directly. Decisions use only what the view exposes,
// so the bot's knowledge goes stale the same way a human's does.
type Bot struct {
	ID     string
	Name   string
	Params config.AIParams

	game  *game.Game
	inbox chan event
	quit  chan struct{}
}

// NewBot creates a bot bound to one game.
func NewBot(id string, params config.AIParams, g *game.Game) *Bot {
	return &Bot{
		ID:     id,
		Name:   params.Name,
		Params: params,
		game:   g,
		inbox:  make(chan event, 32),
		quit:   make(chan struct{}),
	}
}

// Stop terminates the bot loop. Safe to call more than once.
func (b *Bot) Stop() {
	select {
	case <-b.quit:
	default:
		close(b.quit)
	}
}

func (b *Bot) push(ev event) {
	select {
	case b.inbox <- ev:
	default:
	}
}

// GameStateUpdated implements game.Notifier.
func (b *Bot) GameStateUpdated(gameID string, views map[string]game.StateView) {
	if v, ok := views[b.ID]; ok {
		b.push(event{view: &v})
	}
}

// TurnStarted implements game.Notifier. The bot acts on state views only;
// the turn signal carries no information the next view doesn't.
func (b *Bot) TurnStarted(gameID, playerID string) {}

// RoundCompleted implements game.Notifier.
func (b *Bot) RoundCompleted(gameID string, summary game.FinalScores) {
	b.push(event{over: true})
}

// ActionResult implements game.Notifier. Revealed cards reappear in the
// next state view, so results are not tracked separately.
func (b *Bot) ActionResult(gameID, playerID string, result game.ActionResult) {}

// Run consumes state views and reacts to the latest one. Should be run as a
// goroutine; it exits when the round completes or Stop is called.
func (b *Bot) Run() {
	for {
		select {
		case <-b.quit:
			return
		case ev := <-b.inbox:
			if ev.over {
				return
			}
			// Drain to the most recent view before deciding.
			view := ev.view
			for {
				select {
				case next := <-b.inbox:
					if next.over {
						return
					}
					view = next.view
				default:
					goto act
				}
			}
		act:
			if view != nil {
				b.act(view)
			}
		}
	}
}

// humanDelay sleeps for a randomized interval so bot plays read naturally.
func (b *Bot) humanDelay() {
	min := b.Params.DelayMinMS
	max := b.Params.DelayMaxMS
	d := min
	if max > min {
		d = min + rand.Intn(max-min)
	}
	select {
	case <-time.After(time.Duration(d) * time.Millisecond):
	case <-b.quit:
	}
}

func (b *Bot) submit(a game.Action) {
	a.PlayerID = b.ID
	b.game.Submit(a)
}

// act decides one move from the latest view. A wrong guess costs nothing:
// the engine rejects invalid actions and a fresh view follows every change.
func (b *Bot) act(view *game.StateView) {
	switch view.Phase {
	case "dealing_cards":
		if view.You.PeeksRemaining > 0 {
			b.humanDelay()
			b.submit(game.Action{Type: game.ActionInitialPeek, Indices: []int{0, 1}})
		}
	case "same_rank_window":
		b.tryOutOfTurn(view)
	case "special_play_window":
		if view.SpecialPlayerID == b.ID {
			b.resolveSpecial(view)
		}
	case "player_turn", "recall_called":
		if view.CurrentPlayerID != b.ID {
			return
		}
		b.takeTurn(view)
	}
}

// takeTurn advances the bot through its own turn one action per view:
// draw, then place or replace, then play.
func (b *Bot) takeTurn(view *game.StateView) {
	switch view.You.Status {
	case "drawing_card":
		if view.RecallCalledBy == "" && b.shouldCallRecall(view) {
			b.humanDelay()
			b.submit(game.Action{Type: game.ActionCallRecall})
			return
		}
		b.humanDelay()
		// A very low discard top is worth taking over a blind draw.
		if view.DiscardTop != nil && view.DiscardTop.Points <= 1 {
			b.submit(game.Action{Type: game.ActionTakeFromDiscard})
			return
		}
		b.submit(game.Action{Type: game.ActionDrawFromDeck})
	case "playing_card":
		if view.PendingDraw != nil {
			b.placePending(view)
			return
		}
		b.playFromHand(view)
	}
}

// placePending keeps a drawn card that beats the worst known card in hand,
// otherwise plays it straight to the discard pile.
func (b *Bot) placePending(view *game.StateView) {
	worst := worstKnownCard(view.You.Hand)
	b.humanDelay()
	if worst != nil && view.PendingDraw.Points < *worst.Points {
		b.submit(game.Action{Type: game.ActionPlaceDrawnReplace, TargetCardID: worst.ID})
		return
	}
	b.submit(game.Action{Type: game.ActionPlaceDrawnPlay})
}

// playFromHand ends the turn after a replace: shed the highest known card,
// or gamble on an unknown one.
func (b *Bot) playFromHand(view *game.StateView) {
	var pick *game.CardView
	for _, cv := range view.You.Hand {
		if cv == nil {
			continue
		}
		if cv.Points != nil && (pick == nil || pick.Points == nil || *cv.Points > *pick.Points) {
			pick = cv
		}
	}
	if pick == nil {
		var unknown []*game.CardView
		for _, cv := range view.You.Hand {
			if cv != nil {
				unknown = append(unknown, cv)
			}
		}
		if len(unknown) == 0 {
			return
		}
		pick = unknown[rand.Intn(len(unknown))]
	}
	b.humanDelay()
	b.submit(game.Action{Type: game.ActionPlayCard, CardID: pick.ID})
}

// tryOutOfTurn sheds a known rank match while the interrupt window is open.
func (b *Bot) tryOutOfTurn(view *game.StateView) {
	if view.DiscardTop == nil || view.OutOfTurnDeadlineUnixMs == 0 {
		return
	}
	for _, cv := range view.You.Hand {
		if cv == nil || cv.Points == nil {
			continue
		}
		if cv.Rank == view.DiscardTop.Rank {
			b.humanDelay()
			if time.Now().UnixMilli() >= view.OutOfTurnDeadlineUnixMs {
				return
			}
			slog.Debug("out-of-turn match", "tag", "ai", "name", b.Name, "rank", cv.Rank)
			b.submit(game.Action{Type: game.ActionPlayOutOfTurn, CardID: cv.ID})
			return
		}
	}
}

// resolveSpecial spends an open Queen or Jack window.
func (b *Bot) resolveSpecial(view *game.StateView) {
	switch view.SpecialPower {
	case "peek_at_card":
		target, idx := randomForeignSlot(view)
		if target == "" {
			target, idx = b.ID, firstUnknownOwnSlot(view)
			if idx < 0 {
				return
			}
		}
		b.humanDelay()
		b.submit(game.Action{Type: game.ActionQueenPeek, TargetPlayerID: target, TargetIndex: idx})
	case "switch_cards":
		ownIdx := highestKnownOwnSlot(view)
		target, theirIdx := randomForeignSlot(view)
		if ownIdx < 0 || target == "" {
			return // let the window lapse
		}
		b.humanDelay()
		b.submit(game.Action{
			Type:           game.ActionJackSwap,
			FirstPlayerID:  b.ID,
			FirstIndex:     ownIdx,
			SecondPlayerID: target,
			SecondIndex:    theirIdx,
		})
	}
}

// shouldCallRecall is true when the whole hand is known and the total is at
// or below the profile's threshold.
func (b *Bot) shouldCallRecall(view *game.StateView) bool {
	total := 0
	for _, cv := range view.You.Hand {
		if cv == nil {
			continue
		}
		if cv.Points == nil {
			return false
		}
		total += *cv.Points
	}
	return total <= b.Params.RecallThreshold
}

func worstKnownCard(hand []*game.CardView) *game.CardView {
	var worst *game.CardView
	for _, cv := range hand {
		if cv == nil || cv.Points == nil {
			continue
		}
		if worst == nil || *cv.Points > *worst.Points {
			worst = cv
		}
	}
	return worst
}

func firstUnknownOwnSlot(view *game.StateView) int {
	for i, cv := range view.You.Hand {
		if cv != nil && cv.Points == nil {
			return i
		}
	}
	return -1
}

func highestKnownOwnSlot(view *game.StateView) int {
	best := -1
	bestPts := -1
	for i, cv := range view.You.Hand {
		if cv == nil || cv.Points == nil {
			continue
		}
		if *cv.Points > bestPts {
			best, bestPts = i, *cv.Points
		}
	}
	return best
}

// randomForeignSlot picks a random occupied slot in a random opponent hand.
func randomForeignSlot(view *game.StateView) (playerID string, index int) {
	type slot struct {
		id  string
		idx int
	}
	var slots []slot
	for _, opp := range view.Opponents {
		if opp.Status == "disconnected" || opp.Status == "finished" {
			continue
		}
		for i, cv := range opp.Hand {
			if cv != nil {
				slots = append(slots, slot{opp.ID, i})
			}
		}
	}
	if len(slots) == 0 {
		return "", -1
	}
	s := slots[rand.Intn(len(slots))]
	return s.id, s.idx
}
