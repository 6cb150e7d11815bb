package game

import (
	"sync"
	"testing"
	"time"

	"recall-server/config"
)

func testCfg() *config.Config {
	cfg := config.Defaults()
	cfg.PregameSec = 0
	cfg.SameRankWindowSec = 0
	cfg.SpecialWindowSec = 1
	return cfg
}

// recordedResult pairs an action result with its recipient.
type recordedResult struct {
	playerID string
	result   ActionResult
}

// mockNotifier records every outbound notification. Safe for use from the
// game goroutine and the test goroutine.
type mockNotifier struct {
	mu        sync.Mutex
	views     []map[string]StateView
	turns     []string
	results   []recordedResult
	summaries []FinalScores
	stateCh   chan map[string]StateView
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{stateCh: make(chan map[string]StateView, 64)}
}

func (m *mockNotifier) GameStateUpdated(gameID string, views map[string]StateView) {
	m.mu.Lock()
	m.views = append(m.views, views)
	m.mu.Unlock()
	select {
	case m.stateCh <- views:
	default:
	}
}

func (m *mockNotifier) TurnStarted(gameID, playerID string) {
	m.mu.Lock()
	m.turns = append(m.turns, playerID)
	m.mu.Unlock()
}

func (m *mockNotifier) RoundCompleted(gameID string, summary FinalScores) {
	m.mu.Lock()
	m.summaries = append(m.summaries, summary)
	m.mu.Unlock()
}

func (m *mockNotifier) ActionResult(gameID, playerID string, result ActionResult) {
	m.mu.Lock()
	m.results = append(m.results, recordedResult{playerID, result})
	m.mu.Unlock()
}

func (m *mockNotifier) lastResultFor(playerID string) (ActionResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.results) - 1; i >= 0; i-- {
		if m.results[i].playerID == playerID {
			return m.results[i].result, true
		}
	}
	return ActionResult{}, false
}

func (m *mockNotifier) lastTurn() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.turns) == 0 {
		return ""
	}
	return m.turns[len(m.turns)-1]
}

func (m *mockNotifier) summaryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.summaries)
}

// testGame wraps a crafted state in a Game without starting the loop;
// tests drive dispatch directly for determinism.
func testGame(hands ...[]*Card) (*Game, *mockNotifier) {
	n := newMockNotifier()
	g := NewGame(testState(hands...), testCfg(), n)
	return g, n
}

func TestStartMatchFlow(t *testing.T) {
	n := newMockNotifier()
	g := NewGame(NewGameState("g1", 2, 4, PermissionPrivate, false), testCfg(), n)

	g.dispatch(Action{Type: ActionPlayerJoined, PlayerID: "p1", PlayerName: "Alice", PlayerType: Human})
	g.dispatch(Action{Type: ActionPlayerJoined, PlayerID: "p2", PlayerName: "Bob", PlayerType: Human})
	g.dispatch(Action{Type: ActionStartMatch, PlayerID: "p1"})

	if g.State.Phase != PhaseDealingCards {
		t.Fatalf("phase = %s, want dealing_cards", g.State.Phase)
	}

	g.dispatch(Action{Type: ActionPregameTimeout})
	if g.State.Phase != PhasePlayerTurn {
		t.Errorf("phase = %s, want player_turn", g.State.Phase)
	}
	if n.lastTurn() != "p1" {
		t.Errorf("turn started for %s, want p1", n.lastTurn())
	}
	if g.State.Players[0].Status != StatusDrawingCard {
		t.Error("current player should be drawing")
	}
}

func TestStartMatchRejectedBelowMinimum(t *testing.T) {
	n := newMockNotifier()
	g := NewGame(NewGameState("g1", 2, 4, PermissionPrivate, false), testCfg(), n)
	g.dispatch(Action{Type: ActionPlayerJoined, PlayerID: "p1", PlayerName: "Alice", PlayerType: Human})
	g.dispatch(Action{Type: ActionStartMatch, PlayerID: "p1"})

	result, ok := n.lastResultFor("p1")
	if !ok || result.OK {
		t.Fatal("expected a rejection for a solo start")
	}
	if g.State.Phase != PhaseWaitingForPlayers {
		t.Error("failed start must not change phase")
	}
}

func TestPlayOpensWindowAndTimeoutAdvancesTurn(t *testing.T) {
	g, n := testGame(handOf(Ace, Two, Three, Four), handOf(Five, Six, Seven, Eight))
	g.State.DrawPile = handOf(Nine)
	g.State.recountDeckSize()

	g.dispatch(Action{Type: ActionDrawFromDeck, PlayerID: "p1"})
	g.dispatch(Action{Type: ActionPlaceDrawnPlay, PlayerID: "p1"})

	if g.State.Phase != PhaseSameRankWindow {
		t.Fatalf("phase = %s, want same_rank_window", g.State.Phase)
	}
	if g.State.OutOfTurnDeadline.IsZero() {
		t.Fatal("window deadline not set")
	}

	g.dispatch(Action{Type: ActionSameRankTimeout})
	if g.State.Phase != PhasePlayerTurn {
		t.Errorf("phase = %s, want player_turn", g.State.Phase)
	}
	if g.State.CurrentPlayerID != "p2" {
		t.Errorf("current = %s, want p2", g.State.CurrentPlayerID)
	}
	if n.lastTurn() != "p2" {
		t.Errorf("turn started for %s, want p2", n.lastTurn())
	}
	if !g.State.OutOfTurnDeadline.IsZero() {
		t.Error("deadline should be cleared after the window closes")
	}
}

func TestSameRankChainExtendsWindow(t *testing.T) {
	match := newCard(Nine, Clubs)
	g, _ := testGame(handOf(Ace, Two), []*Card{match, newCard(Six, Hearts)})
	g.Config.SameRankWindowSec = 5 // keep the window open for the interject
	g.State.DrawPile = []*Card{newCard(Nine, Spades)}
	g.State.recountDeckSize()

	g.dispatch(Action{Type: ActionDrawFromDeck, PlayerID: "p1"})
	g.dispatch(Action{Type: ActionPlaceDrawnPlay, PlayerID: "p1"})
	firstDeadline := g.State.OutOfTurnDeadline

	g.dispatch(Action{Type: ActionPlayOutOfTurn, PlayerID: "p2", CardID: match.ID})
	if g.State.Players[1].HandCount() != 1 {
		t.Error("interjected card should leave p2's hand")
	}
	if g.State.LastPlayedCard.ID != match.ID {
		t.Error("interjected card should become the new match target")
	}
	if g.State.OutOfTurnDeadline.Before(firstDeadline) {
		t.Error("chain play should not shorten the window")
	}
	if g.State.CurrentPlayerID != "p1" {
		t.Error("turn pointer must not move")
	}
}

func TestSpecialQueueResolvesInPlayOrder(t *testing.T) {
	interject := newCard(Queen, Clubs)
	g, _ := testGame(handOf(Ace, Two), []*Card{interject, newCard(Six, Hearts)})
	g.Config.SameRankWindowSec = 5
	g.State.DrawPile = []*Card{newCard(Queen, Spades)}
	g.State.recountDeckSize()

	g.dispatch(Action{Type: ActionDrawFromDeck, PlayerID: "p1"})
	g.dispatch(Action{Type: ActionPlaceDrawnPlay, PlayerID: "p1"})
	g.dispatch(Action{Type: ActionPlayOutOfTurn, PlayerID: "p2", CardID: interject.ID})
	g.State.OutOfTurnDeadline = time.Now().Add(-time.Millisecond) // expire the window
	g.dispatch(Action{Type: ActionSameRankTimeout})

	// p1 played a Queen first; their peek window opens before p2's.
	if g.State.Phase != PhaseSpecialPlayWindow {
		t.Fatalf("phase = %s, want special_play_window", g.State.Phase)
	}
	if g.activeSpecial == nil || g.activeSpecial.PlayerID != "p1" {
		t.Fatal("first special window should belong to p1")
	}
	if g.State.Players[0].Status != StatusQueenPeek {
		t.Error("p1 should be in queen_peek")
	}

	g.dispatch(Action{Type: ActionQueenPeek, PlayerID: "p1", TargetPlayerID: "p2", TargetIndex: 1})
	if g.activeSpecial == nil || g.activeSpecial.PlayerID != "p2" {
		t.Fatal("second special window should belong to p2")
	}
	peeked := g.State.Players[1].Hand[1]
	if len(g.State.Players[0].KnownFromOthers) != 1 || g.State.Players[0].KnownFromOthers[0].CardID != peeked.ID {
		t.Error("p1 should remember the peeked card")
	}

	g.dispatch(Action{Type: ActionQueenPeek, PlayerID: "p2", TargetPlayerID: "p2", TargetIndex: 1})
	if g.activeSpecial != nil {
		t.Error("queue should be drained")
	}
	if g.State.CurrentPlayerID != "p2" {
		t.Errorf("turn should advance to p2, got %s", g.State.CurrentPlayerID)
	}
}

func TestSpecialWindowTimeoutForfeits(t *testing.T) {
	g, _ := testGame(handOf(Ace, Two), handOf(Five, Six))
	g.State.DrawPile = []*Card{newCard(Queen, Spades)}
	g.State.recountDeckSize()

	g.dispatch(Action{Type: ActionDrawFromDeck, PlayerID: "p1"})
	g.dispatch(Action{Type: ActionPlaceDrawnPlay, PlayerID: "p1"})
	g.dispatch(Action{Type: ActionSameRankTimeout})
	if g.activeSpecial == nil {
		t.Fatal("queen window should be open")
	}

	g.dispatch(Action{Type: ActionSpecialTimeout})
	if g.activeSpecial != nil {
		t.Error("expired window should be forfeited")
	}
	if g.State.CurrentPlayerID != "p2" {
		t.Error("turn should advance after the forfeit")
	}
}

func TestJackSwapMovesCardsAndDropsKnowledge(t *testing.T) {
	g, n := testGame(handOf(Ace, Two), handOf(Five, Six))
	p1, p2 := g.State.Players[0], g.State.Players[1]
	a := p1.LookAtCardByIndex(0)
	b := p2.LookAtCardByIndex(0)
	p2.RememberForeignCard(a.ID, "p1")

	g.State.Phase = PhaseSpecialPlayWindow
	g.activeSpecial = &specialPlay{PlayerID: "p1", Power: SwitchCards}
	p1.SetStatus(StatusJackSwap)

	g.dispatch(Action{
		Type: ActionJackSwap, PlayerID: "p1",
		FirstPlayerID: "p1", FirstIndex: 0,
		SecondPlayerID: "p2", SecondIndex: 0,
	})

	if p1.Hand[0].ID != b.ID || p2.Hand[0].ID != a.ID {
		t.Fatal("cards not swapped")
	}
	if _, ok := p1.VisibleCards[a.ID]; ok {
		t.Error("p1's knowledge of the moved card should be dropped")
	}
	if _, ok := p2.VisibleCards[b.ID]; ok {
		t.Error("p2's knowledge of the moved card should be dropped")
	}
	if len(p2.KnownFromOthers) != 0 {
		t.Error("foreign knowledge of a moved card should be dropped")
	}
	if result, ok := n.lastResultFor("p1"); !ok || !result.OK {
		t.Error("swap should be acknowledged")
	}
}

func TestJackSwapRejectsBlankSlot(t *testing.T) {
	g, n := testGame(handOf(Ace, Two), handOf(Five, Six))
	p1 := g.State.Players[0]
	p1.RemoveCardFromHand(p1.Hand[1].ID) // blank at index 1

	g.State.Phase = PhaseSpecialPlayWindow
	g.activeSpecial = &specialPlay{PlayerID: "p1", Power: SwitchCards}
	p1.SetStatus(StatusJackSwap)

	g.dispatch(Action{
		Type: ActionJackSwap, PlayerID: "p1",
		FirstPlayerID: "p1", FirstIndex: 1,
		SecondPlayerID: "p2", SecondIndex: 0,
	})

	if result, ok := n.lastResultFor("p1"); !ok || result.OK {
		t.Fatal("blank slot swap should be rejected")
	}
	if g.activeSpecial == nil {
		t.Error("failed swap should leave the window open")
	}
}

func TestEmptyHandEndsGameImmediately(t *testing.T) {
	g, n := testGame(handOf(Ace), handOf(Queen, King))
	last := g.State.Players[0].Hand[0]
	g.State.Players[0].SetStatus(StatusPlayingCard)

	g.dispatch(Action{Type: ActionPlayCard, PlayerID: "p1", CardID: last.ID})

	if !g.Finished {
		t.Fatal("game should end when a hand empties")
	}
	if n.summaryCount() != 1 {
		t.Fatalf("expected one round summary, got %d", n.summaryCount())
	}
	winners := g.State.Winners
	if len(winners) != 1 || winners[0] != "p1" {
		t.Errorf("winners = %v, want [p1]", winners)
	}
}

func TestRecallLapEndsAtCaller(t *testing.T) {
	g, n := testGame(handOf(Ace), handOf(Ten))
	g.State.DrawPile = handOf(Nine, Eight)
	g.State.recountDeckSize()

	g.dispatch(Action{Type: ActionCallRecall, PlayerID: "p1"})
	if g.State.Phase != PhaseRecallCalled {
		t.Fatalf("phase = %s, want recall_called", g.State.Phase)
	}

	// The caller finishes their turn; every other player gets one more.
	g.dispatch(Action{Type: ActionDrawFromDeck, PlayerID: "p1"})
	g.dispatch(Action{Type: ActionPlaceDrawnPlay, PlayerID: "p1"})
	g.dispatch(Action{Type: ActionSameRankTimeout})

	if g.Finished {
		t.Fatal("game ended before the lap completed")
	}
	if g.State.CurrentPlayerID != "p2" || n.lastTurn() != "p2" {
		t.Fatal("p2 should get a final turn")
	}
	if g.State.Phase != PhaseRecallCalled {
		t.Errorf("final-lap turns should keep phase recall_called, got %s", g.State.Phase)
	}

	g.dispatch(Action{Type: ActionDrawFromDeck, PlayerID: "p2"})
	g.dispatch(Action{Type: ActionPlaceDrawnPlay, PlayerID: "p2"})
	g.dispatch(Action{Type: ActionSameRankTimeout})

	if !g.Finished {
		t.Fatal("game should end when the turn returns to the caller")
	}
	winners := g.State.Winners
	if len(winners) != 1 || winners[0] != "p1" {
		t.Errorf("winners = %v, want [p1]", winners)
	}
}

func TestRecallDuringSameRankWindowStillAdvancesTurn(t *testing.T) {
	g, n := testGame(handOf(Ace, Two), handOf(Five, Six))
	g.Config.SameRankWindowSec = 5 // keep the window open for the recall
	g.State.DrawPile = []*Card{newCard(Nine, Spades)}
	g.State.recountDeckSize()

	g.dispatch(Action{Type: ActionDrawFromDeck, PlayerID: "p1"})
	g.dispatch(Action{Type: ActionPlaceDrawnPlay, PlayerID: "p1"})
	g.dispatch(Action{Type: ActionCallRecall, PlayerID: "p1"})

	if result, ok := n.lastResultFor("p1"); !ok || !result.OK {
		t.Fatal("recall during the window should be accepted")
	}
	if g.State.Phase != PhaseSameRankWindow {
		t.Fatalf("phase = %s, the open window must keep its phase", g.State.Phase)
	}

	g.State.OutOfTurnDeadline = time.Now().Add(-time.Millisecond) // expire the window
	g.dispatch(Action{Type: ActionSameRankTimeout})

	if g.State.Phase != PhaseRecallCalled {
		t.Errorf("phase = %s, want recall_called", g.State.Phase)
	}
	if g.State.CurrentPlayerID != "p2" || n.lastTurn() != "p2" {
		t.Errorf("turn should advance to p2 once the window closes, got %s", g.State.CurrentPlayerID)
	}
	if g.State.Players[1].Status != StatusDrawingCard {
		t.Error("p2 should be drawing")
	}
}

func TestRecallDuringSpecialWindowStillResolvesWindow(t *testing.T) {
	g, _ := testGame(handOf(Ace, Two), handOf(Five, Six))
	g.State.DrawPile = []*Card{newCard(Queen, Spades)}
	g.State.recountDeckSize()

	g.dispatch(Action{Type: ActionDrawFromDeck, PlayerID: "p1"})
	g.dispatch(Action{Type: ActionPlaceDrawnPlay, PlayerID: "p1"})
	g.dispatch(Action{Type: ActionSameRankTimeout})
	if g.activeSpecial == nil {
		t.Fatal("queen window should be open")
	}

	g.dispatch(Action{Type: ActionCallRecall, PlayerID: "p1"})
	if g.State.Phase != PhaseSpecialPlayWindow {
		t.Fatalf("phase = %s, the open window must keep its phase", g.State.Phase)
	}

	g.dispatch(Action{Type: ActionSpecialTimeout})
	if g.activeSpecial != nil {
		t.Fatal("expired window should be forfeited")
	}
	if g.State.Phase != PhaseRecallCalled {
		t.Errorf("phase = %s, want recall_called", g.State.Phase)
	}
	if g.State.CurrentPlayerID != "p2" {
		t.Errorf("turn should advance to p2, got %s", g.State.CurrentPlayerID)
	}
}

func TestPregameLeaveRedirectsFirstTurn(t *testing.T) {
	n := newMockNotifier()
	g := NewGame(NewGameState("g1", 2, 4, PermissionPrivate, false), testCfg(), n)
	g.dispatch(Action{Type: ActionPlayerJoined, PlayerID: "p1", PlayerName: "Alice", PlayerType: Human})
	g.dispatch(Action{Type: ActionPlayerJoined, PlayerID: "p2", PlayerName: "Bob", PlayerType: Human})
	g.dispatch(Action{Type: ActionPlayerJoined, PlayerID: "p3", PlayerName: "Carol", PlayerType: Human})
	g.dispatch(Action{Type: ActionStartMatch, PlayerID: "p1"})

	// The first seat leaves while the initial-peek window is still open.
	g.dispatch(Action{Type: ActionPlayerLeft, PlayerID: "p1"})
	if g.Finished {
		t.Fatal("game should continue with two active players")
	}

	g.dispatch(Action{Type: ActionPregameTimeout})
	if g.State.CurrentPlayerID != "p2" || n.lastTurn() != "p2" {
		t.Fatalf("first turn should go to p2, got %s", g.State.CurrentPlayerID)
	}
	if p, _ := g.State.FindPlayer("p2"); p.Status != StatusDrawingCard {
		t.Error("p2 should be drawing")
	}
}

func TestRecallCallerLeavingEndsGame(t *testing.T) {
	g, _ := testGame(handOf(Ace), handOf(Ten), handOf(Two))
	g.dispatch(Action{Type: ActionCallRecall, PlayerID: "p2"})
	g.dispatch(Action{Type: ActionPlayerLeft, PlayerID: "p2"})
	if !g.Finished {
		t.Error("losing the recall caller should end the game")
	}
}

func TestCurrentPlayerLeavingAdvancesTurn(t *testing.T) {
	g, n := testGame(handOf(Ace), handOf(Ten), handOf(Two))
	g.dispatch(Action{Type: ActionPlayerLeft, PlayerID: "p1"})
	if g.Finished {
		t.Fatal("game should continue with two active players")
	}
	if g.State.CurrentPlayerID != "p2" || n.lastTurn() != "p2" {
		t.Errorf("turn should pass to p2, got %s", g.State.CurrentPlayerID)
	}
}

func TestLastOpponentLeavingEndsGame(t *testing.T) {
	g, _ := testGame(handOf(Ace), handOf(Ten))
	g.dispatch(Action{Type: ActionPlayerLeft, PlayerID: "p2"})
	if !g.Finished {
		t.Error("a game with one active player should end")
	}
}

func TestGameClosedStopsLoop(t *testing.T) {
	g, _ := testGame(handOf(Ace), handOf(Ten))
	go g.Run()
	g.Submit(Action{Type: ActionGameClosed})
	select {
	case <-g.Done:
	case <-time.After(2 * time.Second):
		t.Fatal("game loop did not stop")
	}
}

func TestConservationViolationFreezesGame(t *testing.T) {
	g, n := testGame(handOf(Ace, Two), handOf(Ten))
	g.State.Players[0].Hand[0] = nil // corrupt before the loop starts
	go g.Run()
	defer g.Submit(Action{Type: ActionGameClosed})

	g.Submit(Action{Type: ActionCallRecall, PlayerID: "p1"})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case views := <-n.stateCh:
			if v, ok := views["p1"]; ok && v.Phase == PhaseGameErrored.String() {
				return
			}
		case <-deadline:
			t.Fatal("game never froze after the invariant violation")
		}
	}
}
