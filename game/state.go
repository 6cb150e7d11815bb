package game

import (
	"fmt"
	"time"

	"recall-server/gameerrors"
)

// Phase represents the lifecycle phase of a game.
type Phase int

const (
	PhaseWaitingForPlayers Phase = iota
	PhaseDealingCards
	PhasePlayerTurn
	PhaseSameRankWindow
	PhaseSpecialPlayWindow
	PhaseEndingRound
	PhaseRecallCalled
	PhaseGameEnded
	PhaseGameErrored
)

var phaseNames = []string{
	"waiting_for_players", "dealing_cards", "player_turn", "same_rank_window",
	"special_play_window", "ending_round", "recall_called", "game_ended", "game_errored",
}

// String returns the protocol string for a Phase.
func (ph Phase) String() string {
	if ph < 0 || int(ph) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[ph]
}

// Permission controls whether a room is listed publicly.
type Permission string

const (
	PermissionPublic  Permission = "public"
	PermissionPrivate Permission = "private"
)

// FinalScores is the result of ending a game.
type FinalScores struct {
	Scores       map[string]int `json:"scores"`
	Winners      []string       `json:"winners"`
	RecallCaller string         `json:"recallCaller,omitempty"`
}

// GameState is the authoritative aggregate for one game instance. All shared
// mutation goes through the methods below; the owning game goroutine applies
// them one at a time.
type GameState struct {
	GameID          string
	Phase           Phase
	Players         []*Player // insertion order is turn order
	CurrentPlayerID string
	DrawPile        []*Card
	DiscardPile     []*Card // last element is top of discard
	PendingDraws    map[string]*Card
	LastPlayedCard  *Card

	// OutOfTurnDeadline bounds the same-rank window; zero means closed.
	OutOfTurnDeadline time.Time

	RecallCalledBy string
	Winners        []string
	MinPlayers     int
	MaxPlayers     int
	Permission     Permission

	IncludeJokers bool
	deckSize      int
}

// NewGameState creates an empty game in the waiting phase.
func NewGameState(gameID string, minPlayers, maxPlayers int, permission Permission, includeJokers bool) *GameState {
	return &GameState{
		GameID:        gameID,
		Phase:         PhaseWaitingForPlayers,
		PendingDraws:  make(map[string]*Card),
		MinPlayers:    minPlayers,
		MaxPlayers:    maxPlayers,
		Permission:    permission,
		IncludeJokers: includeJokers,
	}
}

// FindPlayer returns the player with the given ID.
func (gs *GameState) FindPlayer(id string) (*Player, bool) {
	for _, p := range gs.Players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// AddPlayer seats a player. Only possible before the deal.
func (gs *GameState) AddPlayer(p *Player) error {
	if gs.Phase != PhaseWaitingForPlayers {
		return gameerrors.ErrAlreadyStarted
	}
	if len(gs.Players) >= gs.MaxPlayers {
		return gameerrors.ErrRoomFull
	}
	if _, ok := gs.FindPlayer(p.ID); ok {
		return nil
	}
	gs.Players = append(gs.Players, p)
	return nil
}

// RemovePlayer removes a player pre-game, or marks them disconnected
// mid-game so the game stays alive and skips their turns.
func (gs *GameState) RemovePlayer(playerID string) {
	if gs.Phase == PhaseWaitingForPlayers {
		for i, p := range gs.Players {
			if p.ID == playerID {
				gs.Players = append(gs.Players[:i], gs.Players[i+1:]...)
				return
			}
		}
		return
	}
	if p, ok := gs.FindPlayer(playerID); ok {
		p.SetStatus(StatusDisconnected)
		// A stranded pending draw goes to the discard pile so no card is lost.
		if card, held := gs.PendingDraws[playerID]; held {
			delete(gs.PendingDraws, playerID)
			p.DrawnCard = nil
			gs.DiscardPile = append(gs.DiscardPile, card)
		}
	}
}

// Deal builds the deck and deals the opening hands. Requires min players.
func (gs *GameState) Deal() error {
	if gs.Phase != PhaseWaitingForPlayers {
		return gameerrors.ErrAlreadyStarted
	}
	if len(gs.Players) < gs.MinPlayers {
		return gameerrors.ErrInsufficientPlayers
	}

	gs.DrawPile = NewDeck(gs.IncludeJokers)
	gs.deckSize = len(gs.DrawPile)
	gs.DiscardPile = []*Card{}

	for _, p := range gs.Players {
		p.Hand = make([]*Card, 0, initialHandWidth)
		for i := 0; i < initialHandWidth; i++ {
			card := gs.DrawPile[0]
			gs.DrawPile = gs.DrawPile[1:]
			p.Hand = append(p.Hand, card)
		}
		p.SetStatus(StatusReady)
	}

	gs.Phase = PhaseDealingCards
	gs.CurrentPlayerID = gs.Players[0].ID
	return nil
}

// DeckSize returns the total number of cards in play.
func (gs *GameState) DeckSize() int {
	return gs.deckSize
}

// running reports whether turn-scoped actions are currently accepted.
func (gs *GameState) running() bool {
	switch gs.Phase {
	case PhasePlayerTurn, PhaseSameRankWindow, PhaseSpecialPlayWindow, PhaseRecallCalled:
		return true
	default:
		return false
	}
}

// requireCurrentPlayer validates that the acting player exists, owns the
// turn, and holds the expected status.
func (gs *GameState) requireCurrentPlayer(playerID string, status PlayerStatus) (*Player, error) {
	if !gs.running() {
		return nil, gameerrors.ErrGameNotRunning
	}
	p, ok := gs.FindPlayer(playerID)
	if !ok {
		return nil, gameerrors.ErrNotInRoom
	}
	if playerID != gs.CurrentPlayerID {
		return nil, gameerrors.ErrNotYourTurn
	}
	if p.Status != status {
		return nil, gameerrors.ErrNotYourTurn
	}
	return p, nil
}

// replenishDrawPile moves all but the top discard card back into the draw
// pile when the draw pile is empty. Card identities are preserved; only pile
// membership changes. The reshuffled cards keep their relative order
// scrambled by a fresh shuffle of the recycled slice.
func (gs *GameState) replenishDrawPile() {
	if len(gs.DrawPile) > 0 || len(gs.DiscardPile) <= 1 {
		return
	}
	top := gs.DiscardPile[len(gs.DiscardPile)-1]
	recycled := append([]*Card{}, gs.DiscardPile[:len(gs.DiscardPile)-1]...)
	gs.DiscardPile = []*Card{top}
	shuffleCards(recycled)
	gs.DrawPile = recycled
}

// DrawFromDeck pops the front of the draw pile into the player's pending
// draw slot. Replenishes from the discard pile first if needed.
func (gs *GameState) DrawFromDeck(playerID string) (*Card, error) {
	p, err := gs.requireCurrentPlayer(playerID, StatusDrawingCard)
	if err != nil {
		return nil, err
	}
	gs.replenishDrawPile()
	if len(gs.DrawPile) == 0 {
		return nil, gameerrors.ErrEmptyPile
	}
	card := gs.DrawPile[0]
	gs.DrawPile = gs.DrawPile[1:]
	gs.PendingDraws[playerID] = card
	p.DrawnCard = card
	p.SetStatus(StatusPlayingCard)
	return card, nil
}

// TakeFromDiscard pops the top discard card into the player's pending draw
// slot.
func (gs *GameState) TakeFromDiscard(playerID string) (*Card, error) {
	p, err := gs.requireCurrentPlayer(playerID, StatusDrawingCard)
	if err != nil {
		return nil, err
	}
	if len(gs.DiscardPile) == 0 {
		return nil, gameerrors.ErrEmptyPile
	}
	card := gs.DiscardPile[len(gs.DiscardPile)-1]
	gs.DiscardPile = gs.DiscardPile[:len(gs.DiscardPile)-1]
	gs.PendingDraws[playerID] = card
	p.DrawnCard = card
	p.SetStatus(StatusPlayingCard)
	return card, nil
}

// PlaceDrawnCardReplace swaps the pending card into the slot of the target
// card; the replaced card goes to the discard pile and becomes the last
// played card. The turn does not advance: the player still ends the turn
// with PlayCard, and no interrupt window opens for the replaced card.
func (gs *GameState) PlaceDrawnCardReplace(playerID, targetCardID string) (placed, discarded *Card, err error) {
	p, err := gs.requireCurrentPlayer(playerID, StatusPlayingCard)
	if err != nil {
		return nil, nil, err
	}
	pending, ok := gs.PendingDraws[playerID]
	if !ok {
		return nil, nil, gameerrors.ErrNoPendingDraw
	}

	idx := -1
	for i, c := range p.Hand {
		if c != nil && c.ID == targetCardID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, nil, gameerrors.ErrInvalidCardReference
	}

	replaced := p.Hand[idx]
	p.Hand[idx] = pending
	delete(p.VisibleCards, replaced.ID)
	p.VisibleCards[pending.ID] = struct{}{} // the player saw the card they drew

	delete(gs.PendingDraws, playerID)
	p.DrawnCard = nil

	gs.DiscardPile = append(gs.DiscardPile, replaced)
	gs.LastPlayedCard = replaced
	return pending, replaced, nil
}

// PlaceDrawnCardPlay sends the pending card straight to the discard pile and
// makes it the last played card. The caller (round controller) opens the
// interrupt window, runs special-power checks and advances or ends the game.
func (gs *GameState) PlaceDrawnCardPlay(playerID string) (*Card, error) {
	p, err := gs.requireCurrentPlayer(playerID, StatusPlayingCard)
	if err != nil {
		return nil, err
	}
	pending, ok := gs.PendingDraws[playerID]
	if !ok {
		return nil, gameerrors.ErrNoPendingDraw
	}
	delete(gs.PendingDraws, playerID)
	p.DrawnCard = nil

	gs.DiscardPile = append(gs.DiscardPile, pending)
	gs.LastPlayedCard = pending
	return pending, nil
}

// PlayCard removes the named card from the current player's hand and
// discards it. A drawn card still pending placement blocks this: the player
// must replace or play the pending card first, so no card is ever stranded
// outside a zone. Window opening and turn advancement belong to the caller.
func (gs *GameState) PlayCard(playerID, cardID string) (*Card, error) {
	p, err := gs.requireCurrentPlayer(playerID, StatusPlayingCard)
	if err != nil {
		return nil, err
	}
	if _, held := gs.PendingDraws[playerID]; held {
		return nil, gameerrors.ErrPendingDraw
	}
	card, ok := p.RemoveCardFromHand(cardID)
	if !ok {
		return nil, gameerrors.ErrInvalidCardReference
	}
	gs.DiscardPile = append(gs.DiscardPile, card)
	gs.LastPlayedCard = card
	return card, nil
}

// PlayOutOfTurn plays a card outside the owner's turn. Valid only while the
// same-rank window is open and the card's rank matches the last played card.
// On success the deadline is re-extended so further players may chain plays;
// the turn pointer never changes.
func (gs *GameState) PlayOutOfTurn(playerID, cardID string, now time.Time, extension time.Duration) (*Card, error) {
	if !gs.running() {
		return nil, gameerrors.ErrGameNotRunning
	}
	p, ok := gs.FindPlayer(playerID)
	if !ok {
		return nil, gameerrors.ErrNotInRoom
	}
	if gs.LastPlayedCard == nil {
		return nil, gameerrors.ErrNoCardToMatch
	}
	if gs.OutOfTurnDeadline.IsZero() || now.After(gs.OutOfTurnDeadline) {
		return nil, gameerrors.ErrWindowClosed
	}

	// Locate before removing so a rank mismatch mutates nothing.
	var target *Card
	for _, c := range p.Hand {
		if c != nil && c.ID == cardID {
			target = c
			break
		}
	}
	if target == nil {
		return nil, gameerrors.ErrInvalidCardReference
	}
	if target.Rank != gs.LastPlayedCard.Rank {
		return nil, gameerrors.ErrRankMismatch
	}

	card, _ := p.RemoveCardFromHand(cardID)
	gs.DiscardPile = append(gs.DiscardPile, card)
	gs.LastPlayedCard = card
	gs.OutOfTurnDeadline = now.Add(extension)
	return card, nil
}

// InitialPeek reveals up to the player's remaining peek budget of hand cards
// at the requested indices. Only honored during the dealing phase.
func (gs *GameState) InitialPeek(playerID string, indices []int) ([]*Card, error) {
	if gs.Phase != PhaseDealingCards {
		return nil, gameerrors.ErrWindowClosed
	}
	p, ok := gs.FindPlayer(playerID)
	if !ok {
		return nil, gameerrors.ErrNotInRoom
	}
	if p.InitialPeeksRemaining <= 0 {
		return nil, gameerrors.ErrNoPeeksRemaining
	}

	revealed := []*Card{}
	for _, i := range indices {
		if p.InitialPeeksRemaining <= 0 {
			break
		}
		card := p.LookAtCardByIndex(i)
		if card == nil {
			continue
		}
		p.InitialPeeksRemaining--
		revealed = append(revealed, card)
	}
	return revealed, nil
}

// CallRecall marks the caller. The round continues until the turn order
// returns to the caller. The phase flips only during a plain turn: an open
// interrupt or special window keeps its phase so the pending timeout still
// closes it, and beginTurn derives recall_called from RecallCalledBy.
func (gs *GameState) CallRecall(playerID string) error {
	if !gs.running() {
		return gameerrors.ErrGameNotRunning
	}
	p, ok := gs.FindPlayer(playerID)
	if !ok {
		return gameerrors.ErrNotInRoom
	}
	if gs.RecallCalledBy != "" {
		return gameerrors.ErrAlreadyCalledRecall
	}
	gs.RecallCalledBy = playerID
	p.HasCalledRecall = true
	if gs.Phase == PhasePlayerTurn {
		gs.Phase = PhaseRecallCalled
	}
	return nil
}

// NextActivePlayerID returns the next eligible player after the given one in
// turn order, wrapping around. Returns "" when no other player is active.
func (gs *GameState) NextActivePlayerID(afterID string) string {
	start := -1
	for i, p := range gs.Players {
		if p.ID == afterID {
			start = i
			break
		}
	}
	if start == -1 {
		return ""
	}
	for off := 1; off <= len(gs.Players); off++ {
		p := gs.Players[(start+off)%len(gs.Players)]
		if p.IsActive() {
			return p.ID
		}
	}
	return ""
}

// EndGame computes final scores and winners. Idempotent: calling it on an
// already ended game returns the recorded result.
//
// The ladder, in order: an empty hand wins outright; otherwise the lowest
// point total wins; a tie including the recall caller goes to the caller; a
// tie without the caller is reported as joint winners.
func (gs *GameState) EndGame() FinalScores {
	scores := make(map[string]int, len(gs.Players))
	for _, p := range gs.Players {
		scores[p.ID] = p.CalculatePoints()
	}

	if gs.Phase == PhaseGameEnded {
		return FinalScores{Scores: scores, Winners: gs.Winners, RecallCaller: gs.RecallCalledBy}
	}

	var winners []string

	for _, p := range gs.Players {
		if p.IsActive() && p.HasEmptyHand() {
			winners = []string{p.ID}
			break
		}
	}

	if winners == nil {
		minPoints := -1
		for _, p := range gs.Players {
			if !p.IsActive() {
				continue
			}
			pts := scores[p.ID]
			if minPoints == -1 || pts < minPoints {
				minPoints = pts
			}
		}
		var tied []string
		for _, p := range gs.Players {
			if p.IsActive() && scores[p.ID] == minPoints {
				tied = append(tied, p.ID)
			}
		}
		if len(tied) > 1 && gs.RecallCalledBy != "" {
			for _, id := range tied {
				if id == gs.RecallCalledBy {
					tied = []string{id}
					break
				}
			}
		}
		winners = tied
	}

	gs.Winners = winners
	gs.Phase = PhaseGameEnded
	gs.OutOfTurnDeadline = time.Time{}
	for _, p := range gs.Players {
		if p.IsActive() {
			p.SetStatus(StatusFinished)
		}
	}
	return FinalScores{Scores: scores, Winners: winners, RecallCaller: gs.RecallCalledBy}
}

// CheckConservation verifies that every card is in exactly one zone: the sum
// of non-blank hand cards, both piles and pending draws must equal the deck
// size. A failure means the aggregate is corrupted and the game must stop.
func (gs *GameState) CheckConservation() error {
	if gs.deckSize == 0 {
		return nil // not dealt yet
	}
	total := len(gs.DrawPile) + len(gs.DiscardPile) + len(gs.PendingDraws)
	for _, p := range gs.Players {
		total += p.HandCount()
	}
	if total != gs.deckSize {
		return fmt.Errorf("card conservation broken: have %d cards, want %d", total, gs.deckSize)
	}
	return nil
}
