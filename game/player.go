package game

// initialHandWidth is the number of cards dealt to each player. Slots within
// this width always leave a blank behind when emptied, so the positions a
// player has memorized stay stable.
const initialHandWidth = 4

// PlayerType distinguishes humans from computer opponents.
type PlayerType int

const (
	Human PlayerType = iota
	Computer
)

// String returns the protocol string for a PlayerType.
func (pt PlayerType) String() string {
	if pt == Computer {
		return "computer"
	}
	return "human"
}

// PlayerStatus is the per-player state machine.
type PlayerStatus int

const (
	StatusWaiting PlayerStatus = iota
	StatusReady
	StatusDrawingCard
	StatusPlayingCard
	StatusSameRankWindow
	StatusQueenPeek
	StatusJackSwap
	StatusFinished
	StatusDisconnected
)

var statusNames = []string{
	"waiting", "ready", "drawing_card", "playing_card",
	"same_rank_window", "queen_peek", "jack_swap", "finished", "disconnected",
}

// String returns the protocol string for a PlayerStatus.
func (ps PlayerStatus) String() string {
	if ps < 0 || int(ps) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[ps]
}

// KnownCard records asymmetric knowledge: this player has seen the card with
// CardID while it sat in OwnerID's hand.
type KnownCard struct {
	CardID  string
	OwnerID string
}

// Player represents one seat in a game session. Hand positions may hold nil
// (a blank slot) so that indices remain stable for cards the player has
// already memorized.
type Player struct {
	ID                    string
	Type                  PlayerType
	Name                  string
	Hand                  []*Card
	VisibleCards          map[string]struct{} // own card IDs the player has inspected
	KnownFromOthers       []KnownCard
	Status                PlayerStatus
	HasCalledRecall       bool
	InitialPeeksRemaining int
	DrawnCard             *Card // pending draw, held outside the hand
}

// NewPlayer creates a player in the waiting state with a full peek budget.
func NewPlayer(id, name string, ptype PlayerType) *Player {
	return &Player{
		ID:                    id,
		Type:                  ptype,
		Name:                  name,
		Hand:                  []*Card{},
		VisibleCards:          make(map[string]struct{}),
		Status:                StatusWaiting,
		InitialPeeksRemaining: 2,
	}
}

// SetStatus transitions the player unconditionally. Legality is the engine's
// responsibility, not the player's.
func (p *Player) SetStatus(status PlayerStatus) {
	p.Status = status
}

// IsActive reports whether the player still takes turns.
func (p *Player) IsActive() bool {
	return p.Status != StatusFinished && p.Status != StatusDisconnected
}

// AddCardToHand fills the first blank slot if one exists, otherwise appends.
func (p *Player) AddCardToHand(card *Card) {
	for i, c := range p.Hand {
		if c == nil {
			p.Hand[i] = card
			return
		}
	}
	p.Hand = append(p.Hand, card)
}

// RemoveCardFromHand removes and returns the named card. The vacated position
// stays behind as a blank slot if a non-blank card exists at a higher index
// or the position is within the initial deal width; otherwise the hand
// shrinks from the tail. Returns false if the card is not in the hand.
func (p *Player) RemoveCardFromHand(cardID string) (*Card, bool) {
	idx := -1
	for i, c := range p.Hand {
		if c != nil && c.ID == cardID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, false
	}

	card := p.Hand[idx]
	if p.DrawnCard != nil && p.DrawnCard.ID == cardID {
		p.DrawnCard = nil
	}
	delete(p.VisibleCards, cardID)

	occupiedAbove := false
	for i := idx + 1; i < len(p.Hand); i++ {
		if p.Hand[i] != nil {
			occupiedAbove = true
			break
		}
	}

	if occupiedAbove || idx < initialHandWidth {
		p.Hand[idx] = nil
		return card, true
	}

	// Nothing occupied past idx and idx is beyond the initial width: drop the
	// slot and any blank tail behind it.
	p.Hand = p.Hand[:idx]
	for len(p.Hand) > initialHandWidth && p.Hand[len(p.Hand)-1] == nil {
		p.Hand = p.Hand[:len(p.Hand)-1]
	}
	return card, true
}

// CardAt returns the card at a hand index, or nil for blanks and
// out-of-range indices.
func (p *Player) CardAt(i int) *Card {
	if i < 0 || i >= len(p.Hand) {
		return nil
	}
	return p.Hand[i]
}

// LookAtCardByIndex marks the card at index i as seen by its owner and
// returns it. Returns nil for blank slots.
func (p *Player) LookAtCardByIndex(i int) *Card {
	card := p.CardAt(i)
	if card == nil {
		return nil
	}
	p.VisibleCards[card.ID] = struct{}{}
	return card
}

// RememberForeignCard records that this player has seen a card in another
// player's hand (Queen peek).
func (p *Player) RememberForeignCard(cardID, ownerID string) {
	for _, k := range p.KnownFromOthers {
		if k.CardID == cardID && k.OwnerID == ownerID {
			return
		}
	}
	p.KnownFromOthers = append(p.KnownFromOthers, KnownCard{CardID: cardID, OwnerID: ownerID})
}

// ForgetCard drops visibility and foreign-knowledge entries for a card that
// has been relocated (e.g. by a Jack swap). Stale positional memory is part
// of the game; the entries are removed, not rewritten.
func (p *Player) ForgetCard(cardID string) {
	delete(p.VisibleCards, cardID)
	kept := p.KnownFromOthers[:0]
	for _, k := range p.KnownFromOthers {
		if k.CardID != cardID {
			kept = append(kept, k)
		}
	}
	p.KnownFromOthers = kept
}

// CalculatePoints sums the point values of the non-blank hand cards.
func (p *Player) CalculatePoints() int {
	total := 0
	for _, c := range p.Hand {
		if c != nil {
			total += c.Points
		}
	}
	return total
}

// HandCount returns the number of non-blank cards in the hand.
func (p *Player) HandCount() int {
	n := 0
	for _, c := range p.Hand {
		if c != nil {
			n++
		}
	}
	return n
}

// HasEmptyHand reports whether every slot in the hand is blank.
func (p *Player) HasEmptyHand() bool {
	return p.HandCount() == 0
}
