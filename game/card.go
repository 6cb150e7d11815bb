package game

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// Rank represents a card rank.
type Rank int

const (
	Ace Rank = iota
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	JokerRank
)

var rankNames = []string{
	"ace", "two", "three", "four", "five", "six", "seven",
	"eight", "nine", "ten", "jack", "queen", "king", "joker",
}

// String returns the protocol string for a Rank.
func (r Rank) String() string {
	if r < 0 || int(r) >= len(rankNames) {
		return "unknown"
	}
	return rankNames[r]
}

// Suit represents a card suit.
type Suit int

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
	JokerSuit
)

var suitNames = []string{"hearts", "diamonds", "clubs", "spades", "joker"}

// String returns the protocol string for a Suit.
func (s Suit) String() string {
	if s < 0 || int(s) >= len(suitNames) {
		return "unknown"
	}
	return suitNames[s]
}

// IsRed reports whether the suit is hearts or diamonds.
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// SpecialPower is the effect a card triggers when played.
type SpecialPower int

const (
	NoPower SpecialPower = iota
	PeekAtCard
	SwitchCards
)

// String returns the protocol string for a SpecialPower.
func (sp SpecialPower) String() string {
	switch sp {
	case PeekAtCard:
		return "peek_at_card"
	case SwitchCards:
		return "switch_cards"
	default:
		return "none"
	}
}

// Card is a single card in one game instance. The ID is a freshly generated
// UUID so card identities cannot be inferred across games. Cards are never
// destroyed, only moved between the draw pile, discard pile, hands and
// pending-draw slots.
type Card struct {
	ID     string
	Rank   Rank
	Suit   Suit
	Points int
	Power  SpecialPower
}

// String returns a human-readable description, e.g. "queen of hearts".
func (c *Card) String() string {
	if c.Rank == JokerRank {
		return "joker"
	}
	return fmt.Sprintf("%s of %s", c.Rank, c.Suit)
}

// pointsFor returns the point value for a rank/suit combination.
// House rule: red kings are worth 0 instead of 10.
func pointsFor(rank Rank, suit Suit) int {
	switch {
	case rank == JokerRank:
		return 0
	case rank == King:
		if suit.IsRed() {
			return 0
		}
		return 10
	case rank == Jack || rank == Queen:
		return 10
	default:
		return int(rank) + 1 // ace=1 through ten=10
	}
}

// powerFor returns the special power carried by a rank.
func powerFor(rank Rank) SpecialPower {
	switch rank {
	case Queen:
		return PeekAtCard
	case Jack:
		return SwitchCards
	default:
		return NoPower
	}
}

// newCard constructs a card with a fresh unique ID.
func newCard(rank Rank, suit Suit) *Card {
	return &Card{
		ID:     uuid.NewString(),
		Rank:   rank,
		Suit:   suit,
		Points: pointsFor(rank, suit),
		Power:  powerFor(rank),
	}
}

// NewDeck builds a shuffled 52-card deck, plus two jokers when requested.
func NewDeck(includeJokers bool) []*Card {
	cards := make([]*Card, 0, 54)
	for suit := Hearts; suit <= Spades; suit++ {
		for rank := Ace; rank <= King; rank++ {
			cards = append(cards, newCard(rank, suit))
		}
	}
	if includeJokers {
		cards = append(cards, newCard(JokerRank, JokerSuit))
		cards = append(cards, newCard(JokerRank, JokerSuit))
	}

	shuffleCards(cards)
	return cards
}

// shuffleCards shuffles a card slice in place. Shuffle quality, not
// crypto-grade randomness, is what matters here; the unguessable part of a
// card's identity is its UUID.
func shuffleCards(cards []*Card) {
	rand.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}
