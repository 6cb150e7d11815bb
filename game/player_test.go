package game

import "testing"

func handOf(ranks ...Rank) []*Card {
	cards := make([]*Card, 0, len(ranks))
	for _, r := range ranks {
		cards = append(cards, newCard(r, Spades))
	}
	return cards
}

func TestRemoveCardLeavesBlankWithinInitialWidth(t *testing.T) {
	p := NewPlayer("p1", "Alice", Human)
	p.Hand = handOf(Ace, Two, Three, Four)
	removed := p.Hand[1]

	card, ok := p.RemoveCardFromHand(removed.ID)
	if !ok || card.ID != removed.ID {
		t.Fatal("expected removal to succeed")
	}
	if len(p.Hand) != 4 {
		t.Fatalf("hand width changed: %d", len(p.Hand))
	}
	if p.Hand[1] != nil {
		t.Error("vacated slot should stay blank")
	}
	if p.HandCount() != 3 {
		t.Errorf("HandCount = %d, want 3", p.HandCount())
	}
}

func TestRemoveCardKeepsBlankBelowOccupiedSlot(t *testing.T) {
	p := NewPlayer("p1", "Alice", Human)
	p.Hand = handOf(Ace, Two, Three, Four, Five, Six)

	// Removing index 4 must leave a blank because index 5 is occupied.
	target := p.Hand[4]
	p.RemoveCardFromHand(target.ID)
	if len(p.Hand) != 6 {
		t.Fatalf("hand width = %d, want 6", len(p.Hand))
	}
	if p.Hand[4] != nil {
		t.Error("slot 4 should be blank while slot 5 is occupied")
	}
}

func TestRemoveCardTruncatesTailBeyondInitialWidth(t *testing.T) {
	p := NewPlayer("p1", "Alice", Human)
	p.Hand = handOf(Ace, Two, Three, Four, Five, Six)

	// Drop index 5 first (tail, beyond width): the hand shrinks.
	p.RemoveCardFromHand(p.Hand[5].ID)
	if len(p.Hand) != 5 {
		t.Fatalf("hand width = %d, want 5", len(p.Hand))
	}

	// Now drop index 4: it is the new tail and also beyond the width.
	p.RemoveCardFromHand(p.Hand[4].ID)
	if len(p.Hand) != 4 {
		t.Fatalf("hand width = %d, want 4", len(p.Hand))
	}
}

func TestRemoveCardDropsBlankTail(t *testing.T) {
	p := NewPlayer("p1", "Alice", Human)
	p.Hand = handOf(Ace, Two, Three, Four, Five, Six)

	// Blank slot 4, then remove the tail card at 5: the blank tail goes too.
	p.RemoveCardFromHand(p.Hand[4].ID) // leaves blank, slot 5 occupied
	p.RemoveCardFromHand(p.Hand[5].ID)
	if len(p.Hand) != 4 {
		t.Fatalf("hand width = %d, want 4", len(p.Hand))
	}
}

func TestRemoveCardUnknownID(t *testing.T) {
	p := NewPlayer("p1", "Alice", Human)
	p.Hand = handOf(Ace, Two)
	if _, ok := p.RemoveCardFromHand("nope"); ok {
		t.Error("removal of unknown card should fail")
	}
	if p.HandCount() != 2 {
		t.Error("failed removal must not mutate the hand")
	}
}

func TestAddCardFillsFirstBlank(t *testing.T) {
	p := NewPlayer("p1", "Alice", Human)
	p.Hand = handOf(Ace, Two, Three, Four)
	p.RemoveCardFromHand(p.Hand[2].ID)

	added := newCard(Nine, Hearts)
	p.AddCardToHand(added)
	if p.Hand[2] == nil || p.Hand[2].ID != added.ID {
		t.Error("new card should land in the first blank slot")
	}
	if len(p.Hand) != 4 {
		t.Errorf("hand width = %d, want 4", len(p.Hand))
	}

	// No blanks left: the next card appends.
	extra := newCard(Ten, Hearts)
	p.AddCardToHand(extra)
	if len(p.Hand) != 5 || p.Hand[4].ID != extra.ID {
		t.Error("card should append when no blank exists")
	}
}

func TestCalculatePointsSkipsBlanks(t *testing.T) {
	p := NewPlayer("p1", "Alice", Human)
	p.Hand = handOf(Ace, Ten, Queen, King) // black: 1+10+10+10
	p.RemoveCardFromHand(p.Hand[3].ID)
	if got := p.CalculatePoints(); got != 21 {
		t.Errorf("points = %d, want 21", got)
	}
}

func TestHasEmptyHand(t *testing.T) {
	p := NewPlayer("p1", "Alice", Human)
	p.Hand = handOf(Ace)
	p.Hand = append(p.Hand, nil, nil)
	if p.HasEmptyHand() {
		t.Error("hand with one card is not empty")
	}
	p.RemoveCardFromHand(p.Hand[0].ID)
	if !p.HasEmptyHand() {
		t.Error("all-blank hand should count as empty")
	}
}

func TestLookAtCardMarksVisible(t *testing.T) {
	p := NewPlayer("p1", "Alice", Human)
	p.Hand = handOf(Ace, Two)

	card := p.LookAtCardByIndex(1)
	if card == nil {
		t.Fatal("expected a card at index 1")
	}
	if _, ok := p.VisibleCards[card.ID]; !ok {
		t.Error("looked-at card should be visible to its owner")
	}
	if p.LookAtCardByIndex(7) != nil {
		t.Error("out-of-range index should return nil")
	}
}

func TestForgetCardDropsAllKnowledge(t *testing.T) {
	p := NewPlayer("p1", "Alice", Human)
	p.Hand = handOf(Ace)
	own := p.LookAtCardByIndex(0)
	p.RememberForeignCard("foreign-1", "p2")
	p.RememberForeignCard("foreign-2", "p2")

	p.ForgetCard(own.ID)
	p.ForgetCard("foreign-1")

	if _, ok := p.VisibleCards[own.ID]; ok {
		t.Error("own visibility should be dropped")
	}
	if len(p.KnownFromOthers) != 1 || p.KnownFromOthers[0].CardID != "foreign-2" {
		t.Errorf("foreign knowledge = %v, want only foreign-2", p.KnownFromOthers)
	}
}

func TestRememberForeignCardDeduplicates(t *testing.T) {
	p := NewPlayer("p1", "Alice", Human)
	p.RememberForeignCard("c1", "p2")
	p.RememberForeignCard("c1", "p2")
	if len(p.KnownFromOthers) != 1 {
		t.Errorf("expected one entry, got %d", len(p.KnownFromOthers))
	}
}
