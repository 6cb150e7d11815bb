package game

import (
	"encoding/json"
	"testing"
)

func TestStateViewHidesUnseenCards(t *testing.T) {
	gs := testState(handOf(Ace, Two), handOf(Five, Six))
	view := BuildStateView(gs, "p1", nil)

	for i, cv := range view.You.Hand {
		if cv == nil {
			t.Fatalf("slot %d unexpectedly blank", i)
		}
		if cv.ID == "" {
			t.Error("card ID must always be present")
		}
		if cv.Rank != "" || cv.Points != nil {
			t.Error("unseen own card must not expose rank or points")
		}
	}
	for _, opp := range view.Opponents {
		for _, cv := range opp.Hand {
			if cv.Rank != "" || cv.Points != nil {
				t.Error("foreign cards must not expose rank or points")
			}
		}
	}
}

func TestStateViewRevealsOwnInspectedCard(t *testing.T) {
	gs := testState(handOf(Ace, Two), handOf(Five))
	seen := gs.Players[0].LookAtCardByIndex(0)

	view := BuildStateView(gs, "p1", nil)
	cv := view.You.Hand[0]
	if cv.Rank != seen.Rank.String() || cv.Points == nil {
		t.Error("inspected own card should be revealed to its owner")
	}
	if view.You.Hand[1].Rank != "" {
		t.Error("uninspected card leaked")
	}

	// The other player still sees nothing.
	other := BuildStateView(gs, "p2", nil)
	if other.Opponents[0].Hand[0].Rank != "" {
		t.Error("owner-only visibility leaked to an opponent")
	}
}

func TestStateViewRevealsPeekedForeignCard(t *testing.T) {
	gs := testState(handOf(Ace), handOf(Five, Six))
	target := gs.Players[1].Hand[1]
	gs.Players[0].RememberForeignCard(target.ID, "p2")

	view := BuildStateView(gs, "p1", nil)
	cv := view.Opponents[0].Hand[1]
	if cv.Rank != target.Rank.String() {
		t.Error("peeked foreign card should be revealed to the peeker")
	}
	if view.Opponents[0].Hand[0].Rank != "" {
		t.Error("unpeeked foreign card leaked")
	}
}

func TestStateViewBlankSlotsSurviveSerialization(t *testing.T) {
	gs := testState(handOf(Ace, Two, Three, Four), handOf(Five))
	p1 := gs.Players[0]
	p1.RemoveCardFromHand(p1.Hand[1].ID)

	view := BuildStateView(gs, "p2", nil)
	data, err := json.Marshal(view)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Opponents []struct {
			Hand []*CardView `json:"hand"`
		} `json:"opponents"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	hand := decoded.Opponents[0].Hand
	if len(hand) != 4 {
		t.Fatalf("hand width = %d, want 4", len(hand))
	}
	if hand[1] != nil {
		t.Error("blank slot should serialize as null")
	}
	if hand[2] == nil {
		t.Error("occupied slot lost in serialization")
	}
}

func TestStateViewPendingDrawIsPrivate(t *testing.T) {
	gs := testState(handOf(Ace), handOf(Five))
	gs.DrawPile = handOf(Nine)
	gs.recountDeckSize()
	gs.DrawFromDeck("p1")

	own := BuildStateView(gs, "p1", nil)
	if own.PendingDraw == nil || own.PendingDraw.Rank != "nine" {
		t.Error("drawer should see their pending card")
	}

	other := BuildStateView(gs, "p2", nil)
	if other.PendingDraw != nil {
		t.Error("pending draw leaked to an opponent")
	}
	if len(other.Opponents) != 1 || !other.Opponents[0].HasPendingDraw {
		t.Error("opponents should still see that a draw is held")
	}
}

func TestStateViewSpecialWindow(t *testing.T) {
	gs := testState(handOf(Ace), handOf(Five))
	active := &specialPlay{PlayerID: "p2", Power: PeekAtCard}
	view := BuildStateView(gs, "p1", active)
	if view.SpecialPlayerID != "p2" || view.SpecialPower != "peek_at_card" {
		t.Errorf("special window not exposed: %q %q", view.SpecialPlayerID, view.SpecialPower)
	}
}

func TestSnapshotRoundTripShape(t *testing.T) {
	gs := testState(handOf(Ace, Two), handOf(Five))
	gs.DrawPile = handOf(Nine)
	gs.recountDeckSize()
	gs.DrawFromDeck("p1")
	gs.Players[0].LookAtCardByIndex(0)

	snap := gs.Snapshot()
	if snap.GameID != "g1" || len(snap.Players) != 2 {
		t.Fatal("snapshot missing core fields")
	}
	if snap.PendingDraws == nil || snap.Players[0].DrawnCard == nil {
		t.Error("snapshot must carry pending draws")
	}
	if len(snap.Players[0].VisibleCards) != 1 {
		t.Error("snapshot must carry visibility")
	}
	if _, err := json.Marshal(snap); err != nil {
		t.Fatal(err)
	}
}
