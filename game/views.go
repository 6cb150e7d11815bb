package game

// CardDetail is a fully revealed card as sent to a player entitled to see
// it (own draws, peeks, the discard top).
type CardDetail struct {
	ID     string `json:"id"`
	Rank   string `json:"rank"`
	Suit   string `json:"suit"`
	Points int    `json:"points"`
	Power  string `json:"power,omitempty"`
}

// CardView is the obfuscated client-facing representation of a hand card.
// Rank/suit/points are only included when the recipient is entitled to see
// the card; everyone else gets the opaque ID.
type CardView struct {
	ID     string `json:"id"`
	Rank   string `json:"rank,omitempty"`
	Suit   string `json:"suit,omitempty"`
	Points *int   `json:"points,omitempty"`
	Power  string `json:"power,omitempty"`
}

// PlayerView is the client-facing representation of one seat. Hand entries
// are nil for blank slots so positional indices survive serialization.
type PlayerView struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Type            string      `json:"type"`
	Status          string      `json:"status"`
	Hand            []*CardView `json:"hand"`
	HandCount       int         `json:"handCount"`
	HasCalledRecall bool        `json:"hasCalledRecall"`
	PeeksRemaining  int         `json:"peeksRemaining,omitempty"`
	HasPendingDraw  bool        `json:"hasPendingDraw,omitempty"`
}

// StateView is the full obfuscated game state broadcast to one player.
type StateView struct {
	Type            string       `json:"type"`
	GameID          string       `json:"gameId"`
	Phase           string       `json:"phase"`
	CurrentPlayerID string       `json:"currentPlayerId,omitempty"`
	You             PlayerView   `json:"you"`
	Opponents       []PlayerView `json:"opponents"`
	DrawPileSize    int          `json:"drawPileSize"`
	DiscardPileSize int          `json:"discardPileSize"`
	DiscardTop      *CardDetail  `json:"discardTop,omitempty"`
	PendingDraw     *CardDetail  `json:"pendingDraw,omitempty"`

	// OutOfTurnDeadlineUnixMs is set while the same-rank window is open.
	OutOfTurnDeadlineUnixMs int64 `json:"outOfTurnDeadlineUnixMs,omitempty"`

	// SpecialPlayerID/SpecialPower identify the open special-power window.
	SpecialPlayerID string `json:"specialPlayerId,omitempty"`
	SpecialPower    string `json:"specialPower,omitempty"`

	RecallCalledBy string   `json:"recallCalledBy,omitempty"`
	Winners        []string `json:"winners,omitempty"`
}

// cardDetail builds the fully revealed form of a card.
func cardDetail(c *Card) CardDetail {
	d := CardDetail{
		ID:     c.ID,
		Rank:   c.Rank.String(),
		Suit:   c.Suit.String(),
		Points: c.Points,
	}
	if c.Power != NoPower {
		d.Power = c.Power.String()
	}
	return d
}

func cardDetails(cards []*Card) []CardDetail {
	out := make([]CardDetail, 0, len(cards))
	for _, c := range cards {
		out = append(out, cardDetail(c))
	}
	return out
}

// buildHandView renders owner's hand for recipient. Own cards are revealed
// only if the recipient has inspected them; foreign cards only via a Queen
// peek recorded in KnownFromOthers.
func buildHandView(owner, recipient *Player) []*CardView {
	views := make([]*CardView, len(owner.Hand))
	for i, c := range owner.Hand {
		if c == nil {
			continue
		}
		cv := &CardView{ID: c.ID}
		if canSee(recipient, owner, c.ID) {
			pts := c.Points
			cv.Rank = c.Rank.String()
			cv.Suit = c.Suit.String()
			cv.Points = &pts
			if c.Power != NoPower {
				cv.Power = c.Power.String()
			}
		}
		views[i] = cv
	}
	return views
}

func canSee(recipient, owner *Player, cardID string) bool {
	if recipient.ID == owner.ID {
		_, ok := recipient.VisibleCards[cardID]
		return ok
	}
	for _, k := range recipient.KnownFromOthers {
		if k.CardID == cardID && k.OwnerID == owner.ID {
			return true
		}
	}
	return false
}

// BuildStateView returns the game state as seen by the given player.
func BuildStateView(gs *GameState, playerID string, active *specialPlay) StateView {
	recipient, ok := gs.FindPlayer(playerID)
	if !ok {
		return StateView{Type: "game_state", GameID: gs.GameID, Phase: gs.Phase.String()}
	}

	buildPlayerView := func(p *Player) PlayerView {
		pv := PlayerView{
			ID:              p.ID,
			Name:            p.Name,
			Type:            p.Type.String(),
			Status:          p.Status.String(),
			Hand:            buildHandView(p, recipient),
			HandCount:       p.HandCount(),
			HasCalledRecall: p.HasCalledRecall,
			HasPendingDraw:  p.DrawnCard != nil,
		}
		if p.ID == recipient.ID {
			pv.PeeksRemaining = p.InitialPeeksRemaining
		}
		return pv
	}

	view := StateView{
		Type:            "game_state",
		GameID:          gs.GameID,
		Phase:           gs.Phase.String(),
		CurrentPlayerID: gs.CurrentPlayerID,
		You:             buildPlayerView(recipient),
		DrawPileSize:    len(gs.DrawPile),
		DiscardPileSize: len(gs.DiscardPile),
		RecallCalledBy:  gs.RecallCalledBy,
		Winners:         gs.Winners,
	}

	for _, p := range gs.Players {
		if p.ID != playerID {
			view.Opponents = append(view.Opponents, buildPlayerView(p))
		}
	}

	if len(gs.DiscardPile) > 0 {
		top := cardDetail(gs.DiscardPile[len(gs.DiscardPile)-1])
		view.DiscardTop = &top
	}
	if recipient.DrawnCard != nil {
		pending := cardDetail(recipient.DrawnCard)
		view.PendingDraw = &pending
	}
	if !gs.OutOfTurnDeadline.IsZero() {
		view.OutOfTurnDeadlineUnixMs = gs.OutOfTurnDeadline.UnixMilli()
	}
	if active != nil {
		view.SpecialPlayerID = active.PlayerID
		view.SpecialPower = active.Power.String()
	}

	return view
}

// PlayerSnapshot is the unobfuscated per-seat state used for resume.
type PlayerSnapshot struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Type            string        `json:"type"`
	Status          string        `json:"status"`
	Hand            []*CardDetail `json:"hand"`
	VisibleCards    []string      `json:"visibleCards,omitempty"`
	KnownFromOthers []KnownCard   `json:"knownFromOthers,omitempty"`
	HasCalledRecall bool          `json:"hasCalledRecall"`
	PeeksRemaining  int           `json:"peeksRemaining"`
	DrawnCard       *CardDetail   `json:"drawnCard,omitempty"`
}

// GameSnapshot is a full serializable copy of the aggregate. Durable storage
// of snapshots is an external concern; the engine only guarantees the shape
// carries every field needed to resume.
type GameSnapshot struct {
	GameID                  string                `json:"gameId"`
	Phase                   string                `json:"phase"`
	CurrentPlayerID         string                `json:"currentPlayerId,omitempty"`
	Players                 []PlayerSnapshot      `json:"players"`
	DrawPile                []CardDetail          `json:"drawPile"`
	DiscardPile             []CardDetail          `json:"discardPile"`
	PendingDraws            map[string]CardDetail `json:"pendingDraws,omitempty"`
	LastPlayedCard          *CardDetail           `json:"lastPlayedCard,omitempty"`
	OutOfTurnDeadlineUnixMs int64                 `json:"outOfTurnDeadlineUnixMs,omitempty"`
	RecallCalledBy          string                `json:"recallCalledBy,omitempty"`
	Winners                 []string              `json:"winners,omitempty"`
	MinPlayers              int                   `json:"minPlayers"`
	MaxPlayers              int                   `json:"maxPlayers"`
	Permission              string                `json:"permission"`
}

// Snapshot serializes the full aggregate.
func (gs *GameState) Snapshot() GameSnapshot {
	snap := GameSnapshot{
		GameID:          gs.GameID,
		Phase:           gs.Phase.String(),
		CurrentPlayerID: gs.CurrentPlayerID,
		DrawPile:        cardDetails(gs.DrawPile),
		DiscardPile:     cardDetails(gs.DiscardPile),
		RecallCalledBy:  gs.RecallCalledBy,
		Winners:         gs.Winners,
		MinPlayers:      gs.MinPlayers,
		MaxPlayers:      gs.MaxPlayers,
		Permission:      string(gs.Permission),
	}
	if !gs.OutOfTurnDeadline.IsZero() {
		snap.OutOfTurnDeadlineUnixMs = gs.OutOfTurnDeadline.UnixMilli()
	}
	if gs.LastPlayedCard != nil {
		last := cardDetail(gs.LastPlayedCard)
		snap.LastPlayedCard = &last
	}
	if len(gs.PendingDraws) > 0 {
		snap.PendingDraws = make(map[string]CardDetail, len(gs.PendingDraws))
		for id, c := range gs.PendingDraws {
			snap.PendingDraws[id] = cardDetail(c)
		}
	}

	for _, p := range gs.Players {
		ps := PlayerSnapshot{
			ID:              p.ID,
			Name:            p.Name,
			Type:            p.Type.String(),
			Status:          p.Status.String(),
			HasCalledRecall: p.HasCalledRecall,
			PeeksRemaining:  p.InitialPeeksRemaining,
			KnownFromOthers: p.KnownFromOthers,
		}
		ps.Hand = make([]*CardDetail, len(p.Hand))
		for i, c := range p.Hand {
			if c != nil {
				d := cardDetail(c)
				ps.Hand[i] = &d
			}
		}
		for id := range p.VisibleCards {
			ps.VisibleCards = append(ps.VisibleCards, id)
		}
		if p.DrawnCard != nil {
			d := cardDetail(p.DrawnCard)
			ps.DrawnCard = &d
		}
		snap.Players = append(snap.Players, ps)
	}
	return snap
}
