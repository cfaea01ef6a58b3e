package spades

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"cardroom/internal/game"
)

// Four-seat partnership trick-taking game with bidding. Seats 0/2 form one
// partnership, 1/3 the other. One round of 13 tricks per match.

const (
	KindBid  = "spades:bid"
	KindPlay = "spades:play"

	nilBonus   = 100
	nilPenalty = 100
	seatCount  = 4
)

type BidAction struct {
	Bid int
}

func (a BidAction) Kind() string { return KindBid }

func (a BidAction) Covers(other game.Action) bool {
	o, ok := other.(BidAction)
	return ok && o.Bid == a.Bid
}

type PlayAction struct {
	Card game.Card
}

func (a PlayAction) Kind() string { return KindPlay }

func (a PlayAction) Covers(other game.Action) bool {
	o, ok := other.(PlayAction)
	return ok && o.Card == a.Card
}

type Phase string

const (
	PhaseBidding Phase = "bidding"
	PhasePlaying Phase = "playing"
	PhaseSettled Phase = "settled"
)

type Play struct {
	PlayerID string
	Card     game.Card
}

type Trick struct {
	Lead  game.Suit
	Led   bool
	Plays []Play
}

type TrickRecord struct {
	WinnerID string
	Plays    []Play
}

type State struct {
	Phase        Phase
	Stake        int64
	Players      []string
	Hands        map[string][]game.Card
	Bids         map[string]int
	Turn         int
	Trick        Trick
	History      []TrickRecord
	SpadesBroken bool
	TricksWon    map[string]int
	TeamScores   [2]int
	TeamBags     [2]int
}

func (s *State) GameKey() game.Key { return game.KeySpades }

// TeamOf maps a player to its partnership by seat parity.
func TeamOf(playerID string) int { return game.SeatOf(playerID) % 2 }

type PlayView struct {
	PlayerID string `json:"playerId"`
	Card     string `json:"card"`
}

type TrickView struct {
	LeadSuit string     `json:"leadSuit,omitempty"`
	Plays    []PlayView `json:"plays"`
}

type View struct {
	Phase        Phase          `json:"phase"`
	YourHand     []string       `json:"yourHand"`
	HandCounts   map[string]int `json:"handCounts"`
	TurnPlayerID string         `json:"turnPlayerId,omitempty"`
	Bids         map[string]int `json:"bids"`
	Trick        TrickView      `json:"trick"`
	SpadesBroken bool           `json:"spadesBroken"`
	TricksWon    map[string]int `json:"tricksWon"`
	TeamScores   [2]int         `json:"teamScores"`
}

type Plugin struct{}

func New() Plugin { return Plugin{} }

func (Plugin) Key() game.Key { return game.KeySpades }

func (Plugin) Seats() (int, int) { return seatCount, seatCount }

func (Plugin) NewMatch(seats int, stake int64, seed int64) game.State {
	deck := game.NewDeck(1, seed)
	s := &State{
		Phase:     PhaseBidding,
		Stake:     stake,
		Players:   make([]string, seatCount),
		Hands:     map[string][]game.Card{},
		Bids:      map[string]int{},
		TricksWon: map[string]int{},
	}
	for i := 0; i < seatCount; i++ {
		pid := game.PlayerID(i)
		s.Players[i] = pid
		hand := make([]game.Card, 0, 13)
		for j := 0; j < 13; j++ {
			c, _ := deck.Draw()
			hand = append(hand, c)
		}
		sortHand(hand)
		s.Hands[pid] = hand
		s.TricksWon[pid] = 0
	}
	return s
}

func sortHand(hand []game.Card) {
	sort.Slice(hand, func(i, j int) bool {
		if hand[i].Suit != hand[j].Suit {
			return hand[i].Suit < hand[j].Suit
		}
		return hand[i].Rank < hand[j].Rank
	})
}

func (Plugin) CurrentTurn(st game.State) string {
	s := st.(*State)
	if s.Phase == PhaseSettled {
		return ""
	}
	return s.Players[s.Turn]
}

func (p Plugin) LegalActions(st game.State, playerID string) []game.Action {
	s := st.(*State)
	if s.Phase == PhaseSettled || s.Players[s.Turn] != playerID {
		return nil
	}
	if s.Phase == PhaseBidding {
		actions := make([]game.Action, 0, 14)
		for b := 0; b <= 13; b++ {
			actions = append(actions, BidAction{Bid: b})
		}
		return actions
	}
	legal := legalCards(s, playerID)
	actions := make([]game.Action, 0, len(legal))
	for _, c := range legal {
		actions = append(actions, PlayAction{Card: c})
	}
	return actions
}

// legalCards enforces follow-suit and the broken-spades lead rule.
func legalCards(s *State, playerID string) []game.Card {
	hand := s.Hands[playerID]
	if !s.Trick.Led {
		if s.SpadesBroken {
			return hand
		}
		nonSpades := make([]game.Card, 0, len(hand))
		for _, c := range hand {
			if c.Suit != game.Spades {
				nonSpades = append(nonSpades, c)
			}
		}
		if len(nonSpades) > 0 {
			return nonSpades
		}
		return hand
	}
	follow := make([]game.Card, 0, len(hand))
	for _, c := range hand {
		if c.Suit == s.Trick.Lead {
			follow = append(follow, c)
		}
	}
	if len(follow) > 0 {
		return follow
	}
	return hand
}

func (p Plugin) Apply(st game.State, a game.Action, _ game.Context) (game.State, []game.Event, error) {
	s := st.(*State)
	playerID := s.Players[s.Turn]
	if !game.Legal(p.LegalActions(s, playerID), a) {
		return s, nil, nil
	}

	switch act := a.(type) {
	case BidAction:
		s.Bids[playerID] = act.Bid
		s.Turn = (s.Turn + 1) % seatCount
		var events []game.Event
		if len(s.Bids) == seatCount {
			s.Phase = PhasePlaying
			s.Turn = 0
			events = append(events, game.Event{Name: "bidding:done", Data: map[string]any{"bids": s.Bids}})
		}
		return s, events, nil

	case PlayAction:
		hand := s.Hands[playerID]
		idx := -1
		for i, c := range hand {
			if c == act.Card {
				idx = i
				break
			}
		}
		if idx < 0 {
			return s, nil, nil
		}
		s.Hands[playerID] = append(hand[:idx], hand[idx+1:]...)

		if !s.Trick.Led {
			s.Trick.Lead = act.Card.Suit
			s.Trick.Led = true
		}
		s.Trick.Plays = append(s.Trick.Plays, Play{PlayerID: playerID, Card: act.Card})
		if act.Card.Suit == game.Spades {
			s.SpadesBroken = true
		}

		var events []game.Event
		if len(s.Trick.Plays) == seatCount {
			winnerID := trickWinner(s.Trick)
			s.TricksWon[winnerID]++
			s.History = append(s.History, TrickRecord{WinnerID: winnerID, Plays: s.Trick.Plays})
			s.Turn = game.SeatOf(winnerID)
			s.Trick = Trick{}
			events = append(events, game.Event{Name: "trick:won", Data: map[string]any{"winner": winnerID}})
		} else {
			s.Turn = (s.Turn + 1) % seatCount
		}

		if len(s.History) == 13 {
			s.Phase = PhaseSettled
			s.finalizeScores()
			events = append(events, game.Event{Name: "round:scored", Data: map[string]any{
				"team0": s.TeamScores[0], "team1": s.TeamScores[1],
			}})
		}
		return s, events, nil
	}
	return s, nil, nil
}

func suitString(s game.Suit) string {
	switch s {
	case game.Spades:
		return "s"
	case game.Hearts:
		return "h"
	case game.Diamonds:
		return "d"
	default:
		return "c"
	}
}

// trickWinner: highest spade played wins; otherwise highest card of the led
// suit. Off-suit, non-spade discards never win.
func trickWinner(t Trick) string {
	winning := t.Plays[0]
	for _, play := range t.Plays[1:] {
		winSuit := winning.Card.Suit
		if play.Card.Suit == game.Spades {
			if winSuit != game.Spades || play.Card.Rank > winning.Card.Rank {
				winning = play
			}
			continue
		}
		if winSuit == game.Spades {
			continue
		}
		if play.Card.Suit == t.Lead && play.Card.Rank > winning.Card.Rank {
			winning = play
		}
	}
	return winning.PlayerID
}

func (s *State) finalizeScores() {
	var bids, tricks [2]int
	for _, pid := range s.Players {
		team := TeamOf(pid)
		bids[team] += s.Bids[pid]
		tricks[team] += s.TricksWon[pid]
	}
	for team := 0; team < 2; team++ {
		if tricks[team] >= bids[team] {
			s.TeamScores[team] = bids[team]*10 + (tricks[team] - bids[team])
			s.TeamBags[team] = tricks[team] - bids[team]
		} else {
			s.TeamScores[team] = -bids[team] * 10
		}
	}
	// Nil contracts score independently, on top of the bid arithmetic above
	// (where a nil contributes nothing to the partnership's summed bid).
	for _, pid := range s.Players {
		if s.Bids[pid] != 0 {
			continue
		}
		team := TeamOf(pid)
		if s.TricksWon[pid] == 0 {
			s.TeamScores[team] += nilBonus
		} else {
			s.TeamScores[team] -= nilPenalty
		}
	}
}

func (Plugin) View(st game.State, forPlayer string) any {
	s := st.(*State)
	v := View{
		Phase:        s.Phase,
		Bids:         s.Bids,
		SpadesBroken: s.SpadesBroken,
		TricksWon:    s.TricksWon,
		TeamScores:   s.TeamScores,
		HandCounts:   map[string]int{},
		YourHand:     []string{},
	}
	for _, c := range s.Hands[forPlayer] {
		v.YourHand = append(v.YourHand, c.String())
	}
	for pid, hand := range s.Hands {
		v.HandCounts[pid] = len(hand)
	}
	if s.Phase != PhaseSettled {
		v.TurnPlayerID = s.Players[s.Turn]
	}
	if s.Trick.Led {
		v.Trick.LeadSuit = suitString(s.Trick.Lead)
	}
	for _, p := range s.Trick.Plays {
		v.Trick.Plays = append(v.Trick.Plays, PlayView{PlayerID: p.PlayerID, Card: p.Card.String()})
	}
	return v
}

func (Plugin) Terminal(st game.State) bool {
	return st.(*State).Phase == PhaseSettled
}

func (Plugin) Winners(st game.State) game.Result {
	s := st.(*State)
	res := game.Result{ByPlayer: map[string]game.Outcome{}}
	switch {
	case s.TeamScores[0] == s.TeamScores[1]:
		for _, pid := range s.Players {
			res.ByPlayer[pid] = game.OutcomePush
		}
	default:
		winTeam := 0
		if s.TeamScores[1] > s.TeamScores[0] {
			winTeam = 1
		}
		for _, pid := range s.Players {
			if TeamOf(pid) == winTeam {
				res.ByPlayer[pid] = game.OutcomeWin
				res.Winners = append(res.Winners, pid)
			} else {
				res.ByPlayer[pid] = game.OutcomeLose
			}
		}
	}
	return res
}

func (p Plugin) BotAction(st game.State, botID string, skill int, rng *rand.Rand) game.Action {
	s := st.(*State)
	if s.Phase == PhaseBidding {
		return BidAction{Bid: estimateBid(s.Hands[botID])}
	}
	legal := legalCards(s, botID)
	if len(legal) == 0 {
		// Unreachable once it is the bot's turn; fall back to any card.
		return PlayAction{Card: s.Hands[botID][0]}
	}
	sorted := append([]game.Card(nil), legal...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })
	if skill >= 2 && rng.Float64() > 0.6 {
		return PlayAction{Card: sorted[len(sorted)-1]}
	}
	return PlayAction{Card: sorted[0]}
}

// estimateBid counts roughly one trick for each high honor, weighting
// trumps more generously.
func estimateBid(hand []game.Card) int {
	est := 0.0
	for _, c := range hand {
		if c.Suit == game.Spades {
			switch {
			case c.Rank >= game.Queen:
				est += 1
			case c.Rank >= game.Ten:
				est += 0.5
			default:
				est += 0.2
			}
			continue
		}
		switch c.Rank {
		case game.Ace:
			est += 1
		case game.King:
			est += 0.6
		case game.Queen:
			est += 0.4
		}
	}
	bid := int(est + 0.5)
	if bid > 13 {
		bid = 13
	}
	return bid
}

type wireAction struct {
	Type string `json:"type"`
	Bid  *int   `json:"bid,omitempty"`
	Card string `json:"card,omitempty"`
}

func (Plugin) DecodeAction(raw json.RawMessage) (game.Action, error) {
	var w wireAction
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	switch w.Type {
	case KindBid:
		if w.Bid == nil || *w.Bid < 0 || *w.Bid > 13 {
			return nil, errors.New("bid out of range")
		}
		return BidAction{Bid: *w.Bid}, nil
	case KindPlay:
		c, ok := game.ParseCard(w.Card)
		if !ok {
			return nil, fmt.Errorf("bad card %q", w.Card)
		}
		return PlayAction{Card: c}, nil
	}
	return nil, errors.New("unknown spades action")
}
