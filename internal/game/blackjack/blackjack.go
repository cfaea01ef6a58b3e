package blackjack

import (
	"encoding/json"
	"errors"
	"math/rand"

	"cardroom/internal/game"
)

// Dealer-vs-player card game. Every seat plays its own hand against the
// house dealer from a shared 6-deck shoe; seats never compete with each
// other. Settlement is per seat versus the house for any seat count.

const (
	KindHit    = "bj:hit"
	KindStand  = "bj:stand"
	KindDouble = "bj:double"
)

type Action struct {
	Move string `json:"type"`
}

func (a Action) Kind() string { return a.Move }

func (a Action) Covers(other game.Action) bool { return a.Kind() == other.Kind() }

type Phase string

const (
	PhasePlayerTurn Phase = "player_turn"
	PhaseSettled    Phase = "settled"
)

type Hand struct {
	Cards   []game.Card
	Stood   bool
	Busted  bool
	Doubled bool
}

func (h Hand) done() bool { return h.Stood || h.Busted }

type State struct {
	Phase  Phase
	Seats  int
	Stake  int64
	Turn   int
	Hands  []Hand
	Dealer Hand
	Deck   *game.Deck
}

func (s *State) GameKey() game.Key { return game.KeyBlackjack }

type SeatView struct {
	PlayerID  string   `json:"playerId"`
	Cards     []string `json:"cards,omitempty"`
	CardCount int      `json:"cardCount"`
	Total     int      `json:"total,omitempty"`
	Soft      bool     `json:"soft,omitempty"`
	Stood     bool     `json:"stood"`
	Busted    bool     `json:"busted"`
	Doubled   bool     `json:"doubled"`
}

type View struct {
	Phase           Phase      `json:"phase"`
	DealerUpCard    string     `json:"dealerUpCard,omitempty"`
	DealerCardCount int        `json:"dealerCardCount"`
	DealerCards     []string   `json:"dealerCards,omitempty"`
	DealerTotal     int        `json:"dealerTotal,omitempty"`
	Seats           []SeatView `json:"seats"`
	TurnPlayerID    string     `json:"turnPlayerId,omitempty"`
}

type Plugin struct{}

func New() Plugin { return Plugin{} }

func (Plugin) Key() game.Key { return game.KeyBlackjack }

func (Plugin) Seats() (int, int) { return 1, 5 }

func (Plugin) NewMatch(seats int, stake int64, seed int64) game.State {
	deck := game.NewDeck(6, seed)
	s := &State{
		Phase: PhasePlayerTurn,
		Seats: seats,
		Stake: stake,
		Hands: make([]Hand, seats),
		Deck:  deck,
	}
	for i := 0; i < seats; i++ {
		c1, _ := deck.Draw()
		c2, _ := deck.Draw()
		s.Hands[i] = Hand{Cards: []game.Card{c1, c2}}
	}
	d1, _ := deck.Draw()
	d2, _ := deck.Draw()
	s.Dealer = Hand{Cards: []game.Card{d1, d2}}
	return s
}

func (Plugin) CurrentTurn(st game.State) string {
	s := st.(*State)
	if s.Phase != PhasePlayerTurn {
		return ""
	}
	return game.PlayerID(s.Turn)
}

func (p Plugin) LegalActions(st game.State, playerID string) []game.Action {
	s := st.(*State)
	if s.Phase != PhasePlayerTurn || game.PlayerID(s.Turn) != playerID {
		return nil
	}
	h := s.Hands[s.Turn]
	if h.done() {
		return nil
	}
	actions := []game.Action{Action{Move: KindHit}, Action{Move: KindStand}}
	if len(h.Cards) == 2 {
		actions = append(actions, Action{Move: KindDouble})
	}
	return actions
}

func (p Plugin) Apply(st game.State, a game.Action, _ game.Context) (game.State, []game.Event, error) {
	s := st.(*State)
	act, ok := a.(Action)
	if !ok || s.Phase != PhasePlayerTurn {
		return s, nil, nil
	}
	if !game.Legal(p.LegalActions(s, game.PlayerID(s.Turn)), act) {
		return s, nil, nil
	}

	var events []game.Event
	h := &s.Hands[s.Turn]
	switch act.Move {
	case KindHit:
		c, ok := s.Deck.Draw()
		if !ok {
			return s, nil, game.ErrDeckExhausted
		}
		h.Cards = append(h.Cards, c)
		if total, _ := HandTotal(h.Cards); total > 21 {
			h.Busted = true
			events = append(events, game.Event{Name: "player:bust", Data: map[string]any{"seat": s.Turn}})
		}
	case KindStand:
		h.Stood = true
	case KindDouble:
		c, ok := s.Deck.Draw()
		if !ok {
			return s, nil, game.ErrDeckExhausted
		}
		h.Doubled = true
		h.Cards = append(h.Cards, c)
		if total, _ := HandTotal(h.Cards); total > 21 {
			h.Busted = true
		}
		h.Stood = true
		events = append(events, game.Event{Name: "player:double", Data: map[string]any{"seat": s.Turn}})
	}

	if err := s.advance(); err != nil {
		return s, events, err
	}
	if s.Phase == PhaseSettled {
		events = append(events, game.Event{Name: "dealer:done", Data: nil})
	}
	return s, events, nil
}

// advance moves the turn pointer to the next seat that can still act; when
// none remain the dealer plays out and the state settles.
func (s *State) advance() error {
	for i := s.Turn; i < s.Seats; i++ {
		if !s.Hands[i].done() {
			s.Turn = i
			return nil
		}
	}
	return s.playDealer()
}

func (s *State) playDealer() error {
	anyLive := false
	for _, h := range s.Hands {
		if !h.Busted {
			anyLive = true
			break
		}
	}
	// Hits under 17, stands on all 17s including soft 17.
	for anyLive {
		total, _ := HandTotal(s.Dealer.Cards)
		if total >= 17 {
			break
		}
		c, ok := s.Deck.Draw()
		if !ok {
			return game.ErrDeckExhausted
		}
		s.Dealer.Cards = append(s.Dealer.Cards, c)
	}
	if total, _ := HandTotal(s.Dealer.Cards); total > 21 {
		s.Dealer.Busted = true
	}
	s.Dealer.Stood = true
	s.Phase = PhaseSettled
	return nil
}

func (Plugin) View(st game.State, forPlayer string) any {
	s := st.(*State)
	own := game.SeatOf(forPlayer)
	v := View{Phase: s.Phase, DealerCardCount: len(s.Dealer.Cards)}
	if s.Phase == PhasePlayerTurn {
		// Hole card stays hidden until the dealer plays.
		v.DealerUpCard = s.Dealer.Cards[0].String()
		v.DealerCardCount = 1
		v.TurnPlayerID = game.PlayerID(s.Turn)
	} else {
		for _, c := range s.Dealer.Cards {
			v.DealerCards = append(v.DealerCards, c.String())
		}
		v.DealerTotal, _ = HandTotal(s.Dealer.Cards)
	}
	for i, h := range s.Hands {
		sv := SeatView{
			PlayerID:  game.PlayerID(i),
			CardCount: len(h.Cards),
			Stood:     h.Stood,
			Busted:    h.Busted,
			Doubled:   h.Doubled,
		}
		if i == own || s.Phase == PhaseSettled {
			for _, c := range h.Cards {
				sv.Cards = append(sv.Cards, c.String())
			}
			sv.Total, sv.Soft = HandTotal(h.Cards)
		}
		v.Seats = append(v.Seats, sv)
	}
	return v
}

func (Plugin) Terminal(st game.State) bool {
	return st.(*State).Phase == PhaseSettled
}

func (Plugin) Winners(st game.State) game.Result {
	s := st.(*State)
	res := game.Result{ByPlayer: map[string]game.Outcome{}}
	for i, h := range s.Hands {
		pid := game.PlayerID(i)
		out := seatOutcome(h, s.Dealer)
		res.ByPlayer[pid] = out
		if out == game.OutcomeWin {
			res.Winners = append(res.Winners, pid)
		}
	}
	return res
}

// seatOutcome settles one seat against the dealer. Busting is absolute: a
// busted seat loses even when the dealer busts too.
func seatOutcome(h, dealer Hand) game.Outcome {
	pNat := IsNatural(h.Cards)
	dNat := IsNatural(dealer.Cards)
	switch {
	case pNat && dNat:
		return game.OutcomePush
	case pNat:
		return game.OutcomeWin
	case dNat:
		return game.OutcomeLose
	case h.Busted:
		return game.OutcomeLose
	case dealer.Busted:
		return game.OutcomeWin
	}
	pt, _ := HandTotal(h.Cards)
	dt, _ := HandTotal(dealer.Cards)
	switch {
	case pt > dt:
		return game.OutcomeWin
	case pt < dt:
		return game.OutcomeLose
	default:
		return game.OutcomePush
	}
}

func (p Plugin) BotAction(st game.State, botID string, _ int, _ *rand.Rand) game.Action {
	s := st.(*State)
	seat := game.SeatOf(botID)
	if seat < 0 || seat >= len(s.Hands) {
		return Action{Move: KindStand}
	}
	// Same policy drives turn timeouts: hit under 17, else stand.
	if total, _ := HandTotal(s.Hands[seat].Cards); total < 17 {
		return Action{Move: KindHit}
	}
	return Action{Move: KindStand}
}

func (Plugin) DecodeAction(raw json.RawMessage) (game.Action, error) {
	var a Action
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	switch a.Move {
	case KindHit, KindStand, KindDouble:
		return a, nil
	}
	return nil, errors.New("unknown blackjack action")
}

func cardValue(r game.Rank) int {
	switch {
	case r == game.Ace:
		return 11
	case r >= game.Ten:
		return 10
	default:
		return int(r)
	}
}

// HandTotal counts aces as 11, reducing to 1 one ace at a time while the
// total busts. soft is true while an ace still counts as 11.
func HandTotal(cards []game.Card) (total int, soft bool) {
	aces := 0
	for _, c := range cards {
		total += cardValue(c.Rank)
		if c.Rank == game.Ace {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total, aces > 0
}

// IsNatural reports an ace plus ten-value card on exactly two cards.
func IsNatural(cards []game.Card) bool {
	if len(cards) != 2 {
		return false
	}
	hasAce := cards[0].Rank == game.Ace || cards[1].Rank == game.Ace
	hasTen := cardValue(cards[0].Rank) == 10 || cardValue(cards[1].Rank) == 10
	return hasAce && hasTen
}
