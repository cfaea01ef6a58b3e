package holdem

import (
	"encoding/json"
	"errors"
	"math/rand"

	"cardroom/internal/game"
)

// Community-card betting game for 2-6 seats. Betting uses nominal chips to
// drive fold/check/call/raise pressure; the pot staked through the ledger is
// settled separately by the room layer.

const (
	KindFold  = "he:fold"
	KindCheck = "he:check"
	KindCall  = "he:call"
	KindRaise = "he:raise"

	// MinRaise is the fixed minimum raise increment.
	MinRaise int64 = 100
)

type Action struct {
	Move   string
	Amount int64
}

func (a Action) Kind() string { return a.Move }

func (a Action) Covers(other game.Action) bool {
	// A raise admits any amount; the engine clamps to the minimum.
	return a.Kind() == other.Kind()
}

type Phase string

const (
	PhasePreflop Phase = "preflop"
	PhaseFlop    Phase = "flop"
	PhaseTurn    Phase = "turn"
	PhaseRiver   Phase = "river"
	PhaseSettled Phase = "settled"
)

type State struct {
	Phase      Phase
	Stake      int64
	Players    []string
	Turn       int
	Community  []game.Card
	Hole       map[string][]game.Card
	Folded     map[string]bool
	Bets       map[string]int64
	Pot        int64
	CurrentBet int64
	MinRaise   int64
	Acted      map[string]bool
	Deck       *game.Deck
	Showdown   bool
}

func (s *State) GameKey() game.Key { return game.KeyHoldem }

type PlayerView struct {
	PlayerID string `json:"playerId"`
	Folded   bool   `json:"folded"`
	Bet      int64  `json:"bet"`
}

type View struct {
	Phase        Phase        `json:"phase"`
	Community    []string     `json:"community"`
	Pot          int64        `json:"pot"`
	CurrentBet   int64        `json:"currentBet"`
	TurnPlayerID string       `json:"turnPlayerId,omitempty"`
	Players      []PlayerView `json:"players"`
	YourHand     []string     `json:"yourHand"`
	CallAmount   int64        `json:"callAmount"`
	MinRaise     int64        `json:"minRaise"`
}

type Plugin struct{}

func New() Plugin { return Plugin{} }

func (Plugin) Key() game.Key { return game.KeyHoldem }

func (Plugin) Seats() (int, int) { return 2, 6 }

func (Plugin) NewMatch(seats int, stake int64, seed int64) game.State {
	deck := game.NewDeck(1, seed)
	s := &State{
		Phase:    PhasePreflop,
		Stake:    stake,
		Players:  make([]string, seats),
		Hole:     map[string][]game.Card{},
		Folded:   map[string]bool{},
		Bets:     map[string]int64{},
		Acted:    map[string]bool{},
		MinRaise: MinRaise,
		Deck:     deck,
	}
	for i := 0; i < seats; i++ {
		pid := game.PlayerID(i)
		s.Players[i] = pid
		c1, _ := deck.Draw()
		c2, _ := deck.Draw()
		s.Hole[pid] = []game.Card{c1, c2}
	}
	return s
}

func (s *State) active() []string {
	out := make([]string, 0, len(s.Players))
	for _, pid := range s.Players {
		if !s.Folded[pid] {
			out = append(out, pid)
		}
	}
	return out
}

func (s *State) nextActive(from int) int {
	n := len(s.Players)
	for i := 1; i <= n; i++ {
		idx := (from + i) % n
		if !s.Folded[s.Players[idx]] {
			return idx
		}
	}
	return from
}

// A betting round is complete once every unfolded seat has matched the
// current bet and acted since the last raise.
func (s *State) roundComplete() bool {
	actives := s.active()
	if len(actives) <= 1 {
		return true
	}
	for _, pid := range actives {
		if s.Bets[pid] != s.CurrentBet || !s.Acted[pid] {
			return false
		}
	}
	return true
}

func (s *State) dealCommunity(n int) error {
	for i := 0; i < n; i++ {
		c, ok := s.Deck.Draw()
		if !ok {
			return game.ErrDeckExhausted
		}
		s.Community = append(s.Community, c)
	}
	return nil
}

func (s *State) resetBets() {
	for _, pid := range s.Players {
		s.Bets[pid] = 0
		s.Acted[pid] = false
	}
	s.CurrentBet = 0
}

func (s *State) advancePhase() error {
	switch s.Phase {
	case PhasePreflop:
		s.Phase = PhaseFlop
		if err := s.dealCommunity(3); err != nil {
			return err
		}
	case PhaseFlop:
		s.Phase = PhaseTurn
		if err := s.dealCommunity(1); err != nil {
			return err
		}
	case PhaseTurn:
		s.Phase = PhaseRiver
		if err := s.dealCommunity(1); err != nil {
			return err
		}
	case PhaseRiver:
		s.Phase = PhaseSettled
		s.Showdown = true
	}
	s.resetBets()
	return nil
}

func (Plugin) CurrentTurn(st game.State) string {
	s := st.(*State)
	if s.Phase == PhaseSettled {
		return ""
	}
	pid := s.Players[s.Turn]
	if s.Folded[pid] {
		return ""
	}
	return pid
}

func (p Plugin) LegalActions(st game.State, playerID string) []game.Action {
	s := st.(*State)
	if s.Phase == PhaseSettled || s.Players[s.Turn] != playerID || s.Folded[playerID] {
		return nil
	}
	actions := []game.Action{Action{Move: KindFold}}
	if s.CurrentBet <= s.Bets[playerID] {
		actions = append(actions, Action{Move: KindCheck})
	} else {
		actions = append(actions, Action{Move: KindCall})
	}
	actions = append(actions, Action{Move: KindRaise, Amount: s.MinRaise})
	return actions
}

func (p Plugin) Apply(st game.State, a game.Action, _ game.Context) (game.State, []game.Event, error) {
	s := st.(*State)
	act, ok := a.(Action)
	if !ok || s.Phase == PhaseSettled {
		return s, nil, nil
	}
	playerID := s.Players[s.Turn]
	if !game.Legal(p.LegalActions(s, playerID), act) {
		return s, nil, nil
	}

	callAmt := s.CurrentBet - s.Bets[playerID]
	if callAmt < 0 {
		callAmt = 0
	}
	var events []game.Event

	switch act.Move {
	case KindFold:
		s.Folded[playerID] = true
		events = append(events, game.Event{Name: "player:fold", Data: map[string]any{"player": playerID}})
	case KindCheck:
		// No chips move.
	case KindCall:
		s.Bets[playerID] += callAmt
		s.Pot += callAmt
	case KindRaise:
		raiseBy := act.Amount
		if raiseBy < s.MinRaise {
			raiseBy = s.MinRaise
		}
		total := callAmt + raiseBy
		s.Bets[playerID] += total
		s.Pot += total
		s.CurrentBet = s.Bets[playerID]
		// A raise reopens the action for everyone else.
		for _, pid := range s.Players {
			s.Acted[pid] = false
		}
		events = append(events, game.Event{Name: "player:raise", Data: map[string]any{"player": playerID, "to": s.CurrentBet}})
	}
	s.Acted[playerID] = true

	if len(s.active()) == 1 {
		// Everyone else folded: hand ends immediately, no showdown.
		s.Phase = PhaseSettled
		events = append(events, game.Event{Name: "hand:uncontested", Data: map[string]any{"winner": s.active()[0]}})
		return s, events, nil
	}

	if s.roundComplete() {
		if err := s.advancePhase(); err != nil {
			return s, events, err
		}
		if s.Phase == PhaseSettled {
			events = append(events, game.Event{Name: "hand:showdown", Data: nil})
			return s, events, nil
		}
	}
	s.Turn = s.nextActive(s.Turn)
	return s, events, nil
}

func (p Plugin) View(st game.State, forPlayer string) any {
	s := st.(*State)
	v := View{
		Phase:      s.Phase,
		Pot:        s.Pot,
		CurrentBet: s.CurrentBet,
		MinRaise:   s.MinRaise,
		Community:  []string{},
		YourHand:   []string{},
	}
	for _, c := range s.Community {
		v.Community = append(v.Community, c.String())
	}
	for _, c := range s.Hole[forPlayer] {
		v.YourHand = append(v.YourHand, c.String())
	}
	for _, pid := range s.Players {
		v.Players = append(v.Players, PlayerView{PlayerID: pid, Folded: s.Folded[pid], Bet: s.Bets[pid]})
	}
	if turn := p.CurrentTurn(s); turn != "" {
		v.TurnPlayerID = turn
	}
	if call := s.CurrentBet - s.Bets[forPlayer]; call > 0 {
		v.CallAmount = call
	}
	return v
}

func (Plugin) Terminal(st game.State) bool {
	return st.(*State).Phase == PhaseSettled
}

func (Plugin) Winners(st game.State) game.Result {
	s := st.(*State)
	res := game.Result{ByPlayer: map[string]game.Outcome{}}
	actives := s.active()
	if len(actives) == 1 {
		for _, pid := range s.Players {
			res.ByPlayer[pid] = game.OutcomeLose
		}
		res.ByPlayer[actives[0]] = game.OutcomeWin
		res.Winners = []string{actives[0]}
		return res
	}

	best := HandRank{Category: -1}
	ranks := map[string]HandRank{}
	for _, pid := range actives {
		cards := append(append([]game.Card{}, s.Hole[pid]...), s.Community...)
		r := BestOf(cards)
		ranks[pid] = r
		if r.BetterThan(best) {
			best = r
		}
	}
	// Winner list stays in seat order so odd-chip distribution downstream
	// is deterministic.
	for _, pid := range s.Players {
		switch {
		case s.Folded[pid]:
			res.ByPlayer[pid] = game.OutcomeLose
		case ranks[pid].Equal(best):
			res.ByPlayer[pid] = game.OutcomeWin
			res.Winners = append(res.Winners, pid)
		default:
			res.ByPlayer[pid] = game.OutcomeLose
		}
	}
	if len(res.Winners) > 1 {
		for _, pid := range res.Winners {
			res.ByPlayer[pid] = game.OutcomePush
		}
	}
	return res
}

func (p Plugin) BotAction(st game.State, botID string, _ int, rng *rand.Rand) game.Action {
	legal := p.LegalActions(st, botID)
	if len(legal) == 0 {
		return Action{Move: KindCheck}
	}
	var call, check, raise game.Action
	for _, a := range legal {
		switch a.Kind() {
		case KindCall:
			call = a
		case KindCheck:
			check = a
		case KindRaise:
			raise = a
		}
	}
	// Mostly passive: call or check, with an occasional raise.
	if raise != nil && rng.Float64() > 0.85 {
		return raise
	}
	if call != nil {
		return call
	}
	if check != nil {
		return check
	}
	return legal[0]
}

type wireAction struct {
	Type   string `json:"type"`
	Amount int64  `json:"amount,omitempty"`
}

func (Plugin) DecodeAction(raw json.RawMessage) (game.Action, error) {
	var w wireAction
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	switch w.Type {
	case KindFold, KindCheck, KindCall:
		return Action{Move: w.Type}, nil
	case KindRaise:
		if w.Amount < 0 {
			return nil, errors.New("negative raise")
		}
		return Action{Move: KindRaise, Amount: w.Amount}, nil
	}
	return nil, errors.New("unknown holdem action")
}
