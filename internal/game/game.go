package game

import (
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

type Key string

const (
	KeyBlackjack Key = "blackjack"
	KeySpades    Key = "spades"
	KeyHoldem    Key = "holdem"
)

type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
	OutcomePush Outcome = "push"
)

// ErrDeckExhausted signals an unrecoverable engine fault. The orchestrator
// aborts the match and refunds stakes when Apply returns it.
var ErrDeckExhausted = errors.New("deck_exhausted")

// Context carries the per-call inputs an engine may need while applying an
// action. Engines must not reach for wall-clock time or randomness outside it.
type Context struct {
	Now         time.Time
	Seed        int64
	TurnTimeout time.Duration
}

type Result struct {
	Winners  []string
	ByPlayer map[string]Outcome
}

// Event is an audit-log entry produced by an engine transition.
type Event struct {
	Name string
	Data map[string]any
}

// State is a game's full mutable match state. Concrete types live in the
// per-game packages; the orchestrator only holds the opaque handle.
type State interface {
	GameKey() Key
}

// Action is one move in a game's closed action set.
type Action interface {
	Kind() string
	// Covers reports whether this legal action admits the submitted one.
	// Discrete actions compare exactly; open-amount actions (a raise)
	// match on kind and leave amount validation to the engine.
	Covers(other Action) bool
}

// Plugin is the uniform contract every rules engine implements. All methods
// are pure with respect to everything but the passed state: deck order and
// bot choices derive from seeds, never ambient randomness.
type Plugin interface {
	Key() Key
	// Seats returns the allowed seat-count range for a room of this game.
	Seats() (min, max int)
	// NewMatch builds the initial state, deterministic for a given seed.
	NewMatch(seats int, stake int64, seed int64) State
	// CurrentTurn returns the player whose action is pending, or "" when no
	// player action is pending (settlement, dealer play).
	CurrentTurn(s State) string
	// LegalActions is empty when it is not playerID's turn or the player
	// has no moves.
	LegalActions(s State, playerID string) []Action
	// Apply advances the state. An action outside the legal set returns the
	// state unchanged; the orchestrator rejects those earlier, so the
	// engine's own check is defense in depth. A non-nil error means the
	// match is unrecoverable and must be aborted.
	Apply(s State, a Action, ctx Context) (State, []Event, error)
	// View renders the state for one recipient. It never contains another
	// seat's hidden cards before showdown or settlement.
	View(s State, forPlayer string) any
	Terminal(s State) bool
	Winners(s State) Result
	// BotAction picks a move for a bot seat. It always returns a member of
	// LegalActions(s, botID).
	BotAction(s State, botID string, skill int, rng *rand.Rand) Action
	// DecodeAction parses a client-supplied payload into this game's action
	// type, rejecting anything outside the closed set.
	DecodeAction(raw json.RawMessage) (Action, error)
}

// PlayerID names the player occupying a seat. Engines deal in these ids;
// the room layer maps them to user ids.
func PlayerID(seat int) string { return "P" + strconv.Itoa(seat+1) }

func SeatOf(playerID string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(playerID, "P"))
	if err != nil || n < 1 {
		return -1
	}
	return n - 1
}

// Legal reports whether act is admitted by the legal set.
func Legal(legal []Action, act Action) bool {
	for _, l := range legal {
		if l.Covers(act) {
			return true
		}
	}
	return false
}
