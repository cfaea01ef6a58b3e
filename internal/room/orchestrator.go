package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"cardroom/internal/game"
	"cardroom/internal/store"

	"github.com/rs/zerolog"
)

var (
	ErrUnknownGame      = errors.New("unknown game")
	ErrBadStake         = errors.New("stake must be positive")
	ErrBadSeatCount     = errors.New("seat count out of range")
	ErrNotSeated        = errors.New("not seated in this room")
	ErrAlreadySeated    = errors.New("already seated")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrRoomNotWaiting   = errors.New("room is not waiting for players")
	ErrNoMatch          = errors.New("no match in progress")
	ErrIllegalAction    = errors.New("illegal action")
	ErrNothingToRematch = errors.New("no finished match to rematch")
)

// botSkill is the policy level for CPU-held seats, including seats
// converted after a desertion.
const botSkill = 2

// maxSettleAttempts bounds settlement retries for a finished game before
// the match aborts and the stakes are refunded.
const maxSettleAttempts = 5

// LedgerAPI is the slice of the economy ledger the orchestrator needs.
type LedgerAPI interface {
	EnsureWallet(ctx context.Context, userID string, startingBalance int64) error
	LockStake(ctx context.Context, matchID, gameKey string, stake int64, userIDs []string) error
	RefundStake(ctx context.Context, matchID, gameKey string, stake int64, userIDs []string, status string) error
	SettleWinnerTakeAll(ctx context.Context, matchID, gameKey string, stake int64, participants []string, winner string, pushes []string, markEnded bool) error
	SettleSplitPot(ctx context.Context, matchID, gameKey string, stake int64, participants, winners []string) error
}

// MatchStore records matches and their event streams.
type MatchStore interface {
	CreateMatch(ctx context.Context, m store.Match, players []store.MatchPlayer) error
	AppendMatchEvent(ctx context.Context, matchID, actor, name string, payload any) (int64, error)
	UpdateMatchPlayerResult(ctx context.Context, matchID, userID, outcome string, net int64) error
}

type Settings struct {
	TurnTimeout     time.Duration
	ReconnectGrace  time.Duration
	RoomIdleAfter   time.Duration
	StartingBalance int64
}

// Orchestrator owns room lifecycle: seating, match start, action routing,
// settlement and the janitor sweep. Each room is guarded by its own mutex;
// the orchestrator never holds two room locks at once.
type Orchestrator struct {
	Registry *Registry
	Plugins  map[game.Key]game.Plugin
	Ledger   LedgerAPI
	Matches  MatchStore
	Notify   Notifier
	Log      zerolog.Logger
	Settings Settings

	now    func() time.Time
	botRNG *rand.Rand
}

func NewOrchestrator(reg *Registry, plugins map[game.Key]game.Plugin, l LedgerAPI, ms MatchStore, n Notifier, log zerolog.Logger, s Settings) *Orchestrator {
	if n == nil {
		n = NopNotifier{}
	}
	return &Orchestrator{
		Registry: reg,
		Plugins:  plugins,
		Ledger:   l,
		Matches:  ms,
		Notify:   n,
		Log:      log,
		Settings: s,
		now:      time.Now,
		botRNG:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (o *Orchestrator) CreateRoom(ctx context.Context, userID, displayName string, key game.Key, stake int64, maxSeats int) (Snapshot, error) {
	plugin, ok := o.Plugins[key]
	if !ok {
		return Snapshot{}, ErrUnknownGame
	}
	if stake <= 0 {
		return Snapshot{}, ErrBadStake
	}
	lo, hi := plugin.Seats()
	if maxSeats == 0 {
		maxSeats = hi
	}
	if maxSeats < lo || maxSeats > hi {
		return Snapshot{}, ErrBadSeatCount
	}
	if err := o.Ledger.EnsureWallet(ctx, userID, o.Settings.StartingBalance); err != nil {
		return Snapshot{}, err
	}
	r := o.Registry.Create(key, stake, maxSeats, o.now())
	r.lock()
	defer r.unlock()
	r.Seats = append(r.Seats, Seat{UserID: userID, DisplayName: displayName, Connected: true})
	snap := r.snapshot()
	o.Log.Info().Str("room", r.ID).Str("code", r.Code).Str("game", string(key)).Int64("stake", stake).Msg("room created")
	o.Notify.RoomUpdate(snap)
	return snap, nil
}

func (o *Orchestrator) JoinByCode(ctx context.Context, userID, displayName, code string) (Snapshot, error) {
	r, err := o.Registry.ByCode(code)
	if err != nil {
		return Snapshot{}, err
	}
	return o.join(ctx, r, userID, displayName)
}

// AutoJoin seats the user at any waiting room with the same game and stake,
// creating a fresh room when none has space.
func (o *Orchestrator) AutoJoin(ctx context.Context, userID, displayName string, key game.Key, stake int64) (Snapshot, error) {
	for _, r := range o.Registry.List() {
		r.lock()
		open := r.GameKey == key && r.Stake == stake && r.Status == StatusWaiting &&
			!r.full() && r.seatOf(userID) == -1
		r.unlock()
		if open {
			snap, err := o.join(ctx, r, userID, displayName)
			if err == nil {
				return snap, nil
			}
		}
	}
	return o.CreateRoom(ctx, userID, displayName, key, stake, 0)
}

func (o *Orchestrator) join(ctx context.Context, r *Room, userID, displayName string) (Snapshot, error) {
	if err := o.Ledger.EnsureWallet(ctx, userID, o.Settings.StartingBalance); err != nil {
		return Snapshot{}, err
	}
	r.lock()
	defer r.unlock()
	if r.Status != StatusWaiting {
		return Snapshot{}, ErrRoomNotWaiting
	}
	if r.seatOf(userID) != -1 {
		return Snapshot{}, ErrAlreadySeated
	}
	if r.full() {
		return Snapshot{}, ErrRoomFull
	}
	r.Seats = append(r.Seats, Seat{UserID: userID, DisplayName: displayName, Connected: true})
	r.LastActivity = o.now()
	snap := r.snapshot()
	o.Notify.RoomUpdate(snap)
	return snap, nil
}

func (o *Orchestrator) Leave(ctx context.Context, userID, roomID string) error {
	r, err := o.Registry.Get(roomID)
	if err != nil {
		return err
	}
	r.lock()
	defer r.unlock()
	i := r.seatOf(userID)
	if i == -1 || r.Seats[i].IsBot {
		return ErrNotSeated
	}
	if r.Status == StatusPlaying {
		return o.abandonSeat(ctx, r, i)
	}
	r.Seats = append(r.Seats[:i], r.Seats[i+1:]...)
	r.LastActivity = o.now()
	if len(r.humans()) == 0 {
		o.Registry.Evict(r.ID)
		return nil
	}
	o.Notify.RoomUpdate(r.snapshot())
	return nil
}

func (o *Orchestrator) SetReady(ctx context.Context, userID, roomID string, ready bool) error {
	r, err := o.Registry.Get(roomID)
	if err != nil {
		return err
	}
	r.lock()
	defer r.unlock()
	if r.Status != StatusWaiting {
		return ErrRoomNotWaiting
	}
	i := r.seatOf(userID)
	if i == -1 {
		return ErrNotSeated
	}
	r.Seats[i].Ready = ready
	r.LastActivity = o.now()
	if ready && o.allHumansReady(r) {
		return o.startMatch(ctx, r)
	}
	o.Notify.RoomUpdate(r.snapshot())
	return nil
}

// Rematch re-readies a seat after a finished match. The next deal uses the
// next seed in the room's sequence, so rematches get fresh cards.
func (o *Orchestrator) Rematch(ctx context.Context, userID, roomID string) error {
	r, err := o.Registry.Get(roomID)
	if err != nil {
		return err
	}
	r.lock()
	ran := r.MatchesRun
	r.unlock()
	if ran == 0 {
		return ErrNothingToRematch
	}
	return o.SetReady(ctx, userID, roomID, true)
}

func (o *Orchestrator) allHumansReady(r *Room) bool {
	any := false
	for _, s := range r.Seats {
		if s.IsBot {
			continue
		}
		any = true
		if !s.Ready {
			return false
		}
	}
	return any
}

// startMatch must be called with r.mu held.
func (o *Orchestrator) startMatch(ctx context.Context, r *Room) error {
	plugin := o.Plugins[r.GameKey]
	lo, _ := plugin.Seats()
	for len(r.Seats) < lo {
		n := len(r.Seats) + 1
		r.Seats = append(r.Seats, Seat{
			UserID:      fmt.Sprintf("cpu:%s:%d", r.ID, n),
			DisplayName: fmt.Sprintf("CPU %d", n),
			IsBot:       true,
		})
	}

	matchID := store.NewID()
	participants := r.humans()
	seed := r.Seed + int64(r.MatchesRun)

	if err := o.Ledger.LockStake(ctx, matchID, string(r.GameKey), r.Stake, participants); err != nil {
		for i := range r.Seats {
			r.Seats[i].Ready = false
		}
		return err
	}

	players := make([]store.MatchPlayer, 0, len(r.Seats))
	for i, s := range r.Seats {
		players = append(players, store.MatchPlayer{MatchID: matchID, UserID: s.UserID, Seat: i, IsBot: s.IsBot})
	}
	err := o.Matches.CreateMatch(ctx, store.Match{
		ID: matchID, RoomCode: r.Code, GameKey: string(r.GameKey), Stake: r.Stake,
		Status: store.MatchStatusActive, Seed: seed,
	}, players)
	if err != nil {
		// The stakes are locked; give them straight back.
		if rerr := o.Ledger.RefundStake(ctx, matchID, string(r.GameKey), r.Stake, participants, store.MatchStatusAborted); rerr != nil {
			o.Log.Error().Err(rerr).Str("match", matchID).Msg("refund after failed match insert")
		}
		return err
	}

	now := o.now()
	r.Match = &ActiveMatch{
		ID:            matchID,
		State:         plugin.NewMatch(len(r.Seats), r.Stake, seed),
		Seed:          seed,
		Ordinal:       r.MatchesRun,
		Participants:  participants,
		TurnStartedAt: now,
	}
	r.Status = StatusPlaying
	r.MatchesRun++
	r.LastActivity = now

	o.appendEvent(ctx, matchID, "", "match:start", map[string]any{
		"game": string(r.GameKey), "stake": r.Stake, "seats": len(r.Seats),
	})
	o.Log.Info().Str("room", r.ID).Str("match", matchID).Msg("match started")
	o.Notify.RoomUpdate(r.snapshot())
	o.pushState(r, plugin, nil)
	return nil
}

func (o *Orchestrator) SubmitAction(ctx context.Context, userID, roomID string, raw json.RawMessage) error {
	r, err := o.Registry.Get(roomID)
	if err != nil {
		return err
	}
	r.lock()
	defer r.unlock()
	if r.Status != StatusPlaying || r.Match == nil {
		return ErrNoMatch
	}
	plugin := o.Plugins[r.GameKey]
	seat := r.seatOf(userID)
	if seat == -1 || r.Seats[seat].IsBot {
		return ErrNotSeated
	}
	act, err := plugin.DecodeAction(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIllegalAction, err)
	}
	pid := game.PlayerID(seat)
	if plugin.CurrentTurn(r.Match.State) != pid {
		return ErrNotYourTurn
	}
	if !game.Legal(plugin.LegalActions(r.Match.State, pid), act) {
		return ErrIllegalAction
	}
	return o.applyAction(ctx, r, plugin, act, userID)
}

// applyAction must be called with r.mu held and the action validated.
func (o *Orchestrator) applyAction(ctx context.Context, r *Room, plugin game.Plugin, act game.Action, actor string) error {
	next, events, err := plugin.Apply(r.Match.State, act, game.Context{
		Now: o.now(), Seed: r.Match.Seed, TurnTimeout: o.Settings.TurnTimeout,
	})
	if err != nil {
		o.Log.Error().Err(err).Str("match", r.Match.ID).Msg("engine failure, aborting match")
		return o.abortMatch(ctx, r, store.MatchStatusAborted)
	}
	r.Match.State = next
	r.Match.TurnStartedAt = o.now()
	r.LastActivity = r.Match.TurnStartedAt
	for _, ev := range events {
		o.appendEvent(ctx, r.Match.ID, actor, ev.Name, ev.Data)
	}
	// Even on the final action: the terminal view carries the reveal
	// (dealer hole card, showdown hands) and must reach the players
	// before the summary does.
	o.pushState(r, plugin, events)
	if plugin.Terminal(next) {
		return o.settleMatch(ctx, r, plugin)
	}
	return nil
}

// autoAction picks a move for a seat the server plays: bots use the
// engine's policy, abandoned seats fold when the game offers it.
func (o *Orchestrator) autoAction(r *Room, plugin game.Plugin, pid string, s Seat) game.Action {
	legal := plugin.LegalActions(r.Match.State, pid)
	if len(legal) == 0 {
		return nil
	}
	if s.Abandoned {
		for _, a := range legal {
			if a.Kind() == "he:fold" {
				return a
			}
		}
	}
	return plugin.BotAction(r.Match.State, pid, botSkill, o.botRNG)
}

// settleMatch must be called with r.mu held.
func (o *Orchestrator) settleMatch(ctx context.Context, r *Room, plugin game.Plugin) error {
	res := plugin.Winners(r.Match.State)
	matchID := r.Match.ID

	outcomes := map[string]string{}
	for i, s := range r.Seats {
		if !s.IsBot {
			outcomes[s.UserID] = string(res.ByPlayer[game.PlayerID(i)])
		}
	}

	var err error
	net := map[string]int64{}
	switch r.GameKey {
	case game.KeyBlackjack:
		err = o.settleVersusHouse(ctx, r, res, net)
	default:
		err = o.settlePot(ctx, r, res, net)
	}
	if err != nil {
		r.Match.SettleAttempts++
		o.Log.Error().Err(err).Str("match", matchID).Int("attempts", r.Match.SettleAttempts).Msg("settlement failed")
		return err
	}
	for uid, out := range outcomes {
		if uerr := o.Matches.UpdateMatchPlayerResult(ctx, matchID, uid, out, net[uid]); uerr != nil {
			o.Log.Error().Err(uerr).Str("match", matchID).Str("user", uid).Msg("record result")
		}
	}
	o.appendEvent(ctx, matchID, "", "match:end", map[string]any{"outcomes": outcomes})
	o.finishMatch(r, MatchSummary{
		MatchID: matchID, RoomID: r.ID, GameKey: string(r.GameKey), Stake: r.Stake,
		Status: store.MatchStatusSettled, Outcomes: outcomes, Net: net,
	})
	return nil
}

// settleVersusHouse pays each seat independently against the dealer.
// Must be called with r.mu held.
func (o *Orchestrator) settleVersusHouse(ctx context.Context, r *Room, res game.Result, net map[string]int64) error {
	humans := make([]int, 0, len(r.Seats))
	for i, s := range r.Seats {
		if !s.IsBot {
			humans = append(humans, i)
		}
	}
	for n, i := range humans {
		uid := r.Seats[i].UserID
		last := n == len(humans)-1
		var err error
		switch res.ByPlayer[game.PlayerID(i)] {
		case game.OutcomeWin:
			err = o.Ledger.SettleWinnerTakeAll(ctx, r.Match.ID, string(r.GameKey), r.Stake, []string{uid}, uid, nil, last)
			net[uid] = r.Stake
		case game.OutcomePush:
			err = o.Ledger.SettleWinnerTakeAll(ctx, r.Match.ID, string(r.GameKey), r.Stake, []string{uid}, "", []string{uid}, last)
			net[uid] = 0
		default:
			err = o.Ledger.SettleWinnerTakeAll(ctx, r.Match.ID, string(r.GameKey), r.Stake, []string{uid}, "", nil, last)
			net[uid] = -r.Stake
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// settlePot routes pot games: one winner takes all, several split, a full
// tie refunds every stake. Must be called with r.mu held.
func (o *Orchestrator) settlePot(ctx context.Context, r *Room, res game.Result, net map[string]int64) error {
	participants := r.Match.Participants
	for _, uid := range participants {
		net[uid] = -r.Stake
	}

	humanWinners := make([]string, 0, len(res.Winners))
	for _, pid := range res.Winners {
		seat := game.SeatOf(pid)
		if seat >= 0 && seat < len(r.Seats) && !r.Seats[seat].IsBot {
			humanWinners = append(humanWinners, r.Seats[seat].UserID)
		}
	}

	allPush := len(res.ByPlayer) > 0
	for _, out := range res.ByPlayer {
		if out != game.OutcomePush {
			allPush = false
			break
		}
	}
	if allPush {
		for _, uid := range participants {
			net[uid] = 0
		}
		return o.Ledger.SettleWinnerTakeAll(ctx, r.Match.ID, string(r.GameKey), r.Stake, participants, "", participants, true)
	}

	if len(humanWinners) == 0 {
		// The pot goes to the house's bots.
		return o.Ledger.SettleWinnerTakeAll(ctx, r.Match.ID, string(r.GameKey), r.Stake, participants, "", nil, true)
	}
	if len(humanWinners) == 1 && len(res.Winners) == 1 {
		uid := humanWinners[0]
		pot := r.Stake * int64(len(participants))
		if len(participants) == 1 {
			pot = 2 * r.Stake
		}
		net[uid] = pot - r.Stake
		return o.Ledger.SettleWinnerTakeAll(ctx, r.Match.ID, string(r.GameKey), r.Stake, participants, uid, nil, true)
	}

	pot := r.Stake * int64(len(participants))
	if len(participants) == 1 && len(humanWinners) == 1 {
		pot = 2 * r.Stake
	}
	share := pot / int64(len(humanWinners))
	rem := pot % int64(len(humanWinners))
	for i, uid := range humanWinners {
		amount := share
		if int64(i) < rem {
			amount++
		}
		net[uid] = amount - r.Stake
	}
	return o.Ledger.SettleSplitPot(ctx, r.Match.ID, string(r.GameKey), r.Stake, participants, humanWinners)
}

// abortMatch refunds every stake and resets the room. Must be called with
// r.mu held.
func (o *Orchestrator) abortMatch(ctx context.Context, r *Room, status string) error {
	matchID := r.Match.ID
	if err := o.Ledger.RefundStake(ctx, matchID, string(r.GameKey), r.Stake, r.Match.Participants, status); err != nil {
		return err
	}
	outcomes := map[string]string{}
	net := map[string]int64{}
	for _, uid := range r.Match.Participants {
		outcomes[uid] = status
		net[uid] = 0
	}
	o.appendEvent(ctx, matchID, "", "match:"+status, nil)
	o.finishMatch(r, MatchSummary{
		MatchID: matchID, RoomID: r.ID, GameKey: string(r.GameKey), Stake: r.Stake,
		Status: status, Outcomes: outcomes, Net: net,
	})
	return nil
}

// finishMatch resets the room to the lobby. Must be called with r.mu held.
func (o *Orchestrator) finishMatch(r *Room, summary MatchSummary) {
	r.Match = nil
	r.Status = StatusWaiting
	r.LastActivity = o.now()
	kept := r.Seats[:0]
	for _, s := range r.Seats {
		if s.IsBot || s.Abandoned {
			continue
		}
		s.Ready = false
		kept = append(kept, s)
	}
	r.Seats = kept
	o.Notify.MatchEnded(summary)
	o.Notify.RoomUpdate(r.snapshot())
}

// abandonSeat applies the per-game desertion policy. Must be called with
// r.mu held.
func (o *Orchestrator) abandonSeat(ctx context.Context, r *Room, seat int) error {
	switch r.GameKey {
	case game.KeyBlackjack:
		// A dealer game cannot continue without its player: cancel and
		// give the stakes back.
		return o.abortMatch(ctx, r, store.MatchStatusCancelled)
	case game.KeySpades:
		// The server takes over the seat so the other three can finish.
		r.Seats[seat].IsBot = true
		r.Seats[seat].Ready = false
		r.Seats[seat].DisplayName += " (CPU)"
	default:
		// Fold them out of the hand at their next turn.
		r.Seats[seat].Abandoned = true
	}
	o.Notify.RoomUpdate(r.snapshot())
	return nil
}

// Disconnect marks the user's seats as disconnected. The janitor applies
// the desertion policy if the grace period runs out before a reconnect.
func (o *Orchestrator) Disconnect(userID string) {
	now := o.now()
	for _, r := range o.Registry.List() {
		r.lock()
		if i := r.seatOf(userID); i != -1 && !r.Seats[i].IsBot {
			r.Seats[i].Connected = false
			r.Seats[i].DisconnectedAt = now
			o.Notify.RoomUpdate(r.snapshot())
		}
		r.unlock()
	}
}

func (o *Orchestrator) Reconnect(userID string) {
	for _, r := range o.Registry.List() {
		r.lock()
		if i := r.seatOf(userID); i != -1 && !r.Seats[i].IsBot && !r.Seats[i].Abandoned {
			r.Seats[i].Connected = true
			r.Seats[i].DisconnectedAt = time.Time{}
			snap := r.snapshot()
			o.Notify.RoomUpdate(snap)
			if r.Status == StatusPlaying && r.Match != nil {
				o.pushState(r, o.Plugins[r.GameKey], nil)
			}
		}
		r.unlock()
	}
}

// pushState sends each connected human their redacted view. Must be called
// with r.mu held.
func (o *Orchestrator) pushState(r *Room, plugin game.Plugin, events []game.Event) {
	if r.Match == nil {
		return
	}
	views := map[string]any{}
	for i, s := range r.Seats {
		if s.IsBot {
			continue
		}
		views[s.UserID] = plugin.View(r.Match.State, game.PlayerID(i))
	}
	o.Notify.GameState(r.ID, views, events)
}

func (o *Orchestrator) appendEvent(ctx context.Context, matchID, actor, name string, payload any) {
	if _, err := o.Matches.AppendMatchEvent(ctx, matchID, actor, name, payload); err != nil {
		o.Log.Error().Err(err).Str("match", matchID).Str("event", name).Msg("append match event")
	}
}

// Tick drives time-based progress: turn timeouts, grace expiry for
// disconnected seats, and idle-room eviction. At most one game action is
// applied per room per tick so spectators can follow along.
func (o *Orchestrator) Tick(ctx context.Context) {
	now := o.now()
	for _, r := range o.Registry.List() {
		o.tickRoom(ctx, r, now)
	}
}

func (o *Orchestrator) tickRoom(ctx context.Context, r *Room, now time.Time) {
	r.lock()
	defer r.unlock()

	if r.Status == StatusWaiting {
		if now.Sub(r.LastActivity) > o.Settings.RoomIdleAfter {
			o.Registry.Evict(r.ID)
		}
		return
	}
	if r.Match == nil {
		return
	}

	// Grace expiry first: a seat that stayed away too long is deserted.
	for i := range r.Seats {
		s := &r.Seats[i]
		if s.IsBot || s.Connected || s.Abandoned || s.DisconnectedAt.IsZero() {
			continue
		}
		if now.Sub(s.DisconnectedAt) > o.Settings.ReconnectGrace {
			o.Log.Info().Str("room", r.ID).Str("user", s.UserID).Msg("reconnect grace expired")
			if err := o.abandonSeat(ctx, r, i); err != nil {
				o.Log.Error().Err(err).Str("room", r.ID).Msg("desertion policy failed")
			}
			if r.Status != StatusPlaying || r.Match == nil {
				return
			}
		}
	}

	plugin := o.Plugins[r.GameKey]

	// A terminal state still playing means an earlier settlement failed.
	// The idempotency keys make the retry safe; past the attempt cap the
	// match gives up and refunds instead.
	if plugin.Terminal(r.Match.State) {
		if r.Match.SettleAttempts >= maxSettleAttempts {
			o.Log.Error().Str("match", r.Match.ID).Msg("settlement retries exhausted, refunding")
			if err := o.abortMatch(ctx, r, store.MatchStatusAborted); err != nil {
				o.Log.Error().Err(err).Str("room", r.ID).Msg("abort after failed settlement")
			}
			return
		}
		if err := o.settleMatch(ctx, r, plugin); err != nil {
			o.Log.Warn().Err(err).Str("match", r.Match.ID).Msg("settlement retry failed")
		}
		return
	}

	pid := plugin.CurrentTurn(r.Match.State)
	if pid == "" {
		return
	}
	seat := game.SeatOf(pid)
	if seat < 0 || seat >= len(r.Seats) {
		return
	}
	s := r.Seats[seat]

	// One auto action per tick.
	if s.IsBot || s.Abandoned || now.Sub(r.Match.TurnStartedAt) > o.Settings.TurnTimeout {
		if act := o.autoAction(r, plugin, pid, s); act != nil {
			if !s.IsBot && !s.Abandoned {
				o.Log.Info().Str("room", r.ID).Str("user", s.UserID).Msg("turn timed out")
				o.appendEvent(ctx, r.Match.ID, s.UserID, "turn:timeout", map[string]any{"player": pid})
			}
			if err := o.applyAction(ctx, r, plugin, act, s.UserID); err != nil {
				o.Log.Error().Err(err).Str("room", r.ID).Msg("timeout action failed")
			}
		}
	}
}
