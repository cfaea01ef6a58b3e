package announce

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cardroom/internal/game"
	"cardroom/internal/room"
)

var errCircuitOpen = errors.New("circuit open")

// Manager fans match results out to configured webhooks. It implements
// room.Notifier so it can sit next to the websocket hub in a
// MultiNotifier; only MatchEnded does anything. Delivery is asynchronous
// with capped retries and a per-target circuit breaker, so a dead webhook
// never slows down settlement.
type Manager struct {
	cfg      Config
	adapters map[string]Adapter
	log      zerolog.Logger
	now      func() time.Time

	dispatchCh chan job
	done       chan struct{}
	startOnce  sync.Once
	stopOnce   sync.Once

	mu           sync.Mutex
	breakerByKey map[string]breakerState
}

type breakerState struct {
	failures  int
	openUntil time.Time
}

func NewManager(cfg Config, log zerolog.Logger) *Manager {
	cfg = cfg.withDefaults()
	client := newHTTPClient(cfg.RequestTimeout)
	return &Manager{
		cfg: cfg,
		adapters: map[string]Adapter{
			"discord": &DiscordAdapter{client: client},
			"webhook": &WebhookAdapter{client: client},
		},
		log:          log,
		now:          time.Now,
		dispatchCh:   make(chan job, cfg.DispatchBuffer),
		done:         make(chan struct{}),
		breakerByKey: map[string]breakerState{},
	}
}

// Start launches the worker pool. Safe to call once; workers exit when
// ctx is done or Stop is called.
func (m *Manager) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		for i := 0; i < m.cfg.Workers; i++ {
			go m.worker(ctx)
		}
		m.log.Info().Int("workers", m.cfg.Workers).Int("targets", len(m.cfg.Targets)).Msg("announcer running")
	})
}

func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

// RoomUpdate implements room.Notifier.
func (m *Manager) RoomUpdate(room.Snapshot) {}

// GameState implements room.Notifier.
func (m *Manager) GameState(string, map[string]any, []game.Event) {}

// MatchEnded implements room.Notifier.
func (m *Manager) MatchEnded(summary room.MatchSummary) {
	msg := FormatMatch(summary, m.now())
	for _, t := range m.cfg.Targets {
		select {
		case m.dispatchCh <- job{Target: t, Message: msg}:
		default:
			m.log.Warn().Str("endpoint", t.Endpoint).Msg("announce queue full, dropping")
		}
	}
}

func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case j := <-m.dispatchCh:
			m.processJob(ctx, j)
		}
	}
}

func (m *Manager) processJob(ctx context.Context, j job) {
	adapter := m.adapters[j.Target.Platform]
	if adapter == nil {
		m.log.Warn().Str("platform", j.Target.Platform).Msg("unknown announce platform")
		return
	}
	if err := m.beforeSend(j.key()); err != nil {
		m.retryOrDrop(j, err)
		return
	}
	if err := adapter.Send(ctx, j.Target.Endpoint, j.Target.Secret, j.Message); err != nil {
		m.afterFailure(j.key())
		m.retryOrDrop(j, err)
		return
	}
	m.afterSuccess(j.key())
}

func (m *Manager) retryOrDrop(j job, err error) {
	if j.Attempt >= m.cfg.RetryMax {
		m.log.Warn().Err(err).Str("endpoint", j.Target.Endpoint).Msg("announce dropped after retries")
		return
	}
	j.Attempt++
	delay := m.cfg.RetryBase * time.Duration(1<<(j.Attempt-1))
	time.AfterFunc(delay, func() {
		select {
		case <-m.done:
		case m.dispatchCh <- j:
		}
	})
}

func (m *Manager) beforeSend(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.breakerByKey[key]
	if !state.openUntil.IsZero() && m.now().Before(state.openUntil) {
		return errCircuitOpen
	}
	return nil
}

func (m *Manager) afterFailure(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.breakerByKey[key]
	state.failures++
	if state.failures >= m.cfg.FailureThreshold {
		state.openUntil = m.now().Add(m.cfg.CircuitOpenDuration)
		state.failures = 0
		m.log.Warn().Str("target", key).Msg("announce circuit opened")
	}
	m.breakerByKey[key] = state
}

func (m *Manager) afterSuccess(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.breakerByKey, key)
}
