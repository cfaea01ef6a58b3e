package room

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"cardroom/internal/game"
	"cardroom/internal/store"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room full")
)

// Join codes avoid 0/O, 1/I and L so they survive being read aloud.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
const codeLength = 5

// Registry indexes live rooms by id and join code.
type Registry struct {
	mu     sync.Mutex
	byID   map[string]*Room
	byCode map[string]*Room
	rng    *rand.Rand
}

func NewRegistry() *Registry {
	return &Registry{
		byID:   map[string]*Room{},
		byCode: map[string]*Room{},
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *Registry) newCode() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[g.rng.Intn(len(codeAlphabet))]
	}
	return string(b)
}

func (g *Registry) Create(gameKey game.Key, stake int64, maxSeats int, now time.Time) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	code := g.newCode()
	for g.byCode[code] != nil {
		code = g.newCode()
	}
	r := &Room{
		ID:           store.NewID(),
		Code:         code,
		GameKey:      gameKey,
		Stake:        stake,
		MaxSeats:     maxSeats,
		Seed:         g.rng.Int63(),
		Status:       StatusWaiting,
		LastActivity: now,
	}
	g.byID[r.ID] = r
	g.byCode[r.Code] = r
	return r
}

func (g *Registry) Get(id string) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.byID[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

func (g *Registry) ByCode(code string) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.byCode[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

func (g *Registry) List() []*Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Room, 0, len(g.byID))
	for _, r := range g.byID {
		out = append(out, r)
	}
	return out
}

func (g *Registry) Evict(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.byID[id]; ok {
		delete(g.byCode, r.Code)
		delete(g.byID, id)
	}
}
