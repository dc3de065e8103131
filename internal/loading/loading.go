package loading

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Token pairs one Start with one Stop.
type Token string

// Indicator is anything that can show that work is in flight.
type Indicator interface {
	Start() Token
	Stop(Token)
}

// Nop is an Indicator that records nothing.
type Nop struct{}

// Start returns an empty token.
func (Nop) Start() Token { return "" }

// Stop does nothing.
func (Nop) Stop(Token) {}

// Snapshot is a point-in-time view of the registry.
type Snapshot struct {
	Active  int
	Started uint64
	Stopped uint64
	// BusySince is when Active last went from zero to one. Zero when idle.
	BusySince time.Time
}

// Busy reports whether any token is outstanding.
func (s Snapshot) Busy() bool {
	return s.Active > 0
}

// Registry tracks outstanding tokens. The zero value is ready to use and safe
// for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	active   map[Token]time.Time
	snapshot Snapshot
}

var _ Indicator = (*Registry)(nil)

// Start registers a fresh token.
func (r *Registry) Start() Token {
	token := Token(uuid.NewString())
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		r.active = make(map[Token]time.Time)
	}
	if len(r.active) == 0 {
		r.snapshot.BusySince = now
	}
	r.active[token] = now
	r.snapshot.Active = len(r.active)
	r.snapshot.Started++
	return token
}

// Stop releases token. Unknown or already released tokens are ignored.
func (r *Registry) Stop(token Token) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.active[token]; !ok {
		return
	}
	delete(r.active, token)
	r.snapshot.Active = len(r.active)
	r.snapshot.Stopped++
	if len(r.active) == 0 {
		r.snapshot.BusySince = time.Time{}
	}
}

// Snapshot returns a copy of the current counters.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}
