package gateway

import (
	"sync"
	"time"

	"marketdata/internal/schema"
)

// slot is the single-assignment result cell of one in-flight dispatch.
type slot struct {
	createdAt time.Time
	ch        chan schema.Response
}

// pendingTable maps correlation tokens to in-flight slots.
type pendingTable struct {
	mu    sync.Mutex
	slots map[string]slot
}

func newPendingTable() *pendingTable {
	return &pendingTable{slots: make(map[string]slot)}
}

// add registers token. It reports false if the token is already in flight.
func (p *pendingTable) add(token string, now time.Time) (slot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.slots[token]; ok {
		return slot{}, false
	}
	s := slot{createdAt: now, ch: make(chan schema.Response, 1)}
	p.slots[token] = s
	return s, true
}

// take removes and returns the slot of token. Only one caller can win a given slot.
func (p *pendingTable) take(token string) (slot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.slots[token]
	if ok {
		delete(p.slots, token)
	}
	return s, ok
}

func (p *pendingTable) remove(token string) {
	p.mu.Lock()
	delete(p.slots, token)
	p.mu.Unlock()
}

func (p *pendingTable) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}
