package cache

import (
	"sync"

	"github.com/google/uuid"

	"github.com/linkpulse/linkpulse-backend/internal/types"
)

// hotTier holds the N most-recent clicks per user in process memory.
// It covers the common case of a sale landing seconds after the click
// on the same instance, with zero network hops.
type hotTier struct {
	mu       sync.RWMutex
	perUser  map[uuid.UUID]*clickRing
	capacity int
}

func newHotTier(capacityPerUser int) *hotTier {
	if capacityPerUser <= 0 {
		capacityPerUser = 50
	}
	return &hotTier{
		perUser:  make(map[uuid.UUID]*clickRing),
		capacity: capacityPerUser,
	}
}

func (h *hotTier) put(click *types.ClickEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ring, ok := h.perUser[click.UserID]
	if !ok {
		ring = newClickRing(h.capacity)
		h.perUser[click.UserID] = ring
	}
	ring.push(click)
}

// find returns the most recent click for the user matching pred.
func (h *hotTier) find(userID uuid.UUID, pred func(*types.ClickEvent) bool) *types.ClickEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ring, ok := h.perUser[userID]
	if !ok {
		return nil
	}
	return ring.find(pred)
}

// markAttributed flags every hot-tier copy of the click so lookups on
// this instance stop offering it to later sales.
func (h *hotTier) markAttributed(userID, clickID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ring, ok := h.perUser[userID]
	if !ok {
		return
	}
	for _, c := range ring.buf {
		if c != nil && c.ID == clickID {
			c.Attributed = true
		}
	}
}

func (h *hotTier) size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, ring := range h.perUser {
		n += ring.len()
	}
	return n
}

// clickRing is a fixed-capacity ring buffer. Overwrites the oldest
// entry once full; a click id already present is replaced in place so
// re-ingestion never duplicates.
type clickRing struct {
	buf  []*types.ClickEvent
	next int
	full bool
}

func newClickRing(capacity int) *clickRing {
	return &clickRing{buf: make([]*types.ClickEvent, capacity)}
}

func (r *clickRing) push(click *types.ClickEvent) {
	for i, existing := range r.buf {
		if existing != nil && existing.ID == click.ID {
			r.buf[i] = click
			return
		}
	}
	r.buf[r.next] = click
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

// find iterates newest to oldest.
func (r *clickRing) find(pred func(*types.ClickEvent) bool) *types.ClickEvent {
	n := len(r.buf)
	for i := 1; i <= n; i++ {
		idx := (r.next - i + n) % n
		c := r.buf[idx]
		if c == nil {
			break
		}
		if pred(c) {
			return c
		}
	}
	return nil
}

func (r *clickRing) len() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}
