package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	errs "github.com/linkpulse/linkpulse-backend/internal/pkg/errors"
	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/types"
)

// fakeShared is an in-memory stand-in for the redis tier. failing
// simulates the shared tier being down.
type fakeShared struct {
	mu      sync.Mutex
	data    map[string][]byte
	failing bool
	sets    int
}

func newFakeShared() *fakeShared {
	return &fakeShared{data: map[string][]byte{}}
}

func (f *fakeShared) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, fmt.Errorf("connection refused")
	}
	raw, ok := f.data[key]
	if !ok {
		return nil, errs.ErrCacheMiss
	}
	return raw, nil
}

func (f *fakeShared) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return fmt.Errorf("connection refused")
	}
	f.data[key] = value
	f.sets++
	return nil
}

func (f *fakeShared) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeShared) Close() error { return nil }

func (f *fakeShared) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

func testClick(userID uuid.UUID, ip, tracker, fp string, at time.Time) *types.ClickEvent {
	return &types.ClickEvent{
		ID:          uuid.New(),
		LinkID:      uuid.New(),
		UserID:      userID,
		IPAddress:   ip,
		TrackerID:   tracker,
		Fingerprint: fp,
		Platform:    types.PlatformInstagram,
		ClickedAt:   at,
	}
}

func TestTieredCache_HotTierLookups(t *testing.T) {
	ctx := context.Background()
	c := NewTieredClickCache(logger.NewNop(), nil, time.Hour, 10)
	userID := uuid.New()

	click := testClick(userID, "203.0.113.9", "trk-1", "fp-1", time.Now().UTC())
	c.Put(ctx, click)

	if got, ok := c.FindByIP(ctx, userID, "203.0.113.9"); !ok || got.ID != click.ID {
		t.Fatalf("FindByIP = %v, %v", got, ok)
	}
	if got, ok := c.FindByTracker(ctx, userID, "trk-1"); !ok || got.ID != click.ID {
		t.Fatalf("FindByTracker = %v, %v", got, ok)
	}
	if got, ok := c.FindByFingerprint(ctx, userID, "fp-1"); !ok || got.ID != click.ID {
		t.Fatalf("FindByFingerprint = %v, %v", got, ok)
	}
	if _, ok := c.FindByIP(ctx, userID, "198.51.100.1"); ok {
		t.Fatal("unexpected hit for unknown ip")
	}
	if _, ok := c.FindByIP(ctx, uuid.New(), "203.0.113.9"); ok {
		t.Fatal("unexpected hit for another user")
	}

	stats := c.Stats()
	if stats.HotHits != 3 || stats.Misses != 2 || stats.Puts != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestTieredCache_ReingestSameClickNoDuplicate(t *testing.T) {
	ctx := context.Background()
	shared := newFakeShared()
	c := NewTieredClickCache(logger.NewNop(), shared, time.Hour, 10)
	userID := uuid.New()

	click := testClick(userID, "203.0.113.9", "trk-1", "fp-1", time.Now().UTC())
	c.Put(ctx, click)
	c.Put(ctx, click)

	if got := c.Stats().HotEntries; got != 1 {
		t.Fatalf("hot entries = %d, want 1 after re-ingest", got)
	}
	// the shared tier simply overwrites the same keys with a fresh TTL
	if shared.sets != 6 {
		t.Fatalf("shared sets = %d, want 6 (3 keys twice)", shared.sets)
	}
}

func TestTieredCache_HotRingEvictsOldest(t *testing.T) {
	ctx := context.Background()
	c := NewTieredClickCache(logger.NewNop(), nil, time.Hour, 2)
	userID := uuid.New()
	now := time.Now().UTC()

	first := testClick(userID, "203.0.113.1", "trk-1", "", now.Add(-3*time.Minute))
	second := testClick(userID, "203.0.113.2", "trk-2", "", now.Add(-2*time.Minute))
	third := testClick(userID, "203.0.113.3", "trk-3", "", now.Add(-time.Minute))
	c.Put(ctx, first)
	c.Put(ctx, second)
	c.Put(ctx, third)

	if _, ok := c.FindByTracker(ctx, userID, "trk-1"); ok {
		t.Fatal("oldest click survived a full ring")
	}
	if _, ok := c.FindByTracker(ctx, userID, "trk-2"); !ok {
		t.Fatal("second click missing")
	}
	if _, ok := c.FindByTracker(ctx, userID, "trk-3"); !ok {
		t.Fatal("newest click missing")
	}
}

func TestTieredCache_SharedTierServesOtherInstances(t *testing.T) {
	ctx := context.Background()
	shared := newFakeShared()
	userID := uuid.New()

	writer := NewTieredClickCache(logger.NewNop(), shared, time.Hour, 10)
	reader := NewTieredClickCache(logger.NewNop(), shared, time.Hour, 10)

	click := testClick(userID, "203.0.113.9", "trk-1", "fp-1", time.Now().UTC())
	writer.Put(ctx, click)

	got, ok := reader.FindByTracker(ctx, userID, "trk-1")
	if !ok {
		t.Fatal("shared tier miss on another instance")
	}
	if got.ID != click.ID {
		t.Fatalf("wrong click: %s", got.ID)
	}
	if stats := reader.Stats(); stats.SharedHits != 1 || stats.HotHits != 0 {
		t.Fatalf("stats = %+v", stats)
	}

	// signal keys are global: a hit owned by another creator is a miss
	if _, ok := reader.FindByTracker(ctx, uuid.New(), "trk-1"); ok {
		t.Fatal("shared hit leaked across users")
	}
}

func TestTieredCache_MarkAttributedRemovesFromCirculation(t *testing.T) {
	ctx := context.Background()
	shared := newFakeShared()
	userID := uuid.New()

	writer := NewTieredClickCache(logger.NewNop(), shared, time.Hour, 10)
	reader := NewTieredClickCache(logger.NewNop(), shared, time.Hour, 10)

	click := testClick(userID, "203.0.113.9", "trk-1", "fp-1", time.Now().UTC())
	writer.Put(ctx, click)

	writer.MarkAttributed(ctx, click)

	if !click.Attributed {
		t.Fatal("click object not flagged")
	}
	if got, ok := writer.FindByIP(ctx, userID, "203.0.113.9"); ok && !got.Attributed {
		t.Fatal("hot tier serves the click as unattributed")
	}

	// the shared-tier keys are gone, so other instances stop seeing it
	for name, find := range map[string]func() (*types.ClickEvent, bool){
		"ip":          func() (*types.ClickEvent, bool) { return reader.FindByIP(ctx, userID, "203.0.113.9") },
		"tracker":     func() (*types.ClickEvent, bool) { return reader.FindByTracker(ctx, userID, "trk-1") },
		"fingerprint": func() (*types.ClickEvent, bool) { return reader.FindByFingerprint(ctx, userID, "fp-1") },
	} {
		if _, ok := find(); ok {
			t.Fatalf("shared tier still serves attributed click by %s", name)
		}
	}
}

func TestTieredCache_SharedTierDownIsSoftMiss(t *testing.T) {
	ctx := context.Background()
	shared := newFakeShared()
	shared.setFailing(true)
	c := NewTieredClickCache(logger.NewNop(), shared, time.Hour, 10)
	userID := uuid.New()

	click := testClick(userID, "203.0.113.9", "trk-1", "fp-1", time.Now().UTC())
	c.Put(ctx, click) // shared writes fail, hot tier still works

	if _, ok := c.FindByTracker(ctx, userID, "trk-1"); !ok {
		t.Fatal("hot tier lost the click when shared tier was down")
	}

	fresh := NewTieredClickCache(logger.NewNop(), shared, time.Hour, 10)
	if _, ok := fresh.FindByTracker(ctx, userID, "trk-1"); ok {
		t.Fatal("expected soft miss with shared tier down")
	}
}

func TestTieredCache_IgnoresEmptySignals(t *testing.T) {
	ctx := context.Background()
	shared := newFakeShared()
	c := NewTieredClickCache(logger.NewNop(), shared, time.Hour, 10)
	userID := uuid.New()

	click := testClick(userID, "", "trk-1", "", time.Now().UTC())
	c.Put(ctx, click)

	if shared.sets != 1 {
		t.Fatalf("shared sets = %d, want 1 (tracker key only)", shared.sets)
	}
	if _, ok := c.FindByIP(ctx, userID, ""); ok {
		t.Fatal("empty ip lookup returned a hit")
	}
	if _, ok := c.FindByFingerprint(ctx, userID, ""); ok {
		t.Fatal("empty fingerprint lookup returned a hit")
	}
}
