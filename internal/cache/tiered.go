package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/linkpulse/linkpulse-backend/internal/clients/redis"
	errs "github.com/linkpulse/linkpulse-backend/internal/pkg/errors"
	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/types"
)

// Stats is a point-in-time view of cache traffic.
type Stats struct {
	HotHits    uint64 `json:"hot_hits"`
	SharedHits uint64 `json:"shared_hits"`
	Misses     uint64 `json:"misses"`
	Puts       uint64 `json:"puts"`
	HotEntries int    `json:"hot_entries"`
}

// TieredClickCache answers "find a recent click for signal X" from the
// lowest-latency tier that has it: the in-process hot ring first, then
// the shared cache. Durable-store fallback is the correlation engine's
// job. Every tier failure is a soft miss, never an error.
type TieredClickCache struct {
	log    *logger.Logger
	shared redis.SharedCache
	hot    *hotTier
	ttl    time.Duration

	hotHits    atomic.Uint64
	sharedHits atomic.Uint64
	misses     atomic.Uint64
	puts       atomic.Uint64
}

// NewTieredClickCache builds the cache. shared may be nil; the cache
// then runs hot-tier only (degraded, not broken). ttl should equal the
// attribution window so shared-tier expiry doubles as eviction.
func NewTieredClickCache(baseLog *logger.Logger, shared redis.SharedCache, ttl time.Duration, hotCapPerUser int) *TieredClickCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TieredClickCache{
		log:    baseLog.With("component", "TieredClickCache"),
		shared: shared,
		hot:    newHotTier(hotCapPerUser),
		ttl:    ttl,
	}
}

func keyIP(ip string) string          { return "click:ip:" + strings.TrimSpace(ip) }
func keyTracker(id string) string     { return "click:tracker:" + strings.TrimSpace(id) }
func keyFingerprint(fp string) string { return "click:fp:" + strings.TrimSpace(fp) }

// Put mirrors a click into both tiers under its three signal keys.
// Re-ingesting the same click id overwrites entries with a fresh TTL
// rather than duplicating. Shared-tier failures are logged and
// swallowed.
func (c *TieredClickCache) Put(ctx context.Context, click *types.ClickEvent) {
	if click == nil {
		return
	}
	c.puts.Add(1)
	c.hot.put(click)

	if c.shared == nil {
		return
	}
	raw, err := json.Marshal(click)
	if err != nil {
		c.log.Warn("click encode failed, shared tier skipped", "click_id", click.ID, "error", err)
		return
	}
	for _, key := range c.signalKeys(click) {
		if err := c.shared.SetWithTTL(ctx, key, raw, c.ttl); err != nil {
			c.log.Debug("shared tier write failed", "key", key, "error", err)
		}
	}
}

func (c *TieredClickCache) signalKeys(click *types.ClickEvent) []string {
	keys := make([]string, 0, 3)
	if strings.TrimSpace(click.IPAddress) != "" {
		keys = append(keys, keyIP(click.IPAddress))
	}
	if strings.TrimSpace(click.TrackerID) != "" {
		keys = append(keys, keyTracker(click.TrackerID))
	}
	if strings.TrimSpace(click.Fingerprint) != "" {
		keys = append(keys, keyFingerprint(click.Fingerprint))
	}
	return keys
}

// MarkAttributed removes an attributed click from circulation: the
// object and its hot-tier copies are flagged, and its shared-tier
// signal keys are deleted so no other instance serves it to a later
// sale. Shared-tier failures are soft; the stale entry then expires
// with its TTL and the durable attributed flag still rejects it.
func (c *TieredClickCache) MarkAttributed(ctx context.Context, click *types.ClickEvent) {
	if click == nil {
		return
	}
	click.Attributed = true
	c.hot.markAttributed(click.UserID, click.ID)

	if c.shared == nil {
		return
	}
	for _, key := range c.signalKeys(click) {
		if err := c.shared.Delete(ctx, key); err != nil {
			c.log.Debug("shared tier invalidate failed", "key", key, "error", err)
		}
	}
}

// FindByIP looks up a recent click for the user by client IP.
func (c *TieredClickCache) FindByIP(ctx context.Context, userID uuid.UUID, ip string) (*types.ClickEvent, bool) {
	if strings.TrimSpace(ip) == "" {
		return nil, false
	}
	return c.find(ctx, userID, keyIP(ip), func(cl *types.ClickEvent) bool {
		return cl.IPAddress == ip
	})
}

// FindByTracker looks up a recent click for the user by persistent
// tracker id.
func (c *TieredClickCache) FindByTracker(ctx context.Context, userID uuid.UUID, trackerID string) (*types.ClickEvent, bool) {
	if strings.TrimSpace(trackerID) == "" {
		return nil, false
	}
	return c.find(ctx, userID, keyTracker(trackerID), func(cl *types.ClickEvent) bool {
		return cl.TrackerID == trackerID
	})
}

// FindByFingerprint looks up a recent click for the user by device
// fingerprint.
func (c *TieredClickCache) FindByFingerprint(ctx context.Context, userID uuid.UUID, fp string) (*types.ClickEvent, bool) {
	if strings.TrimSpace(fp) == "" {
		return nil, false
	}
	return c.find(ctx, userID, keyFingerprint(fp), func(cl *types.ClickEvent) bool {
		return cl.Fingerprint == fp
	})
}

func (c *TieredClickCache) find(ctx context.Context, userID uuid.UUID, sharedKey string, pred func(*types.ClickEvent) bool) (*types.ClickEvent, bool) {
	if hit := c.hot.find(userID, pred); hit != nil {
		c.hotHits.Add(1)
		return hit, true
	}

	if c.shared != nil {
		raw, err := c.shared.Get(ctx, sharedKey)
		switch {
		case err == nil:
			var click types.ClickEvent
			if decodeErr := json.Unmarshal(raw, &click); decodeErr != nil {
				c.log.Warn("shared tier entry corrupt, treating as miss", "key", sharedKey, "error", decodeErr)
			} else if click.UserID == userID {
				// Signal keys are global; a hit for another
				// creator's click is not a match for this sale.
				c.sharedHits.Add(1)
				return &click, true
			}
		case errors.Is(err, errs.ErrCacheMiss):
			// fall through
		default:
			c.log.Debug("shared tier read failed, treating as miss", "key", sharedKey, "error", err)
		}
	}

	c.misses.Add(1)
	return nil, false
}

func (c *TieredClickCache) Stats() Stats {
	return Stats{
		HotHits:    c.hotHits.Load(),
		SharedHits: c.sharedHits.Load(),
		Misses:     c.misses.Load(),
		Puts:       c.puts.Load(),
		HotEntries: c.hot.size(),
	}
}
