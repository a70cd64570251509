// Package specialtycache implements the process-wide PCP specialty-code
// list (spec §5: "the cached PCP specialty list, refreshed on process start
// or on configurable interval; readers see a consistent snapshot"): a single
// atomically-swapped snapshot rather than per-key TTLs, since the whole list
// is read on every request and refreshed as one unit.
package specialtycache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache holds the current PCP specialty-code snapshot. One Cache is shared
// process-wide; Snapshot is safe for concurrent readers while a refresh is
// in flight.
type Cache struct {
	redis    *redis.Client
	key      string
	interval time.Duration
	logger   *zap.Logger

	snapshot atomic.Pointer[[]string]
	stopCh   chan struct{}
}

// Config configures the specialty cache's Redis connection and refresh cadence.
type Config struct {
	Addr              string
	Password          string
	DB                int
	SetKey            string // Redis set key holding the PCP specialty codes
	RefreshInterval   time.Duration
}

// New builds a Cache and performs one synchronous initial load so the first
// request never races an empty snapshot.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	c := &Cache{
		redis:    client,
		key:      cfg.SetKey,
		interval: cfg.RefreshInterval,
		logger:   logger.With(zap.String("component", "specialtycache")),
		stopCh:   make(chan struct{}),
	}

	empty := []string{}
	c.snapshot.Store(&empty)

	if err := c.refresh(ctx); err != nil {
		return nil, fmt.Errorf("specialtycache: initial load: %w", err)
	}
	return c, nil
}

// Start launches the background refresh loop. No-op if RefreshInterval <= 0
// (snapshot stays at its initial load for the process lifetime).
func (c *Cache) Start() {
	if c.interval <= 0 {
		return
	}
	go c.refreshLoop()
}

func (c *Cache) refreshLoop() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := c.refresh(ctx); err != nil {
				c.logger.Error("specialty cache refresh failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// refresh loads the full specialty-code set from Redis and atomically swaps
// the snapshot. A failed refresh leaves the previous snapshot in place.
func (c *Cache) refresh(ctx context.Context) error {
	codes, err := c.redis.SMembers(ctx, c.key).Result()
	if err != nil {
		return fmt.Errorf("smembers %s: %w", c.key, err)
	}
	snap := make([]string, len(codes))
	copy(snap, codes)
	c.snapshot.Store(&snap)
	return nil
}

// Snapshot returns the current specialty-code list. The returned slice must
// not be mutated by the caller; it is shared across all concurrent readers.
func (c *Cache) Snapshot() []string {
	return *c.snapshot.Load()
}

// Contains reports whether code is a recognized PCP specialty code in the
// current snapshot.
func (c *Cache) Contains(code string) bool {
	for _, s := range c.Snapshot() {
		if s == code {
			return true
		}
	}
	return false
}

// Stop ends the background refresh loop, if running.
func (c *Cache) Stop() {
	close(c.stopCh)
	_ = c.redis.Close()
}
