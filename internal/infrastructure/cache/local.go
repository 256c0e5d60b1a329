package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"glasserp/pkg/logger"
)

type localEntry struct {
	value     []byte
	expiresAt time.Time
}

// Local is an in-process JSON cache with TTL. Entries written by another
// process are dropped when a NOTIFY arrives on the watched channel.
type Local struct {
	mu      sync.RWMutex
	entries map[string]localEntry
	now     func() time.Time

	// Lifecycle
	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewLocal creates an empty cache.
func NewLocal() *Local {
	return &Local{
		entries: make(map[string]localEntry),
		now:     time.Now,
	}
}

// GetJSON decodes key into dest. ok is false on a miss or expiry.
func (c *Local) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expiresAt) {
		return false, nil
	}
	if err := json.Unmarshal(e.value, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores value under key for ttl.
func (c *Local) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	c.mu.Lock()
	c.entries[key] = localEntry{value: b, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Delete removes keys.
func (c *Local) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *Local) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Listen drops prefix+payload for every NOTIFY on channel until Stop.
func (c *Local) Listen(ctx context.Context, pool *pgxpool.Pool, channel, prefix string) {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	if c.cancel != nil {
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go c.listenLoop(ctx, pool, channel, prefix)
}

// Stop ends the listener and waits for it.
func (c *Local) Stop() {
	c.lifecycleMu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}

func (c *Local) listenLoop(ctx context.Context, pool *pgxpool.Pool, channel, prefix string) {
	defer c.wg.Done()

	for ctx.Err() == nil {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error(ctx, "failed to acquire connection for LISTEN", "error", err)
			time.Sleep(time.Second)
			continue
		}

		if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
			logger.Error(ctx, "failed to LISTEN", "channel", channel, "error", err)
			conn.Release()
			time.Sleep(time.Second)
			continue
		}
		logger.Info(ctx, "listening for cache invalidations", "channel", channel)

		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				break
			}
			logger.Debug(ctx, "cache invalidated", "channel", n.Channel, "payload", n.Payload)
			_ = c.Delete(ctx, prefix+n.Payload)
		}
		conn.Release()
	}
}
