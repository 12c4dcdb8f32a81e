package auth

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

const (
	defaultMaxAttempts   = 5
	defaultAttemptWindow = 15 * time.Minute
)

// AttemptTracker counts failed logins per username.
type AttemptTracker interface {
	RecordFailure(ctx context.Context, username string) error
	HasExceededMaxAttempts(ctx context.Context, username string) (bool, error)
	Evict(ctx context.Context, username string) error
}

type attemptRecord struct {
	failures  int
	expiresAt time.Time
}

// AttemptCache is an in-process AttemptTracker. Updates for one username are
// applied atomically through the map's per-key Compute, so concurrent
// failures never lose increments and unrelated usernames never contend on a
// shared lock.
type AttemptCache struct {
	entries     *xsync.MapOf[string, attemptRecord]
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

func NewAttemptCache(maxAttempts int, window time.Duration) *AttemptCache {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if window <= 0 {
		window = defaultAttemptWindow
	}

	return &AttemptCache{
		entries:     xsync.NewMapOf[string, attemptRecord](),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

func (c *AttemptCache) MaxAttempts() int {
	return c.maxAttempts
}

func (c *AttemptCache) RecordFailure(_ context.Context, username string) error {
	c.recordFailure(username)
	return nil
}

func (c *AttemptCache) recordFailure(username string) int {
	now := c.now()
	record, _ := c.entries.Compute(username, func(old attemptRecord, loaded bool) (attemptRecord, bool) {
		failures := 1
		if loaded && now.Before(old.expiresAt) {
			failures = old.failures + 1
		}
		return attemptRecord{failures: failures, expiresAt: now.Add(c.window)}, false
	})
	return record.failures
}

func (c *AttemptCache) HasExceededMaxAttempts(_ context.Context, username string) (bool, error) {
	return c.FailureCount(username) >= c.maxAttempts, nil
}

func (c *AttemptCache) Evict(_ context.Context, username string) error {
	c.entries.Delete(username)
	return nil
}

// FailureCount returns the live failure count for username; expired records
// count as zero.
func (c *AttemptCache) FailureCount(username string) int {
	record, ok := c.entries.Load(username)
	if !ok || !c.now().Before(record.expiresAt) {
		return 0
	}
	return record.failures
}

func (c *AttemptCache) Len() int {
	return c.entries.Size()
}

// Sweep removes expired records and returns how many were dropped.
func (c *AttemptCache) Sweep() int {
	now := c.now()
	removed := 0
	c.entries.Range(func(username string, record attemptRecord) bool {
		if now.Before(record.expiresAt) {
			return true
		}
		// Re-check under the key's lock so a concurrent failure that just
		// refreshed the record is kept.
		c.entries.Compute(username, func(current attemptRecord, loaded bool) (attemptRecord, bool) {
			if loaded && !now.Before(current.expiresAt) {
				removed++
				return current, true
			}
			return current, !loaded
		})
		return true
	})
	return removed
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func (c *AttemptCache) StartSweeper(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := c.Sweep()
				if onSweep != nil && removed > 0 {
					onSweep(removed)
				}
			}
		}
	}()
}
