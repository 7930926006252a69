package cache

import (
	"context"
	"database/sql"
	"time"

	"github.com/rose-music/rose/internal/rose"
)

// DefaultLockTimeout is used for everyday reads/writes (release tag
// rewrites, collection mutations).
const DefaultLockTimeout = 60 * time.Second

// EditLockTimeout is used for operations that wait on an external
// editor (edit_release, collage/playlist editor round-trip).
const EditLockTimeout = 300 * time.Second

const lockRetryInterval = 50 * time.Millisecond

// Lock acquires the named advisory lock, spin-retrying until it frees
// or timeout elapses. Locks are best-effort: a crashed holder's row
// simply expires and is overwritten by the next acquirer, it never
// wedges the system.
func (c *Cache) Lock(ctx context.Context, name string, timeout time.Duration) (func() error, error) {
	deadline := time.Now().Add(timeout)
	for {
		acquired, err := c.tryAcquire(name, timeout)
		if err != nil {
			return nil, err
		}
		if acquired {
			return func() error { return c.Unlock(name) }, nil
		}
		if time.Now().After(deadline) {
			return nil, rose.Expectedf(rose.OpCacheLock, "timed out waiting for lock %q", name)
		}
		select {
		case <-ctx.Done():
			return nil, rose.Wrap(rose.OpCacheLock, rose.Expected, ctx.Err())
		case <-time.After(lockRetryInterval):
		}
	}
}

func (c *Cache) tryAcquire(name string, timeout time.Duration) (bool, error) {
	now := nowUnix()
	validUntil := now + timeout.Seconds()

	tx, err := c.db.Begin()
	if err != nil {
		return false, rose.Wrap(rose.OpCacheLock, rose.Unexpected, err)
	}
	defer tx.Rollback() //nolint:errcheck

	var existingValidUntil float64
	err = tx.QueryRow(`SELECT valid_until FROM locks WHERE name = ?`, name).Scan(&existingValidUntil)
	switch {
	case err == sql.ErrNoRows:
		if _, err := tx.Exec(`INSERT INTO locks(name, valid_until) VALUES (?, ?)`, name, validUntil); err != nil {
			return false, rose.Wrap(rose.OpCacheLock, rose.Unexpected, err)
		}
	case err != nil:
		return false, rose.Wrap(rose.OpCacheLock, rose.Unexpected, err)
	case existingValidUntil > now:
		return false, nil
	default:
		if _, err := tx.Exec(`UPDATE locks SET valid_until = ? WHERE name = ?`, validUntil, name); err != nil {
			return false, rose.Wrap(rose.OpCacheLock, rose.Unexpected, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, rose.Wrap(rose.OpCacheLock, rose.Unexpected, err)
	}
	return true, nil
}

// Unlock releases the named advisory lock.
func (c *Cache) Unlock(name string) error {
	_, err := c.db.Exec(`DELETE FROM locks WHERE name = ?`, name)
	if err != nil {
		return rose.Wrap(rose.OpCacheLock, rose.Unexpected, err)
	}
	return nil
}

func nowUnix() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
