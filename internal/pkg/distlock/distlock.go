// Package distlock provides best-effort mutual exclusion across processes.
//
// Redis is preferred when configured; otherwise a PostgreSQL session-level
// advisory lock is used. Either way a holder that dies releases the lock:
// the Redis key expires, and the advisory lock goes with the session.
package distlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned by Extend when the lock is no longer owned.
var ErrNotHeld = errors.New("distlock: lock not held")

// DistLock is a non-blocking, non-reentrant lock. An instance tracks its own
// ownership and must not be shared by concurrent holders.
type DistLock interface {
	// Acquire tries to take the lock. It never blocks waiting for a holder.
	Acquire(ctx context.Context) (bool, error)
	// Release gives the lock up if this instance still owns it.
	Release(ctx context.Context) error
	// Extend renews the lock for ttl. It returns ErrNotHeld once the lock
	// has expired or belongs to someone else.
	Extend(ctx context.Context, ttl time.Duration) error
}

// New returns a Redis lock when client is non-nil and a PostgreSQL advisory
// lock otherwise.
func New(client *redis.Client, db *sql.DB, key string, ttl time.Duration) DistLock {
	if client != nil {
		return NewRedisLock(client, key, ttl)
	}
	return NewPGAdvisoryLock(db, key)
}

// PGAdvisoryLock implements DistLock with pg_try_advisory_lock. Advisory
// locks belong to a session, so the lock pins one pooled connection from
// Acquire until Release.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64

	mu   sync.Mutex
	conn *sql.Conn
}

// NewPGAdvisoryLock derives a stable 64-bit lock id from key.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{db: db, lockID: int64(h.Sum64())}
}

// Acquire implements DistLock.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return false, nil
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("advisory lock conn: %w", err)
	}
	var ok bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&ok); err != nil {
		conn.Close()
		return false, fmt.Errorf("advisory lock %d: %w", l.lockID, err)
	}
	if !ok {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

// Extend implements DistLock. Advisory locks do not expire, so it only
// reports whether this instance still holds its session.
func (l *PGAdvisoryLock) Extend(ctx context.Context, _ time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return ErrNotHeld
	}
	if err := l.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("advisory lock %d: %w", l.lockID, err)
	}
	return nil
}

// Release implements DistLock.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	conn := l.conn
	l.conn = nil
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID); err != nil {
		return fmt.Errorf("advisory unlock %d: %w", l.lockID, err)
	}
	return nil
}
