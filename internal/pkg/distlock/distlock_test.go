package distlock

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisLockExclusive(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)

	a := NewRedisLock(client, "newsletter:dispatch", time.Minute)
	b := NewRedisLock(client, "newsletter:dispatch", time.Minute)

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("brief:lock:newsletter:dispatch"))

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not get the lock")

	// A non-owner release leaves the lock in place.
	require.NoError(t, b.Release(ctx))
	assert.True(t, mr.Exists(a.Key()))

	require.NoError(t, a.Release(ctx))
	assert.False(t, mr.Exists(a.Key()))

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockExpiresAndExtend(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)

	a := NewRedisLock(client, "k", time.Second)
	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, a.Extend(ctx, 10*time.Second))
	assert.Equal(t, 10*time.Second, mr.TTL(a.Key()))

	mr.FastForward(11 * time.Second)
	assert.ErrorIs(t, a.Extend(ctx, time.Second), ErrNotHeld)

	b := NewRedisLock(client, "k", time.Second)
	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewPicksBackend(t *testing.T) {
	_, client := setupRedis(t)
	assert.IsType(t, &RedisLock{}, New(client, nil, "k", time.Second))

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	assert.IsType(t, &PGAdvisoryLock{}, New(nil, db, "k", time.Second))
}

func TestPGAdvisoryLock(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := NewPGAdvisoryLock(db, "newsletter:dispatch")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT pg_try_advisory_lock($1)")).
		WithArgs(l.lockID).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_unlock($1)")).
		WithArgs(l.lockID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// Re-acquiring while held is refused locally.
	ok, err = l.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, l.Extend(ctx, time.Minute))

	require.NoError(t, l.Release(ctx))
	require.NoError(t, l.Release(ctx), "releasing twice is a no-op")
	assert.ErrorIs(t, l.Extend(ctx, time.Minute), ErrNotHeld)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGAdvisoryLockBusy(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := NewPGAdvisoryLock(db, "k")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT pg_try_advisory_lock($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	ok, err := l.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockIDStable(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, NewPGAdvisoryLock(db, "a").lockID, NewPGAdvisoryLock(db, "a").lockID)
	assert.NotEqual(t, NewPGAdvisoryLock(db, "a").lockID, NewPGAdvisoryLock(db, "b").lockID)
}
