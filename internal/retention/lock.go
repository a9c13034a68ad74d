package retention

import (
	"context"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
)

const defaultLockTTL = 25 * time.Hour

// Lock keeps two workers from purging at the same time.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfEquals(ctx context.Context, key, value string) (bool, error)
}

// RedisLock is a SETNX lock whose value names the owning worker.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	owner string
}

// NewRedisLock builds a lock on key. A non-positive ttl falls back to 25h.
func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "redis client required for lock")
	}
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire retention lock")
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Release drops the key only while this worker still owns it.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	if _, err := l.store.DelIfEquals(ctx, l.key, l.owner); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release retention lock")
	}
	l.owner = ""
	return nil
}
