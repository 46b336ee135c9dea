package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const (
	defaultLockTTL       = 10 * time.Second
	defaultLockAttempts  = 20
	defaultLockRetryWait = 25 * time.Millisecond
)

// ErrLockBusy is returned when another owner keeps the lock past every attempt.
var ErrLockBusy = errors.New("lock held by another owner")

// lockStore defines the operations used by Locker.
type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key, value string) (bool, error)
	LockKey(name string) string
}

// LockOptions tunes Locker. Zero values fall back to defaults.
type LockOptions struct {
	TTL       time.Duration
	Attempts  uint64
	RetryWait time.Duration
}

// Locker hands out short-lived Redis locks using SETNX + TTL.
type Locker struct {
	store lockStore
	opts  LockOptions
}

// NewLocker constructs a Redis-backed locker.
func NewLocker(store lockStore, opts LockOptions) (*Locker, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultLockTTL
	}
	if opts.Attempts == 0 {
		opts.Attempts = defaultLockAttempts
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = defaultLockRetryWait
	}
	return &Locker{store: store, opts: opts}, nil
}

// Lock waits until name is owned by the caller and returns the release func.
func (l *Locker) Lock(ctx context.Context, name string) (func(context.Context) error, error) {
	if name == "" {
		return nil, errors.New("lock name is required")
	}
	key := l.store.LockKey(name)
	owner := uuid.NewString()

	backoff := retry.WithMaxRetries(l.opts.Attempts-1, retry.NewConstant(l.opts.RetryWait))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ok, err := l.store.SetNX(ctx, key, owner, l.opts.TTL)
		if err != nil {
			return fmt.Errorf("setnx: %w", err)
		}
		if !ok {
			return retry.RetryableError(ErrLockBusy)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		return l.release(ctx, key, owner)
	}, nil
}

// release frees the lock only if the owner value still matches. The compare
// and the delete run as one script so an expired lock taken by someone else
// survives.
func (l *Locker) release(ctx context.Context, key, owner string) error {
	if _, err := l.store.DelIfValue(ctx, key, owner); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
