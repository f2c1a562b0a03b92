package redis

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/cassiomorais/storefront/internal/domain/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	// Only the owner token may release the lock.
	releaseLockScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)
)

// DistributedLock is a single-owner lock on a Redis key with a TTL.
type DistributedLock struct {
	client   redis.Cmdable
	key      string
	token    string
	ttl      time.Duration
	acquired bool
}

func NewDistributedLock(client redis.Cmdable, key string, ttl time.Duration) *DistributedLock {
	return &DistributedLock{
		client: client,
		key:    "lock:" + key,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// TryAcquire sets the lock key if it is free.
func (l *DistributedLock) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", domainErrors.ErrLockAcquisitionFailed, err)
	}
	l.acquired = ok
	return ok, nil
}

// Release deletes the key if this lock still owns it.
func (l *DistributedLock) Release(ctx context.Context) error {
	if !l.acquired {
		return nil
	}
	res, err := releaseLockScript.Run(ctx, l.client, []string{l.key}, l.token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	l.acquired = false
	if res == 0 {
		return domainErrors.ErrLockNotHeld
	}
	return nil
}

func (l *DistributedLock) Key() string { return l.key }

// CustomerLocker serializes the checkouts of one customer across API instances.
type CustomerLocker struct {
	client     redis.Cmdable
	ttl        time.Duration
	retries    int
	retryDelay time.Duration
}

func NewCustomerLocker(client redis.Cmdable, ttl time.Duration) *CustomerLocker {
	return &CustomerLocker{client: client, ttl: ttl, retries: 3, retryDelay: 100 * time.Millisecond}
}

// Acquire waits briefly for a competing checkout to finish, then gives up with
// ErrCheckoutInProgress.
func (c *CustomerLocker) Acquire(ctx context.Context, customerID string) (func(context.Context), error) {
	lock := NewDistributedLock(c.client, "checkout:customer:"+customerID, c.ttl)

	for attempt := 0; ; attempt++ {
		ok, err := lock.TryAcquire(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if attempt >= c.retries {
			return nil, domainErrors.ErrCheckoutInProgress
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}

	return func(ctx context.Context) {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("lock", lock.Key()).Msg("Checkout lock expired before release")
		}
	}, nil
}
