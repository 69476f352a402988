package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLockLease = 5 * time.Second
	defaultLockWait  = 2 * time.Second
	lockRetryDelay   = 20 * time.Millisecond
)

var ErrDeviceLocked = errors.New("scan device is locked")

// unlockScript deletes the lock only while it still holds our token, so a
// holder whose lease expired cannot release someone else's lock.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// WithLockTiming sets how long a device lock lives and how long LockDevice
// waits for a busy one.
func WithLockTiming(lease time.Duration, wait time.Duration) Option {
	return func(store *ScanAttemptStore) {
		if lease > 0 {
			store.lockLease = lease
		}
		if wait > 0 {
			store.lockWait = wait
		}
	}
}

func (store *ScanAttemptStore) lockKey(fingerprint string) string {
	return store.prefix + "lock:" + fingerprint
}

// LockDevice takes a SET NX lease on the device so scanners behind
// different processes serialize on the same rate-limit window.
func (store *ScanAttemptStore) LockDevice(ctx context.Context, fingerprint string) (func(), error) {
	key := store.lockKey(fingerprint)
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, store.lockWait)
	defer cancel()

	for {
		acquired, err := store.client.SetNX(waitCtx, key, token, store.lockLease).Result()
		if err != nil && waitCtx.Err() == nil {
			return nil, fmt.Errorf("redis lock %s: %w", fingerprint, err)
		}
		if acquired {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = unlockScript.Run(releaseCtx, store.client, []string{key}, token).Err()
			}, nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %s", ErrDeviceLocked, fingerprint)
		case <-time.After(lockRetryDelay):
		}
	}
}
