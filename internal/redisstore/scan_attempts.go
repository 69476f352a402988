package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/terraincognita07/mealcredit/internal/models"
)

const (
	DefaultKeyPrefix = "mealcredit:scan:"
	indexKeySuffix   = "keys"
)

// Archive receives every attempt after it is counted, so the SQL audit
// trail stays complete while Redis holds the shared rate-limit window.
type Archive interface {
	Record(ctx context.Context, attempt models.ScanAttempt) error
	PruneBefore(ctx context.Context, cutoff time.Time) error
}

// ScanAttemptStore keeps one sorted set per device, scored by attempt time
// in Unix milliseconds.
type ScanAttemptStore struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
	archive   Archive
	lockLease time.Duration
	lockWait  time.Duration
}

type Option func(*ScanAttemptStore)

func WithKeyPrefix(prefix string) Option {
	return func(store *ScanAttemptStore) {
		if prefix != "" {
			store.prefix = prefix
		}
	}
}

func WithArchive(archive Archive) Option {
	return func(store *ScanAttemptStore) {
		store.archive = archive
	}
}

func NewScanAttemptStore(client redis.UniversalClient, retention time.Duration, options ...Option) *ScanAttemptStore {
	store := &ScanAttemptStore{
		client:    client,
		prefix:    DefaultKeyPrefix,
		retention: retention,
		lockLease: defaultLockLease,
		lockWait:  defaultLockWait,
	}
	for _, option := range options {
		option(store)
	}
	return store
}

func (store *ScanAttemptStore) deviceKey(fingerprint string) string {
	return store.prefix + "device:" + fingerprint
}

func (store *ScanAttemptStore) indexKey() string {
	return store.prefix + indexKeySuffix
}

func (store *ScanAttemptStore) Record(ctx context.Context, attempt models.ScanAttempt) error {
	key := store.deviceKey(attempt.DeviceFingerprint)
	score := float64(attempt.AttemptedAt.UnixMilli())

	pipe := store.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: uuid.NewString()})
	pipe.SAdd(ctx, store.indexKey(), key)
	if store.retention > 0 {
		pipe.Expire(ctx, key, store.retention)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis record scan attempt: %w", err)
	}

	if store.archive != nil {
		if err := store.archive.Record(ctx, attempt); err != nil {
			return fmt.Errorf("archive scan attempt: %w", err)
		}
	}
	return nil
}

// CountSince counts attempts strictly after since.
func (store *ScanAttemptStore) CountSince(ctx context.Context, fingerprint string, since time.Time) (int64, error) {
	minScore := "(" + strconv.FormatInt(since.UnixMilli(), 10)
	count, err := store.client.ZCount(ctx, store.deviceKey(fingerprint), minScore, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("redis count scan attempts: %w", err)
	}
	return count, nil
}

// PruneBefore trims every tracked device set and forgets the empty ones.
func (store *ScanAttemptStore) PruneBefore(ctx context.Context, cutoff time.Time) error {
	keys, err := store.client.SMembers(ctx, store.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("redis list scan keys: %w", err)
	}

	maxScore := "(" + strconv.FormatInt(cutoff.UnixMilli(), 10)
	for _, key := range keys {
		pipe := store.client.TxPipeline()
		pipe.ZRemRangeByScore(ctx, key, "-inf", maxScore)
		remaining := pipe.ZCard(ctx, key)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("redis prune %s: %w", key, err)
		}
		if remaining.Val() == 0 {
			if err := store.client.SRem(ctx, store.indexKey(), key).Err(); err != nil {
				return fmt.Errorf("redis forget %s: %w", key, err)
			}
		}
	}

	if store.archive != nil {
		if err := store.archive.PruneBefore(ctx, cutoff); err != nil {
			return fmt.Errorf("prune archived scan attempts: %w", err)
		}
	}
	return nil
}
