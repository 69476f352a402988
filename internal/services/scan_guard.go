package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/terraincognita07/mealcredit/internal/models"
)

const (
	DefaultScanRateLimit  = 10
	DefaultScanRateWindow = 5 * time.Minute
	ScanAttemptRetention  = 24 * time.Hour
	scanPruneInterval     = time.Minute
)

// ScanAttemptStore keeps the scan audit trail. Implementations live in
// internal/db (via NewRepositoryScanStore) and internal/redisstore.
type ScanAttemptStore interface {
	Record(ctx context.Context, attempt models.ScanAttempt) error
	CountSince(ctx context.Context, fingerprint string, since time.Time) (int64, error)
	PruneBefore(ctx context.Context, cutoff time.Time) error
}

// ScanAttemptLocker is implemented by stores shared between processes. The
// returned release func must be called once the attempt is recorded.
type ScanAttemptLocker interface {
	LockDevice(ctx context.Context, fingerprint string) (func(), error)
}

// ScanGuard rate-limits scans per device over a sliding window.
type ScanGuard struct {
	store     ScanAttemptStore
	threshold int
	window    time.Duration

	mu        sync.Mutex
	lastPrune time.Time

	locksMu sync.Mutex
	locks   map[string]*deviceLock
}

type deviceLock struct {
	mu      sync.Mutex
	holders int
}

func NewScanGuard(store ScanAttemptStore, threshold int, window time.Duration) *ScanGuard {
	if threshold <= 0 {
		threshold = DefaultScanRateLimit
	}
	if window <= 0 {
		window = DefaultScanRateWindow
	}
	return &ScanGuard{store: store, threshold: threshold, window: window, locks: map[string]*deviceLock{}}
}

// Lock serializes the check, decide and record steps of one device's scans.
// Without it concurrent scans could all count below the threshold before any
// of them is recorded. Stores implementing ScanAttemptLocker extend the lock
// across processes.
func (guard *ScanGuard) Lock(ctx context.Context, fingerprint string) (func(), error) {
	releaseLocal := guard.lockLocal(fingerprint)

	locker, ok := guard.store.(ScanAttemptLocker)
	if !ok {
		return releaseLocal, nil
	}
	releaseShared, err := locker.LockDevice(ctx, fingerprint)
	if err != nil {
		releaseLocal()
		return nil, fmt.Errorf("lock scan device: %w", err)
	}
	return func() {
		releaseShared()
		releaseLocal()
	}, nil
}

func (guard *ScanGuard) lockLocal(fingerprint string) func() {
	guard.locksMu.Lock()
	if guard.locks == nil {
		guard.locks = map[string]*deviceLock{}
	}
	lock := guard.locks[fingerprint]
	if lock == nil {
		lock = &deviceLock{}
		guard.locks[fingerprint] = lock
	}
	lock.holders++
	guard.locksMu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()

		guard.locksMu.Lock()
		lock.holders--
		if lock.holders == 0 {
			delete(guard.locks, fingerprint)
		}
		guard.locksMu.Unlock()
	}
}

func (guard *ScanGuard) Threshold() int {
	return guard.threshold
}

func (guard *ScanGuard) Window() time.Duration {
	return guard.window
}

// RecordAttempt appends the attempt and drops entries older than the
// retention window at most once per prune interval.
func (guard *ScanGuard) RecordAttempt(ctx context.Context, attempt models.ScanAttempt) error {
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = time.Now()
	}
	attempt.AttemptedAt = attempt.AttemptedAt.UTC()

	if err := guard.store.Record(ctx, attempt); err != nil {
		return fmt.Errorf("record scan attempt: %w", err)
	}

	if guard.shouldPrune(attempt.AttemptedAt) {
		if err := guard.store.PruneBefore(ctx, attempt.AttemptedAt.Add(-ScanAttemptRetention)); err != nil {
			return fmt.Errorf("prune scan attempts: %w", err)
		}
	}
	return nil
}

// RecentAttempts counts the device's attempts in (at-window, at].
func (guard *ScanGuard) RecentAttempts(ctx context.Context, fingerprint string, at time.Time, window time.Duration) (int64, error) {
	count, err := guard.store.CountSince(ctx, fingerprint, at.UTC().Add(-window))
	if err != nil {
		return 0, fmt.Errorf("count scan attempts: %w", err)
	}
	return count, nil
}

// RateLimited is true once the device already has threshold attempts inside
// the window, so the attempt after the threshold-th is rejected. Callers hold
// Lock for the device until the attempt is recorded.
func (guard *ScanGuard) RateLimited(ctx context.Context, fingerprint string, at time.Time) (bool, error) {
	count, err := guard.RecentAttempts(ctx, fingerprint, at, guard.window)
	if err != nil {
		return false, err
	}
	return count >= int64(guard.threshold), nil
}

func (guard *ScanGuard) shouldPrune(at time.Time) bool {
	guard.mu.Lock()
	defer guard.mu.Unlock()

	if !guard.lastPrune.IsZero() && at.Sub(guard.lastPrune) < scanPruneInterval {
		return false
	}
	guard.lastPrune = at
	return true
}

type ScanAttemptRepository interface {
	Create(attempt *models.ScanAttempt) error
	CountSince(fingerprint string, since time.Time) (int64, error)
	DeleteBefore(cutoff time.Time) error
}

// RepositoryScanStore adapts the SQL scan_attempts repository.
type RepositoryScanStore struct {
	attempts ScanAttemptRepository
}

func NewRepositoryScanStore(attempts ScanAttemptRepository) *RepositoryScanStore {
	return &RepositoryScanStore{attempts: attempts}
}

func (store *RepositoryScanStore) Record(_ context.Context, attempt models.ScanAttempt) error {
	return store.attempts.Create(&attempt)
}

func (store *RepositoryScanStore) CountSince(_ context.Context, fingerprint string, since time.Time) (int64, error) {
	return store.attempts.CountSince(fingerprint, since)
}

func (store *RepositoryScanStore) PruneBefore(_ context.Context, cutoff time.Time) error {
	return store.attempts.DeleteBefore(cutoff)
}
