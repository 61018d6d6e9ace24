package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/imobgestao/locacoes/backend/pkg/logger"
)

// LockKey guards scheduled reconcile runs across replicas
const LockKey = "lock:reconcile"

// ErrLockNotObtained is returned by a Locker when another holder owns the lock
var ErrLockNotObtained = errors.New("reconcile lock not obtained")

// Lock is a held distributed lock
type Lock interface {
	Release(ctx context.Context) error
}

// Locker obtains distributed locks
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

type redisLocker struct {
	client *redislock.Client
}

// NewRedisLocker adapts a redislock client to Locker
func NewRedisLocker(client *redislock.Client) Locker {
	return &redisLocker{client: client}
}

func (l *redisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// SourceFunc loads every contract to reconcile
type SourceFunc func(ctx context.Context) ([]Record, error)

// Scheduler periodically reconciles every contract
type Scheduler struct {
	reconciler *Reconciler
	source     SourceFunc
	interval   time.Duration
	locker     Locker // optional
	lockTTL    time.Duration
	clock      func() time.Time
}

func NewScheduler(rec *Reconciler, source SourceFunc, interval time.Duration) *Scheduler {
	return &Scheduler{
		reconciler: rec,
		source:     source,
		interval:   interval,
		lockTTL:    5 * time.Minute,
		clock:      time.Now,
	}
}

// WithLocker makes every tick obtain LockKey first
func (s *Scheduler) WithLocker(locker Locker, ttl time.Duration) *Scheduler {
	s.locker = locker
	if ttl > 0 {
		s.lockTTL = ttl
	}
	return s
}

// Run ticks until ctx is done
func (s *Scheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Info(ctx, "reconcile scheduler started", "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "reconcile scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				logger.Warn(ctx, "scheduled reconcile failed", "error", err)
			}
		}
	}
}

// RunOnce reconciles every contract once. It reports ran=false when the
// lock is held elsewhere.
func (s *Scheduler) RunOnce(ctx context.Context) (bool, error) {
	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, LockKey, s.lockTTL)
		if errors.Is(err, ErrLockNotObtained) {
			logger.Debug(ctx, "reconcile skipped, lock held elsewhere")
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to obtain reconcile lock: %w", err)
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn(ctx, "failed to release reconcile lock", "error", err)
			}
		}()
	}

	records, err := s.source(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load contracts: %w", err)
	}

	summary := Summarize(s.reconciler.Reconcile(ctx, s.clock(), records))
	logger.Info(ctx, "scheduled reconcile completed",
		"total", summary.Total,
		"changed", summary.Changed,
		"invalid", summary.Invalid,
	)
	return true, nil
}
