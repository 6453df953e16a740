package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrActionInProgress is returned when the same action is already running.
var ErrActionInProgress = errors.New("another request for this action is in progress")

// releaseLockScript deletes the lock only if it still holds our token, so a
// lock that expired and was taken by someone else is left alone.
var releaseLockScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

const (
	RedisActionLockPrefix = "portal:lock:"

	defaultActionLockTTL = 15 * time.Second

	mutexCleanupInterval = 10 * time.Minute
	mutexStaleThreshold  = 10 * time.Minute
)

// ActionLockService serializes queue actions (call next, end, no-show,
// reassign) per doctor so a double submit cannot advance the queue twice.
//
// Lock ordering:
// 1. In-process mutex for the key (TryLock, never blocks)
// 2. Redis SET NX for the key, shared across portal replicas
type ActionLockService struct {
	redisClient *redis.Client
	log         *logrus.Logger
	ttl         time.Duration

	keyMu sync.Map // map[string]*mutexWithTimestamp

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

type mutexWithTimestamp struct {
	mu       sync.Mutex
	lastUsed atomic.Int64
}

// NewActionLockService starts the stale mutex cleanup goroutine. redisClient
// may be nil, in which case locking is process local. Call Stop on shutdown.
func NewActionLockService(redisClient *redis.Client, log *logrus.Logger, ttl time.Duration) *ActionLockService {
	if ttl <= 0 {
		ttl = defaultActionLockTTL
	}
	svc := &ActionLockService{
		redisClient: redisClient,
		log:         log,
		ttl:         ttl,
		stopChan:    make(chan struct{}),
	}

	svc.wg.Add(1)
	go svc.cleanupMutexMapLoop()

	return svc
}

// Stop is safe to call multiple times.
func (s *ActionLockService) Stop() {
	if s.stopped.CompareAndSwap(false, true) {
		close(s.stopChan)
		s.wg.Wait()
		s.log.Info("ActionLockService stopped")
	}
}

// Do runs fn while holding the lock for key. It fails fast with
// ErrActionInProgress instead of waiting. A Redis outage degrades to the
// in-process lock.
func (s *ActionLockService) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	mt := s.getKeyMutex(key)
	if !mt.mu.TryLock() {
		return ErrActionInProgress
	}
	defer mt.mu.Unlock()

	if s.redisClient != nil {
		redisKey := RedisActionLockPrefix + key
		token := uuid.NewString()

		ok, err := s.redisClient.SetNX(ctx, redisKey, token, s.ttl).Result()
		switch {
		case err != nil:
			s.log.Warnf("Failed to acquire redis lock %s, using local lock only: %+v", key, err)
		case !ok:
			return ErrActionInProgress
		default:
			defer s.release(redisKey, token)
		}
	}

	return fn(ctx)
}

func (s *ActionLockService) release(redisKey, token string) {
	// the request context may already be cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseLockScript.Run(ctx, s.redisClient, []string{redisKey}, token).Err(); err != nil {
		s.log.Warnf("Failed to release redis lock %s: %+v", redisKey, err)
	}
}

func (s *ActionLockService) getKeyMutex(key string) *mutexWithTimestamp {
	mt, _ := s.keyMu.LoadOrStore(key, &mutexWithTimestamp{})
	result := mt.(*mutexWithTimestamp)
	result.lastUsed.Store(time.Now().Unix())
	return result
}

func (s *ActionLockService) cleanupMutexMapLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(mutexCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanupStaleMutexes(time.Now())
		}
	}
}

// cleanupStaleMutexes checks lastUsed while holding the mutex so a key
// cannot be reused between the check and the delete.
func (s *ActionLockService) cleanupStaleMutexes(now time.Time) int {
	cutoff := now.Add(-mutexStaleThreshold).Unix()
	var cleaned int

	s.keyMu.Range(func(key, value any) bool {
		mt, ok := value.(*mutexWithTimestamp)
		if !ok {
			return true
		}
		if mt.mu.TryLock() {
			if mt.lastUsed.Load() < cutoff {
				s.keyMu.Delete(key)
				cleaned++
			}
			mt.mu.Unlock()
		}
		return true
	})

	if cleaned > 0 {
		s.log.Debugf("Cleaned up %d stale action mutexes", cleaned)
	}
	return cleaned
}
