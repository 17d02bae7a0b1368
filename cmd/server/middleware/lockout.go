package middleware

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// FailureLock counts authentication failures per client and locks a client
// out for a fixed period once it reaches the limit.
type FailureLock struct {
	cache       *cache.Cache
	maxFailures int
	lockout     time.Duration
}

// NewFailureLock creates a lock. Failure counts expire after the lockout
// period of inactivity.
func NewFailureLock(maxFailures int, lockout time.Duration) *FailureLock {
	return &FailureLock{
		cache:       cache.New(lockout, 2*lockout),
		maxFailures: maxFailures,
		lockout:     lockout,
	}
}

func lockKey(client string) string    { return "lock:" + client }
func failureKey(client string) string { return "failures:" + client }

// Locked reports whether client is currently locked out.
func (l *FailureLock) Locked(client string) bool {
	_, found := l.cache.Get(lockKey(client))
	return found
}

// RecordFailure counts one failure and reports whether client is now locked.
func (l *FailureLock) RecordFailure(client string) bool {
	key := failureKey(client)
	if err := l.cache.Increment(key, 1); err != nil {
		l.cache.Set(key, int64(1), cache.DefaultExpiration)
	}

	var failures int64
	if x, found := l.cache.Get(key); found {
		failures, _ = x.(int64)
	}

	if failures >= int64(l.maxFailures) {
		l.cache.Set(lockKey(client), true, l.lockout)
		l.cache.Delete(key)
		return true
	}
	return false
}

// Reset clears the failure count for client.
func (l *FailureLock) Reset(client string) {
	l.cache.Delete(failureKey(client))
}
