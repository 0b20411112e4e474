// Package services – per-user append serialization.
//
// The fact append is a read-modify-write over one user row; two concurrent
// appends for the same user id would otherwise race and clobber each other's
// streak and count updates. userLocks hands out one slot per user id,
// acquired with a bounded wait so a stuck writer degrades to a Busy error
// instead of a deadlock. Entries for idle users are evicted opportunistically
// to bound memory, the same way the rate limiter prunes idle buckets.
package services

import (
	"context"
	"sync"
	"time"
)

// userLock is a single-slot semaphore plus the last time it was touched.
type userLock struct {
	slot     chan struct{}
	lastSeen time.Time
}

// userLocks is a registry of per-user append locks. It is safe for
// concurrent use.
type userLocks struct {
	mu       sync.Mutex
	locks    map[uint]*userLock
	ttl      time.Duration
	lookupsN uint64
}

func newUserLocks() *userLocks {
	return &userLocks{
		locks: make(map[uint]*userLock),
		ttl:   10 * time.Minute,
	}
}

// get returns the lock for id, creating it if absent. Idle entries are
// pruned after a threshold of lookups. An entry whose slot is held is never
// evicted regardless of age.
func (ul *userLocks) get(id uint) *userLock {
	now := time.Now()

	ul.mu.Lock()
	defer ul.mu.Unlock()

	ul.lookupsN++
	if ul.lookupsN >= 5000 {
		for k, l := range ul.locks {
			if now.Sub(l.lastSeen) >= ul.ttl && len(l.slot) == 0 {
				delete(ul.locks, k)
			}
		}
		ul.lookupsN = 0
	}

	if l, ok := ul.locks[id]; ok {
		l.lastSeen = now
		return l
	}
	l := &userLock{slot: make(chan struct{}, 1), lastSeen: now}
	ul.locks[id] = l
	return l
}

// acquire takes the append slot for id, waiting at most wait. It returns
// ErrBusy when the slot cannot be acquired in time and the context error when
// the request is cancelled first. On success the caller must invoke the
// returned release function exactly once.
func (ul *userLocks) acquire(ctx context.Context, id uint, wait time.Duration) (release func(), err error) {
	l := ul.get(id)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case l.slot <- struct{}{}:
		return func() { <-l.slot }, nil
	case <-timer.C:
		return nil, ErrBusy
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
