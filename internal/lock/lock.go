// Package lock implements distributed mutual exclusion over Redis for
// the booking engine.  Every service instance coordinates through the
// same named keys, so two processes can never mutate an intersecting
// seat set concurrently.  Locks carry a lease (TTL) so that a crashed
// holder cannot block the system forever; a lock that outlives its
// lease is force-expired by Redis and a later release of it becomes a
// logged no-op.
package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-ticket-booking/internal/config"
)

// ErrLockAcquisitionFailed is returned when the full lock set could
// not be secured within the configured wait bound.  Handlers surface
// it as a conflict, not a server error: it typically means high
// contention and the caller should retry.
var ErrLockAcquisitionFailed = errors.New("unable to acquire lock within wait time")

const (
	seatLockPrefix = "seat:lock:" // one key per seat id
	showLockPrefix = "show:lock:" // one key per show id
)

// releaseScript deletes a lock key only while it still holds the
// caller's token.  Without the token check a holder whose lease
// expired could delete a lock that another process has since
// acquired.
const releaseScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`

// Locker drives atomic multi-lock acquisition and release through
// Redis.  It owns no state beyond timing configuration; all lock
// state lives in Redis so it is shared by every process instance.
type Locker struct {
	rdb     *redis.Client
	wait    time.Duration          // acquisition wait bound
	lease   time.Duration          // per-lock TTL
	retry   time.Duration          // poll interval while waiting
	tokenFn func() (string, error) // lock ownership token source
}

// NewLocker constructs a Locker from a Redis client and lock timing
// configuration.  The client must be non-nil: unlike caching and rate
// limiting, the booking engine cannot degrade without its lock
// backend.
func NewLocker(rdb *redis.Client, cfg config.LockConfig) *Locker {
	if rdb == nil {
		panic("nil redis client passed to NewLocker")
	}
	return &Locker{
		rdb:     rdb,
		wait:    cfg.WaitTime,
		lease:   cfg.LeaseTime,
		retry:   cfg.RetryInterval,
		tokenFn: randomToken,
	}
}

// SeatLockKeys maps a set of seat ids onto their lock key names.
// Duplicate ids collapse to one key and the result is sorted
// ascending by id.  Sorted order is what makes multi-seat locking
// deadlock free: when every caller acquires overlapping lock sets in
// the same total order, circular wait between two callers is
// structurally impossible.
func SeatLockKeys(seatIDs []uint64) []string {
	seen := make(map[uint64]struct{}, len(seatIDs))
	unique := make([]uint64, 0, len(seatIDs))
	for _, id := range seatIDs {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })
	keys := make([]string, 0, len(unique))
	for _, id := range unique {
		keys = append(keys, seatLockPrefix+strconv.FormatUint(id, 10))
	}
	return keys
}

// WithSeatLocks acquires one named lock per distinct seat id, all or
// none, and runs fn while the whole set is held.  Locks are released
// on every exit path of fn, including error returns and panics.  The
// seat id set must be non-empty.
func (l *Locker) WithSeatLocks(ctx context.Context, seatIDs []uint64, fn func() error) error {
	keys := SeatLockKeys(seatIDs)
	if len(keys) == 0 {
		return fmt.Errorf("seat ids cannot be empty")
	}
	return l.withLocks(ctx, keys, fn)
}

// WithShowLock serializes show-level operations under a single named
// lock.  Seat-level booking does not use it, but show management
// operations that must not interleave with each other can.
func (l *Locker) WithShowLock(ctx context.Context, showID uint64, fn func() error) error {
	key := showLockPrefix + strconv.FormatUint(showID, 10)
	return l.withLocks(ctx, []string{key}, fn)
}

func (l *Locker) withLocks(ctx context.Context, keys []string, fn func() error) error {
	token, err := l.acquireAll(ctx, keys)
	if err != nil {
		return err
	}
	// Release must run even when ctx is already cancelled by the time
	// fn returns, hence the detached context.
	defer l.releaseAll(context.WithoutCancel(ctx), keys, token)
	return fn()
}

// acquireAll attempts to take every key in order with a shared
// ownership token.  A failed attempt rolls back the keys taken so far
// and retries until the wait bound expires, at which point the whole
// acquisition fails with ErrLockAcquisitionFailed.
func (l *Locker) acquireAll(ctx context.Context, keys []string) (string, error) {
	token, err := l.tokenFn()
	if err != nil {
		return "", fmt.Errorf("generate lock token: %w", err)
	}
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.tryAcquire(ctx, keys, token)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		if time.Now().Add(l.retry).After(deadline) {
			log.Printf("lock: failed to acquire %d lock(s) within %s", len(keys), l.wait)
			return "", ErrLockAcquisitionFailed
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

// tryAcquire is one all-or-nothing pass over the sorted key set.  On
// the first key that is already held it releases everything taken in
// this pass and reports false so the caller can back off and retry.
func (l *Locker) tryAcquire(ctx context.Context, keys []string, token string) (bool, error) {
	for i, key := range keys {
		ok, err := l.rdb.SetNX(ctx, key, token, l.lease).Result()
		if err != nil {
			l.releaseAll(ctx, keys[:i], token)
			return false, fmt.Errorf("lock %s: %w", key, err)
		}
		if !ok {
			l.releaseAll(ctx, keys[:i], token)
			return false, nil
		}
	}
	return true, nil
}

// releaseAll unlocks in reverse acquisition order.  Releasing a key
// that has expired or now belongs to another holder is a no-op; it is
// logged and never treated as an error.
func (l *Locker) releaseAll(ctx context.Context, keys []string, token string) {
	for i := len(keys) - 1; i >= 0; i-- {
		key := keys[i]
		n, err := l.rdb.Eval(ctx, releaseScript, []string{key}, token).Int()
		if err != nil {
			log.Printf("lock: release %s failed: %v", key, err)
			continue
		}
		if n == 0 {
			log.Printf("lock: %s already released or expired", key)
		}
	}
}

// randomToken returns a 32-hex-char ownership token from the OS
// CSPRNG.  Tokens tie each held lock to the goroutine that took it so
// release can never delete a lock acquired by someone else.
func randomToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
