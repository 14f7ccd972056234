package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-ticket-booking/internal/config"
)

func testLocker(t *testing.T, wait time.Duration) (*Locker, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	l := NewLocker(db, config.LockConfig{
		WaitTime:      wait,
		LeaseTime:     30 * time.Second,
		RetryInterval: 10 * time.Millisecond,
	})
	l.tokenFn = func() (string, error) { return "tok", nil }
	return l, mock
}

func TestSeatLockKeys_SortsAndDeduplicates(t *testing.T) {
	keys := SeatLockKeys([]uint64{3, 1, 2, 3, 1})

	assert.Equal(t, []string{"seat:lock:1", "seat:lock:2", "seat:lock:3"}, keys)
}

func TestWithSeatLocks_AcquiresInSortedOrderAndReleases(t *testing.T) {
	l, mock := testLocker(t, 100*time.Millisecond)

	// Acquisition happens ascending by seat id regardless of the
	// order the caller passed the ids in.
	mock.ExpectSetNX("seat:lock:1", "tok", 30*time.Second).SetVal(true)
	mock.ExpectSetNX("seat:lock:2", "tok", 30*time.Second).SetVal(true)
	mock.ExpectSetNX("seat:lock:3", "tok", 30*time.Second).SetVal(true)
	// Release runs in reverse acquisition order.
	mock.ExpectEval(releaseScript, []string{"seat:lock:3"}, "tok").SetVal(int64(1))
	mock.ExpectEval(releaseScript, []string{"seat:lock:2"}, "tok").SetVal(int64(1))
	mock.ExpectEval(releaseScript, []string{"seat:lock:1"}, "tok").SetVal(int64(1))

	ran := false
	err := l.WithSeatLocks(context.Background(), []uint64{3, 1, 2}, func() error {
		ran = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSeatLocks_AllOrNothingOnContention(t *testing.T) {
	l, mock := testLocker(t, time.Millisecond)

	// Second lock is held by someone else: the first must be rolled
	// back and the whole acquisition must fail, leaving no partial
	// lock set behind.
	mock.ExpectSetNX("seat:lock:1", "tok", 30*time.Second).SetVal(true)
	mock.ExpectSetNX("seat:lock:2", "tok", 30*time.Second).SetVal(false)
	mock.ExpectEval(releaseScript, []string{"seat:lock:1"}, "tok").SetVal(int64(1))

	err := l.WithSeatLocks(context.Background(), []uint64{1, 2}, func() error {
		t.Fatal("body must not run without the full lock set")
		return nil
	})

	assert.ErrorIs(t, err, ErrLockAcquisitionFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSeatLocks_ReleasesOnBodyError(t *testing.T) {
	l, mock := testLocker(t, 100*time.Millisecond)

	mock.ExpectSetNX("seat:lock:7", "tok", 30*time.Second).SetVal(true)
	mock.ExpectEval(releaseScript, []string{"seat:lock:7"}, "tok").SetVal(int64(1))

	bodyErr := errors.New("boom")
	err := l.WithSeatLocks(context.Background(), []uint64{7}, func() error {
		return bodyErr
	})

	assert.ErrorIs(t, err, bodyErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSeatLocks_ExpiredLockReleaseIsNoOp(t *testing.T) {
	l, mock := testLocker(t, 100*time.Millisecond)

	mock.ExpectSetNX("seat:lock:9", "tok", 30*time.Second).SetVal(true)
	// The lease expired while the body ran; the release script finds
	// no key owned by our token and reports 0. Not an error.
	mock.ExpectEval(releaseScript, []string{"seat:lock:9"}, "tok").SetVal(int64(0))

	err := l.WithSeatLocks(context.Background(), []uint64{9}, func() error { return nil })

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSeatLocks_EmptySeatSet(t *testing.T) {
	l, _ := testLocker(t, 100*time.Millisecond)

	err := l.WithSeatLocks(context.Background(), nil, func() error { return nil })

	assert.Error(t, err)
}

func TestWithShowLock(t *testing.T) {
	l, mock := testLocker(t, 100*time.Millisecond)

	mock.ExpectSetNX("show:lock:42", "tok", 30*time.Second).SetVal(true)
	mock.ExpectEval(releaseScript, []string{"show:lock:42"}, "tok").SetVal(int64(1))

	err := l.WithShowLock(context.Background(), 42, func() error { return nil })

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
