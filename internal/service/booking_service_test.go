package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
)

// memStore is an in-memory stand-in for the MySQL repositories. It
// reproduces the store contract the service depends on: writes are
// atomic per call and rejected with repository.ErrVersionConflict when
// a presented version is stale. failWrites injects artificial version
// conflicts to exercise the retry path.
type memStore struct {
	mu         sync.Mutex
	users      map[uint64]*model.User
	shows      map[uint64]*model.Show
	seats      map[uint64]*model.Seat
	bookings   map[uint64]*model.Booking
	nextID     uint64
	failWrites int
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[uint64]*model.User{},
		shows:    map[uint64]*model.Show{},
		seats:    map[uint64]*model.Seat{},
		bookings: map[uint64]*model.Booking{},
	}
}

func (m *memStore) GetUserByID(ctx context.Context, id uint64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetShowByID(ctx context.Context, id uint64) (*model.Show, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shows[id]
	if !ok {
		return nil, repository.ErrShowNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) GetByIDs(ctx context.Context, ids []uint64) ([]model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Seat, 0, len(ids))
	for _, id := range ids {
		if s, ok := m.seats[id]; ok {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) CreateWithSeats(ctx context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites > 0 {
		m.failWrites--
		return repository.ErrVersionConflict
	}
	for _, seat := range b.Seats {
		cur, ok := m.seats[seat.ID]
		if !ok || cur.Version != seat.Version {
			return repository.ErrVersionConflict
		}
	}
	m.nextID++
	b.ID = m.nextID
	b.Version = 1
	for i := range b.Seats {
		cur := m.seats[b.Seats[i].ID]
		cur.Status = b.Seats[i].Status
		cur.Version++
		b.Seats[i].Version = cur.Version
	}
	cp := *b
	cp.Seats = append([]model.Seat(nil), b.Seats...)
	m.bookings[b.ID] = &cp
	return nil
}

func (m *memStore) CancelWithSeats(ctx context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites > 0 {
		m.failWrites--
		return repository.ErrVersionConflict
	}
	stored, ok := m.bookings[b.ID]
	if !ok || stored.Version != b.Version {
		return repository.ErrVersionConflict
	}
	for _, seat := range b.Seats {
		cur, ok := m.seats[seat.ID]
		if !ok || cur.Version != seat.Version {
			return repository.ErrVersionConflict
		}
	}
	stored.Status = model.BookingCancelled
	stored.Version++
	for i := range b.Seats {
		cur := m.seats[b.Seats[i].ID]
		cur.Status = model.SeatAvailable
		cur.Version++
		stored.Seats[i].Status = model.SeatAvailable
		stored.Seats[i].Version = cur.Version
	}
	b.Status = stored.Status
	b.Version = stored.Version
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	cp.Seats = append([]model.Seat(nil), b.Seats...)
	return &cp, nil
}

func (m *memStore) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Booking
	for _, b := range m.bookings {
		if b.UserID == userID {
			cp := *b
			cp.Seats = append([]model.Seat(nil), b.Seats...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// userStoreAdapter and showStoreAdapter let one memStore satisfy both
// GetByID-shaped interfaces.
type userStoreAdapter struct{ *memStore }

func (a userStoreAdapter) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return a.GetUserByID(ctx, id)
}

type showStoreAdapter struct{ *memStore }

func (a showStoreAdapter) GetByID(ctx context.Context, id uint64) (*model.Show, error) {
	return a.GetShowByID(ctx, id)
}

// memLocker takes real per-seat mutexes in sorted id order, the same
// discipline the redis locker enforces with sorted keys.
type memLocker struct {
	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

func newMemLocker() *memLocker { return &memLocker{locks: map[uint64]*sync.Mutex{}} }

func (l *memLocker) WithSeatLocks(ctx context.Context, seatIDs []uint64, fn func() error) error {
	ids := append([]uint64(nil), seatIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var held []*sync.Mutex
	for i, id := range ids {
		if i > 0 && ids[i-1] == id {
			continue
		}
		l.mu.Lock()
		m, ok := l.locks[id]
		if !ok {
			m = &sync.Mutex{}
			l.locks[id] = m
		}
		l.mu.Unlock()
		m.Lock()
		held = append(held, m)
	}
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}()
	return fn()
}

const testTicketPrice = 500.0

// newTestService seeds one user, one upcoming show and four available
// seats (ids 1..4).
func newTestService(t *testing.T, store *memStore) *BookingService {
	t.Helper()
	store.users[7] = &model.User{ID: 7, Name: "Ada", Email: "ada@example.com"}
	store.shows[3] = &model.Show{
		ID:          3,
		MovieID:     1,
		ShowTime:    time.Now().Add(2 * time.Hour),
		TotalSeats:  4,
		TicketPrice: testTicketPrice,
	}
	for i := uint64(1); i <= 4; i++ {
		store.seats[i] = &model.Seat{
			ID:         i,
			ShowID:     3,
			SeatNumber: GenerateSeatNumbers(4)[i-1],
			Status:     model.SeatAvailable,
			Version:    1,
		}
	}
	return NewBookingService(
		userStoreAdapter{store}, showStoreAdapter{store}, store, store,
		newMemLocker(),
		RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond},
		nil, nil,
	)
}

func TestCreateBookingConfirmsAndBooksSeats(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)

	b, err := svc.CreateBooking(context.Background(), 7, 3, []uint64{1, 2, 3})
	require.NoError(t, err)

	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, 3*testTicketPrice, b.TotalAmount)
	assert.Len(t, b.Seats, 3)
	for _, id := range []uint64{1, 2, 3} {
		assert.Equal(t, model.SeatBooked, store.seats[id].Status)
		assert.Equal(t, uint64(2), store.seats[id].Version, "version bumps on write")
	}
	assert.Equal(t, model.SeatAvailable, store.seats[4].Status)
}

func TestReserveSeatsHoldsSeatsAsReserved(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)

	b, err := svc.ReserveSeats(context.Background(), 7, 3, []uint64{2})
	require.NoError(t, err)

	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, model.SeatReserved, store.seats[2].Status)
}

func TestCreateBookingRejectsTakenSeat(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	store.seats[2].Status = model.SeatBooked

	_, err := svc.CreateBooking(context.Background(), 7, 3, []uint64{1, 2})
	require.ErrorIs(t, err, ErrSeatConflict)

	// seat 1 untouched: all-or-none
	assert.Equal(t, model.SeatAvailable, store.seats[1].Status)
	assert.Equal(t, uint64(1), store.seats[1].Version)
}

func TestCreateBookingValidation(t *testing.T) {
	t.Run("unknown user", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(t, store)
		_, err := svc.CreateBooking(context.Background(), 99, 3, []uint64{1})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown show", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(t, store)
		_, err := svc.CreateBooking(context.Background(), 7, 99, []uint64{1})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown seat", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(t, store)
		_, err := svc.CreateBooking(context.Background(), 7, 3, []uint64{1, 99})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("seat from another show", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(t, store)
		store.seats[9] = &model.Seat{ID: 9, ShowID: 8, SeatNumber: "A1", Status: model.SeatAvailable, Version: 1}
		_, err := svc.CreateBooking(context.Background(), 7, 3, []uint64{1, 9})
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("show in the past", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(t, store)
		store.shows[3].ShowTime = time.Now().Add(-time.Hour)
		_, err := svc.CreateBooking(context.Background(), 7, 3, []uint64{1})
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("empty seat set", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(t, store)
		_, err := svc.CreateBooking(context.Background(), 7, 3, nil)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestCancelBookingRestoresSeats(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)

	b, err := svc.CreateBooking(context.Background(), 7, 3, []uint64{1, 2})
	require.NoError(t, err)

	cancelled, err := svc.CancelBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, cancelled.Status)
	assert.Equal(t, model.SeatAvailable, store.seats[1].Status)
	assert.Equal(t, model.SeatAvailable, store.seats[2].Status)
	assert.Equal(t, uint64(3), store.seats[1].Version, "book then cancel is two writes")

	// seats can be booked again by someone else
	store.users[8] = &model.User{ID: 8, Name: "Bob", Email: "bob@example.com"}
	_, err = svc.CreateBooking(context.Background(), 8, 3, []uint64{1, 2})
	assert.NoError(t, err)
}

func TestCancelBookingTwiceIsInvalid(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)

	b, err := svc.CreateBooking(context.Background(), 7, 3, []uint64{1})
	require.NoError(t, err)

	_, err = svc.CancelBooking(context.Background(), b.ID)
	require.NoError(t, err)

	_, err = svc.CancelBooking(context.Background(), b.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCancelUnknownBooking(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	_, err := svc.CancelBooking(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

// Two users race for overlapping seats requested in opposite orders.
// Exactly one booking wins and no goroutine deadlocks, because locks
// are always taken in sorted seat-id order.
func TestConcurrentOverlappingBookingsOneWins(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	store.users[8] = &model.User{ID: 8, Name: "Bob", Email: "bob@example.com"}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	requests := [][]uint64{{1, 2}, {2, 1}}
	users := []uint64{7, 8}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateBooking(context.Background(), users[i], 3, requests[i])
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			require.ErrorIs(t, err, ErrSeatConflict)
			lost++
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)
	assert.Equal(t, model.SeatBooked, store.seats[1].Status)
	assert.Equal(t, model.SeatBooked, store.seats[2].Status)
}

// Partial overlap: one user wants A1+A2 (ids 1,2), the other wants
// A2+B1 (ids 2,3). The contested seat A2 goes to exactly one of them
// and the loser's non-contested seat is never half-booked.
func TestConcurrentPartialOverlapNoPartialBooking(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	store.users[8] = &model.User{ID: 8, Name: "Bob", Email: "bob@example.com"}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	requests := [][]uint64{{1, 2}, {2, 3}}
	users := []uint64{7, 8}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateBooking(context.Background(), users[i], 3, requests[i])
		}(i)
	}
	wg.Wait()

	if errs[0] == nil {
		require.ErrorIs(t, errs[1], ErrSeatConflict)
		assert.Equal(t, model.SeatBooked, store.seats[1].Status)
		assert.Equal(t, model.SeatBooked, store.seats[2].Status)
		assert.Equal(t, model.SeatAvailable, store.seats[3].Status, "loser's other seat stays free")
	} else {
		require.ErrorIs(t, errs[0], ErrSeatConflict)
		require.NoError(t, errs[1])
		assert.Equal(t, model.SeatAvailable, store.seats[1].Status, "loser's other seat stays free")
		assert.Equal(t, model.SeatBooked, store.seats[2].Status)
		assert.Equal(t, model.SeatBooked, store.seats[3].Status)
	}
}

func TestCreateBookingRetriesVersionConflicts(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	store.failWrites = 2 // first two attempts lose the race

	b, err := svc.CreateBooking(context.Background(), 7, 3, []uint64{1})
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
}

func TestCreateBookingExhaustsRetries(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	store.failWrites = 3 // every attempt conflicts

	_, err := svc.CreateBooking(context.Background(), 7, 3, []uint64{1})
	require.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.Equal(t, model.SeatAvailable, store.seats[1].Status)
}

type countingInvalidator struct {
	mu    sync.Mutex
	shows []uint64
}

func (c *countingInvalidator) InvalidateAvailableSeats(ctx context.Context, showID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shows = append(c.shows, showID)
	return nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	confirmed []uint64
	cancelled []uint64
}

func (p *recordingPublisher) PublishBookingConfirmed(ctx context.Context, b *model.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, b.ID)
	return nil
}

func (p *recordingPublisher) PublishBookingCancelled(ctx context.Context, b *model.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, b.ID)
	return nil
}

func TestSideEffectsFireAfterCommit(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	inv := &countingInvalidator{}
	pub := &recordingPublisher{}
	svc.cache = inv
	svc.events = pub

	b, err := svc.CreateBooking(context.Background(), 7, 3, []uint64{1})
	require.NoError(t, err)
	_, err = svc.CancelBooking(context.Background(), b.ID)
	require.NoError(t, err)

	assert.Equal(t, []uint64{3, 3}, inv.shows)
	assert.Equal(t, []uint64{b.ID}, pub.confirmed)
	assert.Equal(t, []uint64{b.ID}, pub.cancelled)
}

func TestSideEffectsSkippedOnFailure(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	pub := &recordingPublisher{}
	svc.events = pub
	store.seats[1].Status = model.SeatBooked

	_, err := svc.CreateBooking(context.Background(), 7, 3, []uint64{1})
	require.Error(t, err)
	assert.Empty(t, pub.confirmed)
}

func TestGetBookingAndList(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)

	b, err := svc.CreateBooking(context.Background(), 7, 3, []uint64{1, 2})
	require.NoError(t, err)

	got, err := svc.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.Len(t, got.Seats, 2)

	_, err = svc.GetBooking(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := svc.ListUserBookings(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}

func TestRetryPolicyStopsOnNonRetryableError(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	boom := errors.New("boom")
	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicyRetriesVersionConflicts(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return repository.ErrVersionConflict
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicyExhaustion(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return repository.ErrVersionConflict
	})
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.Equal(t, 2, calls)
}
