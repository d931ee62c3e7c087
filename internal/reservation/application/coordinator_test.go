package application_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mateusmacedo/expresso-van/internal/reservation/application"
	"github.com/mateusmacedo/expresso-van/internal/reservation/domain"
	"github.com/mateusmacedo/expresso-van/internal/reservation/infrastructure"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
)

var fastRetry = application.RetryPolicy{MaxAttempts: 5, Backoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}

// flakyStore devolve conflito nas primeiras failures transações.
type flakyStore struct {
	domain.Store
	failures int32
	calls    atomic.Int32
}

func (s *flakyStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	if s.calls.Add(1) <= s.failures {
		return domain.Conflict(errors.New("injected"))
	}
	return s.Store.RunInTransaction(ctx, fn)
}

type CoordinatorSuite struct {
	suite.Suite
	ctx         context.Context
	repo        *infrastructure.InMemoryRepository
	coordinator *application.Coordinator
	seq         int
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = infrastructure.NewInMemoryRepository(pkgApp.NopLogger{})
	s.coordinator = application.NewCoordinator(s.repo, fastRetry, pkgApp.NopLogger{})
}

func (s *CoordinatorSuite) createTrip(capacity int) domain.Trip {
	s.seq++
	departure := time.Date(2026, 5, 1, 7, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Hour)
	trip, err := domain.NewTrip(fmt.Sprintf("T%d", s.seq), "Downtown - University", departure, capacity, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.repo.CreateTrip(s.ctx, trip))
	return trip
}

func (s *CoordinatorSuite) seats(tripID string) int {
	trip, err := s.repo.GetTrip(s.ctx, tripID)
	s.Require().NoError(err)
	return trip.AvailableSeats
}

func (s *CoordinatorSuite) bookingsFor(tripID string) int {
	count := 0
	for _, user := range []string{"u1", "u2", "u3", "legacy-user"} {
		bookings, err := s.repo.ListBookingsByUser(s.ctx, user)
		s.Require().NoError(err)
		for _, b := range bookings {
			if b.TripID == tripID {
				count++
			}
		}
	}
	return count
}

func (s *CoordinatorSuite) TestCapacityFiveExample() {
	trip := s.createTrip(5)

	var ids []string
	for i := 0; i < 5; i++ {
		booking, err := s.coordinator.Reserve(s.ctx, fmt.Sprintf("b%d", i), trip.ID, "u1")
		s.Require().NoError(err)
		ids = append(ids, booking.ID)
	}

	_, err := s.coordinator.Reserve(s.ctx, "b-extra", trip.ID, "u1")
	s.ErrorIs(err, domain.ErrNoSeatsAvailable)
	_, err = s.repo.GetBooking(s.ctx, "b-extra")
	s.ErrorIs(err, domain.ErrBookingNotFound)

	_, err = s.coordinator.Cancel(s.ctx, ids[0], "u1")
	s.Require().NoError(err)
	s.Equal(1, s.seats(trip.ID))

	_, err = s.coordinator.Reserve(s.ctx, "b-again", trip.ID, "u2")
	s.Require().NoError(err)
	s.Equal(0, s.seats(trip.ID))
	s.Equal(5, s.bookingsFor(trip.ID))
}

func (s *CoordinatorSuite) TestReserveSnapshotsTrip() {
	trip := s.createTrip(2)

	booking, err := s.coordinator.Reserve(s.ctx, "b1", trip.ID, "u1")
	s.Require().NoError(err)
	s.Equal(trip.Route, booking.Route)
	s.Equal(trip.DepartureAt, booking.DepartureAt)
	s.Equal(domain.BookingConfirmed, booking.Status)

	stored, err := s.repo.GetBooking(s.ctx, "b1")
	s.Require().NoError(err)
	s.Equal(booking, stored)
}

func (s *CoordinatorSuite) TestReserveUnknownTrip() {
	_, err := s.coordinator.Reserve(s.ctx, "b1", "missing", "u1")
	s.ErrorIs(err, domain.ErrTripNotFound)
}

func (s *CoordinatorSuite) TestReserveOnFullTripNeverBooks() {
	trip := s.createTrip(0)

	for i := 0; i < 3; i++ {
		_, err := s.coordinator.Reserve(s.ctx, fmt.Sprintf("b%d", i), trip.ID, "u1")
		s.ErrorIs(err, domain.ErrNoSeatsAvailable)
	}
	s.Equal(0, s.seats(trip.ID))
	s.Equal(0, s.bookingsFor(trip.ID))
}

func (s *CoordinatorSuite) TestCancelRules() {
	trip := s.createTrip(3)
	_, err := s.coordinator.Reserve(s.ctx, "b1", trip.ID, "u1")
	s.Require().NoError(err)

	_, err = s.coordinator.Cancel(s.ctx, "b1", "u2")
	s.ErrorIs(err, domain.ErrPermissionDenied)
	s.Equal(2, s.seats(trip.ID))

	_, err = s.coordinator.Cancel(s.ctx, "nope", "u1")
	s.ErrorIs(err, domain.ErrBookingNotFound)

	cancelled, err := s.coordinator.Cancel(s.ctx, "b1", "u1")
	s.Require().NoError(err)
	s.Equal(trip.ID, cancelled.TripID)
	s.Equal(3, s.seats(trip.ID))

	_, err = s.coordinator.Cancel(s.ctx, "b1", "u1")
	s.ErrorIs(err, domain.ErrBookingNotFound)
}

func (s *CoordinatorSuite) TestLegacyBookingIsNotCancellable() {
	legacy := domain.Booking{ID: "legacy", UserID: "legacy-user", Route: "Old route", CreatedAt: time.Now(), Status: domain.BookingConfirmed}
	s.Require().NoError(s.repo.RunInTransaction(s.ctx, func(ctx context.Context, tx domain.Tx) error {
		return tx.InsertBooking(ctx, legacy)
	}))

	_, err := s.coordinator.Cancel(s.ctx, "legacy", "legacy-user")
	s.ErrorIs(err, domain.ErrNotCancellable)

	stored, err := s.repo.GetBooking(s.ctx, "legacy")
	s.Require().NoError(err)
	s.Equal(legacy.ID, stored.ID)
}

func (s *CoordinatorSuite) TestCancelWithMissingTripKeepsBooking() {
	orphan := domain.Booking{ID: "orphan", UserID: "u1", TripID: "gone", CreatedAt: time.Now(), Status: domain.BookingConfirmed}
	s.Require().NoError(s.repo.RunInTransaction(s.ctx, func(ctx context.Context, tx domain.Tx) error {
		return tx.InsertBooking(ctx, orphan)
	}))

	_, err := s.coordinator.Cancel(s.ctx, "orphan", "u1")
	s.ErrorIs(err, domain.ErrTripNotFound)

	_, err = s.repo.GetBooking(s.ctx, "orphan")
	s.NoError(err)
}

func (s *CoordinatorSuite) TestConcurrentReservationsNeverOversell() {
	const capacity, callers = 10, 40
	trip := s.createTrip(capacity)
	coordinator := application.NewCoordinator(s.repo, application.RetryPolicy{
		MaxAttempts: 200,
		Backoff:     time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
	}, pkgApp.NopLogger{})

	var wg sync.WaitGroup
	var successes, full, other atomic.Int32
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := coordinator.Reserve(s.ctx, fmt.Sprintf("c%d", i), trip.ID, "u3")
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, domain.ErrNoSeatsAvailable):
				full.Add(1)
			default:
				other.Add(1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	s.Equal(int32(capacity), successes.Load())
	s.Equal(int32(callers-capacity), full.Load())
	s.Zero(other.Load())
	s.Equal(0, s.seats(trip.ID))
	s.Equal(capacity, s.bookingsFor(trip.ID))
}

func (s *CoordinatorSuite) TestInvariantUnderRandomSequence() {
	const capacity = 4
	trip := s.createTrip(capacity)
	rng := rand.New(rand.NewSource(7))
	users := []string{"u1", "u2"}
	var held []domain.Booking

	for i := 0; i < 200; i++ {
		if len(held) > 0 && rng.Intn(2) == 0 {
			idx := rng.Intn(len(held))
			_, err := s.coordinator.Cancel(s.ctx, held[idx].ID, held[idx].UserID)
			s.Require().NoError(err)
			held = append(held[:idx], held[idx+1:]...)
		} else {
			booking, err := s.coordinator.Reserve(s.ctx, fmt.Sprintf("r%d", i), trip.ID, users[rng.Intn(len(users))])
			if err != nil {
				s.Require().ErrorIs(err, domain.ErrNoSeatsAvailable)
			} else {
				held = append(held, booking)
			}
		}
		s.Equal(capacity, s.seats(trip.ID)+s.bookingsFor(trip.ID))
	}
}

func TestRetryRecoversFromInjectedConflicts(t *testing.T) {
	ctx := context.Background()
	repo := infrastructure.NewInMemoryRepository(pkgApp.NopLogger{})
	trip, err := domain.NewTrip("T1", "A - B", time.Now().Add(time.Hour), 1, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.CreateTrip(ctx, trip))

	store := &flakyStore{Store: repo, failures: int32(fastRetry.MaxAttempts - 1)}
	coordinator := application.NewCoordinator(store, fastRetry, pkgApp.NopLogger{})

	_, err = coordinator.Reserve(ctx, "b1", "T1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int32(fastRetry.MaxAttempts), store.calls.Load())

	_, err = repo.GetBooking(ctx, "b1")
	assert.NoError(t, err)
}

func TestRetryExhaustionSurfacesConflict(t *testing.T) {
	ctx := context.Background()
	repo := infrastructure.NewInMemoryRepository(pkgApp.NopLogger{})
	trip, err := domain.NewTrip("T1", "A - B", time.Now().Add(time.Hour), 1, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.CreateTrip(ctx, trip))

	store := &flakyStore{Store: repo, failures: int32(fastRetry.MaxAttempts)}
	coordinator := application.NewCoordinator(store, fastRetry, pkgApp.NopLogger{})

	_, err = coordinator.Reserve(ctx, "b1", "T1", "u1")
	assert.ErrorIs(t, err, domain.ErrTransactionConflict)
	assert.Equal(t, int32(fastRetry.MaxAttempts), store.calls.Load())

	_, err = repo.GetBooking(ctx, "b1")
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
	stored, err := repo.GetTrip(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.AvailableSeats)
}

func TestNonConflictErrorsAreNotRetried(t *testing.T) {
	ctx := context.Background()
	repo := infrastructure.NewInMemoryRepository(pkgApp.NopLogger{})
	store := &flakyStore{Store: repo}
	coordinator := application.NewCoordinator(store, fastRetry, pkgApp.NopLogger{})

	_, err := coordinator.Reserve(ctx, "b1", "missing", "u1")
	assert.ErrorIs(t, err, domain.ErrTripNotFound)
	assert.Equal(t, int32(1), store.calls.Load())
}
