package infrastructure

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mateusmacedo/expresso-van/internal/reservation/domain"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
)

type bookingEntry struct {
	booking domain.Booking
	version int64
}

// InMemoryRepository usa controle otimista: a transação lê versões,
// acumula as escritas e valida tudo no commit, sob o mutex.
type InMemoryRepository struct {
	mu       sync.RWMutex
	trips    map[string]domain.Trip
	bookings map[string]bookingEntry
	clock    int64
	logger   pkgApp.AppLogger
}

func NewInMemoryRepository(logger pkgApp.AppLogger) *InMemoryRepository {
	return &InMemoryRepository{
		trips:    make(map[string]domain.Trip),
		bookings: make(map[string]bookingEntry),
		logger:   logger,
	}
}

func (r *InMemoryRepository) nextVersion() int64 {
	r.clock++
	return r.clock
}

func (r *InMemoryRepository) CreateTrip(ctx context.Context, trip domain.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.trips[trip.ID]; exists {
		return domain.ErrTripAlreadyExists
	}
	trip.Version = r.nextVersion()
	r.trips[trip.ID] = trip

	pkgApp.LogDebug(ctx, r.logger, "trip created", map[string]interface{}{"trip_id": trip.ID})
	return nil
}

func (r *InMemoryRepository) GetTrip(_ context.Context, tripID string) (domain.Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	trip, ok := r.trips[tripID]
	if !ok {
		return domain.Trip{}, domain.ErrTripNotFound
	}
	return trip, nil
}

func (r *InMemoryRepository) ListTrips(_ context.Context) ([]domain.Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	trips := make([]domain.Trip, 0, len(r.trips))
	for _, trip := range r.trips {
		trips = append(trips, trip)
	}
	sort.Slice(trips, func(i, j int) bool {
		if trips[i].DepartureAt.Equal(trips[j].DepartureAt) {
			return trips[i].ID < trips[j].ID
		}
		return trips[i].DepartureAt.Before(trips[j].DepartureAt)
	})
	return trips, nil
}

func (r *InMemoryRepository) GetBooking(_ context.Context, bookingID string) (domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.bookings[bookingID]
	if !ok {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return entry.booking, nil
}

func (r *InMemoryRepository) ListBookingsByUser(_ context.Context, userID string) ([]domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bookings := make([]domain.Booking, 0)
	for _, entry := range r.bookings {
		if entry.booking.UserID == userID {
			bookings = append(bookings, entry.booking)
		}
	}
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
	return bookings, nil
}

func (r *InMemoryRepository) CountBookingsByUser(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, entry := range r.bookings {
		if entry.booking.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryRepository) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{
		repo:         r,
		tripReads:    make(map[string]int64),
		bookingReads: make(map[string]int64),
		seatWrites:   make(map[string]int),
		inserts:      make(map[string]domain.Booking),
		deletes:      make(map[string]struct{}),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return r.commit(ctx, tx)
}

func (r *InMemoryRepository) commit(ctx context.Context, tx *memoryTx) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, version := range tx.tripReads {
		if r.tripVersion(id) != version {
			return domain.Conflict(fmt.Errorf("trip %s changed", id))
		}
	}
	for id, version := range tx.bookingReads {
		if r.bookingVersion(id) != version {
			return domain.Conflict(fmt.Errorf("booking %s changed", id))
		}
	}
	for id := range tx.inserts {
		if _, exists := r.bookings[id]; exists {
			return fmt.Errorf("booking %s already exists", id)
		}
	}

	for id, seats := range tx.seatWrites {
		trip := r.trips[id]
		trip.AvailableSeats = seats
		trip.Version = r.nextVersion()
		r.trips[id] = trip
	}
	for id := range tx.deletes {
		delete(r.bookings, id)
	}
	for id, booking := range tx.inserts {
		r.bookings[id] = bookingEntry{booking: booking, version: r.nextVersion()}
	}

	pkgApp.LogTrace(ctx, r.logger, "transaction committed", map[string]interface{}{
		"trip_writes": len(tx.seatWrites),
		"inserts":     len(tx.inserts),
		"deletes":     len(tx.deletes),
	})
	return nil
}

// Versão 0 representa um registro inexistente.
func (r *InMemoryRepository) tripVersion(id string) int64 {
	if trip, ok := r.trips[id]; ok {
		return trip.Version
	}
	return 0
}

func (r *InMemoryRepository) bookingVersion(id string) int64 {
	if entry, ok := r.bookings[id]; ok {
		return entry.version
	}
	return 0
}

type memoryTx struct {
	repo         *InMemoryRepository
	tripReads    map[string]int64
	bookingReads map[string]int64
	seatWrites   map[string]int
	inserts      map[string]domain.Booking
	deletes      map[string]struct{}
}

func (tx *memoryTx) GetTrip(_ context.Context, tripID string) (domain.Trip, error) {
	tx.repo.mu.RLock()
	trip, ok := tx.repo.trips[tripID]
	tx.repo.mu.RUnlock()

	if !ok {
		tx.tripReads[tripID] = 0
		return domain.Trip{}, domain.ErrTripNotFound
	}
	if _, seen := tx.tripReads[tripID]; !seen {
		tx.tripReads[tripID] = trip.Version
	}
	if seats, written := tx.seatWrites[tripID]; written {
		trip.AvailableSeats = seats
	}
	return trip, nil
}

func (tx *memoryTx) SetAvailableSeats(ctx context.Context, tripID string, seats int) error {
	if seats < 0 {
		return fmt.Errorf("trip %s: available seats cannot be negative", tripID)
	}
	if _, seen := tx.tripReads[tripID]; !seen {
		if _, err := tx.GetTrip(ctx, tripID); err != nil {
			return err
		}
	}
	tx.seatWrites[tripID] = seats
	return nil
}

func (tx *memoryTx) GetBooking(_ context.Context, bookingID string) (domain.Booking, error) {
	if _, deleted := tx.deletes[bookingID]; deleted {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	if booking, inserted := tx.inserts[bookingID]; inserted {
		return booking, nil
	}

	tx.repo.mu.RLock()
	entry, ok := tx.repo.bookings[bookingID]
	tx.repo.mu.RUnlock()

	if !ok {
		tx.bookingReads[bookingID] = 0
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	if _, seen := tx.bookingReads[bookingID]; !seen {
		tx.bookingReads[bookingID] = entry.version
	}
	return entry.booking, nil
}

func (tx *memoryTx) InsertBooking(_ context.Context, booking domain.Booking) error {
	if _, exists := tx.inserts[booking.ID]; exists {
		return fmt.Errorf("booking %s already exists", booking.ID)
	}
	tx.inserts[booking.ID] = booking
	return nil
}

func (tx *memoryTx) DeleteBooking(ctx context.Context, bookingID string) error {
	if _, inserted := tx.inserts[bookingID]; inserted {
		delete(tx.inserts, bookingID)
		return nil
	}
	if _, seen := tx.bookingReads[bookingID]; !seen {
		if _, err := tx.GetBooking(ctx, bookingID); err != nil {
			return err
		}
	}
	tx.deletes[bookingID] = struct{}{}
	return nil
}
