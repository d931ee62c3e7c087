package infrastructure

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mateusmacedo/expresso-van/internal/reservation/domain"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
)

const (
	tripsCollection    = "trips"
	bookingsCollection = "bookings"
)

type tripDocument struct {
	Route          string    `firestore:"route"`
	DepartureAt    time.Time `firestore:"departureAt"`
	Capacity       int64     `firestore:"capacity"`
	AvailableSeats int64     `firestore:"availableSeats"`
	CreatedAt      time.Time `firestore:"createdAt"`
}

func (d tripDocument) toDomain(id string, updateTime time.Time) domain.Trip {
	return domain.Trip{
		ID:             id,
		Route:          d.Route,
		DepartureAt:    d.DepartureAt.UTC(),
		Capacity:       int(d.Capacity),
		AvailableSeats: int(d.AvailableSeats),
		Version:        updateTime.UnixNano(),
		CreatedAt:      d.CreatedAt.UTC(),
	}
}

type bookingDocument struct {
	UserID      string    `firestore:"userId"`
	TripID      string    `firestore:"tripId"`
	Route       string    `firestore:"route"`
	DepartureAt time.Time `firestore:"departureAt"`
	CreatedAt   time.Time `firestore:"createdAt"`
	Status      string    `firestore:"status"`
}

func (d bookingDocument) toDomain(id string) domain.Booking {
	return domain.Booking{
		ID:          id,
		UserID:      d.UserID,
		TripID:      d.TripID,
		Route:       d.Route,
		DepartureAt: d.DepartureAt.UTC(),
		CreatedAt:   d.CreatedAt.UTC(),
		Status:      domain.BookingStatus(d.Status),
	}
}

// FirestoreRepository usa as coleções trips e bookings. As transações rodam
// com uma única tentativa; quem repete é o Coordinator.
type FirestoreRepository struct {
	client *firestore.Client
	logger pkgApp.AppLogger
}

func NewFirestoreRepository(client *firestore.Client, logger pkgApp.AppLogger) *FirestoreRepository {
	return &FirestoreRepository{client: client, logger: logger}
}

func (r *FirestoreRepository) trips() *firestore.CollectionRef {
	return r.client.Collection(tripsCollection)
}

func (r *FirestoreRepository) bookings() *firestore.CollectionRef {
	return r.client.Collection(bookingsCollection)
}

func (r *FirestoreRepository) CreateTrip(ctx context.Context, trip domain.Trip) error {
	_, err := r.trips().Doc(trip.ID).Create(ctx, tripDocument{
		Route:          trip.Route,
		DepartureAt:    trip.DepartureAt,
		Capacity:       int64(trip.Capacity),
		AvailableSeats: int64(trip.AvailableSeats),
		CreatedAt:      trip.CreatedAt,
	})
	if status.Code(err) == codes.AlreadyExists {
		return domain.ErrTripAlreadyExists
	}
	return err
}

func (r *FirestoreRepository) GetTrip(ctx context.Context, tripID string) (domain.Trip, error) {
	snap, err := r.trips().Doc(tripID).Get(ctx)
	return decodeTrip(snap, err)
}

func (r *FirestoreRepository) ListTrips(ctx context.Context) ([]domain.Trip, error) {
	iter := r.trips().OrderBy("departureAt", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	trips := make([]domain.Trip, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			pkgApp.LogError(ctx, r.logger, "failed to list trips", err, nil)
			return nil, err
		}
		trip, err := decodeTrip(snap, nil)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, nil
}

func (r *FirestoreRepository) GetBooking(ctx context.Context, bookingID string) (domain.Booking, error) {
	snap, err := r.bookings().Doc(bookingID).Get(ctx)
	return decodeBooking(snap, err)
}

func (r *FirestoreRepository) ListBookingsByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	snaps, err := r.bookings().
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx).
		GetAll()
	if err != nil {
		pkgApp.LogError(ctx, r.logger, "failed to list bookings", err, map[string]interface{}{"user_id": userID})
		return nil, err
	}

	bookings := make([]domain.Booking, 0, len(snaps))
	for _, snap := range snaps {
		booking, err := decodeBooking(snap, nil)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

func (r *FirestoreRepository) CountBookingsByUser(ctx context.Context, userID string) (int, error) {
	q := r.bookings().Where("userId", "==", userID)
	result, err := q.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return 0, err
	}

	value, ok := result["total"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("unexpected count result %T", result["total"])
	}
	return int(value.GetIntegerValue()), nil
}

func (r *FirestoreRepository) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{repo: r, tx: ftx})
	}, firestore.MaxAttempts(1))

	if status.Code(err) == codes.Aborted {
		return domain.Conflict(err)
	}
	return err
}

// firestoreTx exige que todas as leituras aconteçam antes das escritas,
// como o próprio firestore.
type firestoreTx struct {
	repo *FirestoreRepository
	tx   *firestore.Transaction
}

func (t *firestoreTx) GetTrip(_ context.Context, tripID string) (domain.Trip, error) {
	snap, err := t.tx.Get(t.repo.trips().Doc(tripID))
	return decodeTrip(snap, err)
}

func (t *firestoreTx) SetAvailableSeats(_ context.Context, tripID string, seats int) error {
	if seats < 0 {
		return fmt.Errorf("trip %s: available seats cannot be negative", tripID)
	}
	return t.tx.Update(t.repo.trips().Doc(tripID), []firestore.Update{
		{Path: "availableSeats", Value: int64(seats)},
	})
}

func (t *firestoreTx) GetBooking(_ context.Context, bookingID string) (domain.Booking, error) {
	snap, err := t.tx.Get(t.repo.bookings().Doc(bookingID))
	return decodeBooking(snap, err)
}

func (t *firestoreTx) InsertBooking(_ context.Context, booking domain.Booking) error {
	return t.tx.Create(t.repo.bookings().Doc(booking.ID), bookingDocument{
		UserID:      booking.UserID,
		TripID:      booking.TripID,
		Route:       booking.Route,
		DepartureAt: booking.DepartureAt,
		CreatedAt:   booking.CreatedAt,
		Status:      string(booking.Status),
	})
}

func (t *firestoreTx) DeleteBooking(_ context.Context, bookingID string) error {
	return t.tx.Delete(t.repo.bookings().Doc(bookingID), firestore.Exists)
}

func decodeTrip(snap *firestore.DocumentSnapshot, err error) (domain.Trip, error) {
	if status.Code(err) == codes.NotFound {
		return domain.Trip{}, domain.ErrTripNotFound
	}
	if err != nil {
		return domain.Trip{}, err
	}
	var doc tripDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Trip{}, fmt.Errorf("decode trip %s: %w", snap.Ref.ID, err)
	}
	return doc.toDomain(snap.Ref.ID, snap.UpdateTime), nil
}

func decodeBooking(snap *firestore.DocumentSnapshot, err error) (domain.Booking, error) {
	if status.Code(err) == codes.NotFound {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	if err != nil {
		return domain.Booking{}, err
	}
	var doc bookingDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Booking{}, fmt.Errorf("decode booking %s: %w", snap.Ref.ID, err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}
