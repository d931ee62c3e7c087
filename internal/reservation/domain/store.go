package domain

import "context"

// Tx é a visão de uma transação do Store. Leituras acontecem antes das
// escritas. Um commit que encontra escrita concorrente em algo lido
// falha com ErrTransactionConflict.
type Tx interface {
	GetTrip(ctx context.Context, tripID string) (Trip, error)
	SetAvailableSeats(ctx context.Context, tripID string, seats int) error
	GetBooking(ctx context.Context, bookingID string) (Booking, error)
	InsertBooking(ctx context.Context, booking Booking) error
	DeleteBooking(ctx context.Context, bookingID string) error
}

// Store executa fn de forma atômica: ou todas as escritas de fn são
// aplicadas ou nenhuma. Um erro de fn desfaz a transação e é devolvido.
type Store interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type TripRepository interface {
	CreateTrip(ctx context.Context, trip Trip) error
	GetTrip(ctx context.Context, tripID string) (Trip, error)
	// ListTrips ordena por DepartureAt crescente.
	ListTrips(ctx context.Context) ([]Trip, error)
}

type BookingRepository interface {
	GetBooking(ctx context.Context, bookingID string) (Booking, error)
	// ListBookingsByUser ordena por CreatedAt decrescente.
	ListBookingsByUser(ctx context.Context, userID string) ([]Booking, error)
	CountBookingsByUser(ctx context.Context, userID string) (int, error)
}

// Repository reúne tudo que um backend de armazenamento oferece à reserva.
type Repository interface {
	Store
	TripRepository
	BookingRepository
}
