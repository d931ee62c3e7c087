package domain

import "time"

type BookingStatus string

const BookingConfirmed BookingStatus = "confirmed"

// Booking é a vaga de um usuário em uma viagem. Route e DepartureAt são uma
// cópia da viagem no momento da reserva e nunca são sincronizados.
type Booking struct {
	ID          string        `json:"id"`
	UserID      string        `json:"userId"`
	TripID      string        `json:"tripId,omitempty"`
	Route       string        `json:"route"`
	DepartureAt time.Time     `json:"departureAt"`
	CreatedAt   time.Time     `json:"createdAt"`
	Status      BookingStatus `json:"status"`
}

// Cancellable é falso para reservas antigas, sem referência à viagem.
func (b Booking) Cancellable() bool {
	return b.TripID != ""
}

func NewBooking(id, userID string, trip Trip, now time.Time) Booking {
	return Booking{
		ID:          id,
		UserID:      userID,
		TripID:      trip.ID,
		Route:       trip.Route,
		DepartureAt: trip.DepartureAt,
		CreatedAt:   now.UTC(),
		Status:      BookingConfirmed,
	}
}

// UserSummary alimenta a tela de perfil.
type UserSummary struct {
	BookingCount int      `json:"bookingCount"`
	LastBooking  *Booking `json:"lastBooking,omitempty"`
}
