package domain

import "time"

const (
	EventSeatReserved     = "SeatReserved"
	EventBookingCancelled = "BookingCancelled"
)

// ReservationEventData é o payload de SeatReserved e BookingCancelled.
type ReservationEventData struct {
	BookingID   string    `json:"bookingId"`
	TripID      string    `json:"tripId"`
	UserID      string    `json:"userId"`
	Route       string    `json:"route"`
	DepartureAt time.Time `json:"departureAt"`
	OccurredAt  time.Time `json:"occurredAt"`
}

func NewReservationEventData(booking Booking, occurredAt time.Time) ReservationEventData {
	return ReservationEventData{
		BookingID:   booking.ID,
		TripID:      booking.TripID,
		UserID:      booking.UserID,
		Route:       booking.Route,
		DepartureAt: booking.DepartureAt,
		OccurredAt:  occurredAt.UTC(),
	}
}
