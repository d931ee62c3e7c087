package domain

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindTripNotFound        Kind = "trip_not_found"
	KindBookingNotFound     Kind = "booking_not_found"
	KindNoSeatsAvailable    Kind = "no_seats_available"
	KindNotCancellable      Kind = "not_cancellable"
	KindTransactionConflict Kind = "transaction_conflict"
	KindPermissionDenied    Kind = "permission_denied"
	KindTripAlreadyExists   Kind = "trip_already_exists"
	KindInvalidTrip         Kind = "invalid_trip"
)

// ReservationError carrega o tipo da falha. errors.Is compara apenas o Kind,
// então os sentinelas abaixo casam com qualquer erro do mesmo tipo.
type ReservationError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *ReservationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *ReservationError) Unwrap() error {
	return e.Err
}

func (e *ReservationError) Is(target error) bool {
	t, ok := target.(*ReservationError)
	return ok && t.Kind == e.Kind
}

func NewError(kind Kind, msg string, cause error) *ReservationError {
	return &ReservationError{Kind: kind, Msg: msg, Err: cause}
}

var (
	ErrTripNotFound        = NewError(KindTripNotFound, "trip not found", nil)
	ErrBookingNotFound     = NewError(KindBookingNotFound, "booking not found", nil)
	ErrNoSeatsAvailable    = NewError(KindNoSeatsAvailable, "no seats available", nil)
	ErrNotCancellable      = NewError(KindNotCancellable, "booking has no trip reference and must be cancelled by support", nil)
	ErrTransactionConflict = NewError(KindTransactionConflict, "concurrent update, try again", nil)
	ErrPermissionDenied    = NewError(KindPermissionDenied, "booking belongs to another user", nil)
	ErrTripAlreadyExists   = NewError(KindTripAlreadyExists, "trip already exists", nil)
)

// Conflict embrulha um erro do banco que indica escrita concorrente.
func Conflict(cause error) error {
	return NewError(KindTransactionConflict, ErrTransactionConflict.Msg, cause)
}

func KindOf(err error) (Kind, bool) {
	var re *ReservationError
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return "", false
}
