package application

import (
	pkgDomain "github.com/mateusmacedo/expresso-van/pkg/domain"
)

const (
	ReserveSeatCommandName   = "ReserveSeat"
	CancelBookingCommandName = "CancelBooking"
)

// ReserveSeatData carrega o id da reserva gerado por quem despacha, para
// que novas tentativas reutilizem o mesmo id.
type ReserveSeatData struct {
	BookingID string `json:"bookingId"`
	TripID    string `json:"tripId"`
	UserID    string `json:"userId"`
}

type CancelBookingData struct {
	BookingID string `json:"bookingId"`
	UserID    string `json:"userId"`
}

func NewReserveSeatCommand(data ReserveSeatData) pkgDomain.Command[ReserveSeatData] {
	return pkgDomain.NewCommand(ReserveSeatCommandName, data)
}

func NewCancelBookingCommand(data CancelBookingData) pkgDomain.Command[CancelBookingData] {
	return pkgDomain.NewCommand(CancelBookingCommandName, data)
}
