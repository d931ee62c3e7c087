package application

import (
	"github.com/mateusmacedo/expresso-van/internal/reservation/domain"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
	pkgDomain "github.com/mateusmacedo/expresso-van/pkg/domain"
)

// EventBus é o barramento dos eventos de reserva.
type EventBus = pkgApp.EventBus[pkgDomain.Event[domain.ReservationEventData], domain.ReservationEventData]

func NewSeatReservedEvent(data domain.ReservationEventData) pkgDomain.Event[domain.ReservationEventData] {
	return pkgDomain.NewEvent(domain.EventSeatReserved, data)
}

func NewBookingCancelledEvent(data domain.ReservationEventData) pkgDomain.Event[domain.ReservationEventData] {
	return pkgDomain.NewEvent(domain.EventBookingCancelled, data)
}
