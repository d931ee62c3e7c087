package application

import (
	"context"
	"time"

	"github.com/mateusmacedo/expresso-van/internal/reservation/domain"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
	pkgDomain "github.com/mateusmacedo/expresso-van/pkg/domain"
)

type reserveSeatHandler struct {
	coordinator *Coordinator
	eventBus    EventBus
	logger      pkgApp.AppLogger
}

func NewReserveSeatHandler(coordinator *Coordinator, eventBus EventBus, logger pkgApp.AppLogger) pkgApp.CommandHandler[pkgDomain.Command[ReserveSeatData], ReserveSeatData] {
	return &reserveSeatHandler{
		coordinator: coordinator,
		eventBus:    eventBus,
		logger:      logger,
	}
}

func (h *reserveSeatHandler) Handle(ctx context.Context, command pkgDomain.Command[ReserveSeatData]) error {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "context cancelled", ctx.Err(), nil)
		return ctx.Err()
	}

	data := command.Payload()
	booking, err := h.coordinator.Reserve(ctx, data.BookingID, data.TripID, data.UserID)
	if err != nil {
		pkgApp.LogWarn(ctx, h.logger, "reservation failed", err, map[string]interface{}{
			"trip_id": data.TripID,
			"user_id": data.UserID,
		})
		return err
	}

	pkgApp.LogInfo(ctx, h.logger, "seat reserved", map[string]interface{}{
		"booking_id": booking.ID,
		"trip_id":    booking.TripID,
		"user_id":    booking.UserID,
	})

	publish(ctx, h.eventBus, h.logger, NewSeatReservedEvent(domain.NewReservationEventData(booking, time.Now())))
	return nil
}

type cancelBookingHandler struct {
	coordinator *Coordinator
	eventBus    EventBus
	logger      pkgApp.AppLogger
}

func NewCancelBookingHandler(coordinator *Coordinator, eventBus EventBus, logger pkgApp.AppLogger) pkgApp.CommandHandler[pkgDomain.Command[CancelBookingData], CancelBookingData] {
	return &cancelBookingHandler{
		coordinator: coordinator,
		eventBus:    eventBus,
		logger:      logger,
	}
}

func (h *cancelBookingHandler) Handle(ctx context.Context, command pkgDomain.Command[CancelBookingData]) error {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "context cancelled", ctx.Err(), nil)
		return ctx.Err()
	}

	data := command.Payload()
	booking, err := h.coordinator.Cancel(ctx, data.BookingID, data.UserID)
	if err != nil {
		pkgApp.LogWarn(ctx, h.logger, "cancellation failed", err, map[string]interface{}{
			"booking_id": data.BookingID,
			"user_id":    data.UserID,
		})
		return err
	}

	pkgApp.LogInfo(ctx, h.logger, "booking cancelled", map[string]interface{}{
		"booking_id": booking.ID,
		"trip_id":    booking.TripID,
	})

	publish(ctx, h.eventBus, h.logger, NewBookingCancelledEvent(domain.NewReservationEventData(booking, time.Now())))
	return nil
}

// publish nunca falha a operação: a transação já foi confirmada.
func publish(ctx context.Context, bus EventBus, logger pkgApp.AppLogger, event pkgDomain.Event[domain.ReservationEventData]) {
	if bus == nil {
		return
	}
	if err := bus.Publish(ctx, event); err != nil {
		pkgApp.LogError(ctx, logger, "error publishing event", err, map[string]interface{}{
			"event_name": event.EventName(),
			"booking_id": event.Payload().BookingID,
		})
	}
}

type listTripsHandler struct {
	repository domain.TripRepository
	logger     pkgApp.AppLogger
}

func NewListTripsHandler(repo domain.TripRepository, logger pkgApp.AppLogger) pkgApp.QueryHandler[pkgDomain.Query[ListTripsData], ListTripsData, []domain.Trip] {
	return &listTripsHandler{repository: repo, logger: logger}
}

func (h *listTripsHandler) Handle(ctx context.Context, _ pkgDomain.Query[ListTripsData]) ([]domain.Trip, error) {
	trips, err := h.repository.ListTrips(ctx)
	if err != nil {
		pkgApp.LogError(ctx, h.logger, "error listing trips", err, nil)
		return nil, err
	}
	return trips, nil
}

type getTripHandler struct {
	repository domain.TripRepository
}

func NewGetTripHandler(repo domain.TripRepository) pkgApp.QueryHandler[pkgDomain.Query[GetTripData], GetTripData, domain.Trip] {
	return &getTripHandler{repository: repo}
}

func (h *getTripHandler) Handle(ctx context.Context, query pkgDomain.Query[GetTripData]) (domain.Trip, error) {
	return h.repository.GetTrip(ctx, query.Payload().TripID)
}

type listUserBookingsHandler struct {
	repository domain.BookingRepository
	logger     pkgApp.AppLogger
}

func NewListUserBookingsHandler(repo domain.BookingRepository, logger pkgApp.AppLogger) pkgApp.QueryHandler[pkgDomain.Query[UserBookingsData], UserBookingsData, []domain.Booking] {
	return &listUserBookingsHandler{repository: repo, logger: logger}
}

func (h *listUserBookingsHandler) Handle(ctx context.Context, query pkgDomain.Query[UserBookingsData]) ([]domain.Booking, error) {
	userID := query.Payload().UserID
	bookings, err := h.repository.ListBookingsByUser(ctx, userID)
	if err != nil {
		pkgApp.LogError(ctx, h.logger, "error listing bookings", err, map[string]interface{}{"user_id": userID})
		return nil, err
	}
	return bookings, nil
}

type getUserSummaryHandler struct {
	repository domain.BookingRepository
	logger     pkgApp.AppLogger
}

func NewGetUserSummaryHandler(repo domain.BookingRepository, logger pkgApp.AppLogger) pkgApp.QueryHandler[pkgDomain.Query[UserBookingsData], UserBookingsData, domain.UserSummary] {
	return &getUserSummaryHandler{repository: repo, logger: logger}
}

func (h *getUserSummaryHandler) Handle(ctx context.Context, query pkgDomain.Query[UserBookingsData]) (domain.UserSummary, error) {
	userID := query.Payload().UserID

	count, err := h.repository.CountBookingsByUser(ctx, userID)
	if err != nil {
		pkgApp.LogError(ctx, h.logger, "error counting bookings", err, map[string]interface{}{"user_id": userID})
		return domain.UserSummary{}, err
	}

	summary := domain.UserSummary{BookingCount: count}
	if count == 0 {
		return summary, nil
	}

	bookings, err := h.repository.ListBookingsByUser(ctx, userID)
	if err != nil {
		pkgApp.LogError(ctx, h.logger, "error listing bookings", err, map[string]interface{}{"user_id": userID})
		return domain.UserSummary{}, err
	}
	if len(bookings) > 0 {
		last := bookings[0]
		summary.LastBooking = &last
	}
	return summary, nil
}
