package infrastructure

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mateusmacedo/expresso-van/internal/auth"
	"github.com/mateusmacedo/expresso-van/internal/reservation/application"
	"github.com/mateusmacedo/expresso-van/internal/reservation/domain"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
	pkgDomain "github.com/mateusmacedo/expresso-van/pkg/domain"
	chiAdapter "github.com/mateusmacedo/expresso-van/pkg/infrastructure/chi/adapter"
)

const requestTimeout = 10 * time.Second

// Buses agrupa os barramentos usados pelo handler HTTP.
type Buses struct {
	Reserve      pkgApp.CommandBus[pkgDomain.Command[application.ReserveSeatData], application.ReserveSeatData]
	Cancel       pkgApp.CommandBus[pkgDomain.Command[application.CancelBookingData], application.CancelBookingData]
	ListTrips    pkgApp.QueryBus[pkgDomain.Query[application.ListTripsData], application.ListTripsData, []domain.Trip]
	GetTrip      pkgApp.QueryBus[pkgDomain.Query[application.GetTripData], application.GetTripData, domain.Trip]
	UserBookings pkgApp.QueryBus[pkgDomain.Query[application.UserBookingsData], application.UserBookingsData, []domain.Booking]
	UserSummary  pkgApp.QueryBus[pkgDomain.Query[application.UserBookingsData], application.UserBookingsData, domain.UserSummary]
}

type ReservationHTTPHandler struct {
	buses       Buses
	idGenerator pkgDomain.IDGenerator[string]
	logger      pkgApp.AppLogger
}

func NewReservationHTTPHandler(buses Buses, idGenerator pkgDomain.IDGenerator[string], logger pkgApp.AppLogger) *ReservationHTTPHandler {
	return &ReservationHTTPHandler{
		buses:       buses,
		idGenerator: idGenerator,
		logger:      logger,
	}
}

func (h *ReservationHTTPHandler) HandleListTrips(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	trips, err := h.buses.ListTrips.Dispatch(ctx, application.NewListTripsQuery())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	chiAdapter.WriteJSON(w, http.StatusOK, trips)
}

func (h *ReservationHTTPHandler) HandleGetTrip(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	trip, err := h.buses.GetTrip.Dispatch(ctx, application.NewGetTripQuery(application.GetTripData{
		TripID: chi.URLParam(r, "tripID"),
	}))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	chiAdapter.WriteJSON(w, http.StatusOK, trip)
}

func (h *ReservationHTTPHandler) HandleReserve(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	data := application.ReserveSeatData{
		BookingID: h.idGenerator(),
		TripID:    chi.URLParam(r, "tripID"),
		UserID:    identity.UserID,
	}
	if err := h.buses.Reserve.Dispatch(ctx, application.NewReserveSeatCommand(data)); err != nil {
		h.handleError(w, r, err)
		return
	}
	chiAdapter.WriteJSON(w, http.StatusCreated, map[string]string{"bookingId": data.BookingID})
}

func (h *ReservationHTTPHandler) HandleListBookings(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	bookings, err := h.buses.UserBookings.Dispatch(ctx, application.NewListUserBookingsQuery(application.UserBookingsData{
		UserID: identity.UserID,
	}))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	chiAdapter.WriteJSON(w, http.StatusOK, bookings)
}

func (h *ReservationHTTPHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	err := h.buses.Cancel.Dispatch(ctx, application.NewCancelBookingCommand(application.CancelBookingData{
		BookingID: chi.URLParam(r, "bookingID"),
		UserID:    identity.UserID,
	}))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReservationHTTPHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	summary, err := h.buses.UserSummary.Dispatch(ctx, application.NewGetUserSummaryQuery(application.UserBookingsData{
		UserID: identity.UserID,
	}))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	chiAdapter.WriteJSON(w, http.StatusOK, summary)
}

// RegisterRoutes registra as rotas; rotas de usuário exigem o middleware de autenticação.
func (h *ReservationHTTPHandler) RegisterRoutes(router chi.Router, authenticate func(http.Handler) http.Handler) {
	router.Get("/v1/trips", h.HandleListTrips)
	router.Get("/v1/trips/{tripID}", h.HandleGetTrip)

	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Post("/v1/trips/{tripID}/reservations", h.HandleReserve)
		r.Get("/v1/me/bookings", h.HandleListBookings)
		r.Delete("/v1/me/bookings/{bookingID}", h.HandleCancel)
		r.Get("/v1/me/summary", h.HandleSummary)
	})
}

func (h *ReservationHTTPHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := StatusFor(err)
	if status >= http.StatusInternalServerError {
		pkgApp.LogError(r.Context(), h.logger, "reservation request failed", err, map[string]interface{}{
			"path": r.URL.Path,
		})
	}

	message := err.Error()
	var re *domain.ReservationError
	if errors.As(err, &re) {
		message = re.Msg
	} else if status == http.StatusInternalServerError {
		message = "internal error"
	}
	chiAdapter.WriteError(w, r, status, kind, message)
}

// StatusFor mapeia os tipos de erro de reserva para status HTTP.
func StatusFor(err error) (int, string) {
	kind, ok := domain.KindOf(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, "timeout"
		}
		return http.StatusInternalServerError, "internal"
	}

	switch kind {
	case domain.KindTripNotFound, domain.KindBookingNotFound:
		return http.StatusNotFound, string(kind)
	case domain.KindNoSeatsAvailable, domain.KindTripAlreadyExists:
		return http.StatusConflict, string(kind)
	case domain.KindNotCancellable:
		return http.StatusUnprocessableEntity, string(kind)
	case domain.KindPermissionDenied:
		return http.StatusForbidden, string(kind)
	case domain.KindTransactionConflict:
		return http.StatusServiceUnavailable, string(kind)
	case domain.KindInvalidTrip:
		return http.StatusBadRequest, chiAdapter.KindValidation
	default:
		return http.StatusInternalServerError, string(kind)
	}
}
