package reservation

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mateusmacedo/expresso-van/internal/reservation/application"
	"github.com/mateusmacedo/expresso-van/internal/reservation/domain"
	"github.com/mateusmacedo/expresso-van/internal/reservation/infrastructure"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
	pkgDomain "github.com/mateusmacedo/expresso-van/pkg/domain"
	pkgInfra "github.com/mateusmacedo/expresso-van/pkg/infrastructure"
)

// ReservationSlice liga catálogo, histórico e coordenador às rotas HTTP.
type ReservationSlice struct {
	httpHandler *infrastructure.ReservationHTTPHandler
	coordinator *application.Coordinator
}

func NewReservationSlice(
	repository domain.Repository,
	eventBus application.EventBus,
	policy application.RetryPolicy,
	idGenerator pkgDomain.IDGenerator[string],
	logger pkgApp.AppLogger,
) *ReservationSlice {
	coordinator := application.NewCoordinator(repository, policy, logger)

	buses := infrastructure.Buses{
		Reserve:      pkgInfra.NewSimpleCommandBus[pkgDomain.Command[application.ReserveSeatData], application.ReserveSeatData](logger),
		Cancel:       pkgInfra.NewSimpleCommandBus[pkgDomain.Command[application.CancelBookingData], application.CancelBookingData](logger),
		ListTrips:    pkgInfra.NewSimpleQueryBus[pkgDomain.Query[application.ListTripsData], application.ListTripsData, []domain.Trip](logger),
		GetTrip:      pkgInfra.NewSimpleQueryBus[pkgDomain.Query[application.GetTripData], application.GetTripData, domain.Trip](logger),
		UserBookings: pkgInfra.NewSimpleQueryBus[pkgDomain.Query[application.UserBookingsData], application.UserBookingsData, []domain.Booking](logger),
		UserSummary:  pkgInfra.NewSimpleQueryBus[pkgDomain.Query[application.UserBookingsData], application.UserBookingsData, domain.UserSummary](logger),
	}

	buses.Reserve.RegisterHandler(application.ReserveSeatCommandName, application.NewReserveSeatHandler(coordinator, eventBus, logger))
	buses.Cancel.RegisterHandler(application.CancelBookingCommandName, application.NewCancelBookingHandler(coordinator, eventBus, logger))
	buses.ListTrips.RegisterHandler(application.ListTripsQueryName, application.NewListTripsHandler(repository, logger))
	buses.GetTrip.RegisterHandler(application.GetTripQueryName, application.NewGetTripHandler(repository))
	buses.UserBookings.RegisterHandler(application.ListUserBookingsQueryName, application.NewListUserBookingsHandler(repository, logger))
	buses.UserSummary.RegisterHandler(application.GetUserSummaryQueryName, application.NewGetUserSummaryHandler(repository, logger))

	return &ReservationSlice{
		httpHandler: infrastructure.NewReservationHTTPHandler(buses, idGenerator, logger),
		coordinator: coordinator,
	}
}

func (s *ReservationSlice) Coordinator() *application.Coordinator {
	return s.coordinator
}

func (s *ReservationSlice) RegisterRoutes(router chi.Router, authenticate func(http.Handler) http.Handler) {
	s.httpHandler.RegisterRoutes(router, authenticate)
}
