package boot

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mateusmacedo/expresso-van/internal/auth"
	"github.com/mateusmacedo/expresso-van/internal/chat"
	"github.com/mateusmacedo/expresso-van/internal/config"
	"github.com/mateusmacedo/expresso-van/internal/notification"
	"github.com/mateusmacedo/expresso-van/internal/reservation"
	reservationApp "github.com/mateusmacedo/expresso-van/internal/reservation/application"
	"github.com/mateusmacedo/expresso-van/internal/tracking"
	trackingDomain "github.com/mateusmacedo/expresso-van/internal/tracking/domain"
	pkgInfra "github.com/mateusmacedo/expresso-van/pkg/infrastructure"
	chiAdapter "github.com/mateusmacedo/expresso-van/pkg/infrastructure/chi/adapter"
)

const demoSeedDays = 7

// API reúne o router HTTP e os componentes que rodam em background.
type API struct {
	Router      *chi.Mux
	Reservation *reservation.ReservationSlice
	Tracking    *tracking.TrackingSlice
}

// NewAPI monta todos os slices sobre a infraestrutura. Com transporte
// remoto e NOTIFIER_EMBEDDED=false as notificações ficam com o cmd/notifier.
func NewAPI(ctx context.Context, infra *Infra) (*API, error) {
	cfg := infra.Config
	logger := infra.Logger
	embedded := cfg.NotifierEmbedded || !cfg.RemoteEvents()

	buses, err := infra.EventBuses(ctx, embedded)
	if err != nil {
		return nil, err
	}

	reservationRepo, err := infra.ReservationRepository(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.StoreDriver == config.StoreMemory {
		trips, err := reservationApp.DemoTrips(time.Now(), demoSeedDays, 15)
		if err != nil {
			return nil, err
		}
		if _, err := reservationApp.SeedTrips(ctx, reservationRepo, trips, logger); err != nil {
			return nil, err
		}
	}

	chatRepo, err := infra.ChatRepository(ctx)
	if err != nil {
		return nil, err
	}
	verifier, err := infra.Verifier(ctx)
	if err != nil {
		return nil, err
	}

	idGenerator := pkgInfra.NewUUIDGenerator()
	policy := reservationApp.RetryPolicy{
		MaxAttempts: cfg.ReservationMaxAttempts,
		Backoff:     cfg.ReservationRetryBackoff,
		MaxBackoff:  reservationApp.DefaultRetryPolicy.MaxBackoff,
	}

	reservationSlice := reservation.NewReservationSlice(reservationRepo, buses.Reservations, policy, idGenerator, logger)
	chatSlice := chat.NewChatSlice(chatRepo, buses.Chats, idGenerator, logger)

	stops := trackingDomain.DefaultStops
	if len(cfg.TrackingStops) > 0 {
		stops = make([]trackingDomain.Stop, 0, len(cfg.TrackingStops))
		for _, stop := range cfg.TrackingStops {
			stops = append(stops, trackingDomain.Stop{Name: stop.Name, Latitude: stop.Latitude, Longitude: stop.Longitude})
		}
	}
	trackingSlice, err := tracking.NewTrackingSlice(cfg.TrackingRoute, stops, cfg.TrackingStepInterval, buses.Tracking, logger)
	if err != nil {
		return nil, err
	}

	notificationSlice, err := NewNotificationSlice(ctx, infra)
	if err != nil {
		return nil, err
	}
	if embedded {
		notificationSlice.Subscribe(buses.Reservations, buses.Chats, buses.Tracking)
	}

	router := chiAdapter.NewRouter(logger)
	authenticate := auth.Middleware(verifier, logger)
	reservationSlice.RegisterRoutes(router, authenticate)
	chatSlice.RegisterRoutes(router, authenticate)
	notificationSlice.RegisterRoutes(router, authenticate)
	trackingSlice.RegisterRoutes(router)

	return &API{
		Router:      router,
		Reservation: reservationSlice,
		Tracking:    trackingSlice,
	}, nil
}

// NewNotificationSlice liga token store, sender e agendador configurados.
func NewNotificationSlice(ctx context.Context, infra *Infra) (*notification.NotificationSlice, error) {
	sender, err := infra.Sender(ctx)
	if err != nil {
		return nil, err
	}
	scheduler, err := infra.ReminderScheduler()
	if err != nil {
		return nil, err
	}
	return notification.NewNotificationSlice(infra.TokenStore(), sender, scheduler, infra.Config.ReminderLead, infra.Logger), nil
}
