package notification

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	chatApp "github.com/mateusmacedo/expresso-van/internal/chat/application"
	chatDomain "github.com/mateusmacedo/expresso-van/internal/chat/domain"
	"github.com/mateusmacedo/expresso-van/internal/notification/application"
	"github.com/mateusmacedo/expresso-van/internal/notification/domain"
	"github.com/mateusmacedo/expresso-van/internal/notification/infrastructure"
	reservationApp "github.com/mateusmacedo/expresso-van/internal/reservation/application"
	reservationDomain "github.com/mateusmacedo/expresso-van/internal/reservation/domain"
	trackingApp "github.com/mateusmacedo/expresso-van/internal/tracking/application"
	trackingDomain "github.com/mateusmacedo/expresso-van/internal/tracking/domain"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
	pkgDomain "github.com/mateusmacedo/expresso-van/pkg/domain"
)

// NotificationSlice consome os eventos de reserva, chat e rastreamento e
// expõe o cadastro de tokens de push.
type NotificationSlice struct {
	service     *application.Service
	httpHandler *infrastructure.NotificationHTTPHandler
}

func NewNotificationSlice(
	tokens domain.TokenStore,
	sender domain.Sender,
	scheduler application.ReminderScheduler,
	reminderLead time.Duration,
	logger pkgApp.AppLogger,
) *NotificationSlice {
	service := application.NewService(tokens, sender, scheduler, reminderLead, logger)
	return &NotificationSlice{
		service:     service,
		httpHandler: infrastructure.NewNotificationHTTPHandler(service, logger),
	}
}

func (s *NotificationSlice) Service() *application.Service {
	return s.service
}

// Subscribe registra os handlers nos barramentos; barramentos nil são ignorados.
func (s *NotificationSlice) Subscribe(reservations reservationApp.EventBus, chats chatApp.EventBus, tracking trackingApp.EventBus) {
	if reservations != nil {
		reservations.RegisterHandler(reservationDomain.EventSeatReserved,
			pkgApp.EventHandlerFunc[pkgDomain.Event[reservationDomain.ReservationEventData], reservationDomain.ReservationEventData](s.service.HandleSeatReserved))
		reservations.RegisterHandler(reservationDomain.EventBookingCancelled,
			pkgApp.EventHandlerFunc[pkgDomain.Event[reservationDomain.ReservationEventData], reservationDomain.ReservationEventData](s.service.HandleBookingCancelled))
	}
	if chats != nil {
		chats.RegisterHandler(chatDomain.EventMessageSent,
			pkgApp.EventHandlerFunc[pkgDomain.Event[chatDomain.MessageSentData], chatDomain.MessageSentData](s.service.HandleChatMessageSent))
	}
	if tracking != nil {
		tracking.RegisterHandler(trackingDomain.EventVanArriving,
			pkgApp.EventHandlerFunc[pkgDomain.Event[trackingDomain.VanArrivingData], trackingDomain.VanArrivingData](s.service.HandleVanArriving))
	}
}

func (s *NotificationSlice) RegisterRoutes(router chi.Router, authenticate func(http.Handler) http.Handler) {
	s.httpHandler.RegisterRoutes(router, authenticate)
}
