package application

import (
	"context"
	"strings"
	"time"

	chatDomain "github.com/mateusmacedo/expresso-van/internal/chat/domain"
	"github.com/mateusmacedo/expresso-van/internal/notification/domain"
	reservationDomain "github.com/mateusmacedo/expresso-van/internal/reservation/domain"
	trackingDomain "github.com/mateusmacedo/expresso-van/internal/tracking/domain"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
	pkgDomain "github.com/mateusmacedo/expresso-van/pkg/domain"
)

const DefaultReminderLead = 15 * time.Minute

type Service struct {
	tokens       domain.TokenStore
	sender       domain.Sender
	scheduler    ReminderScheduler
	reminderLead time.Duration
	now          func() time.Time
	logger       pkgApp.AppLogger
}

func NewService(tokens domain.TokenStore, sender domain.Sender, scheduler ReminderScheduler, reminderLead time.Duration, logger pkgApp.AppLogger) *Service {
	if reminderLead <= 0 {
		reminderLead = DefaultReminderLead
	}
	return &Service{
		tokens:       tokens,
		sender:       sender,
		scheduler:    scheduler,
		reminderLead: reminderLead,
		now:          time.Now,
		logger:       logger,
	}
}

func (s *Service) RegisterToken(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrEmptyPushToken
	}
	if err := s.tokens.AddToken(ctx, userID, token); err != nil {
		pkgApp.LogError(ctx, s.logger, "error saving push token", err, map[string]interface{}{"user_id": userID})
		return err
	}
	pkgApp.LogInfo(ctx, s.logger, "push token registered", map[string]interface{}{"user_id": userID})
	return nil
}

// NotifyUser envia para todos os tokens do usuário e remove os inválidos.
func (s *Service) NotifyUser(ctx context.Context, userID string, notification domain.Notification) (domain.SendReport, error) {
	tokens, err := s.tokens.Tokens(ctx, userID)
	if err != nil {
		return domain.SendReport{}, err
	}
	if len(tokens) == 0 {
		pkgApp.LogDebug(ctx, s.logger, "user has no push tokens", map[string]interface{}{"user_id": userID})
		return domain.SendReport{}, nil
	}

	report, err := s.sender.SendToTokens(ctx, tokens, notification)
	if err != nil {
		return report, err
	}
	if len(report.InvalidTokens) > 0 {
		if err := s.tokens.RemoveTokens(ctx, userID, report.InvalidTokens...); err != nil {
			pkgApp.LogWarn(ctx, s.logger, "error pruning push tokens", err, map[string]interface{}{"user_id": userID})
		}
	}

	pkgApp.LogInfo(ctx, s.logger, "notification sent", map[string]interface{}{
		"user_id": userID,
		"type":    notification.Data["type"],
		"sent":    report.Sent,
		"failed":  report.Failed,
		"pruned":  len(report.InvalidTokens),
	})
	return report, nil
}

func (s *Service) SendTest(ctx context.Context, userID string) (domain.SendReport, error) {
	return s.NotifyUser(ctx, userID, domain.SamplePush())
}

// ReminderAt devolve quando o lembrete de uma partida deve disparar.
func (s *Service) ReminderAt(departureAt time.Time) time.Time {
	return departureAt.Add(-s.reminderLead)
}

// HandleSeatReserved agenda o lembrete antes de enviar a confirmação: uma
// falha no agendamento devolve o evento sem que o push já tenha saído.
func (s *Service) HandleSeatReserved(ctx context.Context, event pkgDomain.Event[reservationDomain.ReservationEventData]) error {
	data := event.Payload()
	fields := map[string]interface{}{"booking_id": data.BookingID, "user_id": data.UserID}

	if err := s.scheduleReminder(ctx, data); err != nil {
		pkgApp.LogError(ctx, s.logger, "error scheduling trip reminder", err, fields)
		return err
	}

	if _, err := s.NotifyUser(ctx, data.UserID, domain.ReservationConfirmed(data.BookingID, data.Route, data.DepartureAt)); err != nil {
		pkgApp.LogError(ctx, s.logger, "error sending reservation confirmation", err, fields)
	}
	s.updateRouteSubscription(ctx, data.UserID, data.Route, true)
	return nil
}

func (s *Service) scheduleReminder(ctx context.Context, data reservationDomain.ReservationEventData) error {
	at := s.ReminderAt(data.DepartureAt)
	if !at.After(s.now()) {
		pkgApp.LogDebug(ctx, s.logger, "reminder skipped, departure too close", map[string]interface{}{"booking_id": data.BookingID})
		return nil
	}
	userID, bookingID, route, lead := data.UserID, data.BookingID, data.Route, s.reminderLead
	err := s.scheduler.Schedule(bookingID, at, func(ctx context.Context) {
		if _, err := s.NotifyUser(ctx, userID, domain.TripReminder(bookingID, route, lead)); err != nil {
			pkgApp.LogError(ctx, s.logger, "error sending trip reminder", err, map[string]interface{}{"booking_id": bookingID})
		}
	})
	if err != nil {
		return err
	}
	pkgApp.LogInfo(ctx, s.logger, "trip reminder scheduled", map[string]interface{}{
		"booking_id": bookingID,
		"at":         at.UTC().Format(time.RFC3339),
	})
	return nil
}

func (s *Service) HandleBookingCancelled(ctx context.Context, event pkgDomain.Event[reservationDomain.ReservationEventData]) error {
	data := event.Payload()
	if s.scheduler.Cancel(data.BookingID) {
		pkgApp.LogInfo(ctx, s.logger, "trip reminder cancelled", map[string]interface{}{"booking_id": data.BookingID})
	}
	s.updateRouteSubscription(ctx, data.UserID, data.Route, false)
	return nil
}

func (s *Service) HandleVanArriving(ctx context.Context, event pkgDomain.Event[trackingDomain.VanArrivingData]) error {
	data := event.Payload()
	topic := reservationDomain.RouteTopic(data.Route)
	if err := s.sender.SendToTopic(ctx, topic, domain.VanArriving(data.Route, data.MinutesAway)); err != nil {
		pkgApp.LogError(ctx, s.logger, "error sending van arriving notification", err, map[string]interface{}{"topic": topic})
		return err
	}
	return nil
}

func (s *Service) HandleChatMessageSent(ctx context.Context, event pkgDomain.Event[chatDomain.MessageSentData]) error {
	data := event.Payload()
	pkgApp.LogInfo(ctx, s.logger, "chat message received", map[string]interface{}{
		"chat_id":        data.ChatID,
		"sender_id":      data.SenderID,
		"counterpart_id": data.CounterpartID,
	})
	return nil
}

func (s *Service) updateRouteSubscription(ctx context.Context, userID, route string, subscribe bool) {
	tokens, err := s.tokens.Tokens(ctx, userID)
	if err != nil || len(tokens) == 0 {
		return
	}

	topic := reservationDomain.RouteTopic(route)
	if subscribe {
		err = s.sender.SubscribeToTopic(ctx, tokens, topic)
	} else {
		err = s.sender.UnsubscribeFromTopic(ctx, tokens, topic)
	}
	if err != nil {
		pkgApp.LogWarn(ctx, s.logger, "error updating route subscription", err, map[string]interface{}{
			"user_id":   userID,
			"topic":     topic,
			"subscribe": subscribe,
		})
	}
}
