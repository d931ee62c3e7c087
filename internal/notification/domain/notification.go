package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrEmptyPushToken = errors.New("push token is required")

const (
	TypeReservationConfirmed = "reservation_confirmed"
	TypeTripReminder         = "trip_reminder"
	TypeVanArriving          = "van_arriving"
	TypeTest                 = "test"
)

// Notification é o conteúdo de um push.
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// SendReport resume uma entrega para vários tokens. InvalidTokens são os
// tokens que o provedor não reconhece mais.
type SendReport struct {
	Sent          int      `json:"sent"`
	Failed        int      `json:"failed"`
	InvalidTokens []string `json:"-"`
}

type Sender interface {
	SendToTokens(ctx context.Context, tokens []string, notification Notification) (SendReport, error)
	SendToTopic(ctx context.Context, topic string, notification Notification) error
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) error
	UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) error
}

type TokenStore interface {
	AddToken(ctx context.Context, userID, token string) error
	Tokens(ctx context.Context, userID string) ([]string, error)
	RemoveTokens(ctx context.Context, userID string, tokens ...string) error
}

func ReservationConfirmed(bookingID, route string, departureAt time.Time) Notification {
	return Notification{
		Title: "Reservation confirmed",
		Body:  fmt.Sprintf("Your seat for %s at %s is reserved", route, departureAt.Format("15:04")),
		Data: map[string]string{
			"type":      TypeReservationConfirmed,
			"bookingId": bookingID,
			"route":     route,
		},
	}
}

func TripReminder(bookingID, route string, lead time.Duration) Notification {
	return Notification{
		Title: "Trip reminder",
		Body:  fmt.Sprintf("Your van for %s leaves in %d minutes", route, int(lead.Minutes())),
		Data: map[string]string{
			"type":      TypeTripReminder,
			"bookingId": bookingID,
			"route":     route,
		},
	}
}

func VanArriving(route string, minutes int) Notification {
	return Notification{
		Title: "Van arriving",
		Body:  fmt.Sprintf("Your van for %s arrives in ~%d minutes", route, minutes),
		Data: map[string]string{
			"type":  TypeVanArriving,
			"route": route,
		},
	}
}

func SamplePush() Notification {
	return Notification{
		Title: "Test",
		Body:  "Notifications are working",
		Data:  map[string]string{"type": TypeTest},
	}
}
