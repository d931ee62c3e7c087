package domain

import (
	"strings"
	"time"

	"github.com/gosimple/slug"
)

// Trip é uma viagem agendada de van com capacidade fixa.
// AvailableSeats só é alterado pelo Coordinator, dentro de uma transação.
type Trip struct {
	ID             string    `json:"id"`
	Route          string    `json:"route"`
	DepartureAt    time.Time `json:"departureAt"`
	Capacity       int       `json:"capacity"`
	AvailableSeats int       `json:"availableSeats"`
	Version        int64     `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewTrip cria uma viagem com todas as vagas livres. Sem id, o id é o slug
// da rota com o horário de partida.
func NewTrip(id, route string, departureAt time.Time, capacity int, now time.Time) (Trip, error) {
	route = strings.TrimSpace(route)
	if route == "" {
		return Trip{}, NewError(KindInvalidTrip, "route is required", nil)
	}
	if capacity < 0 {
		return Trip{}, NewError(KindInvalidTrip, "capacity must not be negative", nil)
	}
	if departureAt.IsZero() {
		return Trip{}, NewError(KindInvalidTrip, "departure time is required", nil)
	}
	if id == "" {
		id = TripID(route, departureAt)
	}

	return Trip{
		ID:             id,
		Route:          route,
		DepartureAt:    departureAt.UTC(),
		Capacity:       capacity,
		AvailableSeats: capacity,
		CreatedAt:      now.UTC(),
	}, nil
}

func TripID(route string, departureAt time.Time) string {
	return slug.Make(route + " " + departureAt.UTC().Format("2006-01-02 15:04"))
}

// RouteTopic é o tópico de push de quem tem reserva na rota.
func RouteTopic(route string) string {
	return "route-" + slug.Make(route)
}
