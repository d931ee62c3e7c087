package domain

import (
	"errors"
	"time"
)

const EventVanArriving = "VanArriving"

// ArrivalMinutes é o aviso enviado quando a van chega à penúltima parada.
const ArrivalMinutes = 5

var ErrInvalidRoute = errors.New("route needs at least two stops")

// Stop é um ponto do trajeto com a coordenada usada no mapa.
type Stop struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DefaultStops é o trajeto usado quando nenhum outro é configurado.
var DefaultStops = []Stop{
	{Name: "Departure: Downtown", Latitude: -23.5505, Longitude: -46.6333},
	{Name: "Central Avenue", Latitude: -23.5520, Longitude: -46.6320},
	{Name: "City Hall Square", Latitude: -23.5540, Longitude: -46.6300},
	{Name: "Hospital Stop", Latitude: -23.5560, Longitude: -46.6280},
	{Name: "Campus Gate", Latitude: -23.5580, Longitude: -46.6260},
	{Name: "Destination: University", Latitude: -23.5610, Longitude: -46.6250},
}

// Position é a posição atual da van no trajeto. NextStop fica vazio no destino.
type Position struct {
	Route      string    `json:"route"`
	Stop       Stop      `json:"stop"`
	StopIndex  int       `json:"stopIndex"`
	TotalStops int       `json:"totalStops"`
	NextStop   *Stop     `json:"nextStop,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type VanArrivingData struct {
	Route       string    `json:"route"`
	MinutesAway int       `json:"minutesAway"`
	OccurredAt  time.Time `json:"occurredAt"`
}
