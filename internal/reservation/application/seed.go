package application

import (
	"context"
	"errors"
	"time"

	"github.com/mateusmacedo/expresso-van/internal/reservation/domain"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
)

// DemoRoutes e DemoDepartures formam o catálogo de demonstração.
var (
	DemoRoutes = []string{
		"Downtown - University",
		"Central Station - Tech Park",
		"Airport - Downtown",
	}
	DemoDepartures = []time.Duration{
		7 * time.Hour,
		12*time.Hour + 30*time.Minute,
		18 * time.Hour,
	}
)

// DemoTrips gera as viagens dos próximos days dias a partir de now (UTC).
func DemoTrips(now time.Time, days, capacity int) ([]domain.Trip, error) {
	midnight := now.UTC().Truncate(24 * time.Hour)
	trips := make([]domain.Trip, 0, days*len(DemoRoutes)*len(DemoDepartures))
	for day := 0; day < days; day++ {
		date := midnight.AddDate(0, 0, day)
		for _, route := range DemoRoutes {
			for _, offset := range DemoDepartures {
				departure := date.Add(offset)
				if !departure.After(now) {
					continue
				}
				trip, err := domain.NewTrip("", route, departure, capacity, now)
				if err != nil {
					return nil, err
				}
				trips = append(trips, trip)
			}
		}
	}
	return trips, nil
}

// SeedTrips grava as viagens que ainda não existem e devolve quantas criou.
func SeedTrips(ctx context.Context, repo domain.TripRepository, trips []domain.Trip, logger pkgApp.AppLogger) (int, error) {
	created := 0
	for _, trip := range trips {
		err := repo.CreateTrip(ctx, trip)
		if errors.Is(err, domain.ErrTripAlreadyExists) {
			continue
		}
		if err != nil {
			pkgApp.LogError(ctx, logger, "error seeding trip", err, map[string]interface{}{"trip_id": trip.ID})
			return created, err
		}
		created++
	}
	pkgApp.LogInfo(ctx, logger, "trips seeded", map[string]interface{}{
		"created": created,
		"skipped": len(trips) - created,
	})
	return created, nil
}
