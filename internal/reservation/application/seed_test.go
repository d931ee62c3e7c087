package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateusmacedo/expresso-van/internal/reservation/application"
	"github.com/mateusmacedo/expresso-van/internal/reservation/infrastructure"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
)

func TestDemoTripsSkipsPastDepartures(t *testing.T) {
	now := time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)

	trips, err := application.DemoTrips(now, 2, 12)
	require.NoError(t, err)

	// Hoje só sobra a partida das 18h; amanhã todas as três.
	assert.Len(t, trips, len(application.DemoRoutes)*4)
	for _, trip := range trips {
		assert.True(t, trip.DepartureAt.After(now))
		assert.Equal(t, 12, trip.AvailableSeats)
		assert.NotEmpty(t, trip.ID)
	}
}

func TestSeedTripsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	logger := pkgApp.NopLogger{}
	repo := infrastructure.NewInMemoryRepository(logger)
	trips, err := application.DemoTrips(time.Now(), 1, 10)
	require.NoError(t, err)

	created, err := application.SeedTrips(ctx, repo, trips, logger)
	require.NoError(t, err)
	assert.Equal(t, len(trips), created)

	created, err = application.SeedTrips(ctx, repo, trips, logger)
	require.NoError(t, err)
	assert.Zero(t, created)

	stored, err := repo.ListTrips(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, len(trips))
}
