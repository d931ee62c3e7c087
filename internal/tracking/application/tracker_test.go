package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateusmacedo/expresso-van/internal/tracking/application"
	"github.com/mateusmacedo/expresso-van/internal/tracking/domain"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
	pkgDomain "github.com/mateusmacedo/expresso-van/pkg/domain"
	pkgInfra "github.com/mateusmacedo/expresso-van/pkg/infrastructure"
)

type arrivals struct {
	mu     sync.Mutex
	events []domain.VanArrivingData
}

func (a *arrivals) Handle(_ context.Context, event pkgDomain.Event[domain.VanArrivingData]) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event.Payload())
	return nil
}

func (a *arrivals) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events)
}

func newTracker(t *testing.T) (*application.Tracker, *arrivals) {
	t.Helper()
	logger := pkgApp.NopLogger{}
	bus := pkgInfra.NewSimpleEventBus[pkgDomain.Event[domain.VanArrivingData], domain.VanArrivingData](logger)
	recorder := &arrivals{}
	bus.RegisterHandler(domain.EventVanArriving, recorder)

	tracker, err := application.NewTracker("Downtown - University", domain.DefaultStops, bus, logger)
	require.NoError(t, err)
	return tracker, recorder
}

func TestTrackerRejectsShortRoute(t *testing.T) {
	_, err := application.NewTracker("A - B", []domain.Stop{{Name: "A"}}, nil, pkgApp.NopLogger{})
	assert.ErrorIs(t, err, domain.ErrInvalidRoute)
}

func TestTrackerPublishesAtPenultimateStop(t *testing.T) {
	ctx := context.Background()
	tracker, recorder := newTracker(t)

	start := tracker.Position()
	assert.Equal(t, "Departure: Downtown", start.Stop.Name)
	assert.Equal(t, len(domain.DefaultStops), start.TotalStops)

	penultimate := len(domain.DefaultStops) - 2
	for i := 1; i < penultimate; i++ {
		tracker.Advance(ctx)
		assert.Zero(t, recorder.count(), "stop %d", i)
	}

	position := tracker.Advance(ctx)
	assert.Equal(t, penultimate, position.StopIndex)
	require.NotNil(t, position.NextStop)
	assert.Equal(t, "Destination: University", position.NextStop.Name)
	require.Equal(t, 1, recorder.count())
	assert.Equal(t, "Downtown - University", recorder.events[0].Route)
	assert.Equal(t, domain.ArrivalMinutes, recorder.events[0].MinutesAway)

	assert.Equal(t, "Destination: University", tracker.Advance(ctx).Stop.Name)
	assert.Equal(t, 0, tracker.Advance(ctx).StopIndex)
	assert.Equal(t, 1, recorder.count())
}

func TestTrackerDestinationHasNoNextStop(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTracker(t)

	var position domain.Position
	for i := 0; i < len(domain.DefaultStops)-1; i++ {
		position = tracker.Advance(ctx)
	}

	last := domain.DefaultStops[len(domain.DefaultStops)-1]
	assert.Equal(t, last, position.Stop)
	assert.Equal(t, -23.5610, position.Stop.Latitude)
	assert.Equal(t, -46.6250, position.Stop.Longitude)
	assert.Nil(t, position.NextStop)

	restarted := tracker.Advance(ctx)
	assert.Equal(t, domain.DefaultStops[0], restarted.Stop)
	require.NotNil(t, restarted.NextStop)
	assert.Equal(t, domain.DefaultStops[1], *restarted.NextStop)
}

func TestTrackerRunStopsWithContext(t *testing.T) {
	tracker, _ := newTracker(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		tracker.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return tracker.Position().StopIndex > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tracker did not stop")
	}
}
