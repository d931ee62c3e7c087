package application

import (
	"context"
	"sync"
	"time"

	"github.com/mateusmacedo/expresso-van/internal/tracking/domain"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
	pkgDomain "github.com/mateusmacedo/expresso-van/pkg/domain"
)

type EventBus = pkgApp.EventBus[pkgDomain.Event[domain.VanArrivingData], domain.VanArrivingData]

// Tracker simula a van percorrendo as paradas em ciclo.
type Tracker struct {
	route    string
	stops    []domain.Stop
	eventBus EventBus
	now      func() time.Time
	logger   pkgApp.AppLogger

	mu      sync.RWMutex
	current int
	updated time.Time
}

func NewTracker(route string, stops []domain.Stop, eventBus EventBus, logger pkgApp.AppLogger) (*Tracker, error) {
	if len(stops) < 2 {
		return nil, domain.ErrInvalidRoute
	}
	return &Tracker{
		route:    route,
		stops:    append([]domain.Stop(nil), stops...),
		eventBus: eventBus,
		now:      time.Now,
		logger:   logger,
		updated:  time.Now().UTC(),
	}, nil
}

func (t *Tracker) Position() domain.Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.positionLocked()
}

func (t *Tracker) positionLocked() domain.Position {
	position := domain.Position{
		Route:      t.route,
		Stop:       t.stops[t.current],
		StopIndex:  t.current,
		TotalStops: len(t.stops),
		UpdatedAt:  t.updated,
	}
	if t.current < len(t.stops)-1 {
		next := t.stops[t.current+1]
		position.NextStop = &next
	}
	return position
}

// Advance move a van uma parada e publica VanArriving ao chegar na penúltima.
func (t *Tracker) Advance(ctx context.Context) domain.Position {
	t.mu.Lock()
	t.current = (t.current + 1) % len(t.stops)
	t.updated = t.now().UTC()
	position := t.positionLocked()
	t.mu.Unlock()

	pkgApp.LogDebug(ctx, t.logger, "van advanced", map[string]interface{}{
		"route": t.route,
		"stop":  position.Stop.Name,
	})

	if position.StopIndex == len(t.stops)-2 {
		t.publishArriving(ctx, position)
	}
	return position
}

// Run avança a cada interval até o contexto ser cancelado.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pkgApp.LogInfo(ctx, t.logger, "tracker started", map[string]interface{}{
		"route":    t.route,
		"interval": interval.String(),
	})
	for {
		select {
		case <-ctx.Done():
			pkgApp.LogInfo(ctx, t.logger, "tracker stopped", map[string]interface{}{"route": t.route})
			return
		case <-ticker.C:
			t.Advance(ctx)
		}
	}
}

func (t *Tracker) publishArriving(ctx context.Context, position domain.Position) {
	if t.eventBus == nil {
		return
	}
	event := pkgDomain.NewEvent(domain.EventVanArriving, domain.VanArrivingData{
		Route:       t.route,
		MinutesAway: domain.ArrivalMinutes,
		OccurredAt:  position.UpdatedAt,
	})
	if err := t.eventBus.Publish(ctx, event); err != nil {
		pkgApp.LogError(ctx, t.logger, "error publishing event", err, map[string]interface{}{
			"event_name": domain.EventVanArriving,
			"route":      t.route,
		})
	}
}
