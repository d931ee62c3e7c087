package tracking

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mateusmacedo/expresso-van/internal/tracking/application"
	"github.com/mateusmacedo/expresso-van/internal/tracking/domain"
	"github.com/mateusmacedo/expresso-van/internal/tracking/infrastructure"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
)

type TrackingSlice struct {
	tracker     *application.Tracker
	httpHandler *infrastructure.TrackingHTTPHandler
	interval    time.Duration
}

func NewTrackingSlice(route string, stops []domain.Stop, interval time.Duration, eventBus application.EventBus, logger pkgApp.AppLogger) (*TrackingSlice, error) {
	tracker, err := application.NewTracker(route, stops, eventBus, logger)
	if err != nil {
		return nil, err
	}
	return &TrackingSlice{
		tracker:     tracker,
		httpHandler: infrastructure.NewTrackingHTTPHandler(tracker),
		interval:    interval,
	}, nil
}

func (s *TrackingSlice) Tracker() *application.Tracker {
	return s.tracker
}

// Start roda o tracker em background até ctx ser cancelado.
func (s *TrackingSlice) Start(ctx context.Context) {
	go s.tracker.Run(ctx, s.interval)
}

func (s *TrackingSlice) RegisterRoutes(router chi.Router) {
	s.httpHandler.RegisterRoutes(router)
}
