package infrastructure

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
)

// GocronScheduler agenda lembretes como jobs únicos do gocron, indexados
// pelo id da reserva.
type GocronScheduler struct {
	scheduler gocron.Scheduler
	logger    pkgApp.AppLogger

	mu   sync.Mutex
	jobs map[string]uuid.UUID
}

func NewGocronScheduler(logger pkgApp.AppLogger) (*GocronScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	scheduler.Start()
	return &GocronScheduler{
		scheduler: scheduler,
		logger:    logger,
		jobs:      make(map[string]uuid.UUID),
	}, nil
}

func (s *GocronScheduler) Schedule(bookingID string, at time.Time, task func(ctx context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(bookingID)

	var jobID uuid.UUID
	job, err := s.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(at)),
		gocron.NewTask(func() {
			s.mu.Lock()
			if s.jobs[bookingID] == jobID {
				delete(s.jobs, bookingID)
			}
			s.mu.Unlock()
			task(context.Background())
		}),
		gocron.WithName("reminder:"+bookingID),
	)
	if err != nil {
		return fmt.Errorf("schedule reminder %s: %w", bookingID, err)
	}
	jobID = job.ID()
	s.jobs[bookingID] = jobID
	return nil
}

func (s *GocronScheduler) Cancel(bookingID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(bookingID)
}

// NextRun devolve o próximo disparo do lembrete da reserva.
func (s *GocronScheduler) NextRun(bookingID string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.jobs[bookingID]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	for _, job := range s.scheduler.Jobs() {
		if job.ID() == id {
			next, err := job.NextRun()
			return next, err == nil
		}
	}
	return time.Time{}, false
}

func (s *GocronScheduler) Shutdown() error {
	return s.scheduler.Shutdown()
}

func (s *GocronScheduler) removeLocked(bookingID string) bool {
	id, ok := s.jobs[bookingID]
	if !ok {
		return false
	}
	delete(s.jobs, bookingID)
	if err := s.scheduler.RemoveJob(id); err != nil {
		pkgApp.LogDebug(context.Background(), s.logger, "reminder job already gone", map[string]interface{}{
			"booking_id": bookingID,
			"error":      err.Error(),
		})
	}
	return true
}
