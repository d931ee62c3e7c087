package application

import (
	"context"
	"time"
)

// ReminderScheduler agenda uma tarefa única por reserva.
type ReminderScheduler interface {
	// Schedule substitui um lembrete já agendado para a mesma reserva.
	Schedule(bookingID string, at time.Time, task func(ctx context.Context)) error
	Cancel(bookingID string) bool
}
