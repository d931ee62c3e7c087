package application

import (
	"context"
	"errors"
	"time"

	"github.com/eapache/go-resiliency/retrier"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mateusmacedo/expresso-van/internal/reservation/domain"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
)

const tracerName = "github.com/mateusmacedo/expresso-van/internal/reservation"

// RetryPolicy controla as novas tentativas após TransactionConflict.
// MaxAttempts conta a primeira tentativa.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	MaxBackoff  time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 5,
	Backoff:     20 * time.Millisecond,
	MaxBackoff:  time.Second,
}

func (p RetryPolicy) backoff() []time.Duration {
	if p.MaxAttempts <= 1 {
		return nil
	}
	durations := retrier.ExponentialBackoff(p.MaxAttempts-1, p.Backoff)
	for i, d := range durations {
		if p.MaxBackoff > 0 && (d > p.MaxBackoff || d <= 0) {
			durations[i] = p.MaxBackoff
		}
	}
	return durations
}

// conflictClassifier só repete conflitos de transação.
type conflictClassifier struct{}

func (conflictClassifier) Classify(err error) retrier.Action {
	switch {
	case err == nil:
		return retrier.Succeed
	case errors.Is(err, domain.ErrTransactionConflict):
		return retrier.Retry
	default:
		return retrier.Fail
	}
}

// Coordinator move vagas entre Trip e Booking de forma atômica.
type Coordinator struct {
	store  domain.Store
	policy RetryPolicy
	now    func() time.Time
	tracer trace.Tracer
	logger pkgApp.AppLogger
}

func NewCoordinator(store domain.Store, policy RetryPolicy, logger pkgApp.AppLogger) *Coordinator {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Coordinator{
		store:  store,
		policy: policy,
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
		logger: logger,
	}
}

// Reserve ocupa uma vaga da viagem e cria a reserva bookingID para userID.
func (c *Coordinator) Reserve(ctx context.Context, bookingID, tripID, userID string) (domain.Booking, error) {
	ctx, span := c.tracer.Start(ctx, "reservation.reserve", trace.WithAttributes(
		attribute.String("reservation.trip_id", tripID),
		attribute.String("reservation.booking_id", bookingID),
	))
	defer span.End()

	var booking domain.Booking
	err := c.run(ctx, span, func(ctx context.Context) error {
		return c.store.RunInTransaction(ctx, func(ctx context.Context, tx domain.Tx) error {
			trip, err := tx.GetTrip(ctx, tripID)
			if err != nil {
				return err
			}
			if trip.AvailableSeats <= 0 {
				return domain.ErrNoSeatsAvailable
			}
			if err := tx.SetAvailableSeats(ctx, trip.ID, trip.AvailableSeats-1); err != nil {
				return err
			}

			booking = domain.NewBooking(bookingID, userID, trip, c.now())
			return tx.InsertBooking(ctx, booking)
		})
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return booking, nil
}

// Cancel devolve a vaga e apaga a reserva. A reserva precisa pertencer a
// userID e referenciar uma viagem existente.
func (c *Coordinator) Cancel(ctx context.Context, bookingID, userID string) (domain.Booking, error) {
	ctx, span := c.tracer.Start(ctx, "reservation.cancel", trace.WithAttributes(
		attribute.String("reservation.booking_id", bookingID),
	))
	defer span.End()

	var booking domain.Booking
	err := c.run(ctx, span, func(ctx context.Context) error {
		return c.store.RunInTransaction(ctx, func(ctx context.Context, tx domain.Tx) error {
			var err error
			booking, err = tx.GetBooking(ctx, bookingID)
			if err != nil {
				return err
			}
			if booking.UserID != userID {
				return domain.ErrPermissionDenied
			}
			if !booking.Cancellable() {
				return domain.ErrNotCancellable
			}

			trip, err := tx.GetTrip(ctx, booking.TripID)
			if err != nil {
				return err
			}
			if err := tx.SetAvailableSeats(ctx, trip.ID, trip.AvailableSeats+1); err != nil {
				return err
			}
			return tx.DeleteBooking(ctx, booking.ID)
		})
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return booking, nil
}

func (c *Coordinator) run(ctx context.Context, span trace.Span, work func(ctx context.Context) error) error {
	r := retrier.New(c.policy.backoff(), conflictClassifier{})
	r.SetJitter(0.25)

	attempts := 0
	err := r.RunCtx(ctx, func(ctx context.Context) error {
		attempts++
		span.AddEvent("attempt", trace.WithAttributes(attribute.Int("reservation.attempt", attempts)))
		err := work(ctx)
		if errors.Is(err, domain.ErrTransactionConflict) {
			pkgApp.LogDebug(ctx, c.logger, "transaction conflict", map[string]interface{}{
				"attempt": attempts,
			})
		}
		return err
	})

	span.SetAttributes(attribute.Int("reservation.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, domain.ErrTransactionConflict) {
			pkgApp.LogWarn(ctx, c.logger, "retries exhausted", err, map[string]interface{}{
				"attempts": attempts,
			})
		}
	}
	return err
}
