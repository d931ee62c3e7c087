package infrastructure

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateusmacedo/expresso-van/internal/reservation/domain"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
)

func newEmulatorRepository(t *testing.T) *FirestoreRepository {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), "demo-expresso-van")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewFirestoreRepository(client, pkgApp.NopLogger{})
}

func TestFirestoreReserveAndCancel(t *testing.T) {
	ctx := context.Background()
	repo := newEmulatorRepository(t)

	trip, err := domain.NewTrip(uuid.NewString(), "A - B", time.Now().Add(time.Hour), 1, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.CreateTrip(ctx, trip))
	assert.ErrorIs(t, repo.CreateTrip(ctx, trip), domain.ErrTripAlreadyExists)

	bookingID := uuid.NewString()
	userID := uuid.NewString()
	err = repo.RunInTransaction(ctx, func(ctx context.Context, tx domain.Tx) error {
		current, err := tx.GetTrip(ctx, trip.ID)
		if err != nil {
			return err
		}
		if err := tx.SetAvailableSeats(ctx, current.ID, current.AvailableSeats-1); err != nil {
			return err
		}
		return tx.InsertBooking(ctx, domain.NewBooking(bookingID, userID, current, time.Now()))
	})
	require.NoError(t, err)

	stored, err := repo.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.AvailableSeats)

	count, err := repo.CountBookingsByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = repo.GetBooking(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}
