package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/mateusmacedo/expresso-van/internal/reservation/domain"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
)

type tripRecord struct {
	ID             string    `gorm:"primaryKey"`
	Route          string    `gorm:"not null"`
	DepartureAt    time.Time `gorm:"index;not null"`
	Capacity       int       `gorm:"not null"`
	AvailableSeats int       `gorm:"not null;check:available_seats >= 0"`
	Version        int64     `gorm:"not null"`
	CreatedAt      time.Time
}

func (tripRecord) TableName() string { return "trips" }

func (r tripRecord) toDomain() domain.Trip {
	return domain.Trip{
		ID:             r.ID,
		Route:          r.Route,
		DepartureAt:    r.DepartureAt.UTC(),
		Capacity:       r.Capacity,
		AvailableSeats: r.AvailableSeats,
		Version:        r.Version,
		CreatedAt:      r.CreatedAt.UTC(),
	}
}

type bookingRecord struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"index;not null"`
	TripID      string `gorm:"index"`
	Route       string
	DepartureAt time.Time
	CreatedAt   time.Time
	Status      string
}

func (bookingRecord) TableName() string { return "bookings" }

func (r bookingRecord) toDomain() domain.Booking {
	return domain.Booking{
		ID:          r.ID,
		UserID:      r.UserID,
		TripID:      r.TripID,
		Route:       r.Route,
		DepartureAt: r.DepartureAt.UTC(),
		CreatedAt:   r.CreatedAt.UTC(),
		Status:      domain.BookingStatus(r.Status),
	}
}

func newBookingRecord(b domain.Booking) bookingRecord {
	return bookingRecord{
		ID:          b.ID,
		UserID:      b.UserID,
		TripID:      b.TripID,
		Route:       b.Route,
		DepartureAt: b.DepartureAt,
		CreatedAt:   b.CreatedAt,
		Status:      string(b.Status),
	}
}

// GormRepository guarda viagens e reservas no postgres. A escrita do
// contador de vagas é um compare-and-set na coluna version.
type GormRepository struct {
	db     *gorm.DB
	logger pkgApp.AppLogger
}

func NewGormRepository(db *gorm.DB, logger pkgApp.AppLogger) *GormRepository {
	return &GormRepository{db: db, logger: logger}
}

func (r *GormRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&tripRecord{}, &bookingRecord{}); err != nil {
		return fmt.Errorf("migrate reservation tables: %w", err)
	}
	return nil
}

func (r *GormRepository) CreateTrip(ctx context.Context, trip domain.Trip) error {
	record := tripRecord{
		ID:             trip.ID,
		Route:          trip.Route,
		DepartureAt:    trip.DepartureAt,
		Capacity:       trip.Capacity,
		AvailableSeats: trip.AvailableSeats,
		Version:        1,
		CreatedAt:      trip.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrTripAlreadyExists
		}
		pkgApp.LogError(ctx, r.logger, "failed to create trip", err, map[string]interface{}{"trip_id": trip.ID})
		return err
	}
	return nil
}

func (r *GormRepository) GetTrip(ctx context.Context, tripID string) (domain.Trip, error) {
	return getTrip(r.db.WithContext(ctx), tripID)
}

func (r *GormRepository) ListTrips(ctx context.Context) ([]domain.Trip, error) {
	var records []tripRecord
	if err := r.db.WithContext(ctx).Order("departure_at asc").Order("id asc").Find(&records).Error; err != nil {
		pkgApp.LogError(ctx, r.logger, "failed to list trips", err, nil)
		return nil, err
	}

	trips := make([]domain.Trip, 0, len(records))
	for _, rec := range records {
		trips = append(trips, rec.toDomain())
	}
	return trips, nil
}

func (r *GormRepository) GetBooking(ctx context.Context, bookingID string) (domain.Booking, error) {
	return getBooking(r.db.WithContext(ctx), bookingID)
}

func (r *GormRepository) ListBookingsByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	var records []bookingRecord
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&records).Error; err != nil {
		pkgApp.LogError(ctx, r.logger, "failed to list bookings", err, map[string]interface{}{"user_id": userID})
		return nil, err
	}

	bookings := make([]domain.Booking, 0, len(records))
	for _, rec := range records {
		bookings = append(bookings, rec.toDomain())
	}
	return bookings, nil
}

func (r *GormRepository) CountBookingsByUser(ctx context.Context, userID string) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&bookingRecord{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *GormRepository) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(ctx, &gormTx{db: db, versions: make(map[string]int64)})
	})
	return translateError(err)
}

type gormTx struct {
	db       *gorm.DB
	versions map[string]int64
}

func (tx *gormTx) GetTrip(_ context.Context, tripID string) (domain.Trip, error) {
	trip, err := getTrip(tx.db, tripID)
	if err != nil {
		return domain.Trip{}, err
	}
	if _, seen := tx.versions[tripID]; !seen {
		tx.versions[tripID] = trip.Version
	}
	return trip, nil
}

func (tx *gormTx) SetAvailableSeats(ctx context.Context, tripID string, seats int) error {
	version, seen := tx.versions[tripID]
	if !seen {
		trip, err := tx.GetTrip(ctx, tripID)
		if err != nil {
			return err
		}
		version = trip.Version
	}

	res := tx.db.Model(&tripRecord{}).
		Where("id = ? AND version = ?", tripID, version).
		Updates(map[string]interface{}{
			"available_seats": seats,
			"version":         version + 1,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Conflict(fmt.Errorf("trip %s version %d is stale", tripID, version))
	}
	tx.versions[tripID] = version + 1
	return nil
}

func (tx *gormTx) GetBooking(_ context.Context, bookingID string) (domain.Booking, error) {
	return getBooking(tx.db, bookingID)
}

func (tx *gormTx) InsertBooking(_ context.Context, booking domain.Booking) error {
	record := newBookingRecord(booking)
	if err := tx.db.Create(&record).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (tx *gormTx) DeleteBooking(_ context.Context, bookingID string) error {
	res := tx.db.Where("id = ?", bookingID).Delete(&bookingRecord{})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Conflict(fmt.Errorf("booking %s already deleted", bookingID))
	}
	return nil
}

func getTrip(db *gorm.DB, tripID string) (domain.Trip, error) {
	var record tripRecord
	if err := db.Where("id = ?", tripID).Take(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Trip{}, domain.ErrTripNotFound
		}
		return domain.Trip{}, translateError(err)
	}
	return record.toDomain(), nil
}

func getBooking(db *gorm.DB, bookingID string) (domain.Booking, error) {
	var record bookingRecord
	if err := db.Where("id = ?", bookingID).Take(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, translateError(err)
	}
	return record.toDomain(), nil
}

// translateError converte falhas de serialização e deadlock do postgres em
// conflito de transação.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return domain.Conflict(err)
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
