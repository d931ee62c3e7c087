package reservation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mateusmacedo/expresso-van/internal/auth"
	"github.com/mateusmacedo/expresso-van/internal/reservation/application"
	"github.com/mateusmacedo/expresso-van/internal/reservation/domain"
	"github.com/mateusmacedo/expresso-van/internal/reservation/infrastructure"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
	pkgInfra "github.com/mateusmacedo/expresso-van/pkg/infrastructure"
	chiAdapter "github.com/mateusmacedo/expresso-van/pkg/infrastructure/chi/adapter"
)

const jwtSecret = "slice-secret"

type ReservationAPISuite struct {
	suite.Suite
	repo   *infrastructure.InMemoryRepository
	server *httptest.Server
}

func TestReservationAPISuite(t *testing.T) {
	suite.Run(t, new(ReservationAPISuite))
}

func (s *ReservationAPISuite) SetupTest() {
	logger := pkgApp.NopLogger{}
	s.repo = infrastructure.NewInMemoryRepository(logger)

	trip, err := domain.NewTrip("T1", "Downtown - University", time.Date(2026, 6, 1, 7, 30, 0, 0, time.UTC), 1, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.repo.CreateTrip(context.Background(), trip))

	slice := NewReservationSlice(s.repo, nil, application.DefaultRetryPolicy, pkgInfra.NewUUIDGenerator(), logger)
	router := chiAdapter.NewRouter(logger)
	slice.RegisterRoutes(router, auth.Middleware(auth.NewJWTVerifier(jwtSecret), logger))
	s.server = httptest.NewServer(router)
}

func (s *ReservationAPISuite) TearDownTest() {
	s.server.Close()
}

func (s *ReservationAPISuite) do(method, path, user string) *http.Response {
	req, err := http.NewRequest(method, s.server.URL+path, nil)
	s.Require().NoError(err)
	if user != "" {
		token, err := auth.IssueToken(jwtSecret, auth.Identity{UserID: user, Email: user + "@example.com"}, time.Minute)
		s.Require().NoError(err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *ReservationAPISuite) errorKind(resp *http.Response) string {
	var body chiAdapter.ErrorResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.NotEmpty(body.RequestID)
	return body.Error.Kind
}

func (s *ReservationAPISuite) TestTripCatalog() {
	resp := s.do(http.MethodGet, "/v1/trips", "")
	s.Equal(http.StatusOK, resp.StatusCode)
	var trips []domain.Trip
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&trips))
	s.Require().Len(trips, 1)
	s.Equal(1, trips[0].AvailableSeats)

	resp = s.do(http.MethodGet, "/v1/trips/nope", "")
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("trip_not_found", s.errorKind(resp))
}

func (s *ReservationAPISuite) TestReserveRequiresToken() {
	resp := s.do(http.MethodPost, "/v1/trips/T1/reservations", "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *ReservationAPISuite) TestReserveCancelFlow() {
	resp := s.do(http.MethodPost, "/v1/trips/T1/reservations", "ana")
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var created map[string]string
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&created))
	bookingID := created["bookingId"]
	s.Require().NotEmpty(bookingID)

	resp = s.do(http.MethodPost, "/v1/trips/T1/reservations", "bia")
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Equal("no_seats_available", s.errorKind(resp))

	resp = s.do(http.MethodDelete, "/v1/me/bookings/"+bookingID, "bia")
	s.Equal(http.StatusForbidden, resp.StatusCode)
	s.Equal("permission_denied", s.errorKind(resp))

	resp = s.do(http.MethodGet, "/v1/me/summary", "ana")
	s.Equal(http.StatusOK, resp.StatusCode)
	var summary domain.UserSummary
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&summary))
	s.Equal(1, summary.BookingCount)
	s.Require().NotNil(summary.LastBooking)
	s.Equal(bookingID, summary.LastBooking.ID)

	resp = s.do(http.MethodDelete, "/v1/me/bookings/"+bookingID, "ana")
	s.Equal(http.StatusNoContent, resp.StatusCode)

	resp = s.do(http.MethodDelete, "/v1/me/bookings/"+bookingID, "ana")
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("booking_not_found", s.errorKind(resp))

	resp = s.do(http.MethodGet, "/v1/me/bookings", "ana")
	s.Equal(http.StatusOK, resp.StatusCode)
	var bookings []domain.Booking
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&bookings))
	s.Empty(bookings)
}

func (s *ReservationAPISuite) TestLegacyBookingCancel() {
	s.Require().NoError(s.repo.RunInTransaction(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		return tx.InsertBooking(ctx, domain.Booking{ID: "legacy", UserID: "ana", Route: "Old", CreatedAt: time.Now(), Status: domain.BookingConfirmed})
	}))

	resp := s.do(http.MethodDelete, "/v1/me/bookings/legacy", "ana")
	s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)
	s.Equal("not_cancellable", s.errorKind(resp))
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		domain.ErrTransactionConflict: http.StatusServiceUnavailable,
		domain.ErrNotCancellable:      http.StatusUnprocessableEntity,
		context.DeadlineExceeded:      http.StatusGatewayTimeout,
		assert.AnError:                http.StatusInternalServerError,
	}
	for err, want := range cases {
		got, _ := infrastructure.StatusFor(err)
		require.Equal(t, want, got, err.Error())
	}
}
