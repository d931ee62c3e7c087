package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mateusmacedo/expresso-van/internal/auth"
	"github.com/mateusmacedo/expresso-van/internal/reservation/domain"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
	zapAdapter "github.com/mateusmacedo/expresso-van/pkg/infrastructure/zaplogger/adapter"
)

// loadtest dispara reservas concorrentes contra uma viagem e confere que
// nenhuma vaga foi vendida duas vezes.
func main() {
	baseURL := flag.String("url", "http://localhost:8080", "API base URL")
	tripID := flag.String("trip", "", "trip id (default: first trip with free seats)")
	users := flag.Int("users", 50, "concurrent users")
	concurrency := flag.Int("concurrency", 20, "max requests in flight")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "JWT secret used by the API")
	flag.Parse()

	logger, err := zapAdapter.NewZapAppLogger(zapAdapter.Config{AppName: "loadtest", Level: "info"})
	if err != nil {
		panic(err)
	}
	ctx := context.Background()
	client := &http.Client{Timeout: 30 * time.Second}

	if *tripID == "" {
		trip, err := firstOpenTrip(ctx, client, *baseURL)
		if err != nil {
			pkgApp.LogError(ctx, logger, "no trip to test", err, nil)
			os.Exit(1)
		}
		*tripID = trip.ID
	}

	before, err := getTrip(ctx, client, *baseURL, *tripID)
	if err != nil {
		pkgApp.LogError(ctx, logger, "error loading trip", err, map[string]interface{}{"trip_id": *tripID})
		os.Exit(1)
	}

	var created, full, failed atomic.Int64
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(*concurrency)
	started := time.Now()
	for i := 0; i < *users; i++ {
		identity := auth.Identity{UserID: fmt.Sprintf("load-%d", i), Email: fmt.Sprintf("load-%d@example.com", i)}
		group.Go(func() error {
			status, err := reserve(gctx, client, *baseURL, *tripID, *secret, identity)
			switch {
			case err != nil:
				failed.Add(1)
			case status == http.StatusCreated:
				created.Add(1)
			case status == http.StatusConflict:
				full.Add(1)
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	_ = group.Wait()
	elapsed := time.Since(started)

	after, err := getTrip(ctx, client, *baseURL, *tripID)
	if err != nil {
		pkgApp.LogError(ctx, logger, "error loading trip", err, map[string]interface{}{"trip_id": *tripID})
		os.Exit(1)
	}

	fields := map[string]interface{}{
		"trip_id":      *tripID,
		"users":        *users,
		"created":      created.Load(),
		"sold_out":     full.Load(),
		"failed":       failed.Load(),
		"seats_before": before.AvailableSeats,
		"seats_after":  after.AvailableSeats,
		"elapsed":      elapsed.String(),
	}
	if int64(before.AvailableSeats-after.AvailableSeats) != created.Load() || after.AvailableSeats < 0 {
		pkgApp.LogError(ctx, logger, "seat accounting mismatch", nil, fields)
		os.Exit(2)
	}
	pkgApp.LogInfo(ctx, logger, "load test finished", fields)
}

func firstOpenTrip(ctx context.Context, client *http.Client, baseURL string) (domain.Trip, error) {
	var trips []domain.Trip
	if err := getJSON(ctx, client, baseURL+"/v1/trips", &trips); err != nil {
		return domain.Trip{}, err
	}
	for _, trip := range trips {
		if trip.AvailableSeats > 0 {
			return trip, nil
		}
	}
	return domain.Trip{}, fmt.Errorf("no trip with free seats")
}

func getTrip(ctx context.Context, client *http.Client, baseURL, tripID string) (domain.Trip, error) {
	var trip domain.Trip
	err := getJSON(ctx, client, baseURL+"/v1/trips/"+tripID, &trip)
	return trip, err
}

func getJSON(ctx context.Context, client *http.Client, url string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func reserve(ctx context.Context, client *http.Client, baseURL, tripID, secret string, identity auth.Identity) (int, error) {
	token, err := auth.IssueToken(secret, identity, time.Minute)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/trips/"+tripID+"/reservations", nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}
