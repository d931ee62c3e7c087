package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "expresso-van", cfg.AppName)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, TransportInProcess, cfg.EventTransport)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.NotifierEmbedded)
	assert.Equal(t, 5, cfg.ReservationMaxAttempts)
	assert.Equal(t, 20*time.Millisecond, cfg.ReservationRetryBackoff)
	assert.Equal(t, 15*time.Minute, cfg.ReminderLead)
	assert.Equal(t, 3*time.Second, cfg.TrackingStepInterval)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.RemoteEvents())
	assert.False(t, cfg.FirebaseEnabled())
}

func TestLoadReadsDotEnvWithoutOverridingEnvironment(t *testing.T) {
	file := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(file, []byte("JWT_SECRET=from-file\nAPP_ADDR=:9090\nKAFKA_BROKERS=k1:9092,k2:9092\n"), 0o600))
	t.Setenv("APP_ADDR", ":7070")
	// godotenv.Load grava no ambiente do processo.
	t.Setenv("JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))
	t.Setenv("KAFKA_BROKERS", "")
	require.NoError(t, os.Unsetenv("KAFKA_BROKERS"))

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestValidate(t *testing.T) {
	base := App{
		StoreDriver:            StoreMemory,
		EventTransport:         TransportInProcess,
		AuthProvider:           AuthJWT,
		JWTSecret:              "secret",
		ReservationMaxAttempts: 5,
		TrackingStepInterval:   time.Second,
	}
	require.NoError(t, base.Validate())

	cases := map[string]func(c *App){
		"postgres without dsn":      func(c *App) { c.StoreDriver = StorePostgres },
		"firestore without project": func(c *App) { c.StoreDriver = StoreFirestore },
		"unknown store":             func(c *App) { c.StoreDriver = "mongo" },
		"redis without url":         func(c *App) { c.EventTransport = TransportRedis },
		"kafka without brokers":     func(c *App) { c.EventTransport = TransportKafka },
		"unknown transport":         func(c *App) { c.EventTransport = "nats" },
		"jwt without secret":        func(c *App) { c.JWTSecret = "" },
		"firebase auth bare":        func(c *App) { c.AuthProvider = AuthFirebase },
		"zero attempts":             func(c *App) { c.ReservationMaxAttempts = 0 },
		"single stop":               func(c *App) { c.TrackingStops = StopList{{Name: "A"}} },
		"unnamed stop":              func(c *App) { c.TrackingStops = StopList{{Name: "A"}, {Latitude: 1}} },
		"latitude out of range":     func(c *App) { c.TrackingStops = StopList{{Name: "A"}, {Name: "B", Latitude: 91}} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadTrackingStops(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TRACKING_STOPS", "Departure: Downtown|-23.5505|-46.6333; Destination: University|-23.5610|-46.6250")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, StopList{
		{Name: "Departure: Downtown", Latitude: -23.5505, Longitude: -46.6333},
		{Name: "Destination: University", Latitude: -23.5610, Longitude: -46.6250},
	}, cfg.TrackingStops)
}

func TestStopListDecodeRejectsMalformedEntries(t *testing.T) {
	for _, value := range []string{"Downtown", "Downtown|north|-46.6", "Downtown|-23.5|west"} {
		var stops StopList
		assert.Error(t, stops.Decode(value), value)
	}
}
