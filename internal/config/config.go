package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreMemory    = "memory"
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"

	TransportInProcess = "inprocess"
	TransportGoChannel = "gochannel"
	TransportRedis     = "redis"
	TransportKafka     = "kafka"

	AuthJWT      = "jwt"
	AuthFirebase = "firebase"
)

type App struct {
	AppName         string        `envconfig:"APP_NAME" default:"expresso-van"`
	Addr            string        `envconfig:"APP_ADDR" default:":8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Store
	StoreDriver string `envconfig:"STORE_DRIVER" default:"memory"`
	DatabaseDSN string `envconfig:"DATABASE_DSN"`

	// Firebase
	FirebaseCredentialsFile string `envconfig:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseProjectID       string `envconfig:"FIREBASE_PROJECT_ID"`

	// Eventos
	RedisURL           string   `envconfig:"REDIS_URL"`
	EventTransport     string   `envconfig:"EVENT_TRANSPORT" default:"inprocess"`
	KafkaBrokers       []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaConsumerGroup string   `envconfig:"KAFKA_CONSUMER_GROUP" default:"expresso-van"`
	RedisConsumerGroup string   `envconfig:"REDIS_CONSUMER_GROUP" default:"expresso-van"`
	NotifierEmbedded   bool     `envconfig:"NOTIFIER_EMBEDDED" default:"true"`

	// Auth
	AuthProvider string `envconfig:"AUTH_PROVIDER" default:"jwt"`
	JWTSecret    string `envconfig:"JWT_SECRET"`

	// Reserva
	ReservationMaxAttempts  int           `envconfig:"RESERVATION_MAX_ATTEMPTS" default:"5"`
	ReservationRetryBackoff time.Duration `envconfig:"RESERVATION_RETRY_BACKOFF" default:"20ms"`
	ReminderLead            time.Duration `envconfig:"REMINDER_LEAD" default:"15m"`

	// Rastreamento
	TrackingRoute        string        `envconfig:"TRACKING_ROUTE" default:"Downtown - University"`
	TrackingStops        StopList      `envconfig:"TRACKING_STOPS"`
	TrackingStepInterval time.Duration `envconfig:"TRACKING_STEP_INTERVAL" default:"3s"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load lê o .env (quando existir) e depois o ambiente. Variáveis já
// definidas no ambiente têm precedência sobre o arquivo.
func Load(files ...string) (App, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return App{}, fmt.Errorf("load %s: %w", file, err)
		}
	}

	var c App
	if err := envconfig.Process("", &c); err != nil {
		return App{}, fmt.Errorf("process env: %w", err)
	}
	c.normalize()
	if err := c.Validate(); err != nil {
		return App{}, err
	}
	return c, nil
}

func (c *App) normalize() {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	c.EventTransport = strings.ToLower(strings.TrimSpace(c.EventTransport))
	c.AuthProvider = strings.ToLower(strings.TrimSpace(c.AuthProvider))
}

func (c App) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required for the postgres store"))
		}
	case StoreFirestore:
		if c.FirebaseProjectID == "" {
			errs = append(errs, errors.New("FIREBASE_PROJECT_ID is required for the firestore store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	switch c.EventTransport {
	case TransportInProcess, TransportGoChannel:
	case TransportRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis transport"))
		}
	case TransportKafka:
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required for the kafka transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EVENT_TRANSPORT %q", c.EventTransport))
	}

	switch c.AuthProvider {
	case AuthJWT:
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required for jwt auth"))
		}
	case AuthFirebase:
		if c.FirebaseProjectID == "" && c.FirebaseCredentialsFile == "" {
			errs = append(errs, errors.New("firebase auth needs FIREBASE_PROJECT_ID or FIREBASE_CREDENTIALS_FILE"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider))
	}

	if c.ReservationMaxAttempts < 1 {
		errs = append(errs, errors.New("RESERVATION_MAX_ATTEMPTS must be at least 1"))
	}
	if c.TrackingStepInterval <= 0 {
		errs = append(errs, errors.New("TRACKING_STEP_INTERVAL must be positive"))
	}
	if len(c.TrackingStops) == 1 {
		errs = append(errs, errors.New("TRACKING_STOPS needs at least two stops"))
	}
	for _, stop := range c.TrackingStops {
		if err := stop.validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FirebaseEnabled indica se algum componente precisa do app do firebase.
func (c App) FirebaseEnabled() bool {
	return c.StoreDriver == StoreFirestore || c.AuthProvider == AuthFirebase || c.FirebaseCredentialsFile != "" || c.FirebaseProjectID != ""
}

// RemoteEvents indica se os eventos saem do processo.
func (c App) RemoteEvents() bool {
	return c.EventTransport == TransportRedis || c.EventTransport == TransportKafka
}

// Stop é uma parada configurada em TRACKING_STOPS.
type Stop struct {
	Name      string
	Latitude  float64
	Longitude float64
}

func (s Stop) validate() error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return errors.New("TRACKING_STOPS: stop name is required")
	case s.Latitude < -90 || s.Latitude > 90:
		return fmt.Errorf("TRACKING_STOPS: %q latitude out of range", s.Name)
	case s.Longitude < -180 || s.Longitude > 180:
		return fmt.Errorf("TRACKING_STOPS: %q longitude out of range", s.Name)
	}
	return nil
}

// StopList decodifica "nome|lat|lng;nome|lat|lng".
type StopList []Stop

func (l *StopList) Decode(value string) error {
	var stops StopList
	for _, entry := range strings.Split(value, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, "|")
		if len(parts) != 3 {
			return fmt.Errorf("stop %q: want name|latitude|longitude", entry)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return fmt.Errorf("stop %q latitude: %w", entry, err)
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return fmt.Errorf("stop %q longitude: %w", entry, err)
		}
		stops = append(stops, Stop{Name: strings.TrimSpace(parts[0]), Latitude: lat, Longitude: lng})
	}
	*l = stops
	return nil
}
