package boot

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/mateusmacedo/expresso-van/internal/auth"
	chatApp "github.com/mateusmacedo/expresso-van/internal/chat/application"
	chatDomain "github.com/mateusmacedo/expresso-van/internal/chat/domain"
	chatInfra "github.com/mateusmacedo/expresso-van/internal/chat/infrastructure"
	"github.com/mateusmacedo/expresso-van/internal/config"
	notificationApp "github.com/mateusmacedo/expresso-van/internal/notification/application"
	notificationDomain "github.com/mateusmacedo/expresso-van/internal/notification/domain"
	notificationInfra "github.com/mateusmacedo/expresso-van/internal/notification/infrastructure"
	reservationApp "github.com/mateusmacedo/expresso-van/internal/reservation/application"
	reservationDomain "github.com/mateusmacedo/expresso-van/internal/reservation/domain"
	reservationInfra "github.com/mateusmacedo/expresso-van/internal/reservation/infrastructure"
	trackingApp "github.com/mateusmacedo/expresso-van/internal/tracking/application"
	trackingDomain "github.com/mateusmacedo/expresso-van/internal/tracking/domain"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
	pkgDomain "github.com/mateusmacedo/expresso-van/pkg/domain"
	pkgInfra "github.com/mateusmacedo/expresso-van/pkg/infrastructure"
	channelsAdapter "github.com/mateusmacedo/expresso-van/pkg/infrastructure/channels/adapter"
	firebaseAdapter "github.com/mateusmacedo/expresso-van/pkg/infrastructure/firebase/adapter"
	gormAdapter "github.com/mateusmacedo/expresso-van/pkg/infrastructure/gorm/adapter"
	kafkaAdapter "github.com/mateusmacedo/expresso-van/pkg/infrastructure/kafka/adapter"
	redisAdapter "github.com/mateusmacedo/expresso-van/pkg/infrastructure/redis/adapter"
	watermillAdapter "github.com/mateusmacedo/expresso-van/pkg/infrastructure/watermill/adapter"
	zapAdapter "github.com/mateusmacedo/expresso-van/pkg/infrastructure/zaplogger/adapter"
)

// Infra guarda as conexões compartilhadas entre os slices e as fecha na
// ordem inversa de abertura.
type Infra struct {
	Config config.App
	Logger pkgApp.AppLogger

	firebaseApp *firebase.App
	firestore   *firestore.Client
	db          *gorm.DB
	redis       redis.UniversalClient

	closers []func() error
}

// EventBuses são os barramentos tipados de cada slice.
type EventBuses struct {
	Reservations reservationApp.EventBus
	Chats        chatApp.EventBus
	Tracking     trackingApp.EventBus
}

func NewLogger(cfg config.App) (pkgApp.AppLogger, error) {
	return zapAdapter.NewZapAppLogger(zapAdapter.Config{AppName: cfg.AppName, Level: cfg.LogLevel})
}

// New abre apenas as conexões exigidas pela configuração.
func New(ctx context.Context, cfg config.App, logger pkgApp.AppLogger) (*Infra, error) {
	infra := &Infra{Config: cfg, Logger: logger}

	if cfg.FirebaseEnabled() {
		app, err := firebaseAdapter.NewApp(ctx, firebaseAdapter.Config{
			CredentialsFile: cfg.FirebaseCredentialsFile,
			ProjectID:       cfg.FirebaseProjectID,
		})
		if err != nil {
			return nil, err
		}
		infra.firebaseApp = app
	}

	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := gormAdapter.OpenPostgres(cfg.DatabaseDSN, gormAdapter.DefaultPoolConfig, logger)
		if err != nil {
			return nil, infra.abort(err)
		}
		infra.db = db
		infra.closers = append(infra.closers, func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
	case config.StoreFirestore:
		client, err := infra.firebaseApp.Firestore(ctx)
		if err != nil {
			return nil, infra.abort(fmt.Errorf("open firestore: %w", err))
		}
		infra.firestore = client
		infra.closers = append(infra.closers, client.Close)
	}

	if cfg.RedisURL != "" {
		client, err := redisAdapter.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, infra.abort(err)
		}
		infra.redis = client
		infra.closers = append(infra.closers, client.Close)
	}

	pkgApp.LogInfo(ctx, logger, "infrastructure ready", map[string]interface{}{
		"store":     cfg.StoreDriver,
		"transport": cfg.EventTransport,
		"firebase":  infra.firebaseApp != nil,
		"redis":     infra.redis != nil,
	})
	return infra, nil
}

func (i *Infra) abort(err error) error {
	return errors.Join(err, i.Close())
}

// Close fecha as conexões abertas por New e pelos barramentos.
func (i *Infra) Close() error {
	var errs []error
	for idx := len(i.closers) - 1; idx >= 0; idx-- {
		if err := i.closers[idx](); err != nil {
			errs = append(errs, err)
		}
	}
	i.closers = nil
	return errors.Join(errs...)
}

func (i *Infra) ReservationRepository(ctx context.Context) (reservationDomain.Repository, error) {
	switch i.Config.StoreDriver {
	case config.StorePostgres:
		repo := reservationInfra.NewGormRepository(i.db, i.Logger)
		if err := repo.Migrate(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	case config.StoreFirestore:
		return reservationInfra.NewFirestoreRepository(i.firestore, i.Logger), nil
	default:
		return reservationInfra.NewInMemoryRepository(i.Logger), nil
	}
}

func (i *Infra) ChatRepository(ctx context.Context) (chatDomain.Repository, error) {
	switch i.Config.StoreDriver {
	case config.StorePostgres:
		repo := chatInfra.NewGormRepository(i.db, i.Logger)
		if err := repo.Migrate(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	case config.StoreFirestore:
		return chatInfra.NewFirestoreRepository(i.firestore, i.Logger), nil
	default:
		return chatInfra.NewInMemoryRepository(), nil
	}
}

func (i *Infra) Verifier(ctx context.Context) (auth.Verifier, error) {
	if i.Config.AuthProvider == config.AuthFirebase {
		client, err := i.firebaseApp.Auth(ctx)
		if err != nil {
			return nil, fmt.Errorf("open firebase auth: %w", err)
		}
		return auth.NewFirebaseVerifier(client), nil
	}
	return auth.NewJWTVerifier(i.Config.JWTSecret), nil
}

// TokenStore usa o redis quando REDIS_URL está configurado.
func (i *Infra) TokenStore() notificationDomain.TokenStore {
	if i.redis != nil {
		return notificationInfra.NewRedisTokenStore(i.redis)
	}
	return notificationInfra.NewInMemoryTokenStore()
}

// Sender usa o FCM quando o firebase está configurado.
func (i *Infra) Sender(ctx context.Context) (notificationDomain.Sender, error) {
	if i.firebaseApp == nil {
		return notificationInfra.NewLogSender(i.Logger), nil
	}
	client, err := i.firebaseApp.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("open firebase messaging: %w", err)
	}
	return notificationInfra.NewFCMSender(client, notificationInfra.DefaultBreakerConfig, i.Logger), nil
}

func (i *Infra) ReminderScheduler() (notificationApp.ReminderScheduler, error) {
	scheduler, err := notificationInfra.NewGocronScheduler(i.Logger)
	if err != nil {
		return nil, err
	}
	i.closers = append(i.closers, scheduler.Shutdown)
	return scheduler, nil
}

// EventBuses monta os barramentos no transporte configurado. Com consume
// falso, transportes remotos só publicam.
func (i *Infra) EventBuses(ctx context.Context, consume bool) (EventBuses, error) {
	logger := i.Logger
	switch i.Config.EventTransport {
	case config.TransportInProcess:
		return EventBuses{
			Reservations: pkgInfra.NewSimpleEventBus[pkgDomain.Event[reservationDomain.ReservationEventData], reservationDomain.ReservationEventData](logger),
			Chats:        pkgInfra.NewSimpleEventBus[pkgDomain.Event[chatDomain.MessageSentData], chatDomain.MessageSentData](logger),
			Tracking:     pkgInfra.NewSimpleEventBus[pkgDomain.Event[trackingDomain.VanArrivingData], trackingDomain.VanArrivingData](logger),
		}, nil
	case config.TransportGoChannel:
		pubSub := channelsAdapter.NewGoChannelPubSub(logger)
		i.closers = append(i.closers, pubSub.Close)
		return watermillBuses(ctx, pubSub, pubSub, logger), nil
	case config.TransportRedis:
		publisher, err := redisAdapter.NewPublisher(i.redis, logger)
		if err != nil {
			return EventBuses{}, err
		}
		i.closers = append(i.closers, publisher.Close)
		var subscriber message.Subscriber
		if consume {
			sub, err := redisAdapter.NewSubscriber(i.redis, i.Config.RedisConsumerGroup, consumerName(i.Config.AppName), logger)
			if err != nil {
				return EventBuses{}, err
			}
			i.closers = append(i.closers, sub.Close)
			subscriber = sub
		}
		return watermillBuses(ctx, publisher, subscriber, logger), nil
	case config.TransportKafka:
		publisher, err := kafkaAdapter.NewPublisher(i.Config.KafkaBrokers, logger)
		if err != nil {
			return EventBuses{}, err
		}
		i.closers = append(i.closers, publisher.Close)
		var subscriber message.Subscriber
		if consume {
			sub, err := kafkaAdapter.NewSubscriber(i.Config.KafkaBrokers, i.Config.KafkaConsumerGroup, logger)
			if err != nil {
				return EventBuses{}, err
			}
			i.closers = append(i.closers, sub.Close)
			subscriber = sub
		}
		return watermillBuses(ctx, publisher, subscriber, logger), nil
	default:
		return EventBuses{}, fmt.Errorf("unknown event transport %q", i.Config.EventTransport)
	}
}

func watermillBuses(ctx context.Context, publisher message.Publisher, subscriber message.Subscriber, logger pkgApp.AppLogger) EventBuses {
	return EventBuses{
		Reservations: watermillAdapter.NewEventBus[pkgDomain.Event[reservationDomain.ReservationEventData], reservationDomain.ReservationEventData](ctx, publisher, subscriber, logger),
		Chats:        watermillAdapter.NewEventBus[pkgDomain.Event[chatDomain.MessageSentData], chatDomain.MessageSentData](ctx, publisher, subscriber, logger),
		Tracking:     watermillAdapter.NewEventBus[pkgDomain.Event[trackingDomain.VanArrivingData], trackingDomain.VanArrivingData](ctx, publisher, subscriber, logger),
	}
}

func consumerName(appName string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return fmt.Sprintf("%s-%s-%d", appName, host, os.Getpid())
}
