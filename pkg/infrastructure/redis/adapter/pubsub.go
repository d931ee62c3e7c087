package adapter

import (
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"

	"github.com/mateusmacedo/expresso-van/pkg/application"
	watermillAdapter "github.com/mateusmacedo/expresso-van/pkg/infrastructure/watermill/adapter"
)

func NewPublisher(client redis.UniversalClient, logger application.AppLogger) (*redisstream.Publisher, error) {
	return redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: client,
	}, watermillAdapter.NewWatermillLoggerAdapter(logger))
}

// NewSubscriber cria um consumidor do grupo informado. Consumidores com o
// mesmo grupo dividem as mensagens entre si.
func NewSubscriber(client redis.UniversalClient, consumerGroup, consumer string, logger application.AppLogger) (*redisstream.Subscriber, error) {
	return redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        client,
		ConsumerGroup: consumerGroup,
		Consumer:      consumer,
	}, watermillAdapter.NewWatermillLoggerAdapter(logger))
}
