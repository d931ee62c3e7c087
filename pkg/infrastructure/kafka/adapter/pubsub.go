package adapter

import (
	"github.com/Shopify/sarama"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"

	"github.com/mateusmacedo/expresso-van/pkg/application"
	watermillAdapter "github.com/mateusmacedo/expresso-van/pkg/infrastructure/watermill/adapter"
)

func NewPublisher(brokers []string, logger application.AppLogger) (*kafka.Publisher, error) {
	return kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, watermillAdapter.NewWatermillLoggerAdapter(logger))
}

func NewSubscriber(brokers []string, consumerGroup string, logger application.AppLogger) (*kafka.Subscriber, error) {
	return kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               brokers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		ConsumerGroup:         consumerGroup,
		OverwriteSaramaConfig: SaramaConfig(consumerGroup),
		InitializeTopicDetails: &sarama.TopicDetail{
			NumPartitions:     1,
			ReplicationFactor: 1,
		},
	}, watermillAdapter.NewWatermillLoggerAdapter(logger))
}

// SaramaConfig lê os tópicos desde o início na primeira execução do grupo.
func SaramaConfig(clientID string) *sarama.Config {
	saramaConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaConfig.Version = sarama.V1_0_0_0
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.ClientID = clientID
	return saramaConfig
}
