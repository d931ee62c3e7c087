package adapter

import (
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/mateusmacedo/expresso-van/pkg/application"
	watermillAdapter "github.com/mateusmacedo/expresso-van/pkg/infrastructure/watermill/adapter"
)

// NewGoChannelPubSub cria um pub/sub em memória. O mesmo valor serve como
// publisher e subscriber.
func NewGoChannelPubSub(logger application.AppLogger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermillAdapter.NewWatermillLoggerAdapter(logger),
	)
}
