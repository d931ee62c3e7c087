package adapter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateusmacedo/expresso-van/pkg/application"
	"github.com/mateusmacedo/expresso-van/pkg/domain"
)

type arrival struct {
	Route       string `json:"route"`
	MinutesAway int    `json:"minutesAway"`
}

func newPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, NewWatermillLoggerAdapter(application.NopLogger{}))
	t.Cleanup(func() { _ = pubSub.Close() })
	return pubSub
}

func TestEventBusDeliversToEveryHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := newPubSub(t)
	bus := NewEventBus[domain.Event[arrival], arrival](ctx, pubSub, pubSub, application.NopLogger{})

	var mu sync.Mutex
	var received []arrival
	handler := application.EventHandlerFunc[domain.Event[arrival], arrival](func(_ context.Context, event domain.Event[arrival]) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, event.Payload())
		return nil
	})
	bus.RegisterHandler("VanArriving", handler)
	bus.RegisterHandler("VanArriving", handler)

	err := bus.Publish(ctx, domain.NewEvent("VanArriving", arrival{Route: "Downtown - University", MinutesAway: 5}))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, arrival{Route: "Downtown - University", MinutesAway: 5}, received[0])
}

func TestEventBusRedeliversAfterHandlerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := newPubSub(t)
	bus := NewEventBus[domain.Event[arrival], arrival](ctx, pubSub, pubSub, application.NopLogger{})

	var calls atomic.Int32
	bus.RegisterHandler("VanArriving", application.EventHandlerFunc[domain.Event[arrival], arrival](func(context.Context, domain.Event[arrival]) error {
		if calls.Add(1) == 1 {
			return errors.New("temporary failure")
		}
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, domain.NewEvent("VanArriving", arrival{Route: "r"})))

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestEventBusPublishOnlyWithoutSubscriber(t *testing.T) {
	ctx := context.Background()
	pubSub := newPubSub(t)

	messages, err := pubSub.Subscribe(ctx, "VanArriving")
	require.NoError(t, err)

	bus := NewEventBus[domain.Event[arrival], arrival](ctx, pubSub, nil, application.NopLogger{})
	bus.RegisterHandler("VanArriving", application.EventHandlerFunc[domain.Event[arrival], arrival](func(context.Context, domain.Event[arrival]) error {
		t.Error("handler must not run without subscriber")
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, domain.NewEvent("VanArriving", arrival{Route: "r", MinutesAway: 3})))

	select {
	case msg := <-messages:
		assert.Equal(t, "VanArriving", msg.Metadata.Get("event_name"))
		assert.JSONEq(t, `{"route":"r","minutesAway":3}`, string(msg.Payload))
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("message not published")
	}
}

func TestWatermillLoggerAdapterWith(t *testing.T) {
	logger := NewWatermillLoggerAdapter(application.NopLogger{}).With(map[string]interface{}{"topic": "x"})
	impl, ok := logger.(*watermillLoggerAdapter)
	require.True(t, ok)
	assert.Equal(t, "x", impl.fields["topic"])
	assert.Equal(t, "watermill", impl.fields["component"])
}
