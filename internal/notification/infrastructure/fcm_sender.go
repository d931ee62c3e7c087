package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/eapache/go-resiliency/breaker"

	"github.com/mateusmacedo/expresso-van/internal/notification/domain"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
)

// multicastLimit é o máximo de tokens aceito pelo FCM por chamada.
const multicastLimit = 500

// MessagingClient é o subconjunto de *messaging.Client usado pelo sender.
type MessagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) (*messaging.TopicManagementResponse, error)
	UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) (*messaging.TopicManagementResponse, error)
}

type BreakerConfig struct {
	ErrorThreshold   int
	SuccessThreshold int
	Timeout          time.Duration
}

var DefaultBreakerConfig = BreakerConfig{ErrorThreshold: 5, SuccessThreshold: 1, Timeout: 30 * time.Second}

// FCMSender entrega pelo Firebase Cloud Messaging atrás de um circuit breaker.
type FCMSender struct {
	client         MessagingClient
	breaker        *breaker.Breaker
	isUnregistered func(error) bool
	logger         pkgApp.AppLogger
}

func NewFCMSender(client MessagingClient, cfg BreakerConfig, logger pkgApp.AppLogger) *FCMSender {
	return &FCMSender{
		client:         client,
		breaker:        breaker.New(cfg.ErrorThreshold, cfg.SuccessThreshold, cfg.Timeout),
		isUnregistered: messaging.IsUnregistered,
		logger:         logger,
	}
}

func (s *FCMSender) SendToTokens(ctx context.Context, tokens []string, notification domain.Notification) (domain.SendReport, error) {
	var report domain.SendReport
	for start := 0; start < len(tokens); start += multicastLimit {
		end := min(start+multicastLimit, len(tokens))
		batch := tokens[start:end]

		var resp *messaging.BatchResponse
		err := s.breaker.Run(func() error {
			var err error
			resp, err = s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
				Tokens:       batch,
				Data:         notification.Data,
				Notification: &messaging.Notification{Title: notification.Title, Body: notification.Body},
			})
			return err
		})
		if err != nil {
			return report, s.wrap("multicast", err)
		}

		report.Sent += resp.SuccessCount
		report.Failed += resp.FailureCount
		for i, r := range resp.Responses {
			if r.Success || i >= len(batch) {
				continue
			}
			if s.isUnregistered(r.Error) {
				report.InvalidTokens = append(report.InvalidTokens, batch[i])
			}
		}
	}
	return report, nil
}

func (s *FCMSender) SendToTopic(ctx context.Context, topic string, notification domain.Notification) error {
	err := s.breaker.Run(func() error {
		id, err := s.client.Send(ctx, &messaging.Message{
			Topic:        topic,
			Data:         notification.Data,
			Notification: &messaging.Notification{Title: notification.Title, Body: notification.Body},
		})
		if err == nil {
			pkgApp.LogDebug(ctx, s.logger, "topic message sent", map[string]interface{}{"topic": topic, "message_id": id})
		}
		return err
	})
	return s.wrap("send to topic", err)
}

func (s *FCMSender) SubscribeToTopic(ctx context.Context, tokens []string, topic string) error {
	return s.manageTopic(ctx, "subscribe", tokens, topic, s.client.SubscribeToTopic)
}

func (s *FCMSender) UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) error {
	return s.manageTopic(ctx, "unsubscribe", tokens, topic, s.client.UnsubscribeFromTopic)
}

type topicOp func(ctx context.Context, tokens []string, topic string) (*messaging.TopicManagementResponse, error)

func (s *FCMSender) manageTopic(ctx context.Context, op string, tokens []string, topic string, call topicOp) error {
	if len(tokens) == 0 {
		return nil
	}
	var resp *messaging.TopicManagementResponse
	err := s.breaker.Run(func() error {
		var err error
		resp, err = call(ctx, tokens, topic)
		return err
	})
	if err != nil {
		return s.wrap(op, err)
	}
	if resp.FailureCount > 0 {
		pkgApp.LogWarn(ctx, s.logger, "topic "+op+" partially failed", nil, map[string]interface{}{
			"topic":    topic,
			"failures": resp.FailureCount,
		})
	}
	return nil
}

func (s *FCMSender) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, breaker.ErrBreakerOpen) {
		return fmt.Errorf("fcm %s: circuit open: %w", op, err)
	}
	return fmt.Errorf("fcm %s: %w", op, err)
}

// LogSender só registra as notificações. É usado sem firebase configurado.
type LogSender struct {
	logger pkgApp.AppLogger
}

func NewLogSender(logger pkgApp.AppLogger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendToTokens(ctx context.Context, tokens []string, notification domain.Notification) (domain.SendReport, error) {
	pkgApp.LogInfo(ctx, s.logger, "push notification", map[string]interface{}{
		"title":  notification.Title,
		"body":   notification.Body,
		"tokens": len(tokens),
	})
	return domain.SendReport{Sent: len(tokens)}, nil
}

func (s *LogSender) SendToTopic(ctx context.Context, topic string, notification domain.Notification) error {
	pkgApp.LogInfo(ctx, s.logger, "topic notification", map[string]interface{}{
		"topic": topic,
		"title": notification.Title,
		"body":  notification.Body,
	})
	return nil
}

func (s *LogSender) SubscribeToTopic(ctx context.Context, tokens []string, topic string) error {
	pkgApp.LogDebug(ctx, s.logger, "topic subscribe", map[string]interface{}{"topic": topic, "tokens": len(tokens)})
	return nil
}

func (s *LogSender) UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) error {
	pkgApp.LogDebug(ctx, s.logger, "topic unsubscribe", map[string]interface{}{"topic": topic, "tokens": len(tokens)})
	return nil
}
