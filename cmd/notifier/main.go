package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mateusmacedo/expresso-van/internal/boot"
	"github.com/mateusmacedo/expresso-van/internal/config"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
)

// O notifier consome SeatReserved, BookingCancelled, ChatMessageSent e
// VanArriving de um transporte remoto (redis ou kafka).
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	appLogger, err := boot.NewLogger(cfg)
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cfg.RemoteEvents() {
		appLogger.Error(ctx, "O notifier exige EVENT_TRANSPORT redis ou kafka", map[string]interface{}{
			"transport": cfg.EventTransport,
		})
		os.Exit(1)
	}
	if cfg.RedisURL == "" {
		pkgApp.LogWarn(ctx, appLogger, "push tokens em memória não são compartilhados com a API", nil, nil)
	}

	infra, err := boot.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error(ctx, "Erro ao inicializar a infraestrutura", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer func() {
		if err := infra.Close(); err != nil {
			appLogger.Error(context.Background(), "Erro ao fechar conexões", map[string]interface{}{"error": err.Error()})
		}
	}()

	buses, err := infra.EventBuses(ctx, true)
	if err != nil {
		appLogger.Error(ctx, "Erro ao criar os barramentos", map[string]interface{}{"error": err.Error()})
		return
	}

	notificationSlice, err := boot.NewNotificationSlice(ctx, infra)
	if err != nil {
		appLogger.Error(ctx, "Erro ao criar o serviço de notificações", map[string]interface{}{"error": err.Error()})
		return
	}
	notificationSlice.Subscribe(buses.Reservations, buses.Chats, buses.Tracking)

	appLogger.Info(ctx, "Notifier iniciado", map[string]interface{}{"transport": cfg.EventTransport})
	<-ctx.Done()
	appLogger.Info(context.Background(), "Notifier encerrado", nil)
}
