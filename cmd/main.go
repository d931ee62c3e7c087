package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mateusmacedo/expresso-van/internal/boot"
	"github.com/mateusmacedo/expresso-van/internal/config"
	otelAdapter "github.com/mateusmacedo/expresso-van/pkg/infrastructure/otel/adapter"
)

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

	shutdownTracer, err := otelAdapter.InitTracer(ctx, cfg.AppName, cfg.OTLPEndpoint)
	if err != nil {
		appLogger.Error(ctx, "Erro ao iniciar o tracer", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	infra, err := boot.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error(ctx, "Erro ao inicializar a infraestrutura", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	api, err := boot.NewAPI(ctx, infra)
	if err != nil {
		appLogger.Error(ctx, "Erro ao montar a API", map[string]interface{}{"error": err.Error()})
		_ = infra.Close()
		os.Exit(1)
	}
	api.Tracking.Start(ctx)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		appLogger.Info(ctx, "Server starting on:"+cfg.Addr, nil)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error(ctx, "Erro ao iniciar o servidor", map[string]interface{}{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Info(context.Background(), "Encerrando servidor...", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "Erro ao encerrar servidor", map[string]interface{}{"error": err.Error()})
	}
	if err := infra.Close(); err != nil {
		appLogger.Error(shutdownCtx, "Erro ao fechar conexões", map[string]interface{}{"error": err.Error()})
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "Erro ao encerrar o tracer", map[string]interface{}{"error": err.Error()})
	}

	appLogger.Info(context.Background(), "Servidor encerrado", nil)
}
