package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/mateusmacedo/expresso-van/internal/boot"
	"github.com/mateusmacedo/expresso-van/internal/config"
	"github.com/mateusmacedo/expresso-van/internal/reservation/application"
)

// seed grava o catálogo de demonstração no store configurado.
func main() {
	days := flag.Int("days", 7, "number of days to generate trips for")
	capacity := flag.Int("capacity", 15, "seats per trip")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	appLogger, err := boot.NewLogger(cfg)
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	infra, err := boot.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error(ctx, "Erro ao inicializar a infraestrutura", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer infra.Close()

	repo, err := infra.ReservationRepository(ctx)
	if err != nil {
		appLogger.Error(ctx, "Erro ao abrir o repositório", map[string]interface{}{"error": err.Error()})
		return
	}

	trips, err := application.DemoTrips(time.Now(), *days, *capacity)
	if err != nil {
		appLogger.Error(ctx, "Erro ao gerar viagens", map[string]interface{}{"error": err.Error()})
		return
	}
	if _, err := application.SeedTrips(ctx, repo, trips, appLogger); err != nil {
		appLogger.Error(ctx, "Erro ao gravar viagens", map[string]interface{}{"error": err.Error()})
	}
}
