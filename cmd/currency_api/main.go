package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/langowen/azn-rates/deploy/config"
	"github.com/langowen/azn-rates/internal/currency_api/app"
)

func main() {
	cfg := config.NewConfig()

	ctx, cancel := context.WithCancel(context.Background())

	currencyApp := app.NewApp(cfg)
	if err := currencyApp.Init(ctx); err != nil {
		log.Fatalln("Failed to initialize currency api", "error", err)
	}

	appDone := currencyApp.Start(ctx)

	done := make(chan os.Signal, 1)

	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-done
	slog.Info("Gracefully shutting down")

	cancel()

	<-appDone
	slog.Info("server stopped")
}
