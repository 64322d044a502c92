package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/veritas-stock/stockd/internal/app"
	"github.com/veritas-stock/stockd/internal/config"
)

func main() {
	var (
		configPath string
		migrate    bool
	)
	flag.StringVar(&configPath, "config", "", "path to config.yaml (defaults to CONFIG_PATH or ./config.yaml)")
	flag.BoolVar(&migrate, "migrate", false, "run database migrations and exit")
	flag.Parse()

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCfg := config.AppConfig{ConfigPath: configPath}
	if migrate {
		if err := app.Migrate(ctx, appCfg); err != nil {
			log.WithError(err).Fatal("migration failed")
		}
		return
	}
	if err := app.RunServer(ctx, appCfg); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
