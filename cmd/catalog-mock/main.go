package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"github.com/Clark-Hu/cinemaddict/internal/config"
	"github.com/Clark-Hu/cinemaddict/internal/fixture"
	httpserver "github.com/Clark-Hu/cinemaddict/internal/http"
	"github.com/Clark-Hu/cinemaddict/internal/logger"
)

func main() {
	var (
		port    = flag.String("port", "9099", "port to listen on")
		data    = flag.String("data", "fixtures/catalog.yaml", "path to the YAML fixture")
		token   = flag.String("token", "secret", "accepted authorization token")
		verbose = flag.Bool("v", false, "log at debug level")
	)
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	log := logger.New("development", level).With("service", "catalog-mock")

	cat, err := fixture.Load(*data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		os.Exit(1)
	}
	movies, _ := cat.List(context.Background())
	log.Info("loaded fixture", "path", *data, "movies", len(movies))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Server{
		Port:             *port,
		AuthToken:        *token,
		ReadTimeoutSecs:  15,
		WriteTimeoutSecs: 15,
		IdleTimeoutSecs:  60,
	}
	server := httpserver.New(cfg, cat, cat, cat, log)
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
