package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"github.com/Clark-Hu/cinemaddict/internal/cli"
	"github.com/Clark-Hu/cinemaddict/internal/config"
	"github.com/Clark-Hu/cinemaddict/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}

	log := logger.New(cfg.Environment, cfg.LogLevel)
	root := cli.NewRootCommand(cli.NewOpener(cfg, log))
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
