package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/Clark-Hu/cinemaddict/internal/catalog"
	"github.com/Clark-Hu/cinemaddict/internal/config"
	"github.com/Clark-Hu/cinemaddict/internal/connectivity"
	"github.com/Clark-Hu/cinemaddict/internal/localstore"
	"github.com/Clark-Hu/cinemaddict/internal/model"
	"github.com/Clark-Hu/cinemaddict/internal/provider"
)

// App is everything a command operates on.
type App struct {
	Model    *model.MoviesModel
	Provider *provider.Provider
	Monitor  *connectivity.Monitor
	Closers  []func() error
}

// Close releases the app's resources.
func (a *App) Close() error {
	var err error
	for _, closer := range a.Closers {
		err = multierr.Append(err, closer())
	}
	return err
}

// Opener builds the App for one command invocation.
type Opener func(ctx context.Context, opts *RootOptions) (*App, error)

// NewOpener wires the production App from configuration.
func NewOpener(cfg config.Client, logger *slog.Logger) Opener {
	return func(ctx context.Context, opts *RootOptions) (*App, error) {
		timeout := time.Duration(cfg.CatalogTimeoutSecs) * time.Second
		client, err := catalog.NewHTTPClient(cfg.CatalogURL, cfg.CatalogAuth, timeout, logger)
		if err != nil {
			return nil, fmt.Errorf("create catalog client: %w", err)
		}

		store := localstore.Open(ctx, localstore.Options{DataPath: cfg.DataPath, Logger: logger})
		p := provider.New(client, store, provider.Options{
			Logger:       logger,
			ForceOffline: cfg.ForceOffline || opts.Offline,
		})
		monitor := connectivity.NewMonitor(client, p, connectivity.Config{
			ProbeInterval:   time.Duration(cfg.ProbeIntervalSecs) * time.Second,
			ProbeTimeout:    timeout,
			SyncMaxAttempts: cfg.SyncMaxAttempts,
		}, logger)

		return &App{
			Model:    model.New(p, model.Options{Logger: logger}),
			Provider: p,
			Monitor:  monitor,
			Closers:  []func() error{store.Close},
		}, nil
	}
}

// withApp opens the app, runs fn and closes the app. Errors from fn are reported
// through the formatter and returned as exit errors.
func withApp(cmd *cobra.Command, opts *RootOptions, open Opener, fn func(ctx context.Context, app *App, out *OutputFormatter) error) error {
	out := newFormatter(cmd, opts)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := open(ctx, opts)
	if err != nil {
		return out.Fail(err)
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			out.VerboseLog("close: %v", cerr)
		}
	}()

	if err := fn(ctx, app, out); err != nil {
		return out.Fail(err)
	}
	return nil
}
