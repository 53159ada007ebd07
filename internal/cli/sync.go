package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay queued offline changes against the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, open, func(ctx context.Context, app *App, out *OutputFormatter) error {
				report, err := app.Monitor.SyncWithRetry(ctx)
				if err != nil {
					return err
				}
				if report.DropErr != nil {
					out.VerboseLog("dropped: %v", report.DropErr)
				}
				return out.Render(report, func(w io.Writer) { renderSyncReport(w, report) })
			})
		},
	}
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connectivity mode and queued changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, open, func(ctx context.Context, app *App, out *OutputFormatter) error {
				status := app.Provider.Status(ctx)
				return out.Render(status, func(w io.Writer) { renderStatus(w, status) })
			})
		},
	}
}

// NewWatchCommand creates the watch command, which keeps probing the catalog and
// synchronizes whenever it becomes reachable.
func NewWatchCommand(rootOpts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Probe the catalog periodically and synchronize when it is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, open, func(ctx context.Context, app *App, out *OutputFormatter) error {
				if err := app.Monitor.Start(ctx); err != nil {
					return err
				}
				out.VerboseLog("watching; interrupt to stop")
				<-ctx.Done()
				app.Monitor.Stop()

				status := app.Provider.Status(context.Background())
				return out.Render(status, func(w io.Writer) { renderStatus(w, status) })
			})
		},
	}
}
