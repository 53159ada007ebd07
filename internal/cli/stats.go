package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/Clark-Hu/cinemaddict/internal/model"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions, open Opener) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show viewing statistics",
		Long: `Show how many movies were watched, their total duration and the top genre.

Periods: all, today, week, month, year. Outside "all" only movies with a
watching date inside the period count.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := model.ParseStatsPeriod(period)
			if err != nil {
				return newFormatter(cmd, rootOpts).Fail(&ExitError{Code: ExitCommandError, Message: err.Error()})
			}

			return withApp(cmd, rootOpts, open, func(ctx context.Context, app *App, out *OutputFormatter) error {
				if err := app.Model.LoadMovies(ctx); err != nil {
					return err
				}
				stats := app.Model.Stats(p)
				return out.Render(stats, func(w io.Writer) { renderStats(w, stats) })
			})
		},
	}

	cmd.Flags().StringVar(&period, "period", string(model.PeriodAll), "period (all|today|week|month|year)")
	return cmd
}
