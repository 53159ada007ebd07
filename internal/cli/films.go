package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Clark-Hu/cinemaddict/internal/domain"
	"github.com/Clark-Hu/cinemaddict/internal/model"
)

// NewFilmsCommand creates the films command.
func NewFilmsCommand(rootOpts *RootOptions, open Opener) *cobra.Command {
	var filter, sortBy string

	cmd := &cobra.Command{
		Use:   "films",
		Short: "List movies",
		Long: `List movies from the catalog, or from the local cache when offline.

Filters: all, watchlist, history, favorites.
Sorts: default (catalog order), date, rating, comments.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := model.ParseFilter(filter)
			if err != nil {
				return newFormatter(cmd, rootOpts).Fail(&ExitError{Code: ExitCommandError, Message: err.Error()})
			}
			s, err := model.ParseSort(sortBy)
			if err != nil {
				return newFormatter(cmd, rootOpts).Fail(&ExitError{Code: ExitCommandError, Message: err.Error()})
			}

			return withApp(cmd, rootOpts, open, func(ctx context.Context, app *App, out *OutputFormatter) error {
				if err := app.Model.LoadMovies(ctx); err != nil {
					return err
				}
				app.Model.SetFilter(f)
				all := app.Model.Movies()
				watched := model.WatchedCount(all)
				view := filmsView{
					Filter:  f,
					Sort:    s,
					Rank:    model.Rank(watched),
					Watched: watched,
					Movies:  app.Model.View(s),
				}
				out.VerboseLog("mode: %s", app.Provider.Mode())
				return out.Render(view, func(w io.Writer) { renderFilms(w, view) })
			})
		},
	}

	cmd.Flags().StringVar(&filter, "filter", string(model.FilterAll), "filter (all|watchlist|history|favorites)")
	cmd.Flags().StringVar(&sortBy, "sort", string(model.SortDefault), "sort order (default|date|rating|comments)")
	return cmd
}

// NewCommentsCommand creates the comments command.
func NewCommentsCommand(rootOpts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "comments <movie-id>",
		Short: "List the comments of a movie",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, open, func(ctx context.Context, app *App, out *OutputFormatter) error {
				comments, err := app.Provider.GetComments(ctx, args[0])
				if err != nil {
					return err
				}
				view := commentsView{MovieID: args[0], Comments: comments}
				return out.Render(view, func(w io.Writer) { renderComments(w, view) })
			})
		},
	}
}

type toggle struct {
	use   string
	short string
	apply func(m *model.MoviesModel, ctx context.Context, id string) (domain.Movie, error)
}

var (
	toggleWatchlist = toggle{"watchlist <movie-id>", "Add or remove a movie from the watchlist", (*model.MoviesModel).ToggleWatchlist}
	toggleWatched   = toggle{"watched <movie-id>", "Mark a movie as watched or unwatched", (*model.MoviesModel).ToggleWatched}
	toggleFavorite  = toggle{"favorite <movie-id>", "Add or remove a movie from favorites", (*model.MoviesModel).ToggleFavorite}
)

// NewToggleCommand creates one of the watchlist/watched/favorite commands.
func NewToggleCommand(rootOpts *RootOptions, open Opener, t toggle) *cobra.Command {
	return &cobra.Command{
		Use:   t.use,
		Short: t.short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, open, func(ctx context.Context, app *App, out *OutputFormatter) error {
				if err := app.Model.LoadMovies(ctx); err != nil {
					return err
				}
				movie, err := t.apply(app.Model, ctx, args[0])
				if err != nil {
					return err
				}
				return out.Render(movie, func(w io.Writer) { renderMovie(w, movie) })
			})
		},
	}
}

// NewRateCommand creates the rate command.
func NewRateCommand(rootOpts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "rate <movie-id> <score>",
		Short: fmt.Sprintf("Set your rating for a movie (1-%d, 0 clears it)", domain.MaxPersonalRating),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.Atoi(args[1])
			if err != nil {
				return newFormatter(cmd, rootOpts).Fail(&ExitError{Code: ExitCommandError, Message: fmt.Sprintf("score %q is not a number", args[1])})
			}
			return withApp(cmd, rootOpts, open, func(ctx context.Context, app *App, out *OutputFormatter) error {
				if err := app.Model.LoadMovies(ctx); err != nil {
					return err
				}
				movie, err := app.Model.Rate(ctx, args[0], score)
				if err != nil {
					return err
				}
				return out.Render(movie, func(w io.Writer) { renderMovie(w, movie) })
			})
		},
	}
}
