package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Offline bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the cinemaddict command tree. open builds the application for
// commands that need it.
func NewRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cinemaddict",
		Short: "Track the movies you want to watch, have watched and love",
		Long: `cinemaddict keeps a watchlist, viewing history, favorites, personal ratings
and comments for a movie catalog. It works offline: changes made without a
connection are queued locally and replayed when the catalog is reachable again.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVar(&opts.Offline, "offline", false, "never contact the catalog; queue changes locally")

	cmd.AddCommand(NewFilmsCommand(opts, open))
	cmd.AddCommand(NewCommentsCommand(opts, open))
	cmd.AddCommand(NewToggleCommand(opts, open, toggleWatchlist))
	cmd.AddCommand(NewToggleCommand(opts, open, toggleWatched))
	cmd.AddCommand(NewToggleCommand(opts, open, toggleFavorite))
	cmd.AddCommand(NewRateCommand(opts, open))
	cmd.AddCommand(NewCommentCommand(opts, open))
	cmd.AddCommand(NewStatsCommand(opts, open))
	cmd.AddCommand(NewSyncCommand(opts, open))
	cmd.AddCommand(NewStatusCommand(opts, open))
	cmd.AddCommand(NewWatchCommand(opts, open))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
