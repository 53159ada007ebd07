package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Clark-Hu/cinemaddict/internal/domain"
)

// NewCommentCommand creates the comment command group.
func NewCommentCommand(rootOpts *RootOptions, open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Add or delete comments",
	}
	cmd.AddCommand(newCommentAddCommand(rootOpts, open))
	cmd.AddCommand(newCommentDeleteCommand(rootOpts, open))
	return cmd
}

func newCommentAddCommand(rootOpts *RootOptions, open Opener) *cobra.Command {
	var emotion, text, author string

	cmd := &cobra.Command{
		Use:   "add <movie-id>",
		Short: "Comment on a movie",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, open, func(ctx context.Context, app *App, out *OutputFormatter) error {
				if err := app.Model.LoadMovies(ctx); err != nil {
					return err
				}
				created, err := app.Model.AddComment(ctx, args[0], domain.Comment{
					Author:  author,
					Text:    text,
					Emotion: domain.Emotion(emotion),
				})
				if err != nil {
					return err
				}
				return out.Render(created, func(w io.Writer) {
					fmt.Fprintf(w, "Comment %s added to %s\n", created.ID, args[0])
				})
			})
		},
	}

	cmd.Flags().StringVar(&emotion, "emotion", string(domain.EmotionSmile), "emotion (smile|sleeping|puke|angry)")
	cmd.Flags().StringVar(&text, "text", "", "comment text")
	cmd.Flags().StringVar(&author, "author", "", "author name")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func newCommentDeleteCommand(rootOpts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <comment-id>",
		Short: "Delete a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, open, func(ctx context.Context, app *App, out *OutputFormatter) error {
				if err := app.Model.RemoveComment(ctx, args[0]); err != nil {
					return err
				}
				result := map[string]string{"deleted": args[0]}
				return out.Render(result, func(w io.Writer) {
					fmt.Fprintf(w, "Comment %s deleted\n", args[0])
				})
			})
		},
	}
}
