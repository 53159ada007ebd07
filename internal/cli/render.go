package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/Clark-Hu/cinemaddict/internal/domain"
	"github.com/Clark-Hu/cinemaddict/internal/model"
	"github.com/Clark-Hu/cinemaddict/internal/provider"
)

const commentDateLayout = "2006/01/02 15:04"

func renderMovie(w io.Writer, m domain.Movie) {
	year := "----"
	if !m.ReleaseDate.IsZero() {
		year = fmt.Sprintf("%d", m.ReleaseDate.Year())
	}
	n := len(m.Comments)
	fmt.Fprintf(w, "%s  %s  %s  %s  %.1f  %d %s%s\n",
		m.ID, m.Title, year, model.FormatRuntime(m.Runtime), m.TotalRating, n, model.Pluralize(n, "comment"), movieFlags(m))
}

func movieFlags(m domain.Movie) string {
	var flags []string
	if m.IsWatchlist {
		flags = append(flags, "watchlist")
	}
	if m.IsWatched {
		flags = append(flags, "watched")
	}
	if m.IsFavorite {
		flags = append(flags, "favorite")
	}
	if m.PersonalRating > 0 {
		flags = append(flags, fmt.Sprintf("rated %d", m.PersonalRating))
	}
	if len(flags) == 0 {
		return ""
	}
	return "  [" + strings.Join(flags, ", ") + "]"
}

type filmsView struct {
	Filter  model.FilterName `json:"filter"`
	Sort    model.SortType   `json:"sort"`
	Rank    string           `json:"rank,omitempty"`
	Watched int              `json:"watched"`
	Movies  []domain.Movie   `json:"movies"`
}

func renderFilms(w io.Writer, v filmsView) {
	n := len(v.Movies)
	fmt.Fprintf(w, "%d %s (filter: %s, sort: %s)\n", n, model.Pluralize(n, "movie"), v.Filter, v.Sort)
	for _, m := range v.Movies {
		renderMovie(w, m)
	}
	if v.Rank != "" {
		fmt.Fprintf(w, "Rank: %s (%d watched)\n", v.Rank, v.Watched)
	}
}

type commentsView struct {
	MovieID  string           `json:"movieId"`
	Comments []domain.Comment `json:"comments"`
}

func renderComments(w io.Writer, v commentsView) {
	n := len(v.Comments)
	fmt.Fprintf(w, "%d %s for %s\n", n, model.Pluralize(n, "comment"), v.MovieID)
	for _, c := range v.Comments {
		renderComment(w, c)
	}
}

func renderComment(w io.Writer, c domain.Comment) {
	fmt.Fprintf(w, "%s  %s  [%s]  %s: %s\n", c.ID, c.Date.UTC().Format(commentDateLayout), c.Emotion, c.Author, c.Text)
}

func renderSyncReport(w io.Writer, r provider.SyncReport) {
	if r.Skipped {
		fmt.Fprintln(w, "Synchronization already running")
		return
	}
	fmt.Fprintf(w, "Replayed %d, dropped %d, remaining %d\n", r.Replayed, len(r.Dropped), r.Remaining)
	for _, op := range r.Dropped {
		fmt.Fprintf(w, "  dropped %s\n", op)
	}
}

func renderStatus(w io.Writer, s provider.Status) {
	synced := "no"
	if s.Synchronized {
		synced = "yes"
	}
	cache := "durable"
	if s.CacheDegraded {
		cache = "in-memory"
	}
	fmt.Fprintf(w, "Mode: %s\nPending operations: %d\nSynchronized: %s\nCache: %s\n", s.ModeName, s.Pending, synced, cache)
}

func renderStats(w io.Writer, s model.Statistics) {
	if s.Rank != "" {
		fmt.Fprintf(w, "Rank: %s\n", s.Rank)
	}
	fmt.Fprintf(w, "Period: %s\n", s.Period)
	fmt.Fprintf(w, "You watched %d %s\n", s.Watched, model.Pluralize(s.Watched, "movie"))
	fmt.Fprintf(w, "Total duration %s\n", model.FormatRuntime(s.TotalRuntime))
	if s.TopGenre == "" {
		return
	}
	fmt.Fprintf(w, "Top genre %s\n", s.TopGenre)
	for _, g := range s.Genres {
		fmt.Fprintf(w, "  %s %d\n", g.Genre, g.Count)
	}
}
