package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Clark-Hu/cinemaddict/internal/domain"
)

// FilterName selects a subset of movies.
type FilterName string

const (
	FilterAll       FilterName = "all"
	FilterWatchlist FilterName = "watchlist"
	FilterHistory   FilterName = "history"
	FilterFavorites FilterName = "favorites"
)

// Filters lists every filter in menu order.
var Filters = []FilterName{FilterAll, FilterWatchlist, FilterHistory, FilterFavorites}

// ParseFilter accepts a filter name case-insensitively; empty means all.
func ParseFilter(s string) (FilterName, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FilterAll, nil
	}
	for _, f := range Filters {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// FilterMovies returns the movies matching f, keeping their order.
func FilterMovies(movies []domain.Movie, f FilterName) []domain.Movie {
	var keep func(domain.Movie) bool
	switch f {
	case FilterWatchlist:
		keep = func(m domain.Movie) bool { return m.IsWatchlist }
	case FilterHistory:
		keep = func(m domain.Movie) bool { return m.IsWatched }
	case FilterFavorites:
		keep = func(m domain.Movie) bool { return m.IsFavorite }
	default:
		return movies
	}
	out := make([]domain.Movie, 0, len(movies))
	for _, m := range movies {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

// FilterCounts returns how many movies each non-trivial filter matches.
func FilterCounts(movies []domain.Movie) map[FilterName]int {
	counts := make(map[FilterName]int, len(Filters))
	for _, f := range Filters {
		counts[f] = len(FilterMovies(movies, f))
	}
	return counts
}

// SortType orders a movie list.
type SortType string

const (
	SortDefault  SortType = "default"
	SortDate     SortType = "date"
	SortRating   SortType = "rating"
	SortComments SortType = "comments"
)

// ParseSort accepts a sort name case-insensitively; empty means default.
func ParseSort(s string) (SortType, error) {
	switch SortType(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortDefault:
		return SortDefault, nil
	case SortDate:
		return SortDate, nil
	case SortRating:
		return SortRating, nil
	case SortComments:
		return SortComments, nil
	default:
		return "", fmt.Errorf("unknown sort %q", s)
	}
}

// SortMovies returns a sorted copy: newest release, highest rating or most comments
// first. SortDefault keeps catalog order.
func SortMovies(movies []domain.Movie, by SortType) []domain.Movie {
	out := append([]domain.Movie(nil), movies...)
	var less func(a, b domain.Movie) bool
	switch by {
	case SortDate:
		less = func(a, b domain.Movie) bool { return a.ReleaseDate.After(b.ReleaseDate) }
	case SortRating:
		less = func(a, b domain.Movie) bool { return a.TotalRating > b.TotalRating }
	case SortComments:
		less = func(a, b domain.Movie) bool { return len(a.Comments) > len(b.Comments) }
	default:
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Top returns at most n movies by sort, skipping movies with nothing to rank on.
func Top(movies []domain.Movie, by SortType, n int) []domain.Movie {
	ranked := SortMovies(movies, by)
	out := make([]domain.Movie, 0, n)
	for _, m := range ranked {
		if len(out) == n {
			break
		}
		if (by == SortRating && m.TotalRating == 0) || (by == SortComments && len(m.Comments) == 0) {
			continue
		}
		out = append(out, m)
	}
	return out
}
