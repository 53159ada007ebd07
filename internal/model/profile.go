package model

import (
	"fmt"

	"github.com/Clark-Hu/cinemaddict/internal/domain"
)

// Rank is the user's profile title derived from how many movies they watched.
func Rank(watched int) string {
	switch {
	case watched <= 0:
		return ""
	case watched <= 10:
		return "novice"
	case watched <= 20:
		return "fan"
	default:
		return "movie buff"
	}
}

// WatchedCount counts watched movies.
func WatchedCount(movies []domain.Movie) int {
	return len(FilterMovies(movies, FilterHistory))
}

// FormatRuntime renders minutes as "1h 36m".
func FormatRuntime(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// Pluralize appends "s" to noun unless count is exactly one.
func Pluralize(count int, noun string) string {
	if count == 1 {
		return noun
	}
	return noun + "s"
}
