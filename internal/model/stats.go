package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Clark-Hu/cinemaddict/internal/domain"
)

// StatsPeriod bounds statistics to movies watched within a window ending now.
type StatsPeriod string

const (
	PeriodAll   StatsPeriod = "all"
	PeriodToday StatsPeriod = "today"
	PeriodWeek  StatsPeriod = "week"
	PeriodMonth StatsPeriod = "month"
	PeriodYear  StatsPeriod = "year"
)

// StatsPeriods lists every period in menu order.
var StatsPeriods = []StatsPeriod{PeriodAll, PeriodToday, PeriodWeek, PeriodMonth, PeriodYear}

// ParseStatsPeriod accepts a period name case-insensitively; empty means all time.
func ParseStatsPeriod(s string) (StatsPeriod, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PeriodAll, nil
	}
	for _, p := range StatsPeriods {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// GenreCount is how many watched movies carry a genre.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// Statistics summarizes the watched movies of one period.
type Statistics struct {
	Period StatsPeriod `json:"period"`
	// Rank is always computed over the whole history.
	Rank         string       `json:"rank,omitempty"`
	Watched      int          `json:"watched"`
	TotalRuntime int          `json:"totalRuntime"`
	TopGenre     string       `json:"topGenre,omitempty"`
	Genres       []GenreCount `json:"genres"`
}

// Stats counts the watched movies of period, their total runtime in minutes and their
// genres, most frequent first. Outside PeriodAll a movie counts only if its watching
// date falls in the window.
func Stats(movies []domain.Movie, period StatsPeriod, now time.Time) Statistics {
	watched := FilterMovies(movies, FilterHistory)
	st := Statistics{Period: period, Rank: Rank(len(watched)), Genres: []GenreCount{}}

	from, bounded := periodStart(period, now)
	counts := make(map[string]int)
	for _, m := range watched {
		if bounded && (m.WatchingDate == nil || m.WatchingDate.Before(from) || m.WatchingDate.After(now)) {
			continue
		}
		st.Watched++
		if m.Runtime > 0 {
			st.TotalRuntime += m.Runtime
		}
		for _, g := range m.Genres {
			counts[g]++
		}
	}

	for g, n := range counts {
		st.Genres = append(st.Genres, GenreCount{Genre: g, Count: n})
	}
	sort.Slice(st.Genres, func(i, j int) bool {
		if st.Genres[i].Count != st.Genres[j].Count {
			return st.Genres[i].Count > st.Genres[j].Count
		}
		return st.Genres[i].Genre < st.Genres[j].Genre
	})
	if len(st.Genres) > 0 {
		st.TopGenre = st.Genres[0].Genre
	}
	return st
}

func periodStart(p StatsPeriod, now time.Time) (time.Time, bool) {
	switch p {
	case PeriodToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), true
	case PeriodWeek:
		return now.AddDate(0, 0, -7), true
	case PeriodMonth:
		return now.AddDate(0, -1, 0), true
	case PeriodYear:
		return now.AddDate(-1, 0, 0), true
	default:
		return time.Time{}, false
	}
}

// Stats summarizes the loaded movies for period as of the model's clock.
func (m *MoviesModel) Stats(period StatsPeriod) Statistics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats(m.movies, period, m.now())
}
