package domain

import "time"

// Movie is a catalog entry together with the user's own state for it.
type Movie struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	AlternativeTitle string     `json:"alternativeTitle,omitempty"`
	Poster           string     `json:"poster,omitempty"`
	Description      string     `json:"description,omitempty"`
	TotalRating      float64    `json:"totalRating"`
	AgeRating        int        `json:"ageRating"`
	Director         string     `json:"director,omitempty"`
	Writers          []string   `json:"writers,omitempty"`
	Actors           []string   `json:"actors,omitempty"`
	ReleaseDate      time.Time  `json:"releaseDate"`
	ReleaseCountry   string     `json:"releaseCountry,omitempty"`
	Runtime          int        `json:"runtime"`
	Genres           []string   `json:"genres,omitempty"`
	Comments         []string   `json:"comments"`
	IsWatchlist      bool       `json:"isWatchlist"`
	IsWatched        bool       `json:"isWatched"`
	IsFavorite       bool       `json:"isFavorite"`
	WatchingDate     *time.Time `json:"watchingDate,omitempty"`
	PersonalRating   int        `json:"personalRating"`
}

// MaxPersonalRating is the highest score a user can give; 0 means unrated.
const MaxPersonalRating = 9

// HasComment reports whether id is referenced by the movie.
func (m Movie) HasComment(id string) bool {
	for _, c := range m.Comments {
		if c == id {
			return true
		}
	}
	return false
}

// WithoutComment returns a copy of the movie with id removed from its comment list.
func (m Movie) WithoutComment(id string) Movie {
	out := make([]string, 0, len(m.Comments))
	for _, c := range m.Comments {
		if c != id {
			out = append(out, c)
		}
	}
	m.Comments = out
	return m
}

// Clone returns a deep copy so callers can mutate slices without aliasing.
func (m Movie) Clone() Movie {
	m.Writers = append([]string(nil), m.Writers...)
	m.Actors = append([]string(nil), m.Actors...)
	m.Genres = append([]string(nil), m.Genres...)
	m.Comments = append([]string{}, m.Comments...)
	if m.WatchingDate != nil {
		d := *m.WatchingDate
		m.WatchingDate = &d
	}
	return m
}
