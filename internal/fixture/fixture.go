// Package fixture is an in-memory catalog seeded from a YAML file. It backs the catalog
// mock binary and the HTTP handler tests.
package fixture

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Clark-Hu/cinemaddict/internal/domain"
	"github.com/Clark-Hu/cinemaddict/internal/repository"
)

type file struct {
	Movies []movieEntry `yaml:"movies"`
}

type movieEntry struct {
	ID               string         `yaml:"id"`
	Title            string         `yaml:"title"`
	AlternativeTitle string         `yaml:"alternative_title"`
	TotalRating      float64        `yaml:"total_rating"`
	Poster           string         `yaml:"poster"`
	AgeRating        int            `yaml:"age_rating"`
	Director         string         `yaml:"director"`
	Writers          []string       `yaml:"writers"`
	Actors           []string       `yaml:"actors"`
	ReleaseDate      time.Time      `yaml:"release_date"`
	ReleaseCountry   string         `yaml:"release_country"`
	Runtime          int            `yaml:"runtime"`
	Genres           []string       `yaml:"genres"`
	Description      string         `yaml:"description"`
	Watchlist        bool           `yaml:"watchlist"`
	AlreadyWatched   bool           `yaml:"already_watched"`
	WatchingDate     *time.Time     `yaml:"watching_date"`
	Favorite         bool           `yaml:"favorite"`
	PersonalRating   int            `yaml:"personal_rating"`
	Comments         []commentEntry `yaml:"comments"`
}

type commentEntry struct {
	ID      string    `yaml:"id"`
	Author  string    `yaml:"author"`
	Text    string    `yaml:"comment"`
	Emotion string    `yaml:"emotion"`
	Date    time.Time `yaml:"date"`
}

// Catalog holds movies and comments in memory. It is safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	order    []string
	movies   map[string]domain.Movie
	comments map[string]domain.Comment
	newID    func() string
}

// Load reads a YAML fixture from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML fixture.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}

	var (
		movies   []domain.Movie
		comments []domain.Comment
	)
	for i, entry := range f.Movies {
		if strings.TrimSpace(entry.ID) == "" {
			return nil, fmt.Errorf("parse fixture: movie %d has no id", i)
		}
		movie := domain.Movie{
			ID:               entry.ID,
			Title:            entry.Title,
			AlternativeTitle: entry.AlternativeTitle,
			Poster:           entry.Poster,
			Description:      entry.Description,
			TotalRating:      entry.TotalRating,
			AgeRating:        entry.AgeRating,
			Director:         entry.Director,
			Writers:          entry.Writers,
			Actors:           entry.Actors,
			ReleaseDate:      entry.ReleaseDate.UTC(),
			ReleaseCountry:   entry.ReleaseCountry,
			Runtime:          entry.Runtime,
			Genres:           entry.Genres,
			IsWatchlist:      entry.Watchlist,
			IsWatched:        entry.AlreadyWatched,
			WatchingDate:     entry.WatchingDate,
			IsFavorite:       entry.Favorite,
			PersonalRating:   entry.PersonalRating,
		}
		for j, c := range entry.Comments {
			if strings.TrimSpace(c.ID) == "" {
				return nil, fmt.Errorf("parse fixture: comment %d of movie %s has no id", j, entry.ID)
			}
			comments = append(comments, domain.Comment{
				ID:      c.ID,
				MovieID: entry.ID,
				Author:  c.Author,
				Text:    c.Text,
				Emotion: domain.Emotion(c.Emotion),
				Date:    c.Date.UTC(),
			})
		}
		movies = append(movies, movie)
	}
	return New(movies, comments, nil), nil
}

// New builds a catalog from movies and comments. Movie comment references are derived from
// comments. newID issues ids for created entities and defaults to random UUIDs.
func New(movies []domain.Movie, comments []domain.Comment, newID func() string) *Catalog {
	if newID == nil {
		newID = uuid.NewString
	}
	c := &Catalog{
		movies:   make(map[string]domain.Movie, len(movies)),
		comments: make(map[string]domain.Comment, len(comments)),
		newID:    newID,
	}
	for _, m := range movies {
		m = m.Clone()
		m.Comments = []string{}
		c.order = append(c.order, m.ID)
		c.movies[m.ID] = m
	}
	sorted := append([]domain.Comment(nil), comments...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	for _, cm := range sorted {
		m, ok := c.movies[cm.MovieID]
		if !ok {
			continue
		}
		m.Comments = append(m.Comments, cm.ID)
		c.movies[cm.MovieID] = m
		c.comments[cm.ID] = cm
	}
	return c
}

// HealthCheck always succeeds.
func (c *Catalog) HealthCheck(context.Context) error {
	return nil
}

// List returns every movie in fixture order.
func (c *Catalog) List(context.Context) ([]domain.Movie, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Movie, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.movies[id].Clone())
	}
	return out, nil
}

// Persist updates the user's state of a known movie or adds an unknown one under a new id.
func (c *Catalog) Persist(_ context.Context, movie domain.Movie) (domain.Movie, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.movies[movie.ID]; ok {
		existing.IsWatchlist = movie.IsWatchlist
		existing.IsWatched = movie.IsWatched
		existing.WatchingDate = movie.WatchingDate
		existing.IsFavorite = movie.IsFavorite
		existing.PersonalRating = movie.PersonalRating
		c.movies[movie.ID] = existing
		return existing.Clone(), false, nil
	}

	created := movie.Clone()
	created.ID = c.newID()
	created.Comments = []string{}
	c.order = append(c.order, created.ID)
	c.movies[created.ID] = created
	return created.Clone(), true, nil
}

// ListByMovie returns a movie's comments oldest first.
func (c *Catalog) ListByMovie(_ context.Context, movieID string) ([]domain.Comment, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.movies[movieID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := make([]domain.Comment, 0, len(m.Comments))
	for _, id := range m.Comments {
		out = append(out, c.comments[id])
	}
	return out, nil
}

// Create files a comment under comment.MovieID with a new id.
func (c *Catalog) Create(_ context.Context, comment domain.Comment) (domain.Comment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.movies[comment.MovieID]
	if !ok {
		return domain.Comment{}, repository.ErrNotFound
	}
	comment.ID = c.newID()
	if comment.Date.IsZero() {
		comment.Date = time.Now().UTC()
	}
	c.comments[comment.ID] = comment
	m.Comments = append(m.Comments, comment.ID)
	c.movies[m.ID] = m
	return comment, nil
}

// Delete removes a comment and its reference from the owning movie.
func (c *Catalog) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	comment, ok := c.comments[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(c.comments, id)
	if m, ok := c.movies[comment.MovieID]; ok {
		c.movies[m.ID] = m.WithoutComment(id)
	}
	return nil
}
