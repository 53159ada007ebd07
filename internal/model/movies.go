// Package model holds the application state: the loaded movies, their comments and the
// active filter, with the user actions that mutate them through the provider.
package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Clark-Hu/cinemaddict/internal/domain"
)

// ErrUnknownMovie is returned for actions on a movie that is not loaded.
var ErrUnknownMovie = errors.New("model: unknown movie")

// Source is the data access the model needs; provider.Provider satisfies it.
type Source interface {
	GetFilms(ctx context.Context) ([]domain.Movie, error)
	GetComments(ctx context.Context, movieID string) ([]domain.Comment, error)
	SaveMovie(ctx context.Context, movie domain.Movie) (domain.Movie, error)
	AddComment(ctx context.Context, movieID string, comment domain.Comment) (domain.Comment, error)
	DeleteComment(ctx context.Context, commentID string) error
}

// Options configures a MoviesModel.
type Options struct {
	Logger *slog.Logger
	Now    func() time.Time
	// CommentWorkers bounds concurrent comment fetches during Load.
	CommentWorkers int
}

// MoviesModel is owned by the caller and passed explicitly; it is safe for concurrent use.
type MoviesModel struct {
	source  Source
	logger  *slog.Logger
	now     func() time.Time
	workers int

	mu       sync.RWMutex
	movies   []domain.Movie
	comments map[string][]domain.Comment
	filter   FilterName
	handlers []func()
}

// New creates an empty model over source.
func New(source Source, opts Options) *MoviesModel {
	m := &MoviesModel{
		source:   source,
		logger:   opts.Logger,
		now:      opts.Now,
		workers:  opts.CommentWorkers,
		comments: make(map[string][]domain.Comment),
		filter:   FilterAll,
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.workers <= 0 {
		m.workers = 4
	}
	return m
}

// LoadMovies fetches the movie list only.
func (m *MoviesModel) LoadMovies(ctx context.Context) error {
	movies, err := m.source.GetFilms(ctx)
	if err != nil {
		return fmt.Errorf("load movies: %w", err)
	}
	m.SetMovies(movies)
	return nil
}

// Load fetches every movie, then the comments of all of them concurrently.
func (m *MoviesModel) Load(ctx context.Context) error {
	movies, err := m.source.GetFilms(ctx)
	if err != nil {
		return fmt.Errorf("load movies: %w", err)
	}

	results := make([][]domain.Comment, len(movies))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, movie := range movies {
		i, movie := i, movie
		g.Go(func() error {
			comments, err := m.source.GetComments(gctx, movie.ID)
			if err != nil {
				return fmt.Errorf("load comments for %s: %w", movie.ID, err)
			}
			results[i] = comments
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	byMovie := make(map[string][]domain.Comment, len(movies))
	for i, movie := range movies {
		byMovie[movie.ID] = results[i]
	}

	m.mu.Lock()
	m.movies = movies
	m.comments = byMovie
	m.mu.Unlock()

	m.logger.Debug("model loaded", "movies", len(movies))
	m.notify()
	return nil
}

// SetMovies replaces the loaded movies.
func (m *MoviesModel) SetMovies(movies []domain.Movie) {
	m.mu.Lock()
	m.movies = cloneMovies(movies)
	m.mu.Unlock()
	m.notify()
}

// SetComments replaces the comments of one movie.
func (m *MoviesModel) SetComments(movieID string, comments []domain.Comment) {
	m.mu.Lock()
	m.comments[movieID] = append([]domain.Comment(nil), comments...)
	m.mu.Unlock()
	m.notify()
}

// Movies returns every loaded movie in catalog order.
func (m *MoviesModel) Movies() []domain.Movie {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneMovies(m.movies)
}

// Movie returns one loaded movie.
func (m *MoviesModel) Movie(id string) (domain.Movie, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.indexOf(id); i >= 0 {
		return m.movies[i].Clone(), true
	}
	return domain.Movie{}, false
}

// Comments returns the loaded comments of a movie.
func (m *MoviesModel) Comments(movieID string) []domain.Comment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Comment(nil), m.comments[movieID]...)
}

// Filter returns the active filter.
func (m *MoviesModel) Filter() FilterName {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filter
}

// SetFilter changes the active filter.
func (m *MoviesModel) SetFilter(f FilterName) {
	m.mu.Lock()
	m.filter = f
	m.mu.Unlock()
	m.notify()
}

// View returns the movies matching the active filter in the given order.
func (m *MoviesModel) View(sortType SortType) []domain.Movie {
	return SortMovies(FilterMovies(m.Movies(), m.Filter()), sortType)
}

// OnChange registers a callback run after every state change.
func (m *MoviesModel) OnChange(fn func()) {
	m.mu.Lock()
	m.handlers = append(m.handlers, fn)
	m.mu.Unlock()
}

// UpdateMovie replaces a loaded movie by id. It reports false if the movie is unknown.
func (m *MoviesModel) UpdateMovie(movie domain.Movie) bool {
	m.mu.Lock()
	i := m.indexOf(movie.ID)
	if i >= 0 {
		m.movies[i] = movie.Clone()
	}
	m.mu.Unlock()
	if i >= 0 {
		m.notify()
	}
	return i >= 0
}

func (m *MoviesModel) notify() {
	m.mu.RLock()
	handlers := append([]func(){}, m.handlers...)
	m.mu.RUnlock()
	for _, fn := range handlers {
		fn()
	}
}

// indexOf finds a movie by id. Caller holds m.mu.
func (m *MoviesModel) indexOf(id string) int {
	for i := range m.movies {
		if m.movies[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneMovies(movies []domain.Movie) []domain.Movie {
	out := make([]domain.Movie, len(movies))
	for i, movie := range movies {
		out[i] = movie.Clone()
	}
	return out
}
