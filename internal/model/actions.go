package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/Clark-Hu/cinemaddict/internal/domain"
)

// ErrInvalidRating is returned by Rate for scores outside 0..domain.MaxPersonalRating.
var ErrInvalidRating = errors.New("model: invalid rating")

// ToggleWatchlist flips the watchlist flag of a movie and saves it.
func (m *MoviesModel) ToggleWatchlist(ctx context.Context, id string) (domain.Movie, error) {
	return m.mutate(ctx, id, func(movie *domain.Movie) error {
		movie.IsWatchlist = !movie.IsWatchlist
		return nil
	})
}

// ToggleWatched flips the watched flag. Marking a movie watched stamps WatchingDate;
// unmarking clears it.
func (m *MoviesModel) ToggleWatched(ctx context.Context, id string) (domain.Movie, error) {
	return m.mutate(ctx, id, func(movie *domain.Movie) error {
		movie.IsWatched = !movie.IsWatched
		if movie.IsWatched {
			at := m.now().UTC()
			movie.WatchingDate = &at
		} else {
			movie.WatchingDate = nil
		}
		return nil
	})
}

// ToggleFavorite flips the favorite flag.
func (m *MoviesModel) ToggleFavorite(ctx context.Context, id string) (domain.Movie, error) {
	return m.mutate(ctx, id, func(movie *domain.Movie) error {
		movie.IsFavorite = !movie.IsFavorite
		return nil
	})
}

// Rate sets the personal rating; 0 clears it.
func (m *MoviesModel) Rate(ctx context.Context, id string, score int) (domain.Movie, error) {
	if score < 0 || score > domain.MaxPersonalRating {
		return domain.Movie{}, fmt.Errorf("%w: %d is outside 0..%d", ErrInvalidRating, score, domain.MaxPersonalRating)
	}
	return m.mutate(ctx, id, func(movie *domain.Movie) error {
		movie.PersonalRating = score
		return nil
	})
}

// AddComment files a comment and attaches it to the loaded movie.
func (m *MoviesModel) AddComment(ctx context.Context, movieID string, comment domain.Comment) (domain.Comment, error) {
	if _, ok := m.Movie(movieID); !ok {
		return domain.Comment{}, fmt.Errorf("%w: %s", ErrUnknownMovie, movieID)
	}
	created, err := m.source.AddComment(ctx, movieID, comment)
	if err != nil {
		return domain.Comment{}, err
	}

	m.mu.Lock()
	if i := m.indexOf(movieID); i >= 0 && !m.movies[i].HasComment(created.ID) {
		m.movies[i].Comments = append(m.movies[i].Comments, created.ID)
	}
	m.comments[movieID] = append(m.comments[movieID], created)
	m.mu.Unlock()

	m.notify()
	return created, nil
}

// RemoveComment deletes a comment and detaches it from whichever loaded movie holds it.
func (m *MoviesModel) RemoveComment(ctx context.Context, commentID string) error {
	if err := m.source.DeleteComment(ctx, commentID); err != nil {
		return err
	}

	m.mu.Lock()
	for i := range m.movies {
		if m.movies[i].HasComment(commentID) {
			m.movies[i] = m.movies[i].WithoutComment(commentID)
		}
	}
	for movieID, comments := range m.comments {
		kept := comments[:0]
		for _, c := range comments {
			if c.ID != commentID {
				kept = append(kept, c)
			}
		}
		m.comments[movieID] = kept
	}
	m.mu.Unlock()

	m.notify()
	return nil
}

func (m *MoviesModel) mutate(ctx context.Context, id string, change func(*domain.Movie) error) (domain.Movie, error) {
	movie, ok := m.Movie(id)
	if !ok {
		return domain.Movie{}, fmt.Errorf("%w: %s", ErrUnknownMovie, id)
	}
	if err := change(&movie); err != nil {
		return domain.Movie{}, err
	}
	saved, err := m.source.SaveMovie(ctx, movie)
	if err != nil {
		return domain.Movie{}, err
	}

	// The catalog may have issued a new id for a locally created movie.
	m.mu.Lock()
	if i := m.indexOf(id); i >= 0 {
		m.movies[i] = saved.Clone()
	}
	if saved.ID != id {
		if comments, ok := m.comments[id]; ok {
			delete(m.comments, id)
			m.comments[saved.ID] = comments
		}
	}
	m.mu.Unlock()

	m.notify()
	return saved, nil
}
