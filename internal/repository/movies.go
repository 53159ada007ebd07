package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/cinemaddict/internal/domain"
)

// MoviesRepository provides persistence helpers for movie entities.
type MoviesRepository struct {
	pool  *pgxpool.Pool
	newID func() string
}

const movieColumns = `
    m.id,
    m.title,
    m.alternative_title,
    m.total_rating,
    m.poster,
    m.age_rating,
    m.director,
    m.writers,
    m.actors,
    m.release_date,
    m.release_country,
    m.runtime,
    m.genres,
    m.description,
    m.watchlist,
    m.already_watched,
    m.watching_date,
    m.favorite,
    m.personal_rating,
    COALESCE((SELECT array_agg(c.id ORDER BY c.created_at, c.id) FROM comments c WHERE c.movie_id = m.id), '{}')
`

// List returns every movie ordered by creation.
func (r *MoviesRepository) List(ctx context.Context) ([]domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies m ORDER BY m.created_at, m.id`, movieColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Movie, 0)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// GetByID fetches a movie by its identifier.
func (r *MoviesRepository) GetByID(ctx context.Context, id string) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies m WHERE m.id = $1`, movieColumns)
	movie, err := scanMovie(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Movie{}, ErrNotFound
		}
		return domain.Movie{}, err
	}
	return movie, nil
}

// Persist stores the user's state for an existing movie. A movie the catalog has never seen
// is inserted whole under a newly issued id, and created is true. The stored record is returned.
func (r *MoviesRepository) Persist(ctx context.Context, movie domain.Movie) (stored domain.Movie, created bool, err error) {
	const update = `
        UPDATE movies
        SET watchlist = $2,
            already_watched = $3,
            watching_date = $4,
            favorite = $5,
            personal_rating = $6,
            updated_at = now()
        WHERE id = $1
        RETURNING id
    `
	var id string
	err = r.pool.QueryRow(ctx, update,
		movie.ID,
		movie.IsWatchlist,
		movie.IsWatched,
		movie.WatchingDate,
		movie.IsFavorite,
		movie.PersonalRating,
	).Scan(&id)
	switch {
	case err == nil:
	case errors.Is(err, pgx.ErrNoRows):
		id, err = r.insert(ctx, movie)
		if err != nil {
			return domain.Movie{}, false, err
		}
		created = true
	default:
		return domain.Movie{}, false, err
	}

	stored, err = r.GetByID(ctx, id)
	return stored, created, err
}

func (r *MoviesRepository) insert(ctx context.Context, movie domain.Movie) (string, error) {
	const insert = `
        INSERT INTO movies (
            id, title, alternative_title, total_rating, poster, age_rating, director,
            writers, actors, release_date, release_country, runtime, genres, description,
            watchlist, already_watched, watching_date, favorite, personal_rating
        )
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
        RETURNING id
    `
	releaseDate := movie.ReleaseDate
	if releaseDate.IsZero() {
		releaseDate = time.Unix(0, 0).UTC()
	}
	var id string
	err := r.pool.QueryRow(ctx, insert,
		r.newID(),
		strings.TrimSpace(movie.Title),
		movie.AlternativeTitle,
		movie.TotalRating,
		movie.Poster,
		movie.AgeRating,
		movie.Director,
		nonNil(movie.Writers),
		nonNil(movie.Actors),
		releaseDate,
		movie.ReleaseCountry,
		movie.Runtime,
		nonNil(movie.Genres),
		movie.Description,
		movie.IsWatchlist,
		movie.IsWatched,
		movie.WatchingDate,
		movie.IsFavorite,
		movie.PersonalRating,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert movie: %w", err)
	}
	return id, nil
}

func scanMovie(row pgx.Row) (domain.Movie, error) {
	var (
		movie        domain.Movie
		releaseDate  time.Time
		watchingDate *time.Time
	)

	err := row.Scan(
		&movie.ID,
		&movie.Title,
		&movie.AlternativeTitle,
		&movie.TotalRating,
		&movie.Poster,
		&movie.AgeRating,
		&movie.Director,
		&movie.Writers,
		&movie.Actors,
		&releaseDate,
		&movie.ReleaseCountry,
		&movie.Runtime,
		&movie.Genres,
		&movie.Description,
		&movie.IsWatchlist,
		&movie.IsWatched,
		&watchingDate,
		&movie.IsFavorite,
		&movie.PersonalRating,
		&movie.Comments,
	)
	if err != nil {
		return domain.Movie{}, err
	}

	movie.ReleaseDate = releaseDate.UTC()
	if watchingDate != nil {
		d := watchingDate.UTC()
		movie.WatchingDate = &d
	}
	if movie.Comments == nil {
		movie.Comments = []string{}
	}
	return movie, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
