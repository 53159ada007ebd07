package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/cinemaddict/internal/domain"
)

// CommentsRepository provides helpers for movie comments.
type CommentsRepository struct {
	pool  *pgxpool.Pool
	newID func() string
}

const commentColumns = `id, movie_id, author, comment, emotion, created_at`

// ListByMovie returns the comments filed under a movie, oldest first.
func (r *CommentsRepository) ListByMovie(ctx context.Context, movieID string) ([]domain.Comment, error) {
	if err := r.movieExists(ctx, movieID); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM comments WHERE movie_id = $1 ORDER BY created_at, id`, commentColumns)
	rows, err := r.pool.Query(ctx, query, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Create files a comment under comment.MovieID with a newly issued id.
func (r *CommentsRepository) Create(ctx context.Context, comment domain.Comment) (domain.Comment, error) {
	if err := r.movieExists(ctx, comment.MovieID); err != nil {
		return domain.Comment{}, err
	}
	date := comment.Date
	if date.IsZero() {
		date = time.Now()
	}

	query := fmt.Sprintf(`
        INSERT INTO comments (id, movie_id, author, comment, emotion, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING %s
    `, commentColumns)
	row := r.pool.QueryRow(ctx, query, r.newID(), comment.MovieID, comment.Author, comment.Text, string(comment.Emotion), date.UTC())
	return scanComment(row)
}

// Delete removes a comment. Deleting a missing comment returns ErrNotFound.
func (r *CommentsRepository) Delete(ctx context.Context, id string) error {
	var deleted string
	err := r.pool.QueryRow(ctx, `DELETE FROM comments WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (r *CommentsRepository) movieExists(ctx context.Context, movieID string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM movies WHERE id = $1)`, movieID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

func scanComment(row pgx.Row) (domain.Comment, error) {
	var (
		comment domain.Comment
		emotion string
		date    time.Time
	)
	if err := row.Scan(&comment.ID, &comment.MovieID, &comment.Author, &comment.Text, &emotion, &date); err != nil {
		return domain.Comment{}, err
	}
	comment.Emotion = domain.Emotion(emotion)
	comment.Date = date.UTC()
	return comment, nil
}
