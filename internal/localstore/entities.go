package localstore

import (
	"context"
	"encoding/json"

	"github.com/Clark-Hu/cinemaddict/internal/domain"
)

// Movies decodes the movies namespace. Undecodable snapshots are skipped and logged.
func (s *Store) Movies(ctx context.Context) map[string]domain.Movie {
	return decodeNamespace[domain.Movie](s, ctx, domain.NamespaceMovies)
}

// Comments decodes the comments namespace.
func (s *Store) Comments(ctx context.Context) map[string]domain.Comment {
	return decodeNamespace[domain.Comment](s, ctx, domain.NamespaceComments)
}

// Movie returns one cached movie.
func (s *Store) Movie(ctx context.Context, id string) (domain.Movie, bool) {
	m, ok := s.Movies(ctx)[id]
	return m, ok
}

// PutMovie caches a movie snapshot.
func (s *Store) PutMovie(ctx context.Context, m domain.Movie) error {
	return s.SetItem(ctx, domain.NamespaceMovies, m.ID, "", m)
}

// PutComment caches a comment snapshot under its movie.
func (s *Store) PutComment(ctx context.Context, c domain.Comment) error {
	return s.SetItem(ctx, domain.NamespaceComments, c.ID, c.MovieID, c)
}

// MovieEntries converts movies for SetAll.
func MovieEntries(movies []domain.Movie) []Entry {
	entries := make([]Entry, 0, len(movies))
	for _, m := range movies {
		entries = append(entries, Entry{ID: m.ID, Value: m})
	}
	return entries
}

// CommentEntries converts comments for ReplaceChildren or SetAll.
func CommentEntries(comments []domain.Comment) []Entry {
	entries := make([]Entry, 0, len(comments))
	for _, c := range comments {
		entries = append(entries, Entry{ID: c.ID, ParentID: c.MovieID, Value: c})
	}
	return entries
}

func decodeNamespace[T any](s *Store, ctx context.Context, ns domain.Namespace) map[string]T {
	raw := s.GetAll(ctx, ns)
	out := make(map[string]T, len(raw))
	for id, payload := range raw {
		var v T
		if err := json.Unmarshal(payload, &v); err != nil {
			s.logger.Warn("skipping undecodable record", "namespace", ns, "id", id, "error", err)
			continue
		}
		out[id] = v
	}
	return out
}
