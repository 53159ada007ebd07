package provider

import (
	"context"

	"github.com/Clark-Hu/cinemaddict/internal/domain"
	"github.com/Clark-Hu/cinemaddict/internal/localstore"
)

// mirrorMovies caches a fresh catalog listing. Operations still waiting in the queue are
// applied on top first so a refresh never hides a local write.
func (p *Provider) mirrorMovies(ctx context.Context, movies []domain.Movie) ([]domain.Movie, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	merged := overlayMovies(movies, p.store.Pending(ctx))
	if err := p.store.SetAll(ctx, domain.NamespaceMovies, localstore.MovieEntries(merged)); err != nil {
		return nil, err
	}
	return merged, nil
}

// mirrorComments caches one movie's comments, leaving other movies' comments intact.
func (p *Provider) mirrorComments(ctx context.Context, movieID string, comments []domain.Comment) ([]domain.Comment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range comments {
		comments[i].MovieID = movieID
	}
	merged := overlayComments(movieID, comments, p.store.Pending(ctx))
	if err := p.store.ReplaceChildren(ctx, domain.NamespaceComments, movieID, localstore.CommentEntries(merged)); err != nil {
		return nil, err
	}
	return merged, nil
}

func overlayMovies(movies []domain.Movie, pending []domain.PendingOperation) []domain.Movie {
	out := make([]domain.Movie, 0, len(movies))
	index := make(map[string]int, len(movies))
	for _, m := range movies {
		if m.Comments == nil {
			m.Comments = []string{}
		}
		index[m.ID] = len(out)
		out = append(out, m)
	}

	for _, op := range pending {
		switch op.Namespace {
		case domain.NamespaceMovies:
			m, err := op.Movie()
			if err != nil {
				continue
			}
			if i, ok := index[m.ID]; ok {
				out[i] = m
				continue
			}
			index[m.ID] = len(out)
			out = append(out, m)
		case domain.NamespaceComments:
			i, ok := index[op.ParentID]
			if !ok {
				continue
			}
			switch op.Kind {
			case domain.OpCreate:
				if !out[i].HasComment(op.TargetID) {
					out[i].Comments = append(out[i].Comments, op.TargetID)
				}
			case domain.OpDelete:
				out[i] = out[i].WithoutComment(op.TargetID)
			case domain.OpUpdate:
			}
		}
	}
	return out
}

func overlayComments(movieID string, comments []domain.Comment, pending []domain.PendingOperation) []domain.Comment {
	byID := make(map[string]domain.Comment, len(comments))
	order := make([]string, 0, len(comments))
	for _, c := range comments {
		byID[c.ID] = c
		order = append(order, c.ID)
	}

	for _, op := range pending {
		if op.Namespace != domain.NamespaceComments || op.ParentID != movieID {
			continue
		}
		switch op.Kind {
		case domain.OpCreate:
			c, err := op.Comment()
			if err != nil {
				continue
			}
			if _, ok := byID[c.ID]; !ok {
				order = append(order, c.ID)
			}
			byID[c.ID] = c
		case domain.OpDelete:
			delete(byID, op.TargetID)
		case domain.OpUpdate:
		}
	}

	out := make([]domain.Comment, 0, len(byID))
	for _, id := range order {
		if c, ok := byID[id]; ok {
			out = append(out, c)
			delete(byID, id)
		}
	}
	return out
}
