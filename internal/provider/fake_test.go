package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/cinemaddict/internal/catalog"
	"github.com/Clark-Hu/cinemaddict/internal/domain"
	"github.com/Clark-Hu/cinemaddict/internal/localstore"
	"github.com/Clark-Hu/cinemaddict/internal/logger"
)

var testNow = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

// fakeCatalog is an in-memory catalog that behaves like the real service: unknown movie
// ids are created under a server id, comment ids are issued sequentially.
type fakeCatalog struct {
	mu       sync.Mutex
	movies   map[string]domain.Movie
	order    []string
	comments map[string]domain.Comment
	nextID   int

	// failures are consumed in order per operation name; a nil entry lets one call through.
	failures  map[string][]error
	calls     []string
	persisted []domain.Movie
	deleted   []string

	// block, when set, parks PersistMovie until released.
	block   chan struct{}
	entered chan struct{}

	// applied, when set, runs after a write has been applied.
	applied func(op string)
}

func newFakeCatalog(movies ...domain.Movie) *fakeCatalog {
	f := &fakeCatalog{
		movies:   make(map[string]domain.Movie),
		comments: make(map[string]domain.Comment),
		failures: make(map[string][]error),
	}
	for _, m := range movies {
		if m.Comments == nil {
			m.Comments = []string{}
		}
		f.movies[m.ID] = m
		f.order = append(f.order, m.ID)
	}
	return f
}

func (f *fakeCatalog) failWith(op string, classes ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, class := range classes {
		var err error
		if class != nil {
			err = &catalog.Error{Op: op, Err: class}
		}
		f.failures[op] = append(f.failures[op], err)
	}
}

func (f *fakeCatalog) enter(op string) error {
	f.calls = append(f.calls, op)
	if queued := f.failures[op]; len(queued) > 0 {
		f.failures[op] = queued[1:]
		return queued[0]
	}
	return nil
}

func (f *fakeCatalog) FetchMovies(context.Context) ([]domain.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("fetch movies"); err != nil {
		return nil, err
	}
	out := make([]domain.Movie, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.movies[id].Clone())
	}
	return out, nil
}

func (f *fakeCatalog) FetchComments(_ context.Context, movieID string) ([]domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("fetch comments"); err != nil {
		return nil, err
	}
	m, ok := f.movies[movieID]
	if !ok {
		return nil, &catalog.Error{Op: "fetch comments", Status: 404, Err: catalog.ErrValidation}
	}
	out := make([]domain.Comment, 0, len(m.Comments))
	for _, id := range m.Comments {
		out = append(out, f.comments[id])
	}
	return out, nil
}

func (f *fakeCatalog) PersistMovie(_ context.Context, movie domain.Movie) (domain.Movie, error) {
	f.mu.Lock()
	block, entered := f.block, f.entered
	f.mu.Unlock()
	if block != nil {
		entered <- struct{}{}
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.persisted = append(f.persisted, movie.Clone())
	if err := f.enter("persist movie"); err != nil {
		return domain.Movie{}, err
	}
	stored, ok := f.movies[movie.ID]
	if !ok {
		f.nextID++
		stored = movie.Clone()
		stored.ID = fmt.Sprintf("srv-%d", f.nextID)
		stored.TotalRating = 5.5
		f.order = append(f.order, stored.ID)
	}
	stored.IsWatchlist = movie.IsWatchlist
	stored.IsWatched = movie.IsWatched
	stored.IsFavorite = movie.IsFavorite
	stored.WatchingDate = movie.WatchingDate
	stored.PersonalRating = movie.PersonalRating
	if stored.Comments == nil {
		stored.Comments = []string{}
	}
	f.movies[stored.ID] = stored
	if f.applied != nil {
		f.applied("persist movie")
	}
	return stored.Clone(), nil
}

func (f *fakeCatalog) CreateComment(_ context.Context, movieID string, comment domain.Comment) (domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("create comment"); err != nil {
		return domain.Comment{}, err
	}
	m, ok := f.movies[movieID]
	if !ok {
		return domain.Comment{}, &catalog.Error{Op: "create comment", Status: 404, Err: catalog.ErrValidation}
	}
	f.nextID++
	comment.ID = fmt.Sprintf("c-%d", f.nextID)
	comment.MovieID = movieID
	f.comments[comment.ID] = comment
	m.Comments = append(m.Comments, comment.ID)
	f.movies[movieID] = m
	if f.applied != nil {
		f.applied("create comment")
	}
	return comment, nil
}

func (f *fakeCatalog) DeleteComment(_ context.Context, commentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, commentID)
	if err := f.enter("delete comment"); err != nil {
		return err
	}
	c, ok := f.comments[commentID]
	if !ok {
		return &catalog.Error{Op: "delete comment", Status: 404, Err: catalog.ErrValidation}
	}
	delete(f.comments, commentID)
	f.movies[c.MovieID] = f.movies[c.MovieID].WithoutComment(commentID)
	return nil
}

func (f *fakeCatalog) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enter("ping")
}

func (f *fakeCatalog) movie(id string) (domain.Movie, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.movies[id]
	return m, ok
}

func (f *fakeCatalog) snapshot() map[string]domain.Movie {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]domain.Movie, len(f.movies))
	for id, m := range f.movies {
		out[id] = m.Clone()
	}
	return out
}

func (f *fakeCatalog) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeCatalog) commentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.comments)
}

func (f *fakeCatalog) persistedMovies() []domain.Movie {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Movie(nil), f.persisted...)
}

type harness struct {
	provider *Provider
	store    *localstore.Store
	catalog  *fakeCatalog
}

func newHarness(t *testing.T, fake *fakeCatalog, forceOffline bool) harness {
	t.Helper()
	store := localstore.Open(context.Background(), localstore.Options{
		DataPath: t.TempDir(),
		Logger:   logger.Discard(),
		Now:      func() time.Time { return testNow },
	})
	t.Cleanup(func() { _ = store.Close() })
	require.False(t, store.Degraded())

	ids := 0
	p := New(fake, store, Options{
		Logger:       logger.Discard(),
		ForceOffline: forceOffline,
		Now:          func() time.Time { return testNow },
		NewID: func() string {
			ids++
			return fmt.Sprintf("%d", ids)
		},
	})
	return harness{provider: p, store: store, catalog: fake}
}

func sortedIDs(movies map[string]domain.Movie) []string {
	ids := make([]string, 0, len(movies))
	for id := range movies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func seedMovies() []domain.Movie {
	return []domain.Movie{
		{ID: "m1", Title: "The Dance of Life", Runtime: 115, TotalRating: 8.3, Comments: []string{}},
		{ID: "m2", Title: "Sagebrush Trail", Runtime: 54, TotalRating: 3.2, Comments: []string{}},
	}
}
