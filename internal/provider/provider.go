// Package provider is the online/offline facade over the remote catalog. Reads and
// writes go to the catalog while it is reachable and fall back to the local cache and
// the pending-operation queue when it is not.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Clark-Hu/cinemaddict/internal/catalog"
	"github.com/Clark-Hu/cinemaddict/internal/domain"
	"github.com/Clark-Hu/cinemaddict/internal/localstore"
)

var (
	// ErrSyncIncomplete means a synchronize pass stopped early and left operations queued.
	ErrSyncIncomplete = errors.New("provider: synchronization incomplete")
	// ErrInvalid rejects input before it reaches the catalog or the queue.
	ErrInvalid = errors.New("provider: invalid input")
)

// Mode is the operating state of the provider.
type Mode int

const (
	ModeOnline Mode = iota
	ModeOffline
)

func (m Mode) String() string {
	switch m {
	case ModeOnline:
		return "online"
	case ModeOffline:
		return "offline"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Options tunes a Provider. Zero values are usable.
type Options struct {
	Logger       *slog.Logger
	ForceOffline bool
	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// Provider exposes the same read/write contract as catalog.Client, backed by the local
// store when the catalog cannot be used.
type Provider struct {
	client catalog.Client
	store  *localstore.Store
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	online       atomic.Bool
	forceOffline atomic.Bool
	syncing      atomic.Bool
	incomplete   atomic.Bool

	// mu serializes read-modify-write sequences on the local cache so optimistic
	// writes and the sync drain never interleave.
	mu sync.Mutex
}

// New wires a provider. It starts online; connectivity signals arrive via SetOnline.
func New(client catalog.Client, store *localstore.Store, opts Options) *Provider {
	p := &Provider{
		client: client,
		store:  store,
		logger: opts.Logger,
		now:    opts.Now,
		newID:  opts.NewID,
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("component", "provider")
	if p.now == nil {
		p.now = time.Now
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	p.online.Store(true)
	p.forceOffline.Store(opts.ForceOffline)
	return p
}

// Mode reports the effective operating mode.
func (p *Provider) Mode() Mode {
	if p.forceOffline.Load() || !p.online.Load() {
		return ModeOffline
	}
	return ModeOnline
}

// SetForceOffline pins the provider to offline mode regardless of connectivity. Lifting
// the pin while connected triggers Synchronize, like SetOnline does on reconnect.
func (p *Provider) SetForceOffline(ctx context.Context, force bool) (SyncReport, error) {
	if p.forceOffline.Swap(force) == force {
		return SyncReport{}, nil
	}
	p.logger.Info("force offline changed", "force_offline", force)
	if force || !p.online.Load() {
		return SyncReport{}, nil
	}
	return p.Synchronize(ctx)
}

// SetOnline records a connectivity signal. Regaining connectivity triggers Synchronize,
// whose report is returned; other transitions return an empty report.
func (p *Provider) SetOnline(ctx context.Context, online bool) (SyncReport, error) {
	was := p.online.Swap(online)
	if was == online {
		return SyncReport{}, nil
	}
	p.logger.Info("connectivity changed", "online", online)
	if !online || p.forceOffline.Load() {
		return SyncReport{}, nil
	}
	return p.Synchronize(ctx)
}

// IsSynchronized reports whether nothing is waiting for replay and the last pass
// completed.
func (p *Provider) IsSynchronized(ctx context.Context) bool {
	return !p.incomplete.Load() && p.store.PendingCount(ctx) == 0
}

// Status is a point-in-time view of the provider for display.
type Status struct {
	Mode          Mode   `json:"-"`
	ModeName      string `json:"mode"`
	Pending       int    `json:"pending"`
	Synchronized  bool   `json:"synchronized"`
	CacheDegraded bool   `json:"cacheDegraded"`
}

// Status snapshots mode, queue depth and cache health.
func (p *Provider) Status(ctx context.Context) Status {
	mode := p.Mode()
	pending := p.store.PendingCount(ctx)
	return Status{
		Mode:          mode,
		ModeName:      mode.String(),
		Pending:       pending,
		Synchronized:  pending == 0 && !p.incomplete.Load(),
		CacheDegraded: p.store.Degraded(),
	}
}

// GetFilms lists every movie. Online results refresh the cache; a network failure or
// offline mode serves the cache instead.
func (p *Provider) GetFilms(ctx context.Context) ([]domain.Movie, error) {
	switch p.Mode() {
	case ModeOnline:
		movies, err := p.client.FetchMovies(ctx)
		if err == nil {
			return p.mirrorMovies(ctx, movies)
		}
		if !errors.Is(err, catalog.ErrNetwork) {
			return nil, err
		}
		p.logger.Warn("catalog unreachable, serving cached movies", "error", err)
		return p.cachedMovies(ctx), nil
	case ModeOffline:
		return p.cachedMovies(ctx), nil
	default:
		return nil, fmt.Errorf("get films: unknown mode %v", p.Mode())
	}
}

// GetComments lists the comments of one movie with the same fallback rules as GetFilms.
// Movies that only exist locally are always served from the cache.
func (p *Provider) GetComments(ctx context.Context, movieID string) ([]domain.Comment, error) {
	mode := p.Mode()
	if domain.IsLocalID(movieID) {
		mode = ModeOffline
	}
	switch mode {
	case ModeOnline:
		comments, err := p.client.FetchComments(ctx, movieID)
		if err == nil {
			return p.mirrorComments(ctx, movieID, comments)
		}
		if !errors.Is(err, catalog.ErrNetwork) {
			return nil, err
		}
		p.logger.Warn("catalog unreachable, serving cached comments", "movie_id", movieID, "error", err)
		return p.cachedComments(ctx, movieID), nil
	case ModeOffline:
		return p.cachedComments(ctx, movieID), nil
	default:
		return nil, fmt.Errorf("get comments: unknown mode %v", mode)
	}
}

// SaveMovie persists a movie's user state. The returned movie is the catalog's canonical
// record when online and the local snapshot otherwise.
func (p *Provider) SaveMovie(ctx context.Context, movie domain.Movie) (domain.Movie, error) {
	if movie.ID == "" {
		return domain.Movie{}, fmt.Errorf("%w: movie id is required", ErrInvalid)
	}
	if movie.PersonalRating < 0 || movie.PersonalRating > domain.MaxPersonalRating {
		return domain.Movie{}, fmt.Errorf("%w: personal rating %d out of range", ErrInvalid, movie.PersonalRating)
	}
	movie = movie.Clone()

	switch p.Mode() {
	case ModeOnline:
		saved, err := p.client.PersistMovie(ctx, movie)
		if err == nil {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.supersedeMovieOps(ctx, movie.ID)
			if err := p.adoptMovie(ctx, movie.ID, saved); err != nil {
				return domain.Movie{}, err
			}
			return saved, nil
		}
		if !errors.Is(err, catalog.ErrNetwork) {
			return domain.Movie{}, err
		}
		p.logger.Warn("catalog unreachable, queueing movie", "movie_id", movie.ID, "error", err)
		return p.saveMovieOffline(ctx, movie)
	case ModeOffline:
		return p.saveMovieOffline(ctx, movie)
	default:
		return domain.Movie{}, fmt.Errorf("save movie: unknown mode %v", p.Mode())
	}
}

// AddComment files a comment under a movie. Offline comments get a local id that is
// replaced with the catalog's id on synchronization.
func (p *Provider) AddComment(ctx context.Context, movieID string, comment domain.Comment) (domain.Comment, error) {
	if movieID == "" {
		return domain.Comment{}, fmt.Errorf("%w: movie id is required", ErrInvalid)
	}
	if !comment.Emotion.Valid() {
		return domain.Comment{}, fmt.Errorf("%w: unknown emotion %q", ErrInvalid, comment.Emotion)
	}
	if strings.TrimSpace(comment.Text) == "" {
		return domain.Comment{}, fmt.Errorf("%w: comment text is empty", ErrInvalid)
	}
	comment.MovieID = movieID
	if comment.Date.IsZero() {
		comment.Date = p.now().UTC()
	}

	mode := p.Mode()
	if domain.IsLocalID(movieID) {
		mode = ModeOffline
	}
	switch mode {
	case ModeOnline:
		created, err := p.client.CreateComment(ctx, movieID, comment)
		if err == nil {
			created.MovieID = movieID
			p.mu.Lock()
			defer p.mu.Unlock()
			if err := p.store.PutComment(ctx, created); err != nil {
				return domain.Comment{}, err
			}
			if err := p.attachComment(ctx, movieID, created.ID); err != nil {
				return domain.Comment{}, err
			}
			return created, nil
		}
		if !errors.Is(err, catalog.ErrNetwork) {
			return domain.Comment{}, err
		}
		p.logger.Warn("catalog unreachable, queueing comment", "movie_id", movieID, "error", err)
		return p.addCommentOffline(ctx, comment)
	case ModeOffline:
		return p.addCommentOffline(ctx, comment)
	default:
		return domain.Comment{}, fmt.Errorf("add comment: unknown mode %v", mode)
	}
}

// DeleteComment removes a comment. Deleting a comment that never reached the catalog
// cancels its queued creation instead of queueing a delete.
func (p *Provider) DeleteComment(ctx context.Context, commentID string) error {
	if commentID == "" {
		return fmt.Errorf("%w: comment id is required", ErrInvalid)
	}
	movieID := ""
	if c, ok := p.store.Comments(ctx)[commentID]; ok {
		movieID = c.MovieID
	}

	mode := p.Mode()
	if domain.IsLocalID(commentID) {
		mode = ModeOffline
	}
	switch mode {
	case ModeOnline:
		err := p.client.DeleteComment(ctx, commentID)
		if err == nil {
			p.mu.Lock()
			defer p.mu.Unlock()
			return p.detachComment(ctx, commentID, movieID)
		}
		if !errors.Is(err, catalog.ErrNetwork) {
			return err
		}
		p.logger.Warn("catalog unreachable, queueing comment delete", "comment_id", commentID, "error", err)
		return p.deleteCommentOffline(ctx, commentID, movieID)
	case ModeOffline:
		return p.deleteCommentOffline(ctx, commentID, movieID)
	default:
		return fmt.Errorf("delete comment: unknown mode %v", mode)
	}
}

func (p *Provider) saveMovieOffline(ctx context.Context, movie domain.Movie) (domain.Movie, error) {
	op, err := domain.NewMovieOperation(movie, p.now())
	if err != nil {
		return domain.Movie{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.store.Enqueue(ctx, op); err != nil {
		return domain.Movie{}, err
	}
	if err := p.store.PutMovie(ctx, movie); err != nil {
		return domain.Movie{}, err
	}
	return movie, nil
}

func (p *Provider) addCommentOffline(ctx context.Context, comment domain.Comment) (domain.Comment, error) {
	comment.ID = domain.LocalIDPrefix + p.newID()
	op, err := domain.NewCommentCreate(comment, p.now())
	if err != nil {
		return domain.Comment{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.store.Enqueue(ctx, op); err != nil {
		return domain.Comment{}, err
	}
	if err := p.store.PutComment(ctx, comment); err != nil {
		return domain.Comment{}, err
	}
	if err := p.attachComment(ctx, comment.MovieID, comment.ID); err != nil {
		return domain.Comment{}, err
	}
	return comment, nil
}

func (p *Provider) deleteCommentOffline(ctx context.Context, commentID, movieID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if domain.IsLocalID(commentID) {
		for _, op := range p.store.Pending(ctx) {
			if op.Namespace == domain.NamespaceComments && op.Kind == domain.OpCreate && op.TargetID == commentID {
				p.store.Ack(ctx, op.Seq)
			}
		}
	} else if _, err := p.store.Enqueue(ctx, domain.NewCommentDelete(commentID, movieID, p.now())); err != nil {
		return err
	}
	return p.detachComment(ctx, commentID, movieID)
}

// attachComment appends a comment reference to its cached movie. Caller holds p.mu.
func (p *Provider) attachComment(ctx context.Context, movieID, commentID string) error {
	movie, ok := p.store.Movie(ctx, movieID)
	if !ok || movie.HasComment(commentID) {
		return nil
	}
	movie.Comments = append(movie.Comments, commentID)
	return p.store.PutMovie(ctx, movie)
}

// detachComment drops a comment from the cache and from its movie. Caller holds p.mu.
func (p *Provider) detachComment(ctx context.Context, commentID, movieID string) error {
	p.store.RemoveItem(ctx, domain.NamespaceComments, commentID)
	if movieID == "" {
		return nil
	}
	movie, ok := p.store.Movie(ctx, movieID)
	if !ok || !movie.HasComment(commentID) {
		return nil
	}
	return p.store.PutMovie(ctx, movie.WithoutComment(commentID))
}

// adoptMovie stores the catalog's canonical movie. When the catalog issued a new id the
// local record, its comments and every queued reference move to that id.
// Caller holds p.mu.
func (p *Provider) adoptMovie(ctx context.Context, sentID string, saved domain.Movie) error {
	if saved.ID == "" {
		saved.ID = sentID
	}
	if saved.ID != sentID {
		p.store.RemoveItem(ctx, domain.NamespaceMovies, sentID)
		for _, c := range p.store.Comments(ctx) {
			if c.MovieID != sentID {
				continue
			}
			c.MovieID = saved.ID
			if err := p.store.PutComment(ctx, c); err != nil {
				return err
			}
		}
		n := p.store.RemapPending(ctx, domain.NamespaceMovies, sentID, saved.ID)
		p.logger.Info("movie id remapped", "from", sentID, "to", saved.ID, "queued_rewritten", n)
	}
	return p.store.PutMovie(ctx, saved)
}

// supersedeMovieOps drops queued snapshots of a movie that an online write just replaced.
// Caller holds p.mu.
func (p *Provider) supersedeMovieOps(ctx context.Context, movieID string) {
	for _, op := range p.store.Pending(ctx) {
		if op.Namespace == domain.NamespaceMovies && op.TargetID == movieID {
			p.logger.Debug("dropping superseded operation", "op", op.String())
			p.store.Ack(ctx, op.Seq)
		}
	}
}

func (p *Provider) cachedMovies(ctx context.Context) []domain.Movie {
	cached := p.store.Movies(ctx)
	movies := make([]domain.Movie, 0, len(cached))
	for _, m := range cached {
		movies = append(movies, m)
	}
	sort.Slice(movies, func(i, j int) bool { return movies[i].ID < movies[j].ID })
	return movies
}

func (p *Provider) cachedComments(ctx context.Context, movieID string) []domain.Comment {
	comments := make([]domain.Comment, 0)
	for _, c := range p.store.Comments(ctx) {
		if c.MovieID == movieID {
			comments = append(comments, c)
		}
	}
	sortComments(comments)
	return comments
}

func sortComments(comments []domain.Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		if !comments[i].Date.Equal(comments[j].Date) {
			return comments[i].Date.Before(comments[j].Date)
		}
		return comments[i].ID < comments[j].ID
	})
}
