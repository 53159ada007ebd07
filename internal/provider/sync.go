package provider

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/Clark-Hu/cinemaddict/internal/catalog"
	"github.com/Clark-Hu/cinemaddict/internal/domain"
)

// SyncReport summarizes one Synchronize pass.
type SyncReport struct {
	// Skipped is set when another pass was already running; nothing was replayed.
	Skipped  bool `json:"skipped"`
	Replayed int  `json:"replayed"`
	// Dropped lists operations the catalog rejected permanently.
	Dropped []domain.PendingOperation `json:"dropped,omitempty"`
	// DropErr combines the rejection of every dropped operation.
	DropErr   error `json:"-"`
	Remaining int   `json:"remaining"`
}

// Synchronize replays queued operations against the catalog in enqueue order.
//
// A pass stops at the first network or server failure, leaving that operation and the
// rest queued, and returns an error wrapping ErrSyncIncomplete. Rejected operations are
// dropped and reported without stopping the pass. Credential failures stop the pass
// and are returned as is. Only one pass runs at a time: a concurrent call returns a
// Skipped report immediately.
func (p *Provider) Synchronize(ctx context.Context) (SyncReport, error) {
	if !p.syncing.CompareAndSwap(false, true) {
		p.logger.Debug("synchronize already running")
		return SyncReport{Skipped: true}, nil
	}
	defer p.syncing.Store(false)

	// Queue bookkeeping is local and must not be skipped once the catalog has applied
	// an operation, so it ignores cancellation of ctx.
	local := context.WithoutCancel(ctx)

	report := SyncReport{}
	if p.Mode() == ModeOffline {
		report.Remaining = p.store.PendingCount(local)
		if report.Remaining > 0 {
			p.incomplete.Store(true)
			return report, fmt.Errorf("%w: provider is offline", ErrSyncIncomplete)
		}
		return report, nil
	}

	snapshot := p.store.Pending(local)
	if len(snapshot) == 0 {
		p.incomplete.Store(false)
		return report, nil
	}
	// Operations queued while this pass runs wait for the next one.
	lastSeq := snapshot[len(snapshot)-1].Seq
	p.logger.Info("synchronize started", "pending", len(snapshot))

	for {
		pending := p.store.Pending(local)
		if len(pending) == 0 || pending[0].Seq > lastSeq {
			break
		}
		if err := ctx.Err(); err != nil {
			p.incomplete.Store(true)
			report.Remaining = len(pending)
			p.logger.Warn("synchronize interrupted", "remaining", report.Remaining, "error", err)
			return report, fmt.Errorf("%w: %w", ErrSyncIncomplete, err)
		}
		// Re-read the head each time: an earlier replay may have remapped its ids.
		op := pending[0]

		err := p.replay(ctx, op)
		switch {
		case err == nil:
			report.Replayed++
			continue
		case ctx.Err() != nil:
			p.incomplete.Store(true)
			report.Remaining = len(pending)
			return report, fmt.Errorf("%w: %w", ErrSyncIncomplete, ctx.Err())
		case errors.Is(err, catalog.ErrAuth), catalog.IsTransient(err):
			p.incomplete.Store(true)
			report.Remaining = len(pending)
			p.logger.Warn("synchronize stopped", "op", op.String(), "remaining", report.Remaining, "error", err)
			return report, fmt.Errorf("%w: replay %s: %w", ErrSyncIncomplete, op, err)
		default:
			p.store.Ack(local, op.Seq)
			report.Dropped = append(report.Dropped, op)
			report.DropErr = multierr.Append(report.DropErr, fmt.Errorf("replay %s: %w", op, err))
			p.logger.Warn("dropping rejected operation", "op", op.String(), "error", err)
		}
	}

	p.incomplete.Store(false)
	report.Remaining = p.store.PendingCount(local)
	p.logger.Info("synchronize finished",
		"replayed", report.Replayed, "dropped", len(report.Dropped), "remaining", report.Remaining)
	return report, nil
}

// replay sends one operation to the catalog and, on success, acknowledges it and folds
// the canonical answer into the cache. The bookkeeping after a successful call runs
// without ctx's cancellation.
func (p *Provider) replay(ctx context.Context, op domain.PendingOperation) error {
	switch op.Namespace {
	case domain.NamespaceMovies:
		return p.replayMovie(ctx, op)
	case domain.NamespaceComments:
		return p.replayComment(ctx, op)
	default:
		return fmt.Errorf("%w: unknown namespace %q", errUnreplayable, op.Namespace)
	}
}

var errUnreplayable = errors.New("operation cannot be replayed")

func (p *Provider) replayMovie(ctx context.Context, op domain.PendingOperation) error {
	switch op.Kind {
	case domain.OpCreate, domain.OpUpdate:
	case domain.OpDelete:
		return fmt.Errorf("%w: movies cannot be deleted", errUnreplayable)
	default:
		return fmt.Errorf("%w: unknown kind %q", errUnreplayable, op.Kind)
	}

	movie, err := op.Movie()
	if err != nil {
		return fmt.Errorf("%w: %v", errUnreplayable, err)
	}
	saved, err := p.client.PersistMovie(ctx, movie)
	if err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.store.Ack(ctx, op.Seq)
	if p.hasPendingFor(ctx, domain.NamespaceMovies, movie.ID) {
		// A later snapshot of the same movie is still queued; keep the local view and
		// only carry over a new id.
		if saved.ID == "" || saved.ID == movie.ID {
			return nil
		}
		cached, ok := p.store.Movie(ctx, movie.ID)
		if !ok {
			cached = movie
		}
		cached.ID = saved.ID
		return p.adoptMovie(ctx, movie.ID, cached)
	}
	return p.adoptMovie(ctx, movie.ID, saved)
}

func (p *Provider) replayComment(ctx context.Context, op domain.PendingOperation) error {
	switch op.Kind {
	case domain.OpCreate:
		comment, err := op.Comment()
		if err != nil {
			return fmt.Errorf("%w: %v", errUnreplayable, err)
		}
		created, err := p.client.CreateComment(ctx, op.ParentID, comment)
		if err != nil {
			return err
		}
		created.MovieID = op.ParentID
		ctx = context.WithoutCancel(ctx)

		p.mu.Lock()
		defer p.mu.Unlock()
		p.store.Ack(ctx, op.Seq)
		if created.ID == "" {
			created.ID = comment.ID
		}
		if created.ID != comment.ID {
			p.store.RemoveItem(ctx, domain.NamespaceComments, comment.ID)
			p.store.RemapPending(ctx, domain.NamespaceComments, comment.ID, created.ID)
			if movie, ok := p.store.Movie(ctx, op.ParentID); ok {
				for i, id := range movie.Comments {
					if id == comment.ID {
						movie.Comments[i] = created.ID
					}
				}
				if err := p.store.PutMovie(ctx, movie); err != nil {
					return err
				}
			}
		}
		if err := p.store.PutComment(ctx, created); err != nil {
			return err
		}
		return p.attachComment(ctx, op.ParentID, created.ID)
	case domain.OpDelete:
		if err := p.client.DeleteComment(ctx, op.TargetID); err != nil {
			return err
		}
		ctx = context.WithoutCancel(ctx)
		p.mu.Lock()
		defer p.mu.Unlock()
		p.store.Ack(ctx, op.Seq)
		return p.detachComment(ctx, op.TargetID, op.ParentID)
	case domain.OpUpdate:
		return fmt.Errorf("%w: comments are never edited", errUnreplayable)
	default:
		return fmt.Errorf("%w: unknown kind %q", errUnreplayable, op.Kind)
	}
}

// hasPendingFor reports whether an operation on (ns, id) is still queued. Caller holds p.mu.
func (p *Provider) hasPendingFor(ctx context.Context, ns domain.Namespace, id string) bool {
	for _, op := range p.store.Pending(ctx) {
		if op.Namespace == ns && op.TargetID == id {
			return true
		}
	}
	return false
}
