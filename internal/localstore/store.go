package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Clark-Hu/cinemaddict/internal/domain"
)

// ErrStorageUnavailable is logged when the durable backend fails and the store falls
// back to process memory for the rest of the session.
var ErrStorageUnavailable = errors.New("localstore: storage unavailable")

var namespaces = []domain.Namespace{domain.NamespaceMovies, domain.NamespaceComments}

// Options controls where and how the cache is persisted.
type Options struct {
	// DataPath is the directory holding the database file. Empty means memory only.
	DataPath string
	Logger   *slog.Logger
	// Now overrides the clock used for record timestamps.
	Now func() time.Time
}

// Entry is one entity to be written into a namespace.
type Entry struct {
	ID       string
	ParentID string
	Value    interface{}
}

// Store is the namespaced local cache plus the durable queue of pending operations.
// Reads never fail: a broken backend degrades to memory and is logged once.
type Store struct {
	mu       sync.RWMutex
	backend  backend
	degraded bool
	logger   *slog.Logger
}

// Open initializes the store under opts.DataPath. If the database cannot be opened the
// store starts degraded instead of failing.
func Open(ctx context.Context, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &Store{logger: logger.With("component", "localstore")}

	if opts.DataPath == "" {
		s.backend = newMemoryBackend()
		s.logger.Info("using in-memory cache")
		return s
	}

	db, err := openSQLite(ctx, opts.DataPath, now)
	if err != nil {
		s.backend = newMemoryBackend()
		s.degraded = true
		s.logger.Error("falling back to in-memory cache",
			"error", fmt.Errorf("%w: %v", ErrStorageUnavailable, err), "path", opts.DataPath)
		return s
	}
	s.backend = db
	s.logger.Info("cache opened", "path", opts.DataPath)
	return s
}

// Close releases the backend.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.close()
}

// Degraded reports whether the store lost its durable backend this session.
func (s *Store) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// GetAll returns every record of a namespace keyed by id. Missing namespaces and
// storage failures both yield an empty map.
func (s *Store) GetAll(ctx context.Context, ns domain.Namespace) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage)
	var recs []record
	s.run(ctx, "get all", func(b backend) error {
		var err error
		recs, err = b.getAll(ctx, ns)
		return err
	})
	for _, rec := range recs {
		out[rec.ID] = rec.Payload
	}
	return out
}

// SetItem writes one entity. The only error is an entity that cannot be encoded.
func (s *Store) SetItem(ctx context.Context, ns domain.Namespace, id, parentID string, value interface{}) error {
	rec, err := encode(Entry{ID: id, ParentID: parentID, Value: value})
	if err != nil {
		return err
	}
	s.run(ctx, "set item", func(b backend) error { return b.put(ctx, ns, rec) })
	return nil
}

// SetAll replaces a namespace wholesale.
func (s *Store) SetAll(ctx context.Context, ns domain.Namespace, entries []Entry) error {
	recs, err := encodeAll(entries)
	if err != nil {
		return err
	}
	s.run(ctx, "set all", func(b backend) error { return b.replace(ctx, ns, nil, recs) })
	return nil
}

// ReplaceChildren replaces only the records of ns whose parent is parentID.
func (s *Store) ReplaceChildren(ctx context.Context, ns domain.Namespace, parentID string, entries []Entry) error {
	recs, err := encodeAll(entries)
	if err != nil {
		return err
	}
	for i := range recs {
		recs[i].ParentID = parentID
	}
	s.run(ctx, "replace children", func(b backend) error { return b.replace(ctx, ns, &parentID, recs) })
	return nil
}

// RemoveItem deletes one record; removing a missing record is a no-op.
func (s *Store) RemoveItem(ctx context.Context, ns domain.Namespace, id string) {
	s.run(ctx, "remove item", func(b backend) error { return b.remove(ctx, ns, id) })
}

// run executes fn against the current backend. On failure the store degrades to memory
// (once) and fn is retried there so the caller's write is not lost. A failure caused by
// the caller's cancellation does not degrade the store; the call is abandoned and logged.
func (s *Store) run(ctx context.Context, op string, fn func(backend) error) {
	s.mu.RLock()
	b := s.backend
	s.mu.RUnlock()

	err := fn(b)
	if err == nil {
		return
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.logger.Warn("cache call abandoned", "op", op, "error", ctxErr)
		return
	}

	mem := s.degrade(ctx, op, b, err)
	if retryErr := fn(mem); retryErr != nil {
		s.logger.Error("in-memory cache failed", "op", op, "error", retryErr)
	}
}

func (s *Store) degrade(ctx context.Context, op string, failed backend, cause error) backend {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backend != failed {
		// Another call already switched backends.
		return s.backend
	}

	mem := newMemoryBackend()
	for _, ns := range namespaces {
		if recs, err := failed.getAll(ctx, ns); err == nil {
			_ = mem.replace(ctx, ns, nil, recs)
		}
	}
	if ops, err := failed.pending(ctx); err == nil {
		mem.restoreQueue(ops)
	}
	_ = failed.close()

	s.backend = mem
	s.degraded = true
	s.logger.Error("falling back to in-memory cache",
		"op", op, "error", fmt.Errorf("%w: %v", ErrStorageUnavailable, cause))
	return mem
}

func encode(e Entry) (record, error) {
	payload, err := json.Marshal(e.Value)
	if err != nil {
		return record{}, fmt.Errorf("encode %s: %w", e.ID, err)
	}
	return record{ID: e.ID, ParentID: e.ParentID, Payload: payload}, nil
}

func encodeAll(entries []Entry) ([]record, error) {
	recs := make([]record, 0, len(entries))
	for _, e := range entries {
		rec, err := encode(e)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
