package localstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Clark-Hu/cinemaddict/internal/domain"
)

// Enqueue appends op to the pending queue and returns it with its assigned sequence.
// Sequences strictly increase, so Pending always returns enqueue order.
func (s *Store) Enqueue(ctx context.Context, op domain.PendingOperation) (domain.PendingOperation, error) {
	if op.Kind == "" || op.Namespace == "" || op.TargetID == "" {
		return domain.PendingOperation{}, fmt.Errorf("enqueue: incomplete operation %s", op)
	}
	s.run(ctx, "enqueue", func(b backend) error {
		seq, err := b.enqueue(ctx, op)
		if err != nil {
			return err
		}
		op.Seq = seq
		return nil
	})
	if op.Seq == 0 {
		return domain.PendingOperation{}, fmt.Errorf("enqueue %s: %w", op, ErrStorageUnavailable)
	}
	s.logger.Debug("operation queued", "op", op.String())
	return op, nil
}

// Pending returns queued operations in enqueue order.
func (s *Store) Pending(ctx context.Context) []domain.PendingOperation {
	var ops []domain.PendingOperation
	s.run(ctx, "pending", func(b backend) error {
		var err error
		ops, err = b.pending(ctx)
		return err
	})
	return ops
}

// PendingCount returns the queue length.
func (s *Store) PendingCount(ctx context.Context) int {
	return len(s.Pending(ctx))
}

// UpdatePending rewrites a queued operation in place, keeping its position.
func (s *Store) UpdatePending(ctx context.Context, op domain.PendingOperation) {
	s.run(ctx, "update pending", func(b backend) error { return b.updatePending(ctx, op) })
}

// Ack removes a replayed (or dropped) operation from the queue.
func (s *Store) Ack(ctx context.Context, seq int64) {
	s.run(ctx, "ack", func(b backend) error { return b.ack(ctx, seq) })
}

// RemapPending rewrites queued operations after the catalog replaced a locally issued
// id: targets, parent references and ids embedded in payloads all move to newID.
// It returns the number of operations rewritten.
func (s *Store) RemapPending(ctx context.Context, ns domain.Namespace, oldID, newID string) int {
	if oldID == newID {
		return 0
	}
	rewritten := 0
	for _, op := range s.Pending(ctx) {
		next, changed := remapOperation(op, ns, oldID, newID)
		if !changed {
			continue
		}
		s.UpdatePending(ctx, next)
		rewritten++
	}
	return rewritten
}

func remapOperation(op domain.PendingOperation, ns domain.Namespace, oldID, newID string) (domain.PendingOperation, bool) {
	changed := false
	if op.Namespace == ns && op.TargetID == oldID {
		op.TargetID = newID
		changed = true
	}

	if ns == domain.NamespaceMovies && op.Namespace == domain.NamespaceComments && op.ParentID == oldID {
		op.ParentID = newID
		changed = true
	}

	if len(op.Payload) == 0 {
		return op, changed
	}

	switch op.Namespace {
	case domain.NamespaceMovies:
		m, err := op.Movie()
		if err != nil {
			return op, changed
		}
		touched := false
		if ns == domain.NamespaceMovies && m.ID == oldID {
			m.ID = newID
			touched = true
		}
		if ns == domain.NamespaceComments {
			for i, id := range m.Comments {
				if id == oldID {
					m.Comments[i] = newID
					touched = true
				}
			}
		}
		if touched {
			if payload, err := json.Marshal(m); err == nil {
				op.Payload = payload
				changed = true
			}
		}
	case domain.NamespaceComments:
		c, err := op.Comment()
		if err != nil {
			return op, changed
		}
		touched := false
		if ns == domain.NamespaceComments && c.ID == oldID {
			c.ID = newID
			touched = true
		}
		if ns == domain.NamespaceMovies && c.MovieID == oldID {
			c.MovieID = newID
			touched = true
		}
		if touched {
			if payload, err := json.Marshal(c); err == nil {
				op.Payload = payload
				changed = true
			}
		}
	}
	return op, changed
}
