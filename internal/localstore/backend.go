package localstore

import (
	"context"
	"encoding/json"

	"github.com/Clark-Hu/cinemaddict/internal/domain"
)

type record struct {
	ID       string
	ParentID string
	Payload  json.RawMessage
}

// backend is the storage engine behind Store. Errors from a backend trigger degradation;
// they are never handed to Store callers.
type backend interface {
	getAll(ctx context.Context, ns domain.Namespace) ([]record, error)
	put(ctx context.Context, ns domain.Namespace, rec record) error
	replace(ctx context.Context, ns domain.Namespace, parentID *string, recs []record) error
	remove(ctx context.Context, ns domain.Namespace, id string) error

	enqueue(ctx context.Context, op domain.PendingOperation) (int64, error)
	pending(ctx context.Context) ([]domain.PendingOperation, error)
	updatePending(ctx context.Context, op domain.PendingOperation) error
	ack(ctx context.Context, seq int64) error

	close() error
}
