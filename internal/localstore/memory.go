package localstore

import (
	"context"
	"sort"
	"sync"

	"github.com/Clark-Hu/cinemaddict/internal/domain"
)

// memoryBackend keeps everything in process memory. It is the fallback when the
// database cannot be used and lives only as long as the process.
type memoryBackend struct {
	mu      sync.Mutex
	records map[domain.Namespace]map[string]record
	queue   []domain.PendingOperation
	nextSeq int64
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{
		records: make(map[domain.Namespace]map[string]record),
		nextSeq: 1,
	}
}

func (m *memoryBackend) getAll(_ context.Context, ns domain.Namespace) ([]record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]record, 0, len(m.records[ns]))
	for _, rec := range m.records[ns] {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryBackend) put(_ context.Context, ns domain.Namespace, rec record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bucket(ns)[rec.ID] = rec
	return nil
}

func (m *memoryBackend) replace(_ context.Context, ns domain.Namespace, parentID *string, recs []record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket := m.bucket(ns)
	for id, rec := range bucket {
		if parentID == nil || rec.ParentID == *parentID {
			delete(bucket, id)
		}
	}
	for _, rec := range recs {
		bucket[rec.ID] = rec
	}
	return nil
}

func (m *memoryBackend) remove(_ context.Context, ns domain.Namespace, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bucket(ns), id)
	return nil
}

func (m *memoryBackend) enqueue(_ context.Context, op domain.PendingOperation) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op.Seq = m.nextSeq
	m.nextSeq++
	m.queue = append(m.queue, op)
	return op.Seq, nil
}

func (m *memoryBackend) pending(_ context.Context) ([]domain.PendingOperation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.PendingOperation(nil), m.queue...), nil
}

func (m *memoryBackend) updatePending(_ context.Context, op domain.PendingOperation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.queue {
		if m.queue[i].Seq == op.Seq {
			m.queue[i] = op
			return nil
		}
	}
	return nil
}

func (m *memoryBackend) ack(_ context.Context, seq int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.queue {
		if m.queue[i].Seq == seq {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memoryBackend) close() error { return nil }

func (m *memoryBackend) bucket(ns domain.Namespace) map[string]record {
	bucket, ok := m.records[ns]
	if !ok {
		bucket = make(map[string]record)
		m.records[ns] = bucket
	}
	return bucket
}

// restoreQueue seeds the queue with operations salvaged from another backend,
// keeping their sequence numbers so replay order survives degradation.
func (m *memoryBackend) restoreQueue(ops []domain.PendingOperation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append([]domain.PendingOperation(nil), ops...)
	for _, op := range ops {
		if op.Seq >= m.nextSeq {
			m.nextSeq = op.Seq + 1
		}
	}
}
