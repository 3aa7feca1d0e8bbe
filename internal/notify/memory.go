package notify

import (
	"context"
	"sort"
	"sync"
	"time"

	"broker-backoffice/internal/models"

	"github.com/google/uuid"
)

type MemoryQueue struct {
	mu      sync.Mutex
	records map[string]models.EmailRecord
	now     func() time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{records: make(map[string]models.EmailRecord), now: time.Now}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, rec models.EmailRecord) (models.EmailRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	rec.ID = uuid.NewString()
	rec.Status = models.EmailPending
	rec.CreatedAt = q.now()
	q.records[rec.ID] = rec
	return rec, nil
}

func (q *MemoryQueue) Get(ctx context.Context, id string) (models.EmailRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	rec, ok := q.records[id]
	if !ok {
		return models.EmailRecord{}, ErrRecordNotFound
	}
	return rec, nil
}

func (q *MemoryQueue) Pending(ctx context.Context, limit int) ([]models.EmailRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []models.EmailRecord
	for _, rec := range q.records {
		if rec.Status == models.EmailPending {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (q *MemoryQueue) MarkSent(ctx context.Context, id string) error {
	return q.update(id, func(rec *models.EmailRecord) {
		at := q.now()
		rec.Status = models.EmailSent
		rec.SentAt = &at
		rec.Error = ""
	})
}

func (q *MemoryQueue) MarkFailed(ctx context.Context, id string, reason string) error {
	return q.update(id, func(rec *models.EmailRecord) {
		rec.Status = models.EmailFailed
		rec.Error = reason
	})
}

func (q *MemoryQueue) update(id string, fn func(*models.EmailRecord)) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	rec, ok := q.records[id]
	if !ok {
		return ErrRecordNotFound
	}
	fn(&rec)
	q.records[id] = rec
	return nil
}
