package leadstore

import (
	"context"
	"sync"
	"time"

	apperrors "broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/models"

	"github.com/google/uuid"
)

// MemoryStore keeps leads in process. It backs demo mode and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	leads []models.Lead
	now   func() time.Time

	notifyMu    sync.Mutex
	subscribers map[int]SnapshotFunc
	nextSub     int
}

func NewMemoryStore(seed []models.Lead) *MemoryStore {
	s := &MemoryStore{now: time.Now, subscribers: make(map[int]SnapshotFunc)}
	for _, l := range seed {
		s.leads = append(s.leads, models.NormalizeLead(l).Clone())
	}
	models.SortByCreatedDesc(s.leads)
	return s
}

func (s *MemoryStore) List(ctx context.Context) ([]models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Lead, len(s.leads))
	for i, l := range s.leads {
		out[i] = l.Clone()
	}
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.leads[i].Clone(), nil
	}
	return models.Lead{}, apperrors.NewLeadNotFoundError(id)
}

func (s *MemoryStore) Create(ctx context.Context, lead models.Lead) (models.Lead, error) {
	s.mu.Lock()
	lead = models.NormalizeLead(lead)
	lead.ID = uuid.NewString()
	lead.CreatedAt = s.now()
	lead.UpdatedAt = lead.CreatedAt
	s.leads = append([]models.Lead{lead.Clone()}, s.leads...)
	s.mu.Unlock()

	s.notify()
	return lead, nil
}

func (s *MemoryStore) UpdateFields(ctx context.Context, id string, update models.LeadUpdate) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return apperrors.NewLeadNotFoundError(id)
	}
	update.Apply(&s.leads[i])
	s.leads[i].UpdatedAt = s.now()
	s.mu.Unlock()

	s.notify()
	return nil
}

func (s *MemoryStore) UpsertExternal(ctx context.Context, lead models.Lead) (models.Lead, bool, error) {
	if lead.ExternalID == "" {
		return models.Lead{}, false, apperrors.NewInvalidInputError("external id is required")
	}

	s.mu.Lock()
	for i := range s.leads {
		if s.leads[i].ExternalID != lead.ExternalID {
			continue
		}
		cur := &s.leads[i]
		cur.Name = lead.Name
		cur.ContactEmail = lead.ContactEmail
		cur.ContactPhone = lead.ContactPhone
		cur.ProductDetail = lead.ProductDetail
		cur.UpdatedAt = s.now()
		out := cur.Clone()
		s.mu.Unlock()
		s.notify()
		return out, false, nil
	}
	s.mu.Unlock()

	created, err := s.Create(ctx, lead)
	return created, true, err
}

// Subscribe delivers the current snapshot, then one per mutation. Delivery
// is serialized so subscribers never see snapshots out of order.
func (s *MemoryStore) Subscribe(ctx context.Context, fn SnapshotFunc) error {
	s.notifyMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	snap, _ := s.List(ctx)
	fn(snap)
	s.notifyMu.Unlock()

	go func() {
		<-ctx.Done()
		s.notifyMu.Lock()
		delete(s.subscribers, id)
		s.notifyMu.Unlock()
	}()
	return nil
}

func (s *MemoryStore) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if len(s.subscribers) == 0 {
		return
	}
	snap, _ := s.List(context.Background())
	for _, fn := range s.subscribers {
		fn(snap)
	}
}

func (s *MemoryStore) indexOf(id string) int {
	for i := range s.leads {
		if s.leads[i].ID == id {
			return i
		}
	}
	return -1
}
