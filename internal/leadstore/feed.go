package leadstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"broker-backoffice/internal/common/logger"
	"broker-backoffice/internal/models"

	"github.com/redis/go-redis/v9"
)

// ChangesChannel is the Redis channel carrying lead snapshots.
const ChangesChannel = "leads:changed"

type snapshotMessage struct {
	Leads       []models.Lead `json:"leads"`
	PublishedAt time.Time     `json:"publishedAt"`
}

// RedisFeed fans store changes out to every process over Redis pub/sub. Each
// message carries the full snapshot.
type RedisFeed struct {
	rdb    *redis.Client
	store  Store
	logger logger.Logger
}

func NewRedisFeed(rdb *redis.Client, store Store, log logger.Logger) *RedisFeed {
	return &RedisFeed{
		rdb:    rdb,
		store:  store,
		logger: log.WithFields(map[string]interface{}{"component": "lead-feed"}),
	}
}

// Publish reads the current snapshot and broadcasts it.
func (f *RedisFeed) Publish(ctx context.Context) error {
	leads, err := f.store.List(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(snapshotMessage{Leads: leads, PublishedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := f.rdb.Publish(ctx, ChangesChannel, raw).Err(); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

// Subscribe delivers the current snapshot, then every published one, until
// ctx is done. It returns once the subscription is live.
func (f *RedisFeed) Subscribe(ctx context.Context, fn SnapshotFunc) error {
	ps := f.rdb.Subscribe(ctx, ChangesChannel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("subscribe %s: %w", ChangesChannel, err)
	}

	leads, err := f.store.List(ctx)
	if err != nil {
		_ = ps.Close()
		return err
	}
	fn(leads)

	go func() {
		defer ps.Close()
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var snap snapshotMessage
				if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
					f.logger.Warn("dropping malformed snapshot", map[string]interface{}{"error": err.Error()})
					continue
				}
				fn(snap.Leads)
			}
		}
	}()
	return nil
}

// Publishing wraps store so every successful write is followed by a
// snapshot broadcast. Broadcast failures are logged only.
func (f *RedisFeed) Publishing(store Store) Store {
	return &publishingStore{Store: store, feed: f}
}

type publishingStore struct {
	Store
	feed *RedisFeed
}

func (p *publishingStore) publish(ctx context.Context) {
	if err := p.feed.Publish(ctx); err != nil {
		p.feed.logger.Warn("snapshot broadcast failed", map[string]interface{}{"error": err.Error()})
	}
}

func (p *publishingStore) Create(ctx context.Context, lead models.Lead) (models.Lead, error) {
	out, err := p.Store.Create(ctx, lead)
	if err == nil {
		p.publish(ctx)
	}
	return out, err
}

func (p *publishingStore) UpdateFields(ctx context.Context, id string, update models.LeadUpdate) error {
	err := p.Store.UpdateFields(ctx, id, update)
	if err == nil {
		p.publish(ctx)
	}
	return err
}

func (p *publishingStore) UpsertExternal(ctx context.Context, lead models.Lead) (models.Lead, bool, error) {
	out, created, err := p.Store.UpsertExternal(ctx, lead)
	if err == nil {
		p.publish(ctx)
	}
	return out, created, err
}
