package vault

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"broker-backoffice/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// CachedSource memoizes folder listings in Redis. Cache errors are logged
// and the wrapped source is used.
type CachedSource struct {
	source Source
	rdb    *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedSource(source Source, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedSource{source: source, rdb: rdb, ttl: ttl, logger: log}
}

// CacheKey is vault:folder:<id>, suffixed with the page token for later pages.
func CacheKey(folderID, pageToken string) string {
	key := "vault:folder:" + folderID
	if pageToken != "" {
		key += ":" + pageToken
	}
	return key
}

func (c *CachedSource) List(ctx context.Context, folderID, pageToken string) (Page, error) {
	key := CacheKey(folderID, pageToken)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var page Page
		if jsonErr := json.Unmarshal(raw, &page); jsonErr == nil {
			return page, nil
		}
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("vault cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}

	page, err := c.source.List(ctx, folderID, pageToken)
	if err != nil {
		return Page{}, err
	}

	if raw, err := json.Marshal(page); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("vault cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}
	return page, nil
}

// Invalidate drops the cached first page of folderID.
func (c *CachedSource) Invalidate(ctx context.Context, folderID string) error {
	return c.rdb.Del(ctx, CacheKey(folderID, "")).Err()
}
