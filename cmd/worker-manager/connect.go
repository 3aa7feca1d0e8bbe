// cmd/worker-manager/connect.go
package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"broker-backoffice/internal/backoffice"
	"broker-backoffice/internal/common/camunda"
	"broker-backoffice/internal/common/config"
	"broker-backoffice/internal/common/database"
	"broker-backoffice/internal/common/logger"
	"broker-backoffice/internal/common/observability"
	"broker-backoffice/internal/leadstore"
	"broker-backoffice/internal/notify"
)

type retryPolicy struct {
	attempts int
	delay    time.Duration
}

var (
	postgresRetry = retryPolicy{attempts: 15, delay: 2 * time.Second}
	redisRetry    = retryPolicy{attempts: 10, delay: 2 * time.Second}
	searchRetry   = retryPolicy{attempts: 15, delay: 2 * time.Second}
	zeebeRetry    = retryPolicy{attempts: 10, delay: 2 * time.Second}
)

// backends holds the live connections opened at startup. Any of them may be
// nil when the backend is unconfigured or unreachable.
type backends struct {
	pg  *database.PostgresClient
	rdb *database.RedisClient
}

func (b *backends) Close() {
	if b.rdb != nil {
		_ = b.rdb.Close()
	}
	if b.pg != nil {
		_ = b.pg.Close()
	}
}

// connectPostgres returns nil and the last error when the database cannot be
// reached; a half-open client is closed before retrying.
func connectPostgres(ctx context.Context, cfg config.PostgresConfig, policy retryPolicy, zapLog *zap.Logger) (*database.PostgresClient, error) {
	var pg *database.PostgresClient
	err := retryWithBackoff(func() error {
		client, err := database.NewPostgres(cfg)
		if err != nil {
			return err
		}
		if err := client.Ping(ctx); err != nil {
			_ = client.Close()
			return err
		}
		if err := client.EnsureSchema(ctx); err != nil {
			_ = client.Close()
			return err
		}
		pg = client
		return nil
	}, policy.attempts, policy.delay, zapLog, "PostgreSQL connection")
	if err != nil {
		return nil, err
	}
	return pg, nil
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, policy retryPolicy, zapLog *zap.Logger) (*database.RedisClient, error) {
	var rdb *database.RedisClient
	err := retryWithBackoff(func() error {
		client, err := database.NewRedis(cfg)
		if err != nil {
			return err
		}
		if err := client.Ping(ctx); err != nil {
			_ = client.Close()
			return err
		}
		rdb = client
		return nil
	}, policy.attempts, policy.delay, zapLog, "Redis connection")
	if err != nil {
		return nil, err
	}
	return rdb, nil
}

func connectZeebe(address string, policy retryPolicy, zapLog *zap.Logger) (*camunda.Client, error) {
	var zeebe *camunda.Client
	err := retryWithBackoff(func() error {
		client, err := camunda.NewClient(address)
		if err != nil {
			return err
		}
		zeebe = client
		return nil
	}, policy.attempts, policy.delay, zapLog, "Zeebe client initialization")
	if err != nil {
		return nil, err
	}
	return zeebe, nil
}

// wireStorage connects Postgres, Redis and Elasticsearch into deps. A backend
// that stays unreachable is logged and left out, so backoffice.New falls back
// to its demo implementation and /ready reports the mode.
func wireStorage(ctx context.Context, cfg *config.Config, deps *backoffice.Dependencies, obs *observability.Observability, zapLog *zap.Logger, log logger.Logger) *backends {
	b := &backends{}

	if cfg.Database.Postgres.Configured() {
		pg, err := connectPostgres(ctx, cfg.Database.Postgres, postgresRetry, zapLog)
		if err != nil {
			zapLog.Warn("postgres unreachable, leads run on demo data", zap.Error(err))
		} else {
			zapLog.Info("PostgreSQL connected successfully")
			b.pg = pg
			deps.Store = leadstore.NewPostgresStore(pg.DB, obs)
			deps.Queue = notify.NewPostgresQueue(pg.DB)
		}
	} else {
		zapLog.Warn("PostgreSQL not configured, leads run on demo data")
	}

	if cfg.Database.Redis.Configured() {
		rdb, err := connectRedis(ctx, cfg.Database.Redis, redisRetry, zapLog)
		if err != nil {
			zapLog.Warn("redis unreachable, board feed and vault cache disabled", zap.Error(err))
		} else {
			zapLog.Info("Redis connected successfully")
			b.rdb = rdb
			if deps.Store != nil {
				feed := leadstore.NewRedisFeed(rdb.Client, deps.Store, log)
				deps.Store = feed.Publishing(deps.Store)
				deps.Feed = feed
			}
		}
	}

	if cfg.Database.Elasticsearch.Configured() {
		var esClient *database.ElasticsearchClient
		err := retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, searchRetry.attempts, searchRetry.delay, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Warn("elasticsearch unreachable, search falls back to the board", zap.Error(err))
		} else {
			index := cfg.Database.Elasticsearch.LeadIndex
			if index == "" {
				index = "leads"
			}
			if err := esClient.EnsureIndex(ctx, index, leadstore.LeadIndexMapping); err != nil {
				zapLog.Warn("lead index setup failed", zap.Error(err))
			}
			search := leadstore.NewElasticIndex(esClient.Client, index)
			deps.Search = search
			if deps.Store != nil {
				deps.Store = leadstore.NewIndexed(deps.Store, search, log)
			}
			zapLog.Info("Elasticsearch connected successfully", zap.String("index", index))
		}
	}

	return b
}
