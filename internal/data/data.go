package data

import (
	"context"
	"fmt"

	"github.com/lk2023060901/chat-gateway/internal/conf"
	"github.com/lk2023060901/chat-gateway/internal/media"
	"github.com/lk2023060901/chat-gateway/internal/pkg/logger"
	"github.com/lk2023060901/chat-gateway/internal/pkg/minio"
	"github.com/lk2023060901/chat-gateway/internal/pkg/redis"
	"go.uber.org/zap"
)

// Data holds the storage the media cache runs on
type Data struct {
	Store  media.Store
	Index  media.Index
	MinIO  *minio.Client
	Redis  *redis.Client
	Logger *logger.Logger
}

// Probe reports whether the cache may look for files saved before the index
// knew about them. Listing a bucket on every miss is too slow, so only the
// filesystem backend probes.
func (d *Data) Probe() bool {
	return d.MinIO == nil
}

func NewData(ctx context.Context, config *conf.Config, log *logger.Logger) (*Data, func(), error) {
	d := &Data{Logger: log}

	cleanup := func() {
		log.Info("cleaning up data resources")

		if d.Redis != nil {
			if err := d.Redis.Close(); err != nil {
				log.Warn("failed to close redis", zap.Error(err))
			}
		}

		if d.MinIO != nil {
			if err := d.MinIO.Close(); err != nil {
				log.Warn("failed to close minio", zap.Error(err))
			}
		}
	}

	// Initialize store
	switch config.Cache.Backend {
	case conf.BackendFS:
		d.Store = media.NewFSStore(config.Cache.DataDir, log)
	case conf.BackendMinIO:
		client, err := initMinIO(ctx, config, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init minio: %w", err)
		}
		d.MinIO = client
		d.Store = media.NewMinIOStore(client)
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", config.Cache.Backend)
	}

	// Initialize index
	switch config.Cache.Index {
	case conf.IndexMemory:
		d.Index = media.NewMemoryIndex()
	case conf.IndexRedis:
		client, err := initRedis(ctx, config, log)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		d.Redis = client
		d.Index = media.NewRedisIndex(client)
	default:
		cleanup()
		return nil, nil, fmt.Errorf("unknown cache index %q", config.Cache.Index)
	}

	log.Info("data layer initialized",
		zap.String("backend", config.Cache.Backend),
		zap.String("index", config.Cache.Index),
	)

	return d, cleanup, nil
}

func initMinIO(ctx context.Context, config *conf.Config, log *logger.Logger) (*minio.Client, error) {
	client, err := minio.NewClient(&config.MinIO, log.Named("minio").Logger)
	if err != nil {
		return nil, err
	}

	// Create bucket if not exists
	if err := client.EnsureBucket(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

func initRedis(ctx context.Context, config *conf.Config, log *logger.Logger) (*redis.Client, error) {
	client, err := redis.New(&config.Redis, log.Named("redis"))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}
