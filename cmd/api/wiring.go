package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/shadowcc/keyshop/internal/app"
	"github.com/shadowcc/keyshop/internal/clock"
	"github.com/shadowcc/keyshop/internal/config"
	"github.com/shadowcc/keyshop/internal/notify"
	"github.com/shadowcc/keyshop/internal/observability"
	"github.com/shadowcc/keyshop/internal/storage/postgres"
	"github.com/shadowcc/keyshop/internal/storage/redis"
	"github.com/shadowcc/keyshop/migrations"
)

const purgeInterval = time.Hour

type pingableKeyStore interface {
	app.KeyStore
	Ping(ctx context.Context) error
}

type storeSet struct {
	keys   pingableKeyStore
	orders app.OrderStore

	startBackground func(ctx context.Context)
	close           func()
}

func openStores(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *zap.Logger) (*storeSet, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		return openPostgres(ctx, cfg, clk, logger)
	default:
		return openRedis(ctx, cfg)
	}
}

func openRedis(ctx context.Context, cfg *config.Config) (*storeSet, error) {
	opts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := goredis.NewClient(opts)
	keys := redis.NewKeyStore(client, cfg.RedisKeyPrefix)
	if err := keys.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &storeSet{
		keys:            keys,
		orders:          redis.NewOrderStore(client, cfg.RedisKeyPrefix),
		startBackground: func(context.Context) {},
		close:           func() { _ = client.Close() },
	}, nil
}

func openPostgres(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *zap.Logger) (*storeSet, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if err := migrations.Apply(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	orders := postgres.NewOrderStore(pool, clk)
	return &storeSet{
		keys:   postgres.NewKeyStore(pool),
		orders: orders,
		startBackground: func(ctx context.Context) {
			go purgeExpiredOrders(ctx, orders, logger)
		},
		close: pool.Close,
	}, nil
}

// purgeExpiredOrders removes expired order rows. Redis expires keys on its own.
func purgeExpiredOrders(ctx context.Context, orders *postgres.OrderStore, logger *zap.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := orders.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("purge expired orders", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("purged expired orders", zap.Int64("count", n))
			}
		}
	}
}

func newNotifier(cfg *config.Config, tp trace.TracerProvider, logger *zap.Logger) (app.Notifier, func() error, error) {
	if cfg.Notifier != config.NotifierKafka {
		return notify.NewLogNotifier(logger.Named("notify")), func() error { return nil }, nil
	}

	writer, err := observability.NewTracedWriter(cfg.KafkaBrokers, cfg.KafkaNotifyTopic, tp)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka writer: %w", err)
	}
	n := notify.NewKafkaNotifier(writer, logger.Named("notify"))
	return n, n.Close, nil
}
