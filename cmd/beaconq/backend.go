package main

import (
	"context"
	"io"

	"github.com/dogmatiq/beaconq/assetcache"
	"github.com/dogmatiq/beaconq/internal/x/bboltx"
	"github.com/dogmatiq/beaconq/queuestore"
	"github.com/dogmatiq/beaconq/queuestore/boltstore"
	"github.com/dogmatiq/beaconq/queuestore/redisstore"
	"github.com/dogmatiq/beaconq/queuestore/sqlstore"
	"github.com/dogmatiq/beaconq/queuestore/sqlstore/postgres"
	"github.com/dogmatiq/beaconq/queuestore/sqlstore/sqlite"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver
)

// backend is the storage used by the relay.
type backend struct {
	Persistence queuestore.Provider
	AssetCache  assetcache.Cache

	closers []io.Closer
}

// Close closes any resources opened by the backend.
func (b *backend) Close() error {
	var err error

	for _, c := range b.closers {
		err = multierr.Append(err, c.Close())
	}

	return err
}

// openBackend opens the storage described by cfg.
func openBackend(ctx context.Context, cfg relayConfig) (*backend, error) {
	switch cfg.Store {
	case sqliteStore:
		return &backend{
			Persistence: &sqlstore.DSNProvider{
				DriverName: "sqlite",
				DSN:        cfg.SQLDSN,
				Driver:     sqlite.Driver,
			},
			AssetCache: &assetcache.Memory{},
		}, nil

	case postgresStore:
		return &backend{
			Persistence: &sqlstore.DSNProvider{
				DriverName: "pgx",
				DSN:        cfg.SQLDSN,
				Driver:     postgres.Driver,
			},
			AssetCache: &assetcache.Memory{},
		}, nil

	case redisStore:
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})

		return &backend{
			Persistence: &redisstore.Provider{
				Client: client,
				Key:    cfg.RedisKey,
			},
			AssetCache: &assetcache.Memory{},
			closers:    []io.Closer{client},
		}, nil

	default:
		// The queue and the asset cache share a single database, as BoltDB
		// files can only be opened once.
		db, err := bboltx.Open(ctx, cfg.BoltPath, 0, nil)
		if err != nil {
			return nil, err
		}

		return &backend{
			Persistence: &boltstore.Provider{DB: db},
			AssetCache:  &assetcache.Bolt{DB: db},
			closers:     []io.Closer{db},
		}, nil
	}
}
