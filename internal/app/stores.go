package app

import (
	"context"

	"github.com/MrWong99/voxdrill/internal/config"
	"github.com/MrWong99/voxdrill/pkg/kv"
	"github.com/MrWong99/voxdrill/pkg/kv/memory"
	"github.com/MrWong99/voxdrill/pkg/kv/mongo"
	"github.com/MrWong99/voxdrill/pkg/kv/postgres"
	"github.com/MrWong99/voxdrill/pkg/kv/redis"
	"github.com/MrWong99/voxdrill/pkg/kv/sqlite"
)

// DefaultMongoDatabase is used when store.database is empty.
const DefaultMongoDatabase = "voxdrill"

// NewStoreRegistry returns a registry with every built-in backend.
func NewStoreRegistry() *config.Registry {
	reg := config.NewRegistry()
	RegisterBuiltinStores(reg)
	return reg
}

// RegisterBuiltinStores registers the memory, sqlite, postgres, redis and
// mongo backends on reg.
func RegisterBuiltinStores(reg *config.Registry) {
	reg.RegisterStore(config.BackendMemory, func(context.Context, config.StoreConfig) (kv.Store, error) {
		return memory.New(), nil
	})
	reg.RegisterStore(config.BackendSQLite, func(ctx context.Context, cfg config.StoreConfig) (kv.Store, error) {
		return sqlite.Open(ctx, cfg.Path)
	})
	reg.RegisterStore(config.BackendPostgres, func(ctx context.Context, cfg config.StoreConfig) (kv.Store, error) {
		return postgres.New(ctx, cfg.DSN)
	})
	reg.RegisterStore(config.BackendRedis, func(ctx context.Context, cfg config.StoreConfig) (kv.Store, error) {
		var opts []redis.Option
		if cfg.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.TTL))
		}
		return redis.New(ctx, cfg.Addr, cfg.Password, cfg.DB, opts...)
	})
	reg.RegisterStore(config.BackendMongo, func(ctx context.Context, cfg config.StoreConfig) (kv.Store, error) {
		database := cfg.Database
		if database == "" {
			database = DefaultMongoDatabase
		}
		return mongo.New(ctx, cfg.URI, database, cfg.Collection)
	})
}
