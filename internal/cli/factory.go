// Package cli assembles engines, stores and clients from configuration for
// the tabula command.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/tabula"
	"github.com/aretw0/tabula/internal/config"
	"github.com/aretw0/tabula/pkg/adapters/file"
	tabulahttp "github.com/aretw0/tabula/pkg/adapters/http"
	"github.com/aretw0/tabula/pkg/adapters/memory"
	"github.com/aretw0/tabula/pkg/adapters/postgres"
	"github.com/aretw0/tabula/pkg/adapters/process"
	"github.com/aretw0/tabula/pkg/adapters/redis"
	"github.com/aretw0/tabula/pkg/persistence/middleware"
	"github.com/aretw0/tabula/pkg/ports"
)

// lockPrefix namespaces session locks in Redis.
const lockPrefix = "tabula:"

// NewEngine builds the configured engine transport.
// The local engine is returned as nil so that tabula.New wires it to the client's sink.
func NewEngine(cfg config.EngineConfig, logger *slog.Logger) (ports.Engine, error) {
	switch cfg.Kind {
	case config.EngineLocal, "":
		return nil, nil
	case config.EngineProcess:
		engine, err := process.New(process.Config{Command: cfg.Command, Args: cfg.Args}, process.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return engine, nil
	case config.EngineHTTP:
		var opts []tabulahttp.ClientOption
		if cfg.Timeout > 0 {
			opts = append(opts, tabulahttp.WithTimeout(cfg.Timeout))
		}
		return tabulahttp.NewClient(cfg.URL, opts...), nil
	}
	return nil, fmt.Errorf("unknown engine kind %q", cfg.Kind)
}

// NewStore builds the configured snapshot store. Redis stores come with a
// distributed locker sharing the same connection; other kinds return a nil locker.
// With an encryption key the store is wrapped so sessions are sealed at rest.
func NewStore(ctx context.Context, cfg config.StoreConfig) (ports.SnapshotStore, ports.DistributedLocker, error) {
	store, locker, err := openStore(ctx, cfg)
	if err != nil || cfg.EncryptionKey == "" {
		return store, locker, err
	}
	mw, err := encryption(cfg)
	if err != nil {
		closeStore(store)
		return nil, nil, err
	}
	return mw(store), locker, nil
}

func encryption(cfg config.StoreConfig) (middleware.Middleware, error) {
	active, err := middleware.ParseKey(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("store.encryption_key: %w", err)
	}
	mwCfg := middleware.EncryptionConfig{ActiveKey: active}
	for i, k := range cfg.FallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return nil, fmt.Errorf("store.fallback_keys[%d]: %w", i, err)
		}
		mwCfg.FallbackKeys = append(mwCfg.FallbackKeys, key)
	}
	return middleware.NewEncryption(mwCfg)
}

func openStore(ctx context.Context, cfg config.StoreConfig) (ports.SnapshotStore, ports.DistributedLocker, error) {
	switch cfg.Kind {
	case config.StoreMemory:
		return memory.NewStore(), nil, nil
	case config.StoreFile, "":
		path := cfg.Path
		if path == "" {
			path = file.DefaultDir
		}
		return file.New(path), nil, nil
	case config.StoreRedis:
		var opts []redis.Option
		if cfg.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.TTL))
		}
		store := redis.New(cfg.RedisAddr, "", 0, opts...)
		if err := store.Client().Ping(ctx).Err(); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		return store, redis.NewLocker(store.Client(), lockPrefix), nil
	case config.StorePostgres:
		store, err := postgres.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
}

// NewClient builds a client for cfg. Extra options are applied after the
// configured ones. The caller owns the client and must Close it.
func NewClient(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...tabula.Option) (*tabula.Client, error) {
	engine, err := NewEngine(cfg.Engine, logger)
	if err != nil {
		return nil, err
	}
	store, locker, err := NewStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	clientOpts := []tabula.Option{tabula.WithLogger(logger), tabula.WithStore(store)}
	if engine != nil {
		clientOpts = append(clientOpts, tabula.WithEngine(engine))
	}
	if locker != nil {
		clientOpts = append(clientOpts, tabula.WithLocker(locker))
	}
	clientOpts = append(clientOpts, opts...)

	client, err := tabula.New(ctx, clientOpts...)
	if err != nil {
		closeStore(store)
		return nil, err
	}
	logger.Debug("client ready", "engine", cfg.Engine.Kind, "store", cfg.Store.Kind)
	return client, nil
}

func closeStore(store ports.SnapshotStore) {
	if c, ok := store.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}
