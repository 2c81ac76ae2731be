package prefkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/prefkit/pkg/store"
)

// Config selects the store backend and key prefix at startup. Fields are
// populated from environment variables; backend-specific settings live in
// their own structs (store.RedisConfig, store.PostgresConfig) and are parsed
// only when that backend is selected.
type Config struct {
	Backend   string `env:"PREFKIT_BACKEND" envDefault:"memory"` // memory, redis, or postgres
	KeyPrefix string `env:"PREFKIT_KEY_PREFIX" envDefault:""`
}

var dotenvOnce sync.Once

// LoadConfig loads the default .env file once per process, then parses the
// prefkit environment variables.
func LoadConfig() (Config, error) {
	dotenvOnce.Do(func() {
		// The .env file is optional.
		_ = godotenv.Load()
	})

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	return cfg, nil
}

// OpenStore builds the backend named by cfg.Backend and returns it together
// with a closer releasing everything OpenStore opened. A nil log defaults to
// slog.Default().
//
//	cfg, err := prefkit.LoadConfig()
//	...
//	st, closeStore, err := prefkit.OpenStore(ctx, cfg, nil)
//	...
//	defer closeStore()
//	prefkit.Default.Configure(st)
//	prefkit.Default.SetKeyPrefix(cfg.KeyPrefix)
func OpenStore(ctx context.Context, cfg Config, log *slog.Logger) (store.Store, func() error, error) {
	switch cfg.Backend {
	case "", "memory":
		s := store.NewMemoryStore()
		return s, s.Close, nil

	case "redis":
		var rc store.RedisConfig
		if err := env.Parse(&rc); err != nil {
			return nil, nil, errors.Join(ErrParsingConfig, err)
		}
		client, err := store.ConnectRedis(ctx, rc)
		if err != nil {
			return nil, nil, err
		}
		s, err := store.NewRedisStore(ctx, client, rc, log)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return s, func() error {
			return errors.Join(s.Close(), client.Close())
		}, nil

	case "postgres":
		var pc store.PostgresConfig
		if err := env.Parse(&pc); err != nil {
			return nil, nil, errors.Join(ErrParsingConfig, err)
		}
		pool, err := store.ConnectPostgres(ctx, pc)
		if err != nil {
			return nil, nil, err
		}
		s, err := store.NewPostgresStore(ctx, pool, pc, log)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return s, func() error {
			err := s.Close()
			pool.Close()
			return err
		}, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
