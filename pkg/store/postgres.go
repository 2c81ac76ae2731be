package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds the connection and change-propagation settings for a
// postgres-backed store. Fields are populated from environment variables via
// github.com/caarlos0/env.
type PostgresConfig struct {
	ConnectionString string        `env:"PREFKIT_PG_CONN_URL,required"`
	MaxOpenConns     int32         `env:"PREFKIT_PG_MAX_OPEN_CONNS" envDefault:"5"`
	RetryAttempts    int           `env:"PREFKIT_PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval    time.Duration `env:"PREFKIT_PG_RETRY_INTERVAL" envDefault:"5s"`
	Table            string        `env:"PREFKIT_PG_TABLE" envDefault:"prefkit_values"`            // table holding (key, value) rows
	ChangeChannel    string        `env:"PREFKIT_PG_CHANGE_CHANNEL" envDefault:"prefkit_changes"` // LISTEN/NOTIFY channel carrying change events
}

// ConnectPostgres establishes a postgres connection pool using the provided
// configuration, retrying with a linearly growing backoff until the database
// becomes available.
func ConnectPostgres(ctx context.Context, cfg PostgresConfig) (*pgxpool.Pool, error) {
	connConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrFailedToParsePostgresConfig, err)
	}
	connConfig.MaxConns = cfg.MaxOpenConns

	for i := 0; i < max(cfg.RetryAttempts, 1); i++ {
		pool, err := pgxpool.NewWithConfig(ctx, connConfig)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrPostgresNotReady, ctx.Err())
		case <-time.After(time.Duration(i+1) * cfg.RetryInterval):
		}
	}

	return nil, ErrPostgresNotReady
}

// PostgresStore is a postgres-backed implementation of [Store]. Values live
// in a single (key, value) table; change events propagate through
// LISTEN/NOTIFY, so writes performed by other processes sharing the same
// channel are observed as well.
//
// A dedicated connection is held for the lifetime of the store to run LISTEN;
// observers are notified from its receive goroutine. NOTIFY is issued in the
// same transaction as the write, so notifications follow commit order.
type PostgresStore struct {
	pool    *pgxpool.Pool
	table   pgx.Identifier
	channel string
	log     *slog.Logger

	mu       sync.Mutex
	defaults map[string]string
	closed   bool

	observers *registry

	listener *pgxpool.Conn
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewPostgresStore creates a store over an established connection pool,
// ensures the value table exists, and starts the LISTEN loop. The caller
// keeps ownership of the pool. A nil log defaults to slog.Default().
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, cfg PostgresConfig, log *slog.Logger) (*PostgresStore, error) {
	if log == nil {
		log = slog.Default()
	}

	table := pgx.Identifier{cfg.Table}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (key TEXT PRIMARY KEY, value TEXT NOT NULL)`, table.Sanitize())
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return nil, errors.Join(ErrPostgresNotReady, err)
	}

	listener, err := pool.Acquire(ctx)
	if err != nil {
		return nil, errors.Join(ErrPostgresNotReady, err)
	}
	if _, err := listener.Exec(ctx, "LISTEN "+pgx.Identifier{cfg.ChangeChannel}.Sanitize()); err != nil {
		listener.Release()
		return nil, errors.Join(ErrPostgresNotReady, err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	s := &PostgresStore{
		pool:      pool,
		table:     table,
		channel:   cfg.ChangeChannel,
		log:       log,
		defaults:  make(map[string]string),
		observers: newRegistry(),
		listener:  listener,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go s.receive(listenCtx)
	return s, nil
}

// Read returns the effective value for key.
func (s *PostgresStore) Read(ctx context.Context, key string) (string, bool, error) {
	var v string
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.table.Sanitize())
	err := s.pool.QueryRow(ctx, query, key).Scan(&v)
	switch {
	case err == nil:
		return v, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		s.mu.Lock()
		d, ok := s.defaults[key]
		s.mu.Unlock()
		return d, ok, nil
	default:
		return "", false, err
	}
}

// Write upserts value under key and issues NOTIFY in the same transaction.
func (s *PostgresStore) Write(ctx context.Context, key, value string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }() // no-op after commit

	var old string
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1 FOR UPDATE`, s.table.Sanitize())
	if err := tx.QueryRow(ctx, query, key).Scan(&old); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		s.mu.Lock()
		old = s.defaults[key]
		s.mu.Unlock()
	}

	upsert := fmt.Sprintf(`INSERT INTO %s (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, s.table.Sanitize())
	if _, err := tx.Exec(ctx, upsert, key, value); err != nil {
		return err
	}
	if err := s.notify(ctx, tx, Change{Key: key, Old: old, New: value}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Delete removes the written value for key and issues NOTIFY if a written
// value existed.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }() // no-op after commit

	var old string
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1 RETURNING value`, s.table.Sanitize())
	if err := tx.QueryRow(ctx, query, key).Scan(&old); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tx.Commit(ctx)
		}
		return err
	}

	s.mu.Lock()
	next := s.defaults[key]
	s.mu.Unlock()
	if err := s.notify(ctx, tx, Change{Key: key, Old: old, New: next}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Observe registers onChange for changes to key.
func (s *PostgresStore) Observe(key string, onChange ObserveFunc) (Registration, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	return s.observers.add(key, onChange), nil
}

// RegisterDefaults merges defaults into the store's process-local default
// layer. Defaults are not written to postgres.
func (s *PostgresStore) RegisterDefaults(defaults map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for k, v := range defaults {
		s.defaults[k] = v
	}
	return nil
}

// Close stops the LISTEN loop and releases the listener connection back to
// the pool. The pool itself is left open for the caller to close. Safe to
// call multiple times.
func (s *PostgresStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	<-s.done
	s.listener.Release()
	return nil
}

func (s *PostgresStore) notify(ctx context.Context, tx pgx.Tx, c Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `SELECT pg_notify($1, $2)`, s.channel, string(payload))
	return err
}

func (s *PostgresStore) receive(ctx context.Context) {
	defer close(s.done)
	for {
		n, err := s.listener.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() == nil {
				// Listener connection failed outside of shutdown. Observers
				// keep their registrations but stop receiving events; a new
				// store must be constructed to resume.
				s.log.Error("prefkit: change listener stopped",
					slog.String("channel", s.channel),
					slog.String("error", err.Error()))
			}
			return
		}

		var c Change
		if err := json.Unmarshal([]byte(n.Payload), &c); err != nil {
			s.log.Warn("prefkit: dropping malformed change event",
				slog.String("channel", s.channel),
				slog.String("error", err.Error()))
			continue
		}
		s.observers.deliver(c)
	}
}
