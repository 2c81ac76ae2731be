package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection and change-propagation settings for a
// redis-backed store. Fields are populated from environment variables via
// github.com/caarlos0/env.
type RedisConfig struct {
	ConnectionURL  string        `env:"PREFKIT_REDIS_URL" envDefault:"redis://localhost:6379/0"` // URL in the format "redis://:password@localhost:6379/0"
	RetryAttempts  int           `env:"PREFKIT_REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"PREFKIT_REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"PREFKIT_REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
	KeyPrefix      string        `env:"PREFKIT_REDIS_KEY_PREFIX" envDefault:"prefkit:"`            // prepended to every stored key
	ChangeChannel  string        `env:"PREFKIT_REDIS_CHANGE_CHANNEL" envDefault:"prefkit:changes"` // pub/sub channel carrying change events
}

// ConnectRedis establishes a connection to a redis server using the provided
// configuration, retrying up to cfg.RetryAttempts times with cfg.RetryInterval
// between attempts.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opt, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisConnString, err)
	}

	for i := 0; i < max(cfg.RetryAttempts, 1); i++ {
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, ErrRedisNotReady
}

// RedisStore is a redis-backed implementation of [Store]. Values live in
// plain redis strings under cfg.KeyPrefix; change events are fanned out over
// a pub/sub channel, so writes performed by other processes sharing the same
// channel are observed as well.
//
// Local observers are notified from the pub/sub receive goroutine, which
// means even a local write round-trips through redis before its notification
// is delivered. The channel provides a single global ordering of changes.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	channel string
	log     *slog.Logger

	mu       sync.Mutex
	defaults map[string]string
	closed   bool

	observers *registry

	pubsub *redis.PubSub
	done   chan struct{}
}

// NewRedisStore creates a store over an established redis client and starts
// listening for change events. The caller keeps ownership of the client; the
// store only closes its own pub/sub subscription. A nil log defaults to
// slog.Default().
func NewRedisStore(ctx context.Context, client *redis.Client, cfg RedisConfig, log *slog.Logger) (*RedisStore, error) {
	if log == nil {
		log = slog.Default()
	}

	pubsub := client.Subscribe(ctx, cfg.ChangeChannel)
	// Confirm the subscription before reporting the store as ready so no
	// change published after New returns can be missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, errors.Join(ErrRedisNotReady, err)
	}

	s := &RedisStore{
		client:    client,
		prefix:    cfg.KeyPrefix,
		channel:   cfg.ChangeChannel,
		log:       log,
		defaults:  make(map[string]string),
		observers: newRegistry(),
		pubsub:    pubsub,
		done:      make(chan struct{}),
	}
	go s.receive()
	return s, nil
}

// Read returns the effective value for key.
func (s *RedisStore) Read(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	switch {
	case err == nil:
		return v, true, nil
	case errors.Is(err, redis.Nil):
		s.mu.Lock()
		d, ok := s.defaults[key]
		s.mu.Unlock()
		return d, ok, nil
	default:
		return "", false, err
	}
}

// Write stores value under key and publishes the change event.
func (s *RedisStore) Write(ctx context.Context, key, value string) error {
	old, _, err := s.Read(ctx, key)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return err
	}
	return s.publish(ctx, Change{Key: key, Old: old, New: value})
}

// Delete removes the written value for key and publishes the change event if
// a written value existed.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	old, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return err
	}
	s.mu.Lock()
	next := s.defaults[key]
	s.mu.Unlock()
	return s.publish(ctx, Change{Key: key, Old: old, New: next})
}

// Observe registers onChange for changes to key.
func (s *RedisStore) Observe(key string, onChange ObserveFunc) (Registration, error) {
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
// layer. Defaults are not written to redis.
func (s *RedisStore) RegisterDefaults(defaults map[string]string) error {
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

// Close stops the change listener. The underlying redis client is left open
// for the caller to close. Safe to call multiple times.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.pubsub.Close()
	<-s.done
	return err
}

func (s *RedisStore) publish(ctx context.Context, c Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.channel, payload).Err()
}

func (s *RedisStore) receive() {
	defer close(s.done)
	for msg := range s.pubsub.Channel() {
		var c Change
		if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
			s.log.Warn("prefkit: dropping malformed change event",
				slog.String("channel", s.channel),
				slog.String("error", err.Error()))
			continue
		}
		s.observers.deliver(c)
	}
}
