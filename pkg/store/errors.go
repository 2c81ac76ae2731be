package store

import "errors"

var (
	// ErrEmptyKey is returned when an empty key is passed to Observe.
	ErrEmptyKey = errors.New("store: key must not be empty")

	// ErrClosed is returned when operations are attempted on a closed store.
	ErrClosed = errors.New("store: store is closed")

	// ErrFailedToParseRedisConnString is returned when the redis connection
	// URL cannot be parsed.
	ErrFailedToParseRedisConnString = errors.New("store: failed to parse redis connection string")

	// ErrRedisNotReady is returned when the redis server does not become
	// reachable within the configured retry budget.
	ErrRedisNotReady = errors.New("store: redis did not become ready within the given time period")

	// ErrFailedToParsePostgresConfig is returned when the postgres connection
	// string cannot be parsed.
	ErrFailedToParsePostgresConfig = errors.New("store: failed to parse postgres connection config")

	// ErrPostgresNotReady is returned when the postgres server does not
	// become reachable within the configured retry budget.
	ErrPostgresNotReady = errors.New("store: postgres did not become ready within the given time period")
)
