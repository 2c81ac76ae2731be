package prefkit

import "errors"

var (
	// ErrEncode is returned when a value cannot be encoded for storage.
	ErrEncode = errors.New("prefkit: failed to encode value")

	// ErrDecode is returned when a stored value cannot be decoded into the
	// key's type.
	ErrDecode = errors.New("prefkit: failed to decode stored value")

	// ErrParsingConfig is returned when environment variables cannot be
	// parsed into the config struct.
	ErrParsingConfig = errors.New("prefkit: failed to parse environment config")

	// ErrUnknownBackend is returned when the configured backend name does
	// not match any known store.
	ErrUnknownBackend = errors.New("prefkit: unknown store backend")

	// ErrInvalidDefault is returned when a defaults document contains a
	// non-scalar value.
	ErrInvalidDefault = errors.New("prefkit: default values must be scalars")
)
