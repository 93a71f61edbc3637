package backend

import "github.com/maxpoletaev/memdisco/internal/baseerror"

var (
	// ErrConfig is returned by New and ParseParams for unusable construction
	// parameters. It is never returned at runtime.
	ErrConfig = baseerror.New("invalid cache backend configuration")

	// ErrNotFound is returned by Incr and Decr when the key does not exist.
	ErrNotFound = baseerror.New("key not found")

	// ErrOverflow is returned by Incr and Decr when the stored counter does not
	// fit into int64. Memcached counters are unsigned 64-bit integers.
	ErrOverflow = baseerror.New("counter value out of range")

	// ErrInvalidKey is returned for keys that cannot be stored in memcached.
	ErrInvalidKey = baseerror.New("invalid cache key")
)
