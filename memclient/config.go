package memclient

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	kitlog "github.com/go-kit/log"
)

type Config struct {
	// Timeout is the socket read/write timeout for each node.
	Timeout time.Duration

	// MaxIdleConns is the number of idle connections kept per node.
	MaxIdleConns int

	// IgnoreExc turns connection-level failures into misses: a failed get is
	// reported as ErrCacheMiss, a failed write as ErrNotStored.
	IgnoreExc bool

	// SkipUnavailable makes multi-key reads omit keys whose node cannot be
	// used instead of failing the whole call.
	SkipUnavailable bool

	// DeadTimeout is how long a node that failed at connection level is
	// skipped. Zero disables dead node tracking.
	DeadTimeout time.Duration

	Logger kitlog.Logger
}

func DefaultConfig() Config {
	return Config{
		Timeout:      memcache.DefaultTimeout,
		MaxIdleConns: memcache.DefaultMaxIdleConns,
		IgnoreExc:    true,
		DeadTimeout:  60 * time.Second,
		Logger:       kitlog.NewNopLogger(),
	}
}
