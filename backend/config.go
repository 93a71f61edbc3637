package backend

import (
	"time"

	kitlog "github.com/go-kit/log"

	"github.com/maxpoletaev/memdisco/memclient"
)

type Config struct {
	// Location is the host:port of the configuration endpoint.
	Location string

	// ClusterTimeout bounds a single discovery call. Zero leaves it bounded by
	// the caller's context only.
	ClusterTimeout time.Duration

	// IgnoreClusterErrors turns an unreachable configuration endpoint into an
	// empty cluster and makes bulk reads skip keys of unavailable nodes.
	IgnoreClusterErrors bool

	KeyPrefix  string
	KeyVersion int

	// DefaultTimeout is the expiration used for DefaultExpiration. Zero means
	// entries never expire.
	DefaultTimeout time.Duration

	// Client is passed through to the distributed client as is.
	Client memclient.Config

	Logger kitlog.Logger
}

func DefaultConfig() Config {
	return Config{
		KeyVersion:     1,
		DefaultTimeout: 300 * time.Second,
		Client:         memclient.DefaultConfig(),
		Logger:         kitlog.NewNopLogger(),
	}
}
