package memclient

//go:generate mockgen -destination=mock/client_mock.go -package=mock github.com/maxpoletaev/memdisco/memclient Client

import (
	"errors"

	"github.com/bradfitz/gomemcache/memcache"
)

// Item is a single cache entry as stored on a node.
type Item = memcache.Item

var (
	// ErrCacheMiss is returned when the key does not exist.
	ErrCacheMiss = memcache.ErrCacheMiss

	// ErrNotStored is returned when a conditional write was not performed, or
	// when a write failed and the failure was ignored.
	ErrNotStored = memcache.ErrNotStored

	// ErrNoServers is returned when the client was built with an empty node list.
	ErrNoServers = memcache.ErrNoServers

	// ErrNodeUnavailable is returned for keys owned by a node that recently
	// failed and is not used until its dead timeout expires.
	ErrNodeUnavailable = errors.New("memclient: node is unavailable")
)

// Client is a key-value client sharded over a fixed, ordered list of nodes.
// Misses are reported with ErrCacheMiss and unmet write conditions with
// ErrNotStored. Any other error is a failure of the operation itself.
type Client interface {
	Get(key string) (*Item, error)
	GetMulti(keys []string) (map[string]*Item, error)
	Set(item *Item) error
	SetMulti(items []*Item) (failed []string, err error)
	Add(item *Item) error
	Delete(key string) error
	DeleteMulti(keys []string) error
	Increment(key string, delta uint64) (uint64, error)
	Decrement(key string, delta uint64) (uint64, error)
	Close() error
}
