package memclient

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/maxpoletaev/memdisco/internal/multierror"
)

type shard struct {
	addr      string
	client    *memcache.Client
	deadUntil atomic.Int64
}

func (s *shard) available(now time.Time) bool {
	return now.UnixNano() >= s.deadUntil.Load()
}

// Sharded is a Client that owns one connection pool per node and routes every
// key to exactly one of them.
type Sharded struct {
	shards []*shard
	conf   Config
	logger kitlog.Logger
	now    func() time.Time
}

var _ Client = (*Sharded)(nil)

// New creates a client for the given node addresses. The order of addresses
// defines key placement. An empty list is allowed: such a client fails every
// operation with ErrNoServers, subject to IgnoreExc.
func New(addrs []string, conf Config) *Sharded {
	if conf.Logger == nil {
		conf.Logger = kitlog.NewNopLogger()
	}

	shards := make([]*shard, len(addrs))

	for i, addr := range addrs {
		mc := memcache.New(addr)
		mc.Timeout = conf.Timeout
		mc.MaxIdleConns = conf.MaxIdleConns

		shards[i] = &shard{
			addr:   addr,
			client: mc,
		}
	}

	return &Sharded{
		shards: shards,
		conf:   conf,
		logger: conf.Logger,
		now:    time.Now,
	}
}

// Addrs returns the node addresses in routing order.
func (c *Sharded) Addrs() []string {
	addrs := make([]string, len(c.shards))
	for i, s := range c.shards {
		addrs[i] = s.addr
	}

	return addrs
}

// isNodeFailure tells whether the error means the node itself is broken, as
// opposed to a regular protocol outcome such as a miss.
func isNodeFailure(err error) bool {
	var (
		netErr     net.Error
		connectErr *memcache.ConnectTimeoutError
	)

	switch {
	case errors.As(err, &connectErr):
		return true
	case errors.As(err, &netErr):
		return true
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}

	return false
}

func (c *Sharded) shardFor(key string) (*shard, error) {
	idx := shardIndex(key, len(c.shards))
	if idx < 0 {
		return nil, ErrNoServers
	}

	s := c.shards[idx]
	if !s.available(c.now()) {
		return nil, fmt.Errorf("%w: %s", ErrNodeUnavailable, s.addr)
	}

	return s, nil
}

func (c *Sharded) markDead(s *shard, err error) {
	if c.conf.DeadTimeout <= 0 {
		return
	}

	s.deadUntil.Store(c.now().Add(c.conf.DeadTimeout).UnixNano())

	level.Warn(c.logger).Log(
		"msg", "node marked unavailable",
		"addr", s.addr,
		"for", c.conf.DeadTimeout,
		"err", err,
	)
}

// ignore replaces a node failure with the given outcome when IgnoreExc is set.
func (c *Sharded) ignore(key string, outcome, err error) error {
	if !c.conf.IgnoreExc {
		return err
	}

	level.Debug(c.logger).Log("msg", "ignoring cache operation failure", "key", key, "err", err)

	return outcome
}

// withShard runs fn against the node owning the key. Node failures mark the
// node dead and are either returned or replaced with outcome.
func (c *Sharded) withShard(key string, outcome error, fn func(mc *memcache.Client) error) error {
	s, err := c.shardFor(key)
	if err != nil {
		return c.ignore(key, outcome, err)
	}

	err = fn(s.client)
	if err == nil || !isNodeFailure(err) {
		return err
	}

	c.markDead(s, err)

	return c.ignore(key, outcome, err)
}

func (c *Sharded) Get(key string) (*Item, error) {
	var item *Item

	err := c.withShard(key, ErrCacheMiss, func(mc *memcache.Client) (err error) {
		item, err = mc.Get(key)
		return err
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

// GetMulti fetches keys from all involved nodes in parallel. Missing keys are
// absent from the result.
func (c *Sharded) GetMulti(keys []string) (map[string]*Item, error) {
	groups := make(map[*shard][]string)

	for _, key := range keys {
		s, err := c.shardFor(key)
		if err != nil {
			if c.conf.SkipUnavailable {
				continue
			}

			return nil, err
		}

		groups[s] = append(groups[s], key)
	}

	var (
		mut    sync.Mutex
		group  errgroup.Group
		errs   = multierror.New[string]()
		result = make(map[string]*Item, len(keys))
	)

	for s, keys := range groups {
		s, keys := s, keys

		group.Go(func() error {
			items, err := s.client.GetMulti(keys)
			if err != nil {
				if isNodeFailure(err) {
					c.markDead(s, err)
				}

				errs.Add(s.addr, err)

				return nil
			}

			mut.Lock()
			maps.Copy(result, items)
			mut.Unlock()

			return nil
		})
	}

	_ = group.Wait()

	if err := errs.Ret(); err != nil {
		if err = c.ignore("", nil, err); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (c *Sharded) Set(item *Item) error {
	return c.withShard(item.Key, ErrNotStored, func(mc *memcache.Client) error {
		return mc.Set(item)
	})
}

// SetMulti stores items, writing to each node in parallel. Keys that could
// not be stored because of an ignored failure are returned sorted.
func (c *Sharded) SetMulti(items []*Item) ([]string, error) {
	groups := make(map[int][]*Item)
	for _, item := range items {
		idx := shardIndex(item.Key, len(c.shards))
		groups[idx] = append(groups[idx], item)
	}

	var (
		mut    sync.Mutex
		group  errgroup.Group
		failed []string
		errs   = multierror.New[string]()
	)

	for _, items := range groups {
		items := items

		group.Go(func() error {
			for _, item := range items {
				err := c.Set(item)

				switch {
				case err == nil:
				case errors.Is(err, ErrNotStored):
					mut.Lock()
					failed = append(failed, item.Key)
					mut.Unlock()
				default:
					errs.Add(item.Key, err)
				}
			}

			return nil
		})
	}

	_ = group.Wait()

	if err := errs.Ret(); err != nil {
		return nil, err
	}

	slices.Sort(failed)

	return failed, nil
}

func (c *Sharded) Add(item *Item) error {
	return c.withShard(item.Key, ErrNotStored, func(mc *memcache.Client) error {
		return mc.Add(item)
	})
}

func (c *Sharded) Delete(key string) error {
	return c.withShard(key, ErrCacheMiss, func(mc *memcache.Client) error {
		return mc.Delete(key)
	})
}

// DeleteMulti deletes keys, one node at a time per goroutine. Keys that did
// not exist are not an error.
func (c *Sharded) DeleteMulti(keys []string) error {
	groups := make(map[int][]string)
	for _, key := range keys {
		idx := shardIndex(key, len(c.shards))
		groups[idx] = append(groups[idx], key)
	}

	var (
		group errgroup.Group
		errs  = multierror.New[string]()
	)

	for _, keys := range groups {
		keys := keys

		group.Go(func() error {
			for _, key := range keys {
				if err := c.Delete(key); err != nil && !errors.Is(err, ErrCacheMiss) {
					errs.Add(key, err)
				}
			}

			return nil
		})
	}

	_ = group.Wait()

	return errs.Ret()
}

func (c *Sharded) Increment(key string, delta uint64) (uint64, error) {
	var value uint64

	err := c.withShard(key, ErrCacheMiss, func(mc *memcache.Client) (err error) {
		value, err = mc.Increment(key, delta)
		return err
	})

	return value, err
}

func (c *Sharded) Decrement(key string, delta uint64) (uint64, error) {
	var value uint64

	err := c.withShard(key, ErrCacheMiss, func(mc *memcache.Client) (err error) {
		value, err = mc.Decrement(key, delta)
		return err
	})

	return value, err
}

// Close closes idle connections to all nodes. The client stays usable.
func (c *Sharded) Close() error {
	errs := multierror.New[string]()
	for _, s := range c.shards {
		errs.Add(s.addr, s.client.Close())
	}

	return errs.Ret()
}
