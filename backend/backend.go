package backend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/exp/slices"

	"github.com/maxpoletaev/memdisco/discovery"
	"github.com/maxpoletaev/memdisco/memclient"
	"github.com/maxpoletaev/memdisco/nodecache"
)

type options struct {
	discoverer nodecache.Discoverer
	newClient  nodecache.ClientFactory
}

type Option func(*options)

// WithDiscoverer replaces the configuration endpoint client.
func WithDiscoverer(d nodecache.Discoverer) Option {
	return func(o *options) {
		o.discoverer = d
	}
}

// WithClientFactory replaces the way the distributed client is built from the
// discovered nodes.
func WithClientFactory(f nodecache.ClientFactory) Option {
	return func(o *options) {
		o.newClient = f
	}
}

// Backend is a cache backed by a memcached cluster whose nodes are discovered
// through a configuration endpoint. The node list is discovered on first use
// and kept until an operation fails, after which it is discovered again.
type Backend struct {
	conf       Config
	logger     kitlog.Logger
	discoverer nodecache.Discoverer
	nodes      *nodecache.Cache
	now        func() time.Time
}

func New(conf Config, opts ...Option) (*Backend, error) {
	addr, err := ParseLocation(conf.Location)
	if err != nil {
		return nil, err
	}

	conf.Location = addr

	if conf.Logger == nil {
		conf.Logger = kitlog.NewNopLogger()
	}

	if conf.Client.Logger == nil {
		conf.Client.Logger = conf.Logger
	}

	o := options{
		discoverer: discovery.New(discovery.Config{
			Addr:         addr,
			Timeout:      conf.ClusterTimeout,
			IgnoreErrors: conf.IgnoreClusterErrors,
			Logger:       conf.Logger,
		}),
		newClient: func(nodes []discovery.Node) (memclient.Client, error) {
			clientConf := conf.Client
			clientConf.SkipUnavailable = conf.IgnoreClusterErrors

			return memclient.New(discovery.Addrs(nodes), clientConf), nil
		},
	}

	for _, opt := range opts {
		opt(&o)
	}

	return &Backend{
		conf:       conf,
		logger:     conf.Logger,
		discoverer: o.discoverer,
		nodes:      nodecache.New(o.discoverer, o.newClient, conf.Logger),
		now:        time.Now,
	}, nil
}

// Nodes runs discovery and returns the nodes currently in the cluster. It does
// not touch the cached node list. Discovery failures are logged and reported
// as an empty list.
func (b *Backend) Nodes(ctx context.Context) []discovery.Node {
	cluster, err := b.discoverer.Discover(ctx)
	if err != nil {
		level.Warn(b.logger).Log(
			"msg", "cannot get cluster nodes",
			"endpoint", b.conf.Location,
			"err", err,
		)

		return []discovery.Node{}
	}

	if cluster.Nodes == nil {
		return []discovery.Node{}
	}

	return cluster.Nodes
}

// InvalidateNodes drops the cached node list.
func (b *Backend) InvalidateNodes() {
	b.nodes.Invalidate()
}

func (b *Backend) makeItem(key string, value any, timeout time.Duration) (*memclient.Item, error) {
	wireKey, err := b.makeKey(key)
	if err != nil {
		return nil, err
	}

	data, flags, err := encodeValue(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}

	return &memclient.Item{
		Key:        wireKey,
		Value:      data,
		Flags:      flags,
		Expiration: b.expiration(timeout),
	}, nil
}

// Add stores the value only if the key does not exist yet. It reports whether
// the value was stored.
func (b *Backend) Add(ctx context.Context, key string, value any, timeout time.Duration) (bool, error) {
	item, err := b.makeItem(key, value, timeout)
	if err != nil {
		return false, err
	}

	return withInvalidation(ctx, b, func(client memclient.Client) (bool, error) {
		err := client.Add(item)
		if errors.Is(err, memclient.ErrNotStored) {
			return false, nil
		}

		return err == nil, err
	})
}

// Get returns the value stored under the key. A stored nil is reported as
// found, unlike a missing key.
func (b *Backend) Get(ctx context.Context, key string) (any, bool, error) {
	wireKey, err := b.makeKey(key)
	if err != nil {
		return nil, false, err
	}

	item, err := withInvalidation(ctx, b, func(client memclient.Client) (*memclient.Item, error) {
		item, err := client.Get(wireKey)
		if errors.Is(err, memclient.ErrCacheMiss) {
			return nil, nil
		}

		return item, err
	})

	if err != nil || item == nil {
		return nil, false, err
	}

	value, err := decodeValue(item.Value, item.Flags)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", key, err)
	}

	return value, true, nil
}

// Set stores the value unconditionally. Failures ignored by the distributed
// client are not reported.
func (b *Backend) Set(ctx context.Context, key string, value any, timeout time.Duration) error {
	item, err := b.makeItem(key, value, timeout)
	if err != nil {
		return err
	}

	_, err = withInvalidation(ctx, b, func(client memclient.Client) (struct{}, error) {
		err := client.Set(item)
		if errors.Is(err, memclient.ErrNotStored) {
			return struct{}{}, nil
		}

		return struct{}{}, err
	})

	return err
}

// Delete removes the key and reports whether it existed.
func (b *Backend) Delete(ctx context.Context, key string) (bool, error) {
	wireKey, err := b.makeKey(key)
	if err != nil {
		return false, err
	}

	return withInvalidation(ctx, b, func(client memclient.Client) (bool, error) {
		err := client.Delete(wireKey)
		if errors.Is(err, memclient.ErrCacheMiss) {
			return false, nil
		}

		return err == nil, err
	})
}

// GetMany returns the values of the keys that exist. Missing keys are absent
// from the result, while keys holding nil, false or zero are present.
func (b *Backend) GetMany(ctx context.Context, keys []string) (map[string]any, error) {
	if len(keys) == 0 {
		return map[string]any{}, nil
	}

	wireKeys, callerKeys, err := b.makeKeys(keys)
	if err != nil {
		return nil, err
	}

	items, err := withInvalidation(ctx, b, func(client memclient.Client) (map[string]*memclient.Item, error) {
		return client.GetMulti(wireKeys)
	})
	if err != nil {
		return nil, err
	}

	return normalize(items, callerKeys)
}

// normalize maps bulk read results back to the caller's keys.
func normalize(items map[string]*memclient.Item, callerKeys map[string]string) (map[string]any, error) {
	values := make(map[string]any, len(items))

	for wireKey, item := range items {
		key, ok := callerKeys[wireKey]
		if !ok || item == nil {
			continue
		}

		value, err := decodeValue(item.Value, item.Flags)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}

		values[key] = value
	}

	return values, nil
}

// SetMany stores all values and returns the keys that could not be stored.
func (b *Backend) SetMany(ctx context.Context, values map[string]any, timeout time.Duration) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}

	items := make([]*memclient.Item, 0, len(values))
	callerKeys := make(map[string]string, len(values))

	for key, value := range values {
		item, err := b.makeItem(key, value, timeout)
		if err != nil {
			return nil, err
		}

		items = append(items, item)
		callerKeys[item.Key] = key
	}

	failed, err := withInvalidation(ctx, b, func(client memclient.Client) ([]string, error) {
		return client.SetMulti(items)
	})
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(failed))
	for _, wireKey := range failed {
		keys = append(keys, callerKeys[wireKey])
	}

	slices.Sort(keys)

	return keys, nil
}

// DeleteMany removes all keys. Missing keys are not an error.
func (b *Backend) DeleteMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	wireKeys, _, err := b.makeKeys(keys)
	if err != nil {
		return err
	}

	_, err = withInvalidation(ctx, b, func(client memclient.Client) (struct{}, error) {
		return struct{}{}, client.DeleteMulti(wireKeys)
	})

	return err
}

type counter struct {
	value uint64
	found bool
}

// Incr adds delta to the integer stored under the key and returns the new
// value. A negative delta decrements. Values never go below zero.
func (b *Backend) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	if delta < 0 {
		return b.apply(ctx, key, uint64(-delta), false)
	}

	return b.apply(ctx, key, uint64(delta), true)
}

// Decr subtracts delta from the integer stored under the key. A negative delta
// increments.
func (b *Backend) Decr(ctx context.Context, key string, delta int64) (int64, error) {
	if delta < 0 {
		return b.apply(ctx, key, uint64(-delta), true)
	}

	return b.apply(ctx, key, uint64(delta), false)
}

func (b *Backend) apply(ctx context.Context, key string, delta uint64, incr bool) (int64, error) {
	wireKey, err := b.makeKey(key)
	if err != nil {
		return 0, err
	}

	res, err := withInvalidation(ctx, b, func(client memclient.Client) (counter, error) {
		var (
			value uint64
			err   error
		)

		if incr {
			value, err = client.Increment(wireKey, delta)
		} else {
			value, err = client.Decrement(wireKey, delta)
		}

		if errors.Is(err, memclient.ErrCacheMiss) {
			return counter{}, nil
		}

		return counter{value: value, found: err == nil}, err
	})

	if err != nil {
		return 0, err
	}

	if !res.found {
		return 0, ErrNotFound.Detail(key)
	}

	if res.value > math.MaxInt64 {
		return 0, ErrOverflow.Detail(fmt.Sprintf("%s=%d", key, res.value))
	}

	return int64(res.value), nil
}

// Close drops the cached node list and closes idle connections.
func (b *Backend) Close() error {
	b.nodes.Invalidate()
	return nil
}
