package nodecache

import (
	"context"
	"fmt"
	"sync"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/singleflight"

	"github.com/maxpoletaev/memdisco/discovery"
	"github.com/maxpoletaev/memdisco/memclient"
)

const snapshotKey = "snapshot"

// Discoverer returns the current cluster configuration.
type Discoverer interface {
	Discover(ctx context.Context) (*discovery.ClusterConfig, error)
}

// ClientFactory builds a client bound to the ordered list of nodes.
type ClientFactory func(nodes []discovery.Node) (memclient.Client, error)

// Snapshot pairs a discovered node list with the client built from it.
// Snapshots are immutable once published.
type Snapshot struct {
	Version int
	Nodes   []discovery.Node
	Client  memclient.Client
}

// Cache holds at most one Snapshot. It is built lazily on first use and kept
// until invalidated; there is no expiry and no background refresh.
type Cache struct {
	mut       sync.RWMutex
	snapshot  *Snapshot
	building  singleflight.Group
	discover  Discoverer
	newClient ClientFactory
	logger    kitlog.Logger
}

func New(discoverer Discoverer, newClient ClientFactory, logger kitlog.Logger) *Cache {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}

	return &Cache{
		discover:  discoverer,
		newClient: newClient,
		logger:    logger,
	}
}

// Current returns the cached snapshot without building one.
func (c *Cache) Current() (*Snapshot, bool) {
	c.mut.RLock()
	defer c.mut.RUnlock()

	return c.snapshot, c.snapshot != nil
}

// Snapshot returns the cached snapshot, discovering the cluster and building
// a new client if there is none. Concurrent callers share a single build.
// Failed builds leave the cache empty, so the next call retries. A caller
// that gives up while waiting detaches the build, so the next caller dials
// again instead of joining a build that may never finish.
func (c *Cache) Snapshot(ctx context.Context) (*Snapshot, error) {
	if s, ok := c.Current(); ok {
		return s, nil
	}

	ch := c.building.DoChan(snapshotKey, func() (interface{}, error) {
		// Another build might have finished while we were waiting.
		if s, ok := c.Current(); ok {
			return s, nil
		}

		// The build is shared, so one caller giving up must not cancel it.
		s, err := c.build(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		c.mut.Lock()

		// A detached build may finish after a newer one was published.
		if c.snapshot != nil {
			current := c.snapshot
			c.mut.Unlock()
			c.release(s)

			return current, nil
		}

		c.snapshot = s
		c.mut.Unlock()

		return s, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		return res.Val.(*Snapshot), nil
	case <-ctx.Done():
		c.building.Forget(snapshotKey)
		return nil, discovery.ErrConnection.Wrap(ctx.Err(), "waiting for cluster discovery")
	}
}

// Client is a shortcut for Snapshot that returns only the client.
func (c *Cache) Client(ctx context.Context) (memclient.Client, error) {
	s, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	return s.Client, nil
}

func (c *Cache) build(ctx context.Context) (*Snapshot, error) {
	cluster, err := c.discover.Discover(ctx)
	if err != nil {
		return nil, err
	}

	client, err := c.newClient(cluster.Nodes)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	level.Info(c.logger).Log(
		"msg", "cluster snapshot created",
		"version", cluster.Version,
		"nodes", len(cluster.Nodes),
	)

	return &Snapshot{
		Version: cluster.Version,
		Nodes:   cluster.Nodes,
		Client:  client,
	}, nil
}

// Invalidate drops the cached snapshot, if any. The next Snapshot call runs
// discovery again.
func (c *Cache) Invalidate() {
	c.mut.Lock()
	old := c.snapshot
	c.snapshot = nil
	c.mut.Unlock()

	c.release(old)
}

// InvalidateSnapshot drops the cached snapshot only if it is still s. A
// snapshot rebuilt by a concurrent caller in the meantime is kept.
func (c *Cache) InvalidateSnapshot(s *Snapshot) bool {
	c.mut.Lock()

	if c.snapshot != s || s == nil {
		c.mut.Unlock()
		return false
	}

	c.snapshot = nil
	c.mut.Unlock()

	c.release(s)

	return true
}

// release closes idle connections of a dropped snapshot. Callers that still
// hold the client can keep using it.
func (c *Cache) release(s *Snapshot) {
	if s == nil {
		return
	}

	if err := s.Client.Close(); err != nil {
		level.Debug(c.logger).Log("msg", "failed to close dropped client", "err", err)
	}
}
