package nodecache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/maxpoletaev/memdisco/discovery"
	"github.com/maxpoletaev/memdisco/memclient"
	"github.com/maxpoletaev/memdisco/memclient/mock"
)

type discoverFunc func(ctx context.Context) (*discovery.ClusterConfig, error)

func (f discoverFunc) Discover(ctx context.Context) (*discovery.ClusterConfig, error) {
	return f(ctx)
}

func twoNodes() *discovery.ClusterConfig {
	return &discovery.ClusterConfig{
		Version: 12,
		Nodes: []discovery.Node{
			{Host: "h1", IP: "10.0.0.1", Port: 11211},
			{Host: "h2", IP: "10.0.0.2", Port: 11211},
		},
	}
}

type countingFactory struct {
	ctrl  *gomock.Controller
	calls atomic.Int32
	nodes [][]discovery.Node
	mut   sync.Mutex
}

func (f *countingFactory) New(nodes []discovery.Node) (memclient.Client, error) {
	f.calls.Add(1)

	f.mut.Lock()
	f.nodes = append(f.nodes, nodes)
	f.mut.Unlock()

	client := mock.NewMockClient(f.ctrl)
	client.EXPECT().Close().Return(nil).AnyTimes()

	return client, nil
}

func TestCache_DiscoversOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	factory := &countingFactory{ctrl: ctrl}

	var discoveries atomic.Int32

	cache := New(discoverFunc(func(ctx context.Context) (*discovery.ClusterConfig, error) {
		discoveries.Add(1)
		return twoNodes(), nil
	}), factory.New, nil)

	_, ok := cache.Current()
	require.False(t, ok)

	first, err := cache.Client(context.Background())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		client, err := cache.Client(context.Background())
		require.NoError(t, err)
		assert.Same(t, first, client)
	}

	assert.Equal(t, int32(1), discoveries.Load())
	assert.Equal(t, int32(1), factory.calls.Load())
	assert.Equal(t, twoNodes().Nodes, factory.nodes[0])

	snap, ok := cache.Current()
	require.True(t, ok)
	assert.Equal(t, 12, snap.Version)
	assert.Len(t, snap.Nodes, 2)
}

func TestCache_DiscoveryFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	factory := &countingFactory{ctrl: ctrl}
	failure := errors.New("boom")
	fail := true

	cache := New(discoverFunc(func(ctx context.Context) (*discovery.ClusterConfig, error) {
		if fail {
			return nil, failure
		}
		return twoNodes(), nil
	}), factory.New, nil)

	_, err := cache.Snapshot(context.Background())
	require.ErrorIs(t, err, failure)

	_, ok := cache.Current()
	require.False(t, ok)
	require.Equal(t, int32(0), factory.calls.Load())

	// The next call retries discovery.
	fail = false

	_, err = cache.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), factory.calls.Load())
}

func TestCache_FactoryFailure(t *testing.T) {
	failure := errors.New("bad nodes")

	cache := New(discoverFunc(func(ctx context.Context) (*discovery.ClusterConfig, error) {
		return twoNodes(), nil
	}), func(nodes []discovery.Node) (memclient.Client, error) {
		return nil, failure
	}, nil)

	_, err := cache.Client(context.Background())
	require.ErrorIs(t, err, failure)

	_, ok := cache.Current()
	require.False(t, ok)
}

func TestCache_Invalidate(t *testing.T) {
	ctrl := gomock.NewController(t)

	var discoveries atomic.Int32

	oldClient := mock.NewMockClient(ctrl)
	newClient := mock.NewMockClient(ctrl)
	clients := []memclient.Client{oldClient, newClient}

	// Dropping a snapshot closes its client exactly once.
	oldClient.EXPECT().Close().Return(nil).Times(1)

	cache := New(discoverFunc(func(ctx context.Context) (*discovery.ClusterConfig, error) {
		discoveries.Add(1)
		return twoNodes(), nil
	}), func(nodes []discovery.Node) (memclient.Client, error) {
		client := clients[0]
		clients = clients[1:]
		return client, nil
	}, nil)

	// Invalidating an empty cache is a no-op.
	cache.Invalidate()

	client, err := cache.Client(context.Background())
	require.NoError(t, err)
	require.Same(t, oldClient, client)

	cache.Invalidate()
	cache.Invalidate()

	client, err = cache.Client(context.Background())
	require.NoError(t, err)
	require.Same(t, newClient, client)
	require.Equal(t, int32(2), discoveries.Load())
}

func TestCache_InvalidateSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	factory := &countingFactory{ctrl: ctrl}

	cache := New(discoverFunc(func(ctx context.Context) (*discovery.ClusterConfig, error) {
		return twoNodes(), nil
	}), factory.New, nil)

	stale, err := cache.Snapshot(context.Background())
	require.NoError(t, err)
	require.True(t, cache.InvalidateSnapshot(stale))

	fresh, err := cache.Snapshot(context.Background())
	require.NoError(t, err)
	require.NotSame(t, stale, fresh)

	// A stale snapshot does not drop the fresh one.
	require.False(t, cache.InvalidateSnapshot(stale))
	require.False(t, cache.InvalidateSnapshot(nil))

	current, ok := cache.Current()
	require.True(t, ok)
	require.Same(t, fresh, current)
}

func TestCache_ConcurrentBuild(t *testing.T) {
	ctrl := gomock.NewController(t)
	factory := &countingFactory{ctrl: ctrl}
	release := make(chan struct{})

	var discoveries atomic.Int32

	cache := New(discoverFunc(func(ctx context.Context) (*discovery.ClusterConfig, error) {
		discoveries.Add(1)
		<-release
		return twoNodes(), nil
	}), factory.New, nil)

	var (
		wg        sync.WaitGroup
		snapshots = make([]*Snapshot, 10)
	)

	for i := range snapshots {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			s, err := cache.Snapshot(context.Background())
			assert.NoError(t, err)
			snapshots[i] = s
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), discoveries.Load())
	require.Equal(t, int32(1), factory.calls.Load())

	for _, s := range snapshots {
		require.Same(t, snapshots[0], s)
	}
}

func TestCache_ContextCancel(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	cache := New(discoverFunc(func(ctx context.Context) (*discovery.ClusterConfig, error) {
		<-release
		return twoNodes(), nil
	}), func(nodes []discovery.Node) (memclient.Client, error) {
		return memclient.New(nil, memclient.DefaultConfig()), nil
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := cache.Snapshot(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCache_StuckDiscoveryIsDetached(t *testing.T) {
	ctrl := gomock.NewController(t)
	release := make(chan struct{})

	var (
		discoveries atomic.Int32
		built       atomic.Int32
		closed      atomic.Int32
	)

	cache := New(discoverFunc(func(ctx context.Context) (*discovery.ClusterConfig, error) {
		if discoveries.Add(1) == 1 {
			<-release
		}

		return twoNodes(), nil
	}), func(nodes []discovery.Node) (memclient.Client, error) {
		built.Add(1)

		client := mock.NewMockClient(ctrl)
		client.EXPECT().Close().DoAndReturn(func() error {
			closed.Add(1)
			return nil
		}).AnyTimes()

		return client, nil
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := cache.Snapshot(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.ErrorIs(t, err, discovery.ErrDiscovery)

	// The next caller starts its own discovery instead of waiting for the stuck one.
	fresh, err := cache.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(2), discoveries.Load())

	// The stuck discovery finishing late must not replace the newer snapshot.
	close(release)

	require.Eventually(t, func() bool {
		return built.Load() == 2 && closed.Load() == 1
	}, time.Second, time.Millisecond)

	current, ok := cache.Current()
	require.True(t, ok)
	require.Same(t, fresh, current)
}
