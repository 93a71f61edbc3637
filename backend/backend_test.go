package backend

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/maxpoletaev/memdisco/discovery"
	"github.com/maxpoletaev/memdisco/memclient"
	"github.com/maxpoletaev/memdisco/memclient/mock"
)

type fakeDiscoverer struct {
	calls   int
	cluster *discovery.ClusterConfig
	err     error
}

func (d *fakeDiscoverer) Discover(ctx context.Context) (*discovery.ClusterConfig, error) {
	d.calls++

	if d.err != nil {
		return nil, d.err
	}

	return d.cluster, nil
}

var testNodes = []discovery.Node{
	{Host: "h1", Port: 0},
	{Host: "h2", Port: 0},
}

type testBackend struct {
	*Backend
	client     *mock.MockClient
	discoverer *fakeDiscoverer
	built      [][]discovery.Node
}

func newTestBackend(t *testing.T) *testBackend {
	ctrl := gomock.NewController(t)
	client := mock.NewMockClient(ctrl)
	client.EXPECT().Close().Return(nil).AnyTimes()

	tb := &testBackend{
		client: client,
		discoverer: &fakeDiscoverer{
			cluster: &discovery.ClusterConfig{Version: 1, Nodes: testNodes},
		},
	}

	conf := DefaultConfig()
	conf.Location = "config.example.com:11211"

	b, err := New(conf,
		WithDiscoverer(tb.discoverer),
		WithClientFactory(func(nodes []discovery.Node) (memclient.Client, error) {
			tb.built = append(tb.built, nodes)
			return client, nil
		}),
	)
	require.NoError(t, err)

	tb.Backend = b

	return tb
}

func encodedItem(t *testing.T, key string, value any) *memclient.Item {
	data, flags, err := encodeValue(value)
	require.NoError(t, err)

	return &memclient.Item{Key: key, Value: data, Flags: flags}
}

func TestNew_ConfigErrors(t *testing.T) {
	tests := map[string]string{
		"TwoEndpoints":      "h1:11211;h2:11211",
		"TwoEndpointsComma": "h1:11211,h2:11211",
		"NoPort":            "h1",
		"TooManyColons":     "h1:11211:1",
		"BadPort":           "h1:port",
		"PortOutOfRange":    "h1:70000",
		"Empty":             "",
	}

	for name, location := range tests {
		t.Run(name, func(t *testing.T) {
			conf := DefaultConfig()
			conf.Location = location

			_, err := New(conf)
			require.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestBackend_ClientBuiltOnce(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	b.client.EXPECT().Get(":1:key").Return(nil, memclient.ErrCacheMiss).Times(3)

	for i := 0; i < 3; i++ {
		_, found, err := b.Get(ctx, "key")
		require.NoError(t, err)
		require.False(t, found)
	}

	require.Equal(t, 1, b.discoverer.calls)
	require.Equal(t, [][]discovery.Node{testNodes}, b.built)
}

func TestBackend_InvalidateOnError(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	failure := errors.New("i/o timeout")

	gomock.InOrder(
		b.client.EXPECT().Set(gomock.Any()).Return(failure),
		b.client.EXPECT().Set(gomock.Any()).Return(nil),
	)

	// The caller sees the original error.
	err := b.Set(ctx, "key", "value", DefaultExpiration)
	require.Same(t, failure, err)
	require.Equal(t, 1, b.discoverer.calls)

	// The next call rediscovers the cluster, even if it has not changed.
	require.NoError(t, b.Set(ctx, "key", "value", DefaultExpiration))
	require.Equal(t, 2, b.discoverer.calls)
	require.Len(t, b.built, 2)
}

func TestBackend_InvalidateOnError_AllOperations(t *testing.T) {
	failure := errors.New("connection reset")

	tests := map[string]struct {
		expect func(c *mock.MockClient)
		call   func(b *Backend) error
	}{
		"Add": {
			expect: func(c *mock.MockClient) { c.EXPECT().Add(gomock.Any()).Return(failure) },
			call: func(b *Backend) error {
				_, err := b.Add(context.Background(), "key", 1, DefaultExpiration)
				return err
			},
		},
		"Get": {
			expect: func(c *mock.MockClient) { c.EXPECT().Get(gomock.Any()).Return(nil, failure) },
			call: func(b *Backend) error {
				_, _, err := b.Get(context.Background(), "key")
				return err
			},
		},
		"Delete": {
			expect: func(c *mock.MockClient) { c.EXPECT().Delete(gomock.Any()).Return(failure) },
			call: func(b *Backend) error {
				_, err := b.Delete(context.Background(), "key")
				return err
			},
		},
		"GetMany": {
			expect: func(c *mock.MockClient) { c.EXPECT().GetMulti(gomock.Any()).Return(nil, failure) },
			call: func(b *Backend) error {
				_, err := b.GetMany(context.Background(), []string{"key"})
				return err
			},
		},
		"SetMany": {
			expect: func(c *mock.MockClient) { c.EXPECT().SetMulti(gomock.Any()).Return(nil, failure) },
			call: func(b *Backend) error {
				_, err := b.SetMany(context.Background(), map[string]any{"key": 1}, DefaultExpiration)
				return err
			},
		},
		"DeleteMany": {
			expect: func(c *mock.MockClient) { c.EXPECT().DeleteMulti(gomock.Any()).Return(failure) },
			call: func(b *Backend) error {
				return b.DeleteMany(context.Background(), []string{"key"})
			},
		},
		"Incr": {
			expect: func(c *mock.MockClient) { c.EXPECT().Increment(gomock.Any(), gomock.Any()).Return(uint64(0), failure) },
			call: func(b *Backend) error {
				_, err := b.Incr(context.Background(), "key", 1)
				return err
			},
		},
		"Decr": {
			expect: func(c *mock.MockClient) { c.EXPECT().Decrement(gomock.Any(), gomock.Any()).Return(uint64(0), failure) },
			call: func(b *Backend) error {
				_, err := b.Decr(context.Background(), "key", 1)
				return err
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			b := newTestBackend(t)
			tt.expect(b.client)

			require.Same(t, failure, tt.call(b.Backend))

			_, ok := b.nodes.Current()
			require.False(t, ok, "snapshot must be dropped")
		})
	}
}

func TestBackend_MissDoesNotInvalidate(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	b.client.EXPECT().Add(gomock.Any()).Return(memclient.ErrNotStored)
	b.client.EXPECT().Delete(":1:key").Return(memclient.ErrCacheMiss)
	b.client.EXPECT().Increment(":1:key", uint64(1)).Return(uint64(0), memclient.ErrCacheMiss)

	stored, err := b.Add(ctx, "key", 1, DefaultExpiration)
	require.NoError(t, err)
	require.False(t, stored)

	deleted, err := b.Delete(ctx, "key")
	require.NoError(t, err)
	require.False(t, deleted)

	_, err = b.Incr(ctx, "key", 1)
	require.ErrorIs(t, err, ErrNotFound)

	_, ok := b.nodes.Current()
	require.True(t, ok)
	require.Equal(t, 1, b.discoverer.calls)
}

func TestBackend_DiscoveryErrorPropagates(t *testing.T) {
	b := newTestBackend(t)
	b.discoverer.err = discovery.ErrConnection.Wrap(errors.New("connection refused"), "config:11211")

	// Operations see the discovery error.
	_, _, err := b.Get(context.Background(), "key")
	require.ErrorIs(t, err, discovery.ErrConnection)

	// Introspection logs it and reports no nodes.
	nodes := b.Nodes(context.Background())
	require.NotNil(t, nodes)
	require.Empty(t, nodes)

	require.Empty(t, b.built)
}

func TestBackend_Nodes(t *testing.T) {
	b := newTestBackend(t)

	require.Equal(t, testNodes, b.Nodes(context.Background()))
	require.Equal(t, testNodes, b.Nodes(context.Background()))

	// Introspection always asks the endpoint and never builds a client.
	require.Equal(t, 2, b.discoverer.calls)
	require.Empty(t, b.built)
}

func TestBackend_GetMany(t *testing.T) {
	tests := map[string]struct {
		items map[string]*memclient.Item
		want  map[string]any
	}{
		"FalsyValuesArePresent": {
			items: map[string]*memclient.Item{
				":1:key1": encodedItem(t, ":1:key1", 0.5),
				":1:key2": encodedItem(t, ":1:key2", false),
			},
			want: map[string]any{"key1": 0.5, "key2": false},
		},
		"NilIsPresent": {
			items: map[string]*memclient.Item{
				":1:key1": encodedItem(t, ":1:key1", nil),
				":1:key2": encodedItem(t, ":1:key2", 0.5),
			},
			want: map[string]any{"key1": nil, "key2": 0.5},
		},
		"ZeroAndEmptyString": {
			items: map[string]*memclient.Item{
				":1:key1": encodedItem(t, ":1:key1", 0),
				":1:key3": encodedItem(t, ":1:key3", ""),
			},
			want: map[string]any{"key1": int64(0), "key3": ""},
		},
		"NothingFound": {
			items: map[string]*memclient.Item{},
			want:  map[string]any{},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			b := newTestBackend(t)

			b.client.EXPECT().
				GetMulti([]string{":1:key1", ":1:key2", ":1:key3"}).
				Return(tt.items, nil)

			values, err := b.GetMany(context.Background(), []string{"key1", "key2", "key3"})
			require.NoError(t, err)
			require.Equal(t, tt.want, values)
		})
	}
}

func TestBackend_GetMany_Empty(t *testing.T) {
	b := newTestBackend(t)

	values, err := b.GetMany(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, values)
	require.Equal(t, 0, b.discoverer.calls)
}

func TestBackend_SetMany(t *testing.T) {
	b := newTestBackend(t)

	b.client.EXPECT().SetMulti(gomock.Any()).DoAndReturn(func(items []*memclient.Item) ([]string, error) {
		keys := make([]string, 0, len(items))
		for _, item := range items {
			keys = append(keys, item.Key)
		}

		assert.ElementsMatch(t, []string{":1:a", ":1:b", ":1:c"}, keys)

		return []string{":1:c", ":1:a"}, nil
	})

	failed, err := b.SetMany(context.Background(), map[string]any{"a": 1, "b": "2", "c": 3.0}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c"}, failed)
}

func TestBackend_IncrDecr(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	b.client.EXPECT().Increment(":1:n", uint64(5)).Return(uint64(15), nil)
	b.client.EXPECT().Decrement(":1:n", uint64(3)).Return(uint64(12), nil)
	b.client.EXPECT().Decrement(":1:n", uint64(2)).Return(uint64(10), nil)
	b.client.EXPECT().Increment(":1:n", uint64(4)).Return(uint64(14), nil)

	value, err := b.Incr(ctx, "n", 5)
	require.NoError(t, err)
	require.Equal(t, int64(15), value)

	value, err = b.Decr(ctx, "n", 3)
	require.NoError(t, err)
	require.Equal(t, int64(12), value)

	// Negative deltas flip the direction.
	value, err = b.Incr(ctx, "n", -2)
	require.NoError(t, err)
	require.Equal(t, int64(10), value)

	value, err = b.Decr(ctx, "n", -4)
	require.NoError(t, err)
	require.Equal(t, int64(14), value)
}

func TestBackend_IncrOverflow(t *testing.T) {
	b := newTestBackend(t)

	b.client.EXPECT().Increment(":1:n", uint64(1)).Return(uint64(math.MaxInt64)+1, nil)

	_, err := b.Incr(context.Background(), "n", 1)
	require.ErrorIs(t, err, ErrOverflow)

	// The node answered, so the snapshot is kept.
	_, ok := b.nodes.Current()
	require.True(t, ok)
}

func TestBackend_InvalidKey(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	_, _, err := b.Get(ctx, "has space")
	require.ErrorIs(t, err, ErrInvalidKey)

	err = b.Set(ctx, string(make([]byte, 300)), 1, DefaultExpiration)
	require.ErrorIs(t, err, ErrInvalidKey)

	_, err = b.GetMany(ctx, []string{"ok", "bad\nkey"})
	require.ErrorIs(t, err, ErrInvalidKey)

	// Invalid keys never reach the cluster.
	require.Equal(t, 0, b.discoverer.calls)
}

func TestBackend_SetGetValues(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	var stored *memclient.Item

	b.client.EXPECT().Set(gomock.Any()).DoAndReturn(func(item *memclient.Item) error {
		stored = item
		return nil
	}).Times(2)

	b.client.EXPECT().Get(":1:key").DoAndReturn(func(key string) (*memclient.Item, error) {
		return stored, nil
	}).Times(2)

	require.NoError(t, b.Set(ctx, "key", map[string]any{"a": "b"}, time.Minute))
	require.Equal(t, int32(60), stored.Expiration)
	require.Equal(t, flagCBOR, stored.Flags)

	value, found, err := b.Get(ctx, "key")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, map[string]any{"a": "b"}, value)

	require.NoError(t, b.Set(ctx, "key", nil, NoExpiration))
	require.Equal(t, int32(0), stored.Expiration)

	value, found, err = b.Get(ctx, "key")
	require.NoError(t, err)
	require.True(t, found)
	require.Nil(t, value)
}

func TestBackend_Close(t *testing.T) {
	b := newTestBackend(t)

	b.client.EXPECT().Get(gomock.Any()).Return(nil, memclient.ErrCacheMiss)

	_, _, err := b.Get(context.Background(), "key")
	require.NoError(t, err)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, ok := b.nodes.Current()
	require.False(t, ok)
}
