package handler

//go:generate mockgen -destination=mock/cache_mock.go -package=mock github.com/maxpoletaev/memdisco/api/handler Cache

import (
	"context"
	"time"

	"github.com/maxpoletaev/memdisco/discovery"
)

// Cache is the set of operations exposed over HTTP. It is implemented by
// backend.Backend.
type Cache interface {
	Add(ctx context.Context, key string, value any, timeout time.Duration) (bool, error)
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any, timeout time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
	GetMany(ctx context.Context, keys []string) (map[string]any, error)
	SetMany(ctx context.Context, values map[string]any, timeout time.Duration) ([]string, error)
	DeleteMany(ctx context.Context, keys []string) error
	Incr(ctx context.Context, key string, delta int64) (int64, error)
	Decr(ctx context.Context, key string, delta int64) (int64, error)
	Nodes(ctx context.Context) []discovery.Node
}
