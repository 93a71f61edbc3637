package backend

import (
	"context"

	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/memdisco/memclient"
)

// withInvalidation runs op against the client of the current cluster snapshot,
// discovering the cluster first if needed. If op fails, the snapshot it ran
// against is dropped so that the next operation rediscovers the cluster. The
// error is returned unchanged.
//
// Outcomes such as a miss are not failures: op must turn them into results.
func withInvalidation[T any](ctx context.Context, b *Backend, op func(client memclient.Client) (T, error)) (T, error) {
	var zero T

	snapshot, err := b.nodes.Snapshot(ctx)
	if err != nil {
		return zero, err
	}

	res, err := op(snapshot.Client)
	if err != nil {
		if b.nodes.InvalidateSnapshot(snapshot) {
			level.Warn(b.logger).Log(
				"msg", "cache operation failed, cluster snapshot invalidated",
				"version", snapshot.Version,
				"err", err,
			)
		}

		return zero, err
	}

	return res, nil
}
