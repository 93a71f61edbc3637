package healthcheck

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Checker periodically asks the configuration endpoint for the cluster nodes
// and reports the result to a health server. The cluster is considered
// healthy while at least one node is advertised.
type Checker struct {
	nodes    NodeSource
	status   StatusSetter
	logger   log.Logger
	service  string
	interval time.Duration
	timeout  time.Duration
	serving  bool
	checked  bool
}

func New(nodes NodeSource, status StatusSetter, logger log.Logger, opts ...Option) *Checker {
	c := &Checker{
		nodes:    nodes,
		status:   status,
		logger:   logger,
		interval: 10 * time.Second,
		timeout:  5 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Check runs a single probe and publishes its result. It reports whether the
// cluster is healthy.
func (c *Checker) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	nodes := c.nodes.Nodes(ctx)
	serving := len(nodes) > 0

	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}

	c.status.SetServingStatus(c.service, status)

	if !c.checked || serving != c.serving {
		logger := level.Info(c.logger)
		if !serving {
			logger = level.Warn(c.logger)
		}

		logger.Log(
			"msg", "cluster health changed",
			"status", status.String(),
			"nodes", len(nodes),
		)
	}

	c.serving = serving
	c.checked = true

	return serving
}

// RunLoop probes the cluster until the context is cancelled. The first probe
// runs immediately.
func (c *Checker) RunLoop(ctx context.Context) {
	level.Info(c.logger).Log(
		"msg", "health check loop started",
		"interval", c.interval,
	)

	for {
		c.Check(ctx)

		select {
		case <-time.After(c.interval):
			// noop
		case <-ctx.Done():
			return
		}
	}
}
