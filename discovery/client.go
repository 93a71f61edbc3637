package discovery

import (
	"bufio"
	"context"
	"errors"
	"net"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Dialer opens a connection to the configuration endpoint.
type Dialer func(ctx context.Context, network, addr string) (net.Conn, error)

type Config struct {
	// Addr is the host:port of the configuration endpoint.
	Addr string

	// Timeout bounds a whole discovery call, including dialing. Zero means the
	// call is only bounded by the context.
	Timeout time.Duration

	// IgnoreErrors makes Discover return an empty cluster instead of failing
	// when the endpoint cannot be reached. Protocol errors are still returned.
	IgnoreErrors bool

	Logger kitlog.Logger
	Dialer Dialer
}

func DefaultConfig() Config {
	dialer := &net.Dialer{}

	return Config{
		Logger: kitlog.NewNopLogger(),
		Dialer: dialer.DialContext,
	}
}

// Client talks to a configuration endpoint. It keeps no state between calls:
// every Discover opens a new connection and closes it before returning.
type Client struct {
	addr         string
	timeout      time.Duration
	ignoreErrors bool
	logger       kitlog.Logger
	dial         Dialer
}

func New(conf Config) *Client {
	defaults := DefaultConfig()

	if conf.Logger == nil {
		conf.Logger = defaults.Logger
	}

	if conf.Dialer == nil {
		conf.Dialer = defaults.Dialer
	}

	return &Client{
		addr:         conf.Addr,
		timeout:      conf.Timeout,
		ignoreErrors: conf.IgnoreErrors,
		logger:       conf.Logger,
		dial:         conf.Dialer,
	}
}

// Addr returns the address of the configuration endpoint.
func (c *Client) Addr() string {
	return c.addr
}

// Discover fetches the current cluster configuration from the endpoint.
func (c *Client) Discover(ctx context.Context) (*ClusterConfig, error) {
	cluster, err := c.discover(ctx)
	if err != nil {
		if c.ignoreErrors && errors.Is(err, ErrConnection) {
			level.Warn(c.logger).Log(
				"msg", "failed to get cluster configuration, assuming no nodes",
				"addr", c.addr,
				"err", err,
			)

			return &ClusterConfig{}, nil
		}

		return nil, err
	}

	return cluster, nil
}

func (c *Client) discover(ctx context.Context) (*ClusterConfig, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)

		defer cancel()
	}

	conn, err := c.dial(ctx, "tcp", c.addr)
	if err != nil {
		return nil, ErrConnection.Wrap(err, c.addr)
	}

	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, ErrConnection.Wrap(err, c.addr)
		}
	}

	// Cancellation without a deadline still has to unblock pending reads.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})

	defer stop()

	s := &session{
		rw:   bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn)),
		addr: c.addr,
	}

	version, err := s.version()
	if err != nil {
		return nil, err
	}

	cluster, err := s.clusterConfig(configCommandFor(version))
	if err != nil {
		return nil, err
	}

	level.Debug(c.logger).Log(
		"msg", "fetched cluster configuration",
		"addr", c.addr,
		"version", cluster.Version,
		"nodes", len(cluster.Nodes),
	)

	return cluster, nil
}
