package main

var opts struct {
	Cluster struct {
		Endpoint       string `long:"endpoint" description:"configuration endpoint (host:port)" env:"ENDPOINT" required:"true"`
		Timeout        int    `long:"timeout" description:"discovery timeout (ms), zero for none" env:"TIMEOUT" default:"5000"`
		IgnoreErrors   bool   `long:"ignore-errors" description:"treat an unreachable endpoint as an empty cluster" env:"IGNORE_ERRORS"`
		HealthInterval int    `long:"health-interval" description:"cluster health check interval (ms)" env:"HEALTH_INTERVAL" default:"10000"`
	} `group:"cluster" namespace:"cluster" env-namespace:"CLUSTER"`

	Cache struct {
		KeyPrefix      string `long:"key-prefix" description:"prefix added to all keys" env:"KEY_PREFIX"`
		KeyVersion     int    `long:"key-version" description:"version added to all keys" env:"KEY_VERSION" default:"1"`
		DefaultTimeout int    `long:"default-timeout" description:"default expiration (s), zero for none" env:"DEFAULT_TIMEOUT" default:"300"`
		SocketTimeout  int    `long:"socket-timeout" description:"node read/write timeout (ms)" env:"SOCKET_TIMEOUT" default:"500"`
		MaxIdleConns   int    `long:"max-idle-conns" description:"idle connections kept per node" env:"MAX_IDLE_CONNS" default:"2"`
		DeadTimeout    int    `long:"dead-timeout" description:"how long a failed node is skipped (s)" env:"DEAD_TIMEOUT" default:"60"`
		StrictErrors   bool   `long:"strict-errors" description:"report node failures instead of treating them as misses" env:"STRICT_ERRORS"`
	} `group:"cache" namespace:"cache" env-namespace:"CACHE"`

	RestAPI struct {
		BindAddr string `long:"bind-addr" description:"address to bind REST API server" env:"BIND_ADDR" default:":8000"`
	} `group:"restapi" namespace:"restapi" env-namespace:"RESTAPI"`

	GRPC struct {
		BindAddr string `long:"bind-addr" description:"address to bind grpc health server" env:"BIND_ADDR" default:":3000"`
	} `group:"grpc" namespace:"grpc" env-namespace:"GRPC"`

	Verbose bool `long:"verbose" description:"verbose mode" env:"VERBOSE"`
}

// backendParams maps command line options onto backend options.
func backendParams() map[string]any {
	return map[string]any{
		"cluster_timeout":       float64(opts.Cluster.Timeout) / 1000,
		"ignore_cluster_errors": opts.Cluster.IgnoreErrors,
		"key_prefix":            opts.Cache.KeyPrefix,
		"version":               opts.Cache.KeyVersion,
		"timeout":               opts.Cache.DefaultTimeout,
		"ignore_exc":            !opts.Cache.StrictErrors,
		"socket_timeout":        float64(opts.Cache.SocketTimeout) / 1000,
		"max_idle_conns":        opts.Cache.MaxIdleConns,
		"dead_timeout":          opts.Cache.DeadTimeout,
	}
}
